// Package storage provides the document store facade used by every
// ledger and query component. Collections hold schemaless JSON
// documents; the facade is pure passthrough and enforces no business
// invariants. Two drivers implement it: Postgres (JSONB, production)
// and Bolt (embedded file, dev and tests).
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Document is one schemaless record. Unknown caller fields survive a
// round-trip through the store untouched.
type Document = map[string]any

// Range bounds a time-valued field, inclusive both ends. Zero bounds
// are open.
type Range struct {
	GTE time.Time
	LTE time.Time
}

// Filter selects documents. Plain values match by equality; a Range
// value matches a time field between its bounds.
type Filter = map[string]any

// Patch describes a partial update. Set replaces fields, Inc applies
// additive deltas, Push appends to array fields. Inc and Push treat
// missing fields as zero / empty.
type Patch struct {
	Set  map[string]any
	Inc  map[string]float64
	Push map[string]any
}

// Options tune a Find.
type Options struct {
	Sort    string   // field to order by; empty means store order
	Desc    bool     // descending when true
	Limit   int      // 0 means unlimited
	Exclude []string // top-level fields stripped from results
}

// Store is the facade contract. FindOne and a no-match non-upsert
// Update return domain.ErrNotFound. Connectivity failures surface as
// domain.ErrStoreUnavailable, rejected writes as
// domain.ErrPersistenceFailure.
type Store interface {
	Find(ctx context.Context, collection string, filter Filter, opts Options) ([]Document, error)
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)
	Insert(ctx context.Context, collection string, doc Document) (Document, error)
	Update(ctx context.Context, collection string, filter Filter, patch Patch, upsert bool) (Document, error)
	Delete(ctx context.Context, collection string, filter Filter) error

	// Transact runs fn against a transactional view of the store.
	// Every operation inside fn commits atomically or not at all.
	// Nested calls run in the enclosing transaction.
	Transact(ctx context.Context, fn func(tx Store) error) error

	Ping(ctx context.Context) error
	Close() error
}

// IDField is the generated-id key assigned by Insert when absent.
const IDField = "id"

func ensureID(doc Document) Document {
	if v, ok := doc[IDField].(string); ok && v != "" {
		return doc
	}
	doc[IDField] = uuid.NewString()
	return doc
}

// applyPatch mutates doc in place according to patch.
func applyPatch(doc Document, patch Patch) {
	for k, v := range patch.Set {
		doc[k] = v
	}
	for k, delta := range patch.Inc {
		doc[k] = Number(doc[k]) + delta
	}
	for k, v := range patch.Push {
		arr, _ := doc[k].([]any)
		doc[k] = append(arr, v)
	}
}

// upsertSeed builds the document inserted when an upsert matched
// nothing: the equality fields of the filter plus the patch applied to
// an empty document.
func upsertSeed(filter Filter, patch Patch) Document {
	doc := Document{}
	for k, v := range filter {
		if _, isRange := v.(Range); !isRange {
			doc[k] = v
		}
	}
	applyPatch(doc, patch)
	return doc
}

// Number coerces a document field to float64 across the
// representations JSON round-trips produce. Numeric strings count;
// callers historically sent amounts both ways.
func Number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f
	default:
		return 0
	}
}

// asTime interprets a document field value as a timestamp. Times
// arrive either as time.Time (freshly stamped) or as RFC3339 strings
// (after a JSON round-trip).
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// matches reports whether doc satisfies every condition in filter.
func matches(doc Document, filter Filter) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if r, isRange := want.(Range); isRange {
			ts, tok := asTime(got)
			if !tok {
				return false
			}
			if !r.GTE.IsZero() && ts.Before(r.GTE) {
				return false
			}
			if !r.LTE.IsZero() && ts.After(r.LTE) {
				return false
			}
			continue
		}
		if !ok || !looseEqual(got, want) {
			return false
		}
	}
	return true
}

// looseEqual compares document values across the representations JSON
// round-trips produce (all numbers become float64, times become
// strings).
func looseEqual(got, want any) bool {
	if gt, ok := asTime(got); ok {
		if wt, ok := asTime(want); ok {
			return gt.Equal(wt)
		}
	}
	switch want.(type) {
	case float64, float32, int, int64:
		return Number(got) == Number(want)
	}
	return got == want
}

// compareField orders two documents by a field for sorting. Times
// order chronologically, numbers numerically, everything else as
// strings.
func compareField(a, b Document, field string) int {
	av, bv := a[field], b[field]
	if at, aok := asTime(av); aok {
		if bt, bok := asTime(bv); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	switch av.(type) {
	case float64, float32, int, int64:
		an, bn := Number(av), Number(bv)
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	}
	as, bs := fmt.Sprint(av), fmt.Sprint(bv)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func exclude(doc Document, fields []string) Document {
	for _, f := range fields {
		delete(doc, f)
	}
	return doc
}
