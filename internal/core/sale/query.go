package sale

import (
	"context"
	"fmt"
	"time"

	"github.com/entitysoft/billing/internal/adapter/storage"
	"github.com/entitysoft/billing/internal/core/domain"
)

// DefaultLimit caps the transaction list endpoints.
const DefaultLimit = 100

// Queries are the date- and owner-bounded reads over transactions.
type Queries struct {
	store storage.Store
}

func NewQueries(store storage.Store) *Queries {
	return &Queries{store: store}
}

// ListRecent returns the latest transactions, newest first.
func (q *Queries) ListRecent(ctx context.Context, limit int) ([]storage.Document, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return q.store.Find(ctx, domain.CollectionTransactions, storage.Filter{},
		storage.Options{Sort: "createdAt", Desc: true, Limit: limit})
}

// ListByOwner returns up to limit transactions for one client, in
// store order.
func (q *Queries) ListByOwner(ctx context.Context, mobile string, limit int) ([]storage.Document, error) {
	if mobile == "" {
		return nil, fmt.Errorf("%w: ownerMobile is required", domain.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	return q.store.Find(ctx, domain.CollectionTransactions,
		storage.Filter{"ownerMobile": mobile},
		storage.Options{Limit: limit})
}

// ListForMonth returns one client's transactions whose createdAt falls
// within ref's calendar month, inclusive both ends.
func (q *Queries) ListForMonth(ctx context.Context, mobile string, ref time.Time) ([]storage.Document, error) {
	if mobile == "" {
		return nil, fmt.Errorf("%w: ownerMobile is required", domain.ErrInvalidArgument)
	}
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return q.store.Find(ctx, domain.CollectionTransactions,
		storage.Filter{
			"ownerMobile": mobile,
			"createdAt":   storage.Range{GTE: start, LTE: end},
		},
		storage.Options{})
}

// ListInRange returns transactions with createdAt between the parsed
// bounds, inclusive. Unparseable bounds are an InvalidArgument.
func (q *Queries) ListInRange(ctx context.Context, startDate, endDate string) ([]storage.Document, error) {
	start, err := parseDate(startDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate(endDate)
	if err != nil {
		return nil, err
	}
	return q.store.Find(ctx, domain.CollectionTransactions,
		storage.Filter{"createdAt": storage.Range{GTE: start, LTE: end}},
		storage.Options{})
}

// dateFormats accepted by the range endpoint, tried in order.
var dateFormats = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable date %q", domain.ErrInvalidArgument, s)
}
