package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	bolt "go.etcd.io/bbolt"

	"github.com/entitysoft/billing/internal/core/domain"
)

// BoltStore is the embedded driver: one bucket per collection, JSON
// values keyed by the generated id. Bolt serializes write
// transactions, so concurrent Inc patches on one document compose
// instead of overwriting each other.
type BoltStore struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the database file at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", domain.ErrStoreUnavailable, path, err)
	}
	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Find(ctx context.Context, collection string, filter Filter, opts Options) ([]Document, error) {
	var out []Document
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = boltFind(tx, collection, filter, opts)
		return err
	})
	return out, err
}

func (s *BoltStore) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	var out Document
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		out, err = boltFindOne(tx, collection, filter)
		return err
	})
	return out, err
}

func (s *BoltStore) Insert(ctx context.Context, collection string, doc Document) (Document, error) {
	var out Document
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		out, err = boltInsert(tx, collection, doc)
		return err
	})
	return out, err
}

func (s *BoltStore) Update(ctx context.Context, collection string, filter Filter, patch Patch, upsert bool) (Document, error) {
	var out Document
	err := s.db.Update(func(tx *bolt.Tx) error {
		var err error
		out, err = boltUpdate(tx, collection, filter, patch, upsert)
		return err
	})
	return out, err
}

func (s *BoltStore) Delete(ctx context.Context, collection string, filter Filter) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return boltDelete(tx, collection, filter)
	})
}

// Transact runs fn inside a single bolt write transaction.
func (s *BoltStore) Transact(ctx context.Context, fn func(tx Store) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{tx: tx})
	})
}

func (s *BoltStore) Ping(ctx context.Context) error {
	return s.db.View(func(*bolt.Tx) error { return nil })
}

func (s *BoltStore) Close() error { return s.db.Close() }

// boltTx is the Store view inside an open write transaction.
type boltTx struct {
	tx *bolt.Tx
}

func (t *boltTx) Find(ctx context.Context, collection string, filter Filter, opts Options) ([]Document, error) {
	return boltFind(t.tx, collection, filter, opts)
}

func (t *boltTx) FindOne(ctx context.Context, collection string, filter Filter) (Document, error) {
	return boltFindOne(t.tx, collection, filter)
}

func (t *boltTx) Insert(ctx context.Context, collection string, doc Document) (Document, error) {
	return boltInsert(t.tx, collection, doc)
}

func (t *boltTx) Update(ctx context.Context, collection string, filter Filter, patch Patch, upsert bool) (Document, error) {
	return boltUpdate(t.tx, collection, filter, patch, upsert)
}

func (t *boltTx) Delete(ctx context.Context, collection string, filter Filter) error {
	return boltDelete(t.tx, collection, filter)
}

// Transact within a transaction reuses the enclosing one.
func (t *boltTx) Transact(ctx context.Context, fn func(tx Store) error) error {
	return fn(t)
}

func (t *boltTx) Ping(ctx context.Context) error { return nil }
func (t *boltTx) Close() error                   { return nil }

// Shared operations below run at the bolt transaction level so the
// store and its transactional view behave identically.

func boltFind(tx *bolt.Tx, collection string, filter Filter, opts Options) ([]Document, error) {
	out := []Document{}
	b := tx.Bucket([]byte(collection))
	if b == nil {
		return out, nil
	}
	err := b.ForEach(func(_, v []byte) error {
		doc, err := decodeDoc(v)
		if err != nil {
			return err
		}
		if matches(doc, filter) {
			out = append(out, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if opts.Sort != "" {
		sort.SliceStable(out, func(i, j int) bool {
			c := compareField(out[i], out[j], opts.Sort)
			if opts.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	if len(opts.Exclude) > 0 {
		for _, doc := range out {
			exclude(doc, opts.Exclude)
		}
	}
	return out, nil
}

func boltFindOne(tx *bolt.Tx, collection string, filter Filter) (Document, error) {
	docs, err := boltFind(tx, collection, filter, Options{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, domain.ErrNotFound
	}
	return docs[0], nil
}

func boltInsert(tx *bolt.Tx, collection string, doc Document) (Document, error) {
	b, err := tx.CreateBucketIfNotExists([]byte(collection))
	if err != nil {
		return nil, fmt.Errorf("%w: bucket %s: %v", domain.ErrPersistenceFailure, collection, err)
	}
	doc = ensureID(doc)
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %v", domain.ErrPersistenceFailure, err)
	}
	if err := b.Put([]byte(doc[IDField].(string)), raw); err != nil {
		return nil, fmt.Errorf("%w: put: %v", domain.ErrPersistenceFailure, err)
	}
	// Return the canonical stored form so callers see what a later
	// read would see (times as strings, numbers as float64).
	return decodeDoc(raw)
}

func boltUpdate(tx *bolt.Tx, collection string, filter Filter, patch Patch, upsert bool) (Document, error) {
	b := tx.Bucket([]byte(collection))
	if b != nil {
		var matched Document
		err := b.ForEach(func(_, v []byte) error {
			if matched != nil {
				return nil
			}
			doc, err := decodeDoc(v)
			if err != nil {
				return err
			}
			if matches(doc, filter) {
				matched = doc
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		if matched != nil {
			applyPatch(matched, patch)
			raw, err := json.Marshal(matched)
			if err != nil {
				return nil, fmt.Errorf("%w: encode: %v", domain.ErrPersistenceFailure, err)
			}
			id, _ := matched[IDField].(string)
			if id == "" {
				return nil, fmt.Errorf("%w: document missing %s", domain.ErrPersistenceFailure, IDField)
			}
			if err := b.Put([]byte(id), raw); err != nil {
				return nil, fmt.Errorf("%w: put: %v", domain.ErrPersistenceFailure, err)
			}
			return decodeDoc(raw)
		}
	}
	if !upsert {
		return nil, domain.ErrNotFound
	}
	return boltInsert(tx, collection, upsertSeed(filter, patch))
}

func boltDelete(tx *bolt.Tx, collection string, filter Filter) error {
	b := tx.Bucket([]byte(collection))
	if b == nil {
		return nil
	}
	var keys [][]byte
	err := b.ForEach(func(k, v []byte) error {
		doc, err := decodeDoc(v)
		if err != nil {
			return err
		}
		if matches(doc, filter) {
			keys = append(keys, append([]byte(nil), k...))
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := b.Delete(k); err != nil {
			return fmt.Errorf("%w: delete: %v", domain.ErrPersistenceFailure, err)
		}
	}
	return nil
}

func decodeDoc(raw []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrPersistenceFailure, err)
	}
	return doc, nil
}
