package ledger

import (
	"context"

	"github.com/entitysoft/billing/internal/adapter/storage"
	"github.com/entitysoft/billing/internal/core/domain"
)

// CatalogLedger maintains the client-product catalog: free-form
// documents linking clients to the products they carry. Unlike the
// other ledgers these records are keyed by generated id and the core
// never writes them on its own; the surface is plain CRUD.
type CatalogLedger struct {
	store storage.Store
}

func NewCatalogLedger(store storage.Store) *CatalogLedger {
	return &CatalogLedger{store: store}
}

func (l *CatalogLedger) List(ctx context.Context) ([]storage.Document, error) {
	return l.store.Find(ctx, domain.CollectionClientProducts, storage.Filter{}, storage.Options{})
}

func (l *CatalogLedger) Get(ctx context.Context, id string) (storage.Document, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	return l.store.FindOne(ctx, domain.CollectionClientProducts, storage.Filter{storage.IDField: id})
}

// Upsert creates or replaces fields of a catalog entry. The entry's id
// may come in the document; absent one a fresh record is inserted.
func (l *CatalogLedger) Upsert(ctx context.Context, doc storage.Document) (storage.Document, error) {
	id, _ := doc[storage.IDField].(string)
	if id == "" {
		return l.store.Insert(ctx, domain.CollectionClientProducts, doc)
	}
	delete(doc, storage.IDField)
	return l.store.Update(ctx, domain.CollectionClientProducts,
		storage.Filter{storage.IDField: id},
		storage.Patch{Set: doc},
		true)
}

// Update sets fields on an existing entry. ErrNotFound when the id is
// unknown; the id itself is immutable.
func (l *CatalogLedger) Update(ctx context.Context, id string, fields map[string]any) (storage.Document, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	delete(fields, storage.IDField)
	return l.store.Update(ctx, domain.CollectionClientProducts,
		storage.Filter{storage.IDField: id},
		storage.Patch{Set: fields},
		false)
}

func (l *CatalogLedger) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidArgument
	}
	return l.store.Delete(ctx, domain.CollectionClientProducts, storage.Filter{storage.IDField: id})
}
