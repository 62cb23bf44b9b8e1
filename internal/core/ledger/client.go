// Package ledger holds the authoritative current-state records: client
// balances and product stock. History lives elsewhere: product changes
// in each product's logs array, balance changes only implicitly in the
// transactions collection.
package ledger

import (
	"context"

	"github.com/entitysoft/billing/internal/adapter/storage"
	"github.com/entitysoft/billing/internal/core/domain"
)

// ClientLedger maintains one balance per client, keyed by the
// ownerMobile business key rather than a generated id. Downstream
// queries depend on that identity model.
type ClientLedger struct {
	store storage.Store
}

func NewClientLedger(store storage.Store) *ClientLedger {
	return &ClientLedger{store: store}
}

// WithStore returns a ledger bound to a different store view, used to
// run operations inside an open transaction.
func (l *ClientLedger) WithStore(store storage.Store) *ClientLedger {
	return &ClientLedger{store: store}
}

func (l *ClientLedger) List(ctx context.Context) ([]storage.Document, error) {
	return l.store.Find(ctx, domain.CollectionClients, storage.Filter{}, storage.Options{})
}

func (l *ClientLedger) GetByMobile(ctx context.Context, mobile string) (storage.Document, error) {
	if mobile == "" {
		return nil, domain.ErrInvalidArgument
	}
	return l.store.FindOne(ctx, domain.CollectionClients, storage.Filter{"ownerMobile": mobile})
}

// Upsert sets arbitrary client fields, creating the record when the
// mobile is unknown. The administrative CRUD path.
func (l *ClientLedger) Upsert(ctx context.Context, mobile string, fields map[string]any) (storage.Document, error) {
	if mobile == "" {
		return nil, domain.ErrInvalidArgument
	}
	// The business key in the path wins over whatever the body says.
	delete(fields, "ownerMobile")
	return l.store.Update(ctx, domain.CollectionClients,
		storage.Filter{"ownerMobile": mobile},
		storage.Patch{Set: fields},
		true)
}

// UpsertBalance replaces the stored balance with newBalance, a full
// set keyed by business key, not an increment. Callers supply the
// final balance. A client unknown to the ledger is created with only
// ownerMobile and balance populated.
func (l *ClientLedger) UpsertBalance(ctx context.Context, mobile string, newBalance float64) error {
	if mobile == "" {
		return domain.ErrInvalidArgument
	}
	_, err := l.store.Update(ctx, domain.CollectionClients,
		storage.Filter{"ownerMobile": mobile},
		storage.Patch{Set: map[string]any{"balance": newBalance}},
		true)
	return err
}

func (l *ClientLedger) Delete(ctx context.Context, mobile string) error {
	if mobile == "" {
		return domain.ErrInvalidArgument
	}
	return l.store.Delete(ctx, domain.CollectionClients, storage.Filter{"ownerMobile": mobile})
}
