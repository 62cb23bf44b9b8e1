package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/entitysoft/billing/internal/adapter/storage"
	"github.com/entitysoft/billing/internal/core/domain"
)

// InventoryLedger maintains per-product stock plus an append-only log
// of every quantity and name/price change. All quantity writes go
// through AdjustQuantity so the log stays complete; sale-driven
// decrements log an INVENTORY_SALE entry like any other change.
type InventoryLedger struct {
	store storage.Store
}

func NewInventoryLedger(store storage.Store) *InventoryLedger {
	return &InventoryLedger{store: store}
}

// WithStore returns a ledger bound to a different store view, used to
// run operations inside an open transaction.
func (l *InventoryLedger) WithStore(store storage.Store) *InventoryLedger {
	return &InventoryLedger{store: store}
}

// List returns every product with the logs array stripped; histories
// can be large and have their own endpoint.
func (l *InventoryLedger) List(ctx context.Context) ([]storage.Document, error) {
	return l.store.Find(ctx, domain.CollectionProducts, storage.Filter{},
		storage.Options{Exclude: []string{"logs"}})
}

func (l *InventoryLedger) GetByName(ctx context.Context, name string) (storage.Document, error) {
	if name == "" {
		return nil, domain.ErrInvalidArgument
	}
	return l.store.FindOne(ctx, domain.CollectionProducts, storage.Filter{"itemName": name})
}

// Create inserts a new product with an empty history.
func (l *InventoryLedger) Create(ctx context.Context, doc storage.Document) (storage.Document, error) {
	if _, ok := doc["logs"]; !ok {
		doc["logs"] = []any{}
	}
	return l.store.Insert(ctx, domain.CollectionProducts, doc)
}

// AdjustQuantity applies an additive delta to itemQuantity and, when
// entry is non-nil, appends it to the product's logs with a stamped
// createdAt. The missing-product case is the caller's concern: the
// update matches nothing and ErrNotFound comes back.
func (l *InventoryLedger) AdjustQuantity(ctx context.Context, filter storage.Filter, delta float64, entry *domain.LogEntry) (storage.Document, error) {
	patch := storage.Patch{Inc: map[string]float64{"itemQuantity": delta}}
	if entry != nil {
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now().UTC()
		}
		patch.Push = map[string]any{"logs": logDoc(*entry)}
	}
	return l.store.Update(ctx, domain.CollectionProducts, filter, patch, false)
}

// RenameOrReprice sets the provided fields and always records one
// NAME_PRICE_UPDATE entry describing the change.
func (l *InventoryLedger) RenameOrReprice(ctx context.Context, id string, newName string, newPrice *float64) (storage.Document, error) {
	if id == "" || (newName == "" && newPrice == nil) {
		return nil, domain.ErrInvalidArgument
	}

	set := map[string]any{}
	desc := ""
	if newName != "" {
		set["itemName"] = newName
		desc = fmt.Sprintf("name set to %q", newName)
	}
	var value float64
	if newPrice != nil {
		set["itemPrice"] = *newPrice
		value = *newPrice
		if desc != "" {
			desc += ", "
		}
		desc += fmt.Sprintf("price set to %v", *newPrice)
	}

	entry := domain.LogEntry{
		Title:       domain.LogNamePriceUpdate,
		Description: desc,
		Value:       value,
		CreatedAt:   time.Now().UTC(),
	}
	return l.store.Update(ctx, domain.CollectionProducts,
		storage.Filter{storage.IDField: id},
		storage.Patch{Set: set, Push: map[string]any{"logs": logDoc(entry)}},
		false)
}

// Logs returns a product's history, oldest first.
func (l *InventoryLedger) Logs(ctx context.Context, id string) ([]any, error) {
	doc, err := l.store.FindOne(ctx, domain.CollectionProducts, storage.Filter{storage.IDField: id})
	if err != nil {
		return nil, err
	}
	logs, _ := doc["logs"].([]any)
	if logs == nil {
		logs = []any{}
	}
	return logs, nil
}

func (l *InventoryLedger) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidArgument
	}
	return l.store.Delete(ctx, domain.CollectionProducts, storage.Filter{storage.IDField: id})
}

// logDoc keeps log entries in plain document form so both drivers
// store them identically.
func logDoc(e domain.LogEntry) map[string]any {
	return map[string]any{
		"title":       e.Title,
		"description": e.Description,
		"value":       e.Value,
		"createdAt":   e.CreatedAt,
	}
}
