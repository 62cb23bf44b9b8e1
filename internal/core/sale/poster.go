// Package sale implements transaction posting and the read queries
// over the transactions collection.
package sale

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/entitysoft/billing/internal/adapter/storage"
	"github.com/entitysoft/billing/internal/core/domain"
	"github.com/entitysoft/billing/internal/core/ledger"
	"github.com/entitysoft/billing/internal/core/metrics"
)

// Notifier receives every successfully posted sale, best effort.
type Notifier interface {
	EnqueueSale(ctx context.Context, txn storage.Document)
}

// Poster records a sale and propagates its effects: one transaction
// record, the client's balance set to the submitted dueBalance, and a
// stock decrement per line item. All three run inside one store
// transaction; a failure rolls everything back, never leaving a
// partially applied sale.
type Poster struct {
	store     storage.Store
	clients   *ledger.ClientLedger
	inventory *ledger.InventoryLedger

	// allowNegative keeps the historical no-floor behavior; when
	// false, a line item that would drive stock below zero aborts the
	// whole sale.
	allowNegative bool

	notifier Notifier
}

func NewPoster(store storage.Store, clients *ledger.ClientLedger, inventory *ledger.InventoryLedger, allowNegative bool) *Poster {
	return &Poster{
		store:         store,
		clients:       clients,
		inventory:     inventory,
		allowNegative: allowNegative,
	}
}

// SetNotifier wires the webhook queue. Nil disables notifications.
func (p *Poster) SetNotifier(n Notifier) { p.notifier = n }

type lineItem struct {
	filter   storage.Filter
	label    string
	quantity float64
}

// Post persists the sale. The payload travels to the store as-is, so
// caller fields the core does not know about survive. Returns the
// stored transaction, createdAt stamped and id assigned.
//
// Reposting an identical payload is a second sale: there is no
// deduplication key, inventory is decremented again.
func (p *Poster) Post(ctx context.Context, payload storage.Document) (storage.Document, error) {
	mobile, _ := payload["ownerMobile"].(string)
	if mobile == "" {
		return nil, fmt.Errorf("%w: ownerMobile is required", domain.ErrInvalidArgument)
	}
	items, err := parseLineItems(payload["productsList"])
	if err != nil {
		return nil, err
	}
	dueBalance := storage.Number(payload["dueBalance"])

	payload["createdAt"] = time.Now().UTC()

	var stored storage.Document
	err = p.store.Transact(ctx, func(tx storage.Store) error {
		stored, err = tx.Insert(ctx, domain.CollectionTransactions, payload)
		if err != nil {
			return err
		}
		txnID, _ := stored[storage.IDField].(string)

		if err := p.clients.WithStore(tx).UpsertBalance(ctx, mobile, dueBalance); err != nil {
			return fmt.Errorf("update client balance: %w", err)
		}

		inventory := p.inventory.WithStore(tx)
		for _, item := range items {
			if err := p.deductStock(ctx, inventory, item, txnID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		metrics.SalesFailed.Inc()
		return nil, err
	}

	metrics.SalesPosted.Inc()
	if p.notifier != nil {
		p.notifier.EnqueueSale(ctx, stored)
	}
	return stored, nil
}

// deductStock decrements one line item's product. A reference that
// resolves to no product is skipped, matching the historical
// update-matches-nothing behavior, so one dead reference does not sink
// the rest of the sale.
//
// The stock guard inspects the quantity AFTER the decrement, inside
// the open transaction. A check-before-write would let two concurrent
// sales both read the same stock and both pass; checking the written
// result means whichever sale commits second sees the negative
// quantity and aborts.
func (p *Poster) deductStock(ctx context.Context, inventory *ledger.InventoryLedger, item lineItem, txnID string) error {
	entry := &domain.LogEntry{
		Title:       domain.LogInventorySale,
		Description: "sold in transaction " + txnID,
		Value:       -item.quantity,
	}
	product, err := inventory.AdjustQuantity(ctx, item.filter, -item.quantity, entry)
	if errors.Is(err, domain.ErrNotFound) {
		slog.Warn("Sale references unknown product, skipping", "item", item.label, "transaction", txnID)
		return nil
	}
	if err != nil {
		return err
	}

	if !p.allowNegative {
		if remaining := storage.Number(product["itemQuantity"]); remaining < 0 {
			return fmt.Errorf("%w: %s has %v in stock, sale needs %v",
				domain.ErrInsufficientStock, item.label,
				remaining+item.quantity, item.quantity)
		}
	}
	return nil
}

// parseLineItems normalizes the submitted productsList. Quantities
// arrive as JSON numbers or strings; both are accepted, fractions are
// truncated the way the old backend's parseInt did.
func parseLineItems(v any) ([]lineItem, error) {
	raw, ok := v.([]any)
	if !ok || len(raw) == 0 {
		return nil, fmt.Errorf("%w: productsList is required", domain.ErrInvalidArgument)
	}
	items := make([]lineItem, 0, len(raw))
	for i, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: productsList[%d] is not an object", domain.ErrInvalidArgument, i)
		}
		id, _ := m["itemId"].(string)
		name, _ := m["itemName"].(string)
		if id == "" && name == "" {
			return nil, fmt.Errorf("%w: productsList[%d] needs itemId or itemName", domain.ErrInvalidArgument, i)
		}

		qty, err := parseQuantity(m["itemQuantity"])
		if err != nil {
			return nil, fmt.Errorf("%w: productsList[%d]: %v", domain.ErrInvalidArgument, i, err)
		}

		item := lineItem{quantity: qty, label: name}
		if id != "" {
			// Id wins when both are present.
			item.filter = storage.Filter{storage.IDField: id}
			if item.label == "" {
				item.label = id
			}
		} else {
			item.filter = storage.Filter{"itemName": name}
		}
		items = append(items, item)
	}
	return items, nil
}

func parseQuantity(v any) (float64, error) {
	switch q := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
		if err != nil {
			return 0, fmt.Errorf("unparseable itemQuantity %q", q)
		}
		return math.Trunc(f), nil
	case nil:
		return 0, fmt.Errorf("itemQuantity is required")
	default:
		return math.Trunc(storage.Number(v)), nil
	}
}
