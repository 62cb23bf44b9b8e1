package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entitysoft/billing/internal/adapter/storage"
	"github.com/entitysoft/billing/internal/core/domain"
)

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	s, err := storage.OpenBolt(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertBalanceCreatesMinimalClient(t *testing.T) {
	store := newTestStore(t)
	clients := NewClientLedger(store)
	ctx := context.Background()

	require.NoError(t, clients.UpsertBalance(ctx, "0712000001", 150))

	doc, err := clients.GetByMobile(ctx, "0712000001")
	require.NoError(t, err)
	assert.Equal(t, 150.0, storage.Number(doc["balance"]))
	// Only the business key, the balance and the generated id exist.
	assert.NotContains(t, doc, "ownerName")
}

func TestUpsertBalanceOverwritesKeepingOtherFields(t *testing.T) {
	store := newTestStore(t)
	clients := NewClientLedger(store)
	ctx := context.Background()

	_, err := clients.Upsert(ctx, "0712000002", map[string]any{
		"ownerName": "Asha", "balance": 10.0,
	})
	require.NoError(t, err)

	require.NoError(t, clients.UpsertBalance(ctx, "0712000002", 220))

	doc, err := clients.GetByMobile(ctx, "0712000002")
	require.NoError(t, err)
	assert.Equal(t, 220.0, storage.Number(doc["balance"]))
	assert.Equal(t, "Asha", doc["ownerName"])
}

func TestClientUpsertIgnoresBodyMobile(t *testing.T) {
	store := newTestStore(t)
	clients := NewClientLedger(store)
	ctx := context.Background()

	doc, err := clients.Upsert(ctx, "0712000003", map[string]any{
		"ownerMobile": "9999", "ownerName": "Juma",
	})
	require.NoError(t, err)
	assert.Equal(t, "0712000003", doc["ownerMobile"])
}

func TestAdjustQuantityAppendsLog(t *testing.T) {
	store := newTestStore(t)
	inventory := NewInventoryLedger(store)
	ctx := context.Background()

	created, err := inventory.Create(ctx, storage.Document{
		"itemName": "rice 5kg", "itemPrice": 12.0, "itemQuantity": 10,
	})
	require.NoError(t, err)
	id := created[storage.IDField].(string)

	doc, err := inventory.AdjustQuantity(ctx, storage.Filter{storage.IDField: id}, 5,
		&domain.LogEntry{Title: domain.LogInventoryUpdate, Description: "restock", Value: 5})
	require.NoError(t, err)
	assert.Equal(t, 15.0, storage.Number(doc["itemQuantity"]))

	logs, err := inventory.Logs(ctx, id)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	entry := logs[0].(map[string]any)
	assert.Equal(t, domain.LogInventoryUpdate, entry["title"])
	assert.Equal(t, 5.0, storage.Number(entry["value"]))
	assert.NotEmpty(t, entry["createdAt"])
}

func TestAdjustQuantityUnknownProduct(t *testing.T) {
	store := newTestStore(t)
	inventory := NewInventoryLedger(store)

	_, err := inventory.AdjustQuantity(context.Background(),
		storage.Filter{"itemName": "ghost"}, -1, nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRenameOrRepriceAlwaysLogs(t *testing.T) {
	store := newTestStore(t)
	inventory := NewInventoryLedger(store)
	ctx := context.Background()

	created, err := inventory.Create(ctx, storage.Document{
		"itemName": "sugar", "itemPrice": 3.0, "itemQuantity": 4,
	})
	require.NoError(t, err)
	id := created[storage.IDField].(string)

	price := 3.5
	doc, err := inventory.RenameOrReprice(ctx, id, "sugar 1kg", &price)
	require.NoError(t, err)
	assert.Equal(t, "sugar 1kg", doc["itemName"])
	assert.Equal(t, 3.5, storage.Number(doc["itemPrice"]))

	logs, err := inventory.Logs(ctx, id)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.LogNamePriceUpdate, logs[0].(map[string]any)["title"])

	// Name-only change still logs.
	_, err = inventory.RenameOrReprice(ctx, id, "sugar 1kg refined", nil)
	require.NoError(t, err)
	logs, err = inventory.Logs(ctx, id)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	_, err = inventory.RenameOrReprice(ctx, id, "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestListExcludesLogs(t *testing.T) {
	store := newTestStore(t)
	inventory := NewInventoryLedger(store)
	ctx := context.Background()

	created, err := inventory.Create(ctx, storage.Document{"itemName": "tea", "itemQuantity": 2})
	require.NoError(t, err)
	_, err = inventory.AdjustQuantity(ctx,
		storage.Filter{storage.IDField: created[storage.IDField].(string)}, 1,
		&domain.LogEntry{Title: domain.LogInventoryUpdate, Value: 1})
	require.NoError(t, err)

	products, err := inventory.List(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.NotContains(t, products[0], "logs")
}
