package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entitysoft/billing/internal/adapter/storage"
	"github.com/entitysoft/billing/internal/core/ledger"
	"github.com/entitysoft/billing/internal/core/sale"
)

func newTestApp(t *testing.T) (*fiber.App, storage.Store) {
	t.Helper()
	store, err := storage.OpenBolt(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	clients := ledger.NewClientLedger(store)
	inventory := ledger.NewInventoryLedger(store)
	app := NewApp(Deps{
		Clients:   clients,
		Inventory: inventory,
		Catalog:   ledger.NewCatalogLedger(store),
		Poster:    sale.NewPoster(store, clients, inventory, true),
		Queries:   sale.NewQueries(store),
	})
	return app, store
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)
	resp, raw := doJSON(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}

func TestClientLifecycle(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/clients/0712000020", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, raw := doJSON(t, app, http.MethodPost, "/clients/0712000020",
		map[string]any{"ownerName": "Neema", "balance": 12.5})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var client map[string]any
	require.NoError(t, json.Unmarshal(raw, &client))
	assert.Equal(t, "0712000020", client["ownerMobile"])
	assert.Equal(t, "Neema", client["ownerName"])

	resp, raw = doJSON(t, app, http.MethodGet, "/clients", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list, 1)

	resp, _ = doJSON(t, app, http.MethodDelete, "/clients/0712000020", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodGet, "/clients/0712000020", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProductEndpoints(t *testing.T) {
	app, _ := newTestApp(t)

	resp, raw := doJSON(t, app, http.MethodPost, "/products",
		map[string]any{"itemName": "flour", "itemPrice": 2.0, "itemQuantity": 10})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var product map[string]any
	require.NoError(t, json.Unmarshal(raw, &product))
	id := product["id"].(string)
	require.NotEmpty(t, id)

	// Additive change plus one INVENTORY_UPDATE entry with the delta.
	resp, raw = doJSON(t, app, http.MethodPut, "/products/add-inventory/"+id,
		map[string]any{"inventoryAddQuantity": 5, "description": "restock"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &product))
	assert.Equal(t, 15.0, product["itemQuantity"])

	resp, raw = doJSON(t, app, http.MethodGet, "/products/"+id+"/logs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var logs []map[string]any
	require.NoError(t, json.Unmarshal(raw, &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "INVENTORY_UPDATE", logs[0]["title"])
	assert.Equal(t, 5.0, logs[0]["value"])

	resp, raw = doJSON(t, app, http.MethodPut, "/products/update-name-price/"+id,
		map[string]any{"itemName": "flour-2kg", "itemPrice": 2.5})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &product))
	assert.Equal(t, "flour-2kg", product["itemName"])

	// List strips histories.
	resp, raw = doJSON(t, app, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)
	assert.NotContains(t, list[0], "logs")

	// Fetch by name still carries them.
	resp, raw = doJSON(t, app, http.MethodGet, "/products/flour-2kg", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &product))
	assert.Contains(t, product, "logs")
}

func TestClientProductEndpoints(t *testing.T) {
	app, _ := newTestApp(t)

	resp, raw := doJSON(t, app, http.MethodPost, "/clientproducts",
		map[string]any{"ownerMobile": "0712000030", "itemName": "rice"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(raw, &entry))
	id := entry["id"].(string)
	require.NotEmpty(t, id)

	// Posting again with the id replaces fields on the same entry.
	resp, raw = doJSON(t, app, http.MethodPost, "/clientproducts",
		map[string]any{"id": id, "itemName": "maize"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, id, entry["id"])
	assert.Equal(t, "maize", entry["itemName"])

	resp, raw = doJSON(t, app, http.MethodGet, "/clientproducts", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	assert.Len(t, list, 1)

	// The id is immutable through the update route.
	resp, _ = doJSON(t, app, http.MethodPut, "/clientproducts/"+id,
		map[string]any{"id": "something-else", "itemName": "beans"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw = doJSON(t, app, http.MethodPut, "/clientproducts/"+id,
		map[string]any{"itemName": "beans"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(raw, &entry))
	assert.Equal(t, "beans", entry["itemName"])
	assert.Equal(t, "0712000030", entry["ownerMobile"])

	resp, _ = doJSON(t, app, http.MethodPut, "/clientproducts/missing",
		map[string]any{"itemName": "beans"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/clientproducts/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, app, http.MethodGet, "/clientproducts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostSaleEndpoint(t *testing.T) {
	app, store := newTestApp(t)
	ctx := context.Background()

	_, err := store.Insert(ctx, "products", storage.Document{
		"itemName": "rice", "itemPrice": 1.5, "itemQuantity": 10, "logs": []any{},
	})
	require.NoError(t, err)

	resp, raw := doJSON(t, app, http.MethodPost, "/transactions", map[string]any{
		"ownerMobile": "0712000021",
		"dueBalance":  99.0,
		"productsList": []map[string]any{
			{"itemName": "rice", "itemQuantity": "4"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var txn map[string]any
	require.NoError(t, json.Unmarshal(raw, &txn))
	assert.NotEmpty(t, txn["id"])
	assert.NotEmpty(t, txn["createdAt"])

	product, err := store.FindOne(ctx, "products", storage.Filter{"itemName": "rice"})
	require.NoError(t, err)
	assert.Equal(t, 6.0, storage.Number(product["itemQuantity"]))

	client, err := store.FindOne(ctx, "clients", storage.Filter{"ownerMobile": "0712000021"})
	require.NoError(t, err)
	assert.Equal(t, 99.0, storage.Number(client["balance"]))
}

func TestPostSaleRejectsBadPayload(t *testing.T) {
	app, _ := newTestApp(t)

	resp, raw := doJSON(t, app, http.MethodPost, "/transactions",
		map[string]any{"dueBalance": 1.0})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Contains(t, body, "error")
}

func TestRangeEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/transactions/range",
		map[string]any{"startDate": "not-a-date", "endDate": "2024-01-31"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, raw := doJSON(t, app, http.MethodPost, "/transactions/range",
		map[string]any{"startDate": "2024-01-01", "endDate": "2024-01-31"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestTransactionListEndpoints(t *testing.T) {
	app, _ := newTestApp(t)

	resp, raw := doJSON(t, app, http.MethodGet, "/transactions", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))

	resp, raw = doJSON(t, app, http.MethodGet, "/transactions/0712000022", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))

	resp, raw = doJSON(t, app, http.MethodGet, "/transactions/monthly/0712000022", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(raw))
}
