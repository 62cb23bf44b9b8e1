package handler

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/entitysoft/billing/internal/core/domain"
	"github.com/entitysoft/billing/internal/core/ledger"
)

type ProductHandler struct {
	Inventory *ledger.InventoryLedger
}

// List handles GET /products. Log histories are excluded; they have
// their own endpoint.
func (h *ProductHandler) List(c *fiber.Ctx) error {
	products, err := h.Inventory.List(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(products)
}

// Get handles GET /products/:itemName.
func (h *ProductHandler) Get(c *fiber.Ctx) error {
	product, err := h.Inventory.GetByName(c.Context(), c.Params("itemName"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(product)
}

// Create handles POST /products.
func (h *ProductHandler) Create(c *fiber.Ctx) error {
	var doc map[string]any
	if err := c.BodyParser(&doc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	product, err := h.Inventory.Create(c.Context(), doc)
	if err != nil {
		return fail(c, err)
	}
	slog.Info("Product created", "id", product["id"], "name", product["itemName"])
	return c.Status(fiber.StatusCreated).JSON(product)
}

type updateNamePriceRequest struct {
	ItemName  string   `json:"itemName"`
	ItemPrice *float64 `json:"itemPrice"`
}

// UpdateNamePrice handles PUT /products/update-name-price/:id. Always
// appends one NAME_PRICE_UPDATE log entry.
func (h *ProductHandler) UpdateNamePrice(c *fiber.Ctx) error {
	var req updateNamePriceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	product, err := h.Inventory.RenameOrReprice(c.Context(), c.Params("id"), req.ItemName, req.ItemPrice)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(product)
}

type addInventoryRequest struct {
	InventoryAddQuantity any    `json:"inventoryAddQuantity"`
	Description          string `json:"description"`
}

// AddInventory handles PUT /products/add-inventory/:id: an additive
// quantity change plus one INVENTORY_UPDATE log entry carrying the
// delta.
func (h *ProductHandler) AddInventory(c *fiber.Ctx) error {
	var req addInventoryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	delta, ok := quantityValue(req.InventoryAddQuantity)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unparseable inventoryAddQuantity"})
	}

	desc := req.Description
	if desc == "" {
		desc = "stock adjusted"
	}
	entry := &domain.LogEntry{
		Title:       domain.LogInventoryUpdate,
		Description: desc,
		Value:       delta,
	}
	product, err := h.Inventory.AdjustQuantity(c.Context(),
		map[string]any{"id": c.Params("id")}, delta, entry)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(product)
}

// Logs handles GET /products/:id/logs.
func (h *ProductHandler) Logs(c *fiber.Ctx) error {
	logs, err := h.Inventory.Logs(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(logs)
}

// Delete handles DELETE /products/:id.
func (h *ProductHandler) Delete(c *fiber.Ctx) error {
	if err := h.Inventory.Delete(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

// quantityValue accepts deltas sent as JSON numbers or strings.
func quantityValue(v any) (float64, bool) {
	switch q := v.(type) {
	case float64:
		return q, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(q), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
