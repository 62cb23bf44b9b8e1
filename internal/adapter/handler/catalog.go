package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/entitysoft/billing/internal/core/ledger"
)

type CatalogHandler struct {
	Catalog *ledger.CatalogLedger
}

// List handles GET /clientproducts.
func (h *CatalogHandler) List(c *fiber.Ctx) error {
	entries, err := h.Catalog.List(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(entries)
}

// Get handles GET /clientproducts/:id.
func (h *CatalogHandler) Get(c *fiber.Ctx) error {
	entry, err := h.Catalog.Get(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(entry)
}

// Upsert handles POST /clientproducts. The body may carry an id to
// replace an existing entry; without one a new entry is created.
func (h *CatalogHandler) Upsert(c *fiber.Ctx) error {
	var doc map[string]any
	if err := c.BodyParser(&doc); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	entry, err := h.Catalog.Upsert(c.Context(), doc)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(entry)
}

// Update handles PUT /clientproducts/:id. The id is immutable: a body
// id that disagrees with the path is rejected.
func (h *CatalogHandler) Update(c *fiber.Ctx) error {
	var fields map[string]any
	if err := c.BodyParser(&fields); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if bodyID, _ := fields["id"].(string); bodyID != "" && bodyID != c.Params("id") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "cannot update id"})
	}
	entry, err := h.Catalog.Update(c.Context(), c.Params("id"), fields)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(entry)
}

// Delete handles DELETE /clientproducts/:id.
func (h *CatalogHandler) Delete(c *fiber.Ctx) error {
	if err := h.Catalog.Delete(c.Context(), c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}
