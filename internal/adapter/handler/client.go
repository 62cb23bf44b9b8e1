package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/entitysoft/billing/internal/core/ledger"
)

type ClientHandler struct {
	Ledger *ledger.ClientLedger
}

// List handles GET /clients.
func (h *ClientHandler) List(c *fiber.Ctx) error {
	clients, err := h.Ledger.List(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(clients)
}

// Get handles GET /clients/:ownerMobile.
func (h *ClientHandler) Get(c *fiber.Ctx) error {
	client, err := h.Ledger.GetByMobile(c.Context(), c.Params("ownerMobile"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(client)
}

// Upsert handles POST and PUT /clients/:ownerMobile. The mobile in the
// path is the identity; body fields are set on the record, creating it
// when absent.
func (h *ClientHandler) Upsert(c *fiber.Ctx) error {
	var fields map[string]any
	if err := c.BodyParser(&fields); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	client, err := h.Ledger.Upsert(c.Context(), c.Params("ownerMobile"), fields)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(client)
}

// Delete handles DELETE /clients/:ownerMobile. Administrative only;
// the core never removes clients on its own.
func (h *ClientHandler) Delete(c *fiber.Ctx) error {
	if err := h.Ledger.Delete(c.Context(), c.Params("ownerMobile")); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}
