package handler

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/entitysoft/billing/internal/core/sale"
)

type TransactionHandler struct {
	Poster  *sale.Poster
	Queries *sale.Queries
}

// List handles GET /transactions: the latest 100, newest first.
func (h *TransactionHandler) List(c *fiber.Ctx) error {
	txns, err := h.Queries.ListRecent(c.Context(), sale.DefaultLimit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(txns)
}

// ByOwner handles GET /transactions/:ownerMobile.
func (h *TransactionHandler) ByOwner(c *fiber.Ctx) error {
	txns, err := h.Queries.ListByOwner(c.Context(), c.Params("ownerMobile"), sale.DefaultLimit)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(txns)
}

// Monthly handles GET /transactions/monthly/:ownerMobile for the
// current calendar month.
func (h *TransactionHandler) Monthly(c *fiber.Ctx) error {
	txns, err := h.Queries.ListForMonth(c.Context(), c.Params("ownerMobile"), time.Now())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(txns)
}

// Post handles POST /transactions: the sale workflow. The body travels
// to the poster as a raw document so caller fields the core does not
// model are persisted too.
func (h *TransactionHandler) Post(c *fiber.Ctx) error {
	var payload map[string]any
	if err := c.BodyParser(&payload); err != nil {
		slog.Warn("Invalid sale body", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	txn, err := h.Poster.Post(c.Context(), payload)
	if err != nil {
		return fail(c, err)
	}

	slog.Info("Sale posted", "id", txn["id"], "owner", txn["ownerMobile"])
	return c.JSON(txn)
}

type rangeRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Range handles POST /transactions/range.
func (h *TransactionHandler) Range(c *fiber.Ctx) error {
	var req rangeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	txns, err := h.Queries.ListInRange(c.Context(), req.StartDate, req.EndDate)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(txns)
}
