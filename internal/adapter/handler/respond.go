// Package handler exposes the REST surface over fiber. Every handler
// converts domain errors to one structured envelope at its own
// boundary: {"error": "<message>"}.
package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/entitysoft/billing/internal/core/domain"
)

// fail maps a domain error onto the HTTP surface. Client mistakes keep
// their message; anything else is logged and returned as a generic 500
// so store internals never leak.
func fail(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInsufficientStock):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		slog.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
