package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/entitysoft/billing/internal/adapter/middleware"
	"github.com/entitysoft/billing/internal/core/ledger"
	"github.com/entitysoft/billing/internal/core/sale"
)

// Deps carries everything the HTTP surface needs, injected at
// construction so tests can swap the store driver underneath.
type Deps struct {
	Clients   *ledger.ClientLedger
	Inventory *ledger.InventoryLedger
	Catalog   *ledger.CatalogLedger
	Poster    *sale.Poster
	Queries   *sale.Queries

	MetricsEnabled bool
	StaticDir      string // "" disables static serving
}

// NewApp builds the fiber application with every route mounted.
func NewApp(deps Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(cors.New())
	app.Use(middleware.Metrics())
	if deps.StaticDir != "" {
		app.Static("/", deps.StaticDir)
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	if deps.MetricsEnabled {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	clients := &ClientHandler{Ledger: deps.Clients}
	app.Get("/clients", clients.List)
	app.Get("/clients/:ownerMobile", clients.Get)
	app.Post("/clients/:ownerMobile", clients.Upsert)
	app.Put("/clients/:ownerMobile", clients.Upsert)
	app.Delete("/clients/:ownerMobile", clients.Delete)

	products := &ProductHandler{Inventory: deps.Inventory}
	app.Get("/products", products.List)
	app.Post("/products", products.Create)
	app.Put("/products/update-name-price/:id", products.UpdateNamePrice)
	app.Put("/products/add-inventory/:id", products.AddInventory)
	app.Get("/products/:id/logs", products.Logs)
	app.Get("/products/:itemName", products.Get)
	app.Delete("/products/:id", products.Delete)

	catalog := &CatalogHandler{Catalog: deps.Catalog}
	app.Get("/clientproducts", catalog.List)
	app.Get("/clientproducts/:id", catalog.Get)
	app.Post("/clientproducts", catalog.Upsert)
	app.Put("/clientproducts/:id", catalog.Update)
	app.Delete("/clientproducts/:id", catalog.Delete)

	transactions := &TransactionHandler{Poster: deps.Poster, Queries: deps.Queries}
	app.Get("/transactions", transactions.List)
	app.Get("/transactions/monthly/:ownerMobile", transactions.Monthly)
	app.Get("/transactions/:ownerMobile", transactions.ByOwner)
	app.Post("/transactions", transactions.Post)
	app.Post("/transactions/range", transactions.Range)

	return app
}
