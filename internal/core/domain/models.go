package domain

import "time"

// Collection names inside the billing database.
const (
	CollectionClients        = "clients"
	CollectionProducts       = "products"
	CollectionTransactions   = "transactions"
	CollectionClientProducts = "clientsproducts"
	CollectionWebhookJobs    = "webhook_jobs"
)

// Log entry titles recorded in a product's history.
const (
	LogInventoryUpdate = "INVENTORY_UPDATE"
	LogInventorySale   = "INVENTORY_SALE"
	LogNamePriceUpdate = "NAME_PRICE_UPDATE"
)

// LogEntry is one immutable audit record in a product's history.
// Records travel through the store as plain documents; this is the one
// shape the core constructs itself.
type LogEntry struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Value       float64   `json:"value"`
	CreatedAt   time.Time `json:"createdAt"`
}
