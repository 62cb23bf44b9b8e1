// Package worker runs the background webhook dispatcher. Posted sales
// are queued as documents in the webhook_jobs collection and delivered
// out-of-band, so a dead subscriber never fails or slows a sale.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/entitysoft/billing/internal/adapter/storage"
	"github.com/entitysoft/billing/internal/core/domain"
	"github.com/entitysoft/billing/internal/core/metrics"
	"github.com/entitysoft/billing/internal/core/notifications"
)

const (
	pollInterval = 5 * time.Second
	maxAttempts  = 5
)

// Dispatcher polls the job queue and posts sale events to the
// configured subscriber URL with linear backoff.
type Dispatcher struct {
	store storage.Store
	url   string
	done  chan struct{}
}

func NewDispatcher(store storage.Store, url string) *Dispatcher {
	return &Dispatcher{store: store, url: url, done: make(chan struct{})}
}

// EnqueueSale queues a sale.posted notification. Best effort: a queue
// failure is logged, never surfaced to the sale.
func (d *Dispatcher) EnqueueSale(ctx context.Context, txn storage.Document) {
	job := storage.Document{
		"event":     "sale.posted",
		"data":      txn,
		"status":    "PENDING",
		"attempts":  0,
		"nextRunAt": time.Now().UTC(),
		"createdAt": time.Now().UTC(),
	}
	if _, err := d.store.Insert(ctx, domain.CollectionWebhookJobs, job); err != nil {
		slog.Error("Failed to queue sale webhook", "error", err)
	}
}

// Start launches the polling loop. Stop shuts it down.
func (d *Dispatcher) Start() {
	go func() {
		slog.Info("Webhook dispatcher started", "url", d.url)
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-d.done:
				return
			case <-ticker.C:
				d.processJobs(context.Background())
			}
		}
	}()
}

func (d *Dispatcher) Stop() { close(d.done) }

func (d *Dispatcher) processJobs(ctx context.Context) {
	jobs, err := d.store.Find(ctx, domain.CollectionWebhookJobs,
		storage.Filter{
			"status":    "PENDING",
			"nextRunAt": storage.Range{LTE: time.Now().UTC()},
		},
		storage.Options{Sort: "createdAt", Limit: 1})
	if err != nil {
		slog.Error("Dispatcher: queue read failed", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}
	d.deliver(ctx, jobs[0])
}

func (d *Dispatcher) deliver(ctx context.Context, job storage.Document) {
	id, _ := job[storage.IDField].(string)
	attempts := int(storage.Number(job["attempts"]))

	payload := map[string]any{
		"event": job["event"],
		"data":  job["data"],
	}

	sendErr := notifications.SendWebhook(d.url, payload)
	if sendErr == nil {
		metrics.WebhooksSent.Inc()
		d.markJob(ctx, id, storage.Patch{Set: map[string]any{"status": "COMPLETED"}})
		slog.Info("Dispatcher: webhook sent", "job_id", id)
		return
	}

	slog.Error("Dispatcher: webhook failed", "error", sendErr, "job_id", id, "attempts", attempts)
	if attempts+1 >= maxAttempts {
		metrics.WebhooksFailed.Inc()
		d.markJob(ctx, id, storage.Patch{Set: map[string]any{"status": "FAILED"}})
		slog.Error("Dispatcher: job abandoned, max attempts reached", "job_id", id)
		return
	}

	nextRun := time.Now().UTC().Add(time.Duration(attempts*10+10) * time.Second)
	d.markJob(ctx, id, storage.Patch{
		Set: map[string]any{"nextRunAt": nextRun},
		Inc: map[string]float64{"attempts": 1},
	})
}

func (d *Dispatcher) markJob(ctx context.Context, id string, patch storage.Patch) {
	_, err := d.store.Update(ctx, domain.CollectionWebhookJobs,
		storage.Filter{storage.IDField: id}, patch, false)
	if err != nil {
		slog.Error("Dispatcher: job update failed", "error", err, "job_id", id)
	}
}
