package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pesokrava/shop_backend/internal/domain"
	"github.com/Pesokrava/shop_backend/internal/pkg/logger"
)

const (
	// Retry configuration
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond

	// Per-attempt deadline for the database write
	attemptTimeout = 5 * time.Second
)

// OrderEvent represents an order event from NATS
type OrderEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// StockAdjuster applies an order-driven stock change
type StockAdjuster interface {
	AdjustStock(ctx context.Context, id uuid.UUID, qty int, status domain.OrderStatus) (*domain.Product, error)
}

// StockWorker applies order events to product stock. Unlike a recalculation
// worker, stock deltas are not idempotent: events are applied one at a time,
// never coalesced, and an event is acked only after its adjustment committed.
type StockWorker struct {
	adjuster StockAdjuster
	logger   *logger.Logger

	shutdownCh chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewStockWorker creates a new stock worker
func NewStockWorker(adjuster StockAdjuster, log *logger.Logger) *StockWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &StockWorker{
		adjuster:   adjuster,
		logger:     log,
		shutdownCh: make(chan struct{}),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// HandleEvent processes a single order event. The returned error tells the
// caller to Nak the message for redelivery.
func (w *StockWorker) HandleEvent(data []byte) error {
	select {
	case <-w.shutdownCh:
		return errors.New("worker shutting down")
	default:
	}

	var event OrderEvent
	if err := json.Unmarshal(data, &event); err != nil {
		w.logger.WithFields(map[string]any{
			"error": err.Error(),
		}).Error("Failed to unmarshal order event", err)
		// A malformed event will never parse, redelivery is pointless
		return nil
	}

	if event.Quantity <= 0 {
		w.logger.WithFields(map[string]any{
			"order_id": event.OrderID.String(),
			"quantity": event.Quantity,
		}).Warn("Dropping order event with non-positive quantity")
		return nil
	}

	w.logger.WithFields(map[string]any{
		"order_id":   event.OrderID.String(),
		"product_id": event.ProductID.String(),
		"quantity":   event.Quantity,
		"status":     event.Status,
	}).Info("Received order event")

	w.wg.Add(1)
	defer w.wg.Done()

	return w.applyWithRetry(event)
}

// applyWithRetry executes the stock adjustment with exponential backoff.
// Not-found and insufficient-stock are permanent for this event and are not
// retried.
func (w *StockWorker) applyWithRetry(event OrderEvent) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			w.logger.WithFields(map[string]any{
				"order_id":   event.OrderID.String(),
				"attempt":    attempt + 1,
				"backoff_ms": backoff.Milliseconds(),
			}).Warn("Retrying stock adjustment")

			select {
			case <-time.After(backoff):
			case <-w.ctx.Done():
				w.logger.Info("Worker context cancelled, aborting retry")
				return w.ctx.Err()
			}

			backoff *= 2
		}

		ctx, cancel := context.WithTimeout(w.ctx, attemptTimeout)
		product, err := w.adjuster.AdjustStock(ctx, event.ProductID, event.Quantity, domain.OrderStatus(event.Status))
		cancel()

		if err == nil {
			w.logger.WithFields(map[string]any{
				"order_id":   event.OrderID.String(),
				"product_id": event.ProductID.String(),
				"stock":      product.Stock,
			}).Info("Stock adjusted")
			return nil
		}

		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInsufficientStock) {
			w.logger.WithFields(map[string]any{
				"order_id":   event.OrderID.String(),
				"product_id": event.ProductID.String(),
				"error":      err.Error(),
			}).Error("Stock adjustment rejected, dropping event", err)
			return nil
		}

		lastErr = err
		w.logger.WithFields(map[string]any{
			"order_id": event.OrderID.String(),
			"attempt":  attempt + 1,
			"error":    err.Error(),
		}).Error("Failed to adjust stock", err)
	}

	return fmt.Errorf("stock adjustment failed after %d attempts: %w", maxRetries, lastErr)
}

// Shutdown gracefully shuts down the worker: refuses new events, cancels
// retries and waits for in-flight adjustments to complete.
func (w *StockWorker) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down stock worker...")

	close(w.shutdownCh)
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("All in-flight adjustments completed")
		return nil
	case <-ctx.Done():
		w.logger.Warn("Shutdown timeout reached, forcing exit")
		return ctx.Err()
	}
}
