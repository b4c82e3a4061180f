package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/shop_backend/internal/pkg/logger"
)

const (
	// ReviewStreamName is the JetStream stream for review lifecycle events
	ReviewStreamName = "REVIEWS"

	// ReviewStreamSubjects defines the subjects the review stream listens to
	ReviewStreamSubjects = "reviews.events"

	// OrderStreamName is the JetStream stream for order events driving stock
	OrderStreamName = "ORDERS"

	// OrderStreamSubjects defines the subjects the order stream listens to
	OrderStreamSubjects = "orders.events"

	// StockConsumerName is the durable consumer for the stock worker
	StockConsumerName = "stock-worker"

	// MaxDeliveryAttempts is the max number of delivery attempts before discarding
	MaxDeliveryAttempts = 3

	// AckWait is how long to wait for acknowledgment before redelivery
	AckWait = 30 * time.Second
)

// StreamConfig holds the JetStream stream configuration
type StreamConfig struct {
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewStreamConfig creates a new stream configuration helper
func NewStreamConfig(js nats.JetStreamContext, log *logger.Logger) *StreamConfig {
	return &StreamConfig{
		js:     js,
		logger: log,
	}
}

// generateExponentialBackoff creates a backoff schedule for NATS redeliveries
// Pattern: 1s, 2s, 4s, 8s, ... (2^n seconds)
// MaxDeliver N requires N-1 backoff durations (first delivery is immediate)
func generateExponentialBackoff(maxDeliveryAttempts int) []time.Duration {
	if maxDeliveryAttempts <= 1 {
		return nil
	}

	backoff := make([]time.Duration, maxDeliveryAttempts-1)
	for i := range backoff {
		backoff[i] = time.Duration(1<<i) * time.Second
	}
	return backoff
}

// EnsureStreams creates the JetStream streams if they do not already exist.
// The review stream keeps a 24h window of review events for the notifier.
// The order stream is a work queue: each order event is consumed exactly
// once by the stock worker, then deleted.
func (s *StreamConfig) EnsureStreams() error {
	if err := s.ensureStream(&nats.StreamConfig{
		Name:        ReviewStreamName,
		Subjects:    []string{ReviewStreamSubjects},
		Retention:   nats.LimitsPolicy,
		Storage:     nats.FileStorage,
		Replicas:    1,
		MaxAge:      24 * time.Hour,
		Discard:     nats.DiscardOld,
		Description: "Review lifecycle events",
	}); err != nil {
		return err
	}

	return s.ensureStream(&nats.StreamConfig{
		Name:        OrderStreamName,
		Subjects:    []string{OrderStreamSubjects},
		Retention:   nats.WorkQueuePolicy, // Messages deleted after ack
		Storage:     nats.FileStorage,     // Persisted to disk
		Replicas:    1,
		MaxAge:      24 * time.Hour,
		Discard:     nats.DiscardOld,
		Description: "Order events stream for stock adjustment",
	})
}

func (s *StreamConfig) ensureStream(cfg *nats.StreamConfig) error {
	stream, err := s.js.StreamInfo(cfg.Name)

	if errors.Is(err, nats.ErrStreamNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":   cfg.Name,
			"subjects": cfg.Subjects,
		}).Info("Creating JetStream stream")

		if _, err = s.js.AddStream(cfg); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", cfg.Name, err)
		}

		s.logger.Infof("JetStream stream %s created successfully", cfg.Name)
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get stream info for %s: %w", cfg.Name, err)
	}

	s.logger.WithFields(map[string]any{
		"stream":   stream.Config.Name,
		"messages": stream.State.Msgs,
		"bytes":    stream.State.Bytes,
	}).Info("JetStream stream already exists")

	return nil
}

// EnsureStockConsumer creates or reports the durable consumer for the stock
// worker. Stock deltas are NOT idempotent, so unlike a recalculation worker
// this consumer cannot rely on the next event to repair a dropped one. The
// worker acks only after the adjustment committed; messages that exhaust
// MaxDeliver are logged by the worker before being discarded.
func (s *StreamConfig) EnsureStockConsumer() error {
	consumerInfo, err := s.js.ConsumerInfo(OrderStreamName, StockConsumerName)

	if errors.Is(err, nats.ErrConsumerNotFound) {
		s.logger.WithFields(map[string]any{
			"stream":   OrderStreamName,
			"consumer": StockConsumerName,
		}).Info("Creating JetStream consumer")

		_, err = s.js.AddConsumer(OrderStreamName, &nats.ConsumerConfig{
			Durable:       StockConsumerName,
			AckPolicy:     nats.AckExplicitPolicy, // Require explicit ack
			AckWait:       AckWait,
			MaxDeliver:    MaxDeliveryAttempts,
			FilterSubject: OrderStreamSubjects,
			BackOff:       generateExponentialBackoff(MaxDeliveryAttempts),
			Description:   "Stock worker consumer for processing order events",
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}

		s.logger.Info("JetStream consumer created successfully")
		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get consumer info: %w", err)
	}

	s.logger.WithFields(map[string]any{
		"consumer":    consumerInfo.Name,
		"pending":     consumerInfo.NumPending,
		"redelivered": consumerInfo.NumRedelivered,
		"ack_pending": consumerInfo.NumAckPending,
	}).Info("JetStream consumer already exists")

	return nil
}
