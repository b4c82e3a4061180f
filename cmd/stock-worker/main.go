package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"

	"github.com/Pesokrava/shop_backend/internal/config"
	"github.com/Pesokrava/shop_backend/internal/delivery/events"
	"github.com/Pesokrava/shop_backend/internal/pkg/database"
	"github.com/Pesokrava/shop_backend/internal/pkg/logger"
	"github.com/Pesokrava/shop_backend/internal/repository/postgres"
	"github.com/Pesokrava/shop_backend/internal/usecase/category"
	"github.com/Pesokrava/shop_backend/internal/usecase/product"
	"github.com/Pesokrava/shop_backend/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger := logger.New(cfg.Env)

	appLogger.Info("Starting stock worker...")

	appLogger.Info("Connecting to PostgreSQL...")
	db, err := database.WaitForDB(cfg, 10, 2*time.Second)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", err)
	}
	defer db.Close()

	appLogger.Info("Connected to database")

	productRepo := postgres.NewProductRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	categoryService := category.NewService(categoryRepo, appLogger)
	productService := product.NewService(productRepo, categoryService, orderRepo, appLogger)

	stockWorker := worker.NewStockWorker(productService, appLogger)

	appLogger.Info("Connecting to NATS JetStream...")
	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		appLogger.Fatal("Failed to connect to NATS", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		appLogger.Fatal("Failed to create JetStream context", err)
	}

	appLogger.WithFields(map[string]any{
		"url": cfg.NATS.URL,
	}).Info("Connected to NATS JetStream")

	appLogger.Info("Initializing JetStream stream and consumer...")
	streamConfig := events.NewStreamConfig(js, appLogger)

	if err := streamConfig.EnsureStreams(); err != nil {
		appLogger.Fatal("Failed to ensure streams", err)
	}

	if err := streamConfig.EnsureStockConsumer(); err != nil {
		appLogger.Fatal("Failed to ensure consumer", err)
	}

	// Durable pull consumer: an order event is removed from the work queue
	// only after its stock adjustment committed
	sub, err := js.PullSubscribe(events.OrderStreamSubjects, events.StockConsumerName, nats.ManualAck())
	if err != nil {
		appLogger.Fatal("Failed to subscribe to JetStream consumer", err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			appLogger.Error("Failed to unsubscribe from JetStream", err)
		}
	}()

	appLogger.WithFields(map[string]any{
		"stream":   events.OrderStreamName,
		"consumer": events.StockConsumerName,
	}).Info("Subscribed to JetStream consumer")

	go func() {
		for {
			msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
			if err != nil {
				if err == nats.ErrTimeout {
					continue
				}
				appLogger.WithFields(map[string]any{
					"error": err.Error(),
				}).Error("Failed to fetch messages from JetStream", err)
				time.Sleep(5 * time.Second)
				continue
			}

			for _, msg := range msgs {
				if err := stockWorker.HandleEvent(msg.Data); err != nil {
					appLogger.WithFields(map[string]any{
						"error": err.Error(),
					}).Error("Failed to handle event", err)

					// Negative acknowledgment - redelivered with exponential
					// backoff until MaxDeliver, then discarded
					if nackErr := msg.Nak(); nackErr != nil {
						appLogger.WithFields(map[string]any{
							"error": nackErr.Error(),
						}).Error("Failed to NACK message", nackErr)
					}
					continue
				}

				if ackErr := msg.Ack(); ackErr != nil {
					appLogger.WithFields(map[string]any{
						"error": ackErr.Error(),
					}).Error("Failed to ACK message", ackErr)
				}
			}
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	<-sigCh
	appLogger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := stockWorker.Shutdown(shutdownCtx); err != nil {
		appLogger.WithFields(map[string]any{
			"error": err.Error(),
		}).Error("Error during shutdown", err)
	}

	appLogger.Info("Stock worker stopped")
}
