package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-flowershop/internal/config"
	kafkax "github.com/ariefcatur/go-flowershop/internal/kafka"
	"github.com/ariefcatur/go-flowershop/internal/orders"
	"github.com/ariefcatur/go-flowershop/internal/payments"
	"github.com/ariefcatur/go-flowershop/internal/postgres"
	"github.com/ariefcatur/go-flowershop/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger, err := cfg.Logger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresPool)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	statusEvents := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatus, 1024, logger)
	statusEvents.Start()

	svc := &payments.Service{
		Orders: &orders.Service{
			Store:        &orders.Repo{DB: db},
			StatusEvents: statusEvents,
			Cache:        &redisx.StatusCache{RDB: rdb},
			Log:          logger.Named("orders"),
			ServiceName:  cfg.ServiceName + "-payments",
		},
		Dedup: &redisx.Dedup{RDB: rdb, Service: "payments"},
		Log:   logger.Named("payments"),
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.PaymentsGroup, orders.TopicPaymentConfirmed, cfg.PaymentsWorkers, logger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Info("payments consumer started",
			zap.String("group", cfg.PaymentsGroup),
			zap.String("topic", orders.TopicPaymentConfirmed),
			zap.Int("workers", cfg.PaymentsWorkers))
		if err := cons.Start(ctx, svc.HandlePaymentConfirmed); err != nil {
			logger.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	logger.Info("shutting down consumer")
	cancel()
	<-done
	statusEvents.Close()
	statusEvents.WaitClosed()
}
