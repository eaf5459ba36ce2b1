package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-flowershop/internal/catalog"
	"github.com/ariefcatur/go-flowershop/internal/config"
	"github.com/ariefcatur/go-flowershop/internal/finance"
	"github.com/ariefcatur/go-flowershop/internal/httpx"
	kafkax "github.com/ariefcatur/go-flowershop/internal/kafka"
	"github.com/ariefcatur/go-flowershop/internal/orders"
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
	if err := postgres.Migrate(ctx, db); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producers
	placed := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, logger)
	placed.Start()
	statusEvents := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderStatus, 1024, logger)
	statusEvents.Start()

	products := &catalog.Repo{DB: db}
	orderSvc := &orders.Service{
		Store:        &orders.Repo{DB: db},
		Catalog:      products,
		Placed:       placed,
		StatusEvents: statusEvents,
		Cache:        &redisx.StatusCache{RDB: rdb},
		Log:          logger.Named("orders"),
		ServiceName:  cfg.ServiceName,
		ShippingFee:  cfg.ShippingFee,
	}
	financeSvc := &finance.Service{
		Store: &finance.Repo{DB: db},
		Log:   logger.Named("finance"),
	}

	router := httpx.NewRouter(logger.Named("http"))
	(&httpx.ShopHandler{
		Catalog:  products,
		Sessions: &redisx.Sessions{RDB: rdb, TTL: cfg.SessionTTL},
		Orders:   orderSvc,
		Log:      logger,
	}).Register(router)
	(&httpx.AdminHandler{
		Orders:  orderSvc,
		Finance: financeSvc,
		Log:     logger,
	}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		// handlers may still be publishing; queued events are lost with the process
		logger.Error("http shutdown", zap.Error(err))
		return
	}
	placed.Close()
	statusEvents.Close()
	placed.WaitClosed()
	statusEvents.WaitClosed()
}
