package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-shop/internal/auth"
	"github.com/ariefcatur/go-shop/internal/config"
	"github.com/ariefcatur/go-shop/internal/httpx"
	kafkax "github.com/ariefcatur/go-shop/internal/kafka"
	"github.com/ariefcatur/go-shop/internal/ledger"
	"github.com/ariefcatur/go-shop/internal/orders"
	"github.com/ariefcatur/go-shop/internal/postgres"
	"github.com/ariefcatur/go-shop/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Store
	var store orders.Store
	switch cfg.Store {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		store = orders.NewMemoryStore()
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Error("db connect", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(ctx, db); err != nil {
			log.Error("db migrate", "err", err)
			os.Exit(1)
		}
		store = &orders.Repo{DB: db}
	default:
		log.Error("unknown STORE", "store", cfg.Store)
		os.Exit(1)
	}

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer, one for all event topics
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)

	svc := ledger.NewService(store, prod, cfg.ServiceName, log)
	router := httpx.NewRouter(&httpx.Handler{
		Ledger:   svc,
		Store:    store,
		Sessions: &redisx.Sessions{RDB: rdb, TTL: cfg.SessionTTL},
		Redis:    rdb,
		Tokens:   auth.NewTokens(cfg.JWTSecret, 0),
		Cookies:  httpx.NewCookieStore(cfg.SessionSecret, cfg.SessionTTL),
		Log:      log,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "store", cfg.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close() // flush queued events
}
