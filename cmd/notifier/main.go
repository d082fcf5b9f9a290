package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ariefcatur/go-shop/internal/config"
	kafkax "github.com/ariefcatur/go-shop/internal/kafka"
	"github.com/ariefcatur/go-shop/internal/notify"
	"github.com/ariefcatur/go-shop/internal/redisx"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	mailer, err := notify.NewMailer(cfg)
	if err != nil {
		log.Error("smtp client", "err", err)
		os.Exit(1)
	}

	svc := &notify.Service{
		Sender:      mailer,
		Redis:       rdb,
		From:        cfg.MailFrom,
		AdminEmail:  cfg.AdminEmail,
		ServiceName: cfg.ServiceName + "-notifier",
		Log:         log,
	}

	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.NotifierGroup, notify.Topics, cfg.NotifierWorkers, log)
	log.Info("notifier consumer started",
		"group", cfg.NotifierGroup, "topics", notify.Topics, "workers", cfg.NotifierWorkers)
	if err := cons.Start(ctx, svc.HandleMessage); err != nil {
		log.Error("consumer exit", "err", err)
		os.Exit(1)
	}
	log.Info("notifier stopped")
}
