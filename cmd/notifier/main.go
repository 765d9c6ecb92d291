package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/tazhibayda/dailyjobs/internal/config"
	"github.com/tazhibayda/dailyjobs/internal/log"
	"github.com/tazhibayda/dailyjobs/internal/mail"
	"github.com/tazhibayda/dailyjobs/internal/queue"
)

// notifier mails verification and password-reset links published by the server,
// and the job digests published by cmd/digest.
func main() {
	cfg := config.Load()
	logger, err := log.Init(cfg.Production)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.RabbitURL == "" {
		logger.Fatal("RABBIT_URL is required")
	}
	cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, cfg.NotifyQueue,
		queue.KeyVerificationRequested, queue.KeyPasswordReset, queue.KeyDigestReady)
	if err != nil {
		logger.Fatal("rabbit consumer init failed", zap.Error(err))
	}
	defer cons.Close()

	d := &mail.Dispatcher{Sender: mail.LogSender{}}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("notifier up",
		zap.String("exchange", cfg.RabbitExchange),
		zap.String("queue", cfg.NotifyQueue),
		zap.Int("workers", cfg.NotifyWorkers))

	if err := cons.Consume(ctx, cfg.NotifyWorkers, d.Handle); err != nil {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}
