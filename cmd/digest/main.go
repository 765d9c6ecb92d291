package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/dailyjobs/internal/catalog"
	"github.com/tazhibayda/dailyjobs/internal/config"
	"github.com/tazhibayda/dailyjobs/internal/jobs"
	"github.com/tazhibayda/dailyjobs/internal/log"
	"github.com/tazhibayda/dailyjobs/internal/metrics"
	"github.com/tazhibayda/dailyjobs/internal/queue"
	"github.com/tazhibayda/dailyjobs/internal/repo"
)

// digest fetches the catalog companies' job boards on DIGEST_SCHEDULE and
// publishes one digest.ready event per subscriber for cmd/notifier to mail.
func main() {
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	cfg := config.Load()
	logger, err := log.Init(cfg.Production)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Production {
		tracer.Start(tracer.WithService("dailyjobs-digest"))
		defer tracer.Stop()
	}
	if cfg.RabbitURL == "" {
		logger.Fatal("RABBIT_URL is required")
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("catalog", zap.Error(err))
	}

	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := repo.NewStore(connectCtx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	if err := store.EnsureJobIndexes(connectCtx); err != nil {
		logger.Fatal("mongo indexes", zap.Error(err))
	}
	cancel()
	defer store.Close(context.Background())

	pub, err := queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange)
	if err != nil {
		logger.Fatal("rabbit connect", zap.Error(err))
	}
	defer pub.Close()

	runner := &jobs.Runner{
		Catalog:  cat,
		Boards:   jobs.NewBoards(cfg.BoardTimeout),
		Store:    store,
		Pub:      pub,
		Exchange: cfg.RabbitExchange,
		Workers:  cfg.DigestWorkers,
		MaxAge:   cfg.DigestMaxAge,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if _, err := runner.Run(ctx); err != nil {
			logger.Fatal("digest cycle", zap.Error(err))
		}
		return
	}

	metrics.MustRegister()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: cfg.DigestMetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener", zap.Error(err))
		}
	}()

	c := cron.New()
	if _, err := c.AddFunc(cfg.DigestSchedule, func() {
		if _, err := runner.Run(ctx); err != nil {
			logger.Error("digest cycle", zap.Error(err))
		}
	}); err != nil {
		logger.Fatal("schedule", zap.Error(err), zap.String("spec", cfg.DigestSchedule))
	}
	c.Start()
	logger.Info("digest scheduler up",
		zap.String("schedule", cfg.DigestSchedule),
		zap.Int("companies", len(cat.Companies)))

	<-ctx.Done()
	logger.Info("shutting down")
	<-c.Stop().Done()
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	_ = srv.Shutdown(shutdownCtx)
}
