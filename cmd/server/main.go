package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"

	"github.com/tazhibayda/dailyjobs/docs"
	"github.com/tazhibayda/dailyjobs/internal/catalog"
	"github.com/tazhibayda/dailyjobs/internal/config"
	api "github.com/tazhibayda/dailyjobs/internal/http"
	"github.com/tazhibayda/dailyjobs/internal/identity"
	"github.com/tazhibayda/dailyjobs/internal/log"
	"github.com/tazhibayda/dailyjobs/internal/oauth"
	"github.com/tazhibayda/dailyjobs/internal/page"
	"github.com/tazhibayda/dailyjobs/internal/queue"
	"github.com/tazhibayda/dailyjobs/internal/repo"
	"github.com/tazhibayda/dailyjobs/internal/security"
)

// backend is what both *repo.Store and *repo.Memory provide.
type backend interface {
	identity.Accounts
	page.Records
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// @title DailyJobs API
// @version 0.1.0
// @description Sign-up, email verification and company preferences for DailyJobs alerts.
// @schemes http https
// @BasePath /
func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.Production)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Production {
		tracer.Start(tracer.WithService("dailyjobs"))
		defer tracer.Stop()
	}

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Fatal("catalog", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store backend
	if cfg.MongoURI == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
		store = repo.NewMemory()
	} else {
		s, err := repo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			logger.Fatal("mongo connect", zap.Error(err))
		}
		if err := s.EnsureIndexes(ctx); err != nil {
			logger.Fatal("mongo indexes", zap.Error(err))
		}
		store = s
	}
	defer store.Close(context.Background())

	var km *security.KeyManager
	if cfg.ActiveKeyPath != "" {
		km, err = security.NewKeyManager(cfg.ActiveKid, cfg.ActiveKeyPath, cfg.NextKid, cfg.NextKeyPath)
	} else {
		logger.Warn("no signing key configured; generating an ephemeral one")
		km, err = security.NewEphemeralKeyManager(cfg.ActiveKid)
	}
	if err != nil {
		logger.Fatal("signing keys", zap.Error(err))
	}

	var pub queue.Publisher = queue.NewNoop()
	if cfg.RabbitURL != "" {
		if pub, err = queue.NewRabbit(cfg.RabbitURL, cfg.RabbitExchange); err != nil {
			logger.Fatal("rabbit connect", zap.Error(err))
		}
	} else {
		logger.Warn("RABBIT_URL not set; verification mails are not delivered")
	}
	defer pub.Close()

	idp := identity.NewLocal(store, km, pub, cfg.RabbitExchange)
	idp.PublicURL = cfg.PublicURL
	idp.SessionTTL = cfg.SessionTTL
	idp.Google = oauth.NewGoogle(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI, cfg.OAuthStateSecret)
	idp.AllowedHosts = allowedHosts(cfg.ContinueURL, cfg.PublicURL)

	health := []api.Pinger{store}
	if cfg.RedisAddr != "" {
		rds := repo.NewRedis(cfg.RedisAddr)
		defer rds.Close()
		if err := rds.Ping(ctx); err != nil {
			logger.Fatal("redis connect", zap.Error(err))
		}
		idp.Throttle = &identity.RedisThrottle{C: rds.C, Limit: int64(cfg.SendLimitPerHour), Window: time.Hour}
		health = append(health, rds)
	}

	pages := page.NewRegistry(page.Deps{
		Provider:    idp,
		Records:     store,
		Catalog:     cat,
		ContinueURL: cfg.ContinueURL,
		Cooldown:    cfg.VerifyCooldown,
		MaxAttempts: cfg.VerifyMaxAttempts,
		ResetWindow: cfg.VerifyResetWindow,
	}, cfg.PageIdleTTL)
	if err := pages.Start("@every 1m"); err != nil {
		logger.Fatal("page sweep", zap.Error(err))
	}
	defer pages.Stop()

	docs.SwaggerInfo.BasePath = "/"
	h := api.NewHandler(pages, idp, km, health...)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: api.NewRouter(h), ReadHeaderTimeout: 10 * time.Second}

	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.ListenAndServe() }()
	logger.Info("dailyjobs listening", zap.String("port", cfg.Port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	case err := <-srvErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func allowedHosts(urls ...string) []string {
	var out []string
	for _, raw := range urls {
		if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
			out = append(out, u.Hostname())
		}
	}
	return out
}
