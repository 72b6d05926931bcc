package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edutok-api/internal/application/notification"
	"github.com/edutok-api/internal/application/push"
	"github.com/edutok-api/internal/application/retention"
	"github.com/edutok-api/internal/config"
	"github.com/edutok-api/internal/infrastructure/dynamo"
	jwtinfra "github.com/edutok-api/internal/infrastructure/jwt"
	s3infra "github.com/edutok-api/internal/infrastructure/s3"
	"github.com/edutok-api/internal/infrastructure/sns"
	"github.com/edutok-api/internal/infrastructure/ws"
	"github.com/edutok-api/internal/pathstore"
	transporthttp "github.com/edutok-api/internal/transport/http"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
)

// treeStore is what the services need from a backend.
type treeStore interface {
	pathstore.Store
	pathstore.Watcher
}

type polledStore struct {
	*dynamo.Store
	*pathstore.Poller
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, reading from environment")
	}

	cfg := config.Load()
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	store, err := openStore(ctx, cfg, clock)
	if err != nil {
		slog.Error("store unavailable", "backend", cfg.StoreBackend, "err", err)
		os.Exit(1)
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		slog.Error("JWT provider not available", "err", err)
		os.Exit(1)
	}

	// SNS push (optional; without it only in-app toasts are delivered).
	var snsAPI sns.API
	if cfg.SNSPlatformApplicationARN != "" {
		if client, err := sns.NewClient(ctx, cfg); err == nil {
			snsAPI = client
		} else {
			slog.Warn("SNS client not available", "err", err)
		}
	}

	hub := ws.NewHub()
	pushMgr := push.NewManager(store, sns.NewChannel(snsAPI), cfg.SNSPlatformApplicationARN, clock)
	var notifier push.Notifier
	if snsAPI != nil {
		notifier = sns.NewNotifier(snsAPI)
	}
	dispatcher := push.NewDispatcher(pushMgr, hub, notifier)

	writer := notification.NewWriter(store, clock)
	writer.OnCreated(dispatcher.Deliver)
	notifSvc := notification.NewService(writer, notification.NewReader(store, store))

	cleaner := retention.NewCleaner(store, clock, cfg.RetentionWindow)
	if cfg.ReportBucket != "" {
		if client, err := s3infra.NewClient(ctx, cfg); err == nil {
			cleaner.WithReporter(s3infra.NewReportStore(client, cfg.ReportBucket))
		} else {
			slog.Warn("S3 client not available, cleanup reports disabled", "err", err)
		}
	}
	scheduler := retention.NewScheduler(cleaner, clock, cfg.CleanupInterval)
	if err := scheduler.Start(ctx); err != nil {
		slog.Error("cleanup scheduler", "err", err)
		os.Exit(1)
	}

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Notifications: notifSvc,
		Push:          pushMgr,
		Cleaner:       cleaner,
		Hub:           hub,
		Store:         store,
		Verifier:      jwtProvider,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv, "store", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "err", err)
	}
	scheduler.Stop()
	slog.Info("server stopped")
}

func setupLogger(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		opts.Level = slog.LevelDebug
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func openStore(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (treeStore, error) {
	switch cfg.StoreBackend {
	case "memory":
		slog.Warn("using in-memory store; data is lost on restart")
		return pathstore.NewMemory(), nil
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		ds := dynamo.NewStore(client, cfg.DynamoTables.Nodes, clock)
		return polledStore{Store: ds, Poller: pathstore.NewPoller(ds, clock, cfg.WatchPollInterval)}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
}
