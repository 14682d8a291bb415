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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/catalog-service/internal/adapter/natsstan"
	"github.com/example/catalog-service/internal/config"
	"github.com/example/catalog-service/internal/logger"
	"github.com/example/catalog-service/internal/metrics"
	"github.com/example/catalog-service/internal/usecase"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zl, err := logger.New(logger.Config{
		Env:         cfg.Log.Env,
		Level:       cfg.Log.Level,
		ServiceName: "catalog-service",
		Version:     version,
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("service stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	devices, closeRepo, err := openRepository(ctx, cfg, zl, time.Now())
	if err != nil {
		return err
	}
	defer closeRepo()
	zl.Info("storage ready", zap.String("driver", cfg.Storage.Driver), zap.Bool("cache", cfg.Cache.Enabled))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	api := newServer(devices, zl, m)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zl.Info("http listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		zl.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.NATS.Enabled {
		sub := &natsstan.Subscriber{
			ClusterID:  cfg.NATS.ClusterID,
			ClientID:   cfg.NATS.ClientID,
			URL:        cfg.NATS.URL,
			Subject:    cfg.NATS.Subject,
			Durable:    cfg.NATS.Durable,
			QueueGroup: cfg.NATS.QueueGroup,
			Log:        zl.Named("stan"),
		}
		ingest := usecase.ProcessIncomingDevice{Upsert: api.UC.Upsert}
		g.Go(func() error {
			return sub.Subscribe(gctx, ingest.Execute)
		})
	}
	return g.Wait()
}
