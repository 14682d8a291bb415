package main

import (
	"io"
	"log"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/catalog-service/internal/adapter/natsstan"
	"github.com/example/catalog-service/internal/config"
	"github.com/example/catalog-service/internal/logger"
	"github.com/example/catalog-service/internal/usecase"
)

// Reads one upsert command from stdin and publishes it to STAN_SUBJECT.
func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	zl, err := logger.New(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level, ServiceName: "catalog-publisher"})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		zl.Fatal("read stdin", zap.Error(err))
	}
	cmd, err := usecase.ParseUpsertCommand(raw)
	if err != nil {
		zl.Fatal("invalid command", zap.Error(err))
	}

	clientID := os.Getenv("STAN_PUB_ID")
	if clientID == "" {
		clientID = "catalog-publisher-" + uuid.NewString()
	}
	pub, err := natsstan.NewPublisher(cfg.NATS.ClusterID, clientID, cfg.NATS.URL, cfg.NATS.Subject)
	if err != nil {
		zl.Fatal("stan connect", zap.Error(err))
	}
	defer func() { _ = pub.Close() }()

	if err := pub.Publish(raw); err != nil {
		zl.Error("publish", zap.Error(err))
		return
	}
	zl.Info("published", zap.String("id", cmd.ID), zap.Int("bytes", len(raw)), zap.String("subject", cfg.NATS.Subject))
}
