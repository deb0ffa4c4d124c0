package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go-shortlink/internal/app"
	"go-shortlink/internal/config"

	"github.com/joho/godotenv"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"
)

// getEnv retrieves an environment variable or returns the default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	cfg, err := config.Load(getEnv("CONFIG_PATH", ""))
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := app.NewLogger(cfg.Env)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunIngestor(ctx, cfg, logger); err != nil {
		logger.Fatal("ingestor failed", zap.Error(err))
	}

	logger.Info("ingestor stopped")
}
