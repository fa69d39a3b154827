package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	config "crop-yield-api/configs"
	"crop-yield-api/pkg/logging"
	"crop-yield-api/pkg/server"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// 設定の読み込み
	cfg := config.LoadConfig()

	logger, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		Production: cfg.IsProduction(),
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer logger.Sync()

	ui, err := config.LoadUIConfig(cfg.UIConfigPath)
	if err != nil {
		logger.Fatal("failed to load UI config", zap.String("path", cfg.UIConfigPath), zap.Error(err))
	}

	srv, err := server.New(cfg, ui, logger)
	if err != nil {
		logger.Fatal("failed to initialize server", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting Crop Yield Predictor",
		zap.String("addr", cfg.ListenAddr()),
		zap.String("environment", cfg.Environment),
		zap.String("model_path", cfg.ModelPath),
	)
	if err := srv.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
