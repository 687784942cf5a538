package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Aidin1998/riskcore/api"
	"github.com/Aidin1998/riskcore/internal/config"
	"github.com/Aidin1998/riskcore/internal/risk"
	"github.com/Aidin1998/riskcore/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// Engine scoring parameters. A broken file is fatal; the process must
	// not serve with undefined risk thresholds.
	engineCfg, err := risk.LoadConfig(cfg.RiskConfigPath)
	if err != nil {
		zapLogger.Fatal("Failed to load risk engine configuration", zap.Error(err))
	}

	engine, err := risk.NewEngine(engineCfg, zapLogger.Sugar())
	if err != nil {
		zapLogger.Fatal("Failed to create risk engine", zap.Error(err))
	}
	if err := engine.Start(); err != nil {
		zapLogger.Fatal("Failed to start risk engine", zap.Error(err))
	}

	server := api.NewServer(zapLogger, engine)
	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.Router(),
	}

	go func() {
		zapLogger.Info("Starting API server", zap.String("addr", cfg.Addr()))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("API server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		zapLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := engine.Stop(); err != nil {
		zapLogger.Error("Engine shutdown failed", zap.Error(err))
	}

	zapLogger.Info("Shutdown complete")
}
