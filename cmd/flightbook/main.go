package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kirinyoku/flightbook/internal/app"
	"github.com/kirinyoku/flightbook/internal/config"
)

// @title flightbook API
// @version 1.0
// @description Seat inventory and booking lifecycle for scheduled flights.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := app.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
