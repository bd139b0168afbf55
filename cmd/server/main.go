package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/app"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/config"
	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	serverLog := logger.Component("server")
	serverLog.Info().Str("port", cfg.Server.Port).Str("mode", cfg.Server.Mode).Msg("Starting PCP backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{WithRemote: true, WithDrive: true})
	if err != nil {
		serverLog.Fatal().Err(err).Msg("Failed to start application")
	}
	defer a.Close()

	if err := a.Serve(ctx); err != nil {
		serverLog.Fatal().Err(err).Msg("Server failed")
	}
}
