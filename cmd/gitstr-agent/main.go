package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"gitstr/internal/api"
	"gitstr/internal/app"
	"gitstr/internal/platform/config"
	"gitstr/internal/platform/logger"
	phttp "gitstr/internal/platform/net/http"
	"gitstr/internal/platform/net/middleware"
)

func main() {
	logger.Init(logger.FromEnv())
	l := logger.Get()

	root := config.New()
	agentCfg := root.Prefix("AGENT_")

	a, err := app.New(root)
	if err != nil {
		l.Panic().Err(err).Msg("agent bootstrap failed")
	}
	defer func() {
		if err := a.Close(); err != nil {
			l.Error().Err(err).Msg("failed to close app")
		}
	}()

	// extension pages talk to the agent cross-origin, so CORS stays open;
	// loopback binding is the actual access control
	srv := phttp.NewServer(agentCfg, func(m *chi.Mux) {
		m.Use(middleware.RequestID())
		m.Use(middleware.RecoverJSON)
		m.Use(middleware.AccessLog)
		m.Use(middleware.CORS(middleware.CORSOptions{AllowedOrigins: []string{"*"}}))
		m.Use(middleware.Heartbeat("/healthz"))
	})

	api.Register(srv.Router(), a)

	// run until SIGINT/SIGTERM, then drain in-flight requests
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(context.Background()) }()

	select {
	case err := <-errCh:
		if err != nil {
			l.Panic().Err(err).Msg("http server stopped")
		}
	case sig := <-sigCh:
		l.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			l.Error().Err(err).Msg("graceful shutdown failed")
		}
	}
}
