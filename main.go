package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/community-assistant/server/internal/app"
	"github.com/community-assistant/server/internal/assistant/llm"
	"github.com/community-assistant/server/internal/assistant/observers"
	"github.com/community-assistant/server/internal/assistant/router"
	"github.com/community-assistant/server/internal/config"
	"github.com/community-assistant/server/internal/metrics"
	"github.com/community-assistant/server/internal/repo"
	"github.com/community-assistant/server/internal/server"
	logx "github.com/community-assistant/server/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(".env")
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to load config")
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Env()})
	if cfg.Env().IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	sessionTTL, err := cfg.SessionTTL()
	if err != nil {
		logx.Fatal().Err(err).Msg("invalid config")
	}
	requestTimeout, err := cfg.RequestTimeout()
	if err != nil {
		logx.Fatal().Err(err).Msg("invalid config")
	}

	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to initialise Redis client")
	}
	defer rdb.Close()
	logx.Info().Msg("connected to redis")

	m := metrics.New()
	observers.Register(m)

	client, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to create completion client")
	}

	assistants := app.Build(ctx, app.Deps{Config: cfg, Client: client, Redis: rdb, Metrics: m})
	defer func() {
		if err := assistants.Close(); err != nil {
			logx.Warn().Err(err).Msg("failed to close assistant resources")
		}
	}()

	rt, err := router.New(assistants.ByProfile, m)
	if err != nil {
		logx.Fatal().Err(err).Msg("failed to build router")
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.New(server.Config{
			Router:         rt,
			Sessions:       repo.NewRedisSessionRepository(rdb, sessionTTL),
			Conversations:  repo.NewRedisConversationRepository(rdb, sessionTTL),
			Metrics:        m.Handler(),
			RequestTimeout: requestTimeout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logx.Info().Str("addr", srv.Addr).Int("profiles", len(rt.Profiles())).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logx.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logx.Error().Err(err).Msg("graceful shutdown failed")
	}
}
