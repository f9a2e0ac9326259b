package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/softskillslab/quiz-engine/internal/archive"
	"github.com/softskillslab/quiz-engine/internal/config"
	"github.com/softskillslab/quiz-engine/internal/identity"
	"github.com/softskillslab/quiz-engine/internal/logging"
	"github.com/softskillslab/quiz-engine/internal/plan"
	"github.com/softskillslab/quiz-engine/internal/progress"
	"github.com/softskillslab/quiz-engine/internal/question"
	"github.com/softskillslab/quiz-engine/internal/scoring"
	"github.com/softskillslab/quiz-engine/internal/server"
	"github.com/softskillslab/quiz-engine/internal/session"
	ws "github.com/softskillslab/quiz-engine/pkg/http/ws"
)

// Application aggregates shared infrastructure (cache, archive, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool    *pgxpool.Pool // nil when the results archive is not configured
	redis   *redis.Client
	http    *http.Server
	manager *server.Manager
}

// New bootstraps config, logger, Redis, the optional Postgres archive and
// the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	var pool *pgxpool.Pool
	var archiver *archive.Archiver
	if cfg.Postgres.Enabled() {
		var err error
		pool, err = pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		archiver = archive.NewArchiver(pool, logger)
		logger.Info().Msg("results archive enabled")
	} else {
		logger.Warn().Msg("PG_USER/PG_DATABASE not set; finished sessions will not be archived")
	}

	resolver := identity.NewResolver(
		identity.NewRedisStore(redisClient),
		[]byte(cfg.Study.TokenSecret),
		cfg.Study.Issuer,
		logger,
	)

	loader := question.NewLoader(cfg.Questions.BaseURL, cfg.Questions.APIKey, &http.Client{Timeout: cfg.Questions.HTTPTimeout})

	scorerHTTP := &http.Client{Timeout: cfg.Scorer.HTTPTimeout}
	gateway := scoring.NewGateway(scoring.NewClient(cfg.Scorer.BaseURL, cfg.Scorer.APIKey, scorerHTTP), logger)
	plans := plan.NewService(plan.NewClient(cfg.Scorer.BaseURL, cfg.Scorer.APIKey, scorerHTTP), logger)

	store := progress.NewRedisStore(redisClient, cfg.Runtime.SnapshotTTL, logger)
	hub := ws.NewHub(logger)

	manager := server.NewManager(loader, store, gateway, session.Config{
		SecondsPerQuestion: int(cfg.Runtime.SecondsPerQuestion.Seconds()),
		OpenAnswerMinLen:   cfg.Runtime.OpenAnswerMinLen,
	}, hub, logger)

	sessions := server.NewSessionHandler(manager, resolver, store, plans, archiver, hub, logger)
	apiServer := server.NewHTTPServer(cfg, logger, sessions)

	return &Application{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		redis:   redisClient,
		http:    apiServer,
		manager: manager,
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	// in-flight snapshots are already persisted; stopping timers is enough
	a.manager.CloseAll()

	if a.pool != nil {
		a.pool.Close()
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
