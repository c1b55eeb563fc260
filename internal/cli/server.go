package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"animal-quiz-service/internal/app"
	"animal-quiz-service/internal/catalog"
	"animal-quiz-service/internal/config"
	"animal-quiz-service/internal/domain"
	"animal-quiz-service/internal/infra/memory"
	"animal-quiz-service/internal/infra/postgres"
	redisstore "animal-quiz-service/internal/infra/redis"
	transport "animal-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	cat, closeCatalog, err := loadCatalog(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCatalog()

	store, closeStore, err := newProgressStore(cfg, cat.Layout(), logger)
	if err != nil {
		return err
	}
	defer closeStore()

	verifier, err := newVerifier(cfg)
	if err != nil {
		return err
	}

	rules := app.Rules{
		CoinsPerCorrect:  cfg.Game.CoinsPerCorrect,
		HintCosts:        cfg.Game.HintCosts,
		RevealLetterCost: cfg.Game.RevealLetterCost,
		MaxLetterReveals: cfg.Game.MaxLetterReveals,
		ChallengeSize:    cfg.Game.ChallengeSize,
	}
	feed := app.NewFeed()
	leaderboard := app.NewLeaderboardService(store, config.TTLDuration(cfg.Leaderboard.TTL, 5*time.Second))
	feed.OnPublish(leaderboard.Invalidate)
	achievements := app.NewAchievementEvaluator(store, logger)

	handlers := transport.NewHandlers(
		app.NewQuizService(store, cat, achievements, feed, rules, logger),
		app.NewChallengeService(store, cat, achievements, feed, rules, logger),
		leaderboard,
		app.NewProfileService(store, achievements, logger),
		logger,
	)
	router := transport.NewRouter(transport.RouterConfig{
		Handlers:       handlers,
		Leaderboard:    transport.NewLeaderboardWSHandler(feed, leaderboard, verifier, logger),
		Verifier:       verifier,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting animal quiz service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.Log.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadCatalog reads the catalog from Postgres when configured, otherwise from
// catalog.file or the embedded default.
func loadCatalog(ctx context.Context, cfg config.Config, logger *zap.Logger) (*catalog.Catalog, func(), error) {
	var loader catalog.Loader = catalog.NewFileLoader(cfg.Catalog.File)
	closeFn := func() {}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return nil, nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		loader = postgres.NewCatalogLoader(pool)
		closeFn = pool.Close
		logger.Info("catalog source", zap.String("source", "postgres"))
	} else {
		logger.Info("catalog source", zap.String("source", "file"), zap.String("path", cfg.Catalog.File))
	}

	cat, err := catalog.Load(ctx, loader, cfg.Catalog.DefaultLocale, cfg.Catalog.Locales)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	logger.Info("catalog loaded", zap.Int("levels", len(cat.LevelIDs())), zap.Int("animals", len(cat.Flatten(cat.DefaultLocale()))), zap.Strings("locales", cat.Locales()))
	return cat, closeFn, nil
}

func newProgressStore(cfg config.Config, layout domain.Layout, logger *zap.Logger) (app.ProgressStore, func(), error) {
	switch cfg.Store.Backend {
	case "", config.BackendMemory:
		logger.Warn("using in-memory progress store; data is lost on restart")
		return memory.NewStore(layout), func() {}, nil
	case config.BackendRedis:
		if cfg.Redis.Addr == "" {
			return nil, nil, fmt.Errorf("redis backend selected but redis.addr is empty")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		logger.Info("using redis progress store", zap.String("addr", cfg.Redis.Addr))
		return redisstore.NewStore(client, layout, cfg.Store.MaxRetries, logger), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func newVerifier(cfg config.Config) (transport.IdentityVerifier, error) {
	switch cfg.Auth.Mode {
	case "", config.AuthModeMock:
		return transport.MockVerifier{}, nil
	case config.AuthModeJWT:
		v, err := transport.NewJWTVerifier(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.Audience)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Auth.Mode)
	}
}
