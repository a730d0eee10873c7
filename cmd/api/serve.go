package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	redis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/todo-api/internal/auth"
	"github.com/yourusername/todo-api/internal/config"
	"github.com/yourusername/todo-api/internal/logging"
	"github.com/yourusername/todo-api/internal/metrics"
	"github.com/yourusername/todo-api/internal/store"
	"github.com/yourusername/todo-api/internal/todos"
	"github.com/yourusername/todo-api/internal/users"
)

const shutdownTimeout = 10 * time.Second

func runServe(ctx context.Context) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	gin.SetMode(cfg.GinMode)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// 接続はバックグラウンドで開始し、起動はブロックしない
	manager := store.NewManager(store.OptionsFromConfig(cfg), nil, logger, m)
	manager.Start(ctx)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = manager.Close(closeCtx)
	}()

	if cfg.StoreFailurePolicy == config.FailFast {
		if _, err := manager.Wait(ctx); err != nil {
			logging.LogError(logger, "store failure policy is fail-fast, exiting", err)
			return err
		}
	}

	userRepo := users.NewMongoRepository(manager)
	go ensureIndexesWhenConnected(ctx, manager, userRepo, logger)

	rdb, err := newLimiterRedis(cfg)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	service := auth.NewService(userRepo, auth.NewHasher(cfg.BcryptCost), auth.NewTokenIssuer(cfg))
	router := setupRouter(routerDeps{
		cfg:      cfg,
		logger:   logger,
		auth:     auth.NewHandler(cfg, service, auth.NewLimiter(cfg, rdb), logger, m),
		todos:    todos.NewHandler(todos.NewMongoRepository(manager), logger),
		store:    manager,
		gatherer: registry,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	logger.WithFields(logrus.Fields{
		"addr":   srv.Addr,
		"mode":   cfg.GinMode,
		"policy": cfg.StoreFailurePolicy,
	}).Info("starting API server")

	select {
	case err := <-errCh:
		if err != nil {
			return oops.In("server").Code("SERVER_LISTEN_FAILED").With("addr", srv.Addr).Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.In("server").Code("SERVER_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}

// ensureIndexesWhenConnected は接続確立後に一度だけインデックスを作成します。
func ensureIndexesWhenConnected(ctx context.Context, manager *store.Manager, repo *users.MongoRepository, logger logrus.FieldLogger) {
	select {
	case <-manager.Done():
	case <-ctx.Done():
		return
	}
	if manager.State() != store.StateConnected {
		return
	}
	if err := repo.EnsureIndexes(ctx); err != nil {
		logging.LogError(logger, "failed to create indexes", err)
	}
}

// newLimiterRedis は LIMITER_REDIS_URL が設定されている場合のみ Redis クライアントを作成します。
func newLimiterRedis(cfg *config.Config) (*redis.Client, error) {
	if cfg.LimiterRedisURL == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(cfg.LimiterRedisURL)
	if err != nil {
		return nil, oops.In("config").Code("LIMITER_REDIS_URL_INVALID").Wrap(err)
	}
	return redis.NewClient(opt), nil
}
