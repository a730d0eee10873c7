package main

import (
	"context"
	"os"

	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/todo-api/internal/config"
	"github.com/yourusername/todo-api/internal/logging"
	"github.com/yourusername/todo-api/internal/store"
	"github.com/yourusername/todo-api/internal/users"
)

// NewRootCmd はルートコマンドを作成します。サブコマンド省略時は serve と同じ動作です。
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "todo-api",
		Short:        "Todo API server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newEnsureIndexesCmd())
	return cmd
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newEnsureIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-indexes",
		Short: "Connect to the document store and create the unique email index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}
			return ensureIndexes(cmd.Context(), cfg, logger)
		},
	}
}

// bootstrap は設定とロガーを用意します。
func bootstrap() (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, oops.In("config").Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg, logging.New(cfg.LogLevel, cfg.IsRelease(), os.Stdout), nil
}

func ensureIndexes(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	manager := store.NewManager(store.OptionsFromConfig(cfg), nil, logger, nil)
	if _, err := manager.Connect(ctx); err != nil {
		logging.LogError(logger, "document store unavailable", err)
		return err
	}
	defer func() { _ = manager.Close(context.Background()) }()

	if err := users.NewMongoRepository(manager).EnsureIndexes(ctx); err != nil {
		logging.LogError(logger, "failed to create indexes", err)
		return err
	}
	logger.Info("indexes are up to date")
	return nil
}
