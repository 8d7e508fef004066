package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/congo-pay/wallet_api/internal/config"
	"github.com/congo-pay/wallet_api/internal/infra"
	"github.com/congo-pay/wallet_api/internal/logging"
	"github.com/congo-pay/wallet_api/internal/server"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()
	root := &cobra.Command{
		Use:           "wallet-api",
		Short:         "Wallet balance service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve, newMigrateCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var autoMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", true, "create the ledger schema on startup")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ledger schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := logging.NewWithFormat(os.Stdout, cfg.LogLevel, cfg.LogFormat)

			ctx := cmd.Context()
			store, closeStore, err := infra.NewStore(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer closeStore()

			if err := infra.Migrate(ctx, store); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("ledger schema ready", "driver", cfg.StoreDriver)
			return nil
		},
	}
}

func runServe(autoMigrate bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.NewWithFormat(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	store, closeStore, err := infra.NewStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open ledger store", "error", err)
		return err
	}
	defer closeStore()

	if autoMigrate {
		if err := infra.Migrate(ctx, store); err != nil {
			logger.Error("migrate ledger store", "error", err)
			return err
		}
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			return err
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set; balance cache and rate limiting are process local")
	}

	srv, err := server.New(cfg, store, cache, logger)
	if err != nil {
		logger.Error("build server", "error", err)
		return err
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
		}
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	logger.Info("server exited cleanly")
	return nil
}
