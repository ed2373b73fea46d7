package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlasgeo/placestore/internal/config"
	"github.com/atlasgeo/placestore/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "placestore",
	Short: "Local place store and search engine",
	Long:  "Persists resolved geocoding results (places with polygon boundaries) and answers approximate text queries against them, acting as a provider that serves cached results without any remote API.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openStore builds the configured backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Backend {
	case "relational":
		return openRelational(ctx)
	case "cache", "":
		if cfg.Store.CacheURL != "" {
			kv, err := store.NewRedisKV(ctx, cfg.Store.CacheURL, "", 0)
			if err != nil {
				return nil, err
			}
			return store.NewCacheStore(kv, cfg.Key)
		}
		return store.NewCacheStore(store.NewMemoryKV(), cfg.Key)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Store.Backend)
	}
}

func openRelational(ctx context.Context) (*store.RelationalStore, error) {
	dialect, err := store.ParseDialect(cfg.Store.Dialect)
	if err != nil {
		return nil, err
	}
	return store.OpenRelational(ctx, dialect, cfg.Store.DatabaseURL, cfg.Key)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
