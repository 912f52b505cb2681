package main

import (
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/cache"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/redis"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the ranking cache",
}

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Delete every cached ranking",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := pkgredis.NewClient(cmd.Context(), cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		return cache.New(client, cfg.Redis.CacheTTL, nil).Invalidate(cmd.Context())
	},
}

func init() {
	cacheCmd.AddCommand(cacheInvalidateCmd)
}
