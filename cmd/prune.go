package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete relational records older than the configured TTL",
	Long:  "The relational backend has no implicit expiry; this command runs the explicit sweep. The cache backend expires records on its own and needs no pruning.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openRelational(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := s.PruneExpired(ctx)
		if err != nil {
			return err
		}
		zap.L().Info("prune finished", zap.Int("removed", n))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}
