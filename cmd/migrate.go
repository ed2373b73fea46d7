package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the relational schema for the configured dialect",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openRelational(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		if err := s.Migrate(ctx); err != nil {
			return err
		}
		zap.L().Info("schema created",
			zap.String("dialect", cfg.Store.Dialect),
			zap.String("database", cfg.Store.DatabaseURL),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
