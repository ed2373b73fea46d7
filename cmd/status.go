package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show store introspection data",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		levels, err := s.AdminLevels(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("backend:        %s\n", cfg.Store.Backend)
		fmt.Printf("key prefix:     %s\n", s.Config().JoinedPrefix())
		fmt.Printf("record ttl:     %s\n", s.Config().TTL)
		fmt.Printf("admin levels:   %v\n", levels)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
