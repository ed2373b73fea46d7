package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atlasgeo/placestore/internal/model"
)

var importProvidedBy string

var importCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Seed places from a JSON array",
	Long:  "Reads a JSON array of place records (a gazetteer seed or an export from another store) and adds each to the configured backend.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		var places []model.Place
		if err := json.Unmarshal(data, &places); err != nil {
			return eris.Wrapf(err, "parse %s", args[0])
		}

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		batchID := uuid.New().String()
		log := zap.L().With(zap.String("batch_id", batchID), zap.String("file", args[0]))

		imported := 0
		for _, place := range places {
			if place.ProvidedBy == "" {
				place.ProvidedBy = importProvidedBy
			}
			if err := s.Add(ctx, place); err != nil {
				log.Warn("skipping place", zap.String("key", s.CompileKey(place)), zap.Error(err))
				continue
			}
			imported++
		}

		log.Info("import finished", zap.Int("imported", imported), zap.Int("total", len(places)))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importProvidedBy, "provided-by", "import", "provider name recorded on places that lack one")
	rootCmd.AddCommand(importCmd)
}
