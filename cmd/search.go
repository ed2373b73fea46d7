package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/atlasgeo/placestore/internal/provider"
)

var (
	searchPage int
	searchMax  int
)

var searchCmd = &cobra.Command{
	Use:   "search <phrase>",
	Short: "Query the place store with a free-text phrase",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		s, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		p := provider.NewStorage(s)
		places, err := p.GeocodeQuery(ctx, provider.Query{
			Text:       strings.Join(args, " "),
			Page:       searchPage,
			MaxResults: searchMax,
		})
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(places)
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchPage, "page", 0, "result page")
	searchCmd.Flags().IntVar(&searchMax, "max", 0, "max results per page (0 = configured maximum)")
	rootCmd.AddCommand(searchCmd)
}
