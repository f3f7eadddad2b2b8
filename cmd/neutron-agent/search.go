package main

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"neutron-agent/internal/clients"
	"neutron-agent/internal/neutron"
)

func newSearchCmd(rt *runtime) *cobra.Command {
	var (
		limit     int
		threshold float64
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Semantic search over stored thread snapshots",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rt.cfg
			client := neutron.NewClient(neutron.Config{
				BaseURL:        cfg.NeutronBaseURL,
				APIKey:         cfg.NeutronAPIKey,
				AppID:          cfg.NeutronAppID,
				ExternalUserID: cfg.NeutronExternalUserID,
				HTTPClient:     clients.NewHTTPClient(cfg.HTTPTimeout),
				Logger:         rt.logger,
			})

			results, err := client.QuerySeeds(cmd.Context(), neutron.SeedQuery{
				Query:     strings.Join(args, " "),
				Limit:     limit,
				Threshold: threshold,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of results")
	cmd.Flags().Float64Var(&threshold, "threshold", 0.5, "minimum similarity")
	return cmd
}
