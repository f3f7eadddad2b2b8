package main

import (
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newCheckCmd(rt *runtime) *cobra.Command {
	var postIDs []string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one intake pass over the watched posts and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, rt.cfg, rt.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(postIDs) == 0 {
				postIDs = rt.cfg.WatchedPosts
			}
			results := a.pipeline.CheckAll(ctx, postIDs)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}
	cmd.Flags().StringSliceVar(&postIDs, "post", nil, "post id to check instead of the watched posts (repeatable)")
	return cmd
}
