package main

import (
	"github.com/spf13/cobra"

	"neutron-agent/internal/config"
	"neutron-agent/internal/logging"
)

const serviceName = "neutron-agent"

// runtime is shared by every subcommand once PersistentPreRunE has run.
type runtime struct {
	cfg    config.Config
	logger logging.Logger
}

func newRootCmd() *cobra.Command {
	rt := &runtime{}
	cmd := &cobra.Command{
		Use:          serviceName,
		Short:        "Moltbook comment responder backed by Neutron memory",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env may set LOG_LEVEL, so the service logger is built after it loads.
			config.LoadEnv(logging.NewLogger())
			rt.logger = logging.NewLoggerWithService(serviceName)

			rt.cfg = config.LoadConfig()
			return rt.cfg.Validate()
		},
	}

	cmd.AddCommand(newServeCmd(rt))
	cmd.AddCommand(newCheckCmd(rt))
	cmd.AddCommand(newSearchCmd(rt))
	return cmd
}
