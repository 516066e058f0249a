package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/modelrank/pkg/logger"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topsis",
		Short: "TOPSIS ranking tools",
		Long: `topsis ranks alternatives in a CSV decision matrix with TOPSIS and
load-tests a running model selector service.`,
		Version:      version,
		SilenceUsage: true,
	}

	logLevel := cmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := logger.InitWithOptions(logger.WithOutput(cmd.ErrOrStderr())); err != nil {
			return err
		}
		return logger.SetLevelString(*logLevel)
	}

	cmd.AddCommand(newRankCommand())
	cmd.AddCommand(newBenchCommand())

	return cmd
}
