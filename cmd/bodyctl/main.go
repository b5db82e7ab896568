// Command bodyctl answers estimate, chart and score queries over a JSON
// samples file without running the server.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/okian/bodymetrics/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:          "bodyctl",
		Short:        "Estimate and score body metrics from a samples file",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
				return err
			}
			return logger.SetLevelString(level)
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	cmd.AddCommand(estimateCmd())
	cmd.AddCommand(chartCmd())
	cmd.AddCommand(scoreCmd())
	return cmd
}
