package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/tenreads/statuswatch/client/internal/config"
	"github.com/tenreads/statuswatch/client/internal/metrics"
	"github.com/tenreads/statuswatch/client/internal/poller"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Fetch the status once and print it",
	Long: `Issue a single GET {api_base}/status/ request, render the result to
the configured outputs and exit. Exits 1 when the request did not complete
with HTTP 200.

Example:
  statuswatch once
  statuswatch once -c config.yaml --metrics`,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(onceCmd)

	onceCmd.Flags().StringP("config", "c", "", "path to config file (defaults are used when empty)")
	onceCmd.Flags().Bool("metrics", false, "print client metrics in Prometheus text format afterwards")
}

func runOnce(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	slog.SetDefault(newLogger(os.Stderr, cfg.Client.Level()))

	m := metrics.New()
	display := buildDisplay(cmd, cfg.Client, m)

	u, ok := poller.New(cfg.Client, display).Fetch(cmd.Context())
	if err := display.Render(u); err != nil {
		return err
	}

	if dump, _ := cmd.Flags().GetBool("metrics"); dump {
		if err := m.WriteText(cmd.OutOrStdout()); err != nil {
			return err
		}
	}

	if !ok {
		return errors.New("status fetch failed")
	}
	return nil
}
