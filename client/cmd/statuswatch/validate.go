package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tenreads/statuswatch/client/internal/config"
	"github.com/tenreads/statuswatch/client/internal/transport"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a statuswatch configuration file without connecting to the
monitor.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  statuswatch validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	c := cfg.Client

	mode := transport.ModePolling
	if transport.Detect(c).Push {
		mode = transport.ModePushing
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Status URL:    %s\n", c.StatusURL())
	fmt.Fprintf(out, "  Socket URL:    %s\n", orNone(c.SocketURL()))
	fmt.Fprintf(out, "  Transport:     %s\n", mode)
	fmt.Fprintf(out, "  Poll interval: %s\n", c.Poll.Interval)
	fmt.Fprintf(out, "  Webhooks:      %d\n", len(c.Notify.Webhooks))
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
