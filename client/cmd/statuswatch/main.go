// Package main is the entry point for the statuswatch CLI.
//
// Usage:
//
//	statuswatch run -c config.yaml      # Keep the status display updated
//	statuswatch once                    # Fetch the status once and print it
//	statuswatch validate -c config.yaml # Validate configuration
//	statuswatch version                 # Show version info
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Version information, set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "statuswatch",
	Short: "Keep a status display in sync with a monitoring server",
	Long: `statuswatch fetches the status fragment published by a monitoring
server and renders it, preferring a WebSocket push connection and falling
back to polling every few seconds.

Without a config file it talks to the monitor on localhost:9999:
  GET  http://localhost:9999/status/
  WS   ws://localhost:9999/socket-status`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "statuswatch %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the JSON logger. Logs go to w (stderr in production) so
// stdout stays free for rendered status lines.
func newLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
