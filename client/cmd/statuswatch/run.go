package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tenreads/statuswatch/client/internal/config"
	"github.com/tenreads/statuswatch/client/internal/metrics"
	"github.com/tenreads/statuswatch/client/internal/notify"
	"github.com/tenreads/statuswatch/client/internal/render"
	"github.com/tenreads/statuswatch/client/internal/transport"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Keep the status display updated",
	Long: `Select a transport once (push when available, polling otherwise) and
render every status update until interrupted.

Example:
  statuswatch run -c config.yaml
  statuswatch run --force-poll`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file (defaults are used when empty)")
	runCmd.Flags().Bool("force-poll", false, "poll even when push is available")
}

func runRun(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if force, _ := cmd.Flags().GetBool("force-poll"); force {
		cfg.Client.ForcePoll = true
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Client.Level())
	slog.SetDefault(newLogger(os.Stderr, level))

	slog.Info("statuswatch starting",
		"version", version,
		"config", configPath,
		"api_base", cfg.Client.APIBase,
		"ws_base", cfg.Client.WSBase,
	)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	notifier := notify.New(cfg.Client.Notify)
	display := buildDisplay(cmd, cfg.Client, m, render.WithOnChange(notifier.Observe))

	go display.Watch(ctx, cfg.Client.Render.StaleAfter)

	if cfg.Client.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Client.MetricsAddr); err != nil {
				slog.Error("metrics server stopped", "err", err)
			}
		}()
	}

	// Hot-reload covers logging and notifications; transport settings need
	// a restart.
	if configPath != "" {
		go func() {
			err := config.Watch(ctx, configPath, func(updated *config.Config) {
				level.Set(updated.Client.Level())
				notifier.Update(updated.Client.Notify)
				slog.Info("config hot-reloaded",
					"log_level", updated.Client.LogLevel,
					"webhooks", len(updated.Client.Notify.Webhooks),
				)
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
		}()
	}

	err = transport.New(cfg.Client, display, m).Run(ctx)
	notifier.Wait()
	if err != nil {
		return fmt.Errorf("status client stopped: %w", err)
	}

	slog.Info("statuswatch shutting down")
	return nil
}

// buildDisplay wires the configured outputs into a Display.
func buildDisplay(cmd *cobra.Command, cfg config.ClientConfig, m *metrics.Metrics, opts ...render.Option) *render.Display {
	var outs []render.Output
	if cfg.Render.Stdout {
		outs = append(outs, render.NewWriter(cmd.OutOrStdout()))
	}
	if cfg.Render.HTMLPath != "" {
		outs = append(outs, &render.HTMLFile{Path: cfg.Render.HTMLPath})
	}
	opts = append(opts, render.WithOutputs(outs...), render.WithMetrics(m))
	return render.NewDisplay(cfg.Render.Classify, opts...)
}

