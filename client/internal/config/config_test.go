package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Valid(t *testing.T) {
	yaml := `
client:
  api_base: "http://monitor.internal:9999"
  ws_base: "wss://monitor.internal:9999"
  force_poll: true
  log_level: debug
  poll:
    interval: 2s
    timeout: 1s
  push:
    reconnect: false
    max_retries: 3
  render:
    classify: false
    html_path: /tmp/status.html
  notify:
    cooldown: 1m
    webhooks:
      - type: slack
        url_env: SLACK_URL
`
	cfg := loadFromString(t, yaml)
	c := cfg.Client

	if c.StatusURL() != "http://monitor.internal:9999/status/" {
		t.Errorf("status url: got %q", c.StatusURL())
	}
	if c.SocketURL() != "wss://monitor.internal:9999/socket-status" {
		t.Errorf("socket url: got %q", c.SocketURL())
	}
	if !c.ForcePoll {
		t.Error("force_poll: want true")
	}
	if c.Level() != slog.LevelDebug {
		t.Errorf("level: got %v", c.Level())
	}
	if c.Poll.Interval != 2*time.Second || c.Poll.Timeout != time.Second {
		t.Errorf("poll: got %+v", c.Poll)
	}
	if c.Push.Reconnect || c.Push.MaxRetries != 3 {
		t.Errorf("push: got %+v", c.Push)
	}
	if c.Render.Classify || c.Render.HTMLPath != "/tmp/status.html" {
		t.Errorf("render: got %+v", c.Render)
	}
	if len(c.Notify.Webhooks) != 1 || c.Notify.Webhooks[0].URLEnv != "SLACK_URL" {
		t.Errorf("webhooks: got %+v", c.Notify.Webhooks)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, "client: {}\n")
	c := cfg.Client

	if c.StatusURL() != "http://localhost:9999/status/" {
		t.Errorf("status url: got %q", c.StatusURL())
	}
	if c.SocketURL() != "ws://localhost:9999/socket-status" {
		t.Errorf("socket url: got %q", c.SocketURL())
	}
	if c.Poll.Interval != DefaultPollInterval {
		t.Errorf("poll interval: got %v, want %v", c.Poll.Interval, DefaultPollInterval)
	}
	if !c.Push.Reconnect || c.Push.MaxRetries != DefaultMaxRetries {
		t.Errorf("push defaults: got %+v", c.Push)
	}
	if !c.Render.Classify || !c.Render.Stdout {
		t.Errorf("render defaults: got %+v", c.Render)
	}
	if c.Notify.Cooldown != DefaultNotifyCooldown {
		t.Errorf("notify cooldown: got %v", c.Notify.Cooldown)
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if cfg.Client.APIBase != DefaultAPIBase {
		t.Errorf("api_base: got %q", cfg.Client.APIBase)
	}
}

func TestSocketURL_EmptyWhenPushDisabled(t *testing.T) {
	cfg := loadFromString(t, "client:\n  ws_base: \"\"\n")
	if got := cfg.Client.SocketURL(); got != "" {
		t.Errorf("socket url: got %q, want empty", got)
	}
}

func TestStatusURL_TrailingSlash(t *testing.T) {
	c := ClientConfig{APIBase: "http://h:1/"}
	if got := c.StatusURL(); got != "http://h:1/status/" {
		t.Errorf("got %q", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want string
	}{
		{"bad api scheme", "client:\n  api_base: ftp://x\n", "api_base"},
		{"bad ws scheme", "client:\n  ws_base: http://x\n", "ws_base"},
		{"missing host", "client:\n  api_base: \"http://\"\n", "missing host"},
		{"zero interval", "client:\n  poll:\n    interval: 0s\n", "poll.interval"},
		{"negative retries", "client:\n  push:\n    max_retries: -1\n", "max_retries"},
		{"backoff order", "client:\n  push:\n    backoff_initial: 5s\n    backoff_max: 1s\n", "backoff_max"},
		{"log level", "client:\n  log_level: loud\n", "log_level"},
		{"webhook type", "client:\n  notify:\n    webhooks:\n      - type: pager\n        url_env: X\n", "unknown type"},
		{"webhook env", "client:\n  notify:\n    webhooks:\n      - type: http\n", "url_env"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.yaml)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestWebhookURL_FromEnv(t *testing.T) {
	t.Setenv("STATUSWATCH_TEST_HOOK", "https://hooks.example/x")
	wh := WebhookConfig{Type: "http", URLEnv: "STATUSWATCH_TEST_HOOK"}
	if wh.URL() != "https://hooks.example/x" {
		t.Errorf("url: got %q", wh.URL())
	}
	if (WebhookConfig{}).URL() != "" {
		t.Error("empty url_env should resolve to empty url")
	}
}

func TestWatch_ReloadsOnWriteAndRename(t *testing.T) {
	path := writeConfig(t, "client:\n  log_level: info\n")
	dir := filepath.Dir(path)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 16)
	go Watch(ctx, path, func(c *Config) { got <- c }) //nolint:errcheck

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)

	// Editor-style save: write a sibling temp file, rename it over the config.
	tmp := filepath.Join(dir, ".config.yaml.swp")
	if err := os.WriteFile(tmp, []byte("client:\n  log_level: warn\n"), 0o644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatalf("rename: %v", err)
	}
	waitLevel(t, got, "warn")

	// The replaced file is still watched for in-place writes.
	if err := os.WriteFile(path, []byte("client:\n  log_level: debug\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitLevel(t, got, "debug")
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	path := writeConfig(t, "client:\n  log_level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 4)
	go Watch(ctx, path, func(c *Config) { got <- c }) //nolint:errcheck
	time.Sleep(100 * time.Millisecond)

	other := filepath.Join(filepath.Dir(path), "notes.txt")
	if err := os.WriteFile(other, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case c := <-got:
		t.Errorf("unexpected reload: %+v", c.Client)
	case <-time.After(300 * time.Millisecond):
	}
}

// --- helpers ----------------------------------------------------------------

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// waitLevel drains reloads until one carries level. A truncating write can
// surface as more than one event, the first of which may see an empty file.
func waitLevel(t *testing.T, got <-chan *Config, level string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case c := <-got:
			if c.Client.LogLevel == level {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for reload with log_level %q", level)
		}
	}
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}
