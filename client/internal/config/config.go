package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
// The base URLs match the monitor's fixed development endpoints.
const (
	DefaultAPIBase        = "http://localhost:9999"
	DefaultWSBase         = "ws://localhost:9999"
	DefaultPollInterval   = 5 * time.Second
	DefaultPollTimeout    = 10 * time.Second
	DefaultMaxRetries     = 10
	DefaultBackoffInitial = 1 * time.Second
	DefaultBackoffMax     = 60 * time.Second
	DefaultStaleAfter     = 30 * time.Second
	DefaultNotifyCooldown = 5 * time.Minute
	DefaultLogLevel       = "info"
)

// Monitor endpoint paths appended to the configured base URLs.
const (
	StatusPath = "/status/"
	SocketPath = "/socket-status"
)

// Config is the top-level configuration file.
type Config struct {
	Client ClientConfig `yaml:"client"`
}

// ClientConfig holds all status client settings.
type ClientConfig struct {
	// APIBase is the monitor's HTTP base URL, e.g. http://localhost:9999.
	APIBase string `yaml:"api_base"`

	// WSBase is the monitor's WebSocket base URL. Empty disables push.
	WSBase string `yaml:"ws_base"`

	// ForcePoll selects polling even when push is available.
	ForcePoll bool `yaml:"force_poll"`

	// LogLevel is one of: debug | info | warn | error.
	LogLevel string `yaml:"log_level"`

	// MetricsAddr, when set, serves /metrics on this listen address.
	MetricsAddr string `yaml:"metrics_addr"`

	Poll   PollConfig   `yaml:"poll"`
	Push   PushConfig   `yaml:"push"`
	Render RenderConfig `yaml:"render"`
	Notify NotifyConfig `yaml:"notify"`
}

// PollConfig controls the HTTP polling strategy.
type PollConfig struct {
	// Interval is the fixed period between requests.
	Interval time.Duration `yaml:"interval"`

	// Timeout bounds a single request.
	Timeout time.Duration `yaml:"timeout"`
}

// PushConfig controls the WebSocket push strategy.
type PushConfig struct {
	// Reconnect re-dials after the connection drops. When false the first
	// drop ends push mode and the display stops updating.
	Reconnect bool `yaml:"reconnect"`

	// MaxRetries is the number of consecutive failed attempts before giving
	// up. Zero retries forever.
	MaxRetries int `yaml:"max_retries"`

	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
}

// RenderConfig controls the display and its outputs.
type RenderConfig struct {
	// Classify applies the error/success class derived from each payload.
	Classify bool `yaml:"classify"`

	// HTMLPath, when set, is rewritten with a full page on every update.
	HTMLPath string `yaml:"html_path"`

	// Stdout prints one line per update.
	Stdout bool `yaml:"stdout"`

	// StaleAfter flags the display stale when no update arrives in time.
	// Zero disables the check.
	StaleAfter time.Duration `yaml:"stale_after"`
}

// NotifyConfig configures outage notifications.
type NotifyConfig struct {
	// Cooldown is the minimum time between two "down" notifications.
	Cooldown time.Duration `yaml:"cooldown"`

	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// StatusURL is the full URL polled for status.
func (c ClientConfig) StatusURL() string {
	return strings.TrimRight(c.APIBase, "/") + StatusPath
}

// SocketURL is the full push endpoint URL, or "" when push is not configured.
func (c ClientConfig) SocketURL() string {
	if c.WSBase == "" {
		return ""
	}
	return strings.TrimRight(c.WSBase, "/") + SocketPath
}

// Level parses LogLevel into a slog.Level, defaulting to info.
func (c ClientConfig) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Load reads and parses the YAML config file at path. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML data on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Defaults returns a Config pre-populated with default values.
func Defaults() *Config {
	return &Config{
		Client: ClientConfig{
			APIBase:  DefaultAPIBase,
			WSBase:   DefaultWSBase,
			LogLevel: DefaultLogLevel,
			Poll: PollConfig{
				Interval: DefaultPollInterval,
				Timeout:  DefaultPollTimeout,
			},
			Push: PushConfig{
				Reconnect:      true,
				MaxRetries:     DefaultMaxRetries,
				BackoffInitial: DefaultBackoffInitial,
				BackoffMax:     DefaultBackoffMax,
			},
			Render: RenderConfig{
				Classify:   true,
				Stdout:     true,
				StaleAfter: DefaultStaleAfter,
			},
			Notify: NotifyConfig{
				Cooldown: DefaultNotifyCooldown,
			},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	c := cfg.Client
	if err := checkURL("client.api_base", c.APIBase, "http", "https"); err != nil {
		return err
	}
	if c.WSBase != "" {
		if err := checkURL("client.ws_base", c.WSBase, "ws", "wss"); err != nil {
			return err
		}
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("client.log_level: unknown level %q", c.LogLevel)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("client.poll.interval must be positive")
	}
	if c.Poll.Timeout <= 0 {
		return fmt.Errorf("client.poll.timeout must be positive")
	}
	if c.Push.MaxRetries < 0 {
		return fmt.Errorf("client.push.max_retries must not be negative")
	}
	if c.Push.BackoffInitial <= 0 {
		return fmt.Errorf("client.push.backoff_initial must be positive")
	}
	if c.Push.BackoffMax < c.Push.BackoffInitial {
		return fmt.Errorf("client.push.backoff_max must be >= backoff_initial")
	}
	if c.Render.StaleAfter < 0 {
		return fmt.Errorf("client.render.stale_after must not be negative")
	}
	if c.Notify.Cooldown < 0 {
		return fmt.Errorf("client.notify.cooldown must not be negative")
	}
	for i, wh := range c.Notify.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("notify.webhooks[%d]: unknown type %q", i, wh.Type)
		}
		if wh.URLEnv == "" {
			return fmt.Errorf("notify.webhooks[%d]: url_env is required", i)
		}
	}
	return nil
}

func checkURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			if u.Host == "" {
				return fmt.Errorf("%s: missing host in %q", field, raw)
			}
			return nil
		}
	}
	return fmt.Errorf("%s: scheme must be one of %v, got %q", field, schemes, u.Scheme)
}
