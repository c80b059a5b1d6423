package transport

import (
	"context"
	"log/slog"

	"github.com/tenreads/statuswatch/client/internal/config"
	"github.com/tenreads/statuswatch/client/internal/metrics"
	"github.com/tenreads/statuswatch/client/internal/poller"
	"github.com/tenreads/statuswatch/client/internal/pusher"
	"github.com/tenreads/statuswatch/client/internal/render"
)

// Mode is the selected transport strategy.
type Mode string

const (
	ModePolling Mode = "polling"
	ModePushing Mode = "pushing"
)

// Strategy is a running transport.
type Strategy interface {
	Run(ctx context.Context) error
}

// Capabilities describes what the host environment supports.
type Capabilities struct {
	// Push is true when a persistent push transport can be used.
	Push bool
}

// Detect reports the capabilities available for cfg. Push requires a
// configured socket URL and is switched off by force_poll.
func Detect(cfg config.ClientConfig) Capabilities {
	return Capabilities{Push: cfg.SocketURL() != "" && !cfg.ForcePoll}
}

// Client carries everything a transport needs. It replaces any package
// level state: build one per display.
type Client struct {
	cfg     config.ClientConfig
	sink    render.Sink
	metrics *metrics.Metrics
}

// New creates a Client rendering into sink. m may be nil.
func New(cfg config.ClientConfig, sink render.Sink, m *metrics.Metrics) *Client {
	return &Client{cfg: cfg, sink: sink, metrics: m}
}

// Select evaluates the host capabilities once and builds the matching
// strategy. Missing push support is a normal branch, not an error.
func (c *Client) Select() (Mode, Strategy) {
	if Detect(c.cfg).Push {
		return ModePushing, pusher.New(c.cfg, c.sink, pusher.WithMetrics(c.metrics))
	}
	return ModePolling, poller.New(c.cfg, c.sink, poller.WithMetrics(c.metrics))
}

// Run selects a strategy and runs it until ctx is cancelled or the
// strategy fails.
func (c *Client) Run(ctx context.Context) error {
	mode, s := c.Select()
	c.metrics.SetMode(string(mode))

	switch mode {
	case ModePushing:
		slog.Info("fetching status via push connection", "url", c.cfg.SocketURL())
	default:
		slog.Info("fetching status via polling",
			"url", c.cfg.StatusURL(),
			"interval", c.cfg.Poll.Interval,
			"force_poll", c.cfg.ForcePoll,
		)
	}
	return s.Run(ctx)
}
