package pusher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tenreads/statuswatch/client/internal/config"
	"github.com/tenreads/statuswatch/client/internal/metrics"
	"github.com/tenreads/statuswatch/client/internal/render"
	"github.com/tenreads/statuswatch/pkg/types"
)

// Command is the only message ever sent to the monitor, once per connection.
const Command = "status"

const (
	// dialTimeout bounds the WebSocket handshake.
	dialTimeout = 10 * time.Second

	// writeTimeout is the deadline for the command and close frames.
	writeTimeout = 10 * time.Second

	// defaultReadLimit caps a single inbound status message.
	defaultReadLimit = 1 << 20

	// stableUptime is how long a silent connection must stay up before a
	// drop no longer counts against the retry budget.
	stableUptime = 5 * time.Second
)

var (
	// ErrDisconnected is returned when the connection drops and reconnects
	// are disabled.
	ErrDisconnected = errors.New("pusher: connection lost")

	// ErrGaveUp is returned after max retries consecutive failed attempts.
	ErrGaveUp = errors.New("pusher: giving up after repeated failures")

	// ErrMessageTooLarge is returned when the monitor sends a message over
	// the read limit.
	ErrMessageTooLarge = errors.New("pusher: status message too large")
)

// State is the push connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnected
)

func (s State) String() string {
	if s == StateConnected {
		return "connected"
	}
	return "disconnected"
}

// Pusher keeps a WebSocket connection to the monitor open and renders every
// message it receives.
type Pusher struct {
	url       string
	reconnect bool
	retry     *retry
	readLimit int64
	dialer    *websocket.Dialer
	sink      render.Sink
	metrics   *metrics.Metrics

	mu    sync.Mutex
	state State
}

// Option configures a Pusher.
type Option func(*Pusher)

// WithDialer replaces the default WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(p *Pusher) { p.dialer = d }
}

// WithMetrics records connects and messages on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pusher) { p.metrics = m }
}

// New creates a Pusher for cfg's socket URL rendering into sink.
func New(cfg config.ClientConfig, sink render.Sink, opts ...Option) *Pusher {
	p := &Pusher{
		url:       cfg.SocketURL(),
		reconnect: cfg.Push.Reconnect,
		retry:     newRetry(cfg.Push.BackoffInitial, cfg.Push.BackoffMax, cfg.Push.MaxRetries),
		readLimit: defaultReadLimit,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: dialTimeout,
		},
		sink: sink,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// State returns the current connection state.
func (p *Pusher) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Run connects and renders messages until ctx is cancelled, in which case
// it returns nil. With reconnects disabled the first drop returns
// ErrDisconnected. Otherwise failed dials and drops are retried with
// backoff, and ErrGaveUp is returned once push.max_retries consecutive
// attempts failed. A connection only restores the retry budget when it proved
// healthy, so a monitor that accepts and immediately hangs up still runs
// out of retries. A message over the read limit renders the fixed error
// and returns ErrMessageTooLarge without reconnecting.
func (p *Pusher) Run(ctx context.Context) error {
	slog.Info("pusher: starting", "url", p.url)

	for {
		err := p.session(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if errors.Is(err, ErrMessageTooLarge) {
			slog.Error("pusher: message over read limit, stopping",
				"url", p.url, "limit", p.readLimit)
			return err
		}

		var dropped *droppedError
		isDrop := errors.As(err, &dropped)
		if !p.reconnect {
			if isDrop {
				slog.Error("pusher: connection lost, display will no longer update",
					"url", p.url, "err", dropped.err)
				return fmt.Errorf("%w: %v", ErrDisconnected, dropped.err)
			}
			slog.Error("pusher: dial failed", "url", p.url, "err", err)
			return fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
		if isDrop && dropped.healthy {
			p.retry.succeed()
		}

		wait, ok := p.retry.fail()
		if !ok {
			slog.Error("pusher: giving up", "url", p.url, "attempts", p.retry.failures, "err", err)
			return fmt.Errorf("%w: %v", ErrGaveUp, err)
		}
		slog.Warn("pusher: disconnected, will reconnect",
			"url", p.url,
			"err", err,
			"retry_in", wait,
		)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

// droppedError marks a failure after the connection had been established.
// healthy is set when the connection delivered a message or stayed up for
// at least stableUptime.
type droppedError struct {
	err     error
	healthy bool
}

func (e *droppedError) Error() string { return "connection dropped: " + e.err.Error() }
func (e *droppedError) Unwrap() error { return e.err }

// session runs one connection: dial, send the command once, then render
// every inbound message until the connection fails or ctx is cancelled.
// A non-nil error from after the handshake is a *droppedError, except for
// ErrMessageTooLarge.
func (p *Pusher) session(ctx context.Context) error {
	conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
	if err != nil {
		p.metrics.ObserveConnect(false)
		return fmt.Errorf("dial: %w", err)
	}
	p.metrics.ObserveConnect(true)
	p.setState(StateConnected)
	defer p.setState(StateDisconnected)

	connectedAt := time.Now()
	slog.Info("pusher: connected", "url", p.url)

	// Closing the connection is the only way to unblock ReadMessage.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
	if err := conn.WriteMessage(websocket.TextMessage, []byte(Command)); err != nil {
		return &droppedError{err: fmt.Errorf("send command: %w", err)}
	}
	conn.SetWriteDeadline(time.Time{}) //nolint:errcheck

	conn.SetReadLimit(p.readLimit)
	delivered := 0
	for {
		_, msg, err := conn.ReadMessage()
		if errors.Is(err, websocket.ErrReadLimit) {
			// gorilla has already sent close 1009 to the monitor.
			p.render(types.Update{
				Payload:    types.PollErrorMessage,
				Class:      types.ClassError,
				Source:     types.SourcePush,
				ReceivedAt: time.Now(),
			})
			return fmt.Errorf("%w: limit %d bytes", ErrMessageTooLarge, p.readLimit)
		}
		if err != nil {
			healthy := delivered > 0 || time.Since(connectedAt) >= stableUptime
			return &droppedError{err: err, healthy: healthy}
		}
		delivered++
		p.metrics.ObservePushMessage()
		p.render(types.NewUpdate(types.SourcePush, 0, string(msg), time.Now()))
	}
}

func (p *Pusher) render(u types.Update) {
	if err := p.sink.Render(u); err != nil {
		slog.Warn("pusher: render failed", "err", err)
	}
}

func (p *Pusher) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}
