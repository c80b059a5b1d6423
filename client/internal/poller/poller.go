package poller

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/tenreads/statuswatch/client/internal/config"
	"github.com/tenreads/statuswatch/client/internal/metrics"
	"github.com/tenreads/statuswatch/client/internal/render"
	"github.com/tenreads/statuswatch/pkg/types"
)

// Poller fetches the status on a fixed interval and renders each result.
//
// Every tick starts a new request without waiting for earlier ones. Each
// request carries a sequence number; a response older than the last one
// rendered is dropped, so a slow reply can never overwrite a newer one.
type Poller struct {
	url      string
	interval time.Duration
	timeout  time.Duration
	client   *http.Client
	sink     render.Sink
	metrics  *metrics.Metrics

	wg sync.WaitGroup

	mu       sync.Mutex
	next     uint64 // last sequence number issued
	rendered uint64 // sequence number of the last rendered response
	dropped  uint64
}

// Option configures a Poller.
type Option func(*Poller)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Poller) { p.client = c }
}

// WithMetrics records poll outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Poller) { p.metrics = m }
}

// New creates a Poller for cfg's status URL rendering into sink.
func New(cfg config.ClientConfig, sink render.Sink, opts ...Option) *Poller {
	p := &Poller{
		url:      cfg.StatusURL(),
		interval: cfg.Poll.Interval,
		timeout:  cfg.Poll.Timeout,
		client:   &http.Client{},
		sink:     sink,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run polls immediately, then once per interval until ctx is cancelled.
// It waits for in-flight requests before returning and always returns nil.
func (p *Poller) Run(ctx context.Context) error {
	slog.Info("poller: starting", "url", p.url, "interval", p.interval)

	p.spawn(ctx)

	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			slog.Info("poller: stopped")
			return nil
		case <-t.C:
			p.spawn(ctx)
		}
	}
}

// Fetch performs one status request and returns the update it would render,
// without rendering it. ok is false when the update carries the fixed error
// text because the request failed, as opposed to a server body that happens
// to match it.
func (p *Poller) Fetch(ctx context.Context) (u types.Update, ok bool) {
	resp := fetch(ctx, p.client, p.url, p.timeout)
	return p.toUpdate(0, resp), resp.OK()
}

// Issued returns the number of requests started so far.
func (p *Poller) Issued() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next
}

// Dropped returns the number of stale responses discarded so far.
func (p *Poller) Dropped() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// --- internal ---------------------------------------------------------------

func (p *Poller) spawn(ctx context.Context) {
	p.mu.Lock()
	p.next++
	seq := p.next
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.poll(ctx, seq)
	}()
}

func (p *Poller) poll(ctx context.Context, seq uint64) {
	slog.Debug("poller: fetching status", "seq", seq)
	resp := fetch(ctx, p.client, p.url, p.timeout)
	if ctx.Err() != nil {
		return
	}

	u := p.toUpdate(seq, resp)

	p.mu.Lock()
	defer p.mu.Unlock()
	if seq < p.rendered {
		slog.Debug("poller: dropping stale response",
			"seq", seq, "rendered", p.rendered, "request_id", resp.RequestID)
		p.dropped++
		p.metrics.ObservePoll(metrics.PollStale, resp.Latency)
		return
	}
	p.rendered = seq
	p.metrics.ObservePoll(outcome(resp), resp.Latency)

	// Rendering under the lock keeps check-and-render atomic across
	// concurrent responses.
	if err := p.sink.Render(u); err != nil {
		slog.Warn("poller: render failed", "seq", seq, "err", err)
	}
}

// toUpdate maps a response to the update to render. Anything other than a
// completed 200 renders the fixed error message and discards the body.
func (p *Poller) toUpdate(seq uint64, resp Response) types.Update {
	now := time.Now()
	if resp.OK() {
		return types.NewUpdate(types.SourcePoll, seq, string(resp.Body), now)
	}

	if resp.Err != nil {
		slog.Warn("poller: status request failed",
			"url", p.url, "request_id", resp.RequestID, "err", resp.Err)
	} else {
		slog.Warn("poller: unexpected status code",
			"url", p.url, "request_id", resp.RequestID, "status", resp.StatusCode)
	}
	return types.Update{
		Seq:        seq,
		Payload:    types.PollErrorMessage,
		Class:      types.ClassError,
		Source:     types.SourcePoll,
		ReceivedAt: now,
	}
}

func outcome(resp Response) string {
	switch {
	case resp.OK():
		return metrics.PollOK
	case resp.Err != nil:
		return metrics.PollFailed
	default:
		return metrics.PollHTTPErr
	}
}
