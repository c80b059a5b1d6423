package metrics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/tenreads/statuswatch/pkg/types"
)

// Poll outcomes recorded by ObservePoll.
const (
	PollOK      = "ok"
	PollHTTPErr = "http_error"
	PollFailed  = "failed"
	PollStale   = "stale"
)

// Metrics holds the client's instruments on a private registry.
//
// A nil *Metrics is valid; every method is then a no-op.
type Metrics struct {
	reg *prometheus.Registry

	polls        *prometheus.CounterVec
	pollLatency  prometheus.Histogram
	connects     *prometheus.CounterVec
	pushMessages prometheus.Counter
	renders      *prometheus.CounterVec
	stale        prometheus.Gauge
	mode         *prometheus.GaugeVec
}

// New registers all instruments on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statuswatch_polls_total",
				Help: "Status polls by outcome",
			},
			[]string{"outcome"},
		),
		pollLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "statuswatch_poll_duration_seconds",
				Help:    "Status poll request duration",
				Buckets: prometheus.DefBuckets,
			},
		),
		connects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statuswatch_push_connects_total",
				Help: "Push connection attempts by outcome",
			},
			[]string{"outcome"},
		),
		pushMessages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "statuswatch_push_messages_total",
				Help: "Status messages received over the push connection",
			},
		),
		renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statuswatch_renders_total",
				Help: "Display updates by applied class",
			},
			[]string{"class"},
		),
		stale: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "statuswatch_display_stale",
				Help: "1 when the display has not been updated within the stale threshold",
			},
		),
		mode: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "statuswatch_transport_mode",
				Help: "Selected transport strategy (1 for the active mode)",
			},
			[]string{"mode"},
		),
	}
	m.reg.MustRegister(m.polls, m.pollLatency, m.connects, m.pushMessages, m.renders, m.stale, m.mode)
	return m
}

// ObservePoll records one finished poll.
func (m *Metrics) ObservePoll(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(outcome).Inc()
	if outcome != PollStale {
		m.pollLatency.Observe(d.Seconds())
	}
}

// ObserveConnect records a push dial attempt.
func (m *Metrics) ObserveConnect(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.connects.WithLabelValues(outcome).Inc()
}

// ObservePushMessage records one inbound push message.
func (m *Metrics) ObservePushMessage() {
	if m == nil {
		return
	}
	m.pushMessages.Inc()
}

// ObserveRender records one display update.
func (m *Metrics) ObserveRender(c types.Class) {
	if m == nil {
		return
	}
	label := string(c)
	if label == "" {
		label = "none"
	}
	m.renders.WithLabelValues(label).Inc()
}

// SetStale sets the stale gauge.
func (m *Metrics) SetStale(stale bool) {
	if m == nil {
		return
	}
	if stale {
		m.stale.Set(1)
	} else {
		m.stale.Set(0)
	}
}

// SetMode marks mode as the active transport.
func (m *Metrics) SetMode(mode string) {
	if m == nil {
		return
	}
	m.mode.Reset()
	m.mode.WithLabelValues(mode).Set(1)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// WriteText gathers all families and writes them to w in the text format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	mfs, err := m.reg.Gather()
	if err != nil {
		return fmt.Errorf("metrics: gather: %w", err)
	}
	return encodeText(w, mfs)
}

func encodeText(w io.Writer, mfs []*dto.MetricFamily) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		slog.Info("metrics: listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics: serve: %w", err)
	}
}
