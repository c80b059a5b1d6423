package render

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tenreads/statuswatch/client/internal/metrics"
	"github.com/tenreads/statuswatch/pkg/types"
)

// Sink receives every update a transport produces.
type Sink interface {
	Render(u types.Update) error
}

// Output is a destination the display publishes its state to.
type Output interface {
	Write(s State) error
}

// ChangeFunc is called after every classified update with the class held
// before it and the class it applied. old == new when nothing changed.
type ChangeFunc func(old, new types.Class, u types.Update)

// State is the display's current content.
type State struct {
	// Content is the last payload, verbatim.
	Content   string
	Class     types.Class
	Source    types.Source
	UpdatedAt time.Time
	Stale     bool

	// Renders counts accepted updates.
	Renders uint64
}

// Display is the render sink. It keeps the latest state, publishes it to
// its outputs and reports the class before and after each update.
//
// Display is safe for concurrent use. Updates are published in the order
// they were accepted.
type Display struct {
	classify bool
	outputs  []Output
	onChange []ChangeFunc
	metrics  *metrics.Metrics
	now      func() time.Time

	// pub serialises publishing so outputs observe updates in order.
	pub sync.Mutex

	mu    sync.RWMutex
	state State
}

// Option configures a Display.
type Option func(*Display)

// WithOutputs adds outputs that receive every new state.
func WithOutputs(outs ...Output) Option {
	return func(d *Display) { d.outputs = append(d.outputs, outs...) }
}

// WithOnChange registers a hook run after each classified update.
func WithOnChange(fn ChangeFunc) Option {
	return func(d *Display) { d.onChange = append(d.onChange, fn) }
}

// WithMetrics records renders and staleness on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Display) { d.metrics = m }
}

// NewDisplay creates an empty display. When classify is false the class is
// never applied and stays ClassNone.
func NewDisplay(classify bool, opts ...Option) *Display {
	d := &Display{classify: classify, now: time.Now}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Render replaces the content with u.Payload and, when classification is
// on, applies u.Class. Output errors are logged and the first one returned;
// the in-memory state is updated regardless.
func (d *Display) Render(u types.Update) error {
	class := types.ClassNone
	if d.classify {
		class = u.Class
	}
	at := u.ReceivedAt
	if at.IsZero() {
		at = d.now()
	}

	d.pub.Lock()
	defer d.pub.Unlock()

	d.mu.Lock()
	old := d.state.Class
	wasStale := d.state.Stale
	d.state = State{
		Content:   u.Payload,
		Class:     class,
		Source:    u.Source,
		UpdatedAt: at,
		Renders:   d.state.Renders + 1,
	}
	snap := d.state
	d.mu.Unlock()

	if wasStale {
		slog.Info("render: display updated again", "source", u.Source)
		d.metrics.SetStale(false)
	}
	d.metrics.ObserveRender(class)

	var firstErr error
	for _, out := range d.outputs {
		if err := out.Write(snap); err != nil {
			slog.Error("render: output failed", "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if d.classify {
		for _, fn := range d.onChange {
			fn(old, class, u)
		}
	}
	return firstErr
}

// State returns a copy of the current display state.
func (d *Display) State() State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// CheckStale marks the display stale when it has not been updated within
// staleAfter of now. It reports whether the display just became stale.
// A display that never rendered is measured from its first check.
func (d *Display) CheckStale(now time.Time, staleAfter time.Duration) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state.Stale {
		return false
	}
	if d.state.UpdatedAt.IsZero() {
		d.state.UpdatedAt = now
		return false
	}
	if now.Sub(d.state.UpdatedAt) < staleAfter {
		return false
	}
	d.state.Stale = true
	return true
}

// Watch checks for staleness until ctx is cancelled. It ticks at half of
// staleAfter, with a one second floor. A non-positive staleAfter returns
// immediately.
func (d *Display) Watch(ctx context.Context, staleAfter time.Duration) {
	if staleAfter <= 0 {
		return
	}
	interval := staleAfter / 2
	if interval < time.Second {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			if d.CheckStale(now, staleAfter) {
				st := d.State()
				slog.Warn("render: no status update received, display is stale",
					"last_update", st.UpdatedAt,
					"stale_after", staleAfter,
				)
				d.metrics.SetStale(true)
			}
		}
	}
}
