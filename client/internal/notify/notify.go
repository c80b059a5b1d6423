package notify

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tenreads/statuswatch/client/internal/config"
	"github.com/tenreads/statuswatch/pkg/types"
)

// Event states.
const (
	StateDown      = "down"
	StateRecovered = "recovered"
)

// maxHistoryLen bounds the events kept for Sent.
const maxHistoryLen = 200

// Event is one outage notification.
type Event struct {
	ID      string    `json:"id"`
	State   string    `json:"state"`
	Message string    `json:"message"`
	Payload string    `json:"payload"`
	At      time.Time `json:"at"`
}

// Notifier turns display class changes into webhook notifications.
//
// While the display shows an error it notifies at most once per cooldown.
// The first success after an error sends a recovery notice and re-arms the
// cooldown so the next outage is reported immediately.
//
// Notifier is safe for concurrent use.
type Notifier struct {
	client *http.Client
	now    func() time.Time
	wg     sync.WaitGroup

	mu           sync.Mutex
	webhooks     []config.WebhookConfig
	cooldown     time.Duration
	lastNotified time.Time
	down         bool
	sent         []Event
}

// New creates a Notifier from the notify configuration.
func New(cfg config.NotifyConfig) *Notifier {
	return &Notifier{
		webhooks: cfg.Webhooks,
		cooldown: cfg.Cooldown,
		client:   &http.Client{Timeout: 10 * time.Second},
		now:      time.Now,
	}
}

// Update swaps in a reloaded configuration. Outage state is kept.
func (n *Notifier) Update(cfg config.NotifyConfig) {
	n.mu.Lock()
	n.webhooks = cfg.Webhooks
	n.cooldown = cfg.Cooldown
	n.mu.Unlock()
}

// Observe is a render.ChangeFunc. It is called after every classified
// update with the class before and after it.
func (n *Notifier) Observe(old, cur types.Class, u types.Update) {
	now := n.now()

	n.mu.Lock()
	var ev *Event
	switch {
	case cur == types.ClassError:
		n.down = true
		if n.lastNotified.IsZero() || !now.Before(n.lastNotified.Add(n.cooldown)) {
			n.lastNotified = now
			ev = &Event{
				State:   StateDown,
				Message: fmt.Sprintf("Monitor reports a failure via %s", u.Source),
			}
		}
	case old == types.ClassError && n.down:
		n.down = false
		n.lastNotified = time.Time{}
		ev = &Event{
			State:   StateRecovered,
			Message: "Monitor reports all services back up",
		}
	}
	if ev == nil {
		n.mu.Unlock()
		return
	}
	ev.ID = uuid.NewString()
	ev.Payload = u.Payload
	ev.At = now
	n.record(*ev)
	hooks := append([]config.WebhookConfig(nil), n.webhooks...)
	n.mu.Unlock()

	if ev.State == StateDown {
		slog.Warn("notify: monitor reports failure", "id", ev.ID, "source", u.Source)
	} else {
		slog.Info("notify: monitor recovered", "id", ev.ID)
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.deliver(hooks, *ev)
	}()
}

// record appends ev to the history, dropping the oldest past maxHistoryLen.
// Callers hold mu.
func (n *Notifier) record(ev Event) {
	if len(n.sent) == maxHistoryLen {
		copy(n.sent, n.sent[1:])
		n.sent = n.sent[:maxHistoryLen-1]
	}
	n.sent = append(n.sent, ev)
}

// Sent returns copies of the most recent events (at most maxHistoryLen),
// oldest first.
func (n *Notifier) Sent() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Event, len(n.sent))
	copy(out, n.sent)
	return out
}

// Wait blocks until all pending deliveries finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
