// Package notify keeps a session's unread notification counters current.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/toolshare/internal/model"
)

// DefaultInterval is how often a running poller refreshes.
const DefaultInterval = 30 * time.Second

// Source is the part of the API client the poller needs.
type Source interface {
	Notifications(ctx context.Context) (model.NotificationData, error)
	MarkNotificationsRead(ctx context.Context) error
}

// Poller holds the latest notification counters for one session and
// refreshes them on a schedule while started.
//
// Every refresh takes a sequence number when issued. A response is applied
// only if nothing issued later has been applied already, so a slow refresh
// never overwrites a newer one or a mark-read.
type Poller struct {
	src      Source
	interval time.Duration

	mu       sync.Mutex
	counts   model.NotificationData
	issued   uint64
	applied  uint64
	onChange func(model.NotificationData)
	cancel   context.CancelFunc
	done     chan struct{}
}

type loopKey struct{}

// New creates a stopped poller. A non-positive interval uses DefaultInterval.
func New(src Source, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{src: src, interval: interval}
}

// OnChange registers fn to be called with the new counters whenever an
// applied refresh or mark-read changes them.
func (p *Poller) OnChange(fn func(model.NotificationData)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// Counts returns the latest applied counters.
func (p *Poller) Counts() model.NotificationData {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.counts
}

// Refresh fetches the counters. On failure the previous counters are kept.
func (p *Poller) Refresh(ctx context.Context) error {
	seq := p.next()

	data, err := p.src.Notifications(ctx)
	if err != nil {
		return err
	}

	p.apply(seq, data, false)
	return nil
}

// MarkAsRead clears the counters on the backend and, once that succeeds,
// zeroes them locally regardless of their previous values.
func (p *Poller) MarkAsRead(ctx context.Context) error {
	seq := p.next()

	if err := p.src.MarkNotificationsRead(ctx); err != nil {
		return err
	}

	p.apply(seq, model.NotificationData{}, true)
	return nil
}

func (p *Poller) next() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issued++
	return p.issued
}

func (p *Poller) apply(seq uint64, data model.NotificationData, force bool) {
	p.mu.Lock()
	if seq <= p.applied && !force {
		p.mu.Unlock()
		slog.Debug("discarding stale notification response", "seq", seq, "applied", p.applied)
		return
	}
	p.applied = max(p.applied, seq)
	changed := p.counts != data
	p.counts = data
	fn := p.onChange
	p.mu.Unlock()

	if changed && fn != nil {
		fn(data)
	}
}

// Start refreshes immediately and then every interval until Stop is called
// or ctx is cancelled. Starting a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	ctx = context.WithValue(ctx, loopKey{}, p)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, p.done)
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.Refresh(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("refreshing notifications", "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Running reports whether the scheduled refresh is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Stop cancels the scheduled refresh and waits for it to exit. Stopping a
// stopped poller is a no-op.
func (p *Poller) Stop() {
	p.stop(true)
}

// StopContext is Stop for callers that may be running inside the poller's
// own refresh, such as an unauthorized hook fired by it. When ctx belongs to
// the poller's loop, the loop is cancelled without waiting for it.
func (p *Poller) StopContext(ctx context.Context) {
	own, _ := ctx.Value(loopKey{}).(*Poller)
	p.stop(own != p)
}

func (p *Poller) stop(wait bool) {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if wait {
		<-done
	}
}
