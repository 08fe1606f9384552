package overlay

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-noc/pkg/logging"
)

// TickFunc is invoked once per poll interval. The context is cancelled when
// the subscription stops.
type TickFunc func(ctx context.Context)

// Subscription is one running poll timer.
type Subscription struct {
	interval time.Duration
	cancel   context.CancelFunc
	active   atomic.Bool
	done     chan struct{}
}

// Start runs tick every interval until the subscription is stopped or ctx
// is cancelled. The first tick fires one interval after Start.
func Start(ctx context.Context, interval time.Duration, tick TickFunc) *Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		interval: interval,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.active.Store(true)

	go s.run(subCtx, tick)
	return s
}

func (s *Subscription) run(ctx context.Context, tick TickFunc) {
	defer close(s.done)
	defer s.active.Store(false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.active.Load() {
				return
			}
			tick(ctx)
		}
	}
}

// Stop cancels the timer. Once Stop returns, Active reports false, so a tick
// already in flight can detect that it has been superseded. Stop does not
// wait for that tick; use Done for that.
func (s *Subscription) Stop() {
	s.active.Store(false)
	s.cancel()
}

// Active reports whether the subscription is still live.
func (s *Subscription) Active() bool {
	return s.active.Load()
}

// Interval returns the poll interval.
func (s *Subscription) Interval() time.Duration {
	return s.interval
}

// Done is closed when the poll goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Poller owns at most one live Subscription.
type Poller struct {
	mu     sync.Mutex
	sub    *Subscription
	logger logging.Logger
}

// NewPoller creates an idle poller. A nil logger discards output.
func NewPoller(logger logging.Logger) *Poller {
	return &Poller{logger: logging.OrNop(logger).With(logging.Component("overlay-poller"))}
}

// Restart stops the current subscription, if any, and starts a new one.
// The returned subscription lets the tick recognise itself as current.
func (p *Poller) Restart(ctx context.Context, interval time.Duration, tick TickFunc) *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sub != nil {
		p.sub.Stop()
	}
	p.sub = Start(ctx, interval, tick)
	p.logger.Debug("overlay polling started", logging.Duration("interval", interval))
	return p.sub
}

// Stop stops the current subscription. It is a no-op when idle.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sub == nil {
		return
	}
	p.sub.Stop()
	p.sub = nil
	p.logger.Debug("overlay polling stopped")
}

// Active reports whether a subscription is live.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sub != nil && p.sub.Active()
}

// Current returns the live subscription, or nil.
func (p *Poller) Current() *Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sub
}
