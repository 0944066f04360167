// pkg/engine/runner.go
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/opd-ai/go-carsoccer/pkg/event"
	"github.com/opd-ai/go-carsoccer/pkg/logging"
)

// Runner drives a Match at a fixed tick rate and fans snapshots out to subscribers.
// All access to the match goes through the runner's lock, so key events from other
// goroutines never land in the middle of a frame.
type Runner struct {
	match  *Match
	mu     sync.Mutex
	logger *logging.Logger

	tickInterval  time.Duration
	ticksPerState uint64
	maxDeltaTime  float64

	running   bool
	lastFrame time.Time

	subsMu sync.RWMutex
	subs   map[uint64]chan *MatchState
	nextID uint64
}

// NewRunner creates a runner for the match using its network tick and state rates
func NewRunner(match *Match, logger *logging.Logger) *Runner {
	if logger == nil {
		logger = logging.NewLogger()
	}
	nc := match.Config.NetworkConfig

	ticksPerState := uint64(1)
	if nc.StateRate > 0 && nc.TickRate > nc.StateRate {
		ticksPerState = uint64(nc.TickRate / nc.StateRate)
	}

	return &Runner{
		match:         match,
		logger:        logger.WithComponent("runner"),
		tickInterval:  time.Second / time.Duration(nc.TickRate),
		ticksPerState: ticksPerState,
		maxDeltaTime:  nc.MaxDeltaTime,
		subs:          make(map[uint64]chan *MatchState),
	}
}

// Run steps the match on every tick until ctx is cancelled.
// The measured wall-clock time is used as the frame time, capped at MaxDeltaTime.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	r.mu.Lock()
	r.running = true
	r.lastFrame = time.Now()
	r.mu.Unlock()

	r.match.EventBus.Publish(&event.BaseEvent{EventType: event.MatchStarted, Source: r.match})
	r.logger.Info(ctx, "match started", "tick_interval", r.tickInterval, "ticks_per_state", r.ticksPerState)

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		r.match.EventBus.Publish(&event.BaseEvent{EventType: event.MatchStopped, Source: r.match})
		r.logger.Info(context.Background(), "match stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			r.mu.Lock()
			deltaTime := now.Sub(r.lastFrame).Seconds()
			r.mu.Unlock()

			if err := r.Step(deltaTime); err != nil {
				r.logger.Error(ctx, "frame rejected", err)
			}
		}
	}
}

// Step advances the match by deltaTime seconds, capped at the configured maximum,
// and publishes a snapshot when a state tick is due.
func (r *Runner) Step(deltaTime float64) error {
	r.mu.Lock()
	if deltaTime > r.maxDeltaTime {
		deltaTime = r.maxDeltaTime
	}
	err := r.match.Update(deltaTime)
	r.lastFrame = time.Now()

	var snapshot *MatchState
	if err == nil && r.match.Frame%r.ticksPerState == 0 {
		snapshot = r.match.Snapshot()
	}
	r.mu.Unlock()

	if snapshot != nil {
		r.broadcast(snapshot)
	}
	return err
}

// KeyDown forwards a key press to the match
func (r *Runner) KeyDown(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.match.KeyDown(key)
}

// KeyUp forwards a key release to the match
func (r *Runner) KeyUp(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.match.KeyUp(key)
}

// Reset resets both entities as a manual reset
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.match.Reset(event.ResetManual)
}

// Snapshot returns the current match state
func (r *Runner) Snapshot() *MatchState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.match.Snapshot()
}

// WithMatch runs fn while holding the runner's lock
func (r *Runner) WithMatch(fn func(m *Match)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.match)
}

// Running reports whether Run is active
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// LastFrame returns the wall-clock time of the most recent step
func (r *Runner) LastFrame() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastFrame
}

// Subscribe registers for snapshots. A subscriber that falls behind by more than
// buffer snapshots misses the newer ones. The returned function unsubscribes and
// closes the channel.
func (r *Runner) Subscribe(buffer int) (<-chan *MatchState, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan *MatchState, buffer)

	r.subsMu.Lock()
	id := r.nextID
	r.nextID++
	r.subs[id] = ch
	r.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			r.subsMu.Lock()
			delete(r.subs, id)
			r.subsMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (r *Runner) broadcast(state *MatchState) {
	r.subsMu.RLock()
	defer r.subsMu.RUnlock()

	for _, ch := range r.subs {
		select {
		case ch <- state:
		default:
		}
	}
}
