package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/go-carsoccer/pkg/config"
	"github.com/opd-ai/go-carsoccer/pkg/event"
	"github.com/opd-ai/go-carsoccer/pkg/logging"
)

func newTestRunner(t *testing.T, mutate func(cfg *config.MatchConfig)) (*Runner, *Match) {
	t.Helper()
	m := newTestMatch(t, mutate)
	return NewRunner(m, logging.NewLoggerWithWriter(io.Discard, slog.LevelError)), m
}

func TestRunner_StepCapsDeltaTime(t *testing.T) {
	r, m := newTestRunner(t, nil)

	require.NoError(t, r.Step(5))
	assert.InDelta(t, 0.1, m.ElapsedTime, 1e-12)
	assert.False(t, r.LastFrame().IsZero())
}

func TestRunner_StepRejectsNegativeDeltaTime(t *testing.T) {
	r, m := newTestRunner(t, nil)

	err := r.Step(-1)
	assert.True(t, errors.Is(err, ErrInvalidDeltaTime))
	assert.Equal(t, uint64(0), m.Frame)
}

func TestRunner_SnapshotsAtStateRate(t *testing.T) {
	r, _ := newTestRunner(t, func(cfg *config.MatchConfig) {
		cfg.NetworkConfig.TickRate = 60
		cfg.NetworkConfig.StateRate = 20
	})
	states, cancel := r.Subscribe(16)
	defer cancel()

	for i := 0; i < 9; i++ {
		require.NoError(t, r.Step(frame))
	}

	var frames []uint64
	for len(states) > 0 {
		frames = append(frames, (<-states).Frame)
	}
	assert.Equal(t, []uint64{3, 6, 9}, frames)
}

func TestRunner_SlowSubscriberDropsSnapshots(t *testing.T) {
	r, _ := newTestRunner(t, func(cfg *config.MatchConfig) {
		cfg.NetworkConfig.StateRate = cfg.NetworkConfig.TickRate
	})
	states, cancel := r.Subscribe(1)

	for i := 0; i < 5; i++ {
		require.NoError(t, r.Step(frame))
	}
	assert.Len(t, states, 1)
	assert.Equal(t, uint64(1), (<-states).Frame)

	cancel()
	cancel()
	_, open := <-states
	assert.False(t, open, "cancel closes the channel")
}

func TestRunner_KeyEventsAndReset(t *testing.T) {
	r, m := newTestRunner(t, nil)
	resets := 0
	m.EventBus.Subscribe(event.EntitiesReset, func(event.Event) { resets++ })

	assert.True(t, r.KeyDown("w"))
	assert.Equal(t, 1, r.Snapshot().Input.Y)
	assert.True(t, r.KeyUp("w"))
	assert.False(t, r.KeyDown("x"))

	r.Reset()
	assert.Equal(t, 1, resets)

	var frameSeen uint64
	r.WithMatch(func(m *Match) { frameSeen = m.Frame })
	assert.Equal(t, uint64(0), frameSeen)
}

func TestRunner_RunUntilCancelled(t *testing.T) {
	r, m := newTestRunner(t, nil)

	var mu sync.Mutex
	var lifecycle []event.Type
	record := func(e event.Event) {
		mu.Lock()
		lifecycle = append(lifecycle, e.GetType())
		mu.Unlock()
	}
	m.EventBus.Subscribe(event.MatchStarted, record)
	m.EventBus.Subscribe(event.MatchStopped, record)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		return r.Snapshot().Frame >= 3
	}, 2*time.Second, 5*time.Millisecond)
	assert.True(t, r.Running())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, r.Running())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []event.Type{event.MatchStarted, event.MatchStopped}, lifecycle)
}

// TestRunner_ConcurrentInput exercises key events racing frame steps; run with -race.
func TestRunner_ConcurrentInput(t *testing.T) {
	r, _ := newTestRunner(t, nil)
	states, cancel := r.Subscribe(4)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = r.Step(frame)
		}
	}()
	go func() {
		defer wg.Done()
		keys := []string{"w", "a", "s", "d"}
		for i := 0; i < 200; i++ {
			r.KeyDown(keys[i%4])
			r.KeyUp(keys[(i+2)%4])
			if i%50 == 0 {
				r.Reset()
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			select {
			case <-states:
			default:
			}
			_ = r.Snapshot()
		}
	}()

	wg.Wait()
	assert.Equal(t, uint64(200), r.Snapshot().Frame)
}
