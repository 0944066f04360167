// Package network streams match snapshots to remote spectators over websockets and
// accepts their key events as match input.
package network

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-carsoccer/pkg/config"
	"github.com/opd-ai/go-carsoccer/pkg/logging"
)

// WriteGuard wraps a spectator's writes with a circuit breaker.
// Once too many consecutive writes fail the breaker opens and the spectator is dropped.
type WriteGuard struct {
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
}

// NewWriteGuard creates a WriteGuard configured from the environment settings
func NewWriteGuard(name string, envConfig *config.EnvironmentConfig, logger *logging.Logger) *WriteGuard {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(envConfig.CircuitBreakerMaxRequests),
		Interval:    envConfig.CircuitBreakerInterval,
		Timeout:     envConfig.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(envConfig.CircuitBreakerMaxConsecutiveFails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &WriteGuard{
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
	}
}

// Execute runs a write through the circuit breaker.
// An open breaker fails immediately with gobreaker.ErrOpenState.
func (g *WriteGuard) Execute(ctx context.Context, write func() error) error {
	_, err := g.breaker.Execute(func() (interface{}, error) {
		return nil, write()
	})
	if err != nil {
		g.logger.LogWithContext(ctx, slog.LevelDebug, "guarded write failed",
			"error", err,
			"state", g.breaker.State().String(),
		)
		return fmt.Errorf("circuit breaker: %w", err)
	}
	return nil
}

// Tripped reports whether the breaker is open
func (g *WriteGuard) Tripped() bool {
	return g.breaker.State() == gobreaker.StateOpen
}

// State returns the current state of the circuit breaker
func (g *WriteGuard) State() gobreaker.State {
	return g.breaker.State()
}

// Counts returns the breaker's failure and success counts
func (g *WriteGuard) Counts() gobreaker.Counts {
	return g.breaker.Counts()
}
