// pkg/resource/manager_test.go
package resource

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/opd-ai/go-carsoccer/pkg/config"
	"github.com/opd-ai/go-carsoccer/pkg/logging"
)

func testEnv() *config.EnvironmentConfig {
	return &config.EnvironmentConfig{
		MaxMemoryMB:           512,
		MaxTasks:              3,
		ShutdownTimeout:       2 * time.Second,
		ResourceCheckInterval: 50 * time.Millisecond,
	}
}

func newTestSupervisor(t *testing.T, env *config.EnvironmentConfig) *Supervisor {
	t.Helper()
	s := NewSupervisor(context.Background(), env, logging.NewLoggerWithWriter(io.Discard, slog.LevelError))
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func TestSupervisor_TaskLimit(t *testing.T) {
	s := newTestSupervisor(t, testEnv())
	release := make(chan struct{})

	for i := 0; i < 3; i++ {
		err := s.Go("blocker", func(ctx context.Context) error {
			<-release
			return nil
		})
		if err != nil {
			t.Fatalf("task %d should start: %v", i, err)
		}
	}

	if err := s.Go("extra", func(ctx context.Context) error { return nil }); err == nil {
		t.Error("Expected error when exceeding the task limit")
	}
	if got := s.Stats().Tasks; got != 3 {
		t.Errorf("Expected 3 tasks, got %d", got)
	}

	close(release)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if got := s.Stats().Tasks; got != 0 {
		t.Errorf("Expected 0 tasks after shutdown, got %d", got)
	}
}

func TestSupervisor_ShutdownCancelsTasks(t *testing.T) {
	s := newTestSupervisor(t, testEnv())
	if err := s.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := s.Start(); err == nil {
		t.Error("second Start should fail")
	}

	stopped := make(chan struct{})
	s.Go("loop", func(ctx context.Context) error {
		<-ctx.Done()
		close(stopped)
		return ctx.Err()
	})

	if err := s.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	select {
	case <-stopped:
	default:
		t.Error("task did not observe cancellation")
	}
	if len(s.Failures()) != 0 {
		t.Errorf("cancellation should not count as failure: %v", s.Failures())
	}
}

func TestSupervisor_ShutdownTimeout(t *testing.T) {
	env := testEnv()
	env.ShutdownTimeout = 50 * time.Millisecond
	s := newTestSupervisor(t, env)

	release := make(chan struct{})
	defer close(release)
	s.Go("stuck", func(ctx context.Context) error {
		<-release
		return nil
	})

	err := s.Shutdown(context.Background())
	if err == nil || !strings.Contains(err.Error(), "shutdown timeout") {
		t.Errorf("Expected shutdown timeout error, got %v", err)
	}
}

func TestSupervisor_RecordsFailures(t *testing.T) {
	s := newTestSupervisor(t, testEnv())
	boom := errors.New("listener died")

	s.Go("failing", func(ctx context.Context) error { return boom })
	s.Go("panicking", func(ctx context.Context) error { panic("oops") })

	deadline := time.Now().Add(2 * time.Second)
	for len(s.Failures()) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	failures := s.Failures()
	if len(failures) != 2 {
		t.Fatalf("Expected 2 failures, got %d", len(failures))
	}
	found := false
	for _, err := range failures {
		if errors.Is(err, boom) {
			found = true
		}
	}
	if !found {
		t.Errorf("failures should wrap the task error: %v", failures)
	}
}

func TestSupervisor_CheckMemoryUsage(t *testing.T) {
	s := newTestSupervisor(t, testEnv())

	s.readMemory = func() uint64 { return 100 << 20 }
	if err := s.CheckMemoryUsage(); err != nil {
		t.Errorf("100MB should be within the limit: %v", err)
	}
	if s.Stats().MemoryUsageMB != 100 {
		t.Errorf("Expected 100MB, got %d", s.Stats().MemoryUsageMB)
	}

	s.readMemory = func() uint64 { return 600 << 20 }
	if err := s.CheckMemoryUsage(); err == nil {
		t.Error("600MB should exceed the limit")
	}
	if s.Stats().LastMemoryCheck.IsZero() {
		t.Error("LastMemoryCheck should be set")
	}
}
