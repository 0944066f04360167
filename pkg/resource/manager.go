// pkg/resource/manager.go
package resource

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opd-ai/go-carsoccer/pkg/config"
	"github.com/opd-ai/go-carsoccer/pkg/logging"
)

// Supervisor runs the server's long-lived tasks (the simulation loop, the stream server,
// the metrics listener), watches memory, and waits for every task on shutdown.
type Supervisor struct {
	maxMemoryMB     int64
	maxTasks        int64
	shutdownTimeout time.Duration
	checkInterval   time.Duration

	taskCount     int64
	memoryUsageMB int64
	wg            sync.WaitGroup

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.RWMutex
	running bool
	failed  []error
	logger  *logging.Logger

	lastMemoryCheck time.Time
	readMemory      func() uint64
}

// NewSupervisor creates a supervisor from the environment settings. Its tasks share a
// context derived from parent that is cancelled by Shutdown.
func NewSupervisor(parent context.Context, env *config.EnvironmentConfig, logger *logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.NewLogger()
	}
	ctx, cancel := context.WithCancel(parent)

	return &Supervisor{
		maxMemoryMB:     env.MaxMemoryMB,
		maxTasks:        int64(env.MaxTasks),
		shutdownTimeout: env.ShutdownTimeout,
		checkInterval:   env.ResourceCheckInterval,
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
		logger:          logger.WithComponent("supervisor"),
		readMemory:      heapAlloc,
	}
}

func heapAlloc() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc
}

// Context returns the context shared by supervised tasks
func (s *Supervisor) Context() context.Context {
	return s.ctx
}

// Start begins the memory monitoring loop
func (s *Supervisor) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("supervisor already running")
	}
	s.running = true
	s.mu.Unlock()

	go s.monitoringLoop()

	s.logger.Info(s.ctx, "supervisor started",
		"max_memory_mb", s.maxMemoryMB,
		"max_tasks", s.maxTasks,
		"check_interval", s.checkInterval,
	)
	return nil
}

// Go runs fn as a supervised task. A task returning a non-nil error other than
// context cancellation is recorded and logged; a panic is recovered the same way.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) error {
	if current := atomic.LoadInt64(&s.taskCount); current >= s.maxTasks {
		return fmt.Errorf("task limit exceeded: %d/%d", current, s.maxTasks)
	}

	atomic.AddInt64(&s.taskCount, 1)
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer atomic.AddInt64(&s.taskCount, -1)
		defer func() {
			if r := recover(); r != nil {
				s.recordFailure(name, fmt.Errorf("panic: %v", r))
			}
		}()

		if err := fn(s.ctx); err != nil && s.ctx.Err() == nil {
			s.recordFailure(name, err)
		}
	}()

	return nil
}

func (s *Supervisor) recordFailure(name string, err error) {
	s.mu.Lock()
	s.failed = append(s.failed, fmt.Errorf("task %s: %w", name, err))
	s.mu.Unlock()
	s.logger.Error(s.ctx, "supervised task failed", err, "task", name)
}

// Failures returns the errors of tasks that ended abnormally
func (s *Supervisor) Failures() []error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]error(nil), s.failed...)
}

// CheckMemoryUsage samples heap usage and compares it with the limit
func (s *Supervisor) CheckMemoryUsage() error {
	currentMB := int64(s.readMemory() / 1024 / 1024)
	atomic.StoreInt64(&s.memoryUsageMB, currentMB)

	s.mu.Lock()
	s.lastMemoryCheck = time.Now()
	s.mu.Unlock()

	if currentMB > s.maxMemoryMB {
		return fmt.Errorf("memory usage %dMB exceeds limit %dMB", currentMB, s.maxMemoryMB)
	}
	return nil
}

// Stats returns current resource usage
func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Tasks:           atomic.LoadInt64(&s.taskCount),
		MaxTasks:        s.maxTasks,
		MemoryUsageMB:   atomic.LoadInt64(&s.memoryUsageMB),
		MaxMemoryMB:     s.maxMemoryMB,
		LastMemoryCheck: s.lastMemoryCheck,
		FailedTasks:     len(s.failed),
	}
}

// Stats contains resource usage statistics
type Stats struct {
	Tasks           int64     `json:"tasks"`
	MaxTasks        int64     `json:"max_tasks"`
	MemoryUsageMB   int64     `json:"memory_usage_mb"`
	MaxMemoryMB     int64     `json:"max_memory_mb"`
	LastMemoryCheck time.Time `json:"last_memory_check"`
	FailedTasks     int       `json:"failed_tasks"`
}

// Shutdown cancels the task context and waits for every task, up to the shutdown timeout
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	s.logger.Info(ctx, "shutting down supervisor")
	s.cancel()

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if wasRunning {
		select {
		case <-s.done:
		case <-shutdownCtx.Done():
			s.logger.Warn(ctx, "monitoring loop did not stop in time")
		}
	}

	finished := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		s.logger.Info(ctx, "all supervised tasks finished")
		return nil
	case <-shutdownCtx.Done():
		remaining := atomic.LoadInt64(&s.taskCount)
		s.logger.Warn(ctx, "shutdown timeout exceeded", "remaining", remaining)
		return fmt.Errorf("shutdown timeout: %d tasks still running", remaining)
	}
}

func (s *Supervisor) monitoringLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.CheckMemoryUsage(); err != nil {
				s.logger.Error(s.ctx, "memory limit exceeded", err)
			}
			s.logger.Debug(s.ctx, "resource usage",
				"tasks", atomic.LoadInt64(&s.taskCount),
				"memory_mb", atomic.LoadInt64(&s.memoryUsageMB),
			)
		case <-s.ctx.Done():
			return
		}
	}
}
