package bootstrap

import (
	"context"
	"sync"
	"time"

	"github.com/wolfman30/carehub/pkg/logging"
)

// Supervisor runs named background loops and waits for them on shutdown.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *logging.Logger

	mu      sync.Mutex
	wg      sync.WaitGroup
	running map[string]struct{}
}

// NewSupervisor derives a cancellable context from parent for its loops.
func NewSupervisor(parent context.Context, logger *logging.Logger) *Supervisor {
	if logger == nil {
		logger = logging.Default()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Supervisor{
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
		running: make(map[string]struct{}),
	}
}

// Go starts fn under name. fn must return once its context is done.
func (s *Supervisor) Go(name string, fn func(ctx context.Context)) {
	s.mu.Lock()
	s.running[name] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("background loop panicked", "loop", name, "panic", r)
			}
			s.mu.Lock()
			delete(s.running, name)
			s.mu.Unlock()
		}()
		s.logger.Info("background loop started", "loop", name)
		fn(s.ctx)
		s.logger.Info("background loop stopped", "loop", name)
	}()
}

// Running reports how many loops have not returned yet.
func (s *Supervisor) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

// Stop cancels every loop and waits up to timeout for them to return.
// It reports whether all loops finished in time.
func (s *Supervisor) Stop(timeout time.Duration) bool {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		s.mu.Lock()
		pending := make([]string, 0, len(s.running))
		for name := range s.running {
			pending = append(pending, name)
		}
		s.mu.Unlock()
		s.logger.Warn("background loops did not stop in time", "pending", pending)
		return false
	}
}
