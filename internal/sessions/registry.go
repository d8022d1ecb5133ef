// Package sessions owns the live booking flows of every user.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/carehub/internal/flow"
	"github.com/wolfman30/carehub/pkg/logging"
)

var (
	ErrFlowNotFound    = errors.New("sessions: flow not found")
	ErrUnknownVertical = errors.New("sessions: unknown vertical")
	ErrMissingUser     = errors.New("sessions: user id required")
)

// Definitions resolves a vertical to its flow definition.
type Definitions interface {
	Definition(vertical string) (*flow.Definition, bool)
}

// Factory builds a flow for a user. It lets callers inject collaborators.
type Factory func(def *flow.Definition, userID string) *flow.Flow

type flowKey struct {
	userID   string
	vertical string
}

// Registry tracks live flows. A user has at most one active flow per
// vertical; starting another disposes the previous one.
type Registry struct {
	defs    Definitions
	factory Factory
	ttl     time.Duration
	logger  *logging.Logger
	now     func() time.Time

	mu         sync.Mutex
	flows      map[uuid.UUID]*flow.Flow
	byVertical map[flowKey]uuid.UUID
}

// Config for NewRegistry.
type Config struct {
	IdleTTL time.Duration
	Logger  *logging.Logger
	Now     func() time.Time
}

func NewRegistry(defs Definitions, factory Factory, cfg Config) *Registry {
	if defs == nil || factory == nil {
		panic("sessions: definitions and factory required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	return &Registry{
		defs:       defs,
		factory:    factory,
		ttl:        cfg.IdleTTL,
		logger:     cfg.Logger,
		now:        cfg.Now,
		flows:      make(map[uuid.UUID]*flow.Flow),
		byVertical: make(map[flowKey]uuid.UUID),
	}
}

// Start creates a flow for userID, replacing any active flow of the same
// vertical.
func (r *Registry) Start(userID, vertical string) (*flow.Flow, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	def, ok := r.defs.Definition(vertical)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVertical, vertical)
	}

	f := r.factory(def, userID)
	key := flowKey{userID: userID, vertical: vertical}

	r.mu.Lock()
	var previous *flow.Flow
	if id, exists := r.byVertical[key]; exists {
		previous = r.flows[id]
		delete(r.flows, id)
	}
	r.flows[f.ID()] = f
	r.byVertical[key] = f.ID()
	r.mu.Unlock()

	if previous != nil {
		previous.Dispose()
		r.logger.Debug("replaced active flow", "user_id", userID, "vertical", vertical, "flow_id", previous.ID())
	}
	return f, nil
}

// Get returns the flow if it belongs to userID. Other users' flows read as
// not found.
func (r *Registry) Get(userID string, id uuid.UUID) (*flow.Flow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flows[id]
	if !ok || f.UserID() != userID {
		return nil, ErrFlowNotFound
	}
	return f, nil
}

// End disposes and forgets a flow.
func (r *Registry) End(userID string, id uuid.UUID) error {
	r.mu.Lock()
	f, ok := r.flows[id]
	if !ok || f.UserID() != userID {
		r.mu.Unlock()
		return ErrFlowNotFound
	}
	r.removeLocked(f)
	r.mu.Unlock()

	f.Dispose()
	return nil
}

func (r *Registry) removeLocked(f *flow.Flow) {
	delete(r.flows, f.ID())
	key := flowKey{userID: f.UserID(), vertical: f.Vertical()}
	if r.byVertical[key] == f.ID() {
		delete(r.byVertical, key)
	}
}

// Len returns the number of live flows.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flows)
}

// Sweep disposes flows idle for longer than the TTL and returns how many
// were removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var stale []*flow.Flow
	for _, f := range r.flows {
		if now.Sub(f.LastActive()) > r.ttl {
			stale = append(stale, f)
			r.removeLocked(f)
		}
	}
	r.mu.Unlock()

	for _, f := range stale {
		f.Dispose()
	}
	if len(stale) > 0 {
		r.logger.Info("swept idle flows", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps on every tick until ctx is cancelled, then disposes all flows.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-ticker.C:
			r.Sweep(r.now())
		}
	}
}

// Close disposes every live flow.
func (r *Registry) Close() {
	r.mu.Lock()
	all := make([]*flow.Flow, 0, len(r.flows))
	for _, f := range r.flows {
		all = append(all, f)
	}
	r.flows = make(map[uuid.UUID]*flow.Flow)
	r.byVertical = make(map[flowKey]uuid.UUID)
	r.mu.Unlock()

	for _, f := range all {
		f.Dispose()
	}
}
