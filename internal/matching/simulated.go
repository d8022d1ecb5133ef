package matching

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/wolfman30/carehub/pkg/logging"
)

const defaultDelay = 2 * time.Second

// Simulated waits a fixed delay and then picks a candidate uniformly at random.
type Simulated struct {
	pools  map[Kind][]Candidate
	delay  time.Duration
	now    func() time.Time
	logger *logging.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Simulated service.
type Option func(*Simulated)

// WithPools replaces the candidate pools.
func WithPools(pools map[Kind][]Candidate) Option {
	return func(s *Simulated) { s.pools = pools }
}

// WithDelay sets the default delay used when criteria carry none.
func WithDelay(d time.Duration) Option {
	return func(s *Simulated) {
		if d >= 0 {
			s.delay = d
		}
	}
}

// WithSeed makes candidate selection reproducible.
func WithSeed(seed uint64) Option {
	return func(s *Simulated) { s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) }
}

func WithClock(now func() time.Time) Option {
	return func(s *Simulated) { s.now = now }
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *Simulated) { s.logger = logger }
}

// NewSimulated builds a simulated matcher over DefaultPools.
func NewSimulated(opts ...Option) *Simulated {
	s := &Simulated{
		pools: DefaultPools(),
		delay: defaultDelay,
		now:   time.Now,
		rng:   rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = logging.Default()
	}
	return s
}

// Assign blocks for the configured delay, then returns a random candidate.
// The timer is stopped and ctx.Err() returned if ctx ends first.
func (s *Simulated) Assign(ctx context.Context, criteria Criteria) (Assignment, error) {
	delay := s.delay
	if criteria.Delay > 0 {
		delay = criteria.Delay
	}

	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Assignment{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Assignment{}, err
	}

	pool := s.pools[criteria.Kind]
	if len(pool) == 0 {
		return Assignment{}, fmt.Errorf("%w: %s", ErrNoCandidates, criteria.Kind)
	}

	s.mu.Lock()
	pick := pool[s.rng.IntN(len(pool))]
	s.mu.Unlock()

	s.logger.Debug("simulated assignment",
		"kind", criteria.Kind,
		"flow_id", criteria.FlowID,
		"candidate_id", pick.ID,
	)
	return Assignment{Candidate: pick, Kind: criteria.Kind, AssignedAt: s.now().UTC()}, nil
}

var _ Service = (*Simulated)(nil)
