package flow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/matching"
	"github.com/wolfman30/carehub/internal/notify"
)

const (
	stepCatalog      Step = "catalog"
	stepSchedule     Step = "schedule"
	stepTechnician   Step = "technician"
	stepConfirmation Step = "confirmation"
)

var testPrices = map[string]int64{"cbc": 349, "lipid": 499, "thyroid": 599}

func testDefinition() *Definition {
	return &Definition{
		Vertical:    "lab",
		Label:       "Lab Test Booking",
		BookingType: bookings.TypeLabTest,
		CodePrefix:  "LAB",
		Graph:       MustLinear(stepCatalog, stepSchedule, stepTechnician, stepConfirmation),
		Prerequisites: map[Step][]string{
			stepSchedule:     {"tests"},
			stepTechnician:   {"date", "time"},
			stepConfirmation: {"technicianName"},
		},
		Required: []string{"tests", "date", "time", "technicianName"},
		Price: func(s State) Quote {
			var q Quote
			for _, id := range s.Strings("tests") {
				q.Items = append(q.Items, LineItem{Label: id, Amount: testPrices[id]})
			}
			if s.Bool("homeCollection") {
				q.AddOns = append(q.AddOns, LineItem{Label: "home collection", Amount: 100})
			}
			return q
		},
		Summarize: func(s State, _ time.Time) Summary {
			return Summary{
				ProviderName: s.String("technicianName"),
				Date:         s.String("date"),
				Time:         s.String("time"),
				ContactEmail: s.String("email"),
			}
		},
		Assignment: &AssignmentSpec{Step: stepTechnician, Kind: matching.KindTechnician, Field: "technician"},
	}
}

type fakePersister struct {
	mu    sync.Mutex
	calls int
	got   []bookings.NewBooking
	errs  []error // returned, in order, before err
	err   error
	gate  chan struct{}
}

func (p *fakePersister) CreateBooking(ctx context.Context, userID string, nb bookings.NewBooking) (*bookings.Booking, error) {
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.got = append(p.got, nb)
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	return &bookings.Booking{
		ID:     uuid.New(),
		Code:   nb.Code,
		UserID: userID,
		Type:   nb.Type,
		Title:  nb.Title,
		Amount: nb.Amount,
		Status: bookings.StatusUpcoming,
	}, nil
}

func (p *fakePersister) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *fakePersister) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// gatedMatcher blocks each Assign until release is closed. When ignoreCtx is
// set it keeps waiting even after cancellation, to model a late result.
type gatedMatcher struct {
	release   chan struct{}
	ignoreCtx bool
	results   []error
	calls     atomic.Int32
}

func newGatedMatcher() *gatedMatcher {
	return &gatedMatcher{release: make(chan struct{})}
}

var errNoTechnician = errors.New("no technician")

func (m *gatedMatcher) Assign(ctx context.Context, c matching.Criteria) (matching.Assignment, error) {
	call := int(m.calls.Add(1)) - 1
	if m.ignoreCtx {
		<-m.release
	} else {
		select {
		case <-ctx.Done():
			return matching.Assignment{}, ctx.Err()
		case <-m.release:
		}
	}
	if call < len(m.results) && m.results[call] != nil {
		return matching.Assignment{}, m.results[call]
	}
	return matching.Assignment{
		Candidate: matching.Candidate{
			ID: "tech-2", Name: "Sneha Iyer", Photo: "/img/t2.jpg", Rating: 4.9, Experience: 8, ETAMinutes: 10,
		},
		Kind:       c.Kind,
		AssignedAt: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Push(_ context.Context, _ string, n notify.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) kinds() []notify.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Kind
	for _, n := range r.sent {
		out = append(out, n.Kind)
	}
	return out
}
