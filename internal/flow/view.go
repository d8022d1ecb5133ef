package flow

import (
	"time"

	"github.com/google/uuid"
)

// View is the JSON representation of a flow sent to the client.
type View struct {
	ID           uuid.UUID        `json:"id"`
	Vertical     string           `json:"vertical"`
	Step         Step             `json:"step"`
	StepIndex    int              `json:"step_index"`
	Steps        []Step           `json:"steps"`
	Next         []Step           `json:"next"`
	State        State            `json:"state"`
	Quote        Quote            `json:"quote"`
	Total        int64            `json:"total"`
	Missing      []string         `json:"missing"`
	CanConfirm   bool             `json:"can_confirm"`
	Assignment   AssignmentStatus `json:"assignment"`
	ETASeconds   *int64           `json:"eta_seconds,omitempty"`
	Confirmation *Confirmation    `json:"confirmation,omitempty"`
	Closed       bool             `json:"closed"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// View renders the flow. Totals are computed from the state at call time.
func (f *Flow) View() View {
	now := f.now()

	f.mu.Lock()
	defer f.mu.Unlock()

	g := f.def.Graph
	step := g.At(f.current)
	quote := f.def.quote(f.state)
	missing := f.def.missing(f.state)
	if missing == nil {
		missing = []string{}
	}
	next := g.Next(step)
	if next == nil {
		next = []Step{}
	}

	v := View{
		ID:         f.id,
		Vertical:   f.def.Vertical,
		Step:       step,
		StepIndex:  f.current,
		Steps:      g.Steps(),
		Next:       next,
		State:      f.state.Clone(),
		Quote:      quote,
		Total:      quote.Total(),
		Missing:    missing,
		CanConfirm: f.canConfirmLocked(),
		Assignment: f.assignmentStatusLocked(),
		Closed:     f.closed,
		CreatedAt:  f.createdAt,
		UpdatedAt:  f.lastActive,
	}
	if f.confirmation != nil {
		c := *f.confirmation
		v.Confirmation = &c
	}
	if a := f.assign.result; f.assign.phase == PhaseAssigned && a != nil && a.ETAMinutes > 0 {
		remaining := a.AssignedAt.Add(time.Duration(a.ETAMinutes) * time.Minute).Sub(now)
		secs := int64(max(remaining, 0) / time.Second)
		v.ETASeconds = &secs
	}
	return v
}
