package flow

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/carehub/internal/matching"
	"github.com/wolfman30/carehub/internal/notify"
)

// Phase is the state of a flow's provider assignment.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseAssigning Phase = "assigning"
	PhaseAssigned  Phase = "assigned"
	PhaseFailed    Phase = "assignment_failed"
)

type assignment struct {
	phase      Phase
	generation uint64
	cancel     context.CancelFunc
	startedAt  time.Time
	result     *matching.Assignment
	failure    string
}

// AssignmentStatus is a read-only view of the assignment.
type AssignmentStatus struct {
	Phase    Phase                `json:"phase"`
	Kind     matching.Kind        `json:"kind,omitempty"`
	Assignee *matching.Assignment `json:"assignee,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Assignment reports the current assignment phase and result.
func (f *Flow) Assignment() AssignmentStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.assignmentStatusLocked()
}

func (f *Flow) assignmentStatusLocked() AssignmentStatus {
	st := AssignmentStatus{Phase: f.assign.phase, Error: f.assign.failure}
	if st.Phase == "" {
		st.Phase = PhaseIdle
	}
	if spec := f.def.Assignment; spec != nil {
		st.Kind = spec.Kind
	}
	if f.assign.result != nil {
		a := *f.assign.result
		st.Assignee = &a
	}
	return st
}

// RetryAssignment restarts matching after a failure. It is only valid on the
// assignment step.
func (f *Flow) RetryAssignment() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writableLocked(); err != nil {
		return err
	}
	spec := f.def.Assignment
	if spec == nil || f.def.Graph.At(f.current) != spec.Step {
		return ErrNoAssignment
	}
	switch f.assign.phase {
	case PhaseAssigning:
		return ErrAssignmentInProgress
	case PhaseAssigned:
		return nil
	}
	f.startAssignmentLocked()
	return nil
}

// startAssignmentLocked launches matching in the background. The result is
// applied only if the flow is still open and no newer assignment started.
func (f *Flow) startAssignmentLocked() {
	spec := f.def.Assignment
	if f.assign.cancel != nil {
		f.assign.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.assign.generation++
	gen := f.assign.generation
	f.assign.cancel = cancel
	f.assign.phase = PhaseAssigning
	f.assign.failure = ""
	f.assign.result = nil
	f.assign.startedAt = f.now()

	criteria := matching.Criteria{
		Kind:     spec.Kind,
		FlowID:   f.id.String(),
		UserID:   f.userID,
		Location: f.state.String("address"),
		Delay:    spec.Delay,
	}

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer cancel()
		a, err := f.matcher.Assign(ctx, criteria)
		f.finishAssignment(gen, a, err)
	}()
}

func (f *Flow) cancelAssignmentLocked() {
	f.assign.generation++
	if f.assign.cancel != nil {
		f.assign.cancel()
		f.assign.cancel = nil
	}
	if f.assign.phase == PhaseAssigning {
		f.assign.phase = PhaseIdle
	}
}

func (f *Flow) finishAssignment(gen uint64, a matching.Assignment, err error) {
	f.mu.Lock()
	if f.closed || gen != f.assign.generation {
		f.mu.Unlock()
		return
	}
	f.assign.cancel = nil
	latency := f.now().Sub(f.assign.startedAt)
	field := f.def.Assignment.Field

	if err != nil {
		msg := assignmentFailureMessage(err)
		f.assign.phase = PhaseFailed
		f.assign.failure = msg
		f.mu.Unlock()

		f.observer.Assignment(f.def.Vertical, "failed", latency)
		f.logger.Warn("assignment failed", "kind", f.def.Assignment.Kind, "error", err)
		f.push(context.Background(), notify.Failure("No provider available", msg))
		return
	}

	f.assign.phase = PhaseAssigned
	f.assign.result = &a
	f.state.Merge(assigneeFields(field, a))
	f.mu.Unlock()

	f.observer.Assignment(f.def.Vertical, "assigned", latency)
	f.logger.Info("provider assigned", "kind", a.Kind, "assignee_id", a.ID)
}

func assignmentFailureMessage(err error) string {
	if errors.Is(err, matching.ErrNoCandidates) {
		return "No provider is available right now. Please try again."
	}
	return "We couldn't assign a provider. Please try again."
}

// assigneeFields maps a candidate's public fields to state keys.
func assigneeFields(field string, a matching.Assignment) map[string]any {
	fields := map[string]any{
		field + "Id":         a.ID,
		field + "Name":       a.Name,
		field + "Photo":      a.Photo,
		field + "Rating":     a.Rating,
		field + "Experience": a.Experience,
	}
	if a.ETAMinutes > 0 {
		fields[field+"Eta"] = a.ETAMinutes
	}
	if a.DistanceKM > 0 {
		fields[field+"Distance"] = a.DistanceKM
	}
	if a.Vehicle != "" {
		fields[field+"Vehicle"] = a.Vehicle
	}
	return fields
}

// ETARemaining returns the time left until the assigned provider arrives,
// derived from the assignment time and ETA. ok is false when there is no
// ETA to count down.
func (f *Flow) ETARemaining(now time.Time) (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assign.phase != PhaseAssigned || f.assign.result == nil || f.assign.result.ETAMinutes <= 0 {
		return 0, false
	}
	arrival := f.assign.result.AssignedAt.Add(time.Duration(f.assign.result.ETAMinutes) * time.Minute)
	remaining := arrival.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
