// Package flow implements the multi-step booking controller shared by every
// vertical: a validated step graph, an accumulating state, provider
// assignment and an at-most-once confirmation.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/matching"
	"github.com/wolfman30/carehub/internal/notify"
	"github.com/wolfman30/carehub/pkg/logging"
)

var flowTracer = otel.Tracer("carehub.internal.flow")

// Confirmation is the outcome of a persisted flow.
type Confirmation struct {
	BookingID   uuid.UUID `json:"booking_id"`
	Code        string    `json:"code"`
	Amount      int64     `json:"amount"`
	Title       string    `json:"title"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

// Flow is one user's traversal of a vertical. All methods are safe for
// concurrent use; operations on one flow are serialized.
type Flow struct {
	id        uuid.UUID
	userID    string
	def       *Definition
	persister Persister
	matcher   matching.Service
	notifier  notify.Notifier
	observer  Observer
	logger    *logging.Logger
	now       func() time.Time
	createdAt time.Time

	mu         sync.Mutex
	current    int
	history    []int
	state      State
	closed     bool
	confirming bool
	code       string
	lastActive time.Time
	assign     assignment

	// confirmMu serializes Confirm so the persister runs at most once.
	// confirmation is written holding both locks.
	confirmMu    sync.Mutex
	confirmation *Confirmation

	wg sync.WaitGroup
}

// Option configures a Flow.
type Option func(*Flow)

func WithMatcher(m matching.Service) Option { return func(f *Flow) { f.matcher = m } }
func WithNotifier(n notify.Notifier) Option { return func(f *Flow) { f.notifier = n } }
func WithObserver(o Observer) Option        { return func(f *Flow) { f.observer = o } }
func WithLogger(l *logging.Logger) Option   { return func(f *Flow) { f.logger = l } }
func WithClock(now func() time.Time) Option { return func(f *Flow) { f.now = now } }
func WithID(id uuid.UUID) Option            { return func(f *Flow) { f.id = id } }

// New starts a flow for userID at the definition's first step.
func New(def *Definition, userID string, persister Persister, opts ...Option) *Flow {
	if def == nil || def.Graph == nil {
		panic("flow: definition with graph required")
	}
	if persister == nil {
		panic("flow: persister required")
	}

	f := &Flow{
		id:        uuid.New(),
		userID:    userID,
		def:       def,
		persister: persister,
		now:       time.Now,
		state:     State{},
		assign:    assignment{phase: PhaseIdle},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	if f.logger == nil {
		f.logger = logging.Default()
	}
	if f.observer == nil {
		f.observer = nopObserver{}
	}
	if f.matcher == nil && def.Assignment != nil {
		f.matcher = matching.NewSimulated(matching.WithLogger(f.logger))
	}
	if def.Initial != nil {
		f.state.Merge(def.Initial())
	}
	f.createdAt = f.now().UTC()
	f.lastActive = f.createdAt
	f.logger = f.logger.With("flow_id", f.id.String(), "vertical", def.Vertical)
	f.observer.FlowStarted(def.Vertical)
	return f
}

func (f *Flow) ID() uuid.UUID           { return f.id }
func (f *Flow) UserID() string          { return f.userID }
func (f *Flow) Vertical() string        { return f.def.Vertical }
func (f *Flow) Definition() *Definition { return f.def }
func (f *Flow) Steps() []Step           { return f.def.Graph.Steps() }

// Current returns the step being shown.
func (f *Flow) Current() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.def.Graph.At(f.current)
}

// Snapshot returns a copy of the accumulated state.
func (f *Flow) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

// Quote recomputes the price from the current state.
func (f *Flow) Quote() Quote {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.def.quote(f.state)
}

// Missing lists the fields still needed to confirm.
func (f *Flow) Missing() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.def.missing(f.state)
}

// CanConfirm reports whether the confirm action should be enabled.
func (f *Flow) CanConfirm() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.canConfirmLocked()
}

func (f *Flow) canConfirmLocked() bool {
	if f.closed || f.confirmation != nil || f.confirming {
		return false
	}
	g := f.def.Graph
	if !g.Allows(g.At(f.current), g.Terminal()) || len(f.def.missing(f.state)) > 0 {
		return false
	}
	return f.invalidBookingLocked() == nil
}

// invalidBookingLocked validates the booking the current state would save.
func (f *Flow) invalidBookingLocked() error {
	nb := f.newBooking(f.state, f.now())
	return invalidBooking(nb.Validate())
}

// invalidBooking maps the store's payload rejections to ErrIncomplete. Other
// errors, and nil, map to nil.
func invalidBooking(err error) error {
	if errors.Is(err, bookings.ErrInvalidDate) || errors.Is(err, bookings.ErrNegativeAmount) {
		return fmt.Errorf("%w: %w", ErrIncomplete, err)
	}
	return nil
}

// Closed reports whether the flow was disposed.
func (f *Flow) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// LastActive is the time of the last state-changing call.
func (f *Flow) LastActive() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActive
}

// ConfirmationResult returns the confirmation once the booking is saved.
func (f *Flow) ConfirmationResult() (Confirmation, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.confirmation == nil {
		return Confirmation{}, false
	}
	return *f.confirmation, true
}

func (f *Flow) writableLocked() error {
	switch {
	case f.closed:
		return ErrFlowClosed
	case f.confirming:
		return ErrConfirmInProgress
	case f.def.Graph.At(f.current) == f.def.Graph.Terminal():
		return ErrFlowCompleted
	}
	return nil
}

// Update merges partial into the state.
func (f *Flow) Update(partial map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.writableLocked(); err != nil {
		return err
	}
	f.state.Merge(partial)
	f.lastActive = f.now().UTC()
	return nil
}

// Advance moves to step to. It fails without changing anything when to is
// not an edge of the current step or a prerequisite field is missing.
// Advancing into the terminal step confirms the booking.
func (f *Flow) Advance(ctx context.Context, to Step) error {
	return f.AdvanceWith(ctx, to, nil)
}

// AdvanceWith merges partial and moves to step to in one operation. The
// prerequisites of to are checked against the merged state. partial is
// discarded when the edge or a prerequisite check fails.
func (f *Flow) AdvanceWith(ctx context.Context, to Step, partial map[string]any) error {
	g := f.def.Graph

	f.mu.Lock()
	if err := f.writableLocked(); err != nil {
		f.mu.Unlock()
		return err
	}
	from := g.At(f.current)
	if !g.Allows(from, to) {
		f.mu.Unlock()
		f.observer.Transition(f.def.Vertical, "not_allowed")
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, to)
	}
	next := f.state
	if len(partial) > 0 {
		next = f.state.Clone()
		next.Merge(partial)
	}
	if missing := f.def.prerequisitesFor(to, next); len(missing) > 0 {
		f.mu.Unlock()
		f.observer.Transition(f.def.Vertical, "prerequisite_missing")
		return prerequisiteError(to, missing)
	}
	f.state = next
	if to == g.Terminal() {
		f.mu.Unlock()
		_, err := f.Confirm(ctx)
		return err
	}

	f.history = append(f.history, f.current)
	f.current = g.Index(to)
	f.lastActive = f.now().UTC()
	if spec := f.def.Assignment; spec != nil && spec.Step == to && f.assign.phase != PhaseAssigned {
		f.startAssignmentLocked()
	}
	f.mu.Unlock()

	f.observer.Transition(f.def.Vertical, "ok")
	f.logger.Debug("flow advanced", "from", from, "to", to)
	return nil
}

// Back returns to the step the user came from. At the first step, and after
// confirmation, it returns ErrLeaveFlow: the caller disposes the flow and
// navigates home.
func (f *Flow) Back() error {
	g := f.def.Graph

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrFlowClosed
	}
	if f.confirming {
		return ErrConfirmInProgress
	}
	if len(f.history) == 0 || g.At(f.current) == g.Terminal() {
		return ErrLeaveFlow
	}

	leaving := g.At(f.current)
	if spec := f.def.Assignment; spec != nil && spec.Step == leaving && f.assign.phase == PhaseAssigning {
		f.cancelAssignmentLocked()
	}
	f.current = f.history[len(f.history)-1]
	f.history = f.history[:len(f.history)-1]
	f.lastActive = f.now().UTC()
	f.observer.Transition(f.def.Vertical, "back")
	return nil
}

// Confirm validates the required fields and persists the booking. The
// persister is called at most once per flow: once a booking is saved every
// later call returns the same confirmation. On a persist error the flow stays
// on its step and the user may retry.
func (f *Flow) Confirm(ctx context.Context) (*Confirmation, error) {
	f.confirmMu.Lock()
	defer f.confirmMu.Unlock()

	if f.confirmation != nil {
		f.observer.Confirm(f.def.Vertical, "duplicate")
		c := *f.confirmation
		return &c, nil
	}

	g := f.def.Graph
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFlowClosed
	}
	from := g.At(f.current)
	if !g.Allows(from, g.Terminal()) {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, from, g.Terminal())
	}
	if missing := f.def.missing(f.state); len(missing) > 0 {
		f.mu.Unlock()
		f.observer.Confirm(f.def.Vertical, "incomplete")
		return nil, incompleteError(missing)
	}

	snapshot := f.state.Clone()
	if f.code == "" {
		f.code = bookings.GenerateCode(f.def.CodePrefix, f.now())
	}
	nb := f.newBooking(snapshot, f.now())
	if err := invalidBooking(nb.Validate()); err != nil {
		f.mu.Unlock()
		f.observer.Confirm(f.def.Vertical, "incomplete")
		return nil, err
	}
	f.confirming = true
	f.mu.Unlock()

	ctx, span := flowTracer.Start(ctx, "flow.confirm")
	defer span.End()
	span.SetAttributes(
		attribute.String("carehub.flow_id", f.id.String()),
		attribute.String("carehub.vertical", f.def.Vertical),
		attribute.Int64("carehub.amount", nb.Amount),
	)

	saved, err := f.persist(ctx, nb)

	f.mu.Lock()
	f.confirming = false
	if bad := invalidBooking(err); bad != nil {
		f.mu.Unlock()
		f.observer.Confirm(f.def.Vertical, "incomplete")
		return nil, bad
	}
	if err != nil {
		if errors.Is(err, bookings.ErrDuplicateCode) {
			f.code = ""
		}
		f.mu.Unlock()
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist booking")
		f.observer.Confirm(f.def.Vertical, "failed")
		f.logger.Error("booking persist failed", "user_id", f.userID, "error", err)
		f.push(ctx, notify.Failure("Booking not saved", "We couldn't save your booking. Please try again."))
		return nil, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	conf := &Confirmation{
		BookingID:   saved.ID,
		Code:        saved.Code,
		Amount:      saved.Amount,
		Title:       saved.Title,
		ConfirmedAt: f.now().UTC(),
	}
	f.confirmation = conf
	if !f.closed {
		f.history = append(f.history, f.current)
		f.current = g.Index(g.Terminal())
		f.lastActive = conf.ConfirmedAt
	}
	f.mu.Unlock()

	f.observer.Confirm(f.def.Vertical, "ok")
	f.logger.Info("booking confirmed", "user_id", f.userID, "booking_id", saved.ID, "code", saved.Code, "amount", saved.Amount)
	f.push(ctx, notify.Success("Booking confirmed", fmt.Sprintf("Your booking %s is confirmed.", saved.Code)))

	c := *conf
	return &c, nil
}

// codeAttempts bounds how many display codes one confirm tries.
const codeAttempts = 5

// persist writes nb, drawing a new display code while the store reports the
// current one as taken.
func (f *Flow) persist(ctx context.Context, nb bookings.NewBooking) (*bookings.Booking, error) {
	for attempt := 1; ; attempt++ {
		saved, err := f.persister.CreateBooking(ctx, f.userID, nb)
		if !errors.Is(err, bookings.ErrDuplicateCode) || attempt == codeAttempts {
			return saved, err
		}
		taken := nb.Code
		f.mu.Lock()
		f.code = bookings.GenerateCode(f.def.CodePrefix, f.now().Add(time.Duration(attempt)*time.Millisecond))
		nb.Code = f.code
		f.mu.Unlock()
		f.logger.Warn("booking code taken, drawing another", "taken", taken, "code", nb.Code)
	}
}

func (f *Flow) newBooking(s State, now time.Time) bookings.NewBooking {
	var sum Summary
	if f.def.Summarize != nil {
		sum = f.def.Summarize(s, now)
	}
	if sum.Title == "" {
		sum.Title = f.def.Label
	}
	return bookings.NewBooking{
		Code:         f.code,
		Type:         f.def.BookingType,
		Title:        sum.Title,
		ProviderName: sum.ProviderName,
		BookingDate:  sum.Date,
		BookingTime:  sum.Time,
		Amount:       f.def.quote(s).Total(),
		Location:     sum.Location,
		Notes:        sum.Notes,
		ContactEmail: sum.ContactEmail,
	}
}

// Dispose cancels pending work and closes the flow. Later calls are no-ops.
func (f *Flow) Dispose() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.cancelAssignmentLocked()
	outcome := "abandoned"
	if f.confirmation != nil {
		outcome = "confirmed"
	}
	f.mu.Unlock()

	f.observer.FlowEnded(f.def.Vertical, outcome)
	f.logger.Debug("flow disposed", "outcome", outcome)
}

// Wait blocks until background assignment work has returned.
func (f *Flow) Wait() { f.wg.Wait() }

func (f *Flow) push(ctx context.Context, n notify.Notification) {
	if f.notifier == nil {
		return
	}
	if err := f.notifier.Push(context.WithoutCancel(ctx), f.userID, n); err != nil && !errors.Is(err, context.Canceled) {
		f.logger.Warn("failed to push notification", "error", err)
	}
}
