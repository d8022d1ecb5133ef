package flow

import (
	"context"
	"time"

	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/matching"
)

// LineItem is one priced entry of a quote, in whole currency units.
type LineItem struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

// Quote is the price breakdown derived from a flow's state.
type Quote struct {
	Items  []LineItem `json:"items"`
	AddOns []LineItem `json:"add_ons,omitempty"`
}

// Total sums items and add-ons.
func (q Quote) Total() int64 {
	var total int64
	for _, it := range q.Items {
		total += it.Amount
	}
	for _, it := range q.AddOns {
		total += it.Amount
	}
	return total
}

// Summary holds the booking fields a vertical derives from its state.
type Summary struct {
	Title        string
	ProviderName string
	Date         string
	Time         string
	Location     string
	Notes        string
	ContactEmail string
}

// AssignmentSpec configures the provider assignment a vertical runs when the
// flow enters Step. The matched candidate is written to state under keys
// prefixed with Field (technicianName, technicianRating...).
type AssignmentSpec struct {
	Step  Step
	Kind  matching.Kind
	Delay time.Duration
	Field string
}

// Definition describes one vertical's booking flow.
type Definition struct {
	Vertical    string
	Label       string
	BookingType bookings.Type
	CodePrefix  string
	Graph       *Graph

	// Prerequisites lists the fields that must be set to enter a step.
	Prerequisites map[Step][]string
	// Guards add conditional prerequisites and return the missing fields.
	Guards map[Step]func(State) []string

	// Required gates confirmation. Conditional adds state-dependent fields.
	Required    []string
	Conditional func(State) []string

	Initial    func() State
	Price      func(State) Quote
	Summarize  func(s State, now time.Time) Summary
	Assignment *AssignmentSpec
}

func (d *Definition) prerequisitesFor(step Step, s State) []string {
	missing := s.MissingOf(d.Prerequisites[step])
	if guard := d.Guards[step]; guard != nil {
		missing = appendUnique(missing, guard(s)...)
	}
	return missing
}

func (d *Definition) missing(s State) []string {
	missing := s.MissingOf(d.Required)
	if d.Conditional != nil {
		missing = appendUnique(missing, d.Conditional(s)...)
	}
	return missing
}

func (d *Definition) quote(s State) Quote {
	if d.Price == nil {
		return Quote{}
	}
	return d.Price(s)
}

func appendUnique(dst []string, fields ...string) []string {
	for _, f := range fields {
		dup := false
		for _, existing := range dst {
			if existing == f {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, f)
		}
	}
	return dst
}

// Persister writes the booking for a confirmed flow.
type Persister interface {
	CreateBooking(ctx context.Context, userID string, nb bookings.NewBooking) (*bookings.Booking, error)
}

// Observer receives flow lifecycle signals, typically for metrics.
type Observer interface {
	FlowStarted(vertical string)
	FlowEnded(vertical, outcome string)
	Transition(vertical, result string)
	Confirm(vertical, result string)
	Assignment(vertical, result string, latency time.Duration)
}

type nopObserver struct{}

func (nopObserver) FlowStarted(string)                       {}
func (nopObserver) FlowEnded(string, string)                 {}
func (nopObserver) Transition(string, string)                {}
func (nopObserver) Confirm(string, string)                   {}
func (nopObserver) Assignment(string, string, time.Duration) {}
