// Package matching assigns a provider (technician, caregiver, ambulance...) to
// a booking. The Simulated service stands in for the real dispatch backend.
package matching

import (
	"context"
	"errors"
	"time"
)

// Kind is the type of provider being matched.
type Kind string

const (
	KindTechnician Kind = "technician"
	KindCaregiver  Kind = "caregiver"
	KindNurse      Kind = "nurse"
	KindDoctor     Kind = "doctor"
	KindAmbulance  Kind = "ambulance"
	KindRider      Kind = "rider"
)

// ErrNoCandidates is returned when nobody in the pool can take the booking.
var ErrNoCandidates = errors.New("matching: no candidates available")

// Criteria describes what needs to be matched.
type Criteria struct {
	Kind     Kind
	FlowID   string
	UserID   string
	Location string
	// Delay overrides the service's default matching delay when positive.
	Delay time.Duration
}

// Candidate is a provider that can be assigned.
type Candidate struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Photo      string  `json:"photo"`
	Rating     float64 `json:"rating"`
	Experience int     `json:"experience_years"`
	ETAMinutes int     `json:"eta_minutes,omitempty"`
	DistanceKM float64 `json:"distance_km,omitempty"`
	Vehicle    string  `json:"vehicle,omitempty"`
}

// Assignment is the outcome of a successful match.
type Assignment struct {
	Candidate
	Kind       Kind      `json:"kind"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Service matches bookings to providers. Assign blocks until a candidate is
// chosen or ctx is done.
type Service interface {
	Assign(ctx context.Context, criteria Criteria) (Assignment, error)
}
