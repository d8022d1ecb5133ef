package bookings

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type identifies the service vertical a booking was made through.
type Type string

const (
	TypeDoctor      Type = "doctor"
	TypeMedicine    Type = "medicine"
	TypeLabTest     Type = "lab_test"
	TypeNurse       Type = "nurse"
	TypeHomeVisit   Type = "home_visit"
	TypeElderlyCare Type = "elderly_care"
	TypeEmergency   Type = "emergency"
)

// AllTypes lists every vertical in display order.
var AllTypes = []Type{
	TypeDoctor,
	TypeMedicine,
	TypeLabTest,
	TypeNurse,
	TypeHomeVisit,
	TypeElderlyCare,
	TypeEmergency,
}

func (t Type) IsValid() bool {
	switch t {
	case TypeDoctor, TypeMedicine, TypeLabTest, TypeNurse, TypeHomeVisit, TypeElderlyCare, TypeEmergency:
		return true
	}
	return false
}

// Status transitions:
//
//	upcoming → completed
//	upcoming → cancelled
type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusUpcoming, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to Status) bool {
	allowed := map[Status][]Status{
		StatusUpcoming:  {StatusCompleted, StatusCancelled},
		StatusCompleted: {},
		StatusCancelled: {},
	}
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Booking is a persisted booking record.
type Booking struct {
	ID           uuid.UUID `json:"id"`
	Code         string    `json:"code"`
	UserID       string    `json:"user_id"`
	Type         Type      `json:"booking_type"`
	Title        string    `json:"title"`
	ProviderName string    `json:"provider_name"`
	BookingDate  string    `json:"booking_date"`
	BookingTime  string    `json:"booking_time"`
	Status       Status    `json:"status"`
	Amount       int64     `json:"amount"`
	Location     string    `json:"location"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewBooking carries the fields a completed flow hands to the store.
// Status is intentionally absent: the store applies its default.
type NewBooking struct {
	Code         string `json:"code"`
	Type         Type   `json:"booking_type"`
	Title        string `json:"title"`
	ProviderName string `json:"provider_name"`
	BookingDate  string `json:"booking_date"`
	BookingTime  string `json:"booking_time"`
	Amount       int64  `json:"amount"`
	Location     string `json:"location"`
	Notes        string `json:"notes"`

	// ContactEmail is forwarded to the confirmation event only.
	ContactEmail string `json:"-"`
}

// Validate checks the insert payload.
func (n *NewBooking) Validate() error {
	if !n.Type.IsValid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(n.Title) == "" {
		return ErrMissingTitle
	}
	if n.Amount < 0 {
		return ErrNegativeAmount
	}
	if n.BookingDate != "" {
		if _, err := time.Parse(time.DateOnly, n.BookingDate); err != nil {
			return ErrInvalidDate
		}
	}
	return nil
}

// Filter narrows booking lists.
type Filter struct {
	Status Status
	Type   Type
	Limit  int
	Offset int
}

func (f Filter) normalized() Filter {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
