package events

import "time"

const (
	EventTypeBookingCreated       = "booking.created.v1"
	EventTypeBookingStatusChanged = "booking.status_changed.v1"
)

// BookingCreatedV1 is recorded when a flow's confirmation is persisted.
type BookingCreatedV1 struct {
	BookingID    string    `json:"booking_id"`
	Code         string    `json:"code"`
	UserID       string    `json:"user_id"`
	BookingType  string    `json:"booking_type"`
	Title        string    `json:"title"`
	ProviderName string    `json:"provider_name,omitempty"`
	BookingDate  string    `json:"booking_date,omitempty"`
	BookingTime  string    `json:"booking_time,omitempty"`
	Amount       int64     `json:"amount"`
	Location     string    `json:"location,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (BookingCreatedV1) EventType() string { return EventTypeBookingCreated }

// BookingStatusChangedV1 is recorded when a booking completes or is cancelled.
type BookingStatusChangedV1 struct {
	BookingID string    `json:"booking_id"`
	Code      string    `json:"code"`
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}

func (BookingStatusChangedV1) EventType() string { return EventTypeBookingStatusChanged }
