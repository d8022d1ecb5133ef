package bookings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/carehub/internal/events"
	"github.com/wolfman30/carehub/pkg/logging"
)

var bookingsTracer = otel.Tracer("carehub.internal.bookings")

// EventRecorder captures booking events for asynchronous delivery.
type EventRecorder interface {
	Insert(ctx context.Context, aggregateID string, eventType string, payload any) (uuid.UUID, error)
}

// Service writes bookings for completed flows and serves booking history.
type Service struct {
	repo   Repository
	events EventRecorder
	logger *logging.Logger
}

// NewService constructs a bookings service. recorder may be nil.
func NewService(repo Repository, recorder EventRecorder, logger *logging.Logger) *Service {
	if repo == nil {
		panic("bookings: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, events: recorder, logger: logger}
}

// CreateBooking inserts the booking for a confirmed flow.
func (s *Service) CreateBooking(ctx context.Context, userID string, nb NewBooking) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("carehub.user_id", userID),
		attribute.String("carehub.booking_type", string(nb.Type)),
		attribute.String("carehub.booking_code", nb.Code),
	)

	b, err := s.repo.Create(ctx, userID, nb)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create booking")
		return nil, err
	}

	s.record(ctx, b.ID, events.EventTypeBookingCreated, events.BookingCreatedV1{
		BookingID:    b.ID.String(),
		Code:         b.Code,
		UserID:       b.UserID,
		BookingType:  string(b.Type),
		Title:        b.Title,
		ProviderName: b.ProviderName,
		BookingDate:  b.BookingDate,
		BookingTime:  b.BookingTime,
		Amount:       b.Amount,
		Location:     b.Location,
		ContactEmail: nb.ContactEmail,
		CreatedAt:    b.CreatedAt,
	})

	s.logger.Info("booking created",
		"booking_id", b.ID,
		"code", b.Code,
		"user_id", userID,
		"booking_type", b.Type,
		"amount", b.Amount,
	)
	return b, nil
}

// ListBookings returns a user's booking history.
func (s *Service) ListBookings(ctx context.Context, userID string, filter Filter) ([]Booking, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, ErrInvalidType
	}
	return s.repo.List(ctx, userID, filter)
}

// GetBooking returns a booking owned by userID. Bookings owned by someone
// else read as not found.
func (s *Service) GetBooking(ctx context.Context, userID string, id uuid.UUID) (*Booking, error) {
	b, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != "" && b.UserID != userID {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// CancelBooking cancels an upcoming booking on behalf of its owner.
func (s *Service) CancelBooking(ctx context.Context, userID string, id uuid.UUID) (*Booking, error) {
	if _, err := s.GetBooking(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.UpdateBookingStatus(ctx, id, StatusCancelled)
}

// UpdateBookingStatus applies a status transition.
func (s *Service) UpdateBookingStatus(ctx context.Context, id uuid.UUID, status Status) (*Booking, error) {
	ctx, span := bookingsTracer.Start(ctx, "bookings.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("carehub.booking_id", id.String()),
		attribute.String("carehub.booking_status", string(status)),
	)

	b, err := s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.record(ctx, b.ID, events.EventTypeBookingStatusChanged, events.BookingStatusChangedV1{
		BookingID: b.ID.String(),
		Code:      b.Code,
		UserID:    b.UserID,
		Status:    string(b.Status),
		ChangedAt: b.UpdatedAt,
	})
	s.logger.Info("booking status updated", "booking_id", b.ID, "status", b.Status)
	return b, nil
}

// record writes an outbox event. The booking row is already committed, so a
// failure here is logged and not returned.
func (s *Service) record(ctx context.Context, id uuid.UUID, eventType string, payload any) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Insert(ctx, id.String(), eventType, payload); err != nil {
		s.logger.Error("failed to record booking event",
			"booking_id", id,
			"event_type", eventType,
			"error", fmt.Errorf("bookings: record event: %w", err),
		)
	}
}
