package bookings

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the relational booking store the booking flows write to.
type Repository interface {
	Create(ctx context.Context, userID string, nb NewBooking) (*Booking, error)
	Get(ctx context.Context, id uuid.UUID) (*Booking, error)
	List(ctx context.Context, userID string, filter Filter) ([]Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Booking, error)
}

// InMemoryRepository keeps bookings in process memory. Used for local runs
// and tests.
type InMemoryRepository struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]*Booking
	now      func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		bookings: make(map[uuid.UUID]*Booking),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Create(ctx context.Context, userID string, nb NewBooking) (*Booking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}
	if err := nb.Validate(); err != nil {
		return nil, err
	}

	now := r.now()
	b := &Booking{
		ID:           uuid.New(),
		Code:         nb.Code,
		UserID:       userID,
		Type:         nb.Type,
		Title:        nb.Title,
		ProviderName: nb.ProviderName,
		BookingDate:  nb.BookingDate,
		BookingTime:  nb.BookingTime,
		Status:       StatusUpcoming,
		Amount:       nb.Amount,
		Location:     nb.Location,
		Notes:        nb.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.bookings {
		if b.Code != "" && existing.Code == b.Code {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, b.Code)
		}
	}
	r.bookings[b.ID] = b

	out := *b
	return &out, nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	out := *b
	return &out, nil
}

func (r *InMemoryRepository) List(ctx context.Context, userID string, filter Filter) ([]Booking, error) {
	filter = filter.normalized()

	r.mu.RLock()
	var matched []Booking
	for _, b := range r.bookings {
		if userID != "" && b.UserID != userID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.Type != "" && b.Type != filter.Type {
			continue
		}
		matched = append(matched, *b)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if filter.Offset >= len(matched) {
		return []Booking{}, nil
	}
	matched = matched[filter.Offset:]
	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Booking, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	if !CanTransition(b.Status, status) {
		return nil, ErrInvalidStatusTransition
	}
	b.Status = status
	b.UpdatedAt = r.now()
	out := *b
	return &out, nil
}
