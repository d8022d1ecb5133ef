package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/pkg/logging"
)

// BookingsHandler serves a user's booking history.
type BookingsHandler struct {
	service *bookings.Service
	logger  *logging.Logger
}

func NewBookingsHandler(service *bookings.Service, logger *logging.Logger) *BookingsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingsHandler{service: service, logger: logger}
}

func (h *BookingsHandler) Routes(r chi.Router) {
	r.Get("/bookings", h.ListBookings)
	r.Get("/bookings/{bookingID}", h.GetBooking)
	r.Post("/bookings/{bookingID}/cancel", h.CancelBooking)
}

// ListBookings returns the caller's bookings, newest first.
// GET /v1/bookings
// Query params:
//   - status: upcoming | completed | cancelled
//   - type: booking type
//   - limit, offset: paging
func (h *BookingsHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID, _ := requestUserID(r)
	q := r.URL.Query()

	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset, err := intQuery(r, "offset", 0)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	list, err := h.service.ListBookings(r.Context(), userID, bookings.Filter{
		Status: bookings.Status(strings.TrimSpace(q.Get("status"))),
		Type:   bookings.Type(strings.TrimSpace(q.Get("type"))),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		if statusFor(err) == http.StatusInternalServerError {
			h.logger.Error("failed to list bookings", "user_id", userID, "error", err)
		}
		writeDomainError(w, err)
		return
	}
	if list == nil {
		list = []bookings.Booking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": list})
}

// GET /v1/bookings/{bookingID}
func (h *BookingsHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "bookingID")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID, _ := requestUserID(r)
	b, err := h.service.GetBooking(r.Context(), userID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// CancelBooking cancels one of the caller's upcoming bookings.
// POST /v1/bookings/{bookingID}/cancel
func (h *BookingsHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "bookingID")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID, _ := requestUserID(r)
	b, err := h.service.CancelBooking(r.Context(), userID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
