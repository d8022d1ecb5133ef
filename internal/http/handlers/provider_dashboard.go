package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/identity"
	"github.com/wolfman30/carehub/pkg/logging"
)

// StatusUpdater applies booking status transitions.
type StatusUpdater interface {
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, status bookings.Status) (*bookings.Booking, error)
}

// ProviderDashboardHandler serves the care-provider view over every booking.
type ProviderDashboardHandler struct {
	db      *sql.DB
	updater StatusUpdater
	logger  *logging.Logger
}

// ProviderStatsResponse summarizes bookings in a window.
type ProviderStatsResponse struct {
	PeriodStart string           `json:"period_start"`
	PeriodEnd   string           `json:"period_end"`
	Total       int64            `json:"total"`
	ByStatus    map[string]int64 `json:"by_status"`
	ByType      map[string]int64 `json:"by_type"`
	Revenue     int64            `json:"revenue"`
}

func NewProviderDashboardHandler(db *sql.DB, updater StatusUpdater, logger *logging.Logger) *ProviderDashboardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &ProviderDashboardHandler{db: db, updater: updater, logger: logger}
}

func (h *ProviderDashboardHandler) Routes(r chi.Router) {
	r.Get("/bookings", h.ListBookings)
	r.Get("/stats", h.GetStats)
	r.Patch("/bookings/{bookingID}/status", h.UpdateStatus)
}

type dashboardFilter struct {
	statuses []string
	types    []string
	start    *time.Time
	end      *time.Time
	limit    int
	offset   int
}

func csvQuery(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDashboardFilter(r *http.Request) (dashboardFilter, error) {
	q := r.URL.Query()
	f := dashboardFilter{
		statuses: csvQuery(q.Get("status")),
		types:    csvQuery(q.Get("type")),
	}
	for _, s := range f.statuses {
		if !bookings.Status(s).IsValid() {
			return f, fmt.Errorf("invalid status %q", s)
		}
	}
	for _, t := range f.types {
		if !bookings.Type(t).IsValid() {
			return f, fmt.Errorf("invalid type %q", t)
		}
	}
	start, end, _, _, err := parseWindow(r)
	if err != nil {
		return f, err
	}
	f.start, f.end = start, end
	if f.limit, err = intQuery(r, "limit", 50); err != nil {
		return f, err
	}
	if f.limit == 0 || f.limit > 200 {
		f.limit = 50
	}
	if f.offset, err = intQuery(r, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

// where renders the shared WHERE clause and appends its arguments to args.
func (f dashboardFilter) where(args *[]any) string {
	var clauses []string
	add := func(clause string, v any) {
		*args = append(*args, v)
		clauses = append(clauses, fmt.Sprintf(clause, len(*args)))
	}
	if len(f.statuses) > 0 {
		add("status = ANY($%d)", pq.Array(f.statuses))
	}
	if len(f.types) > 0 {
		add("booking_type = ANY($%d)", pq.Array(f.types))
	}
	if f.start != nil && f.end != nil {
		add("created_at >= $%d", *f.start)
		add("created_at < $%d", *f.end)
	}
	if len(clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(clauses, " AND ")
}

// ListBookings returns bookings across all users.
// GET /v1/provider/bookings
// Query params:
//   - status: comma-separated statuses
//   - type: comma-separated booking types
//   - start, end: RFC3339 window on created_at (both or neither)
//   - limit, offset: paging
func (h *ProviderDashboardHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		jsonError(w, "dashboard disabled", http.StatusServiceUnavailable)
		return
	}
	f, err := parseDashboardFilter(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var args []any
	query := `SELECT id, code, user_id, booking_type, title, provider_name, COALESCE(booking_date::text, ''), booking_time, status, amount, location, notes, created_at, updated_at FROM bookings` + f.where(&args)
	args = append(args, f.limit, f.offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	list, err := h.queryBookings(r.Context(), query, args...)
	if err != nil {
		h.logger.Error("failed to list provider bookings", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": list})
}

func (h *ProviderDashboardHandler) queryBookings(ctx context.Context, query string, args ...any) ([]bookings.Booking, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []bookings.Booking{}
	for rows.Next() {
		var (
			b          bookings.Booking
			bookingTyp string
			status     string
		)
		if err := rows.Scan(&b.ID, &b.Code, &b.UserID, &bookingTyp, &b.Title, &b.ProviderName,
			&b.BookingDate, &b.BookingTime, &status, &b.Amount, &b.Location, &b.Notes,
			&b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.Type = bookings.Type(bookingTyp)
		b.Status = bookings.Status(status)
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetStats returns booking counts by status and type plus revenue from
// bookings that were not cancelled.
// GET /v1/provider/stats
func (h *ProviderDashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		jsonError(w, "dashboard disabled", http.StatusServiceUnavailable)
		return
	}
	start, end, periodStart, periodEnd, err := parseWindow(r)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var args []any
	query := `SELECT status, booking_type, COUNT(*), COALESCE(SUM(amount), 0) FROM bookings` +
		dashboardFilter{start: start, end: end}.where(&args) +
		` GROUP BY status, booking_type`

	rows, err := h.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		h.logger.Error("failed to load provider stats", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	resp := ProviderStatsResponse{
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		ByStatus:    map[string]int64{},
		ByType:      map[string]int64{},
	}
	for rows.Next() {
		var (
			status, bookingType string
			count, amount       int64
		)
		if err := rows.Scan(&status, &bookingType, &count, &amount); err != nil {
			h.logger.Error("failed to scan provider stats", "error", err)
			jsonError(w, "internal error", http.StatusInternalServerError)
			return
		}
		resp.Total += count
		resp.ByStatus[status] += count
		resp.ByType[bookingType] += count
		if status != string(bookings.StatusCancelled) {
			resp.Revenue += amount
		}
	}
	if err := rows.Err(); err != nil {
		h.logger.Error("failed to read provider stats", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type statusUpdateRequest struct {
	Status bookings.Status `json:"status"`
}

// UpdateStatus marks a booking completed or cancelled.
// PATCH /v1/provider/bookings/{bookingID}/status
func (h *ProviderDashboardHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "bookingID")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	var req statusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !req.Status.IsValid() {
		jsonError(w, "invalid status", http.StatusBadRequest)
		return
	}
	b, err := h.updater.UpdateBookingStatus(r.Context(), id, req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	providerID, _ := identity.ProviderIDFromContext(r.Context())
	h.logger.Info("provider updated booking status", "provider_id", providerID, "booking_id", b.ID, "status", b.Status)
	writeJSON(w, http.StatusOK, b)
}

func parseWindow(r *http.Request) (*time.Time, *time.Time, string, string, error) {
	q := r.URL.Query()
	startRaw := strings.TrimSpace(q.Get("start"))
	endRaw := strings.TrimSpace(q.Get("end"))

	if (startRaw == "") != (endRaw == "") {
		return nil, nil, "", "", fmt.Errorf("both start and end must be provided, or neither")
	}
	if startRaw == "" {
		return nil, nil, "all-time", "now", nil
	}
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return nil, nil, "", "", fmt.Errorf("invalid start time, use RFC3339 format")
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return nil, nil, "", "", fmt.Errorf("invalid end time, use RFC3339 format")
	}
	if !end.After(start) {
		return nil, nil, "", "", fmt.Errorf("end must be after start")
	}
	start, end = start.UTC(), end.UTC()
	return &start, &end, start.Format(time.RFC3339), end.Format(time.RFC3339), nil
}
