package handlers

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/pkg/logging"
)

// arrayArg matches a pq.Array argument by its Postgres literal.
type arrayArg string

func (a arrayArg) Match(v driver.Value) bool {
	switch got := v.(type) {
	case string:
		return got == string(a)
	case []byte:
		return string(got) == string(a)
	}
	return false
}

var dashboardBookingColumns = []string{
	"id", "code", "user_id", "booking_type", "title", "provider_name", "booking_date", "booking_time",
	"status", "amount", "location", "notes", "created_at", "updated_at",
}

type fakeUpdater struct {
	got    bookings.Status
	result *bookings.Booking
	err    error
}

func (f *fakeUpdater) UpdateBookingStatus(_ context.Context, id uuid.UUID, status bookings.Status) (*bookings.Booking, error) {
	f.got = status
	if f.err != nil {
		return nil, f.err
	}
	b := *f.result
	b.ID = id
	b.Status = status
	return &b, nil
}

func dashboardRouter(h *ProviderDashboardHandler) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1/provider", h.Routes)
	return r
}

func TestProviderDashboardListFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)
	id := uuid.New()
	created := time.Date(2026, 10, 5, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT id, code, user_id.*FROM bookings WHERE status = ANY\(\$1\) AND booking_type = ANY\(\$2\) AND created_at >= \$3 AND created_at < \$4 ORDER BY created_at DESC LIMIT \$5 OFFSET \$6`).
		WithArgs(arrayArg(`{"upcoming","completed"}`), arrayArg(`{"lab_test"}`), start, end, 10, 0).
		WillReturnRows(sqlmock.NewRows(dashboardBookingColumns).
			AddRow(id.String(), "LAB12345678", "user-1", "lab_test", "Lab Test Booking", "Technician Ravi", "2026-10-07", "08:00 AM",
				"upcoming", int64(848), "12 MG Road", "", created, created))

	req := httptest.NewRequest(http.MethodGet, "/v1/provider/bookings?status=upcoming,completed&type=lab_test&start=2026-10-01T00:00:00Z&end=2026-11-01T00:00:00Z&limit=10", nil)
	rec := httptest.NewRecorder()
	dashboardRouter(NewProviderDashboardHandler(db, &fakeUpdater{}, logging.Discard())).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var resp struct {
		Bookings []bookings.Booking `json:"bookings"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Bookings) != 1 || resp.Bookings[0].ID != id {
		t.Fatalf("unexpected bookings %+v", resp.Bookings)
	}
	if resp.Bookings[0].Type != bookings.TypeLabTest || resp.Bookings[0].Amount != 848 {
		t.Fatalf("unexpected booking %+v", resp.Bookings[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProviderDashboardListRejectsBadFilter(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	h := dashboardRouter(NewProviderDashboardHandler(db, &fakeUpdater{}, logging.Discard()))
	for _, q := range []string{"?status=pending", "?type=dentist", "?start=2026-10-01T00:00:00Z"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/provider/bookings"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected status %d, got %d", q, http.StatusBadRequest, rec.Code)
		}
	}
}

func TestProviderDashboardStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT status, booking_type, COUNT\(\*\), COALESCE\(SUM\(amount\), 0\) FROM bookings GROUP BY status, booking_type`).
		WillReturnRows(sqlmock.NewRows([]string{"status", "booking_type", "count", "sum"}).
			AddRow("upcoming", "lab_test", int64(3), int64(2544)).
			AddRow("completed", "nurse", int64(1), int64(1600)).
			AddRow("cancelled", "lab_test", int64(2), int64(1000)))

	rec := httptest.NewRecorder()
	dashboardRouter(NewProviderDashboardHandler(db, &fakeUpdater{}, logging.Discard())).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/provider/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	var resp ProviderStatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 6 {
		t.Fatalf("expected total 6, got %d", resp.Total)
	}
	if resp.ByType["lab_test"] != 5 || resp.ByStatus["cancelled"] != 2 {
		t.Fatalf("unexpected breakdown %+v", resp)
	}
	if resp.Revenue != 4144 {
		t.Fatalf("expected revenue 4144, got %d", resp.Revenue)
	}
	if resp.PeriodStart != "all-time" {
		t.Fatalf("unexpected period start %q", resp.PeriodStart)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestProviderDashboardUpdateStatus(t *testing.T) {
	updater := &fakeUpdater{result: &bookings.Booking{Code: "NRS12345678", Type: bookings.TypeNurse}}
	h := dashboardRouter(NewProviderDashboardHandler(nil, updater, logging.Discard()))
	id := uuid.New()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/v1/provider/bookings/"+id.String()+"/status",
		bytes.NewBufferString(`{"status":"completed"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if updater.got != bookings.StatusCompleted {
		t.Fatalf("expected completed, got %q", updater.got)
	}

	updater.err = bookings.ErrInvalidStatusTransition
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/v1/provider/bookings/"+id.String()+"/status",
		bytes.NewBufferString(`{"status":"cancelled"}`)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/v1/provider/bookings/"+id.String()+"/status",
		bytes.NewBufferString(`{"status":"lost"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestProviderDashboardDisabledWithoutDB(t *testing.T) {
	rec := httptest.NewRecorder()
	dashboardRouter(NewProviderDashboardHandler(nil, &fakeUpdater{}, logging.Discard())).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/provider/stats", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}
