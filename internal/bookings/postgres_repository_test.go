package bookings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

var bookingRowColumns = []string{
	"id", "code", "user_id", "booking_type", "title", "provider_name", "booking_date",
	"booking_time", "status", "amount", "location", "notes", "created_at", "updated_at",
}

func TestPostgresRepository_CreateUsesStoreDefaults(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock)
	now := time.Now().UTC()
	id := uuid.New()

	mock.ExpectQuery("INSERT INTO bookings").
		WithArgs(pgxmock.AnyArg(), "LAB12345678", "user-1", "lab_test", "Lab Test Booking", "Tech A",
			"2026-11-02", "09:00 AM", int64(848), "", "").
		WillReturnRows(pgxmock.NewRows(bookingRowColumns).AddRow(
			id, "LAB12345678", "user-1", "lab_test", "Lab Test Booking", "Tech A", "2026-11-02",
			"09:00 AM", "upcoming", int64(848), "", "", now, now,
		))

	b, err := repo.Create(context.Background(), "user-1", NewBooking{
		Code:         "LAB12345678",
		Type:         TypeLabTest,
		Title:        "Lab Test Booking",
		ProviderName: "Tech A",
		BookingDate:  "2026-11-02",
		BookingTime:  "09:00 AM",
		Amount:       848,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if b.ID != id || b.Status != StatusUpcoming || b.Amount != 848 {
		t.Fatalf("unexpected booking: %#v", b)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_CreateValidates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepositoryWithDB(mock)

	if _, err := repo.Create(context.Background(), "", NewBooking{Type: TypeDoctor, Title: "x"}); !errors.Is(err, ErrMissingUserID) {
		t.Fatalf("expected ErrMissingUserID, got %v", err)
	}
	if _, err := repo.Create(context.Background(), "u", NewBooking{Type: "spa", Title: "x"}); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no queries expected: %v", err)
	}
}

func TestPostgresRepository_CreateReportsTakenCode(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()
	repo := NewPostgresRepositoryWithDB(mock)
	nb := NewBooking{Code: "LAB12345678", Type: TypeLabTest, Title: "Lab Test Booking"}

	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "bookings_code_key"})
	if _, err := repo.Create(context.Background(), "user-1", nb); !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}

	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "bookings_pkey"})
	if _, err := repo.Create(context.Background(), "user-1", nb); err == nil || errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("expected a plain insert error for other constraints, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_ListAppliesFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := NewPostgresRepositoryWithDB(mock)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM bookings WHERE user_id = \$1 AND status = \$2 AND booking_type = \$3 ORDER BY created_at DESC LIMIT \$4 OFFSET \$5`).
		WithArgs("user-1", "upcoming", "doctor", 50, 0).
		WillReturnRows(pgxmock.NewRows(bookingRowColumns).
			AddRow(uuid.New(), "DOC1", "user-1", "doctor", "Consult", "Dr. A", "2026-11-01", "10:00 AM", "upcoming", int64(500), "", "", now, now).
			AddRow(uuid.New(), "DOC2", "user-1", "doctor", "Consult", "Dr. B", "", "", "upcoming", int64(700), "", "", now, now))

	list, err := repo.List(context.Background(), "user-1", Filter{Status: StatusUpcoming, Type: TypeDoctor})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 || list[1].Code != "DOC2" {
		t.Fatalf("unexpected list: %#v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_UpdateStatus(t *testing.T) {
	t.Run("upcoming booking is cancelled", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatalf("failed to create pgx mock: %v", err)
		}
		defer mock.Close()

		repo := NewPostgresRepositoryWithDB(mock)
		id := uuid.New()
		now := time.Now().UTC()
		mock.ExpectQuery("UPDATE bookings SET status").
			WithArgs("cancelled", id).
			WillReturnRows(pgxmock.NewRows(bookingRowColumns).AddRow(
				id, "NRS1", "user-1", "nurse", "Nurse", "", "", "", "cancelled", int64(0), "", "", now, now,
			))

		b, err := repo.UpdateStatus(context.Background(), id, StatusCancelled)
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if b.Status != StatusCancelled {
			t.Fatalf("status = %s", b.Status)
		}
	})

	t.Run("settled booking rejects transition", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatalf("failed to create pgx mock: %v", err)
		}
		defer mock.Close()

		repo := NewPostgresRepositoryWithDB(mock)
		id := uuid.New()
		now := time.Now().UTC()
		mock.ExpectQuery("UPDATE bookings SET status").
			WithArgs("completed", id).
			WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT id").
			WithArgs(id).
			WillReturnRows(pgxmock.NewRows(bookingRowColumns).AddRow(
				id, "NRS1", "user-1", "nurse", "Nurse", "", "", "", "cancelled", int64(0), "", "", now, now,
			))

		if _, err := repo.UpdateStatus(context.Background(), id, StatusCompleted); !errors.Is(err, ErrInvalidStatusTransition) {
			t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
		}
	})

	t.Run("unknown booking", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		if err != nil {
			t.Fatalf("failed to create pgx mock: %v", err)
		}
		defer mock.Close()

		repo := NewPostgresRepositoryWithDB(mock)
		id := uuid.New()
		mock.ExpectQuery("UPDATE bookings SET status").WithArgs("cancelled", id).WillReturnError(pgx.ErrNoRows)
		mock.ExpectQuery("SELECT id").WithArgs(id).WillReturnError(pgx.ErrNoRows)

		if _, err := repo.UpdateStatus(context.Background(), id, StatusCancelled); !errors.Is(err, ErrBookingNotFound) {
			t.Fatalf("expected ErrBookingNotFound, got %v", err)
		}
	})

	t.Run("reopening is never allowed", func(t *testing.T) {
		repo := NewPostgresRepositoryWithDB(mustMock(t))
		if _, err := repo.UpdateStatus(context.Background(), uuid.New(), StatusUpcoming); !errors.Is(err, ErrInvalidStatusTransition) {
			t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
		}
	})
}

func mustMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}
