package bookings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const bookingColumns = `id, code, user_id, booking_type, title, provider_name, COALESCE(booking_date::text, ''), booking_time, status, amount, location, notes, created_at, updated_at`

// PostgresRepository stores bookings in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("bookings: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting mocks for tests.
func NewPostgresRepositoryWithDB(db DB) *PostgresRepository {
	if db == nil {
		panic("bookings: db required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a booking row. Status is left to the column default.
func (r *PostgresRepository) Create(ctx context.Context, userID string, nb NewBooking) (*Booking, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}
	if err := nb.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	row := r.db.QueryRow(ctx, `
		INSERT INTO bookings (id, code, user_id, booking_type, title, provider_name, booking_date, booking_time, amount, location, notes)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, '')::date, $8, $9, $10, $11)
		RETURNING `+bookingColumns,
		id, nb.Code, userID, string(nb.Type), nb.Title, nb.ProviderName,
		nb.BookingDate, nb.BookingTime, nb.Amount, nb.Location, nb.Notes,
	)
	b, err := scanBooking(row)
	if err != nil {
		if isDuplicateCode(err) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateCode, nb.Code)
		}
		return nil, fmt.Errorf("bookings: insert: %w", err)
	}
	return b, nil
}

const codeConstraint = "bookings_code_key"

func isDuplicateCode(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return false
	}
	return pgErr.ConstraintName == "" || pgErr.ConstraintName == codeConstraint
}

// Get loads a single booking.
func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("bookings: get: %w", err)
	}
	return b, nil
}

// List returns a user's bookings, newest first.
func (r *PostgresRepository) List(ctx context.Context, userID string, filter Filter) ([]Booking, error) {
	filter = filter.normalized()

	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1`
	args := []any{userID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += fmt.Sprintf(" AND booking_type = $%d", len(args))
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("bookings: list: %w", err)
	}
	defer rows.Close()

	out := []Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("bookings: scan: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// UpdateStatus moves an upcoming booking to completed or cancelled.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Booking, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	if !CanTransition(StatusUpcoming, status) {
		return nil, ErrInvalidStatusTransition
	}

	row := r.db.QueryRow(ctx, `
		UPDATE bookings SET status = $1, updated_at = now()
		WHERE id = $2 AND status = 'upcoming'
		RETURNING `+bookingColumns, string(status), id)
	b, err := scanBooking(row)
	if err == nil {
		return b, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("bookings: update status: %w", err)
	}

	// Nothing updated: either the booking is unknown or already settled.
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrInvalidStatusTransition
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b           Booking
		bookingType string
		status      string
	)
	if err := row.Scan(
		&b.ID, &b.Code, &b.UserID, &bookingType, &b.Title, &b.ProviderName,
		&b.BookingDate, &b.BookingTime, &status, &b.Amount, &b.Location, &b.Notes,
		&b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	b.Type = Type(bookingType)
	b.Status = Status(status)
	return &b, nil
}
