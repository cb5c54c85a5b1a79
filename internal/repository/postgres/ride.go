package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"kostaxi/internal/domain"
	"kostaxi/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `id, rider_name, user_email, user_phone, driver_id, pickup_address, dest_address, status, fare, distance_km,
	estimated_duration_minutes, passenger_count, scheduled_time, notes, payment_intent_id, payment_status, created_at, updated_at`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (rider_name, user_email, user_phone, driver_id, pickup_address, dest_address, status, fare, distance_km,
			estimated_duration_minutes, passenger_count, scheduled_time, notes, payment_intent_id, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at, updated_at
	`

	var scheduled sql.NullTime
	if !ride.ScheduledTime.IsZero() {
		scheduled = sql.NullTime{Time: ride.ScheduledTime, Valid: true}
	}

	paymentStatus := ride.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = domain.PaymentStatusPending
	}

	err := r.q.QueryRowContext(ctx, query,
		nullString(ride.RiderName),
		nullString(ride.UserEmail),
		nullString(ride.UserPhone),
		nullInt64(ride.DriverID),
		ride.PickupAddress,
		ride.DropoffAddress,
		ride.Status,
		ride.Fare,
		ride.DistanceKm,
		ride.EstimatedDurationMinutes,
		ride.PassengerCount,
		scheduled,
		nullString(ride.Notes),
		nullString(ride.PaymentIntentID),
		paymentStatus,
	).Scan(&ride.ID, &ride.CreatedAt, &ride.UpdatedAt)
	if err != nil {
		return err
	}

	ride.PaymentStatus = paymentStatus
	return nil
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id int64) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// List retrieves rides matching filter, newest first.
func (r *RideRepository) List(ctx context.Context, filter repository.RideFilter) ([]*domain.Ride, error) {
	var (
		conditions []string
		args       []any
	)

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.DriverID > 0 {
		args = append(args, filter.DriverID)
		conditions = append(conditions, fmt.Sprintf("driver_id = $%d", len(args)))
	}
	switch filter.PaymentStatus {
	case "":
	case repository.PaymentStatusUnpaid:
		args = append(args, domain.PaymentStatusSucceeded)
		conditions = append(conditions, fmt.Sprintf("payment_status <> $%d", len(args)))
	default:
		args = append(args, filter.PaymentStatus)
		conditions = append(conditions, fmt.Sprintf("payment_status = $%d", len(args)))
	}

	query := `SELECT ` + rideColumns + ` FROM rides`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// CompareAndSetStatus conditionally moves a ride between statuses.
// Under READ COMMITTED a concurrent writer blocks on the row lock and
// re-evaluates the WHERE clause, so at most one caller wins.
func (r *RideRepository) CompareAndSetStatus(ctx context.Context, id int64, from, to domain.RideStatus, driverID int64) (*domain.Ride, error) {
	query := `
		UPDATE rides
		SET status = $1, driver_id = COALESCE($2, driver_id), updated_at = now()
		WHERE id = $3 AND status = $4
		RETURNING ` + rideColumns

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, to, nullInt64(driverID), id, from))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrStateChanged
		}
		return nil, err
	}
	return ride, nil
}

// SetPaymentLink updates the denormalized payment fields of a ride.
func (r *RideRepository) SetPaymentLink(ctx context.Context, id int64, intentID, status string) error {
	query := `
		UPDATE rides
		SET payment_intent_id = $1, payment_status = $2, updated_at = now()
		WHERE id = $3
	`

	result, err := r.q.ExecContext(ctx, query, nullString(intentID), status, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// CountByStatus returns ride counts grouped by status.
func (r *RideRepository) CountByStatus(ctx context.Context) (map[domain.RideStatus]int, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT status, COUNT(*) FROM rides GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.RideStatus]int)
	for rows.Next() {
		var status domain.RideStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func scanRide(row scanner) (*domain.Ride, error) {
	var ride domain.Ride
	var riderName, userEmail, userPhone, notes, paymentIntentID sql.NullString
	var driverID sql.NullInt64
	var scheduled sql.NullTime

	err := row.Scan(
		&ride.ID,
		&riderName,
		&userEmail,
		&userPhone,
		&driverID,
		&ride.PickupAddress,
		&ride.DropoffAddress,
		&ride.Status,
		&ride.Fare,
		&ride.DistanceKm,
		&ride.EstimatedDurationMinutes,
		&ride.PassengerCount,
		&scheduled,
		&notes,
		&paymentIntentID,
		&ride.PaymentStatus,
		&ride.CreatedAt,
		&ride.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ride.RiderName = riderName.String
	ride.UserEmail = userEmail.String
	ride.UserPhone = userPhone.String
	ride.Notes = notes.String
	ride.PaymentIntentID = paymentIntentID.String
	if driverID.Valid {
		ride.DriverID = driverID.Int64
	}
	if scheduled.Valid {
		ride.ScheduledTime = scheduled.Time
	}

	return &ride, nil
}
