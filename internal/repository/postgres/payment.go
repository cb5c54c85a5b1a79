package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"kostaxi/internal/domain"
	"kostaxi/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

const paymentColumns = `id, ride_id, stripe_payment_intent_id, client_secret, status, amount, currency, metadata,
	customer_email, customer_phone, last_error, created_at, updated_at`

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (ride_id, stripe_payment_intent_id, client_secret, status, amount, currency, metadata,
			customer_email, customer_phone, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	metadata, err := encodeMetadata(payment.Metadata)
	if err != nil {
		return err
	}

	err = r.q.QueryRowContext(ctx, query,
		payment.RideID,
		payment.IntentID,
		nullString(payment.ClientSecret),
		payment.Status,
		payment.Amount,
		payment.Currency,
		metadata,
		nullString(payment.CustomerEmail),
		nullString(payment.CustomerPhone),
		nullString(payment.LastError),
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}

	return nil
}

// GetByRideID retrieves the payment of a ride.
func (r *PaymentRepository) GetByRideID(ctx context.Context, rideID int64) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ride_id = $1`
	return r.getOne(ctx, query, rideID)
}

// GetByIntentID retrieves a payment by its provider intent ID.
func (r *PaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE stripe_payment_intent_id = $1 ORDER BY id LIMIT 1`
	return r.getOne(ctx, query, intentID)
}

func (r *PaymentRepository) getOne(ctx context.Context, query string, arg any) (*domain.Payment, error) {
	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return payment, nil
}

// Update overwrites the mutable fields of a payment.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET stripe_payment_intent_id = $1, client_secret = $2, status = $3, amount = $4, currency = $5,
			metadata = $6, customer_email = $7, customer_phone = $8, last_error = $9, updated_at = now()
		WHERE id = $10
		RETURNING updated_at
	`

	metadata, err := encodeMetadata(payment.Metadata)
	if err != nil {
		return err
	}

	err = r.q.QueryRowContext(ctx, query,
		payment.IntentID,
		nullString(payment.ClientSecret),
		payment.Status,
		payment.Amount,
		payment.Currency,
		metadata,
		nullString(payment.CustomerEmail),
		nullString(payment.CustomerPhone),
		nullString(payment.LastError),
		payment.ID,
	).Scan(&payment.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return err
	}

	return nil
}

// List retrieves payments newest first.
func (r *PaymentRepository) List(ctx context.Context, status string, limit int) ([]*domain.Payment, error) {
	var args []any
	query := `SELECT ` + paymentColumns + ` FROM payments`
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" WHERE status = $%d", len(args))
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// Stats aggregates payment outcomes.
func (r *PaymentRepository) Stats(ctx context.Context) (repository.PaymentStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status <> $1),
			COALESCE(SUM(amount) FILTER (WHERE status = $1), 0)
		FROM payments
	`

	var stats repository.PaymentStats
	err := r.q.QueryRowContext(ctx, query, domain.PaymentStatusSucceeded).Scan(
		&stats.Succeeded,
		&stats.NotSucceeded,
		&stats.RevenueAmount,
	)
	return stats, err
}

func scanPayment(row scanner) (*domain.Payment, error) {
	var payment domain.Payment
	var clientSecret, customerEmail, customerPhone, lastError sql.NullString
	var metadata []byte

	err := row.Scan(
		&payment.ID,
		&payment.RideID,
		&payment.IntentID,
		&clientSecret,
		&payment.Status,
		&payment.Amount,
		&payment.Currency,
		&metadata,
		&customerEmail,
		&customerPhone,
		&lastError,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	payment.ClientSecret = clientSecret.String
	payment.CustomerEmail = customerEmail.String
	payment.CustomerPhone = customerPhone.String
	payment.LastError = lastError.String

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &payment.Metadata); err != nil {
			return nil, fmt.Errorf("decode payment metadata: %w", err)
		}
	}

	return &payment, nil
}

func encodeMetadata(metadata map[string]string) ([]byte, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	return json.Marshal(metadata)
}
