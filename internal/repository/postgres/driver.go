package postgres

import (
	"context"
	"database/sql"
	"errors"

	"kostaxi/internal/domain"
	"kostaxi/internal/repository"
)

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// NewDriverRepository creates a new PostgreSQL driver repository.
func NewDriverRepository(db *sql.DB) *DriverRepository {
	return &DriverRepository{q: db}
}

// NewDriverRepositoryWithTx creates a driver repository using a transaction.
func NewDriverRepositoryWithTx(tx *sql.Tx) *DriverRepository {
	return &DriverRepository{q: tx}
}

const driverColumns = `id, name, email, phone, vehicle_model, vehicle_plate, password_hash, is_available,
	current_lat, current_lon, created_at, updated_at, last_login_at`

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (name, email, phone, vehicle_model, vehicle_plate, password_hash, is_available, current_lat, current_lon)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRowContext(ctx, query,
		driver.Name,
		driver.Email,
		driver.Phone,
		driver.VehicleModel,
		driver.VehiclePlate,
		driver.PasswordHash,
		driver.IsAvailable,
		driver.CurrentLat,
		driver.CurrentLon,
	).Scan(&driver.ID, &driver.CreatedAt, &driver.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id int64) (*domain.Driver, error) {
	return r.getOne(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id)
}

// GetByEmail retrieves a driver by email.
func (r *DriverRepository) GetByEmail(ctx context.Context, email string) (*domain.Driver, error) {
	return r.getOne(ctx, `SELECT `+driverColumns+` FROM drivers WHERE email = $1`, email)
}

func (r *DriverRepository) getOne(ctx context.Context, query string, arg any) (*domain.Driver, error) {
	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return driver, nil
}

// List retrieves all drivers, newest first.
func (r *DriverRepository) List(ctx context.Context) ([]*domain.Driver, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// Update overwrites the mutable fields of a driver.
func (r *DriverRepository) Update(ctx context.Context, driver *domain.Driver) error {
	query := `
		UPDATE drivers
		SET name = $1, email = $2, phone = $3, vehicle_model = $4, vehicle_plate = $5, password_hash = $6,
			is_available = $7, current_lat = $8, current_lon = $9, last_login_at = $10, updated_at = now()
		WHERE id = $11
		RETURNING updated_at
	`

	err := r.q.QueryRowContext(ctx, query,
		driver.Name,
		driver.Email,
		driver.Phone,
		driver.VehicleModel,
		driver.VehiclePlate,
		driver.PasswordHash,
		driver.IsAvailable,
		driver.CurrentLat,
		driver.CurrentLon,
		driver.LastLoginAt,
		driver.ID,
	).Scan(&driver.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// Count returns the number of drivers.
func (r *DriverRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM drivers`).Scan(&n)
	return n, err
}

func scanDriver(row scanner) (*domain.Driver, error) {
	var driver domain.Driver
	var lat, lon sql.NullFloat64
	var lastLogin sql.NullTime

	err := row.Scan(
		&driver.ID,
		&driver.Name,
		&driver.Email,
		&driver.Phone,
		&driver.VehicleModel,
		&driver.VehiclePlate,
		&driver.PasswordHash,
		&driver.IsAvailable,
		&lat,
		&lon,
		&driver.CreatedAt,
		&driver.UpdatedAt,
		&lastLogin,
	)
	if err != nil {
		return nil, err
	}

	if lat.Valid {
		driver.CurrentLat = &lat.Float64
	}
	if lon.Valid {
		driver.CurrentLon = &lon.Float64
	}
	if lastLogin.Valid {
		driver.LastLoginAt = &lastLogin.Time
	}

	return &driver, nil
}
