package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kostaxi/internal/auth"
	"kostaxi/internal/domain"
	"kostaxi/internal/logger"
	"kostaxi/internal/redis"
	"kostaxi/internal/repository"
)

const (
	defaultNearbyRadiusKm = 5.0
	maxNearbyRadiusKm     = 50.0
)

// TokenIssuer issues and verifies driver tokens.
type TokenIssuer interface {
	GeneratePair(driverID int64, email string) (*auth.TokenPair, error)
	Validate(token, tokenType string) (*auth.Claims, error)
}

// Ensure JWTService implements TokenIssuer.
var _ TokenIssuer = (*auth.JWTService)(nil)

// DriverService handles driver registration, authentication, profile
// updates and positions.
type DriverService struct {
	store         repository.Store
	tokens        TokenIssuer
	locationStore redis.LocationStoreInterface
	log           *logger.Logger
	now           func() time.Time
}

// NewDriverService creates a new DriverService. locationStore may be nil,
// which disables the geo index.
func NewDriverService(
	store repository.Store,
	tokens TokenIssuer,
	locationStore redis.LocationStoreInterface,
	log *logger.Logger,
) *DriverService {
	return &DriverService{
		store:         store,
		tokens:        tokens,
		locationStore: locationStore,
		log:           logger.OrNop(log).Named("drivers"),
		now:           time.Now,
	}
}

// RegisterDriverInput contains the fields of a new driver.
type RegisterDriverInput struct {
	Name         string
	Email        string
	Password     string
	Phone        string
	VehicleModel string
	VehiclePlate string
}

// AuthResult is a driver with a freshly issued token pair.
type AuthResult struct {
	Driver *domain.Driver
	Tokens *auth.TokenPair
}

// Register creates an available driver.
func (s *DriverService) Register(ctx context.Context, in RegisterDriverInput) (*domain.Driver, error) {
	fields := []struct{ name, value string }{
		{"name", in.Name},
		{"email", in.Email},
		{"password", in.Password},
		{"phone", in.Phone},
		{"vehicle_model", in.VehicleModel},
		{"vehicle_plate", in.VehiclePlate},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Message: "Missing required fields: " + strings.Join(missing, ", ")}
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	driver := &domain.Driver{
		Name:         strings.TrimSpace(in.Name),
		Email:        domain.NormalizeEmail(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		VehicleModel: strings.TrimSpace(in.VehicleModel),
		VehiclePlate: strings.TrimSpace(in.VehiclePlate),
		PasswordHash: hash,
		IsAvailable:  true,
	}

	if err := s.store.Drivers().Create(ctx, driver); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDriverExists
		}
		return nil, fmt.Errorf("create driver: %w", err)
	}

	s.log.Info("driver registered", logger.Int64("driver_id", driver.ID))
	return driver, nil
}

// Signup registers a driver and issues tokens.
func (s *DriverService) Signup(ctx context.Context, in RegisterDriverInput) (*AuthResult, error) {
	driver, err := s.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.issue(driver)
}

// Login checks credentials, records the login time and issues tokens.
func (s *DriverService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, &ValidationError{Message: "Email and password are required"}
	}

	driver, err := s.store.Drivers().GetByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load driver: %w", err)
	}
	if !auth.CheckPassword(driver.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	driver.LastLoginAt = &now
	if err := s.store.Drivers().Update(ctx, driver); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	return s.issue(driver)
}

// Refresh exchanges a refresh token for a new token pair.
func (s *DriverService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, &ValidationError{Message: "Refresh token is required"}
	}

	claims, err := s.tokens.Validate(refreshToken, auth.TokenTypeRefresh)
	if errors.Is(err, auth.ErrExpiredToken) {
		return nil, ErrExpiredToken
	}
	if err != nil {
		return nil, ErrInvalidToken
	}

	driver, err := s.store.Drivers().GetByID(ctx, claims.DriverID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load driver: %w", err)
	}

	return s.tokens.GeneratePair(driver.ID, driver.Email)
}

func (s *DriverService) issue(driver *domain.Driver) (*AuthResult, error) {
	pair, err := s.tokens.GeneratePair(driver.ID, driver.Email)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	return &AuthResult{Driver: driver, Tokens: pair}, nil
}

// Get returns a driver.
func (s *DriverService) Get(ctx context.Context, id int64) (*domain.Driver, error) {
	driver, err := s.store.Drivers().GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, ErrDriverNotFound)
	}
	return driver, nil
}

// List returns every driver, newest first.
func (s *DriverService) List(ctx context.Context) ([]*domain.Driver, error) {
	return s.store.Drivers().List(ctx)
}

// DriverUpdate holds the profile fields to change. Nil fields are kept;
// an empty password is ignored.
type DriverUpdate struct {
	Name         *string
	Phone        *string
	VehicleModel *string
	VehiclePlate *string
	Password     *string
}

// Update changes a driver's profile.
func (s *DriverService) Update(ctx context.Context, id int64, upd DriverUpdate) (*domain.Driver, error) {
	var hash string
	if upd.Password != nil && *upd.Password != "" {
		h, err := auth.HashPassword(*upd.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	return s.modify(ctx, id, func(d *domain.Driver) error {
		if upd.Name != nil {
			d.Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Phone != nil {
			d.Phone = strings.TrimSpace(*upd.Phone)
		}
		if upd.VehicleModel != nil {
			d.VehicleModel = strings.TrimSpace(*upd.VehicleModel)
		}
		if upd.VehiclePlate != nil {
			d.VehiclePlate = strings.TrimSpace(*upd.VehiclePlate)
		}
		if hash != "" {
			d.PasswordHash = hash
		}
		return nil
	})
}

// UpdateLocation stores a driver's position and, for available drivers,
// publishes it to the geo index.
func (s *DriverService) UpdateLocation(ctx context.Context, id int64, lat, lon float64) (*domain.Driver, error) {
	if !isValidLatitude(lat) || !isValidLongitude(lon) {
		return nil, &ValidationError{Message: "Invalid location data"}
	}

	driver, err := s.modify(ctx, id, func(d *domain.Driver) error {
		d.CurrentLat = &lat
		d.CurrentLon = &lon
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.locationStore != nil && driver.IsAvailable {
		if err := s.locationStore.UpdateLocation(ctx, driver.ID, lat, lon); err != nil {
			s.log.Warn("geo index update failed", logger.Int64("driver_id", driver.ID), logger.Err(err))
		}
	}
	return driver, nil
}

// ToggleAvailability flips a driver's availability. Unavailable drivers
// leave the geo index.
func (s *DriverService) ToggleAvailability(ctx context.Context, id int64) (*domain.Driver, error) {
	driver, err := s.modify(ctx, id, func(d *domain.Driver) error {
		d.IsAvailable = !d.IsAvailable
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.locationStore != nil {
		var gerr error
		switch {
		case !driver.IsAvailable:
			gerr = s.locationStore.RemoveLocation(ctx, driver.ID)
		case driver.CurrentLat != nil && driver.CurrentLon != nil:
			gerr = s.locationStore.UpdateLocation(ctx, driver.ID, *driver.CurrentLat, *driver.CurrentLon)
		}
		if gerr != nil {
			s.log.Warn("geo index update failed", logger.Int64("driver_id", driver.ID), logger.Err(gerr))
		}
	}
	return driver, nil
}

// modify loads, changes and saves a driver in one transaction.
func (s *DriverService) modify(ctx context.Context, id int64, change func(d *domain.Driver) error) (*domain.Driver, error) {
	var driver *domain.Driver
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		d, err := uow.Drivers().GetByID(ctx, id)
		if err != nil {
			return mapNotFound(err, ErrDriverNotFound)
		}
		if err := change(d); err != nil {
			return err
		}
		if err := uow.Drivers().Update(ctx, d); err != nil {
			return err
		}
		driver = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return driver, nil
}

// NearbyDriver is an available driver with its distance from a point.
type NearbyDriver struct {
	Driver     *domain.Driver
	DistanceKm float64
}

// Nearby returns available drivers within radiusKm of a point, nearest
// first. A non-positive radius uses the default.
func (s *DriverService) Nearby(ctx context.Context, lat, lon, radiusKm float64) ([]NearbyDriver, error) {
	if s.locationStore == nil {
		return nil, ErrLocationsUnavailable
	}
	if !isValidLatitude(lat) || !isValidLongitude(lon) {
		return nil, &ValidationError{Message: "Invalid location data"}
	}
	if radiusKm <= 0 {
		radiusKm = defaultNearbyRadiusKm
	}
	if radiusKm > maxNearbyRadiusKm {
		radiusKm = maxNearbyRadiusKm
	}

	locations, err := s.locationStore.FindNearbyDrivers(ctx, lat, lon, radiusKm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLocationsUnavailable, err)
	}

	nearby := make([]NearbyDriver, 0, len(locations))
	for _, loc := range locations {
		driver, err := s.store.Drivers().GetByID(ctx, loc.DriverID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load driver: %w", err)
		}
		if !driver.IsAvailable {
			continue
		}
		nearby = append(nearby, NearbyDriver{Driver: driver, DistanceKm: loc.DistKm})
	}
	return nearby, nil
}

func isValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

func isValidLongitude(lon float64) bool {
	return lon >= -180 && lon <= 180
}
