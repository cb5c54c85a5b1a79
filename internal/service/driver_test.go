package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kostaxi/internal/auth"
	"kostaxi/internal/repository/memory"
	"kostaxi/internal/service"
)

const testSecret = "test-secret"

func newDriverService(t *testing.T, locations *MockLocationStore) (*service.DriverService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	tokens := auth.NewJWTService(testSecret, "kostaxi", 15*time.Minute, 24*time.Hour)
	if locations == nil {
		return service.NewDriverService(store, tokens, nil, nil), store
	}
	return service.NewDriverService(store, tokens, locations, nil), store
}

func registration(email string) service.RegisterDriverInput {
	return service.RegisterDriverInput{
		Name:         "Nikos Papadopoulos",
		Email:        email,
		Password:     "s3cret-pass",
		Phone:        "+302242000000",
		VehicleModel: "Skoda Octavia",
		VehiclePlate: "KXA-1234",
	}
}

func TestRegister_MissingFields(t *testing.T) {
	t.Parallel()
	svc, _ := newDriverService(t, nil)

	_, err := svc.Register(context.Background(), service.RegisterDriverInput{Email: "a@kos.gr", Password: "x"})

	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Missing required fields: name, phone, vehicle_model, vehicle_plate", verr.Error())
}

func TestRegister_DuplicateEmailIgnoresCase(t *testing.T) {
	t.Parallel()
	svc, _ := newDriverService(t, nil)
	ctx := context.Background()

	driver, err := svc.Register(ctx, registration("Nikos@Kos.gr"))
	require.NoError(t, err)
	assert.Equal(t, "nikos@kos.gr", driver.Email)
	assert.True(t, driver.IsAvailable)
	assert.NotEqual(t, "s3cret-pass", driver.PasswordHash)

	_, err = svc.Register(ctx, registration(" nikos@kos.gr "))
	assert.ErrorIs(t, err, service.ErrDriverExists)
}

func TestSignupAndLogin(t *testing.T) {
	t.Parallel()
	svc, store := newDriverService(t, nil)
	ctx := context.Background()

	signed, err := svc.Signup(ctx, registration("nikos@kos.gr"))
	require.NoError(t, err)
	assert.NotEmpty(t, signed.Tokens.AccessToken)
	assert.NotEmpty(t, signed.Tokens.RefreshToken)

	testCases := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"wrong password", "nikos@kos.gr", "nope", service.ErrInvalidCredentials},
		{"unknown email", "maria@kos.gr", "s3cret-pass", service.ErrInvalidCredentials},
	}
	for _, tc := range testCases {
		_, err := svc.Login(ctx, tc.email, tc.password)
		assert.ErrorIs(t, err, tc.wantErr, tc.name)
	}

	_, err = svc.Login(ctx, "", "")
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Email and password are required", verr.Message)

	res, err := svc.Login(ctx, "NIKOS@kos.gr", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, signed.Driver.ID, res.Driver.ID)

	stored, err := store.Drivers().GetByID(ctx, signed.Driver.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)
}

func TestRefresh(t *testing.T) {
	t.Parallel()
	svc, _ := newDriverService(t, nil)
	ctx := context.Background()

	signed, err := svc.Signup(ctx, registration("nikos@kos.gr"))
	require.NoError(t, err)

	pair, err := svc.Refresh(ctx, signed.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = svc.Refresh(ctx, signed.Tokens.AccessToken)
	assert.ErrorIs(t, err, service.ErrInvalidToken, "access token is not a refresh token")

	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	_, err = svc.Refresh(ctx, "  ")
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Refresh token is required", verr.Message)

	expired := auth.NewJWTService(testSecret, "kostaxi", time.Minute, -time.Minute)
	stale, err := expired.GeneratePair(signed.Driver.ID, signed.Driver.Email)
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, stale.RefreshToken)
	assert.ErrorIs(t, err, service.ErrExpiredToken)

	fresh := auth.NewJWTService(testSecret, "kostaxi", time.Minute, time.Hour)
	orphan, err := fresh.GeneratePair(9999, "ghost@kos.gr")
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, orphan.RefreshToken)
	assert.ErrorIs(t, err, service.ErrInvalidToken, "driver no longer exists")
}

func TestUpdateProfileAndPassword(t *testing.T) {
	t.Parallel()
	svc, _ := newDriverService(t, nil)
	ctx := context.Background()

	driver, err := svc.Register(ctx, registration("nikos@kos.gr"))
	require.NoError(t, err)

	plate, password := "KXB-9999", "new-pass"
	updated, err := svc.Update(ctx, driver.ID, service.DriverUpdate{VehiclePlate: &plate, Password: &password})
	require.NoError(t, err)
	assert.Equal(t, "KXB-9999", updated.VehiclePlate)
	assert.Equal(t, "Skoda Octavia", updated.VehicleModel)

	_, err = svc.Login(ctx, "nikos@kos.gr", "s3cret-pass")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nikos@kos.gr", "new-pass")
	assert.NoError(t, err)

	_, err = svc.Update(ctx, 404, service.DriverUpdate{VehiclePlate: &plate})
	assert.ErrorIs(t, err, service.ErrDriverNotFound)

	_, err = svc.Get(ctx, 404)
	assert.ErrorIs(t, err, service.ErrDriverNotFound)
}

func TestUpdateLocation(t *testing.T) {
	t.Parallel()
	locations := NewMockLocationStore()
	svc, _ := newDriverService(t, locations)
	ctx := context.Background()

	driver, err := svc.Register(ctx, registration("nikos@kos.gr"))
	require.NoError(t, err)

	testCases := []struct {
		name string
		lat  float64
		lon  float64
	}{
		{"latitude too high", 91, 27.1},
		{"latitude too low", -91, 27.1},
		{"longitude too high", 36.8, 181},
		{"longitude too low", 36.8, -181},
	}
	for _, tc := range testCases {
		_, err := svc.UpdateLocation(ctx, driver.ID, tc.lat, tc.lon)
		var verr *service.ValidationError
		assert.ErrorAs(t, err, &verr, tc.name)
	}
	assert.Zero(t, locations.UpdateLocationCallCount)

	updated, err := svc.UpdateLocation(ctx, driver.ID, 36.8932, 27.2877)
	require.NoError(t, err)
	require.NotNil(t, updated.CurrentLat)
	assert.Equal(t, 36.8932, *updated.CurrentLat)
	assert.True(t, locations.Has(driver.ID))
}

func TestToggleAvailability_SyncsGeoIndex(t *testing.T) {
	t.Parallel()
	locations := NewMockLocationStore()
	svc, _ := newDriverService(t, locations)
	ctx := context.Background()

	driver, err := svc.Register(ctx, registration("nikos@kos.gr"))
	require.NoError(t, err)
	_, err = svc.UpdateLocation(ctx, driver.ID, 36.89, 27.29)
	require.NoError(t, err)

	off, err := svc.ToggleAvailability(ctx, driver.ID)
	require.NoError(t, err)
	assert.False(t, off.IsAvailable)
	assert.False(t, locations.Has(driver.ID))

	// Unavailable drivers report positions without entering the index.
	_, err = svc.UpdateLocation(ctx, driver.ID, 36.90, 27.30)
	require.NoError(t, err)
	assert.False(t, locations.Has(driver.ID))

	on, err := svc.ToggleAvailability(ctx, driver.ID)
	require.NoError(t, err)
	assert.True(t, on.IsAvailable)
	assert.True(t, locations.Has(driver.ID))
}

func TestNearby(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	disabled, _ := newDriverService(t, nil)
	_, err := disabled.Nearby(ctx, 36.89, 27.29, 0)
	assert.ErrorIs(t, err, service.ErrLocationsUnavailable)

	locations := NewMockLocationStore()
	svc, _ := newDriverService(t, locations)

	near, err := svc.Register(ctx, registration("near@kos.gr"))
	require.NoError(t, err)
	busy, err := svc.Register(ctx, registration("busy@kos.gr"))
	require.NoError(t, err)
	_, err = svc.ToggleAvailability(ctx, busy.ID)
	require.NoError(t, err)

	locations.Put(near.ID, 36.89, 27.29)
	locations.Put(busy.ID, 36.89, 27.29)
	locations.Put(999, 36.89, 27.29)

	found, err := svc.Nearby(ctx, 36.89, 27.29, 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, near.ID, found[0].Driver.ID)
	assert.Equal(t, float64(near.ID), found[0].DistanceKm)

	locations.FindErr = errors.New("redis down")
	_, err = svc.Nearby(ctx, 36.89, 27.29, 3)
	assert.ErrorIs(t, err, service.ErrLocationsUnavailable)
}

func TestListDrivers_NewestFirst(t *testing.T) {
	t.Parallel()
	svc, _ := newDriverService(t, nil)
	ctx := context.Background()

	first, err := svc.Register(ctx, registration("first@kos.gr"))
	require.NoError(t, err)
	second, err := svc.Register(ctx, registration("second@kos.gr"))
	require.NoError(t, err)

	drivers, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, drivers, 2)
	assert.Equal(t, second.ID, drivers[0].ID)
	assert.Equal(t, first.ID, drivers[1].ID)
}
