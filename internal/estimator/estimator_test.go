package estimator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────
// DISTANCE
// ──────────────────────────────────────────────

func TestDistanceKm_KnownPairs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pickup  string
		dropoff string
		want    float64
	}{
		{"Kos Town Square", "Kos Airport", 16.06},
		{"Kos Harbour", "Tigaki Beach", 20.54},
		{"Kardamena", "Mastichari Port", 37.7},
		{"Café Ω", "Straße ²3", 14.09},
	}

	for _, tt := range tests {
		t.Run(tt.pickup+"->"+tt.dropoff, func(t *testing.T) {
			got, err := DistanceKm(tt.pickup, tt.dropoff)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestNormalize_KeepsUnicodeLettersAndNumbers(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Kos Town Square": "kostownsquare",
		"Odos 25½":        "odos25½",
		"Straße ²3":       "straße²3",
		"Odos Ⅳ, #7":      "odosⅳ7",
		" -- ":            "",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalize(in), in)
	}
}

func TestDistanceKm_SymmetricAndBounded(t *testing.T) {
	t.Parallel()

	addresses := []string{
		"Kos Town Square", "Kos Airport", "Tigaki Beach", "Kardamena", "Psalidi",
		"Zia Village", "Marmari", "Kefalos Bay", "Asklepion", "Lambi 12",
	}

	for _, a := range addresses {
		for _, b := range addresses {
			ab, err := DistanceKm(a, b)
			require.NoError(t, err)
			ba, err := DistanceKm(b, a)
			require.NoError(t, err)

			assert.Equal(t, ab, ba, "distance must not depend on direction: %s / %s", a, b)
			assert.GreaterOrEqual(t, ab, MinDistanceKm)
			assert.LessOrEqual(t, ab, MaxDistanceKm)
		}
	}
}

func TestDistanceKm_SameAddressIsMinimum(t *testing.T) {
	t.Parallel()

	got, err := DistanceKm("Kos Airport", "  kos airport ")
	require.NoError(t, err)
	assert.Equal(t, MinDistanceKm, got)
}

func TestDistanceKm_NormalizesPunctuation(t *testing.T) {
	t.Parallel()

	plain, err := DistanceKm("Kos Town Square", "Kos Airport")
	require.NoError(t, err)
	noisy, err := DistanceKm("Kos, Town-Square!", "KOS AIRPORT.")
	require.NoError(t, err)

	assert.Equal(t, plain, noisy)
}

func TestDistanceKm_EmptyAddress(t *testing.T) {
	t.Parallel()

	_, err := DistanceKm("", "Kos Airport")
	assert.ErrorIs(t, err, ErrMissingAddress)

	_, err = DistanceKm("Kos Airport", "")
	assert.ErrorIs(t, err, ErrMissingAddress)
}

// ──────────────────────────────────────────────
// DURATION
// ──────────────────────────────────────────────

func TestDurationMinutes(t *testing.T) {
	t.Parallel()

	rush := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2025, 6, 1, 19, 59, 0, 0, time.UTC)
	midday := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		distance   float64
		scheduled  time.Time
		passengers int
		want       int
	}{
		{"rush hour with two passengers", 16.06, rush, 2, 42},
		{"midday single passenger", 16.06, midday, 1, 33},
		{"evening rush window is inclusive", 20.54, evening, 1, 50},
		{"no schedule means no traffic", 20.54, time.Time{}, 1, 41},
		{"short trips floor at ten minutes", 1.2, midday, 1, MinDurationMinutes},
		{"non-positive distance uses minimum", 0, midday, 1, MinDurationMinutes},
		{"zero passengers adds no buffer", 37.7, midday, 0, 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DurationMinutes(tt.distance, tt.scheduled, tt.passengers))
		})
	}
}

func TestEstimate(t *testing.T) {
	t.Parallel()

	scheduled := time.Date(2025, 6, 1, 8, 30, 0, 0, time.FixedZone("EEST", 3*3600))

	result, err := Estimate("Kos Town Square", "Kos Airport", scheduled, 2)
	require.NoError(t, err)

	assert.InDelta(t, 16.06, result.DistanceKm, 1e-9)
	assert.Equal(t, 42, result.DurationMinutes)

	_, err = Estimate("", "", scheduled, 1)
	assert.ErrorIs(t, err, ErrMissingAddress)
}

func ExampleDistanceKm() {
	d, _ := DistanceKm("Kos Town Square", "Kos Airport")
	fmt.Println(d)
	// Output: 16.06
}
