package app

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationNames_Sorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)

	assert.Equal(t, "0001_init.sql", names[0])
	for i := 1; i < len(names); i++ {
		assert.Less(t, names[i-1], names[i])
	}
}

func TestInitMigration_DefinesCoreTables(t *testing.T) {
	body, err := migrationsFS.ReadFile("migrations/0001_init.sql")
	require.NoError(t, err)
	sql := string(body)

	for _, table := range []string{"drivers", "rides", "payments", "pricing_config"} {
		assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS "+table)
	}
	assert.Regexp(t, regexp.MustCompile(`ride_id\s+BIGINT\s+NOT NULL UNIQUE`), sql, "payments must be 1:1 with rides")
	assert.NotContains(t, strings.ToUpper(sql), "BEGIN;")
}

func TestInitMigration_RideTextColumnsUnbounded(t *testing.T) {
	body, err := migrationsFS.ReadFile("migrations/0001_init.sql")
	require.NoError(t, err)
	sql := string(body)

	for _, col := range []string{"rider_name", "user_email", "user_phone", "pickup_address", "dest_address", "notes"} {
		assert.Regexp(t, regexp.MustCompile(`\n\s*`+col+`\s+TEXT\b`), sql, col)
	}
}
