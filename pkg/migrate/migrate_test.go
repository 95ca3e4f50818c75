package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShippedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestMigrationsCoverSchema(t *testing.T) {
	checks := map[string][]string{
		"*_create_users_table.sql":         {"CREATE TABLE IF NOT EXISTS users", "carbon_saved numeric(10,2)"},
		"*_create_products_table.sql":      {"CREATE TABLE IF NOT EXISTS products", "CHECK (price > 0)", "available boolean NOT NULL DEFAULT true"},
		"*_create_reviews_table.sql":       {"CHECK (rating BETWEEN 1 AND 5)"},
		"*_create_cart_items_table.sql":    {"CHECK (quantity >= 1)"},
		"*_create_orders_tables.sql":       {"CREATE TABLE IF NOT EXISTS orders", "CREATE TABLE IF NOT EXISTS order_items"},
		"*_create_outbox_events_table.sql": {"idx_outbox_events_unpublished"},
	}
	for pattern, subs := range checks {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		require.NoError(t, err)
		require.Len(t, matches, 1, pattern)

		data, err := os.ReadFile(matches[0])
		require.NoError(t, err)
		for _, sub := range subs {
			require.Contains(t, string(data), sub, matches[0])
		}
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	path, err := createAt(dir, "Add Seller Ratings!", now)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "20260301120000_add_seller_ratings.sql"), path)
	require.NoError(t, ValidateDir(dir))

	_, err = createAt(dir, "Add Seller Ratings!", now)
	require.Error(t, err)

	_, err = createAt(dir, "!!!", now)
	require.Error(t, err)
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "001_bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestValidateDirRequiresMarkers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260301120000_x.sql"), []byte("-- +goose Up\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("20260301090000")
	require.NoError(t, err)
	require.EqualValues(t, 20260301090000, v)

	_, err = ParseVersion("")
	require.Error(t, err)
	_, err = ParseVersion("2026")
	require.Error(t, err)
}
