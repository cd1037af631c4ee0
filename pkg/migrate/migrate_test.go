package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateEmbedded())
}

func TestEveryRequiredTableIsCreated(t *testing.T) {
	var all strings.Builder
	err := fs.WalkDir(Embedded(), embeddedDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		b, err := fs.ReadFile(Embedded(), path)
		all.Write(b)
		return err
	})
	require.NoError(t, err)

	for _, table := range RequiredTables {
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table+" (", table)
	}
}

func TestReturnMigrationEnforcesOneOpenRequestPerSource(t *testing.T) {
	b, err := fs.ReadFile(Embedded(), embeddedDir+"/20260105090500_create_return_requests.sql")
	require.NoError(t, err)
	content := string(b)
	for _, sub := range []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_return_requests_open_order",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_return_requests_open_shipment",
		"status IN ('pending', 'approved', 'received')",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestStockColumnsCannotGoNegative(t *testing.T) {
	b, err := fs.ReadFile(Embedded(), embeddedDir+"/20260105090100_create_products.sql")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(b), "stock integer NOT NULL DEFAULT 0 CHECK (stock >= 0)"))
}

func TestValidateRejectsBadFiles(t *testing.T) {
	badName := fstest.MapFS{"m/1_init.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")}}
	assert.ErrorContains(t, Validate(badName, "m"), "invalid migration filename")

	missingDown := fstest.MapFS{"m/20260101000000_init.sql": {Data: []byte("-- +goose Up\n")}}
	assert.ErrorContains(t, Validate(missingDown, "m"), "-- +goose Down")

	duplicate := fstest.MapFS{
		"m/20260101000000_a.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"m/20260101000000_b.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
	}
	assert.ErrorContains(t, Validate(duplicate, "m"), "duplicate migration version")
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

	path, err := CreateSQLMigration(dir, "Add Gift Cards!", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20260304050607_add_gift_cards.sql"), path)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "-- +goose Up")

	_, err = CreateSQLMigration(dir, "Add Gift Cards!", now)
	assert.ErrorContains(t, err, "already exists")

	_, err = CreateSQLMigration(dir, "!!!", now)
	assert.Error(t, err)
}

func TestMigrationSlug(t *testing.T) {
	assert.Equal(t, "orders_index", migrationSlug("  Orders -- Index "))
	assert.Equal(t, "v2_returns", migrationSlug("V2 returns"))
	assert.Empty(t, migrationSlug("¿?"))
}
