package database

import (
	"context"
	"database/sql"
	"io/fs"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrations, migrationsDir+"/*.sql")
	require.NoError(t, err)
	assert.Contains(t, files, "migrations/00001_init.sql")

	b, err := fs.ReadFile(migrations, "migrations/00001_init.sql")
	require.NoError(t, err)
	assert.Contains(t, string(b), "-- +goose Up")
	assert.Contains(t, string(b), "-- +goose Down")
}

func TestRunMigrations(t *testing.T) {
	orig := gooseRunFunc
	defer func() { gooseRunFunc = orig }()

	var gotCmd, gotDir string
	var gotArgs []string
	gooseRunFunc = func(_ context.Context, command string, _ *sql.DB, dir string, args ...string) error {
		gotCmd, gotDir, gotArgs = command, dir, args
		if command == "bogus" {
			return errors.New("unknown command")
		}
		return nil
	}

	require.NoError(t, RunMigrations(context.Background(), nil, "up-to", "1"))
	assert.Equal(t, "up-to", gotCmd)
	assert.Equal(t, migrationsDir, gotDir)
	assert.Equal(t, []string{"1"}, gotArgs)

	require.NoError(t, Migrate(context.Background(), nil))
	assert.Equal(t, "up", gotCmd)

	assert.Error(t, RunMigrations(context.Background(), nil, "bogus"))
}
