package migrations

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"strings"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(FS, "*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	body, err := fs.ReadFile(FS, files[0])
	require.NoError(t, err)
	for _, table := range []string{"requests", "archive", "history", "blacklist", "forbidden_words", "banned_devices"} {
		assert.Contains(t, string(body), "CREATE TABLE IF NOT EXISTS "+table+" ")
	}
	assert.True(t, strings.Contains(string(body), "-- +goose Down"))
}

func TestUp(t *testing.T) {
	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	t.Run("success", func(t *testing.T) {
		var gotDir string
		gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			gotDir = dir
			return nil
		}
		require.NoError(t, Up(context.Background(), nil))
		assert.Equal(t, ".", gotDir)
	})

	t.Run("failure", func(t *testing.T) {
		gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
			return errors.New("boom")
		}
		err := Up(context.Background(), nil)
		assert.ErrorContains(t, err, "boom")
	})
}
