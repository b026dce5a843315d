package database

import (
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("in-memory with migrations", func(t *testing.T) {
		db, err := New(
			WithDriver("sqlite3"),
			WithDataSource(":memory:"),
			WithMigrations(
				`CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)`,
				`INSERT INTO t (name) VALUES ('a'), ('b')`,
			),
		)
		require.NoError(t, err)
		defer db.Close()

		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n))
		assert.Equal(t, 2, n)
		assert.Equal(t, 1, db.Stats().MaxOpenConnections)
	})

	t.Run("bad migration fails", func(t *testing.T) {
		db, err := New(WithMigrations(`CREATE TABLE`))
		assert.Error(t, err)
		assert.Nil(t, db)
		assert.Contains(t, err.Error(), "migration 0 failed")
	})

	t.Run("empty driver", func(t *testing.T) {
		_, err := New(WithDriver(""))
		assert.EqualError(t, err, "database driver cannot be empty")
	})

	t.Run("unknown driver exhausts retries", func(t *testing.T) {
		_, err := New(WithDriver("nope"), WithRetry(2, time.Millisecond))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 2 attempts")
	})
}
