package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hamtest "github.com/teranos/hamcall/internal/testing"
)

func TestMigrate(t *testing.T) {
	t.Run("records every migration", func(t *testing.T) {
		db := hamtest.CreateTestDB(t)
		require.NoError(t, Migrate(db, nil))

		var versions []string
		rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
		require.NoError(t, err)
		defer rows.Close()
		for rows.Next() {
			var v string
			require.NoError(t, rows.Scan(&v))
			versions = append(versions, v)
		}
		assert.Equal(t, []string{"000", "001", "002"}, versions)
	})

	t.Run("is idempotent", func(t *testing.T) {
		db := hamtest.CreateTestDB(t)
		require.NoError(t, Migrate(db, nil))
		require.NoError(t, Migrate(db, nil))

		var n int
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
		assert.Equal(t, 3, n)
	})

	t.Run("fails on closed database", func(t *testing.T) {
		db := hamtest.CreateTestDB(t)
		db.Close()
		assert.Error(t, Migrate(db, nil))
	})
}

func TestIsDatabaseClosed(t *testing.T) {
	db := hamtest.CreateTestDB(t)
	db.Close()
	_, err := db.Exec("SELECT 1")

	assert.True(t, IsDatabaseClosed(err))
	assert.True(t, IsDatabaseClosed(ErrDatabaseClosed))
	assert.False(t, IsDatabaseClosed(nil))
	assert.False(t, IsDatabaseClosed(assert.AnError))
}
