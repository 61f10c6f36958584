package repositories_test

import (
	"context"
	"io"
	"testing"

	"github.com/myrjola/turtlesoup/internal/sqlite"
	"github.com/myrjola/turtlesoup/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

// newTestDB creates a new in-memory database with the schema and fixtures for testing purposes.
func newTestDB(t *testing.T) *sqlite.Database {
	t.Helper()
	db, err := sqlite.NewDatabase(context.Background(), ":memory:", testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}
