package history

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// NewTestStore creates a Store over an in-memory SQLite database.
// Cleanup is registered with t.Cleanup().
//
// Example:
//
//	func TestSomething(t *testing.T) {
//	    store := history.NewTestStore(t)
//	    // ... test code ...
//	}
func NewTestStore(t testing.TB) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Each pooled connection would get its own in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store, err := NewStore(db)
	require.NoError(t, err)
	return store
}
