// CRM service tests run against in-memory SQLite with real migrations.
package crm_test

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/fenixmcp/internal/infra/sqlite"
)

const (
	orgA   = "org_A"
	orgB   = "org_B"
	userA  = "u1"
	userB  = "u2"
	userA2 = "u3"
)

func mustOpenDBWithMigrations(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.OpenMigrated(sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }
