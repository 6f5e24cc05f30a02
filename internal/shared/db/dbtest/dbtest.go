// Package dbtest abre bancos SQLite descartáveis e já migrados para testes.
package dbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/radieske/bet-settlement-engine/internal/shared/db"
)

func Open(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.ConnectSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.Migrate(context.Background(), conn, db.SQLite))
	return conn
}
