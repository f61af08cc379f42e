package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"mistletoe/internal/db"
	"mistletoe/internal/migrate"
)

func TestMigrateIsIdempotent(t *testing.T) {
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	v, err := migrate.Version(ctx, conn)
	require.Error(t, err, "schema_version does not exist yet")
	require.Zero(t, v)

	require.NoError(t, migrate.Migrate(conn))
	require.NoError(t, migrate.MigrateContext(ctx, conn))

	latest, err := migrate.Latest()
	require.NoError(t, err)
	require.Equal(t, 2, latest)
	v, err = migrate.Version(ctx, conn)
	require.NoError(t, err)
	require.Equal(t, latest, v)

	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('exchanges','rosters','matrices','participants','events','api_keys')`).Scan(&n))
	require.Equal(t, 6, n)
}
