package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"proxypool/pkg/models"
)

func offlineDB(t *testing.T) *DB {
	t.Helper()
	db := Open(Config{Host: "localhost", Port: 5432, User: "pool", Password: "pw", DBName: "proxies", SSLMode: "disable"})
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 5433, User: "pool", Password: "p@ss", DBName: "proxies", SSLMode: "require"}
	require.Equal(t, "postgres://pool:p%40ss@db:5433/proxies?sslmode=require", cfg.DSN())
}

func TestUpsertQueryOmitsCredentials(t *testing.T) {
	db := offlineDB(t)

	d := models.NewDescriptor("dc", "10.0.0.1", 8080, models.ProtocolHTTP)
	d.Username, d.Password = "user", "do-not-store"
	d.Type = models.DatacenterType
	d.Health = models.HealthHealthy
	d.LastUsedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	descs := []models.ProxyDescriptor{*d}

	query := upsertQuery(db, &descs).String()
	require.Contains(t, query, `INSERT INTO "proxy_descriptors"`)
	require.Contains(t, query, "ON CONFLICT (id) DO UPDATE SET health = EXCLUDED.health")
	require.Contains(t, query, "exit_country = EXCLUDED.exit_country")
	require.Contains(t, query, "'10.0.0.1'")
	require.Contains(t, query, "'user'")
	require.NotContains(t, query, "do-not-store")
	require.NotContains(t, query, "in_use")
}

func TestPruneAndSelectQueries(t *testing.T) {
	db := offlineDB(t)

	prune := pruneQuery(db, []string{"dc"}, []string{"a", "b"}).String()
	require.Contains(t, prune, `DELETE FROM "proxy_descriptors"`)
	require.Contains(t, prune, "provider IN ('dc')")
	require.Contains(t, prune, "id NOT IN ('a', 'b')")

	var descs []models.ProxyDescriptor
	all := selectQuery(db, &descs, nil).String()
	require.NotContains(t, all, "WHERE")
	require.Contains(t, all, `ORDER BY "id"`)

	some := selectQuery(db, &descs, []string{"dc", "bd"}).String()
	require.Contains(t, some, "provider IN ('dc', 'bd')")
}
