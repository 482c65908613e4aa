//go:build integration

// Run with: go test -tags=integration -v ./internal/datastore/...
// Requires a Docker daemon for testcontainers.
package datastore

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mysql"

	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/product"
)

func TestMySQL_ProductRoundTrip(t *testing.T) {
	ctx := t.Context()

	container, err := mysql.Run(ctx, "mysql:8.0",
		mysql.WithDatabase("foodscan_test"),
		mysql.WithUsername("foodscan"),
		mysql.WithPassword("foodscan"),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	m, err := Open(Config{
		Driver: DriverMySQL,
		MySQL: MySQLConfig{
			Host:     host,
			Port:     port.Port(),
			Username: "foodscan",
			Password: "foodscan",
			Database: "foodscan_test",
		},
	}, logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Initialize())

	repo := m.Products()
	scanned := time.Now().UTC().Truncate(time.Second)
	_, err = repo.Insert(ctx, "user:alice", sampleProduct("p1", "0001", scanned, true))
	require.NoError(t, err)

	got, err := repo.Query(ctx, "user:alice", product.Filter{Barcode: "0001", Avoided: product.Bool(true)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"oats", "honey"}, got[0].Ingredients)
	assert.True(t, got[0].ScanDate.Equal(scanned))

	prefs := m.Preferences()
	require.NoError(t, prefs.Save(ctx, "user:alice", product.UserPreferences{AvoidedIngredients: []string{"honey"}}))
	require.NoError(t, prefs.Save(ctx, "user:alice", product.UserPreferences{AvoidedIngredients: []string{"sugar"}}))
	p, err := prefs.Get(ctx, "user:alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"sugar"}, p.AvoidedIngredients)
}
