package workspace

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/foodscan/internal/identity"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/persistence"
	"github.com/tphakala/foodscan/internal/preferences"
	"github.com/tphakala/foodscan/internal/product"
)

type staticResolver struct{}

func (staticResolver) Resolve(_ context.Context, code string) (*product.PartialProduct, error) {
	return &product.PartialProduct{
		Name:        "Granola",
		Barcode:     code,
		Ingredients: []string{"oats", "honey"},
	}, nil
}

func newFactory(t *testing.T) *Factory {
	t.Helper()
	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	return &Factory{
		Selector:           persistence.NewSelector(persistence.NewMemoryStore(time.Hour), persistence.NewMemoryStore(time.Hour), nil, log),
		LocalPreferences:   preferences.NewMemoryStore(),
		RemotePreferences:  preferences.NewMemoryStore(),
		DefaultPreferences: product.UserPreferences{AvoidedIngredients: []string{"honey"}},
		Lookup:             staticResolver{},
		Logger:             log,
	}
}

func TestOpen_ScansIntoIdentityPartition(t *testing.T) {
	t.Parallel()
	f := newFactory(t)
	ctx := context.Background()

	alice, err := f.Open(ctx, identity.User("alice"))
	require.NoError(t, err)
	defer alice.Close()
	anon, err := f.Open(ctx, identity.Anonymous("s1"))
	require.NoError(t, err)
	defer anon.Close()

	assert.Equal(t, "user:alice", alice.Partition())
	assert.Equal(t, "session:s1", anon.Partition())

	p, err := alice.Scanner.ScanBarcode(ctx, "0123456789012")
	require.NoError(t, err)
	assert.Equal(t, product.VerdictBad, p.Verdict, "defaults avoid honey")

	mine, err := alice.Store.ListProducts(ctx, product.Filter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := anon.Store.ListProducts(ctx, product.Filter{})
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

func TestOpen_LoadsStoredPreferences(t *testing.T) {
	t.Parallel()
	f := newFactory(t)
	ctx := context.Background()
	require.NoError(t, f.RemotePreferences.Save(ctx, "user:bob", product.UserPreferences{AvoidedIngredients: []string{"oats"}}))

	ws, err := f.Open(ctx, identity.User("bob"))
	require.NoError(t, err)
	defer ws.Close()

	assert.Equal(t, []string{"oats"}, ws.Preferences.GetPreferences().AvoidedIngredients)
}
