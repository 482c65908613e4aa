package persistence

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/events"
	"github.com/tphakala/foodscan/internal/identity"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/product"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingPublisher) TryPublish(e events.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return true
}

func (r *recordingPublisher) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Kind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

type failingStore struct {
	*MemoryStore
}

func (failingStore) Insert(context.Context, string, *product.Product) (*product.Product, error) {
	return nil, errors.NewStd("disk full")
}

// ctxStore fails inserts with the context error a driver returns on timeout.
type ctxStore struct {
	*MemoryStore
}

func (ctxStore) Insert(context.Context, string, *product.Product) (*product.Product, error) {
	return nil, context.DeadlineExceeded
}

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func newProduct(barcode string, avoided bool) *product.Product {
	return &product.Product{
		Name:               "Granola",
		Brand:              "Acme",
		Barcode:            barcode,
		Ingredients:        []string{"oats"},
		Categories:         []string{product.CategoryNatural},
		Verdict:            product.VerdictGood,
		FlaggedIngredients: []product.FlaggedIngredient{},
		Source:             product.SourceScan,
		Avoided:            avoided,
	}
}

func newFacade(t *testing.T, pub events.Publisher) *StoreFacade {
	t.Helper()
	return NewSelector(NewMemoryStore(time.Hour), nil, pub, testLogger()).For(identity.Anonymous("s1"))
}

func TestAddProduct_AssignsIdentity(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	f := newFacade(t, pub)

	before := time.Now()
	input := newProduct("0001", false)
	got, err := f.AddProduct(t.Context(), input)

	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.ScanDate.Before(before))
	assert.Empty(t, input.ID, "input is not mutated")
	assert.Equal(t, []events.Kind{events.KindProductAdded}, pub.kinds())
	assert.Equal(t, "session:s1", pub.events[0].Partition)
	assert.Equal(t, got.ID, pub.events[0].ProductID)
}

func TestAddProduct_ScanHistoryIsNotDeduped(t *testing.T) {
	t.Parallel()
	f := newFacade(t, nil)

	first, err := f.AddProduct(t.Context(), newProduct("0001", false))
	require.NoError(t, err)
	second, err := f.AddProduct(t.Context(), newProduct("0001", false))
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	all, err := f.ListProducts(t.Context(), product.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAddProduct_AvoidListDedupesByBarcode(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	f := newFacade(t, pub)

	first, err := f.AddProduct(t.Context(), newProduct("0001", true))
	require.NoError(t, err)
	second, err := f.AddProduct(t.Context(), newProduct("0001", true))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	avoided, err := f.ListProducts(t.Context(), product.Filter{Avoided: product.Bool(true)})
	require.NoError(t, err)
	assert.Len(t, avoided, 1)
	assert.Equal(t, []events.Kind{events.KindProductAdded}, pub.kinds(), "no event for a deduped save")
}

func TestAddProduct_AvoidListWithoutBarcodeIsNotDeduped(t *testing.T) {
	t.Parallel()
	f := newFacade(t, nil)

	_, err := f.AddProduct(t.Context(), newProduct("", true))
	require.NoError(t, err)
	_, err = f.AddProduct(t.Context(), newProduct("", true))
	require.NoError(t, err)

	avoided, err := f.ListProducts(t.Context(), product.Filter{Avoided: product.Bool(true)})
	require.NoError(t, err)
	assert.Len(t, avoided, 2)
}

func TestAddProduct_ScannedBarcodeDoesNotBlockAvoidSave(t *testing.T) {
	t.Parallel()
	f := newFacade(t, nil)

	scanned, err := f.AddProduct(t.Context(), newProduct("0001", false))
	require.NoError(t, err)
	avoided, err := f.AddProduct(t.Context(), newProduct("0001", true))
	require.NoError(t, err)
	assert.NotEqual(t, scanned.ID, avoided.ID)
}

func TestAddProduct_StoreFailure(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	sel := NewSelector(failingStore{NewMemoryStore(time.Hour)}, nil, pub, testLogger())
	f := sel.For(identity.Anonymous("s1"))

	got, err := f.AddProduct(t.Context(), newProduct("0001", false))

	assert.Nil(t, got)
	require.ErrorIs(t, err, product.ErrPersistenceFailure)
	assert.True(t, errors.IsCategory(err, errors.CategoryPersistence))
	assert.Empty(t, pub.kinds())
}

func TestAddProduct_CancelledContext(t *testing.T) {
	t.Parallel()
	f := newFacade(t, nil)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err := f.AddProduct(ctx, newProduct("0001", false))
	require.ErrorIs(t, err, product.ErrAborted)

	all, err := f.ListProducts(t.Context(), product.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGetRemoveClear(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	f := newFacade(t, pub)
	ctx := t.Context()

	a, err := f.AddProduct(ctx, newProduct("1", false))
	require.NoError(t, err)
	_, err = f.AddProduct(ctx, newProduct("2", false))
	require.NoError(t, err)

	got, err := f.GetProductByClientSideID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = f.GetProductByClientSideID(ctx, "missing")
	require.ErrorIs(t, err, ErrProductNotFound)
	require.ErrorIs(t, err, product.ErrNotFound)

	require.NoError(t, f.RemoveProduct(ctx, a.ID))
	require.ErrorIs(t, f.RemoveProduct(ctx, a.ID), ErrProductNotFound)

	require.NoError(t, f.ClearAll(ctx))
	all, err := f.ListProducts(ctx, product.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.Equal(t, []events.Kind{
		events.KindProductAdded, events.KindProductAdded,
		events.KindProductRemoved, events.KindProductsCleared,
	}, pub.kinds())
}

func TestMemoryStore_OrderingAndIsolation(t *testing.T) {
	t.Parallel()
	m := NewMemoryStore(time.Hour)
	ctx := t.Context()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "new", "mid"} {
		p := newProduct("", false)
		p.ID = id
		p.ScanDate = base.Add(time.Duration([]int{0, 2, 1}[i]) * time.Hour)
		_, err := m.Insert(ctx, "a", p)
		require.NoError(t, err)
	}
	other := newProduct("", false)
	other.ID = "b1"
	_, err := m.Insert(ctx, "b", other)
	require.NoError(t, err)

	got, err := m.Query(ctx, "a", product.Filter{})
	require.NoError(t, err)
	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"new", "mid", "old"}, ids)

	got[0].Name = "mutated"
	again, err := m.Query(ctx, "a", product.Filter{ID: "new"})
	require.NoError(t, err)
	assert.Equal(t, "Granola", again[0].Name, "query returns copies")

	limited, err := m.Query(ctx, "a", product.Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	require.ErrorIs(t, m.Delete(ctx, "a", "b1"), product.ErrNotFound)
	assert.Equal(t, 2, m.Partitions())
}

func TestSelector_ChoosesBackend(t *testing.T) {
	t.Parallel()
	local, remote := NewMemoryStore(time.Hour), NewMemoryStore(time.Hour)

	withRemote := NewSelector(local, remote, nil, testLogger())
	assert.Equal(t, BackendMemory, withRemote.For(identity.Anonymous("s")).Backend())
	assert.Equal(t, BackendRemote, withRemote.For(identity.User("alice")).Backend())

	localOnly := NewSelector(local, nil, nil, testLogger())
	assert.Equal(t, BackendMemory, localOnly.For(identity.User("alice")).Backend())
}

func TestSessionFacade_RebindsOnIdentityChange(t *testing.T) {
	t.Parallel()
	local, remote := NewMemoryStore(time.Hour), NewMemoryStore(time.Hour)
	session := identity.NewSession(identity.Anonymous("s1"))
	sf := NewSessionFacade(NewSelector(local, remote, nil, testLogger()), session)
	defer sf.Close()
	ctx := t.Context()

	_, err := sf.AddProduct(ctx, newProduct("anon", false))
	require.NoError(t, err)

	session.SignIn("alice")
	assert.Equal(t, "user:alice", sf.Current().Partition())
	assert.Equal(t, BackendRemote, sf.Current().Backend())

	list, err := sf.ListProducts(ctx, product.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list, "user partition does not see session records")

	_, err = sf.AddProduct(ctx, newProduct("user", false))
	require.NoError(t, err)

	remoteRecs, err := remote.Query(ctx, "user:alice", product.Filter{})
	require.NoError(t, err)
	require.Len(t, remoteRecs, 1)
	assert.Equal(t, "user", remoteRecs[0].Barcode)

	session.SignOut()
	list, err = sf.ListProducts(ctx, product.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "anon", list[0].Barcode)
}

func TestAddProduct_CancelledWhileWaitingForLock(t *testing.T) {
	t.Parallel()
	pub := &recordingPublisher{}
	f := newFacade(t, pub)

	f.lock.Lock()
	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		_, err := f.AddProduct(ctx, newProduct("40000001", false))
		done <- err
	}()
	cancel()
	f.lock.Unlock()

	err := <-done
	require.ErrorIs(t, err, product.ErrAborted)
	assert.NotErrorIs(t, err, product.ErrPersistenceFailure)
	all, listErr := f.ListProducts(t.Context(), product.Filter{})
	require.NoError(t, listErr)
	assert.Empty(t, all)
	assert.Empty(t, pub.kinds())
}

func TestAddProduct_StoreContextErrorIsAborted(t *testing.T) {
	t.Parallel()
	f := NewSelector(ctxStore{NewMemoryStore(time.Hour)}, nil, nil, testLogger()).For(identity.Anonymous("s1"))

	_, err := f.AddProduct(t.Context(), newProduct("40000001", false))

	require.ErrorIs(t, err, product.ErrAborted)
	assert.NotErrorIs(t, err, product.ErrPersistenceFailure)
	assert.True(t, errors.IsCategory(err, errors.CategoryCancellation))
}
