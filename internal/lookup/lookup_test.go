package lookup

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/httpclient"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/product"
)

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

type stubAdapter struct {
	name   string
	result func(ctx context.Context, code string) Result
	calls  atomic.Int32
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) GetProductByBarcode(ctx context.Context, code string) Result {
	s.calls.Add(1)
	return s.result(ctx, code)
}

func found(name string, p *product.PartialProduct) *stubAdapter {
	return &stubAdapter{name: name, result: func(context.Context, string) Result { return Found(name, p) }}
}

func missing(name string) *stubAdapter {
	return &stubAdapter{name: name, result: func(context.Context, string) Result { return NotFound(name) }}
}

func failing(name string) *stubAdapter {
	return &stubAdapter{name: name, result: func(context.Context, string) Result {
		return Failed(name, errors.NewStd("boom"))
	}}
}

type recordingObserver struct {
	mu      sync.Mutex
	entries []string
}

func (r *recordingObserver) RecordLookup(provider, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, provider+":"+status)
}

func TestChainResolve_FirstAdapterWins(t *testing.T) {
	t.Parallel()

	a := found("a", &product.PartialProduct{Name: "Granola", Ingredients: []string{"oats", "honey"}})
	b := found("b", &product.PartialProduct{Name: "Other"})
	obs := &recordingObserver{}
	chain := NewChain([]Adapter{a, b}, WithLogger(testLogger()), WithObserver(obs))

	got, err := chain.Resolve(t.Context(), "40000001")

	require.NoError(t, err)
	assert.Equal(t, "Granola", got.Name)
	assert.Equal(t, "40000001", got.Barcode, "barcode is filled in from the query")
	assert.Equal(t, int32(1), a.calls.Load())
	assert.Equal(t, int32(0), b.calls.Load(), "second adapter must not be called after a hit")
	assert.Equal(t, []string{"a:found"}, obs.entries)
}

func TestChainResolve_FallsBackOnMissAndError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		first *stubAdapter
	}{
		{"not_found", missing("a")},
		{"provider_error", failing("a")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := found("b", &product.PartialProduct{Name: "From B", Barcode: "40000002"})
			chain := NewChain([]Adapter{tt.first, b}, WithLogger(testLogger()))

			got, err := chain.Resolve(t.Context(), "40000002")

			require.NoError(t, err)
			assert.Equal(t, "From B", got.Name)
			assert.Equal(t, int32(1), tt.first.calls.Load())
			assert.Equal(t, int32(1), b.calls.Load())
		})
	}
}

func TestChainResolve_AllMiss(t *testing.T) {
	t.Parallel()

	chain := NewChain([]Adapter{missing("a"), failing("b")}, WithLogger(testLogger()))

	got, err := chain.Resolve(t.Context(), "40000003")

	require.Error(t, err)
	assert.Nil(t, got)
	require.ErrorIs(t, err, product.ErrNotFound)
	assert.NotErrorIs(t, err, product.ErrAborted)
	assert.True(t, errors.IsNotFound(err))

	var enhanced *errors.EnhancedError
	require.ErrorAs(t, err, &enhanced)
	assert.Contains(t, enhanced.Context["providers"], "a: not found")
	assert.Contains(t, enhanced.Context["providers"], "b: boom")
}

func TestChainResolve_EmptyBarcode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code string
	}{
		{"blank", "   "},
		{"too_short", "1234567"},
		{"too_long", "123456789012345"},
		{"letters", "40000abc"},
		{"path_traversal", "../../../admin/export?all=1&x="},
		{"embedded_slash", "4000/0001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := found("a", &product.PartialProduct{Name: "x"})
			chain := NewChain([]Adapter{a}, WithLogger(testLogger()))

			got, err := chain.Resolve(t.Context(), tt.code)

			assert.Nil(t, got)
			require.ErrorIs(t, err, product.ErrNotFound)
			assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
			assert.Equal(t, int32(0), a.calls.Load(), "adapters must not see an invalid code")
		})
	}
}

func TestValidBarcode(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidBarcode("40000001"))
	assert.True(t, ValidBarcode("0123456789012"))
	assert.True(t, ValidBarcode("12345678901234"))
	assert.False(t, ValidBarcode("4000000١"), "non-ASCII digits are rejected")
	assert.False(t, ValidBarcode(""))
}

func TestChainResolve_CancelledAfterFirstAdapter(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	a := &stubAdapter{name: "a", result: func(context.Context, string) Result {
		cancel()
		return NotFound("a")
	}}
	b := found("b", &product.PartialProduct{Name: "late"})
	chain := NewChain([]Adapter{a, b}, WithLogger(testLogger()))

	got, err := chain.Resolve(ctx, "40000004")

	assert.Nil(t, got)
	require.ErrorIs(t, err, product.ErrAborted)
	assert.NotErrorIs(t, err, product.ErrNotFound)
	assert.Equal(t, int32(0), b.calls.Load())
}

func TestChainResolve_CancelledAfterHit(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	a := &stubAdapter{name: "a", result: func(context.Context, string) Result {
		cancel()
		return Found("a", &product.PartialProduct{Name: "Granola"})
	}}
	chain := NewChain([]Adapter{a}, WithLogger(testLogger()))

	_, err := chain.Resolve(ctx, "40000005")

	require.ErrorIs(t, err, product.ErrAborted)
}

func TestChainAdapters_SkipsNil(t *testing.T) {
	t.Parallel()

	chain := NewChain([]Adapter{missing("a"), nil, missing("b")}, WithLogger(testLogger()))
	assert.Equal(t, []string{"a", "b"}, chain.Adapters())
}

func TestParseIngredients(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "Oats, honey.", []string{"Oats", "honey"}},
		{"semicolons", "water; salt; sugar", []string{"water", "salt", "sugar"}},
		{"nested parentheses", "Chocolate (sugar, cocoa butter), milk", []string{"Chocolate (sugar, cocoa butter)", "milk"}},
		{"brackets", "spices [pepper, cumin], salt", []string{"spices [pepper, cumin]", "salt"}},
		{"label prefix", "Ingredients: rice, water", []string{"rice", "water"}},
		{"allergen markup", "_milk_ powder, <b>soy</b> lecithin", []string{"milk powder", "soy lecithin"}},
		{"case insensitive dedupe", "Sugar, sugar, SUGAR, salt", []string{"Sugar", "salt"}},
		{"stray punctuation", " - oats* ,, , honey!", []string{"oats", "honey"}},
		{"empty", "", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseIngredients(tt.in))
		})
	}
}

func TestCached_ServesHitsAndMisses(t *testing.T) {
	t.Parallel()

	next := &stubAdapter{name: "a", result: func(_ context.Context, code string) Result {
		if code == "hit" {
			return Found("a", &product.PartialProduct{Name: "Granola", Ingredients: []string{"oats"}})
		}
		return NotFound("a")
	}}
	c := NewCached(next, time.Hour, time.Hour)

	first := c.GetProductByBarcode(t.Context(), "hit")
	require.Equal(t, StatusFound, first.Status)
	first.Product.Ingredients[0] = "mutated"

	second := c.GetProductByBarcode(t.Context(), "hit")
	require.Equal(t, StatusFound, second.Status)
	assert.Equal(t, []string{"oats"}, second.Product.Ingredients, "cached copy must be isolated")

	assert.Equal(t, StatusNotFound, c.GetProductByBarcode(t.Context(), "miss").Status)
	assert.Equal(t, StatusNotFound, c.GetProductByBarcode(t.Context(), "miss").Status)

	assert.Equal(t, int32(2), next.calls.Load())
	assert.Equal(t, 2, c.ItemCount())

	c.Flush()
	assert.Equal(t, 0, c.ItemCount())
}

func TestCached_DoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	next := failing("a")
	c := NewCached(next, time.Hour, time.Hour)

	assert.Equal(t, StatusError, c.GetProductByBarcode(t.Context(), "x").Status)
	assert.Equal(t, StatusError, c.GetProductByBarcode(t.Context(), "x").Status)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCached_NegativeCachingDisabled(t *testing.T) {
	t.Parallel()

	next := missing("a")
	c := NewCached(next, time.Hour, -1)

	c.GetProductByBarcode(t.Context(), "x")
	c.GetProductByBarcode(t.Context(), "x")
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestLimited_CancelledWaitIsAborted(t *testing.T) {
	t.Parallel()

	next := missing("a")
	l := NewLimited(next, 0.001, 1)

	// First call consumes the only token.
	assert.Equal(t, StatusNotFound, l.GetProductByBarcode(t.Context(), "x").Status)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	res := l.GetProductByBarcode(ctx, "x")

	assert.Equal(t, StatusError, res.Status)
	require.ErrorIs(t, res.Err, product.ErrAborted)
	assert.True(t, errors.IsCategory(res.Err, errors.CategoryCancellation))
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestLimited_WaitPastDeadlineIsProviderError(t *testing.T) {
	t.Parallel()

	next := missing("a")
	l := NewLimited(next, 0.001, 1)
	assert.Equal(t, StatusNotFound, l.GetProductByBarcode(t.Context(), "x").Status)

	// The next token is ~1000s away, so the wait fails before the deadline.
	ctx, cancel := context.WithTimeout(t.Context(), time.Minute)
	defer cancel()
	res := l.GetProductByBarcode(ctx, "x")

	assert.Equal(t, StatusError, res.Status)
	require.NoError(t, ctx.Err())
	require.ErrorIs(t, res.Err, product.ErrProvider)
	assert.NotErrorIs(t, res.Err, product.ErrAborted)
	assert.True(t, errors.IsCategory(res.Err, errors.CategoryLimit))
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestLimited_Unlimited(t *testing.T) {
	t.Parallel()

	next := missing("a")
	l := NewLimited(next, 0, 0)
	for range 5 {
		l.GetProductByBarcode(t.Context(), "x")
	}
	assert.Equal(t, int32(5), next.calls.Load())
	assert.Equal(t, "a", l.Name())
}

func newTestFetcher(t *testing.T) *Fetcher {
	t.Helper()
	client := httpclient.New(nil)
	t.Cleanup(client.Close)
	f := NewFetcher("test", client, testLogger())
	f.Backoff = time.Millisecond
	return f
}

func TestFetcher_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"ok"}`))
	}))
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
	}
	err := newTestFetcher(t).GetJSON(t.Context(), srv.URL, &out)

	require.NoError(t, err)
	assert.Equal(t, "ok", out.Name)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetcher_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		category errors.ErrorCategory
		calls    int32
	}{
		{"not_found", http.StatusNotFound, errors.CategoryNotFound, 1},
		{"unauthorized", http.StatusUnauthorized, errors.CategoryConfiguration, 1},
		{"bad_request", http.StatusBadRequest, errors.CategoryValidation, 1},
		{"rate_limited", http.StatusTooManyRequests, errors.CategoryLimit, DefaultMaxRetries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			err := newTestFetcher(t).GetJSON(t.Context(), srv.URL, &struct{}{})

			require.Error(t, err)
			assert.True(t, errors.IsCategory(err, tt.category))
			assert.Equal(t, tt.calls, calls.Load())
		})
	}
}

func TestFetcher_RejectsNonJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	err := newTestFetcher(t).GetJSON(t.Context(), srv.URL, &struct{}{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-JSON")
}

func TestPreview_KeepsRunesWhole(t *testing.T) {
	t.Parallel()

	short := []byte(`{"ok":true}`)
	assert.Equal(t, string(short), preview(short))

	// "é" is two bytes; the limit falls in the middle of the last one.
	body := []byte(strings.Repeat("a", previewBytes-1) + strings.Repeat("é", 4))
	got := preview(body)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", previewBytes-1)+"...", got)
}
