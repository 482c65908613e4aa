package openfoodfacts

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/foodscan/internal/httpclient"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/lookup"
	"github.com/tphakala/foodscan/internal/product"
)

const testEndpoint = "https://off.test"

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	client := httpclient.New(nil)
	httpmock.ActivateNonDefault(client.StdClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	p := New(Config{Endpoint: testEndpoint}, client,
		logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC))
	p.Fetcher().Backoff = time.Millisecond
	return p
}

func TestGetProductByBarcode_Found(t *testing.T) {
	p := newTestProvider(t)
	httpmock.RegisterResponder(http.MethodGet, testEndpoint+"/api/v2/product/737628064502.json",
		httpmock.NewStringResponder(http.StatusOK, `{
			"code": "737628064502",
			"status": 1,
			"product": {
				"product_name": "",
				"product_name_en": "Rice Noodles",
				"brands": "Thai Kitchen, Simply Asia",
				"ingredients_text": "Rice, water, _soy_ sauce (water, salt).",
				"nutriments": {"energy-kcal_100g": "385", "energy-kcal": 1540},
				"image_front_url": "",
				"image_url": "https://images.off.test/737.jpg"
			}
		}`))

	res := p.GetProductByBarcode(t.Context(), "737628064502")

	require.Equal(t, lookup.StatusFound, res.Status)
	got := res.Product
	assert.Equal(t, "Rice Noodles", got.Name)
	assert.Equal(t, "Thai Kitchen", got.Brand)
	assert.Equal(t, "737628064502", got.Barcode)
	assert.Equal(t, []string{"Rice", "water", "soy sauce (water, salt)"}, got.Ingredients)
	require.NotNil(t, got.Calories)
	assert.InDelta(t, 385.0, *got.Calories, 0.001)
	assert.Equal(t, "https://images.off.test/737.jpg", got.Image)
	assert.Equal(t, product.SourceScan, got.Source)
}

func TestGetProductByBarcode_NameAndCalorieFallbacks(t *testing.T) {
	p := newTestProvider(t)
	httpmock.RegisterResponder(http.MethodGet, testEndpoint+"/api/v2/product/1.json",
		httpmock.NewJsonResponderOrPanic(http.StatusOK, map[string]any{
			"status": 1,
			"product": map[string]any{
				"generic_name":        "Oat biscuits",
				"ingredients_text_en": "oats, sugar",
				"nutriments":          map[string]any{"energy-kcal": 480.5},
				"image_front_url":     "https://images.off.test/front.jpg",
				"image_url":           "https://images.off.test/other.jpg",
			},
		}))

	res := p.GetProductByBarcode(t.Context(), "1")

	require.Equal(t, lookup.StatusFound, res.Status)
	assert.Equal(t, "Oat biscuits", res.Product.Name)
	assert.Empty(t, res.Product.Brand)
	assert.Equal(t, "1", res.Product.Barcode)
	assert.Equal(t, []string{"oats", "sugar"}, res.Product.Ingredients)
	require.NotNil(t, res.Product.Calories)
	assert.InDelta(t, 480.5, *res.Product.Calories, 0.001)
	assert.Equal(t, "https://images.off.test/front.jpg", res.Product.Image)
}

func TestGetProductByBarcode_NotFound(t *testing.T) {
	tests := []struct {
		name      string
		responder httpmock.Responder
	}{
		{"status_zero", httpmock.NewStringResponder(http.StatusOK, `{"code":"2","status":0,"status_verbose":"product not found"}`)},
		{"http_404", httpmock.NewStringResponder(http.StatusNotFound, `{"status":0}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(t)
			httpmock.RegisterResponder(http.MethodGet, testEndpoint+"/api/v2/product/2.json", tt.responder)

			res := p.GetProductByBarcode(t.Context(), "2")

			assert.Equal(t, lookup.StatusNotFound, res.Status)
			assert.NoError(t, res.Err)
		})
	}
}

func TestGetProductByBarcode_MalformedBody(t *testing.T) {
	p := newTestProvider(t)
	httpmock.RegisterResponder(http.MethodGet, testEndpoint+"/api/v2/product/3.json",
		httpmock.NewStringResponder(http.StatusOK, `{"status": 1, "product": [`))

	res := p.GetProductByBarcode(t.Context(), "3")

	assert.Equal(t, lookup.StatusError, res.Status)
	require.ErrorIs(t, res.Err, product.ErrProvider)
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "parse errors are not retried")
}

func TestKcal_IgnoresImplausibleValues(t *testing.T) {
	t.Parallel()

	p := &offProduct{Nutriments: map[string]any{"energy-kcal_100g": 250000.0, "energy-kcal": "not a number"}}
	assert.Nil(t, p.kcal())
}

func TestGetProductByBarcode_EscapesCode(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		rawPath  string
		rawQuery string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		rawPath = r.URL.EscapedPath()
		rawQuery = r.URL.RawQuery
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":0}`)
	}))
	t.Cleanup(srv.Close)

	p := New(Config{Endpoint: srv.URL, MaxRetries: 1}, httpclient.New(nil),
		logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC))

	res := p.GetProductByBarcode(t.Context(), "../../../admin/export?all=1&x=")

	assert.Equal(t, lookup.StatusNotFound, res.Status)
	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, rawQuery, "the code must not open a query string")
	assert.Equal(t, "/api/v2/product/..%2F..%2F..%2Fadmin%2Fexport%3Fall=1&x=.json", rawPath)
}
