package privacy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrubMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		contains    []string
		notContains []string
	}{
		{
			name:        "lookup URL with api key",
			input:       "request failed: https://api.barcodelookup.com/v3/products?barcode=737628064502&key=abc123",
			contains:    []string{"request failed: url-"},
			notContains: []string{"barcodelookup.com", "abc123", "737628064502"},
		},
		{
			name:        "broker URL with credentials",
			input:       "connect to tcp://user:pw@192.168.1.10:1883 failed",
			contains:    []string{"connect to url-", " failed"},
			notContains: []string{"user", "pw@", "192.168.1.10"},
		},
		{
			name:        "credential assignment",
			input:       `invalid config api_key=sk-live-123 password: "hunter2"`,
			contains:    []string{"api_key=[REDACTED]", "password: [REDACTED]"},
			notContains: []string{"sk-live-123", "hunter2"},
		},
		{
			name:        "email address",
			input:       "no preferences for alice@example.com",
			contains:    []string{"no preferences for [EMAIL]"},
			notContains: []string{"alice"},
		},
		{
			name:     "plain message untouched",
			input:    "product not found",
			contains: []string{"product not found"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ScrubMessage(tt.input)
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestAnonymizeURL(t *testing.T) {
	t.Parallel()

	a := AnonymizeURL("https://world.openfoodfacts.org/api/v2/product/123.json")
	b := AnonymizeURL("https://world.openfoodfacts.org/api/v2/product/123.json")
	c := AnonymizeURL("https://world.openfoodfacts.org/api/v2/product/456.json")

	assert.Equal(t, a, b, "stable for equal input")
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, "url-"))
	assert.Len(t, a, len("url-")+24)

	// numeric path segments collapse
	assert.Equal(t,
		AnonymizeURL("https://api.example.com/products/737628064502"),
		AnonymizeURL("https://api.example.com/products/4006381333931"))
}

func TestCategorizeHost(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"localhost":     "localhost",
		"127.0.0.1":     "localhost",
		"::1":           "localhost",
		"10.0.0.5":      "private-ip",
		"192.168.1.10":  "private-ip",
		"fd00::1":       "private-ip",
		"8.8.8.8":       "public-ip",
		"broker.io":     "domain-io",
		"db.example.de": "domain-de",
		"mqtt":          "unknown-host",
	}
	for host, want := range tests {
		assert.Equal(t, want, categorizeHost(host), host)
	}
}

func TestAnonymizePath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "root", anonymizePath("/"))
	assert.Equal(t, "numeric", anonymizePath("/12345"))
	got := anonymizePath("/api/v2/123")
	parts := strings.Split(got, "/")
	assert.Len(t, parts, 3)
	assert.Equal(t, "numeric", parts[2])
	assert.True(t, strings.HasPrefix(parts[0], "seg-"))
}
