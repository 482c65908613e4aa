package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = NewStd("sentinel")

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) { r.reported = append(r.reported, ee) }
func (r *recordingReporter) IsEnabled() bool               { return true }

func TestBuildWithoutTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuilderSetsFields(t *testing.T) {
	ee := New(errSentinel).
		Component("lookup").
		Category(CategoryLookup).
		Context("provider", "openfoodfacts").
		Timing("fetch", 1500*time.Millisecond).
		Build()

	assert.Equal(t, "lookup", ee.GetComponent())
	assert.Equal(t, CategoryLookup, ee.Category)
	assert.Equal(t, "fetch", ee.GetContext()["operation"])
	assert.Equal(t, int64(1500), ee.GetContext()["duration_ms"])
	assert.Equal(t, "openfoodfacts", ee.GetContext()["provider"])

	ctx := ee.GetContext()
	ctx["provider"] = "changed"
	assert.Equal(t, "openfoodfacts", ee.GetContext()["provider"], "context must be copied")
}

func TestEnhancedErrorUnwrapsToSentinel(t *testing.T) {
	wrapped := fmt.Errorf("scan failed: %w", errSentinel)
	ee := New(wrapped).Category(CategoryProcessing).Build()

	assert.True(t, Is(ee, errSentinel))
	assert.True(t, Is(ee, &EnhancedError{Category: CategoryProcessing}))
	assert.False(t, Is(ee, &EnhancedError{Category: CategoryDatabase}))
	assert.True(t, IsCategory(fmt.Errorf("outer: %w", ee), CategoryProcessing))
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		msg  string
		want ErrorCategory
	}{
		{"context canceled", CategoryCancellation},
		{"context deadline exceeded", CategoryTimeout},
		{"product not found", CategoryNotFound},
		{"connection refused", CategoryNetwork},
		{"invalid barcode", CategoryValidation},
		{"something else", CategoryGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, New(NewStd(tt.msg)).Build().Category)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	ee := New(NewStd("missing")).Category(CategoryNotFound).Build()
	assert.True(t, IsNotFound(ee))
	assert.False(t, IsNotFound(NewStd("missing")))
}

func TestReporterReceivesErrorsWithDetectedComponent(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	New(NewStd("boom")).Category(CategoryDatabase).Build()

	require.Len(t, reporter.reported, 1)
	assert.NotEmpty(t, reporter.reported[0].GetComponent())
}

func TestLookupComponentPrefersLongestPattern(t *testing.T) {
	got := lookupComponent("github.com/tphakala/foodscan/internal/lookup/openfoodfacts.(*Provider).GetProductByBarcode")
	assert.Equal(t, "lookup.openfoodfacts", got)

	assert.Equal(t, ComponentUnknown, lookupComponent("main.main"))
}

func TestScrubMessageForPrivacy(t *testing.T) {
	scrubbed := scrubMessageForPrivacy("Error at https://api.example.com/v3/products?barcode=1&key=secret")
	assert.Equal(t, "Error at https://api.example.com/v3/products?[REDACTED]", scrubbed)

	scrubbed = scrubMessageForPrivacy("Config error: api_key=secret123 is invalid")
	assert.Contains(t, scrubbed, "[API_KEY_REDACTED]")
	assert.NotContains(t, scrubbed, "secret123")

	scrubbed = scrubMessageForPrivacy("lookup for user_id=42 failed")
	assert.Contains(t, scrubbed, "[ID_REDACTED]")
}

func TestSentryReporterSkipsExpectedCategories(t *testing.T) {
	reporter := NewSentryReporter(true)
	ee := &EnhancedError{Err: NewStd("nope"), Category: CategoryNotFound}

	reporter.ReportError(ee)
	assert.False(t, ee.IsReported())
}
