package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tphakala/foodscan/internal/logger"
)

func TestSlogLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelInfo, nil)

	log.Debug("hidden")
	log.Info("shown", logger.String("barcode", "0001"))
	log.Trace("also hidden")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "barcode=0001")
}

func TestModuleAndFieldsAreScoped(t *testing.T) {
	var buf bytes.Buffer
	base := logger.NewSlogLogger(&buf, logger.LogLevelDebug, time.UTC)

	lookup := base.Module("lookup").Module("openfoodfacts").With(logger.String("provider", "b"))
	lookup.Warn("provider failed", logger.Error(errors.New("boom")), logger.Duration("elapsed", 1500*time.Millisecond))
	base.Info("plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "module=lookup.openfoodfacts")
	assert.Contains(t, lines[0], "provider=b")
	assert.Contains(t, lines[0], "error=boom")
	assert.Contains(t, lines[0], "elapsed=1.5s")
	assert.NotContains(t, lines[1], "provider=")
}

func TestWithContextAddsTraceID(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelInfo, nil)

	ctx := logger.WithTraceID(context.Background(), "req-42")
	log.WithContext(ctx).Info("handled")
	log.WithContext(context.Background()).Info("untraced")

	out := buf.String()
	assert.Contains(t, out, "trace_id=req-42")
	assert.Equal(t, 1, strings.Count(out, "trace_id"))
}

func TestCentralLoggerWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "app.log")

	central, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "debug",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "debug"},
	})
	require.NoError(t, err)

	central.Module("pipeline").Info("product stored", logger.String("verdict", "bad"), logger.Int("flags", 2))
	require.NoError(t, central.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var record map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(data), &record))
	assert.Equal(t, "product stored", record["msg"])
	assert.Equal(t, "pipeline", record["module"])
	assert.Equal(t, "bad", record["verdict"])
	assert.InDelta(t, 2, record["flags"], 0)
}

func TestCentralLoggerModuleLevels(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")

	central, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "info",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "trace"},
		ModuleLevels: map[string]string{"datastore": "trace"},
	})
	require.NoError(t, err)

	central.Module("datastore").Trace("sql query")
	central.Module("api").Debug("suppressed")
	require.NoError(t, central.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "sql query")
	assert.NotContains(t, string(data), "suppressed")
}

func TestNewCentralLoggerRejectsBadInput(t *testing.T) {
	_, err := logger.NewCentralLogger(nil)
	require.Error(t, err)

	_, err = logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus"})
	require.Error(t, err)
}

func TestRedactSensitiveData(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		secret string
	}{
		{"query key", "GET https://api.barcodelookup.com/v3/products?barcode=1&key=abcdef123", "abcdef123"},
		{"bearer", "Authorization: Bearer abc.def.ghi", "abc.def.ghi"},
		{"secret", "jwtsecret: hunter2hunter2", "hunter2hunter2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := logger.RedactSensitiveData(tt.input)
			assert.NotContains(t, out, tt.secret)
			assert.Contains(t, out, "[REDACTED]")
		})
	}
	assert.Empty(t, logger.RedactSensitiveData(""))
}

func TestGormLoggerAdapterTrace(t *testing.T) {
	var buf bytes.Buffer
	adapter := logger.NewGormLoggerAdapter(logger.NewSlogLogger(&buf, logger.LogLevelTrace, nil), time.Second)
	ctx := logger.WithTraceID(context.Background(), "req-7")
	stmt := func() (string, int64) { return "SELECT * FROM products", 1 }

	adapter.Trace(ctx, time.Now(), stmt, nil)
	adapter.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	adapter.Trace(ctx, time.Now(), stmt, errors.New("disk I/O error"))
	adapter.Trace(ctx, time.Now().Add(-2*time.Second), stmt, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "level=TRACE")
	assert.Contains(t, lines[1], "level=TRACE", "record not found is a normal miss")
	assert.Contains(t, lines[2], "query error")
	assert.Contains(t, lines[2], "error=\"disk I/O error\"")
	assert.Contains(t, lines[3], "slow query")
	for _, line := range lines {
		assert.Contains(t, line, "trace_id=req-7")
	}
}
