package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/foodscan/internal/product"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_EmbeddedDefaults(t *testing.T) {
	data, err := DefaultConfig()
	require.NoError(t, err)

	s, err := LoadWith(viper.New(), writeConfig(t, string(data)))
	require.NoError(t, err)

	assert.Equal(t, "FoodScan", s.Main.Name)
	assert.Equal(t, 10*time.Second, s.Lookup.Timeout)
	assert.Equal(t, 3, s.Lookup.Retries)
	assert.True(t, s.Lookup.OpenFoodFacts.Enabled)
	assert.False(t, s.Lookup.BarcodeLookup.Enabled)
	assert.Equal(t, "text", s.OCR.Engine)
	assert.Equal(t, 24*time.Hour, s.Storage.Session.TTL)
	assert.Equal(t, "none", s.Storage.Remote.Driver)
	assert.Equal(t, []string{"aspartame", "high fructose corn syrup", "hydrogenated"}, s.Preferences.AvoidedIngredients)
	assert.Equal(t, product.GoalMaintain, s.Preferences.Goal)
	assert.Nil(t, s.Preferences.MaxCalories)
	assert.Equal(t, 30*time.Second, s.Pipeline.ScanTimeout)
	assert.Equal(t, []string{"warning", "error"}, s.Notification.Push.Types)
	assert.Equal(t, "/metrics", s.Metrics.Path)
	require.NotNil(t, s.Logging.Console)
	assert.True(t, s.Logging.Console.Enabled)
	assert.Equal(t, 1024, s.EventBus.BufferSize)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
lookup:
  retries: 5
  barcodelookup:
    enabled: true
    apikey: secret-key
preferences:
  avoided: [honey]
  maxcalories: 250
storage:
  remote:
    driver: sqlite
    sqlite:
      path: /tmp/foodscan-test.db
`)
	s, err := LoadWith(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 5, s.Lookup.Retries)
	assert.True(t, s.Lookup.BarcodeLookup.Enabled)
	assert.Equal(t, "secret-key", s.Lookup.BarcodeLookup.APIKey)
	assert.Equal(t, []string{"honey"}, s.Preferences.AvoidedIngredients)
	require.NotNil(t, s.Preferences.MaxCalories)
	assert.InDelta(t, 250, *s.Preferences.MaxCalories, 0)
	assert.Equal(t, "sqlite", s.Storage.Remote.Driver)
	assert.Equal(t, 24*time.Hour, s.Lookup.CacheTTL, "unset keys keep defaults")
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "ocr:\n  engine: text\n")
	t.Setenv("FOODSCAN_OCR_ENGINE", "gemini")
	t.Setenv("FOODSCAN_GEMINI_APIKEY", "g-key")
	t.Setenv("FOODSCAN_SCAN_TIMEOUT", "5s")

	s, err := LoadWith(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "gemini", s.OCR.Engine)
	assert.Equal(t, "g-key", s.OCR.Gemini.APIKey)
	assert.Equal(t, 5*time.Second, s.Pipeline.ScanTimeout)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	path := writeConfig(t, "")
	t.Setenv("FOODSCAN_STORAGE_DRIVER", "postgres")

	_, err := LoadWith(viper.New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FOODSCAN_STORAGE_DRIVER")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := LoadWith(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateSettings_CollectsAllProblems(t *testing.T) {
	t.Parallel()
	v := viper.New()
	setDefaultConfig(v)
	s := &Settings{}
	require.NoError(t, v.Unmarshal(s))
	require.NoError(t, ValidateSettings(s), "defaults are valid")

	s.Lookup.OpenFoodFacts.Enabled = false
	s.OCR.Engine = "tesseract"
	s.Storage.Remote.Driver = "mysql"
	s.Storage.Remote.MySQL.Username = ""
	s.MQTT.Enabled = true
	s.MQTT.QoS = 3
	s.Preferences.Goal = "bulk"

	err := ValidateSettings(s)
	require.Error(t, err)
	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 5)
}

func TestRedactedAndMarshal(t *testing.T) {
	t.Parallel()
	v := viper.New()
	setDefaultConfig(v)
	s := &Settings{}
	require.NoError(t, v.Unmarshal(s))
	s.Lookup.BarcodeLookup.APIKey = "secret-key"
	s.Notification.Push.URLs = []string{"telegram://token@telegram?chats=1"}

	r := Redacted(s)
	assert.Equal(t, "********", r.Lookup.BarcodeLookup.APIKey)
	assert.Equal(t, []string{"********"}, r.Notification.Push.URLs)
	assert.Equal(t, "secret-key", s.Lookup.BarcodeLookup.APIKey, "original untouched")
	assert.Equal(t, "telegram://token@telegram?chats=1", s.Notification.Push.URLs[0])

	out, err := Marshal(r)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(out, &decoded))
	assert.Contains(t, decoded, "lookup")
	assert.NotContains(t, string(out), "secret-key")
}

func TestSaveAndWriteDefaultConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	require.NoError(t, WriteDefaultConfig(path, false))
	require.Error(t, WriteDefaultConfig(path, false), "existing file is kept")

	v := viper.New()
	setDefaultConfig(v)
	s := &Settings{}
	require.NoError(t, v.Unmarshal(s))
	s.Lookup.Retries = 7
	require.NoError(t, SaveYAMLConfig(path, s))

	reloaded, err := LoadWith(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, 7, reloaded.Lookup.Retries)
}

func TestLoad_ResolvesSecrets(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "mqtt-password")
	require.NoError(t, os.WriteFile(secretPath, []byte("broker-pw\n"), 0o600))
	t.Setenv("FS_TEST_GEMINI_KEY", "gemini-key")

	path := writeConfig(t, `
ocr:
  gemini:
    apikey: "${FS_TEST_GEMINI_KEY}"
mqtt:
  password: "file:`+secretPath+`"
`)
	s, err := LoadWith(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-key", s.OCR.Gemini.APIKey)
	assert.Equal(t, "broker-pw", s.MQTT.Password)
}

func TestLoad_UnresolvedSecret(t *testing.T) {
	path := writeConfig(t, `
webserver:
  jwtsecret: "${FS_TEST_UNSET_SECRET}"
`)
	_, err := LoadWith(viper.New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webserver.jwtsecret")
}
