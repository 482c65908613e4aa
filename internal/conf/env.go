package conf

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tphakala/foodscan/internal/errors"
)

// DotEnvFile is loaded before the environment is read, when present.
const DotEnvFile = ".env"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"main.debug", "FOODSCAN_DEBUG", validateEnvBool},
		{"main.user", "FOODSCAN_USER", nil},
		{"logging.defaultlevel", "FOODSCAN_LOG_LEVEL", validateEnvLogLevel},

		// Lookup providers
		{"lookup.timeout", "FOODSCAN_LOOKUP_TIMEOUT", validateEnvDuration},
		{"lookup.retries", "FOODSCAN_LOOKUP_RETRIES", validateEnvPositiveInt},
		{"lookup.ratelimit", "FOODSCAN_LOOKUP_RATELIMIT", validateEnvNonNegativeFloat},
		{"lookup.barcodelookup.enabled", "FOODSCAN_BARCODELOOKUP_ENABLED", validateEnvBool},
		{"lookup.barcodelookup.apikey", "FOODSCAN_BARCODELOOKUP_APIKEY", nil},
		{"lookup.barcodelookup.endpoint", "FOODSCAN_BARCODELOOKUP_ENDPOINT", validateEnvURL},
		{"lookup.openfoodfacts.enabled", "FOODSCAN_OPENFOODFACTS_ENABLED", validateEnvBool},
		{"lookup.openfoodfacts.endpoint", "FOODSCAN_OPENFOODFACTS_ENDPOINT", validateEnvURL},

		// OCR
		{"ocr.engine", "FOODSCAN_OCR_ENGINE", validateEnvOCREngine},
		{"ocr.gemini.apikey", "FOODSCAN_GEMINI_APIKEY", nil},
		{"ocr.gemini.model", "FOODSCAN_GEMINI_MODEL", nil},

		// Storage
		{"storage.session.ttl", "FOODSCAN_SESSION_TTL", validateEnvDuration},
		{"storage.remote.driver", "FOODSCAN_STORAGE_DRIVER", validateEnvDriver},
		{"storage.remote.sqlite.path", "FOODSCAN_SQLITE_PATH", nil},
		{"storage.remote.mysql.host", "FOODSCAN_MYSQL_HOST", nil},
		{"storage.remote.mysql.port", "FOODSCAN_MYSQL_PORT", validateEnvPort},
		{"storage.remote.mysql.username", "FOODSCAN_MYSQL_USERNAME", nil},
		{"storage.remote.mysql.password", "FOODSCAN_MYSQL_PASSWORD", nil},
		{"storage.remote.mysql.database", "FOODSCAN_MYSQL_DATABASE", nil},

		// Preferences and pipeline
		{"preferences.maxcalories", "FOODSCAN_MAX_CALORIES", validateEnvNonNegativeFloat},
		{"pipeline.scantimeout", "FOODSCAN_SCAN_TIMEOUT", validateEnvDuration},

		// Outputs
		{"mqtt.enabled", "FOODSCAN_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "FOODSCAN_MQTT_BROKER", validateEnvURL},
		{"mqtt.username", "FOODSCAN_MQTT_USERNAME", nil},
		{"mqtt.password", "FOODSCAN_MQTT_PASSWORD", nil},
		{"webserver.listen", "FOODSCAN_LISTEN", nil},
		{"webserver.jwtsecret", "FOODSCAN_JWT_SECRET", nil},
		{"sentry.enabled", "FOODSCAN_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "FOODSCAN_SENTRY_DSN", nil},
		{"archive.s3.enabled", "FOODSCAN_S3_ENABLED", validateEnvBool},
		{"archive.s3.bucket", "FOODSCAN_S3_BUCKET", nil},
		{"archive.s3.region", "FOODSCAN_S3_REGION", nil},
		{"archive.s3.endpoint", "FOODSCAN_S3_ENDPOINT", validateEnvURL},
	}
}

// loadDotEnv loads DotEnvFile into the process environment. Variables that
// are already set win. A missing file is ignored.
func loadDotEnv() error {
	if _, err := os.Stat(DotEnvFile); err != nil {
		return nil
	}
	if err := godotenv.Load(DotEnvFile); err != nil {
		return errors.New(fmt.Errorf("error loading %s: %w", DotEnvFile, err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration '%s': %w", value, err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", value)
	}
	return nil
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer '%s': %w", value, err)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateEnvNonNegativeFloat(value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid number '%s': %w", value, err)
	}
	if f < 0 {
		return fmt.Errorf("must not be negative, got %g", f)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got '%s'", value)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host, got '%s'", value)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	if !slices.Contains(validLogLevels, strings.ToLower(value)) {
		return fmt.Errorf("log level must be one of %s, got '%s'", strings.Join(validLogLevels, ", "), value)
	}
	return nil
}

func validateEnvOCREngine(value string) error {
	if !slices.Contains(validOCREngines, value) {
		return fmt.Errorf("OCR engine must be one of %s, got '%s'", strings.Join(validOCREngines, ", "), value)
	}
	return nil
}

func validateEnvDriver(value string) error {
	if !slices.Contains(validDrivers, value) {
		return fmt.Errorf("storage driver must be one of %s, got '%s'", strings.Join(validDrivers, ", "), value)
	}
	return nil
}
