package conf

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

var (
	validLogLevels  = []string{"trace", "debug", "info", "warn", "warning", "error"}
	validOCREngines = []string{"text", "gemini"}
	validDrivers    = []string{"none", "sqlite", "mysql"}
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct and reports every problem at once.
func ValidateSettings(s *Settings) error {
	ve := ValidationError{}
	add := func(err error) {
		if err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	add(validateLookupSettings(&s.Lookup))
	add(validateOCRSettings(&s.OCR))
	add(validateStorageSettings(&s.Storage))
	add(validatePreferenceSettings(s))
	add(validateOutputSettings(s))

	if s.Pipeline.ScanTimeout <= 0 {
		ve.Errors = append(ve.Errors, "pipeline.scantimeout must be positive")
	}
	if s.EventBus.BufferSize <= 0 || s.EventBus.Workers <= 0 {
		ve.Errors = append(ve.Errors, "eventbus.buffersize and eventbus.workers must be positive")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLookupSettings(l *LookupSettings) error {
	var problems []string
	if !l.BarcodeLookup.Enabled && !l.OpenFoodFacts.Enabled {
		problems = append(problems, "at least one lookup provider must be enabled")
	}
	if l.BarcodeLookup.Enabled && strings.TrimSpace(l.BarcodeLookup.APIKey) == "" {
		problems = append(problems, "lookup.barcodelookup.apikey is required when the provider is enabled")
	}
	if l.Retries < 1 {
		problems = append(problems, "lookup.retries must be at least 1")
	}
	if l.RateLimit < 0 {
		problems = append(problems, "lookup.ratelimit must not be negative")
	}
	if l.Timeout <= 0 {
		problems = append(problems, "lookup.timeout must be positive")
	}
	for _, ep := range []string{l.BarcodeLookup.Endpoint, l.OpenFoodFacts.Endpoint} {
		if ep == "" {
			continue
		}
		if err := validateEnvURL(ep); err != nil {
			problems = append(problems, "lookup endpoint: "+err.Error())
		}
	}
	return joinProblems(problems)
}

func validateOCRSettings(o *OCRSettings) error {
	if !slices.Contains(validOCREngines, o.Engine) {
		return fmt.Errorf("ocr.engine must be one of %s, got %q", strings.Join(validOCREngines, ", "), o.Engine)
	}
	if o.Engine == "gemini" && strings.TrimSpace(o.Gemini.APIKey) == "" {
		return fmt.Errorf("ocr.gemini.apikey is required for the gemini engine")
	}
	return nil
}

func validateStorageSettings(s *StorageSettings) error {
	var problems []string
	if s.Session.TTL <= 0 {
		problems = append(problems, "storage.session.ttl must be positive")
	}
	switch s.Remote.Driver {
	case "none":
	case "sqlite":
		if strings.TrimSpace(s.Remote.SQLite.Path) == "" {
			problems = append(problems, "storage.remote.sqlite.path is required")
		}
	case "mysql":
		m := s.Remote.MySQL
		if m.Host == "" || m.Username == "" || m.Database == "" {
			problems = append(problems, "storage.remote.mysql requires host, username and database")
		}
		if m.Port != "" {
			if err := validateEnvPort(m.Port); err != nil {
				problems = append(problems, "storage.remote.mysql.port: "+err.Error())
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("storage.remote.driver must be one of %s, got %q",
			strings.Join(validDrivers, ", "), s.Remote.Driver))
	}
	return joinProblems(problems)
}

func validatePreferenceSettings(s *Settings) error {
	if !s.Preferences.Goal.Valid() {
		return fmt.Errorf("preferences.goal %q is not a known goal", s.Preferences.Goal)
	}
	if s.Preferences.MaxCalories != nil && *s.Preferences.MaxCalories <= 0 {
		return fmt.Errorf("preferences.maxcalories must be positive")
	}
	if s.Product.PlaceholderImage != "" {
		if _, err := url.ParseRequestURI(s.Product.PlaceholderImage); err != nil {
			return fmt.Errorf("product.placeholderimage is not a valid URL: %w", err)
		}
	}
	return nil
}

func validateOutputSettings(s *Settings) error {
	var problems []string
	if s.Notification.Push.Enabled && len(s.Notification.Push.URLs) == 0 {
		problems = append(problems, "notification.push.urls is required when push is enabled")
	}
	if s.MQTT.Enabled {
		if s.MQTT.Broker == "" {
			problems = append(problems, "mqtt.broker is required when mqtt is enabled")
		}
		if s.MQTT.QoS < 0 || s.MQTT.QoS > 2 {
			problems = append(problems, "mqtt.qos must be 0, 1 or 2")
		}
	}
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		problems = append(problems, "sentry.dsn is required when sentry is enabled")
	}
	if s.Archive.S3.Enabled && s.Archive.S3.Bucket == "" {
		problems = append(problems, "archive.s3.bucket is required when archiving is enabled")
	}
	if s.Metrics.Enabled && !strings.HasPrefix(s.Metrics.Path, "/") {
		problems = append(problems, "metrics.path must start with /")
	}
	return joinProblems(problems)
}

func joinProblems(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%s", strings.Join(problems, "; "))
}
