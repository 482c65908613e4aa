// Package conf loads FoodScan settings from config.yaml, environment
// variables and command line flags through viper.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/product"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings contains all configuration options for FoodScan.
type Settings struct {
	Main struct {
		Name  string `yaml:"name"`
		Debug bool   `yaml:"debug"`
		// User signs the CLI in as this user id. Empty runs anonymously.
		User string `yaml:"user"`
	} `yaml:"main"`

	Logging      logger.LoggingConfig    `yaml:"logging"`
	Lookup       LookupSettings          `yaml:"lookup"`
	OCR          OCRSettings             `yaml:"ocr"`
	Storage      StorageSettings         `yaml:"storage"`
	Preferences  product.UserPreferences `yaml:"preferences"`
	Product      ProductSettings         `yaml:"product"`
	Pipeline     PipelineSettings        `yaml:"pipeline"`
	Notification NotificationSettings    `yaml:"notification"`
	MQTT         MQTTSettings            `yaml:"mqtt"`
	WebServer    WebServerSettings       `yaml:"webserver"`
	Metrics      MetricsSettings         `yaml:"metrics"`
	Sentry       SentrySettings          `yaml:"sentry"`
	Archive      ArchiveSettings         `yaml:"archive"`
	EventBus     EventBusSettings        `yaml:"eventbus"`
}

// LookupSettings configures the barcode lookup chain.
type LookupSettings struct {
	Timeout          time.Duration         `yaml:"timeout"`          // per request timeout
	Retries          int                   `yaml:"retries"`          // attempts per provider call
	RateLimit        float64               `yaml:"ratelimit"`        // requests per second per provider, 0 disables
	Burst            int                   `yaml:"burst"`            // rate limiter burst
	CacheTTL         time.Duration         `yaml:"cachettl"`         // lifetime of cached hits
	NegativeCacheTTL time.Duration         `yaml:"negativecachettl"` // lifetime of cached misses, negative disables
	BarcodeLookup    BarcodeLookupSettings `yaml:"barcodelookup"`
	OpenFoodFacts    OpenFoodFactsSettings `yaml:"openfoodfacts"`
}

// BarcodeLookupSettings configures the commercial barcode database.
type BarcodeLookupSettings struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"apikey"`
	Endpoint string `yaml:"endpoint"`
}

// OpenFoodFactsSettings configures the community nutrition database.
type OpenFoodFactsSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// OCRSettings selects the label recognition engine.
type OCRSettings struct {
	Engine string         `yaml:"engine"` // text or gemini
	Gemini GeminiSettings `yaml:"gemini"`
}

// GeminiSettings configures the Gemini vision engine.
type GeminiSettings struct {
	APIKey string `yaml:"apikey"`
	Model  string `yaml:"model"`
}

// StorageSettings configures the record stores.
type StorageSettings struct {
	Session struct {
		TTL time.Duration `yaml:"ttl"` // idle lifetime of anonymous session records
	} `yaml:"session"`
	Remote RemoteStoreSettings `yaml:"remote"`
}

// RemoteStoreSettings configures the database for authenticated users.
type RemoteStoreSettings struct {
	Driver string `yaml:"driver"` // none, sqlite or mysql
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	MySQL struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	} `yaml:"mysql"`
}

// ProductSettings holds product record defaults.
type ProductSettings struct {
	PlaceholderImage string `yaml:"placeholderimage"`
}

// PipelineSettings configures scan execution.
type PipelineSettings struct {
	ScanTimeout time.Duration `yaml:"scantimeout"`
}

// NotificationSettings configures user feedback delivery.
type NotificationSettings struct {
	MaxItems int          `yaml:"maxitems"`
	Push     PushSettings `yaml:"push"`
}

// PushSettings configures shoutrrr push delivery.
type PushSettings struct {
	Enabled bool          `yaml:"enabled"`
	URLs    []string      `yaml:"urls"`
	Types   []string      `yaml:"types"` // info, warning, error; empty sends all
	Timeout time.Duration `yaml:"timeout"`
}

// MQTTSettings configures the MQTT product feed.
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	ClientID string `yaml:"clientid"`
	QoS      int    `yaml:"qos"`
	Retain   bool   `yaml:"retain"`
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Listen     string        `yaml:"listen"`
	JWTSecret  string        `yaml:"jwtsecret"`
	SessionTTL time.Duration `yaml:"sessionttl"` // idle lifetime of per-identity scanners
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool   `yaml:"enabled"`
	DSN         string `yaml:"dsn"`
	Environment string `yaml:"environment"`
}

// ArchiveSettings configures label image archiving.
type ArchiveSettings struct {
	S3 S3Settings `yaml:"s3"`
}

// S3Settings configures the S3 bucket for label images.
type S3Settings struct {
	Enabled   bool   `yaml:"enabled"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PublicURL string `yaml:"publicurl"`
	Prefix    string `yaml:"prefix"`
}

// EventBusSettings configures the in-process event bus.
type EventBusSettings struct {
	BufferSize int `yaml:"buffersize"`
	Workers    int `yaml:"workers"`
}

// Load reads settings using the global viper instance. configFile may be
// empty to search the default config paths.
func Load(configFile string) (*Settings, error) {
	return LoadWith(viper.GetViper(), configFile)
}

// LoadWith reads defaults, the optional .env file, the config file and
// environment variables into v and unmarshals the result.
func LoadWith(v *viper.Viper, configFile string) (*Settings, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error unmarshaling config into struct: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(fmt.Errorf("error validating settings: %w", err)).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return settings, nil
}

// readConfigFile reads configFile or searches the default paths. A missing
// config file is not an error; defaults and environment apply.
func readConfigFile(v *viper.Viper, configFile string) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		paths, err := GetDefaultConfigPaths()
		if err != nil {
			return err
		}
		for _, p := range paths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return errors.New(fmt.Errorf("fatal error reading config file: %w", err)).
			Component("conf").
			Category(errors.CategoryFileIO).
			Build()
	}
	return nil
}

// DefaultConfig returns the embedded default config.yaml.
func DefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, errors.New(fmt.Errorf("error reading embedded config: %w", err)).
			Component("conf").
			Category(errors.CategoryFileIO).
			Build()
	}
	return data, nil
}
