package logger

// LoggingConfig represents logging configuration. ModuleLevels overrides
// DefaultLevel per module, e.g. "datastore": "trace" logs SQL.
type LoggingConfig struct {
	DefaultLevel string            `yaml:"defaultlevel" json:"default_level" mapstructure:"defaultlevel"`
	Timezone     string            `yaml:"timezone" json:"timezone" mapstructure:"timezone"`
	Console      *ConsoleOutput    `yaml:"console" json:"console" mapstructure:"console"`
	FileOutput   *FileOutput       `yaml:"fileoutput" json:"file_output" mapstructure:"fileoutput"`
	ModuleLevels map[string]string `yaml:"modulelevels" json:"module_levels" mapstructure:"modulelevels"`
}

// ConsoleOutput represents console logging configuration.
// Console output uses human-readable text format.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" json:"level" mapstructure:"level"`
}

// FileOutput represents file logging configuration.
// File output uses JSON format for machine parsing.
type FileOutput struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" json:"path" mapstructure:"path"`
	Level   string `yaml:"level" json:"level" mapstructure:"level"`
}

// Default values for logging configuration
const (
	DefaultLogLevel       = "info"
	DefaultLogPath        = "logs/foodscan.log"
	DefaultConsoleEnabled = true
)

// applyConfigDefaults fills nil configuration sections.
// Console output is enabled by default, file output is not.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}

	if cfg.Console == nil {
		cfg.Console = &ConsoleOutput{
			Enabled: DefaultConsoleEnabled,
			Level:   cfg.DefaultLevel,
		}
	}

	if cfg.FileOutput == nil {
		cfg.FileOutput = &FileOutput{
			Path:  DefaultLogPath,
			Level: cfg.DefaultLevel,
		}
	}
}
