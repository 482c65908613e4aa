package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/secrets"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order: the user config directory, /etc/foodscan and the
// working directory.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}
	return []string{
		filepath.Join(homeDir, ".config", "foodscan"),
		"/etc/foodscan",
		".",
	}, nil
}

// Marshal renders settings as YAML.
func Marshal(settings *Settings) ([]byte, error) {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("error marshaling settings to YAML: %w", err)
	}
	return data, nil
}

// secretFields returns pointers to every credential in settings.
func secretFields(s *Settings) map[string]*string {
	return map[string]*string{
		"lookup.barcodelookup.apikey":   &s.Lookup.BarcodeLookup.APIKey,
		"ocr.gemini.apikey":             &s.OCR.Gemini.APIKey,
		"storage.remote.mysql.password": &s.Storage.Remote.MySQL.Password,
		"mqtt.password":                 &s.MQTT.Password,
		"webserver.jwtsecret":           &s.WebServer.JWTSecret,
		"sentry.dsn":                    &s.Sentry.DSN,
	}
}

// resolveSecrets replaces file references and environment variable
// references in credentials and push URLs with their values.
func resolveSecrets(s *Settings) error {
	var problems []string
	for key, field := range secretFields(s) {
		if *field == "" {
			continue
		}
		v, err := secrets.Resolve(*field)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", key, err))
			continue
		}
		*field = v
	}
	for i, u := range s.Notification.Push.URLs {
		v, err := secrets.Resolve(u)
		if err != nil {
			problems = append(problems, fmt.Sprintf("notification.push.urls[%d]: %v", i, err))
			continue
		}
		s.Notification.Push.URLs[i] = v
	}
	if len(problems) > 0 {
		slices.Sort(problems)
		return errors.Newf("unresolved secrets: %s", strings.Join(problems, "; ")).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// Redacted returns a copy of settings with secrets masked, for display.
func Redacted(settings *Settings) *Settings {
	c := *settings
	for _, field := range secretFields(&c) {
		if *field != "" {
			*field = "********"
		}
	}
	if len(c.Notification.Push.URLs) > 0 {
		c.Notification.Push.URLs = make([]string, len(settings.Notification.Push.URLs))
		for i := range c.Notification.Push.URLs {
			c.Notification.Push.URLs[i] = "********"
		}
	}
	return &c
}

// SaveYAMLConfig writes settings to configPath atomically. Comments and
// structure of an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	data, err := Marshal(settings)
	if err != nil {
		return err
	}
	return writeAtomic(configPath, data)
}

// WriteDefaultConfig writes the embedded default config to configPath. An
// existing file is left alone unless overwrite is set.
func WriteDefaultConfig(configPath string, overwrite bool) error {
	if _, err := os.Stat(configPath); err == nil && !overwrite {
		return errors.Newf("config file %s already exists", configPath).
			Component("conf").
			Category(errors.CategoryConflict).
			Build()
	}
	data, err := DefaultConfig()
	if err != nil {
		return err
	}
	return writeAtomic(configPath, data)
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(data); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}
	if err := os.Rename(tempFileName, path); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}
