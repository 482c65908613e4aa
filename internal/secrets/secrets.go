// Package secrets resolves credential values read from the config file. A
// value is either a literal, a string referencing environment variables as
// ${VAR} or ${VAR:-default}, or a "file:" reference to a mounted secret.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/logger"
)

const (
	// FilePrefix marks a value naming a secret file, e.g. file:/run/secrets/gemini
	FilePrefix = "file:"

	// secrets are tokens and passwords, never large files
	maxFileSize = 64 * 1024
)

// Resolve returns the secret value referenced by value. Values without a file
// reference or variable pass through unchanged.
func Resolve(value string) (string, error) {
	if path, ok := strings.CutPrefix(value, FilePrefix); ok {
		return ReadFile(path)
	}
	return Expand(value)
}

// Expand substitutes ${VAR} and ${VAR:-default} references. A variable that
// is unset or empty without a default is an error.
func Expand(s string) (string, error) {
	if !strings.Contains(s, "$") {
		return s, nil
	}

	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, fallback, hasFallback := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasFallback {
			return fallback
		}
		missing = append(missing, name)
		return ""
	})

	if len(missing) > 0 {
		return "", errors.Newf("missing required environment variable(s): %s", strings.Join(missing, ", ")).
			Component("secrets").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return expanded, nil
}

// ReadFile reads a secret file, dropping trailing newlines. Files readable by
// group or others are accepted with a warning.
func ReadFile(path string) (string, error) {
	if path == "" {
		return "", fileError(fmt.Errorf("secret file path is empty"), path)
	}
	path = filepath.Clean(path)

	info, err := os.Stat(path)
	if err != nil {
		return "", fileError(err, path)
	}
	if !info.Mode().IsRegular() {
		return "", fileError(fmt.Errorf("secret path is not a regular file"), path)
	}
	if info.Size() > maxFileSize {
		return "", fileError(fmt.Errorf("secret file too large (max %d bytes)", maxFileSize), path)
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Global().Module("secrets").Warn("secret file is readable by group or others",
			logger.String("path", path),
			logger.String("mode", fmt.Sprintf("%04o", perm)))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fileError(err, path)
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fileError(fmt.Errorf("secret file is empty"), path)
	}
	return secret, nil
}

func fileError(err error, path string) error {
	return errors.New(err).
		Component("secrets").
		Category(errors.CategoryFileIO).
		Context("path", path).
		Build()
}
