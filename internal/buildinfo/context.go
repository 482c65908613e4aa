// Package buildinfo carries build-time metadata separate from user configuration.
package buildinfo

import "fmt"

// Context contains build-time metadata that is not user-configurable.
type Context struct {
	// Version holds the Git version tag from build
	Version string
	// BuildDate is the time when the binary was built
	BuildDate string
}

// New returns a Context, substituting "unknown" for empty values.
func New(version, buildDate string) *Context {
	if version == "" {
		version = "unknown"
	}
	if buildDate == "" {
		buildDate = "unknown"
	}
	return &Context{Version: version, BuildDate: buildDate}
}

// Release is the release name reported to error telemetry.
func (c *Context) Release() string {
	return fmt.Sprintf("foodscan@%s", c.Version)
}

// String returns the version line printed by the CLI.
func (c *Context) String() string {
	return fmt.Sprintf("foodscan %s (built %s)", c.Version, c.BuildDate)
}
