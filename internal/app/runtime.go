package app

import (
	"context"

	"github.com/tphakala/foodscan/internal/buildinfo"
	"github.com/tphakala/foodscan/internal/conf"
	"github.com/tphakala/foodscan/internal/logger"
)

// Runtime carries state from the root command to its subcommands. Settings
// and App are nil until Start has run.
type Runtime struct {
	BuildInfo  *buildinfo.Context
	ConfigFile string
	Settings   *conf.Settings
	App        *App

	central *logger.CentralLogger
}

// NewRuntime creates an empty runtime for the given build.
func NewRuntime(info *buildinfo.Context) *Runtime {
	return &Runtime{BuildInfo: info}
}

// LoadSettings reads the configuration without building any component.
func (r *Runtime) LoadSettings() (*conf.Settings, error) {
	if r.Settings != nil {
		return r.Settings, nil
	}
	settings, err := conf.Load(r.ConfigFile)
	if err != nil {
		return nil, err
	}
	r.Settings = settings
	return settings, nil
}

// Start loads settings, installs the central logger and wires the App.
// Interactive commands pass quiet to keep informational logs off the console.
func (r *Runtime) Start(ctx context.Context, quiet bool) error {
	settings, err := r.LoadSettings()
	if err != nil {
		return err
	}

	logCfg := settings.Logging
	if logCfg.Console != nil {
		console := *logCfg.Console
		switch {
		case settings.Main.Debug:
			console.Level = string(logger.LogLevelDebug)
		case quiet:
			console.Level = string(logger.LogLevelWarn)
		}
		logCfg.Console = &console
	}
	if settings.Main.Debug {
		logCfg.DefaultLevel = string(logger.LogLevelDebug)
	}

	central, err := logger.NewCentralLogger(&logCfg)
	if err != nil {
		return err
	}
	logger.SetGlobal(central)
	r.central = central

	a, err := New(ctx, settings, r.BuildInfo, central.Module("app"))
	if err != nil {
		return err
	}
	r.App = a
	return nil
}

// Stop closes the App and flushes the logger.
func (r *Runtime) Stop() {
	if r.App != nil {
		r.App.Close()
		r.App = nil
	}
	if r.central != nil {
		_ = r.central.Flush()
		_ = r.central.Close()
		logger.SetGlobal(nil)
		r.central = nil
	}
}
