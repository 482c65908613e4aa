// Package workspace assembles the per-identity components: a session, its
// persistence facade, its preference snapshot and a scanner bound to both.
package workspace

import (
	"context"
	"time"

	"github.com/tphakala/foodscan/internal/archive"
	"github.com/tphakala/foodscan/internal/events"
	"github.com/tphakala/foodscan/internal/identity"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/notification"
	"github.com/tphakala/foodscan/internal/ocr"
	"github.com/tphakala/foodscan/internal/persistence"
	"github.com/tphakala/foodscan/internal/pipeline"
	"github.com/tphakala/foodscan/internal/preferences"
	"github.com/tphakala/foodscan/internal/product"
)

// Factory holds the shared components every workspace is built from.
type Factory struct {
	Selector *persistence.Selector

	// LocalPreferences stores anonymous session preferences.
	LocalPreferences preferences.Store
	// RemotePreferences stores user preferences. Optional.
	RemotePreferences  preferences.Store
	DefaultPreferences product.UserPreferences

	Publisher events.Publisher
	Lookup    pipeline.Resolver
	OCR       ocr.Engine
	Archive   archive.Store
	Notifier  notification.Sink
	Metrics   pipeline.Recorder

	PlaceholderImage string
	ScanTimeout      time.Duration
	Logger           logger.Logger
}

// Workspace is everything one identity needs to scan and browse products.
type Workspace struct {
	Session     *identity.Session
	Store       *persistence.SessionFacade
	Preferences *preferences.Service
	Scanner     *pipeline.Scanner
}

// Open builds a workspace for id and loads its preferences. A preference load
// failure is logged and the workspace starts with the defaults.
func (f *Factory) Open(ctx context.Context, id identity.Identity) (*Workspace, error) {
	log := f.Logger
	if log == nil {
		log = logger.Global().Module("workspace")
	}

	session := identity.NewSession(id)
	store := persistence.NewSessionFacade(f.Selector, session)
	prefs := preferences.NewService(preferences.Config{
		Local:     f.LocalPreferences,
		Remote:    f.RemotePreferences,
		Defaults:  f.DefaultPreferences,
		Publisher: f.Publisher,
		Logger:    log.Module("preferences"),
	}, session)

	if err := prefs.Load(ctx); err != nil {
		log.Warn("using default preferences",
			logger.String("partition", id.Partition()),
			logger.Error(err))
	}

	scanner := pipeline.NewScanner(pipeline.Config{
		Lookup:           f.Lookup,
		OCR:              f.OCR,
		Store:            store,
		Preferences:      prefs,
		Archive:          f.Archive,
		Notifier:         f.Notifier,
		Metrics:          f.Metrics,
		PlaceholderImage: f.PlaceholderImage,
		ScanTimeout:      f.ScanTimeout,
		Logger:           log.Module("pipeline"),
	})

	return &Workspace{
		Session:     session,
		Store:       store,
		Preferences: prefs,
		Scanner:     scanner,
	}, nil
}

// Partition returns the storage partition of the current identity.
func (w *Workspace) Partition() string {
	return w.Session.Current().Partition()
}

// Close detaches the workspace from its session.
func (w *Workspace) Close() {
	w.Preferences.Close()
	w.Store.Close()
}
