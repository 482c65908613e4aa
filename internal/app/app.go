// Package app is the composition root. It turns Settings into wired
// components shared by the CLI commands and the HTTP server.
package app

import (
	"context"
	"time"

	"github.com/tphakala/foodscan/internal/api"
	"github.com/tphakala/foodscan/internal/archive"
	"github.com/tphakala/foodscan/internal/buildinfo"
	"github.com/tphakala/foodscan/internal/conf"
	"github.com/tphakala/foodscan/internal/datastore"
	"github.com/tphakala/foodscan/internal/events"
	"github.com/tphakala/foodscan/internal/httpclient"
	"github.com/tphakala/foodscan/internal/identity"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/lookup"
	"github.com/tphakala/foodscan/internal/lookup/barcodelookup"
	"github.com/tphakala/foodscan/internal/lookup/openfoodfacts"
	"github.com/tphakala/foodscan/internal/mqtt"
	"github.com/tphakala/foodscan/internal/notification"
	"github.com/tphakala/foodscan/internal/observability"
	"github.com/tphakala/foodscan/internal/ocr"
	"github.com/tphakala/foodscan/internal/persistence"
	"github.com/tphakala/foodscan/internal/preferences"
	"github.com/tphakala/foodscan/internal/telemetry"
	"github.com/tphakala/foodscan/internal/workspace"
)

const shutdownTimeout = 5 * time.Second

var (
	_ persistence.RecordStore = (*datastore.ProductRepository)(nil)
	_ preferences.Store       = (*datastore.PreferencesRepository)(nil)
)

// App holds the process-wide components.
type App struct {
	Settings      *conf.Settings
	BuildInfo     *buildinfo.Context
	Logger        logger.Logger
	Metrics       *observability.Metrics
	Bus           *events.EventBus
	Notifications *notification.Service
	Lookup        *lookup.Chain
	Workspaces    *workspace.Factory
	JWT           *identity.JWTResolver

	httpClient *httpclient.Client
	db         *datastore.Manager
	ocr        ocr.Engine
	mqtt       mqtt.Client
}

// New wires every component from settings. Close releases them.
func New(ctx context.Context, settings *conf.Settings, info *buildinfo.Context, log logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Global().Module("app")
	}
	a := &App{Settings: settings, BuildInfo: info, Logger: log}

	if err := telemetry.Init(settings.Sentry, info, log.Module("telemetry")); err != nil {
		// telemetry is optional
		log.Warn("error telemetry disabled", logger.Error(err))
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return nil, err
	}
	a.Metrics = metrics

	a.Bus = events.New(events.Config{
		BufferSize: settings.EventBus.BufferSize,
		Workers:    settings.EventBus.Workers,
	}, log.Module("events"))

	a.Notifications = notification.NewService(notification.ServiceConfig{
		MaxNotifications: settings.Notification.MaxItems,
		PushTimeout:      settings.Notification.Push.Timeout,
		Providers:        a.pushProviders(),
		Logger:           log.Module("notification"),
	})

	a.httpClient = httpclient.New(&httpclient.Config{DefaultTimeout: settings.Lookup.Timeout})
	a.Lookup = lookup.NewChain(a.adapters(),
		lookup.WithObserver(metrics.Pipeline),
		lookup.WithLogger(log.Module("lookup")))

	a.ocr, err = ocr.New(ctx, ocr.Config{
		Engine: settings.OCR.Engine,
		Gemini: ocr.GeminiConfig{APIKey: settings.OCR.Gemini.APIKey, Model: settings.OCR.Gemini.Model},
	}, log.Module("ocr"))
	if err != nil {
		a.Close()
		return nil, err
	}

	var labelArchive archive.Store
	if s3 := settings.Archive.S3; s3.Enabled {
		store, err := archive.NewS3Store(ctx, archive.Config{
			Bucket:    s3.Bucket,
			Region:    s3.Region,
			Endpoint:  s3.Endpoint,
			PublicURL: s3.PublicURL,
			Prefix:    s3.Prefix,
		}, log.Module("archive"))
		if err != nil {
			a.Close()
			return nil, err
		}
		labelArchive = store
	}

	var (
		remoteProducts persistence.RecordStore
		remotePrefs    preferences.Store
	)
	if settings.Storage.Remote.Driver != "" && settings.Storage.Remote.Driver != "none" {
		if a.db, err = a.openDatabase(); err != nil {
			a.Close()
			return nil, err
		}
		remoteProducts = a.db.Products()
		remotePrefs = a.db.Preferences()
	}

	a.Workspaces = &workspace.Factory{
		Selector: persistence.NewSelector(
			persistence.NewMemoryStore(settings.Storage.Session.TTL),
			remoteProducts, a.Bus, log.Module("persistence")),
		LocalPreferences:   preferences.NewMemoryStore(),
		RemotePreferences:  remotePrefs,
		DefaultPreferences: preferences.Normalize(settings.Preferences),
		Publisher:          a.Bus,
		Lookup:             a.Lookup,
		OCR:                a.ocr,
		Archive:            labelArchive,
		Notifier:           a.Notifications,
		Metrics:            metrics.Pipeline,
		PlaceholderImage:   settings.Product.PlaceholderImage,
		ScanTimeout:        settings.Pipeline.ScanTimeout,
		Logger:             log,
	}
	a.JWT = identity.NewJWTResolver(settings.WebServer.JWTSecret)

	log.Info("application initialized",
		logger.String("version", info.Version),
		logger.Strings("lookup_providers", a.Lookup.Adapters()),
		logger.String("ocr_engine", a.ocr.Name()),
		logger.String("remote_store", settings.Storage.Remote.Driver),
		logger.Bool("archive", labelArchive != nil))
	return a, nil
}

func (a *App) adapters() []lookup.Adapter {
	s := a.Settings.Lookup
	log := a.Logger.Module("lookup")
	var adapters []lookup.Adapter

	wrap := func(adapter lookup.Adapter) lookup.Adapter {
		return lookup.NewCached(lookup.NewLimited(adapter, s.RateLimit, s.Burst), s.CacheTTL, s.NegativeCacheTTL)
	}

	if s.BarcodeLookup.Enabled {
		provider, err := barcodelookup.New(barcodelookup.Config{
			APIKey:     s.BarcodeLookup.APIKey,
			Endpoint:   s.BarcodeLookup.Endpoint,
			MaxRetries: s.Retries,
		}, a.httpClient, log)
		if err != nil {
			log.Warn("barcode lookup provider disabled", logger.Error(err))
		} else {
			adapters = append(adapters, wrap(provider))
		}
	}
	if s.OpenFoodFacts.Enabled {
		adapters = append(adapters, wrap(openfoodfacts.New(openfoodfacts.Config{
			Endpoint:   s.OpenFoodFacts.Endpoint,
			MaxRetries: s.Retries,
		}, a.httpClient, log)))
	}
	return adapters
}

func (a *App) pushProviders() []notification.PushProvider {
	push := a.Settings.Notification.Push
	if !push.Enabled || len(push.URLs) == 0 {
		return nil
	}
	types := make([]notification.Type, 0, len(push.Types))
	for _, t := range push.Types {
		types = append(types, notification.Type(t))
	}
	provider, err := notification.NewShoutrrrProvider("shoutrrr", push.URLs, types, push.Timeout)
	if err != nil {
		a.Logger.Warn("push notifications disabled", logger.Error(err))
		return nil
	}
	return []notification.PushProvider{provider}
}

func (a *App) openDatabase() (*datastore.Manager, error) {
	remote := a.Settings.Storage.Remote
	db, err := datastore.Open(datastore.Config{
		Driver: remote.Driver,
		SQLite: datastore.SQLiteConfig{Path: remote.SQLite.Path},
		MySQL: datastore.MySQLConfig{
			Host:     remote.MySQL.Host,
			Port:     remote.MySQL.Port,
			Username: remote.MySQL.Username,
			Password: remote.MySQL.Password,
			Database: remote.MySQL.Database,
		},
	}, a.Logger.Module("datastore"))
	if err != nil {
		return nil, err
	}
	if err := db.Initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Identity returns the identity the CLI runs as: the configured user, or the
// local anonymous session.
func (a *App) Identity() identity.Identity {
	if a.Settings.Main.User != "" {
		return identity.User(a.Settings.Main.User)
	}
	return identity.Anonymous("")
}

// OpenWorkspace opens the workspace of the CLI identity.
func (a *App) OpenWorkspace(ctx context.Context) (*workspace.Workspace, error) {
	return a.Workspaces.Open(ctx, a.Identity())
}

// ConnectMQTT connects to the broker and registers the product publisher.
// It is a no-op when MQTT is disabled.
func (a *App) ConnectMQTT(ctx context.Context) error {
	s := a.Settings.MQTT
	if !s.Enabled {
		return nil
	}
	cfg := mqtt.ConfigFromSettings(s)
	client, err := mqtt.NewClient(cfg, a.Metrics.MQTT, a.Logger.Module("mqtt"))
	if err != nil {
		return err
	}
	if err := client.Connect(ctx); err != nil {
		return err
	}
	a.mqtt = client
	return a.Bus.RegisterConsumer(mqtt.NewPublisher(client, cfg.Topic, cfg.PublishTimeout, a.Logger.Module("mqtt")))
}

// APIServer builds the HTTP server over the shared components.
func (a *App) APIServer() *api.Server {
	cfg := api.Config{
		Workspaces:    a.Workspaces,
		JWT:           a.JWT,
		Events:        a.Bus,
		Notifications: a.Notifications,
		SessionTTL:    a.Settings.WebServer.SessionTTL,
		BuildInfo:     a.BuildInfo,
		Logger:        a.Logger.Module("api"),
	}
	if a.Settings.Metrics.Enabled {
		cfg.Metrics = a.Metrics.Handler()
		cfg.MetricsPath = a.Settings.Metrics.Path
	}
	return api.New(cfg)
}

// Close drains the event bus and releases every external resource.
func (a *App) Close() {
	if a.Bus != nil {
		if err := a.Bus.Shutdown(shutdownTimeout); err != nil {
			a.Logger.Warn("event bus shutdown incomplete", logger.Error(err))
		}
	}
	if a.mqtt != nil {
		a.mqtt.Disconnect()
	}
	if a.Notifications != nil {
		a.Notifications.Close(shutdownTimeout)
	}
	if closer, ok := a.ocr.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			a.Logger.Warn("failed to close OCR engine", logger.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Warn("failed to close database", logger.Error(err))
		}
	}
	if a.httpClient != nil {
		a.httpClient.Close()
	}
	telemetry.Flush(2 * time.Second)
}
