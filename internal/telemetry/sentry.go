// Package telemetry initialises Sentry error reporting and connects it to the
// errors package. Events are stripped of host and user data before sending.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/foodscan/internal/buildinfo"
	"github.com/tphakala/foodscan/internal/conf"
	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/privacy"
)

// allowedExtra lists the event extra keys kept by the privacy filter.
var allowedExtra = map[string]struct{}{
	"error_type": {},
	"component":  {},
}

// Init configures Sentry when enabled and installs the error reporter. It is
// a no-op when telemetry is disabled.
func Init(settings conf.SentrySettings, info *buildinfo.Context, log logger.Logger) error {
	if !settings.Enabled {
		errors.SetTelemetryReporter(errors.NewSentryReporter(false))
		return nil
	}
	if log == nil {
		log = logger.Global().Module("telemetry")
	}

	environment := settings.Environment
	if environment == "" {
		environment = "production"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",
		Release:          info.Release(),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	log.Info("error telemetry enabled",
		logger.String("environment", environment),
		logger.String("release", info.Release()))
	return nil
}

// Flush waits up to timeout for buffered events to be sent.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// applyPrivacyFilters removes user, host and runtime data from event and
// scrubs URLs and credentials from its messages.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if _, ok := allowedExtra[k]; !ok {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	return event
}
