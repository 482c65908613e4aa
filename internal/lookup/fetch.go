package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/httpclient"
	"github.com/tphakala/foodscan/internal/logger"
)

const (
	DefaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
	maxResponseBytes  = 4 << 20
	previewBytes      = 500
)

// Fetcher performs JSON GET requests against a provider API with retries on
// transient failures. Provider adapters embed one.
type Fetcher struct {
	Provider   string
	Client     *httpclient.Client
	MaxRetries int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
	Log     logger.Logger
}

// NewFetcher returns a Fetcher with default retry settings. A nil client
// gets a fresh shared-style client.
func NewFetcher(provider string, client *httpclient.Client, log logger.Logger) *Fetcher {
	if client == nil {
		client = httpclient.New(nil)
	}
	if log == nil {
		log = logger.Global().Module(componentName)
	}
	return &Fetcher{
		Provider:   provider,
		Client:     client,
		MaxRetries: DefaultMaxRetries,
		Backoff:    defaultBackoff,
		Log:        log.With(logger.String("provider", provider)),
	}
}

// GetJSON decodes the body of a successful GET into out. HTTP 404 yields a
// CategoryNotFound error that is not retried, as are other 4xx responses
// except 429.
func (f *Fetcher) GetJSON(ctx context.Context, url string, out any) error {
	retries := f.MaxRetries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		err := f.getOnce(ctx, url, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) || ctx.Err() != nil {
			return err
		}

		if attempt < retries-1 {
			delay := time.Duration(attempt+1) * f.Backoff
			f.Log.Warn("provider request failed, retrying",
				logger.Int("attempt", attempt+1),
				logger.Int("max_retries", retries),
				logger.Int64("delay_ms", delay.Milliseconds()),
				logger.String("url", logger.RedactSensitiveData(url)),
				logger.Error(err))

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return lastErr
			}
		}
	}
	return lastErr
}

func (f *Fetcher) getOnce(ctx context.Context, url string, out any) error {
	safeURL := logger.RedactSensitiveData(url)
	start := time.Now()

	resp, err := f.Client.Get(ctx, url)
	if err != nil {
		category := errors.CategoryNetwork
		if ctx.Err() != nil {
			category = errors.CategoryCancellation
		}
		return errors.New(fmt.Errorf("%s request failed: %w", f.Provider, err)).
			Component(componentName).
			Category(category).
			Context("provider", f.Provider).
			Context("url", safeURL).
			Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.New(fmt.Errorf("failed to read %s response: %w", f.Provider, err)).
			Component(componentName).
			Category(errors.CategoryNetwork).
			Context("provider", f.Provider).
			Context("status_code", resp.StatusCode).
			Build()
	}

	if resp.StatusCode >= http.StatusBadRequest {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			f.Log.Error("provider authentication failed",
				logger.Int("status_code", resp.StatusCode),
				logger.String("url", safeURL),
				logger.String("message", "check the provider API key in the configuration"))
		}
		return errors.Newf("%s API error (status %d): %s", f.Provider, resp.StatusCode, preview(body)).
			Component(componentName).
			Category(getErrorCategory(resp.StatusCode)).
			Context("provider", f.Provider).
			Context("status_code", resp.StatusCode).
			Context("url", safeURL).
			Build()
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(strings.ToLower(contentType), "json") {
		return errors.Newf("%s returned non-JSON response (Content-Type: %s)", f.Provider, contentType).
			Component(componentName).
			Category(errors.CategoryIntegration).
			Context("provider", f.Provider).
			Context("status_code", resp.StatusCode).
			Context("content_type", contentType).
			Build()
	}

	if err := json.Unmarshal(body, out); err != nil {
		f.Log.Error("failed to parse provider response",
			logger.String("url", safeURL),
			logger.Int("response_size", len(body)),
			logger.String("response_preview", preview(body)),
			logger.Error(err))
		return errors.New(fmt.Errorf("failed to parse %s response: %w", f.Provider, err)).
			Component(componentName).
			Category(errors.CategoryFileParsing).
			Context("provider", f.Provider).
			Context("response_size", len(body)).
			Build()
	}

	f.Log.Debug("provider request succeeded",
		logger.String("url", safeURL),
		logger.Int("status_code", resp.StatusCode),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// retryable reports whether a failed request should be attempted again.
func retryable(err error) bool {
	var enhanced *errors.EnhancedError
	if !errors.As(err, &enhanced) {
		return true
	}
	switch enhanced.Category {
	case errors.CategoryConfiguration, errors.CategoryNotFound, errors.CategoryValidation,
		errors.CategoryFileParsing, errors.CategoryCancellation, errors.CategoryIntegration:
		return false
	}
	if status, ok := enhanced.Context["status_code"].(int); ok {
		if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
			return false
		}
	}
	return true
}

// getErrorCategory maps an HTTP status code to an error category.
func getErrorCategory(statusCode int) errors.ErrorCategory {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.CategoryConfiguration
	case http.StatusTooManyRequests:
		return errors.CategoryLimit
	case http.StatusNotFound:
		return errors.CategoryNotFound
	case http.StatusBadRequest:
		return errors.CategoryValidation
	default:
		return errors.CategoryNetwork
	}
}

// preview truncates body for logging without splitting a UTF-8 sequence.
func preview(body []byte) string {
	if len(body) <= previewBytes {
		return string(body)
	}
	cut := previewBytes
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut]) + "..."
}
