package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tphakala/foodscan/internal/archive"
	"github.com/tphakala/foodscan/internal/classifier"
	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/notification"
	"github.com/tphakala/foodscan/internal/observability/metrics"
	"github.com/tphakala/foodscan/internal/ocr"
	"github.com/tphakala/foodscan/internal/persistence"
	"github.com/tphakala/foodscan/internal/preferences"
	"github.com/tphakala/foodscan/internal/product"
	"github.com/tphakala/foodscan/internal/textextract"
)

// DefaultScanTimeout bounds one scan when no timeout is configured.
const DefaultScanTimeout = 30 * time.Second

// Resolver resolves a barcode to partial product fields. lookup.Chain implements it.
type Resolver interface {
	Resolve(ctx context.Context, code string) (*product.PartialProduct, error)
}

// Recorder receives scan outcomes. metrics.PipelineMetrics implements it.
type Recorder interface {
	RecordScan(path, outcome string, d time.Duration)
	RecordProduct(verdict string)
	ScanStarted() func()
}

type nopRecorder struct{}

func (nopRecorder) RecordScan(string, string, time.Duration) {}
func (nopRecorder) RecordProduct(string)                     {}
func (nopRecorder) ScanStarted() func()                      { return func() {} }

// Config wires a Scanner.
type Config struct {
	Lookup      Resolver
	OCR         ocr.Engine
	Store       persistence.Facade
	Preferences preferences.Provider

	// Archive stores label images. Optional.
	Archive archive.Store
	// Notifier receives user feedback. Optional.
	Notifier notification.Sink
	// Metrics records outcomes. Optional.
	Metrics Recorder

	PlaceholderImage string
	ScanTimeout      time.Duration
	Logger           logger.Logger
}

// Scanner runs the scan paths of one identity. At most one barcode or label
// scan runs at a time; triggers arriving meanwhile are rejected, not queued.
type Scanner struct {
	cfg        Config
	normalizer *Normalizer
	busy       atomic.Bool
	log        logger.Logger
	now        func() time.Time
}

// NewScanner creates a scanner from cfg.
func NewScanner(cfg Config) *Scanner {
	if cfg.Logger == nil {
		cfg.Logger = logger.Global().Module(componentName)
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notification.NopSink{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = nopRecorder{}
	}
	if cfg.OCR == nil {
		cfg.OCR = ocr.TextEngine{}
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = DefaultScanTimeout
	}
	return &Scanner{
		cfg:        cfg,
		normalizer: NewNormalizer(cfg.Store, cfg.Preferences, cfg.PlaceholderImage, cfg.Logger),
		log:        cfg.Logger,
		now:        time.Now,
	}
}

// Normalizer returns the scanner's normalizer.
func (s *Scanner) Normalizer() *Normalizer {
	return s.normalizer
}

// Busy reports whether a scan is in flight.
func (s *Scanner) Busy() bool {
	return s.busy.Load()
}

// ScanBarcode resolves code through the lookup chain and stores the
// evaluated product. When every provider misses, the error wraps
// product.ErrNotFound and nothing is stored.
func (s *Scanner) ScanBarcode(ctx context.Context, code string) (*product.Product, error) {
	release, err := s.acquire(metrics.PathBarcode)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
	defer cancel()
	start := s.now()

	p, err := s.scanBarcode(ctx, code)
	s.finish(metrics.PathBarcode, start, p, err)
	return p, err
}

func (s *Scanner) scanBarcode(ctx context.Context, code string) (*product.Product, error) {
	partial, err := s.cfg.Lookup.Resolve(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, abortedError(err)
	}
	if partial.Source == "" {
		partial.Source = product.SourceScan
	}
	return s.normalizer.ProcessAndAddProduct(ctx, partial)
}

// ScanLabel recognises the text on a label image and stores the product
// extracted from it. There is no fallback: an image without text yields an
// error wrapping product.ErrNoText and product.ErrNotFound.
func (s *Scanner) ScanLabel(ctx context.Context, image []byte, contentType string) (*product.Product, error) {
	release, err := s.acquire(metrics.PathLabel)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
	defer cancel()
	start := s.now()

	p, err := s.scanLabel(ctx, image, contentType)
	s.finish(metrics.PathLabel, start, p, err)
	return p, err
}

func (s *Scanner) scanLabel(ctx context.Context, image []byte, contentType string) (*product.Product, error) {
	text, err := s.cfg.OCR.Recognize(ctx, image)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, abortedError(ctxErr)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, errors.New(fmt.Errorf("%w: %w", product.ErrNotFound, product.ErrNoText)).
			Component(componentName).
			Category(errors.CategoryNotFound).
			Context("engine", s.cfg.OCR.Name()).
			Build()
	}

	extracted := textextract.Extract(text)
	partial := &product.PartialProduct{
		Name:        extracted.Name,
		Brand:       extracted.Brand,
		Ingredients: extracted.Ingredients,
		OCRText:     text,
		Source:      product.SourceOCR,
	}

	if s.cfg.Archive != nil {
		url, err := s.cfg.Archive.Put(ctx, archive.LabelKey(s.now(), contentType), image, contentType)
		switch {
		case ctx.Err() != nil:
			return nil, abortedError(ctx.Err())
		case err != nil:
			s.log.Warn("failed to archive label image, using placeholder", logger.Error(err))
		default:
			partial.Image = url
		}
	}

	return s.normalizer.ProcessAndAddProduct(ctx, partial)
}

// AddToAvoidList stores partial as an avoided product. Saves with a barcode
// already on the avoid list return the existing record.
func (s *Scanner) AddToAvoidList(ctx context.Context, partial *product.PartialProduct) (*product.Product, error) {
	if partial == nil {
		return nil, errors.Newf("nil partial product").
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}
	start := s.now()
	entry := *partial
	entry.Avoided = true
	if entry.Source == "" {
		entry.Source = product.SourceManual
	}

	p, err := s.normalizer.ProcessAndAddProduct(ctx, &entry)
	s.finish(metrics.PathAvoid, start, p, err)
	return p, err
}

// AvoidBarcode resolves code and stores the result as an avoided product.
func (s *Scanner) AvoidBarcode(ctx context.Context, code string) (*product.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
	defer cancel()

	partial, err := s.cfg.Lookup.Resolve(ctx, code)
	if err != nil {
		s.finish(metrics.PathAvoid, s.now(), nil, err)
		return nil, err
	}
	if partial.Source == "" {
		partial.Source = product.SourceScan
	}
	return s.AddToAvoidList(ctx, partial)
}

// Reevaluate evaluates a stored product against the current preferences.
// The stored record is left untouched.
func (s *Scanner) Reevaluate(ctx context.Context, id string) (classifier.Evaluation, []string, error) {
	p, err := s.cfg.Store.GetProductByClientSideID(ctx, id)
	if err != nil {
		return classifier.Evaluation{}, nil, err
	}
	eval, categories := Evaluate(p, s.cfg.Preferences.GetPreferences())
	return eval, categories, nil
}

func (s *Scanner) acquire(path string) (func(), error) {
	if !s.busy.CompareAndSwap(false, true) {
		s.cfg.Metrics.RecordScan(path, metrics.OutcomeBusy, 0)
		s.log.Debug("scan trigger ignored, another scan is in flight", logger.String("path", path))
		return nil, errors.New(product.ErrScanInProgress).
			Component(componentName).
			Category(errors.CategoryState).
			Context("path", path).
			Build()
	}
	done := s.cfg.Metrics.ScanStarted()
	return func() {
		done()
		s.busy.Store(false)
	}, nil
}

// finish records the outcome and sends user feedback. Aborted scans are silent.
func (s *Scanner) finish(path string, start time.Time, p *product.Product, err error) {
	elapsed := s.now().Sub(start)
	switch {
	case err == nil:
		s.cfg.Metrics.RecordScan(path, metrics.OutcomeStored, elapsed)
		s.cfg.Metrics.RecordProduct(string(p.Verdict))
		s.log.Info("scan completed",
			logger.String("path", path),
			logger.String("product_id", p.ID),
			logger.String("verdict", string(p.Verdict)),
			logger.Int("flagged", len(p.FlaggedIngredients)),
			logger.Duration("elapsed", elapsed))
		if p.Verdict == product.VerdictBad {
			s.cfg.Notifier.Notify(notification.TypeWarning, badMessage(p))
		} else {
			s.cfg.Notifier.Notify(notification.TypeInfo, fmt.Sprintf("%s looks good", p.Name))
		}
	case errors.Is(err, product.ErrAborted):
		s.cfg.Metrics.RecordScan(path, metrics.OutcomeAborted, elapsed)
		s.log.Debug("scan aborted", logger.String("path", path), logger.Error(err))
	case errors.Is(err, product.ErrNoText):
		s.cfg.Metrics.RecordScan(path, metrics.OutcomeNoText, elapsed)
		s.log.Info("no text detected on label", logger.String("path", path))
		s.cfg.Notifier.Notify(notification.TypeWarning, "No text was detected on the label")
	case errors.Is(err, product.ErrNotFound):
		s.cfg.Metrics.RecordScan(path, metrics.OutcomeNotFound, elapsed)
		s.log.Info("product not found", logger.String("path", path), logger.Error(err))
		s.cfg.Notifier.Notify(notification.TypeWarning, "Product not found")
	case errors.Is(err, product.ErrPersistenceFailure):
		s.cfg.Metrics.RecordScan(path, metrics.OutcomeFailed, elapsed)
		s.cfg.Notifier.Notify(notification.TypeError, "The product could not be saved")
	default:
		s.cfg.Metrics.RecordScan(path, metrics.OutcomeFailed, elapsed)
		s.log.Error("scan failed", logger.String("path", path), logger.Error(err))
		s.cfg.Notifier.Notify(notification.TypeError, "The scan failed")
	}
}

func badMessage(p *product.Product) string {
	names := make([]string, 0, len(p.FlaggedIngredients))
	for _, f := range p.FlaggedIngredients {
		names = append(names, f.Ingredient)
	}
	return fmt.Sprintf("%s is flagged: %s", p.Name, strings.Join(names, ", "))
}
