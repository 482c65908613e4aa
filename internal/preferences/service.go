package preferences

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/events"
	"github.com/tphakala/foodscan/internal/identity"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/product"
)

const (
	componentName = "preferences"
	reloadTimeout = 10 * time.Second
)

// Provider returns a synchronous snapshot of the current preferences.
type Provider interface {
	GetPreferences() product.UserPreferences
}

// Config wires a Service.
type Config struct {
	// Local stores anonymous session preferences.
	Local Store
	// Remote stores authenticated user preferences. Optional.
	Remote Store
	// Defaults apply to identities without stored preferences.
	Defaults  product.UserPreferences
	Publisher events.Publisher
	Logger    logger.Logger
}

// Service owns the preference snapshot of one session. The snapshot is
// reloaded whenever the session identity changes.
type Service struct {
	cfg         Config
	session     *identity.Session
	mu          sync.RWMutex
	snapshot    product.UserPreferences
	unsubscribe func()
}

// NewService creates a service following session. Call Load before first use.
func NewService(cfg Config, session *identity.Session) *Service {
	if cfg.Local == nil {
		cfg.Local = NewMemoryStore()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NopPublisher{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Global().Module(componentName)
	}
	s := &Service{cfg: cfg, session: session, snapshot: cfg.Defaults.Clone()}
	s.unsubscribe = session.Subscribe(func(id identity.Identity) {
		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()
		if err := s.loadFor(ctx, id); err != nil {
			s.cfg.Logger.Warn("failed to reload preferences after identity change",
				logger.String("partition", id.Partition()),
				logger.Error(err))
		}
	})
	return s
}

// Close stops following the session.
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Load reads the preferences of the current identity into the snapshot.
func (s *Service) Load(ctx context.Context) error {
	return s.loadFor(ctx, s.session.Current())
}

func (s *Service) loadFor(ctx context.Context, id identity.Identity) error {
	prefs, err := s.storeFor(id).Get(ctx, id.Partition())
	switch {
	case errors.Is(err, product.ErrNotFound):
		prefs = s.cfg.Defaults.Clone()
	case err != nil:
		// Keep serving defaults rather than the previous identity's snapshot.
		s.setSnapshot(s.cfg.Defaults.Clone())
		return errors.New(fmt.Errorf("failed to load preferences: %w", err)).
			Component(componentName).
			Category(errors.CategoryDatabase).
			Context("partition", id.Partition()).
			Build()
	}
	s.setSnapshot(prefs)
	return nil
}

func (s *Service) setSnapshot(prefs product.UserPreferences) {
	s.mu.Lock()
	s.snapshot = prefs
	s.mu.Unlock()
}

// GetPreferences implements Provider.
func (s *Service) GetPreferences() product.UserPreferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Clone()
}

// Update validates, stores and publishes new preferences for the current identity.
func (s *Service) Update(ctx context.Context, prefs product.UserPreferences) (product.UserPreferences, error) {
	prefs = Normalize(prefs)
	if err := Validate(prefs); err != nil {
		return product.UserPreferences{}, err
	}

	id := s.session.Current()
	if err := s.storeFor(id).Save(ctx, id.Partition(), prefs); err != nil {
		return product.UserPreferences{}, errors.New(fmt.Errorf("failed to save preferences: %w", err)).
			Component(componentName).
			Category(errors.CategoryDatabase).
			Context("partition", id.Partition()).
			Build()
	}
	s.setSnapshot(prefs)

	published := prefs.Clone()
	s.cfg.Publisher.TryPublish(events.Event{
		Kind:        events.KindPreferencesChanged,
		Partition:   id.Partition(),
		Preferences: &published,
		Timestamp:   time.Now(),
	})
	s.cfg.Logger.Info("preferences updated",
		logger.String("partition", id.Partition()),
		logger.Int("avoided", len(prefs.AvoidedIngredients)),
		logger.Int("custom", len(prefs.CustomAvoidedIngredients)))
	return prefs.Clone(), nil
}

func (s *Service) storeFor(id identity.Identity) Store {
	if id.Authenticated() && s.cfg.Remote != nil {
		return s.cfg.Remote
	}
	return s.cfg.Local
}

// Normalize trims avoid terms and drops blanks and case-insensitive duplicates.
func Normalize(p product.UserPreferences) product.UserPreferences {
	p = p.Clone()
	p.AvoidedIngredients = normalizeTerms(p.AvoidedIngredients)
	p.CustomAvoidedIngredients = normalizeTerms(p.CustomAvoidedIngredients)
	return p
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Validate checks the goal and calorie ceiling.
func Validate(p product.UserPreferences) error {
	if !p.Goal.Valid() {
		return errors.New(fmt.Errorf("invalid goal %q", p.Goal)).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}
	if p.MaxCalories != nil && *p.MaxCalories <= 0 {
		return errors.New(fmt.Errorf("max calories must be positive, got %v", *p.MaxCalories)).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}
