// Package pipeline turns partial product inputs into evaluated, stored
// products. The Normalizer is the only place a Product is created; the
// Scanner orchestrates the barcode, label and avoid-list paths around it.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/tphakala/foodscan/internal/classifier"
	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/persistence"
	"github.com/tphakala/foodscan/internal/preferences"
	"github.com/tphakala/foodscan/internal/product"
)

const componentName = "pipeline"

// AvoidListReason is the reason attached to avoided products the classifier did not flag.
const AvoidListReason = "On your avoid list"

// Normalizer builds full products from partial inputs and persists them.
type Normalizer struct {
	store       persistence.Facade
	prefs       preferences.Provider
	placeholder string
	log         logger.Logger
}

// NewNormalizer creates a normalizer. An empty placeholder uses
// product.DefaultPlaceholderImage.
func NewNormalizer(store persistence.Facade, prefs preferences.Provider, placeholder string, log logger.Logger) *Normalizer {
	if placeholder == "" {
		placeholder = product.DefaultPlaceholderImage
	}
	if log == nil {
		log = logger.Global().Module(componentName)
	}
	return &Normalizer{store: store, prefs: prefs, placeholder: placeholder, log: log}
}

// ProcessAndAddProduct evaluates partial against the current preferences and
// stores the result. On failure it returns a nil product and an error wrapping
// product.ErrPersistenceFailure or product.ErrAborted. Nothing is retried.
func (n *Normalizer) ProcessAndAddProduct(ctx context.Context, partial *product.PartialProduct) (*product.Product, error) {
	if partial == nil {
		return nil, errors.Newf("nil partial product").
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}

	ingredients := resolveIngredients(partial.Ingredients)
	prefs := n.prefs.GetPreferences()

	name := defaultString(partial.Name, product.UnknownProduct)
	eval, categories := evaluate(name, ingredients, partial.Calories, partial.Avoided, prefs)

	p := &product.Product{
		Name:               name,
		Brand:              defaultString(partial.Brand, product.UnknownBrand),
		Barcode:            strings.TrimSpace(partial.Barcode),
		Ingredients:        ingredients,
		Calories:           partial.Calories,
		Image:              defaultString(partial.Image, n.placeholder),
		Categories:         categories,
		Verdict:            eval.Verdict,
		FlaggedIngredients: eval.Flagged,
		OCRText:            partial.OCRText,
		Source:             partial.Source,
		Avoided:            partial.Avoided,
	}
	if !p.Source.Valid() {
		p.Source = product.SourceManual
	}

	if err := ctx.Err(); err != nil {
		n.log.Debug("scan aborted before persistence", logger.String("barcode", p.Barcode))
		return nil, abortedError(err)
	}

	stored, err := n.store.AddProduct(ctx, p)
	if err != nil {
		if errors.Is(err, product.ErrAborted) {
			return nil, err
		}
		n.log.Error("failed to store product",
			logger.String("barcode", p.Barcode),
			logger.String("source", string(p.Source)),
			logger.Error(err))
		if !errors.Is(err, product.ErrPersistenceFailure) {
			err = errors.New(fmt.Errorf("%w: %w", product.ErrPersistenceFailure, err)).
				Component(componentName).
				Category(errors.CategoryPersistence).
				Build()
		}
		return nil, err
	}
	return stored, nil
}

// Evaluate runs the classifier over a stored product against prefs without
// touching the stored record.
func Evaluate(p *product.Product, prefs product.UserPreferences) (classifier.Evaluation, []string) {
	return evaluate(p.Name, resolveIngredients(p.Ingredients), p.Calories, p.Avoided, prefs)
}

// evaluate calls Evaluate and Categorize exactly once each. Avoided products
// are forced bad; a synthetic flag keeps the verdict consistent with the list.
func evaluate(name string, ingredients []string, calories *float64, avoided bool, prefs product.UserPreferences) (classifier.Evaluation, []string) {
	eval := classifier.Evaluate(ingredients, calories, prefs)
	categories := classifier.Categorize(ingredients)

	if avoided && len(eval.Flagged) == 0 {
		eval.Flagged = append(eval.Flagged, product.FlaggedIngredient{
			Ingredient: name,
			Reason:     AvoidListReason,
		})
	}
	eval.Verdict = classifier.VerdictFor(eval.Flagged)
	return eval, categories
}

func resolveIngredients(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{product.IngredientsNotAvailable}
	}
	return out
}

func defaultString(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

func abortedError(cause error) error {
	return errors.New(fmt.Errorf("%w: %w", product.ErrAborted, cause)).
		Component(componentName).
		Category(errors.CategoryCancellation).
		Build()
}
