// Package openfoodfacts is the community nutrition database adapter
// (Open Food Facts API v2), the fallback after the commercial database.
package openfoodfacts

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/httpclient"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/lookup"
	"github.com/tphakala/foodscan/internal/product"
)

const (
	ProviderName    = "openfoodfacts"
	DefaultEndpoint = "https://world.openfoodfacts.org"

	maxPlausibleKcal = 10000
)

// Config holds adapter settings.
type Config struct {
	Endpoint   string
	MaxRetries int
}

// Provider queries the Open Food Facts product endpoint. No key is needed.
type Provider struct {
	endpoint string
	fetcher  *lookup.Fetcher
}

type response struct {
	Code    string      `json:"code"`
	Status  int         `json:"status"`
	Product *offProduct `json:"product"`
}

type offProduct struct {
	ProductName     string         `json:"product_name"`
	ProductNameEn   string         `json:"product_name_en"`
	GenericName     string         `json:"generic_name"`
	Brands          string         `json:"brands"`
	IngredientsText string         `json:"ingredients_text"`
	IngredientsEn   string         `json:"ingredients_text_en"`
	Nutriments      map[string]any `json:"nutriments"`
	ImageFrontURL   string         `json:"image_front_url"`
	ImageURL        string         `json:"image_url"`
}

// New creates the adapter.
func New(cfg Config, client *httpclient.Client, log logger.Logger) *Provider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	f := lookup.NewFetcher(ProviderName, client, log)
	if cfg.MaxRetries > 0 {
		f.MaxRetries = cfg.MaxRetries
	}
	return &Provider{endpoint: strings.TrimRight(cfg.Endpoint, "/"), fetcher: f}
}

// Fetcher exposes the request helper so callers can tune retries.
func (p *Provider) Fetcher() *lookup.Fetcher {
	return p.fetcher
}

// Name implements lookup.Adapter.
func (p *Provider) Name() string {
	return ProviderName
}

// GetProductByBarcode implements lookup.Adapter.
func (p *Provider) GetProductByBarcode(ctx context.Context, code string) lookup.Result {
	reqURL := fmt.Sprintf("%s/api/v2/product/%s.json", p.endpoint, url.PathEscape(code))

	var resp response
	if err := p.fetcher.GetJSON(ctx, reqURL, &resp); err != nil {
		if errors.IsNotFound(err) {
			return lookup.NotFound(ProviderName)
		}
		return lookup.Failed(ProviderName, fmt.Errorf("%w: %w", product.ErrProvider, err))
	}
	if resp.Status == 0 || resp.Product == nil {
		return lookup.NotFound(ProviderName)
	}

	off := resp.Product
	ingredients := off.IngredientsText
	if strings.TrimSpace(ingredients) == "" {
		ingredients = off.IngredientsEn
	}

	barcode := resp.Code
	if barcode == "" {
		barcode = code
	}

	return lookup.Found(ProviderName, &product.PartialProduct{
		Name:        off.name(),
		Brand:       firstBrand(off.Brands),
		Barcode:     barcode,
		Ingredients: lookup.ParseIngredients(ingredients),
		Calories:    off.kcal(),
		Image:       firstNonEmpty(off.ImageFrontURL, off.ImageURL),
		Source:      product.SourceScan,
	})
}

func (p *offProduct) name() string {
	return firstNonEmpty(p.ProductName, p.ProductNameEn, p.GenericName)
}

// kcal returns energy per 100g, falling back to the unscaled energy value.
func (p *offProduct) kcal() *float64 {
	for _, key := range []string{"energy-kcal_100g", "energy-kcal"} {
		if v, ok := extractFloat(p.Nutriments, key); ok && v >= 0 && v <= maxPlausibleKcal {
			return product.Float(v)
		}
	}
	return nil
}

func extractFloat(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

func firstBrand(brands string) string {
	first, _, _ := strings.Cut(brands, ",")
	return strings.TrimSpace(first)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
