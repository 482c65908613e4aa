// Package barcodelookup is the commercial barcode database adapter
// (Barcode Lookup API v3). It is the first adapter in the lookup chain.
package barcodelookup

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/httpclient"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/lookup"
	"github.com/tphakala/foodscan/internal/product"
)

const (
	ProviderName    = "barcodelookup"
	DefaultEndpoint = "https://api.barcodelookup.com/v3"
)

// Config holds adapter settings.
type Config struct {
	APIKey     string
	Endpoint   string
	MaxRetries int
}

// Provider queries the Barcode Lookup products endpoint.
type Provider struct {
	endpoint string
	apiKey   string
	fetcher  *lookup.Fetcher
	log      logger.Logger
}

type response struct {
	Products []item `json:"products"`
}

type item struct {
	BarcodeNumber  string   `json:"barcode_number"`
	Title          string   `json:"title"`
	Brand          string   `json:"brand"`
	Manufacturer   string   `json:"manufacturer"`
	Ingredients    string   `json:"ingredients"`
	NutritionFacts string   `json:"nutrition_facts"`
	Images         []string `json:"images"`
}

// New creates the adapter. An API key is required.
func New(cfg Config, client *httpclient.Client, log logger.Logger) (*Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.Newf("barcode lookup API key is required").
			Component("lookup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if log == nil {
		log = logger.Global().Module("lookup")
	}
	f := lookup.NewFetcher(ProviderName, client, log)
	if cfg.MaxRetries > 0 {
		f.MaxRetries = cfg.MaxRetries
	}
	return &Provider{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		fetcher:  f,
		log:      log,
	}, nil
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
	q := url.Values{}
	q.Set("barcode", code)
	q.Set("formatted", "y")
	q.Set("key", p.apiKey)
	reqURL := fmt.Sprintf("%s/products?%s", p.endpoint, q.Encode())

	var resp response
	if err := p.fetcher.GetJSON(ctx, reqURL, &resp); err != nil {
		if errors.IsNotFound(err) {
			return lookup.NotFound(ProviderName)
		}
		return lookup.Failed(ProviderName, fmt.Errorf("%w: %w", product.ErrProvider, err))
	}
	if len(resp.Products) == 0 {
		return lookup.NotFound(ProviderName)
	}

	it := resp.Products[0]
	partial := &product.PartialProduct{
		Name:        strings.TrimSpace(it.Title),
		Brand:       firstNonEmpty(it.Brand, it.Manufacturer),
		Barcode:     firstNonEmpty(it.BarcodeNumber, code),
		Ingredients: lookup.ParseIngredients(it.Ingredients),
		Calories:    ParseCalories(it.NutritionFacts),
		Source:      product.SourceScan,
	}
	if len(it.Images) > 0 {
		partial.Image = it.Images[0]
	}
	return lookup.Found(ProviderName, partial)
}

var (
	kcalRe     = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*kcal`)
	caloriesRe = regexp.MustCompile(`(?i)(?:calories|energy)\s*[:\-]?\s*(\d+(?:[.,]\d+)?)`)
)

// ParseCalories extracts a calorie value from the free-form nutrition_facts
// string, preferring an explicit kcal figure. It returns nil when none is present.
func ParseCalories(facts string) *float64 {
	for _, re := range []*regexp.Regexp{kcalRe, caloriesRe} {
		if m := re.FindStringSubmatch(facts); m != nil {
			v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
			if err == nil {
				return product.Float(v)
			}
		}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
