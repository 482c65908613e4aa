// Package ocr turns label images into raw text. Engines only recognise
// text; interpretation happens in textextract.
package ocr

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/logger"
)

const componentName = "ocr"

// Engine names accepted in configuration.
const (
	EngineText   = "text"
	EngineGemini = "gemini"
)

// Engine recognises text in an image. An empty string with a nil error
// means no text was found.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Config selects and configures an engine.
type Config struct {
	Engine string
	Gemini GeminiConfig
}

// New builds the configured engine.
func New(ctx context.Context, cfg Config, log logger.Logger) (Engine, error) {
	if log == nil {
		log = logger.Global().Module(componentName)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "", EngineText:
		return TextEngine{}, nil
	case EngineGemini:
		return NewGeminiEngine(ctx, cfg.Gemini, log)
	default:
		return nil, errors.Newf("unsupported OCR engine: %s", cfg.Engine).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Context("engine", cfg.Engine).
			Build()
	}
}

// TextEngine treats the payload as text that was already recognised, for
// example by a device-side OCR pass or a CLI text file.
type TextEngine struct{}

// Name implements Engine.
func (TextEngine) Name() string { return EngineText }

// Recognize returns the payload as text. Binary input is rejected.
func (TextEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !utf8.Valid(image) {
		return "", errors.New(fmt.Errorf("text engine received %d bytes of non UTF-8 data", len(image))).
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}
	return strings.TrimSpace(string(image)), nil
}
