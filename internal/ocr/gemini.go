package ocr

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/logger"
)

const (
	DefaultGeminiModel = "gemini-1.5-flash"

	transcribePrompt = `Transcribe all text printed on this food product label exactly as it appears.
Keep the original line breaks. Do not translate, summarise or add commentary.
If the image contains no readable text, reply with an empty message.`
)

// GeminiConfig configures the vision model engine.
type GeminiConfig struct {
	APIKey string
	Model  string
}

type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// GeminiEngine transcribes label images with a Gemini vision model.
type GeminiEngine struct {
	client *genai.Client
	model  contentGenerator
	name   string
	log    logger.Logger
}

// NewGeminiEngine creates the client. Close releases it.
func NewGeminiEngine(ctx context.Context, cfg GeminiConfig, log logger.Logger) (*GeminiEngine, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.Newf("gemini API key is required for the gemini OCR engine").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to create gemini client: %w", err)).
			Component(componentName).
			Category(errors.CategoryIntegration).
			Build()
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(0)

	return &GeminiEngine{client: client, model: model, name: cfg.Model, log: log}, nil
}

// Name implements Engine.
func (g *GeminiEngine) Name() string { return EngineGemini }

// Recognize sends the image with a transcription prompt and joins the text parts
// of the first candidate.
func (g *GeminiEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.Newf("empty image").
			Component(componentName).
			Category(errors.CategoryValidation).
			Build()
	}

	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		return "", errors.Newf("unsupported image type %s", mime).
			Component(componentName).
			Category(errors.CategoryValidation).
			Context("mime", mime).
			Build()
	}
	format := strings.TrimPrefix(mime, "image/")

	start := time.Now()
	resp, err := g.model.GenerateContent(ctx, genai.Text(transcribePrompt), genai.ImageData(format, image))
	if err != nil {
		category := errors.CategoryOCR
		if ctx.Err() != nil {
			category = errors.CategoryCancellation
		}
		return "", errors.New(fmt.Errorf("gemini recognition failed: %w", err)).
			Component(componentName).
			Category(category).
			Context("model", g.name).
			Timing("recognize", time.Since(start)).
			Build()
	}

	text := collectText(resp)
	g.log.Debug("label recognised",
		logger.String("model", g.name),
		logger.Int("image_bytes", len(image)),
		logger.Int("text_length", len(text)),
		logger.Duration("duration", time.Since(start)))
	return text, nil
}

// Close releases the underlying client.
func (g *GeminiEngine) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String())
}
