package mqtt

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/events"
	"github.com/tphakala/foodscan/internal/logger"
	"github.com/tphakala/foodscan/internal/product"
)

// ProductMessage is the payload published for every stored product.
type ProductMessage struct {
	Partition   string                      `json:"partition"`
	ID          string                      `json:"id"`
	Barcode     string                      `json:"barcode,omitempty"`
	Name        string                      `json:"name"`
	Brand       string                      `json:"brand"`
	Verdict     product.Verdict             `json:"verdict"`
	Flagged     []product.FlaggedIngredient `json:"flaggedIngredients"`
	Categories  []string                    `json:"categories"`
	Calories    *float64                    `json:"calories,omitempty"`
	Source      product.Source              `json:"source"`
	Avoided     bool                        `json:"avoided"`
	Image       string                      `json:"image,omitempty"`
	ScanDate    time.Time                   `json:"scanDate"`
	PublishedAt time.Time                   `json:"publishedAt"`
}

// Publisher is an events.Consumer forwarding product.added events to MQTT.
type Publisher struct {
	client  Client
	topic   string
	timeout time.Duration
	logger  logger.Logger
}

// NewPublisher publishes products on <baseTopic>/products.
func NewPublisher(client Client, baseTopic string, timeout time.Duration, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.Global().Module("mqtt")
	}
	if timeout <= 0 {
		timeout = DefaultConfig().PublishTimeout
	}
	if baseTopic == "" {
		baseTopic = DefaultConfig().Topic
	}
	return &Publisher{client: client, topic: baseTopic + "/products", timeout: timeout, logger: log}
}

// Name implements events.Consumer.
func (p *Publisher) Name() string { return "mqtt-publisher" }

// Topic returns the topic products are published on.
func (p *Publisher) Topic() string { return p.topic }

// ProcessEvent implements events.Consumer. Events other than product.added are ignored.
func (p *Publisher) ProcessEvent(event events.Event) error {
	if event.Kind != events.KindProductAdded || event.Product == nil {
		return nil
	}
	if !p.client.IsConnected() {
		p.logger.Debug("skipping publish, broker not connected", logger.String("product_id", event.ProductID))
		return nil
	}

	payload, err := json.Marshal(newProductMessage(event))
	if err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryProcessing).
			Build()
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.topic, payload); err != nil {
		return err
	}

	p.logger.Debug("product published",
		logger.String("topic", p.topic),
		logger.String("product_id", event.ProductID))
	return nil
}

func newProductMessage(event events.Event) ProductMessage {
	pr := event.Product
	return ProductMessage{
		Partition:   event.Partition,
		ID:          pr.ID,
		Barcode:     pr.Barcode,
		Name:        pr.Name,
		Brand:       pr.Brand,
		Verdict:     pr.Verdict,
		Flagged:     pr.FlaggedIngredients,
		Categories:  pr.Categories,
		Calories:    pr.Calories,
		Source:      pr.Source,
		Avoided:     pr.Avoided,
		Image:       pr.Image,
		ScanDate:    pr.ScanDate,
		PublishedAt: event.Timestamp,
	}
}
