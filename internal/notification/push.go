package notification

import (
	"context"
	"fmt"
	"io"
	"log"
	"slices"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/foodscan/internal/errors"
	"github.com/tphakala/foodscan/internal/logger"
)

// PushProvider defines an external push delivery backend.
// Providers must be safe for concurrent use.
type PushProvider interface {
	Name() string
	SupportsType(kind Type) bool
	Send(ctx context.Context, n *Notification) error
}

// ShoutrrrProvider sends through a single shoutrrr router covering all URLs.
type ShoutrrrProvider struct {
	name   string
	types  map[Type]bool
	sender *router.ServiceRouter
}

// NewShoutrrrProvider validates urls and builds the sender. An empty
// supportedTypes list accepts every type.
func NewShoutrrrProvider(name string, urls []string, supportedTypes []Type, timeout time.Duration) (*ShoutrrrProvider, error) {
	if len(urls) == 0 {
		return nil, errors.Newf("at least one push URL is required").
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	sender, err := shoutrrr.CreateSender(slices.Clone(urls)...)
	if err != nil {
		// Service URLs carry tokens.
		return nil, errors.Newf("invalid push URL: %s", logger.RedactSensitiveData(err.Error())).
			Component(componentName).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if timeout > 0 {
		sender.Timeout = timeout
	}
	sender.SetLogger(log.New(io.Discard, "", 0))

	p := &ShoutrrrProvider{name: strings.TrimSpace(name), types: map[Type]bool{}, sender: sender}
	if p.name == "" {
		p.name = "shoutrrr"
	}
	if len(supportedTypes) == 0 {
		supportedTypes = []Type{TypeInfo, TypeWarning, TypeError}
	}
	for _, t := range supportedTypes {
		p.types[t] = true
	}
	return p, nil
}

func (s *ShoutrrrProvider) Name() string               { return s.name }
func (s *ShoutrrrProvider) SupportsType(kind Type) bool { return s.types[kind] }

// Send delivers n to every configured URL and returns the first failure.
func (s *ShoutrrrProvider) Send(ctx context.Context, n *Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := stypes.Params{}
	if n.Title != "" {
		params.SetTitle(n.Title)
	}
	for _, e := range s.sender.Send(n.Message, &params) {
		if e != nil {
			return fmt.Errorf("push via %s failed: %s", s.name, logger.RedactSensitiveData(e.Error()))
		}
	}
	return nil
}
