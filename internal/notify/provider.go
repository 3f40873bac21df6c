// Package notify announces events to subscribers by email.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	// ErrProviderNotConfigured is returned when required provider settings are missing
	ErrProviderNotConfigured = errors.New("email provider not configured")
	// ErrUnknownProvider is returned for a provider name nobody registered
	ErrUnknownProvider = errors.New("unsupported email provider")
)

// Message is one rendered email for one recipient
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Provider delivers a single message
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// ProviderConfig carries the settings every provider may need
type ProviderConfig struct {
	APIKey    string
	Domain    string
	FromEmail string
	FromName  string
	// APIBase overrides the provider endpoint, mainly for tests
	APIBase string
	Logger  *logrus.Logger
}

func (c ProviderConfig) from() string {
	if c.FromName == "" {
		return c.FromEmail
	}
	return fmt.Sprintf("%s <%s>", c.FromName, c.FromEmail)
}

// ProviderFactory builds a provider from configuration
type ProviderFactory func(cfg ProviderConfig) (Provider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]ProviderFactory{}
)

// Register makes a provider available under name
func Register(name string, factory ProviderFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = factory
}

// NewProvider creates the provider registered under name
func NewProvider(name string, cfg ProviderConfig) (Provider, error) {
	registryMu.RLock()
	factory, ok := registry[strings.ToLower(name)]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return factory(cfg)
}

// Providers lists registered provider names
func Providers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
