package agents

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/cloudwego/eino/components/model"
)

// ErrUnknownProvider is returned when a requested model provider is not registered.
var ErrUnknownProvider = errors.New("agents: unknown model provider") //nolint:gochecknoglobals // sentinel error

// ModelConfig carries provider-independent chat model settings.
type ModelConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// ModelFactory builds a chat model for one provider.
type ModelFactory func(ctx context.Context, cfg ModelConfig) (model.ToolCallingChatModel, error)

// Registry manages chat model factories by provider name.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]ModelFactory
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]ModelFactory),
	}
}

// Register adds a model factory for a provider.
func (r *Registry) Register(provider string, factory ModelFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[provider] = factory
}

// Create instantiates the chat model for cfg.Provider.
func (r *Registry) Create(ctx context.Context, cfg ModelConfig) (model.ToolCallingChatModel, error) {
	r.mu.RLock()
	factory, ok := r.factories[cfg.Provider]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("agents.Registry.Create(%q): %w", cfg.Provider, ErrUnknownProvider)
	}

	m, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("agents.Registry.Create(%q): %w", cfg.Provider, err)
	}

	return m, nil
}

// Available returns registered provider names in sorted order.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := slices.Collect(func(yield func(string) bool) {
		for name := range r.factories {
			if !yield(name) {
				return
			}
		}
	})
	sort.Strings(names)

	return names
}
