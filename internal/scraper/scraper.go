package scraper

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/payloadschema"
	"horse.fit/newsdesk/internal/reader"
)

// Item is what a connector emits for one article.
type Item = payloadschema.ScrapedItem

// Connector scrapes one listing page and its articles.
type Connector interface {
	Run(ctx context.Context) ([]Item, error)
}

// Deps are shared by every connector a registry builds.
type Deps struct {
	Fetch       reader.FetchOptions
	Concurrency int
	Logger      zerolog.Logger
}

// Factory builds a connector for one listing URL.
type Factory func(listingURL string, deps Deps) Connector

// Registry maps connector class names to factories.
type Registry struct {
	factories map[string]Factory
	deps      Deps
}

// NewRegistry returns a registry holding the built-in connector classes.
func NewRegistry(deps Deps) *Registry {
	r := &Registry{
		factories: make(map[string]Factory, len(builtinClasses)),
		deps:      deps,
	}
	for name, factory := range builtinClasses {
		r.factories[name] = factory
	}
	return r
}

// Register adds or replaces a connector class.
func (r *Registry) Register(class string, factory Factory) error {
	name := normalizeClass(class)
	if name == "" {
		return fmt.Errorf("connector class is required")
	}
	if factory == nil {
		return fmt.Errorf("connector factory for %q is nil", name)
	}
	r.factories[name] = factory
	return nil
}

// Build resolves class and returns a connector bound to listingURL.
func (r *Registry) Build(class, listingURL string) (Connector, error) {
	name := normalizeClass(class)
	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown connector class %q (available: %s)", name, strings.Join(r.Classes(), ", "))
	}
	if strings.TrimSpace(listingURL) == "" {
		return nil, fmt.Errorf("connector %q requires a url", name)
	}
	return factory(strings.TrimSpace(listingURL), r.deps), nil
}

func (r *Registry) Classes() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeClass(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
