package dedup

import (
	"context"
	"fmt"
)

// URLStore reports which urls are already stored.
type URLStore interface {
	ExistingURLs(ctx context.Context, urls []string) (map[string]struct{}, error)
}

// Exact rejects canonical urls that are stored already or were admitted earlier in the batch.
type Exact struct {
	seen map[string]struct{}
}

// NewExact loads the stored subset of urls once for the whole batch.
func NewExact(ctx context.Context, store URLStore, urls []string) (*Exact, error) {
	existing, err := store.ExistingURLs(ctx, urls)
	if err != nil {
		return nil, fmt.Errorf("load existing urls: %w", err)
	}
	if existing == nil {
		existing = make(map[string]struct{})
	}
	return &Exact{seen: existing}, nil
}

// Admit reports whether url is new and remembers it.
func (e *Exact) Admit(url string) bool {
	if _, dup := e.seen[url]; dup {
		return false
	}
	e.seen[url] = struct{}{}
	return true
}
