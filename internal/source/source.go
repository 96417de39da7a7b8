// Package source defines the interchangeable discovery strategies that feed
// the pipeline: a structured directory API and three page-rendering
// scrapers. All of them stream canonical prospect records through the same
// contract.
package source

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/sells-group/prospect-cli/internal/model"
)

// DefaultCategory is the business category baked into search queries.
const DefaultCategory = "dental clinics"

// Options selects and paces one run of a source.
type Options struct {
	Location string        // required, e.g. "Austin, TX"
	Category string        // defaults to DefaultCategory
	Max      int           // result cap; default varies by source
	Delay    time.Duration // pacing between page fetches / API items
	Retries  int           // per-page retry budget for rendering sources
	Enrich   bool          // contact-page email hop (rendering sources)
	Region   string        // phone parsing region; default "US"
	APIKey   string        // directory API credential
}

func (o Options) withDefaults(defaultMax int) Options {
	if o.Category == "" {
		o.Category = DefaultCategory
	}
	if o.Max <= 0 {
		o.Max = defaultMax
	}
	if o.Region == "" {
		o.Region = "US"
	}
	return o
}

// Item is one element of a source's stream. A non-nil Err is fatal: the
// channel closes right after it and the run is over. Per-item extraction
// failures never appear here; they degrade into the prospect's notes.
type Item struct {
	Prospect model.Prospect
	Err      error
}

// Source is one discovery strategy. Stream returns immediately with a
// channel the provider feeds lazily; it validates configuration up front and
// returns a ConfigError before producing anything when credentials are
// missing. The channel closes when the source is exhausted, the cap is
// reached, or ctx is cancelled.
type Source interface {
	Name() string
	Stream(ctx context.Context, opts Options) (<-chan Item, error)
}

// ConfigError means the run can't start (or continue) due to bad
// configuration, as opposed to per-item failures which degrade to stubs.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return "source: config: " + e.Reason }

// IsConfigError reports whether the chain contains a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// Registry holds the available sources, selected by name.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Register adds a source, replacing any previous one with the same name.
func (r *Registry) Register(s Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name()] = s
}

// Get returns a source by name, or nil.
func (r *Registry) Get(name string) Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[name]
}

// List returns registered source names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// send delivers an item unless ctx is done; it reports whether the consumer
// is still listening.
func send(ctx context.Context, ch chan<- Item, item Item) bool {
	select {
	case ch <- item:
		return true
	case <-ctx.Done():
		return false
	}
}
