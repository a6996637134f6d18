// Package registry keeps the set of known model schemas. Schemas come from
// explicit registration and from a Source that is re-read once the cached
// copy is older than the configured TTL.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tordrt/schemaguard/internal/clock"
	"github.com/tordrt/schemaguard/internal/model"
)

// ErrModelNotFound is returned by Get for unknown model names.
var ErrModelNotFound = errors.New("model not found")

// Source produces model schemas.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]*model.Schema, error)
}

// Registry is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	source Source
	clock  clock.Clock
	ttl    time.Duration
	logger zerolog.Logger

	// registered schemas shadow loaded ones with the same name
	registered map[string]*model.Schema
	loaded     map[string]*model.Schema
	lastSync   time.Time
	// gen is bumped by Invalidate so a load that overlaps it is not
	// recorded as fresh
	gen uint64

	// model/field/type triples already reported as unsupported
	warned map[string]bool

	watch *watcher
}

// New creates a registry. source may be nil, in which case only registered
// schemas are known. A ttl of zero loads the source once and keeps it until
// Invalidate or Refresh.
func New(source Source, clk clock.Clock, ttl time.Duration, logger zerolog.Logger) *Registry {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Registry{
		source:     source,
		clock:      clk,
		ttl:        ttl,
		logger:     logger,
		registered: make(map[string]*model.Schema),
		loaded:     make(map[string]*model.Schema),
		warned:     make(map[string]bool),
	}
}

// Register adds or replaces a schema.
func (r *Registry) Register(s *model.Schema) error {
	if s == nil || s.ModelName == "" {
		return fmt.Errorf("cannot register schema without a model name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered[s.ModelName] = s
	r.warnUnsupportedLocked(s)
	return nil
}

// Get returns the schema named name, syncing from the source first if the
// cache is stale.
func (r *Registry) Get(ctx context.Context, name string) (*model.Schema, error) {
	if err := r.syncIfStale(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.registered[name]; ok {
		return s, nil
	}
	if s, ok := r.loaded[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
}

// List returns every known schema sorted by model name.
func (r *Registry) List(ctx context.Context) ([]*model.Schema, error) {
	if err := r.syncIfStale(ctx); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	merged := make(map[string]*model.Schema, len(r.loaded)+len(r.registered))
	for name, s := range r.loaded {
		merged[name] = s
	}
	for name, s := range r.registered {
		merged[name] = s
	}

	out := make([]*model.Schema, 0, len(merged))
	for _, s := range merged {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModelName < out[j].ModelName })
	return out, nil
}

// Refresh reloads the source unconditionally. On failure the previous
// schemas stay in place.
func (r *Registry) Refresh(ctx context.Context) error {
	if r.source == nil {
		return nil
	}

	r.mu.RLock()
	gen := r.gen
	r.mu.RUnlock()

	schemas, err := r.source.Load(ctx)
	if err != nil {
		r.logger.Error().Err(err).Str("source", r.source.Name()).Msg("model reload failed, keeping cached models")
		return fmt.Errorf("failed to load models from %s: %w", r.source.Name(), err)
	}

	loaded := make(map[string]*model.Schema, len(schemas))
	for _, s := range schemas {
		loaded[s.ModelName] = s
	}

	r.mu.Lock()
	r.loaded = loaded
	current := r.gen == gen
	if current {
		r.lastSync = r.clock.Now()
	}
	for _, s := range schemas {
		r.warnUnsupportedLocked(s)
	}
	r.mu.Unlock()

	r.logger.Debug().
		Str("source", r.source.Name()).
		Int("models", len(loaded)).
		Bool("invalidated_during_load", !current).
		Msg("models synced")
	return nil
}

// Invalidate marks the cache stale so the next read reloads the source.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSync = time.Time{}
	r.gen++
}

// LastSync reports when the source was last loaded. The zero time means
// never, or invalidated since.
func (r *Registry) LastSync() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSync
}

// warnUnsupportedLocked logs each unsupported field type the first time it
// is seen. Callers hold r.mu.
func (r *Registry) warnUnsupportedLocked(s *model.Schema) {
	for _, f := range s.UnsupportedFields() {
		key := s.ModelName + "\x00" + f.Name + "\x00" + f.Type
		if r.warned[key] {
			continue
		}
		r.warned[key] = true
		r.logger.Warn().
			Str("model", s.ModelName).
			Str("field", f.Name).
			Str("type", f.Type).
			Msg("unsupported type expression, field will always fail validation")
	}
}

func (r *Registry) stale() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.lastSync.IsZero() {
		return true
	}
	return r.ttl > 0 && r.clock.Now().Sub(r.lastSync) >= r.ttl
}

func (r *Registry) syncIfStale(ctx context.Context) error {
	if r.source == nil || !r.stale() {
		return nil
	}
	return r.Refresh(ctx)
}
