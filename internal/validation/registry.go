package validation

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrDuplicateCheck = errors.New("check already registered")
	ErrNilCheck       = errors.New("check function is nil")
)

// Func is a business rule run after structural validation. It reports
// problems through acc. A returned error is recorded as a validator failure.
type Func func(data map[string]any, fields []string, acc Accumulator) error

// Registry is the closed set of checks a host application exposes to schemas.
type Registry struct {
	mu     sync.RWMutex
	checks map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{checks: make(map[string]Func)}
}

// Register adds fn under name.
func (r *Registry) Register(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("%s: %w", name, ErrNilCheck)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.checks[name]; exists {
		return fmt.Errorf("%s: %w", name, ErrDuplicateCheck)
	}
	r.checks[name] = fn
	return nil
}

// MustRegister is Register for package initialisation; it panics on error.
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

func (r *Registry) Lookup(name string) (Func, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.checks[name]
	return fn, ok
}

// Names returns the registered check names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.checks))
	for n := range r.checks {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
