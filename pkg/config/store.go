package config

import (
	"path/filepath"
	"sync"

	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/deploytpl/pkg/errors"
)

// Mode selects how a value is read.
type Mode int

const (
	// Raw returns the value as stored.
	Raw Mode = iota
	// Template returns the value as it should appear in generated files.
	Template
)

func (m Mode) String() string {
	if m == Template {
		return "template"
	}
	return "raw"
}

// TemplateFunc rewrites a value read in Template mode. It receives the path
// that resolved and the raw value (ok is false when nothing is configured).
type TemplateFunc func(p Path, raw Value, ok bool) (Value, bool)

// Store is the layered configuration tree. Overrides win over explicit values,
// which win over declared defaults.
type Store struct {
	mu        sync.RWMutex
	defaults  *koanf.Koanf
	values    *koanf.Koanf
	overrides *koanf.Koanf
	templates map[string]TemplateFunc
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		defaults:  koanf.New(Delim),
		values:    koanf.New(Delim),
		overrides: koanf.New(Delim),
		templates: make(map[string]TemplateFunc),
	}
}

// Get returns the value at p. The boolean is false when neither an override,
// an explicit value nor a default exists; missing intermediate segments are
// reported the same way as a missing leaf.
func (s *Store) Get(p Path, mode Mode) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.explicit(p)
	if !ok {
		v, ok = lookupLayer(s.defaults, p)
	}
	return s.applyMode(p, v, ok, mode)
}

// Lookup resolves key through the scope precedence: service, then host, then
// global. Explicit values at any level win over defaults at any level.
func (s *Store) Lookup(key Path, scope Scope, mode Mode) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	candidates := scope.candidates(key)
	for _, p := range candidates {
		if v, ok := s.explicit(p); ok {
			return s.applyMode(p, v, true, mode)
		}
	}
	for _, p := range candidates {
		if v, ok := lookupLayer(s.defaults, p); ok {
			return s.applyMode(p, v, true, mode)
		}
	}
	return s.applyMode(candidates[len(candidates)-1], Value{}, false, mode)
}

// Exists reports whether anything is configured at p.
func (s *Store) Exists(p Path) bool {
	_, ok := s.Get(p, Raw)
	return ok
}

// Set stores v at p.
func (s *Store) Set(p Path, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setLayer(s.values, p, v)
}

// Override stores v at p with precedence over Set for the rest of the run.
// Map values are merged into any existing subtree.
func (s *Store) Override(p Path, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setLayer(s.overrides, p, v)
}

// SetDefault declares the value returned when nothing else is configured at p.
func (s *Store) SetDefault(p Path, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setLayer(s.defaults, p, v)
}

// DeclareTemplateValue registers fn for every path whose leaf segment is key.
func (s *Store) DeclareTemplateValue(key string, fn TemplateFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[key] = fn
}

// All returns the merged tree as nested maps.
func (s *Store) All() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.merged().Raw()
}

// merged flattens the three layers into one koanf instance. Callers hold mu.
func (s *Store) merged() *koanf.Koanf {
	k := koanf.New(Delim)
	_ = k.Merge(s.defaults)
	_ = k.Merge(s.values)
	_ = k.Merge(s.overrides)
	return k
}

func (s *Store) explicit(p Path) (Value, bool) {
	if v, ok := lookupLayer(s.overrides, p); ok {
		return v, true
	}
	return lookupLayer(s.values, p)
}

func (s *Store) applyMode(p Path, v Value, ok bool, mode Mode) (Value, bool) {
	if mode != Template {
		return v, ok
	}
	if fn, found := s.templates[p.Leaf()]; found {
		return fn(p, v, ok)
	}
	return v, ok
}

func lookupLayer(k *koanf.Koanf, p Path) (Value, bool) {
	if len(p) == 0 {
		return Value{}, false
	}
	key := p.String()
	if !k.Exists(key) {
		return Value{}, false
	}
	return NewValue(k.Get(key)), true
}

func setLayer(k *koanf.Koanf, p Path, v interface{}) error {
	if len(p) == 0 {
		return errors.New(errors.ErrInvalidInput, "cannot set a value at an empty path")
	}
	if err := k.Set(p.String(), v); err != nil {
		return errors.Wrapf(err, errors.ErrInternal, "failed to set %s", p)
	}
	return nil
}

// MaskedValue hides secrets in generated output while keeping emptiness, so
// defaults and comment markers still behave.
func MaskedValue(_ Path, raw Value, ok bool) (Value, bool) {
	if !ok || raw.IsEmpty() {
		return raw, ok
	}
	return NewValue("********"), true
}

// RelocatedPath returns a TemplateFunc that rewrites a local file path to the
// same base name under dir, where the file lives once deployed.
func RelocatedPath(dir string) TemplateFunc {
	return func(_ Path, raw Value, ok bool) (Value, bool) {
		if !ok || raw.IsEmpty() || raw.IsList() {
			return raw, ok
		}
		return NewValue(filepath.Join(dir, filepath.Base(raw.String()))), true
	}
}
