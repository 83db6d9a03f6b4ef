package transform

import (
	"strings"

	"github.com/arthur-debert/deploytpl/pkg/config"
)

// Well-known placeholder prefixes.
const (
	PrefixHost      = "HOST"
	PrefixService   = "SERVICE"
	PrefixApplier   = "APPLIER"
	PrefixExtractor = "EXTRACTOR"
)

// ExtractorKeyPrefix is prepended to keys read through the EXTRACTOR prefix.
const ExtractorKeyPrefix = "extractor_"

// Values resolves the dotted name of a placeholder, split on '.', to a value.
type Values interface {
	Resolve(segments []string) (config.Value, bool)
}

// ValuesFunc adapts a function to Values.
type ValuesFunc func(segments []string) (config.Value, bool)

// Resolve calls f.
func (f ValuesFunc) Resolve(segments []string) (config.Value, bool) {
	return f(segments)
}

// Target is the store key and scope a prefixed placeholder resolves to.
type Target struct {
	Key   config.Path
	Scope config.Scope
}

// PrefixFunc maps the segments following a prefix to a Target. It must not
// have side effects.
type PrefixFunc func(rest []string) Target

// Resolver resolves placeholder names against a Store in template mode. A
// name whose first segment is a registered prefix goes through that prefix;
// any other name is read as a literal path.
type Resolver struct {
	store    *config.Store
	prefixes map[string]PrefixFunc
}

// NewResolver returns a Resolver with no prefixes.
func NewResolver(store *config.Store) *Resolver {
	return &Resolver{
		store:    store,
		prefixes: make(map[string]PrefixFunc),
	}
}

// Register binds prefix to fn, replacing any earlier binding.
func (r *Resolver) Register(prefix string, fn PrefixFunc) {
	r.prefixes[prefix] = fn
}

// Resolve implements Values.
func (r *Resolver) Resolve(segments []string) (config.Value, bool) {
	if len(segments) == 0 {
		return config.Value{}, false
	}
	if fn, ok := r.prefixes[segments[0]]; ok {
		if len(segments) < 2 {
			return config.Value{}, false
		}
		target := fn(segments[1:])
		return r.store.Lookup(target.Key, target.Scope, config.Template)
	}
	return r.store.Get(config.Path(segments), config.Template)
}

// keyOf lower-cases prefixed segments so HOST.REPL_THL_PORT reads repl_thl_port.
func keyOf(rest []string) config.Path {
	key := make(config.Path, len(rest))
	for i, seg := range rest {
		key[i] = strings.ToLower(seg)
	}
	return key
}

// HostResolver resolves HOST.<KEY> for host; values fall back to global ones.
func HostResolver(store *config.Store, host string) *Resolver {
	r := NewResolver(store)
	r.Register(PrefixHost, func(rest []string) Target {
		return Target{Key: keyOf(rest), Scope: config.Scope{Host: host}}
	})
	return r
}

// ServiceResolver resolves the host prefix plus SERVICE, APPLIER and
// EXTRACTOR for service running on host. Service values win over host
// values, which win over global ones.
func ServiceResolver(store *config.Store, host, service string) *Resolver {
	r := HostResolver(store, host)
	scope := config.Scope{Host: host, Service: service}
	serviceKey := func(rest []string) Target {
		return Target{Key: keyOf(rest), Scope: scope}
	}
	r.Register(PrefixService, serviceKey)
	r.Register(PrefixApplier, serviceKey)
	r.Register(PrefixExtractor, func(rest []string) Target {
		key := keyOf(rest)
		key[0] = ExtractorKeyPrefix + key[0]
		return Target{Key: key, Scope: scope}
	})
	return r
}
