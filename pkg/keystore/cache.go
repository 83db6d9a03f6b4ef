// Package keystore generates Java keystores at most once per alias.
package keystore

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/arthur-debert/deploytpl/pkg/logging"
)

// Builder creates a keystore holding a key under alias and returns its path.
// ttlDays is the validity of the generated certificate.
type Builder interface {
	Build(ctx context.Context, alias, password string, ttlDays int) (string, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, alias, password string, ttlDays int) (string, error)

// Build implements Builder.
func (f BuilderFunc) Build(ctx context.Context, alias, password string, ttlDays int) (string, error) {
	return f(ctx, alias, password, ttlDays)
}

// Cache remembers the keystore generated for each alias for the lifetime of
// a run. Concurrent requests for the same alias share one generation; a
// failed generation is not remembered so a later call can try again.
type Cache struct {
	mu    sync.Mutex
	paths map[string]string
	group singleflight.Group
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{paths: make(map[string]string)}
}

// GetOrCreate returns the path cached for alias, calling factory when there
// is none yet.
func (c *Cache) GetOrCreate(ctx context.Context, alias string, factory func(ctx context.Context) (string, error)) (string, error) {
	if path, ok := c.get(alias); ok {
		return path, nil
	}

	v, err, _ := c.group.Do(alias, func() (interface{}, error) {
		// a previous flight may have finished between get and Do
		if path, ok := c.get(alias); ok {
			return path, nil
		}

		logger := logging.GetLogger("keystore.cache")
		logger.Info().Str("alias", alias).Msg("Generating keystore")
		path, err := factory(ctx)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.paths[alias] = path
		c.mu.Unlock()
		return path, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Build is GetOrCreate with builder as the factory.
func (c *Cache) Build(ctx context.Context, builder Builder, alias, password string, ttlDays int) (string, error) {
	return c.GetOrCreate(ctx, alias, func(ctx context.Context) (string, error) {
		return builder.Build(ctx, alias, password, ttlDays)
	})
}

// Len returns the number of cached aliases.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}

func (c *Cache) get(alias string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path, ok := c.paths[alias]
	return path, ok
}
