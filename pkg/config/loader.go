package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/logging"
)

// DefaultEnvPrefix is the environment variable prefix read by Load.
const DefaultEnvPrefix = "DEPLOYTPL_"

// LoadOptions controls which sources Load reads.
type LoadOptions struct {
	// Files are merged in order, later files win. TOML unless the extension
	// is .yaml or .yml.
	Files []string
	// EnvPrefix selects environment variables; empty means DefaultEnvPrefix.
	// A double underscore separates path segments:
	// DEPLOYTPL_HOSTS__DB1__PORT sets hosts/db1/port.
	EnvPrefix string
	// SkipEnv disables the environment source.
	SkipEnv bool
	// IgnoreEnv lists full variable names that share the prefix but are not
	// configuration, such as directory overrides.
	IgnoreEnv []string
	// Values are applied last, as if passed to Set.
	Values map[string]interface{}
}

// Load builds a Store from the embedded defaults, the given files, the
// environment and opts.Values, lowest precedence first.
func Load(opts LoadOptions) (*Store, error) {
	logger := logging.GetLogger("config.loader")
	s := NewStore()

	// 1. Embedded defaults go to the defaults layer so explicit values at any
	// scope win over them
	if err := s.defaults.Load(defaultsProvider{data: defaultsTOML}, toml.Parser()); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to load embedded defaults")
	}

	// 2. Config files
	for _, path := range opts.Files {
		if _, err := os.Stat(path); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to read config file %s", path).
				WithDetail("path", path)
		}
		if err := s.values.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse config file %s", path).
				WithDetail("path", path)
		}
		logger.Debug().Str("path", path).Msg("Loaded config file")
	}

	// 3. Environment
	if !opts.SkipEnv {
		prefix := opts.EnvPrefix
		if prefix == "" {
			prefix = DefaultEnvPrefix
		}
		ignored := make(map[string]bool, len(opts.IgnoreEnv))
		for _, name := range opts.IgnoreEnv {
			ignored[name] = true
		}
		err := s.values.Load(env.Provider(prefix, Delim, func(key string) string {
			if ignored[key] {
				return ""
			}
			return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, prefix)), "__", Delim)
		}), nil)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment variables")
		}
	}

	// 4. Programmatic values
	if len(opts.Values) > 0 {
		if err := s.values.Load(confmap.Provider(opts.Values, Delim), nil); err != nil {
			return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load values")
		}
	}

	logger.Debug().Int("files", len(opts.Files)).Msg("Configuration loaded")
	return s, nil
}

// Merge loads another source into the explicit values layer.
func (s *Store) Merge(values map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.values.Load(confmap.Provider(values, Delim), nil); err != nil {
		return errors.Wrap(err, errors.ErrConfigLoad, "failed to merge values")
	}
	return nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	}
	return toml.Parser()
}
