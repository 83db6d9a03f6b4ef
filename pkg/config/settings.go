package config

import (
	"os"
	"strconv"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/deploytpl/pkg/errors"
)

// File scopes for FileSpec.Scope.
const (
	ScopeHost    = "host"
	ScopeService = "service"
)

// Settings are the deployment-wide values the engine itself needs.
type Settings struct {
	HomeDirectory       string     `koanf:"home_directory"`
	PrepareDirectory    string     `koanf:"prepare_directory"`
	TempDirectory       string     `koanf:"temp_directory"`
	TemplateSearchPath  []string   `koanf:"template_search_path"`
	FileProtectionLevel string     `koanf:"file_protection_level"`
	Timestamp           bool       `koanf:"timestamp"`
	Files               []FileSpec `koanf:"files"`
}

// FileSpec describes one generated file in the files manifest.
type FileSpec struct {
	// Path is the output path, relative to the prepare directory unless absolute.
	Path     string `koanf:"path"`
	Template string `koanf:"template"`
	// Scope is "host" (default) or "service".
	Scope string `koanf:"scope"`
	// Mode is an octal permission string such as "0640". Empty leaves the
	// mode to the umask.
	Mode      string `koanf:"mode"`
	Watch     *bool  `koanf:"watch"`
	Timestamp *bool  `koanf:"timestamp"`
}

// FileMode parses Mode. The boolean is false when no mode is set.
func (f FileSpec) FileMode() (os.FileMode, bool, error) {
	if f.Mode == "" {
		return 0, false, nil
	}
	m, err := strconv.ParseUint(f.Mode, 8, 32)
	if err != nil {
		return 0, false, errors.Wrapf(err, errors.ErrInvalidInput, "invalid mode %q for %s", f.Mode, f.Path).
			WithDetail("path", f.Path)
	}
	return os.FileMode(m), true, nil
}

// WatchEnabled reports whether the file joins the watch list. Defaults to true.
func (f FileSpec) WatchEnabled() bool {
	return f.Watch == nil || *f.Watch
}

// Settings decodes the deployment settings from the merged store.
func (s *Store) Settings() (*Settings, error) {
	s.mu.RLock()
	k := s.merged()
	s.mu.RUnlock()

	var st Settings
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &st,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &st, unmarshalConf); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to decode deployment settings")
	}

	if st.PrepareDirectory == "" {
		st.PrepareDirectory = st.HomeDirectory
	}
	for i := range st.Files {
		if st.Files[i].Scope == "" {
			st.Files[i].Scope = ScopeHost
		}
		if st.Files[i].Scope != ScopeHost && st.Files[i].Scope != ScopeService {
			return nil, errors.Newf(errors.ErrInvalidInput, "invalid scope %q for %s", st.Files[i].Scope, st.Files[i].Path).
				WithDetail("path", st.Files[i].Path)
		}
	}
	switch st.FileProtectionLevel {
	case "", "none", "group", "user":
	default:
		return nil, errors.Newf(errors.ErrInvalidInput, "invalid file_protection_level %q", st.FileProtectionLevel)
	}

	return &st, nil
}
