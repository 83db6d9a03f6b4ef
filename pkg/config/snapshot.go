package config

import (
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/arthur-debert/deploytpl/pkg/errors"
)

// Save writes the merged configuration to path on fs, as YAML when the
// extension is .yaml or .yml and TOML otherwise. The file is readable by the
// owner only since it may hold passwords.
func (s *Store) Save(fs afero.Fs, path string) error {
	data, err := s.Marshal(path)
	if err != nil {
		return err
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to create directory for %s", path).
			WithDetail("path", path)
	}
	if err := afero.WriteFile(fs, path, data, 0600); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to write %s", path).
			WithDetail("path", path)
	}
	return nil
}

// Marshal encodes the merged configuration in the format implied by path.
func (s *Store) Marshal(path string) ([]byte, error) {
	tree := s.All()

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(tree)
	default:
		data, err = toml.Marshal(tree)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "failed to encode configuration")
	}
	return data, nil
}
