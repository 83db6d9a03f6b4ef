package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/deploytpl/pkg/errors"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(LoadOptions{SkipEnv: true})
	require.NoError(t, err)

	v, ok := s.Get(Path{KeyHomeDirectory}, Raw)
	require.True(t, ok)
	assert.Equal(t, "/opt/continuent", v.String())

	v, ok = s.Get(Path{KeyJavaTLSEntryAlias}, Raw)
	require.True(t, ok)
	assert.Equal(t, "tls", v.String())

	// Defaults are overridden by explicit values at any scope
	require.NoError(t, s.Set(HostPath("db1", KeyJavaTLSEntryAlias), "db1"))
	v, _ = s.Lookup(Path{KeyJavaTLSEntryAlias}, Scope{Host: "db1"}, Raw)
	assert.Equal(t, "db1", v.String())
}

func TestLoadFiles(t *testing.T) {
	tomlPath := writeConfig(t, "base.toml", `
home_directory = "/opt/app"

[hosts."db1.example.com"]
port = 3306
`)
	yamlPath := writeConfig(t, "override.yaml", `
hosts:
  db1.example.com:
    port: 3307
services:
  alpha:
    role: master
`)

	s, err := Load(LoadOptions{Files: []string{tomlPath, yamlPath}, SkipEnv: true})
	require.NoError(t, err)

	v, _ := s.Get(Path{KeyHomeDirectory}, Raw)
	assert.Equal(t, "/opt/app", v.String())

	v, ok := s.Lookup(Path{"port"}, Scope{Host: "db1.example.com"}, Raw)
	require.True(t, ok)
	assert.Equal(t, "3307", v.String())

	v, _ = s.Lookup(Path{"role"}, Scope{Host: "db1.example.com", Service: "alpha"}, Raw)
	assert.Equal(t, "master", v.String())
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing_file", func(t *testing.T) {
		_, err := Load(LoadOptions{Files: []string{filepath.Join(t.TempDir(), "nope.toml")}, SkipEnv: true})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrConfigLoad))
	})

	t.Run("invalid_toml", func(t *testing.T) {
		path := writeConfig(t, "bad.toml", "home_directory = \n")
		_, err := Load(LoadOptions{Files: []string{path}, SkipEnv: true})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse))
	})
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("DEPLOYTPLTEST_HOSTS__DB1__PORT", "3308")
	t.Setenv("DEPLOYTPLTEST_TEMP_DIRECTORY", "/var/tmp")
	t.Setenv("DEPLOYTPLTEST_DATA_DIR", "/srv/data")

	s, err := Load(LoadOptions{EnvPrefix: "DEPLOYTPLTEST_", IgnoreEnv: []string{"DEPLOYTPLTEST_DATA_DIR"}})
	require.NoError(t, err)

	v, ok := s.Get(HostPath("db1", "port"), Raw)
	require.True(t, ok)
	assert.Equal(t, "3308", v.String())

	v, _ = s.Get(Path{KeyTempDirectory}, Raw)
	assert.Equal(t, "/var/tmp", v.String())

	assert.False(t, s.Exists(Path{"data_dir"}))
}

func TestLoadValues(t *testing.T) {
	s, err := Load(LoadOptions{
		SkipEnv: true,
		Values: map[string]interface{}{
			"hosts/db1/port": 1,
			KeyTimestamp:     false,
		},
	})
	require.NoError(t, err)

	v, _ := s.Get(HostPath("db1", "port"), Raw)
	assert.Equal(t, "1", v.String())
	v, _ = s.Get(Path{KeyTimestamp}, Raw)
	assert.False(t, v.Bool())
}
