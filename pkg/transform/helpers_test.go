package transform

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/deploytpl/pkg/config"
	"github.com/arthur-debert/deploytpl/pkg/fixedprops"
	"github.com/arthur-debert/deploytpl/pkg/templates"
)

const (
	customDir = "/custom"
	sharedDir = "/opt/app/share/templates"
	prepDir   = "/opt/app/next"
)

type fixture struct {
	fs     afero.Fs
	store  *config.Store
	finder *templates.Finder
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
	return &fixture{
		fs:     fs,
		store:  config.NewStore(),
		finder: templates.NewFinder(fs, []string{customDir, sharedDir, prepDir}),
	}
}

func (f *fixture) set(t *testing.T, path string, v interface{}) {
	t.Helper()
	require.NoError(t, f.store.Set(config.ParsePath(path), v))
}

func (f *fixture) lineTransformer(t *testing.T, properties ...string) *LineTransformer {
	t.Helper()
	rules, err := fixedprops.Parse(properties, "")
	require.NoError(t, err)
	return &LineTransformer{
		Values: NewResolver(f.store),
		Rules:  rules,
		Finder: f.finder,
		FS:     f.fs,
	}
}
