package templates

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/deploytpl/pkg/config"
	"github.com/arthur-debert/deploytpl/pkg/errors"
)

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
}

func TestSearchDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/custom", 0755))

	st := &config.Settings{
		HomeDirectory:      "/opt/app",
		PrepareDirectory:   "/opt/app/next",
		TemplateSearchPath: []string{"/missing", "/custom", " "},
	}
	assert.Equal(t,
		[]string{"/custom", "/opt/app/share/templates", "/opt/app/next"},
		SearchDirectories(fs, st))
}

func TestSimplify(t *testing.T) {
	assert.Equal(t, "tungsten-replicator/a.tpl", Simplify("tungsten-replicator/samples/conf/a.tpl"))
	assert.Equal(t, "a.tpl", Simplify("a.tpl"))
	assert.Equal(t, []string{"x/a.tpl", "x/samples/conf/a.tpl"}, variants("x/samples/conf/a.tpl"))
}

func TestFindOverridePrecedence(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/custom/replicator.properties.tpl":                    "custom",
		"/share/templates/replicator.properties.tpl":           "shared",
		"/share/templates/replicator.properties.tpl.addon-ssl": "ssl",
		"/custom/replicator.properties.tpl.addon-extra":        "extra",
	})

	f := NewFinder(fs, []string{"/custom", "/share/templates"})
	groups, err := f.Find("replicator.properties.tpl")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "/custom/replicator.properties.tpl", groups[0].Base)
	assert.Equal(t, []string{
		"/custom/replicator.properties.tpl.addon-extra",
		"/share/templates/replicator.properties.tpl.addon-ssl",
	}, groups[0].Addons)
	assert.Equal(t, []string{
		"/custom/replicator.properties.tpl",
		"/custom/replicator.properties.tpl.addon-extra",
		"/share/templates/replicator.properties.tpl.addon-ssl",
	}, groups[0].Files())
}

func TestFindSimplifiedPattern(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/custom/tr/wrapper.conf":                       "custom",
		"/share/templates/tr/samples/conf/wrapper.conf": "shared",
	})

	f := NewFinder(fs, []string{"/custom", "/share/templates"})
	groups, err := f.Find("tr/samples/conf/wrapper.conf")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "/custom/tr/wrapper.conf", groups[0].Base)
}

func TestFindWildcardSortedAndAddonsExcluded(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/b/filters/zeta.tpl":           "z",
		"/a/filters/beta.tpl":           "b",
		"/b/filters/beta.tpl":           "b2",
		"/a/filters/alpha.tpl":          "a",
		"/a/filters/alpha.tpl.addon.01": "a1",
	})

	f := NewFinder(fs, []string{"/a", "/b"})
	groups, err := f.Find("filters/*.tpl*")
	require.NoError(t, err)

	var bases []string
	for _, g := range groups {
		bases = append(bases, g.Base)
	}
	assert.Equal(t, []string{"/a/filters/alpha.tpl", "/a/filters/beta.tpl", "/b/filters/zeta.tpl"}, bases)
	assert.Equal(t, []string{"/a/filters/alpha.tpl.addon.01"}, groups[0].Addons)
}

func TestFindMultiplePatterns(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/t/one.tpl": "1",
		"/t/two.tpl": "2",
	})

	f := NewFinder(fs, []string{"/t"})
	groups, err := f.Find("two.tpl", "one.tpl", "missing.tpl")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "one.tpl", groups[0].Name)
	assert.Equal(t, "two.tpl", groups[1].Name)
}

func TestFindNotFound(t *testing.T) {
	fs := afero.NewMemMapFs()
	f := NewFinder(fs, []string{"/t"})

	_, err := f.Find("nope.tpl")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTemplateNotFound))
	assert.Equal(t, "nope.tpl", errors.GetErrorDetails(err)["pattern"])
}

func TestFindSkipsDirectories(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/t/conf.d", 0755))
	writeFiles(t, fs, map[string]string{"/t/conf.tpl": "x"})

	groups, err := NewFinder(fs, []string{"/t"}).Find("conf*")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "/t/conf.tpl", groups[0].Base)
}

func TestFindIsDeterministic(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/a/x.tpl": "", "/a/y.tpl": "", "/b/x.tpl": "", "/b/w.tpl": "",
	})
	f := NewFinder(fs, []string{"/a", "/b"})

	first, err := f.Find("*.tpl")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := f.Find("*.tpl")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
