package deploy

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/deploytpl/pkg/config"
	"github.com/arthur-debert/deploytpl/pkg/errors"
)

const (
	homeDir   = "/opt/app"
	sharedDir = "/opt/app/share/templates"
	prepDir   = "/opt/app/next"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newDeployment(t *testing.T, values map[string]interface{}, templates map[string]string, opts Options) *Deployment {
	t.Helper()

	base := map[string]interface{}{
		config.KeyHomeDirectory:    homeDir,
		config.KeyPrepareDirectory: prepDir,
		config.KeyTimestamp:        false,
	}
	for k, v := range values {
		base[k] = v
	}
	store, err := config.Load(config.LoadOptions{SkipEnv: true, Values: base})
	require.NoError(t, err)

	fs := afero.NewMemMapFs()
	for name, content := range templates {
		require.NoError(t, afero.WriteFile(fs, sharedDir+"/"+name, []byte(content), 0644))
	}

	opts.Store = store
	opts.FS = fs
	if opts.Host == "" {
		opts.Host = "db1"
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}
	d, err := New(opts)
	require.NoError(t, err)
	return d
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Options{Host: "db1"})
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	_, err = New(Options{Store: config.NewStore()})
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
}

func TestSearchDirectoriesFromSettings(t *testing.T) {
	d := newDeployment(t, nil, nil, Options{})
	assert.Equal(t, []string{sharedDir, prepDir}, d.Finder.Dirs)
	assert.Equal(t, prepDir+"/a.properties", d.OutputPath("a.properties"))
	assert.Equal(t, "/etc/a.properties", d.OutputPath("/etc/a.properties"))
	assert.Equal(t, "", d.OutputPath(""))
}

func TestTransformHostTemplate(t *testing.T) {
	d := newDeployment(t,
		map[string]interface{}{
			"port":           "3306",
			"hosts/db1/port": "3307",
		},
		map[string]string{"my.cnf.tpl": "port=@{HOST.PORT}\nglobal=@{port}"},
		Options{},
	)

	text, err := d.TransformHostTemplate("conf/my.cnf", "my.cnf.tpl")
	require.NoError(t, err)
	assert.Equal(t, "port=3307\nglobal=3306", text)
	assert.Equal(t, "port=3307\nglobal=3306\n", readFile(t, d.FS, prepDir+"/conf/my.cnf"))

	changed, err := d.Tracker.Changed()
	require.NoError(t, err)
	assert.Equal(t, []string{"conf/my.cnf"}, changed)

	entries, err := d.Watches.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "conf/my.cnf", entries[0].Path)
}

func TestTransformServiceTemplate(t *testing.T) {
	values := map[string]interface{}{
		"hosts/db1/role":                "slave",
		"services/alpha/role":           "master",
		"services/alpha/extractor_port": "13306",
	}
	tpl := map[string]string{"svc.tpl": "role=@{SERVICE.ROLE}\nhost=@{HOST.ROLE}\nextract=@{EXTRACTOR.PORT}"}

	d := newDeployment(t, values, tpl, Options{})
	_, err := d.TransformServiceTemplate("svc.properties", "svc.tpl")
	assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))

	d = newDeployment(t, values, tpl, Options{Service: "alpha"})
	text, err := d.TransformServiceTemplate("", "svc.tpl")
	require.NoError(t, err)
	assert.Equal(t, "role=master\nhost=slave\nextract=13306", text)
}

func TestFixedPropertiesByScope(t *testing.T) {
	d := newDeployment(t,
		map[string]interface{}{
			config.KeyFixedProperties:                []interface{}{"a=global"},
			"hosts/db1/" + config.KeyFixedProperties: []interface{}{"a=host", "b+=-x"},
		},
		map[string]string{"p.tpl": "a=1\nb=2\nc=3"},
		Options{Properties: []string{"c=cli"}},
	)

	assert.Equal(t, []string{"a=host", "b+=-x", "c=cli"}, d.FixedProperties())

	text, err := d.TransformHostTemplate("", "p.tpl")
	require.NoError(t, err)
	assert.Equal(t, "a=host\nb=2-x\nc=cli", text)
}

func TestMalformedFixedProperty(t *testing.T) {
	d := newDeployment(t, nil, map[string]string{"p.tpl": "a=1"},
		Options{Properties: []string{"a:b:c=1"}})

	_, err := d.HostTransformer("p.properties")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrMalformedRule))
	assert.Equal(t, "a:b:c=1", errors.GetErrorDetails(err)["rule"])
}

func TestTimestampSetting(t *testing.T) {
	d := newDeployment(t, map[string]interface{}{config.KeyTimestamp: true},
		map[string]string{"p.tpl": "a=1"}, Options{})

	_, err := d.TransformHostTemplate("p.properties", "p.tpl")
	require.NoError(t, err)
	assert.Equal(t, "# AUTO-GENERATED: 2024-03-01T12:00:00Z\na=1\n", readFile(t, d.FS, prepDir+"/p.properties"))
}

func TestGenerate(t *testing.T) {
	d := newDeployment(t,
		map[string]interface{}{config.KeyFileProtectionLevel: "group"},
		map[string]string{
			"a.tpl": "a=1",
			"b.tpl": "b=@{include(missing)}",
			"c.tpl": "c=3",
		},
		Options{Service: "alpha"},
	)
	require.NoError(t, d.Store.Set(config.Path{"missing"}, "nope.tpl"))

	watch := false
	stamp := true
	report := d.Generate([]config.FileSpec{
		{Path: "a.properties", Template: "a.tpl", Scope: config.ScopeHost, Mode: "0666"},
		{Path: "b.properties", Template: "b.tpl", Scope: config.ScopeHost},
		{Path: "/etc/c.properties", Template: "c.tpl", Scope: config.ScopeService, Watch: &watch, Timestamp: &stamp},
		{Path: "d.properties"},
	})

	require.Len(t, report.Files, 4)
	assert.False(t, report.OK())

	assert.NoError(t, report.Files[0].Err)
	assert.True(t, errors.IsErrorCode(report.Files[1].Err, errors.ErrTemplateNotFound))
	assert.NoError(t, report.Files[2].Err)
	assert.True(t, errors.IsErrorCode(report.Files[3].Err, errors.ErrInvalidInput))

	assert.Len(t, report.Failed(), 2)
	assert.Equal(t, []string{prepDir + "/a.properties", "/etc/c.properties"}, report.Changed())

	info, err := d.FS.Stat(prepDir + "/a.properties")
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0640), info.Mode().Perm())

	exists, err := afero.Exists(d.FS, prepDir+"/b.properties")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.True(t, strings.HasPrefix(readFile(t, d.FS, "/etc/c.properties"), "# AUTO-GENERATED: "))

	entries, err := d.Watches.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.properties", entries[0].Path)
}

func TestGenerateUnchangedSecondRun(t *testing.T) {
	d := newDeployment(t, nil, map[string]string{"a.tpl": "a=1"}, Options{})
	specs := []config.FileSpec{{Path: "a.properties", Template: "a.tpl", Scope: config.ScopeHost}}

	first := d.Generate(specs)
	require.True(t, first.OK())
	assert.Len(t, first.Changed(), 1)

	require.NoError(t, d.Reset())
	second := d.Generate(specs)
	require.True(t, second.OK())
	assert.Empty(t, second.Changed())
}

func TestWriteConfigRecord(t *testing.T) {
	d := newDeployment(t, map[string]interface{}{"hosts/db1/port": 3306}, nil, Options{})

	path, err := d.WriteConfigRecord()
	require.NoError(t, err)
	assert.Equal(t, prepDir+"/"+ConfigRecordName, path)

	content := readFile(t, d.FS, path)
	assert.Contains(t, content, "home_directory = '/opt/app'")
	assert.Contains(t, content, "port = 3306")
}
