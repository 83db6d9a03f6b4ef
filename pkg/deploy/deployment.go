// Package deploy binds the template engine to one deployment target: a host,
// optionally a service on it, and the configuration that describes both.
package deploy

import (
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arthur-debert/deploytpl/pkg/changes"
	"github.com/arthur-debert/deploytpl/pkg/config"
	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/filesystem"
	"github.com/arthur-debert/deploytpl/pkg/logging"
	"github.com/arthur-debert/deploytpl/pkg/templates"
	"github.com/arthur-debert/deploytpl/pkg/transform"
)

// ConfigRecordName is the configuration snapshot written into the prepare
// directory.
const ConfigRecordName = "deploytpl.toml"

// Options configures New.
type Options struct {
	Store   *config.Store
	FS      afero.Fs
	Host    string
	Service string
	// Properties are extra fixed property directives applied after the ones
	// in the fixed_properties setting.
	Properties []string
	Now        func() time.Time
}

// Deployment generates the files of one host or service.
type Deployment struct {
	Store      *config.Store
	Settings   *config.Settings
	Host       string
	Service    string
	FS         afero.Fs
	Finder     *templates.Finder
	Tracker    *changes.Tracker
	Watches    *changes.WatchList
	Properties []string
	Now        func() time.Time

	logger zerolog.Logger
}

// New decodes the deployment settings from opts.Store and prepares the
// template search directories and the change bookkeeping.
func New(opts Options) (*Deployment, error) {
	if opts.Store == nil {
		return nil, errors.New(errors.ErrInvalidInput, "a configuration store is required")
	}
	if opts.Host == "" {
		return nil, errors.New(errors.ErrInvalidInput, "a host is required")
	}
	fs := opts.FS
	if fs == nil {
		fs = filesystem.NewOS()
	}

	settings, err := opts.Store.Settings()
	if err != nil {
		return nil, err
	}

	return &Deployment{
		Store:      opts.Store,
		Settings:   settings,
		Host:       opts.Host,
		Service:    opts.Service,
		FS:         fs,
		Finder:     templates.NewFinder(fs, templates.SearchDirectories(fs, settings)),
		Tracker:    changes.NewTracker(fs, settings.PrepareDirectory),
		Watches:    changes.NewWatchList(fs, settings.PrepareDirectory),
		Properties: opts.Properties,
		Now:        opts.Now,
		logger:     logging.ForDeployment("deploy", opts.Host, opts.Service),
	}, nil
}

// Scope is the lookup scope of this deployment.
func (d *Deployment) Scope() config.Scope {
	return config.Scope{Host: d.Host, Service: d.Service}
}

// OutputPath resolves path against the prepare directory unless absolute.
func (d *Deployment) OutputPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(d.Settings.PrepareDirectory, path)
}

// FixedProperties returns the fixed_properties setting resolved for this
// deployment's scope, followed by the extra properties.
func (d *Deployment) FixedProperties() []string {
	v, _ := d.Store.Lookup(config.Path{config.KeyFixedProperties}, d.Scope(), config.Raw)
	props := v.List()
	return append(props, d.Properties...)
}

// HostTransformer returns a Transformer writing path with values resolved
// for the host. An empty path returns a Transformer that only renders text.
func (d *Deployment) HostTransformer(path string) (*transform.Transformer, error) {
	return d.transformer(path, transform.HostResolver(d.Store, d.Host))
}

// ServiceTransformer is HostTransformer with the service prefixes added.
func (d *Deployment) ServiceTransformer(path string) (*transform.Transformer, error) {
	if d.Service == "" {
		return nil, errors.New(errors.ErrInvalidInput, "no service selected for a service template").
			WithDetail("host", d.Host)
	}
	return d.transformer(path, transform.ServiceResolver(d.Store, d.Host, d.Service))
}

// TransformHostTemplate renders template into path for the host.
func (d *Deployment) TransformHostTemplate(path, template string) (string, error) {
	t, err := d.HostTransformer(path)
	if err != nil {
		return "", err
	}
	return render(t, template)
}

// TransformServiceTemplate renders template into path for the service.
func (d *Deployment) TransformServiceTemplate(path, template string) (string, error) {
	t, err := d.ServiceTransformer(path)
	if err != nil {
		return "", err
	}
	return render(t, template)
}

// WriteConfigRecord saves the merged configuration into the prepare
// directory and returns its path.
func (d *Deployment) WriteConfigRecord() (string, error) {
	path := filepath.Join(d.Settings.PrepareDirectory, ConfigRecordName)
	if err := d.Store.Save(d.FS, path); err != nil {
		return "", err
	}
	d.logger.Debug().Str("path", path).Msg("Configuration record written")
	return path, nil
}

// Reset clears the change bookkeeping of a previous run.
func (d *Deployment) Reset() error {
	if err := d.Tracker.Reset(); err != nil {
		return err
	}
	return d.Watches.Reset()
}

func (d *Deployment) transformer(path string, values transform.Values) (*transform.Transformer, error) {
	t, err := transform.New(transform.Options{
		FS:              d.FS,
		Finder:          d.Finder,
		Values:          values,
		Outfile:         d.OutputPath(path),
		Properties:      d.FixedProperties(),
		ProtectionLevel: d.Settings.FileProtectionLevel,
		Tracker:         d.Tracker,
		Watches:         d.Watches,
		Now:             d.Now,
	})
	if err != nil {
		return nil, err
	}
	t.SetTimestamp(d.Settings.Timestamp)
	return t, nil
}

func render(t *transform.Transformer, template string) (string, error) {
	if err := t.SetTemplate(template); err != nil {
		return "", err
	}
	return t.Output()
}
