package deploy

import (
	"github.com/arthur-debert/deploytpl/pkg/config"
	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/logging"
	"github.com/arthur-debert/deploytpl/pkg/transform"
)

// FileResult is the outcome of generating one manifest entry.
type FileResult struct {
	Spec    config.FileSpec
	Path    string
	Changed bool
	Err     error
}

// Report collects the results of Generate in manifest order.
type Report struct {
	Files []FileResult
}

// Failed returns the entries that could not be generated.
func (r Report) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			out = append(out, f)
		}
	}
	return out
}

// Changed returns the output paths recorded as changed.
func (r Report) Changed() []string {
	var out []string
	for _, f := range r.Files {
		if f.Err == nil && f.Changed {
			out = append(out, f.Path)
		}
	}
	return out
}

// OK reports whether every entry was generated.
func (r Report) OK() bool {
	return len(r.Failed()) == 0
}

// Generate renders every spec in order. A failure is recorded against its
// entry and generation continues; files already written stay on disk.
func (d *Deployment) Generate(specs []config.FileSpec) Report {
	defer logging.Timed(d.logger, "generate")()

	var report Report
	for _, spec := range specs {
		res := FileResult{Spec: spec, Path: d.OutputPath(spec.Path)}
		res.Changed, res.Err = d.generate(spec)
		if res.Err != nil {
			d.logger.Error().Err(res.Err).Str("path", res.Path).Str("template", spec.Template).
				Msg("Failed to generate file")
		}
		report.Files = append(report.Files, res)
	}
	return report
}

func (d *Deployment) generate(spec config.FileSpec) (bool, error) {
	if spec.Path == "" || spec.Template == "" {
		return false, errors.New(errors.ErrInvalidInput, "a manifest entry needs both a path and a template").
			WithDetails(map[string]interface{}{"path": spec.Path, "template": spec.Template})
	}

	var (
		t   *transform.Transformer
		err error
	)
	if spec.Scope == config.ScopeService {
		t, err = d.ServiceTransformer(spec.Path)
	} else {
		t, err = d.HostTransformer(spec.Path)
	}
	if err != nil {
		return false, err
	}

	mode, ok, err := spec.FileMode()
	if err != nil {
		return false, err
	}
	if ok {
		t.SetMode(mode)
	}
	if spec.Timestamp != nil {
		t.SetTimestamp(*spec.Timestamp)
	}
	t.SetWatchFile(spec.WatchEnabled())

	if _, err := render(t, spec.Template); err != nil {
		return false, err
	}
	return t.Changed(), nil
}
