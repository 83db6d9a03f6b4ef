// Package transform renders templates into configuration files.
//
// A LineTransformer evaluates one template line: fixed replacements first,
// then @{...} placeholders, then fixed appends and regex substitutions. A
// Transformer buffers the lines of the templates matched by a pattern, runs
// every line through a LineTransformer and either returns the text or writes
// it to its output file with mode limiting, a timestamp header and change
// tracking.
package transform

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arthur-debert/deploytpl/pkg/changes"
	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/filesystem"
	"github.com/arthur-debert/deploytpl/pkg/fixedprops"
	"github.com/arthur-debert/deploytpl/pkg/logging"
	"github.com/arthur-debert/deploytpl/pkg/templates"
)

// HeaderPrefix starts the timestamp line of generated files.
const HeaderPrefix = "# AUTO-GENERATED: "

// Options configures a Transformer.
type Options struct {
	FS     afero.Fs
	Finder *templates.Finder
	Values Values

	// Outfile is where Output writes. Empty means Output only returns text.
	Outfile string

	// Properties are fixed property directives, filtered by Outfile.
	Properties []string

	// ProtectionLevel limits the mode set with SetMode: none, group or user.
	ProtectionLevel string

	// Tracker and Watches are optional.
	Tracker *changes.Tracker
	Watches *changes.WatchList

	// Now defaults to time.Now.
	Now func() time.Time
}

// Transformer renders one output file.
type Transformer struct {
	fs      afero.Fs
	finder  *templates.Finder
	outfile string
	lines   []string
	lt      *LineTransformer
	umask   os.FileMode
	tracker *changes.Tracker
	watches *changes.WatchList
	now     func() time.Time
	logger  zerolog.Logger

	mode      os.FileMode
	hasMode   bool
	timestamp bool
	watch     bool
	changed   bool
}

// New returns a Transformer for opts. It fails with MALFORMED_RULE when a
// property directive cannot be parsed.
func New(opts Options) (*Transformer, error) {
	rules, err := fixedprops.Parse(opts.Properties, opts.Outfile)
	if err != nil {
		return nil, err
	}
	umask, err := filesystem.Umask(opts.ProtectionLevel)
	if err != nil {
		return nil, err
	}

	fs := opts.FS
	if fs == nil && opts.Finder != nil {
		fs = opts.Finder.FS
	}
	if fs == nil {
		fs = filesystem.NewOS()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Transformer{
		fs:      fs,
		finder:  opts.Finder,
		outfile: opts.Outfile,
		lt: &LineTransformer{
			Values: opts.Values,
			Rules:  rules,
			Finder: opts.Finder,
			FS:     fs,
		},
		umask:     umask,
		tracker:   opts.Tracker,
		watches:   opts.Watches,
		now:       now,
		logger:    logging.GetLogger("transform"),
		timestamp: true,
		watch:     true,
	}, nil
}

// SetMode forces the permission mode of the output file. The protection
// level still removes bits from it.
func (t *Transformer) SetMode(mode os.FileMode) {
	t.mode = mode
	t.hasMode = true
}

// SetTimestamp enables or disables the timestamp header. Enabled by default.
func (t *Transformer) SetTimestamp(enabled bool) {
	t.timestamp = enabled
}

// SetWatchFile enables or disables adding the output to the watch list.
// Enabled by default.
func (t *Transformer) SetWatchFile(enabled bool) {
	t.watch = enabled
}

// Changed reports whether the last Output recorded the file as changed.
func (t *Transformer) Changed() bool {
	return t.changed
}

// Filename returns the output path, empty when there is none.
func (t *Transformer) Filename() string {
	return t.outfile
}

// SetTemplate replaces the buffer with the lines of every template group
// matching pattern, base files before their addons. Absolute patterns are
// rejected since they would bypass the search directories.
func (t *Transformer) SetTemplate(pattern string) error {
	if filepath.IsAbs(pattern) {
		return errors.Newf(errors.ErrInvalidInput,
			"unable to use '%s' as a template because it is an absolute path", pattern).
			WithDetail("pattern", pattern)
	}
	if t.finder == nil {
		return errors.New(errors.ErrInternal, "no template finder configured")
	}

	groups, err := t.finder.Find(pattern)
	if err != nil {
		return err
	}

	var lines []string
	for _, g := range groups {
		for _, path := range g.Files() {
			fileLines, err := filesystem.ReadLines(t.fs, path)
			if err != nil {
				return err
			}
			lines = append(lines, fileLines...)
		}
	}
	t.lines = lines
	t.logger.Trace().Str("pattern", pattern).Int("groups", len(groups)).Msg("Template loaded")
	return nil
}

// Append adds a line to the buffer.
func (t *Transformer) Append(line string) {
	t.lines = append(t.lines, line)
}

// Lines returns a copy of the untransformed buffer.
func (t *Transformer) Lines() []string {
	out := make([]string, len(t.lines))
	copy(out, t.lines)
	return out
}

// String joins the untransformed buffer with '\n'.
func (t *Transformer) String() string {
	return strings.Join(t.lines, "\n")
}

// TransformFile transforms an arbitrary file outside the search directories.
func (t *Transformer) TransformFile(path string) (string, error) {
	return t.lt.File(path)
}

// TransformLine transforms a single line with this Transformer's values and
// rules.
func (t *Transformer) TransformLine(line string) (string, error) {
	return t.lt.Line(line)
}

// Output transforms the buffer and returns the text. When an output file is
// set the text is also written there: the file is registered with the
// tracker first, written in full, added to the watch list and finally
// checked for changes. On a write failure the registration is discarded.
func (t *Transformer) Output() (string, error) {
	out := make([]string, 0, len(t.lines))
	for _, line := range t.lines {
		l, err := t.lt.Line(line)
		if err != nil {
			return "", err
		}
		out = append(out, l)
	}
	text := strings.Join(out, "\n")

	if t.outfile == "" {
		return text, nil
	}

	t.logger.Info().Str("path", t.outfile).Msg("Writing file")
	if t.tracker != nil {
		if err := t.tracker.Register(t.outfile); err != nil {
			return "", err
		}
	}

	if err := t.write(out); err != nil {
		if t.tracker != nil {
			t.tracker.Discard(t.outfile)
		}
		return "", err
	}

	if t.watch && t.watches != nil {
		if err := t.watches.Watch(t.outfile); err != nil {
			return "", err
		}
	}
	if t.tracker != nil {
		changed, err := t.tracker.Check(t.outfile)
		if err != nil {
			return "", err
		}
		t.changed = changed
	}
	return text, nil
}

func (t *Transformer) write(lines []string) (err error) {
	path := t.outfile
	if err := t.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to create directory for %s", path).
			WithDetail("path", path)
	}

	f, err := t.fs.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to open %s", path).
			WithDetail("path", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, errors.ErrIO, "failed to close %s", path).
				WithDetail("path", path)
		}
	}()

	if t.hasMode {
		if err := t.fs.Chmod(path, t.mode); err != nil {
			return errors.Wrapf(err, errors.ErrIO, "failed to set mode on %s", path).
				WithDetail("path", path)
		}
		if limited := filesystem.LimitMode(t.mode, t.umask); limited != t.mode {
			if err := t.fs.Chmod(path, limited); err != nil {
				return errors.Wrapf(err, errors.ErrIO, "failed to limit mode on %s", path).
					WithDetail("path", path)
			}
		}
	}

	w := bufio.NewWriter(f)
	if t.timestamp {
		if _, err := w.WriteString(HeaderPrefix + t.now().Format(time.RFC3339) + "\n"); err != nil {
			return errors.Wrapf(err, errors.ErrIO, "failed to write %s", path).
				WithDetail("path", path)
		}
	}
	for _, line := range lines {
		// included templates already end in a newline
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}
		if _, err := w.WriteString(line); err != nil {
			return errors.Wrapf(err, errors.ErrIO, "failed to write %s", path).
				WithDetail("path", path)
		}
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to write %s", path).
			WithDetail("path", path)
	}
	return nil
}
