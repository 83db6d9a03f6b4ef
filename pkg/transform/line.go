package transform

import (
	"io"
	"regexp"
	"strings"

	"github.com/spf13/afero"
	"github.com/valyala/fasttemplate"

	"github.com/arthur-debert/deploytpl/pkg/config"
	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/filesystem"
	"github.com/arthur-debert/deploytpl/pkg/fixedprops"
	"github.com/arthur-debert/deploytpl/pkg/templates"
)

// Placeholder delimiters.
const (
	startTag = "@{"
	endTag   = "}"
)

// Placeholder functions.
const (
	markerComment    = "#("
	markerInclude    = "include("
	markerIncludeAll = "includeAll("
)

// MaxIncludeDepth bounds nested include( placeholders so a template that
// includes itself fails instead of recursing forever.
const MaxIncludeDepth = 16

var (
	// property lines, optionally commented: key = value
	replaceLine = regexp.MustCompile(`^#?([a-zA-Z0-9._-]+)\s*=\s*.*`)
	valueLine   = regexp.MustCompile(`^#?([a-zA-Z0-9._-]+)\s*=((?s:.*))`)

	// body of @{...}: [marker(]name[|default][)]
	placeholder = regexp.MustCompile(`^(#\(|include\(|includeAll\()?([A-Za-z_.][A-Za-z0-9_.]*)(\|([A-Za-z0-9._\-=?&]*))?\)?$`)
)

// LineTransformer evaluates template lines against Values and fixed property
// Rules. Finder and FS are only needed for include( placeholders.
type LineTransformer struct {
	Values Values
	Rules  *fixedprops.Rules
	Finder *templates.Finder
	FS     afero.Fs
}

// Line transforms a single line.
func (lt *LineTransformer) Line(line string) (string, error) {
	return lt.line(line, 0)
}

// File transforms every line of the file at path and joins them with '\n'.
func (lt *LineTransformer) File(path string) (string, error) {
	return lt.file(path, 0)
}

func (lt *LineTransformer) rules() *fixedprops.Rules {
	if lt.Rules == nil {
		return fixedprops.NewRules()
	}
	return lt.Rules
}

func (lt *LineTransformer) line(line string, depth int) (string, error) {
	rules := lt.rules()

	// A replacement rule owns the whole line, placeholders included
	if m := replaceLine.FindStringSubmatch(line); m != nil {
		if v, ok := rules.Replacement(m[1]); ok {
			return m[1] + "=" + v, nil
		}
	}

	out, err := fasttemplate.ExecuteFuncStringWithErr(line, startTag, endTag, func(w io.Writer, tag string) (int, error) {
		return lt.tag(w, tag, depth)
	})
	if err != nil {
		return "", err
	}

	if m := valueLine.FindStringSubmatch(out); m != nil {
		key, value := m[1], m[2]
		touched := false
		if add, ok := rules.Addition(key); ok {
			value += add
			touched = true
		}
		if match, ok := rules.Match(key); ok {
			value = match.Apply(value)
			touched = true
		}
		if touched {
			out = key + "=" + value
		}
	}

	return out, nil
}

// tag writes the expansion of one @{...} body.
func (lt *LineTransformer) tag(w io.Writer, tag string, depth int) (int, error) {
	written := 0

	// "@{a @{b}" reaches us as "a @{b"; only the innermost opener can start
	// a placeholder
	if i := strings.LastIndex(tag, startTag); i >= 0 {
		n, err := io.WriteString(w, startTag+tag[:i])
		written += n
		if err != nil {
			return written, err
		}
		tag = tag[i+len(startTag):]
	}

	m := placeholder.FindStringSubmatch(tag)
	if m == nil {
		n, err := io.WriteString(w, startTag+tag+endTag)
		return written + n, err
	}

	text, err := lt.expand(m[1], m[2], m[3] != "", m[4], depth)
	if err != nil {
		return written, err
	}
	n, err := io.WriteString(w, text)
	return written + n, err
}

func (lt *LineTransformer) expand(marker, name string, hasDefault bool, def string, depth int) (string, error) {
	var value config.Value
	if lt.Values != nil {
		value, _ = lt.Values.Resolve(strings.Split(name, "."))
	}

	switch marker {
	case markerInclude:
		return lt.include(value.List(), false, depth)
	case markerIncludeAll:
		return lt.include(value.List(), true, depth)
	}

	s := value.String()
	if s == "" && hasDefault {
		s = def
	}
	if marker == markerComment {
		if s == "" {
			return "#", nil
		}
		return "", nil
	}
	return s, nil
}

// include renders the files of the first matching group, or of every group
// when all is set. Each file is followed by an empty line.
func (lt *LineTransformer) include(patterns []string, all bool, depth int) (string, error) {
	if len(patterns) == 0 {
		return "", nil
	}
	if depth >= MaxIncludeDepth {
		return "", errors.Newf(errors.ErrInvalidInput, "include nesting deeper than %d levels for '%s'",
			MaxIncludeDepth, strings.Join(patterns, ",")).
			WithDetail("pattern", strings.Join(patterns, ","))
	}
	if lt.Finder == nil {
		return "", errors.New(errors.ErrInternal, "no template finder configured for include")
	}

	groups, err := lt.Finder.Find(patterns...)
	if err != nil {
		return "", err
	}
	if !all {
		groups = groups[:1]
	}

	var parts []string
	for _, g := range groups {
		for _, path := range g.Files() {
			text, err := lt.file(path, depth+1)
			if err != nil {
				return "", err
			}
			parts = append(parts, text, "")
		}
	}
	return strings.Join(parts, "\n"), nil
}

func (lt *LineTransformer) file(path string, depth int) (string, error) {
	fs := lt.FS
	if fs == nil && lt.Finder != nil {
		fs = lt.Finder.FS
	}
	if fs == nil {
		return "", errors.New(errors.ErrInternal, "no file system configured")
	}

	lines, err := filesystem.ReadLines(fs, path)
	if err != nil {
		return "", err
	}
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		t, err := lt.line(l, depth)
		if err != nil {
			return "", err
		}
		out = append(out, t)
	}
	return strings.Join(out, "\n"), nil
}
