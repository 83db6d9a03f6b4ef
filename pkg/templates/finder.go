// Package templates locates template files and their addon fragments across
// an ordered list of search directories.
//
// Directory order is override order: the first directory that yields a file
// with a given base name owns that name, and later directories cannot replace
// it. Addons are the exception and accumulate from every directory.
package templates

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/arthur-debert/deploytpl/pkg/config"
	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/filesystem"
	"github.com/arthur-debert/deploytpl/pkg/logging"
)

// SamplesInfix is stripped from patterns to form the simplified variant, so a
// custom search directory can hold replicator.properties.tpl directly instead
// of mirroring samples/conf/replicator.properties.tpl.
const SamplesInfix = "/samples/conf"

// AddonMarker appears in the base name of every addon fragment.
const AddonMarker = ".addon"

// Group is one selected template and the addons that extend it.
type Group struct {
	Name   string
	Base   string
	Addons []string
}

// Files returns the base template followed by its addons.
func (g Group) Files() []string {
	out := make([]string, 0, 1+len(g.Addons))
	out = append(out, g.Base)
	return append(out, g.Addons...)
}

// Finder resolves template patterns on FS.
type Finder struct {
	FS   afero.Fs
	Dirs []string
}

// NewFinder returns a Finder over dirs.
func NewFinder(fs afero.Fs, dirs []string) *Finder {
	return &Finder{FS: fs, Dirs: dirs}
}

// SearchDirectories returns the template directories for st: the existing
// entries of the template search path, then the shared templates directory
// under the home directory, then the prepare directory.
func SearchDirectories(fs afero.Fs, st *config.Settings) []string {
	var dirs []string
	for _, dir := range st.TemplateSearchPath {
		dir = strings.TrimSpace(dir)
		if dir != "" && filesystem.IsDir(fs, dir) {
			dirs = append(dirs, dir)
		}
	}
	dirs = append(dirs, filepath.Join(st.HomeDirectory, "share", "templates"))
	return append(dirs, st.PrepareDirectory)
}

// Simplify strips the samples infix from pattern.
func Simplify(pattern string) string {
	return strings.ReplaceAll(pattern, SamplesInfix, "")
}

// variants returns the simplified pattern first when it differs.
func variants(pattern string) []string {
	simple := Simplify(pattern)
	if simple == pattern {
		return []string{pattern}
	}
	return []string{simple, pattern}
}

// Find returns one group per distinct base name matched by any pattern,
// sorted by base name. It fails with TEMPLATE_NOT_FOUND when nothing matches.
func (f *Finder) Find(patterns ...string) ([]Group, error) {
	logger := logging.GetLogger("templates.finder")
	found := make(map[string]Group)

	for _, dir := range f.Dirs {
		for _, pattern := range patterns {
			for _, p := range variants(pattern) {
				matches, err := afero.Glob(f.FS, joinPattern(dir, p))
				if err != nil {
					return nil, errors.Wrapf(err, errors.ErrInvalidInput, "invalid template pattern %q", p).
						WithDetail("pattern", p)
				}
				for _, file := range matches {
					name := filepath.Base(file)
					if strings.Contains(name, AddonMarker) {
						continue
					}
					if _, seen := found[name]; seen {
						continue
					}
					if filesystem.IsDir(f.FS, file) {
						continue
					}
					rel := strings.TrimPrefix(strings.TrimPrefix(file, dir), "/")
					found[name] = Group{
						Name:   name,
						Base:   file,
						Addons: f.Addons(rel),
					}
					logger.Trace().Str("template", file).Str("dir", dir).Msg("Selected template")
				}
			}
		}
	}

	if len(found) == 0 {
		return nil, errors.TemplateNotFound(patterns...)
	}

	names := make([]string, 0, len(found))
	for name := range found {
		names = append(names, name)
	}
	sort.Strings(names)

	groups := make([]Group, 0, len(names))
	for _, name := range names {
		groups = append(groups, found[name])
	}
	return groups, nil
}

// Addons returns the addon fragments for the template at rel (relative to a
// search directory), collected from every directory in order.
func (f *Finder) Addons(rel string) []string {
	var addons []string
	seen := make(map[string]bool)
	for _, dir := range f.Dirs {
		for _, p := range variants(rel) {
			matches, err := afero.Glob(f.FS, joinPattern(dir, p)+AddonMarker+"*")
			if err != nil {
				continue
			}
			for _, m := range matches {
				if !seen[m] {
					seen[m] = true
					addons = append(addons, m)
				}
			}
		}
	}
	return addons
}

func joinPattern(dir, pattern string) string {
	return strings.TrimSuffix(dir, "/") + "/" + strings.TrimPrefix(pattern, "/")
}
