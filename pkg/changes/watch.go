package changes

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/internal/hashutil"
)

// WatchEntry is one line of the watch list.
type WatchEntry struct {
	// Path as recorded, relative to the prepare directory when inside it.
	Path        string
	Fingerprint string
}

// WatchList records generated files so later runs can tell whether they were
// edited by hand.
type WatchList struct {
	fs         afero.Fs
	prepareDir string

	mu   sync.Mutex
	seen map[string]bool
}

// NewWatchList returns a WatchList writing to prepareDir.
func NewWatchList(fs afero.Fs, prepareDir string) *WatchList {
	return &WatchList{
		fs:         fs,
		prepareDir: prepareDir,
		seen:       make(map[string]bool),
	}
}

// Path returns the location of the watch list.
func (w *WatchList) Path() string {
	return filepath.Join(w.prepareDir, WatchFilesName)
}

// Watch appends path and its current fingerprint to the watch list. A path is
// recorded once per WatchList.
func (w *WatchList) Watch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.seen[path] {
		return nil
	}
	fp, err := hashutil.Fingerprint(w.fs, path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to fingerprint %s", path).
			WithDetail("path", path)
	}
	if err := appendLine(w.fs, w.Path(), relativeTo(w.prepareDir, path)+" "+fp); err != nil {
		return err
	}
	w.seen[path] = true
	return nil
}

// Reset removes the watch list and forgets which paths were recorded.
func (w *WatchList) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.fs.Remove(w.Path()); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrIO, "failed to remove %s", w.Path()).
			WithDetail("path", w.Path())
	}
	w.seen = make(map[string]bool)
	return nil
}

// Entries reads the watch list. When a path appears more than once the last
// entry wins; the order of first appearance is kept.
func (w *WatchList) Entries() ([]WatchEntry, error) {
	lines, err := readLines(w.fs, w.Path())
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var entries []WatchEntry
	for _, line := range lines {
		sep := strings.LastIndex(line, " ")
		if sep <= 0 {
			continue
		}
		e := WatchEntry{Path: line[:sep], Fingerprint: line[sep+1:]}
		if i, ok := index[e.Path]; ok {
			entries[i] = e
			continue
		}
		index[e.Path] = len(entries)
		entries = append(entries, e)
	}
	return entries, nil
}

// Resolve returns the absolute location of a recorded path.
func (w *WatchList) Resolve(recorded string) string {
	if filepath.IsAbs(recorded) {
		return recorded
	}
	return filepath.Join(w.prepareDir, recorded)
}

// Modified returns the recorded paths whose current fingerprint no longer
// matches the one captured at generation time. Deleted files count as
// modified.
func (w *WatchList) Modified() ([]string, error) {
	entries, err := w.Entries()
	if err != nil {
		return nil, err
	}

	var modified []string
	for _, e := range entries {
		fp, err := hashutil.Fingerprint(w.fs, w.Resolve(e.Path))
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrIO, "failed to fingerprint %s", e.Path).
				WithDetail("path", e.Path)
		}
		if fp != e.Fingerprint {
			modified = append(modified, e.Path)
		}
	}
	return modified, nil
}
