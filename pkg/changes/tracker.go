package changes

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/internal/hashutil"
	"github.com/arthur-debert/deploytpl/pkg/logging"
)

// Bookkeeping file names inside the prepare directory.
const (
	ChangedFilesName = ".changedfiles"
	WatchFilesName   = ".watchfiles"
)

// Tracker records which generated files changed during a run.
type Tracker struct {
	fs         afero.Fs
	prepareDir string

	mu      sync.Mutex
	initial map[string]string
}

// NewTracker returns a Tracker writing to prepareDir.
func NewTracker(fs afero.Fs, prepareDir string) *Tracker {
	return &Tracker{
		fs:         fs,
		prepareDir: prepareDir,
		initial:    make(map[string]string),
	}
}

// Path returns the location of the changed files list.
func (t *Tracker) Path() string {
	return filepath.Join(t.prepareDir, ChangedFilesName)
}

// Register captures the fingerprint of path before it is overwritten.
func (t *Tracker) Register(path string) error {
	fp, err := hashutil.Fingerprint(t.fs, path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to fingerprint %s", path).
			WithDetail("path", path)
	}

	t.mu.Lock()
	t.initial[path] = fp
	t.mu.Unlock()
	return nil
}

// Discard forgets a registration after a failed write, so a retry starts
// from a clean slate and the file is never reported as regenerated.
func (t *Tracker) Discard(path string) {
	t.mu.Lock()
	delete(t.initial, path)
	t.mu.Unlock()
}

// Check compares the current fingerprint of path with the registered one and
// appends path to the changed files list when the file was never registered
// or its content differs. It reports whether the file was recorded.
func (t *Tracker) Check(path string) (bool, error) {
	logger := logging.GetLogger("changes.tracker")

	t.mu.Lock()
	initial, registered := t.initial[path]
	t.mu.Unlock()

	if registered {
		final, err := hashutil.Fingerprint(t.fs, path)
		if err != nil {
			return false, errors.Wrapf(err, errors.ErrIO, "failed to fingerprint %s", path).
				WithDetail("path", path)
		}
		if final == initial {
			return false, nil
		}
		logger.Debug().
			Str("path", path).
			Str("from", initial).
			Str("to", final).
			Msg("Fingerprint changed")
	}

	if err := appendLine(t.fs, t.Path(), t.relative(path)); err != nil {
		return false, err
	}
	return true, nil
}

// Changed returns the recorded paths in the order they were added.
func (t *Tracker) Changed() ([]string, error) {
	return readLines(t.fs, t.Path())
}

// Reset removes the changed and watched file lists. Called once at the start
// of a run before any file is generated.
func (t *Tracker) Reset() error {
	for _, name := range []string{ChangedFilesName, WatchFilesName} {
		path := filepath.Join(t.prepareDir, name)
		if err := t.fs.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, errors.ErrIO, "failed to remove %s", path).
				WithDetail("path", path)
		}
	}

	t.mu.Lock()
	t.initial = make(map[string]string)
	t.mu.Unlock()
	return nil
}

func (t *Tracker) relative(path string) string {
	return relativeTo(t.prepareDir, path)
}

// relativeTo strips dir from path when path is inside it.
func relativeTo(dir, path string) string {
	if dir == "" {
		return path
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return path
	}
	return rel
}

func appendLine(fs afero.Fs, path, line string) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to create directory for %s", path).
			WithDetail("path", path)
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, errors.ErrIO, "failed to open %s", path).
			WithDetail("path", path)
	}
	_, werr := fmt.Fprintln(f, line)
	cerr := f.Close()
	if werr != nil {
		return errors.Wrapf(werr, errors.ErrIO, "failed to append to %s", path).
			WithDetail("path", path)
	}
	if cerr != nil {
		return errors.Wrapf(cerr, errors.ErrIO, "failed to close %s", path).
			WithDetail("path", path)
	}
	return nil
}

// readLines returns the non-empty lines of path, or nothing when it does not
// exist.
func readLines(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.ErrIO, "failed to open %s", path).
			WithDetail("path", path)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "failed to read %s", path).
			WithDetail("path", path)
	}
	return lines, nil
}
