package changes

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/arthur-debert/deploytpl/pkg/errors"
	"github.com/arthur-debert/deploytpl/pkg/logging"
)

// Op is the kind of edit observed on a watched file.
type Op string

const (
	OpWrite  Op = "write"
	OpCreate Op = "create"
	OpRemove Op = "remove"
)

// Event reports an edit to a watched file.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// Monitor streams edits made to watched files while it runs. Parent
// directories are watched rather than the files themselves so editors that
// replace files on save are still seen.
type Monitor struct {
	mu       sync.Mutex
	files    map[string]bool
	debounce time.Duration
	pending  map[string]*time.Timer
}

// NewMonitor returns a Monitor for the absolute paths in files. A zero
// debounce uses 200ms.
func NewMonitor(files []string, debounce time.Duration) *Monitor {
	if debounce == 0 {
		debounce = 200 * time.Millisecond
	}
	m := &Monitor{
		files:    make(map[string]bool, len(files)),
		debounce: debounce,
		pending:  make(map[string]*time.Timer),
	}
	for _, f := range files {
		m.files[filepath.Clean(f)] = true
	}
	return m
}

// Run watches until ctx is cancelled, sending events to out. Events for the
// same file within the debounce interval are merged into the last one. Run
// does not close out.
func (m *Monitor) Run(ctx context.Context, out chan<- Event) error {
	logger := logging.GetLogger("changes.monitor")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, errors.ErrIO, "failed to create file watcher")
	}
	defer func() { _ = watcher.Close() }()

	dirs := make(map[string]bool)
	for f := range m.files {
		dirs[filepath.Dir(f)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			logger.Warn().Err(err).Str("dir", dir).Msg("Failed to watch directory")
			continue
		}
		logger.Debug().Str("dir", dir).Msg("Watching directory")
	}

	defer m.stopPending()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			m.handle(ctx, event, out)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error().Err(err).Msg("File watcher error")
		}
	}
}

func (m *Monitor) handle(ctx context.Context, event fsnotify.Event, out chan<- Event) {
	path := filepath.Clean(event.Name)
	if !m.files[path] {
		return
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = OpRemove
	default:
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if timer, ok := m.pending[path]; ok {
		timer.Stop()
	}
	m.pending[path] = time.AfterFunc(m.debounce, func() {
		m.mu.Lock()
		delete(m.pending, path)
		m.mu.Unlock()

		select {
		case out <- Event{Path: path, Op: op, Time: time.Now()}:
		case <-ctx.Done():
		}
	})
}

func (m *Monitor) stopPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for path, timer := range m.pending {
		timer.Stop()
		delete(m.pending, path)
	}
}
