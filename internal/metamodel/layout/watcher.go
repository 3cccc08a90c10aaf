package layout

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to settle
const DefaultDebounce = 100 * time.Millisecond

// Watcher monitors a layout directory and reports changed layout files in batches
type Watcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	dir       string
	onChange  func([]string) error
	logger    *zap.Logger
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewWatcher creates a watcher for dir; onChange receives the layout files changed in one burst
func NewWatcher(dir string, debounce time.Duration, logger *zap.Logger, onChange func([]string) error) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create layout watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		watcher:   fsw,
		debouncer: NewDebouncer(debounce),
		dir:       dir,
		onChange:  onChange,
		logger:    logger.Named("layout"),
		stopChan:  make(chan struct{}),
	}
	w.debouncer.SetCallback(func(files []string) {
		if err := w.onChange(files); err != nil {
			w.logger.Error("failed to refresh layouts", zap.Strings("files", files), zap.Error(err))
		}
	})
	return w, nil
}

// Start begins watching in the background
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch layout directory %s: %w", w.dir, err)
	}
	w.logger.Info("watching layouts", zap.String("dir", w.dir))

	w.wg.Add(1)
	go w.watch()
	return nil
}

// Stop stops the watcher; pending changes are dropped
func (w *Watcher) Stop() error {
	select {
	case <-w.stopChan:
		return nil
	default:
		close(w.stopChan)
	}

	w.wg.Wait()
	w.debouncer.Stop()
	return w.watcher.Close()
}

func (w *Watcher) watch() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if _, isLayout := TypeNameOf(event.Name); !isLayout {
				continue
			}
			// a removed layout clears the facets it contributed
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.logger.Debug("layout changed", zap.String("file", event.Name), zap.Stringer("op", event.Op))
				w.debouncer.Add(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("layout watcher error", zap.Error(err))

		case <-w.stopChan:
			return
		}
	}
}

// Debouncer collects file changes and triggers its callback once they stop arriving
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	callback func([]string)
	stopped  bool
}

// NewDebouncer creates a debouncer waiting duration after the last change
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		files:    make(map[string]struct{}),
	}
}

// Add records a changed file and restarts the timer
func (d *Debouncer) Add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.stopped {
		return
	}
	d.files[file] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

// flush hands the accumulated files, sorted, to the callback outside the lock
func (d *Debouncer) flush() {
	d.mutex.Lock()
	if len(d.files) == 0 || d.stopped {
		d.mutex.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	d.files = make(map[string]struct{})
	callback := d.callback
	d.mutex.Unlock()

	sort.Strings(files)
	if callback != nil {
		callback(files)
	}
}

// SetCallback sets the function receiving each batch
func (d *Debouncer) SetCallback(callback func([]string)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

// Stop cancels any pending batch
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
}
