// Package dropwatch turns a directory into a drop zone: files that appear in
// it are handed over for upload.
package dropwatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-go-golems/kbassist/pkg/api"
	"github.com/go-go-golems/kbassist/pkg/schedule"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// DefaultSettle is how long a new file must stay unwritten before it is
// delivered.
const DefaultSettle = 500 * time.Millisecond

type Watcher struct {
	watcher    *fsnotify.Watcher
	dir        string
	settle     time.Duration
	scheduler  schedule.Scheduler
	extensions []string

	mu      sync.Mutex
	pending map[string]schedule.Task
	done    chan struct{}
}

type Option func(*Watcher)

func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		w.settle = d
	}
}

func WithScheduler(s schedule.Scheduler) Option {
	return func(w *Watcher) {
		w.scheduler = s
	}
}

// WithExtensions restricts delivery to the given extensions (".pdf", ...).
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		w.extensions = exts
	}
}

func New(dir string, options ...Option) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", dir)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}
	w := &Watcher{
		watcher:   fw,
		dir:       dir,
		settle:    DefaultSettle,
		scheduler: schedule.Real{},
		pending:   map[string]schedule.Task{},
	}
	for _, o := range options {
		o(w)
	}
	return w, nil
}

// Watch delivers every regular file created in (or moved into) the
// directory, once it stopped changing. The channel closes when ctx is done
// or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan api.File, error) {
	if err := w.watcher.Add(w.dir); err != nil {
		return nil, errors.Wrapf(err, "watch %s", w.dir)
	}

	ready := make(chan string, 16)
	out := make(chan api.File)
	w.done = make(chan struct{})

	go func() {
		defer close(out)
		defer close(w.done)
		defer w.cancelAll()
		logger := log.With().Str("component", "dropwatch").Str("dir", w.dir).Logger()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.wanted(event.Name) {
					continue
				}
				switch {
				case event.Has(fsnotify.Create):
					w.arm(event.Name, ready, true)
				case event.Has(fsnotify.Write):
					w.arm(event.Name, ready, false)
				case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
					w.disarm(event.Name)
				}

			case path := <-ready:
				f, err := api.LocalFile(path)
				if err != nil {
					logger.Warn().Err(err).Str("path", path).Msg("skipping dropped file")
					continue
				}
				logger.Info().Str("file", f.Name).Int64("size", f.Size).Msg("file dropped")
				select {
				case out <- f:
				case <-ctx.Done():
					return
				}

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				logger.Error().Err(err).Msg("watch error")
			}
		}
	}()

	return out, nil
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// arm (re)starts the settle timer for path. Writes only extend the timer of
// a file that was created while watching.
func (w *Watcher) arm(path string, ready chan<- string, created bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	task, ok := w.pending[path]
	if !ok && !created {
		return
	}
	if ok {
		task.Cancel()
	}
	w.pending[path] = w.scheduler.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return
		}
		select {
		case ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) disarm(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if task, ok := w.pending[path]; ok {
		task.Cancel()
		delete(w.pending, path)
	}
}

func (w *Watcher) cancelAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, task := range w.pending {
		task.Cancel()
		delete(w.pending, path)
	}
}

func (w *Watcher) wanted(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range w.extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
