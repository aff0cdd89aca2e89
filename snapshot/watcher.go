package snapshot

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/hamcall/errors"
	"github.com/teranos/hamcall/logger"
)

// Watcher reloads a Store when its dataset file changes on disk.
//
// The parent directory is watched rather than the file itself so that
// downloads which rename a new file into place are seen.
type Watcher struct {
	store          *Store
	path           string
	watcher        *fsnotify.Watcher
	logger         *zap.SugaredLogger
	mu             sync.Mutex
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	stopped        bool
	inflight       sync.WaitGroup
	done           chan struct{}
	started        bool
}

// NewWatcher watches path for store.
func NewWatcher(store *Store, path string, log *zap.SugaredLogger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", path)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch %s", filepath.Dir(abs))
	}

	return &Watcher{
		store:          store,
		path:           abs,
		watcher:        fw,
		logger:         log,
		debouncePeriod: time.Second,
		done:           make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.watchLoop()
}

func (w *Watcher) watchLoop() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debugw("Dataset file changed",
				logger.FieldPath, event.Name,
				logger.FieldOperation, event.Op.String())
			w.scheduleReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Dataset watcher error", logger.FieldError, err)
		}
	}
}

// scheduleReload collapses a burst of events into one reload.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, func() {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.inflight.Add(1)
		w.mu.Unlock()
		defer w.inflight.Done()

		if _, err := w.store.LoadFile(w.path); err != nil {
			w.logger.Errorw("Dataset reload failed",
				logger.FieldPath, w.path,
				logger.FieldError, err)
		}
	})
}

// Stop ends watching. A pending reload is cancelled and a running one is
// waited for.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	w.stopped = true
	started := w.started
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()
	err := w.watcher.Close()
	if started {
		<-w.done
	}
	w.inflight.Wait()
	return err
}
