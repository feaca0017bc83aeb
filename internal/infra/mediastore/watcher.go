package mediastore

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	zlog "github.com/rs/zerolog/log"
)

// DefaultSettleDelay is how long a new file is left alone before it is
// reported, so that copies in progress have time to finish.
const DefaultSettleDelay = 500 * time.Millisecond

// Watcher reports video files created under the store roots.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	settle   time.Duration
	onCreate func(path string)

	mu      sync.Mutex
	pending map[string]*time.Timer
	closed  bool
	done    chan struct{}
}

// Watch starts watching every existing root recursively. onCreate is called
// from a background goroutine once per new video file. The watcher stops
// when ctx is canceled or Close is called.
func (s *Store) Watch(ctx context.Context, settle time.Duration, onCreate func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	if settle <= 0 {
		settle = DefaultSettleDelay
	}

	w := &Watcher{
		store:    s,
		watcher:  fw,
		settle:   settle,
		onCreate: onCreate,
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}

	watched := 0
	for _, root := range s.Roots() {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		if err := w.addDirectory(root); err != nil {
			_ = fw.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", root)
		}
		watched++
	}

	go w.run(ctx)

	zlog.Info().Msgf("mediastore: watching %d roots", watched)
	return w, nil
}

// Close stops the watcher. Files still settling are not reported.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for name, t := range w.pending {
		t.Stop()
		delete(w.pending, name)
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			go func() { _ = w.Close() }()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			zlog.Error().Msgf("mediastore: file watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	if isHidden(name) || strings.HasSuffix(name, ".tmp") {
		return
	}

	switch {
	case event.Has(fsnotify.Create) && w.store.IsVideoFile(event.Name):
		w.schedule(event.Name)

	case event.Has(fsnotify.Write) && w.store.IsVideoFile(event.Name):
		w.reschedule(event.Name)

	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addDirectory(event.Name); err != nil {
				zlog.Warn().Msgf("mediastore: failed to watch new directory %s: %v", event.Name, err)
				return
			}
			zlog.Info().Msgf("mediastore: watching new directory %s", event.Name)
		}
	}
}

// schedule reports path after the settle delay.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() { w.fire(path) })
}

// reschedule pushes back a pending report while the file is still written.
func (w *Watcher) reschedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok && !w.closed {
		t.Reset(w.settle)
	}
}

func (w *Watcher) fire(path string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	delete(w.pending, path)
	w.mu.Unlock()

	if _, err := os.Stat(path); err != nil {
		return
	}
	zlog.Info().Msgf("mediastore: new video file detected: %s", path)
	w.onCreate(path)
}
