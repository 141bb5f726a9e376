// Package watcher re-triggers analysis when an input archive or class
// directory changes on disk.
package watcher

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch of changes is reported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors one analysis target. A directory target is watched
// recursively for class files and nested archives; a file target is watched
// through its parent directory.
type Watcher struct {
	watcher    *fsnotify.Watcher
	target     string          // absolute path of the analyzed input
	isDir      bool            // target is a class tree
	extensions map[string]bool // extensions reported for directory targets
	debounce   time.Duration

	callback func(changed []string)
	cancel   context.CancelFunc

	pending   map[string]bool
	pendingMu sync.Mutex

	timer   *time.Timer
	timerMu sync.Mutex

	stopOnce sync.Once
	doneCh   chan struct{}
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New creates a watcher for target, which may be a class directory, a jar,
// or a jmod.
func New(target string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", target, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", target, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		watcher:    fsw,
		target:     abs,
		isDir:      info.IsDir(),
		extensions: map[string]bool{".class": true, ".jar": true, ".jmod": true},
		debounce:   DefaultDebounce,
		pending:    make(map[string]bool),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	if w.isDir {
		err = w.addRecursive(abs)
	} else {
		err = fsw.Add(filepath.Dir(abs))
	}
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", target, err)
	}

	return w, nil
}

// Target returns the absolute path being watched.
func (w *Watcher) Target() string {
	return w.target
}

// Start begins delivering debounced change batches to callback. The
// callback runs on the watcher goroutine, so events arriving while it runs
// are folded into the next batch.
func (w *Watcher) Start(ctx context.Context, callback func(changed []string)) error {
	if callback == nil {
		return fmt.Errorf("watcher callback is required")
	}
	w.callback = callback

	var watchCtx context.Context
	watchCtx, w.cancel = context.WithCancel(ctx)
	go w.loop(watchCtx)
	return nil
}

// Stop ends the watch loop and releases the underlying watcher. It is safe
// to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.doneCh
		} else {
			close(w.doneCh)
		}
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if w.isDir && event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						log.Printf("Warning: failed to watch new directory %s: %v\n", event.Name, err)
					}
					// Packages created in one step may already hold classes.
					w.markTree(event.Name)
					w.resetTimer(fire)
					continue
				}
			}

			if !w.relevant(event) {
				continue
			}

			w.pendingMu.Lock()
			w.pending[event.Name] = true
			w.pendingMu.Unlock()
			w.resetTimer(fire)

		case <-fire:
			w.flush()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: watcher error: %v\n", err)
		}
	}
}

func (w *Watcher) flush() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	changed := make([]string, 0, len(w.pending))
	for name := range w.pending {
		changed = append(changed, name)
	}
	w.pending = make(map[string]bool)
	w.pendingMu.Unlock()

	sort.Strings(changed)
	w.callback(changed)
}

// relevant reports whether an event touches the analysis input.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if !w.isDir {
		return filepath.Clean(event.Name) == w.target
	}
	return w.extensions[filepath.Ext(event.Name)]
}

func (w *Watcher) resetTimer(fire chan struct{}) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) markTree(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if w.extensions[filepath.Ext(path)] {
			w.pendingMu.Lock()
			w.pending[path] = true
			w.pendingMu.Unlock()
		}
		return nil
	})
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Printf("Warning: error accessing %s: %v\n", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v\n", path, err)
		}
		return nil
	})
}
