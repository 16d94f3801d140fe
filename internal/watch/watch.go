// Package watch annotates image files as they appear in a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultPattern matches the image formats OpenCV reads, in any subdirectory.
const DefaultPattern = "**/*.{jpg,jpeg,png,bmp,tif,tiff,webp}"

// DefaultDebounce is how long a file must stay quiet before it is handled.
const DefaultDebounce = 200 * time.Millisecond

// ErrInvalidPattern is returned for a malformed glob pattern.
var ErrInvalidPattern = errors.New("invalid watch pattern")

// Handler processes one settled file.
type Handler func(ctx context.Context, path string) error

// Config controls what is watched.
type Config struct {
	Dir string
	// Pattern is a doublestar glob matched against paths relative to Dir.
	Pattern  string
	Debounce time.Duration
}

// Watcher waits for matching files to be created or written and passes
// each one to a Handler once writes to it have settled.
type Watcher struct {
	config  Config
	handler Handler

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

// New validates config and returns a Watcher calling handler.
func New(config Config, handler Handler) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watch: nil handler")
	}
	if config.Pattern == "" {
		config.Pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(config.Pattern) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPattern, config.Pattern)
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}

	info, err := os.Stat(config.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("watch directory %s: not a directory", config.Dir)
	}

	return &Watcher{
		config:  config,
		handler: handler,
		pending: make(map[string]*time.Timer),
	}, nil
}

// Matches reports whether file, inside the watched directory, matches the
// pattern. Extensions match regardless of case.
func (w *Watcher) Matches(file string) bool {
	rel, err := filepath.Rel(w.config.Dir, file)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if w.match(rel) {
		return true
	}

	// Cameras often write upper-case extensions such as IMG_0001.JPG.
	ext := path.Ext(rel)
	lower := strings.TrimSuffix(rel, ext) + strings.ToLower(ext)
	return lower != rel && w.match(lower)
}

func (w *Watcher) match(rel string) bool {
	ok, err := doublestar.Match(w.config.Pattern, rel)
	return err == nil && ok
}

// Run watches until ctx is done. Handlers still waiting on their debounce
// are dropped; running handlers are waited for.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, w.config.Dir); err != nil {
		return err
	}
	slog.Info("watching for images", "dir", w.config.Dir, "pattern", w.config.Pattern)

	defer w.drain()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			w.handleEvent(ctx, watcher, event)

		case wErr, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			slog.Error("fsnotify error", "err", wErr)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, event fsnotify.Event) {
	slog.Debug("event received", "name", event.Name, "op", event.Op.String())

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := addRecursive(watcher, event.Name); err != nil {
				slog.Warn("failed to watch new directory", "dir", event.Name, "err", err)
			}
		}
		return
	}

	if !w.Matches(event.Name) {
		return
	}
	w.schedule(ctx, event.Name)
}

// schedule runs the handler for path once it has been quiet for the debounce period.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.config.Debounce)
		return
	}

	var t *time.Timer
	w.wg.Add(1)
	t = time.AfterFunc(w.config.Debounce, func() {
		defer w.wg.Done()

		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			return
		}
		if err := w.handler(ctx, path); err != nil {
			slog.Warn("failed to handle file", "path", path, "err", err)
		}
	})
	w.pending[path] = t
}

// drain cancels pending timers and waits for running handlers.
func (w *Watcher) drain() {
	w.mu.Lock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
}

func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
