package archive

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/maruel/natural"

	"mekuri/internal/log"
)

// Siblings lists the archives and PDFs in the directory of path, in
// natural order, and returns the index of path in that list (-1 when it
// is not viewable). Hidden files are skipped.
func Siblings(path string) ([]string, int, error) {
	dir := filepath.Dir(path)
	list, err := listViewable(dir)
	if err != nil {
		return nil, -1, err
	}
	return list, indexOf(list, path), nil
}

func listViewable(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if DetectKind(name) == KindUnknown {
			continue
		}
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool { return natural.Less(names[i], names[j]) })

	list := make([]string, len(names))
	for i, n := range names {
		list[i] = filepath.Join(dir, n)
	}
	return list, nil
}

func indexOf(list []string, path string) int {
	want := filepath.Clean(path)
	for i, p := range list {
		if p == want {
			return i
		}
	}
	return -1
}

// Neighbor returns the entry delta steps away from index, without
// wrapping around.
func Neighbor(list []string, index, delta int) (string, bool) {
	if index < 0 || len(list) <= 1 {
		return "", false
	}
	i := index + delta
	if i < 0 || i >= len(list) {
		return "", false
	}
	return list[i], true
}

// SiblingWatcher caches directory listings and drops a listing when the
// directory changes on disk.
type SiblingWatcher struct {
	fsWatcher *fsnotify.Watcher
	logger    *slog.Logger

	mu      sync.Mutex
	cache   map[string][]string
	watched map[string]bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewSiblingWatcher starts the fsnotify event loop
func NewSiblingWatcher(logger *slog.Logger) (*SiblingWatcher, error) {
	if logger == nil {
		logger = log.WithComponent("siblings")
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &SiblingWatcher{
		fsWatcher: fsWatcher,
		logger:    logger,
		cache:     make(map[string][]string),
		watched:   make(map[string]bool),
		done:      make(chan struct{}),
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *SiblingWatcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
				w.invalidate(filepath.Dir(event.Name))
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fsnotify watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *SiblingWatcher) invalidate(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.cache[dir]; ok {
		delete(w.cache, dir)
		w.logger.Debug("Sibling list invalidated", "dir", dir)
	}
}

// Siblings is the cached form of the package-level Siblings
func (w *SiblingWatcher) Siblings(path string) ([]string, int, error) {
	dir := filepath.Dir(path)

	w.mu.Lock()
	list, ok := w.cache[dir]
	w.mu.Unlock()
	if ok {
		return list, indexOf(list, path), nil
	}

	w.watch(dir)

	list, err := listViewable(dir)
	if err != nil {
		return nil, -1, err
	}
	w.mu.Lock()
	w.cache[dir] = list
	w.mu.Unlock()
	return list, indexOf(list, path), nil
}

func (w *SiblingWatcher) watch(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watched[dir] {
		return
	}
	if err := w.fsWatcher.Add(dir); err != nil {
		// Listing still works, it just is not cached across changes
		w.logger.Warn("Failed to watch directory", "dir", dir, "error", err)
		return
	}
	w.watched[dir] = true
}

// Next returns the file after path, if any
func (w *SiblingWatcher) Next(path string) (string, bool, error) {
	return w.neighbor(path, 1)
}

// Prev returns the file before path, if any
func (w *SiblingWatcher) Prev(path string) (string, bool, error) {
	return w.neighbor(path, -1)
}

func (w *SiblingWatcher) neighbor(path string, delta int) (string, bool, error) {
	list, idx, err := w.Siblings(path)
	if err != nil {
		return "", false, err
	}
	p, ok := Neighbor(list, idx, delta)
	return p, ok, nil
}

// Close stops the event loop
func (w *SiblingWatcher) Close() error {
	close(w.done)
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}
