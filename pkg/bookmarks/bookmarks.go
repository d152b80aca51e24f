// Package bookmarks is the bookmarks source. Bookmarks are read from a TOML
// file and can follow it while it is edited.
package bookmarks

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bastiangx/omniserve/internal/logger"
	"github.com/bastiangx/omniserve/internal/utils"
	"github.com/bastiangx/omniserve/pkg/resolver"
	"github.com/bastiangx/omniserve/pkg/suggest"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last write before reloading.
const DefaultDebounce = 200 * time.Millisecond

// Bookmark is one entry of the bookmarks file.
type Bookmark struct {
	URL   string `toml:"url"`
	Title string `toml:"title"`
}

type file struct {
	Bookmark []Bookmark `toml:"bookmark"`
}

// Store holds the current bookmark list.
type Store struct {
	path  string
	mu    sync.RWMutex
	items []suggest.Item
	log   *log.Logger
}

// New creates a store that is not backed by a file.
func New(bookmarks ...Bookmark) *Store {
	s := &Store{log: logger.New("bookmarks")}
	s.set(bookmarks)
	return s
}

// Load reads bookmarks from path. A missing file yields an empty store that
// picks the file up on Reload.
func Load(path string) (*Store, error) {
	s := New()
	s.path = path
	if !utils.FileExists(path) {
		s.log.Warnf("Bookmarks file %s not found, starting empty", path)
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing file. On a parse error the previous list is kept.
func (s *Store) Reload() error {
	if s.path == "" {
		return nil
	}
	var f file
	if err := utils.LoadTOMLFile(s.path, &f); err != nil {
		return fmt.Errorf("load bookmarks %s: %w", s.path, err)
	}
	s.set(f.Bookmark)
	s.log.Debugf("Loaded %d bookmarks from %s", len(f.Bookmark), s.path)
	return nil
}

func (s *Store) set(bookmarks []Bookmark) {
	items := make([]suggest.Item, 0, len(bookmarks))
	for _, b := range bookmarks {
		if b.URL == "" {
			continue
		}
		items = append(items, suggest.Bookmark{URL: b.URL, Title: b.Title})
	}
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
}

// List returns the current bookmarks. The slice is never modified after it
// is handed out; a reload swaps in a new one.
func (s *Store) List() []suggest.Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

// Fetch starts reading the bookmark list in the background.
func (s *Store) Fetch() *resolver.Pending[[]suggest.Item] {
	return resolver.Start(func() ([]suggest.Item, error) {
		return s.List(), nil
	})
}

// Watch reloads the store whenever its file is written, debounced by
// delay. It returns once the watcher is running; the watcher stops when
// ctx is done.
func (s *Store) Watch(ctx context.Context, delay time.Duration) error {
	if s.path == "" {
		return fmt.Errorf("bookmarks store has no file to watch")
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: editors often replace the file instead of writing it.
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(s.path), err)
	}

	target := filepath.Clean(s.path)
	go func() {
		defer w.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(delay, func() {
					if err := s.Reload(); err != nil {
						s.log.Warn("reload failed, keeping previous bookmarks", "err", err)
					}
				})
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				s.log.Warn("watcher error", "err", err)
			}
		}
	}()
	s.log.Debugf("Watching %s", s.path)
	return nil
}
