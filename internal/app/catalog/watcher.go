package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sskkslay-netizen/Bst/internal/infra/observability"
)

// ─── Custom Catalog File ────────────────────────────────────────────────────
// A YAML file with the same layout as the built-in presets. Its entries are
// merged over the saved catalog at startup and again whenever it changes.

// LoadFile parses a custom catalog file.
func LoadFile(path string, now time.Time) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data, now)
}

// Watcher reloads a custom catalog file on change.
type Watcher struct {
	path     string
	fs       *fsnotify.Watcher
	log      *observability.Logger
	onChange func(*Catalog)
	done     chan struct{}
	once     sync.Once
}

// Watch starts watching path. The parent directory is watched so that
// editors which replace the file on save are still seen.
func Watch(ctx context.Context, path string, log *observability.Logger, onChange func(*Catalog)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &Watcher{
		path:     abs,
		fs:       fw,
		log:      log.Named("catalog.watcher"),
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.loop(ctx)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			c, err := LoadFile(w.path, time.Now())
			if err != nil {
				w.log.Warn("custom catalog reload failed", "path", w.path, "error", err)
				continue
			}
			w.log.Info("custom catalog reloaded", "path", w.path,
				"cards", len(c.Cards), "equipment", len(c.Equipment), "banners", len(c.Banners))
			w.onChange(c)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("catalog watcher error", "error", err)
		}
	}
}

// Close stops the watcher and waits for the loop to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		err = w.fs.Close()
		<-w.done
	})
	return err
}
