package manifest

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceWindow = 100 * time.Millisecond

// Watcher re-applies a manifest file whenever it changes on disk. Editors
// that rename-replace are handled by watching the containing directory. A
// manifest that fails to load logs the problem and leaves the last good
// state applied; a deleted manifest removes the routes it had declared.
type Watcher struct {
	path   string
	syncer *Syncer
}

func NewWatcher(engine Engine, path string) *Watcher {
	return &Watcher{path: filepath.Clean(path), syncer: NewSyncer(engine)}
}

// Run applies the manifest once, then blocks watching for changes until ctx
// is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	w.reload()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
				fire = timer.C
			} else {
				timer.Reset(debounceWindow)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("manifest watch: %v", err)
		case <-fire:
			timer = nil
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	m, err := Load(w.path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		// Manifest gone: tear down its routes.
		m = Manifest{}
	default:
		log.Printf("manifest %s: %v", w.path, err)
		return
	}
	if err := w.syncer.Apply(m); err != nil {
		log.Printf("manifest %s: %v", w.path, err)
	}
}
