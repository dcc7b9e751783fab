// Package watch reports changes to a few files so the frame loop can reload them.
package watch

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"walkthrough/internal/logger"
)

// Watcher watches files through their directories, so editors that save by renaming a temporary
// file over the original are still seen.
type Watcher struct {
	w       *fsnotify.Watcher
	files   map[string]string
	changed chan string
	done    chan struct{}
	log     *logger.Logger
}

// New starts watching paths. Changes are collected in the background until Close.
func New(log *logger.Logger, paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	w := &Watcher{
		w:       fw,
		files:   make(map[string]string),
		changed: make(chan string, 16),
		done:    make(chan struct{}),
		log:     log,
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch: %w", err)
		}
		w.files[abs] = p
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name, watched := w.files[filepath.Clean(ev.Name)]
			if !watched {
				continue
			}
			select {
			case w.changed <- name:
			default:
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.log.Logf("watch: %v", err)
		}
	}
}

// Changed returns the watched paths, as passed to New, that changed since the last call.
// Each path is listed once. It never blocks.
func (w *Watcher) Changed() []string {
	var out []string
	seen := make(map[string]bool)
	for {
		select {
		case p := <-w.changed:
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		default:
			return out
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.w.Close()
}
