package datamanager

import (
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/afero"

	"github.com/mhellwig/mapdeck/internal/logger"
)

// cacheWatcher reacts to files vanishing from the maps directory
// behind the manager's back, for example a user deleting map files
// with a file browser.
type cacheWatcher struct {
	fsw *fsnotify.Watcher
}

// startCacheWatcher sets up the fsnotify watcher when enabled. The
// watcher only works against the real filesystem; on any other
// backend it is silently skipped.
func (m *Manager) startCacheWatcher() {
	if !m.opts.WatchCache {
		return
	}
	if _, ok := m.fs.(*afero.OsFs); !ok {
		return
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("Cannot watch cache directory", logger.Fields{"error": err})
		return
	}

	if err := fsw.Add(m.mapsDir()); err != nil {
		logger.Warn("Cannot watch cache directory", logger.Fields{"dir": m.mapsDir(), "error": err})
		fsw.Close()
		return
	}
	_ = afero.Walk(m.fs, m.mapsDir(), func(path string, info os.FileInfo, err error) error {
		if err == nil && info.IsDir() {
			if aerr := fsw.Add(path); aerr != nil {
				logger.Warn("Cannot watch cache subdirectory", logger.Fields{"dir": path, "error": aerr})
			}
		}
		return nil
	})

	w := &cacheWatcher{fsw: fsw}
	m.cacheWatcher = w
	go w.run(m)
}

func (w *cacheWatcher) run(m *Manager) {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op.Has(fsnotify.Create) {
				// New subdirectories need their own watch.
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if aerr := w.fsw.Add(ev.Name); aerr != nil {
						logger.Warn("Cannot watch cache subdirectory", logger.Fields{"dir": ev.Name, "error": aerr})
					}
				}
			}
			if ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename) {
				select {
				case m.fsEvents <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("Cache watcher error", logger.Fields{"error": err})
		}
	}
}

func (w *cacheWatcher) close() {
	if err := w.fsw.Close(); err != nil {
		logger.Warn("Failed to close cache watcher", logger.Fields{"error": err})
	}
}
