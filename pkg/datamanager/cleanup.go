package datamanager

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/mhellwig/mapdeck/internal/logger"
)

// cleanUp removes files no resource claims from the maps directory,
// then removes empty directories until none remain. Files of
// local-only resources the user chose to keep are claimed and
// therefore survive.
func (m *Manager) cleanUp() {
	for _, path := range m.unattachedFiles() {
		if err := m.fs.Remove(path); err != nil {
			logger.Warn("Failed to remove unattached file", logger.Fields{"path": path, "error": err})
			continue
		}
		logger.Info("Removed unattached file", logger.Fields{"path": path})
	}
	m.removeEmptyDirs()
}

// removeEmptyDirs deletes empty directories below the maps directory.
// Removing a directory can empty its parent, so the sweep repeats
// until a pass removes nothing.
func (m *Manager) removeEmptyDirs() {
	root := m.mapsDir()
	for {
		var dirs []string
		_ = afero.Walk(m.fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil || !info.IsDir() {
				return nil
			}
			if filepath.Clean(path) == filepath.Clean(root) {
				return nil
			}
			dirs = append(dirs, path)
			return nil
		})

		removed := false
		for _, d := range dirs {
			entries, err := afero.ReadDir(m.fs, d)
			if err != nil || len(entries) > 0 {
				continue
			}
			if err := m.fs.Remove(d); err == nil {
				removed = true
			}
		}
		if !removed {
			return
		}
	}
}
