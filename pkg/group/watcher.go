package group

import (
	"slices"

	"github.com/dustin/go-humanize"

	"github.com/mhellwig/mapdeck/pkg/resource"
)

// Property identifies one derived value maintained by a Watcher.
type Property string

const (
	// PropertyDownloading is true while any member is downloading.
	PropertyDownloading Property = "downloading"
	// PropertyHasFile is true while any member has a local file.
	PropertyHasFile Property = "hasFile"
	// PropertyUpdatable is true while any member is updatable.
	PropertyUpdatable Property = "updatable"
	// PropertyFiles is the sorted list of installed file paths.
	PropertyFiles Property = "files"
	// PropertyUpdateSize is the human-readable total update size.
	PropertyUpdateSize Property = "updateSize"
)

// Watcher maintains cached aggregate values for one group and reports
// which of them actually changed on recompute. Recompute must be
// called synchronously after every membership or member-state change;
// callers dispatch notifications only for the returned properties, so
// observers are never flooded with no-op events.
type Watcher struct {
	group *Group

	cachedDownloading bool
	cachedHasFile     bool
	cachedUpdatable   bool
	cachedFiles       []string
	cachedUpdateSize  string
}

// NewWatcher constructs a watcher over g with an empty cache.
func NewWatcher(g *Group) *Watcher {
	return &Watcher{group: g}
}

// Recompute re-derives all five aggregate values from the current
// member states and returns the properties whose value differs from
// the previous cache.
func (w *Watcher) Recompute() []Property {
	members := w.group.Resources()

	var (
		downloading bool
		hasFile     bool
		updatable   bool
		files       []string
		updateBytes int64
	)
	for _, m := range members {
		if m.State() == resource.StateDownloading {
			downloading = true
		}
		if m.HasLocalFile() {
			hasFile = true
			files = append(files, m.LocalPath())
		}
		if m.Updatable() {
			updatable = true
			updateBytes += m.UpdateSize()
		}
	}
	slices.Sort(files)

	updateSize := ""
	if updateBytes > 0 {
		updateSize = humanize.Bytes(uint64(updateBytes))
	}

	var changed []Property
	if downloading != w.cachedDownloading {
		w.cachedDownloading = downloading
		changed = append(changed, PropertyDownloading)
	}
	if hasFile != w.cachedHasFile {
		w.cachedHasFile = hasFile
		changed = append(changed, PropertyHasFile)
	}
	if updatable != w.cachedUpdatable {
		w.cachedUpdatable = updatable
		changed = append(changed, PropertyUpdatable)
	}
	if !slices.Equal(files, w.cachedFiles) {
		w.cachedFiles = files
		changed = append(changed, PropertyFiles)
	}
	if updateSize != w.cachedUpdateSize {
		w.cachedUpdateSize = updateSize
		changed = append(changed, PropertyUpdateSize)
	}
	return changed
}

// Downloading reports whether any member has a transfer in flight. An
// empty group is not downloading.
func (w *Watcher) Downloading() bool { return w.cachedDownloading }

// HasFile reports whether any member has a local file.
func (w *Watcher) HasFile() bool { return w.cachedHasFile }

// Updatable reports whether any member is updatable. An empty group is
// not updatable.
func (w *Watcher) Updatable() bool { return w.cachedUpdatable }

// Files returns the cached sorted list of installed file paths.
func (w *Watcher) Files() []string { return w.cachedFiles }

// UpdateSize returns the cached human-readable total update size, or
// "" when no update is pending.
func (w *Watcher) UpdateSize() string { return w.cachedUpdateSize }

// UpdatableResources returns the members that currently have an update
// available, in group order.
func (w *Watcher) UpdatableResources() []*resource.Resource {
	var out []*resource.Resource
	for _, m := range w.group.Resources() {
		if m.Updatable() {
			out = append(out, m)
		}
	}
	return out
}
