package datamanager

import (
	"fmt"
	"net/url"
	"time"

	"github.com/mhellwig/mapdeck/pkg/group"
	"github.com/mhellwig/mapdeck/pkg/resource"
)

// GroupID names one of the resource groups maintained by the manager.
type GroupID string

const (
	// GroupAll is the umbrella group holding every managed resource.
	GroupAll GroupID = "all"
	// GroupVector holds vector map data (.geojson).
	GroupVector GroupID = "vector"
	// GroupTiles holds base-map tile databases (.mbtiles).
	GroupTiles GroupID = "tiles"
	// GroupDatabases holds auxiliary text databases (.txt).
	GroupDatabases GroupID = "databases"
)

// CategoryUnsupported is the grouping label assigned to local-only
// resources discovered in the cache.
const CategoryUnsupported = "Unsupported"

// EventKind classifies manager events.
type EventKind string

const (
	// EventGroupChanged reports that one or more aggregate values of a
	// group actually changed.
	EventGroupChanged EventKind = "group-changed"
	// EventError reports a fetch, parse or transfer failure.
	EventError EventKind = "error"
	// EventReconciled reports the completion of a reconciliation pass.
	EventReconciled EventKind = "reconciled"
)

// Event is a notification dispatched through Hooks. Events are emitted
// on the manager's loop goroutine; handlers must not call back into
// the manager.
type Event struct {
	Kind       EventKind
	Group      GroupID
	Properties []group.Property
	Msg        string
}

// Hooks carries callbacks for manager events.
type Hooks struct {
	OnEvent func(Event)
}

// Settings is the collaborator interface gating network use. While
// NetworkAllowed reports false, no fetch of any kind is started.
type Settings interface {
	NetworkAllowed() bool
}

// Options configure a Manager.
type Options struct {
	// ManifestURL is the remote manifest document.
	ManifestURL *url.URL
	// CacheDir is the cache root. The manifest is cached at
	// CacheDir/maps.json, map files live under CacheDir/maps.
	CacheDir string
	// StatePath is the file persisting the scheduling state.
	StatePath string

	// Auto-update scheduling.
	CheckInterval time.Duration
	RetryInterval time.Duration
	StaleAfter    time.Duration

	// WatchCache enables the fsnotify watcher on the maps directory.
	// Only honored on a real filesystem.
	WatchCache bool
}

// Info is a read-only snapshot of one resource, safe to use off the
// manager's loop.
type Info struct {
	Name     string
	Category string

	LocalPath     string
	HasFile       bool
	LocalSize     int64
	LocalModified time.Time

	// Supported reports whether the resource is still offered by the
	// remote manifest.
	Supported      bool
	RemoteSize     int64
	RemoteModified time.Time

	State     resource.State
	Updatable bool
	// Error carries the last transfer failure, if any.
	Error string
}

// Aggregates is a read-only snapshot of a group watcher's cached
// values.
type Aggregates struct {
	Downloading bool
	HasFile     bool
	Updatable   bool
	Files       []string
	UpdateSize  string
}

// ErrStopped is returned by API calls once the manager's Run loop has
// exited.
var ErrStopped = fmt.Errorf("data manager stopped")

func snapshot(r *resource.Resource) Info {
	info := Info{
		Name:           r.Name(),
		Category:       r.Category(),
		LocalPath:      r.LocalPath(),
		HasFile:        r.HasLocalFile(),
		LocalSize:      r.LocalSize(),
		LocalModified:  r.LocalModified(),
		Supported:      r.HasRemote(),
		RemoteSize:     r.RemoteSize(),
		RemoteModified: r.RemoteModified(),
		State:          r.State(),
		Updatable:      r.Updatable(),
	}
	if err := r.Failure(); err != nil {
		info.Error = err.Error()
	}
	return info
}
