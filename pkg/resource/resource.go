// Package resource models one downloadable map file: its remote
// descriptor, its local file and its transfer state. Resources are
// owned by the data manager; groups hold non-owning references.
package resource

import (
	"context"
	stderrors "errors"
	"net/url"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/mhellwig/mapdeck/pkg/download"
)

// State is the transfer state of a resource.
type State int

const (
	// StateIdle means no transfer is running.
	StateIdle State = iota
	// StateDownloading means a transfer is in flight.
	StateDownloading
	// StateFailed means the last transfer ended in an error.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDownloading:
		return "downloading"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// TransferResult is the completion event of an asynchronous transfer,
// delivered to the data manager's loop and tagged with the originating
// resource name.
type TransferResult struct {
	Name string
	Err  error
}

// Resource is one downloadable file. All mutation happens on the data
// manager's loop goroutine; the transfer goroutine only touches a temp
// path and reports back through a TransferResult.
type Resource struct {
	name     string
	category string

	// remoteURL is nil for local-only (unsupported) resources.
	remoteURL      *url.URL
	remoteSize     int64
	remoteModified time.Time

	localPath string
	fs        afero.Fs

	state   State
	failure error
	cancel  context.CancelFunc
}

// New creates a resource backed by fs. remoteURL may be nil for a
// local-only resource.
func New(fs afero.Fs, remoteURL *url.URL, localPath string) *Resource {
	return &Resource{
		fs:        fs,
		remoteURL: remoteURL,
		localPath: localPath,
	}
}

// Name returns the resource name, unique within a group.
func (r *Resource) Name() string { return r.name }

// SetName sets the resource name.
func (r *Resource) SetName(name string) { r.name = name }

// Category returns the grouping label (map region or "Unsupported").
func (r *Resource) Category() string { return r.category }

// SetCategory sets the grouping label.
func (r *Resource) SetCategory(category string) { r.category = category }

// RemoteURL returns the download URL, or nil for local-only resources.
func (r *Resource) RemoteURL() *url.URL { return r.remoteURL }

// HasRemote reports whether the resource is still offered remotely.
func (r *Resource) HasRemote() bool { return r.remoteURL != nil }

// ClearRemote marks the resource as no longer offered. The local file,
// if any, is kept.
func (r *Resource) ClearRemote() {
	r.remoteURL = nil
	r.remoteSize = 0
	r.remoteModified = time.Time{}
}

// SetRemoteURL attaches a remote download location. Used when a
// resource that was previously local-only is offered again.
func (r *Resource) SetRemoteURL(u *url.URL) { r.remoteURL = u }

// SetRemoteDescriptor updates the remote metadata without touching the
// local file.
func (r *Resource) SetRemoteDescriptor(size int64, modified time.Time) {
	r.remoteSize = size
	r.remoteModified = modified
}

// RemoteSize returns the size reported by the manifest.
func (r *Resource) RemoteSize() int64 { return r.remoteSize }

// RemoteModified returns the modification date reported by the manifest.
func (r *Resource) RemoteModified() time.Time { return r.remoteModified }

// LocalPath returns the local file path. It is always set.
func (r *Resource) LocalPath() string { return r.localPath }

// State returns the current transfer state.
func (r *Resource) State() State { return r.state }

// Failure returns the error of the last failed transfer, or nil.
func (r *Resource) Failure() error { return r.failure }

// HasLocalFile reports whether the local file exists.
func (r *Resource) HasLocalFile() bool {
	fi, err := r.fs.Stat(r.localPath)
	return err == nil && !fi.IsDir()
}

// LocalSize returns the size of the local file, or 0 if absent.
func (r *Resource) LocalSize() int64 {
	fi, err := r.fs.Stat(r.localPath)
	if err != nil || fi.IsDir() {
		return 0
	}
	return fi.Size()
}

// LocalModified returns the modification time of the local file, or
// the zero time if absent.
func (r *Resource) LocalModified() time.Time {
	fi, err := r.fs.Stat(r.localPath)
	if err != nil || fi.IsDir() {
		return time.Time{}
	}
	return fi.ModTime()
}

// Updatable reports whether a newer remote version is available: the
// local file exists, the resource is still offered, and the remote
// copy is newer or differently sized.
func (r *Resource) Updatable() bool {
	if !r.HasRemote() || !r.HasLocalFile() {
		return false
	}
	if r.state == StateDownloading {
		return false
	}
	if !r.remoteModified.IsZero() && r.remoteModified.After(r.LocalModified()) {
		return true
	}
	return r.remoteSize > 0 && r.remoteSize != r.LocalSize()
}

// UpdateSize returns the download size of a pending update, or 0.
func (r *Resource) UpdateSize() int64 {
	if !r.Updatable() {
		return 0
	}
	return r.remoteSize
}

// Orphaned reports whether the resource has neither a remote source
// nor a local file. Orphaned resources must not persist.
func (r *Resource) Orphaned() bool {
	return !r.HasRemote() && !r.HasLocalFile()
}

// StartTransfer begins an asynchronous fetch of the remote file. The
// completion event is delivered on done. It reports false, without
// side effects, when a transfer is already in flight or the resource
// has no remote source.
func (r *Resource) StartTransfer(ctx context.Context, dl download.Manager, done chan<- TransferResult) bool {
	if r.state == StateDownloading {
		return false
	}
	if r.remoteURL == nil {
		return false
	}

	tctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.state = StateDownloading
	r.failure = nil

	item := download.Item{ID: r.name, URL: r.remoteURL, Dest: r.localPath}
	go func() {
		err := dl.Fetch(tctx, item)
		done <- TransferResult{Name: item.ID, Err: err}
	}()
	return true
}

// CancelTransfer aborts an in-flight transfer. The local file is left
// untouched. No-op when idle.
func (r *Resource) CancelTransfer() {
	if r.cancel != nil {
		r.cancel()
	}
}

// FinishTransfer applies the outcome of a completed transfer. A
// cancelled transfer returns the resource to idle without recording a
// failure.
func (r *Resource) FinishTransfer(err error) {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	switch {
	case err == nil, stderrors.Is(err, context.Canceled):
		r.state = StateIdle
		r.failure = nil
	default:
		r.state = StateFailed
		r.failure = err
	}
}

// RemoveLocalFile deletes the local file. A missing file is not an
// error.
func (r *Resource) RemoveLocalFile() error {
	err := r.fs.Remove(r.localPath)
	if err == nil || stderrors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
