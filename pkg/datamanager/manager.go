package datamanager

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/mhellwig/mapdeck/internal/logger"
	"github.com/mhellwig/mapdeck/pkg/download"
	"github.com/mhellwig/mapdeck/pkg/errors"
	"github.com/mhellwig/mapdeck/pkg/group"
	"github.com/mhellwig/mapdeck/pkg/resource"
)

// manifestResourceName is the reserved name of the internal resource
// holding the cached manifest document. Map names derive from file
// stems and cannot collide with it.
const manifestResourceName = "@manifest"

// transferBuffer bounds the number of completion results that can sit
// unread without blocking a transfer goroutine.
const transferBuffer = 128

// Manager owns the whole resource life cycle. All state is confined to
// the goroutine running Run; the exported API posts requests to that
// goroutine and is safe for concurrent use.
type Manager struct {
	fs       afero.Fs
	dl       download.Manager
	settings Settings
	hooks    Hooks
	opts     Options

	manifestRes *resource.Resource
	resources   map[string]*resource.Resource
	groups      map[GroupID]*group.Group
	watchers    map[GroupID]*group.Watcher

	requests  chan func()
	transfers chan resource.TransferResult
	fsEvents  chan struct{}
	done      chan struct{}

	ctx   context.Context
	timer *time.Timer

	lastRefresh     time.Time
	refreshWaiters  []chan error
	downloadWaiters map[string][]chan error

	cacheWatcher *cacheWatcher
}

// groupOrder fixes the dispatch order of group change events.
var groupOrder = []GroupID{GroupAll, GroupVector, GroupTiles, GroupDatabases}

// New creates a Manager. Run must be started before any other method
// is called.
func New(fs afero.Fs, dl download.Manager, settings Settings, hooks Hooks, opts Options) *Manager {
	m := &Manager{
		fs:              fs,
		dl:              dl,
		settings:        settings,
		hooks:           hooks,
		opts:            opts,
		resources:       make(map[string]*resource.Resource),
		groups:          make(map[GroupID]*group.Group),
		watchers:        make(map[GroupID]*group.Watcher),
		requests:        make(chan func()),
		transfers:       make(chan resource.TransferResult, transferBuffer),
		fsEvents:        make(chan struct{}, 1),
		done:            make(chan struct{}),
		downloadWaiters: make(map[string][]chan error),
	}
	for _, id := range groupOrder {
		g := group.New()
		m.groups[id] = g
		m.watchers[id] = group.NewWatcher(g)
	}
	m.manifestRes = resource.New(fs, opts.ManifestURL, m.manifestPath())
	m.manifestRes.SetName(manifestResourceName)
	return m
}

func (m *Manager) manifestPath() string { return filepath.Join(m.opts.CacheDir, "maps.json") }

func (m *Manager) mapsDir() string { return filepath.Join(m.opts.CacheDir, "maps") }

// Run executes the manager loop until ctx is canceled. On shutdown all
// in-flight transfers are canceled and unattached files are removed
// from the cache.
func (m *Manager) Run(ctx context.Context) error {
	defer close(m.done)
	m.ctx = ctx

	m.repairLegacyNames()

	last, err := loadState(m.fs, m.opts.StatePath)
	if err != nil {
		logger.Warn("Failed to load scheduling state", logger.Fields{"error": err})
	}
	m.lastRefresh = last

	if m.manifestRes.HasLocalFile() {
		m.reconcile()
	}
	m.autoUpdate()
	m.startCacheWatcher()

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return nil
		case fn := <-m.requests:
			fn()
		case res := <-m.transfers:
			m.handleTransfer(res)
		case <-m.timer.C:
			m.autoUpdate()
		case <-m.fsEvents:
			m.handleCacheEvent()
		}
	}
}

// do runs fn on the loop goroutine and waits for it to finish.
func (m *Manager) do(fn func()) error {
	ran := make(chan struct{})
	select {
	case m.requests <- func() { fn(); close(ran) }:
	case <-m.done:
		return ErrStopped
	}
	select {
	case <-ran:
		return nil
	case <-m.done:
		return ErrStopped
	}
}

func (m *Manager) emit(ev Event) {
	if m.hooks.OnEvent != nil {
		m.hooks.OnEvent(ev)
	}
}

// armTimer schedules the next auto-update wakeup.
func (m *Manager) armTimer(d time.Duration) {
	if m.timer == nil {
		m.timer = time.NewTimer(d)
		return
	}
	if !m.timer.Stop() {
		select {
		case <-m.timer.C:
		default:
		}
	}
	m.timer.Reset(d)
}

// autoUpdate starts a manifest fetch when the cached copy has gone
// stale and arms the timer for the next check. Failed or skipped
// attempts are retried on a shorter interval.
func (m *Manager) autoUpdate() {
	if m.lastRefresh.IsZero() || time.Since(m.lastRefresh) > m.opts.StaleAfter {
		m.armTimer(m.opts.RetryInterval)
		if m.settings.NetworkAllowed() {
			m.startManifestFetch()
		}
		return
	}
	m.armTimer(m.opts.CheckInterval)
}

// startManifestFetch begins a manifest download unless one is already
// in flight.
func (m *Manager) startManifestFetch() bool {
	if m.manifestRes.State() == resource.StateDownloading {
		return true
	}
	logger.Debug("Fetching manifest", logger.Fields{"url": m.opts.ManifestURL.String()})
	return m.manifestRes.StartTransfer(m.ctx, m.dl, m.transfers)
}

func (m *Manager) triggerUpdate() error {
	if !m.settings.NetworkAllowed() {
		return errors.ErrNetworkDisabled
	}
	if !m.startManifestFetch() {
		return errors.Wrap(errors.ErrNoRemote, "cannot fetch manifest")
	}
	return nil
}

func (m *Manager) handleTransfer(res resource.TransferResult) {
	if res.Name == manifestResourceName {
		m.handleManifestResult(res.Err)
		return
	}

	r := m.resources[res.Name]
	if r == nil {
		// The resource was retired while the transfer was running.
		return
	}
	r.FinishTransfer(res.Err)

	err := res.Err
	if stderrors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		logger.Warn("Download failed", logger.Fields{"name": res.Name, "error": err})
		m.emit(Event{Kind: EventError, Msg: fmt.Sprintf("download of %s failed: %v", res.Name, err)})
	} else if res.Err == nil {
		logger.Info("Download finished", logger.Fields{"name": res.Name, "path": r.LocalPath()})
	}

	m.notifyDownloadWaiters(res.Name, err)
	m.pruneOrphans()
	m.recomputeWatchers()
}

func (m *Manager) handleManifestResult(err error) {
	m.manifestRes.FinishTransfer(err)
	if err != nil {
		if !stderrors.Is(err, context.Canceled) {
			logger.Warn("Manifest fetch failed", logger.Fields{"error": err})
			m.emit(Event{Kind: EventError, Msg: fmt.Sprintf("manifest fetch failed: %v", err)})
		}
		m.notifyRefreshWaiters(err)
		return
	}

	m.lastRefresh = time.Now().UTC()
	if serr := saveState(m.fs, m.opts.StatePath, m.lastRefresh); serr != nil {
		logger.Warn("Failed to persist scheduling state", logger.Fields{"error": serr})
	}
	m.armTimer(m.opts.CheckInterval)
	m.reconcile()
}

func (m *Manager) handleCacheEvent() {
	m.pruneOrphans()
	m.recomputeWatchers()
}

func (m *Manager) notifyRefreshWaiters(err error) {
	for _, ch := range m.refreshWaiters {
		ch <- err
	}
	m.refreshWaiters = nil
}

func (m *Manager) notifyDownloadWaiters(name string, err error) {
	for _, ch := range m.downloadWaiters[name] {
		ch <- err
	}
	delete(m.downloadWaiters, name)
}

// recomputeWatchers refreshes every group aggregate and dispatches a
// change event per group that actually changed.
func (m *Manager) recomputeWatchers() {
	for _, id := range groupOrder {
		if props := m.watchers[id].Recompute(); len(props) > 0 {
			m.emit(Event{Kind: EventGroupChanged, Group: id, Properties: props})
		}
	}
}

func (m *Manager) shutdown() {
	if m.cacheWatcher != nil {
		m.cacheWatcher.close()
	}
	m.manifestRes.CancelTransfer()
	for _, r := range m.resources {
		r.CancelTransfer()
	}
	m.cleanUp()
	err := ErrStopped
	m.notifyRefreshWaiters(err)
	for name := range m.downloadWaiters {
		m.notifyDownloadWaiters(name, err)
	}
}

// TriggerUpdate starts an asynchronous manifest refresh. It returns
// immediately; completion is reported through hooks.
func (m *Manager) TriggerUpdate() error {
	var err error
	if derr := m.do(func() { err = m.triggerUpdate() }); derr != nil {
		return derr
	}
	return err
}

// Refresh fetches the manifest and reconciles, blocking until the pass
// completes or ctx is canceled.
func (m *Manager) Refresh(ctx context.Context) error {
	ch := make(chan error, 1)
	var err error
	if derr := m.do(func() {
		if err = m.triggerUpdate(); err != nil {
			return
		}
		m.refreshWaiters = append(m.refreshWaiters, ch)
	}); derr != nil {
		return derr
	}
	if err != nil {
		return err
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StartDownload begins fetching the named resource. Starting a
// resource that is already downloading is a no-op.
func (m *Manager) StartDownload(name string) error {
	var err error
	if derr := m.do(func() { err = m.startDownload(name) }); derr != nil {
		return derr
	}
	return err
}

func (m *Manager) startDownload(name string) error {
	r := m.resources[name]
	if r == nil {
		return errors.Wrapf(errors.ErrResourceNotFound, "%s", name)
	}
	if r.State() == resource.StateDownloading {
		return nil
	}
	if !r.HasRemote() {
		return errors.Wrapf(errors.ErrNoRemote, "%s is not offered remotely", name)
	}
	if !m.settings.NetworkAllowed() {
		return errors.ErrNetworkDisabled
	}
	r.StartTransfer(m.ctx, m.dl, m.transfers)
	m.recomputeWatchers()
	return nil
}

// Download fetches the named resource and blocks until the transfer
// finishes or ctx is canceled.
func (m *Manager) Download(ctx context.Context, name string) error {
	ch := make(chan error, 1)
	var err error
	if derr := m.do(func() {
		if err = m.startDownload(name); err != nil {
			return
		}
		r := m.resources[name]
		if r.State() != resource.StateDownloading {
			// Finished synchronously, nothing to wait for.
			ch <- r.Failure()
			return
		}
		m.downloadWaiters[name] = append(m.downloadWaiters[name], ch)
	}); derr != nil {
		return derr
	}
	if err != nil {
		return err
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// CancelDownload aborts an in-flight transfer of the named resource.
// The local file, if any, is left untouched.
func (m *Manager) CancelDownload(name string) error {
	var err error
	if derr := m.do(func() {
		r := m.resources[name]
		if r == nil {
			err = errors.Wrapf(errors.ErrResourceNotFound, "%s", name)
			return
		}
		r.CancelTransfer()
	}); derr != nil {
		return derr
	}
	return err
}

// Remove deletes the local file of the named resource. A resource that
// is still offered remotely stays listed and can be downloaded again;
// a local-only resource is retired.
func (m *Manager) Remove(name string) error {
	var err error
	if derr := m.do(func() {
		r := m.resources[name]
		if r == nil {
			err = errors.Wrapf(errors.ErrResourceNotFound, "%s", name)
			return
		}
		r.CancelTransfer()
		if rerr := r.RemoveLocalFile(); rerr != nil {
			err = errors.Wrapf(rerr, "failed to remove %s", name)
			return
		}
		m.pruneOrphans()
		m.recomputeWatchers()
	}); derr != nil {
		return derr
	}
	return err
}

// UpdateAll starts transfers for every updatable member of the given
// group. It returns the number of transfers started.
func (m *Manager) UpdateAll(id GroupID) (int, error) {
	var n int
	var err error
	if derr := m.do(func() {
		w := m.watchers[id]
		if w == nil {
			err = errors.Wrapf(errors.ErrResourceNotFound, "unknown group %s", id)
			return
		}
		if !m.settings.NetworkAllowed() {
			err = errors.ErrNetworkDisabled
			return
		}
		for _, r := range w.UpdatableResources() {
			if r.StartTransfer(m.ctx, m.dl, m.transfers) {
				n++
			}
		}
		if n > 0 {
			m.recomputeWatchers()
		}
	}); derr != nil {
		return 0, derr
	}
	return n, err
}

// Resources returns snapshots of the given group's members, sorted by
// category then name.
func (m *Manager) Resources(id GroupID) ([]Info, error) {
	var infos []Info
	var err error
	if derr := m.do(func() {
		g := m.groups[id]
		if g == nil {
			err = errors.Wrapf(errors.ErrResourceNotFound, "unknown group %s", id)
			return
		}
		for _, r := range g.Resources() {
			infos = append(infos, snapshot(r))
		}
	}); derr != nil {
		return nil, derr
	}
	return infos, err
}

// Describe returns the human-readable description of the named
// resource.
func (m *Manager) Describe(name string) (string, error) {
	var desc string
	var err error
	if derr := m.do(func() {
		r := m.resources[name]
		if r == nil {
			err = errors.Wrapf(errors.ErrResourceNotFound, "%s", name)
			return
		}
		desc = r.Description()
	}); derr != nil {
		return "", derr
	}
	return desc, err
}

// GroupAggregates returns the current aggregate values of the given
// group.
func (m *Manager) GroupAggregates(id GroupID) (Aggregates, error) {
	var agg Aggregates
	var err error
	if derr := m.do(func() {
		w := m.watchers[id]
		if w == nil {
			err = errors.Wrapf(errors.ErrResourceNotFound, "unknown group %s", id)
			return
		}
		agg = Aggregates{
			Downloading: w.Downloading(),
			HasFile:     w.HasFile(),
			Updatable:   w.Updatable(),
			Files:       append([]string(nil), w.Files()...),
			UpdateSize:  w.UpdateSize(),
		}
	}); derr != nil {
		return Aggregates{}, derr
	}
	return agg, err
}

// Cleanup removes unattached files and empty directories from the
// cache on demand.
func (m *Manager) Cleanup() error {
	return m.do(func() {
		m.cleanUp()
		m.pruneOrphans()
		m.recomputeWatchers()
	})
}

// SettingsChanged re-evaluates the auto-update schedule. Call it when
// the network consent setting flips to true so an overdue refresh
// starts without waiting for the next timer tick.
func (m *Manager) SettingsChanged() error {
	return m.do(m.autoUpdate)
}

// Refreshing reports whether a manifest fetch is in flight.
func (m *Manager) Refreshing() (bool, error) {
	var v bool
	if derr := m.do(func() { v = m.manifestRes.State() == resource.StateDownloading }); derr != nil {
		return false, derr
	}
	return v, nil
}
