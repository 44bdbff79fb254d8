package datamanager

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/mhellwig/mapdeck/internal/logger"
	"github.com/mhellwig/mapdeck/pkg/download"
	"github.com/mhellwig/mapdeck/pkg/errors"
	"github.com/mhellwig/mapdeck/pkg/manifest"
	"github.com/mhellwig/mapdeck/pkg/resource"
)

// reconcile rebuilds the resource table from the cached manifest
// document. A manifest that cannot be read or parsed leaves the table
// untouched.
func (m *Manager) reconcile() {
	data, err := afero.ReadFile(m.fs, m.manifestRes.LocalPath())
	if err != nil {
		err = errors.Wrap(errors.ErrIO, err.Error())
		logger.Warn("Failed to read cached manifest", logger.Fields{"error": err})
		m.emit(Event{Kind: EventError, Msg: fmt.Sprintf("cannot read manifest: %v", err)})
		m.notifyRefreshWaiters(err)
		return
	}
	doc, err := manifest.Parse(data)
	if err != nil {
		logger.Warn("Rejecting manifest", logger.Fields{"error": err})
		m.emit(Event{Kind: EventError, Msg: fmt.Sprintf("cannot parse manifest: %v", err)})
		m.notifyRefreshWaiters(err)
		return
	}

	m.applyManifest(doc)
	m.scanUnattached()
	m.pruneOrphans()
	m.recomputeWatchers()
	m.emit(Event{Kind: EventReconciled})
	m.notifyRefreshWaiters(nil)

	logger.Debug("Reconciled", logger.Fields{"resources": len(m.resources)})
}

// applyManifest updates the resource table to match the document.
// Existing resources are claimed by name and get their remote
// descriptor refreshed; unknown entries create new resources; listed
// resources that disappeared keep their local file but lose their
// remote side.
func (m *Manager) applyManifest(doc *manifest.Document) {
	unclaimed := make(map[string]*resource.Resource, len(m.resources))
	for name, r := range m.resources {
		unclaimed[name] = r
	}

	for _, e := range doc.Maps {
		u, err := doc.RemoteURL(e)
		if err != nil {
			logger.Warn("Skipping manifest entry", logger.Fields{"path": e.Path, "error": err})
			continue
		}
		name := e.Name()

		if r, ok := m.resources[name]; ok {
			r.SetRemoteURL(u)
			r.SetRemoteDescriptor(e.Size, e.Modified())
			if r.Category() == CategoryUnsupported {
				r.SetCategory(e.Category())
			}
			if id, ok := classGroup(e.Path); ok {
				m.groups[id].Add(r)
			}
			delete(unclaimed, name)
			continue
		}

		r := resource.New(m.fs, u, filepath.Join(m.mapsDir(), filepath.FromSlash(e.Path)))
		r.SetName(name)
		r.SetCategory(e.Category())
		r.SetRemoteDescriptor(e.Size, e.Modified())
		m.resources[name] = r
		m.groups[GroupAll].Add(r)
		if id, ok := classGroup(e.Path); ok {
			m.groups[id].Add(r)
		}
	}

	for _, r := range unclaimed {
		if r.HasLocalFile() {
			r.ClearRemote()
			continue
		}
		m.retire(r)
	}
}

// classGroup maps a manifest path to its content group.
func classGroup(p string) (GroupID, bool) {
	switch manifest.Classify(p) {
	case manifest.ClassVector:
		return GroupVector, true
	case manifest.ClassTiles:
		return GroupTiles, true
	case manifest.ClassDatabase:
		return GroupDatabases, true
	}
	return "", false
}

// scanUnattached wraps files found in the cache that no resource
// claims into local-only resources so the user can see and delete
// them. Temp files of in-flight transfers are ignored.
func (m *Manager) scanUnattached() {
	for _, path := range m.unattachedFiles() {
		name := m.unattachedName(path)
		r := resource.New(m.fs, nil, path)
		r.SetName(name)
		r.SetCategory(CategoryUnsupported)
		m.resources[name] = r
		m.groups[GroupAll].Add(r)
		logger.Info("Found unattached file", logger.Fields{"path": path, "name": name})
	}
}

// unattachedName derives a unique name for a cache file no manifest
// entry claims. The file stem is preferred; on collision the
// cache-relative path is used instead.
func (m *Manager) unattachedName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if _, taken := m.resources[name]; !taken {
		return name
	}
	rel, err := filepath.Rel(m.mapsDir(), path)
	if err != nil {
		rel = base
	}
	rel = filepath.ToSlash(rel)
	return strings.TrimSuffix(rel, filepath.Ext(rel))
}

// unattachedFiles lists regular files under the maps directory that no
// resource points at.
func (m *Manager) unattachedFiles() []string {
	claimed := make(map[string]bool, len(m.resources))
	for _, r := range m.resources {
		claimed[r.LocalPath()] = true
	}

	var out []string
	walkErr := afero.Walk(m.fs, m.mapsDir(), func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if download.IsTempFile(path) || claimed[path] {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if walkErr != nil && !os.IsNotExist(walkErr) {
		logger.Warn("Cache scan failed", logger.Fields{"error": walkErr})
	}
	return out
}

// pruneOrphans retires resources that have neither a remote side nor a
// local file.
func (m *Manager) pruneOrphans() {
	for _, r := range m.resources {
		if r.Orphaned() {
			m.retire(r)
		}
	}
}

// retire removes a resource from all groups and from the table. An
// in-flight transfer is canceled.
func (m *Manager) retire(r *resource.Resource) {
	r.CancelTransfer()
	for _, g := range m.groups {
		g.Remove(r)
	}
	delete(m.resources, r.Name())
}

// repairLegacyNames fixes files left behind by an old packaging bug
// that stored vector maps with a doubled extension.
func (m *Manager) repairLegacyNames() {
	var broken []string
	_ = afero.Walk(m.fs, m.mapsDir(), func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".geojson.geojson") || strings.HasSuffix(path, ".mbtiles.mbtiles") {
			broken = append(broken, path)
		}
		return nil
	})
	for _, path := range broken {
		fixed := strings.TrimSuffix(path, filepath.Ext(path))
		if err := m.fs.Rename(path, fixed); err != nil {
			logger.Warn("Failed to repair file name", logger.Fields{"path": path, "error": err})
			continue
		}
		logger.Info("Repaired file name", logger.Fields{"from": path, "to": fixed})
	}
}
