// Package group collects resources into non-owning sets and derives
// summarized state from them. The data manager owns resource lifetime;
// a resource may belong to the umbrella group and one category
// sub-group at the same time.
package group

import (
	"sort"

	"github.com/mhellwig/mapdeck/pkg/resource"
)

// Group is an unordered collection of resource references. Identity is
// reference identity; name uniqueness is the reconciler's concern.
type Group struct {
	members []*resource.Resource
}

// New constructs an empty group.
func New() *Group {
	return &Group{}
}

// Add inserts a resource. Adding nil or an already-present reference
// is a no-op.
func (g *Group) Add(r *resource.Resource) {
	if r == nil || g.Contains(r) {
		return
	}
	g.members = append(g.members, r)
}

// Remove drops the reference. The resource itself is not destroyed.
func (g *Group) Remove(r *resource.Resource) {
	for i, m := range g.members {
		if m == r {
			g.members = append(g.members[:i], g.members[i+1:]...)
			return
		}
	}
}

// Contains reports whether the exact reference is a member.
func (g *Group) Contains(r *resource.Resource) bool {
	for _, m := range g.members {
		if m == r {
			return true
		}
	}
	return false
}

// Len returns the number of members.
func (g *Group) Len() int {
	g.prune()
	return len(g.members)
}

// Resources returns a snapshot ordered by (category, name) ascending.
// The ordering is stable for equal keys; presentation layers rely on
// it.
func (g *Group) Resources() []*resource.Resource {
	g.prune()
	out := make([]*resource.Resource, len(g.members))
	copy(out, g.members)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category() != out[j].Category() {
			return out[i].Category() < out[j].Category()
		}
		return out[i].Name() < out[j].Name()
	})
	return out
}

// ByName returns the member with the given name, or nil.
func (g *Group) ByName(name string) *resource.Resource {
	g.prune()
	for _, m := range g.members {
		if m.Name() == name {
			return m
		}
	}
	return nil
}

// ByLocalPath returns the member whose local file is path, or nil.
func (g *Group) ByLocalPath(path string) *resource.Resource {
	g.prune()
	for _, m := range g.members {
		if m.LocalPath() == path {
			return m
		}
	}
	return nil
}

// prune drops absent entries before any aggregate computation.
func (g *Group) prune() {
	kept := g.members[:0]
	for _, m := range g.members {
		if m != nil {
			kept = append(kept, m)
		}
	}
	g.members = kept
}
