// Package pathspec defines the path specification type used to address a
// file independently of what its bytes mean. A path specification may be
// nested: a file inside an archive inside a disk image inside a volume
// snapshot resolves outer-to-inner.
package pathspec

import (
	"fmt"
	"strings"
)

// Type tags the addressing scheme of one layer of a path specification.
type Type string

// Path specification types.
const (
	// TypeOS addresses a file on the operating system's own file system.
	TypeOS Type = "OS"
	// TypeImage addresses an entry inside a mounted image file system.
	TypeImage Type = "IMAGE"
	// TypeSnapshot addresses an entry inside a volume snapshot store.
	TypeSnapshot Type = "VSS"
	// TypeArchive addresses a member of an archive container (zip, tar, gz).
	TypeArchive Type = "ARCHIVE"
)

// PathSpec describes how to obtain the bytes for one file. A PathSpec with
// no parent is directly openable by the VFS layer; one with a parent must
// be resolved outer-to-inner, the parent first.
//
// PathSpecs are immutable after creation. Extending a spec with a nested
// layer copies rather than mutates, so a spec placed on a queue is never
// changed by a later producer.
type PathSpec struct {
	// Type tags the addressing scheme of this layer.
	Type Type `json:"type"`

	// Location is the path of the entry within this layer, e.g. the OS path
	// of a file, the path inside an image, or the member name in an archive.
	Location string `json:"location"`

	// Inode is the file system inode (or equivalent identifier) of this
	// entry, when the layer knows it. Zero means unknown.
	Inode uint64 `json:"inode,omitempty"`

	// StoreIndex is the zero-based snapshot store index for TypeSnapshot
	// layers. Ignored for every other type.
	StoreIndex int `json:"store_index,omitempty"`

	// Parent addresses the container this layer lives in, nil for the
	// outermost layer.
	Parent *PathSpec `json:"parent,omitempty"`
}

// New creates an outermost path specification.
func New(specType Type, location string) *PathSpec {
	return &PathSpec{
		Type:     specType,
		Location: location,
	}
}

// NewWithParent creates a nested path specification inside parent. The
// parent is not copied; PathSpecs are never mutated so sharing is safe.
func NewWithParent(specType Type, location string, parent *PathSpec) *PathSpec {
	return &PathSpec{
		Type:     specType,
		Location: location,
		Parent:   parent,
	}
}

// NewSnapshot creates a snapshot-store path specification. storeIndex is
// zero-based; callers iterating user-supplied store numbers translate from
// the external one-based convention before reaching this point.
func NewSnapshot(location string, storeIndex int, parent *PathSpec) *PathSpec {
	return &PathSpec{
		Type:       TypeSnapshot,
		Location:   location,
		StoreIndex: storeIndex,
		Parent:     parent,
	}
}

// WithInode returns a copy of the spec carrying the given inode.
func (ps *PathSpec) WithInode(inode uint64) *PathSpec {
	specCopy := *ps
	specCopy.Inode = inode
	return &specCopy
}

// WithLocation returns a copy of the spec pointing at a different location
// within the same layer. Used by the collector when walking directories.
func (ps *PathSpec) WithLocation(location string) *PathSpec {
	specCopy := *ps
	specCopy.Location = location
	specCopy.Inode = 0
	return &specCopy
}

// HasParent reports whether this spec is nested inside another layer.
func (ps *PathSpec) HasParent() bool {
	return ps.Parent != nil
}

// Depth returns the number of layers in the specification chain. An
// outermost spec has depth 1.
func (ps *PathSpec) Depth() int {
	depth := 0
	for spec := ps; spec != nil; spec = spec.Parent {
		depth++
	}
	return depth
}

// Comparable returns a stable, human-readable rendering of the full chain,
// outermost layer first. Two specs addressing the same entry render the
// same string, which makes it usable as a log/debug key.
func (ps *PathSpec) Comparable() string {
	var layers []string
	for spec := ps; spec != nil; spec = spec.Parent {
		layer := fmt.Sprintf("type: %s, location: %s", spec.Type, spec.Location)
		if spec.Type == TypeSnapshot {
			layer = fmt.Sprintf("%s, store_index: %d", layer, spec.StoreIndex)
		}
		if spec.Inode != 0 {
			layer = fmt.Sprintf("%s, inode: %d", layer, spec.Inode)
		}
		layers = append(layers, layer)
	}
	// Reverse so the outermost layer prints first.
	for i, j := 0, len(layers)-1; i < j; i, j = i+1, j-1 {
		layers[i], layers[j] = layers[j], layers[i]
	}
	return strings.Join(layers, " | ")
}

// String implements fmt.Stringer.
func (ps *PathSpec) String() string {
	return ps.Comparable()
}
