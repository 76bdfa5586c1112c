package pathspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	spec := New(TypeOS, "/var/log/syslog")

	assert.Equal(t, TypeOS, spec.Type)
	assert.Equal(t, "/var/log/syslog", spec.Location)
	assert.False(t, spec.HasParent())
	assert.Equal(t, 1, spec.Depth())
}

func TestNewWithParent_Nesting(t *testing.T) {
	image := New(TypeOS, "/cases/image.dd")
	fsEntry := NewWithParent(TypeImage, "/Windows/System32/config", image)
	member := NewWithParent(TypeArchive, "backup/sam.zip", fsEntry)

	require.True(t, member.HasParent())
	assert.Equal(t, 3, member.Depth())
	assert.Same(t, fsEntry, member.Parent)
	assert.Same(t, image, member.Parent.Parent)
}

func TestWithInode_CopiesNotMutates(t *testing.T) {
	original := New(TypeImage, "/a.log")
	withInode := original.WithInode(42)

	assert.Equal(t, uint64(0), original.Inode, "original must not be mutated")
	assert.Equal(t, uint64(42), withInode.Inode)
	assert.Equal(t, original.Location, withInode.Location)
}

func TestWithLocation_ResetsInode(t *testing.T) {
	spec := New(TypeImage, "/dir").WithInode(7)
	child := spec.WithLocation("/dir/file.txt")

	assert.Equal(t, "/dir/file.txt", child.Location)
	assert.Equal(t, uint64(0), child.Inode)
	assert.Equal(t, uint64(7), spec.Inode)
}

func TestComparable_OutermostFirst(t *testing.T) {
	outer := New(TypeOS, "/image.dd")
	inner := NewSnapshot("/docs/a.txt", 2, outer)

	rendered := inner.Comparable()
	assert.Equal(t,
		"type: OS, location: /image.dd | type: VSS, location: /docs/a.txt, store_index: 2",
		rendered)
}

func TestComparable_Stable(t *testing.T) {
	a := NewWithParent(TypeArchive, "member.txt", New(TypeOS, "/t.zip"))
	b := NewWithParent(TypeArchive, "member.txt", New(TypeOS, "/t.zip"))

	assert.Equal(t, a.Comparable(), b.Comparable())
}
