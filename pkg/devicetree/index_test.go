package devicetree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-noc/pkg/graph"
)

func sampleTree() []TreeNode {
	return []TreeNode{{
		Key:   "bu-1",
		Title: "Northern Region",
		Children: []TreeNode{{
			Key:   "st-1",
			Title: "Harbour Station",
			Children: []TreeNode{
				{Key: "L1", Title: "Rack Room A", IsLeaf: true, MapID: "rack-7", Kind: graph.KindRack},
				{Key: "L2", Title: "Core Topology", IsLeaf: true, MapID: "topo-1", Kind: graph.KindTopology},
			},
		}},
	}}
}

func TestLoadNestedTree(t *testing.T) {
	x := NewIndex(nil)
	defer x.Close()
	require.NoError(t, x.Load(sampleTree()))

	assert.Equal(t, 4, x.Len())
	roots := x.Roots()
	require.Len(t, roots, 1)
	assert.Empty(t, roots[0].Children, "indexed nodes are flat")

	leaf, err := x.Leaf("L1")
	require.NoError(t, err)
	assert.Equal(t, "rack-7", leaf.MapID)
	assert.Equal(t, "st-1", leaf.ParentKey)

	_, err = x.Leaf("st-1")
	assert.ErrorIs(t, err, ErrNotLeaf)
	_, err = x.Leaf("nope")
	assert.ErrorIs(t, err, ErrUnknownKey)

	byMap, ok := x.LeafByMapID("topo-1")
	require.True(t, ok)
	assert.Equal(t, "L2", byMap.Key)

	kids := x.Children("st-1")
	require.Len(t, kids, 2)
	assert.Equal(t, "L1", kids[0].Key)
	assert.Len(t, x.Leaves(), 2)

	tree := x.Tree()
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Children, 1)
	assert.Len(t, tree[0].Children[0].Children, 2)
}

func TestLoadFlatTree(t *testing.T) {
	x := NewIndex(nil)
	defer x.Close()
	require.NoError(t, x.Load([]TreeNode{
		{Key: "L1", Title: "Rack Room A", ParentKey: "st-1", IsLeaf: true, MapID: "rack-7"},
		{Key: "bu-1", Title: "Northern Region"},
		{Key: "st-1", Title: "Harbour Station", ParentKey: "bu-1"},
	}))

	assert.Equal(t, []string{"Northern Region", "Harbour Station"}, x.FindPath("L1").Titles())
}

func TestLoadRejectsBrokenTrees(t *testing.T) {
	x := NewIndex(nil)
	defer x.Close()
	require.NoError(t, x.Load(sampleTree()))

	err := x.Load([]TreeNode{
		{Key: "a", IsLeaf: true},
		{Key: "b", IsLeaf: true, MapID: "m"},
		{Key: "b", IsLeaf: true, MapID: "m2"},
		{Key: "c", IsLeaf: true, MapID: "m"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTree)
	assert.Contains(t, err.Error(), "leaf a has no map id")
	assert.Contains(t, err.Error(), "duplicate key b")

	_, err = x.Leaf("L1")
	assert.NoError(t, err, "failed load keeps previous contents")
}

func TestFindPathKeepsPreviousPathWhileBranchesLoad(t *testing.T) {
	x := NewIndex(nil)
	defer x.Close()
	require.NoError(t, x.Load(sampleTree()))

	want := BranchPath{{Key: "bu-1", Title: "Northern Region"}, {Key: "st-1", Title: "Harbour Station"}}
	assert.Equal(t, want, x.FindPath("L1"))

	// Only the leaves have arrived so far.
	require.NoError(t, x.Load([]TreeNode{
		{Key: "L1", Title: "Rack Room A", ParentKey: "st-1", IsLeaf: true, MapID: "rack-7"},
	}))
	assert.Equal(t, want, x.FindPath("L1"))

	assert.Nil(t, x.FindPath("never-seen"))
}

func TestRenameChangesOnlyTitle(t *testing.T) {
	x := NewIndex(nil)
	defer x.Close()
	require.NoError(t, x.Load(sampleTree()))

	require.NoError(t, x.Rename("st-1", "Harbour Station (decommissioning)"))
	n, ok := x.Node("st-1")
	require.True(t, ok)
	assert.Equal(t, "Harbour Station (decommissioning)", n.Title)
	assert.Equal(t, "bu-1", n.ParentKey)
	assert.Equal(t, "Harbour Station (decommissioning)", x.FindPath("L1")[1].Title)

	assert.ErrorIs(t, x.Rename("ghost", "x"), ErrUnknownKey)
}

func TestSearch(t *testing.T) {
	x := NewIndex(nil)
	defer x.Close()
	require.NoError(t, x.Load(sampleTree()))

	hits, err := x.Search("rack", 0)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "L1", hits[0].Key)

	hits, err = x.Search("harb core", 0)
	require.NoError(t, err)
	keys := make([]string, len(hits))
	for i, h := range hits {
		keys[i] = h.Key
	}
	assert.Contains(t, keys, "L2", "breadcrumb text is searchable")
	assert.NotContains(t, keys, "L1")

	hits, err = x.Search("   ", 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, x.Rename("L2", "Backbone Topology"))
	hits, err = x.Search("backbone", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "L2", hits[0].Key)
}

func TestSearchFollowsRenamedBranch(t *testing.T) {
	x := NewIndex(nil)
	defer x.Close()
	require.NoError(t, x.Load(sampleTree()))

	require.NoError(t, x.Rename("st-1", "Quayside Station"))

	hits, err := x.Search("quayside rack", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "L1", hits[0].Key, "leaves are found by the new branch title")

	hits, err = x.Search("harbour rack", 0)
	require.NoError(t, err)
	assert.Empty(t, hits, "the old branch title no longer matches")
}
