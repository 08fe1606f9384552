package memory

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-noc/pkg/backend"
	"github.com/dd0wney/cluso-noc/pkg/devicetree"
	"github.com/dd0wney/cluso-noc/pkg/graph"
)

func newDefault(t *testing.T) *Backend {
	t.Helper()
	b, err := NewDefault()
	require.NoError(t, err)
	return b
}

func TestDefaultFixtureLoads(t *testing.T) {
	b := newDefault(t)
	ctx := context.Background()

	tree, err := b.FetchDeviceTree(ctx)
	require.NoError(t, err)
	idx := devicetree.NewIndex(nil)
	defer idx.Close()
	require.NoError(t, idx.Load(tree))
	leaf, ok := idx.LeafByMapID("rack-7")
	require.True(t, ok)
	assert.Equal(t, []string{"Northern Region", "Harbour Station"}, idx.FindPath(leaf.Key).Titles())

	doc, err := b.FetchDocument(ctx, "rack-7")
	require.NoError(t, err)
	assert.Equal(t, graph.KindRack, doc.Kind)
	require.Len(t, doc.Nodes, 4)
	assert.NoError(t, doc.Validate())

	topo, err := b.FetchDocument(ctx, "topo-1")
	require.NoError(t, err)
	require.Len(t, topo.FallbackNodes(), 1)
	assert.Equal(t, graph.NodeID("legacy-probe"), topo.FallbackNodes()[0].ID)

	geo, err := b.FetchDocument(ctx, "geo-1")
	require.NoError(t, err)
	n, ok := geo.NodeByID("site-harbour")
	require.True(t, ok)
	assert.Equal(t, graph.DeviceKey("1002"), n.DeviceKey(), "numeric device ids are normalized")
	assert.Equal(t, int64(60), int64(geo.UpdateInterval.Seconds()))

	records, err := b.FetchFaultOverlay(ctx, "rack-7")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, records[0].Total, "missing total is derived")
}

func TestFetchUnknownDocument(t *testing.T) {
	b := newDefault(t)
	_, err := b.FetchDocument(context.Background(), "nope")
	assert.ErrorIs(t, err, backend.ErrNotFound)
	_, err = b.FetchFaultOverlay(context.Background(), "nope")
	assert.ErrorIs(t, err, backend.ErrNotFound)
}

func TestSaveIsIsolatedFromCaller(t *testing.T) {
	b := newDefault(t)
	ctx := context.Background()

	doc, err := b.FetchDocument(ctx, "rack-7")
	require.NoError(t, err)
	doc.Nodes[1] = doc.Nodes[1].WithPosition(graph.Position{X: 5, Y: 5})
	require.NoError(t, b.SaveDocument(ctx, doc))

	doc.Nodes[1] = doc.Nodes[1].WithPosition(graph.Position{X: 99, Y: 99})

	again, err := b.FetchDocument(ctx, "rack-7")
	require.NoError(t, err)
	assert.Equal(t, graph.Position{X: 5, Y: 5}, again.Nodes[1].Position)
}

func TestCreateRenameDelete(t *testing.T) {
	b := newDefault(t)
	ctx := context.Background()

	_, err := b.CreateDocument(ctx, "leaf-rack-7", "x", graph.KindRack)
	assert.ErrorIs(t, err, devicetree.ErrNotLeaf)
	_, err = b.CreateDocument(ctx, "nope", "x", graph.KindRack)
	assert.ErrorIs(t, err, backend.ErrNotFound)

	leaf, err := b.CreateDocument(ctx, "bu-south", "Southern Core", graph.KindTopology)
	require.NoError(t, err)
	assert.True(t, leaf.IsLeaf)
	assert.Equal(t, "bu-south", leaf.ParentKey)

	doc, err := b.FetchDocument(ctx, leaf.MapID)
	require.NoError(t, err)
	assert.Empty(t, doc.Nodes)

	require.NoError(t, b.RenameDocument(ctx, leaf.MapID, "Southern Backbone"))
	tree, err := b.FetchDeviceTree(ctx)
	require.NoError(t, err)
	var title string
	for _, n := range tree {
		if n.Key == leaf.Key {
			title = n.Title
		}
	}
	assert.Equal(t, "Southern Backbone", title)

	require.NoError(t, b.DeleteDocument(ctx, leaf.MapID))
	_, err = b.FetchDocument(ctx, leaf.MapID)
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.ErrorIs(t, b.DeleteDocument(ctx, leaf.MapID), backend.ErrNotFound)
}

func TestCatalogAndEvents(t *testing.T) {
	b := newDefault(t)
	ctx := context.Background()

	types, err := b.FetchDeviceTaxonomy(ctx)
	require.NoError(t, err)
	assert.Len(t, types, 3)

	servers, err := b.FetchDevicesByType(ctx, "server")
	require.NoError(t, err)
	assert.Len(t, servers, 3)

	images, err := b.FetchDeviceImageCatalog(ctx, "server")
	require.NoError(t, err)
	assert.Len(t, images, 2)

	page, err := b.RequestUnhandledEvents(ctx, "d1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Events, 2)

	page, err = b.RequestUnhandledEvents(ctx, "d1", 5)
	require.NoError(t, err)
	assert.Empty(t, page.Events)
}

func TestChurnOnlyTouchesPlacedDevices(t *testing.T) {
	b := newDefault(t)
	b.Churn(rand.New(rand.NewSource(7)))

	records, err := b.FetchFaultOverlay(context.Background(), "rack-7")
	require.NoError(t, err)
	for _, r := range records {
		assert.Contains(t, []graph.DeviceKey{"d1", "d2", "d3"}, r.DeviceKey)
		assert.Equal(t, r.Urgent+r.Important+r.Minor, r.Total)
	}
}

func TestCancelledContext(t *testing.T) {
	b := newDefault(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.FetchDocument(ctx, "rack-7")
	assert.ErrorIs(t, err, context.Canceled)
}
