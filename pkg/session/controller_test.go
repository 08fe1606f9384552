package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-noc/pkg/backend/memory"
	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/layout"
	"github.com/dd0wney/cluso-noc/pkg/metrics"
	"github.com/dd0wney/cluso-noc/pkg/nodefactory"
	"github.com/dd0wney/cluso-noc/pkg/selection"
)

var errBackend = errors.New("backend down")

// testBackend counts calls to the demo backend and lets tests fail or hold
// them.
type testBackend struct {
	*memory.Backend

	mu             sync.Mutex
	docFetches     int
	overlayFetches int
	saves          int
	docErr         error
	overlayErr     error
	saveErr        error
	hold           map[string]chan struct{}
	holdDelete     map[string]chan struct{}
	entered        chan string
}

func newTestBackend(t *testing.T) *testBackend {
	t.Helper()
	b, err := memory.NewDefault()
	require.NoError(t, err)
	return &testBackend{Backend: b, hold: map[string]chan struct{}{},
		holdDelete: map[string]chan struct{}{}, entered: make(chan string, 8)}
}

func (b *testBackend) FetchDocument(ctx context.Context, mapID string) (graph.Document, error) {
	b.mu.Lock()
	b.docFetches++
	err := b.docErr
	release := b.hold[mapID]
	b.mu.Unlock()

	if release != nil {
		b.entered <- mapID
		select {
		case <-release:
		case <-ctx.Done():
			return graph.Document{}, ctx.Err()
		}
	}
	if err != nil {
		return graph.Document{}, err
	}
	return b.Backend.FetchDocument(ctx, mapID)
}

func (b *testBackend) FetchFaultOverlay(ctx context.Context, mapID string) ([]graph.OverlayRecord, error) {
	b.mu.Lock()
	b.overlayFetches++
	err := b.overlayErr
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return b.Backend.FetchFaultOverlay(ctx, mapID)
}

func (b *testBackend) SaveDocument(ctx context.Context, doc graph.Document) error {
	b.mu.Lock()
	b.saves++
	err := b.saveErr
	b.mu.Unlock()
	if err != nil {
		return err
	}
	return b.Backend.SaveDocument(ctx, doc)
}

func (b *testBackend) DeleteDocument(ctx context.Context, mapID string) error {
	b.mu.Lock()
	release := b.holdDelete[mapID]
	b.mu.Unlock()

	if release != nil {
		b.entered <- mapID
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return b.Backend.DeleteDocument(ctx, mapID)
}

func (b *testBackend) set(fn func(b *testBackend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

func (b *testBackend) counts() (docs, overlays, saves int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.docFetches, b.overlayFetches, b.saves
}

func fastPolling(graph.DocumentKind, time.Duration) time.Duration {
	return 10 * time.Millisecond
}

func newController(t *testing.T, b *testBackend, opts ...Option) *Controller {
	t.Helper()
	opts = append([]Option{WithMetrics(metrics.NewRegistry())}, opts...)
	c := New(b, opts...)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.LoadTree(context.Background()))
	return c
}

func openLeaf(t *testing.T, c *Controller, key string) {
	t.Helper()
	require.NoError(t, c.SelectLeaf(context.Background(), key))
}

func findNode(t *testing.T, nodes []*graph.Node, id graph.NodeID) *graph.Node {
	t.Helper()
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	t.Fatalf("node %s not found", id)
	return nil
}

func overlayOf(t *testing.T, c *Controller, id graph.NodeID) graph.FaultCounts {
	t.Helper()
	counts, ok := findNode(t, c.Nodes(), id).Overlay()
	require.True(t, ok, "node %s is not device-backed", id)
	return counts
}

func TestSelectLeafLoadsDocumentWithOverlay(t *testing.T) {
	c := newController(t, newTestBackend(t))
	openLeaf(t, c, "leaf-rack-7")

	st := c.State()
	assert.Equal(t, "rack-7", st.MapID)
	assert.Equal(t, graph.KindRack, st.Kind)
	assert.Equal(t, graph.ModeView, st.Mode)
	assert.Equal(t, StatusReady, st.DocStatus)
	assert.Equal(t, StatusReady, st.TreeStatus)
	assert.Equal(t, []string{"Northern Region", "Harbour Station"}, st.Breadcrumb.Titles())
	assert.True(t, st.Polling)

	assert.Equal(t, 2, overlayOf(t, c, "d1").Urgent)
	assert.True(t, overlayOf(t, c, "d2").IsZero())
	assert.True(t, overlayOf(t, c, "d3").IsZero())
	assert.Equal(t, 3, st.Overlay.Devices)
	assert.Equal(t, 1, st.Overlay.Faulted)
}

func TestSelectUnknownLeaf(t *testing.T) {
	c := newController(t, newTestBackend(t))

	err := c.SelectLeaf(context.Background(), "st-harbour")
	assert.Error(t, err)
	assert.Empty(t, c.State().MapID)
}

func TestPollingUpdatesBadgesInViewMode(t *testing.T) {
	b := newTestBackend(t)
	c := newController(t, b, WithIntervalResolver(fastPolling))
	openLeaf(t, c, "leaf-rack-7")

	b.SetOverlay("rack-7", []graph.OverlayRecord{
		{DeviceKey: "d2", FaultCounts: graph.FaultCounts{Important: 4, Total: 4}},
	})

	assert.Eventually(t, func() bool {
		return overlayOf(t, c, "d2").Important == 4
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, overlayOf(t, c, "d1").IsZero(), "absent devices are zero-filled")
}

func TestFailedPollKeepsBadges(t *testing.T) {
	b := newTestBackend(t)
	c := newController(t, b, WithIntervalResolver(fastPolling))
	openLeaf(t, c, "leaf-rack-7")

	_, before, _ := b.counts()
	b.set(func(b *testBackend) { b.overlayErr = errBackend })

	assert.Eventually(t, func() bool {
		_, now, _ := b.counts()
		return now >= before+3
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, overlayOf(t, c, "d1").Urgent)
	assert.Equal(t, StatusReady, c.State().DocStatus)
}

func TestOverlayFailureDuringLoadZeroFills(t *testing.T) {
	b := newTestBackend(t)
	b.set(func(b *testBackend) { b.overlayErr = errBackend })
	c := newController(t, b)
	openLeaf(t, c, "leaf-rack-7")

	assert.Equal(t, StatusReady, c.State().DocStatus)
	assert.True(t, overlayOf(t, c, "d1").IsZero())
}

func TestNoPollingWhileEditing(t *testing.T) {
	b := newTestBackend(t)
	c := newController(t, b, WithIntervalResolver(fastPolling))
	openLeaf(t, c, "leaf-rack-7")

	require.NoError(t, c.EnterEdit())
	st := c.State()
	assert.Equal(t, graph.ModeEdit, st.Mode)
	assert.False(t, st.Polling)

	// Let any tick that was already in flight finish.
	time.Sleep(30 * time.Millisecond)
	version := c.State().Version
	_, overlays, _ := b.counts()

	b.SetOverlay("rack-7", []graph.OverlayRecord{
		{DeviceKey: "d3", FaultCounts: graph.FaultCounts{Urgent: 9, Total: 9}},
	})
	time.Sleep(100 * time.Millisecond)

	_, after, _ := b.counts()
	assert.Equal(t, overlays, after)
	assert.Equal(t, version, c.State().Version)
	assert.True(t, overlayOf(t, c, "d3").IsZero())
}

func TestCancelRestoresServerDocument(t *testing.T) {
	c := newController(t, newTestBackend(t))
	openLeaf(t, c, "leaf-rack-7")
	ctx := context.Background()

	require.NoError(t, c.EnterEdit())
	require.NoError(t, c.MoveNode("d2", graph.Position{X: 120, Y: 40}))
	assert.Equal(t, graph.Position{X: 120, Y: 40}, findNode(t, c.Nodes(), "d2").Position)
	assert.True(t, c.State().Dirty)

	require.NoError(t, c.Cancel(ctx))

	st := c.State()
	assert.Equal(t, graph.ModeView, st.Mode)
	assert.False(t, st.Dirty)
	assert.True(t, st.Polling)
	assert.Equal(t, graph.Position{X: 0, Y: 60}, findNode(t, c.Nodes(), "d2").Position)
}

func TestSaveAddsDeviceAndRefetches(t *testing.T) {
	b := newTestBackend(t)
	c := newController(t, b)
	openLeaf(t, c, "leaf-rack-7")
	ctx := context.Background()

	require.NoError(t, c.EnterEdit())
	n, err := c.AddDeviceNode(ctx, "server", "d9")
	require.NoError(t, err)
	assert.Equal(t, graph.VariantRackItem, n.Variant())
	assert.Equal(t, []graph.NodeID{n.ID}, c.State().SelectedNodeIDs)

	_, err = c.AddDeviceNode(ctx, "server", "d9")
	assert.ErrorIs(t, err, nodefactory.ErrDeviceAlreadyPlaced)

	docs, overlays, _ := b.counts()
	require.NoError(t, c.Save(ctx))

	st := c.State()
	assert.Equal(t, graph.ModeView, st.Mode)
	assert.Equal(t, StatusReady, st.DocStatus)
	assert.Empty(t, st.SelectedNodeIDs)
	assert.Len(t, c.Nodes(), 5)

	docsAfter, overlaysAfter, saves := b.counts()
	assert.Equal(t, 1, saves)
	assert.Equal(t, docs+1, docsAfter)
	assert.Equal(t, overlays+1, overlaysAfter)

	stored, err := b.Backend.FetchDocument(ctx, "rack-7")
	require.NoError(t, err)
	assert.Len(t, stored.Nodes, 5)
}

func TestSaveFailureKeepsWorkingCopy(t *testing.T) {
	b := newTestBackend(t)
	b.set(func(b *testBackend) { b.saveErr = errBackend })
	c := newController(t, b)
	openLeaf(t, c, "leaf-rack-7")

	require.NoError(t, c.EnterEdit())
	require.NoError(t, c.MoveNode("d2", graph.Position{X: 120, Y: 40}))

	err := c.Save(context.Background())
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.ErrorIs(t, err, errBackend)

	st := c.State()
	assert.Equal(t, graph.ModeEdit, st.Mode)
	assert.True(t, st.Dirty)
	assert.False(t, st.Saving)
	assert.Equal(t, graph.Position{X: 120, Y: 40}, findNode(t, c.Nodes(), "d2").Position)
}

func TestCancelRefetchFailureKeepsPreEditDocument(t *testing.T) {
	b := newTestBackend(t)
	c := newController(t, b)
	openLeaf(t, c, "leaf-rack-7")

	require.NoError(t, c.EnterEdit())
	require.NoError(t, c.MoveNode("d2", graph.Position{X: 120, Y: 40}))
	b.set(func(b *testBackend) { b.docErr = errBackend })

	err := c.Cancel(context.Background())
	assert.ErrorIs(t, err, errBackend)

	st := c.State()
	assert.Equal(t, graph.ModeView, st.Mode)
	assert.Equal(t, StatusFailed, st.DocStatus)
	assert.NotEmpty(t, st.LastError)
	assert.True(t, st.Polling)
	assert.Equal(t, graph.Position{X: 0, Y: 60}, findNode(t, c.Nodes(), "d2").Position)
}

func TestFetchFailureClearsStore(t *testing.T) {
	b := newTestBackend(t)
	c := newController(t, b)
	openLeaf(t, c, "leaf-rack-7")

	b.set(func(b *testBackend) { b.docErr = errBackend })
	err := c.SelectLeaf(context.Background(), "leaf-topo-1")
	assert.ErrorIs(t, err, errBackend)

	st := c.State()
	assert.Equal(t, "topo-1", st.MapID)
	assert.Equal(t, StatusFailed, st.DocStatus)
	assert.False(t, st.Polling)
	assert.Empty(t, c.Nodes())
	_, err = c.Document()
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestLeafSwitchDiscardsSupersededFetch(t *testing.T) {
	b := newTestBackend(t)
	c := newController(t, b)
	ctx := context.Background()

	release := make(chan struct{})
	b.set(func(b *testBackend) { b.hold["rack-7"] = release })

	first := make(chan error, 1)
	go func() { first <- c.SelectLeaf(ctx, "leaf-rack-7") }()
	assert.Equal(t, "rack-7", <-b.entered)

	openLeaf(t, c, "leaf-topo-1")
	close(release)
	assert.ErrorIs(t, <-first, ErrSuperseded)

	st := c.State()
	assert.Equal(t, "topo-1", st.MapID)
	assert.Equal(t, StatusReady, st.DocStatus)
	findNode(t, c.Nodes(), "r1")
}

func TestLeafSwitchDiscardsWorkingCopy(t *testing.T) {
	c := newController(t, newTestBackend(t))
	openLeaf(t, c, "leaf-rack-7")

	require.NoError(t, c.EnterEdit())
	require.NoError(t, c.MoveNode("d2", graph.Position{X: 120, Y: 40}))
	openLeaf(t, c, "leaf-topo-1")

	st := c.State()
	assert.Equal(t, graph.ModeView, st.Mode)
	assert.False(t, st.Dirty)
	assert.Equal(t, []string{"Northern Region", "Harbour Station"}, st.Breadcrumb.Titles())
}

func TestEditOperationsRequireEditMode(t *testing.T) {
	c := newController(t, newTestBackend(t))
	openLeaf(t, c, "leaf-topo-1")

	assert.ErrorIs(t, c.MoveNode("r1", graph.Position{X: 1}), ErrNotEditing)
	_, err := c.Connect(ConnectSpec{Source: "r1", Target: "d2"})
	assert.ErrorIs(t, err, ErrNotEditing)
	assert.ErrorIs(t, c.RemoveSelected(), ErrNotEditing)
	assert.ErrorIs(t, c.Save(context.Background()), ErrNotEditing)
	assert.ErrorIs(t, c.Cancel(context.Background()), ErrNotEditing)
}

func TestEnterEditRequiresLoadedDocument(t *testing.T) {
	c := newController(t, newTestBackend(t))
	assert.ErrorIs(t, c.EnterEdit(), ErrNoDocument)

	openLeaf(t, c, "leaf-rack-7")
	require.NoError(t, c.EnterEdit())
	assert.ErrorIs(t, c.EnterEdit(), ErrAlreadyEditing)
	assert.ErrorIs(t, c.Refresh(context.Background()), ErrAlreadyEditing)
}

func TestSelectionFollowsMode(t *testing.T) {
	c := newController(t, newTestBackend(t))
	openLeaf(t, c, "leaf-topo-1")

	assert.ErrorIs(t, c.SelectNode("dc-east", false), selection.ErrNotSelectable)
	assert.ErrorIs(t, c.SelectNode("legacy-probe", false), selection.ErrNotSelectable)
	require.NoError(t, c.SelectNode("r1", false))
	assert.ErrorIs(t, c.SelectNode("d1", true), selection.ErrMultiSelectInView)
	require.NoError(t, c.SelectEdge("e-r1-d1"))
	assert.Equal(t, graph.EdgeID("e-r1-d1"), c.State().SelectedEdgeID)
	assert.Empty(t, c.State().SelectedNodeIDs)

	require.NoError(t, c.SelectDevice("d2"))
	assert.Equal(t, []graph.NodeID{"d2"}, c.State().SelectedNodeIDs)

	require.NoError(t, c.EnterEdit())
	assert.Empty(t, c.State().SelectedNodeIDs, "entering edit clears the selection")
	require.NoError(t, c.SelectNode("dc-east", false))
	require.NoError(t, c.SelectNode("r1", true))
	assert.Equal(t, []graph.NodeID{"dc-east", "r1"}, c.State().SelectedNodeIDs)

	require.NoError(t, c.ClearSelection())
	assert.Empty(t, c.State().SelectedNodeIDs)
}

func TestMarqueeOfFrameKeepsSelectionInView(t *testing.T) {
	c := newController(t, newTestBackend(t))
	openLeaf(t, c, "leaf-rack-7")

	require.NoError(t, c.SelectNode("d1", false))
	assert.ErrorIs(t, c.SelectNodes([]graph.NodeID{"frame-a"}), selection.ErrNotSelectable)
	assert.Equal(t, []graph.NodeID{"d1"}, c.State().SelectedNodeIDs)
}

func TestTopologyEditing(t *testing.T) {
	c := newController(t, newTestBackend(t), WithLayout(layout.Config{Width: 800, Height: 600, Seed: 1}))
	openLeaf(t, c, "leaf-topo-1")
	require.NoError(t, c.EnterEdit())

	id, err := c.Connect(ConnectSpec{Source: "r1", Target: "d2"})
	require.NoError(t, err)
	assert.Equal(t, id, c.State().SelectedEdgeID)
	assert.Len(t, c.Edges(), 3)

	_, err = c.Connect(ConnectSpec{Source: "r1", Target: "legacy-probe"})
	assert.ErrorIs(t, err, selection.ErrNotSelectable)

	require.NoError(t, c.ResizeNode("dc-east", graph.Size{W: 600, H: 300}))
	assert.ErrorIs(t, c.ResizeNode("r1", graph.Size{W: 1, H: 1}), ErrNotResizable)

	frame, err := c.AddFrameNode(nodefactory.FrameSection, "DC West")
	require.NoError(t, err)
	assert.Equal(t, graph.VariantSection, frame.Variant())

	before := findNode(t, c.Nodes(), "legacy-probe").Position
	require.NoError(t, c.AutoLayout(layout.Circular))
	assert.Equal(t, before, findNode(t, c.Nodes(), "legacy-probe").Position)

	require.NoError(t, c.SelectNode("d1", false))
	require.NoError(t, c.RemoveSelected())
	for _, e := range c.Edges() {
		assert.False(t, e.Touches("d1"))
	}
	require.NoError(t, c.Save(context.Background()))
	assert.Len(t, c.Edges(), 1)
}

func TestAutoLayoutRefusedOnRacks(t *testing.T) {
	c := newController(t, newTestBackend(t))
	openLeaf(t, c, "leaf-rack-7")
	require.NoError(t, c.EnterEdit())

	assert.ErrorIs(t, c.AutoLayout(layout.Hierarchical), ErrLayoutUnsupported)
}

func TestDeleteDocument(t *testing.T) {
	c := newController(t, newTestBackend(t))
	ctx := context.Background()
	openLeaf(t, c, "leaf-rack-7")

	require.NoError(t, c.EnterEdit())
	assert.ErrorIs(t, c.DeleteDocument(ctx, "leaf-rack-7"), ErrDeleteWhileEditing)
	require.NoError(t, c.DeleteDocument(ctx, "leaf-topo-1"))
	assert.Equal(t, graph.ModeEdit, c.State().Mode)

	require.NoError(t, c.Cancel(ctx))
	require.NoError(t, c.DeleteDocument(ctx, "leaf-rack-7"))

	st := c.State()
	assert.Empty(t, st.MapID)
	assert.Equal(t, StatusIdle, st.DocStatus)
	assert.False(t, st.Polling)
	assert.Len(t, c.tree.Leaves(), 1)
}

func TestEditRefusedWhileOpenDocumentIsDeleted(t *testing.T) {
	b := newTestBackend(t)
	c := newController(t, b)
	ctx := context.Background()
	openLeaf(t, c, "leaf-rack-7")

	release := make(chan struct{})
	b.set(func(b *testBackend) { b.holdDelete["rack-7"] = release })

	done := make(chan error, 1)
	go func() { done <- c.DeleteDocument(ctx, "leaf-rack-7") }()
	assert.Equal(t, "rack-7", <-b.entered)

	assert.ErrorIs(t, c.EnterEdit(), ErrDeleteInProgress)
	assert.ErrorIs(t, c.MoveNode("d2", graph.Position{X: 120, Y: 40}), ErrNotEditing)
	assert.ErrorIs(t, c.DeleteDocument(ctx, "leaf-rack-7"), ErrDeleteInProgress)
	assert.Equal(t, graph.ModeView, c.State().Mode)

	close(release)
	require.NoError(t, <-done)

	st := c.State()
	assert.Equal(t, graph.ModeView, st.Mode)
	assert.False(t, st.Dirty)
	assert.Empty(t, st.MapID)
}

func TestFailedDeleteKeepsDocumentEditable(t *testing.T) {
	b := newTestBackend(t)
	c := newController(t, b)
	openLeaf(t, c, "leaf-rack-7")

	ctx, cancel := context.WithCancel(context.Background())
	b.set(func(b *testBackend) { b.holdDelete["rack-7"] = make(chan struct{}) })

	done := make(chan error, 1)
	go func() { done <- c.DeleteDocument(ctx, "leaf-rack-7") }()
	assert.Equal(t, "rack-7", <-b.entered)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, "rack-7", c.State().MapID)
	require.NoError(t, c.EnterEdit())
}

func TestCreateAndRenameDocument(t *testing.T) {
	c := newController(t, newTestBackend(t))
	ctx := context.Background()

	leaf, err := c.CreateDocument(ctx, "st-ridge", "Ridge Core", graph.KindTopology)
	require.NoError(t, err)
	openLeaf(t, c, leaf.Key)
	assert.Equal(t, []string{"Northern Region", "Ridge Station"}, c.State().Breadcrumb.Titles())
	assert.Empty(t, c.Nodes())

	require.NoError(t, c.RenameDocument(ctx, leaf.Key, "Ridge Backbone"))
	renamed, err := c.tree.Leaf(leaf.Key)
	require.NoError(t, err)
	assert.Equal(t, "Ridge Backbone", renamed.Title)
}

func TestSetUpdateInterval(t *testing.T) {
	c := newController(t, newTestBackend(t))
	openLeaf(t, c, "leaf-geo-1")

	assert.Equal(t, 60.0, c.State().PollSeconds)
	assert.ErrorIs(t, c.SetUpdateInterval(500*time.Millisecond), ErrInvalidInterval)

	require.NoError(t, c.SetUpdateInterval(5*time.Second))
	assert.Equal(t, 5.0, c.State().PollSeconds)

	require.NoError(t, c.SetUpdateInterval(0))
	assert.Equal(t, 60.0, c.State().PollSeconds)
}

func TestSubscribeSeesDocumentReady(t *testing.T) {
	c := newController(t, newTestBackend(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, err := c.Subscribe(ctx)
	require.NoError(t, err)
	openLeaf(t, c, "leaf-rack-7")

	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-sub.Channel():
			if ev.Kind == EventDocument && ev.State.DocStatus == StatusReady {
				assert.Equal(t, "rack-7", ev.State.MapID)
				return
			}
		case <-timeout:
			t.Fatal("no ready event")
		}
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	c := New(newTestBackend(t))
	require.NoError(t, c.LoadTree(context.Background()))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.SelectLeaf(context.Background(), "leaf-rack-7"), ErrClosed)
}

func TestEditsNeverTouchAuthoritativeDocument(t *testing.T) {
	c := newController(t, newTestBackend(t))
	openLeaf(t, c, "leaf-rack-7")
	ids := []graph.NodeID{"frame-a", "d1", "d2", "d3"}

	positions := func() map[graph.NodeID]graph.Position {
		out := map[graph.NodeID]graph.Position{}
		for _, n := range c.store.Nodes() {
			out[n.ID] = n.Position
		}
		return out
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("working copy edits stay private until saved", prop.ForAll(
		func(xs []float64) bool {
			before := positions()
			if err := c.EnterEdit(); err != nil {
				return false
			}
			for i, x := range xs {
				if err := c.MoveNode(ids[i%len(ids)], graph.Position{X: x, Y: -x}); err != nil {
					return false
				}
			}
			after := positions()
			if err := c.Cancel(context.Background()); err != nil {
				return false
			}
			for id, p := range before {
				if after[id] != p {
					return false
				}
			}
			return len(after) == len(before)
		},
		gen.SliceOf(gen.Float64Range(-1000, 1000)),
	))

	properties.TestingRun(t)
}
