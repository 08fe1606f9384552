package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/selection"
)

func device(id, key string, x, y float64) *graph.Node {
	return &graph.Node{
		ID:         graph.NodeID(id),
		Position:   graph.Position{X: x, Y: y},
		Selectable: true,
		Draggable:  true,
		Payload: &graph.NetworkDevicePayload{
			DeviceRef: graph.DeviceRef{DeviceKey: graph.DeviceKey(key), Name: id},
		},
	}
}

func topologyDoc() graph.Document {
	return graph.Document{
		MapID: "topo",
		Kind:  graph.KindTopology,
		Nodes: []*graph.Node{
			{ID: "zone", Size: &graph.Size{W: 400, H: 300}, Payload: &graph.SectionPayload{Label: "Zone"}},
			device("a", "ka", 0, 0),
			device("b", "kb", 100, 0),
			device("c", "kc", 200, 0),
		},
		Edges: []graph.Edge{
			{ID: "a-b", Source: "a", Target: "b", Style: graph.DefaultEdgeStyle},
			{ID: "b-c", Source: "b", Target: "c", Style: graph.DefaultEdgeStyle},
		},
	}
}

func editing(t *testing.T, doc graph.Document) EditSession {
	t.Helper()
	s, err := EnterEdit(NewSession(doc.MapID), doc)
	require.NoError(t, err)
	return s
}

func TestEnterEdit(t *testing.T) {
	doc := topologyDoc()

	_, err := EnterEdit(NewSession("other"), doc)
	assert.ErrorIs(t, err, ErrNoDocument)

	s := NewSession(doc.MapID)
	s.Selection = selection.State{NodeIDs: []graph.NodeID{"a"}}
	s, err = EnterEdit(s, doc)
	require.NoError(t, err)
	assert.True(t, s.Editing())
	assert.False(t, s.Dirty)
	assert.True(t, s.Selection.IsEmpty())

	_, err = EnterEdit(s, doc)
	assert.ErrorIs(t, err, ErrAlreadyEditing)
}

func TestEditsNeverReachTheSource(t *testing.T) {
	doc := topologyDoc()
	s := editing(t, doc)

	moved, err := MoveNode(s, "a", graph.Position{X: 50, Y: 60})
	require.NoError(t, err)
	assert.True(t, moved.Dirty)

	n, _ := moved.Working.NodeByID("a")
	assert.Equal(t, graph.Position{X: 50, Y: 60}, n.Position)

	orig, _ := doc.NodeByID("a")
	assert.Equal(t, graph.Position{}, orig.Position)
	prev, _ := s.Working.NodeByID("a")
	assert.Equal(t, graph.Position{}, prev.Position)
	assert.False(t, s.Dirty)

	// Unmoved nodes are shared.
	bNew, _ := moved.Working.NodeByID("b")
	bOld, _ := s.Working.NodeByID("b")
	assert.Same(t, bOld, bNew)
}

func TestEditsRequireEditMode(t *testing.T) {
	s := NewSession("topo")

	_, err := MoveNode(s, "a", graph.Position{})
	assert.ErrorIs(t, err, ErrNotEditing)
	_, err = RemoveSelected(s)
	assert.ErrorIs(t, err, ErrNotEditing)
	_, err = Save(s)
	assert.ErrorIs(t, err, ErrNotEditing)
	_, err = Cancel(s)
	assert.ErrorIs(t, err, ErrNotEditing)
}

func TestMoveAndResizeRules(t *testing.T) {
	doc := topologyDoc()
	doc.Nodes = append(doc.Nodes, &graph.Node{ID: "ghost", Payload: &graph.FallbackPayload{Type: "probe"}})
	s := editing(t, doc)

	_, err := MoveNode(s, "ghost", graph.Position{X: 1})
	assert.ErrorIs(t, err, ErrNotMovable)
	_, err = MoveNode(s, "missing", graph.Position{X: 1})
	assert.ErrorIs(t, err, graph.ErrUnknownNode)

	_, err = ResizeNode(s, "a", graph.Size{W: 10, H: 10})
	assert.ErrorIs(t, err, ErrNotResizable)
	_, err = ResizeNode(s, "zone", graph.Size{W: 0, H: 10})
	assert.ErrorIs(t, err, ErrNotResizable)

	resized, err := ResizeNode(s, "zone", graph.Size{W: 640, H: 480})
	require.NoError(t, err)
	zone, _ := resized.Working.NodeByID("zone")
	require.NotNil(t, zone.Size)
	assert.Equal(t, graph.Size{W: 640, H: 480}, *zone.Size)
}

func TestMoveHonoursDraggableFlag(t *testing.T) {
	doc := topologyDoc()
	pinned := device("p", "kp", 300, 0)
	pinned.Draggable = false
	doc.Nodes = append(doc.Nodes, pinned)
	s := editing(t, doc)

	_, err := MoveNode(s, "p", graph.Position{X: 1})
	assert.ErrorIs(t, err, ErrNotMovable)

	s, err = ApplyPositions(s, map[graph.NodeID]graph.Position{"p": {X: 5, Y: 5}, "a": {X: 6, Y: 6}})
	require.NoError(t, err)
	p, _ := s.Working.NodeByID("p")
	a, _ := s.Working.NodeByID("a")
	assert.Equal(t, graph.Position{X: 300, Y: 0}, p.Position)
	assert.Equal(t, graph.Position{X: 6, Y: 6}, a.Position)
}

func TestApplyPositionsSkipsUnknownAndInert(t *testing.T) {
	doc := topologyDoc()
	doc.Nodes = append(doc.Nodes, &graph.Node{ID: "ghost", Payload: &graph.FallbackPayload{Type: "probe"}})
	s := editing(t, doc)

	s, err := ApplyPositions(s, map[graph.NodeID]graph.Position{
		"a":       {X: 7, Y: 8},
		"ghost":   {X: 9, Y: 9},
		"missing": {X: 1, Y: 1},
	})
	require.NoError(t, err)
	a, _ := s.Working.NodeByID("a")
	ghost, _ := s.Working.NodeByID("ghost")
	assert.Equal(t, graph.Position{X: 7, Y: 8}, a.Position)
	assert.Equal(t, graph.Position{}, ghost.Position)
}

func TestConnect(t *testing.T) {
	s := editing(t, topologyDoc())

	_, err := Connect(s, ConnectSpec{Source: "a", Target: "a"})
	assert.ErrorIs(t, err, ErrSelfLoop)
	_, err = Connect(s, ConnectSpec{Source: "a", Target: "nope"})
	assert.ErrorIs(t, err, graph.ErrUnknownNode)
	_, err = Connect(s, ConnectSpec{ID: "a-b", Source: "a", Target: "c"})
	assert.ErrorIs(t, err, graph.ErrDuplicateEdge)

	s, err = Connect(s, ConnectSpec{Source: "a", Target: "c", SourceHandle: "right"})
	require.NoError(t, err)
	require.Len(t, s.Working.Edges, 3)
	e := s.Working.Edges[2]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, graph.DefaultEdgeStyle, e.Style)
	assert.Equal(t, "right", e.SourceHandle)
	assert.Equal(t, e.ID, s.Selection.EdgeID)
	assert.NoError(t, s.Working.Validate())
}

func TestConnectRefusedOnRackDocuments(t *testing.T) {
	doc := graph.Document{MapID: "rack", Kind: graph.KindRack, Nodes: []*graph.Node{
		device("a", "ka", 0, 0),
		device("b", "kb", 0, 40),
	}}
	s := editing(t, doc)

	_, err := Connect(s, ConnectSpec{Source: "a", Target: "b"})
	assert.ErrorIs(t, err, graph.ErrEdgeNotAllowed)
}

func TestUpdateEdgeStyle(t *testing.T) {
	s := editing(t, topologyDoc())
	on := true

	s, err := UpdateEdgeStyle(s, "a-b", graph.EdgeStyle{CurveType: graph.CurveBezier, Thickness: 4}, &on)
	require.NoError(t, err)
	e, _ := s.Working.EdgeByID("a-b")
	assert.Equal(t, 4.0, e.Style.Thickness)
	assert.True(t, e.Animated)

	_, err = UpdateEdgeStyle(s, "zz", graph.DefaultEdgeStyle, nil)
	assert.ErrorIs(t, err, graph.ErrUnknownEdge)
}

func TestRemoveSelected(t *testing.T) {
	s := editing(t, topologyDoc())

	same, err := RemoveSelected(s)
	require.NoError(t, err)
	assert.False(t, same.Dirty)

	s = WithSelection(s, selection.State{NodeIDs: []graph.NodeID{"b"}})
	s, err = RemoveSelected(s)
	require.NoError(t, err)
	assert.Len(t, s.Working.Nodes, 3)
	assert.Empty(t, s.Working.Edges, "edges touching b go with it")
	assert.True(t, s.Selection.IsEmpty())
	assert.NoError(t, s.Working.Validate())

	s = editing(t, topologyDoc())
	s = WithSelection(s, selection.State{EdgeID: "b-c"})
	s, err = RemoveSelected(s)
	require.NoError(t, err)
	assert.Len(t, s.Working.Nodes, 4)
	require.Len(t, s.Working.Edges, 1)
	assert.Equal(t, graph.EdgeID("a-b"), s.Working.Edges[0].ID)
}

func TestAddNode(t *testing.T) {
	s := editing(t, topologyDoc())

	s, err := AddNode(s, device("d", "kd", 300, 0))
	require.NoError(t, err)
	assert.Len(t, s.Working.Nodes, 5)
	assert.Equal(t, []graph.NodeID{"d"}, s.Selection.NodeIDs)

	_, err = AddNode(s, device("d", "kd", 300, 0))
	assert.ErrorIs(t, err, graph.ErrDuplicateNode)
}

func TestSaveAndCompleteSave(t *testing.T) {
	s := editing(t, topologyDoc())
	s, err := MoveNode(s, "a", graph.Position{X: 1, Y: 2})
	require.NoError(t, err)

	doc, err := Save(s)
	require.NoError(t, err)
	assert.Equal(t, "topo", doc.MapID)
	assert.Len(t, doc.Nodes, 4)

	failed, err := CompleteSave(s, assert.AnError)
	assert.ErrorIs(t, err, ErrSaveFailed)
	assert.ErrorIs(t, err, assert.AnError)
	assert.True(t, failed.Editing())
	assert.True(t, failed.Dirty)
	a, _ := failed.Working.NodeByID("a")
	assert.Equal(t, graph.Position{X: 1, Y: 2}, a.Position)

	done, err := CompleteSave(s, nil)
	require.NoError(t, err)
	assert.Equal(t, graph.ModeView, done.Mode)
	assert.Nil(t, done.Working)
	assert.Equal(t, "topo", done.MapID)
}

func TestSaveRefusesBrokenWorkingCopy(t *testing.T) {
	s := editing(t, topologyDoc())
	s.Working.Edges = append(s.Working.Edges, graph.Edge{ID: "dangling", Source: "a", Target: "gone"})

	_, err := Save(s)
	require.Error(t, err)
	assert.True(t, graph.IsIntegrityError(err))
}
