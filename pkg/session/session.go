// Package session implements the view/edit lifecycle of an open diagram.
//
// EditSession is a plain value: every transition function takes a session
// and returns a new one, leaving its input untouched. The working copy is
// built by copy-on-write, so no edit can reach the authoritative document
// held by graph.Store until a save has been acknowledged and the document
// refetched. Controller wires these functions to the backend, the overlay
// poller and the selection rules.
package session

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/selection"
)

var (
	ErrNotEditing         = errors.New("not in edit mode")
	ErrAlreadyEditing     = errors.New("already in edit mode")
	ErrNoDocument         = errors.New("no document is open")
	ErrSaveFailed         = errors.New("save failed")
	ErrSaveInProgress     = errors.New("a save is already in progress")
	ErrDeleteWhileEditing = errors.New("cannot delete the open document while editing")
	ErrDeleteInProgress   = errors.New("the open document is being deleted")
	ErrNotMovable         = errors.New("node cannot be moved")
	ErrNotResizable       = errors.New("node cannot be resized")
	ErrSelfLoop           = errors.New("edge source and target are the same node")
	ErrLayoutUnsupported  = errors.New("auto-layout is only available on topology documents")
	ErrClosed             = errors.New("controller is closed")
)

// EditSession is the mode and working copy of the open document. Working is
// nil in view mode.
type EditSession struct {
	Mode      graph.Mode
	MapID     string
	Working   *graph.Document
	Selection selection.State
	// Dirty reports whether the working copy has been changed since it was
	// taken.
	Dirty bool
}

// NewSession returns the view-mode session of a freshly selected document.
func NewSession(mapID string) EditSession {
	return EditSession{Mode: graph.ModeView, MapID: mapID}
}

// Editing reports whether the session holds a working copy.
func (s EditSession) Editing() bool {
	return s.Mode == graph.ModeEdit && s.Working != nil
}

// EnterEdit snapshots doc into a working copy and clears the selection.
func EnterEdit(s EditSession, doc graph.Document) (EditSession, error) {
	if s.Mode == graph.ModeEdit {
		return s, ErrAlreadyEditing
	}
	if s.MapID == "" || doc.MapID != s.MapID {
		return s, fmt.Errorf("%w: session %q, document %q", ErrNoDocument, s.MapID, doc.MapID)
	}
	working := doc.Clone()
	return EditSession{
		Mode:    graph.ModeEdit,
		MapID:   s.MapID,
		Working: &working,
	}, nil
}

// Save returns the document to persist. The session itself does not change
// until CompleteSave reports the outcome.
func Save(s EditSession) (graph.Document, error) {
	if !s.Editing() {
		return graph.Document{}, ErrNotEditing
	}
	doc := s.Working.Clone()
	if err := doc.Validate(); err != nil {
		return graph.Document{}, err
	}
	return doc, nil
}

// CompleteSave applies the outcome of a save. On failure the session stays
// in edit mode with its working copy and the cause is wrapped in
// ErrSaveFailed. On success the working copy is discarded.
func CompleteSave(s EditSession, saveErr error) (EditSession, error) {
	if !s.Editing() {
		return s, ErrNotEditing
	}
	if saveErr != nil {
		return s, fmt.Errorf("%w: %w", ErrSaveFailed, saveErr)
	}
	return NewSession(s.MapID), nil
}

// Cancel discards the working copy unconditionally.
func Cancel(s EditSession) (EditSession, error) {
	if !s.Editing() {
		return s, ErrNotEditing
	}
	return NewSession(s.MapID), nil
}

// WithSelection replaces the selection.
func WithSelection(s EditSession, sel selection.State) EditSession {
	s.Selection = sel.Clone()
	return s
}

// edit runs fn on a private copy of the working document.
func edit(s EditSession, fn func(doc *graph.Document) (selection.State, error)) (EditSession, error) {
	if !s.Editing() {
		return s, ErrNotEditing
	}
	doc := s.Working.Clone()
	sel, err := fn(&doc)
	if err != nil {
		return s, err
	}
	return EditSession{
		Mode:      graph.ModeEdit,
		MapID:     s.MapID,
		Working:   &doc,
		Selection: sel,
		Dirty:     true,
	}, nil
}

func nodeIndex(doc *graph.Document, id graph.NodeID) (int, error) {
	i := slices.IndexFunc(doc.Nodes, func(n *graph.Node) bool { return n.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", graph.ErrUnknownNode, id)
	}
	return i, nil
}

func edgeIndex(doc *graph.Document, id graph.EdgeID) (int, error) {
	i := slices.IndexFunc(doc.Edges, func(e graph.Edge) bool { return e.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", graph.ErrUnknownEdge, id)
	}
	return i, nil
}

// MoveNode drags a node to pos.
func MoveNode(s EditSession, id graph.NodeID, pos graph.Position) (EditSession, error) {
	return edit(s, func(doc *graph.Document) (selection.State, error) {
		i, err := nodeIndex(doc, id)
		if err != nil {
			return s.Selection, err
		}
		if !graph.Dispatch(doc.Nodes[i], movable{}) {
			return s.Selection, fmt.Errorf("%w: %s", ErrNotMovable, id)
		}
		doc.Nodes[i] = doc.Nodes[i].WithPosition(pos)
		return s.Selection, nil
	})
}

// ApplyPositions moves several nodes at once, as auto-layout does. Ids that
// are not on the working copy, or that cannot move, are ignored.
func ApplyPositions(s EditSession, positions map[graph.NodeID]graph.Position) (EditSession, error) {
	return edit(s, func(doc *graph.Document) (selection.State, error) {
		for i, n := range doc.Nodes {
			if pos, ok := positions[n.ID]; ok && graph.Dispatch(n, movable{}) {
				doc.Nodes[i] = n.WithPosition(pos)
			}
		}
		return s.Selection, nil
	})
}

// ResizeNode changes the extent of a resizable node.
func ResizeNode(s EditSession, id graph.NodeID, size graph.Size) (EditSession, error) {
	return edit(s, func(doc *graph.Document) (selection.State, error) {
		i, err := nodeIndex(doc, id)
		if err != nil {
			return s.Selection, err
		}
		if !graph.Dispatch(doc.Nodes[i], resizable{}) {
			return s.Selection, fmt.Errorf("%w: %s node %s", ErrNotResizable, doc.Nodes[i].Variant(), id)
		}
		if size.W <= 0 || size.H <= 0 {
			return s.Selection, fmt.Errorf("%w: size %vx%v", ErrNotResizable, size.W, size.H)
		}
		doc.Nodes[i] = doc.Nodes[i].WithSize(size)
		return s.Selection, nil
	})
}

// ConnectSpec describes a new topology link. An empty ID is replaced by a
// fresh uuid.
type ConnectSpec struct {
	ID           graph.EdgeID
	Source       graph.NodeID
	Target       graph.NodeID
	SourceHandle string
	TargetHandle string
}

// Connect adds an edge between two nodes of a topology document and selects
// it.
func Connect(s EditSession, spec ConnectSpec) (EditSession, error) {
	return edit(s, func(doc *graph.Document) (selection.State, error) {
		if !doc.Kind.HasEdges() {
			return s.Selection, fmt.Errorf("%w: %s", graph.ErrEdgeNotAllowed, doc.Kind)
		}
		if spec.Source == spec.Target {
			return s.Selection, fmt.Errorf("%w: %s", ErrSelfLoop, spec.Source)
		}
		for _, id := range []graph.NodeID{spec.Source, spec.Target} {
			i, err := nodeIndex(doc, id)
			if err != nil {
				return s.Selection, err
			}
			if doc.Nodes[i].IsFallback() {
				return s.Selection, fmt.Errorf("%w: %s", selection.ErrNotSelectable, id)
			}
		}
		if spec.ID == "" {
			spec.ID = graph.EdgeID(uuid.NewString())
		}
		if _, err := edgeIndex(doc, spec.ID); err == nil {
			return s.Selection, fmt.Errorf("%w: %s", graph.ErrDuplicateEdge, spec.ID)
		}
		doc.Edges = append(doc.Edges, graph.Edge{
			ID:           spec.ID,
			Source:       spec.Source,
			Target:       spec.Target,
			SourceHandle: spec.SourceHandle,
			TargetHandle: spec.TargetHandle,
			Style:        graph.DefaultEdgeStyle,
		})
		return selection.State{EdgeID: spec.ID}, nil
	})
}

// UpdateEdgeStyle restyles an edge. A nil animated leaves the flag as is.
func UpdateEdgeStyle(s EditSession, id graph.EdgeID, style graph.EdgeStyle, animated *bool) (EditSession, error) {
	return edit(s, func(doc *graph.Document) (selection.State, error) {
		i, err := edgeIndex(doc, id)
		if err != nil {
			return s.Selection, err
		}
		doc.Edges[i].Style = style
		if animated != nil {
			doc.Edges[i].Animated = *animated
		}
		return s.Selection, nil
	})
}

// RemoveSelected deletes the selected nodes together with every edge that
// touches them, or the selected edge. With nothing selected the session is
// returned unchanged.
func RemoveSelected(s EditSession) (EditSession, error) {
	if !s.Editing() {
		return s, ErrNotEditing
	}
	if s.Selection.IsEmpty() {
		return s, nil
	}
	return edit(s, func(doc *graph.Document) (selection.State, error) {
		doc.Nodes = slices.DeleteFunc(doc.Nodes, func(n *graph.Node) bool {
			return s.Selection.Has(n.ID)
		})
		doc.Edges = slices.DeleteFunc(doc.Edges, func(e graph.Edge) bool {
			return e.ID == s.Selection.EdgeID || s.Selection.Has(e.Source) || s.Selection.Has(e.Target)
		})
		return selection.State{}, nil
	})
}

// AddNode appends a new node to the working copy and selects it.
func AddNode(s EditSession, n *graph.Node) (EditSession, error) {
	return edit(s, func(doc *graph.Document) (selection.State, error) {
		if n == nil {
			return s.Selection, fmt.Errorf("%w: nil node", graph.ErrUnknownNode)
		}
		if _, err := nodeIndex(doc, n.ID); err == nil {
			return s.Selection, fmt.Errorf("%w: %s", graph.ErrDuplicateNode, n.ID)
		}
		doc.Nodes = append(doc.Nodes, n)
		return selection.State{NodeIDs: []graph.NodeID{n.ID}}, nil
	})
}
