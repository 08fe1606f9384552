// Package selection applies the mode- and variant-dependent rules for what
// the operator may select on a diagram.
package selection

import (
	"errors"
	"fmt"
	"slices"

	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/logging"
)

var (
	ErrNotSelectable     = errors.New("target is not selectable in this mode")
	ErrMultiSelectInView = errors.New("multi-select is only available while editing")
)

// State is the current selection. Node and edge selection are mutually
// exclusive: at most one of NodeIDs and EdgeID is set.
type State struct {
	NodeIDs []graph.NodeID `json:"nodeIds"`
	EdgeID  graph.EdgeID   `json:"edgeId,omitempty"`
}

// Primary returns the first selected node, or "".
func (s State) Primary() graph.NodeID {
	if len(s.NodeIDs) == 0 {
		return ""
	}
	return s.NodeIDs[0]
}

// Has reports whether id is among the selected nodes.
func (s State) Has(id graph.NodeID) bool {
	return slices.Contains(s.NodeIDs, id)
}

// IsEmpty reports whether nothing is selected.
func (s State) IsEmpty() bool {
	return len(s.NodeIDs) == 0 && s.EdgeID == ""
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	return State{NodeIDs: slices.Clone(s.NodeIDs), EdgeID: s.EdgeID}
}

// Lookup resolves ids against the document the selection applies to.
type Lookup interface {
	Node(id graph.NodeID) (*graph.Node, bool)
	Edge(id graph.EdgeID) (graph.Edge, bool)
}

type documentLookup struct {
	doc *graph.Document
}

func (l documentLookup) Node(id graph.NodeID) (*graph.Node, bool) { return l.doc.NodeByID(id) }
func (l documentLookup) Edge(id graph.EdgeID) (graph.Edge, bool)  { return l.doc.EdgeByID(id) }

// DocumentLookup adapts a document, typically the edit working copy.
func DocumentLookup(doc *graph.Document) Lookup {
	return documentLookup{doc: doc}
}

// Coordinator validates selection requests. Every method returns the new
// state; on error the returned state is the unchanged input.
type Coordinator struct {
	logger logging.Logger
}

// NewCoordinator creates a coordinator. A nil logger discards output.
func NewCoordinator(logger logging.Logger) *Coordinator {
	return &Coordinator{logger: logging.OrNop(logger).With(logging.Component("selection"))}
}

// SelectNode selects a single node, or with additive toggles it in the
// current multi-selection.
func (c *Coordinator) SelectNode(s State, mode graph.Mode, lookup Lookup, id graph.NodeID, additive bool) (State, error) {
	n, ok := lookup.Node(id)
	if !ok {
		return s, fmt.Errorf("%w: %s", graph.ErrUnknownNode, id)
	}
	if !graph.Interactable(n, mode) {
		c.logger.Debug("selection refused", logging.NodeID(id), logging.Mode(mode))
		return s, fmt.Errorf("%w: %s node %s", ErrNotSelectable, n.Variant(), id)
	}
	if !additive {
		return State{NodeIDs: []graph.NodeID{id}}, nil
	}
	if mode != graph.ModeEdit {
		return s, ErrMultiSelectInView
	}

	ids := slices.Clone(s.NodeIDs)
	if i := slices.Index(ids, id); i >= 0 {
		ids = slices.Delete(ids, i, i+1)
	} else {
		ids = append(ids, id)
	}
	return State{NodeIDs: ids}, nil
}

// SelectNodes replaces the selection with every interactable node among ids,
// as a rectangle selection does. A single id follows the SelectNode rules.
// With several ids, which needs edit mode, targets that cannot be selected
// are skipped, but at least one must remain. An empty ids clears the
// selection.
func (c *Coordinator) SelectNodes(s State, mode graph.Mode, lookup Lookup, ids []graph.NodeID) (State, error) {
	switch {
	case len(ids) == 0:
		return State{}, nil
	case len(ids) == 1:
		return c.SelectNode(s, mode, lookup, ids[0], false)
	case mode != graph.ModeEdit:
		return s, ErrMultiSelectInView
	}

	out := make([]graph.NodeID, 0, len(ids))
	for _, id := range ids {
		n, ok := lookup.Node(id)
		if !ok || !graph.Interactable(n, mode) || slices.Contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	if len(out) == 0 {
		c.logger.Debug("marquee selected nothing", logging.Int("requested", len(ids)), logging.Mode(mode))
		return s, fmt.Errorf("%w: none of %d targets", ErrNotSelectable, len(ids))
	}
	return State{NodeIDs: out}, nil
}

// SelectEdge selects a single edge and clears any node selection.
func (c *Coordinator) SelectEdge(s State, _ graph.Mode, lookup Lookup, id graph.EdgeID) (State, error) {
	if _, ok := lookup.Edge(id); !ok {
		return s, fmt.Errorf("%w: %s", graph.ErrUnknownEdge, id)
	}
	return State{EdgeID: id}, nil
}

// Clear resets both node and edge selection, as a background click does.
func (c *Coordinator) Clear() State {
	return State{}
}

// Prune drops ids that no longer resolve, for example after a reload or a
// removal.
func (c *Coordinator) Prune(s State, lookup Lookup) State {
	out := State{}
	for _, id := range s.NodeIDs {
		if _, ok := lookup.Node(id); ok {
			out.NodeIDs = append(out.NodeIDs, id)
		}
	}
	if s.EdgeID != "" {
		if _, ok := lookup.Edge(s.EdgeID); ok {
			out.EdgeID = s.EdgeID
		}
	}
	return out
}
