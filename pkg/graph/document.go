package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mkmik/multierror"
)

// Document is the node and edge payload of one tree leaf.
type Document struct {
	MapID string
	Kind  DocumentKind
	Name  string
	// UpdateInterval overrides the overlay poll interval for this map (geo
	// views carry their own). Zero means the configured default.
	UpdateInterval time.Duration
	Nodes          []*Node
	Edges          []Edge
}

// WireDocument is the persisted shape: {dataNode, edgeNode}.
type WireDocument struct {
	MapID          string       `json:"mapId,omitempty"`
	Kind           DocumentKind `json:"kind,omitempty"`
	Name           string       `json:"name,omitempty"`
	UpdateInterval int          `json:"updateInterval,omitempty"`
	DataNode       []*Node      `json:"dataNode"`
	EdgeNode       []Edge       `json:"edgeNode"`
}

// Wire converts the document to its persisted shape.
func (d Document) Wire() WireDocument {
	nodes := d.Nodes
	if nodes == nil {
		nodes = []*Node{}
	}
	edges := d.Edges
	if edges == nil {
		edges = []Edge{}
	}
	return WireDocument{
		MapID:          d.MapID,
		Kind:           d.Kind,
		Name:           d.Name,
		UpdateInterval: int(d.UpdateInterval / time.Second),
		DataNode:       nodes,
		EdgeNode:       edges,
	}
}

// Document converts the persisted shape back into a Document.
func (w WireDocument) Document() Document {
	return Document{
		MapID:          w.MapID,
		Kind:           w.Kind,
		Name:           w.Name,
		UpdateInterval: time.Duration(w.UpdateInterval) * time.Second,
		Nodes:          w.DataNode,
		Edges:          w.EdgeNode,
	}
}

func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Wire())
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var w WireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*d = w.Document()
	return nil
}

// Clone copies the node and edge slices. Nodes are shared, since they are
// never modified in place.
func (d Document) Clone() Document {
	c := d
	c.Nodes = append([]*Node(nil), d.Nodes...)
	c.Edges = make([]Edge, len(d.Edges))
	for i, e := range d.Edges {
		c.Edges[i] = e.clone()
	}
	return c
}

// NodeByID returns the node with the given id.
func (d Document) NodeByID(id NodeID) (*Node, bool) {
	for _, n := range d.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return nil, false
}

// EdgeByID returns the edge with the given id.
func (d Document) EdgeByID(id EdgeID) (Edge, bool) {
	for _, e := range d.Edges {
		if e.ID == id {
			return e, true
		}
	}
	return Edge{}, false
}

// FallbackNodes returns the nodes that failed to decode into their variant.
func (d Document) FallbackNodes() []*Node {
	var out []*Node
	for _, n := range d.Nodes {
		if n.IsFallback() {
			out = append(out, n)
		}
	}
	return out
}

// IntegrityError collects every data-integrity problem found in a document.
type IntegrityError struct {
	MapID    string
	Problems []error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("document %q failed integrity check: %v", e.MapID, multierror.Join(e.Problems))
}

// Unwrap exposes the individual problems to errors.Is and errors.As.
func (e *IntegrityError) Unwrap() []error {
	return e.Problems
}

// Validate reports duplicate ids, dangling edges and edges on documents that
// may not carry them. Problems are reported, never repaired.
func (d Document) Validate() error {
	var problems []error

	ids := make(map[NodeID]struct{}, len(d.Nodes))
	for i, n := range d.Nodes {
		if n == nil {
			problems = append(problems, fmt.Errorf("node at index %d is nil", i))
			continue
		}
		if _, dup := ids[n.ID]; dup {
			problems = append(problems, fmt.Errorf("%w: %s", ErrDuplicateNode, n.ID))
		}
		ids[n.ID] = struct{}{}
	}

	if len(d.Edges) > 0 && d.Kind != "" && !d.Kind.HasEdges() {
		problems = append(problems, fmt.Errorf("%w: %s document has %d edges", ErrEdgeNotAllowed, d.Kind, len(d.Edges)))
	}

	edgeIDs := make(map[EdgeID]struct{}, len(d.Edges))
	for _, e := range d.Edges {
		if _, dup := edgeIDs[e.ID]; dup {
			problems = append(problems, fmt.Errorf("%w: %s", ErrDuplicateEdge, e.ID))
		}
		edgeIDs[e.ID] = struct{}{}

		if _, ok := ids[e.Source]; !ok {
			problems = append(problems, fmt.Errorf("%w: edge %s source %s", ErrDanglingEdge, e.ID, e.Source))
		}
		if _, ok := ids[e.Target]; !ok {
			problems = append(problems, fmt.Errorf("%w: edge %s target %s", ErrDanglingEdge, e.ID, e.Target))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &IntegrityError{MapID: d.MapID, Problems: problems}
}

// IsIntegrityError reports whether err carries document integrity problems.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
