package graph

// Curve types understood by the canvas.
const (
	CurveBezier     = "bezier"
	CurveStraight   = "straight"
	CurveStep       = "step"
	CurveSmoothStep = "smoothstep"
)

// EdgeStyle is the rendering style of a topology link.
type EdgeStyle struct {
	CurveType string  `json:"curveType,omitempty"`
	Thickness float64 `json:"thickness,omitempty"`
}

// DefaultEdgeStyle is applied to newly connected edges.
var DefaultEdgeStyle = EdgeStyle{CurveType: CurveSmoothStep, Thickness: 2}

// Edge links two nodes of a topology document.
type Edge struct {
	ID           EdgeID    `json:"id"`
	Source       NodeID    `json:"source"`
	Target       NodeID    `json:"target"`
	SourceHandle string    `json:"sourceHandle,omitempty"`
	TargetHandle string    `json:"targetHandle,omitempty"`
	Style        EdgeStyle `json:"style"`
	Animated     bool      `json:"animated"`
	Extra        Extra     `json:"-"`
}

// Touches reports whether id is one of the edge's endpoints.
func (e Edge) Touches(id NodeID) bool {
	return e.Source == id || e.Target == id
}

func (e Edge) clone() Edge {
	e.Extra = e.Extra.clone()
	return e
}

func (e Edge) MarshalJSON() ([]byte, error) {
	type alias Edge
	a := alias(e)
	return encodeWithExtra(&a, e.Extra)
}

func (e *Edge) UnmarshalJSON(data []byte) error {
	type alias Edge
	extra, err := decodeWithExtra(data, (*alias)(e))
	e.Extra = extra
	return err
}
