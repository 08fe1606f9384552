package graph

import (
	"encoding/json"
	"fmt"
)

// Node is one element of a diagram. Nodes are treated as immutable once
// built: every change produces a new *Node, so unchanged nodes keep their
// pointer identity across overlay merges and working-copy edits.
type Node struct {
	ID         NodeID
	Position   Position
	Size       *Size
	Selectable bool
	Draggable  bool
	Payload    Payload
	// Extra holds node-level members this version does not model.
	Extra Extra
}

// Variant returns the node's variant, VariantUnknown for fallback nodes.
func (n *Node) Variant() NodeVariant {
	if n == nil || n.Payload == nil {
		return VariantUnknown
	}
	return n.Payload.Variant()
}

// IsDeviceBacked reports whether the node receives overlay data.
func (n *Node) IsDeviceBacked() bool {
	_, ok := n.deviceBacked()
	return ok
}

// IsFallback reports whether the node's payload failed to decode.
func (n *Node) IsFallback() bool {
	_, ok := n.Payload.(*FallbackPayload)
	return ok || n.Payload == nil
}

func (n *Node) deviceBacked() (DeviceBacked, bool) {
	if n == nil {
		return nil, false
	}
	db, ok := n.Payload.(DeviceBacked)
	return db, ok
}

// Device returns the device reference of a device-backed node.
func (n *Node) Device() (DeviceRef, bool) {
	db, ok := n.deviceBacked()
	if !ok {
		return DeviceRef{}, false
	}
	return db.Device(), true
}

// DeviceKey returns the device key of a device-backed node, or "".
func (n *Node) DeviceKey() DeviceKey {
	ref, _ := n.Device()
	return ref.DeviceKey
}

// Overlay returns the fault counts of a device-backed node.
func (n *Node) Overlay() (FaultCounts, bool) {
	db, ok := n.deviceBacked()
	if !ok {
		return FaultCounts{}, false
	}
	return db.OverlayCounts(), true
}

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	c := *n
	if n.Size != nil {
		s := *n.Size
		c.Size = &s
	}
	if n.Payload != nil {
		c.Payload = n.Payload.clonePayload()
	}
	c.Extra = n.Extra.clone()
	return &c
}

func (n *Node) shallow() *Node {
	c := *n
	return &c
}

// WithPosition returns a copy of the node moved to p.
func (n *Node) WithPosition(p Position) *Node {
	c := n.shallow()
	c.Position = p
	return c
}

// WithSize returns a copy of the node with the given size.
func (n *Node) WithSize(s Size) *Node {
	c := n.shallow()
	c.Size = &s
	return c
}

// WithOverlay returns a copy of a device-backed node carrying counts. Nodes
// that are not device-backed are returned unchanged.
func (n *Node) WithOverlay(counts FaultCounts) *Node {
	db, ok := n.deviceBacked()
	if !ok {
		return n
	}
	c := n.shallow()
	c.Payload = db.withOverlay(counts)
	return c
}

type wireNode struct {
	ID         NodeID          `json:"id"`
	Type       string          `json:"type"`
	Position   Position        `json:"position"`
	Size       *Size           `json:"size,omitempty"`
	Selectable *bool           `json:"selectable,omitempty"`
	Draggable  *bool           `json:"draggable,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON writes the node in the canvas wire shape
// {id, type, position, size, selectable, draggable, data}.
func (n *Node) MarshalJSON() ([]byte, error) {
	w := wireNode{
		ID:         n.ID,
		Position:   n.Position,
		Size:       n.Size,
		Selectable: &n.Selectable,
		Draggable:  &n.Draggable,
	}

	switch p := n.Payload.(type) {
	case *FallbackPayload:
		w.Type = p.Type
		w.Data = p.Raw
	case nil:
		return nil, fmt.Errorf("node %s: missing payload", n.ID)
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
		w.Type = p.Variant().String()
		w.Data = data
	}

	return encodeWithExtra(&w, n.Extra)
}

// UnmarshalJSON decodes a wire node. Payload mismatches do not fail; they
// produce a FallbackPayload.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode
	extra, err := decodeWithExtra(data, &w)
	if err != nil {
		return err
	}

	*n = Node{
		ID:         w.ID,
		Position:   w.Position,
		Size:       w.Size,
		Selectable: w.Selectable == nil || *w.Selectable,
		Draggable:  w.Draggable == nil || *w.Draggable,
		Payload:    decodePayload(w.Type, w.Data),
		Extra:      extra,
	}
	return nil
}
