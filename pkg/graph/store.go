package graph

import (
	"fmt"
	"sync"
)

// OverlayFunc joins overlay records onto nodes. It must only touch
// payload.overlay; Store verifies that before accepting the result.
type OverlayFunc func(nodes []*Node, records []OverlayRecord) []*Node

// Store holds the authoritative copy of the open document. Besides a
// wholesale Load, the only permitted mutation is ApplyOverlay.
type Store struct {
	mu      sync.RWMutex
	doc     Document
	loaded  bool
	version uint64
	merge   OverlayFunc
}

// NewStore creates an empty store that uses merge for overlay application.
func NewStore(merge OverlayFunc) *Store {
	return &Store{merge: merge}
}

// Load replaces nodes and edges wholesale.
func (s *Store) Load(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = doc.Clone()
	s.loaded = true
	s.version++
}

// Clear drops the current document.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.doc = Document{}
	s.loaded = false
	s.version++
}

// ApplyOverlay merges records onto the stored nodes. It reports whether any
// node changed. A merge result that alters anything but overlays is rejected
// with ErrIllegalMutation and the store is left untouched.
func (s *Store) ApplyOverlay(records []OverlayRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		return false, ErrNotLoaded
	}

	merged := s.merge(s.doc.Nodes, records)
	changed, err := overlayOnlyDiff(s.doc.Nodes, merged)
	if err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	s.doc.Nodes = merged
	s.version++
	return true, nil
}

func overlayOnlyDiff(before, after []*Node) (bool, error) {
	if len(before) != len(after) {
		return false, fmt.Errorf("%w: node count %d -> %d", ErrIllegalMutation, len(before), len(after))
	}

	changed := false
	for i := range before {
		b, a := before[i], after[i]
		if a == b {
			continue
		}
		if !b.IsDeviceBacked() {
			return false, fmt.Errorf("%w: node %s is not device-backed", ErrIllegalMutation, b.ID)
		}
		if a.ID != b.ID || a.Position != b.Position || a.Variant() != b.Variant() || a.DeviceKey() != b.DeviceKey() {
			return false, fmt.Errorf("%w: node %s changed beyond its overlay", ErrIllegalMutation, b.ID)
		}
		changed = true
	}
	return changed, nil
}

// Snapshot returns a copy of the stored document.
func (s *Store) Snapshot() Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Nodes returns the stored nodes.
func (s *Store) Nodes() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Node(nil), s.doc.Nodes...)
}

// Edges returns the stored edges.
func (s *Store) Edges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Edge(nil), s.doc.Edges...)
}

// Node looks up a stored node by id.
func (s *Store) Node(id NodeID) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.NodeByID(id)
}

// Edge looks up a stored edge by id.
func (s *Store) Edge(id EdgeID) (Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.EdgeByID(id)
}

// MapID returns the id of the stored document, or "".
func (s *Store) MapID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.MapID
}

// Loaded reports whether a document is present.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Version increases on every accepted mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}
