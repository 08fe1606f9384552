package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// NodeID identifies a node within one document.
type NodeID string

// EdgeID identifies an edge within one document.
type EdgeID string

// DeviceKey is the normalized identity of a managed device. Upstream systems
// send device ids as strings or numbers; they are converted once at the
// ingestion boundary and compared as plain strings afterwards.
type DeviceKey string

// NormalizeDeviceKey converts a loosely typed device id into a DeviceKey.
// Whole floats are rendered without a fractional part so that 12, 12.0 and
// "12" all join to the same key.
func NormalizeDeviceKey(v any) (DeviceKey, error) {
	switch t := v.(type) {
	case DeviceKey:
		return checkKey(string(t))
	case string:
		return checkKey(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return DeviceKey(strconv.FormatInt(i, 10)), nil
		}
		f, err := t.Float64()
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidDeviceKey, t.String())
		}
		return floatKey(f)
	case int:
		return DeviceKey(strconv.Itoa(t)), nil
	case int32:
		return DeviceKey(strconv.FormatInt(int64(t), 10)), nil
	case int64:
		return DeviceKey(strconv.FormatInt(t, 10)), nil
	case uint32:
		return DeviceKey(strconv.FormatUint(uint64(t), 10)), nil
	case uint64:
		return DeviceKey(strconv.FormatUint(t, 10)), nil
	case float64:
		return floatKey(t)
	case nil:
		return "", fmt.Errorf("%w: null", ErrInvalidDeviceKey)
	default:
		return "", fmt.Errorf("%w: unsupported type %T", ErrInvalidDeviceKey, v)
	}
}

func checkKey(s string) (DeviceKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidDeviceKey)
	}
	return DeviceKey(s), nil
}

func floatKey(f float64) (DeviceKey, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrInvalidDeviceKey, f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return DeviceKey(strconv.FormatInt(int64(f), 10)), nil
	}
	return DeviceKey(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// UnmarshalJSON accepts both string and numeric device ids.
func (k *DeviceKey) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*k = ""
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	key, err := NormalizeDeviceKey(v)
	if err != nil {
		return err
	}
	*k = key
	return nil
}

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the rendered extent of a resizable or unit-sized node.
type Size struct {
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// FaultCounts is the per-device fault annotation carried in payload.overlay.
type FaultCounts struct {
	Urgent    int `json:"urgent"`
	Important int `json:"important"`
	Minor     int `json:"minor"`
	Total     int `json:"total"`
}

// IsZero reports whether no faults are counted.
func (c FaultCounts) IsZero() bool {
	return c == FaultCounts{}
}

// Add returns the element-wise sum of c and o.
func (c FaultCounts) Add(o FaultCounts) FaultCounts {
	return FaultCounts{
		Urgent:    c.Urgent + o.Urgent,
		Important: c.Important + o.Important,
		Minor:     c.Minor + o.Minor,
		Total:     c.Total + o.Total,
	}
}

// OverlayRecord is one fault-count row as returned by the overlay source.
type OverlayRecord struct {
	DeviceKey DeviceKey `json:"deviceKey"`
	FaultCounts
}

// DocumentKind distinguishes the three diagram editors.
type DocumentKind string

const (
	KindTopology DocumentKind = "topology"
	KindRack     DocumentKind = "rack"
	KindGeo      DocumentKind = "geo"
)

// Valid reports whether k is one of the known kinds.
func (k DocumentKind) Valid() bool {
	switch k {
	case KindTopology, KindRack, KindGeo:
		return true
	}
	return false
}

// HasEdges reports whether documents of this kind may carry edges.
func (k DocumentKind) HasEdges() bool {
	return k == KindTopology
}
