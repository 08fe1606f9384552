// Package nodefactory builds new diagram nodes from the creation wizard's
// choices: a picked device, a frame, or a decorative display image.
package nodefactory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-noc/pkg/backend"
	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/logging"
)

var (
	ErrDeviceAlreadyPlaced = errors.New("device is already placed on this diagram")
	ErrInvalidDevice       = errors.New("device has no key")
	ErrFrameNotAllowed     = errors.New("frame kind not allowed on this document")
	ErrUnknownFrameKind    = errors.New("unknown frame kind")
)

// Rack geometry, in canvas pixels.
const (
	RackUnits  = 42
	UnitHeight = 20.0
	RackWidth  = 240.0
)

// Default section size and placement cascade.
const (
	SectionWidth  = 400.0
	SectionHeight = 300.0
	cascadeStep   = 24.0
	cascadeWrap   = 10
)

// FrameKind selects the frame variant.
type FrameKind string

const (
	FrameSection FrameKind = "section"
	FrameRack    FrameKind = "rack"
)

// DeviceSpec is the output of the device picker.
type DeviceSpec struct {
	TypeID    string
	DeviceKey graph.DeviceKey
	Name      string
	Address   string
	Icon      string
	Units     int
	Lat       float64
	Lng       float64
	Image     string
}

// SpecFromDevice converts a catalog device into a DeviceSpec.
func SpecFromDevice(d backend.Device) DeviceSpec {
	return DeviceSpec{
		TypeID:    d.TypeID,
		DeviceKey: d.Key,
		Name:      d.Name,
		Address:   d.Address,
		Units:     d.Units,
		Lat:       d.Lat,
		Lng:       d.Lng,
		Image:     d.Image,
	}
}

// Choice is one device offered by the picker. Devices already on the
// diagram are offered disabled rather than hidden.
type Choice struct {
	Device   backend.Device `json:"device"`
	Disabled bool           `json:"disabled"`
	Reason   string         `json:"reason,omitempty"`
}

// Factory builds nodes and serves the wizard's catalog lookups.
type Factory struct {
	catalog backend.DeviceCatalog
	origin  graph.Position
	newID   func() string
	logger  logging.Logger
}

// Option configures a Factory.
type Option func(*Factory)

// WithOrigin sets where the placement cascade starts.
func WithOrigin(p graph.Position) Option {
	return func(f *Factory) { f.origin = p }
}

// WithIDGenerator replaces the uuid generator used for frame ids.
func WithIDGenerator(gen func() string) Option {
	return func(f *Factory) { f.newID = gen }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(f *Factory) { f.logger = logging.OrNop(l) }
}

// New creates a factory backed by catalog.
func New(catalog backend.DeviceCatalog, opts ...Option) *Factory {
	f := &Factory{
		catalog: catalog,
		origin:  graph.Position{X: 40, Y: 40},
		newID:   uuid.NewString,
		logger:  logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(logging.Component("nodefactory"))
	return f
}

// placement offsets each new node from the previous one so that nodes added
// in a row do not stack exactly.
func (f *Factory) placement(existing []*graph.Node) graph.Position {
	step := float64(len(existing)%cascadeWrap) * cascadeStep
	return graph.Position{X: f.origin.X + step, Y: f.origin.Y + step}
}

// IsPlaced reports whether key is already on the diagram, either as a node
// id or as the device of a device-backed node.
func IsPlaced(existing []*graph.Node, key graph.DeviceKey) bool {
	for _, n := range existing {
		if n.ID == graph.NodeID(key) || n.DeviceKey() == key {
			return true
		}
	}
	return false
}

// CreateDeviceNode builds the device-backed variant matching the document
// kind. The node id is the device key, so placing the same device twice is
// refused.
func (f *Factory) CreateDeviceNode(kind graph.DocumentKind, existing []*graph.Node, spec DeviceSpec) (*graph.Node, error) {
	if spec.DeviceKey == "" {
		return nil, ErrInvalidDevice
	}
	if IsPlaced(existing, spec.DeviceKey) {
		f.logger.Warn("duplicate device add refused", logging.DeviceKey(spec.DeviceKey))
		return nil, fmt.Errorf("%w: %s", ErrDeviceAlreadyPlaced, spec.DeviceKey)
	}

	ref := graph.DeviceRef{
		DeviceKey:    spec.DeviceKey,
		DeviceTypeID: spec.TypeID,
		Name:         spec.Name,
		Address:      spec.Address,
	}
	n := &graph.Node{
		ID:         graph.NodeID(spec.DeviceKey),
		Position:   f.placement(existing),
		Selectable: true,
		Draggable:  true,
	}

	switch kind {
	case graph.KindTopology:
		icon := spec.Icon
		if icon == "" {
			icon = spec.TypeID
		}
		n.Payload = &graph.NetworkDevicePayload{DeviceRef: ref, Icon: icon}
	case graph.KindRack:
		units := max(spec.Units, 1)
		n.Size = &graph.Size{W: RackWidth, H: float64(units) * UnitHeight}
		n.Payload = &graph.RackItemPayload{DeviceRef: ref, Units: units, Image: spec.Image}
	case graph.KindGeo:
		n.Payload = &graph.SpotItemPayload{DeviceRef: ref, Lat: spec.Lat, Lng: spec.Lng}
	default:
		return nil, fmt.Errorf("unknown document kind %q", kind)
	}
	return n, nil
}

// CreateFrameNode builds a section or a fixed-size rack frame. Rack frames
// only belong on rack documents.
func (f *Factory) CreateFrameNode(docKind graph.DocumentKind, existing []*graph.Node, kind FrameKind, label string) (*graph.Node, error) {
	n := &graph.Node{
		ID:         graph.NodeID(f.newID()),
		Position:   f.placement(existing),
		Selectable: true,
		Draggable:  true,
	}

	switch kind {
	case FrameSection:
		n.Size = &graph.Size{W: SectionWidth, H: SectionHeight}
		n.Payload = &graph.SectionPayload{Label: label}
	case FrameRack:
		if docKind != graph.KindRack {
			return nil, fmt.Errorf("%w: rack on %s", ErrFrameNotAllowed, docKind)
		}
		n.Size = &graph.Size{W: RackWidth, H: RackUnits * UnitHeight}
		n.Payload = &graph.RackPayload{Label: label, Units: RackUnits}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrameKind, kind)
	}
	return n, nil
}

// CreateDisplayNode builds a decorative rack image that is not tied to a
// managed device.
func (f *Factory) CreateDisplayNode(docKind graph.DocumentKind, existing []*graph.Node, img backend.DeviceImage) (*graph.Node, error) {
	if docKind != graph.KindRack {
		return nil, fmt.Errorf("%w: display on %s", ErrFrameNotAllowed, docKind)
	}
	units := max(img.Units, 1)
	return &graph.Node{
		ID:         graph.NodeID(f.newID()),
		Position:   f.placement(existing),
		Size:       &graph.Size{W: RackWidth, H: float64(units) * UnitHeight},
		Selectable: true,
		Draggable:  true,
		Payload:    &graph.RackItemDisplayPayload{Label: img.Name, Image: img.URL, Units: units},
	}, nil
}

// DeviceChoices lists the devices of typeID, disabling those already placed.
func (f *Factory) DeviceChoices(ctx context.Context, typeID string, existing []*graph.Node) ([]Choice, error) {
	devices, err := f.catalog.FetchDevicesByType(ctx, typeID)
	if err != nil {
		return nil, fmt.Errorf("fetch devices of type %s: %w", typeID, err)
	}
	out := make([]Choice, 0, len(devices))
	for _, d := range devices {
		c := Choice{Device: d}
		if IsPlaced(existing, d.Key) {
			c.Disabled = true
			c.Reason = "already placed"
		}
		out = append(out, c)
	}
	return out, nil
}

// Taxonomy returns the device types offered by the wizard.
func (f *Factory) Taxonomy(ctx context.Context) ([]backend.DeviceType, error) {
	types, err := f.catalog.FetchDeviceTaxonomy(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch device taxonomy: %w", err)
	}
	return types, nil
}

// ImageCatalog returns the images available for typeID.
func (f *Factory) ImageCatalog(ctx context.Context, typeID string) ([]backend.DeviceImage, error) {
	images, err := f.catalog.FetchDeviceImageCatalog(ctx, typeID)
	if err != nil {
		return nil, fmt.Errorf("fetch image catalog for %s: %w", typeID, err)
	}
	return images, nil
}

// Device looks up one device of typeID by key.
func (f *Factory) Device(ctx context.Context, typeID string, key graph.DeviceKey) (backend.Device, error) {
	devices, err := f.catalog.FetchDevicesByType(ctx, typeID)
	if err != nil {
		return backend.Device{}, fmt.Errorf("fetch devices of type %s: %w", typeID, err)
	}
	for _, d := range devices {
		if d.Key == key {
			return d, nil
		}
	}
	return backend.Device{}, fmt.Errorf("device %s of type %s: %w", key, typeID, backend.ErrNotFound)
}
