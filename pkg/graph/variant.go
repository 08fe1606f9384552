package graph

// NodeVariant is the closed set of node kinds a diagram can hold.
type NodeVariant int

const (
	// VariantUnknown marks a node whose payload could not be decoded.
	VariantUnknown NodeVariant = iota
	VariantNetworkDevice
	VariantSection
	VariantRack
	VariantRackItem
	VariantRackItemDisplay
	VariantSpotItem
)

var variantTags = map[NodeVariant]string{
	VariantNetworkDevice:   "networkDevice",
	VariantSection:         "section",
	VariantRack:            "rack",
	VariantRackItem:        "rackItem",
	VariantRackItemDisplay: "rackItemDisplay",
	VariantSpotItem:        "spotItem",
}

var tagVariants = func() map[string]NodeVariant {
	m := make(map[string]NodeVariant, len(variantTags))
	for v, tag := range variantTags {
		m[tag] = v
	}
	return m
}()

// String returns the wire tag of the variant.
func (v NodeVariant) String() string {
	if tag, ok := variantTags[v]; ok {
		return tag
	}
	return "unknown"
}

// ParseVariant maps a wire tag to its variant.
func ParseVariant(tag string) (NodeVariant, bool) {
	v, ok := tagVariants[tag]
	return v, ok
}

// IsDeviceBacked reports whether nodes of this variant correspond to a managed
// device and therefore receive overlay data.
func (v NodeVariant) IsDeviceBacked() bool {
	switch v {
	case VariantNetworkDevice, VariantRackItem, VariantSpotItem:
		return true
	}
	return false
}

// VariantVisitor has one method per variant. Adding a variant adds a method
// here, so every implementation stops compiling until it handles it.
type VariantVisitor[T any] interface {
	NetworkDevice(n *Node, p *NetworkDevicePayload) T
	Section(n *Node, p *SectionPayload) T
	Rack(n *Node, p *RackPayload) T
	RackItem(n *Node, p *RackItemPayload) T
	RackItemDisplay(n *Node, p *RackItemDisplayPayload) T
	SpotItem(n *Node, p *SpotItemPayload) T
	Fallback(n *Node, p *FallbackPayload) T
}

// Dispatch calls the visitor method matching the node's payload.
func Dispatch[T any](n *Node, v VariantVisitor[T]) T {
	switch p := n.Payload.(type) {
	case *NetworkDevicePayload:
		return v.NetworkDevice(n, p)
	case *SectionPayload:
		return v.Section(n, p)
	case *RackPayload:
		return v.Rack(n, p)
	case *RackItemPayload:
		return v.RackItem(n, p)
	case *RackItemDisplayPayload:
		return v.RackItemDisplay(n, p)
	case *SpotItemPayload:
		return v.SpotItem(n, p)
	case *FallbackPayload:
		return v.Fallback(n, p)
	default:
		// Payload is sealed; only a nil payload reaches this point.
		return v.Fallback(n, &FallbackPayload{Reason: "missing payload"})
	}
}
