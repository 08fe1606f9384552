package graph

import "encoding/json"

// Payload is the variant-specific part of a node. The set of implementations
// is closed; see VariantVisitor.
type Payload interface {
	Variant() NodeVariant
	clonePayload() Payload
}

// DeviceBacked is implemented by payloads that reference a managed device.
type DeviceBacked interface {
	Payload
	Device() DeviceRef
	OverlayCounts() FaultCounts
	withOverlay(FaultCounts) Payload
}

// DeviceRef identifies the device behind a node.
type DeviceRef struct {
	DeviceKey    DeviceKey `json:"deviceKey"`
	DeviceTypeID string    `json:"deviceTypeId,omitempty"`
	Name         string    `json:"name,omitempty"`
	Address      string    `json:"address,omitempty"`
}

// NetworkDevicePayload is a device on a topology map.
type NetworkDevicePayload struct {
	DeviceRef
	Icon    string      `json:"icon,omitempty"`
	Overlay FaultCounts `json:"overlay"`
	Extra   Extra       `json:"-"`
}

func (*NetworkDevicePayload) Variant() NodeVariant         { return VariantNetworkDevice }
func (p *NetworkDevicePayload) Device() DeviceRef          { return p.DeviceRef }
func (p *NetworkDevicePayload) OverlayCounts() FaultCounts { return p.Overlay }

func (p *NetworkDevicePayload) clonePayload() Payload {
	c := *p
	c.Extra = p.Extra.clone()
	return &c
}

func (p *NetworkDevicePayload) withOverlay(o FaultCounts) Payload {
	c := *p
	c.Overlay = o
	return &c
}

func (p *NetworkDevicePayload) MarshalJSON() ([]byte, error) {
	type alias NetworkDevicePayload
	return encodeWithExtra((*alias)(p), p.Extra)
}

func (p *NetworkDevicePayload) UnmarshalJSON(data []byte) error {
	type alias NetworkDevicePayload
	extra, err := decodeWithExtra(data, (*alias)(p))
	p.Extra = extra
	return err
}

// SectionPayload is a resizable visual grouping. It is never overlay-joined.
type SectionPayload struct {
	Label string `json:"label,omitempty"`
	Color string `json:"color,omitempty"`
	Extra Extra  `json:"-"`
}

func (*SectionPayload) Variant() NodeVariant { return VariantSection }

func (p *SectionPayload) clonePayload() Payload {
	c := *p
	c.Extra = p.Extra.clone()
	return &c
}

func (p *SectionPayload) MarshalJSON() ([]byte, error) {
	type alias SectionPayload
	return encodeWithExtra((*alias)(p), p.Extra)
}

func (p *SectionPayload) UnmarshalJSON(data []byte) error {
	type alias SectionPayload
	extra, err := decodeWithExtra(data, (*alias)(p))
	p.Extra = extra
	return err
}

// RackPayload is a fixed-size rack frame. It is never device-backed.
type RackPayload struct {
	Label string `json:"label,omitempty"`
	Units int    `json:"units"`
	Extra Extra  `json:"-"`
}

func (*RackPayload) Variant() NodeVariant { return VariantRack }

func (p *RackPayload) clonePayload() Payload {
	c := *p
	c.Extra = p.Extra.clone()
	return &c
}

func (p *RackPayload) MarshalJSON() ([]byte, error) {
	type alias RackPayload
	return encodeWithExtra((*alias)(p), p.Extra)
}

func (p *RackPayload) UnmarshalJSON(data []byte) error {
	type alias RackPayload
	extra, err := decodeWithExtra(data, (*alias)(p))
	p.Extra = extra
	return err
}

// RackItemPayload is a device mounted in a rack, occupying Units rack units.
type RackItemPayload struct {
	DeviceRef
	Units     int         `json:"units"`
	StartUnit int         `json:"startUnit,omitempty"`
	Image     string      `json:"image,omitempty"`
	Overlay   FaultCounts `json:"overlay"`
	Extra     Extra       `json:"-"`
}

func (*RackItemPayload) Variant() NodeVariant         { return VariantRackItem }
func (p *RackItemPayload) Device() DeviceRef          { return p.DeviceRef }
func (p *RackItemPayload) OverlayCounts() FaultCounts { return p.Overlay }

func (p *RackItemPayload) clonePayload() Payload {
	c := *p
	c.Extra = p.Extra.clone()
	return &c
}

func (p *RackItemPayload) withOverlay(o FaultCounts) Payload {
	c := *p
	c.Overlay = o
	return &c
}

func (p *RackItemPayload) MarshalJSON() ([]byte, error) {
	type alias RackItemPayload
	return encodeWithExtra((*alias)(p), p.Extra)
}

func (p *RackItemPayload) UnmarshalJSON(data []byte) error {
	type alias RackItemPayload
	extra, err := decodeWithExtra(data, (*alias)(p))
	p.Extra = extra
	return err
}

// RackItemDisplayPayload is a decorative device image inside a rack.
type RackItemDisplayPayload struct {
	Label string `json:"label,omitempty"`
	Image string `json:"image,omitempty"`
	Units int    `json:"units"`
	Extra Extra  `json:"-"`
}

func (*RackItemDisplayPayload) Variant() NodeVariant { return VariantRackItemDisplay }

func (p *RackItemDisplayPayload) clonePayload() Payload {
	c := *p
	c.Extra = p.Extra.clone()
	return &c
}

func (p *RackItemDisplayPayload) MarshalJSON() ([]byte, error) {
	type alias RackItemDisplayPayload
	return encodeWithExtra((*alias)(p), p.Extra)
}

func (p *RackItemDisplayPayload) UnmarshalJSON(data []byte) error {
	type alias RackItemDisplayPayload
	extra, err := decodeWithExtra(data, (*alias)(p))
	p.Extra = extra
	return err
}

// SpotItemPayload is a geo-located device aggregate on a map view.
type SpotItemPayload struct {
	DeviceRef
	Lat     float64     `json:"lat"`
	Lng     float64     `json:"lng"`
	Overlay FaultCounts `json:"overlay"`
	Extra   Extra       `json:"-"`
}

func (*SpotItemPayload) Variant() NodeVariant         { return VariantSpotItem }
func (p *SpotItemPayload) Device() DeviceRef          { return p.DeviceRef }
func (p *SpotItemPayload) OverlayCounts() FaultCounts { return p.Overlay }

func (p *SpotItemPayload) clonePayload() Payload {
	c := *p
	c.Extra = p.Extra.clone()
	return &c
}

func (p *SpotItemPayload) withOverlay(o FaultCounts) Payload {
	c := *p
	c.Overlay = o
	return &c
}

func (p *SpotItemPayload) MarshalJSON() ([]byte, error) {
	type alias SpotItemPayload
	return encodeWithExtra((*alias)(p), p.Extra)
}

func (p *SpotItemPayload) UnmarshalJSON(data []byte) error {
	type alias SpotItemPayload
	extra, err := decodeWithExtra(data, (*alias)(p))
	p.Extra = extra
	return err
}

// FallbackPayload stands in for a node whose type tag is unknown or whose
// data does not match its variant. The node renders inert and its original
// type and data are written back verbatim.
type FallbackPayload struct {
	Type   string
	Raw    json.RawMessage
	Reason string
}

func (*FallbackPayload) Variant() NodeVariant { return VariantUnknown }

func (p *FallbackPayload) clonePayload() Payload {
	c := *p
	return &c
}

// decodePayload builds the payload for a wire type tag. Any mismatch yields a
// FallbackPayload rather than an error so one bad node cannot sink a document.
func decodePayload(tag string, data json.RawMessage) Payload {
	fallback := func(reason string) Payload {
		return &FallbackPayload{Type: tag, Raw: data, Reason: reason}
	}

	variant, ok := ParseVariant(tag)
	if !ok {
		return fallback("unknown node type")
	}

	var p Payload
	switch variant {
	case VariantNetworkDevice:
		p = &NetworkDevicePayload{}
	case VariantSection:
		p = &SectionPayload{}
	case VariantRack:
		p = &RackPayload{}
	case VariantRackItem:
		p = &RackItemPayload{}
	case VariantRackItemDisplay:
		p = &RackItemDisplayPayload{}
	case VariantSpotItem:
		p = &SpotItemPayload{}
	}

	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, p); err != nil {
			return fallback(err.Error())
		}
	}

	if db, ok := p.(DeviceBacked); ok && db.Device().DeviceKey == "" {
		return fallback("device-backed node without deviceKey")
	}
	return p
}
