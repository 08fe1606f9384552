package session

import "github.com/dd0wney/cluso-noc/pkg/graph"

// movable reports whether a node can be dragged on the working copy. Every
// decoded variant follows the node's draggable flag.
type movable struct{}

func (movable) NetworkDevice(n *graph.Node, _ *graph.NetworkDevicePayload) bool { return n.Draggable }
func (movable) Section(n *graph.Node, _ *graph.SectionPayload) bool             { return n.Draggable }
func (movable) Rack(n *graph.Node, _ *graph.RackPayload) bool                   { return n.Draggable }
func (movable) RackItem(n *graph.Node, _ *graph.RackItemPayload) bool           { return n.Draggable }
func (movable) RackItemDisplay(n *graph.Node, _ *graph.RackItemDisplayPayload) bool {
	return n.Draggable
}
func (movable) SpotItem(n *graph.Node, _ *graph.SpotItemPayload) bool { return n.Draggable }
func (movable) Fallback(*graph.Node, *graph.FallbackPayload) bool     { return false }

// resizable reports whether a node's extent is free. Racks are fixed 42U
// frames and rack items are sized by their unit count.
type resizable struct{}

func (resizable) NetworkDevice(*graph.Node, *graph.NetworkDevicePayload) bool     { return false }
func (resizable) Section(*graph.Node, *graph.SectionPayload) bool                 { return true }
func (resizable) Rack(*graph.Node, *graph.RackPayload) bool                       { return false }
func (resizable) RackItem(*graph.Node, *graph.RackItemPayload) bool               { return false }
func (resizable) RackItemDisplay(*graph.Node, *graph.RackItemDisplayPayload) bool { return false }
func (resizable) SpotItem(*graph.Node, *graph.SpotItemPayload) bool               { return false }
func (resizable) Fallback(*graph.Node, *graph.FallbackPayload) bool               { return false }
