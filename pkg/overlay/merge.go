// Package overlay joins live fault counts onto device-backed diagram nodes
// and drives the periodic refresh of those counts.
package overlay

import "github.com/dd0wney/cluso-noc/pkg/graph"

// Index builds a device-key lookup over records. When a key appears more
// than once the last record wins.
func Index(records []graph.OverlayRecord) map[graph.DeviceKey]graph.FaultCounts {
	idx := make(map[graph.DeviceKey]graph.FaultCounts, len(records))
	for _, r := range records {
		if r.DeviceKey == "" {
			continue
		}
		idx[r.DeviceKey] = r.FaultCounts
	}
	return idx
}

// Merge returns nodes with every device-backed node carrying the counts of
// its matching record, or zero counts when no record matches. Nodes that are
// not device-backed, and device nodes whose counts do not change, are
// returned as the same pointer. The input slice is not modified.
func Merge(nodes []*graph.Node, records []graph.OverlayRecord) []*graph.Node {
	return MergeIndexed(nodes, Index(records))
}

// MergeIndexed is Merge over a prebuilt index.
func MergeIndexed(nodes []*graph.Node, idx map[graph.DeviceKey]graph.FaultCounts) []*graph.Node {
	if nodes == nil {
		return nil
	}
	out := make([]*graph.Node, len(nodes))
	for i, n := range nodes {
		current, ok := n.Overlay()
		if !ok {
			out[i] = n
			continue
		}
		next := idx[n.DeviceKey()]
		if current == next {
			out[i] = n
			continue
		}
		out[i] = n.WithOverlay(next)
	}
	return out
}

// Summary totals the overlay across a set of nodes.
type Summary struct {
	Devices int               `json:"devices"`
	Faulted int               `json:"faulted"`
	Totals  graph.FaultCounts `json:"totals"`
}

// Summarize totals the overlay of every device-backed node.
func Summarize(nodes []*graph.Node) Summary {
	var s Summary
	for _, n := range nodes {
		counts, ok := n.Overlay()
		if !ok {
			continue
		}
		s.Devices++
		if counts.Total > 0 {
			s.Faulted++
		}
		s.Totals = s.Totals.Add(counts)
	}
	return s
}
