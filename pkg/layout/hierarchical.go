package layout

import "github.com/dd0wney/cluso-noc/pkg/graph"

// HierarchicalLayout arranges nodes in levels, starting from nodes with no
// incoming links.
type HierarchicalLayout struct {
	config Config
}

// Compute arranges nodes hierarchically.
func (hl *HierarchicalLayout) Compute(ids []graph.NodeID, edges []graph.Edge) map[graph.NodeID]graph.Position {
	positions := make(map[graph.NodeID]graph.Position, len(ids))
	if len(ids) == 0 {
		return positions
	}
	adj := buildAdjacency(ids, edges)

	var roots []graph.NodeID
	for _, id := range ids {
		if adj.in[id] == 0 {
			roots = append(roots, id)
		}
	}
	if len(roots) == 0 {
		roots = []graph.NodeID{ids[0]}
	}

	// BFS levels
	var levels [][]graph.NodeID
	visited := make(map[graph.NodeID]bool, len(ids))
	for _, r := range roots {
		visited[r] = true
	}
	current := roots
	for len(current) > 0 {
		levels = append(levels, current)
		var next []graph.NodeID
		for _, id := range current {
			for _, to := range adj.out[id] {
				if !visited[to] {
					visited[to] = true
					next = append(next, to)
				}
			}
		}
		current = next
	}

	// Nodes only reachable through a cycle go on the last level.
	for _, id := range ids {
		if !visited[id] {
			levels[len(levels)-1] = append(levels[len(levels)-1], id)
		}
	}

	cfg := hl.config
	levelHeight := (cfg.Height - 2*cfg.Padding) / float64(len(levels))
	levelWidth := cfg.Width - 2*cfg.Padding
	for li, level := range levels {
		y := cfg.Padding + float64(li)*levelHeight + levelHeight/2
		spacing := levelWidth / float64(len(level)+1)
		for ni, id := range level {
			positions[id] = graph.Position{X: cfg.Padding + spacing*float64(ni+1), Y: y}
		}
	}
	return positions
}
