// Package layout auto-arranges topology diagrams.
package layout

import (
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-noc/pkg/graph"
)

var ErrUnknownAlgorithm = errors.New("unknown layout algorithm")

// Algorithm names a layout strategy.
type Algorithm string

const (
	Hierarchical Algorithm = "hierarchical"
	Circular     Algorithm = "circular"
	Force        Algorithm = "force"
)

// Algorithms lists the supported strategies.
var Algorithms = []Algorithm{Hierarchical, Circular, Force}

// ParseAlgorithm validates an algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	for _, a := range Algorithms {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, s)
}

// Config configures layout parameters.
type Config struct {
	Width      float64 // Canvas width
	Height     float64 // Canvas height
	Iterations int     // Iterations for force-directed layout
	Padding    float64 // Padding from the canvas edges
	Seed       int64   // Seed for the force-directed initial placement
}

func (c Config) withDefaults() Config {
	if c.Width == 0 {
		c.Width = 1200
	}
	if c.Height == 0 {
		c.Height = 800
	}
	if c.Iterations == 0 {
		c.Iterations = 50
	}
	if c.Padding == 0 {
		c.Padding = 50
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	return c
}

// Layout computes positions for ids, using edges for adjacency. Edges whose
// endpoints are not both in ids are ignored.
type Layout interface {
	Compute(ids []graph.NodeID, edges []graph.Edge) map[graph.NodeID]graph.Position
}

// New returns the layout for alg.
func New(alg Algorithm, cfg Config) (Layout, error) {
	cfg = cfg.withDefaults()
	switch alg {
	case Hierarchical:
		return &HierarchicalLayout{config: cfg}, nil
	case Circular:
		return &CircularLayout{config: cfg}, nil
	case Force:
		return &ForceDirectedLayout{config: cfg}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, alg)
	}
}

// adjacency indexes edges between members of ids.
type adjacency struct {
	out map[graph.NodeID][]graph.NodeID
	in  map[graph.NodeID]int
	// neighbors lists linked nodes in edge order, without duplicates.
	neighbors map[graph.NodeID][]graph.NodeID
}

func buildAdjacency(ids []graph.NodeID, edges []graph.Edge) adjacency {
	member := make(map[graph.NodeID]bool, len(ids))
	for _, id := range ids {
		member[id] = true
	}
	adj := adjacency{
		out:       make(map[graph.NodeID][]graph.NodeID),
		in:        make(map[graph.NodeID]int),
		neighbors: make(map[graph.NodeID][]graph.NodeID),
	}
	linked := make(map[[2]graph.NodeID]bool)
	link := func(a, b graph.NodeID) {
		if linked[[2]graph.NodeID{a, b}] {
			return
		}
		linked[[2]graph.NodeID{a, b}] = true
		adj.neighbors[a] = append(adj.neighbors[a], b)
	}
	for _, e := range edges {
		if !member[e.Source] || !member[e.Target] || e.Source == e.Target {
			continue
		}
		adj.out[e.Source] = append(adj.out[e.Source], e.Target)
		adj.in[e.Target]++
		link(e.Source, e.Target)
		link(e.Target, e.Source)
	}
	return adj
}
