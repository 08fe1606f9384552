package layout

import (
	"math"

	"github.com/dd0wney/cluso-noc/pkg/graph"
)

// CircularLayout arranges nodes evenly on a circle in input order.
type CircularLayout struct {
	config Config
}

// Compute arranges nodes in a circle.
func (cl *CircularLayout) Compute(ids []graph.NodeID, _ []graph.Edge) map[graph.NodeID]graph.Position {
	positions := make(map[graph.NodeID]graph.Position, len(ids))
	if len(ids) == 0 {
		return positions
	}

	centerX := cl.config.Width / 2
	centerY := cl.config.Height / 2
	radius := math.Min(centerX, centerY) - cl.config.Padding
	angleStep := 2 * math.Pi / float64(len(ids))

	for i, id := range ids {
		angle := float64(i) * angleStep
		positions[id] = graph.Position{
			X: centerX + radius*math.Cos(angle),
			Y: centerY + radius*math.Sin(angle),
		}
	}
	return positions
}
