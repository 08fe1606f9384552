package layout

import (
	"math"
	"math/rand"

	"github.com/dd0wney/cluso-noc/pkg/graph"
)

// ForceDirectedLayout is a Fruchterman-Reingold style layout. The initial
// placement is seeded, so equal inputs give equal output.
type ForceDirectedLayout struct {
	config Config
}

// Compute runs the force simulation and scales the result to the canvas.
func (fl *ForceDirectedLayout) Compute(ids []graph.NodeID, edges []graph.Edge) map[graph.NodeID]graph.Position {
	cfg := fl.config
	if len(ids) == 0 {
		return make(map[graph.NodeID]graph.Position)
	}
	if len(ids) == 1 {
		return map[graph.NodeID]graph.Position{ids[0]: {X: cfg.Width / 2, Y: cfg.Height / 2}}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	positions := make(map[graph.NodeID]graph.Position, len(ids))
	for _, id := range ids {
		positions[id] = graph.Position{
			X: rng.Float64()*(cfg.Width-2*cfg.Padding) + cfg.Padding,
			Y: rng.Float64()*(cfg.Height-2*cfg.Padding) + cfg.Padding,
		}
	}
	adj := buildAdjacency(ids, edges)

	k := math.Sqrt((cfg.Width * cfg.Height) / float64(len(ids))) // optimal distance
	temperature := cfg.Width / 10.0

	for iter := 0; iter < cfg.Iterations; iter++ {
		forces := make(map[graph.NodeID]graph.Position, len(ids))

		// Repulsion between all pairs
		for i, a := range ids {
			for _, b := range ids[i+1:] {
				dx := positions[a].X - positions[b].X
				dy := positions[a].Y - positions[b].Y
				dist := math.Max(math.Hypot(dx, dy), 0.01)

				force := (k * k) / dist
				fx, fy := dx/dist*force, dy/dist*force
				forces[a] = graph.Position{X: forces[a].X + fx, Y: forces[a].Y + fy}
				forces[b] = graph.Position{X: forces[b].X - fx, Y: forces[b].Y - fy}
			}
		}

		// Attraction along links
		for _, a := range ids {
			for _, b := range adj.neighbors[a] {
				dx := positions[a].X - positions[b].X
				dy := positions[a].Y - positions[b].Y
				dist := math.Hypot(dx, dy)
				if dist < 0.01 {
					continue
				}
				force := (dist * dist) / k
				forces[a] = graph.Position{X: forces[a].X - dx/dist*force, Y: forces[a].Y - dy/dist*force}
			}
		}

		cool := 1.0 - float64(iter)/float64(cfg.Iterations)
		for _, id := range ids {
			f := forces[id]
			mag := math.Hypot(f.X, f.Y)
			if mag == 0 {
				continue
			}
			step := math.Min(mag, temperature) * cool
			positions[id] = graph.Position{
				X: positions[id].X + f.X/mag*step,
				Y: positions[id].Y + f.Y/mag*step,
			}
		}
		temperature *= 0.95
	}

	return normalize(positions, cfg.Width, cfg.Height, cfg.Padding)
}

// normalize scales positions to fit within the padded canvas.
func normalize(positions map[graph.NodeID]graph.Position, width, height, padding float64) map[graph.NodeID]graph.Position {
	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	minY, maxY := math.MaxFloat64, -math.MaxFloat64
	for _, p := range positions {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	if rangeX < 0.01 {
		rangeX = 1
	}
	rangeY := maxY - minY
	if rangeY < 0.01 {
		rangeY = 1
	}

	targetW := width - 2*padding
	targetH := height - 2*padding
	out := make(map[graph.NodeID]graph.Position, len(positions))
	for id, p := range positions {
		out[id] = graph.Position{
			X: padding + (p.X-minX)/rangeX*targetW,
			Y: padding + (p.Y-minY)/rangeY*targetH,
		}
	}
	return out
}
