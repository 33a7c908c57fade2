// Package arena hosts the simulation around the decision engine: the
// battlefield grid, match pairing, and match resolution.
package arena

import (
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/strategos/internal/decision"
)

// Cell is one battlefield location with its environmental readings.
type Cell struct {
	Threat      float64 // [0,1]
	Scarcity    float64 // [0,1]
	Social      float64 // [0,1]
	Environment decision.Environment
}

// Field is a square battlefield grid. Threat, scarcity, and social pressure
// vary smoothly across it so adjacent matches see similar contexts.
type Field struct {
	Size  int
	cells [][]Cell
}

// NewField generates a size x size field from layered noise. The same seed
// always yields the same field.
func NewField(size int, seed int64) *Field {
	if size < 1 {
		size = 1
	}

	// Independent noise layers per reading.
	threatNoise := opensimplex.NewNormalized(seed)
	scarcityNoise := opensimplex.NewNormalized(seed + 1)
	socialNoise := opensimplex.NewNormalized(seed + 2)

	const freq = 0.15

	f := &Field{Size: size, cells: make([][]Cell, size)}
	for x := 0; x < size; x++ {
		f.cells[x] = make([]Cell, size)
		for y := 0; y < size; y++ {
			fx, fy := float64(x)*freq, float64(y)*freq
			c := Cell{
				Threat:   threatNoise.Eval2(fx, fy),
				Scarcity: scarcityNoise.Eval2(fx, fy),
				Social:   socialNoise.Eval2(fx, fy),
			}
			c.Environment = classifyCell(c)
			f.cells[x][y] = c
		}
	}
	return f
}

// classifyCell derives the dominant environment from the cell's readings.
func classifyCell(c Cell) decision.Environment {
	switch {
	case c.Threat > 0.6:
		return decision.EnvBattle
	case c.Social > 0.6:
		return decision.EnvCooperation
	case c.Scarcity > 0.6:
		return decision.EnvEvolution
	default:
		return decision.EnvExploration
	}
}

// At returns the cell at (x, y), clamping out-of-range coordinates to the
// nearest edge.
func (f *Field) At(x, y int) Cell {
	return f.cells[clampIndex(x, f.Size)][clampIndex(y, f.Size)]
}

func clampIndex(i, size int) int {
	if i < 0 {
		return 0
	}
	if i >= size {
		return size - 1
	}
	return i
}
