// Package systems holds the per-tick disease engines: progression,
// transmission, and treatment, plus the spatial index transmission uses.
package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/contagion/components"
)

// SpatialGrid provides O(1) neighbor lookups using a cell-based grid
// over a toroidal world.
type SpatialGrid struct {
	cellSize float32
	cols     int
	rows     int
	width    float32
	height   float32
	cells    [][]ecs.Entity // flat grid of entity lists

	// MaxResults caps the number of neighbors one query returns.
	// Zero means unlimited.
	MaxResults int
}

// NewSpatialGrid creates a spatial grid covering the given world size.
func NewSpatialGrid(width, height, cellSize float32) *SpatialGrid {
	cols := max(1, int(math.Ceil(float64(width/cellSize))))
	rows := max(1, int(math.Ceil(float64(height/cellSize))))

	cells := make([][]ecs.Entity, cols*rows)
	for i := range cells {
		cells[i] = make([]ecs.Entity, 0, 8) // pre-allocate small capacity
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		width:    width,
		height:   height,
		cells:    cells,
	}
}

// Clear removes all entities from the grid.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

// Insert files e under the cell containing (x, y). Positions outside the
// world wrap around.
func (g *SpatialGrid) Insert(e ecs.Entity, x, y float32) {
	idx := g.cellIndex(x, y)
	g.cells[idx] = append(g.cells[idx], e)
}

// QueryRadiusInto appends entities within radius of (x, y) to dst and
// returns the updated slice. Reuse dst across calls to avoid allocations.
func (g *SpatialGrid) QueryRadiusInto(dst []ecs.Entity, x, y, radius float32, exclude ecs.Entity, posMap *ecs.Map[components.Position]) []ecs.Entity {
	cellRadius := int(radius/g.cellSize) + 1

	centerCol := int(x / g.cellSize)
	centerRow := int(y / g.cellSize)
	colLo, colHi := wrapSpan(centerCol, cellRadius, g.cols)
	rowLo, rowHi := wrapSpan(centerRow, cellRadius, g.rows)

	radiusSq := radius * radius
	start := len(dst)

	for c := colLo; c <= colHi; c++ {
		for r := rowLo; r <= rowHi; r++ {
			idx := wrapIndex(r, g.rows)*g.cols + wrapIndex(c, g.cols)

			for _, e := range g.cells[idx] {
				if e == exclude {
					continue
				}

				if !posMap.Has(e) {
					continue
				}
				pos := posMap.Get(e)

				dx, dy := ToroidalDelta(x, y, pos.X, pos.Y, g.width, g.height)
				if dx*dx+dy*dy > radiusSq {
					continue
				}
				dst = append(dst, e)
				if g.MaxResults > 0 && len(dst)-start >= g.MaxResults {
					return dst
				}
			}
		}
	}

	return dst
}

// wrapSpan returns the unwrapped cell range to scan around center so that
// each of the n cells is visited at most once.
func wrapSpan(center, radius, n int) (lo, hi int) {
	if 2*radius+1 >= n {
		return center, center + n - 1
	}
	return center - radius, center + radius
}

func (g *SpatialGrid) cellIndex(x, y float32) int {
	col := wrapIndex(int(math.Floor(float64(x/g.cellSize))), g.cols)
	row := wrapIndex(int(math.Floor(float64(y/g.cellSize))), g.rows)
	return row*g.cols + col
}

func wrapIndex(i, n int) int {
	return (i%n + n) % n
}

// ToroidalDelta returns the shortest offset from (x1,y1) to (x2,y2) on a
// w by h torus.
func ToroidalDelta(x1, y1, x2, y2, w, h float32) (dx, dy float32) {
	return shortest(x2-x1, w), shortest(y2-y1, h)
}

func shortest(d, span float32) float32 {
	switch {
	case d > span/2:
		return d - span
	case d < -span/2:
		return d + span
	}
	return d
}

// GridIndex answers SpatialQuery from a SpatialGrid rebuilt once per tick
// from every entity with a Position.
type GridIndex struct {
	world     *ecs.World
	grid      *SpatialGrid
	positions *ecs.Map[components.Position]
	filter    *ecs.Filter1[components.Position]
	buf       []ecs.Entity
}

// NewGridIndex binds a grid to the world's positioned entities.
func NewGridIndex(world *ecs.World, grid *SpatialGrid) *GridIndex {
	return &GridIndex{
		world:     world,
		grid:      grid,
		positions: ecs.NewMap[components.Position](world),
		filter:    ecs.NewFilter1[components.Position](world),
		buf:       make([]ecs.Entity, 0, 64),
	}
}

// Rebuild re-inserts every positioned entity.
func (x *GridIndex) Rebuild() {
	x.grid.Clear()
	query := x.filter.Query()
	for query.Next() {
		pos := query.Get()
		x.grid.Insert(query.Entity(), pos.X, pos.Y)
	}
}

// EntitiesWithin implements SpatialQuery. The result is only valid until
// the next call.
func (x *GridIndex) EntitiesWithin(origin ecs.Entity, radius float64) []ecs.Entity {
	if !x.world.Alive(origin) || !x.positions.Has(origin) {
		return nil
	}
	pos := x.positions.Get(origin)
	x.buf = x.grid.QueryRadiusInto(x.buf[:0], pos.X, pos.Y, float32(radius), origin, x.positions)
	return x.buf
}
