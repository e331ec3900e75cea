package physics

import "math"

// SpatialGrid is a uniform grid for broad-phase collision detection over a bounded region.
// Objects are inserted by position and index, then nearby objects can be queried
// in O(1) per cell via a 3x3 neighborhood lookup.
//
// Cell size must be >= the maximum interaction distance between any two
// colliding objects so that all potential collisions are found within
// the 3x3 neighborhood. Positions outside the region are clamped into the
// border cells, which keeps neighbors adjacent (clamping never separates two
// positions by more than they were apart).
type SpatialGrid struct {
	originX     float64
	originY     float64
	cellSize    float64
	invCellSize float64 // 1 / cellSize (precomputed to avoid division)
	cols        int
	rows        int
	cells       []gridCell
}

// gridCell stores the indices of objects that fall within a grid cell.
// The slice is reused between frames (reset to [:0]) to avoid allocations.
type gridCell struct {
	items []int
}

// NewSpatialGrid creates a spatial grid covering [minX, maxX) x [minY, maxY).
// cellSize should be >= the maximum collision distance for the objects being inserted.
func NewSpatialGrid(minX, minY, maxX, maxY, cellSize float64) *SpatialGrid {
	cols := int(math.Ceil((maxX - minX) / cellSize))
	rows := int(math.Ceil((maxY - minY) / cellSize))
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cells := make([]gridCell, cols*rows)
	return &SpatialGrid{
		originX:     minX,
		originY:     minY,
		cellSize:    cellSize,
		invCellSize: 1.0 / cellSize,
		cols:        cols,
		rows:        rows,
		cells:       cells,
	}
}

// Clear removes all items from the grid without deallocating cell memory.
func (g *SpatialGrid) Clear() {
	for i := range g.cells {
		g.cells[i].items = g.cells[i].items[:0]
	}
}

// Insert adds an item (identified by index) at the given position.
func (g *SpatialGrid) Insert(x, y float64, index int) {
	col, row := g.posToCell(x, y)
	idx := row*g.cols + col
	g.cells[idx].items = append(g.cells[idx].items, index)
}

// QueryAround calls fn for each item index in the 3x3 cell neighborhood
// around the given position. Neighbors outside the grid are skipped.
// If fn returns true, iteration stops early (useful for "find first" queries).
func (g *SpatialGrid) QueryAround(x, y float64, fn func(index int) bool) {
	col, row := g.posToCell(x, y)

	for r := max(row-1, 0); r <= min(row+1, g.rows-1); r++ {
		rowOffset := r * g.cols
		for c := max(col-1, 0); c <= min(col+1, g.cols-1); c++ {
			for _, itemIdx := range g.cells[rowOffset+c].items {
				if fn(itemIdx) {
					return
				}
			}
		}
	}
}

// posToCell converts coordinates to grid cell coordinates.
// Clamps to valid range so bodies outside the region land in border cells.
func (g *SpatialGrid) posToCell(x, y float64) (col, row int) {
	fx := math.Floor((x - g.originX) * g.invCellSize)
	fy := math.Floor((y - g.originY) * g.invCellSize)

	switch {
	case fx < 0 || math.IsNaN(fx):
		col = 0
	case fx >= float64(g.cols):
		col = g.cols - 1
	default:
		col = int(fx)
	}

	switch {
	case fy < 0 || math.IsNaN(fy):
		row = 0
	case fy >= float64(g.rows):
		row = g.rows - 1
	default:
		row = int(fy)
	}

	return col, row
}
