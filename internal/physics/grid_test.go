package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect(g *SpatialGrid, x, y float64) []int {
	var got []int
	g.QueryAround(x, y, func(i int) bool {
		got = append(got, i)
		return false
	})
	return got
}

func TestSpatialGrid_QueryAround(t *testing.T) {
	g := NewSpatialGrid(0, 0, 100, 100, 10)
	g.Insert(15, 15, 0) // cell (1,1)
	g.Insert(25, 25, 1) // cell (2,2)
	g.Insert(55, 55, 2) // far away

	assert.ElementsMatch(t, []int{0, 1}, collect(g, 18, 18))
	assert.ElementsMatch(t, []int{2}, collect(g, 50, 50))
}

func TestSpatialGrid_DoesNotWrap(t *testing.T) {
	g := NewSpatialGrid(0, 0, 100, 100, 10)
	g.Insert(95, 5, 0)

	assert.Empty(t, collect(g, 2, 5), "opposite edges are not neighbors")
}

func TestSpatialGrid_ClampsOutsidePositions(t *testing.T) {
	g := NewSpatialGrid(-10, -10, 110, 110, 10)
	g.Insert(-500, 50, 0)
	g.Insert(-11, 52, 1)

	assert.ElementsMatch(t, []int{0, 1}, collect(g, -9, 50))
}

func TestSpatialGrid_StopEarly(t *testing.T) {
	g := NewSpatialGrid(0, 0, 100, 100, 10)
	g.Insert(5, 5, 0)
	g.Insert(6, 6, 1)

	calls := 0
	g.QueryAround(5, 5, func(int) bool {
		calls++
		return true
	})
	assert.Equal(t, 1, calls)
}

func TestSpatialGrid_Clear(t *testing.T) {
	g := NewSpatialGrid(0, 0, 100, 100, 10)
	g.Insert(5, 5, 0)
	g.Clear()

	assert.Empty(t, collect(g, 5, 5))
}
