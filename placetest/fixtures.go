// Package placetest provides small in-memory fixtures for exercising
// place.Session end to end without a real netlist/architecture
// reader, the way fem's own t_*_test.go files build miniature
// inp.Region values by hand instead of reading files from disk.
package placetest

import (
	"fmt"
	"math/rand"

	"github.com/cpmech/fpgaplace/place"
)

// Grid is an in-memory place.Device: a rectangular column-typed grid
// with a fixed I/O perimeter.
type Grid struct {
	w, h      int
	colType   []int // len w; -1 for untyped/IO columns
	types     []place.BlockTypeInfo
	ioSites   [][2]int
	committed map[int][2]int
}

// NewGrid builds a W x H grid. columns maps a column x to a block
// type index (or -1); types is the ordered list of movable block
// types; ioSites gives each I/O block's fixed perimeter coordinate in
// index order.
func NewGrid(w, h int, columns []int, types []place.BlockTypeInfo, ioSites [][2]int) *Grid {
	return &Grid{
		w:         w,
		h:         h,
		colType:   columns,
		types:     types,
		ioSites:   ioSites,
		committed: make(map[int][2]int),
	}
}

func (g *Grid) Width() int  { return g.w }
func (g *Grid) Height() int { return g.h }

func (g *Grid) ColumnType(x int) int {
	if x < 0 || x >= len(g.colType) {
		return -1
	}
	return g.colType[x]
}

func (g *Grid) BlockTypes() []place.BlockTypeInfo { return g.types }

func (g *Grid) IOSite(ioIndex int) (x, y int) {
	s := g.ioSites[ioIndex]
	return s[0], s[1]
}

func (g *Grid) Commit(blockIndex, x, y int) error {
	if x < 0 || x >= g.w || y < 0 || y >= g.h {
		return fmt.Errorf("site (%d,%d) outside %dx%d grid", x, y, g.w, g.h)
	}
	g.committed[blockIndex] = [2]int{x, y}
	return nil
}

// CommittedSite returns the last site Commit wrote for blockIndex.
func (g *Grid) CommittedSite(blockIndex int) (x, y int, ok bool) {
	s, ok := g.committed[blockIndex]
	return s[0], s[1], ok
}

// UniformColumns returns a width-w column-type slice where the first
// and last ioWidth columns are -1 (I/O) and the interior cycles
// through pattern in order — e.g. pattern=[]int{0} makes every
// interior column type 0 (all-CLB), pattern=[]int{0,1} alternates.
func UniformColumns(w, ioWidth int, pattern []int) []int {
	cols := make([]int, w)
	pi := 0
	for x := 0; x < w; x++ {
		if x < ioWidth || x >= w-ioWidth {
			cols[x] = -1
			continue
		}
		cols[x] = pattern[pi%len(pattern)]
		pi++
	}
	return cols
}

// PerimeterIOSites returns the numIO I/O sites spread evenly over the
// border ring (corners included), useful when a test only needs fixed
// I/O anchors and does not exercise I/O legalization.
func PerimeterIOSites(w, h, numIO int) [][2]int {
	var ring [][2]int
	for x := 0; x < w; x++ {
		ring = append(ring, [2]int{x, 0})
	}
	for y := 1; y < h; y++ {
		ring = append(ring, [2]int{w - 1, y})
	}
	for x := w - 2; x >= 0; x-- {
		ring = append(ring, [2]int{x, h - 1})
	}
	for y := h - 2; y > 0; y-- {
		ring = append(ring, [2]int{0, y})
	}
	sites := make([][2]int, numIO)
	for i := 0; i < numIO; i++ {
		sites[i] = ring[(i*len(ring))/numIO]
	}
	return sites
}

// SeededRandom wraps math/rand with a fixed seed so place.Session.Run
// is deterministic in tests (spec §8 law 6).
type SeededRandom struct {
	r *rand.Rand
}

func NewSeededRandom(seed int64) *SeededRandom {
	return &SeededRandom{r: rand.New(rand.NewSource(seed))}
}

func (s *SeededRandom) Float64() float64 { return s.r.Float64() }
