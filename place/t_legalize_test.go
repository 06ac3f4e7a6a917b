package place

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

// latticeDevice is a Device whose column types come from an explicit
// per-column slice, used by this package's legalizer white-box tests.
type latticeDevice struct {
	w, h    int
	cols    []int
	ioSites [][2]int
	types   []BlockTypeInfo
}

func (d *latticeDevice) Width() int  { return d.w }
func (d *latticeDevice) Height() int { return d.h }
func (d *latticeDevice) ColumnType(x int) int {
	if x < 0 || x >= len(d.cols) {
		return -1
	}
	return d.cols[x]
}
func (d *latticeDevice) BlockTypes() []BlockTypeInfo { return d.types }
func (d *latticeDevice) IOSite(i int) (int, int)     { s := d.ioSites[i]; return s[0], s[1] }
func (d *latticeDevice) Commit(i, x, y int) error     { return nil }

// Test_legalize01 is scenario E3: 3 hard MULT blocks on a 10x10 grid,
// start=2 repeat=3 height=2. Every block must land on the type's
// lattice, and no two on the same site (invariant 1).
func Test_legalize01(tst *testing.T) {

	chk.PrintTitle("legalize01 (E3 hard block lattice)")

	info := BlockTypeInfo{Category: CategoryHard, Name: "MULT", Start: 2, Repeat: 3, Height: 2}
	cols := make([]int, 10)
	for x := range cols {
		cols[x] = -1
	}
	for x := info.Start; x < 10; x += info.Repeat {
		cols[x] = 0
	}
	dev := &latticeDevice{w: 10, h: 10, cols: cols, types: []BlockTypeInfo{info}}
	reg, err := NewBlockRegistry(0, []int{3})
	if err != nil {
		tst.Fatalf("registry: %v", err)
	}
	cost := NewWirelengthCalculator(NetSlice{}, false)
	lg := NewLegalizer(dev, reg, cost)

	linearX := []float64{2, 5, 8}
	linearY := []float64{1, 3, 7}
	if err := lg.legalizeType(0, info, linearX, linearY, 1.0); err != nil {
		tst.Fatalf("legalizeType: %v", err)
	}

	seen := map[[2]int]bool{}
	for i := 0; i < 3; i++ {
		x, y := lg.TmpLegalX[i], lg.TmpLegalY[i]
		if dev.ColumnType(x) != 0 {
			tst.Fatalf("block %d landed on non-matching column x=%d", i, x)
		}
		if (x-info.Start)%info.Repeat != 0 {
			tst.Fatalf("block %d off the x lattice: x=%d", i, x)
		}
		if (y-1)%info.Height != 0 {
			tst.Fatalf("block %d off the y lattice: y=%d", i, y)
		}
		site := [2]int{x, y}
		if seen[site] {
			tst.Fatalf("two blocks share site %v", site)
		}
		seen[site] = true
	}
}

// Test_legalize02 is scenario E4: 10 CLBs clustered at the grid center
// must force the seeded center area to grow and absorb at least one
// neighboring area before bipartition, and the final placement must be
// legal (invariant 1).
func Test_legalize02(tst *testing.T) {

	chk.PrintTitle("legalize02 (E4 area absorption)")

	cols := make([]int, 12)
	for x := range cols {
		cols[x] = -1
	}
	for x := 1; x <= 8; x++ {
		cols[x] = 0
	}
	info := BlockTypeInfo{Category: CategoryCLB, Name: "CLB", Start: 1, Repeat: 1, Height: 1}
	dev := &latticeDevice{w: 12, h: 12, cols: cols, types: []BlockTypeInfo{info}}
	reg, err := NewBlockRegistry(0, []int{10})
	if err != nil {
		tst.Fatalf("registry: %v", err)
	}
	cost := NewWirelengthCalculator(NetSlice{}, false)
	lg := NewLegalizer(dev, reg, cost)

	// clustered around the grid center: three blocks share the center
	// tile (6,6), so its area is over capacity and must grow, and the
	// other seven sit on adjacent tiles as 1x1 areas for it to absorb.
	jitterX := []float64{6, 6, 6, 7, 5, 6, 6, 7, 5, 7}
	jitterY := []float64{6, 6, 6, 6, 6, 7, 5, 7, 5, 5}
	linearX := make([]float64, 10)
	linearY := make([]float64, 10)
	copy(linearX, jitterX)
	copy(linearY, jitterY)

	if err := lg.legalizeType(0, info, linearX, linearY, 1.0); err != nil {
		tst.Fatalf("legalizeType: %v", err)
	}

	absorbedCount := 0
	for _, a := range lg.areas {
		if a.Absorbed {
			absorbedCount++
		}
	}
	if absorbedCount == 0 {
		tst.Fatalf("expected at least one absorbed area when 10 blocks cluster around the center tile")
	}

	seen := map[[2]int]bool{}
	for i := 0; i < 10; i++ {
		x, y := lg.TmpLegalX[i], lg.TmpLegalY[i]
		if dev.ColumnType(x) != 0 {
			tst.Fatalf("block %d on non-CLB column x=%d", i, x)
		}
		site := [2]int{x, y}
		if seen[site] {
			tst.Fatalf("two blocks share site %v", site)
		}
		seen[site] = true
	}
}

// Test_legalize03 checks invariant 11: an area whose rectangle is a
// single tile places every block in its list at that tile.
func Test_legalize03(tst *testing.T) {

	chk.PrintTitle("legalize03 (single-tile area)")

	info := BlockTypeInfo{Category: CategoryCLB, Name: "CLB", Start: 1, Repeat: 1, Height: 1}
	cols := []int{-1, 0, 0, -1}
	dev := &latticeDevice{w: 4, h: 4, cols: cols, types: []BlockTypeInfo{info}}
	reg, err := NewBlockRegistry(0, []int{1})
	if err != nil {
		tst.Fatalf("registry: %v", err)
	}
	cost := NewWirelengthCalculator(NetSlice{}, false)
	lg := NewLegalizer(dev, reg, cost)

	rect := Rect{Left: 1, Top: 1, Right: 1, Bottom: 1}
	if err := lg.legalizeArea(rect, []int{0}, axisX, 0, info, []float64{1}, []float64{1}); err != nil {
		tst.Fatalf("legalizeArea: %v", err)
	}
	if lg.TmpLegalX[0] != rect.Left || lg.TmpLegalY[0] != rect.Top {
		tst.Fatalf("expected block at tile (%d,%d), got (%d,%d)", rect.Left, rect.Top, lg.TmpLegalX[0], lg.TmpLegalY[0])
	}
}

// Test_legalize04 checks invariant 12: growing toward either edge
// never produces a rect outside [1, W-2].
func Test_legalize04(tst *testing.T) {

	chk.PrintTitle("legalize04 (growth stays inside the interior)")

	info := BlockTypeInfo{Category: CategoryCLB, Name: "CLB", Start: 1, Repeat: 1, Height: 1}
	cols := make([]int, 6)
	for x := range cols {
		cols[x] = -1
	}
	for x := 1; x <= 4; x++ {
		cols[x] = 0
	}
	dev := &latticeDevice{w: 6, h: 6, cols: cols, types: []BlockTypeInfo{info}}
	lg := &Legalizer{Device: dev}

	rect := Rect{Left: 1, Top: 1, Right: 1, Bottom: 1}
	for i := 0; i < 10; i++ {
		if g, ok := lg.stepRect(rect, dirLeft, info); ok {
			rect = g
		}
	}
	if rect.Left < 1 {
		tst.Fatalf("area grew past the left interior boundary: left=%d", rect.Left)
	}

	rect = Rect{Left: 4, Top: 1, Right: 4, Bottom: 1}
	for i := 0; i < 10; i++ {
		if g, ok := lg.stepRect(rect, dirRight, info); ok {
			rect = g
		}
	}
	if rect.Right > dev.w-2 {
		tst.Fatalf("area grew past the right interior boundary: right=%d", rect.Right)
	}
}

// Test_legalize05 checks invariant 5: recursive bipartition preserves
// block count across the split.
func Test_legalize05(tst *testing.T) {

	chk.PrintTitle("legalize05 (bipartition preserves block count)")

	info := BlockTypeInfo{Category: CategoryCLB, Name: "CLB", Start: 1, Repeat: 1, Height: 1}
	cols := make([]int, 10)
	for x := range cols {
		cols[x] = -1
	}
	for x := 1; x <= 8; x++ {
		cols[x] = 0
	}
	dev := &latticeDevice{w: 10, h: 10, cols: cols, types: []BlockTypeInfo{info}}
	reg, err := NewBlockRegistry(0, []int{6})
	if err != nil {
		tst.Fatalf("registry: %v", err)
	}
	cost := NewWirelengthCalculator(NetSlice{}, false)
	lg := NewLegalizer(dev, reg, cost)

	blocks := []int{0, 1, 2, 3, 4, 5}
	linearX := []float64{2, 2, 2, 7, 7, 7}
	linearY := []float64{2, 4, 6, 2, 4, 6}
	rect := Rect{Left: 1, Top: 1, Right: 8, Bottom: 8}

	if err := lg.legalizeArea(rect, blocks, axisX, 0, info, linearX, linearY); err != nil {
		tst.Fatalf("legalizeArea: %v", err)
	}

	placed := map[[2]int]bool{}
	for _, b := range blocks {
		x, y := lg.TmpLegalX[b], lg.TmpLegalY[b]
		if x < rect.Left || x > rect.Right || y < rect.Top || y > rect.Bottom {
			tst.Fatalf("block %d placed outside the area: (%d,%d)", b, x, y)
		}
		placed[[2]int{x, y}] = true
	}
	if len(placed) != len(blocks) {
		tst.Fatalf("expected %d blocks on distinct sites, got %d sites", len(blocks), len(placed))
	}
}
