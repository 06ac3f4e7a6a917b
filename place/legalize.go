package place

import (
	"math"
	"sort"

	"github.com/cpmech/gosl/utl"
)

const (
	axisX = iota
	axisY
)

const (
	dirRight = iota
	dirDown
	dirLeft
	dirUp
)

// Site is a lattice grid coordinate.
type Site struct {
	X, Y int
}

// Rect is a lattice-aligned rectangle, inclusive on both ends.
type Rect struct {
	Left, Top, Right, Bottom int
}

func (r Rect) width() int  { return r.Right - r.Left + 1 }
func (r Rect) height() int { return r.Bottom - r.Top + 1 }

func unionRect(a, b Rect) Rect {
	return Rect{
		Left:   intMin(a.Left, b.Left),
		Top:    intMin(a.Top, b.Top),
		Right:  intMax(a.Right, b.Right),
		Bottom: intMax(a.Bottom, b.Bottom),
	}
}

// LegalizerArea is a transient rectangular grouping of same-type
// blocks, grown to cover enough lattice sites before recursive
// bipartition assigns each block a distinct site (spec §3, §4.3).
type LegalizerArea struct {
	Rect       Rect
	Blocks     []int
	Occupation int
	Capacity   int // count of type-matching lattice sites currently covered
	Absorbed   bool
	exhausted  [4]bool
	nextDir    int
}

// Legalizer implements C6: area construction (growth/absorption) and
// recursive bipartition, and owns the session's tmpLegal/bestLegal
// arrays the way fem.Domain owns Sol.Y across a time step.
type Legalizer struct {
	Device   Device
	Registry *BlockRegistry
	Cost     CostCalculator

	TmpLegalX, TmpLegalY   []int
	BestLegalX, BestLegalY []int
	BestCost               float64
	haveBest               bool

	// scratch, rebuilt per pass
	areas  []*LegalizerArea
	areaAt [][]int // [x][y] -> area index, or -1
	bucket [][][]int
}

// NewLegalizer allocates the session-scoped legal-coordinate arrays.
// I/O entries are seeded from the device's fixed sites.
func NewLegalizer(dev Device, reg *BlockRegistry, cost CostCalculator) *Legalizer {
	n := reg.NumBlocks()
	lg := &Legalizer{
		Device:     dev,
		Registry:   reg,
		Cost:       cost,
		TmpLegalX:  make([]int, n),
		TmpLegalY:  make([]int, n),
		BestLegalX: make([]int, n),
		BestLegalY: make([]int, n),
		BestCost:   math.Inf(1),
	}
	for i := 0; i < reg.NumIO(); i++ {
		x, y := dev.IOSite(i)
		lg.TmpLegalX[i], lg.TmpLegalY[i] = x, y
		lg.BestLegalX[i], lg.BestLegalY[i] = x, y
	}
	return lg
}

// RunPass legalizes every movable block type against the current
// linear placement, then evaluates cost and advances bestLegal on
// strict improvement (spec §4.5 step 5). When legalizeIOBlocks is set
// the I/O blocks are redistributed over the perimeter first; Session.Run
// sets it only on the session's first legalization.
func (lg *Legalizer) RunPass(linearX, linearY []float64, tileCapacity float64, legalizeIOBlocks bool) (improved bool, cost float64, err error) {
	if legalizeIOBlocks {
		lg.legalizeIO(linearX, linearY)
	}

	types := lg.Device.BlockTypes()
	for t, info := range types {
		if err := lg.legalizeType(t, info, linearX, linearY, tileCapacity); err != nil {
			return false, 0, err
		}
	}

	if lg.Cost.RequiresDeviceUpdate() {
		if err := lg.stageDevice(lg.TmpLegalX, lg.TmpLegalY); err != nil {
			return false, 0, err
		}
	}
	newCost := lg.Cost.Calculate(lg.TmpLegalX, lg.TmpLegalY)

	if newCost < lg.BestCost && tileCapacity <= 1.0 {
		lg.commitBest()
		lg.BestCost = newCost
		if lg.Cost.RequiresDeviceUpdate() {
			// device already reflects tmpLegal == new bestLegal.
		}
		return true, newCost, nil
	}
	if lg.Cost.RequiresDeviceUpdate() {
		if err := lg.stageDevice(lg.BestLegalX, lg.BestLegalY); err != nil {
			return false, 0, err
		}
	}
	return false, newCost, nil
}

func (lg *Legalizer) stageDevice(x, y []int) error {
	reg := lg.Registry
	for i := reg.NumIO(); i < reg.NumBlocks(); i++ {
		if err := lg.Device.Commit(i, x[i], y[i]); err != nil {
			return integrityErrf(i, "cannot stage site (%d,%d): %v", x[i], y[i], err)
		}
	}
	return nil
}

// commitBest copies tmpLegal into bestLegal across every indexed
// block, I/O included (I/O entries are a no-op copy unless
// legalizeIO has run this pass, since both arrays start out seeded
// identically from the device).
func (lg *Legalizer) commitBest() {
	n := lg.Registry.NumBlocks()
	copy(lg.BestLegalX[:n], lg.TmpLegalX[:n])
	copy(lg.BestLegalY[:n], lg.TmpLegalY[:n])
	lg.haveBest = true
}

// legalizeIO distributes I/O blocks evenly over the perimeter ring,
// excluding corners, walking clockwise from (1,0) (spec §4.3).
func (lg *Legalizer) legalizeIO(linearX, linearY []float64) {
	numIO := lg.Registry.NumIO()
	if numIO == 0 {
		return
	}
	w, h := lg.Device.Width(), lg.Device.Height()
	sites := perimeterSitesClockwise(w, h)
	numSites := len(sites)
	if numSites == 0 {
		return
	}

	buckets := make([][]int, numSites)
	// utl.IntRange(numIO) walks the I/O indices [0,numIO) the way
	// fem/t_p_test.go builds its equation-id range, rather than a
	// hand-rolled counting loop.
	for _, i := range utl.IntRange(numIO) {
		idx := nearestSiteIndex(linearX[i], linearY[i], sites)
		buckets[idx] = append(buckets[idx], i)
	}
	var order []int
	for s := 0; s < numSites; s++ {
		sort.Ints(buckets[s])
		order = append(order, buckets[s]...)
	}

	blocksPerSite := float64(numIO) / float64(numSites)
	pos := 0
	for s := 0; s < numSites; s++ {
		target := int(math.Floor(blocksPerSite * float64(s+1)))
		if target > len(order) {
			target = len(order)
		}
		for pos < target {
			blk := order[pos]
			lg.TmpLegalX[blk] = sites[s].X
			lg.TmpLegalY[blk] = sites[s].Y
			pos++
		}
	}
}

// perimeterSitesClockwise enumerates the border ring excluding the 4
// corners: 2(W+H-4) sites, starting at (1,0) and proceeding clockwise
// bottom -> right -> top -> left.
func perimeterSitesClockwise(w, h int) []Site {
	var sites []Site
	for x := 1; x <= w-2; x++ {
		sites = append(sites, Site{x, 0})
	}
	for y := 1; y <= h-2; y++ {
		sites = append(sites, Site{w - 1, y})
	}
	for x := w - 2; x >= 1; x-- {
		sites = append(sites, Site{x, h - 1})
	}
	for y := h - 2; y >= 1; y-- {
		sites = append(sites, Site{0, y})
	}
	return sites
}

// nearestSiteIndex picks the closest site by squared distance,
// breaking ties in favor of the larger (x,y) — i.e. right/top,
// matching the "midpoint ties favoring right/top" rule of §4.3/§9.
func nearestSiteIndex(lx, ly float64, sites []Site) int {
	best := 0
	bestD := math.Inf(1)
	for i, s := range sites {
		dx, dy := lx-float64(s.X), ly-float64(s.Y)
		d := dx*dx + dy*dy
		if d < bestD-1e-12 {
			bestD, best = d, i
		} else if math.Abs(d-bestD) <= 1e-12 {
			if s.X > sites[best].X || (s.X == sites[best].X && s.Y > sites[best].Y) {
				best = i
			}
		}
	}
	return best
}

// legalizeType runs one pass of bucketing, area growth/absorption and
// recursive bipartition for a single movable block type.
func (lg *Legalizer) legalizeType(typeIdx int, info BlockTypeInfo, linearX, linearY []float64, tileCapacity float64) error {
	w, h := lg.Device.Width(), lg.Device.Height()
	lo, hi := lg.Registry.TypeStart(typeIdx), lg.Registry.TypeStart(typeIdx+1)
	if lo >= hi {
		return nil
	}

	lg.bucket = make([][][]int, w)
	for x := range lg.bucket {
		lg.bucket[x] = make([][]int, h)
	}
	lg.areaAt = make([][]int, w)
	for x := range lg.areaAt {
		lg.areaAt[x] = make([]int, h)
		for y := range lg.areaAt[x] {
			lg.areaAt[x][y] = -1
		}
	}
	lg.areas = nil

	for i := lo; i < hi; i++ {
		x, y, err := lg.closestSite(info, typeIdx, linearX[i], linearY[i])
		if err != nil {
			return integrityErrf(i, "%v", err)
		}
		lg.bucket[x][y] = append(lg.bucket[x][y], i)
	}

	lg.seedAreas(w, h, typeIdx, info)
	for _, a := range lg.areas {
		if a.Absorbed {
			continue
		}
		lg.growArea(a, typeIdx, info, tileCapacity)
	}

	for _, a := range lg.areas {
		if a.Absorbed {
			continue
		}
		if err := lg.legalizeArea(a.Rect, a.Blocks, axisX, typeIdx, info, linearX, linearY); err != nil {
			return err
		}
	}
	return nil
}

// closestSite implements the three category-specific policies of
// §4.3/§9: CLB uses an outward column search, HARD rounds to its
// lattice, and here (used only for CLB/HARD bucketing — I/O uses
// legalizeIO's own perimeter-bucket policy) is represented as a
// tagged switch rather than per-category types.
func (lg *Legalizer) closestSite(info BlockTypeInfo, typeIdx int, lx, ly float64) (x, y int, err error) {
	w, h := lg.Device.Width(), lg.Device.Height()
	switch info.Category {
	case CategoryHard:
		x = latticeRound(lx, info.Start, info.Repeat, w-1)
		y = latticeRound(ly, 1, info.Height, h-2)
		return x, y, nil
	default: // CategoryCLB
		x0 := clampInt(int(math.Round(lx)), 0, w-1)
		y = clampInt(int(math.Round(ly)), 1, h-2)
		maxSteps := 2 * w
		for step := 0; step <= maxSteps; step++ {
			for _, cand := range []int{x0 + step, x0 - step} {
				if cand < 0 || cand >= w {
					continue
				}
				if lg.Device.ColumnType(cand) == typeIdx {
					return cand, y, nil
				}
				if step == 0 {
					break
				}
			}
		}
		return 0, 0, integrityErrf(-1, "no column of type %q found within %d steps of x=%d", info.Name, maxSteps, x0)
	}
}

// latticeRound snaps v to the nearest lattice point start+k*step,
// clamped so the result stays within [start,maxV].
func latticeRound(v float64, start, step, maxV int) int {
	if step <= 0 {
		step = 1
	}
	k := math.Round((v - float64(start)) / float64(step))
	x := start + int(k)*step
	return clampInt(x, start, maxV)
}

// seedAreas visits cells in outward Chebyshev rings from the grid
// center, instantiating a 1x1 area at every occupied, uncovered cell
// (spec §4.3 area seeding).
func (lg *Legalizer) seedAreas(w, h, typeIdx int, info BlockTypeInfo) {
	cx, cy := w/2, h/2
	maxRing := intMax(w, h)
	seed := func(x, y int) {
		if x < 0 || x >= w || y < 0 || y >= h {
			return
		}
		if lg.areaAt[x][y] != -1 {
			return
		}
		if len(lg.bucket[x][y]) == 0 {
			return
		}
		a := &LegalizerArea{
			Rect:       Rect{x, y, x, y},
			Blocks:     append([]int(nil), lg.bucket[x][y]...),
			Occupation: len(lg.bucket[x][y]),
		}
		lg.areas = append(lg.areas, a)
		lg.areaAt[x][y] = len(lg.areas) - 1
		if isLatticeSite(lg.Device, info, typeIdx, x, y) {
			a.Capacity = 1
		}
	}
	seed(cx, cy)
	for r := 1; r <= maxRing; r++ {
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				if intMax(absInt(dx), absInt(dy)) != r {
					continue
				}
				seed(cx+dx, cy+dy)
			}
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// growArea rotates through {right,down,left,up}, extending the area
// by one lattice step per successful attempt, absorbing any
// unabsorbed area it sweeps over, until occupation no longer exceeds
// capacity*tileCapacity or all four directions are exhausted.
func (lg *Legalizer) growArea(a *LegalizerArea, typeIdx int, info BlockTypeInfo, tileCapacity float64) {
	threshold := func() float64 { return float64(a.Capacity) * tileCapacity }
	allExhausted := func() bool {
		for _, e := range a.exhausted {
			if !e {
				return false
			}
		}
		return true
	}
	for float64(a.Occupation) > threshold() && !allExhausted() {
		d := a.nextDir
		goal, ok := lg.stepRect(a.Rect, d, info)
		if !ok {
			opp := opposite(d)
			if !a.exhausted[opp] {
				goal, ok = lg.stepRect(a.Rect, opp, info)
			}
			if !ok {
				a.exhausted[d] = true
				a.nextDir = (a.nextDir + 1) % 4
				continue
			}
		}
		lg.growTo(a, goal, typeIdx, info)
		a.nextDir = (a.nextDir + 1) % 4
	}
}

func opposite(d int) int {
	switch d {
	case dirRight:
		return dirLeft
	case dirLeft:
		return dirRight
	case dirDown:
		return dirUp
	default:
		return dirDown
	}
}

// stepRect extends rect by one lattice step in direction d, returning
// ok=false if doing so would leave the device interior [1,W-2]x[1,H-2].
func (lg *Legalizer) stepRect(rect Rect, d int, info BlockTypeInfo) (Rect, bool) {
	w, h := lg.Device.Width(), lg.Device.Height()
	xStep := intMax(info.Repeat, 1)
	yStep := intMax(info.Height, 1)
	g := rect
	switch d {
	case dirRight:
		g.Right += xStep
		if g.Right > w-2 {
			return rect, false
		}
	case dirLeft:
		g.Left -= xStep
		if g.Left < 1 {
			return rect, false
		}
	case dirDown:
		g.Top -= yStep
		if g.Top < 1 {
			return rect, false
		}
	case dirUp:
		g.Bottom += yStep
		if g.Bottom > h-2 {
			return rect, false
		}
	}
	return g, true
}

// growTo incrementally absorbs and overwrites ownership of every cell
// newly covered in goal, relative to area's current rect, following
// the breadth-first absorption rule of §4.3.
func (lg *Legalizer) growTo(area *LegalizerArea, goal Rect, typeIdx int, info BlockTypeInfo) {
	myIdx := lg.indexOf(area)
	queue := cellsInRectMinus(goal, area.Rect)
	visited := make(map[Site]bool, len(queue))
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if visited[c] {
			continue
		}
		visited[c] = true
		if containsRect(area.Rect, c) {
			continue
		}

		owner := lg.areaAt[c.X][c.Y]
		if owner != -1 && owner != myIdx {
			other := lg.areas[owner]
			if !other.Absorbed {
				other.Absorbed = true
				goal = unionRect(goal, other.Rect)
				area.Blocks = append(area.Blocks, other.Blocks...)
				area.Occupation += other.Occupation
				for _, cc := range cellsInRectMinus(goal, area.Rect) {
					if !visited[cc] {
						queue = append(queue, cc)
					}
				}
			}
		}

		lg.areaAt[c.X][c.Y] = myIdx
		if extra := lg.bucket[c.X][c.Y]; len(extra) > 0 && owner == -1 {
			area.Blocks = append(area.Blocks, extra...)
			area.Occupation += len(extra)
		}
		if isLatticeSite(lg.Device, info, typeIdx, c.X, c.Y) {
			area.Capacity++
		}
	}
	area.Rect = goal
}

func (lg *Legalizer) indexOf(a *LegalizerArea) int {
	for i, x := range lg.areas {
		if x == a {
			return i
		}
	}
	return -1
}

func containsRect(r Rect, c Site) bool {
	return c.X >= r.Left && c.X <= r.Right && c.Y >= r.Top && c.Y <= r.Bottom
}

func cellsInRect(r Rect) []Site {
	cells := make([]Site, 0, r.width()*r.height())
	for x := r.Left; x <= r.Right; x++ {
		for y := r.Top; y <= r.Bottom; y++ {
			cells = append(cells, Site{x, y})
		}
	}
	return cells
}

func cellsInRectMinus(goal, old Rect) []Site {
	var cells []Site
	for x := goal.Left; x <= goal.Right; x++ {
		for y := goal.Top; y <= goal.Bottom; y++ {
			c := Site{x, y}
			if !containsRect(old, c) {
				cells = append(cells, c)
			}
		}
	}
	return cells
}

func isLatticeSite(dev Device, info BlockTypeInfo, typeIdx, x, y int) bool {
	if dev.ColumnType(x) != typeIdx {
		return false
	}
	if x < info.Start {
		return false
	}
	if info.Repeat > 1 && (x-info.Start)%info.Repeat != 0 {
		return false
	}
	if y < 1 || y >= dev.Height()-1 {
		return false
	}
	if info.Height > 1 && (y-1)%info.Height != 0 {
		return false
	}
	return true
}

func latticeXsInRect(dev Device, rect Rect, typeIdx int, info BlockTypeInfo) []int {
	var xs []int
	step := intMax(info.Repeat, 1)
	start := info.Start
	if start < rect.Left {
		start += ((rect.Left - start) + step - 1) / step * step
	}
	for x := start; x <= rect.Right; x += step {
		if x < rect.Left {
			continue
		}
		if dev.ColumnType(x) == typeIdx {
			xs = append(xs, x)
		}
	}
	return xs
}

func latticeYsInRect(dev Device, rect Rect, typeIdx int, info BlockTypeInfo) []int {
	var ys []int
	step := intMax(info.Height, 1)
	for y := 1; y <= rect.Bottom; y += step {
		if y < rect.Top || y < 1 || y >= dev.Height()-1 {
			continue
		}
		ys = append(ys, y)
	}
	return ys
}

// legalizeArea recursively bipartitions rect's blocks along
// alternating axes until each sub-rect holds one block or a single
// legal site; all blocks of a single-site sub-rect share that site
// (spec §4.4).
func (lg *Legalizer) legalizeArea(rect Rect, blocks []int, axis int, typeIdx int, info BlockTypeInfo, linearX, linearY []float64) error {
	repeat := intMax(info.Repeat, 1)
	height := intMax(info.Height, 1)

	if rect.width() < repeat && rect.height() < height {
		for _, b := range blocks {
			lg.TmpLegalX[b] = rect.Left
			lg.TmpLegalY[b] = rect.Top
		}
		return nil
	}
	if len(blocks) == 0 {
		return nil
	}
	if len(blocks) == 1 {
		b := blocks[0]
		x, y, ok := lg.nearestLatticeSiteInRect(rect, typeIdx, info, linearX[b], linearY[b])
		if !ok {
			return integrityErrf(b, "no legal site of type %q inside area %+v", info.Name, rect)
		}
		lg.TmpLegalX[b] = x
		lg.TmpLegalY[b] = y
		return nil
	}
	// A rect holding a single lattice site (e.g. a single tile) cannot be
	// split further: every block in it takes that site.
	if xs, ys := latticeXsInRect(lg.Device, rect, typeIdx, info), latticeYsInRect(lg.Device, rect, typeIdx, info); len(xs) == 1 && len(ys) == 1 {
		for _, b := range blocks {
			lg.TmpLegalX[b] = xs[0]
			lg.TmpLegalY[b] = ys[0]
		}
		return nil
	}
	if axis == axisX && rect.width() < repeat {
		axis = axisY
	} else if axis == axisY && rect.height() < height {
		axis = axisX
	}

	var splitBoundary int
	var splitRatio float64

	if axis == axisX {
		cols := latticeXsInRect(lg.Device, rect, typeIdx, info)
		if len(cols) == 0 {
			return integrityErrf(blocks[0], "no lattice columns of type %q in area %+v", info.Name, rect)
		}
		var half int
		if info.Category == CategoryCLB {
			half = int(math.Ceil(float64(len(cols)) / 2))
		} else {
			half = len(cols) / 2
		}
		half = clampInt(half, 1, utl.Imax(len(cols)-1, 1))
		splitBoundary = cols[half-1]
		splitRatio = float64(half) / float64(len(cols))
	} else {
		if info.Category == CategoryCLB || repeat == 1 {
			splitBoundary = (rect.Top + rect.Bottom) / 2
			total := rect.height()
			half := splitBoundary - rect.Top + 1
			splitRatio = float64(half) / float64(total)
		} else {
			rows := latticeYsInRect(lg.Device, rect, typeIdx, info)
			if len(rows) == 0 {
				return integrityErrf(blocks[0], "no lattice rows of type %q in area %+v", info.Name, rect)
			}
			half := clampInt(len(rows)/2, 1, utl.Imax(len(rows)-1, 1))
			splitBoundary = rows[half-1]
			splitRatio = float64(half) / float64(len(rows))
		}
	}

	sorted := append([]int(nil), blocks...)
	if axis == axisX {
		sort.Slice(sorted, func(i, j int) bool { return linearX[sorted[i]] < linearX[sorted[j]] })
	} else {
		sort.Slice(sorted, func(i, j int) bool { return linearY[sorted[i]] < linearY[sorted[j]] })
	}
	split := clampInt(int(math.Ceil(splitRatio*float64(len(sorted)))), 0, len(sorted))
	lowBlocks, highBlocks := sorted[:split], sorted[split:]

	nextAxis := axisY
	if axis == axisY {
		nextAxis = axisX
	}

	if axis == axisX {
		left := Rect{rect.Left, rect.Top, splitBoundary, rect.Bottom}
		right := Rect{splitBoundary + 1, rect.Top, rect.Right, rect.Bottom}
		if err := lg.legalizeArea(left, lowBlocks, nextAxis, typeIdx, info, linearX, linearY); err != nil {
			return err
		}
		return lg.legalizeArea(right, highBlocks, nextAxis, typeIdx, info, linearX, linearY)
	}
	top := Rect{rect.Left, rect.Top, rect.Right, splitBoundary}
	bottom := Rect{rect.Left, splitBoundary + 1, rect.Right, rect.Bottom}
	if err := lg.legalizeArea(top, lowBlocks, nextAxis, typeIdx, info, linearX, linearY); err != nil {
		return err
	}
	return lg.legalizeArea(bottom, highBlocks, nextAxis, typeIdx, info, linearX, linearY)
}

func (lg *Legalizer) nearestLatticeSiteInRect(rect Rect, typeIdx int, info BlockTypeInfo, lx, ly float64) (x, y int, ok bool) {
	bestD := math.Inf(1)
	found := false
	for cx := rect.Left; cx <= rect.Right; cx++ {
		for cy := rect.Top; cy <= rect.Bottom; cy++ {
			if !isLatticeSite(lg.Device, info, typeIdx, cx, cy) {
				continue
			}
			dx, dy := lx-float64(cx), ly-float64(cy)
			d := dx*dx + dy*dy
			if !found || d < bestD {
				bestD, x, y, found = d, cx, cy, true
			}
		}
	}
	return x, y, found
}
