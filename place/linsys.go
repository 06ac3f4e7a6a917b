package place

// LinearSystemBuilder assembles the B2B quadratic system plus anchor
// pseudo-nets for one axis solve and drives the CG solve, the way
// fem.Domain assembles its Jacobian Triplet and hands it to LinSol.
type LinearSystemBuilder struct {
	Registry *BlockRegistry
	Device   Device
	Nets     Nets
	Config   *Config
}

func NewLinearSystemBuilder(reg *BlockRegistry, dev Device, nets Nets, cfg *Config) *LinearSystemBuilder {
	return &LinearSystemBuilder{Registry: reg, Device: dev, Nets: nets, Config: cfg}
}

// fixedCoord returns the fixed coordinate of a non-active block: the
// device's site for an I/O, else the legalizer's best-known legal
// coordinate for a movable block of another type.
func fixedCoord(reg *BlockRegistry, dev Device, bestLegal []int, axisIsX bool, i int) float64 {
	if reg.IsIO(i) {
		x, y := dev.IOSite(i)
		if axisIsX {
			return float64(x)
		}
		return float64(y)
	}
	return float64(bestLegal[i])
}

// extreme holds the bound-pin search state for one axis of one net.
type extreme struct {
	val     float64
	block   int
	hasPin  bool
}

func (e *extreme) considerMin(v float64, block int) {
	if !e.hasPin || v < e.val {
		e.val, e.block, e.hasPin = v, block, true
	}
}

func (e *extreme) considerMax(v float64, block int) {
	if !e.hasPin || v > e.val {
		e.val, e.block, e.hasPin = v, block, true
	}
}

// axisBuild assembles one axis's matrix/rhs for the active range
// [lo,hi) and returns the solved coordinates for that range.
func (b *LinearSystemBuilder) axisBuild(
	linear []float64, bestLegal []int, axisIsX bool,
	lo, hi int, solveMode int, firstSolve bool,
	pseudoAlpha float64, anchor []float64,
) (*SparseSPDMatrix, []float64) {

	reg, dev := b.Registry, b.Device
	floor := b.Config.DeltaFloor
	n := hi - lo
	rhs := make([]float64, n)

	coord := func(i int) float64 {
		if i >= lo && i < hi {
			return linear[i]
		}
		return fixedCoord(reg, dev, bestLegal, axisIsX, i)
	}
	isActive := func(i int) bool { return i >= lo && i < hi }

	// size hint: a net of p pins adds at most 2p-1 springs (one
	// bound-bound, two bound-inner per other pin), each at most 4 Put
	// calls; anchors add one Put per active block.
	maxNZ := n + 4
	for ni := 0; ni < b.Nets.Len(); ni++ {
		if p := len(b.Nets.Net(ni).Pins()); p >= 2 {
			maxNZ += 4 * (2*p - 1)
		}
	}
	mat := NewSparseSPDMatrix(n, maxNZ)

	addSpring := func(a, c int, w float64) {
		aActive, cActive := isActive(a), isActive(c)
		switch {
		case aActive && cActive:
			la, lc := a-lo, c-lo
			mat.Add(la, la, w)
			mat.Add(lc, lc, w)
			mat.Add(la, lc, -w)
			mat.Add(lc, la, -w)
		case aActive && !cActive:
			la := a - lo
			mat.Add(la, la, w)
			rhs[la] += w * coord(c)
		case !aActive && cActive:
			lc := c - lo
			mat.Add(lc, lc, w)
			rhs[lc] += w * coord(a)
		default:
			// both fixed: no effect on the linear system.
		}
	}

	for ni := 0; ni < b.Nets.Len(); ni++ {
		net := b.Nets.Net(ni)
		pins := net.Pins()
		if len(pins) < 2 {
			continue
		}

		var mn, mx extreme
		for _, p := range pins {
			v := coord(p.Block)
			mn.considerMin(v, p.Block)
			mx.considerMax(v, p.Block)
		}

		k := 2.0 / float64(len(pins)-1)
		if b.Config.TimingDriven && !firstSolve {
			k *= net.TimingWeight()
		}

		bbDelta := effectiveDelta(mx.val-mn.val, floor)
		addSpring(mn.block, mx.block, k/bbDelta)

		minFixed, maxFixed := !isActive(mn.block), !isActive(mx.block)
		fixedOnlyExtremePair := minFixed && maxFixed
		skippedGuard := false

		minPos := firstOccurrenceIndex(pins, mn.block)
		maxPos := firstOccurrenceIndex(pins, mx.block)

		for pi, p := range pins {
			if pi == minPos || pi == maxPos {
				continue
			}
			pv := coord(p.Block)
			pFixed := !isActive(p.Block)

			// bound-inner spring p -> min
			if fixedOnlyExtremePair && pFixed && !skippedGuard && pv == mx.val {
				skippedGuard = true
			} else {
				d := effectiveDelta(pv-mn.val, floor)
				addSpring(p.Block, mn.block, k/d)
			}

			// bound-inner spring p -> max
			if fixedOnlyExtremePair && pFixed && !skippedGuard && pv == mn.val {
				skippedGuard = true
			} else {
				d := effectiveDelta(pv-mx.val, floor)
				addSpring(p.Block, mx.block, k/d)
			}
		}
	}

	if !firstSolve {
		for i := lo; i < hi; i++ {
			li := i - lo
			d := effectiveDelta(anchor[i]-linear[i], floor)
			w := 2 * pseudoAlpha / d
			mat.Add(li, li, w)
			rhs[li] += w * anchor[i]
		}
	}

	return mat, rhs
}

func firstOccurrenceIndex(pins []Pin, block int) int {
	for i, p := range pins {
		if p.Block == block {
			return i
		}
	}
	return -1
}

// Solve assembles and solves both axes for the active range implied
// by solveMode, writing results back into linearX/linearY for active
// indices only. Returns a *SolverDiagnostic if either axis's matrix
// fails the symmetric/finite assertion: an x-axis failure returns
// before either axis is written back; a y-axis failure leaves linearY
// untouched but the x-axis result already written.
func (b *LinearSystemBuilder) Solve(
	linearX, linearY []float64, bestLegalX, bestLegalY []int,
	solveMode int, firstSolve bool, pseudoAlpha float64,
	anchorX, anchorY []float64,
) error {
	lo, hi := b.Registry.ActiveRange(solveMode)
	if lo >= hi {
		return nil
	}

	matX, rhsX := b.axisBuild(linearX, bestLegalX, true, lo, hi, solveMode, firstSolve, pseudoAlpha, anchorX)
	if !matX.IsSymmetricAndFinite() {
		return &SolverDiagnostic{Msg: "x-axis matrix failed symmetric/finite assertion"}
	}
	xSol, _, xErr := matX.Solve(rhsX, b.Config.CGEpsilon, b.Config.CGMaxIterations)
	for i := lo; i < hi; i++ {
		linearX[i] = xSol[i-lo]
	}

	matY, rhsY := b.axisBuild(linearY, bestLegalY, false, lo, hi, solveMode, firstSolve, pseudoAlpha, anchorY)
	if !matY.IsSymmetricAndFinite() {
		return &SolverDiagnostic{Msg: "y-axis matrix failed symmetric/finite assertion"}
	}
	ySol, _, yErr := matY.Solve(rhsY, b.Config.CGEpsilon, b.Config.CGMaxIterations)
	for i := lo; i < hi; i++ {
		linearY[i] = ySol[i-lo]
	}

	// NumericStall is non-fatal: the best iterate was already written
	// back above, so the outer loop simply continues.
	if xErr != nil {
		if _, ok := xErr.(*NumericStall); !ok {
			return xErr
		}
	}
	if yErr != nil {
		if _, ok := yErr.(*NumericStall); !ok {
			return yErr
		}
	}
	return nil
}
