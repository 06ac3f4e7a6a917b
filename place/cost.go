package place

import "github.com/cpmech/gosl/utl"

// CostCalculator evaluates a candidate legal placement. It declares
// whether it needs the device updated (block sites written) before
// Calculate can run, so the placement loop knows whether to stage a
// speculative commit-then-revert around the call (spec §4.5 step 5,
// §7 SolverDiagnostic/NumericStall policy notes).
type CostCalculator interface {
	RequiresDeviceUpdate() bool
	Calculate(x, y []int) float64
}

// WirelengthCalculator is the reference CostCalculator: half-perimeter
// wirelength (HPWL) per net, optionally scaled by each net's timing
// weight. It never needs the device updated since it works directly
// off candidate integer coordinates.
type WirelengthCalculator struct {
	Nets         Nets
	TimingDriven bool
}

func NewWirelengthCalculator(nets Nets, timingDriven bool) *WirelengthCalculator {
	return &WirelengthCalculator{Nets: nets, TimingDriven: timingDriven}
}

func (w *WirelengthCalculator) RequiresDeviceUpdate() bool { return false }

// Calculate sums HPWL = (maxX-minX)+(maxY-minY) across all nets with
// at least two pins, indexing x/y by Pin.Block.
func (w *WirelengthCalculator) Calculate(x, y []int) float64 {
	total := 0.0
	for i := 0; i < w.Nets.Len(); i++ {
		n := w.Nets.Net(i)
		pins := n.Pins()
		if len(pins) < 2 {
			continue
		}
		minX, maxX := x[pins[0].Block], x[pins[0].Block]
		minY, maxY := y[pins[0].Block], y[pins[0].Block]
		for _, p := range pins[1:] {
			minX, maxX = intMin(minX, x[p.Block]), utl.Imax(maxX, x[p.Block])
			minY, maxY = intMin(minY, y[p.Block]), utl.Imax(maxY, y[p.Block])
		}
		hpwl := float64((maxX - minX) + (maxY - minY))
		if w.TimingDriven {
			hpwl *= n.TimingWeight()
		}
		total += hpwl
	}
	return total
}
