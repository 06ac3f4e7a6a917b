package place

// Pin references the block index a net terminal is attached to.
type Pin struct {
	Block int
}

// TimingEdge is one timing arc on a net; its Cost contributes to the
// net's timing weight. The core never inspects the edge beyond Cost:
// slack/criticality computation is an external collaborator's job
// (spec §1 Out of scope).
type TimingEdge struct {
	Cost float64
}

// Net is an ordered (source, sinks...) collection of pins. A net with
// fewer than two pins contributes nothing to the linear system
// (spec §8 boundary behavior 9).
type Net struct {
	Source      Pin
	Sinks       []Pin
	TimingEdges []TimingEdge
}

// Pins returns source followed by sinks.
func (n *Net) Pins() []Pin {
	pins := make([]Pin, 0, 1+len(n.Sinks))
	pins = append(pins, n.Source)
	pins = append(pins, n.Sinks...)
	return pins
}

// TimingWeight sums the net's timing-edge costs, defaulting to 1 for
// nets without timing info (spec §3 Net).
func (n *Net) TimingWeight() float64 {
	if len(n.TimingEdges) == 0 {
		return 1
	}
	w := 0.0
	for _, e := range n.TimingEdges {
		w += e.Cost
	}
	return w
}

// Nets is the read-only netlist consumed by the linear system builder
// and the cost calculator.
type Nets interface {
	Len() int
	Net(i int) *Net
}

// NetSlice is a plain []*Net backing for Nets, the minimal adapter a
// caller needs when its netlist already lives in a slice.
type NetSlice []*Net

func (s NetSlice) Len() int       { return len(s) }
func (s NetSlice) Net(i int) *Net { return s[i] }
