package place

import (
	"github.com/cpmech/gosl/chk"
	"github.com/cpmech/gosl/fun"
	"github.com/cpmech/gosl/io"
)

// Config holds the tunable options of a placement session. It plays
// the role inp.Simulation plays for fem.FEM: a flat, validated options
// object read once at session start.
type Config struct {
	AnchorStepAlpha      float64   // per-cycle increment of pseudo-net strength α
	InitialSolves        int       // anchor-free solves before the first legalization
	MainIterations       int       // solve+legalize cycles
	CGEpsilon            float64   // conjugate-gradient convergence tolerance
	CGMaxIterations      int       // conjugate-gradient iteration cap
	DeltaFloor           float64   // minimum effective Δ in spring weights
	TimingDriven         bool      // multiply weights by netTimingWeight on non-initial solves
	LegalizeIO           bool      // legalize perimeter I/O sites on the first legalization pass
	TileCapacitySchedule []float64 // ordered sequence, ≥ 1.0 descending to 1.0
	LogIterations        bool      // emit an io.Pf progress line per iteration

	// TileCapacityFunc, if set, overrides TileCapacitySchedule: tile
	// capacity at iteration t is TileCapacityFunc.F(float64(t), nil),
	// the same fun.Func seam fem's element conditions use for a value
	// varying over "time" (here, the main-loop iteration count).
	TileCapacityFunc fun.Func
}

// NewConfig returns a Config populated with the defaults from
// spec §6's configuration table.
func NewConfig() *Config {
	return &Config{
		AnchorStepAlpha:      0.3,
		InitialSolves:        7,
		MainIterations:       30,
		CGEpsilon:            1e-4,
		CGMaxIterations:      500,
		DeltaFloor:           0.005,
		TimingDriven:         false,
		LegalizeIO:           true,
		TileCapacitySchedule: []float64{4, 3, 2, 1.5, 1, 1, 1},
		LogIterations:        false,
	}
}

// validate checks internal consistency, the way inp.ReadSim validates
// simulation input before fem.NewFEM proceeds.
func (c *Config) validate() error {
	if c.InitialSolves < 0 {
		return configErrf("initialSolves must be >= 0, got %d", c.InitialSolves)
	}
	if c.MainIterations < 0 {
		return configErrf("mainIterations must be >= 0, got %d", c.MainIterations)
	}
	if c.CGEpsilon <= 0 {
		return configErrf("cgEpsilon must be > 0, got %g", c.CGEpsilon)
	}
	if c.CGMaxIterations <= 0 {
		return configErrf("cgMaxIterations must be > 0, got %d", c.CGMaxIterations)
	}
	if c.DeltaFloor <= 0 {
		return configErrf("deltaFloor must be > 0, got %g", c.DeltaFloor)
	}
	if len(c.TileCapacitySchedule) == 0 {
		return configErrf("tileCapacitySchedule must not be empty")
	}
	for _, cap := range c.TileCapacitySchedule {
		if cap < 1.0 {
			return configErrf("tileCapacitySchedule entries must be >= 1.0, got %g", cap)
		}
	}
	if c.TileCapacitySchedule[len(c.TileCapacitySchedule)-1] != 1.0 {
		return configErrf("tileCapacitySchedule must floor to 1.0 on the final pass")
	}
	if chk.Verbose {
		io.Pf("place: config OK: initialSolves=%d mainIterations=%d cgEpsilon=%g tileCapacitySchedule=%v\n",
			c.InitialSolves, c.MainIterations, c.CGEpsilon, c.TileCapacitySchedule)
	}
	return nil
}

// tileCapacityFor returns the tile-capacity slack to use on the given
// zero-based main-loop iteration, clamping to the last schedule entry
// once the schedule is exhausted.
func (c *Config) tileCapacityFor(iteration int) float64 {
	if c.TileCapacityFunc != nil {
		return c.TileCapacityFunc.F(float64(iteration), nil)
	}
	sched := c.TileCapacitySchedule
	if iteration >= len(sched) {
		return sched[len(sched)-1]
	}
	return sched[iteration]
}
