package place

import (
	"github.com/cpmech/gosl/io"
)

// RandomSource is the session's only source of randomness, injected
// by the caller (spec §9 "random seed is injected"; no global state).
type RandomSource interface {
	// Float64 returns a uniform value in [0,1).
	Float64() float64
}

// IterationRecord is one entry of the per-iteration cost log,
// grounded on fem.Summary's Resids utl.DblSlist run history.
type IterationRecord struct {
	Iteration    int
	SolveMode    int
	PseudoWeight float64
	TileCapacity float64
	Cost         float64
	Improved     bool
	FirstSolve   bool
}

// Result is returned by Session.Run, playing the role fem.Summary
// plays for an FE simulation: a typed record of what happened, beyond
// the side effect of committing to the device.
type Result struct {
	BestCost          float64
	Iterations        int
	FinalTileCapacity float64
	Log               []IterationRecord
}

// Session owns every array and sub-solver for one placement run: the
// linear-system builder (C5), the legalizer (C6), and the schedule
// that alternates between them (C7). Nothing here is shared across
// sessions (spec §5).
type Session struct {
	Device   Device
	Registry *BlockRegistry
	Nets     Nets
	Cost     CostCalculator
	Config   *Config
	Random   RandomSource

	linsys *LinearSystemBuilder
	legal  *Legalizer

	linearX, linearY []float64
	anchorX, anchorY []float64
}

// NewSession validates cfg and wires up the C5/C6 sub-solvers. cfg's
// own field-level problems and a mismatch between reg and dev (bad
// typeStart, differing type counts) all come back as a
// *ConfigurationError before any placement starts.
func NewSession(dev Device, reg *BlockRegistry, nets Nets, cost CostCalculator, cfg *Config, rnd RandomSource) (*Session, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(reg.typeStart) == 0 || reg.typeStart[0] != reg.numIO {
		return nil, configErrf("typeStart[0] must equal numIO (%d)", reg.numIO)
	}
	for t := 1; t < len(reg.typeStart); t++ {
		if reg.typeStart[t] < reg.typeStart[t-1] {
			return nil, configErrf("typeStart must be non-decreasing at index %d", t)
		}
	}
	if len(dev.BlockTypes()) != reg.NumTypes() {
		return nil, configErrf("device declares %d block types but registry has %d", len(dev.BlockTypes()), reg.NumTypes())
	}

	n := reg.NumBlocks()
	return &Session{
		Device:   dev,
		Registry: reg,
		Nets:     nets,
		Cost:     cost,
		Config:   cfg,
		Random:   rnd,
		linsys:   NewLinearSystemBuilder(reg, dev, nets, cfg),
		legal:    NewLegalizer(dev, reg, cost),
		linearX:  make([]float64, n),
		linearY:  make([]float64, n),
		anchorX:  make([]float64, n),
		anchorY:  make([]float64, n),
	}, nil
}

// Run executes the full analytical placement loop of spec §4.5 and
// commits the best legal placement found to the device.
func (s *Session) Run() (*Result, error) {
	w, h := s.Device.Width(), s.Device.Height()
	reg := s.Registry

	// 1. seed linearX/Y; I/O entries take the device's fixed site.
	for i := 0; i < reg.NumIO(); i++ {
		x, y := s.Device.IOSite(i)
		s.linearX[i], s.linearY[i] = float64(x), float64(y)
	}
	for i := reg.NumIO(); i < reg.NumBlocks(); i++ {
		s.linearX[i] = 1 + s.Random.Float64()*float64(w-2)
		s.linearY[i] = 1 + s.Random.Float64()*float64(h-2)
	}

	res := &Result{}

	// 2. N_init anchor-free solves at solveMode=0.
	for it := 0; it < s.Config.InitialSolves; it++ {
		if err := s.solveOnce(0, true, 0); err != nil {
			if !isSkippableSolveError(err) {
				return nil, err
			}
		}
	}

	// 3. one legalization at solveMode=0 to initialize anchors. This
	// pass always runs at tileCapacity=1.0 regardless of the main
	// loop's schedule, so bestLegal holds a real legal placement
	// before any anchor ever pulls toward it (see DESIGN.md).
	const initTileCapacity = 1.0
	improved, cost, err := s.legal.RunPass(s.linearX, s.linearY, initTileCapacity, s.Config.LegalizeIO)
	if err != nil {
		return nil, err
	}
	s.seedAnchors()
	res.BestCost = s.legal.BestCost
	s.logIteration(res, -1, 0, 0, initTileCapacity, cost, improved, true)

	// 4. main loop with growing anchor strength.
	solveMode := 0
	pseudoWeightFactor := 0.0
	for it := 0; it < s.Config.MainIterations; it++ {
		solveMode = (solveMode + 1) % (reg.NumTypes() + 1)
		if solveMode <= 1 {
			pseudoWeightFactor += s.Config.AnchorStepAlpha
		}

		if err := s.solveOnce(solveMode, false, pseudoWeightFactor); err != nil {
			if !isSkippableSolveError(err) {
				return nil, err
			}
			if _, ok := err.(*SolverDiagnostic); ok {
				continue
			}
		}

		tileCapacity := s.Config.tileCapacityFor(it)
		improved, cost, err := s.legal.RunPass(s.linearX, s.linearY, tileCapacity, false)
		if err != nil {
			return nil, err
		}
		if improved {
			s.seedAnchors()
			res.BestCost = cost
		}
		res.FinalTileCapacity = tileCapacity
		s.logIteration(res, it, solveMode, pseudoWeightFactor, tileCapacity, cost, improved, false)
	}

	res.Iterations = s.Config.MainIterations
	res.BestCost = s.legal.BestCost

	// 6. commit bestLegal to the device.
	for i := reg.NumIO(); i < reg.NumBlocks(); i++ {
		if err := s.Device.Commit(i, s.legal.BestLegalX[i], s.legal.BestLegalY[i]); err != nil {
			return nil, integrityErrf(i, "final commit failed: %v", err)
		}
	}
	return res, nil
}

func (s *Session) solveOnce(solveMode int, firstSolve bool, pseudoAlpha float64) error {
	return s.linsys.Solve(s.linearX, s.linearY, s.legal.BestLegalX, s.legal.BestLegalY, solveMode, firstSolve, pseudoAlpha, s.anchorX, s.anchorY)
}

// seedAnchors copies the current best-known legal coordinates into
// the anchor arrays the next linear solve's pseudo-nets pull toward.
func (s *Session) seedAnchors() {
	copy(s.anchorX, intsToFloats(s.legal.BestLegalX))
	copy(s.anchorY, intsToFloats(s.legal.BestLegalY))
}

func intsToFloats(v []int) []float64 {
	f := make([]float64, len(v))
	for i, x := range v {
		f[i] = float64(x)
	}
	return f
}

// isSkippableSolveError reports whether err is one of the two kinds
// the placement loop tolerates without aborting (spec §7):
// SolverDiagnostic aborts the solve, and in the main loop the rest of
// that iteration is skipped; NumericStall keeps the last CG iterate.
func isSkippableSolveError(err error) bool {
	switch err.(type) {
	case *SolverDiagnostic, *NumericStall:
		return true
	default:
		return false
	}
}

// logIteration appends a structured record and, if enabled, echoes a
// colored progress line the way fem.Summary/fem.fem.go report
// per-stage residuals (io.Pfgreen on improvement, io.Pf otherwise).
func (s *Session) logIteration(res *Result, it, solveMode int, pseudoWeight, tileCapacity, cost float64, improved, firstSolve bool) {
	rec := IterationRecord{
		Iteration:    it,
		SolveMode:    solveMode,
		PseudoWeight: pseudoWeight,
		TileCapacity: tileCapacity,
		Cost:         cost,
		Improved:     improved,
		FirstSolve:   firstSolve,
	}
	res.Log = append(res.Log, rec)
	if !s.Config.LogIterations {
		return
	}
	if improved {
		io.Pfgreen("iter %3d  solveMode=%d  tileCap=%.2f  cost=%.4f (improved)\n", it, solveMode, tileCapacity, cost)
	} else {
		io.Pf("iter %3d  solveMode=%d  tileCap=%.2f  cost=%.4f\n", it, solveMode, tileCapacity, cost)
	}
}
