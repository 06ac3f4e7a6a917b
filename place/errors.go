package place

import (
	"fmt"

	"github.com/cpmech/gosl/chk"
)

// ConfigurationError reports an invariant violation discovered at
// session setup (bad typeStart, mismatched type/registry lengths).
// It is always fatal: the caller should not attempt to place.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return "configuration: " + e.Msg }

// configErrf builds the message through chk.Err, the same recoverable
// error constructor fem.Domain/fem.FEM return up the call stack
// (e.g. fem/element.go's `err = chk.Err(...)`), wrapped in our own
// named type so callers can still distinguish it from PlacementIntegrityError.
func configErrf(format string, a ...interface{}) *ConfigurationError {
	return &ConfigurationError{Msg: chk.Err(format, a...).Error()}
}

// PlacementIntegrityError reports that a movable block could not be
// mapped onto any legal site, or that the device rejected a site at
// commit time. Fatal; bubbled up to the driver unchanged.
type PlacementIntegrityError struct {
	Msg   string
	Block int
}

func (e *PlacementIntegrityError) Error() string {
	return fmt.Sprintf("placement integrity: block %d: %s", e.Block, e.Msg)
}

func integrityErrf(block int, format string, a ...interface{}) *PlacementIntegrityError {
	return &PlacementIntegrityError{Block: block, Msg: chk.Err(format, a...).Error()}
}

// SolverDiagnostic reports that the assembled matrix failed the
// symmetric/finite assertion. The solve that produced it is aborted
// and the iteration is skipped by the placement loop.
type SolverDiagnostic struct {
	Msg string
}

func (e *SolverDiagnostic) Error() string { return "solver diagnostic: " + e.Msg }

// NumericStall reports that CG exceeded its iteration cap before
// converging. The best iterate found so far is still usable; the
// outer loop continues.
type NumericStall struct {
	Iterations int
	Residual   float64
}

func (e *NumericStall) Error() string {
	return fmt.Sprintf("numeric stall: cg did not converge after %d iterations (residual=%.3e)", e.Iterations, e.Residual)
}
