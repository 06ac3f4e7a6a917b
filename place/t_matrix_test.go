package place

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/chk"
)

// Test_matrix01 checks that Add accumulates duplicate (i,j) puts and
// that IsSymmetricAndFinite catches both a non-finite entry and a
// mismatched mirror pair (spec §8 invariant 3).
func Test_matrix01(tst *testing.T) {

	chk.PrintTitle("matrix01")

	m := NewSparseSPDMatrix(2, 8)
	m.Add(0, 0, 1.0)
	m.Add(0, 0, 0.5)
	m.Add(0, 1, -0.5)
	m.Add(1, 0, -0.5)
	m.Add(1, 1, 0.5)

	if !m.IsSymmetricAndFinite() {
		tst.Fatalf("matrix should be symmetric and finite")
	}

	m2 := NewSparseSPDMatrix(2, 4)
	m2.Add(0, 0, 1.0)
	m2.Add(0, 1, -1.0)
	m2.Add(1, 0, -0.3) // mismatched mirror
	if m2.IsSymmetricAndFinite() {
		tst.Fatalf("matrix with mismatched mirror should fail the assertion")
	}

	m3 := NewSparseSPDMatrix(1, 2)
	m3.Add(0, 0, math.Inf(1))
	if m3.IsSymmetricAndFinite() {
		tst.Fatalf("matrix with a non-finite entry should fail the assertion")
	}
}

// Test_matrix02 solves a tiny diagonally-dominant 2x2 SPD system by
// hand-computed solution and checks CG converges within tolerance.
func Test_matrix02(tst *testing.T) {

	chk.PrintTitle("matrix02")

	// [ 4 -1 ] [x0]   [1]
	// [-1  4 ] [x1] = [2]
	m := NewSparseSPDMatrix(2, 4)
	m.Add(0, 0, 4)
	m.Add(1, 1, 4)
	m.Add(0, 1, -1)
	m.Add(1, 0, -1)

	b := []float64{1, 2}
	x, iter, err := m.Solve(b, 1e-10, 200)
	if err != nil {
		tst.Fatalf("unexpected solve error: %v", err)
	}
	if iter == 0 {
		tst.Fatalf("expected at least one CG iteration")
	}

	// exact solution: x0 = 6/15, x1 = 9/15
	chk.Scalar(tst, "x0", 1e-6, x[0], 6.0/15.0)
	chk.Scalar(tst, "x1", 1e-6, x[1], 9.0/15.0)
}

// Test_matrix03 verifies NumericStall is returned, with a usable best
// iterate, when the iteration cap is hit before convergence.
func Test_matrix03(tst *testing.T) {

	chk.PrintTitle("matrix03")

	m := NewSparseSPDMatrix(2, 4)
	m.Add(0, 0, 4)
	m.Add(1, 1, 4)
	m.Add(0, 1, -1)
	m.Add(1, 0, -1)

	x, _, err := m.Solve([]float64{1, 2}, 1e-12, 1)
	if err == nil {
		tst.Fatalf("expected a NumericStall with maxIter=1")
	}
	if _, ok := err.(*NumericStall); !ok {
		tst.Fatalf("expected *NumericStall, got %T", err)
	}
	if x == nil {
		tst.Fatalf("expected a usable best iterate alongside the stall")
	}
}
