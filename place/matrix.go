// Package place implements the analytical placement core: a B2B
// quadratic solve stage and a recursive-bipartition legalization
// stage, iterated by a placement loop with growing anchor forces.
package place

import (
	"math"

	"github.com/cpmech/gosl/la"
)

// SparseSPDMatrix is a symmetric sparse matrix assembled incrementally
// via Add, the same Triplet-accumulation idiom fem.Domain uses for its
// Jacobian (Kb = new(la.Triplet); Kb.Put(I, J, v)).
type SparseSPDMatrix struct {
	n       int
	trip    la.Triplet
	diag    []float64
	entries map[[2]int]float64
	finite  bool
}

// NewSparseSPDMatrix allocates a matrix for n unknowns, sized for up
// to maxNonzeros Put calls (duplicate (i,j) puts accumulate, so
// maxNonzeros should count contributions, not unique positions).
func NewSparseSPDMatrix(n, maxNonzeros int) *SparseSPDMatrix {
	m := &SparseSPDMatrix{
		n:       n,
		diag:    make([]float64, n),
		entries: make(map[[2]int]float64, maxNonzeros),
		finite:  true,
	}
	m.trip.Init(n, n, maxNonzeros)
	return m
}

// Add accumulates δ at (i,j). Off-diagonal spring contributions must
// be added at both (i,j) and (j,i) by the caller; Add itself does not
// mirror entries.
func (m *SparseSPDMatrix) Add(i, j int, delta float64) {
	m.trip.Put(i, j, delta)
	m.entries[[2]int{i, j}] += delta
	if i == j {
		m.diag[i] += delta
	}
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		m.finite = false
	}
}

// N returns the matrix dimension.
func (m *SparseSPDMatrix) N() int { return m.n }

// IsSymmetricAndFinite walks the accumulated entries and reports
// whether every (i,j)/(j,i) pair matches and every added value was
// finite. Intended for assertions, not the hot path.
func (m *SparseSPDMatrix) IsSymmetricAndFinite() bool {
	if !m.finite {
		return false
	}
	for key, v := range m.entries {
		mirror := m.entries[[2]int{key[1], key[0]}]
		if math.Abs(v-mirror) > 1e-9 {
			return false
		}
	}
	return true
}

// ccMatrix converts the accumulated triplet into gosl's compressed
// sparse form for the mat-vec products CG needs.
func (m *SparseSPDMatrix) ccMatrix() *la.CCMatrix {
	return m.trip.ToMatrix(nil)
}

func vecDot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Solve runs Jacobi-preconditioned conjugate gradients against b,
// terminating when ‖r‖₂/‖b‖₂ ≤ eps or maxIter is reached. On the
// latter it returns the best iterate along with a *NumericStall so
// the caller can keep going with a usable (if not fully converged) x.
func (m *SparseSPDMatrix) Solve(b []float64, eps float64, maxIter int) ([]float64, int, error) {
	n := m.n
	if n == 0 {
		return nil, 0, nil
	}
	A := m.ccMatrix()

	precond := make([]float64, n)
	for i := 0; i < n; i++ {
		d := m.diag[i]
		if math.Abs(d) < 1e-12 {
			d = 1
		}
		precond[i] = 1.0 / d
	}

	x := make([]float64, n)
	r := la.VecClone(b)
	z := make([]float64, n)
	for i := range z {
		z[i] = precond[i] * r[i]
	}
	p := la.VecClone(z)
	rz := vecDot(r, z)

	bnorm := la.VecNorm(b)
	if bnorm < 1e-300 {
		bnorm = 1
	}

	ap := make([]float64, n)
	iter := 0
	for ; iter < maxIter; iter++ {
		if la.VecNorm(r)/bnorm <= eps {
			break
		}
		for i := range ap {
			ap[i] = 0
		}
		la.SpMatVecMulAdd(ap, 1, A, p)
		denom := vecDot(p, ap)
		if math.Abs(denom) < 1e-300 {
			break
		}
		alpha := rz / denom
		for i := 0; i < n; i++ {
			x[i] += alpha * p[i]
			r[i] -= alpha * ap[i]
		}
		z2 := make([]float64, n)
		for i := range z2 {
			z2[i] = precond[i] * r[i]
		}
		rzNew := vecDot(r, z2)
		if math.Abs(rz) < 1e-300 {
			break
		}
		beta := rzNew / rz
		for i := 0; i < n; i++ {
			p[i] = z2[i] + beta*p[i]
		}
		rz = rzNew
		copy(z, z2)
	}

	resid := la.VecNorm(r) / bnorm
	if resid > eps {
		return x, iter, &NumericStall{Iterations: iter, Residual: resid}
	}
	return x, iter, nil
}
