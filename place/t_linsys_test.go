package place

import (
	"testing"

	"github.com/cpmech/gosl/chk"
)

// stubDevice is a minimal Device used only by this package's own
// white-box tests, distinct from placetest.Grid which is the fixture
// shared with external end-to-end tests.
type stubDevice struct {
	w, h    int
	ioSites [][2]int
	types   []BlockTypeInfo
}

func (d *stubDevice) Width() int  { return d.w }
func (d *stubDevice) Height() int { return d.h }
func (d *stubDevice) ColumnType(x int) int {
	for x < 1 {
		return -1
	}
	return 0
}
func (d *stubDevice) BlockTypes() []BlockTypeInfo { return d.types }
func (d *stubDevice) IOSite(i int) (int, int)     { s := d.ioSites[i]; return s[0], s[1] }
func (d *stubDevice) Commit(i, x, y int) error     { return nil }

func twoIONets(a, b Pin) NetSlice {
	return NetSlice{{Source: a, Sinks: []Pin{b}}}
}

// Test_linsys01 checks boundary behavior 9: a one-pin net contributes
// no entries to either axis's matrix.
func Test_linsys01(tst *testing.T) {

	chk.PrintTitle("linsys01")

	reg, err := NewBlockRegistry(0, []int{2})
	if err != nil {
		tst.Fatalf("registry: %v", err)
	}
	dev := &stubDevice{w: 6, h: 6, types: []BlockTypeInfo{{Category: CategoryCLB, Name: "CLB"}}}
	nets := NetSlice{{Source: Pin{Block: 0}}} // single pin, no sinks
	cfg := NewConfig()

	b := NewLinearSystemBuilder(reg, dev, nets, cfg)
	linear := []float64{2, 3}
	mat, rhs := b.axisBuild(linear, []int{0, 0}, true, 0, 2, 0, true, 0, nil)

	for i := 0; i < mat.N(); i++ {
		if mat.diag[i] != 0 {
			tst.Fatalf("expected no diagonal contribution from a one-pin net, got %g at %d", mat.diag[i], i)
		}
	}
	for i := range rhs {
		if rhs[i] != 0 {
			tst.Fatalf("expected zero rhs from a one-pin net")
		}
	}
}

// Test_linsys02 checks boundary behavior 10: two pins at an identical
// coordinate still produce a finite spring weight, since the delta is
// floored rather than divided by zero.
func Test_linsys02(tst *testing.T) {

	chk.PrintTitle("linsys02")

	reg, err := NewBlockRegistry(0, []int{2})
	if err != nil {
		tst.Fatalf("registry: %v", err)
	}
	dev := &stubDevice{w: 6, h: 6, types: []BlockTypeInfo{{Category: CategoryCLB, Name: "CLB"}}}
	nets := twoIONets(Pin{Block: 0}, Pin{Block: 1})
	cfg := NewConfig()

	b := NewLinearSystemBuilder(reg, dev, nets, cfg)
	linear := []float64{3, 3} // identical coordinates
	mat, _ := b.axisBuild(linear, []int{0, 0}, true, 0, 2, 0, true, 0, nil)

	if !mat.IsSymmetricAndFinite() {
		tst.Fatalf("expected a finite, symmetric matrix even with coincident pins")
	}
	// with both pins tied, pin 0 is both min and max (first occurrence),
	// so pin 1 adds a bound-inner spring of 2/floor to each: two springs.
	expectedWeight := 2 * 2.0 / cfg.DeltaFloor
	if mat.diag[0] == 0 || mat.diag[0] > expectedWeight*1.01 {
		tst.Fatalf("expected a bounded weight near %g, got %g", expectedWeight, mat.diag[0])
	}
}

// Test_linsys03 checks invariant 3: with at least one pin per net
// fixed, the assembled matrix is symmetric and strictly diagonally
// dominant.
func Test_linsys03(tst *testing.T) {

	chk.PrintTitle("linsys03")

	reg, err := NewBlockRegistry(2, []int{2})
	if err != nil {
		tst.Fatalf("registry: %v", err)
	}
	dev := &stubDevice{
		w: 6, h: 6,
		ioSites: [][2]int{{0, 0}, {5, 5}},
		types:   []BlockTypeInfo{{Category: CategoryCLB, Name: "CLB"}},
	}
	nets := NetSlice{
		{Source: Pin{Block: 0}, Sinks: []Pin{{Block: 2}}},
		{Source: Pin{Block: 1}, Sinks: []Pin{{Block: 3}}},
	}
	cfg := NewConfig()
	b := NewLinearSystemBuilder(reg, dev, nets, cfg)

	linear := []float64{0, 0, 2, 4, 2, 4} // io io clb clb
	lo, hi := reg.ActiveRange(1)
	mat, _ := b.axisBuild(linear, []int{0, 0, 0, 0}, true, lo, hi, 1, false, 0, make([]float64, 4))

	if !mat.IsSymmetricAndFinite() {
		tst.Fatalf("expected symmetric finite matrix")
	}
	for i := 0; i < mat.N(); i++ {
		offSum := 0.0
		for j := 0; j < mat.N(); j++ {
			if j == i {
				continue
			}
			offSum += absFloat(mat.entries[[2]int{i, j}])
		}
		if mat.diag[i] < offSum {
			tst.Fatalf("row %d not diagonally dominant: diag=%g offSum=%g", i, mat.diag[i], offSum)
		}
	}
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
