package place

import "math"

// intMin/intMax/clampInt are the small integer helpers utl does not
// expose: utl.Min/utl.Max are float64-only, and utl.Imax (the int
// variant used elsewhere in this package, e.g. cost.go/legalize.go)
// has no matching Imin, so intMin/clampInt still need a local home.
func intMin(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func intMax(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	return intMax(lo, intMin(v, hi))
}

// effectiveDelta floors |Δ| at floor (spec §4.1 numerical policy).
func effectiveDelta(delta, floor float64) float64 {
	d := math.Abs(delta)
	if d < floor {
		return floor
	}
	return d
}
