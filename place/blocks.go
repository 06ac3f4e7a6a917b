package place

import "github.com/cpmech/gosl/utl"

// BlockRegistry assigns a stable integer index to every block (I/O
// and movable) once at session start, the way fem.Domain numbers
// degrees of freedom (node.AddDofAndEq) once during Domain setup and
// never renumbers them afterward.
//
// Indices [0,numIO) are the I/O blocks. Indices [numIO,numBlocks) are
// movable blocks, grouped contiguously by type; TypeStart holds the
// GLOBAL boundary of each type's range, so the active range for
// solveMode t≥1 is exactly [TypeStart[t-1], TypeStart[t]) with no
// further offset arithmetic (TypeStart[0] == numIO, TypeStart[numTypes]
// == numBlocks). See DESIGN.md for why this module reads spec.md's
// "typeStart[0]=0" invariant as relative to the movable-block region
// rather than absolute.
type BlockRegistry struct {
	numIO     int
	numBlocks int
	typeStart []int // len numTypes+1
	typeOf    []int // len numBlocks; -1 for I/O indices
}

// NewBlockRegistry builds a registry from the I/O count and the
// per-type movable block counts, in type order (type t's solveMode is
// t+1). Returns a *ConfigurationError if any count is negative.
func NewBlockRegistry(numIO int, typeCounts []int) (*BlockRegistry, error) {
	if numIO < 0 {
		return nil, configErrf("numIO must be >= 0, got %d", numIO)
	}
	numTypes := len(typeCounts)
	typeStart := make([]int, numTypes+1)
	typeStart[0] = numIO
	for t, c := range typeCounts {
		if c < 0 {
			return nil, configErrf("type %d has negative count %d", t, c)
		}
		typeStart[t+1] = typeStart[t] + c
	}
	numBlocks := typeStart[numTypes]
	typeOf := make([]int, numBlocks)
	// I/O entries are pre-filled -1 the way fem/e_u_contact.go fills
	// Vid2contactId with utl.IntVals(o.Nu, -1) before assigning the
	// real slots below.
	copy(typeOf[:numIO], utl.IntVals(numIO, -1))
	for t := 0; t < numTypes; t++ {
		for i := typeStart[t]; i < typeStart[t+1]; i++ {
			typeOf[i] = t
		}
	}
	return &BlockRegistry{
		numIO:     numIO,
		numBlocks: numBlocks,
		typeStart: typeStart,
		typeOf:    typeOf,
	}, nil
}

func (r *BlockRegistry) NumIO() int     { return r.numIO }
func (r *BlockRegistry) NumBlocks() int { return r.numBlocks }
func (r *BlockRegistry) NumTypes() int  { return len(r.typeStart) - 1 }

// TypeStart returns the global index at which movable type t begins;
// t may range over [0,NumTypes()] (TypeStart(NumTypes()) == NumBlocks()).
func (r *BlockRegistry) TypeStart(t int) int { return r.typeStart[t] }

// TypeOf returns the movable type index of block i, or -1 if i is an
// I/O block.
func (r *BlockRegistry) TypeOf(i int) int { return r.typeOf[i] }

// IsIO reports whether i is an I/O block index.
func (r *BlockRegistry) IsIO(i int) bool { return i < r.numIO }

// ActiveRange returns the [lo,hi) index range that is free to move
// under the given solveMode (§4.2): all movable blocks when
// solveMode==0, or exactly type solveMode-1's range otherwise.
func (r *BlockRegistry) ActiveRange(solveMode int) (lo, hi int) {
	if solveMode == 0 {
		return r.numIO, r.numBlocks
	}
	return r.typeStart[solveMode-1], r.typeStart[solveMode]
}

// IsActive reports whether block i is free to move under solveMode.
func (r *BlockRegistry) IsActive(i, solveMode int) bool {
	if r.IsIO(i) {
		return false
	}
	lo, hi := r.ActiveRange(solveMode)
	return i >= lo && i < hi
}
