package place

// BlockCategory tags a block's placement-relevant kind. Represented
// as a small closed set rather than an inheritance hierarchy, since
// each category drives a distinct closestSite policy (§4.3, §9).
type BlockCategory int

const (
	CategoryIO BlockCategory = iota
	CategoryCLB
	CategoryHard
)

func (c BlockCategory) String() string {
	switch c {
	case CategoryIO:
		return "IO"
	case CategoryCLB:
		return "CLB"
	case CategoryHard:
		return "HARD"
	default:
		return "UNKNOWN"
	}
}

// BlockTypeInfo describes one movable block type's column pattern on
// the device lattice: x = start + k·repeat, y = 1 + r·height.
type BlockTypeInfo struct {
	Category BlockCategory
	Name     string
	Start    int
	Repeat   int
	Height   int
}

// Device is the read-only (except for the final commit) view of the
// grid this module consumes. Implementations are expected to be owned
// by an external netlist/architecture layer; this module only reads
// geometry and writes final site assignments.
type Device interface {
	// Width and Height describe the [0,W) x [0,H) grid.
	Width() int
	Height() int

	// ColumnType returns the block-type index whose columns occupy x,
	// or -1 if x is not a typed column for any movable block type
	// (e.g. it is part of the I/O perimeter ring).
	ColumnType(x int) int

	// BlockTypes enumerates the movable block types in the same order
	// solveMode indexes them (type t corresponds to BlockTypes()[t]).
	BlockTypes() []BlockTypeInfo

	// IOSite returns the fixed grid coordinate of I/O block ioIndex
	// (in [0,numIO)), used as that I/O's pin coordinate in every linear
	// solve and as its initial legal coordinate.
	IOSite(ioIndex int) (x, y int)

	// Commit writes the site of a movable block. Called once per
	// movable block at the end of a session, and additionally on every
	// legalization pass when the cost calculator requires a device
	// update.
	Commit(blockIndex, x, y int) error
}
