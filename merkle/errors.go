package merkle

import "errors"

var (
	// ErrLeafCount is returned for a leaf count that is not a power of two
	// between 1 and MaxLeafCount.
	ErrLeafCount = errors.New("leaf count must be a power of two")
	// ErrNotBuilt is returned when a tree is used before it was built.
	ErrNotBuilt = errors.New("merkle tree is not built")
	// ErrShapeMismatch is returned when comparing trees with different leaf counts.
	ErrShapeMismatch = errors.New("merkle trees have different shapes")
	// ErrAction is returned for an unknown update action.
	ErrAction = errors.New("unknown update action")
	// ErrCorrupt is returned when a tree encoding cannot be decoded.
	ErrCorrupt = errors.New("corrupt merkle tree encoding")
	// ErrVersion is returned for an encoding that is not compatible with this version.
	ErrVersion = errors.New("unsupported merkle tree encoding version")
)
