// Package merkle implements a fixed-shape merkle tree over the 32-bit object
// hash space of a partition.
//
// The hash space is split into a power-of-two number of equally sized buckets,
// one per leaf. A leaf holds the XOR of the contributions of all objects whose
// hash falls into its bucket, and each internal node combines the values of
// its two children. Two holders of the same partition compare their trees to
// find the hash ranges where their contents diverge.
package merkle

import (
	"fmt"
	"math/bits"

	"github.com/spacemeshos/go-scrub/hash"
	"github.com/spacemeshos/go-scrub/types"
)

const (
	hashBits = 32
	maxDepth = 24
	// MaxLeafCount is the largest supported number of leaves.
	MaxLeafCount = 1 << maxDepth
)

// Object is an object version contributing to a tree leaf.
type Object struct {
	Hash    uint32
	Version types.Version
}

// Stats contains bookkeeping about the objects folded into a tree.
type Stats struct {
	// ObjectsSeen is the number of object contributions applied.
	ObjectsSeen uint64
	// NonEmptyLeaves is the number of leaves with a non-zero value.
	NonEmptyLeaves int
	// MinBucket and MaxBucket are the lowest and highest leaf positions touched.
	MinBucket, MaxBucket int
}

// Touched reports whether any leaf was touched.
func (s Stats) Touched() bool {
	return s.MinBucket <= s.MaxBucket
}

// Tree is a merkle tree with a fixed number of leaves. The nodes are stored
// in a single array in breadth-first order, root first.
// Tree is not safe for concurrent use.
type Tree struct {
	leafCount  int
	depth      int
	reduceBits int
	values     []uint64
	built      bool
	stats      Stats
}

// ValidateLeafCount checks that n is a power of two between 1 and MaxLeafCount.
func ValidateLeafCount(n int) error {
	if n < 1 || n > MaxLeafCount || n&(n-1) != 0 {
		return fmt.Errorf("%w: %d", ErrLeafCount, n)
	}
	return nil
}

// New creates a tree with leafCount zero leaves. The tree must be built
// before it can be updated, compared or encoded.
func New(leafCount int) (*Tree, error) {
	if err := ValidateLeafCount(leafCount); err != nil {
		return nil, err
	}
	t := &Tree{}
	t.init(leafCount, nil)
	return t, nil
}

// init sets up the shape for leafCount leaves. values, if not nil, must hold
// 2*leafCount-1 node values in breadth-first order.
func (t *Tree) init(leafCount int, values []uint64) {
	if values == nil {
		values = make([]uint64, 2*leafCount-1)
	}
	t.leafCount = leafCount
	t.depth = bits.TrailingZeros(uint(leafCount))
	t.reduceBits = hashBits - t.depth
	t.values = values
	t.built = false
	t.stats = Stats{MinBucket: leafCount, MaxBucket: -1}
}

// LeafCount returns the number of leaves.
func (t *Tree) LeafCount() int { return t.leafCount }

// Depth returns log2 of the number of leaves.
func (t *Tree) Depth() int { return t.depth }

// ReduceBits returns the number of low hash bits dropped to get a leaf position.
func (t *Tree) ReduceBits() int { return t.reduceBits }

// Size returns the total number of nodes.
func (t *Tree) Size() int { return len(t.values) }

// Built reports whether the internal nodes are up to date.
func (t *Tree) Built() bool { return t.built }

// Stats returns the tree bookkeeping.
func (t *Tree) Stats() Stats { return t.stats }

// Bucket returns the leaf position of an object hash.
func (t *Tree) Bucket(objectHash uint32) int {
	return int(uint64(objectHash) >> t.reduceBits)
}

// BucketRange returns the hash range covered by the leaf at position pos.
func (t *Tree) BucketRange(pos int) types.HashRange {
	return t.hashRange(pos, pos)
}

// hashRange converts an inclusive range of leaf positions to a hash range.
func (t *Tree) hashRange(lo, hi int) types.HashRange {
	return types.HashRange{
		Lo: uint32(uint64(lo) << t.reduceBits),
		Hi: uint32(uint64(hi+1)<<t.reduceBits - 1),
	}
}

func (t *Tree) leafNode(pos int) nodeIndex {
	return nodeIndex(t.leafCount - 1 + pos)
}

func (t *Tree) isLeaf(i nodeIndex) bool {
	return int(i) >= t.leafCount-1
}

// Leaf returns the value of the leaf at position pos.
func (t *Tree) Leaf(pos int) uint64 {
	return t.values[t.leafNode(pos)]
}

// Root returns the value of the root node.
func (t *Tree) Root() (uint64, error) {
	if !t.built {
		return 0, ErrNotBuilt
	}
	return t.values[rootIndex], nil
}

// Level returns a copy of the node values at the given depth, left to right.
func (t *Tree) Level(depth int) []uint64 {
	if depth < 0 || depth > t.depth {
		return nil
	}
	start := 1<<depth - 1
	return append([]uint64(nil), t.values[start:2*start+1]...)
}

func contribution(objectHash uint32, v types.Version) uint64 {
	return hash.ObjectContribution(objectHash, v.Counter, v.Epoch)
}

func (t *Tree) xorLeaf(pos int, delta uint64) nodeIndex {
	n := t.leafNode(pos)
	old := t.values[n]
	t.values[n] ^= delta
	t.stats.ObjectsSeen++
	switch {
	case old == 0 && t.values[n] != 0:
		t.stats.NonEmptyLeaves++
	case old != 0 && t.values[n] == 0:
		t.stats.NonEmptyLeaves--
	}
	t.stats.MinBucket = min(t.stats.MinBucket, pos)
	t.stats.MaxBucket = max(t.stats.MaxBucket, pos)
	return n
}

// Populate folds the contributions of the objects into their leaves without
// touching the internal nodes. The tree has to be built afterwards.
func (t *Tree) Populate(objects []Object) {
	for _, o := range objects {
		t.xorLeaf(t.Bucket(o.Hash), contribution(o.Hash, o.Version))
	}
	if len(objects) != 0 {
		t.built = false
	}
}

// Build recomputes all internal nodes from the leaves, replacing any
// previously computed values.
func (t *Tree) Build() {
	for i := t.leafCount - 2; i >= 0; i-- {
		n := nodeIndex(i)
		t.values[n] = hash.Combine(t.values[n.left()], t.values[n.right()])
	}
	t.built = true
}

// Update applies a single object mutation to its leaf and recomputes the
// ancestors of that leaf.
// Create folds in the contribution of curr, Delete folds out the contribution
// of prev, and Modify does both.
func (t *Tree) Update(objectHash uint32, prev, curr types.Version, action types.Action) error {
	if !t.built {
		return ErrNotBuilt
	}
	if !action.Valid() {
		return fmt.Errorf("%w: %s", ErrAction, action)
	}
	var delta uint64
	if action != types.Delete {
		delta ^= contribution(objectHash, curr)
	}
	if action != types.Create {
		delta ^= contribution(objectHash, prev)
	}

	// Nodes don't keep parent links, so the ancestors are found by descending
	// from the root along the bits of the leaf position.
	pos := t.Bucket(objectHash)
	var path [maxDepth + 1]nodeIndex
	node := rootIndex
	path[0] = node
	for bit, d := t.leafCount>>1, 1; bit > 0; bit, d = bit>>1, d+1 {
		if pos&bit != 0 {
			node = node.right()
		} else {
			node = node.left()
		}
		path[d] = node
	}
	if leaf := t.xorLeaf(pos, delta); leaf != path[t.depth] {
		panic("BUG: descent didn't reach the updated leaf")
	}
	for d := t.depth - 1; d >= 0; d-- {
		n := path[d]
		t.values[n] = hash.Combine(t.values[n.left()], t.values[n.right()])
	}
	return nil
}
