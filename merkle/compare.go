package merkle

import (
	"fmt"

	"github.com/spacemeshos/go-scrub/types"
)

// Result is the outcome of comparing two trees.
type Result struct {
	// Equal is true if the root values matched.
	Equal bool
	// Divergent contains the merged hash ranges where the trees differ.
	Divergent []types.HashRange
	// Consistent is the complement of Divergent over the whole hash space.
	// It is empty if Equal is true.
	Consistent []types.HashRange
}

// DivergentHashes returns the number of hashes covered by divergent ranges.
func (r Result) DivergentHashes() uint64 {
	var n uint64
	for _, d := range r.Divergent {
		n += d.Size()
	}
	return n
}

func (t *Tree) comparable(other *Tree) error {
	if !t.built || !other.built {
		return ErrNotBuilt
	}
	if t.leafCount != other.leafCount {
		return fmt.Errorf("%w: %d leaves vs %d", ErrShapeMismatch, t.leafCount, other.leafCount)
	}
	return nil
}

// Diff returns the merged hash ranges covered by the leaves whose values
// differ between the two trees. Subtrees with equal values are not descended
// into, so the cost is proportional to the number of mismatching nodes.
func (t *Tree) Diff(other *Tree) ([]types.HashRange, error) {
	if err := t.comparable(other); err != nil {
		return nil, err
	}
	if t.values[rootIndex] == other.values[rootIndex] {
		return nil, nil
	}
	root := span{node: rootIndex, lo: 0, hi: t.leafCount - 1}
	if t.isLeaf(rootIndex) {
		return []types.HashRange{t.hashRange(root.lo, root.hi)}, nil
	}

	var divergent []types.HashRange
	l, r := root.children()
	queue := []span{l, r}
	for head := 0; head < len(queue); head++ {
		s := queue[head]
		if t.values[s.node] == other.values[s.node] {
			continue
		}
		if t.isLeaf(s.node) {
			divergent = append(divergent, t.hashRange(s.lo, s.hi))
			continue
		}
		l, r := s.children()
		queue = append(queue, l, r)
	}
	return types.MergeRanges(divergent), nil
}

// Compare compares the tree against the tree received from peer and records
// the hash ranges proven consistent in idx, replacing whatever idx held for
// peer before.
//
// If the root values are equal, the peer's ranges are only removed: an equal
// comparison is reported through Result.Equal rather than as a range
// covering the whole hash space.
func (t *Tree) Compare(other *Tree, peer types.ShardID, idx RangeFiller) (Result, error) {
	divergent, err := t.Diff(other)
	if err != nil {
		return Result{}, err
	}
	idx.RemoveOwner(peer)
	if t.values[rootIndex] == other.values[rootIndex] {
		return Result{Equal: true}, nil
	}
	res := Result{
		Divergent:  divergent,
		Consistent: types.Complement(divergent),
	}
	if len(res.Consistent) == 0 {
		return res, nil
	}
	if err := idx.Fill(res.Consistent, peer); err != nil {
		return res, fmt.Errorf("fill consistent ranges for %s: %w", peer, err)
	}
	return res, nil
}
