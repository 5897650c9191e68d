// Package rangeindex keeps, per peer, the hash ranges known to be consistent
// between the local partition and that peer.
package rangeindex

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/emirpasic/gods/utils"

	"github.com/spacemeshos/go-scrub/types"
)

var (
	// ErrInvalidRange is returned by Fill for a range with Lo > Hi.
	ErrInvalidRange = errors.New("invalid hash range")
	// ErrOverlap is returned by Fill for ranges overlapping other ranges of
	// the same owner.
	ErrOverlap = errors.New("overlapping hash ranges for the same owner")
)

// Entry is a hash range tagged with the peer it was proven consistent with.
type Entry struct {
	Range types.HashRange
	Owner types.ShardID
}

func (e Entry) String() string {
	return fmt.Sprintf("%s@%s", e.Range, e.Owner)
}

// ownerRanges holds the non-overlapping ranges of a single owner, keyed by
// range start.
type ownerRanges struct {
	tree     *rbt.Tree
	noRanges bool
}

func newOwnerRanges() *ownerRanges {
	return &ownerRanges{tree: rbt.NewWith(utils.UInt32Comparator)}
}

// find returns the range containing point, if any.
func (o *ownerRanges) find(point uint32) (types.HashRange, bool) {
	node, found := o.tree.Floor(point)
	if !found {
		return types.HashRange{}, false
	}
	r := types.HashRange{Lo: node.Key.(uint32), Hi: node.Value.(uint32)}
	return r, r.Contains(point)
}

// overlaps reports whether r overlaps any of the ranges. The ranges are
// disjoint, so the one starting last at or before r.Hi is the only candidate.
func (o *ownerRanges) overlaps(r types.HashRange) bool {
	node, found := o.tree.Floor(r.Hi)
	return found && node.Value.(uint32) >= r.Lo
}

func (o *ownerRanges) entries(owner types.ShardID) []Entry {
	entries := make([]Entry, 0, o.tree.Size())
	it := o.tree.Iterator()
	for it.Next() {
		entries = append(entries, Entry{
			Range: types.HashRange{Lo: it.Key().(uint32), Hi: it.Value().(uint32)},
			Owner: owner,
		})
	}
	return entries
}

// Index is a collection of per-owner hash ranges queryable by point.
// Ranges of different owners may overlap; ranges of the same owner never do.
// Index is not safe for concurrent use.
type Index struct {
	owners map[types.ShardID]*ownerRanges
	size   int
}

// New creates an empty Index.
func New() *Index {
	return &Index{owners: make(map[types.ShardID]*ownerRanges)}
}

func (idx *Index) sortedOwners() []types.ShardID {
	return slices.SortedFunc(maps.Keys(idx.owners), types.ShardID.Compare)
}

// dropIfEmpty forgets an owner without ranges and without the no-ranges mark.
func (idx *Index) dropIfEmpty(owner types.ShardID, o *ownerRanges) {
	if o.tree.Empty() && !o.noRanges {
		delete(idx.owners, owner)
	}
}

// Query returns all entries containing point, ordered by owner.
func (idx *Index) Query(point uint32) []Entry {
	var result []Entry
	for _, owner := range idx.sortedOwners() {
		if r, found := idx.owners[owner].find(point); found {
			result = append(result, Entry{Range: r, Owner: owner})
		}
	}
	return result
}

// Count returns the number of entries containing point.
func (idx *Index) Count(point uint32) int {
	n := 0
	for _, o := range idx.owners {
		if _, found := o.find(point); found {
			n++
		}
	}
	return n
}

// Covers reports whether a range of owner contains point.
func (idx *Index) Covers(point uint32, owner types.ShardID) bool {
	o, found := idx.owners[owner]
	if !found {
		return false
	}
	_, found = o.find(point)
	return found
}

// Fill adds ranges for owner. It fails without modifying the index if any of
// the ranges is invalid or overlaps another range of the owner, including the
// other ranges being added.
// Filling an owner marked with MarkNoRanges removes the mark.
func (idx *Index) Fill(ranges []types.HashRange, owner types.ShardID) error {
	if len(ranges) == 0 {
		return nil
	}
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, types.HashRange.Compare)
	for i, r := range sorted {
		if !r.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidRange, r)
		}
		if i > 0 && sorted[i-1].Overlaps(r) {
			return fmt.Errorf("%w: %s and %s", ErrOverlap, sorted[i-1], r)
		}
	}
	o, found := idx.owners[owner]
	if found {
		for _, r := range sorted {
			if o.overlaps(r) {
				return fmt.Errorf("%w: %s for %s", ErrOverlap, r, owner)
			}
		}
	} else {
		o = newOwnerRanges()
		idx.owners[owner] = o
	}
	o.noRanges = false
	for _, r := range sorted {
		o.tree.Put(r.Lo, r.Hi)
	}
	idx.size += len(sorted)
	return nil
}

// Remove removes the entry, reporting whether it was present.
func (idx *Index) Remove(e Entry) bool {
	o, found := idx.owners[e.Owner]
	if !found {
		return false
	}
	hi, found := o.tree.Get(e.Range.Lo)
	if !found || hi.(uint32) != e.Range.Hi {
		return false
	}
	o.tree.Remove(e.Range.Lo)
	idx.size--
	idx.dropIfEmpty(e.Owner, o)
	return true
}

// RemoveAt removes the range of owner containing point, reporting whether
// there was one. There can be at most one such range.
func (idx *Index) RemoveAt(point uint32, owner types.ShardID) bool {
	o, found := idx.owners[owner]
	if !found {
		return false
	}
	r, found := o.find(point)
	if !found {
		return false
	}
	return idx.Remove(Entry{Range: r, Owner: owner})
}

// RemoveAll removes the entries of every owner containing point and returns
// the number of removed entries.
func (idx *Index) RemoveAll(point uint32) int {
	n := 0
	for _, e := range idx.Query(point) {
		if idx.Remove(e) {
			n++
		}
	}
	return n
}

// Punch removes the part of the ranges of owner overlapping r, keeping the
// remainders on either side of r. It reports whether any range was cut.
func (idx *Index) Punch(r types.HashRange, owner types.ShardID) bool {
	o, found := idx.owners[owner]
	if !found {
		return false
	}
	var cut []types.HashRange
	for _, e := range o.entries(owner) {
		if e.Range.Overlaps(r) {
			cut = append(cut, e.Range)
		}
	}
	for _, c := range cut {
		o.tree.Remove(c.Lo)
		idx.size--
		if c.Lo < r.Lo {
			o.tree.Put(c.Lo, r.Lo-1)
			idx.size++
		}
		if c.Hi > r.Hi {
			o.tree.Put(r.Hi+1, c.Hi)
			idx.size++
		}
	}
	idx.dropIfEmpty(owner, o)
	return len(cut) != 0
}

// RemoveOwner removes all ranges of owner, as well as its no-ranges mark,
// and returns the number of removed ranges.
func (idx *Index) RemoveOwner(owner types.ShardID) int {
	o, found := idx.owners[owner]
	if !found {
		return 0
	}
	n := o.tree.Size()
	idx.size -= n
	delete(idx.owners, owner)
	return n
}

// Clear removes all entries and marks.
func (idx *Index) Clear() {
	clear(idx.owners)
	idx.size = 0
}

// MarkNoRanges records that owner was processed and has nothing to skip.
// Any ranges of owner are dropped. The mark never matches a point query.
func (idx *Index) MarkNoRanges(owner types.ShardID) {
	idx.RemoveOwner(owner)
	o := newOwnerRanges()
	o.noRanges = true
	idx.owners[owner] = o
}

// Marked reports whether owner is marked with MarkNoRanges.
func (idx *Index) Marked(owner types.ShardID) bool {
	o, found := idx.owners[owner]
	return found && o.noRanges
}

// Len returns the number of ranges held for all owners.
func (idx *Index) Len() int {
	return idx.size
}

// Owners returns the owners having ranges or a no-ranges mark, in order.
func (idx *Index) Owners() []types.ShardID {
	return idx.sortedOwners()
}

// Entries returns the ranges of owner in ascending order.
func (idx *Index) Entries(owner types.ShardID) []Entry {
	o, found := idx.owners[owner]
	if !found {
		return nil
	}
	return o.entries(owner)
}

// All returns every entry ordered by owner, then by range.
func (idx *Index) All() []Entry {
	all := make([]Entry, 0, idx.size)
	for _, owner := range idx.sortedOwners() {
		all = append(all, idx.owners[owner].entries(owner)...)
	}
	return all
}
