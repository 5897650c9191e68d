package types

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/spacemeshos/go-scale"
	"go.uber.org/zap/zapcore"
)

// HashRange is an inclusive range [Lo, Hi] of 32-bit object hashes.
type HashRange struct {
	Lo, Hi uint32
}

// FullRange returns the range covering the whole hash domain.
func FullRange() HashRange {
	return HashRange{Lo: 0, Hi: math.MaxUint32}
}

// Valid reports whether the range is non-empty.
func (r HashRange) Valid() bool {
	return r.Lo <= r.Hi
}

// Contains reports whether h falls into the range.
func (r HashRange) Contains(h uint32) bool {
	return r.Lo <= h && h <= r.Hi
}

// Overlaps reports whether the two ranges share at least one hash.
func (r HashRange) Overlaps(other HashRange) bool {
	return r.Lo <= other.Hi && other.Lo <= r.Hi
}

// Size returns the number of hashes in the range.
func (r HashRange) Size() uint64 {
	return uint64(r.Hi) - uint64(r.Lo) + 1
}

// Compare orders ranges by their start, then by their end.
func (r HashRange) Compare(other HashRange) int {
	if c := cmp.Compare(r.Lo, other.Lo); c != 0 {
		return c
	}
	return cmp.Compare(r.Hi, other.Hi)
}

func (r HashRange) String() string {
	return fmt.Sprintf("[0x%08x, 0x%08x]", r.Lo, r.Hi)
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (r HashRange) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("lo", r.Lo)
	enc.AddUint32("hi", r.Hi)
	return nil
}

// EncodeScale implements scale codec interface.
func (r *HashRange) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeUint32(enc, r.Lo)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeUint32(enc, r.Hi)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (r *HashRange) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeUint32(dec)
		if err != nil {
			return total, err
		}
		total += n
		r.Lo = field
	}
	{
		field, n, err := scale.DecodeUint32(dec)
		if err != nil {
			return total, err
		}
		total += n
		r.Hi = field
	}
	return total, nil
}

// MergeRanges returns the ranges sorted, with overlapping and adjacent ranges
// coalesced into maximal runs. The argument is not modified.
func MergeRanges(ranges []HashRange) []HashRange {
	if len(ranges) == 0 {
		return nil
	}
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, HashRange.Compare)
	merged := make([]HashRange, 0, len(sorted))
	merged = append(merged, sorted[0])
	for _, r := range sorted[1:] {
		last := &merged[len(merged)-1]
		// uint64 so that a run ending at MaxUint32 doesn't wrap
		if uint64(r.Lo) <= uint64(last.Hi)+1 {
			last.Hi = max(last.Hi, r.Hi)
			continue
		}
		merged = append(merged, r)
	}
	return merged
}

// Complement returns the parts of the hash domain [0, MaxUint32] not covered by
// any of the ranges, in ascending order. The complement of no ranges is the
// full domain.
func Complement(ranges []HashRange) []HashRange {
	var (
		out  []HashRange
		next uint64
	)
	for _, r := range MergeRanges(ranges) {
		if uint64(r.Lo) > next {
			out = append(out, HashRange{Lo: uint32(next), Hi: r.Lo - 1})
		}
		next = uint64(r.Hi) + 1
	}
	if next <= math.MaxUint32 {
		out = append(out, HashRange{Lo: uint32(next), Hi: math.MaxUint32})
	}
	return out
}
