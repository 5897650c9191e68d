// Package hash provides the aggregate combinators used by the scrub merkle tree.
package hash

import "encoding/binary"

// Seed is the xxh64 seed shared by every participant of a comparison.
// It is part of the protocol: trees built with different seeds are not comparable.
const Seed uint64 = 0

// Combine folds two child aggregates into the aggregate of their parent.
func Combine(left, right uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[:8], left)
	binary.LittleEndian.PutUint64(buf[8:], right)
	return sum(buf[:])
}

// ObjectContribution derives the value an object version folds into its leaf.
// Contributions are XORed into leaves, so applying the same one twice cancels it.
func ObjectContribution(objectHash uint32, counter, epoch uint64) uint64 {
	var buf [20]byte
	binary.LittleEndian.PutUint32(buf[:4], objectHash)
	binary.LittleEndian.PutUint64(buf[4:12], counter)
	binary.LittleEndian.PutUint64(buf[12:], epoch)
	return sum(buf[:])
}
