package merkle

import (
	"errors"
	"fmt"

	"github.com/spacemeshos/go-scale"

	"github.com/spacemeshos/go-scrub/codec"
)

const (
	encodingVersion byte = 1
	encodingCompat  byte = 1
)

func compactSize(v uint32) int {
	switch {
	case v < 1<<6:
		return 1
	case v < 1<<14:
		return 2
	case v < 1<<30:
		return 4
	default:
		return 5
	}
}

// EncodedSize returns the length of the encoding of a tree with leafCount
// leaves.
func EncodedSize(leafCount int) int {
	nodes := 2*leafCount - 1
	return 2 + compactSize(uint32(leafCount)) + compactSize(uint32(nodes)) + 8*nodes
}

// EncodeScale implements scale codec interface.
// The encoding is the version header, the leaf count, and the node values in
// breadth-first order, root first.
func (t *Tree) EncodeScale(enc *scale.Encoder) (total int, err error) {
	if !t.built {
		return 0, ErrNotBuilt
	}
	for _, b := range []byte{encodingVersion, encodingCompat} {
		n, err := scale.EncodeByte(enc, b)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact32(enc, uint32(t.leafCount))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact32(enc, uint32(len(t.values)))
		if err != nil {
			return total, err
		}
		total += n
	}
	for _, v := range t.values {
		n, err := scale.EncodeUint64(enc, v)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
// The tree is only modified if decoding succeeds.
func (t *Tree) DecodeScale(dec *scale.Decoder) (total int, err error) {
	var compat byte
	{
		_, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, fmt.Errorf("%w: version: %w", ErrCorrupt, err)
		}
		total += n
	}
	{
		field, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, fmt.Errorf("%w: compat version: %w", ErrCorrupt, err)
		}
		total += n
		compat = field
	}
	// compat is the oldest version able to read the encoding
	if compat > encodingVersion {
		return total, fmt.Errorf("%w: compat version %d, supported %d", ErrVersion, compat, encodingVersion)
	}
	var leafCount int
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, fmt.Errorf("%w: leaf count: %w", ErrCorrupt, err)
		}
		total += n
		leafCount = int(field)
	}
	if err := ValidateLeafCount(leafCount); err != nil {
		return total, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	var nodes int
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, fmt.Errorf("%w: node count: %w", ErrCorrupt, err)
		}
		total += n
		nodes = int(field)
	}
	if nodes != 2*leafCount-1 {
		return total, fmt.Errorf("%w: %d nodes for %d leaves", ErrCorrupt, nodes, leafCount)
	}
	// grow as values arrive so that a bogus header can't force a large allocation
	values := make([]uint64, 0, min(nodes, 1<<12))
	for i := range nodes {
		field, n, err := scale.DecodeUint64(dec)
		if err != nil {
			return total, fmt.Errorf("%w: node %d: %w", ErrCorrupt, i, err)
		}
		total += n
		values = append(values, field)
	}
	var decoded Tree
	decoded.init(leafCount, values)
	decoded.built = true
	*t = decoded
	return total, nil
}

// Encode returns the wire encoding of the tree.
func (t *Tree) Encode() ([]byte, error) {
	return codec.Encode(t)
}

// Decode decodes a tree from its wire encoding. Decoded trees are built, but
// carry no stats.
func Decode(buf []byte) (*Tree, error) {
	var t Tree
	if err := codec.Decode(buf, &t); err != nil {
		if errors.Is(err, ErrCorrupt) || errors.Is(err, ErrVersion) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return &t, nil
}
