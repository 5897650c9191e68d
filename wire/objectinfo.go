// Package wire defines the message exchanged between partition holders to
// compare their merkle trees.
package wire

import (
	"errors"
	"fmt"

	"github.com/spacemeshos/go-scale"

	"github.com/spacemeshos/go-scrub/codec"
	"github.com/spacemeshos/go-scrub/types"
)

const (
	headVersion   byte = 1
	compatVersion byte = 1

	// MaxTreePayload is the largest encoded tree a message may carry.
	MaxTreePayload = 64 << 20
)

// ErrVersion is returned when decoding a message of an incompatible version.
var ErrVersion = errors.New("unsupported object info message version")

// OpCode is the kind of an ObjectInfo message.
type OpCode uint32

const (
	// OpGetDiff asks the peer to compare the attached tree against its own.
	OpGetDiff OpCode = 1
	// OpHead replies that the root values are equal.
	OpHead OpCode = 2
	// OpFull replies with the full tree of the peer.
	OpFull OpCode = 3
)

func (op OpCode) String() string {
	switch op {
	case OpGetDiff:
		return "get diff"
	case OpHead:
		return "head eq reply"
	case OpFull:
		return "full diff reply"
	default:
		return "???"
	}
}

// ObjectInfo requests or answers a tree comparison for a partition.
type ObjectInfo struct {
	Op   OpCode
	From types.ShardID
	PGID types.PGID
	// MapEpoch is the epoch of the cluster map the sender read its state at.
	MapEpoch types.Epoch
	// QueryEpoch is the epoch the query was issued at.
	QueryEpoch types.Epoch
	// Tree is the encoded merkle tree of the sender, empty for OpHead.
	Tree []byte
}

func (m *ObjectInfo) String() string {
	return fmt.Sprintf("pg_objects_info_check(%s: %s, e %d/%d)", m.Op, m.PGID, m.MapEpoch, m.QueryEpoch)
}

// EncodeScale implements scale codec interface.
func (m *ObjectInfo) EncodeScale(enc *scale.Encoder) (total int, err error) {
	for _, b := range []byte{headVersion, compatVersion} {
		n, err := scale.EncodeByte(enc, b)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact32(enc, uint32(m.Op))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := m.From.EncodeScale(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact32(enc, uint32(m.MapEpoch))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeCompact32(enc, uint32(m.QueryEpoch))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := m.PGID.EncodeScale(enc)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByteSliceWithLimit(enc, m.Tree, MaxTreePayload)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (m *ObjectInfo) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		_, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		compat, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		total += n
		// compat is the oldest version able to read the message
		if compat > headVersion {
			return total, fmt.Errorf("%w: compat version %d", ErrVersion, compat)
		}
	}
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, err
		}
		total += n
		m.Op = OpCode(field)
	}
	{
		n, err := m.From.DecodeScale(dec)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, err
		}
		total += n
		m.MapEpoch = types.Epoch(field)
	}
	{
		field, n, err := scale.DecodeCompact32(dec)
		if err != nil {
			return total, err
		}
		total += n
		m.QueryEpoch = types.Epoch(field)
	}
	{
		n, err := m.PGID.DecodeScale(dec)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		field, n, err := scale.DecodeByteSliceWithLimit(dec, MaxTreePayload)
		if err != nil {
			return total, err
		}
		total += n
		m.Tree = field
	}
	return total, nil
}

// Encode returns the wire encoding of the message.
func (m *ObjectInfo) Encode() ([]byte, error) {
	return codec.Encode(m)
}

// Decode decodes a message from its wire encoding.
func Decode(buf []byte) (*ObjectInfo, error) {
	var m ObjectInfo
	if err := codec.Decode(buf, &m); err != nil {
		return nil, fmt.Errorf("decode object info: %w", err)
	}
	return &m, nil
}
