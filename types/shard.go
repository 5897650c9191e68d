package types

import (
	"cmp"
	"fmt"

	"github.com/spacemeshos/go-scale"
	"go.uber.org/zap/zapcore"
)

// NoShard is the shard number of a replicated, not erasure-coded, partition.
const NoShard int8 = -1

// ShardID identifies one holder of a partition: the storage node and, for
// erasure-coded pools, the shard position it holds.
type ShardID struct {
	OSD   int32
	Shard int8
}

// NewShardID returns the ShardID of a replicated partition holder.
func NewShardID(osd int32) ShardID {
	return ShardID{OSD: osd, Shard: NoShard}
}

func (s ShardID) String() string {
	if s.Shard == NoShard {
		return fmt.Sprintf("%d", s.OSD)
	}
	return fmt.Sprintf("%d(%d)", s.OSD, s.Shard)
}

// Compare orders shard identities by node, then by shard.
func (s ShardID) Compare(other ShardID) int {
	if c := cmp.Compare(s.OSD, other.OSD); c != 0 {
		return c
	}
	return cmp.Compare(s.Shard, other.Shard)
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s ShardID) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt32("osd", s.OSD)
	enc.AddInt8("shard", s.Shard)
	return nil
}

// EncodeScale implements scale codec interface.
func (s *ShardID) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeUint32(enc, uint32(s.OSD))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByte(enc, byte(s.Shard))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (s *ShardID) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeUint32(dec)
		if err != nil {
			return total, err
		}
		total += n
		s.OSD = int32(field)
	}
	{
		field, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		total += n
		s.Shard = int8(field)
	}
	return total, nil
}

// PGID identifies a partition (placement group) and, for erasure-coded pools,
// the shard of it.
type PGID struct {
	Pool  int64
	Seed  uint32
	Shard int8
}

func (p PGID) String() string {
	if p.Shard == NoShard {
		return fmt.Sprintf("%d.%x", p.Pool, p.Seed)
	}
	return fmt.Sprintf("%d.%xs%d", p.Pool, p.Seed, p.Shard)
}

// EncodeScale implements scale codec interface.
func (p *PGID) EncodeScale(enc *scale.Encoder) (total int, err error) {
	{
		n, err := scale.EncodeUint64(enc, uint64(p.Pool))
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeUint32(enc, p.Seed)
		if err != nil {
			return total, err
		}
		total += n
	}
	{
		n, err := scale.EncodeByte(enc, byte(p.Shard))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// DecodeScale implements scale codec interface.
func (p *PGID) DecodeScale(dec *scale.Decoder) (total int, err error) {
	{
		field, n, err := scale.DecodeUint64(dec)
		if err != nil {
			return total, err
		}
		total += n
		p.Pool = int64(field)
	}
	{
		field, n, err := scale.DecodeUint32(dec)
		if err != nil {
			return total, err
		}
		total += n
		p.Seed = field
	}
	{
		field, n, err := scale.DecodeByte(dec)
		if err != nil {
			return total, err
		}
		total += n
		p.Shard = int8(field)
	}
	return total, nil
}
