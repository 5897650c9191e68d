package scrub

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spacemeshos/go-scrub/merkle"
	"github.com/spacemeshos/go-scrub/types"
	"github.com/spacemeshos/go-scrub/wire"
)

var (
	pg    = types.PGID{Pool: 1, Seed: 0x2a, Shard: types.NoShard}
	osdA  = types.NewShardID(1)
	osdB  = types.NewShardID(2)
	osdC  = types.NewShardID(3)
	epoch = types.Epoch(10)
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.LeafCount = 16
	return cfg
}

type tester struct {
	*Scrubber
	clock clockwork.FakeClock
}

func newTester(t *testing.T, self types.ShardID, objects []merkle.Object, opts ...Opt) *tester {
	clock := clockwork.NewFakeClock()
	opts = append([]Opt{WithLogger(zaptest.NewLogger(t)), withClock(clock)}, opts...)
	s, err := New(self, pg, testConfig(), opts...)
	require.NoError(t, err)
	require.NoError(t, s.Load(objects))
	return &tester{Scrubber: s, clock: clock}
}

// objects returns n objects spread over all buckets of a 16 leaf tree.
func objects(n int) []merkle.Object {
	r := make([]merkle.Object, n)
	for i := range n {
		r[i] = merkle.Object{
			Hash:    uint32(i) * 0x0badf00d,
			Version: types.Version{Epoch: 1, Counter: uint64(i + 1)},
		}
	}
	return r
}

func exchange(t *testing.T, from, to *tester) *wire.ObjectInfo {
	req, err := from.Request(epoch, epoch-1)
	require.NoError(t, err)
	require.Equal(t, wire.OpGetDiff, req.Op)
	require.Equal(t, from.self, req.From)
	require.NotEmpty(t, req.Tree)

	// go through the wire encoding
	buf, err := req.Encode()
	require.NoError(t, err)
	req, err = wire.Decode(buf)
	require.NoError(t, err)

	reply, err := to.Handle(req)
	require.NoError(t, err)
	require.NotNil(t, reply)
	require.Equal(t, to.self, reply.From)
	require.Equal(t, pg, reply.PGID)
	require.Equal(t, epoch, reply.MapEpoch)
	require.Equal(t, epoch-1, reply.QueryEpoch)

	none, err := from.Handle(reply)
	require.NoError(t, err)
	require.Nil(t, none)
	return reply
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.LeafCount = 12
	require.ErrorIs(t, cfg.Validate(), merkle.ErrLeafCount)

	cfg = DefaultConfig()
	cfg.EncodedTreeCache = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxRangeAge = -time.Second
	require.Error(t, cfg.Validate())

	_, err := New(osdA, pg, Config{})
	require.ErrorIs(t, err, merkle.ErrLeafCount)
}

func TestConfigLeafCountFitsMessage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LeafCount = 1 << 21
	require.NoError(t, cfg.Validate())
	for _, n := range []int{1 << 22, merkle.MaxLeafCount} {
		cfg.LeafCount = n
		require.ErrorIs(t, cfg.Validate(), ErrTreeTooLarge)
		_, err := New(osdA, pg, cfg)
		require.ErrorIs(t, err, ErrTreeTooLarge)
	}
}

func TestLargestTreeGoesOnTheWire(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates the largest allowed tree")
	}
	cfg := DefaultConfig()
	cfg.LeafCount = 1 << 21
	s, err := New(osdA, pg, cfg)
	require.NoError(t, err)
	req, err := s.Request(epoch, epoch)
	require.NoError(t, err)
	require.Len(t, req.Tree, merkle.EncodedSize(cfg.LeafCount))
	buf, err := req.Encode()
	require.NoError(t, err)
	decoded, err := wire.Decode(buf)
	require.NoError(t, err)
	require.Equal(t, req.Tree, decoded.Tree)
}

func TestExchangeEqual(t *testing.T) {
	objs := objects(100)
	a := newTester(t, osdA, objs)
	b := newTester(t, osdB, objs)

	reply := exchange(t, a, b)
	require.Equal(t, wire.OpHead, reply.Op)
	require.Empty(t, reply.Tree)

	for _, st := range []struct {
		s    *tester
		peer types.ShardID
	}{{a, osdB}, {b, osdA}} {
		status, ok := st.s.PeerStatus(st.peer)
		require.True(t, ok)
		require.True(t, status.InSync)
		require.Empty(t, status.Divergent)
		require.Zero(t, st.s.Index().Len())
		for _, o := range objs {
			require.True(t, st.s.Skippable(st.peer, o.Hash))
		}
	}
	require.False(t, a.Skippable(osdC, objs[0].Hash))
}

func TestExchangeDivergent(t *testing.T) {
	objs := objects(100)
	a := newTester(t, osdA, objs)
	extra := merkle.Object{
		Hash:    a.Tree().BucketRange(5).Lo + 7,
		Version: types.Version{Epoch: 2, Counter: 1},
	}
	b := newTester(t, osdB, append(objects(100), extra))

	reply := exchange(t, a, b)
	require.Equal(t, wire.OpFull, reply.Op)
	require.NotEmpty(t, reply.Tree)

	bucket := a.Tree().BucketRange(5)
	for _, s := range []*tester{a, b} {
		peer := osdB
		if s == b {
			peer = osdA
		}
		status, ok := s.PeerStatus(peer)
		require.True(t, ok)
		require.False(t, status.InSync)
		require.Equal(t, []types.HashRange{bucket}, status.Divergent)
		require.False(t, s.Skippable(peer, extra.Hash))
		require.False(t, s.Skippable(peer, bucket.Lo))
		require.False(t, s.Skippable(peer, bucket.Hi))
		require.True(t, s.Skippable(peer, bucket.Lo-1))
		require.True(t, s.Skippable(peer, bucket.Hi+1))
		require.Equal(t, 2, s.Index().Len())
	}
}

func TestSkippableExpires(t *testing.T) {
	objs := objects(20)
	a := newTester(t, osdA, objs)
	b := newTester(t, osdB, objs)
	exchange(t, a, b)

	require.True(t, a.Skippable(osdB, objs[3].Hash))
	a.clock.Advance(testConfig().MaxRangeAge - time.Second)
	require.True(t, a.Skippable(osdB, objs[3].Hash))
	a.clock.Advance(time.Second)
	require.False(t, a.Skippable(osdB, objs[3].Hash))

	// a new comparison refreshes the outcome
	exchange(t, a, b)
	require.True(t, a.Skippable(osdB, objs[3].Hash))
}

func TestSkippableNeverExpires(t *testing.T) {
	objs := objects(20)
	cfg := testConfig()
	cfg.MaxRangeAge = 0
	clock := clockwork.NewFakeClock()
	a, err := New(osdA, pg, cfg, withClock(clock))
	require.NoError(t, err)
	require.NoError(t, a.Load(objs))
	b, err := New(osdB, pg, cfg)
	require.NoError(t, err)
	require.NoError(t, b.Load(objs))

	req, err := b.Request(epoch, epoch)
	require.NoError(t, err)
	reply, err := a.Handle(req)
	require.NoError(t, err)
	require.Equal(t, wire.OpHead, reply.Op)
	clock.Advance(24 * time.Hour)
	require.True(t, a.Skippable(osdB, objs[0].Hash))
}

func TestApplyInvalidatesBucket(t *testing.T) {
	objs := objects(100)
	a := newTester(t, osdA, objs)
	bucket2 := a.Tree().BucketRange(2)
	bucket9 := a.Tree().BucketRange(9)
	b := newTester(t, osdB, append(objects(100), merkle.Object{
		Hash:    bucket9.Lo,
		Version: types.Version{Epoch: 1, Counter: 1},
	}))
	c := newTester(t, osdC, objs)
	exchange(t, a, b)
	exchange(t, a, c)
	require.True(t, a.Skippable(osdC, objs[1].Hash))

	changed := bucket2.Lo + 1
	require.True(t, a.Skippable(osdB, changed))
	require.NoError(t, a.Apply(changed, types.Version{}, types.Version{Epoch: 3, Counter: 1}, types.Create))

	// only the bucket holding the change stops being skippable
	for _, peer := range []types.ShardID{osdB, osdC} {
		require.False(t, a.Skippable(peer, changed))
		require.False(t, a.Skippable(peer, bucket2.Lo))
		require.False(t, a.Skippable(peer, bucket2.Hi))
		require.True(t, a.Skippable(peer, bucket2.Lo-1))
		require.True(t, a.Skippable(peer, bucket2.Hi+1))
		require.True(t, a.Skippable(peer, 0))
		require.True(t, a.Skippable(peer, a.Tree().BucketRange(15).Hi))
	}
	require.False(t, a.Skippable(osdB, bucket9.Lo))
	require.True(t, a.Skippable(osdC, bucket9.Lo))

	status, ok := a.PeerStatus(osdB)
	require.True(t, ok)
	require.Equal(t, []types.HashRange{bucket2, bucket9}, status.Divergent)

	status, ok = a.PeerStatus(osdC)
	require.True(t, ok)
	require.False(t, status.InSync)
	require.False(t, a.Index().Marked(osdC))
	require.Equal(t, []types.HashRange{bucket2}, status.Divergent)
	require.Equal(t, types.Complement([]types.HashRange{bucket2}), rangesOf(a, osdC))

	// a second change in the same bucket changes nothing more
	require.NoError(t, a.Apply(changed, types.Version{Epoch: 3, Counter: 1}, types.Version{}, types.Delete))
	status, _ = a.PeerStatus(osdC)
	require.Equal(t, []types.HashRange{bucket2}, status.Divergent)
	require.Equal(t, types.Complement([]types.HashRange{bucket2}), rangesOf(a, osdC))

	require.ErrorIs(t,
		a.Apply(changed, types.Version{}, types.Version{}, types.Action(42)),
		merkle.ErrAction)
}

func rangesOf(s *tester, peer types.ShardID) []types.HashRange {
	var ranges []types.HashRange
	for _, e := range s.Index().Entries(peer) {
		ranges = append(ranges, e.Range)
	}
	return ranges
}

func TestMarkNoRangesAndForget(t *testing.T) {
	objs := objects(50)
	a := newTester(t, osdA, objs)
	b := newTester(t, osdB, objs)
	exchange(t, a, b)

	a.MarkNoRanges(osdB)
	require.False(t, a.Skippable(osdB, objs[0].Hash))
	require.True(t, a.Index().Marked(osdB))

	exchange(t, a, b)
	require.True(t, a.Skippable(osdB, objs[0].Hash))
	require.False(t, a.Index().Marked(osdB))

	a.Forget(osdB)
	_, ok := a.PeerStatus(osdB)
	require.False(t, ok)
	require.False(t, a.Skippable(osdB, objs[0].Hash))
	require.Empty(t, a.Index().Owners())
}

func TestLoadDropsComparisons(t *testing.T) {
	objs := objects(30)
	a := newTester(t, osdA, objs)
	b := newTester(t, osdB, objs)
	exchange(t, a, b)
	require.True(t, a.Skippable(osdB, objs[0].Hash))

	require.NoError(t, a.Load(objects(31)))
	require.False(t, a.Skippable(osdB, objs[0].Hash))
	require.Equal(t, uint64(31), a.Tree().Stats().ObjectsSeen)
}

func TestHandleErrors(t *testing.T) {
	a := newTester(t, osdA, objects(10))

	other := pg
	other.Seed++
	_, err := a.Handle(&wire.ObjectInfo{Op: wire.OpHead, From: osdB, PGID: other})
	require.ErrorIs(t, err, ErrWrongPG)

	_, err = a.Handle(&wire.ObjectInfo{Op: 7, From: osdB, PGID: pg})
	require.ErrorIs(t, err, ErrUnknownOp)

	_, err = a.Handle(&wire.ObjectInfo{Op: wire.OpGetDiff, From: osdB, PGID: pg, Tree: []byte{1, 1}})
	require.ErrorIs(t, err, merkle.ErrCorrupt)

	small, err := merkle.New(8)
	require.NoError(t, err)
	small.Build()
	buf, err := small.Encode()
	require.NoError(t, err)
	_, err = a.Handle(&wire.ObjectInfo{Op: wire.OpFull, From: osdB, PGID: pg, Tree: buf})
	require.ErrorIs(t, err, merkle.ErrShapeMismatch)

	_, ok := a.PeerStatus(osdB)
	require.False(t, ok)
}

func TestEncodedTreeCache(t *testing.T) {
	a := newTester(t, osdA, objects(10))
	r1, err := a.Request(epoch, epoch)
	require.NoError(t, err)
	r2, err := a.Request(epoch+1, epoch+1)
	require.NoError(t, err)
	require.Equal(t, r1.Tree, r2.Tree)
	require.Equal(t, 1, a.encoded.Len())

	require.NoError(t, a.Apply(5, types.Version{}, types.Version{Epoch: 1, Counter: 9}, types.Create))
	r3, err := a.Request(epoch, epoch)
	require.NoError(t, err)
	require.NotEqual(t, r1.Tree, r3.Tree)
	require.Equal(t, 2, a.encoded.Len())

	tree, err := merkle.Decode(r3.Tree)
	require.NoError(t, err)
	want, err := a.Tree().Root()
	require.NoError(t, err)
	got, err := tree.Root()
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestCompareLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	objs := objects(40)
	a := newTester(t, osdA, objs, WithLogger(zap.New(core)))
	b := newTester(t, osdB, objs[:39])

	req, err := b.Request(epoch, epoch)
	require.NoError(t, err)
	_, err = a.Handle(req)
	require.NoError(t, err)

	compared := logs.FilterMessage("compared trees").All()
	require.Len(t, compared, 1)
	fields := compared[0].ContextMap()
	require.Equal(t, osdB.String(), fields["peer"])
	require.Equal(t, false, fields["equal"])
	require.EqualValues(t, 1, fields["divergent"])
	require.Equal(t, 1, logs.FilterMessage("trees differ, replying full tree").Len())
}
