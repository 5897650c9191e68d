// Package scrub compares the merkle tree of a partition against the trees of
// the other holders of the partition and tracks the hash ranges that a scan
// may skip.
package scrub

import (
	"errors"
	"fmt"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spacemeshos/go-scrub/merkle"
	"github.com/spacemeshos/go-scrub/rangeindex"
	"github.com/spacemeshos/go-scrub/types"
	"github.com/spacemeshos/go-scrub/wire"
)

var (
	// ErrWrongPG is returned when a message belongs to another partition.
	ErrWrongPG = errors.New("message for a different partition")
	// ErrUnknownOp is returned for a message with an unknown op code.
	ErrUnknownOp = errors.New("unknown object info op")
)

// PeerStatus is the outcome of the last comparison with a peer.
type PeerStatus struct {
	// Compared is when the comparison happened.
	Compared time.Time
	// InSync is set when the root values were equal.
	InSync bool
	// Divergent are the merged hash ranges where the trees differ.
	Divergent []types.HashRange
}

// Opt specifies an option for a Scrubber.
type Opt func(s *Scrubber)

// WithLogger specifies the logger for the Scrubber.
func WithLogger(logger *zap.Logger) Opt {
	return func(s *Scrubber) {
		s.logger = logger
	}
}

func withClock(clock clockwork.Clock) Opt {
	return func(s *Scrubber) {
		s.clock = clock
	}
}

// Scrubber owns the local tree of a partition and the index of hash ranges
// found consistent with each peer. It is not safe for concurrent use.
type Scrubber struct {
	logger  *zap.Logger
	clock   clockwork.Clock
	cfg     Config
	self    types.ShardID
	pg      types.PGID
	tree    *merkle.Tree
	index   *rangeindex.Index
	peers   map[types.ShardID]*PeerStatus
	encoded *lru.Cache[uint64, []byte]
}

// New creates a Scrubber for partition pg held by self. The local tree is
// empty until Load is called.
func New(self types.ShardID, pg types.PGID, cfg Config, opts ...Opt) (*Scrubber, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	s := &Scrubber{
		logger: zap.NewNop(),
		clock:  clockwork.NewRealClock(),
		cfg:    cfg,
		self:   self,
		pg:     pg,
		index:  rangeindex.New(),
		peers:  make(map[types.ShardID]*PeerStatus),
	}
	for _, opt := range opts {
		opt(s)
	}
	tree, err := merkle.New(cfg.LeafCount)
	if err != nil {
		return nil, err
	}
	s.tree = tree
	s.tree.Build()
	s.encoded, err = lru.New[uint64, []byte](cfg.EncodedTreeCache)
	if err != nil {
		return nil, fmt.Errorf("create encoded tree cache: %w", err)
	}
	return s, nil
}

// Tree returns the local tree.
func (s *Scrubber) Tree() *merkle.Tree { return s.tree }

// Index returns the index of consistent ranges.
func (s *Scrubber) Index() *rangeindex.Index { return s.index }

// Load replaces the local tree with one built from objects. Results of
// previous comparisons are dropped.
func (s *Scrubber) Load(objects []merkle.Object) error {
	tree, err := merkle.New(s.cfg.LeafCount)
	if err != nil {
		return err
	}
	tree.Populate(objects)
	tree.Build()
	s.tree = tree
	s.index.Clear()
	clear(s.peers)
	trackedPeers.Set(0)
	stats := tree.Stats()
	s.logger.Debug("local tree loaded",
		zap.Stringer("pg", s.pg),
		zap.Uint64("objects", stats.ObjectsSeen),
		zap.Int("nonempty_leaves", stats.NonEmptyLeaves))
	return nil
}

// Apply records a change of one object in the local tree. The bucket of the
// object becomes divergent for every peer and stops being skippable.
func (s *Scrubber) Apply(objectHash uint32, prev, curr types.Version, action types.Action) error {
	if err := s.tree.Update(objectHash, prev, curr, action); err != nil {
		return fmt.Errorf("apply %s of %08x: %w", action, objectHash, err)
	}
	bucket := s.tree.BucketRange(s.tree.Bucket(objectHash))
	for _, owner := range s.index.Owners() {
		s.index.Punch(bucket, owner)
	}
	for peer, st := range s.peers {
		st.Divergent = types.MergeRanges(append(slices.Clip(st.Divergent), bucket))
		if !st.InSync {
			continue
		}
		// equal roots left no ranges in the index, everything but the bucket
		// is still consistent
		st.InSync = false
		if err := s.index.Fill(types.Complement(st.Divergent), peer); err != nil {
			return fmt.Errorf("refill consistent ranges for %s: %w", peer, err)
		}
	}
	return nil
}

func (s *Scrubber) encodeTree() ([]byte, error) {
	root, err := s.tree.Root()
	if err != nil {
		return nil, err
	}
	if buf, ok := s.encoded.Get(root); ok {
		return buf, nil
	}
	buf, err := s.tree.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode local tree: %w", err)
	}
	s.encoded.Add(root, buf)
	return buf, nil
}

func (s *Scrubber) message(op wire.OpCode, mapEpoch, queryEpoch types.Epoch, withTree bool) (*wire.ObjectInfo, error) {
	msg := &wire.ObjectInfo{
		Op:         op,
		From:       s.self,
		PGID:       s.pg,
		MapEpoch:   mapEpoch,
		QueryEpoch: queryEpoch,
	}
	if withTree {
		buf, err := s.encodeTree()
		if err != nil {
			return nil, err
		}
		msg.Tree = buf
	}
	return msg, nil
}

// Request creates a GET_DIFF message carrying the local tree.
func (s *Scrubber) Request(mapEpoch, queryEpoch types.Epoch) (*wire.ObjectInfo, error) {
	messages.WithLabelValues(wire.OpGetDiff.String()).Inc()
	return s.message(wire.OpGetDiff, mapEpoch, queryEpoch, true)
}

// Handle processes a message received from a peer. A GET_DIFF message gets a
// reply, other messages return a nil reply.
func (s *Scrubber) Handle(msg *wire.ObjectInfo) (*wire.ObjectInfo, error) {
	if msg.PGID != s.pg {
		return nil, fmt.Errorf("%w: got %s, have %s", ErrWrongPG, msg.PGID, s.pg)
	}
	messages.WithLabelValues(msg.Op.String()).Inc()
	logger := s.logger.With(zap.Stringer("msg", msg))
	switch msg.Op {
	case wire.OpGetDiff:
		res, err := s.compareEncoded(msg.From, msg.Tree)
		if err != nil {
			return nil, err
		}
		if res.Equal {
			logger.Debug("trees are equal, replying head")
			return s.message(wire.OpHead, msg.MapEpoch, msg.QueryEpoch, false)
		}
		logger.Debug("trees differ, replying full tree")
		return s.message(wire.OpFull, msg.MapEpoch, msg.QueryEpoch, true)
	case wire.OpHead:
		s.index.RemoveOwner(msg.From)
		s.record(msg.From, merkle.Result{Equal: true})
		equalComparisons.Inc()
		logger.Debug("peer reports equal roots")
		return nil, nil
	case wire.OpFull:
		if _, err := s.compareEncoded(msg.From, msg.Tree); err != nil {
			return nil, err
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownOp, msg.Op)
	}
}

func (s *Scrubber) compareEncoded(peer types.ShardID, buf []byte) (merkle.Result, error) {
	other, err := merkle.Decode(buf)
	if err != nil {
		failedComparisons.Inc()
		return merkle.Result{}, fmt.Errorf("decode tree from %s: %w", peer, err)
	}
	return s.Compare(peer, other)
}

// Compare compares the local tree against the tree of peer and records the
// outcome.
func (s *Scrubber) Compare(peer types.ShardID, other *merkle.Tree) (merkle.Result, error) {
	start := s.clock.Now()
	res, err := s.tree.Compare(other, peer, s.index)
	compareDuration.Observe(s.clock.Since(start).Seconds())
	if err != nil {
		failedComparisons.Inc()
		return res, fmt.Errorf("compare with %s: %w", peer, err)
	}
	s.record(peer, res)
	if res.Equal {
		equalComparisons.Inc()
	} else {
		divergentComparisons.Inc()
		divergentRanges.Observe(float64(len(res.Divergent)))
	}
	s.logger.Debug("compared trees",
		zap.Stringer("peer", peer),
		zap.Bool("equal", res.Equal),
		zap.Int("divergent", len(res.Divergent)),
		zap.Uint64("divergent_hashes", res.DivergentHashes()))
	return res, nil
}

func (s *Scrubber) record(peer types.ShardID, res merkle.Result) {
	s.peers[peer] = &PeerStatus{
		Compared:  s.clock.Now(),
		InSync:    res.Equal,
		Divergent: slices.Clone(res.Divergent),
	}
	trackedPeers.Set(float64(len(s.peers)))
}

func (s *Scrubber) fresh(st *PeerStatus) bool {
	return s.cfg.MaxRangeAge == 0 || s.clock.Since(st.Compared) < s.cfg.MaxRangeAge
}

// Skippable reports whether the object with the given hash is known to be
// consistent with peer, so that a scan may skip it.
func (s *Scrubber) Skippable(peer types.ShardID, objectHash uint32) bool {
	st, ok := s.peers[peer]
	if !ok || !s.fresh(st) {
		return false
	}
	return st.InSync || s.index.Covers(objectHash, peer)
}

// MarkNoRanges records that nothing may be skipped for peer until the next
// comparison.
func (s *Scrubber) MarkNoRanges(peer types.ShardID) {
	s.index.MarkNoRanges(peer)
	if st, ok := s.peers[peer]; ok {
		st.InSync = false
	}
}

// Forget drops everything known about peer.
func (s *Scrubber) Forget(peer types.ShardID) {
	s.index.RemoveOwner(peer)
	delete(s.peers, peer)
	trackedPeers.Set(float64(len(s.peers)))
}

// PeerStatus returns the outcome of the last comparison with peer.
func (s *Scrubber) PeerStatus(peer types.ShardID) (PeerStatus, bool) {
	st, ok := s.peers[peer]
	if !ok {
		return PeerStatus{}, false
	}
	return *st, true
}
