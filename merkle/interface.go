package merkle

import "github.com/spacemeshos/go-scrub/types"

//go:generate mockgen -typed -package=merkle -destination=./mocks.go -source=./interface.go

// RangeFiller receives the hash ranges proven consistent with a peer.
// It is implemented by *rangeindex.Index.
type RangeFiller interface {
	// RemoveOwner drops all ranges recorded for the owner.
	RemoveOwner(owner types.ShardID) int
	// Fill records ranges for the owner.
	Fill(ranges []types.HashRange, owner types.ShardID) error
}
