package scrub

import (
	"errors"
	"fmt"
	"time"

	"github.com/spacemeshos/go-scrub/merkle"
	"github.com/spacemeshos/go-scrub/wire"
)

// ErrTreeTooLarge is returned for a leaf count whose encoded tree doesn't fit
// in an ObjectInfo message.
var ErrTreeTooLarge = errors.New("encoded tree exceeds message payload limit")

// Config is the configuration of a Scrubber.
type Config struct {
	// LeafCount is the number of leaves of the merkle tree, a power of two.
	LeafCount int `mapstructure:"leaf-count"`
	// MaxRangeAge is how long the outcome of a comparison may be used to skip
	// objects. Zero means it never expires.
	MaxRangeAge time.Duration `mapstructure:"max-range-age"`
	// EncodedTreeCache is the number of encoded local trees kept for replies.
	EncodedTreeCache int `mapstructure:"encoded-tree-cache"`
}

// DefaultConfig returns the default Scrubber configuration.
func DefaultConfig() Config {
	return Config{
		LeafCount:        4096,
		MaxRangeAge:      10 * time.Minute,
		EncodedTreeCache: 4,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := merkle.ValidateLeafCount(c.LeafCount); err != nil {
		return fmt.Errorf("leaf-count: %w", err)
	}
	if size := merkle.EncodedSize(c.LeafCount); size > wire.MaxTreePayload {
		return fmt.Errorf("leaf-count %d: %w: %d > %d", c.LeafCount, ErrTreeTooLarge, size, wire.MaxTreePayload)
	}
	if c.MaxRangeAge < 0 {
		return errors.New("max-range-age must not be negative")
	}
	if c.EncodedTreeCache < 1 {
		return fmt.Errorf("encoded-tree-cache must be positive, got %d", c.EncodedTreeCache)
	}
	return nil
}
