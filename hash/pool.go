package hash

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// pool is a global xxh64 digest pool. It is meant to amortize allocations
// of digests over time by allowing clients to reuse them.
var pool = &sync.Pool{
	New: func() any {
		return xxhash.NewWithSeed(Seed)
	},
}

// GetHasher will get a digest from the pool, reset with Seed.
// It may or may not allocate a new one.
func GetHasher() *xxhash.Digest {
	d := pool.Get().(*xxhash.Digest)
	d.ResetWithSeed(Seed)
	return d
}

// PutHasher returns the digest back to the pool.
func PutHasher(d *xxhash.Digest) {
	pool.Put(d)
}

func sum(b []byte) uint64 {
	d := GetHasher()
	defer PutHasher(d)
	d.Write(b)
	return d.Sum64()
}
