package membloom

import (
	"github.com/dgryski/go-metro"
	"github.com/spaolacci/murmur3"
)

// Hasher is a seeded 32-bit hash. The filter evaluates it once per hash slot,
// passing the slot number as _seed_, so distinct seeds must give effectively
// independent outputs for the same data.
type Hasher interface {
	Sum32(data []byte, seed uint32) uint32
}

// HasherFunc adapts an ordinary function to the Hasher interface
type HasherFunc func(data []byte, seed uint32) uint32

// Sum32 calls fn(data, seed)
func (fn HasherFunc) Sum32(data []byte, seed uint32) uint32 {
	return fn(data, seed)
}

// Murmur3 is the default Hasher: MurmurHash3 x86_32 as implemented by
// github.com/spaolacci/murmur3. Filter contents are reproducible bit-for-bit
// across processes and across the in-memory and Redis backends when it is used.
var Murmur3 Hasher = HasherFunc(murmur3.Sum32WithSeed)

// Metro is a Hasher built on the 64-bit metrohash of github.com/dgryski/go-metro,
// folded to 32 bits.
var Metro Hasher = HasherFunc(func(data []byte, seed uint32) uint32 {
	h := metro.Hash64(data, uint64(seed))
	return uint32(h>>32) ^ uint32(h)
})
