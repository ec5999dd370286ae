package membloom

import (
	"sync/atomic"

	"github.com/bits-and-blooms/bitset"
)

const (
	wordSize    = 64
	wordBytes   = wordSize / 8
	log2WordLen = 6
)

// bitSetMem is a fixed-size bit array packed into 64-bit words.
// Bits are only ever set, each with an atomic OR on the containing word,
// and read with atomic loads, so it needs no lock.
type bitSetMem struct {
	words []uint64
	size  uint64
}

func newBitSetMem(size uint64) *bitSetMem {
	return &bitSetMem{
		words: make([]uint64, (size+wordSize-1)/wordSize),
		size:  size,
	}
}

func (bitSet *bitSetMem) insert(index uint64) {
	atomic.OrUint64(&bitSet.words[index>>log2WordLen], 1<<(index&(wordSize-1)))
}

func (bitSet *bitSetMem) has(index uint64) bool {
	return atomic.LoadUint64(&bitSet.words[index>>log2WordLen])&(1<<(index&(wordSize-1))) != 0
}

// snapshot copies the words into a bits-and-blooms BitSet of length size
func (bitSet *bitSetMem) snapshot() *bitset.BitSet {
	words := make([]uint64, len(bitSet.words))
	for i := range bitSet.words {
		words[i] = atomic.LoadUint64(&bitSet.words[i])
	}
	return bitset.FromWithLength(uint(bitSet.size), words)
}

func (bitSet *bitSetMem) bitCount() uint {
	return bitSet.snapshot().Count()
}
