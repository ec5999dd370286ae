/*
Package membloom implements a Bloom-style membership filter: a bit array of
2^logNumBits bits tested and set by k seeded hash evaluations per element.

A filter never reports an added element as absent. It may report an element
that was never added as present; for n added elements the chance of that is
about (1 - e^(-k*n/m))^k, where m is the number of bits.

Bits are never cleared, so elements cannot be removed and the filter cannot be
resized. MembershipFilter keeps its bits in memory; RedisFilter keeps them in a
Redis string so several processes can share one filter.
*/
package membloom

import (
	"errors"
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/kwertop/membloom/internal/util"
)

// MaxLogNumBits is the largest accepted logNumBits. Indexes are masked to 31
// bits, so above 2^31 bits part of the array would be unreachable.
const MaxLogNumBits = 32

const indexMask = 0x7FFFFFFF

// ErrInvalidParameter is returned when a filter is constructed with
// parameters that cannot describe a usable filter.
var ErrInvalidParameter = errors.New("membloom: invalid parameter")

// indexer maps (element, slot) pairs to bit indexes. numBits must be a power
// of two: the reduction into range is a mask with numBits-1, not a modulo.
type indexer struct {
	logNumBits int
	numBits    uint64
	numHashes  int
	hasher     Hasher
}

func newIndexer(logNumBits, k int, hasher Hasher) (indexer, error) {
	if logNumBits < 0 || logNumBits > MaxLogNumBits {
		return indexer{}, fmt.Errorf("%w: logNumBits %v outside [0, %v]", ErrInvalidParameter, logNumBits, MaxLogNumBits)
	}
	if k < 1 {
		return indexer{}, fmt.Errorf("%w: k must be at least 1, got %v", ErrInvalidParameter, k)
	}
	return indexer{
		logNumBits: logNumBits,
		numBits:    uint64(1) << logNumBits,
		numHashes:  k,
		hasher:     hasher,
	}, nil
}

func (ix indexer) index(element []byte, slot int) uint64 {
	return uint64(ix.hasher.Sum32(element, uint32(slot))&indexMask) & (ix.numBits - 1)
}

func (ix indexer) indexes(element []byte) []uint64 {
	indexes := make([]uint64, ix.numHashes)
	for i := range indexes {
		indexes[i] = ix.index(element, i)
	}
	return indexes
}

func (ix indexer) theoreticalPositiveRate(n uint) float64 {
	k := float64(ix.numHashes)
	return math.Pow(1-math.Exp(-k*float64(n)/float64(ix.numBits)), k)
}

func (ix indexer) estimatedPositiveRate(setBits uint) float64 {
	return math.Pow(float64(setBits)/float64(ix.numBits), float64(ix.numHashes))
}

// MembershipFilter is an in-memory Bloom filter.
// All methods are safe for concurrent use. A Check racing with an Add of the
// same element may return false; once Add has returned, Check returns true.
type MembershipFilter struct {
	indexer
	filter *bitSetMem
}

// New creates a MembershipFilter with 2^logNumBits bits and k hash slots
// per element. It fails with ErrInvalidParameter when logNumBits is outside
// [0, MaxLogNumBits] or k < 1.
func New(logNumBits, k int, opts ...Option) (*MembershipFilter, error) {
	o := applyOptions(opts)
	ix, err := newIndexer(logNumBits, k, o.hasher)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("membership filter created",
		"logNumBits", ix.logNumBits,
		"numBits", ix.numBits,
		"k", ix.numHashes)
	return &MembershipFilter{
		indexer: ix,
		filter:  newBitSetMem(ix.numBits),
	}, nil
}

// NewWithEstimates creates a MembershipFilter sized for _numItems_ elements at
// a false positive rate of at most _errorRate_. The optimal bit count is
// rounded up to a power of two, and k is chosen for the rounded size.
func NewWithEstimates(numItems uint, errorRate float64, opts ...Option) (*MembershipFilter, error) {
	if numItems == 0 {
		return nil, fmt.Errorf("%w: numItems must be positive", ErrInvalidParameter)
	}
	if !(errorRate > 0 && errorRate < 1) {
		return nil, fmt.Errorf("%w: errorRate %v outside (0, 1)", ErrInvalidParameter, errorRate)
	}
	logNumBits := util.NextLog2(util.CalculateFilterSize(numItems, errorRate))
	if logNumBits > MaxLogNumBits {
		return nil, fmt.Errorf("%w: %v items at error rate %v need more than 2^%v bits", ErrInvalidParameter, numItems, errorRate, MaxLogNumBits)
	}
	k := util.CalculateNumHashes(uint64(1)<<logNumBits, numItems)
	return New(logNumBits, k, opts...)
}

// Add records _element_ in the filter. Adding an element again has no effect.
func (bloomFilter *MembershipFilter) Add(element []byte) {
	for i := 0; i < bloomFilter.numHashes; i++ {
		bloomFilter.filter.insert(bloomFilter.index(element, i))
	}
}

// Check returns false if _element_ was definitely never added and true if it
// probably was.
func (bloomFilter *MembershipFilter) Check(element []byte) bool {
	for i := 0; i < bloomFilter.numHashes; i++ {
		if !bloomFilter.filter.has(bloomFilter.index(element, i)) {
			return false
		}
	}
	return true
}

// AddString adds the UTF-8 bytes of _element_
func (bloomFilter *MembershipFilter) AddString(element string) {
	bloomFilter.Add([]byte(element))
}

// CheckString checks the UTF-8 bytes of _element_
func (bloomFilter *MembershipFilter) CheckString(element string) bool {
	return bloomFilter.Check([]byte(element))
}

// LogNumBits returns log2 of the number of bits
func (bloomFilter *MembershipFilter) LogNumBits() int {
	return bloomFilter.logNumBits
}

// NumBits returns the number of bits in the filter
func (bloomFilter *MembershipFilter) NumBits() uint64 {
	return bloomFilter.numBits
}

// NumHashes returns k, the number of hash slots evaluated per element
func (bloomFilter *MembershipFilter) NumHashes() int {
	return bloomFilter.numHashes
}

// BitCount returns the number of set bits
func (bloomFilter *MembershipFilter) BitCount() uint {
	return bloomFilter.filter.bitCount()
}

// EstimatedPositiveRate returns the probability that an element never added
// is reported present, given the bits currently set.
func (bloomFilter *MembershipFilter) EstimatedPositiveRate() float64 {
	return bloomFilter.estimatedPositiveRate(bloomFilter.BitCount())
}

// TheoreticalPositiveRate returns the expected false positive rate after _n_
// distinct elements have been added: (1 - e^(-k*n/m))^k.
func (bloomFilter *MembershipFilter) TheoreticalPositiveRate(n uint) float64 {
	return bloomFilter.theoreticalPositiveRate(n)
}

// Snapshot returns a copy of the current bits
func (bloomFilter *MembershipFilter) Snapshot() *bitset.BitSet {
	return bloomFilter.filter.snapshot()
}

// Equals reports whether both filters have the same size, the same k and the
// same bits set. The hashers are not compared.
func (aFilter *MembershipFilter) Equals(bFilter *MembershipFilter) bool {
	if aFilter.logNumBits != bFilter.logNumBits || aFilter.numHashes != bFilter.numHashes {
		return false
	}
	return aFilter.Snapshot().Equal(bFilter.Snapshot())
}
