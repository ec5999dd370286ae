package membloom

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bits-and-blooms/bitset"
	"github.com/kwertop/membloom/internal/util"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrParameterMismatch is returned when joining a Redis filter whose
	// recorded logNumBits or k differ from the requested ones.
	ErrParameterMismatch = errors.New("membloom: filter parameters don't match")

	// ErrFilterNotFound is returned when no filter metadata exists at a key
	ErrFilterNotFound = errors.New("membloom: filter not found")
)

const (
	metadataSuffix   = ":meta"
	fieldLogNumBits  = "logNumBits"
	fieldNumHashes   = "k"
	generatedKeySize = 16
)

// RedisFilter is a membership filter whose bits live in a Redis string, so
// that every process pointing at the same key shares one filter.
// Index derivation is the same as MembershipFilter's: with the same
// parameters, hasher and adds, both set exactly the same bits.
// All processes sharing a key must use the same Hasher.
type RedisFilter struct {
	indexer
	filter      *bitSetRedis
	metadataKey string
}

// NewRedisFilter creates, or joins, the filter stored at _key_.
// _logNumBits_ and _k_ are validated as in New and recorded in a metadata hash
// at key+":meta". If the key already holds a filter with other parameters,
// ErrParameterMismatch is returned. A blank _key_ is replaced by a random one,
// available from Key().
func NewRedisFilter(ctx context.Context, client redis.UniversalClient, key string, logNumBits, k int, opts ...Option) (*RedisFilter, error) {
	o := applyOptions(opts)
	ix, err := newIndexer(logNumBits, k, o.hasher)
	if err != nil {
		return nil, err
	}
	if key == "" {
		key = util.GenerateRandomString(generatedKeySize)
	}
	metadataKey := key + metadataSuffix

	var metadata *redis.MapStringStringCmd
	_, err = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, metadataKey, fieldLogNumBits, logNumBits)
		pipe.HSetNX(ctx, metadataKey, fieldNumHashes, k)
		metadata = pipe.HGetAll(ctx, metadataKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("membloom: error while creating redis filter at %v: %w", key, err)
	}
	stored, err := parseMetadata(metadata.Val())
	if err != nil {
		return nil, fmt.Errorf("membloom: invalid metadata at %v: %w", metadataKey, err)
	}
	if stored.logNumBits != logNumBits || stored.numHashes != k {
		return nil, fmt.Errorf("%w: %v holds logNumBits=%v k=%v, requested logNumBits=%v k=%v",
			ErrParameterMismatch, key, stored.logNumBits, stored.numHashes, logNumBits, k)
	}

	o.logger.Debug("redis membership filter created",
		"key", key,
		"logNumBits", ix.logNumBits,
		"numBits", ix.numBits,
		"k", ix.numHashes)
	return &RedisFilter{
		indexer:     ix,
		filter:      newBitSetRedis(client, key, ix.numBits),
		metadataKey: metadataKey,
	}, nil
}

// NewRedisFilterFromKey opens the filter stored at _key_ using the parameters
// recorded when it was created
func NewRedisFilterFromKey(ctx context.Context, client redis.UniversalClient, key string, opts ...Option) (*RedisFilter, error) {
	metadataKey := key + metadataSuffix
	values, err := client.HGetAll(ctx, metadataKey).Result()
	if err != nil {
		return nil, fmt.Errorf("membloom: error while fetching hash from redis: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %v", ErrFilterNotFound, key)
	}
	stored, err := parseMetadata(values)
	if err != nil {
		return nil, fmt.Errorf("membloom: invalid metadata at %v: %w", metadataKey, err)
	}
	return NewRedisFilter(ctx, client, key, stored.logNumBits, stored.numHashes, opts...)
}

type filterMetadata struct {
	logNumBits int
	numHashes  int
}

func parseMetadata(values map[string]string) (filterMetadata, error) {
	logNumBits, err := strconv.Atoi(values[fieldLogNumBits])
	if err != nil {
		return filterMetadata{}, err
	}
	numHashes, err := strconv.Atoi(values[fieldNumHashes])
	if err != nil {
		return filterMetadata{}, err
	}
	return filterMetadata{logNumBits: logNumBits, numHashes: numHashes}, nil
}

// Add records _element_ in the filter
func (bloomFilter *RedisFilter) Add(ctx context.Context, element []byte) error {
	if err := bloomFilter.filter.insertMulti(ctx, bloomFilter.indexes(element)); err != nil {
		return fmt.Errorf("membloom: error while adding to %v: %w", bloomFilter.Key(), err)
	}
	return nil
}

// AddMulti records all _elements_ in a single round trip
func (bloomFilter *RedisFilter) AddMulti(ctx context.Context, elements [][]byte) error {
	indexes := make([]uint64, 0, len(elements)*bloomFilter.numHashes)
	for _, element := range elements {
		indexes = append(indexes, bloomFilter.indexes(element)...)
	}
	if err := bloomFilter.filter.insertMulti(ctx, indexes); err != nil {
		return fmt.Errorf("membloom: error while adding to %v: %w", bloomFilter.Key(), err)
	}
	return nil
}

// Check returns false if _element_ was definitely never added and true if it
// probably was. A non-nil error means Redis could not be read.
func (bloomFilter *RedisFilter) Check(ctx context.Context, element []byte) (bool, error) {
	result, err := bloomFilter.filter.hasMulti(ctx, bloomFilter.indexes(element))
	if err != nil {
		return false, fmt.Errorf("membloom: error while checking %v: %w", bloomFilter.Key(), err)
	}
	for _, ok := range result {
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// AddString adds the UTF-8 bytes of _element_
func (bloomFilter *RedisFilter) AddString(ctx context.Context, element string) error {
	return bloomFilter.Add(ctx, []byte(element))
}

// CheckString checks the UTF-8 bytes of _element_
func (bloomFilter *RedisFilter) CheckString(ctx context.Context, element string) (bool, error) {
	return bloomFilter.Check(ctx, []byte(element))
}

// Key returns the Redis key holding the bits
func (bloomFilter *RedisFilter) Key() string {
	return bloomFilter.filter.key
}

// MetadataKey returns the Redis key of the hash recording the parameters
func (bloomFilter *RedisFilter) MetadataKey() string {
	return bloomFilter.metadataKey
}

// LogNumBits returns log2 of the number of bits
func (bloomFilter *RedisFilter) LogNumBits() int {
	return bloomFilter.logNumBits
}

// NumBits returns the number of bits in the filter
func (bloomFilter *RedisFilter) NumBits() uint64 {
	return bloomFilter.numBits
}

// NumHashes returns k, the number of hash slots evaluated per element
func (bloomFilter *RedisFilter) NumHashes() int {
	return bloomFilter.numHashes
}

// BitCount returns the number of set bits
func (bloomFilter *RedisFilter) BitCount(ctx context.Context) (uint, error) {
	count, err := bloomFilter.filter.bitCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("membloom: error while counting bits of %v: %w", bloomFilter.Key(), err)
	}
	return count, nil
}

// EstimatedPositiveRate returns the probability that an element never added
// is reported present, given the bits currently set
func (bloomFilter *RedisFilter) EstimatedPositiveRate(ctx context.Context) (float64, error) {
	count, err := bloomFilter.BitCount(ctx)
	if err != nil {
		return 0, err
	}
	return bloomFilter.estimatedPositiveRate(count), nil
}

// TheoreticalPositiveRate returns the expected false positive rate after _n_
// distinct elements have been added
func (bloomFilter *RedisFilter) TheoreticalPositiveRate(n uint) float64 {
	return bloomFilter.theoreticalPositiveRate(n)
}

// Snapshot reads the current bits from Redis. Bit i of the result is Redis
// bit offset i.
func (bloomFilter *RedisFilter) Snapshot(ctx context.Context) (*bitset.BitSet, error) {
	snap, err := bloomFilter.filter.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("membloom: error while reading %v: %w", bloomFilter.Key(), err)
	}
	return snap, nil
}
