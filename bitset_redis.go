package membloom

import (
	"context"
	"encoding/binary"
	"errors"

	"github.com/bits-and-blooms/bitset"
	"github.com/kwertop/membloom/internal/util"
	"github.com/redis/go-redis/v9"
)

// bitSetRedis is a bit array stored as a Redis string at _key_.
// Redis grows the string on SETBIT, so bits past its end read as 0 and no
// preallocation is needed. SETBIT and GETBIT are atomic on the server.
// For more details, please refer https://redis.io/docs/data-types/bitmaps/
type bitSetRedis struct {
	client redis.UniversalClient
	key    string
	size   uint64
}

func newBitSetRedis(client redis.UniversalClient, key string, size uint64) *bitSetRedis {
	return &bitSetRedis{client: client, key: key, size: size}
}

// insertMulti sets the bits at _indexes_ in one pipeline round trip
func (bitSet *bitSetRedis) insertMulti(ctx context.Context, indexes []uint64) error {
	if len(indexes) == 0 {
		return nil
	}
	pipe := bitSet.client.Pipeline()
	for _, index := range indexes {
		pipe.SetBit(ctx, bitSet.key, int64(index), 1)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// hasMulti reads the bits at _indexes_ in one pipeline round trip
func (bitSet *bitSetRedis) hasMulti(ctx context.Context, indexes []uint64) ([]bool, error) {
	if len(indexes) == 0 {
		return nil, nil
	}
	pipe := bitSet.client.Pipeline()
	values := make([]*redis.IntCmd, len(indexes))
	for i, index := range indexes {
		values[i] = pipe.GetBit(ctx, bitSet.key, int64(index))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	result := make([]bool, len(values))
	for i := range values {
		result[i] = values[i].Val() != 0
	}
	return result, nil
}

func (bitSet *bitSetRedis) bitCount(ctx context.Context) (uint, error) {
	bitRange := &redis.BitCount{Start: 0, End: -1}
	val, err := bitSet.client.BitCount(ctx, bitSet.key, bitRange).Result()
	if err != nil {
		return 0, err
	}
	return uint(val), nil
}

// snapshot reads the whole string and converts it to a BitSet of length size
func (bitSet *bitSetRedis) snapshot(ctx context.Context) (*bitset.BitSet, error) {
	val, err := bitSet.client.Get(ctx, bitSet.key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	words := make([]uint64, (bitSet.size+wordSize-1)/wordSize)
	buf := make([]byte, len(words)*wordBytes)
	for i := 0; i < len(val) && i < len(buf); i++ {
		buf[i] = util.ReverseByte(val[i])
	}
	for i := range words {
		words[i] = binary.LittleEndian.Uint64(buf[i*wordBytes:])
	}
	return bitset.FromWithLength(uint(bitSet.size), words), nil
}
