package membloom

import (
	"context"
	"testing"
)

func TestBitSetRedisHas(t *testing.T) {
	_, client := initMockRedis(t)
	ctx := context.Background()
	bitset := newBitSetRedis(client, "bits", 16)
	if err := bitset.insertMulti(ctx, []uint64{1, 3, 7}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	result, err := bitset.hasMulti(ctx, []uint64{1, 3, 4, 7, 15})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []bool{true, true, false, true, false}
	for i := range want {
		if result[i] != want[i] {
			t.Fatalf("index %v: should be %v, got %v", i, want[i], result[i])
		}
	}
}

func TestBitSetRedisEmptyIndexes(t *testing.T) {
	mr, client := initMockRedis(t)
	ctx := context.Background()
	bitset := newBitSetRedis(client, "bits", 16)
	if err := bitset.insertMulti(ctx, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result, err := bitset.hasMulti(ctx, nil); err != nil || result != nil {
		t.Fatalf("should return nothing, got %v, %v", result, err)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("no key should be written, got %v", mr.Keys())
	}
}

func TestBitSetRedisBitCount(t *testing.T) {
	_, client := initMockRedis(t)
	ctx := context.Background()
	bitset := newBitSetRedis(client, "bits", 128)
	_ = bitset.insertMulti(ctx, []uint64{0, 1, 64, 65, 65})
	setBits, err := bitset.bitCount(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if setBits != 4 {
		t.Fatalf("count of set bits should be 4, got %v", setBits)
	}
}

func TestBitSetRedisSnapshot(t *testing.T) {
	mr, client := initMockRedis(t)
	ctx := context.Background()
	bitset := newBitSetRedis(client, "bits", 128)
	_ = bitset.insertMulti(ctx, []uint64{1, 5, 8, 70})
	val, _ := mr.Get("bits")
	if val[0] != 0x44 || val[1] != 0x80 {
		t.Fatalf("redis should store bits MSB first, got % x", val)
	}
	snap, err := bitset.snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Len() != 128 {
		t.Fatalf("snapshot length should be 128, got %v", snap.Len())
	}
	for _, index := range []uint{1, 5, 8, 70} {
		if !snap.Test(index) {
			t.Fatalf("should be true at index %v", index)
		}
	}
	if snap.Count() != 4 {
		t.Fatalf("snapshot should have 4 bits set, got %v", snap.Count())
	}
}
