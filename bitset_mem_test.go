package membloom

import (
	"testing"
)

func TestBitSetMemHas(t *testing.T) {
	bitset := newBitSetMem(128)
	bitset.insert(2)
	bitset.insert(3)
	bitset.insert(64)
	bitset.insert(127)
	for _, index := range []uint64{2, 3, 64, 127} {
		if !bitset.has(index) {
			t.Fatalf("should be true at index %v", index)
		}
	}
	for _, index := range []uint64{0, 1, 4, 63, 65, 126} {
		if bitset.has(index) {
			t.Fatalf("should be false at index %v", index)
		}
	}
}

func TestBitSetMemSingleBit(t *testing.T) {
	bitset := newBitSetMem(1)
	if len(bitset.words) != 1 {
		t.Fatalf("a 1 bit set should use 1 word, got %v", len(bitset.words))
	}
	bitset.insert(0)
	if !bitset.has(0) {
		t.Fatal("should be true at index 0")
	}
}

func TestBitSetMemBitCount(t *testing.T) {
	bitset := newBitSetMem(256)
	bitset.insert(1)
	bitset.insert(1)
	bitset.insert(70)
	bitset.insert(255)
	if count := bitset.bitCount(); count != 3 {
		t.Fatalf("count of set bits should be 3, got %v", count)
	}
}

func TestBitSetMemSnapshot(t *testing.T) {
	bitset := newBitSetMem(16)
	bitset.insert(0)
	bitset.insert(7)
	snap := bitset.snapshot()
	if snap.Len() != 16 {
		t.Fatalf("snapshot length should be 16, got %v", snap.Len())
	}
	if !snap.Test(0) || !snap.Test(7) || snap.Test(8) {
		t.Fatalf("snapshot doesn't match the set bits: %v", snap)
	}
	bitset.insert(8)
	if snap.Test(8) {
		t.Fatal("snapshot should not see inserts made after it was taken")
	}
}
