// Package util holds the sizing math and small helpers shared by the filters.
package util

import (
	"cmp"
	"math"
	"math/bits"
	"math/rand"
	"sync"
	"time"
)

const letterBytes = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
const (
	letterIdxBits = 6                    // 6 bits to represent a letter index
	letterIdxMask = 1<<letterIdxBits - 1 // All 1-bits, as many as letterIdxBits
	letterIdxMax  = 63 / letterIdxBits   // # of letter indices fitting in 63 bits
)

var (
	srcMu sync.Mutex
	src   = rand.NewSource(time.Now().UnixNano())
)

// Max returns the larger of a and b
func Max[T cmp.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// CalculateFilterSize returns the optimal number of bits for _length_ items
// at the false positive rate _errorRate_: m = -n*ln(p) / ln(2)^2
func CalculateFilterSize(length uint, errorRate float64) uint64 {
	return uint64(math.Ceil(-((float64(length) * math.Log(errorRate)) / (math.Ln2 * math.Ln2))))
}

// CalculateNumHashes returns the optimal number of hash slots for a filter of
// _size_ bits holding _length_ items: k = (m/n) * ln(2)
func CalculateNumHashes(size uint64, length uint) int {
	return Max(int(math.Ceil(float64(size)/float64(length)*math.Ln2)), 1)
}

// NextLog2 returns the smallest l such that 1<<l >= n. NextLog2(0) is 0.
func NextLog2(n uint64) int {
	if n <= 1 {
		return 0
	}
	return bits.Len64(n - 1)
}

// ReverseByte flips the bit order of b. Redis numbers bits from the most
// significant end of each byte, the in-memory words from the least.
func ReverseByte(b byte) byte {
	return bits.Reverse8(b)
}

// GenerateRandomString returns n random ASCII letters
func GenerateRandomString(n int) string {
	srcMu.Lock()
	defer srcMu.Unlock()
	b := make([]byte, n)
	// A src.Int63() generates 63 random bits, enough for letterIdxMax characters!
	for i, cache, remain := n-1, src.Int63(), letterIdxMax; i >= 0; {
		if remain == 0 {
			cache, remain = src.Int63(), letterIdxMax
		}
		if idx := int(cache & letterIdxMask); idx < len(letterBytes) {
			b[i] = letterBytes[idx]
			i--
		}
		cache >>= letterIdxBits
		remain--
	}
	return string(b)
}
