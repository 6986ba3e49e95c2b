package concurrentindex

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/spaolacci/murmur3"
)

// StringHasher returns a Hasher grounded on MurmurHash3 x64 128 (the
// low 64 bits of the sum), matching the HashFn collaborator described
// by the specification. EHT truncates the result to 32 bits itself
// when indexing its directory.
func StringHasher() Hasher[string] {
	return func(key string) uint64 {
		lo, _ := murmur3.Sum128([]byte(key))
		return lo
	}
}

// BytesHasher is StringHasher's counterpart for []byte keys.
func BytesHasher() Hasher[[]byte] {
	return func(key []byte) uint64 {
		lo, _ := murmur3.Sum128(key)
		return lo
	}
}

// Int64Hasher hashes fixed-width integer keys with xxhash, which is
// cheaper than murmur3 for small fixed-size inputs.
func Int64Hasher() Hasher[int64] {
	return func(key int64) uint64 {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(key))
		return xxhash.Sum64(buf[:])
	}
}

// IntHasher adapts Int64Hasher to the platform int type.
func IntHasher() Hasher[int] {
	h := Int64Hasher()
	return func(key int) uint64 {
		return h(int64(key))
	}
}

// IdentityHasher returns the key unchanged as its own hash, for tests
// and scenarios (spec.md S1-S3) that specify an identity hash directly.
func IdentityHasher() Hasher[int] {
	return func(key int) uint64 { return uint64(key) }
}

// IntComparator is the three-way comparator for int keys, grounded on
// the teacher's intComparator used throughout its B+-tree/skip-list
// tests.
func IntComparator(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// StringComparator is the three-way comparator for string keys.
func StringComparator(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
