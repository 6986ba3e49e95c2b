// Package concurrentindex provides two interchangeable concurrent
// associative containers: a coarse/fine-grained extendible hash index
// (package eht) and a split-ordered lock-free hash table (package
// lfht). Both implement Map.
//
// Neither implementation owns the hash function or key ordering used
// to route a key: callers supply a Hasher and a Comparator to every
// constructor. Package-level helpers in hash.go provide production
// hashers grounded on murmur3/xxhash for common key shapes.
package concurrentindex

// Map is the shape shared by every container in this module. Insert
// reports whether a new key was created (false means either an update
// or, for the EHT family, that capacity was exhausted). Remove reports
// whether a key was present. Size is authoritative for LFHT; the EHT
// family also maintains it for parity and debugging.
type Map[K comparable, V any] interface {
	Insert(key K, value V) bool
	Remove(key K) bool
	Get(key K) (V, bool)
	Size() int
}

// Hasher produces a 64-bit hash of a key. It must be pure and safe to
// call concurrently from multiple goroutines.
type Hasher[K any] func(key K) uint64

// Comparator imposes a total order on keys: negative if a < b, zero if
// a == b, positive if a > b.
type Comparator[K any] func(a, b K) int
