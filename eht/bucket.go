// Package eht implements the extendible hash table family: a
// coarse-grained CoarseEHT guarded by a single mutex, and a
// fine-grained FineEHT guarded by per-directory/per-bucket latches.
// Both route Header -> Directory -> Bucket exactly as described by the
// specification, and both are grounded on the directory/bucket algebra
// of github.com/jzhang405/.../extendible_hash.go and the original
// BusTub-derived C++ headers (htable_bucket.h, htable_directory.h).
package eht

import cindex "github.com/chaoszhai/concurrent-index"

// bucket is a fixed-capacity, unordered array of entries. Keys within
// a bucket are unique; removal swaps the removed slot with the last
// live slot so RemoveAt stays O(1). Grounded on HashBucket in
// extendible_hash.go, generalized to the page-style PushBack/Merge
// operations from the original htable_bucket.h. Equality is delegated
// to the caller-supplied Comparator (cmp(a,b)==0), matching the
// original ExtendibleHTableBucketPage::Lookup/Insert/Remove signatures
// rather than Go's native ==, since the Comparator is the collaborator
// the specification names as authoritative for key equality.
type bucket[K comparable, V any] struct {
	keys    []K
	values  []V
	maxSize int
}

func newBucket[K comparable, V any](maxSize int) *bucket[K, V] {
	return &bucket[K, V]{
		keys:    make([]K, 0, maxSize),
		values:  make([]V, 0, maxSize),
		maxSize: maxSize,
	}
}

// init resets the bucket to empty with a (possibly new) capacity, used
// by split when redistributing the surviving half of an entry set.
func (b *bucket[K, V]) init(maxSize int) {
	b.keys = make([]K, 0, maxSize)
	b.values = make([]V, 0, maxSize)
	b.maxSize = maxSize
}

func (b *bucket[K, V]) size() int   { return len(b.keys) }
func (b *bucket[K, V]) isFull() bool { return len(b.keys) >= b.maxSize }
func (b *bucket[K, V]) isEmpty() bool { return len(b.keys) == 0 }

// lookup returns the index of key, or size() (NOT_FOUND) if absent.
func (b *bucket[K, V]) lookup(key K, cmp cindex.Comparator[K]) int {
	for i, k := range b.keys {
		if cmp(k, key) == 0 {
			return i
		}
	}
	return len(b.keys)
}

func (b *bucket[K, V]) valueAt(i int) V { return b.values[i] }
func (b *bucket[K, V]) keyAt(i int) K   { return b.keys[i] }

// insert fails if the bucket is full or key is already present.
func (b *bucket[K, V]) insert(key K, value V, cmp cindex.Comparator[K]) bool {
	if b.isFull() {
		return false
	}
	if b.lookup(key, cmp) != len(b.keys) {
		return false
	}
	b.keys = append(b.keys, key)
	b.values = append(b.values, value)
	return true
}

// pushBack is the unchecked insert used during split redistribution;
// the caller guarantees no duplicate and available capacity.
func (b *bucket[K, V]) pushBack(key K, value V) {
	if b.isFull() {
		return
	}
	b.keys = append(b.keys, key)
	b.values = append(b.values, value)
}

// removeAt swaps index i with the last entry and shrinks by one.
func (b *bucket[K, V]) removeAt(i int) {
	last := len(b.keys) - 1
	if i != last {
		b.keys[i] = b.keys[last]
		b.values[i] = b.values[last]
	}
	b.keys = b.keys[:last]
	b.values = b.values[:last]
}

// merge appends other's entries onto b if they fit, leaving both
// buckets unchanged on failure.
func (b *bucket[K, V]) merge(other *bucket[K, V]) bool {
	if len(b.keys)+len(other.keys) > b.maxSize {
		return false
	}
	b.keys = append(b.keys, other.keys...)
	b.values = append(b.values, other.values...)
	return true
}
