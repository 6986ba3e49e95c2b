package eht

import (
	"sync"

	cindex "github.com/chaoszhai/concurrent-index"
)

const (
	defaultHeaderMaxDepth    = 9
	defaultDirectoryMaxDepth = 9
	defaultBucketCapacity    = 16
)

// Option configures a CoarseEHT or FineEHT at construction time,
// mirroring the functional-options style of dustinxie/lockfree's
// hashmap.Option.
type Option[K comparable, V any] func(*config[K, V])

type config[K comparable, V any] struct {
	headerMaxDepth    uint32
	directoryMaxDepth uint32
	bucketCapacity    int
	hash              cindex.Hasher[K]
	cmp               cindex.Comparator[K]
}

// WithHeaderMaxDepth overrides the default header fan-out depth (9).
func WithHeaderMaxDepth[K comparable, V any](depth uint32) Option[K, V] {
	return func(c *config[K, V]) { c.headerMaxDepth = depth }
}

// WithDirectoryMaxDepth overrides the default directory max depth (9).
func WithDirectoryMaxDepth[K comparable, V any](depth uint32) Option[K, V] {
	return func(c *config[K, V]) { c.directoryMaxDepth = depth }
}

// WithBucketCapacity overrides the default bucket capacity (16). This
// resolves spec.md's open question in favor of user-configurable
// capacity rather than a page-size-derived formula (see DESIGN.md).
func WithBucketCapacity[K comparable, V any](capacity int) Option[K, V] {
	return func(c *config[K, V]) { c.bucketCapacity = capacity }
}

func newConfig[K comparable, V any](hash cindex.Hasher[K], cmp cindex.Comparator[K], opts []Option[K, V]) *config[K, V] {
	c := &config[K, V]{
		headerMaxDepth:    defaultHeaderMaxDepth,
		directoryMaxDepth: defaultDirectoryMaxDepth,
		bucketCapacity:    defaultBucketCapacity,
		hash:              hash,
		cmp:               cmp,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CoarseEHT is the coarse-grained extendible hash table: a single
// mutex is acquired for the entirety of every public call, matching
// include/coarse-eth.h's CoarseEHT<K,V,KC>. Grounded on
// extendible_hash.go's ExtendibleHash for the struct shape and on
// coarse-eth.h for the split/merge orchestration.
type CoarseEHT[K comparable, V any] struct {
	mu     sync.Mutex
	header *header[K, V]
	cfg    *config[K, V]
	count  int
}

// New creates a coarse-grained extendible hash table. hash and cmp are
// the external collaborators spec.md requires callers to supply.
func New[K comparable, V any](hash cindex.Hasher[K], cmp cindex.Comparator[K], opts ...Option[K, V]) *CoarseEHT[K, V] {
	cfg := newConfig(hash, cmp, opts)
	return &CoarseEHT[K, V]{
		header: newHeader[K, V](cfg.headerMaxDepth),
		cfg:    cfg,
	}
}

func (e *CoarseEHT[K, V]) hash(key K) uint32 {
	return uint32(e.cfg.hash(key))
}

// Insert implements spec.md Section 4.3's Insert algorithm.
func (e *CoarseEHT[K, V]) Insert(key K, value V) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.hash(key)
	dirIdx := e.header.hashToDirectoryIndex(h)
	entry := e.header.getOrCreate(dirIdx, e.cfg.directoryMaxDepth)
	dir := entry.dir

	bucketIdx := dir.hashToBucketIndex(h)
	b := e.bucketAt(entry, bucketIdx)
	if b == nil {
		b = newBucket[K, V](e.cfg.bucketCapacity)
		e.setBucketAt(entry, bucketIdx, b)
	}

	if !b.isFull() {
		if b.insert(key, value, e.cfg.cmp) {
			e.count++
			return true
		}
		return false
	}

	if !e.split(entry, bucketIdx) {
		return false // capacity exhausted at max directory depth
	}
	bucketIdx = dir.hashToBucketIndex(h)
	b = e.bucketAt(entry, bucketIdx)
	if b.lookup(key, e.cfg.cmp) != b.size() {
		return false
	}
	if b.insert(key, value, e.cfg.cmp) {
		e.count++
		return true
	}
	return false
}

// split implements spec.md Section 4.3's split(dir, idx), grounded on
// coarse-eth.h's SplitBucket.
func (e *CoarseEHT[K, V]) split(entry *directoryEntry[K, V], idx uint32) bool {
	dir := entry.dir
	if dir.getLocalDepth(idx) == dir.maxDepth {
		return false
	}
	if dir.getLocalDepth(idx) == dir.globalDepth {
		dir.incrGlobalDepth()
	}

	oldBucket := e.bucketAt(entry, idx)
	newDepth := uint8(dir.getLocalDepth(idx) + 1)
	lowIdx := idx & ((uint32(1) << (newDepth - 1)) - 1)
	newIdx := lowIdx + (uint32(1) << (newDepth - 1))
	splitMask := (uint32(1) << newDepth) - 1

	newBkt := newBucket[K, V](e.cfg.bucketCapacity)
	e.setBucketAt(entry, newIdx, newBkt)
	dir.setLocalDepth(lowIdx, newDepth)
	dir.setLocalDepth(newIdx, newDepth)

	type kv struct {
		k K
		v V
	}
	survivors := make([]kv, 0, oldBucket.size())
	for i := 0; i < oldBucket.size(); i++ {
		k := oldBucket.keyAt(i)
		v := oldBucket.valueAt(i)
		if e.hash(k)&splitMask == lowIdx {
			survivors = append(survivors, kv{k, v})
		} else {
			newBkt.pushBack(k, v)
		}
	}
	oldBucket.init(e.cfg.bucketCapacity)
	for _, e2 := range survivors {
		oldBucket.pushBack(e2.k, e2.v)
	}

	if newBkt.isFull() {
		e.split(entry, newIdx)
	}
	// The old bucket keeps the low image; if every entry stayed there it
	// is still full and needs splitting again.
	if e.bucketAt(entry, lowIdx).isFull() {
		e.split(entry, lowIdx)
	}
	return true
}

// Remove implements spec.md Section 4.3's Remove.
func (e *CoarseEHT[K, V]) Remove(key K) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	h := e.hash(key)
	dirIdx := e.header.hashToDirectoryIndex(h)
	entry := e.header.get(dirIdx)
	if entry == nil {
		return false
	}
	dir := entry.dir
	bucketIdx := dir.hashToBucketIndex(h)
	b := e.bucketAt(entry, bucketIdx)
	if b == nil {
		return false
	}
	valueIdx := b.lookup(key, e.cfg.cmp)
	if valueIdx == b.size() {
		return false
	}
	b.removeAt(valueIdx)
	e.count--
	if b.isEmpty() {
		e.merge(entry, bucketIdx)
	}
	return true
}

// merge implements spec.md Section 4.3's merge(dir, idx), grounded on
// coarse-eth.h's MergeBucket.
func (e *CoarseEHT[K, V]) merge(entry *directoryEntry[K, V], idx uint32) {
	dir := entry.dir
	localDepth := dir.getLocalDepth(idx)
	if localDepth == 0 {
		return
	}

	low := idx & ((uint32(1) << (localDepth - 1)) - 1)
	high := low + (uint32(1) << (localDepth - 1))
	if dir.getLocalDepth(low) != dir.getLocalDepth(high) {
		return
	}

	lowBucket := e.bucketAt(entry, low)
	highBucket := e.bucketAt(entry, high)
	if lowBucket == nil || highBucket == nil {
		return
	}
	lowBucket.merge(highBucket)

	dir.decrLocalDepth(low)
	dir.decrLocalDepth(high)
	e.clearBucketAt(entry, high)
	dir.setBucketRef(high, dir.getBucketRef(low))
	dir.setLocalDepth(low, uint8(localDepth-1))

	if localDepth == dir.globalDepth {
		dir.decrGlobalDepth()
	}
	if dir.globalDepth == 0 {
		return
	}
	if lowBucket.isEmpty() {
		e.merge(entry, low)
	}
}

// Get implements spec.md Section 4.3's Get.
func (e *CoarseEHT[K, V]) Get(key K) (V, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero V
	h := e.hash(key)
	dirIdx := e.header.hashToDirectoryIndex(h)
	entry := e.header.get(dirIdx)
	if entry == nil {
		return zero, false
	}
	dir := entry.dir
	bucketIdx := dir.hashToBucketIndex(h)
	b := e.bucketAt(entry, bucketIdx)
	if b == nil {
		return zero, false
	}
	valueIdx := b.lookup(key, e.cfg.cmp)
	if valueIdx == b.size() {
		return zero, false
	}
	return b.valueAt(valueIdx), true
}

// Size returns the number of keys currently stored.
func (e *CoarseEHT[K, V]) Size() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// GlobalDepth returns the global depth of the directory a key's hash
// currently routes to, 0 if that directory does not exist yet. Useful
// for tests asserting spec.md's S2/S3 scenarios.
func (e *CoarseEHT[K, V]) GlobalDepth(key K) uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	h := e.hash(key)
	entry := e.header.get(e.header.hashToDirectoryIndex(h))
	if entry == nil {
		return 0
	}
	return entry.dir.globalDepth
}

func (e *CoarseEHT[K, V]) bucketAt(entry *directoryEntry[K, V], idx uint32) *bucket[K, V] {
	ref := entry.dir.getBucketRef(idx)
	if ref == noBucket {
		return nil
	}
	return entry.buckets[ref]
}

// setBucketAt only ever assigns idx's own slot; propagating the
// reference to idx's sibling indices is the caller's job via an
// explicit setLocalDepth once idx's final depth is known (see split),
// since at bucket-creation time idx's local depth may still be stale.
func (e *CoarseEHT[K, V]) setBucketAt(entry *directoryEntry[K, V], idx uint32, b *bucket[K, V]) {
	entry.buckets = append(entry.buckets, b)
	entry.dir.setBucketRef(idx, int32(len(entry.buckets)-1))
}

func (e *CoarseEHT[K, V]) clearBucketAt(entry *directoryEntry[K, V], idx uint32) {
	entry.dir.setBucketRef(idx, noBucket)
}
