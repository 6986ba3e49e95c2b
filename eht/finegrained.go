package eht

import (
	"sync"
	"sync/atomic"

	cindex "github.com/chaoszhai/concurrent-index"
)

// FineEHT is the fine-grained extendible hash table: a top-level
// RWMutex guards header growth, a per-directory RWMutex guards
// directory splits/merges, and a per-directory Mutex guards the
// contents of all of that directory's buckets; individual buckets
// carry no lock of their own. Readers descend holding only read locks
// until they reach the directory's bucket mutex, matching the top-down latch-crabbing pattern
// of brown-csci1270-2021-db's pkg/hash/table.go ([CONCURRENCY]
// comments there document RLock-then-RLock descent; this port adds a
// third level because buckets here are plain slices rather than
// pager-backed pages).
type FineEHT[K comparable, V any] struct {
	headerLock sync.RWMutex
	header     *header[K, V]
	dirLocks   []*sync.RWMutex
	bktLocks   []*sync.Mutex
	cfg        *config[K, V]

	count atomic.Int64
}

func (e *FineEHT[K, V]) incrCount(delta int64) { e.count.Add(delta) }
func (e *FineEHT[K, V]) loadCount() int64      { return e.count.Load() }

// NewFine creates a fine-grained extendible hash table.
func NewFine[K comparable, V any](hash cindex.Hasher[K], cmp cindex.Comparator[K], opts ...Option[K, V]) *FineEHT[K, V] {
	cfg := newConfig(hash, cmp, opts)
	n := uint32(1) << cfg.headerMaxDepth
	e := &FineEHT[K, V]{
		header:   newHeader[K, V](cfg.headerMaxDepth),
		dirLocks: make([]*sync.RWMutex, n),
		bktLocks: make([]*sync.Mutex, n),
		cfg:      cfg,
	}
	for i := range e.dirLocks {
		e.dirLocks[i] = &sync.RWMutex{}
		e.bktLocks[i] = &sync.Mutex{}
	}
	return e
}

func (e *FineEHT[K, V]) hash(key K) uint32 { return uint32(e.cfg.hash(key)) }

// entryFor returns the directory entry for dirIdx, read-locking the
// header. createIfMissing additionally upgrades to a write lock to
// allocate a fresh directory the first time dirIdx is touched, exactly
// the escalate-on-miss crabbing pattern pkg/hash/table.go uses when a
// page needs to be faulted in.
func (e *FineEHT[K, V]) entryFor(dirIdx uint32, createIfMissing bool) *directoryEntry[K, V] {
	e.headerLock.RLock()
	entry := e.header.get(dirIdx)
	e.headerLock.RUnlock()
	if entry != nil || !createIfMissing {
		return entry
	}

	e.headerLock.Lock()
	defer e.headerLock.Unlock()
	return e.header.getOrCreate(dirIdx, e.cfg.directoryMaxDepth)
}

// Insert descends header (read) -> directory (write) -> bucket (lock),
// matching spec.md Section 4.3 with fine-grained latches per Section
// 4.3b.
func (e *FineEHT[K, V]) Insert(key K, value V) bool {
	h := e.hash(key)
	dirIdx := e.header.hashToDirectoryIndex(h)
	entry := e.entryFor(dirIdx, true)

	dirLock := e.dirLocks[dirIdx]
	dirLock.Lock()
	defer dirLock.Unlock()

	dir := entry.dir
	bucketIdx := dir.hashToBucketIndex(h)
	b := e.bucketAt(entry, bucketIdx)
	if b == nil {
		b = newBucket[K, V](e.cfg.bucketCapacity)
		e.setBucketAt(entry, bucketIdx, b)
	}

	bktLock := e.bktLocks[dirIdx]
	bktLock.Lock()
	defer bktLock.Unlock()

	if !b.isFull() {
		if b.insert(key, value, e.cfg.cmp) {
			e.incrCount(1)
			return true
		}
		return false
	}

	if !e.split(entry, bucketIdx) {
		return false
	}
	bucketIdx = dir.hashToBucketIndex(h)
	b = e.bucketAt(entry, bucketIdx)
	if b.insert(key, value, e.cfg.cmp) {
		e.incrCount(1)
		return true
	}
	return false
}

// split mirrors CoarseEHT.split; called only while the caller already
// holds the directory's write lock.
func (e *FineEHT[K, V]) split(entry *directoryEntry[K, V], idx uint32) bool {
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
	if e.bucketAt(entry, lowIdx).isFull() {
		e.split(entry, lowIdx)
	}
	return true
}

// Remove descends the same path as Insert; absence of the key under
// the write lock is a normal, lock-free-of-retries outcome.
func (e *FineEHT[K, V]) Remove(key K) bool {
	h := e.hash(key)
	dirIdx := e.header.hashToDirectoryIndex(h)
	entry := e.entryFor(dirIdx, false)
	if entry == nil {
		return false
	}

	dirLock := e.dirLocks[dirIdx]
	dirLock.Lock()
	defer dirLock.Unlock()

	dir := entry.dir
	bucketIdx := dir.hashToBucketIndex(h)
	b := e.bucketAt(entry, bucketIdx)
	if b == nil {
		return false
	}

	bktLock := e.bktLocks[dirIdx]
	bktLock.Lock()
	defer bktLock.Unlock()

	valueIdx := b.lookup(key, e.cfg.cmp)
	if valueIdx == b.size() {
		return false
	}
	b.removeAt(valueIdx)
	e.incrCount(-1)
	if b.isEmpty() {
		e.merge(entry, bucketIdx)
	}
	return true
}

func (e *FineEHT[K, V]) merge(entry *directoryEntry[K, V], idx uint32) {
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

// Get takes read locks on the header and directory, then the
// directory's exclusive bucket mutex (buckets have no separate read/write distinction
// since entries are plain slices, matching the bucket granularity of
// htable_bucket.h).
func (e *FineEHT[K, V]) Get(key K) (V, bool) {
	var zero V
	h := e.hash(key)
	dirIdx := e.header.hashToDirectoryIndex(h)
	entry := e.entryFor(dirIdx, false)
	if entry == nil {
		return zero, false
	}

	dirLock := e.dirLocks[dirIdx]
	dirLock.RLock()
	defer dirLock.RUnlock()

	dir := entry.dir
	bucketIdx := dir.hashToBucketIndex(h)
	b := e.bucketAt(entry, bucketIdx)
	if b == nil {
		return zero, false
	}

	bktLock := e.bktLocks[dirIdx]
	bktLock.Lock()
	defer bktLock.Unlock()

	valueIdx := b.lookup(key, e.cfg.cmp)
	if valueIdx == b.size() {
		return zero, false
	}
	return b.valueAt(valueIdx), true
}

func (e *FineEHT[K, V]) Size() int {
	return int(e.loadCount())
}

func (e *FineEHT[K, V]) bucketAt(entry *directoryEntry[K, V], idx uint32) *bucket[K, V] {
	ref := entry.dir.getBucketRef(idx)
	if ref == noBucket {
		return nil
	}
	return entry.buckets[ref]
}

func (e *FineEHT[K, V]) setBucketAt(entry *directoryEntry[K, V], idx uint32, b *bucket[K, V]) {
	entry.buckets = append(entry.buckets, b)
	entry.dir.setBucketRef(idx, int32(len(entry.buckets)-1))
}

func (e *FineEHT[K, V]) clearBucketAt(entry *directoryEntry[K, V], idx uint32) {
	entry.dir.setBucketRef(idx, noBucket)
}
