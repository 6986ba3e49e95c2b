// Package lfht implements the split-ordered, lock-free hash table
// variant of the associative container: reverse-bit keyed buckets
// addressed through a segment tree, hazard pointers standing in for
// the C++ original's thread-local reclaimer, and Harris-style
// logically-then-physically deleted list nodes. Grounded on
// _examples/original_source/include/lockfree-eht.h, with three source
// bugs documented there (InsertDummyNode and DeleteNode dereferencing
// prev/cur before ever calling SearchNode, and FindNode's degenerate
// double load) deliberately NOT reproduced - every operation here
// searches before it ever touches prev/cur.
package lfht

import (
	"sync"
	"sync/atomic"

	cindex "github.com/chaoszhai/concurrent-index"
)

// loadFactor mirrors lockfree-eht.h's kLoadFactor: once size exceeds
// bucketSize*loadFactor, the table doubles by incrementing
// powerOf2 - growth never moves existing nodes, it just republishes
// more of the split-ordered list as distinct buckets.
const loadFactor = 0.5

// LFHT is the lock-free hash table. K and V must be supplied a Hasher
// and Comparator the same way CoarseEHT/FineEHT require, since
// split-ordering depends on a stable hash and the list traversal
// depends on a total order over keys.
type LFHT[K comparable, V any] struct {
	powerOf2 atomic.Uint64 // bucket count == 1<<powerOf2
	size     atomic.Int64
	hashFn   cindex.Hasher[K]
	cmp      cindex.Comparator[K]

	top  [segmentSize]segmentL1[K, V]
	head *node[K, V]

	hazards    hazardRegistry[K, V]
	reclaimers sync.Pool
}

// New creates a lock-free hash table starting at two buckets
// (powerOf2 = 1); only bucket 0's dummy head exists up front, and
// bucket 1 is initialized on first use.
func New[K comparable, V any](hash cindex.Hasher[K], cmp cindex.Comparator[K]) *LFHT[K, V] {
	t := &LFHT[K, V]{hashFn: hash, cmp: cmp}
	t.powerOf2.Store(1)

	head := newDummyNode[K, V](0)
	slot := ensureBucketSlot(&t.top, 0)
	slot.Store(head)
	t.head = head

	t.reclaimers.New = func() any { return newReclaimer[K, V](&t.hazards) }
	return t
}

func (t *LFHT[K, V]) bucketSize() uint64 { return uint64(1) << t.powerOf2.Load() }

func (t *LFHT[K, V]) borrowReclaimer() *reclaimer[K, V] {
	rc := t.reclaimers.Get().(*reclaimer[K, V])
	rc.reset()
	return rc
}

func (t *LFHT[K, V]) returnReclaimer(rc *reclaimer[K, V]) {
	rc.release()
	t.reclaimers.Put(rc)
}

// getBucketHeadByHash implements LockFreeHashTable::GetBucketHeadByHash.
func (t *LFHT[K, V]) getBucketHeadByHash(rc *reclaimer[K, V], hash uint64) *node[K, V] {
	bucketIndex := hash & (t.bucketSize() - 1)
	head := getBucketHeadByIndex(&t.top, bucketIndex)
	if head == nil {
		head = t.initializeBucket(rc, bucketIndex)
	}
	return head
}

// initializeBucket recursively ensures every ancestor bucket (down to
// the always-present bucket 0) exists before installing this bucket's
// own dummy node, mirroring InitializeBucket.
func (t *LFHT[K, V]) initializeBucket(rc *reclaimer[K, V], bucketIndex uint64) *node[K, V] {
	parentIndex := getBucketParent(bucketIndex)
	parentHead := getBucketHeadByIndex(&t.top, parentIndex)
	if parentHead == nil {
		parentHead = t.initializeBucket(rc, parentIndex)
	}

	slot := ensureBucketSlot(&t.top, bucketIndex)
	head := slot.Load()
	if head != nil {
		return head
	}

	newHead := newDummyNode[K, V](bucketIndex)
	realHead, inserted := t.insertDummyNode(rc, parentHead, newHead)
	if !inserted {
		return realHead
	}
	if slot.CompareAndSwap(nil, newHead) {
		return newHead
	}
	return slot.Load()
}

// insertDummyNode splices a new bucket's sentinel into its parent's
// list at the position its split-order key dictates. Unlike
// InsertDummyNode in lockfree-eht.h (which reads prev->next before any
// call to SearchNode has given prev a value), this always searches
// first.
func (t *LFHT[K, V]) insertDummyNode(rc *reclaimer[K, V], parentHead, newHead *node[K, V]) (realHead *node[K, V], inserted bool) {
	found, prev, cur, prevLink, prevHP, curHP := t.searchNode(rc, parentHead, newHead)
	for {
		if found {
			rc.unmarkHazard(prevHP)
			rc.unmarkHazard(curHP)
			return cur, false
		}

		newHead.link.Store(&linkState[K, V]{next: cur})
		if prev.link.CompareAndSwap(prevLink, &linkState[K, V]{next: newHead, marked: prevLink.marked}) {
			rc.unmarkHazard(prevHP)
			rc.unmarkHazard(curHP)
			return newHead, true
		}

		rc.unmarkHazard(prevHP)
		rc.unmarkHazard(curHP)
		found, prev, cur, prevLink, prevHP, curHP = t.searchNode(rc, parentHead, newHead)
	}
}

// insertRegularNode implements InsertRegularNode: updates the value in
// place on a key collision (returning false), otherwise splices the
// new node in and grows the table if the load factor is exceeded.
func (t *LFHT[K, V]) insertRegularNode(rc *reclaimer[K, V], head *node[K, V], newNode *node[K, V]) bool {
	for {
		found, prev, cur, prevLink, prevHP, curHP := t.searchNode(rc, head, newNode)
		if found {
			cur.value.Store(newNode.value.Load())
			rc.unmarkHazard(prevHP)
			rc.unmarkHazard(curHP)
			return false
		}

		newNode.link.Store(&linkState[K, V]{next: cur})
		ok := prev.link.CompareAndSwap(prevLink, &linkState[K, V]{next: newNode, marked: prevLink.marked})
		rc.unmarkHazard(prevHP)
		rc.unmarkHazard(curHP)
		if ok {
			break
		}
	}

	newSize := t.size.Add(1)
	power := t.powerOf2.Load()
	if float64(uint64(1)<<power)*loadFactor < float64(newSize) {
		t.powerOf2.CompareAndSwap(power, power+1)
	}
	return true
}

// deleteNode implements DeleteNode: logically delete cur by marking
// its link, then attempt the physical unlink. Unlike the original
// (which CAS-loops on cur->next before cur has ever been assigned by a
// search), this always searches first and re-searches whenever it
// finds the target already marked by a racing deleter.
func (t *LFHT[K, V]) deleteNode(rc *reclaimer[K, V], head, target *node[K, V]) bool {
	found, prev, cur, prevLink, prevHP, curHP := t.searchNode(rc, head, target)
	if !found {
		rc.unmarkHazard(prevHP)
		rc.unmarkHazard(curHP)
		return false
	}

	for {
		curLink := cur.rawLink()
		if curLink.marked {
			rc.unmarkHazard(prevHP)
			rc.unmarkHazard(curHP)
			found, prev, cur, prevLink, prevHP, curHP = t.searchNode(rc, head, target)
			if !found {
				rc.unmarkHazard(prevHP)
				rc.unmarkHazard(curHP)
				return false
			}
			continue
		}
		if cur.casLink(curLink, curLink.next, true) {
			break
		}
	}

	if prev.link.CompareAndSwap(prevLink, &linkState[K, V]{next: cur.next(), marked: prevLink.marked}) {
		t.size.Add(-1)
		rc.retireLater(cur)
		rc.reclaimNoHazardPointer()
	} else {
		// Someone else is racing this unlink; a fresh search both helps
		// finish the physical splice and keeps our hazard bookkeeping
		// honest about what we're still protecting.
		_, _, _, _, helpPrevHP, helpCurHP := t.searchNode(rc, head, target)
		rc.unmarkHazard(helpPrevHP)
		rc.unmarkHazard(helpCurHP)
	}
	rc.unmarkHazard(prevHP)
	rc.unmarkHazard(curHP)
	return true
}

// findNode implements FindNode. The original double-loads the value
// pointer to guard against a concurrent update freeing it out from
// under the reader, comparing against an uninitialized local on the
// first iteration; that guard is unneeded here because updating a
// node's value only ever replaces the atomic.Pointer[V], it never
// frees the old *V, so a single Load is race-free.
func (t *LFHT[K, V]) findNode(rc *reclaimer[K, V], head, target *node[K, V]) (V, bool) {
	var zero V
	found, _, cur, _, prevHP, curHP := t.searchNode(rc, head, target)
	defer rc.unmarkHazard(prevHP)
	defer rc.unmarkHazard(curHP)
	if !found {
		return zero, false
	}
	valuePtr := cur.value.Load()
	rc.reclaimNoHazardPointer()
	return *valuePtr, true
}

// searchNode traverses the list from head, physically unlinking any
// logically-deleted node it passes over, until it finds the first node
// greater than or equal to target. Grounded on SearchNode; the
// retry label replaces the original's "try_again: goto" with Go's
// native goto/label support over the same control flow.
//
// The returned prevLink is the exact linkState observed on prev at the
// moment prev.next was last confirmed to be cur. Callers must CAS
// against this object, never against a freshly re-read prev.rawLink():
// re-reading would silently accept any node a concurrent insert spliced
// between prev and cur in the interim, since CompareAndSwap only checks
// the pointer identity of the expected value, not whether prev "still
// looks like cur is next". CASing against the returned prevLink makes
// that splice change the live pointer out from under the expected
// value, so the CAS fails and the caller re-searches instead of
// silently unlinking the concurrently-inserted node.
func (t *LFHT[K, V]) searchNode(rc *reclaimer[K, V], head, target *node[K, V]) (found bool, prev, cur *node[K, V], prevLink *linkState[K, V], prevHP, curHP *hazardSlot[K, V]) {
retry:
	prev = head
	prevLink = prev.rawLink()
	cur = prevLink.next
	if curHP != nil {
		rc.unmarkHazard(curHP)
	}
	if prevHP != nil {
		rc.unmarkHazard(prevHP)
	}
	prevHP, curHP = nil, nil

	for {
		if curHP != nil {
			rc.unmarkHazard(curHP)
		}
		curHP = rc.markHazard(cur)
		if prev.next() != cur {
			goto retry
		}

		if cur == nil {
			return false, prev, cur, prevLink, prevHP, curHP
		}

		curLink := cur.rawLink()
		if curLink.marked {
			if !prev.casLink(prevLink, curLink.next, false) {
				goto retry
			}
			rc.retireLater(cur)
			rc.reclaimNoHazardPointer()
			cur = curLink.next
			prevLink = prev.rawLink()
			continue
		}

		if prev.next() != cur {
			goto retry
		}

		if greaterOrEquals(cur, target, t.cmp) {
			return equals(cur, target, t.cmp), prev, cur, prevLink, prevHP, curHP
		}

		prevHP, curHP = curHP, prevHP
		prev = cur
		prevLink = curLink
		cur = curLink.next
	}
}

// Insert adds key/value, or updates value in place if key is already
// present, returning true only when a brand new entry was created.
func (t *LFHT[K, V]) Insert(key K, value V) bool {
	rc := t.borrowReclaimer()
	defer t.returnReclaimer(rc)

	hash := t.hashFn(key)
	newNode := newRegularNode[K, V](key, value, hash)
	head := t.getBucketHeadByHash(rc, hash)
	return t.insertRegularNode(rc, head, newNode)
}

// Remove deletes key, returning false if it was absent.
func (t *LFHT[K, V]) Remove(key K) bool {
	rc := t.borrowReclaimer()
	defer t.returnReclaimer(rc)

	hash := t.hashFn(key)
	head := t.getBucketHeadByHash(rc, hash)
	var zero V
	target := newRegularNode[K, V](key, zero, hash)
	return t.deleteNode(rc, head, target)
}

// Get returns key's value and whether key was present.
func (t *LFHT[K, V]) Get(key K) (V, bool) {
	rc := t.borrowReclaimer()
	defer t.returnReclaimer(rc)

	hash := t.hashFn(key)
	head := t.getBucketHeadByHash(rc, hash)
	var zero V
	target := newRegularNode[K, V](key, zero, hash)
	return t.findNode(rc, head, target)
}

// Size returns the number of keys currently stored.
func (t *LFHT[K, V]) Size() int { return int(t.size.Load()) }
