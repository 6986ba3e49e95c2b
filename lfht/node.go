package lfht

import "sync/atomic"

// nodeKind replaces the C++ Node/DummyNode/RegularNode virtual
// hierarchy (lockfree_helpers/node.h) with a tagged struct, since Go
// generics have no runtime polymorphism over type parameters and a
// single concrete type avoids an interface-dispatch allocation on
// every traversal step.
type nodeKind uint8

const (
	dummyNodeKind nodeKind = iota
	regularNodeKind
)

// linkState is the Go-safe replacement for the C++ design's
// pointer-tagging trick (is_marked_reference/get_marked_reference,
// which steals the low bit of a raw Node*). Go's garbage collector
// requires every live pointer value to point at (or just past) a real
// allocation, so a tagged pointer is not a legal Go value. Instead
// every mutation of a node's successor link allocates a fresh
// immutable linkState and swaps it in with a single CAS on
// atomic.Pointer[linkState[K,V]], preserving the same
// logical-then-physical deletion protocol: a node is logically
// deleted the instant its link is replaced with marked=true, and
// physically unlinked when a subsequent CAS splices it out of its
// predecessor.
type linkState[K comparable, V any] struct {
	next   *node[K, V]
	marked bool
}

// node is the unified representation of both dummy (bucket sentinel)
// and regular (data) nodes, grounded on lockfree_helpers/node.h's
// Node/DummyNode/RegularNode<K,V,Hash>.
type node[K comparable, V any] struct {
	kind        nodeKind
	hash        uint64 // bucket index for a dummy node, hash_func(key) for regular
	reverseHash uint64 // split-order key used for list ordering
	key         K
	value       atomic.Pointer[V]
	link        atomic.Pointer[linkState[K, V]]
}

func newDummyNode[K comparable, V any](bucketIndex uint64) *node[K, V] {
	n := &node[K, V]{
		kind:        dummyNodeKind,
		hash:        bucketIndex,
		reverseHash: dummyKey(bucketIndex),
	}
	n.link.Store(&linkState[K, V]{})
	return n
}

func newRegularNode[K comparable, V any](key K, value V, hash uint64) *node[K, V] {
	n := &node[K, V]{
		kind:        regularNodeKind,
		hash:        hash,
		reverseHash: regularKey(hash),
		key:         key,
	}
	n.value.Store(&value)
	n.link.Store(&linkState[K, V]{})
	return n
}

func (n *node[K, V]) isDummy() bool { return n.kind == dummyNodeKind }

// loadLink returns the current successor and whether n is logically
// deleted.
func (n *node[K, V]) loadLink() (next *node[K, V], marked bool) {
	ls := n.link.Load()
	return ls.next, ls.marked
}

// next returns only the successor pointer, mirroring Node::get_next().
func (n *node[K, V]) next() *node[K, V] {
	next, _ := n.loadLink()
	return next
}

// casLink atomically replaces n's link from (oldNext, oldMarked) to
// (newNext, newMarked), failing if n's link has changed since the
// caller observed oldState.
func (n *node[K, V]) casLink(oldState *linkState[K, V], newNext *node[K, V], newMarked bool) bool {
	return n.link.CompareAndSwap(oldState, &linkState[K, V]{next: newNext, marked: newMarked})
}

func (n *node[K, V]) rawLink() *linkState[K, V] { return n.link.Load() }

// less orders two nodes by (reverseHash, key); dummy nodes are never
// compared by key: a dummy/regular pair never shares a reverseHash
// (the low bit differs), and two dummy nodes share one only when they
// stand for the same bucket index, as while a bucket is being
// initialized concurrently (mirrors node.h's Less).
func less[K comparable, V any](a, b *node[K, V], cmp func(x, y K) int) bool {
	if a.reverseHash != b.reverseHash {
		return a.reverseHash < b.reverseHash
	}
	if a.isDummy() || b.isDummy() {
		return false
	}
	return cmp(a.key, b.key) < 0
}

func greaterOrEquals[K comparable, V any](a, b *node[K, V], cmp func(x, y K) int) bool {
	return !less(a, b, cmp)
}

func equals[K comparable, V any](a, b *node[K, V], cmp func(x, y K) int) bool {
	return !less(a, b, cmp) && !less(b, a, cmp)
}
