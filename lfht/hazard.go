package lfht

import "sync/atomic"

// hazardSlot is one entry of a table's hazard pointer list, grounded
// on lib/hazardPointer/internalHazardPointer.h's InternalHazardPointer:
// claimed tracks whether some in-flight call currently owns the slot
// (the C++ atomic_flag), ptr tracks what that call is protecting right
// now (nil means "not protecting anything").
type hazardSlot[K comparable, V any] struct {
	claimed atomic.Bool
	ptr     atomic.Pointer[node[K, V]]
	next    atomic.Pointer[hazardSlot[K, V]]
}

// hazardRegistry is the intrusive lock-free list of every hazard slot
// a table has ever allocated, grounded on
// lib/hazardPointer/internalHazardPointer.h's HazardPointerList. The
// original scopes one list per <K,V> template instantiation, shared by
// every LockFreeHashTable<K,V> in the process; Go has no template
// statics, so this scopes one registry per *LFHT[K,V] instance
// instead, which is strictly finer-grained and still correct since
// slots are never compared across tables.
type hazardRegistry[K comparable, V any] struct {
	head atomic.Pointer[hazardSlot[K, V]]
	size atomic.Int32
}

// claim finds an unclaimed slot or allocates a fresh one, mirroring
// Reclaimer::TryAcquireHazardPointer's scan-then-allocate-and-CAS
// pattern.
func (r *hazardRegistry[K, V]) claim() *hazardSlot[K, V] {
	for p := r.head.Load(); p != nil; p = p.next.Load() {
		if p.claimed.CompareAndSwap(false, true) {
			return p
		}
	}

	fresh := &hazardSlot[K, V]{}
	fresh.claimed.Store(true)
	r.size.Add(1)
	for {
		old := r.head.Load()
		fresh.next.Store(old)
		if r.head.CompareAndSwap(old, fresh) {
			return fresh
		}
	}
}

// unclaim hands a slot back for reuse by a future call, matching the
// "hand over the hazard pointer" half of Reclaimer's destructor.
func (r *hazardRegistry[K, V]) unclaim(slot *hazardSlot[K, V]) {
	slot.ptr.Store(nil)
	slot.claimed.Store(false)
}

// isHazard reports whether ptr is currently protected by any slot in
// the registry, mirroring Reclaimer::Hazard.
func (r *hazardRegistry[K, V]) isHazard(ptr *node[K, V]) bool {
	for p := r.head.Load(); p != nil; p = p.next.Load() {
		if p.ptr.Load() == ptr {
			return true
		}
	}
	return false
}

func (r *hazardRegistry[K, V]) count() int32 { return r.size.Load() }
