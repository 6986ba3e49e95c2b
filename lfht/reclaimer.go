package lfht

// maxRetiredPerSlot mirrors Reclaimer::maxNodes: the retire list is
// only worth scanning once it has grown past a small multiple of the
// registry's slot count.
const maxRetiredPerSlot = 4

// reclaimer is the per-call counterpart of Reclaimer
// (lib/hazardPointer/reclaimer.h/.cpp). The C++ version is
// thread-local and lives for the lifetime of the owning thread; Go
// has no goroutine-local storage or goroutine-exit hook to drain it
// on, so *LFHT[K,V] instead keeps a sync.Pool of reclaimers and every
// public call borrows one for its duration (Pool.Get grants exclusive
// ownership until Put, which is exactly the single-owner invariant
// the retire bookkeeping needs - real thread affinity was never the
// point, exclusive use was).
//
// Because Go is garbage collected, "reclaiming" a node never means
// freeing memory by hand: it means dropping the last reference this
// package holds to it once no hazard slot protects it, so the
// collector is free to reclaim it whenever it next runs. The
// bookkeeping protocol (mark, retire, scan against the hazard list)
// is preserved faithfully even though, unlike the C++ original, a bug
// here would leak memory rather than corrupt it.
type reclaimer[K comparable, V any] struct {
	registry *hazardRegistry[K, V]
	acquired []*hazardSlot[K, V]
	retired  []*node[K, V]
}

func newReclaimer[K comparable, V any](registry *hazardRegistry[K, V]) *reclaimer[K, V] {
	return &reclaimer[K, V]{registry: registry}
}

// reset clears per-call state before a reclaimer is reused from the
// pool; acquired slots were already handed back by release at the end
// of the previous call.
func (r *reclaimer[K, V]) reset() {
	r.acquired = r.acquired[:0]
	r.retired = r.retired[:0]
}

// markHazard protects n against reclamation until the returned slot is
// unmarked, mirroring Reclaimer::MarkHazard: reuse one of this call's
// already-claimed slots if it's currently idle, otherwise claim a new
// one from the registry.
func (r *reclaimer[K, V]) markHazard(n *node[K, V]) *hazardSlot[K, V] {
	if n == nil {
		return nil
	}
	for _, s := range r.acquired {
		if s.ptr.Load() == nil {
			s.ptr.Store(n)
			return s
		}
	}
	s := r.registry.claim()
	s.ptr.Store(n)
	r.acquired = append(r.acquired, s)
	return s
}

// unmarkHazard releases n's protection without giving the slot back to
// the registry, so this call can reuse it for its next traversal step
// (mirrors HazardPointer::UnMark).
func (r *reclaimer[K, V]) unmarkHazard(s *hazardSlot[K, V]) {
	if s == nil {
		return
	}
	s.ptr.Store(nil)
}

// retireLater queues n to be dropped once no hazard slot protects it,
// mirroring Reclaimer::ReclaimLater.
func (r *reclaimer[K, V]) retireLater(n *node[K, V]) {
	r.retired = append(r.retired, n)
}

// reclaimNoHazardPointer drops every retired node no longer protected
// by any hazard slot, mirroring Reclaimer::ReclaimNoHazardPointer's
// size-gated sweep.
func (r *reclaimer[K, V]) reclaimNoHazardPointer() {
	if int32(len(r.retired)) < maxRetiredPerSlot*r.registry.count() {
		return
	}
	kept := r.retired[:0]
	for _, n := range r.retired {
		if r.registry.isHazard(n) {
			kept = append(kept, n)
		}
	}
	r.retired = kept
}

// release hands every slot this call claimed back to the registry,
// mirroring the handover half of Reclaimer's destructor. It does not
// touch the retired list: nodes still on it are dropped by reset when
// the reclaimer is next borrowed, without a further hazard scan.
func (r *reclaimer[K, V]) release() {
	for _, s := range r.acquired {
		r.registry.unclaim(s)
	}
}
