package lfht

import "testing"

func TestHazardRegistryClaimReuse(t *testing.T) {
	var r hazardRegistry[int, string]
	s1 := r.claim()
	r.unclaim(s1)
	s2 := r.claim()
	if s1 != s2 {
		t.Fatal("claim after unclaim should reuse the same slot")
	}
	if r.count() != 1 {
		t.Fatalf("count() = %d, want 1", r.count())
	}
}

func TestHazardRegistryIsHazard(t *testing.T) {
	var r hazardRegistry[int, string]
	n := newDummyNode[int, string](0)
	s := r.claim()
	s.ptr.Store(n)

	if !r.isHazard(n) {
		t.Fatal("node marked on a claimed slot should be hazardous")
	}
	s.ptr.Store(nil)
	if r.isHazard(n) {
		t.Fatal("node should stop being hazardous once unmarked")
	}
}

func TestReclaimerMarkUnmarkReusesSlot(t *testing.T) {
	var r hazardRegistry[int, string]
	rc := newReclaimer[int, string](&r)
	a := newDummyNode[int, string](0)
	b := newDummyNode[int, string](1)

	slotA := rc.markHazard(a)
	rc.unmarkHazard(slotA)
	slotB := rc.markHazard(b)
	if slotA != slotB {
		t.Fatal("a freed local slot should be reused before claiming a new one")
	}
}

func TestReclaimNoHazardPointerDropsUnprotected(t *testing.T) {
	var r hazardRegistry[int, string]
	rc := newReclaimer[int, string](&r)
	rc.registry.claim() // one slot: the sweep runs once maxRetiredPerSlot nodes are retired

	for i := 0; i < maxRetiredPerSlot+1; i++ {
		rc.retireLater(newDummyNode[int, string](uint64(i)))
	}
	rc.reclaimNoHazardPointer()
	if len(rc.retired) != 0 {
		t.Fatalf("retired count = %d, want 0 once the sweep runs with nothing hazardous", len(rc.retired))
	}
}
