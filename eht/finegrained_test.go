package eht

import (
	"sync"
	"testing"

	cindex "github.com/chaoszhai/concurrent-index"
)

func newTestFine() *FineEHT[int, int] {
	return NewFine[int, int](cindex.IdentityHasher(), cindex.IntComparator,
		WithBucketCapacity[int, int](4))
}

func TestFineEHTBasic(t *testing.T) {
	e := newTestFine()
	if !e.Insert(1, 10) || !e.Insert(2, 20) {
		t.Fatal("inserts should succeed")
	}
	if got, ok := e.Get(1); !ok || got != 10 {
		t.Fatalf("Get(1) = %d, %v; want 10, true", got, ok)
	}
	if !e.Remove(1) {
		t.Fatal("Remove(1) should succeed")
	}
	if _, ok := e.Get(1); ok {
		t.Fatal("Get(1) should be absent after removal")
	}
	if e.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", e.Size())
	}
}

// TestFineEHTConcurrentDisjointRanges mirrors the shape of spec.md S5
// for the fine-grained EHT variant: disjoint key ranges inserted
// concurrently must all be retrievable afterward, and Size() must
// match the surviving key count exactly.
func TestFineEHTConcurrentDisjointRanges(t *testing.T) {
	const goroutines = 8
	const perGoroutine = 500

	e := NewFine[int, int](cindex.IdentityHasher(), cindex.IntComparator)

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				e.Insert(base+i, base+i)
			}
		}(g * perGoroutine)
	}
	wg.Wait()

	if e.Size() != goroutines*perGoroutine {
		t.Fatalf("Size() = %d, want %d", e.Size(), goroutines*perGoroutine)
	}
	for g := 0; g < goroutines; g++ {
		base := g * perGoroutine
		for i := 0; i < perGoroutine; i++ {
			key := base + i
			if got, ok := e.Get(key); !ok || got != key {
				t.Fatalf("Get(%d) = %d, %v; want %d, true", key, got, ok, key)
			}
		}
	}
}
