package lfht

import (
	"sync"
	"testing"

	cindex "github.com/chaoszhai/concurrent-index"
)

func newTestTable() *LFHT[int, int] {
	return New[int, int](cindex.IdentityHasher(), cindex.IntComparator)
}

func TestInsertGetRemove(t *testing.T) {
	tbl := newTestTable()
	if !tbl.Insert(1, 10) || !tbl.Insert(2, 20) || !tbl.Insert(3, 30) {
		t.Fatal("all inserts should succeed")
	}
	for k, want := range map[int]int{1: 10, 2: 20, 3: 30} {
		got, ok := tbl.Get(k)
		if !ok || got != want {
			t.Fatalf("Get(%d) = %d, %v; want %d, true", k, got, ok, want)
		}
	}
	if tbl.Size() != 3 {
		t.Fatalf("Size() = %d, want 3", tbl.Size())
	}

	if !tbl.Remove(2) {
		t.Fatal("Remove(2) should succeed")
	}
	if _, ok := tbl.Get(2); ok {
		t.Fatal("Get(2) should be absent after removal")
	}
	if tbl.Size() != 2 {
		t.Fatalf("Size() = %d, want 2", tbl.Size())
	}
	if tbl.Remove(2) {
		t.Fatal("Remove(2) a second time should fail")
	}
}

// TestScenarioS4 mirrors spec.md S4 for the LFHT half: re-inserting an
// existing key updates its value in place and reports false.
func TestScenarioS4(t *testing.T) {
	tbl := newTestTable()
	if !tbl.Insert(0, 0) {
		t.Fatal("first insert of key 0 should succeed")
	}
	if tbl.Insert(0, 1) {
		t.Fatal("second insert of key 0 should report false (value updated, not created)")
	}
	got, ok := tbl.Get(0)
	if !ok || got != 1 {
		t.Fatalf("Get(0) = %d, %v; want 1, true (updated by the second insert)", got, ok)
	}
	if tbl.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", tbl.Size())
	}
}

func TestGrowsPastInitialBucketCount(t *testing.T) {
	tbl := newTestTable()
	for i := 0; i < 5000; i++ {
		tbl.Insert(i, i)
	}
	if tbl.bucketSize() <= 2 {
		t.Fatalf("bucketSize() = %d, expected growth well past the initial 2 buckets", tbl.bucketSize())
	}
	for i := 0; i < 5000; i++ {
		if got, ok := tbl.Get(i); !ok || got != i {
			t.Fatalf("Get(%d) = %d, %v; want %d, true", i, got, ok, i)
		}
	}
}

// TestScenarioS5 mirrors spec.md S5: concurrent goroutines insert
// disjoint key ranges, then concurrently remove half; size() must
// match the number of keys a subsequent Get still finds.
func TestScenarioS5(t *testing.T) {
	const goroutines = 4
	const perGoroutine = 2000

	tbl := newTestTable()
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				tbl.Insert(base+i, base+i)
			}
		}(g * perGoroutine)
	}
	wg.Wait()

	total := goroutines * perGoroutine
	if tbl.Size() != total {
		t.Fatalf("Size() after inserts = %d, want %d", tbl.Size(), total)
	}

	wg = sync.WaitGroup{}
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perGoroutine/2; i++ {
				tbl.Remove(base + i)
			}
		}(g * perGoroutine)
	}
	wg.Wait()

	survivors := 0
	for i := 0; i < total; i++ {
		if _, ok := tbl.Get(i); ok {
			survivors++
		}
	}
	if tbl.Size() != survivors {
		t.Fatalf("Size() = %d, want %d (number of keys Get still finds)", tbl.Size(), survivors)
	}
	if tbl.Size() != total/2 {
		t.Fatalf("Size() = %d, want %d (exactly half removed)", tbl.Size(), total/2)
	}
}

// TestScenarioS6 mirrors spec.md S6: many goroutines repeatedly
// insert/remove the same key; the table must end up consistent with
// size() in {0, 1} and never panic (a torn CAS or use-after-reclaim
// would surface as a panic or data race under -race).
func TestScenarioS6(t *testing.T) {
	const goroutines = 16
	const rounds = 500

	tbl := newTestTable()
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				tbl.Insert(42, i)
				tbl.Remove(42)
			}
		}()
	}
	wg.Wait()

	size := tbl.Size()
	if size != 0 && size != 1 {
		t.Fatalf("Size() = %d, want 0 or 1", size)
	}
}

func TestGetMissingKeyOnEmptyTable(t *testing.T) {
	tbl := newTestTable()
	if _, ok := tbl.Get(7); ok {
		t.Fatal("Get on an empty table should report absent")
	}
}
