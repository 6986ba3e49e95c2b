package eht

import "testing"

func TestDebugIntrospection(t *testing.T) {
	e := newTestCoarse()
	for i := 0; i < 10; i++ {
		e.Insert(i, i)
	}
	if e.BucketCount() == 0 {
		t.Fatal("BucketCount should be nonzero after inserts")
	}
	avg, max, min, full := e.GetBucketUsage()
	if avg <= 0 {
		t.Fatalf("GetBucketUsage avg = %f, want > 0", avg)
	}
	if max == 0 {
		t.Fatal("GetBucketUsage max should be nonzero")
	}
	_ = min
	_ = full
	if s := e.String(); s == "" {
		t.Fatal("String() should not be empty")
	}
}
