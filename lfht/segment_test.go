package lfht

import "testing"

func TestBucketIndicesRoundTrip(t *testing.T) {
	for _, idx := range []uint64{0, 1, 63, 64, 4095, 1 << 20} {
		i1, i2, i3, i4 := bucketIndices(idx)
		rebuilt := uint64(i1)*segmentSize*segmentSize*segmentSize +
			uint64(i2)*segmentSize*segmentSize +
			uint64(i3)*segmentSize +
			uint64(i4)
		if rebuilt != idx {
			t.Fatalf("bucketIndices(%d) = (%d,%d,%d,%d), rebuilt %d", idx, i1, i2, i3, i4, rebuilt)
		}
	}
}

func TestGetBucketParentClearsMSB(t *testing.T) {
	cases := map[uint64]uint64{
		0:  0,
		1:  0,
		2:  0,
		3:  1,
		4:  0,
		5:  1,
		6:  2,
		7:  3,
		8:  0,
		15: 7,
	}
	for idx, want := range cases {
		if got := getBucketParent(idx); got != want {
			t.Fatalf("getBucketParent(%d) = %d, want %d", idx, got, want)
		}
	}
}

func TestEnsureBucketSlotThenLookup(t *testing.T) {
	var top [segmentSize]segmentL1[int, string]

	if head := getBucketHeadByIndex[int, string](&top, 12345); head != nil {
		t.Fatal("unpopulated bucket should report nil before ensureBucketSlot")
	}

	slot := ensureBucketSlot[int, string](&top, 12345)
	n := newDummyNode[int, string](12345)
	slot.Store(n)

	if got := getBucketHeadByIndex[int, string](&top, 12345); got != n {
		t.Fatal("getBucketHeadByIndex should observe the node stored via ensureBucketSlot")
	}
}
