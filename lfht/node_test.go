package lfht

import "testing"

func TestLessOrdersByReverseHashThenKey(t *testing.T) {
	cmp := func(a, b int) int { return a - b }

	a := newRegularNode[int, string](1, "a", 10)
	b := newRegularNode[int, string](2, "b", 20)

	want := a.reverseHash < b.reverseHash
	if got := less(a, b, cmp); got != want {
		t.Fatalf("less(a,b) = %v, want %v (reverseHash ordering)", got, want)
	}

	c := newRegularNode[int, string](3, "c", 10) // same hash as a, larger key
	if !less(a, c, cmp) || less(c, a, cmp) {
		t.Fatal("equal reverseHash should fall back to key order")
	}
}

func TestEqualsRequiresSameReverseHashAndKey(t *testing.T) {
	cmp := func(a, b int) int { return a - b }
	a := newRegularNode[int, string](5, "x", 5)
	b := newRegularNode[int, string](5, "y", 5)
	if !equals(a, b, cmp) {
		t.Fatal("two regular nodes with identical hash and key should be equal")
	}

	c := newRegularNode[int, string](6, "z", 6)
	if equals(a, c, cmp) {
		t.Fatal("nodes with different hash/key should not be equal")
	}
}

func TestDummyNodesNeverCompareByKey(t *testing.T) {
	cmp := func(a, b int) int { return a - b }
	d1 := newDummyNode[int, string](0)
	d2 := newDummyNode[int, string](0)
	// Same bucket index => identical reverseHash => equal, regardless of
	// the zero-value key comparison that would otherwise run.
	if !equals(d1, d2, cmp) {
		t.Fatal("two dummy nodes for the same bucket index should be equal")
	}
}

func TestCasLinkFailsOnStaleState(t *testing.T) {
	n := newDummyNode[int, string](0)
	stale := n.rawLink()
	n.casLink(stale, nil, true) // advance the link once
	if n.casLink(stale, nil, false) {
		t.Fatal("casLink against a stale linkState pointer must fail")
	}
}
