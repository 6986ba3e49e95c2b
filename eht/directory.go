package eht

// directory holds one extendible-hash directory: a global depth and,
// for every slot up to 2^maxDepth, a local depth and a reference to
// the bucket slot owns. Grounded on
// include/eth_storage/htable_directory.h, generalized from page ids to
// direct indices into the owning table's bucket slice.
//
// Invariants (spec.md Section 3):
//   - for every i < 2^globalDepth: localDepth[i] <= globalDepth
//   - all indices sharing a bucket share the same local depth L, and
//     there are exactly 2^(globalDepth-L) of them at stride 2^L
//   - indices >= 2^globalDepth are unused
const noBucket = -1

type directory struct {
	globalDepth uint32
	maxDepth    uint32
	localDepth  []uint8 // length 2^maxDepth
	bucketRef   []int32 // length 2^maxDepth; index into the table's bucket slice, or noBucket
}

func newDirectory(maxDepth uint32) *directory {
	size := uint32(1) << maxDepth
	d := &directory{
		maxDepth:   maxDepth,
		localDepth: make([]uint8, size),
		bucketRef:  make([]int32, size),
	}
	for i := range d.bucketRef {
		d.bucketRef[i] = noBucket
	}
	return d
}

func (d *directory) globalDepthMask() uint32 {
	return (uint32(1) << d.globalDepth) - 1
}

// hashToBucketIndex implements spec.md's hash_to_bucket_index(h) = h &
// ((1<<G)-1).
func (d *directory) hashToBucketIndex(hash uint32) uint32 {
	return hash & d.globalDepthMask()
}

func (d *directory) getLocalDepth(idx uint32) uint32 { return uint32(d.localDepth[idx]) }
func (d *directory) getBucketRef(idx uint32) int32    { return d.bucketRef[idx] }

// setLocalDepth propagates both idx's bucket reference and the local
// depth to every index sharing idx's low depth bits: the
// 2^(globalDepth-depth) indices at stride 2^depth across the
// 2^globalDepth directory (spec.md Section 4.2). htable_directory.h's
// own SetLocalDepth is degenerate (it rewrites a single slot,
// idx+gap, count times); this instead normalizes idx down to its
// group base before writing each of the count members, so split
// images below idx are updated too and no slot beyond the directory's
// length is ever touched.
func (d *directory) setLocalDepth(idx uint32, depth uint8) {
	gap := uint32(1) << depth
	base := idx & (gap - 1)
	ref := d.bucketRef[idx]
	count := uint32(1) << (d.globalDepth - uint32(depth))
	for i := uint32(0); i < count; i++ {
		d.localDepth[base+i*gap] = depth
		d.bucketRef[base+i*gap] = ref
	}
}

func (d *directory) setBucketRef(idx uint32, ref int32) {
	d.bucketRef[idx] = ref
}

func (d *directory) decrLocalDepth(idx uint32) {
	if d.localDepth[idx] > 0 {
		d.localDepth[idx]--
	}
}

// incrGlobalDepth duplicates the lower half of both arrays into the
// upper half before widening the mask, matching
// htable_directory.h's IncrGlobalDepth.
func (d *directory) incrGlobalDepth() {
	half := uint32(1) << d.globalDepth
	for i := uint32(0); i < half; i++ {
		d.localDepth[i+half] = d.localDepth[i]
		d.bucketRef[i+half] = d.bucketRef[i]
	}
	d.globalDepth++
}

// decrGlobalDepth is a no-op unless every local depth in use is
// strictly less than the current global depth, matching
// htable_directory.h's DecrGlobalDepth. Callers rely on this
// idempotence (spec.md Section 4.2).
func (d *directory) decrGlobalDepth() {
	if d.globalDepth == 0 {
		return
	}
	size := uint32(1) << d.globalDepth
	for i := uint32(0); i < size; i++ {
		if uint32(d.localDepth[i]) >= d.globalDepth {
			return
		}
	}
	d.globalDepth--
}

func (d *directory) size() uint32 { return uint32(1) << d.globalDepth }
