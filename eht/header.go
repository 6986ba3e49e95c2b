package eht

// header fans a hash's top maxDepth bits out to a directory slot.
// Grounded on include/eth_storage/htable_header.h's
// ExtendibleHTableHeaderNode, generalized from page ids to direct
// directory references.
type header[K comparable, V any] struct {
	maxDepth   uint32
	directories []*directoryEntry[K, V]
}

type directoryEntry[K comparable, V any] struct {
	dir     *directory
	buckets []*bucket[K, V]
}

func newHeader[K comparable, V any](maxDepth uint32) *header[K, V] {
	return &header[K, V]{
		maxDepth:   maxDepth,
		directories: make([]*directoryEntry[K, V], uint32(1)<<maxDepth),
	}
}

// hashToDirectoryIndex uses the top maxDepth bits of hash, matching
// ExtendibleHTableHeaderNode::HashToDirectoryIndex.
func (h *header[K, V]) hashToDirectoryIndex(hash uint32) uint32 {
	shift := uint32(32) - h.maxDepth
	return (hash >> shift) & ((uint32(1) << h.maxDepth) - 1)
}

func (h *header[K, V]) get(idx uint32) *directoryEntry[K, V] {
	return h.directories[idx]
}

func (h *header[K, V]) getOrCreate(idx uint32, directoryMaxDepth uint32) *directoryEntry[K, V] {
	if h.directories[idx] == nil {
		h.directories[idx] = &directoryEntry[K, V]{
			dir: newDirectory(directoryMaxDepth),
		}
	}
	return h.directories[idx]
}
