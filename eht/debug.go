package eht

import "fmt"

// GetBucketUsage reports aggregate occupancy across every bucket this
// table has ever allocated, grounded on
// extendible_hash.go's ExtendibleHash.GetBucketUsage, generalized from
// a single flat directory slice to this table's header-of-directories
// layout.
func (e *CoarseEHT[K, V]) GetBucketUsage() (avg float64, max int, min int, fullCount int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	total, count := 0, 0
	min = e.cfg.bucketCapacity
	for _, entry := range e.header.directories {
		if entry == nil {
			continue
		}
		for _, b := range entry.buckets {
			size := b.size()
			total += size
			count++
			if size > max {
				max = size
			}
			if size < min {
				min = size
			}
			if b.isFull() {
				fullCount++
			}
		}
	}
	if count == 0 {
		return 0, 0, 0, 0
	}
	return float64(total) / float64(count), max, min, fullCount
}

// BucketCount returns the number of buckets allocated across every
// directory, grounded on ExtendibleHash.BucketCount.
func (e *CoarseEHT[K, V]) BucketCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := 0
	for _, entry := range e.header.directories {
		if entry != nil {
			n += len(entry.buckets)
		}
	}
	return n
}

// String renders a short summary for debugging, grounded on
// ExtendibleHash.String.
func (e *CoarseEHT[K, V]) String() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	directories := 0
	buckets := 0
	for _, entry := range e.header.directories {
		if entry != nil {
			directories++
			buckets += len(entry.buckets)
		}
	}
	return fmt.Sprintf("CoarseEHT(directories=%d, buckets=%d, count=%d)", directories, buckets, e.count)
}
