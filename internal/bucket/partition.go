// Package bucket splits an ordered entity sequence into named buckets for
// parallel processing. Two policies exist because downstream consumers
// depend on both: organization repositories use contiguous chunks,
// repository issues use round-robin.
package bucket

import (
	"fmt"
)

// Policy selects how entities are distributed across buckets.
type Policy string

const (
	// PolicyContiguous assigns ceil(M/N)-sized contiguous chunks. The
	// last bucket may be smaller or empty.
	PolicyContiguous Policy = "contiguous"

	// PolicyRoundRobin assigns the entity at index i to bucket
	// (i mod N) + 1.
	PolicyRoundRobin Policy = "round-robin"
)

// Split partitions items into n buckets under the given policy. Bucket k
// (1-based) is the slice at index k-1. Every input item lands in exactly
// one bucket and order within a bucket follows input order.
func Split[T any](items []T, n int, policy Policy) ([][]T, error) {
	if n < 1 {
		return nil, fmt.Errorf("bucket count must be at least 1, got %d", n)
	}

	buckets := make([][]T, n)
	switch policy {
	case PolicyContiguous:
		size := (len(items) + n - 1) / n // ceil(M/N)
		if size == 0 {
			return buckets, nil
		}
		for k := 0; k < n; k++ {
			start := k * size
			if start >= len(items) {
				break
			}
			end := start + size
			if end > len(items) {
				end = len(items)
			}
			buckets[k] = items[start:end]
		}
	case PolicyRoundRobin:
		for i, item := range items {
			k := i % n
			buckets[k] = append(buckets[k], item)
		}
	default:
		return nil, fmt.Errorf("unknown bucket policy %q", policy)
	}

	return buckets, nil
}

// BucketFor returns the 1-based round-robin bucket for the entity at
// original-order index i.
func BucketFor(i, n int) int {
	return (i % n) + 1
}
