package sample

import (
	"fmt"

	"github.com/golang/groupcache/lru"
	"github.com/mitchellh/hashstructure/v2"
)

// DefaultDedupeSize is how many recent samples NewDedupeLRUFunc remembers.
const DefaultDedupeSize = 1000

// NewDedupeLRUFunc returns a filter that reports false for a sample
// identical to one of the last size samples it passed.
// Recorders that retry uploads emit such duplicates.
func NewDedupeLRUFunc(size int) func(Sample) bool {
	if size < 1 {
		size = DefaultDedupeSize
	}
	var dedupeCache = lru.New(size)
	return func(s Sample) bool {
		hash, err := hashstructure.Hash(s, hashstructure.FormatV2, nil)
		if err != nil {
			return true
		}
		key := fmt.Sprintf("%d", hash)
		if _, ok := dedupeCache.Get(key); ok {
			return false
		}
		dedupeCache.Add(key, true)
		return true
	}
}
