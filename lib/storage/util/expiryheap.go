package util

// This file provides a specialized priority queue for expiry bookkeeping.
//
// The implementation combines a binary min-heap with a hash map so that the
// entry with the nearest expiry is available in O(1) while direct access by
// key stays O(1) as well. It is used by the memory adapter to find expired
// keys without scanning the whole shard on every sweep.
//
// Time complexity:
//   - O(log n) for Add, Pop and key-based removal
//   - O(1) for Peek, Contains and key lookups
//
// Concurrency: the heap is not thread-safe; callers synchronize externally
// (each memory shard guards its heap with the shard lock).

import "container/heap"

// expiryItem is a single entry in the heap: a key and its absolute expiry.
type expiryItem struct {
	Key     string // The stored key
	Expires int64  // Absolute expiry in epoch milliseconds
	index   int    // Index in the heap slice, maintained by the heap package
}

// ExpiryHeap is a min-heap over absolute expiry timestamps with O(1)
// key-based access.
type ExpiryHeap struct {
	items []*expiryItem
	byKey map[string]*expiryItem
}

// NewExpiryHeap creates an empty expiry heap.
func NewExpiryHeap() *ExpiryHeap {
	return &ExpiryHeap{
		items: make([]*expiryItem, 0),
		byKey: make(map[string]*expiryItem),
	}
}

// --------------------------------------------------------------------------
// heap.Interface
// --------------------------------------------------------------------------

func (h *ExpiryHeap) Len() int { return len(h.items) }

func (h *ExpiryHeap) Less(i, j int) bool {
	return h.items[i].Expires < h.items[j].Expires
}

func (h *ExpiryHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].index = i
	h.items[j].index = j
}

func (h *ExpiryHeap) Push(x interface{}) {
	it := x.(*expiryItem)
	it.index = len(h.items)
	h.items = append(h.items, it)
	h.byKey[it.Key] = it
}

func (h *ExpiryHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	it := old[n-1]
	old[n-1] = nil // avoid memory leak
	it.index = -1
	h.items = old[:n-1]
	delete(h.byKey, it.Key)
	return it
}

// --------------------------------------------------------------------------
// Public API
// --------------------------------------------------------------------------

// Add inserts a key with its absolute expiry, or reschedules the key if it
// is already tracked.
func (h *ExpiryHeap) Add(key string, expires int64) {
	if it, ok := h.byKey[key]; ok {
		it.Expires = expires
		heap.Fix(h, it.index)
		return
	}
	heap.Push(h, &expiryItem{Key: key, Expires: expires})
}

// Remove stops tracking a key. It reports whether the key was tracked.
func (h *ExpiryHeap) Remove(key string) bool {
	it, ok := h.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(h, it.index)
	return true
}

// Contains reports whether a key is tracked.
func (h *ExpiryHeap) Contains(key string) bool {
	_, ok := h.byKey[key]
	return ok
}

// PopExpired removes and returns every key whose expiry is <= now.
func (h *ExpiryHeap) PopExpired(now int64) []string {
	var expired []string
	for len(h.items) > 0 && h.items[0].Expires <= now {
		it := heap.Pop(h).(*expiryItem)
		expired = append(expired, it.Key)
	}
	return expired
}

// Next returns the nearest tracked expiry. The boolean return value is
// false when no key is tracked.
func (h *ExpiryHeap) Next() (int64, bool) {
	if len(h.items) == 0 {
		return 0, false
	}
	return h.items[0].Expires, true
}
