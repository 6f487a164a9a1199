package util

import (
	"sort"
	"testing"
)

// TestExpiryHeapBasic tests adding and peeking
func TestExpiryHeapBasic(t *testing.T) {
	h := NewExpiryHeap()

	if h.Len() != 0 {
		t.Errorf("New heap should be empty, got length %d", h.Len())
	}

	h.Add("a", 100)
	h.Add("b", 200)
	h.Add("c", 50)

	if h.Len() != 3 {
		t.Errorf("Heap should have 3 items, got %d", h.Len())
	}

	for _, key := range []string{"a", "b", "c"} {
		if !h.Contains(key) {
			t.Errorf("Heap should contain key %q", key)
		}
	}

	next, ok := h.Next()
	if !ok {
		t.Fatal("Next() should return a value")
	}
	if next != 50 {
		t.Errorf("Expected nearest expiry 50, got %d", next)
	}
}

// TestExpiryHeapReschedule tests that Add on an existing key updates it
func TestExpiryHeapReschedule(t *testing.T) {
	h := NewExpiryHeap()

	h.Add("a", 100)
	h.Add("b", 200)

	// push "a" past "b"
	h.Add("a", 300)

	if h.Len() != 2 {
		t.Errorf("Reschedule must not grow the heap, got length %d", h.Len())
	}

	next, _ := h.Next()
	if next != 200 {
		t.Errorf("Expected nearest expiry 200 after reschedule, got %d", next)
	}
}

// TestExpiryHeapRemove tests key-based removal
func TestExpiryHeapRemove(t *testing.T) {
	h := NewExpiryHeap()

	h.Add("a", 100)
	h.Add("b", 200)

	if !h.Remove("a") {
		t.Error("Remove of a tracked key should return true")
	}
	if h.Remove("a") {
		t.Error("Remove of an untracked key should return false")
	}
	if h.Contains("a") {
		t.Error("Removed key should not be contained anymore")
	}

	next, _ := h.Next()
	if next != 200 {
		t.Errorf("Expected nearest expiry 200 after removal, got %d", next)
	}
}

// TestExpiryHeapPopExpired tests draining expired keys in order
func TestExpiryHeapPopExpired(t *testing.T) {
	h := NewExpiryHeap()

	h.Add("late", 1000)
	h.Add("early", 10)
	h.Add("mid", 500)
	h.Add("never-due", 2000)

	expired := h.PopExpired(500)

	sort.Strings(expired)
	if len(expired) != 2 || expired[0] != "early" || expired[1] != "mid" {
		t.Errorf("Expected [early mid], got %v", expired)
	}

	if h.Len() != 2 {
		t.Errorf("Heap should have 2 items left, got %d", h.Len())
	}

	if got := h.PopExpired(500); got != nil {
		t.Errorf("Second sweep at the same time should drain nothing, got %v", got)
	}
}
