// Package util provides supporting data structures and helpers for the
// storage core and its adapters:
//
//   - MatchPattern: the glob matcher behind Keys(pattern), supporting '*'
//     and '?' with iterative backtracking
//   - ExpiryHeap: a min-heap over absolute expiry timestamps with O(1)
//     key access, used by the memory adapter to find due keys without
//     full scans
//   - LockFreeMPSC: a lock-free multi-producer single-consumer queue used
//     as the delivery backbone for change events
//   - HashString / NewHashSeed: seeded key hashing (hash/maphash) for
//     shard selection in the memory adapter
package util
