package util

import (
	"hash/maphash"
)

// --------------------------------------------------------------------------
// Key Hashing
// --------------------------------------------------------------------------

// NewHashSeed returns a fresh, process-local seed for key hashing. Each
// adapter instance takes its own seed so shard placement cannot be
// predicted from outside the process.
func NewHashSeed() maphash.Seed {
	return maphash.MakeSeed()
}

// HashString hashes a key under the given seed. The memory adapter uses
// it to pick the shard responsible for a key.
func HashString(key string, seed maphash.Seed) uint64 {
	return maphash.String(seed, key)
}

// --------------------------------------------------------------------------
// Key Pattern Matching
// --------------------------------------------------------------------------

// MatchPattern reports whether a key matches a glob pattern. Supported
// metacharacters are '*' (any run of characters, including none) and '?'
// (exactly one character). An empty pattern matches every key.
//
// The matcher is iterative with single-star backtracking, so malformed or
// adversarial patterns cannot blow the stack or run away.
func MatchPattern(pattern, key string) bool {
	if pattern == "" {
		return true
	}

	var (
		p, k         int
		starP, starK = -1, 0
	)

	for k < len(key) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == key[k]):
			p++
			k++
		case p < len(pattern) && pattern[p] == '*':
			// remember the star, try the empty match first
			starP = p
			starK = k
			p++
		case starP >= 0:
			// backtrack: let the star swallow one more character
			starK++
			p = starP + 1
			k = starK
		default:
			return false
		}
	}

	// trailing stars match the empty remainder
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
