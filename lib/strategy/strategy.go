package strategy

import (
	"sort"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

// --------------------------------------------------------------------------
// Policies
// --------------------------------------------------------------------------

// Policy selects the total order used to rank available adapters.
type Policy string

const (
	// PolicyPerformance ranks synchronous backends first
	PolicyPerformance Policy = "performance"
	// PolicyPersistence ranks backends that survive restarts first
	PolicyPersistence Policy = "persistence"
	// PolicySecurity ranks backends with at-rest encryption first
	PolicySecurity Policy = "security"
	// PolicyCapacity ranks unbounded backends first, then by size ceiling
	PolicyCapacity Policy = "capacity"
)

// ParsePolicy converts a configuration string into a Policy.
// Unknown strings fall back to PolicyPerformance.
func ParsePolicy(s string) Policy {
	switch Policy(s) {
	case PolicyPerformance, PolicyPersistence, PolicySecurity, PolicyCapacity:
		return Policy(s)
	default:
		return PolicyPerformance
	}
}

// Tie-break priority lists per policy. The capability flags alone
// under-specify real-world trade-offs (two "persistent" backends differ
// hugely in practical durability), so a fixed type order keeps the
// ranking deterministic and testable. Earlier means higher priority.
var priorities = map[Policy][]storage.Type{
	PolicyPerformance: {
		storage.TypeMemory, storage.TypeSessionStorage, storage.TypeLocalStorage,
		storage.TypeCache, storage.TypeIndexedDB, storage.TypePreferences,
		storage.TypeSQLite, storage.TypeFilesystem, storage.TypeCookies,
		storage.TypeSecure,
	},
	PolicyPersistence: {
		storage.TypeSQLite, storage.TypeFilesystem, storage.TypeSecure,
		storage.TypeIndexedDB, storage.TypePreferences, storage.TypeLocalStorage,
		storage.TypeCache, storage.TypeCookies, storage.TypeSessionStorage,
		storage.TypeMemory,
	},
	PolicySecurity: {
		storage.TypeSecure, storage.TypePreferences, storage.TypeSQLite,
		storage.TypeIndexedDB, storage.TypeFilesystem, storage.TypeLocalStorage,
		storage.TypeSessionStorage, storage.TypeCache, storage.TypeMemory,
		storage.TypeCookies,
	},
	PolicyCapacity: {
		storage.TypeFilesystem, storage.TypeSQLite, storage.TypeIndexedDB,
		storage.TypeCache, storage.TypePreferences, storage.TypeSecure,
		storage.TypeLocalStorage, storage.TypeMemory, storage.TypeSessionStorage,
		storage.TypeCookies,
	},
}

// typePriority returns the tie-break rank of a type under a policy.
// Unlisted types sort after every listed one.
func typePriority(policy Policy, t storage.Type) int {
	list := priorities[policy]
	for i, candidate := range list {
		if candidate == t {
			return i
		}
	}
	return len(list)
}

// --------------------------------------------------------------------------
// Requirements
// --------------------------------------------------------------------------

// Requirements is a partial capability descriptor. Nil boolean fields are
// unconstrained; set fields must match the candidate exactly. A non-zero
// MinSize is satisfied only by unbounded adapters or a MaxSize of at
// least MinSize.
type Requirements struct {
	Persistent  *bool
	Encrypted   *bool
	Synchronous *bool
	Observable  *bool
	Queryable   *bool
	MinSize     int64
}

// Satisfies reports whether a capability descriptor meets the requirements.
func (r *Requirements) Satisfies(caps storage.Capabilities) bool {
	if r == nil {
		return true
	}
	if r.Persistent != nil && caps.Persistent != *r.Persistent {
		return false
	}
	if r.Encrypted != nil && caps.Encrypted != *r.Encrypted {
		return false
	}
	if r.Synchronous != nil && caps.Synchronous != *r.Synchronous {
		return false
	}
	if r.Observable != nil && caps.Observable != *r.Observable {
		return false
	}
	if r.Queryable != nil && caps.Queryable != *r.Queryable {
		return false
	}
	if r.MinSize > 0 && caps.MaxSize != storage.Unbounded && caps.MaxSize < r.MinSize {
		return false
	}
	return true
}

// Bool is a helper for building requirement literals.
func Bool(v bool) *bool { return &v }

// --------------------------------------------------------------------------
// Ranking
// --------------------------------------------------------------------------

// Less is the strategy-specific total order: it reports whether adapter
// kind a ranks strictly before b under the policy. It is a pure function
// over the two (Type, Capabilities) pairs.
func Less(policy Policy, aType storage.Type, aCaps storage.Capabilities, bType storage.Type, bCaps storage.Capabilities) bool {
	switch policy {
	case PolicyPersistence:
		if aCaps.Persistent != bCaps.Persistent {
			return aCaps.Persistent
		}
	case PolicySecurity:
		if aCaps.Encrypted != bCaps.Encrypted {
			return aCaps.Encrypted
		}
	case PolicyCapacity:
		aUnbounded := aCaps.MaxSize == storage.Unbounded
		bUnbounded := bCaps.MaxSize == storage.Unbounded
		if aUnbounded != bUnbounded {
			return aUnbounded
		}
		if !aUnbounded && aCaps.MaxSize != bCaps.MaxSize {
			return aCaps.MaxSize > bCaps.MaxSize
		}
	default: // PolicyPerformance
		if aCaps.Synchronous != bCaps.Synchronous {
			return aCaps.Synchronous
		}
	}
	return typePriority(policy, aType) < typePriority(policy, bType)
}

// --------------------------------------------------------------------------
// Selection
// --------------------------------------------------------------------------

// Select filters the candidates by the preferred allow-list and the
// requirements, then sorts the survivors by the policy's total order.
func Select(candidates []storage.Adapter, policy Policy, preferred []storage.Type, req *Requirements) []storage.Adapter {
	allowed := func(t storage.Type) bool {
		if len(preferred) == 0 {
			return true
		}
		for _, p := range preferred {
			if p == t {
				return true
			}
		}
		return false
	}

	var survivors []storage.Adapter
	for _, a := range candidates {
		if !allowed(a.Name()) {
			continue
		}
		if !req.Satisfies(a.Capabilities()) {
			continue
		}
		survivors = append(survivors, a)
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return Less(policy,
			survivors[i].Name(), survivors[i].Capabilities(),
			survivors[j].Name(), survivors[j].Capabilities())
	})
	return survivors
}

// BestAdapter returns the highest-ranked qualifying adapter, or nil when
// none qualifies.
func BestAdapter(candidates []storage.Adapter, policy Policy, preferred []storage.Type, req *Requirements) storage.Adapter {
	ranked := Select(candidates, policy, preferred, req)
	if len(ranked) == 0 {
		return nil
	}
	return ranked[0]
}

// AdapterChain returns the top-count qualifying adapters in rank order,
// for fallback sequencing across heterogeneous backends.
func AdapterChain(candidates []storage.Adapter, policy Policy, count int, preferred []storage.Type, req *Requirements) []storage.Adapter {
	ranked := Select(candidates, policy, preferred, req)
	if count > 0 && len(ranked) > count {
		ranked = ranked[:count]
	}
	return ranked
}
