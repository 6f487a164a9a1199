package strategy

import (
	"math/rand"
	"testing"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

// capsAdapter is a minimal adapter stub carrying only the fields the
// ranking functions look at.
type capsAdapter struct {
	storage.Adapter
	name storage.Type
	caps storage.Capabilities
}

func (a *capsAdapter) Name() storage.Type                 { return a.name }
func (a *capsAdapter) Capabilities() storage.Capabilities { return a.caps }

func stub(name storage.Type, caps storage.Capabilities) storage.Adapter {
	return &capsAdapter{name: name, caps: caps}
}

// referenceSet mirrors the capability matrix of the built-in adapters.
func referenceSet() []storage.Adapter {
	return []storage.Adapter{
		stub(storage.TypeMemory, storage.Capabilities{
			Synchronous: true, Observable: true, Queryable: true, MaxSize: storage.Unbounded,
		}),
		stub(storage.TypeFilesystem, storage.Capabilities{
			Persistent: true, Observable: true, Queryable: true, MaxSize: storage.Unbounded,
		}),
		stub(storage.TypeSQLite, storage.Capabilities{
			Persistent: true, Queryable: true, MaxSize: storage.Unbounded,
		}),
		stub(storage.TypeSecure, storage.Capabilities{
			Persistent: true, Encrypted: true, MaxSize: 1 << 20,
		}),
	}
}

func names(adapters []storage.Adapter) []storage.Type {
	out := make([]storage.Type, len(adapters))
	for i, a := range adapters {
		out[i] = a.Name()
	}
	return out
}

func equalTypes(a, b []storage.Type) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPolicyOrdering(t *testing.T) {
	tests := []struct {
		policy Policy
		want   []storage.Type
	}{
		// memory is the only synchronous backend, the rest fall back
		// to the performance tie-break list
		{PolicyPerformance, []storage.Type{
			storage.TypeMemory, storage.TypeSQLite, storage.TypeFilesystem, storage.TypeSecure,
		}},
		// persistent backends first, memory last
		{PolicyPersistence, []storage.Type{
			storage.TypeSQLite, storage.TypeFilesystem, storage.TypeSecure, storage.TypeMemory,
		}},
		// secure is the only encrypted backend
		{PolicySecurity, []storage.Type{
			storage.TypeSecure, storage.TypeSQLite, storage.TypeFilesystem, storage.TypeMemory,
		}},
		// unbounded backends first in capacity order, bounded secure last
		{PolicyCapacity, []storage.Type{
			storage.TypeFilesystem, storage.TypeSQLite, storage.TypeMemory, storage.TypeSecure,
		}},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			got := names(Select(referenceSet(), tt.policy, nil, nil))
			if !equalTypes(got, tt.want) {
				t.Errorf("Select(%s) = %v, want %v", tt.policy, got, tt.want)
			}
		})
	}
}

func TestSelectionDeterminism(t *testing.T) {
	// the ranking must be independent of candidate input order
	rng := rand.New(rand.NewSource(42))
	for _, policy := range []Policy{PolicyPerformance, PolicyPersistence, PolicySecurity, PolicyCapacity} {
		want := names(Select(referenceSet(), policy, nil, nil))
		for i := 0; i < 20; i++ {
			shuffled := referenceSet()
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})
			got := names(Select(shuffled, policy, nil, nil))
			if !equalTypes(got, want) {
				t.Fatalf("policy %s: order %v differs from %v after shuffle", policy, got, want)
			}
		}
	}
}

func TestPreferredAllowList(t *testing.T) {
	preferred := []storage.Type{storage.TypeSecure, storage.TypeSQLite}
	got := names(Select(referenceSet(), PolicyPerformance, preferred, nil))
	want := []storage.Type{storage.TypeSQLite, storage.TypeSecure}
	if !equalTypes(got, want) {
		t.Errorf("Select with allow-list = %v, want %v", got, want)
	}

	if best := BestAdapter(referenceSet(), PolicyPerformance, []storage.Type{storage.TypeCookies}, nil); best != nil {
		t.Errorf("BestAdapter with unmatched allow-list = %v, want nil", best.Name())
	}
}

func TestRequirements(t *testing.T) {
	tests := []struct {
		name string
		req  *Requirements
		want []storage.Type
	}{
		{"nil requirements pass everything", nil, []storage.Type{
			storage.TypeMemory, storage.TypeSQLite, storage.TypeFilesystem, storage.TypeSecure,
		}},
		{"persistent", &Requirements{Persistent: Bool(true)}, []storage.Type{
			storage.TypeSQLite, storage.TypeFilesystem, storage.TypeSecure,
		}},
		{"not persistent", &Requirements{Persistent: Bool(false)}, []storage.Type{
			storage.TypeMemory,
		}},
		{"encrypted", &Requirements{Encrypted: Bool(true)}, []storage.Type{
			storage.TypeSecure,
		}},
		{"persistent and queryable", &Requirements{Persistent: Bool(true), Queryable: Bool(true)}, []storage.Type{
			storage.TypeSQLite, storage.TypeFilesystem,
		}},
		{"min size above secure ceiling", &Requirements{MinSize: 2 << 20}, []storage.Type{
			storage.TypeMemory, storage.TypeSQLite, storage.TypeFilesystem,
		}},
		{"min size within secure ceiling", &Requirements{Encrypted: Bool(true), MinSize: 1 << 20}, []storage.Type{
			storage.TypeSecure,
		}},
		{"unsatisfiable", &Requirements{Encrypted: Bool(true), Synchronous: Bool(true)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := names(Select(referenceSet(), PolicyPerformance, nil, tt.req))
			if !equalTypes(got, tt.want) {
				t.Errorf("Select = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAdapterChain(t *testing.T) {
	chain := AdapterChain(referenceSet(), PolicyPersistence, 2, nil, nil)
	want := []storage.Type{storage.TypeSQLite, storage.TypeFilesystem}
	if !equalTypes(names(chain), want) {
		t.Errorf("AdapterChain = %v, want %v", names(chain), want)
	}

	// count <= 0 means no truncation
	all := AdapterChain(referenceSet(), PolicyPersistence, 0, nil, nil)
	if len(all) != 4 {
		t.Errorf("AdapterChain(count=0) returned %d adapters, want 4", len(all))
	}
}

func TestCapacityRanksBoundedBySize(t *testing.T) {
	candidates := []storage.Adapter{
		stub(storage.TypeCookies, storage.Capabilities{MaxSize: 4 << 10}),
		stub(storage.TypeLocalStorage, storage.Capabilities{Persistent: true, Synchronous: true, MaxSize: 10 << 20}),
		stub(storage.TypeSessionStorage, storage.Capabilities{Synchronous: true, MaxSize: 10 << 20}),
	}
	got := names(Select(candidates, PolicyCapacity, nil, nil))
	// equal ceilings fall back to the capacity tie-break list
	want := []storage.Type{storage.TypeLocalStorage, storage.TypeSessionStorage, storage.TypeCookies}
	if !equalTypes(got, want) {
		t.Errorf("Select(capacity) = %v, want %v", got, want)
	}
}

func TestParsePolicy(t *testing.T) {
	if got := ParsePolicy("security"); got != PolicySecurity {
		t.Errorf("ParsePolicy(security) = %s", got)
	}
	if got := ParsePolicy("bogus"); got != PolicyPerformance {
		t.Errorf("ParsePolicy(bogus) = %s, want performance fallback", got)
	}
}
