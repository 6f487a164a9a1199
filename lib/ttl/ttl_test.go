package ttl

import (
	"testing"
	"time"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

// fakeClock returns a manager whose clock the test controls
func fakeClock(start int64) (*Manager, *int64) {
	now := start
	m := NewManager(time.Minute)
	m.Now = func() int64 { return now }
	return m, &now
}

func TestCalculateExpiration(t *testing.T) {
	m, _ := fakeClock(1000)

	if got := m.CalculateExpiration(0, 0); got != 0 {
		t.Errorf("No ttl and no expireAt should yield 0, got %d", got)
	}
	if got := m.CalculateExpiration(500*time.Millisecond, 0); got != 1500 {
		t.Errorf("ttl 500ms at t=1000 should yield 1500, got %d", got)
	}
	if got := m.CalculateExpiration(0, 9999); got != 9999 {
		t.Errorf("expireAt should pass through, got %d", got)
	}
	// a ttl wins over an absolute expireAt
	if got := m.CalculateExpiration(time.Second, 9999); got != 2000 {
		t.Errorf("ttl should win over expireAt, got %d", got)
	}
}

func TestIsExpired(t *testing.T) {
	m, now := fakeClock(1000)

	env := &storage.Envelope{Expires: 1010}
	if m.IsExpired(env) {
		t.Error("Envelope should not be expired before its expiry")
	}

	*now = 1011
	if !m.IsExpired(env) {
		t.Error("Envelope should be expired after its expiry")
	}

	forever := &storage.Envelope{}
	*now = 1 << 50
	if m.IsExpired(forever) {
		t.Error("Envelope without expiry must never expire")
	}
	if m.IsExpired(nil) {
		t.Error("nil envelope must not count as expired")
	}
}

func TestUpdateExpirationSliding(t *testing.T) {
	m, now := fakeClock(1000)

	// entry without a TTL is never given one implicitly
	plain := &storage.Envelope{Updated: 1000}
	if m.UpdateExpiration(plain, time.Second) {
		t.Error("Sliding must not add an expiry to a non-TTL entry")
	}
	if plain.Expires != 0 {
		t.Errorf("Expires should stay 0, got %d", plain.Expires)
	}

	// explicit lease
	env := &storage.Envelope{Updated: 1000, Expires: 2000}
	*now = 1900
	if !m.UpdateExpiration(env, time.Second) {
		t.Error("Sliding with a lease should update the envelope")
	}
	if env.Expires != 2900 {
		t.Errorf("Expected expiry 2900, got %d", env.Expires)
	}

	// lease derived from the original write when none is passed
	env = &storage.Envelope{Updated: 1000, Expires: 2000} // original lease 1000ms
	*now = 1900
	if !m.UpdateExpiration(env, 0) {
		t.Error("Sliding without an explicit lease should fall back to the original one")
	}
	if env.Expires != 2900 {
		t.Errorf("Expected expiry 2900 from derived lease, got %d", env.Expires)
	}
}

func TestExtendTTL(t *testing.T) {
	m, _ := fakeClock(1000)

	env := &storage.Envelope{Expires: 5000}
	m.ExtendTTL(env, time.Second)
	if env.Expires != 6000 {
		t.Errorf("Extension must be additive on the existing expiry, got %d", env.Expires)
	}

	fresh := &storage.Envelope{}
	m.ExtendTTL(fresh, time.Second)
	if fresh.Expires != 2000 {
		t.Errorf("Extension of a non-TTL entry should start from now, got %d", fresh.Expires)
	}

	m.ExtendTTL(env, 0)
	if env.Expires != 6000 {
		t.Error("Zero extension must not change the expiry")
	}
}

func TestPersist(t *testing.T) {
	m, _ := fakeClock(1000)

	env := &storage.Envelope{Expires: 5000}
	m.Persist(env)
	if env.Expires != 0 {
		t.Errorf("Persist should clear the expiry, got %d", env.Expires)
	}
}

func TestTimeToLive(t *testing.T) {
	m, now := fakeClock(1000)

	if _, has := m.TimeToLive(nil); has {
		t.Error("nil envelope reports a lease")
	}
	if _, has := m.TimeToLive(&storage.Envelope{}); has {
		t.Error("envelope without expiry reports a lease")
	}

	env := &storage.Envelope{Expires: 3000}
	remaining, has := m.TimeToLive(env)
	if !has || remaining != 2*time.Second {
		t.Errorf("TimeToLive = %v, %v; want 2s, true", remaining, has)
	}

	// an already-expired envelope clamps to zero
	*now = 5000
	remaining, has = m.TimeToLive(env)
	if !has || remaining != 0 {
		t.Errorf("TimeToLive after expiry = %v, %v; want 0, true", remaining, has)
	}
}

// memStore is a minimal key space for sweep tests
type memStore struct {
	data map[string]*storage.Envelope
}

func (s *memStore) list() ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *memStore) get(key string) (*storage.Envelope, bool, error) {
	env, ok := s.data[key]
	return env, ok, nil
}

func (s *memStore) remove(key string) error {
	delete(s.data, key)
	return nil
}

func TestSweep(t *testing.T) {
	m, now := fakeClock(1000)

	store := &memStore{data: map[string]*storage.Envelope{
		"expired-1": {Expires: 500},
		"expired-2": {Expires: 999},
		"alive":     {Expires: 2000},
		"forever":   {},
	}}

	removed := m.Sweep(store.list, store.get, store.remove)
	if removed != 2 {
		t.Errorf("Expected 2 removals, got %d", removed)
	}
	if _, ok := store.data["alive"]; !ok {
		t.Error("Unexpired entry must survive the sweep")
	}
	if _, ok := store.data["forever"]; !ok {
		t.Error("Entry without expiry must survive the sweep")
	}

	// idempotent: a second sweep removes nothing more
	if removed := m.Sweep(store.list, store.get, store.remove); removed != 0 {
		t.Errorf("Second sweep should remove nothing, got %d", removed)
	}

	// advancing the clock makes the survivor due
	*now = 2001
	if removed := m.Sweep(store.list, store.get, store.remove); removed != 1 {
		t.Errorf("Expected 1 removal after advancing the clock, got %d", removed)
	}
}

func TestAutoCleanupLifecycle(t *testing.T) {
	m := NewManager(5 * time.Millisecond)
	now := int64(1000)
	m.Now = func() int64 { return now }

	store := &memStore{data: map[string]*storage.Envelope{
		"expired": {Expires: 500},
		"alive":   {},
	}}

	m.StartAutoCleanup(store.list, store.get, store.remove)
	defer m.StopAutoCleanup()

	deadline := time.After(time.Second)
	for {
		if _, ok := store.data["expired"]; !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("Sweeper did not remove the expired key in time")
		case <-time.After(time.Millisecond):
		}
	}

	if _, ok := store.data["alive"]; !ok {
		t.Error("Sweeper must not remove unexpired keys")
	}

	// stopping twice must not panic
	m.StopAutoCleanup()
	m.StopAutoCleanup()
}
