package ttl

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/aoneahsan/strata-storage/lib/logger"
	"github.com/aoneahsan/strata-storage/lib/storage"
)

// DefaultCleanupInterval is the time between two background sweeps.
const DefaultCleanupInterval = 60 * time.Second

// --------------------------------------------------------------------------
// Manager
// --------------------------------------------------------------------------

// Manager implements every expiration rule of the store independent of any
// specific backend: expiry computation (fixed and sliding), additive
// extension, persisting and the background sweep.
type Manager struct {
	// Now supplies the current time in epoch milliseconds. Tests swap it
	// to advance the clock deterministically.
	Now func() int64

	interval time.Duration
	log      *logger.Logger

	mu       sync.Mutex
	stop     chan struct{}
	sweeping atomic.Bool
}

// NewManager creates a TTL manager sweeping at the given interval
// (DefaultCleanupInterval when 0).
func NewManager(interval time.Duration) *Manager {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &Manager{
		Now:      storage.NowMillis,
		interval: interval,
		log:      logger.New("ttl"),
	}
}

// --------------------------------------------------------------------------
// Expiration Computation
// --------------------------------------------------------------------------

// CalculateExpiration computes the absolute expiry for a write.
// A positive ttl wins and yields now+ttl; otherwise a non-zero expireAt is
// taken as the absolute expiry; otherwise the entry never expires (0).
func (m *Manager) CalculateExpiration(ttl time.Duration, expireAt int64) int64 {
	if ttl > 0 {
		return m.Now() + ttl.Milliseconds()
	}
	if expireAt > 0 {
		return expireAt
	}
	return 0
}

// IsExpired reports whether the envelope's expiry has passed.
// Envelopes without an expiry never expire.
func (m *Manager) IsExpired(env *storage.Envelope) bool {
	return env != nil && env.Expires != 0 && m.Now() > env.Expires
}

// UpdateExpiration implements sliding expiration: it rewrites the expiry
// only when the envelope already had one (non-TTL entries are never given
// one implicitly). The new lease is ttl when positive, else the original
// lease length derived from the last write. It reports whether the
// envelope was changed.
func (m *Manager) UpdateExpiration(env *storage.Envelope, ttl time.Duration) bool {
	if env == nil || env.Expires == 0 {
		return false
	}

	lease := ttl.Milliseconds()
	if lease <= 0 {
		lease = env.Expires - env.Updated
	}
	if lease <= 0 {
		return false
	}

	env.Expires = m.Now() + lease
	return true
}

// ExtendTTL additively extends the envelope's expiry by the given
// duration. An envelope without an expiry gets one relative to now. The
// extension preserves the original expiry semantics, it does not reset
// the lease based on the current time.
func (m *Manager) ExtendTTL(env *storage.Envelope, by time.Duration) {
	if env == nil || by <= 0 {
		return
	}
	if env.Expires == 0 {
		env.Expires = m.Now() + by.Milliseconds()
		return
	}
	env.Expires += by.Milliseconds()
}

// Persist clears the envelope's expiry entirely.
func (m *Manager) Persist(env *storage.Envelope) {
	if env != nil {
		env.Expires = 0
	}
}

// TimeToLive returns the remaining lease of the envelope. The second
// return is false for envelopes without an expiry; an already-expired
// envelope reports a zero duration.
func (m *Manager) TimeToLive(env *storage.Envelope) (time.Duration, bool) {
	if env == nil || env.Expires == 0 {
		return 0, false
	}
	remaining := env.Expires - m.Now()
	if remaining < 0 {
		remaining = 0
	}
	return time.Duration(remaining) * time.Millisecond, true
}

// --------------------------------------------------------------------------
// Background Sweep
// --------------------------------------------------------------------------

// StartAutoCleanup runs Sweep on the manager's interval until
// StopAutoCleanup is called. The three callbacks give the sweeper
// backend-independent access to the stored keys. Starting an already
// started manager restarts its timer.
func (m *Manager) StartAutoCleanup(
	listKeys func() ([]string, error),
	getItem func(key string) (*storage.Envelope, bool, error),
	removeItem func(key string) error,
) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stop != nil {
		close(m.stop)
	}
	stop := make(chan struct{})
	m.stop = stop

	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep(listKeys, getItem, removeItem)
			case <-stop:
				return
			}
		}
	}()
}

// StopAutoCleanup stops the background sweep. Safe to call repeatedly.
func (m *Manager) StopAutoCleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

// Sweep scans all keys once and removes every envelope that is expired at
// sweep time. The sweep is best-effort and idempotent: each candidate is
// re-verified right before removal, overlapping sweeps are collapsed into
// one, and individual failures are logged, not propagated.
// It returns the number of removed keys.
func (m *Manager) Sweep(
	listKeys func() ([]string, error),
	getItem func(key string) (*storage.Envelope, bool, error),
	removeItem func(key string) error,
) int {
	// a sweep racing another sweep would only re-verify the same keys
	if !m.sweeping.CompareAndSwap(false, true) {
		return 0
	}
	defer m.sweeping.Store(false)

	keys, err := listKeys()
	if err != nil {
		m.log.Warningf("sweep: listing keys failed: %v", err)
		return 0
	}

	removed := 0
	for _, key := range keys {
		env, found, err := getItem(key)
		if err != nil {
			m.log.Warningf("sweep: loading %q failed: %v", key, err)
			continue
		}
		if !found || !m.IsExpired(env) {
			continue
		}
		if err := removeItem(key); err != nil {
			m.log.Warningf("sweep: removing %q failed: %v", key, err)
			continue
		}
		removed++
	}

	if removed > 0 {
		m.log.Debugf("sweep removed %d expired keys", removed)
	}
	return removed
}
