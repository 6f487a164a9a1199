package memory

import (
	"hash/maphash"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/aoneahsan/strata-storage/lib/query"
	"github.com/aoneahsan/strata-storage/lib/storage"
	"github.com/aoneahsan/strata-storage/lib/storage/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// defaultSweepInterval is the pause between janitor runs
	defaultSweepInterval = 100 * time.Millisecond
)

// --------------------------------------------------------------------------
// Core adapter structure
// --------------------------------------------------------------------------

// memoryImpl is the in-process backend: envelopes live in sharded
// concurrent maps, an expiry heap indexes keys with a deadline, and a
// janitor goroutine evicts them shortly after they expire.
type memoryImpl struct {
	numShards int
	seed      maphash.Seed // Seed for the shard hash function
	shards    []*xsync.MapOf[string, *storage.Envelope]

	// expiry index, guarded by heapMu
	heapMu sync.Mutex
	heap   *util.ExpiryHeap

	// subscribers
	subMu  sync.RWMutex
	subs   map[uint64]func(storage.ChangeEvent)
	nextID atomic.Uint64

	// janitor lifecycle
	sweepInterval time.Duration
	stop          chan struct{}
	running       atomic.Bool

	initialized atomic.Bool
}

// Options configures the memory adapter.
type Options struct {
	NumShards     int           // Number of map shards (0 = number of CPUs)
	SweepInterval time.Duration // Pause between janitor runs (0 = default)
}

// DefaultOptions returns the default memory adapter options.
func DefaultOptions() *Options {
	return &Options{
		NumShards:     runtime.NumCPU(),
		SweepInterval: defaultSweepInterval,
	}
}

// New creates a memory adapter with the specified options (optional).
func New(opts *Options) storage.Adapter {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}

	return &memoryImpl{
		numShards:     opts.NumShards,
		seed:          util.NewHashSeed(),
		sweepInterval: opts.SweepInterval,
		subs:          make(map[uint64]func(storage.ChangeEvent)),
		stop:          make(chan struct{}),
	}
}

// --------------------------------------------------------------------------
// Identity and Capabilities
// --------------------------------------------------------------------------

func (m *memoryImpl) Name() storage.Type {
	return storage.TypeMemory
}

func (m *memoryImpl) Capabilities() storage.Capabilities {
	return storage.Capabilities{
		Persistent:  false,
		Encrypted:   false,
		Synchronous: true,
		Observable:  true,
		Queryable:   true,
		MaxSize:     storage.Unbounded,
	}
}

// Available always reports true: process memory needs no platform support.
func (m *memoryImpl) Available() (bool, string) {
	return true, ""
}

// Initialize allocates the shards and starts the janitor.
func (m *memoryImpl) Initialize(_ storage.Config) error {
	shards := make([]*xsync.MapOf[string, *storage.Envelope], m.numShards)
	for i := range shards {
		shards[i] = xsync.NewMapOf[string, *storage.Envelope]()
	}
	m.shards = shards
	m.heap = util.NewExpiryHeap()
	m.initialized.Store(true)

	if m.running.CompareAndSwap(false, true) {
		go m.janitor()
	}
	return nil
}

// shardFor picks the shard responsible for a key.
func (m *memoryImpl) shardFor(key string) *xsync.MapOf[string, *storage.Envelope] {
	return m.shards[util.HashString(key, m.seed)%uint64(m.numShards)]
}

func (m *memoryImpl) ensureInit() error {
	if !m.initialized.Load() {
		return storage.NewError(storage.ErrCodeStorage, "memory adapter not initialized")
	}
	return nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get loads the envelope for a key. Expired entries are evicted on sight
// and reported as missing. The returned envelope is a copy and safe to
// mutate.
//
// Thread-safety: safe for concurrent use.
func (m *memoryImpl) Get(key string) (*storage.Envelope, bool, error) {
	if err := m.ensureInit(); err != nil {
		return nil, false, err
	}

	env, ok := m.shardFor(key).Load(key)
	if !ok {
		return nil, false, nil
	}

	if expired(env, storage.NowMillis()) {
		m.evict(key, env)
		return nil, false, nil
	}

	return env.Clone(), true, nil
}

// Has reports whether a live (non-expired) entry exists for the key.
//
// Thread-safety: safe for concurrent use.
func (m *memoryImpl) Has(key string) (bool, error) {
	if err := m.ensureInit(); err != nil {
		return false, err
	}

	env, ok := m.shardFor(key).Load(key)
	if !ok {
		return false, nil
	}
	if expired(env, storage.NowMillis()) {
		m.evict(key, env)
		return false, nil
	}
	return true, nil
}

// Keys lists live keys, optionally filtered with glob semantics.
//
// Thread-safety: safe for concurrent use. The listing is a snapshot and
// may miss keys written concurrently.
func (m *memoryImpl) Keys(pattern string) ([]string, error) {
	if err := m.ensureInit(); err != nil {
		return nil, err
	}

	now := storage.NowMillis()
	var keys []string
	for _, shard := range m.shards {
		shard.Range(func(key string, env *storage.Envelope) bool {
			if expired(env, now) {
				return true
			}
			if pattern == "" || util.MatchPattern(pattern, key) {
				keys = append(keys, key)
			}
			return true
		})
	}
	return keys, nil
}

// Size reports the live entry count and the summed payload bytes.
func (m *memoryImpl) Size() (storage.SizeInfo, error) {
	if err := m.ensureInit(); err != nil {
		return storage.SizeInfo{}, err
	}

	now := storage.NowMillis()
	var info storage.SizeInfo
	for _, shard := range m.shards {
		shard.Range(func(_ string, env *storage.Envelope) bool {
			if expired(env, now) {
				return true
			}
			info.Count++
			info.Bytes += int64(len(env.Value))
			return true
		})
	}
	return info, nil
}

// Query returns the keys whose envelope matches the condition tree.
func (m *memoryImpl) Query(cond map[string]any) ([]string, error) {
	if err := m.ensureInit(); err != nil {
		return nil, err
	}

	now := storage.NowMillis()
	var keys []string
	for _, shard := range m.shards {
		shard.Range(func(key string, env *storage.Envelope) bool {
			if expired(env, now) {
				return true
			}
			if query.MatchesEnvelope(env, cond) {
				keys = append(keys, key)
			}
			return true
		})
	}
	return keys, nil
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Set stores a copy of the envelope, overwriting any prior entry, and
// (re)schedules the key on the expiry index.
//
// Thread-safety: safe for concurrent use.
func (m *memoryImpl) Set(key string, env *storage.Envelope) error {
	if err := m.ensureInit(); err != nil {
		return err
	}

	cp := env.Clone()
	m.shardFor(key).Store(key, cp)

	m.heapMu.Lock()
	if cp.Expires != 0 {
		m.heap.Add(key, cp.Expires)
	} else {
		m.heap.Remove(key)
	}
	m.heapMu.Unlock()

	m.emit(storage.ChangeEvent{
		Type:      storage.EventSet,
		Key:       key,
		Value:     cp.Clone(),
		Storage:   storage.TypeMemory,
		Timestamp: storage.NowMillis(),
	})
	return nil
}

// Remove deletes a key. Removing an absent key is a no-op.
//
// Thread-safety: safe for concurrent use.
func (m *memoryImpl) Remove(key string) error {
	if err := m.ensureInit(); err != nil {
		return err
	}

	_, existed := m.shardFor(key).LoadAndDelete(key)

	m.heapMu.Lock()
	m.heap.Remove(key)
	m.heapMu.Unlock()

	if existed {
		m.emit(storage.ChangeEvent{
			Type:      storage.EventRemove,
			Key:       key,
			Storage:   storage.TypeMemory,
			Timestamp: storage.NowMillis(),
		})
	}
	return nil
}

// Clear drops every entry. The shard maps are emptied in place so
// concurrent readers and writers keep operating on the same shards.
//
// Thread-safety: safe for concurrent use. A write racing a Clear may
// land before or after the wipe of its shard; either outcome is a
// valid serialization.
func (m *memoryImpl) Clear() error {
	if err := m.ensureInit(); err != nil {
		return err
	}

	for _, shard := range m.shards {
		shard.Clear()
	}

	m.heapMu.Lock()
	m.heap = util.NewExpiryHeap()
	m.heapMu.Unlock()

	m.emit(storage.ChangeEvent{
		Type:      storage.EventClear,
		Storage:   storage.TypeMemory,
		Timestamp: storage.NowMillis(),
	})
	return nil
}

// --------------------------------------------------------------------------
// Subscriptions
// --------------------------------------------------------------------------

// Subscribe registers a callback for change events from this adapter.
// Callbacks run synchronously on the mutating goroutine (or the janitor
// for evictions) and should return quickly.
func (m *memoryImpl) Subscribe(fn func(storage.ChangeEvent)) (func(), error) {
	id := m.nextID.Add(1)

	m.subMu.Lock()
	m.subs[id] = fn
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}, nil
}

func (m *memoryImpl) emit(event storage.ChangeEvent) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	for _, fn := range m.subs {
		fn(event)
	}
}

// --------------------------------------------------------------------------
// Expiry Janitor
// --------------------------------------------------------------------------

// expired reports whether the envelope's deadline has passed.
func expired(env *storage.Envelope, now int64) bool {
	return env.Expires != 0 && env.Expires <= now
}

// evict removes a key after double-checking the stored entry is still
// the expired one, then notifies subscribers. Lazy eviction from reads
// and the janitor both funnel through here, so a concurrent overwrite
// is never deleted by mistake.
func (m *memoryImpl) evict(key string, seen *storage.Envelope) {
	shard := m.shardFor(key)
	deleted := false

	shard.Compute(key, func(curr *storage.Envelope, loaded bool) (*storage.Envelope, bool) {
		if !loaded || curr != seen {
			return curr, !loaded
		}
		deleted = true
		return nil, true
	})

	if !deleted {
		return
	}

	m.heapMu.Lock()
	m.heap.Remove(key)
	m.heapMu.Unlock()

	m.emit(storage.ChangeEvent{
		Type:      storage.EventExpired,
		Key:       key,
		Storage:   storage.TypeMemory,
		Timestamp: storage.NowMillis(),
	})
}

// janitor periodically pops due keys off the expiry index and evicts
// them.
func (m *memoryImpl) janitor() {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.heapMu.Lock()
			due := m.heap.PopExpired(storage.NowMillis())
			m.heapMu.Unlock()

			for _, key := range due {
				if env, ok := m.shardFor(key).Load(key); ok && expired(env, storage.NowMillis()) {
					m.evict(key, env)
				}
			}
		}
	}
}

// Close stops the janitor. Close is idempotent; the adapter can be
// re-initialized afterwards.
func (m *memoryImpl) Close() error {
	if m.running.CompareAndSwap(true, false) {
		close(m.stop)
		m.stop = make(chan struct{})
	}
	m.initialized.Store(false)
	return nil
}
