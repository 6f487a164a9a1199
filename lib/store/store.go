package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/aoneahsan/strata-storage/lib/broadcast"
	"github.com/aoneahsan/strata-storage/lib/logger"
	"github.com/aoneahsan/strata-storage/lib/query"
	"github.com/aoneahsan/strata-storage/lib/registry"
	"github.com/aoneahsan/strata-storage/lib/storage"
	"github.com/aoneahsan/strata-storage/lib/storage/adapters/bolt"
	"github.com/aoneahsan/strata-storage/lib/storage/adapters/fs"
	"github.com/aoneahsan/strata-storage/lib/storage/adapters/memory"
	"github.com/aoneahsan/strata-storage/lib/storage/adapters/sqlite"
	"github.com/aoneahsan/strata-storage/lib/strategy"
	"github.com/aoneahsan/strata-storage/lib/transform"
	"github.com/aoneahsan/strata-storage/lib/transform/compress"
	"github.com/aoneahsan/strata-storage/lib/transform/crypto"
	"github.com/aoneahsan/strata-storage/lib/ttl"
)

// --------------------------------------------------------------------------
// Store
// --------------------------------------------------------------------------

// Store is the orchestration layer: one logical key-value store backed
// by interchangeable physical backends. It selects a backend per
// operation, runs the value pipeline (compression, encryption, expiry
// annotation) around every read and write, and fans change events out
// to subscribers.
type Store struct {
	cfg Config

	registry   *registry.Registry
	ttl        *ttl.Manager
	compressor transform.Compressor
	encryptor  transform.Encryptor
	bcast      broadcast.Broadcaster
	log        *logger.Logger
}

// New creates a store with the built-in reference adapters registered.
// The adapters stay uninitialized until first use.
func New(cfg Config) *Store {
	reg := registry.New()
	reg.Register(memory.New(nil))
	reg.Register(fs.New())
	reg.Register(bolt.New())
	reg.Register(sqlite.New())
	return NewWithRegistry(cfg, reg)
}

// NewWithRegistry creates a store over a caller-assembled registry.
func NewWithRegistry(cfg Config, reg *registry.Registry) *Store {
	compressor := compress.NewGzipCompressor(0, cfg.CompressionThreshold)
	if cfg.Compression == "s2" {
		compressor = compress.NewS2Compressor(cfg.CompressionThreshold)
	}

	s := &Store{
		cfg:        cfg,
		registry:   reg,
		ttl:        ttl.NewManager(cfg.SweepInterval),
		compressor: compressor,
		encryptor:  crypto.NewAESGCMEncryptor(),
		bcast:      broadcast.NewLocal(),
		log:        logger.New("store"),
	}

	s.ttl.StartAutoCleanup(s.sweepKeys, s.sweepGet, s.sweepRemove)
	return s
}

// Registry exposes the underlying adapter registry, mainly for
// registering additional adapters before first use.
func (s *Store) Registry() *registry.Registry {
	return s.registry
}

// Close stops the sweeper and the event delivery, then closes every
// initialized adapter.
func (s *Store) Close() error {
	s.ttl.StopAutoCleanup()
	s.bcast.Close()
	return s.registry.CloseAll()
}

// --------------------------------------------------------------------------
// Adapter Resolution
// --------------------------------------------------------------------------

// adapterConfig is the per-adapter Initialize configuration derived from
// the store config.
func (s *Store) adapterConfig() storage.Config {
	return storage.Config{
		Namespace: s.cfg.Namespace,
		Path:      s.cfg.Path,
		Codec:     s.cfg.Codec,
	}
}

// resolve picks the adapter for one operation: an explicitly requested
// backend wins, then the configured default, then the selection
// strategy. Strategy candidates that fail initialization with
// AdapterNotAvailable are skipped in favor of the next in the chain;
// every other failure propagates.
func (s *Store) resolve(requested storage.Type) (storage.Adapter, error) {
	if requested == "" {
		requested = s.cfg.DefaultStorage
	}
	if requested != "" {
		return s.registry.GetInitialized(requested, s.adapterConfig())
	}

	chain := strategy.AdapterChain(
		s.registry.Available(),
		strategy.ParsePolicy(string(s.cfg.Policy)),
		s.cfg.chainLength(),
		s.cfg.Preferred,
		nil,
	)

	var lastErr error
	for _, candidate := range chain {
		adapter, err := s.registry.GetInitialized(candidate.Name(), s.adapterConfig())
		if err != nil {
			if storage.IsNotAvailable(err) {
				s.log.Debugf("adapter %s unavailable, trying next in chain: %v", candidate.Name(), err)
				lastErr = err
				continue
			}
			return nil, err
		}
		return adapter, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, storage.NewError(storage.ErrCodeStorage, "no storage adapters available")
}

// --------------------------------------------------------------------------
// Write Path
// --------------------------------------------------------------------------

// Set stores a value under a key. The value is JSON-encoded, run
// through the write pipeline (compress, encrypt, expiry annotation) and
// handed to the resolved backend as an envelope.
func (s *Store) Set(key string, value any, opts SetOptions) error {
	adapter, err := s.resolve(opts.Storage)
	if err != nil {
		return err
	}

	env, err := s.buildEnvelope(adapter, key, value, opts)
	if err != nil {
		return err
	}

	if err := adapter.Set(key, env); err != nil {
		return err
	}

	metricSets.Inc()
	s.bcast.Broadcast(storage.ChangeEvent{
		Type:      storage.EventSet,
		Key:       key,
		Value:     env.Clone(),
		Storage:   adapter.Name(),
		Timestamp: storage.NowMillis(),
	})
	return nil
}

// Remove deletes a key from the resolved backend. Removing an absent
// key is a no-op and emits no event.
func (s *Store) Remove(key string, opts GetOptions) error {
	adapter, err := s.resolve(opts.Storage)
	if err != nil {
		return err
	}

	existed, err := adapter.Has(key)
	if err != nil {
		return err
	}
	if err := adapter.Remove(key); err != nil {
		return err
	}

	if existed {
		metricRemoves.Inc()
		s.bcast.Broadcast(storage.ChangeEvent{
			Type:      storage.EventRemove,
			Key:       key,
			Storage:   adapter.Name(),
			Timestamp: storage.NowMillis(),
		})
	}
	return nil
}

// --------------------------------------------------------------------------
// Read Path
// --------------------------------------------------------------------------

// Get loads a key and reverses the write pipeline: expiry check, then
// decrypt, then decompress, then JSON-decode. A missing or expired key
// returns found=false, not an error.
//
// When the stored payload is compressed but cannot be decompressed, the
// raw stored bytes are returned as the value instead of failing the
// read.
func (s *Store) Get(key string, opts GetOptions) (any, bool, error) {
	raw, found, err := s.load(key, opts)
	if err != nil || !found {
		return nil, false, err
	}
	if raw.degraded {
		return raw.data, true, nil
	}

	var value any
	if err := jsonDecode(raw.data, &value); err != nil {
		return nil, false, storage.WrapError(storage.ErrCodeSerialization, fmt.Sprintf("stored value for key %q is not valid JSON", key), err)
	}
	return value, true, nil
}

// GetInto loads a key and JSON-decodes the value into target, which
// must be a non-nil pointer.
func (s *Store) GetInto(key string, target any, opts GetOptions) (bool, error) {
	raw, found, err := s.load(key, opts)
	if err != nil || !found {
		return false, err
	}
	if raw.degraded {
		return false, storage.NewError(storage.ErrCodeSerialization, fmt.Sprintf("stored value for key %q is corrupt", key))
	}

	if err := jsonDecode(raw.data, target); err != nil {
		return false, storage.WrapError(storage.ErrCodeSerialization, fmt.Sprintf("value for key %q does not fit the target type", key), err)
	}
	return true, nil
}

// GetString loads a string value. Values of other types are returned in
// their JSON text form.
func (s *Store) GetString(key string, opts GetOptions) (string, bool, error) {
	raw, found, err := s.load(key, opts)
	if err != nil || !found {
		return "", false, err
	}
	if raw.degraded {
		return string(raw.data), true, nil
	}

	var str string
	if err := jsonDecode(raw.data, &str); err == nil {
		return str, true, nil
	}
	return string(raw.data), true, nil
}

// Has reports whether a live entry exists for the key.
func (s *Store) Has(key string, opts GetOptions) (bool, error) {
	env, _, err := s.liveEnvelope(key, opts)
	return env != nil, err
}

// --------------------------------------------------------------------------
// TTL Operations
// --------------------------------------------------------------------------

// TTL returns the remaining lease of the key. The second return is false
// when the key does not exist or never expires.
func (s *Store) TTL(key string, opts GetOptions) (time.Duration, bool, error) {
	env, _, err := s.liveEnvelope(key, opts)
	if err != nil || env == nil {
		return 0, false, err
	}
	remaining, has := s.ttl.TimeToLive(env)
	return remaining, has, nil
}

// ExtendTTL additively extends the key's lease by the given duration. A
// key without an expiry gets one relative to now. Extending an absent key
// is a no-op.
func (s *Store) ExtendTTL(key string, by time.Duration, opts GetOptions) error {
	env, adapter, err := s.liveEnvelope(key, opts)
	if err != nil || env == nil {
		return err
	}
	s.ttl.ExtendTTL(env, by)
	return adapter.Set(key, env)
}

// Persist removes the key's expiry so it never expires. Persisting an
// absent key is a no-op.
func (s *Store) Persist(key string, opts GetOptions) error {
	env, adapter, err := s.liveEnvelope(key, opts)
	if err != nil || env == nil {
		return err
	}
	if env.Expires == 0 {
		return nil
	}
	s.ttl.Persist(env)
	return adapter.Set(key, env)
}

// liveEnvelope loads the key's envelope from the resolved backend,
// treating an expired entry as absent (and deleting it).
func (s *Store) liveEnvelope(key string, opts GetOptions) (*storage.Envelope, storage.Adapter, error) {
	adapter, err := s.resolve(opts.Storage)
	if err != nil {
		return nil, nil, err
	}

	env, found, err := adapter.Get(key)
	if err != nil || !found {
		return nil, adapter, err
	}
	if s.ttl.IsExpired(env) {
		s.expire(adapter, key)
		return nil, adapter, nil
	}
	return env, adapter, nil
}

// --------------------------------------------------------------------------
// Bulk Operations
// --------------------------------------------------------------------------

// Keys lists the live keys of the resolved backend, optionally filtered
// with glob semantics.
func (s *Store) Keys(pattern string, opts GetOptions) ([]string, error) {
	adapter, err := s.resolve(opts.Storage)
	if err != nil {
		return nil, err
	}
	return adapter.Keys(pattern)
}

// Clear forgets everything. With a specific storage it clears that one
// backend; without, it clears every currently-open backend, because
// "clear" is a user-facing forget-everything operation.
func (s *Store) Clear(opts GetOptions) error {
	if opts.Storage != "" {
		adapter, err := s.resolve(opts.Storage)
		if err != nil {
			return err
		}
		if err := adapter.Clear(); err != nil {
			return err
		}
		s.emitClear(adapter.Name())
		return nil
	}

	for _, adapter := range s.registry.Initialized() {
		if err := adapter.Clear(); err != nil {
			return err
		}
		s.emitClear(adapter.Name())
	}
	return nil
}

func (s *Store) emitClear(name storage.Type) {
	s.bcast.Broadcast(storage.ChangeEvent{
		Type:      storage.EventClear,
		Storage:   name,
		Timestamp: storage.NowMillis(),
	})
}

// Size reports entry counts and byte usage. With a specific storage it
// reports that backend; without, it aggregates across every open
// backend.
func (s *Store) Size(opts GetOptions) (storage.SizeInfo, error) {
	if opts.Storage != "" {
		adapter, err := s.resolve(opts.Storage)
		if err != nil {
			return storage.SizeInfo{}, err
		}
		return adapter.Size()
	}

	var total storage.SizeInfo
	for _, adapter := range s.registry.Initialized() {
		info, err := adapter.Size()
		if err != nil {
			return storage.SizeInfo{}, err
		}
		total.Add(info)
	}
	return total, nil
}

// --------------------------------------------------------------------------
// Query
// --------------------------------------------------------------------------

// Query returns the keys whose entry matches the condition tree.
//
// With opts.Envelope the condition runs against the storage envelope
// (tags, metadata, timestamps); a queryable backend evaluates it
// natively, others fall back to a scan with the shared matcher. Without
// opts.Envelope the condition runs against the decoded values, which
// always requires the scan through the read pipeline.
func (s *Store) Query(cond query.Condition, opts QueryOptions) ([]string, error) {
	adapter, err := s.resolve(opts.Storage)
	if err != nil {
		return nil, err
	}

	metricQueries.Inc()

	if opts.Envelope {
		if adapter.Capabilities().Queryable {
			return adapter.Query(cond)
		}
		return s.scanEnvelopes(adapter, cond)
	}
	return s.scanValues(adapter, cond, GetOptions{Storage: adapter.Name()})
}

func (s *Store) scanEnvelopes(adapter storage.Adapter, cond query.Condition) ([]string, error) {
	keys, err := adapter.Keys("")
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, key := range keys {
		env, found, err := adapter.Get(key)
		if err != nil {
			return nil, err
		}
		if found && !s.ttl.IsExpired(env) && query.MatchesEnvelope(env, cond) {
			matched = append(matched, key)
		}
	}
	return matched, nil
}

func (s *Store) scanValues(adapter storage.Adapter, cond query.Condition, opts GetOptions) ([]string, error) {
	keys, err := adapter.Keys("")
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, key := range keys {
		value, found, err := s.Get(key, opts)
		if err != nil {
			return nil, err
		}
		if found && query.Matches(value, cond) {
			matched = append(matched, key)
		}
	}
	return matched, nil
}

// --------------------------------------------------------------------------
// Change Events
// --------------------------------------------------------------------------

// Subscribe registers a callback for every change event this store
// emits (including expiry evictions by the sweeper). The returned
// function cancels the subscription.
func (s *Store) Subscribe(fn func(storage.ChangeEvent)) func() {
	return s.bcast.Subscribe(fn)
}

// expire deletes an expired entry and announces the eviction.
func (s *Store) expire(adapter storage.Adapter, key string) {
	if err := adapter.Remove(key); err != nil {
		s.log.Warningf("evicting expired key %q from %s failed: %v", key, adapter.Name(), err)
		return
	}
	metricExpired.Inc()
	s.bcast.Broadcast(storage.ChangeEvent{
		Type:      storage.EventExpired,
		Key:       key,
		Storage:   adapter.Name(),
		Timestamp: storage.NowMillis(),
	})
}

// --------------------------------------------------------------------------
// Sweeper Wiring
// --------------------------------------------------------------------------

// Composite keys carry the backend kind through the backend-agnostic
// sweep callbacks. The separator cannot occur in a storage.Type.
const sweepSep = "\x00"

func (s *Store) sweepKeys() ([]string, error) {
	var keys []string
	for _, adapter := range s.registry.Initialized() {
		adapterKeys, err := adapter.Keys("")
		if err != nil {
			return nil, err
		}
		for _, key := range adapterKeys {
			keys = append(keys, string(adapter.Name())+sweepSep+key)
		}
	}
	return keys, nil
}

func (s *Store) sweepGet(composite string) (*storage.Envelope, bool, error) {
	name, key, ok := splitSweepKey(composite)
	if !ok {
		return nil, false, nil
	}
	adapter := s.registry.Get(name)
	if adapter == nil {
		return nil, false, nil
	}
	return adapter.Get(key)
}

func (s *Store) sweepRemove(composite string) error {
	name, key, ok := splitSweepKey(composite)
	if !ok {
		return nil
	}
	adapter := s.registry.Get(name)
	if adapter == nil {
		return nil
	}

	if err := adapter.Remove(key); err != nil {
		return err
	}
	metricExpired.Inc()
	s.bcast.Broadcast(storage.ChangeEvent{
		Type:      storage.EventExpired,
		Key:       key,
		Storage:   name,
		Timestamp: storage.NowMillis(),
	})
	return nil
}

func splitSweepKey(composite string) (storage.Type, string, bool) {
	idx := strings.Index(composite, sweepSep)
	if idx < 0 {
		return "", "", false
	}
	return storage.Type(composite[:idx]), composite[idx+1:], true
}
