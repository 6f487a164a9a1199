package fs

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aoneahsan/strata-storage/lib/codec"
	"github.com/aoneahsan/strata-storage/lib/query"
	"github.com/aoneahsan/strata-storage/lib/storage"
	"github.com/aoneahsan/strata-storage/lib/storage/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// fileExt marks files owned by this adapter; foreign files in the
	// root directory are ignored
	fileExt = ".strata"

	dirPerm  = 0o755
	filePerm = 0o644
)

// --------------------------------------------------------------------------
// Core adapter structure
// --------------------------------------------------------------------------

// fsImpl stores one codec-encoded envelope file per key under a root
// directory. Key names are percent-escaped into filenames so any key
// string round-trips losslessly.
type fsImpl struct {
	root  string
	codec codec.Codec

	// mu serializes directory-wide operations (Clear, Keys) against
	// single-key writes
	mu sync.RWMutex

	subMu  sync.RWMutex
	subs   map[uint64]func(storage.ChangeEvent)
	nextID atomic.Uint64

	initialized atomic.Bool
}

// New creates a filesystem adapter. The root directory is taken from the
// Config passed to Initialize.
func New() storage.Adapter {
	return &fsImpl{
		subs: make(map[uint64]func(storage.ChangeEvent)),
	}
}

// --------------------------------------------------------------------------
// Identity and Capabilities
// --------------------------------------------------------------------------

func (f *fsImpl) Name() storage.Type {
	return storage.TypeFilesystem
}

func (f *fsImpl) Capabilities() storage.Capabilities {
	return storage.Capabilities{
		Persistent: true,
		Observable: true,
		Queryable:  true,
		MaxSize:    storage.Unbounded,
	}
}

func (f *fsImpl) Available() (bool, string) {
	return true, ""
}

// Initialize creates the root directory and resolves the envelope codec.
// The directory is cfg.Path (default: a per-user data dir) plus the
// namespace.
func (f *fsImpl) Initialize(cfg storage.Config) error {
	base := cfg.Path
	if base == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return storage.WrapError(storage.ErrCodeStorage, "no usable data directory", err)
		}
		base = filepath.Join(dir, "strata-storage")
	}
	if cfg.Namespace != "" {
		base = filepath.Join(base, cfg.Namespace)
	}

	if err := os.MkdirAll(base, dirPerm); err != nil {
		return storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("cannot create root directory %q", base), err)
	}

	c, err := codec.Get(cfg.Codec)
	if err != nil {
		return err
	}

	f.root = base
	f.codec = c
	f.initialized.Store(true)
	return nil
}

func (f *fsImpl) ensureInit() error {
	if !f.initialized.Load() {
		return storage.NewError(storage.ErrCodeStorage, "filesystem adapter not initialized")
	}
	return nil
}

// --------------------------------------------------------------------------
// Key <-> Filename Mapping
// --------------------------------------------------------------------------

// encodeKey turns a key into a safe filename. Percent-escaping keeps
// typical keys readable ("user:1" becomes "user%3A1.strata") while
// arbitrary bytes still round-trip.
func encodeKey(key string) string {
	return url.QueryEscape(key) + fileExt
}

// decodeKey reverses encodeKey. The boolean is false for files this
// adapter does not own.
func decodeKey(name string) (string, bool) {
	if !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	key, err := url.QueryUnescape(strings.TrimSuffix(name, fileExt))
	if err != nil {
		return "", false
	}
	return key, true
}

func (f *fsImpl) pathFor(key string) string {
	return filepath.Join(f.root, encodeKey(key))
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// readEnvelope loads and decodes one envelope file. A missing file is
// found=false, not an error.
func (f *fsImpl) readEnvelope(key string) (*storage.Envelope, bool, error) {
	data, err := os.ReadFile(f.pathFor(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("read of key %q failed", key), err)
	}

	var env storage.Envelope
	if err := f.codec.Decode(data, &env); err != nil {
		return nil, false, storage.WrapError(storage.ErrCodeSerialization, fmt.Sprintf("stored envelope for key %q is corrupt", key), err)
	}
	return &env, true, nil
}

// Get loads the envelope for a key. Expired entries are deleted on
// sight and reported as missing.
func (f *fsImpl) Get(key string) (*storage.Envelope, bool, error) {
	if err := f.ensureInit(); err != nil {
		return nil, false, err
	}

	f.mu.RLock()
	env, found, err := f.readEnvelope(key)
	f.mu.RUnlock()
	if err != nil || !found {
		return nil, false, err
	}

	if expired(env) {
		if err := f.removeExpired(key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return env, true, nil
}

func (f *fsImpl) Has(key string) (bool, error) {
	if err := f.ensureInit(); err != nil {
		return false, err
	}

	_, found, err := f.Get(key)
	return found, err
}

// Keys lists live keys, optionally filtered with glob semantics.
func (f *fsImpl) Keys(pattern string) ([]string, error) {
	if err := f.ensureInit(); err != nil {
		return nil, err
	}

	keys, err := f.liveKeys()
	if err != nil {
		return nil, err
	}

	if pattern == "" {
		return keys, nil
	}
	filtered := keys[:0]
	for _, key := range keys {
		if util.MatchPattern(pattern, key) {
			filtered = append(filtered, key)
		}
	}
	return filtered, nil
}

// liveKeys scans the root directory and returns every non-expired key.
func (f *fsImpl) liveKeys() ([]string, error) {
	f.mu.RLock()
	entries, err := os.ReadDir(f.root)
	f.mu.RUnlock()
	if err != nil {
		return nil, storage.WrapError(storage.ErrCodeStorage, "directory listing failed", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		key, ok := decodeKey(entry.Name())
		if !ok {
			continue
		}

		env, found, err := f.Get(key) // handles expiry
		if err != nil {
			return nil, err
		}
		if found && env != nil {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Size reports the entry count and the on-disk bytes of the envelope
// files.
func (f *fsImpl) Size() (storage.SizeInfo, error) {
	if err := f.ensureInit(); err != nil {
		return storage.SizeInfo{}, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.root)
	if err != nil {
		return storage.SizeInfo{}, storage.WrapError(storage.ErrCodeStorage, "directory listing failed", err)
	}

	var info storage.SizeInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := decodeKey(entry.Name()); !ok {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		info.Count++
		info.Bytes += fi.Size()
	}
	return info, nil
}

// Query full-scans the directory and matches each envelope against the
// condition tree.
func (f *fsImpl) Query(cond map[string]any) ([]string, error) {
	if err := f.ensureInit(); err != nil {
		return nil, err
	}

	keys, err := f.liveKeys()
	if err != nil {
		return nil, err
	}

	var matched []string
	for _, key := range keys {
		env, found, err := f.Get(key)
		if err != nil {
			return nil, err
		}
		if found && query.MatchesEnvelope(env, cond) {
			matched = append(matched, key)
		}
	}
	return matched, nil
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Set encodes the envelope and writes it atomically (temp file plus
// rename), so a crash mid-write never leaves a torn envelope behind.
func (f *fsImpl) Set(key string, env *storage.Envelope) error {
	if err := f.ensureInit(); err != nil {
		return err
	}

	data, err := f.codec.Encode(env)
	if err != nil {
		return storage.WrapError(storage.ErrCodeSerialization, fmt.Sprintf("envelope for key %q cannot be encoded", key), err)
	}

	f.mu.RLock()
	err = atomicWrite(f.pathFor(key), data)
	f.mu.RUnlock()
	if err != nil {
		return storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("write of key %q failed", key), err)
	}

	f.emit(storage.ChangeEvent{
		Type:      storage.EventSet,
		Key:       key,
		Value:     env.Clone(),
		Storage:   storage.TypeFilesystem,
		Timestamp: storage.NowMillis(),
	})
	return nil
}

// atomicWrite writes data to a sibling temp file and renames it over the
// target.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Remove deletes a key. Removing an absent key is a no-op.
func (f *fsImpl) Remove(key string) error {
	if err := f.ensureInit(); err != nil {
		return err
	}

	f.mu.RLock()
	err := os.Remove(f.pathFor(key))
	f.mu.RUnlock()

	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("remove of key %q failed", key), err)
	}

	f.emit(storage.ChangeEvent{
		Type:      storage.EventRemove,
		Key:       key,
		Storage:   storage.TypeFilesystem,
		Timestamp: storage.NowMillis(),
	})
	return nil
}

// removeExpired deletes an expired envelope file and notifies
// subscribers with an expired event instead of a remove event.
func (f *fsImpl) removeExpired(key string) error {
	f.mu.RLock()
	err := os.Remove(f.pathFor(key))
	f.mu.RUnlock()

	if err != nil && !os.IsNotExist(err) {
		return storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("eviction of key %q failed", key), err)
	}
	if err == nil {
		f.emit(storage.ChangeEvent{
			Type:      storage.EventExpired,
			Key:       key,
			Storage:   storage.TypeFilesystem,
			Timestamp: storage.NowMillis(),
		})
	}
	return nil
}

// Clear deletes every envelope file owned by this adapter. Foreign files
// in the directory are left alone.
func (f *fsImpl) Clear() error {
	if err := f.ensureInit(); err != nil {
		return err
	}

	f.mu.Lock()
	entries, err := os.ReadDir(f.root)
	if err != nil {
		f.mu.Unlock()
		return storage.WrapError(storage.ErrCodeStorage, "directory listing failed", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := decodeKey(entry.Name()); !ok {
			continue
		}
		if err := os.Remove(filepath.Join(f.root, entry.Name())); err != nil && !os.IsNotExist(err) {
			f.mu.Unlock()
			return storage.WrapError(storage.ErrCodeStorage, "clear failed", err)
		}
	}
	f.mu.Unlock()

	f.emit(storage.ChangeEvent{
		Type:      storage.EventClear,
		Storage:   storage.TypeFilesystem,
		Timestamp: storage.NowMillis(),
	})
	return nil
}

// --------------------------------------------------------------------------
// Subscriptions
// --------------------------------------------------------------------------

// Subscribe registers a callback for change events from this adapter
// instance. Writes by other processes sharing the directory are not
// observed.
func (f *fsImpl) Subscribe(fn func(storage.ChangeEvent)) (func(), error) {
	id := f.nextID.Add(1)

	f.subMu.Lock()
	f.subs[id] = fn
	f.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.subMu.Lock()
			delete(f.subs, id)
			f.subMu.Unlock()
		})
	}, nil
}

func (f *fsImpl) emit(event storage.ChangeEvent) {
	f.subMu.RLock()
	defer f.subMu.RUnlock()
	for _, fn := range f.subs {
		fn(event)
	}
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func expired(env *storage.Envelope) bool {
	return env.Expires != 0 && env.Expires <= storage.NowMillis()
}

// Close marks the adapter uninitialized. Files stay on disk; a later
// Initialize with the same path sees them again.
func (f *fsImpl) Close() error {
	f.initialized.Store(false)
	return nil
}
