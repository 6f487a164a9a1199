package bolt

import (
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/aoneahsan/strata-storage/lib/codec"
	"github.com/aoneahsan/strata-storage/lib/query"
	"github.com/aoneahsan/strata-storage/lib/storage"
	"github.com/aoneahsan/strata-storage/lib/storage/util"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	// fileName of the database inside the configured directory
	fileName = "strata.bolt"

	defaultBucket = "default"

	// openTimeout bounds the wait for the file lock held by another
	// process
	openTimeout = time.Second
)

// --------------------------------------------------------------------------
// Core adapter structure
// --------------------------------------------------------------------------

// boltImpl stores codec-encoded envelopes in a single-file B+tree. One
// bucket per namespace keeps multiple stores sharing the file isolated.
type boltImpl struct {
	db     *bbolt.DB
	codec  codec.Codec
	bucket []byte

	initialized atomic.Bool
}

// New creates a bolt adapter. The database location is taken from the
// Config passed to Initialize.
func New() storage.Adapter {
	return &boltImpl{}
}

// --------------------------------------------------------------------------
// Identity and Capabilities
// --------------------------------------------------------------------------

func (a *boltImpl) Name() storage.Type {
	return storage.TypeIndexedDB
}

func (a *boltImpl) Capabilities() storage.Capabilities {
	return storage.Capabilities{
		Persistent: true,
		Queryable:  true,
		MaxSize:    storage.Unbounded,
	}
}

func (a *boltImpl) Available() (bool, string) {
	return true, ""
}

// Initialize opens (or creates) the database file and the namespace
// bucket.
func (a *boltImpl) Initialize(cfg storage.Config) error {
	if cfg.Path == "" {
		return storage.NewError(storage.ErrCodeStorage, "bolt adapter requires a path")
	}

	c, err := codec.Get(cfg.Codec)
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.Path, fileName)
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: openTimeout})
	if err != nil {
		return storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("cannot open database %q", path), err)
	}

	bucket := cfg.Namespace
	if bucket == "" {
		bucket = defaultBucket
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		db.Close()
		return storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("cannot create bucket %q", bucket), err)
	}

	a.db = db
	a.codec = c
	a.bucket = []byte(bucket)
	a.initialized.Store(true)
	return nil
}

func (a *boltImpl) ensureInit() error {
	if !a.initialized.Load() {
		return storage.NewError(storage.ErrCodeStorage, "bolt adapter not initialized")
	}
	return nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get loads the envelope for a key. An expired entry is deleted in a
// follow-up write transaction and reported as missing.
func (a *boltImpl) Get(key string) (*storage.Envelope, bool, error) {
	if err := a.ensureInit(); err != nil {
		return nil, false, err
	}

	var env *storage.Envelope
	err := a.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(a.bucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		var e storage.Envelope
		if err := a.codec.Decode(data, &e); err != nil {
			return storage.WrapError(storage.ErrCodeSerialization, fmt.Sprintf("stored envelope for key %q is corrupt", key), err)
		}
		env = &e
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if env == nil {
		return nil, false, nil
	}

	if expired(env) {
		if err := a.Remove(key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return env, true, nil
}

func (a *boltImpl) Has(key string) (bool, error) {
	_, found, err := a.Get(key)
	return found, err
}

// Keys lists live keys, optionally filtered with glob semantics.
// Expired entries are skipped but not deleted; eviction happens on Get
// or through the sweeper.
func (a *boltImpl) Keys(pattern string) ([]string, error) {
	if err := a.ensureInit(); err != nil {
		return nil, err
	}

	var keys []string
	err := a.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(a.bucket).ForEach(func(k, v []byte) error {
			var env storage.Envelope
			if err := a.codec.Decode(v, &env); err != nil {
				return storage.WrapError(storage.ErrCodeSerialization, fmt.Sprintf("stored envelope for key %q is corrupt", k), err)
			}
			if expired(&env) {
				return nil
			}
			key := string(k)
			if pattern == "" || util.MatchPattern(pattern, key) {
				keys = append(keys, key)
			}
			return nil
		})
	})
	return keys, err
}

// Size reports the live entry count and the encoded envelope bytes.
func (a *boltImpl) Size() (storage.SizeInfo, error) {
	if err := a.ensureInit(); err != nil {
		return storage.SizeInfo{}, err
	}

	var info storage.SizeInfo
	err := a.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(a.bucket).ForEach(func(k, v []byte) error {
			var env storage.Envelope
			if err := a.codec.Decode(v, &env); err != nil {
				return nil // skip corrupt entries in the size estimate
			}
			if expired(&env) {
				return nil
			}
			info.Count++
			info.Bytes += int64(len(v))
			return nil
		})
	})
	return info, err
}

// Query full-scans the bucket and matches each envelope against the
// condition tree.
func (a *boltImpl) Query(cond map[string]any) ([]string, error) {
	if err := a.ensureInit(); err != nil {
		return nil, err
	}

	var matched []string
	err := a.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(a.bucket).ForEach(func(k, v []byte) error {
			var env storage.Envelope
			if err := a.codec.Decode(v, &env); err != nil {
				return storage.WrapError(storage.ErrCodeSerialization, fmt.Sprintf("stored envelope for key %q is corrupt", k), err)
			}
			if expired(&env) {
				return nil
			}
			if query.MatchesEnvelope(&env, cond) {
				matched = append(matched, string(k))
			}
			return nil
		})
	})
	return matched, err
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

func (a *boltImpl) Set(key string, env *storage.Envelope) error {
	if err := a.ensureInit(); err != nil {
		return err
	}

	data, err := a.codec.Encode(env)
	if err != nil {
		return storage.WrapError(storage.ErrCodeSerialization, fmt.Sprintf("envelope for key %q cannot be encoded", key), err)
	}

	err = a.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(a.bucket).Put([]byte(key), data)
	})
	if err != nil {
		return storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("write of key %q failed", key), err)
	}
	return nil
}

func (a *boltImpl) Remove(key string) error {
	if err := a.ensureInit(); err != nil {
		return err
	}

	err := a.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(a.bucket).Delete([]byte(key))
	})
	if err != nil {
		return storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("remove of key %q failed", key), err)
	}
	return nil
}

// Clear drops and recreates the namespace bucket.
func (a *boltImpl) Clear() error {
	if err := a.ensureInit(); err != nil {
		return err
	}

	err := a.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(a.bucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(a.bucket)
		return err
	})
	if err != nil {
		return storage.WrapError(storage.ErrCodeStorage, "clear failed", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Optional Capabilities and Lifecycle
// --------------------------------------------------------------------------

// Subscribe is not supported: bbolt offers no change notification.
func (a *boltImpl) Subscribe(func(storage.ChangeEvent)) (func(), error) {
	return nil, storage.NewNotSupported(storage.TypeIndexedDB, "Subscribe")
}

func expired(env *storage.Envelope) bool {
	return env.Expires != 0 && env.Expires <= storage.NowMillis()
}

// Close releases the database file. Close is idempotent.
func (a *boltImpl) Close() error {
	if !a.initialized.CompareAndSwap(true, false) {
		return nil
	}
	if err := a.db.Close(); err != nil {
		return storage.WrapError(storage.ErrCodeStorage, "close failed", err)
	}
	return nil
}
