package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sync/atomic"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/aoneahsan/strata-storage/lib/codec"
	"github.com/aoneahsan/strata-storage/lib/query"
	"github.com/aoneahsan/strata-storage/lib/storage"
	"github.com/aoneahsan/strata-storage/lib/storage/util"
)

// --------------------------------------------------------------------------
// Constants and Schema
// --------------------------------------------------------------------------

const (
	// fileName of the database inside the configured directory
	fileName = "strata.sqlite"

	defaultNamespace = "default"

	// schema: the expires column mirrors the envelope deadline so that
	// listings and eviction can filter without decoding blobs
	schema = `
		CREATE TABLE IF NOT EXISTS kv (
			ns       TEXT    NOT NULL,
			key      TEXT    NOT NULL,
			envelope BLOB    NOT NULL,
			expires  INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (ns, key)
		);
		CREATE INDEX IF NOT EXISTS kv_expires ON kv (ns, expires) WHERE expires > 0;
	`
)

// --------------------------------------------------------------------------
// Core adapter structure
// --------------------------------------------------------------------------

// sqliteImpl stores codec-encoded envelopes in a single sqlite table
// keyed by (namespace, key).
type sqliteImpl struct {
	db    *sql.DB
	codec codec.Codec
	ns    string

	initialized atomic.Bool
}

// New creates a sqlite adapter. The database location is taken from the
// Config passed to Initialize.
func New() storage.Adapter {
	return &sqliteImpl{}
}

// --------------------------------------------------------------------------
// Identity and Capabilities
// --------------------------------------------------------------------------

func (a *sqliteImpl) Name() storage.Type {
	return storage.TypeSQLite
}

func (a *sqliteImpl) Capabilities() storage.Capabilities {
	return storage.Capabilities{
		Persistent: true,
		Queryable:  true,
		MaxSize:    storage.Unbounded,
	}
}

func (a *sqliteImpl) Available() (bool, string) {
	return true, ""
}

// Initialize opens (or creates) the database file and ensures the
// schema.
func (a *sqliteImpl) Initialize(cfg storage.Config) error {
	if cfg.Path == "" {
		return storage.NewError(storage.ErrCodeStorage, "sqlite adapter requires a path")
	}

	c, err := codec.Get(cfg.Codec)
	if err != nil {
		return err
	}

	path := filepath.Join(cfg.Path, fileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("cannot open database %q", path), err)
	}

	// sqlite allows one writer; a single connection avoids SQLITE_BUSY
	// under concurrent use
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return storage.WrapError(storage.ErrCodeStorage, "schema setup failed", err)
	}

	ns := cfg.Namespace
	if ns == "" {
		ns = defaultNamespace
	}

	a.db = db
	a.codec = c
	a.ns = ns
	a.initialized.Store(true)
	return nil
}

func (a *sqliteImpl) ensureInit() error {
	if !a.initialized.Load() {
		return storage.NewError(storage.ErrCodeStorage, "sqlite adapter not initialized")
	}
	return nil
}

// --------------------------------------------------------------------------
// Read Operations
// --------------------------------------------------------------------------

// Get loads the envelope for a key. Expired rows are deleted on sight
// and reported as missing.
func (a *sqliteImpl) Get(key string) (*storage.Envelope, bool, error) {
	if err := a.ensureInit(); err != nil {
		return nil, false, err
	}

	var data []byte
	err := a.db.QueryRow(
		`SELECT envelope FROM kv WHERE ns = ? AND key = ?`, a.ns, key,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("read of key %q failed", key), err)
	}

	var env storage.Envelope
	if err := a.codec.Decode(data, &env); err != nil {
		return nil, false, storage.WrapError(storage.ErrCodeSerialization, fmt.Sprintf("stored envelope for key %q is corrupt", key), err)
	}

	if expired(&env) {
		if err := a.Remove(key); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return &env, true, nil
}

// Has checks existence using the indexed expires column, no blob decode.
func (a *sqliteImpl) Has(key string) (bool, error) {
	if err := a.ensureInit(); err != nil {
		return false, err
	}

	var one int
	err := a.db.QueryRow(
		`SELECT 1 FROM kv WHERE ns = ? AND key = ? AND (expires = 0 OR expires > ?)`,
		a.ns, key, storage.NowMillis(),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("lookup of key %q failed", key), err)
	}
	return true, nil
}

// Keys lists live keys, optionally filtered with glob semantics. The
// expires column keeps dead rows out of the scan; the glob runs in Go so
// pattern semantics stay identical across adapters.
func (a *sqliteImpl) Keys(pattern string) ([]string, error) {
	if err := a.ensureInit(); err != nil {
		return nil, err
	}

	rows, err := a.db.Query(
		`SELECT key FROM kv WHERE ns = ? AND (expires = 0 OR expires > ?)`,
		a.ns, storage.NowMillis(),
	)
	if err != nil {
		return nil, storage.WrapError(storage.ErrCodeStorage, "key listing failed", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, storage.WrapError(storage.ErrCodeStorage, "key listing failed", err)
		}
		if pattern == "" || util.MatchPattern(pattern, key) {
			keys = append(keys, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError(storage.ErrCodeStorage, "key listing failed", err)
	}
	return keys, nil
}

// Size reports the live entry count and the summed blob bytes.
func (a *sqliteImpl) Size() (storage.SizeInfo, error) {
	if err := a.ensureInit(); err != nil {
		return storage.SizeInfo{}, err
	}

	var info storage.SizeInfo
	err := a.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(LENGTH(envelope)), 0)
		 FROM kv WHERE ns = ? AND (expires = 0 OR expires > ?)`,
		a.ns, storage.NowMillis(),
	).Scan(&info.Count, &info.Bytes)
	if err != nil {
		return storage.SizeInfo{}, storage.WrapError(storage.ErrCodeStorage, "size query failed", err)
	}
	return info, nil
}

// Query scans the live rows and matches each decoded envelope against
// the condition tree.
func (a *sqliteImpl) Query(cond map[string]any) ([]string, error) {
	if err := a.ensureInit(); err != nil {
		return nil, err
	}

	rows, err := a.db.Query(
		`SELECT key, envelope FROM kv WHERE ns = ? AND (expires = 0 OR expires > ?)`,
		a.ns, storage.NowMillis(),
	)
	if err != nil {
		return nil, storage.WrapError(storage.ErrCodeStorage, "query scan failed", err)
	}
	defer rows.Close()

	var matched []string
	for rows.Next() {
		var key string
		var data []byte
		if err := rows.Scan(&key, &data); err != nil {
			return nil, storage.WrapError(storage.ErrCodeStorage, "query scan failed", err)
		}
		var env storage.Envelope
		if err := a.codec.Decode(data, &env); err != nil {
			return nil, storage.WrapError(storage.ErrCodeSerialization, fmt.Sprintf("stored envelope for key %q is corrupt", key), err)
		}
		if query.MatchesEnvelope(&env, cond) {
			matched = append(matched, key)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storage.WrapError(storage.ErrCodeStorage, "query scan failed", err)
	}
	return matched, nil
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

func (a *sqliteImpl) Set(key string, env *storage.Envelope) error {
	if err := a.ensureInit(); err != nil {
		return err
	}

	data, err := a.codec.Encode(env)
	if err != nil {
		return storage.WrapError(storage.ErrCodeSerialization, fmt.Sprintf("envelope for key %q cannot be encoded", key), err)
	}

	_, err = a.db.Exec(
		`INSERT INTO kv (ns, key, envelope, expires) VALUES (?, ?, ?, ?)
		 ON CONFLICT (ns, key) DO UPDATE SET envelope = excluded.envelope, expires = excluded.expires`,
		a.ns, key, data, env.Expires,
	)
	if err != nil {
		return storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("write of key %q failed", key), err)
	}
	return nil
}

func (a *sqliteImpl) Remove(key string) error {
	if err := a.ensureInit(); err != nil {
		return err
	}

	if _, err := a.db.Exec(`DELETE FROM kv WHERE ns = ? AND key = ?`, a.ns, key); err != nil {
		return storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("remove of key %q failed", key), err)
	}
	return nil
}

// Clear removes every row of this namespace.
func (a *sqliteImpl) Clear() error {
	if err := a.ensureInit(); err != nil {
		return err
	}

	if _, err := a.db.Exec(`DELETE FROM kv WHERE ns = ?`, a.ns); err != nil {
		return storage.WrapError(storage.ErrCodeStorage, "clear failed", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Optional Capabilities and Lifecycle
// --------------------------------------------------------------------------

// Subscribe is not supported: sqlite has no change notification across
// connections.
func (a *sqliteImpl) Subscribe(func(storage.ChangeEvent)) (func(), error) {
	return nil, storage.NewNotSupported(storage.TypeSQLite, "Subscribe")
}

func expired(env *storage.Envelope) bool {
	return env.Expires != 0 && env.Expires <= storage.NowMillis()
}

// Close releases the database handle. Close is idempotent.
func (a *sqliteImpl) Close() error {
	if !a.initialized.CompareAndSwap(true, false) {
		return nil
	}
	if err := a.db.Close(); err != nil {
		return storage.WrapError(storage.ErrCodeStorage, "close failed", err)
	}
	return nil
}
