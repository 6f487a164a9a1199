package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

// --------------------------------------------------------------------------
// Value Codec
// --------------------------------------------------------------------------

// Values are JSON text before the byte-level transformations run. JSON
// keeps arbitrary caller types storable and lets value-level queries
// see the decoded structure.

func jsonEncode(value any) ([]byte, error) {
	return json.Marshal(value)
}

func jsonDecode(data []byte, target any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(target)
}

// --------------------------------------------------------------------------
// Write Pipeline
// --------------------------------------------------------------------------

// buildEnvelope runs the write pipeline in its fixed order: encode,
// compress, encrypt, annotate expiry. The envelope records exactly
// which transformations were applied; the read path reverses them in
// the exact inverse order.
func (s *Store) buildEnvelope(adapter storage.Adapter, key string, value any, opts SetOptions) (*storage.Envelope, error) {
	payload, err := jsonEncode(value)
	if err != nil {
		return nil, storage.WrapError(storage.ErrCodeSerialization, fmt.Sprintf("value for key %q cannot be encoded", key), err)
	}

	// (1) compression, which may decline
	compressed := false
	if s.wantCompress(opts) {
		result, err := s.compressor.Compress(payload)
		if err != nil {
			return nil, storage.WrapError(storage.ErrCodeStorage, fmt.Sprintf("compressing value for key %q failed", key), err)
		}
		payload = result.Bytes()
		compressed = result.DidCompress()
	}

	// (2) encryption; requesting it without a password is a caller
	// error, never a silent skip
	encrypted := false
	if s.wantEncrypt(opts) {
		password := opts.Password
		if password == "" {
			password = s.cfg.Password
		}
		if password == "" {
			return nil, storage.NewError(storage.ErrCodeEncryption, fmt.Sprintf("encryption requested for key %q but no password configured", key))
		}
		payload, err = s.encryptor.Encrypt(payload, password)
		if err != nil {
			return nil, storage.WrapError(storage.ErrCodeEncryption, fmt.Sprintf("encrypting value for key %q failed", key), err)
		}
		encrypted = true
	}

	// (3) expiry annotation
	expires := s.ttl.CalculateExpiration(opts.TTL, opts.ExpireAt)

	// Created survives overwrites; only Updated moves
	now := storage.NowMillis()
	created := now
	if prior, found, err := adapter.Get(key); err == nil && found {
		created = prior.Created
	}

	return &storage.Envelope{
		Value:      payload,
		Created:    created,
		Updated:    now,
		Expires:    expires,
		Tags:       opts.Tags,
		Metadata:   opts.Metadata,
		Encrypted:  encrypted,
		Compressed: compressed,
	}, nil
}

func (s *Store) wantCompress(opts SetOptions) bool {
	if opts.Compress != nil {
		return *opts.Compress
	}
	return s.cfg.Compress
}

func (s *Store) wantEncrypt(opts SetOptions) bool {
	if opts.Encrypt != nil {
		return *opts.Encrypt
	}
	// an explicit per-write password implies encryption
	return s.cfg.Encrypt || opts.Password != ""
}

// --------------------------------------------------------------------------
// Read Pipeline
// --------------------------------------------------------------------------

// rawValue is the payload after the read pipeline ran. degraded marks
// the decompression-failure case where the raw stored bytes are handed
// through instead of a decoded value.
type rawValue struct {
	data     []byte
	degraded bool
}

// load resolves the adapter and reverses the write pipeline: expiry
// check, then decrypt, then decompress.
func (s *Store) load(key string, opts GetOptions) (rawValue, bool, error) {
	adapter, err := s.resolve(opts.Storage)
	if err != nil {
		return rawValue{}, false, err
	}

	metricGets.Inc()

	env, found, err := adapter.Get(key)
	if err != nil {
		return rawValue{}, false, err
	}
	if !found {
		metricMisses.Inc()
		return rawValue{}, false, nil
	}

	// (1) expired data is never returned, even once
	if s.ttl.IsExpired(env) {
		s.expire(adapter, key)
		metricMisses.Inc()
		return rawValue{}, false, nil
	}

	// sliding reads renew the lease before the value leaves the store
	if opts.Sliding && s.ttl.UpdateExpiration(env, opts.TTL) {
		if err := adapter.Set(key, env); err != nil {
			s.log.Warningf("persisting renewed lease for key %q failed: %v", key, err)
		}
	}

	payload := env.Value

	// (2) decrypt
	if env.Encrypted {
		password := opts.Password
		if password == "" {
			password = s.cfg.Password
		}
		if password == "" {
			return rawValue{}, false, storage.NewError(storage.ErrCodeEncryption, fmt.Sprintf("key %q is encrypted but no password configured", key))
		}

		plain, err := s.encryptor.Decrypt(payload, password)
		if err != nil {
			if opts.IgnoreDecryptionErrors {
				s.log.Warningf("ignoring decryption failure for key %q: %v", key, err)
				metricMisses.Inc()
				return rawValue{}, false, nil
			}
			return rawValue{}, false, storage.WrapError(storage.ErrCodeEncryption, fmt.Sprintf("decrypting key %q failed", key), err)
		}
		payload = plain
	}

	// (3) decompress; corruption degrades to the raw stored bytes
	// instead of failing the whole read
	if env.Compressed {
		plain, err := s.compressor.Decompress(payload)
		if err != nil {
			s.log.Warningf("decompressing key %q failed, returning raw bytes: %v", key, err)
			metricHits.Inc()
			return rawValue{data: payload, degraded: true}, true, nil
		}
		payload = plain
	}

	metricHits.Inc()
	return rawValue{data: payload}, true, nil
}
