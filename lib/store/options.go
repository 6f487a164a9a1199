package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/aoneahsan/strata-storage/lib/storage"
	"github.com/aoneahsan/strata-storage/lib/strategy"
)

// --------------------------------------------------------------------------
// Store Configuration
// --------------------------------------------------------------------------

// Config is the global store configuration. Per-operation options can
// override most of it; the config supplies the defaults.
type Config struct {
	// Namespace isolates this store's keys on shared backends
	Namespace string

	// Path is the directory disk-backed adapters store their files in
	Path string

	// Codec names the envelope serializer for byte-oriented adapters
	// ("json", "gob", "binary"; empty = binary)
	Codec string

	// DefaultStorage pins all operations to one backend. Empty means the
	// selection strategy decides per operation.
	DefaultStorage storage.Type

	// Policy is the ranking policy used when no backend is pinned
	Policy strategy.Policy

	// Preferred restricts strategy selection to these backend kinds
	Preferred []storage.Type

	// ChainLength is the number of fallback candidates tried when a
	// selected backend turns out to be unavailable (0 = 3)
	ChainLength int

	// Password is the default encryption password. Required when Encrypt
	// is set or an operation requests encryption without its own password.
	Password string

	// Encrypt turns on encryption for every write by default
	Encrypt bool

	// Compress turns on compression for every write by default
	Compress bool

	// Compression selects the algorithm, "gzip" (default) or "s2"
	Compression string

	// CompressionThreshold is the minimum payload size in bytes worth
	// compressing (0 = compressor default)
	CompressionThreshold int

	// SweepInterval is the pause between background expiry sweeps
	// (0 = the TTL manager default of 60s)
	SweepInterval time.Duration
}

// String returns a human-readable multi-line representation of the
// configuration. Secrets are redacted.
func (c Config) String() string {
	var sb strings.Builder

	sb.WriteString("Store Configuration:\n")
	sb.WriteString("  General:\n")
	sb.WriteString(fmt.Sprintf("    Namespace:      %s\n", defaultStr(c.Namespace, "(none)")))
	sb.WriteString(fmt.Sprintf("    Path:           %s\n", defaultStr(c.Path, "(adapter default)")))
	sb.WriteString(fmt.Sprintf("    Codec:          %s\n", defaultStr(c.Codec, "binary")))
	sb.WriteString("  Selection:\n")
	sb.WriteString(fmt.Sprintf("    DefaultStorage: %s\n", defaultStr(string(c.DefaultStorage), "(strategy)")))
	sb.WriteString(fmt.Sprintf("    Policy:         %s\n", strategy.ParsePolicy(string(c.Policy))))
	sb.WriteString(fmt.Sprintf("    ChainLength:    %d\n", c.chainLength()))
	sb.WriteString("  Pipeline:\n")
	sb.WriteString(fmt.Sprintf("    Encrypt:        %t\n", c.Encrypt))
	sb.WriteString(fmt.Sprintf("    Password:       %s\n", redact(c.Password)))
	sb.WriteString(fmt.Sprintf("    Compress:       %t\n", c.Compress))

	return sb.String()
}

func (c Config) chainLength() int {
	if c.ChainLength > 0 {
		return c.ChainLength
	}
	return 3
}

func defaultStr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func redact(secret string) string {
	if secret == "" {
		return "(unset)"
	}
	return "********"
}

// --------------------------------------------------------------------------
// Per-Operation Options
// --------------------------------------------------------------------------

// SetOptions control one write.
type SetOptions struct {
	// Storage overrides the backend for this write
	Storage storage.Type

	// TTL expires the entry this long after the write. Wins over ExpireAt.
	TTL time.Duration

	// ExpireAt is an absolute expiry in epoch milliseconds
	ExpireAt int64

	// Encrypt overrides the global encryption default (nil = inherit)
	Encrypt *bool

	// Password overrides the global password for this write
	Password string

	// Compress overrides the global compression default (nil = inherit)
	Compress *bool

	// Tags and Metadata are stored on the envelope verbatim
	Tags     []string
	Metadata map[string]string
}

// GetOptions control one read.
type GetOptions struct {
	// Storage overrides the backend for this read
	Storage storage.Type

	// Sliding renews the entry's lease on a successful read
	Sliding bool

	// TTL is the lease used for a sliding renewal. Zero derives the
	// original lease length from the envelope.
	TTL time.Duration

	// Password overrides the global password for this read
	Password string

	// IgnoreDecryptionErrors returns a miss instead of propagating a
	// decryption failure. This is the only place such errors may be
	// swallowed.
	IgnoreDecryptionErrors bool
}

// QueryOptions control one query.
type QueryOptions struct {
	// Storage overrides the backend for this query
	Storage storage.Type

	// Envelope matches conditions against the storage envelope (tags,
	// metadata, timestamps) instead of the decoded value
	Envelope bool
}

// Bool builds the *bool override used in SetOptions.
func Bool(v bool) *bool { return &v }
