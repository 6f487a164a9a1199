package storage

// --------------------------------------------------------------------------
// Backend Types
// --------------------------------------------------------------------------

// Type identifies a storage backend kind. The set of types is closed:
// selection strategies rank adapters by these constants, so an adapter
// must register under one of them.
type Type string

const (
	TypeMemory         Type = "memory"
	TypeLocalStorage   Type = "localstorage"
	TypeSessionStorage Type = "sessionstorage"
	TypeIndexedDB      Type = "indexeddb"
	TypeCookies        Type = "cookies"
	TypeCache          Type = "cache"
	TypeFilesystem     Type = "filesystem"
	TypeSQLite         Type = "sqlite"
	TypePreferences    Type = "preferences"
	TypeSecure         Type = "secure"
)

// --------------------------------------------------------------------------
// Capability Descriptor
// --------------------------------------------------------------------------

// Capabilities describes what an adapter supports. The descriptor is
// static per adapter and never mutated at runtime; it is used only for
// ranking, filtering and gating optional operations.
type Capabilities struct {
	// Persistent is true if data survives process restarts
	Persistent bool `json:"persistent"`
	// Encrypted is true if the backend provides its own at-rest encryption
	Encrypted bool `json:"encrypted"`
	// Synchronous is true if operations complete without real I/O suspension
	Synchronous bool `json:"synchronous"`
	// Observable is true if the adapter supports Subscribe
	Observable bool `json:"observable"`
	// Queryable is true if the adapter supports native Query
	Queryable bool `json:"queryable"`
	// MaxSize is the byte ceiling of the backend, -1 means unbounded
	MaxSize int64 `json:"max_size"`
}

// Unbounded is the MaxSize value for adapters without a byte ceiling.
const Unbounded int64 = -1

// --------------------------------------------------------------------------
// Adapter Configuration
// --------------------------------------------------------------------------

// Config holds the initialization parameters passed to an adapter.
// Not every field applies to every adapter; unused fields are ignored.
type Config struct {
	// Namespace prefixes all keys to isolate multiple stores sharing a backend
	Namespace string
	// Path is the file or directory used by disk-backed adapters
	Path string
	// Codec names the envelope serializer for byte-oriented adapters
	// (one of "json", "gob", "binary"; empty means the adapter default)
	Codec string
}

// --------------------------------------------------------------------------
// Size Reporting
// --------------------------------------------------------------------------

// SizeInfo reports the approximate size of an adapter's contents.
// Byte counts are estimates; a precise calculation can be expensive.
type SizeInfo struct {
	Count int   `json:"count"`
	Bytes int64 `json:"bytes"`
}

// Add accumulates another SizeInfo into this one.
func (s *SizeInfo) Add(other SizeInfo) {
	s.Count += other.Count
	s.Bytes += other.Bytes
}

// --------------------------------------------------------------------------
// Adapter Description
// --------------------------------------------------------------------------

// AdapterInfo is a point-in-time description of a registered adapter:
// its identity, capability profile and platform availability. Reason is
// only set when the adapter is unavailable.
type AdapterInfo struct {
	Name         Type         `json:"name"`
	Capabilities Capabilities `json:"capabilities"`
	Available    bool         `json:"available"`
	Reason       string       `json:"reason,omitempty"`
}

// --------------------------------------------------------------------------
// Change Events
// --------------------------------------------------------------------------

// EventType signals the kind of change that happened to a key.
type EventType string

const (
	EventSet     EventType = "set"
	EventRemove  EventType = "remove"
	EventClear   EventType = "clear"
	EventExpired EventType = "expired"
)

// ChangeEvent describes a single mutation of the store. Events are emitted
// by the orchestrator after the backend write succeeded and are consumed by
// subscribers and by the broadcast collaborator.
type ChangeEvent struct {
	Type      EventType `json:"type"`
	Key       string    `json:"key"`
	Value     *Envelope `json:"value,omitempty"`
	Storage   Type      `json:"storage"`
	Timestamp int64     `json:"timestamp"`
	// Source identifies the emitting store instance so that rebroadcasted
	// events are not applied back onto their origin
	Source string `json:"source,omitempty"`
}
