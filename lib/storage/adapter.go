package storage

// --------------------------------------------------------------------------
// Adapter Interface
// --------------------------------------------------------------------------

// Adapter is the contract every storage backend implements. An adapter
// translates the envelope contract into one physical storage mechanism;
// it performs no value transformation itself, that is the orchestrator's
// job.
//
// Subscribe and Query are optional capabilities: an adapter whose
// Capabilities() descriptor has Observable=false (resp. Queryable=false)
// returns an ErrCodeNotSupported error from them. Callers are expected to
// check the descriptor before invoking either.
type Adapter interface {
	// Name returns the backend kind this adapter registers under.
	Name() Type

	// Capabilities returns the static capability descriptor.
	Capabilities() Capabilities

	// Available reports whether the backend is usable on this platform.
	// The probe is side-effect free and safe to call repeatedly. When the
	// backend is unusable, the second return value carries the reason.
	Available() (bool, string)

	// Initialize prepares the adapter for use. It is called at most once
	// per adapter instance (the registry enforces this).
	Initialize(cfg Config) error

	// Get loads the envelope for a key. The boolean return value indicates
	// whether the key was found; a missing key is not an error.
	Get(key string) (env *Envelope, found bool, err error)

	// Set stores the envelope under the given key, overwriting any prior
	// envelope wholesale.
	Set(key string, env *Envelope) error

	// Remove deletes a key. Removing an absent key is not an error.
	Remove(key string) error

	// Keys lists stored keys. A non-empty pattern filters them with glob
	// semantics ('*' and '?'); an empty pattern matches everything.
	Keys(pattern string) ([]string, error)

	// Has reports whether a key exists without loading its value.
	Has(key string) (bool, error)

	// Clear removes every key. Clearing an empty backend is not an error.
	Clear() error

	// Size reports the approximate entry count and byte usage.
	Size() (SizeInfo, error)

	// Subscribe registers a callback for change events originating from
	// this backend. The returned function cancels the subscription.
	// Optional: gated by Capabilities().Observable.
	Subscribe(fn func(ChangeEvent)) (func(), error)

	// Query returns the keys whose envelope matches the given condition
	// tree, evaluated natively by the backend. The condition grammar is
	// defined by the query package; adapters share its matcher.
	// Optional: gated by Capabilities().Queryable.
	Query(cond map[string]any) ([]string, error)

	// Close releases backend resources. Close is idempotent.
	Close() error
}
