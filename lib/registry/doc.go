// Package registry manages the set of storage adapters available to the
// store: registration by backend type, platform availability probing and
// lazy, exactly-once initialization.
//
// Key behaviors:
//
//   - Register is last-write-wins; re-registering a name replaces the
//     prior adapter without error.
//
//   - GetInitialized is the single initialization gate. It checks the
//     adapter's availability, then runs Initialize at most once. The
//     per-record lock is held across the initialization, so a concurrent
//     second caller awaits the same in-flight initialization rather than
//     starting another one. This is an explicit invariant of the store's
//     concurrency model, not an optimization: double initialization can
//     leak backend handles. A failed initialization is not latched, the
//     next caller retries.
//
//   - Available probes every registered adapter's Available() and returns
//     the usable subset; probing is side-effect free and never initializes
//     anything.
//
//   - CloseAll closes only adapters that were actually initialized, resets
//     the initialization bookkeeping (so the registry can be reused) and
//     keeps tearing down the remaining adapters when one Close fails.
package registry
