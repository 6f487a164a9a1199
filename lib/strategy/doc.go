// Package strategy ranks storage adapters so that callers can pick a
// backend (or an ordered fallback chain) without naming one explicitly.
//
// Four policies are provided, each a deterministic total order over
// adapter kinds:
//
//   - performance: synchronous backends first
//   - persistence: restart-surviving backends first
//   - security: backends with at-rest encryption first
//   - capacity: unbounded backends first, then by size ceiling
//
// Within each policy, capability flags decide the primary order and a
// fixed per-policy type list breaks ties, so the same candidate set
// always ranks the same way regardless of input order.
//
// Selection can be narrowed twice before ranking: a preferred allow-list
// restricts the candidate types, and a Requirements descriptor filters
// on exact capability matches plus a minimum size ceiling.
package strategy
