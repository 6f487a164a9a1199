// Package query implements the declarative condition grammar used to
// filter stored values and envelope metadata.
//
// A condition is a map-shaped tree. Leaf entries map a dot-separated
// field path to either a literal (tested for equality) or an operator
// map; the special keys $and, $or and $not combine sub-conditions.
// Supported operators:
//
//	$eq $ne $gt $gte $lt $lte $in $nin $regex $exists $type
//
// Semantics:
//
//   - Evaluation is pure and total. The matcher never panics and never
//     returns an error: malformed conditions (an unknown operator, a
//     non-array $in operand, an invalid regex) simply match nothing. A
//     query is a predicate, and a predicate should degrade to "no match"
//     on bad input, not crash a scan.
//
//   - An absent field fails every operator except $exists:false and
//     $eq:nil. Missing intermediates in a path behave like the absent
//     leaf.
//
//   - Numeric comparisons require both sides to be numeric; there is no
//     implicit coercion from strings or booleans. Integer and float
//     representations of the same number compare equal, so values that
//     went through a JSON round trip keep matching.
//
//   - Multiple fields in one condition and multiple operators in one
//     operator map are implicit conjunctions.
//
// The matcher runs in two places: adapters with native query capability
// call it per stored envelope, and the store uses it as the fallback
// full-scan filter for everything else. MatchesEnvelope evaluates the
// storage-level surface (tags, metadata, timestamps) instead of the value.
package query
