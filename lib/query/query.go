package query

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"

	"github.com/aoneahsan/strata-storage/lib/storage"
)

// Condition is a declarative condition tree. Leaf entries map a
// dot-separated field path to either a literal (equality) or an operator
// map; the special keys $and, $or and $not combine sub-conditions.
type Condition = map[string]any

// missing is the sentinel for a field path that did not resolve. It fails
// every operator except $exists:false and $eq:nil.
type missingT struct{}

var missing = missingT{}

// --------------------------------------------------------------------------
// Entry Points
// --------------------------------------------------------------------------

// Matches evaluates a condition tree against a value. Evaluation is pure
// and total: it never panics, and a malformed condition simply matches
// nothing. A nil or empty condition matches everything.
func Matches(value any, cond Condition) bool {
	if len(cond) == 0 {
		return true
	}

	for key, operand := range cond {
		switch key {
		case "$and":
			subs, ok := conditionList(operand)
			if !ok {
				return false
			}
			for _, sub := range subs {
				if !Matches(value, sub) {
					return false
				}
			}
		case "$or":
			subs, ok := conditionList(operand)
			if !ok || len(subs) == 0 {
				return false
			}
			anyMatch := false
			for _, sub := range subs {
				if Matches(value, sub) {
					anyMatch = true
					break
				}
			}
			if !anyMatch {
				return false
			}
		case "$not":
			sub, ok := asCondition(operand)
			if !ok {
				return false
			}
			if Matches(value, sub) {
				return false
			}
		default:
			field := resolvePath(value, key)
			if !matchField(field, operand) {
				return false
			}
		}
	}
	return true
}

// MatchesEnvelope evaluates a condition against the storage-level surface
// of an envelope: its tags, metadata and timestamps rather than the value.
func MatchesEnvelope(env *storage.Envelope, cond Condition) bool {
	if env == nil {
		return false
	}
	return Matches(envelopeSurface(env), cond)
}

// envelopeSurface exposes the queryable envelope fields as a plain map.
func envelopeSurface(env *storage.Envelope) map[string]any {
	surface := map[string]any{
		"created": env.Created,
		"updated": env.Updated,
	}
	if env.Expires != 0 {
		surface["expires"] = env.Expires
	}
	if env.Tags != nil {
		tags := make([]any, len(env.Tags))
		for i, t := range env.Tags {
			tags[i] = t
		}
		surface["tags"] = tags
	}
	if env.Metadata != nil {
		meta := make(map[string]any, len(env.Metadata))
		for k, v := range env.Metadata {
			meta[k] = v
		}
		surface["metadata"] = meta
	}
	return surface
}

// --------------------------------------------------------------------------
// Field Matching
// --------------------------------------------------------------------------

// matchField evaluates one leaf: an operator map or a literal equality.
func matchField(field any, operand any) bool {
	ops, isOps := operatorMap(operand)
	if !isOps {
		return equal(field, operand)
	}

	for op, arg := range ops {
		if !applyOperator(field, op, arg) {
			return false
		}
	}
	return true
}

// applyOperator evaluates a single operator against a resolved field.
// Unknown operators match nothing: a predicate degrades to "no match"
// on malformed input instead of crashing a scan.
func applyOperator(field any, op string, arg any) bool {
	switch op {
	case "$eq":
		if _, absent := field.(missingT); absent {
			return arg == nil
		}
		return equal(field, arg)
	case "$ne":
		if _, absent := field.(missingT); absent {
			return arg != nil
		}
		return !equal(field, arg)
	case "$gt":
		a, b, ok := bothNumeric(field, arg)
		return ok && a > b
	case "$gte":
		a, b, ok := bothNumeric(field, arg)
		return ok && a >= b
	case "$lt":
		a, b, ok := bothNumeric(field, arg)
		return ok && a < b
	case "$lte":
		a, b, ok := bothNumeric(field, arg)
		return ok && a <= b
	case "$in":
		return inList(field, arg)
	case "$nin":
		list, ok := asList(arg)
		if !ok {
			return false
		}
		if _, absent := field.(missingT); absent {
			return false
		}
		return !inSlice(field, list)
	case "$regex":
		return matchRegex(field, arg)
	case "$exists":
		want, ok := arg.(bool)
		if !ok {
			return false
		}
		_, absent := field.(missingT)
		return want != absent
	case "$type":
		want, ok := arg.(string)
		if !ok {
			return false
		}
		return typeName(field) == want
	default:
		return false
	}
}

// inList implements $in: the operand must be an array; an array field
// matches when any of its elements is in the operand.
func inList(field any, arg any) bool {
	list, ok := asList(arg)
	if !ok {
		return false
	}
	if _, absent := field.(missingT); absent {
		return false
	}
	if elems, ok := asList(field); ok {
		for _, e := range elems {
			if inSlice(e, list) {
				return true
			}
		}
		return false
	}
	return inSlice(field, list)
}

func inSlice(v any, list []any) bool {
	for _, item := range list {
		if equal(v, item) {
			return true
		}
	}
	return false
}

// matchRegex implements $regex: a pattern string is compiled fresh, a
// pre-built *regexp.Regexp is used as is. Non-string fields and invalid
// patterns match nothing.
func matchRegex(field any, arg any) bool {
	s, ok := field.(string)
	if !ok {
		return false
	}
	switch pattern := arg.(type) {
	case string:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(s)
	case *regexp.Regexp:
		return pattern.MatchString(s)
	default:
		return false
	}
}

// --------------------------------------------------------------------------
// Path Resolution
// --------------------------------------------------------------------------

// resolvePath descends a dot-separated field path. Any missing
// intermediate yields the missing sentinel, never an error.
func resolvePath(value any, path string) any {
	current := value
	for _, part := range strings.Split(path, ".") {
		next, ok := lookup(current, part)
		if !ok {
			return missing
		}
		current = next
	}
	return current
}

// lookup fetches one property from a value. Maps with string keys are the
// common case (JSON-decoded values); other kinds have no properties.
func lookup(value any, key string) (any, bool) {
	switch m := value.(type) {
	case map[string]any:
		v, ok := m[key]
		return v, ok
	case map[string]string:
		v, ok := m[key]
		return v, ok
	case nil, missingT:
		return nil, false
	}

	// arbitrary map types with string keys, e.g. caller-supplied values
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		v := rv.MapIndex(reflect.ValueOf(key))
		if v.IsValid() {
			return v.Interface(), true
		}
	}
	return nil, false
}

// --------------------------------------------------------------------------
// Value Helpers
// --------------------------------------------------------------------------

// operatorMap reports whether the operand is an operator map (a map whose
// keys all start with '$'). A map mixing operator and plain keys is
// malformed and yields no operators, so the caller falls back to literal
// equality, which such a map can never satisfy against a resolved field.
func operatorMap(operand any) (map[string]any, bool) {
	m, ok := asCondition(operand)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

func asCondition(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// conditionList coerces a combinator operand into its sub-conditions.
func conditionList(v any) ([]Condition, bool) {
	switch list := v.(type) {
	case []Condition:
		return list, true
	case []any:
		subs := make([]Condition, 0, len(list))
		for _, item := range list {
			sub, ok := asCondition(item)
			if !ok {
				return nil, false
			}
			subs = append(subs, sub)
		}
		return subs, true
	default:
		return nil, false
	}
}

func asList(v any) ([]any, bool) {
	switch list := v.(type) {
	case []any:
		return list, true
	case missingT, nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// asNumber normalizes the numeric types JSON decoding and Go callers
// produce, including the json.Number values a UseNumber decoder yields.
// There is no implicit coercion from strings or booleans.
func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func bothNumeric(a, b any) (float64, float64, bool) {
	x, ok := asNumber(a)
	if !ok {
		return 0, 0, false
	}
	y, ok := asNumber(b)
	if !ok {
		return 0, 0, false
	}
	return x, y, true
}

// equal compares two values with numeric normalization, so an int64
// timestamp equals the float64 a JSON round trip turns it into. A scalar
// operand against an array field matches element-wise, the Mongo
// containment rule: {tags: "a"} matches tags ["a", "b"].
func equal(a, b any) bool {
	if _, absent := a.(missingT); absent {
		return b == nil
	}
	if x, ok := asNumber(a); ok {
		if y, ok := asNumber(b); ok {
			return x == y
		}
		return false
	}
	if elems, ok := asList(a); ok {
		if _, bothLists := asList(b); !bothLists {
			for _, e := range elems {
				if equal(e, b) {
					return true
				}
			}
			return false
		}
	}
	return reflect.DeepEqual(a, b)
}

// typeName maps a value to its $type name.
func typeName(v any) string {
	switch v.(type) {
	case missingT:
		return "undefined"
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	}
	if _, ok := asNumber(v); ok {
		return "number"
	}
	if _, ok := asList(v); ok {
		return "array"
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Map {
		return "object"
	}
	return "unknown"
}
