package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

// BuildKey composes a cache key from a namespace and any number of parts.
// Each part is converted with FormatPart and all segments are joined with
// KeySeparator, so identical inputs always yield identical keys.
func BuildKey(namespace string, parts ...any) string {
	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, namespace)

	for _, part := range parts {
		segments = append(segments, FormatPart(part))
	}

	return strings.Join(segments, KeySeparator)
}

// FormatPart returns the canonical string form of a key part.
//
// Identifiers with a textual encoding (uuid.UUID, object ids, anything
// implementing fmt.Stringer) use it, so a record id and its key segment
// always agree.
func FormatPart(v any) string {
	if v == nil {
		return "nil"
	}

	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	}

	rv := reflect.ValueOf(v)

	// Handle pointers by dereferencing
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "nil"
		}
		return FormatPart(rv.Elem().Interface())
	}

	if isBasicKind(rv.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	return jsonFallback(v)
}

// isBasicKind checks if a kind represents a basic Go type
func isBasicKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// jsonFallback provides JSON serialization for composite parts
func jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("fallback:%T", v)
	}
	return string(data)
}
