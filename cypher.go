package json2graph

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Default labels for nodes whose key carries no usable name.
const (
	defaultLabel   = "Node"
	labelObject    = "Object"
	labelArray     = "Array"
	labelPrimitive = "Primitive"
	labelNull      = "Null"
)

// sanitizeLabel maps an arbitrary string to an identifier that is safe to
// embed as a Cypher label or relationship type. Every character outside
// [A-Za-z0-9_] is replaced one-for-one with an underscore, so the mapping
// preserves character count. A result starting with a digit is prefixed with
// "L"; an empty input maps to the fixed default "Node".
func sanitizeLabel(label string) string {
	if label == "" {
		return defaultLabel
	}

	runes := []rune(label)
	for i, r := range runes {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			runes[i] = '_'
		}
	}

	sanitized := string(runes)
	if sanitized[0] >= '0' && sanitized[0] <= '9' {
		sanitized = "L" + sanitized
	}
	return sanitized
}

// escapeString escapes a string for embedding inside a single-quoted Cypher
// literal. Backslashes are doubled before quotes are escaped; the reverse
// order would re-escape the backslash introduced for a quote.
func escapeString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// formatValue renders a JSON scalar as Cypher literal text. Strings are
// escaped and single-quoted, booleans and null render as bare keywords, and
// numbers render via their canonical decimal text. Composite values reaching
// this function are stringified and quoted; the walker keeps them out of
// property maps, so this path is defensive only.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		if val {
			return "true"
		}
		return "false"
	case string:
		return "'" + escapeString(val) + "'"
	case json.Number, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return numberText(val)
	default:
		return "'" + escapeString(fmt.Sprintf("%v", val)) + "'"
	}
}

// formatProperties renders a property map as a brace-delimited Cypher
// property literal. Keys are sorted for deterministic statement text and
// sanitized the same way as labels. Scalar arrays render as bracketed lists;
// an empty map renders as {}.
func formatProperties(props map[string]any) string {
	if len(props) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, sanitizeLabel(k)+": "+formatPropertyValue(props[k]))
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

// formatPropertyValue is formatValue extended with list support, used for
// the list-valued property of scalar-array nodes.
func formatPropertyValue(v any) string {
	list, ok := v.([]any)
	if !ok {
		return formatValue(v)
	}

	elems := make([]string, 0, len(list))
	for _, e := range list {
		elems = append(elems, formatValue(e))
	}
	return "[" + strings.Join(elems, ", ") + "]"
}

// numberText renders a JSON number via its canonical decimal text.
// json.Number values keep integer literals exact; everything else goes
// through the shortest-round-trip float formatting.
func numberText(v any) string {
	switch n := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := n.Float64(); err == nil {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return n.String()
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(n), 'g', -1, 32)
	case int:
		return strconv.FormatInt(int64(n), 10)
	case int8:
		return strconv.FormatInt(int64(n), 10)
	case int16:
		return strconv.FormatInt(int64(n), 10)
	case int32:
		return strconv.FormatInt(int64(n), 10)
	case int64:
		return strconv.FormatInt(n, 10)
	case uint:
		return strconv.FormatUint(uint64(n), 10)
	case uint8:
		return strconv.FormatUint(uint64(n), 10)
	case uint16:
		return strconv.FormatUint(uint64(n), 10)
	case uint32:
		return strconv.FormatUint(uint64(n), 10)
	case uint64:
		return strconv.FormatUint(n, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
