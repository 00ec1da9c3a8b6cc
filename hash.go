package json2graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// contentHash returns a deterministic SHA-256 digest (64 hex characters) of
// the canonical form of a JSON value.
//
// Canonicalization guarantees:
//   - hash(v) == hash(v) for any value v
//   - object key order never affects the hash
//   - values of different JSON types never collide, even when their textual
//     forms coincide (1, "1" and true all hash differently), because the
//     canonical form embeds a type discriminator ahead of every value
func contentHash(v any) string {
	var b strings.Builder
	writeCanonical(&b, v)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// writeCanonical appends the canonical representation of v to b.
// Objects are serialized with sorted keys; arrays preserve element order.
func writeCanonical(b *strings.Builder, v any) {
	switch val := v.(type) {
	case nil:
		b.WriteString("null")

	case bool:
		if val {
			b.WriteString("bool:true")
		} else {
			b.WriteString("bool:false")
		}

	case string:
		b.WriteString("str:")
		b.WriteString(strconv.Quote(val))

	case json.Number, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		b.WriteString("num:")
		b.WriteString(numberText(val))

	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("obj:{")
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Quote(k))
			b.WriteByte(':')
			writeCanonical(b, val[k])
		}
		b.WriteByte('}')

	case []any:
		b.WriteString("arr:[")
		for i, elem := range val {
			if i > 0 {
				b.WriteByte(',')
			}
			writeCanonical(b, elem)
		}
		b.WriteByte(']')

	default:
		// Values outside the JSON model (structs, typed slices). JSON
		// marshaling keeps the representation stable; Sprintf covers the
		// unmarshalable remainder.
		if data, err := json.Marshal(val); err == nil {
			b.WriteString("val:")
			b.Write(data)
		} else {
			b.WriteString("val:")
			b.WriteString(fmt.Sprintf("%v", val))
		}
	}
}
