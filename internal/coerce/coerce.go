// Package coerce normalizes the wire shapes wallet libraries use for
// signature material into raw byte sequences. Clients serialize the same
// value as base64, base58 or hex strings, plain byte arrays, Node Buffer
// JSON objects or string-indexed integer maps depending on their runtime,
// so the gateway accepts all of them.
package coerce

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"

	"github.com/mr-tron/base58"

	"github.com/flashorca/gateway/core"
)

// Bytes converts any JSON-decoded value into its canonical byte sequence.
//
// Strings are tried as strict base64, then base58, then hex; if all three
// fail the string's UTF-8 bytes are used as a non-failing fallback. Maps
// are treated as Node Buffer JSON ({"type":"Buffer","data":[...]}) when
// they carry a data array, else as a sparse integer-keyed array. Slices
// take each element modulo 256 in order. nil coerces to an empty sequence.
// Values with no byte interpretation return ErrUnsupportedEncoding.
func Bytes(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte{}, nil
	case []byte:
		out := make([]byte, len(val))
		copy(out, val)
		return out, nil
	case string:
		return stringBytes(val), nil
	case map[string]any:
		return mapBytes(val)
	case []any:
		return sliceBytes(val)
	default:
		return nil, fmt.Errorf("%w: cannot coerce %T to bytes", core.ErrUnsupportedEncoding, v)
	}
}

func stringBytes(s string) []byte {
	if b, err := base64.StdEncoding.Strict().DecodeString(s); err == nil {
		return b
	}
	if b, err := base58.Decode(s); err == nil {
		return b
	}
	if b, err := hex.DecodeString(s); err == nil {
		return b
	}
	return []byte(s)
}

func mapBytes(m map[string]any) ([]byte, error) {
	// Node Buffer JSON convention.
	if data, ok := m["data"].([]any); ok {
		return sliceBytes(data)
	}

	// Uint8Array serialized as {"0":12,"1":34,...}: sort by integer key.
	// Abandoned entirely if any key or value is not an integer.
	type entry struct {
		idx int
		b   byte
	}
	entries := make([]entry, 0, len(m))
	for k, raw := range m {
		idx, err := strconv.Atoi(k)
		if err != nil {
			return nil, fmt.Errorf("%w: non-integer key %q", core.ErrUnsupportedEncoding, k)
		}
		b, err := toByte(raw)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{idx: idx, b: b})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })
	out := make([]byte, len(entries))
	for i, e := range entries {
		out[i] = e.b
	}
	return out, nil
}

func sliceBytes(elems []any) ([]byte, error) {
	out := make([]byte, len(elems))
	for i, e := range elems {
		b, err := toByte(e)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

func toByte(v any) (byte, error) {
	switch n := v.(type) {
	case float64:
		return byte(int(n) & 0xFF), nil
	case int:
		return byte(n & 0xFF), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("%w: non-integer element %q", core.ErrUnsupportedEncoding, n)
		}
		return byte(i & 0xFF), nil
	default:
		return 0, fmt.Errorf("%w: non-integer element %T", core.ErrUnsupportedEncoding, v)
	}
}
