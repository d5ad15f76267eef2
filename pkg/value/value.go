// Package value defines the closed set of property values a graph element can hold
// and their canonical byte encoding.
//
// Supported variants:
//   - bool
//   - integers of any width (stored as int64)
//   - float32 / float64 (stored as float64)
//   - string
//   - []byte
//   - time.Time (stored in UTC with nanosecond precision)
//   - lists: []any and the typed slices []string, []int, []int64, []float64, []bool
//   - map[string]any
//
// The encoding is order-preserving: for two values of the same variant, the byte-wise
// comparison of their encodings matches the natural order of the values. It is also
// self-delimiting, so an encoded value can be followed by further key components and a
// prefix scan fixing a value never matches a different value. The same bytes are used
// inside index keys and as the stored representation of a property.
//
// Example:
//
//	v, err := value.Normalize(42)     // int64(42)
//	key, err := value.AppendKey(nil, "alice")
//	decoded, n, err := value.DecodeKey(key)
package value

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"
)

// Type tags. 0x00 is reserved as the list/map terminator.
const (
	tagBool   = byte(0x10)
	tagInt    = byte(0x20)
	tagFloat  = byte(0x21)
	tagString = byte(0x30)
	tagBytes  = byte(0x31)
	tagTime   = byte(0x40)
	tagList   = byte(0x50)
	tagMap    = byte(0x60)

	terminator = byte(0x00)
	escapeByte = byte(0xFF)
	endByte    = byte(0x01)
)

var (
	// ErrNil is returned when a nil value is normalized or encoded.
	ErrNil = errors.New("value: nil is not a valid property value")

	// ErrUnsupported is returned for values outside the supported variants.
	ErrUnsupported = errors.New("value: unsupported property value type")

	// ErrCorrupt is returned when decoding malformed bytes.
	ErrCorrupt = errors.New("value: corrupt encoding")
)

// Normalize converts v into its canonical in-memory form: integers become int64,
// floats become float64, typed slices become []any and times become UTC.
// Nested list elements and map values are normalized recursively.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, ErrNil
	case bool, string, int64, float64:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint:
		return normalizeUint(uint64(x))
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return normalizeUint(x)
	case float32:
		return float64(x), nil
	case []byte:
		return append([]byte{}, x...), nil
	case time.Time:
		return x.UTC(), nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("list element %d: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case []string:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []int:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = int64(e)
		}
		return out, nil
	case []int64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []float64:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case []bool:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = e
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			n, err := Normalize(e)
			if err != nil {
				return nil, fmt.Errorf("map entry %q: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupported, v)
	}
}

func normalizeUint(u uint64) (any, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("%w: uint64 %d overflows int64", ErrUnsupported, u)
	}
	return int64(u), nil
}

// AppendKey appends the canonical encoding of v to dst.
func AppendKey(dst []byte, v any) ([]byte, error) {
	n, err := Normalize(v)
	if err != nil {
		return dst, err
	}
	return appendNormalized(dst, n), nil
}

// Encode returns the canonical encoding of v.
func Encode(v any) ([]byte, error) {
	return AppendKey(nil, v)
}

// Equal reports whether a and b encode to the same bytes.
// Values of different variants are never equal (int64(1) != float64(1)).
func Equal(a, b any) bool {
	ea, err := Encode(a)
	if err != nil {
		return false
	}
	eb, err := Encode(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ea, eb)
}

func appendNormalized(dst []byte, v any) []byte {
	switch x := v.(type) {
	case bool:
		if x {
			return append(dst, tagBool, 1)
		}
		return append(dst, tagBool, 0)
	case int64:
		dst = append(dst, tagInt)
		return binary.BigEndian.AppendUint64(dst, uint64(x)^(1<<63))
	case float64:
		dst = append(dst, tagFloat)
		return binary.BigEndian.AppendUint64(dst, orderedFloatBits(x))
	case string:
		dst = append(dst, tagString)
		return AppendEscaped(dst, []byte(x))
	case []byte:
		dst = append(dst, tagBytes)
		return AppendEscaped(dst, x)
	case time.Time:
		dst = append(dst, tagTime)
		dst = binary.BigEndian.AppendUint64(dst, uint64(x.Unix())^(1<<63))
		return binary.BigEndian.AppendUint32(dst, uint32(x.Nanosecond()))
	case []any:
		dst = append(dst, tagList)
		for _, e := range x {
			dst = appendNormalized(dst, e)
		}
		return append(dst, terminator)
	case map[string]any:
		dst = append(dst, tagMap)
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			dst = append(dst, tagString)
			dst = AppendEscaped(dst, []byte(k))
			dst = appendNormalized(dst, x[k])
		}
		return append(dst, terminator)
	}
	// Normalize guarantees one of the cases above.
	panic(fmt.Sprintf("value: unnormalized %T", v))
}

// orderedFloatBits maps a float64 onto a uint64 whose unsigned order matches the
// numeric order of the float.
func orderedFloatBits(f float64) uint64 {
	bits := math.Float64bits(f)
	if bits&(1<<63) != 0 {
		return ^bits
	}
	return bits | (1 << 63)
}

func floatFromOrderedBits(bits uint64) float64 {
	if bits&(1<<63) != 0 {
		return math.Float64frombits(bits &^ (1 << 63))
	}
	return math.Float64frombits(^bits)
}

// AppendEscaped appends b so that it sorts byte-wise and is self-delimiting:
// 0x00 bytes become 0x00 0xFF and the run ends with 0x00 0x01.
func AppendEscaped(dst, b []byte) []byte {
	for _, c := range b {
		if c == terminator {
			dst = append(dst, terminator, escapeByte)
			continue
		}
		dst = append(dst, c)
	}
	return append(dst, terminator, endByte)
}

// ReadEscaped decodes a run written by AppendEscaped and returns the raw bytes
// and the number of encoded bytes consumed.
func ReadEscaped(b []byte) ([]byte, int, error) {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != terminator {
			out = append(out, b[i])
			continue
		}
		if i+1 >= len(b) {
			return nil, 0, ErrCorrupt
		}
		switch b[i+1] {
		case escapeByte:
			out = append(out, terminator)
			i++
		case endByte:
			return out, i + 2, nil
		default:
			return nil, 0, ErrCorrupt
		}
	}
	return nil, 0, ErrCorrupt
}

// DecodeKey decodes one value from the front of b and returns it with the number
// of bytes consumed.
func DecodeKey(b []byte) (any, int, error) {
	if len(b) == 0 {
		return nil, 0, ErrCorrupt
	}
	switch b[0] {
	case tagBool:
		if len(b) < 2 {
			return nil, 0, ErrCorrupt
		}
		return b[1] == 1, 2, nil
	case tagInt:
		if len(b) < 9 {
			return nil, 0, ErrCorrupt
		}
		return int64(binary.BigEndian.Uint64(b[1:9]) ^ (1 << 63)), 9, nil
	case tagFloat:
		if len(b) < 9 {
			return nil, 0, ErrCorrupt
		}
		return floatFromOrderedBits(binary.BigEndian.Uint64(b[1:9])), 9, nil
	case tagString:
		raw, n, err := ReadEscaped(b[1:])
		if err != nil {
			return nil, 0, err
		}
		return string(raw), n + 1, nil
	case tagBytes:
		raw, n, err := ReadEscaped(b[1:])
		if err != nil {
			return nil, 0, err
		}
		return raw, n + 1, nil
	case tagTime:
		if len(b) < 13 {
			return nil, 0, ErrCorrupt
		}
		sec := int64(binary.BigEndian.Uint64(b[1:9]) ^ (1 << 63))
		nsec := int64(binary.BigEndian.Uint32(b[9:13]))
		return time.Unix(sec, nsec).UTC(), 13, nil
	case tagList:
		list := []any{}
		off := 1
		for {
			if off >= len(b) {
				return nil, 0, ErrCorrupt
			}
			if b[off] == terminator {
				return list, off + 1, nil
			}
			e, n, err := DecodeKey(b[off:])
			if err != nil {
				return nil, 0, err
			}
			list = append(list, e)
			off += n
		}
	case tagMap:
		m := map[string]any{}
		off := 1
		for {
			if off >= len(b) {
				return nil, 0, ErrCorrupt
			}
			if b[off] == terminator {
				return m, off + 1, nil
			}
			k, n, err := DecodeKey(b[off:])
			if err != nil {
				return nil, 0, err
			}
			ks, ok := k.(string)
			if !ok {
				return nil, 0, ErrCorrupt
			}
			off += n
			e, n, err := DecodeKey(b[off:])
			if err != nil {
				return nil, 0, err
			}
			m[ks] = e
			off += n
		}
	}
	return nil, 0, fmt.Errorf("%w: unknown tag 0x%02x", ErrCorrupt, b[0])
}
