// Package tuple builds composite keys for the ordered store.
//
// A key starts with a single structure prefix byte followed by its components in
// declared order. Every component encoding is order-preserving and self-delimiting,
// so the byte order of two keys equals the component-wise order of their tuples and
// any leading run of components can be used as a range-scan prefix.
//
// Component encodings:
//   - uint64: 8 bytes big-endian
//   - bool:   1 byte (0 = false, 1 = true)
//   - string: escaped bytes terminated by 0x00 0x01
//   - value:  canonical property value encoding (see package value)
//
// Example:
//
//	k := tuple.New(0x04).Uint64(17).String("name")
//	lo, hi := tuple.New(0x04).Uint64(17).Range() // every key of element 17
package tuple

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/orneryd/kvgraph/pkg/value"
)

// ErrShortKey is returned when a key ends before all expected components are read.
var ErrShortKey = errors.New("tuple: key too short")

// Key is an encoded composite key. Builder methods never modify the receiver.
type Key []byte

// New starts a key with the given structure prefix.
func New(prefix byte) Key {
	return Key{prefix}
}

func (k Key) grow(n int) Key {
	out := make(Key, len(k), len(k)+n)
	copy(out, k)
	return out
}

// Uint64 appends a big-endian uint64 component.
func (k Key) Uint64(v uint64) Key {
	return binary.BigEndian.AppendUint64(k.grow(8), v)
}

// Bool appends a bool component.
func (k Key) Bool(v bool) Key {
	if v {
		return append(k.grow(1), 1)
	}
	return append(k.grow(1), 0)
}

// String appends an escaped string component.
func (k Key) String(s string) Key {
	return value.AppendEscaped(k.grow(len(s)+2), []byte(s))
}

// Value appends a property value component.
func (k Key) Value(v any) (Key, error) {
	out, err := value.AppendKey(k.grow(16), v)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PrefixEnd returns the smallest key greater than every key that has k as a prefix.
// It returns nil when no such key exists (k is empty or all 0xFF).
func (k Key) PrefixEnd() Key {
	out := append(Key(nil), k...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}

// Range returns the half-open interval [k, k.PrefixEnd()) covering every key with
// prefix k.
func (k Key) Range() (lo, hi Key) {
	return k, k.PrefixEnd()
}

// Reader decodes the components of a key in order. The first error sticks and is
// reported by Err; subsequent reads return zero values.
type Reader struct {
	b   []byte
	err error
}

// NewReader returns a Reader positioned after the structure prefix byte.
func NewReader(key []byte) *Reader {
	if len(key) == 0 {
		return &Reader{err: ErrShortKey}
	}
	return &Reader{b: key[1:]}
}

// Uint64 reads a uint64 component.
func (r *Reader) Uint64() uint64 {
	if r.err != nil {
		return 0
	}
	if len(r.b) < 8 {
		r.err = ErrShortKey
		return 0
	}
	v := binary.BigEndian.Uint64(r.b)
	r.b = r.b[8:]
	return v
}

// Bool reads a bool component.
func (r *Reader) Bool() bool {
	if r.err != nil {
		return false
	}
	if len(r.b) < 1 {
		r.err = ErrShortKey
		return false
	}
	v := r.b[0] == 1
	r.b = r.b[1:]
	return v
}

// String reads a string component.
func (r *Reader) String() string {
	if r.err != nil {
		return ""
	}
	raw, n, err := value.ReadEscaped(r.b)
	if err != nil {
		r.err = fmt.Errorf("tuple: string component: %w", err)
		return ""
	}
	r.b = r.b[n:]
	return string(raw)
}

// Value reads a property value component.
func (r *Reader) Value() any {
	if r.err != nil {
		return nil
	}
	v, n, err := value.DecodeKey(r.b)
	if err != nil {
		r.err = fmt.Errorf("tuple: value component: %w", err)
		return nil
	}
	r.b = r.b[n:]
	return v
}

// Rest returns the undecoded remainder of the key.
func (r *Reader) Rest() []byte {
	return r.b
}

// Err returns the first decoding error.
func (r *Reader) Err() error {
	return r.err
}

// Prefix returns the structure prefix byte of key, or 0 for an empty key.
func Prefix(key []byte) byte {
	if len(key) == 0 {
		return 0
	}
	return key[0]
}

// TrailingUint64 returns the last 8 bytes of key as a big-endian uint64. Index keys
// end with the id of the element they point at.
func TrailingUint64(key []byte) (uint64, error) {
	if len(key) < 9 {
		return 0, ErrShortKey
	}
	return binary.BigEndian.Uint64(key[len(key)-8:]), nil
}
