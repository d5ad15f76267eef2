package value

import (
	"fmt"

	"github.com/golang/snappy"
)

// Stored format flags (first byte of a marshaled value).
const (
	formatRaw    = byte(0x00)
	formatSnappy = byte(0x01)
)

// DefaultCompressionThreshold is the encoded size above which stored values are
// snappy-compressed.
const DefaultCompressionThreshold = 1024

// Codec marshals property values for storage.
// Values whose canonical encoding exceeds CompressionThreshold bytes are compressed
// with snappy. A threshold <= 0 disables compression.
type Codec struct {
	CompressionThreshold int
}

// DefaultCodec compresses values larger than DefaultCompressionThreshold.
var DefaultCodec = Codec{CompressionThreshold: DefaultCompressionThreshold}

// Marshal returns the stored representation of v.
func (c Codec) Marshal(v any) ([]byte, error) {
	enc, err := AppendKey([]byte{formatRaw}, v)
	if err != nil {
		return nil, err
	}
	if c.CompressionThreshold <= 0 || len(enc)-1 <= c.CompressionThreshold {
		return enc, nil
	}
	out := make([]byte, 1, 1+snappy.MaxEncodedLen(len(enc)-1))
	out[0] = formatSnappy
	return append(out, snappy.Encode(nil, enc[1:])...), nil
}

// Unmarshal decodes a value written by Marshal.
func (c Codec) Unmarshal(data []byte) (any, error) {
	if len(data) < 2 {
		return nil, ErrCorrupt
	}
	body := data[1:]
	switch data[0] {
	case formatRaw:
	case formatSnappy:
		var err error
		body, err = snappy.Decode(nil, body)
		if err != nil {
			return nil, fmt.Errorf("%w: snappy: %v", ErrCorrupt, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown format 0x%02x", ErrCorrupt, data[0])
	}
	v, n, err := DecodeKey(body)
	if err != nil {
		return nil, err
	}
	if n != len(body) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(body)-n)
	}
	return v, nil
}
