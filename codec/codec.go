// Package codec maps values to fixed-width byte records and back.
//
// A record codec has a width fixed at construction time and writes no
// framing, so record i of a column always starts at byte i*Width(). Changing
// a column's codec is a breaking change: bump the column version so existing
// files are rejected instead of misread.
//
// The package also carries the document codecs (JSON, GoJSON) used for
// self-describing metadata such as backup manifests.
package codec

import (
	"errors"
	"fmt"
)

// ErrVariableSize is returned by Binary for types without a fixed encoding size.
var ErrVariableSize = errors.New("codec: type has no fixed binary size")

// Codec converts between a value and its fixed-width byte record.
// Implementations must be safe for concurrent use.
type Codec[T any] interface {
	// Width is the exact number of bytes of one record.
	Width() int
	// Encode writes v into dst. len(dst) must equal Width.
	Encode(dst []byte, v T)
	// Decode reads a value from src. len(src) must equal Width.
	Decode(src []byte) T
	// Name identifies the encoding.
	Name() string
}

func checkSpan(name string, span []byte, width int) {
	if len(span) != width {
		panic(fmt.Sprintf("codec %s: span of %d bytes, want %d", name, len(span), width))
	}
}

// Encode is a convenience that allocates a record for v.
func Encode[T any](c Codec[T], v T) []byte {
	b := make([]byte, c.Width())
	c.Encode(b, v)
	return b
}
