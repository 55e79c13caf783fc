package backup

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the chunk compression.
type Compression uint8

const (
	// CompressionZSTD favours ratio. The default.
	CompressionZSTD Compression = iota
	// CompressionLZ4 favours speed.
	CompressionLZ4
	// CompressionNone stores chunks as is.
	CompressionNone
)

func (c Compression) String() string {
	switch c {
	case CompressionZSTD:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	case CompressionNone:
		return "none"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression parses the String form of a Compression.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "zstd", "":
		return CompressionZSTD, nil
	case "lz4":
		return CompressionLZ4, nil
	case "none":
		return CompressionNone, nil
	default:
		return 0, fmt.Errorf("backup: unknown compression %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(b []byte) error {
	v, err := ParseCompression(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Chunk format: [uncompressed size uint32][compressed size uint32][data].
// A compressed size of 0 marks a chunk stored as is.
const chunkHeaderSize = 8

var errShortChunk = errors.New("backup: chunk too small")

// compressChunk encodes data. Chunks that do not shrink are stored as is.
func compressChunk(data []byte, c Compression) []byte {
	var packed []byte
	switch c {
	case CompressionZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		if n, err := lz4.CompressBlock(data, buf, nil); err == nil && n > 0 {
			packed = buf[:n]
		}
	}

	out := make([]byte, chunkHeaderSize, chunkHeaderSize+max(len(packed), len(data)))
	binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
	if len(packed) == 0 || len(packed) >= len(data) {
		return append(out, data...)
	}
	binary.LittleEndian.PutUint32(out[4:], uint32(len(packed)))
	return append(out, packed...)
}

// decompressChunk reverses compressChunk.
func decompressChunk(data []byte, c Compression) ([]byte, error) {
	if len(data) < chunkHeaderSize {
		return nil, errShortChunk
	}
	size := binary.LittleEndian.Uint32(data[0:])
	packedSize := binary.LittleEndian.Uint32(data[4:])
	body := data[chunkHeaderSize:]

	if packedSize == 0 {
		if uint32(len(body)) != size {
			return nil, errShortChunk
		}
		return body, nil
	}
	if uint32(len(body)) != packedSize {
		return nil, errShortChunk
	}

	out := make([]byte, size)
	switch c {
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		decoded, err := dec.DecodeAll(body, out[:0])
		if err != nil {
			return nil, err
		}
		out = decoded
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		out = out[:n]
	default:
		return nil, fmt.Errorf("backup: compressed chunk with compression %s", c)
	}
	if uint32(len(out)) != size {
		return nil, errors.New("backup: decompressed size mismatch")
	}
	return out, nil
}
