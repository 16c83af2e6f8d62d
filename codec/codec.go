// Package codec compresses value fields composed through a BufferCursor.
//
// A compressed field is stored as a 1-byte type indicator, a 4-byte
// big-endian payload length and the payload itself, so several fields can
// follow each other in one value.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type represents a compression algorithm.
type Type uint8

const (
	// None stores the field as is.
	None Type = 0x0

	// Snappy uses Google Snappy block compression.
	Snappy Type = 0x1

	// LZ4 uses the LZ4 frame format.
	LZ4 Type = 0x4

	// Zstd uses Zstandard.
	Zstd Type = 0x7
)

// HeaderSize is the size of the type indicator plus the payload length.
const HeaderSize = 5

// String returns the human-readable name of the compression type.
func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case Snappy:
		return "Snappy"
	case LZ4:
		return "LZ4"
	case Zstd:
		return "ZSTD"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// IsSupported returns true if the compression type is supported.
func (t Type) IsSupported() bool {
	switch t {
	case None, Snappy, LZ4, Zstd:
		return true
	default:
		return false
	}
}

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

// zstd encoders and decoders are safe for concurrent EncodeAll/DecodeAll
// and expensive to build, so one of each is shared.
func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	return zstdEncoder, zstdDecoder, zstdErr
}

// Compress compresses data using the specified compression type.
func Compress(t Type, data []byte) ([]byte, error) {
	switch t {
	case None:
		return data, nil

	case Snappy:
		return snappy.Encode(nil, data), nil

	case LZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if err := w.Apply(lz4.CompressionLevelOption(lz4.Fast)); err != nil {
			return nil, fmt.Errorf("lz4 apply level: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 close: %w", err)
		}
		return buf.Bytes(), nil

	case Zstd:
		enc, _, err := zstdCodec()
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		return enc.EncodeAll(data, nil), nil

	default:
		return nil, fmt.Errorf("unsupported compression type: %s", t)
	}
}

// Decompress decompresses data using the specified compression type.
// The result never shares memory with data.
func Decompress(t Type, data []byte) ([]byte, error) {
	switch t {
	case None:
		return bytes.Clone(data), nil

	case Snappy:
		return snappy.Decode(nil, data)

	case LZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))

	case Zstd:
		_, dec, err := zstdCodec()
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}
		return dec.DecodeAll(data, nil)

	default:
		return nil, fmt.Errorf("unsupported compression type: %s", t)
	}
}

// AppendField compresses data and appends the framed field to dst.
func AppendField(dst []byte, t Type, data []byte) ([]byte, error) {
	payload, err := Compress(t, data)
	if err != nil {
		return nil, err
	}
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("compressed field too large: %d bytes", len(payload))
	}
	dst = append(dst, byte(t))
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...), nil
}

// ReadField decodes the framed field at the start of src. It returns the
// decompressed data and the number of bytes the field occupied.
func ReadField(src []byte) ([]byte, int, error) {
	if len(src) < HeaderSize {
		return nil, 0, fmt.Errorf("compressed field header truncated: %d bytes", len(src))
	}
	t := Type(src[0])
	if !t.IsSupported() {
		return nil, 0, fmt.Errorf("unsupported compression type: %s", t)
	}
	n := binary.BigEndian.Uint32(src[1:HeaderSize])
	if uint64(n) > uint64(len(src)-HeaderSize) {
		return nil, 0, fmt.Errorf("compressed field truncated: want %d bytes, have %d", n, len(src)-HeaderSize)
	}
	payload := src[HeaderSize : HeaderSize+int(n)]
	out, err := Decompress(t, payload)
	if err != nil {
		return nil, 0, err
	}
	return out, HeaderSize + int(n), nil
}
