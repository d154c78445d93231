package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the algorithm applied to object payloads.
type Compression uint8

const (
	// CompressionNone stores payloads as encoded.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, good for hot data).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD (better ratio, good for cold data).
	CompressionZSTD Compression = 2
)

// String returns the algorithm name.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
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

// minCompressible is the payload size below which compression is skipped.
const minCompressible = 64

// compress returns the algorithm actually used and the body to store.
// Payloads that do not shrink below 90% are stored uncompressed.
// LZ4 bodies are prefixed with the uncompressed length as uint32.
func compress(payload []byte, c Compression) (Compression, []byte, error) {
	if c == CompressionNone || len(payload) < minCompressible {
		return CompressionNone, payload, nil
	}

	var body []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, 4+lz4.CompressBlockBound(len(payload)))
		binary.LittleEndian.PutUint32(buf, uint32(len(payload)))
		n, err := lz4.CompressBlock(payload, buf[4:], nil)
		if err != nil {
			return 0, nil, err
		}
		if n == 0 {
			return CompressionNone, payload, nil
		}
		body = buf[:4+n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		body = enc.EncodeAll(payload, nil)
		zstdEncoderPool.Put(enc)
	default:
		return 0, nil, fmt.Errorf("store: unsupported compression %s", c)
	}

	if float64(len(body)) > float64(len(payload))*0.9 {
		return CompressionNone, payload, nil
	}
	return c, body, nil
}

// maxLZ4Ratio is the largest expansion an LZ4 block can encode.
const maxLZ4Ratio = 255

func decompress(body []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return body, nil
	case CompressionLZ4:
		if len(body) < 4 {
			return nil, errors.New("lz4 body too small")
		}
		size := binary.LittleEndian.Uint32(body)
		if uint64(size) > maxLZ4Ratio*uint64(len(body)-4) {
			return nil, fmt.Errorf("lz4 size %d exceeds bound for %d byte body", size, len(body)-4)
		}
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body[4:], out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != size {
			return nil, errors.New("decompressed size mismatch")
		}
		return out, nil
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		return dec.DecodeAll(body, nil)
	default:
		return nil, fmt.Errorf("unknown compression %d", uint8(c))
	}
}
