package protocol

import (
	"fmt"
	"sync"

	"github.com/annel0/bricklayer/internal/world"
	"github.com/klauspost/compress/zstd"
)

// CompressThreshold тайлы больше этого размера сжимаются zstd
const CompressThreshold = 1024

// maxTilesSize верхняя граница распакованных тайлов: карта MaxDimension²
const maxTilesSize = world.MaxDimension * world.MaxDimension * world.LayerCount

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

func initZstd() {
	zstdOnce.Do(func() {
		zstdEncoder, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDecoder, zstdErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxTilesSize))
	})
}

func compressTiles(tiles []byte) ([]byte, uint8, error) {
	if len(tiles) <= CompressThreshold {
		return tiles, compressionNone, nil
	}
	initZstd()
	if zstdErr != nil {
		return nil, 0, fmt.Errorf("protocol: zstd init: %w", zstdErr)
	}
	return zstdEncoder.EncodeAll(tiles, make([]byte, 0, len(tiles)/4)), compressionZstd, nil
}

func decompressTiles(data []byte, compression uint8, want int) ([]byte, error) {
	switch compression {
	case compressionNone:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	case compressionZstd:
		initZstd()
		if zstdErr != nil {
			return nil, zstdErr
		}
		// буфер растёт по факту распаковки, его предел задаёт WithDecoderMaxMemory
		tiles, err := zstdDecoder.DecodeAll(data, nil)
		if err != nil {
			return nil, err
		}
		if len(tiles) != want {
			return nil, fmt.Errorf("decompressed %d bytes, want %d", len(tiles), want)
		}
		return tiles, nil
	default:
		return nil, fmt.Errorf("unknown compression %d", compression)
	}
}
