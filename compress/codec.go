// Package compress provides the optional compression codecs applied to the
// metadata payload of a serialized object.
//
// Only the metadata payload (schema fields, query structure, field name list)
// is ever compressed. Zero-copy data segments alias caller memory and are
// transmitted as-is; compressing them would force the copy the zero-copy path
// exists to avoid.
package compress

import (
	"fmt"

	"github.com/arraywire/arraywire/format"
)

// Compressor compresses a metadata payload.
//
// Memory management:
//   - The returned slice is newly allocated and owned by the caller.
//   - The input slice is not modified.
//   - Internal buffers may be reused for efficiency.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor restores a metadata payload compressed with the matching
// algorithm. Implementations validate the input and return an error for
// corrupted or incompatible data.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves a built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}
