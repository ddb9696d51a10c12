package format

type (
	// SerializationFormat identifies the wire encoding of a serialized payload.
	SerializationFormat uint8
	// Perspective identifies which side of a client/server exchange is
	// performing an encode or decode.
	Perspective uint8
	// CompressionType identifies the compression applied to the metadata
	// payload of a serialized object.
	CompressionType uint8
)

const (
	FormatBinary SerializationFormat = 0x1 // FormatBinary is the compact binary format.
	FormatJSON   SerializationFormat = 0x2 // FormatJSON is the human-readable JSON format.

	PerspectiveClient Perspective = 0x1 // PerspectiveClient is the side that originated the request.
	PerspectiveServer Perspective = 0x2 // PerspectiveServer is the side that executes the request.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

func (f SerializationFormat) String() string {
	switch f {
	case FormatBinary:
		return "Binary"
	case FormatJSON:
		return "JSON"
	default:
		return "Unknown"
	}
}

// IsValid reports whether f is a registered format tag.
func (f SerializationFormat) IsValid() bool {
	return f == FormatBinary || f == FormatJSON
}

func (p Perspective) String() string {
	switch p {
	case PerspectiveClient:
		return "Client"
	case PerspectiveServer:
		return "Server"
	default:
		return "Unknown"
	}
}

// IsValid reports whether p is a known perspective.
func (p Perspective) IsValid() bool {
	return p == PerspectiveClient || p == PerspectiveServer
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// IsValid reports whether c is a supported compression type.
func (c CompressionType) IsValid() bool {
	return c >= CompressionNone && c <= CompressionLZ4
}
