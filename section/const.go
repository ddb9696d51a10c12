package section

const (
	// Bit masks for the packed Options word.
	EndiannessMask   = 0x0001 // Mask for endianness bit (bit 0)
	PerspectiveMask  = 0x0002 // Mask for perspective bit (bit 1), 0=client 1=server
	ReservedBitsMask = 0x000C // Mask for reserved bits (bits 2-3)
	MagicNumberMask  = 0xFFF0 // Mask for magic number (bits 4-15)

	// MagicEnvelopeV1 is the version 1 magic number of the wire envelope.
	MagicEnvelopeV1 = 0xAD10
)

// EnvelopeSize is the fixed byte size of the wire envelope that prefixes
// every serialized payload.
const EnvelopeSize = 16

// Byte layout of the envelope:
//
//	offset 0-1   Options  (packed: endianness, perspective, magic)
//	offset 2     Format   (SerializationFormat tag)
//	offset 3     Compress (CompressionType of the metadata payload)
//	offset 4-7   MetaLen  (stored length of the metadata payload)
//	offset 8-15  Checksum (xxHash64 of the stored metadata payload)
