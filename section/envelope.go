// Package section defines the fixed-size wire envelope that prefixes every
// serialized payload. The envelope is self-describing: a decoder validates
// the magic number, format tag, compression tag and metadata checksum before
// reading any payload bytes, so corrupted or foreign-origin buffers are
// rejected early instead of being read past.
package section

import (
	"fmt"

	"github.com/arraywire/arraywire/endian"
	"github.com/arraywire/arraywire/errs"
	"github.com/arraywire/arraywire/format"
)

// Envelope is the fixed-size header section at the start of every serialized
// payload.
type Envelope struct {
	// Options is a packed field for endianness, perspective and magic number.
	// Bit 0 is the endianness flag, 0 means little-endian, 1 means big-endian.
	// Bit 1 is the perspective flag, 0 means client, 1 means server.
	// Bits 2-3 are reserved and must be 0.
	// Bits 4-15 are the magic number identifying the envelope version.
	Options uint16

	// Format is the serialization format tag of the metadata payload.
	Format format.SerializationFormat

	// Compression is the compression applied to the metadata payload.
	// Zero-copy data segments following the payload are never compressed.
	Compression format.CompressionType

	// MetaLen is the stored (possibly compressed) length of the metadata
	// payload that immediately follows the envelope.
	MetaLen uint32

	// Checksum is the xxHash64 of the stored metadata payload.
	Checksum uint64
}

// NewEnvelope creates an envelope for the given format and perspective with
// little-endian byte order and no compression.
func NewEnvelope(f format.SerializationFormat, p format.Perspective) Envelope {
	e := Envelope{
		Options:     MagicEnvelopeV1,
		Format:      f,
		Compression: format.CompressionNone,
	}
	e.SetPerspective(p)

	return e
}

// IsLittleEndian returns whether the payload is little-endian.
func (e Envelope) IsLittleEndian() bool {
	return (e.Options & EndiannessMask) == 0
}

// WithLittleEndian sets little-endian byte order.
func (e *Envelope) WithLittleEndian() {
	e.Options &^= uint16(EndiannessMask)
}

// WithBigEndian sets big-endian byte order.
func (e *Envelope) WithBigEndian() {
	e.Options |= EndiannessMask
}

// Perspective returns the perspective recorded in the envelope: the side
// that performed the encode.
func (e Envelope) Perspective() format.Perspective {
	if (e.Options & PerspectiveMask) != 0 {
		return format.PerspectiveServer
	}

	return format.PerspectiveClient
}

// SetPerspective records the encoding perspective in the Options word.
func (e *Envelope) SetPerspective(p format.Perspective) {
	if p == format.PerspectiveServer {
		e.Options |= PerspectiveMask
	} else {
		e.Options &^= uint16(PerspectiveMask)
	}
}

// MagicNumber returns the magic number from the Options field.
func (e Envelope) MagicNumber() uint16 {
	return e.Options & MagicNumberMask
}

// Engine returns the endian engine matching the envelope's endianness flag.
func (e Envelope) Engine() endian.EndianEngine {
	if e.IsLittleEndian() {
		return endian.GetLittleEndianEngine()
	}

	return endian.GetBigEndianEngine()
}

// Validate checks the envelope for a recognized magic number and valid
// format and compression tags.
func (e Envelope) Validate() error {
	if e.MagicNumber() != MagicEnvelopeV1 {
		return fmt.Errorf("%w: unrecognized envelope magic 0x%04X", errs.ErrMalformedInput, e.MagicNumber())
	}
	if (e.Options & ReservedBitsMask) != 0 {
		return fmt.Errorf("%w: reserved envelope bits set", errs.ErrMalformedInput)
	}
	if !e.Format.IsValid() {
		return fmt.Errorf("%w: invalid format tag 0x%02X", errs.ErrMalformedInput, uint8(e.Format))
	}
	if !e.Compression.IsValid() {
		return fmt.Errorf("%w: invalid compression tag 0x%02X", errs.ErrMalformedInput, uint8(e.Compression))
	}

	return nil
}

// Bytes serializes the envelope into a fixed-size byte slice.
//
// The Options word itself is always little-endian so a decoder can read the
// endianness flag before knowing the byte order; the remaining fields use the
// envelope's engine.
func (e Envelope) Bytes() []byte {
	b := make([]byte, EnvelopeSize)

	b[0] = byte(e.Options)
	b[1] = byte(e.Options >> 8)
	b[2] = byte(e.Format)
	b[3] = byte(e.Compression)

	engine := e.Engine()
	engine.PutUint32(b[4:8], e.MetaLen)
	engine.PutUint64(b[8:16], e.Checksum)

	return b
}

// Parse parses the envelope from a byte slice of at least EnvelopeSize bytes
// and validates it.
func (e *Envelope) Parse(data []byte) error {
	if len(data) < EnvelopeSize {
		return fmt.Errorf("%w: payload shorter than envelope (%d bytes)", errs.ErrMalformedInput, len(data))
	}

	e.Options = uint16(data[0]) | (uint16(data[1]) << 8)
	e.Format = format.SerializationFormat(data[2])
	e.Compression = format.CompressionType(data[3])

	engine := e.Engine()
	e.MetaLen = engine.Uint32(data[4:8])
	e.Checksum = engine.Uint64(data[8:16])

	return e.Validate()
}

// ParseEnvelope parses and validates an envelope from data.
func ParseEnvelope(data []byte) (Envelope, error) {
	var e Envelope
	if err := e.Parse(data); err != nil {
		return Envelope{}, err
	}

	return e, nil
}
