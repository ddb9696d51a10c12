package section

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arraywire/arraywire/errs"
	"github.com/arraywire/arraywire/format"
)

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope(format.FormatBinary, format.PerspectiveClient)

	require.Equal(t, uint16(MagicEnvelopeV1), env.MagicNumber())
	require.True(t, env.IsLittleEndian())
	require.Equal(t, format.PerspectiveClient, env.Perspective())
	require.Equal(t, format.FormatBinary, env.Format)
	require.Equal(t, format.CompressionNone, env.Compression)
	require.NoError(t, env.Validate())
}

func TestEnvelope_Perspective(t *testing.T) {
	env := NewEnvelope(format.FormatBinary, format.PerspectiveServer)
	require.Equal(t, format.PerspectiveServer, env.Perspective())

	env.SetPerspective(format.PerspectiveClient)
	require.Equal(t, format.PerspectiveClient, env.Perspective())

	// The perspective bit must not disturb the magic number.
	require.Equal(t, uint16(MagicEnvelopeV1), env.MagicNumber())
}

func TestEnvelope_Endianness(t *testing.T) {
	env := NewEnvelope(format.FormatBinary, format.PerspectiveClient)
	require.True(t, env.IsLittleEndian())

	env.WithBigEndian()
	require.False(t, env.IsLittleEndian())

	env.WithLittleEndian()
	require.True(t, env.IsLittleEndian())
}

func TestEnvelope_Parse(t *testing.T) {
	t.Run("Round trip", func(t *testing.T) {
		original := NewEnvelope(format.FormatJSON, format.PerspectiveServer)
		original.Compression = format.CompressionZstd
		original.MetaLen = 1234
		original.Checksum = 0xDEADBEEFCAFEF00D

		data := original.Bytes()
		require.Len(t, data, EnvelopeSize)

		parsed, err := ParseEnvelope(data)
		require.NoError(t, err)
		require.Equal(t, original, parsed)
	})

	t.Run("Big-endian round trip", func(t *testing.T) {
		original := NewEnvelope(format.FormatBinary, format.PerspectiveClient)
		original.WithBigEndian()
		original.MetaLen = 77
		original.Checksum = 42

		parsed, err := ParseEnvelope(original.Bytes())
		require.NoError(t, err)
		require.False(t, parsed.IsLittleEndian())
		require.Equal(t, uint32(77), parsed.MetaLen)
		require.Equal(t, uint64(42), parsed.Checksum)
	})

	t.Run("Too short", func(t *testing.T) {
		var env Envelope
		err := env.Parse([]byte{1, 2, 3})

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrMalformedInput)
	})

	t.Run("Bad magic", func(t *testing.T) {
		data := NewEnvelope(format.FormatBinary, format.PerspectiveClient).Bytes()
		data[1] = 0x00 // clobber the magic bits

		_, err := ParseEnvelope(data)
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrMalformedInput)
	})

	t.Run("Reserved bits set", func(t *testing.T) {
		data := NewEnvelope(format.FormatBinary, format.PerspectiveClient).Bytes()
		data[0] |= 0x04

		_, err := ParseEnvelope(data)
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrMalformedInput)
	})

	t.Run("Unknown format tag", func(t *testing.T) {
		data := NewEnvelope(format.FormatBinary, format.PerspectiveClient).Bytes()
		data[2] = 0x7F

		_, err := ParseEnvelope(data)
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrMalformedInput)
	})

	t.Run("Unknown compression tag", func(t *testing.T) {
		data := NewEnvelope(format.FormatBinary, format.PerspectiveClient).Bytes()
		data[3] = 0x7F

		_, err := ParseEnvelope(data)
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrMalformedInput)
	})
}

func TestEnvelope_OptionsWordIsAlwaysLittleEndian(t *testing.T) {
	env := NewEnvelope(format.FormatBinary, format.PerspectiveClient)
	env.WithBigEndian()

	data := env.Bytes()

	// A decoder reads the Options word before knowing the byte order, so its
	// layout is fixed regardless of the endianness flag.
	options := uint16(data[0]) | (uint16(data[1]) << 8)
	require.Equal(t, uint16(MagicEnvelopeV1), options&MagicNumberMask)
	require.NotZero(t, options&EndiannessMask)
}
