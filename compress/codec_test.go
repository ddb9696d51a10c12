package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arraywire/arraywire/format"
)

func testPayload() []byte {
	// Repetitive enough for every codec to actually compress.
	return bytes.Repeat([]byte("array schema metadata payload "), 64)
}

func TestGetCodec(t *testing.T) {
	for _, c := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		codec, err := GetCodec(c)
		require.NoError(t, err, c.String())
		require.NotNil(t, codec)
	}

	_, err := GetCodec(format.CompressionType(0x7F))
	require.Error(t, err)
}

func TestCodec_RoundTrip(t *testing.T) {
	payload := testPayload()

	for _, c := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(c.String(), func(t *testing.T) {
			codec, err := GetCodec(c)
			require.NoError(t, err)

			compressed, err := codec.Compress(payload)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Equal(t, payload, restored)
		})
	}
}

func TestCodec_EmptyInput(t *testing.T) {
	for _, c := range []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	} {
		t.Run(c.String(), func(t *testing.T) {
			codec, err := GetCodec(c)
			require.NoError(t, err)

			compressed, err := codec.Compress(nil)
			require.NoError(t, err)

			restored, err := codec.Decompress(compressed)
			require.NoError(t, err)
			require.Empty(t, restored)
		})
	}
}

func TestCodec_CorruptedInput(t *testing.T) {
	for _, c := range []format.CompressionType{
		format.CompressionZstd,
		format.CompressionLZ4,
	} {
		t.Run(c.String(), func(t *testing.T) {
			codec, err := GetCodec(c)
			require.NoError(t, err)

			_, err = codec.Decompress([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01, 0x02})
			require.Error(t, err)
		})
	}
}
