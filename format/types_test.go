package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSerializationFormat(t *testing.T) {
	require.True(t, FormatBinary.IsValid())
	require.True(t, FormatJSON.IsValid())
	require.False(t, SerializationFormat(0).IsValid())
	require.False(t, SerializationFormat(0x7F).IsValid())

	require.Equal(t, "Binary", FormatBinary.String())
	require.Equal(t, "JSON", FormatJSON.String())
}

func TestPerspective(t *testing.T) {
	require.True(t, PerspectiveClient.IsValid())
	require.True(t, PerspectiveServer.IsValid())
	require.False(t, Perspective(0).IsValid())

	require.Equal(t, "Client", PerspectiveClient.String())
	require.Equal(t, "Server", PerspectiveServer.String())
}

func TestCompressionType(t *testing.T) {
	for _, c := range []CompressionType{CompressionNone, CompressionZstd, CompressionS2, CompressionLZ4} {
		require.True(t, c.IsValid(), c.String())
	}
	require.False(t, CompressionType(0).IsValid())
	require.False(t, CompressionType(0x7F).IsValid())
}
