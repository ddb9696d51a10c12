package serialize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arraywire/arraywire/errs"
	"github.com/arraywire/arraywire/format"
)

func TestSchemaRoundTrip(t *testing.T) {
	sch := testSchema(t)
	s := newSerializer(t)

	for _, f := range []format.SerializationFormat{format.FormatBinary, format.FormatJSON} {
		t.Run(f.String(), func(t *testing.T) {
			buf, err := s.SerializeSchema(sch, f, format.PerspectiveClient)
			require.NoError(t, err)

			decoded, err := s.DeserializeSchema(buf, f, format.PerspectiveServer)
			require.NoError(t, err)
			require.NotSame(t, sch, decoded)
			require.Equal(t, sch, decoded)
		})
	}
}

func TestSchemaRoundTrip_ServerRedactsFilterOptions(t *testing.T) {
	sch := testSchema(t)
	s := newSerializer(t)

	for _, f := range []format.SerializationFormat{format.FormatBinary, format.FormatJSON} {
		t.Run(f.String(), func(t *testing.T) {
			buf, err := s.SerializeSchema(sch, f, format.PerspectiveServer)
			require.NoError(t, err)

			decoded, err := s.DeserializeSchema(buf, f, format.PerspectiveClient)
			require.NoError(t, err)

			// The filter pipeline survives but internal option values do not:
			// the server is not authorized to echo them back.
			a1 := decoded.Attribute("a1")
			require.NotNil(t, a1)
			require.Len(t, a1.Filters, 2)
			for _, flt := range a1.Filters {
				require.False(t, flt.HasOption)
				require.Zero(t, flt.Option)
			}
			require.Equal(t, sch.Attribute("a1").Filters[0].Type, a1.Filters[0].Type)
		})
	}
}

func TestSchemaRoundTrip_DecodedCopiesAreIndependent(t *testing.T) {
	sch := testSchema(t)
	s := newSerializer(t)

	buf, err := s.SerializeSchema(sch, format.FormatBinary, format.PerspectiveClient)
	require.NoError(t, err)

	decoded, err := s.DeserializeSchema(buf, format.FormatBinary, format.PerspectiveClient)
	require.NoError(t, err)

	// Dimension bounds in the decoded schema are private copies, not views
	// over the source buffer.
	buf.Bytes()[buf.Len()-1] ^= 0xFF
	require.Equal(t, sch.Dimensions[0].Domain, decoded.Dimensions[0].Domain)
}

func TestDeserializeSchema_Invalid(t *testing.T) {
	s := newSerializer(t)

	t.Run("Inconsistent schema rejected after decode", func(t *testing.T) {
		sch := testSchema(t)
		sch.Attributes = append(sch.Attributes, sch.Attributes[0]) // duplicate name

		_, err := s.SerializeSchema(sch, format.FormatBinary, format.PerspectiveClient)
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidSchema)
	})

	t.Run("Invalid perspective", func(t *testing.T) {
		sch := testSchema(t)

		_, err := s.SerializeSchema(sch, format.FormatBinary, format.Perspective(0x7F))
		require.Error(t, err)
	})
}
