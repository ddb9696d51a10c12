package serialize

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arraywire/arraywire/errs"
	"github.com/arraywire/arraywire/format"
	"github.com/arraywire/arraywire/schema"
)

// domainSchema has one fixed dimension and one string dimension, the two
// bound encodings the domain serializer distinguishes.
func domainSchema(t *testing.T) *schema.ArraySchema {
	t.Helper()

	s := schema.New(schema.ArraySparse)
	s.AddDimension(schema.Dimension{
		Name:   "d1",
		Type:   schema.TypeInt32,
		Domain: [2][]byte{i32le(0), i32le(9999)},
	})
	s.AddDimension(schema.Dimension{
		Name: "name",
		Type: schema.TypeStringASCII,
	})
	s.AddAttribute(schema.Attribute{Name: "a1", Type: schema.TypeFloat64, CellValNum: 1})
	require.NoError(t, s.Validate())

	return s
}

func TestDomainRoundTrip(t *testing.T) {
	sch := domainSchema(t)
	s := newSerializer(t)

	bounds := schema.NewDomainBounds(sch)
	copy(bounds[0][0], i32le(5))
	copy(bounds[0][1], i32le(500))
	bounds[1][0] = []byte("aardvark")
	bounds[1][1] = []byte("zebra")

	for _, f := range []format.SerializationFormat{format.FormatBinary, format.FormatJSON} {
		t.Run(f.String(), func(t *testing.T) {
			buf, err := s.SerializeNonEmptyDomain(sch, bounds, false, f, format.PerspectiveServer)
			require.NoError(t, err)

			out := schema.NewDomainBounds(sch)
			isEmpty, err := s.DeserializeNonEmptyDomain(sch, buf, f, format.PerspectiveClient, out)
			require.NoError(t, err)
			require.False(t, isEmpty)

			require.Equal(t, i32le(5), out[0][0])
			require.Equal(t, i32le(500), out[0][1])
			require.Equal(t, []byte("aardvark"), out[1][0])
			require.Equal(t, []byte("zebra"), out[1][1])
		})
	}
}

func TestDomainRoundTrip_Empty(t *testing.T) {
	sch := domainSchema(t)
	s := newSerializer(t)

	for _, f := range []format.SerializationFormat{format.FormatBinary, format.FormatJSON} {
		t.Run(f.String(), func(t *testing.T) {
			// Bounds content is ignored when the domain is empty.
			buf, err := s.SerializeNonEmptyDomain(sch, nil, true, f, format.PerspectiveServer)
			require.NoError(t, err)

			out := schema.NewDomainBounds(sch)
			copy(out[0][0], i32le(77)) // sentinel: must survive untouched
			isEmpty, err := s.DeserializeNonEmptyDomain(sch, buf, f, format.PerspectiveClient, out)
			require.NoError(t, err)
			require.True(t, isEmpty)
			require.Equal(t, i32le(77), out[0][0])
		})
	}
}

func TestDomain_SizeMismatch(t *testing.T) {
	sch := domainSchema(t)
	s := newSerializer(t)

	goodBounds := schema.NewDomainBounds(sch)

	t.Run("Encode with wrong dimension count", func(t *testing.T) {
		_, err := s.SerializeNonEmptyDomain(sch, goodBounds[:1], false, format.FormatBinary, format.PerspectiveServer)
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrDomainSizeMismatch)
	})

	t.Run("Encode with wrong width", func(t *testing.T) {
		bad := schema.NewDomainBounds(sch)
		bad[0][0] = []byte{1, 2} // Int32 needs 4 bytes

		_, err := s.SerializeNonEmptyDomain(sch, bad, false, format.FormatBinary, format.PerspectiveServer)
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrDomainSizeMismatch)

		var dsm *errs.DomainSizeMismatchError
		require.ErrorAs(t, err, &dsm)
		require.Equal(t, uint64(8), dsm.Expected)
	})

	t.Run("Decode into undersized storage", func(t *testing.T) {
		buf, err := s.SerializeNonEmptyDomain(sch, goodBounds, false, format.FormatBinary, format.PerspectiveServer)
		require.NoError(t, err)

		out := schema.NewDomainBounds(sch)
		_, err = s.DeserializeNonEmptyDomain(sch, buf, format.FormatBinary, format.PerspectiveClient, out[:1])
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrDomainSizeMismatch)
	})
}

func TestDecodeDomain_FailureLeavesStorageUntouched(t *testing.T) {
	sch := domainSchema(t)
	s := newSerializer(t)

	bounds := schema.NewDomainBounds(sch)
	copy(bounds[0][0], i32le(1))
	copy(bounds[0][1], i32le(2))
	bounds[1][0] = []byte("a")
	bounds[1][1] = []byte("b")

	buf, err := s.SerializeNonEmptyDomain(sch, bounds, false, format.FormatBinary, format.PerspectiveServer)
	require.NoError(t, err)

	// A schema with an extra dimension implies more payload than the buffer
	// carries, so the decode fails mid-parse.
	bigger := domainSchema(t)
	bigger.AddDimension(schema.Dimension{
		Name:   "d2",
		Type:   schema.TypeInt64,
		Domain: [2][]byte{make([]byte, 8), make([]byte, 8)},
	})

	out := schema.NewDomainBounds(bigger)
	copy(out[0][0], i32le(42))
	_, err = s.DeserializeNonEmptyDomain(bigger, buf, format.FormatBinary, format.PerspectiveClient, out)
	require.Error(t, err)

	// The failed decode parsed into scratch space only.
	require.Equal(t, i32le(42), out[0][0])
}
