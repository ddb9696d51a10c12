package query

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arraywire/arraywire/buffer"
	"github.com/arraywire/arraywire/errs"
	"github.com/arraywire/arraywire/schema"
)

func i32le(v int32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func testSchema() *schema.ArraySchema {
	s := schema.New(schema.ArraySparse)
	s.AddDimension(schema.Dimension{
		Name:   "d1",
		Type:   schema.TypeInt32,
		Domain: [2][]byte{i32le(0), i32le(999)},
	})
	s.AddAttribute(schema.Attribute{
		Name:       "a1",
		Type:       schema.TypeFloat64,
		CellValNum: 1,
	})
	s.AddAttribute(schema.Attribute{
		Name:       "labels",
		Type:       schema.TypeStringASCII,
		CellValNum: schema.VarNum,
		Nullable:   true,
	})

	return s
}

func TestNew(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		q, err := New(testSchema(), TypeRead)

		require.NoError(t, err)
		require.Equal(t, TypeRead, q.Type)
		require.Equal(t, LayoutRowMajor, q.Layout)
		require.Equal(t, StatusUninitialized, q.Status)
		require.Equal(t, 0, q.NumFields())
	})

	t.Run("Nil schema", func(t *testing.T) {
		_, err := New(nil, TypeRead)

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidQuery)
	})

	t.Run("Invalid type", func(t *testing.T) {
		_, err := New(testSchema(), Type(0x7F))

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidQuery)
	})
}

func TestQuery_SetBuffers(t *testing.T) {
	q, err := New(testSchema(), TypeRead)
	require.NoError(t, err)

	require.NoError(t, q.SetDataBuffer("a1", buffer.NewBuffer(64)))
	require.NoError(t, q.SetDataBuffer("labels", buffer.NewBuffer(128)))
	require.NoError(t, q.SetOffsetsBuffer("labels", buffer.NewBuffer(64)))
	require.NoError(t, q.SetValidityBuffer("labels", buffer.NewBuffer(8)))

	require.Equal(t, 2, q.NumFields())

	fb := q.Field("labels")
	require.NotNil(t, fb)
	require.NotNil(t, fb.Data)
	require.NotNil(t, fb.Offsets)
	require.NotNil(t, fb.Validity)
	require.Equal(t, uint64(128), fb.DataCapacity())
	require.Equal(t, uint64(64), fb.OffsetsCapacity())
	require.Equal(t, uint64(8), fb.ValidityCapacity())

	t.Run("Unknown field", func(t *testing.T) {
		err := q.SetDataBuffer("missing", buffer.NewBuffer(8))

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidQuery)
	})
}

func TestQuery_FieldOrder(t *testing.T) {
	q, err := New(testSchema(), TypeRead)
	require.NoError(t, err)

	// Registration order is labels first; serialization order follows the
	// schema declaration regardless.
	require.NoError(t, q.SetDataBuffer("labels", buffer.NewBuffer(8)))
	require.NoError(t, q.SetDataBuffer("a1", buffer.NewBuffer(8)))

	require.Equal(t, []string{"a1", "labels"}, q.FieldOrder())
}

func TestQuery_Validate(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		q, err := New(testSchema(), TypeRead)
		require.NoError(t, err)
		require.NoError(t, q.SetDataBuffer("a1", buffer.NewBuffer(8)))

		require.NoError(t, q.Validate())
	})

	t.Run("No fields", func(t *testing.T) {
		q, err := New(testSchema(), TypeRead)
		require.NoError(t, err)

		err = q.Validate()
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidQuery)
	})

	t.Run("Field without data buffer", func(t *testing.T) {
		q, err := New(testSchema(), TypeRead)
		require.NoError(t, err)
		require.NoError(t, q.SetOffsetsBuffer("labels", buffer.NewBuffer(8)))

		err = q.Validate()
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidQuery)
	})

	t.Run("Subarray dimension mismatch", func(t *testing.T) {
		q, err := New(testSchema(), TypeRead)
		require.NoError(t, err)
		require.NoError(t, q.SetDataBuffer("a1", buffer.NewBuffer(8)))
		q.Subarray.Ranges = [][]Range{
			{{Start: i32le(0), End: i32le(10)}},
			{{Start: i32le(0), End: i32le(10)}},
		}

		err = q.Validate()
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrInvalidQuery)
	})
}

func TestQuery_AttachField(t *testing.T) {
	q, err := New(testSchema(), TypeRead)
	require.NoError(t, err)

	fb := &FieldBuffer{Data: buffer.NewBuffer(16)}
	require.NoError(t, q.AttachField("a1", fb))
	require.Same(t, fb, q.Field("a1"))

	err = q.AttachField("missing", fb)
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrInvalidQuery)
}
