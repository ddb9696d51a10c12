package arraywire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arraywire/arraywire/buffer"
	"github.com/arraywire/arraywire/errs"
	"github.com/arraywire/arraywire/query"
	"github.com/arraywire/arraywire/schema"
)

func i32le(v int32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func testSchema(t *testing.T) *schema.ArraySchema {
	t.Helper()

	s := schema.New(schema.ArrayDense)
	s.AddDimension(schema.Dimension{
		Name:       "rows",
		Type:       schema.TypeInt32,
		Domain:     [2][]byte{i32le(0), i32le(99)},
		TileExtent: i32le(10),
	})
	s.AddAttribute(schema.Attribute{
		Name:       "a1",
		Type:       schema.TypeInt64,
		CellValNum: 1,
	})
	require.NoError(t, s.Validate())

	return s
}

func TestSchemaBoundary(t *testing.T) {
	ctx := NewContext()
	sch := testSchema(t)

	buf, err := SerializeSchema(ctx, sch, FormatBinary, PerspectiveClient)
	require.NoError(t, err)
	require.Nil(t, ctx.LastError())

	decoded, err := DeserializeSchema(ctx, buf, FormatBinary, PerspectiveServer)
	require.NoError(t, err)
	require.Equal(t, sch, decoded)
}

func TestQueryBoundary(t *testing.T) {
	ctx := NewContext()
	sch := testSchema(t)

	q, err := query.New(sch, query.TypeWrite)
	require.NoError(t, err)
	data := buffer.NewBuffer(32)
	require.NoError(t, data.Append([]byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, q.SetDataBuffer("a1", data))

	list, err := SerializeQuery(ctx, q, FormatBinary, PerspectiveClient)
	require.NoError(t, err)

	src := list.ToContiguous()
	target, err := query.New(sch, query.TypeWrite)
	require.NoError(t, err)

	require.NoError(t, DeserializeQuery(ctx, src, FormatBinary, PerspectiveServer, target))
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, target.Field("a1").Data.Bytes())
}

func TestDomainBoundary(t *testing.T) {
	ctx := NewContext()
	arr, err := NewArray(testSchema(t))
	require.NoError(t, err)

	bounds := arr.NewDomainBounds()
	copy(bounds[0][0], i32le(3))
	copy(bounds[0][1], i32le(42))

	buf, err := SerializeNonEmptyDomain(ctx, arr, bounds, false, FormatBinary, PerspectiveServer)
	require.NoError(t, err)

	out := arr.NewDomainBounds()
	isEmpty, err := DeserializeNonEmptyDomain(ctx, arr, buf, FormatBinary, PerspectiveClient, out)
	require.NoError(t, err)
	require.False(t, isEmpty)
	require.Equal(t, i32le(3), out[0][0])
	require.Equal(t, i32le(42), out[0][1])
}

func TestContext_LastError(t *testing.T) {
	ctx := NewContext()

	_, hasMsg := ctx.LastErrorMessage()
	require.False(t, hasMsg)

	// A failed call records structured detail on the context.
	_, err := DeserializeSchema(ctx, buffer.NewBufferFrom([]byte{1, 2, 3}), FormatBinary, PerspectiveClient)
	require.Error(t, err)
	require.ErrorIs(t, ctx.LastError(), errs.ErrMalformedInput)

	msg, hasMsg := ctx.LastErrorMessage()
	require.True(t, hasMsg)
	require.NotEmpty(t, msg)

	// A subsequent success clears it.
	sch := testSchema(t)
	_, err = SerializeSchema(ctx, sch, FormatBinary, PerspectiveClient)
	require.NoError(t, err)
	require.Nil(t, ctx.LastError())

	ctx.ClearError()
	require.Nil(t, ctx.LastError())
}

func TestNewArray_InvalidSchema(t *testing.T) {
	s := schema.New(schema.ArrayDense) // no dimensions or attributes

	_, err := NewArray(s)
	require.Error(t, err)
	require.ErrorIs(t, err, errs.ErrInvalidSchema)
}
