package buffer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arraywire/arraywire/errs"
)

func TestNewBuffer(t *testing.T) {
	buf := NewBuffer(64)

	require.NotNil(t, buf)
	require.Equal(t, 0, buf.Len())
	require.Equal(t, 64, buf.Cap())
	require.True(t, buf.Owned())
}

func TestNewBufferFrom(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	buf := NewBufferFrom(data)

	require.Equal(t, 4, buf.Len())
	require.True(t, buf.Owned())
	require.Equal(t, data, buf.Bytes())

	// The buffer owns a copy, not the original slice.
	data[0] = 99
	require.Equal(t, byte(1), buf.Bytes()[0])
}

func TestNewBufferView(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	view := NewBufferView(data)

	require.Equal(t, 4, view.Len())
	require.False(t, view.Owned())

	// A view aliases the original slice.
	data[0] = 99
	require.Equal(t, byte(99), view.Bytes()[0])
}

func TestBuffer_Append(t *testing.T) {
	t.Run("Owned buffer grows as needed", func(t *testing.T) {
		buf := NewBuffer(2)
		err := buf.Append([]byte{1, 2, 3, 4, 5})

		require.NoError(t, err)
		require.Equal(t, 5, buf.Len())
		require.Equal(t, []byte{1, 2, 3, 4, 5}, buf.Bytes())
	})

	t.Run("View fails beyond capacity", func(t *testing.T) {
		backing := make([]byte, 0, 4)
		view := NewBufferView(backing)
		require.NoError(t, view.Append([]byte{1, 2, 3, 4}))

		err := view.Append([]byte{5})
		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrBufferCapacity)
	})
}

func TestBuffer_Resize(t *testing.T) {
	t.Run("Grow zeroes new bytes", func(t *testing.T) {
		buf := NewBufferFrom([]byte{1, 2})
		require.NoError(t, buf.Resize(4))

		require.Equal(t, []byte{1, 2, 0, 0}, buf.Bytes())
	})

	t.Run("Shrink truncates", func(t *testing.T) {
		buf := NewBufferFrom([]byte{1, 2, 3, 4})
		require.NoError(t, buf.Resize(2))

		require.Equal(t, []byte{1, 2}, buf.Bytes())
	})

	t.Run("View cannot be resized", func(t *testing.T) {
		view := NewBufferView([]byte{1, 2, 3})
		err := view.Resize(8)

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrBufferNotOwned)
	})
}

func TestBuffer_SetLength(t *testing.T) {
	buf := NewBuffer(8)
	require.NoError(t, buf.Append([]byte{1, 2, 3, 4}))

	require.NoError(t, buf.SetLength(2))
	require.Equal(t, []byte{1, 2}, buf.Bytes())

	err := buf.SetLength(100)
	require.Error(t, err)
}

func TestBuffer_Alias(t *testing.T) {
	buf := NewBuffer(16)
	require.NoError(t, buf.Append([]byte{1, 2, 3}))
	gen := buf.Generation()

	region := []byte{9, 8, 7, 6}
	buf.Alias(region)

	require.False(t, buf.Owned())
	require.Equal(t, region, buf.Bytes())
	require.Greater(t, buf.Generation(), gen)

	// Aliased content tracks the underlying region.
	region[0] = 42
	require.Equal(t, byte(42), buf.Bytes()[0])
}

func TestBuffer_Generation(t *testing.T) {
	buf := NewBuffer(4)
	gen := buf.Generation()

	require.NoError(t, buf.Append([]byte{1}))
	require.Greater(t, buf.Generation(), gen)

	gen = buf.Generation()
	buf.Reset()
	require.Greater(t, buf.Generation(), gen)
}

func TestBuffer_WriteTo(t *testing.T) {
	buf := NewBufferFrom([]byte("hello"))

	var out bytes.Buffer
	n, err := buf.WriteTo(&out)

	require.NoError(t, err)
	require.Equal(t, int64(5), n)
	require.Equal(t, "hello", out.String())
}

func TestBufferList(t *testing.T) {
	list := NewBufferList()
	list.Append(NewBufferFrom([]byte{1, 2}))
	list.Append(NewBufferFrom([]byte{3}))
	list.Append(NewBufferFrom([]byte{4, 5, 6}))

	require.Equal(t, 3, list.NumSegments())
	require.Equal(t, uint64(6), list.TotalSize())
	require.Equal(t, []byte{3}, list.Segment(1).Bytes())
	require.Nil(t, list.Segment(5))

	t.Run("ToContiguous", func(t *testing.T) {
		flat := list.ToContiguous()
		require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, flat.Bytes())
		require.True(t, flat.Owned())
	})

	t.Run("CopyTo with offset", func(t *testing.T) {
		dst := make([]byte, 4)
		n := list.CopyTo(dst, 2)
		require.Equal(t, 4, n)
		require.Equal(t, []byte{3, 4, 5, 6}, dst)
	})

	t.Run("WriteTo", func(t *testing.T) {
		var out bytes.Buffer
		n, err := list.WriteTo(&out)
		require.NoError(t, err)
		require.Equal(t, int64(6), n)
		require.Equal(t, []byte{1, 2, 3, 4, 5, 6}, out.Bytes())
	})
}
