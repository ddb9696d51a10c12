// Package buffer provides the ownership-flexible byte region primitives used
// by the serialization boundary.
//
// A Buffer is either owned (its backing region is allocated and released by
// the Buffer, and may grow) or a borrowed view over caller memory (fixed
// capacity, the referenced region must outlive every read). A BufferList is an
// ordered sequence of Buffer segments that together represent one logical byte
// stream without requiring it to be contiguous in memory; it is the shape
// returned by zero-copy query serialization, where attribute data segments
// alias caller memory instead of being copied into the metadata payload.
package buffer

import (
	"io"

	"github.com/arraywire/arraywire/errs"
)

// DefaultChunkSize is the growth unit for small owned buffers.
const DefaultChunkSize = 1024 * 16 // 16KiB

// Buffer is a byte region with a size, a capacity and an ownership tag.
//
// Owned buffers manage their backing array exclusively and grow with an
// amortized strategy. Borrowed views never reallocate: an append beyond the
// view's fixed capacity fails with errs.ErrBufferCapacity.
type Buffer struct {
	data       []byte
	owned      bool
	generation uint64
}

// NewBuffer creates an empty owned buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity < 0 {
		capacity = 0
	}

	return &Buffer{
		data:  make([]byte, 0, capacity),
		owned: true,
	}
}

// NewBufferFrom creates an owned buffer holding a private copy of data.
func NewBufferFrom(data []byte) *Buffer {
	b := make([]byte, len(data))
	copy(b, data)

	return &Buffer{data: b, owned: true}
}

// NewBufferView creates a non-owning view over data. The view's size is
// len(data) and its fixed capacity is cap(data); the referenced region must
// outlive every read of the view.
func NewBufferView(data []byte) *Buffer {
	return &Buffer{data: data, owned: false}
}

// Bytes returns the buffer contents. For views the returned slice aliases the
// caller's region; for owned buffers it aliases the buffer's backing array
// and is invalidated by the next mutating call.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the current size in bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Cap returns the capacity in bytes.
func (b *Buffer) Cap() int {
	return cap(b.data)
}

// Owned reports whether the buffer owns its backing region.
func (b *Buffer) Owned() bool {
	return b.owned
}

// Generation returns a counter incremented by every mutating call.
//
// Zero-copy query deserialization aliases the source buffer; callers that
// want to detect accidental mutation of the source while a decoded query is
// live can snapshot the generation and compare later. This is debug
// instrumentation, not enforcement.
func (b *Buffer) Generation() uint64 {
	return b.generation
}

// Append appends p to the buffer.
//
// Owned buffers grow as needed with an amortized strategy. Views write in
// place up to their fixed capacity and fail with errs.ErrBufferCapacity when
// the append would exceed it.
func (b *Buffer) Append(p []byte) error {
	if len(p) == 0 {
		return nil
	}

	if !b.owned && len(b.data)+len(p) > cap(b.data) {
		return errs.ErrBufferCapacity
	}

	if b.owned {
		b.Grow(len(p))
	}
	b.data = append(b.data, p...)
	b.generation++

	return nil
}

// AppendByte appends a single byte, with the same capacity rules as Append.
func (b *Buffer) AppendByte(c byte) error {
	return b.Append([]byte{c})
}

// Grow ensures the buffer can hold requiredBytes more bytes without
// reallocating. It is a no-op for buffers that already have the capacity.
//
// The growth strategy matches the encoder scratch buffers: small buffers grow
// by DefaultChunkSize to minimize reallocations, larger buffers by 25% of
// current capacity.
func (b *Buffer) Grow(requiredBytes int) {
	if !b.owned {
		return
	}

	available := cap(b.data) - len(b.data)
	if available >= requiredBytes {
		return
	}

	growBy := DefaultChunkSize
	if cap(b.data) > 4*DefaultChunkSize {
		growBy = cap(b.data) / 4
	}
	if growBy < requiredBytes {
		growBy = requiredBytes
	}

	newBuf := make([]byte, len(b.data), len(b.data)+growBy)
	copy(newBuf, b.data)
	b.data = newBuf
}

// Resize sets the buffer size to n bytes, growing the backing region if
// needed. Only owned buffers may be resized; views fail with
// errs.ErrBufferNotOwned. Bytes exposed by growth are zeroed.
func (b *Buffer) Resize(n int) error {
	if !b.owned {
		return errs.ErrBufferNotOwned
	}
	if n < 0 {
		n = 0
	}

	if n <= len(b.data) {
		b.data = b.data[:n]
		b.generation++
		return nil
	}

	if n > cap(b.data) {
		b.Grow(n - len(b.data))
	}
	old := len(b.data)
	b.data = b.data[:n]
	clear(b.data[old:])
	b.generation++

	return nil
}

// SetLength sets the size to n without zeroing, for callers that are about to
// overwrite the region. n must not exceed the capacity.
func (b *Buffer) SetLength(n int) error {
	if !b.owned && n > len(b.data) {
		return errs.ErrBufferCapacity
	}
	if n < 0 || n > cap(b.data) {
		return errs.ErrBufferCapacity
	}
	b.data = b.data[:n]
	b.generation++

	return nil
}

// Alias rebinds the buffer to a non-owning view over data, releasing any
// owned backing region. Query deserialization uses it to point a
// pre-existing buffer at a region of the source bytes without copying; after
// the call the buffer's lifetime is bounded by the aliased region's.
func (b *Buffer) Alias(data []byte) {
	b.data = data
	b.owned = false
	b.generation++
}

// Reset truncates the buffer to empty, retaining capacity.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.generation++
}

// WriteTo writes the buffer contents to w.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.data)
	return int64(n), err
}

// BufferList is an ordered sequence of Buffer segments representing one
// logical byte stream. Segments are appended once and never reordered or
// mutated after the list is handed to a caller.
type BufferList struct {
	segments []*Buffer
}

// NewBufferList creates an empty buffer list.
func NewBufferList() *BufferList {
	return &BufferList{}
}

// Append adds a segment to the end of the list.
func (bl *BufferList) Append(b *Buffer) {
	bl.segments = append(bl.segments, b)
}

// NumSegments returns the number of segments.
func (bl *BufferList) NumSegments() int {
	return len(bl.segments)
}

// Segment returns the i-th segment, or nil if i is out of range.
func (bl *BufferList) Segment(i int) *Buffer {
	if i < 0 || i >= len(bl.segments) {
		return nil
	}

	return bl.segments[i]
}

// TotalSize returns the sum of segment sizes: the length of the logical
// stream the list represents.
func (bl *BufferList) TotalSize() uint64 {
	var total uint64
	for _, s := range bl.segments {
		total += uint64(s.Len())
	}

	return total
}

// ToContiguous materializes the logical stream as a single owned buffer by
// copying every segment in order. This is the explicit, opt-in "pay for the
// copy" operation for transports that require one contiguous body; the
// zero-copy path never calls it implicitly.
func (bl *BufferList) ToContiguous() *Buffer {
	out := NewBuffer(int(bl.TotalSize()))
	for _, s := range bl.segments {
		// Appends into pre-sized owned buffer cannot fail.
		_ = out.Append(s.Bytes())
	}

	return out
}

// CopyTo copies up to len(dst) bytes of the logical stream starting at
// offset into dst, returning the number of bytes copied. It lets a transport
// drain the stream incrementally without materializing it.
func (bl *BufferList) CopyTo(dst []byte, offset uint64) int {
	copied := 0
	for _, s := range bl.segments {
		seg := s.Bytes()
		if offset >= uint64(len(seg)) {
			offset -= uint64(len(seg))
			continue
		}
		n := copy(dst[copied:], seg[offset:])
		copied += n
		offset = 0
		if copied == len(dst) {
			break
		}
	}

	return copied
}

// WriteTo writes every segment, in order, to w.
func (bl *BufferList) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for _, s := range bl.segments {
		n, err := s.WriteTo(w)
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}
