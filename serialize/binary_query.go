package serialize

import (
	"errors"
	"fmt"

	"github.com/arraywire/arraywire/buffer"
	"github.com/arraywire/arraywire/errs"
	"github.com/arraywire/arraywire/format"
	"github.com/arraywire/arraywire/query"
	"github.com/arraywire/arraywire/section"
)

// Field flag bits in the query metadata.
const (
	fieldHasOffsets  = 0x01
	fieldHasValidity = 0x02
	fieldFlagsMask   = fieldHasOffsets | fieldHasValidity
)

// EncodeQuery walks the query structure and encodes only the structural
// metadata (layout, subarray, condition, field name list with capacities and
// sizes) into the metadata payload. Every field buffer is returned as its
// own zero-copy segment, in schema-declared field order, so a
// gigabyte-scale attribute buffer is never copied into the payload.
func (binaryCodec) EncodeQuery(cfg Config, q *query.Query, p format.Perspective) ([]byte, []*buffer.Buffer, error) {
	tbl := tableFor(kindQuery, p)

	w := newMetaWriter(cfg)
	w.writeByte(byte(kindQuery))
	w.writeByte(byte(q.Type))
	w.writeByte(byte(q.Layout))
	w.writeByte(byte(q.Status))

	w.writeUint32(uint32(len(q.Subarray.Ranges))) //nolint:gosec
	for _, ranges := range q.Subarray.Ranges {
		w.writeUint32(uint32(len(ranges))) //nolint:gosec
		for _, rng := range ranges {
			w.writeBytes32(rng.Start)
			w.writeBytes32(rng.End)
		}
	}

	w.writeBool(q.Condition != nil)
	if q.Condition != nil {
		w.writeString(q.Condition.Expression)
	}

	order := q.FieldOrder()
	w.writeUint32(uint32(len(order))) //nolint:gosec

	segments := make([]*buffer.Buffer, 0, 3*len(order))
	for _, name := range order {
		fb := q.Field(name)

		var flags byte
		if fb.Offsets != nil {
			flags |= fieldHasOffsets
		}
		if fb.Validity != nil {
			flags |= fieldHasValidity
		}

		w.writeString(name)
		w.writeByte(flags)

		w.writeUint64(fb.DataCapacity())
		w.writeUint64(uint64(fb.Data.Len()))
		if fb.Offsets != nil {
			w.writeUint64(fb.OffsetsCapacity())
			w.writeUint64(uint64(fb.Offsets.Len()))
		}
		if fb.Validity != nil {
			w.writeUint64(fb.ValidityCapacity())
			w.writeUint64(uint64(fb.Validity.Len()))
		}

		if tbl.resultSizes {
			w.writeUint64(fb.ResultDataSize)
			w.writeUint64(fb.ResultOffsetsSize)
			w.writeUint64(fb.ResultValiditySize)
		}

		// The segments are views over the caller's buffers: aliases, not
		// copies. Empty buffers still contribute a segment so the segment
		// count stays deterministic for a given field set.
		segments = append(segments, buffer.NewBufferView(fb.Data.Bytes()))
		if fb.Offsets != nil {
			segments = append(segments, buffer.NewBufferView(fb.Offsets.Bytes()))
		}
		if fb.Validity != nil {
			segments = append(segments, buffer.NewBufferView(fb.Validity.Bytes()))
		}
	}

	return w.finish(), segments, nil
}

// DecodeQuery populates target in place. Field data regions are aliased out
// of segments (which alias the source buffer), never copied. Fields decoded
// before a failure keep their contents; the returned error names the failed
// field and the number of completed fields, or is a BufferTooSmallError on
// the designed recoverable path.
func (binaryCodec) DecodeQuery(cfg Config, env section.Envelope, meta []byte, segments []byte, srcGen uint64, p format.Perspective, target *query.Query) error {
	r := newMetaReader(env, meta)
	if err := expectKind(r, kindQuery); err != nil {
		return err
	}

	// The wire shape is fixed by the encoder's perspective, recorded in the
	// envelope. The caller's perspective decides the population policy below.
	encTbl := tableFor(kindQuery, env.Perspective())

	header, err := readQueryHeader(r)
	if err != nil {
		return err
	}

	nfields, err := r.readUint32()
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
	}
	if nfields > maxFieldCount {
		return fmt.Errorf("%w: implausible field count %d", errs.ErrMalformedInput, nfields)
	}

	target.Type = header.queryType
	target.Layout = header.layout
	target.Status = header.status
	target.Subarray = header.subarray
	target.Condition = header.condition

	segOff := 0
	for i := uint32(0); i < nfields; i++ {
		fm, err := readFieldMeta(r, encTbl)
		if err != nil {
			return &errs.FieldDecodeError{
				Field:     fm.name,
				Completed: int(i),
				Err:       fmt.Errorf("%w: %v", errs.ErrMalformedInput, err),
			}
		}

		fm.dataSeg, segOff, err = takeSegment(segments, segOff, fm.dataLen)
		if err == nil && fm.flags&fieldHasOffsets != 0 {
			fm.offsetsSeg, segOff, err = takeSegment(segments, segOff, fm.offsetsLen)
		}
		if err == nil && fm.flags&fieldHasValidity != 0 {
			fm.validitySeg, segOff, err = takeSegment(segments, segOff, fm.validityLen)
		}
		if err != nil {
			return &errs.FieldDecodeError{
				Field:     fm.name,
				Completed: int(i),
				Err:       fmt.Errorf("%w: %v", errs.ErrMalformedInput, err),
			}
		}

		if err := populateField(target, fm, p); err != nil {
			if _, recoverable := errAsBufferTooSmall(err); recoverable {
				return err
			}

			return &errs.FieldDecodeError{Field: fm.name, Completed: int(i), Err: err}
		}
	}

	target.SourceGeneration = srcGen

	return nil
}

type queryHeader struct {
	queryType query.Type
	layout    query.Layout
	status    query.Status
	subarray  query.Subarray
	condition *query.Condition
}

func readQueryHeader(r *metaReader) (queryHeader, error) {
	var h queryHeader

	qt, err := r.readByte()
	if err != nil {
		return h, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
	}
	h.queryType = query.Type(qt)
	if !h.queryType.IsValid() {
		return h, fmt.Errorf("%w: invalid query type 0x%02X", errs.ErrMalformedInput, qt)
	}

	lo, err := r.readByte()
	if err != nil {
		return h, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
	}
	h.layout = query.Layout(lo)
	if !h.layout.IsValid() {
		return h, fmt.Errorf("%w: invalid layout 0x%02X", errs.ErrMalformedInput, lo)
	}

	st, err := r.readByte()
	if err != nil {
		return h, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
	}
	h.status = query.Status(st)
	if !h.status.IsValid() {
		return h, fmt.Errorf("%w: invalid status 0x%02X", errs.ErrMalformedInput, st)
	}

	ndim, err := r.readUint32()
	if err != nil {
		return h, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
	}
	if ndim > maxFieldCount {
		return h, fmt.Errorf("%w: implausible subarray dimension count %d", errs.ErrMalformedInput, ndim)
	}
	if ndim > 0 {
		h.subarray.Ranges = make([][]query.Range, ndim)
		for d := uint32(0); d < ndim; d++ {
			nranges, err := r.readUint32()
			if err != nil {
				return h, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
			}
			if nranges > maxFieldCount {
				return h, fmt.Errorf("%w: implausible range count %d", errs.ErrMalformedInput, nranges)
			}
			ranges := make([]query.Range, 0, nranges)
			for j := uint32(0); j < nranges; j++ {
				start, err := r.readBytes32()
				if err != nil {
					return h, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
				}
				end, err := r.readBytes32()
				if err != nil {
					return h, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
				}
				ranges = append(ranges, query.Range{Start: copyBytes(start), End: copyBytes(end)})
			}
			h.subarray.Ranges[d] = ranges
		}
	}

	hasCond, err := r.readBool()
	if err != nil {
		return h, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
	}
	if hasCond {
		expr, err := r.readString()
		if err != nil {
			return h, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
		}
		h.condition = &query.Condition{Expression: expr}
	}

	return h, nil
}

// fieldMeta is the decoded per-field metadata plus the segment regions
// resolved for it.
type fieldMeta struct {
	name  string
	flags byte

	dataCap, dataLen         uint64
	offsetsCap, offsetsLen   uint64
	validityCap, validityLen uint64

	resultData, resultOffsets, resultValidity uint64
	hasResults                                bool

	dataSeg, offsetsSeg, validitySeg []byte
}

func readFieldMeta(r *metaReader, encTbl fieldTable) (fieldMeta, error) {
	var fm fieldMeta

	var err error
	if fm.name, err = r.readString(); err != nil {
		return fm, err
	}
	if fm.flags, err = r.readByte(); err != nil {
		return fm, err
	}
	if fm.flags&^byte(fieldFlagsMask) != 0 {
		return fm, fmt.Errorf("invalid field flags 0x%02X", fm.flags)
	}

	if fm.dataCap, err = r.readUint64(); err != nil {
		return fm, err
	}
	if fm.dataLen, err = r.readUint64(); err != nil {
		return fm, err
	}
	if fm.flags&fieldHasOffsets != 0 {
		if fm.offsetsCap, err = r.readUint64(); err != nil {
			return fm, err
		}
		if fm.offsetsLen, err = r.readUint64(); err != nil {
			return fm, err
		}
	}
	if fm.flags&fieldHasValidity != 0 {
		if fm.validityCap, err = r.readUint64(); err != nil {
			return fm, err
		}
		if fm.validityLen, err = r.readUint64(); err != nil {
			return fm, err
		}
	}

	if encTbl.resultSizes {
		fm.hasResults = true
		if fm.resultData, err = r.readUint64(); err != nil {
			return fm, err
		}
		if fm.resultOffsets, err = r.readUint64(); err != nil {
			return fm, err
		}
		if fm.resultValidity, err = r.readUint64(); err != nil {
			return fm, err
		}
	}

	return fm, nil
}

func takeSegment(segments []byte, off int, n uint64) ([]byte, int, error) {
	if uint64(off)+n > uint64(len(segments)) {
		return nil, off, fmt.Errorf("segment of %d byte(s) at offset %d exceeds payload", n, off)
	}
	end := off + int(n)

	return segments[off:end], end, nil
}

// populateField installs one field's decoded buffers on the target query.
//
// A client caller deserializes a reply into a query whose buffers it
// registered itself, so a carried field missing from the target is an error.
// A server caller deserializes a request into a fresh query, so missing
// fields are attached: aliased to the carried data when there is any, or
// allocated empty at the request's capacity for the server to fill.
func populateField(target *query.Query, fm fieldMeta, p format.Perspective) error {
	fb := target.Field(fm.name)
	if fb == nil {
		if p == format.PerspectiveClient {
			return fmt.Errorf("field %q not set on target query", fm.name)
		}

		nfb := &query.FieldBuffer{
			Data: regionBuffer(fm.dataSeg, fm.dataCap),
		}
		if fm.flags&fieldHasOffsets != 0 {
			nfb.Offsets = regionBuffer(fm.offsetsSeg, fm.offsetsCap)
		}
		if fm.flags&fieldHasValidity != 0 {
			nfb.Validity = regionBuffer(fm.validitySeg, fm.validityCap)
		}
		setResultSizes(nfb, fm)

		return target.AttachField(fm.name, nfb)
	}

	if fb.Data == nil {
		return fmt.Errorf("field %q has no data buffer on target query", fm.name)
	}

	// All capacity checks happen before any aliasing so a failed field is
	// left fully untouched.
	if uint64(fb.Data.Cap()) < fm.dataLen {
		return &errs.BufferTooSmallError{
			Field: fm.name, Kind: "data",
			Required: fm.dataLen, Capacity: uint64(fb.Data.Cap()),
		}
	}
	if fm.flags&fieldHasOffsets != 0 && fb.Offsets != nil && uint64(fb.Offsets.Cap()) < fm.offsetsLen {
		return &errs.BufferTooSmallError{
			Field: fm.name, Kind: "offsets",
			Required: fm.offsetsLen, Capacity: uint64(fb.Offsets.Cap()),
		}
	}
	if fm.flags&fieldHasValidity != 0 && fb.Validity != nil && uint64(fb.Validity.Cap()) < fm.validityLen {
		return &errs.BufferTooSmallError{
			Field: fm.name, Kind: "validity",
			Required: fm.validityLen, Capacity: uint64(fb.Validity.Cap()),
		}
	}

	fb.Data.Alias(fm.dataSeg)
	if fm.flags&fieldHasOffsets != 0 {
		if fb.Offsets == nil {
			fb.Offsets = regionBuffer(fm.offsetsSeg, fm.offsetsCap)
		} else {
			fb.Offsets.Alias(fm.offsetsSeg)
		}
	}
	if fm.flags&fieldHasValidity != 0 {
		if fb.Validity == nil {
			fb.Validity = regionBuffer(fm.validitySeg, fm.validityCap)
		} else {
			fb.Validity.Alias(fm.validitySeg)
		}
	}
	setResultSizes(fb, fm)

	return nil
}

// regionBuffer wraps a carried segment as a zero-copy view, or, when the
// segment is empty (a request's unfilled result buffer), allocates an owned
// buffer at the requested capacity for the server to fill.
func regionBuffer(seg []byte, capacity uint64) *buffer.Buffer {
	if len(seg) > 0 {
		return buffer.NewBufferView(seg)
	}

	return buffer.NewBuffer(int(capacity)) //nolint:gosec
}

func setResultSizes(fb *query.FieldBuffer, fm fieldMeta) {
	if !fm.hasResults {
		return
	}
	fb.ResultDataSize = fm.resultData
	fb.ResultOffsetsSize = fm.resultOffsets
	fb.ResultValiditySize = fm.resultValidity
}

func errAsBufferTooSmall(err error) (*errs.BufferTooSmallError, bool) {
	var bts *errs.BufferTooSmallError
	ok := errors.As(err, &bts)

	return bts, ok
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)

	return out
}
