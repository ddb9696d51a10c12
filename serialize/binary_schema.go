package serialize

import (
	"fmt"

	"github.com/arraywire/arraywire/errs"
	"github.com/arraywire/arraywire/format"
	"github.com/arraywire/arraywire/schema"
	"github.com/arraywire/arraywire/section"
)

// binaryCodec implements the compact binary format. Metadata is fixed-width
// fields and length-prefixed strings in the envelope's byte order; query
// data buffers travel as separate zero-copy segments.
type binaryCodec struct{}

var _ Codec = binaryCodec{}

func (binaryCodec) Format() format.SerializationFormat {
	return format.FormatBinary
}

// maxFieldCount bounds decoded dimension/attribute/field/range counts so a
// corrupted count cannot trigger a huge allocation before the payload length
// check would catch it.
const maxFieldCount = 1 << 20

func (binaryCodec) EncodeSchema(cfg Config, s *schema.ArraySchema, p format.Perspective) ([]byte, error) {
	tbl := tableFor(kindSchema, p)

	w := newMetaWriter(cfg)
	w.writeByte(byte(kindSchema))
	w.writeUint32(s.Version)
	w.writeByte(byte(s.ArrayType))
	w.writeByte(byte(s.CellOrder))
	w.writeByte(byte(s.TileOrder))

	w.writeUint32(uint32(len(s.Dimensions))) //nolint:gosec
	for i := range s.Dimensions {
		d := &s.Dimensions[i]
		w.writeString(d.Name)
		w.writeByte(byte(d.Type))
		if err := writeNative(w, d.Type, d.Domain[0]); err != nil {
			w.release()
			return nil, err
		}
		if err := writeNative(w, d.Type, d.Domain[1]); err != nil {
			w.release()
			return nil, err
		}
		w.writeBool(d.TileExtent != nil)
		if d.TileExtent != nil {
			if err := writeNative(w, d.Type, d.TileExtent); err != nil {
				w.release()
				return nil, err
			}
		}
	}

	w.writeUint32(uint32(len(s.Attributes))) //nolint:gosec
	for i := range s.Attributes {
		a := &s.Attributes[i]
		w.writeString(a.Name)
		w.writeByte(byte(a.Type))
		w.writeUint32(a.CellValNum)
		w.writeBool(a.Nullable)
		w.writeUint32(uint32(len(a.Filters))) //nolint:gosec
		for _, flt := range a.Filters {
			w.writeByte(byte(flt.Type))
			carry := flt.HasOption && tbl.filterOptions
			w.writeBool(carry)
			if carry {
				w.writeInt32(flt.Option)
			}
		}
	}

	return w.finish(), nil
}

func (binaryCodec) DecodeSchema(cfg Config, env section.Envelope, meta []byte, p format.Perspective) (*schema.ArraySchema, error) {
	r := newMetaReader(env, meta)

	if err := expectKind(r, kindSchema); err != nil {
		return nil, err
	}

	s, err := readSchemaBody(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSchemaDecode, err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSchemaDecode, err)
	}

	return s, nil
}

func readSchemaBody(r *metaReader) (*schema.ArraySchema, error) {
	s := &schema.ArraySchema{}

	var err error
	if s.Version, err = r.readUint32(); err != nil {
		return nil, err
	}

	arrayType, err := r.readByte()
	if err != nil {
		return nil, err
	}
	s.ArrayType = schema.ArrayType(arrayType)

	cellOrder, err := r.readByte()
	if err != nil {
		return nil, err
	}
	s.CellOrder = schema.Order(cellOrder)

	tileOrder, err := r.readByte()
	if err != nil {
		return nil, err
	}
	s.TileOrder = schema.Order(tileOrder)

	ndim, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if ndim == 0 || ndim > maxFieldCount {
		return nil, fmt.Errorf("implausible dimension count %d", ndim)
	}
	s.Dimensions = make([]schema.Dimension, 0, ndim)
	for i := uint32(0); i < ndim; i++ {
		d, err := readDimension(r)
		if err != nil {
			return nil, fmt.Errorf("dimension %d: %w", i, err)
		}
		s.Dimensions = append(s.Dimensions, d)
	}

	nattr, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if nattr == 0 || nattr > maxFieldCount {
		return nil, fmt.Errorf("implausible attribute count %d", nattr)
	}
	s.Attributes = make([]schema.Attribute, 0, nattr)
	for i := uint32(0); i < nattr; i++ {
		a, err := readAttribute(r)
		if err != nil {
			return nil, fmt.Errorf("attribute %d: %w", i, err)
		}
		s.Attributes = append(s.Attributes, a)
	}

	return s, nil
}

func readDimension(r *metaReader) (schema.Dimension, error) {
	var d schema.Dimension

	var err error
	if d.Name, err = r.readString(); err != nil {
		return d, err
	}

	dt, err := r.readByte()
	if err != nil {
		return d, err
	}
	d.Type = schema.Datatype(dt)
	if !d.Type.IsValid() {
		return d, fmt.Errorf("invalid datatype 0x%02X", dt)
	}

	if d.Domain[0], err = readNative(r, d.Type); err != nil {
		return d, err
	}
	if d.Domain[1], err = readNative(r, d.Type); err != nil {
		return d, err
	}

	hasExtent, err := r.readBool()
	if err != nil {
		return d, err
	}
	if hasExtent {
		if d.TileExtent, err = readNative(r, d.Type); err != nil {
			return d, err
		}
	}

	return d, nil
}

func readAttribute(r *metaReader) (schema.Attribute, error) {
	var a schema.Attribute

	var err error
	if a.Name, err = r.readString(); err != nil {
		return a, err
	}

	dt, err := r.readByte()
	if err != nil {
		return a, err
	}
	a.Type = schema.Datatype(dt)
	if !a.Type.IsValid() {
		return a, fmt.Errorf("invalid datatype 0x%02X", dt)
	}

	if a.CellValNum, err = r.readUint32(); err != nil {
		return a, err
	}
	if a.Nullable, err = r.readBool(); err != nil {
		return a, err
	}

	nfilters, err := r.readUint32()
	if err != nil {
		return a, err
	}
	if nfilters > maxFieldCount {
		return a, fmt.Errorf("implausible filter count %d", nfilters)
	}
	if nfilters == 0 {
		return a, nil
	}
	a.Filters = make(schema.FilterPipeline, 0, nfilters)
	for i := uint32(0); i < nfilters; i++ {
		var flt schema.Filter

		ft, err := r.readByte()
		if err != nil {
			return a, err
		}
		flt.Type = schema.FilterType(ft)

		if flt.HasOption, err = r.readBool(); err != nil {
			return a, err
		}
		if flt.HasOption {
			if flt.Option, err = r.readInt32(); err != nil {
				return a, err
			}
		}

		a.Filters = append(a.Filters, flt)
	}

	return a, nil
}

// writeNative writes a value in the datatype's native encoding: raw
// fixed-width bytes, or a length-prefixed byte string for variable-length
// types.
func writeNative(w *metaWriter, dt schema.Datatype, val []byte) error {
	if size := dt.Size(); size > 0 {
		if len(val) != size {
			return fmt.Errorf("%w: %s value must be %d bytes, got %d",
				errs.ErrInvalidSchema, dt, size, len(val))
		}
		w.writeRaw(val)

		return nil
	}

	w.writeBytes32(val)

	return nil
}

// readNative reads a value in the datatype's native encoding, returning a
// private copy.
func readNative(r *metaReader, dt schema.Datatype) ([]byte, error) {
	var raw []byte
	var err error

	if size := dt.Size(); size > 0 {
		raw, err = r.readRaw(size)
	} else {
		raw, err = r.readBytes32()
	}
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(raw))
	copy(out, raw)

	return out, nil
}

// expectKind reads and checks the leading object kind byte.
func expectKind(r *metaReader, want objectKind) error {
	got, err := r.readByte()
	if err != nil {
		return fmt.Errorf("%w: missing object kind: %v", errs.ErrMalformedInput, err)
	}
	if objectKind(got) != want {
		return fmt.Errorf("%w: payload is a %s, expected a %s",
			errs.ErrMalformedInput, objectKind(got), want)
	}

	return nil
}
