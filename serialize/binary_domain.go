package serialize

import (
	"fmt"

	"github.com/arraywire/arraywire/errs"
	"github.com/arraywire/arraywire/format"
	"github.com/arraywire/arraywire/schema"
	"github.com/arraywire/arraywire/section"
)

// EncodeDomain encodes the emptiness flag and, for a non-empty domain, one
// native-width (min, max) pair per dimension in schema order. Dimension
// count and types are not re-encoded: both sides interpret the payload
// through the schema they already share.
func (binaryCodec) EncodeDomain(cfg Config, s *schema.ArraySchema, bounds schema.DomainBounds, isEmpty bool, p format.Perspective) ([]byte, error) {
	w := newMetaWriter(cfg)
	w.writeByte(byte(kindDomain))
	w.writeBool(isEmpty)

	if isEmpty {
		// Bounds content is undefined for an empty domain and is not read.
		return w.finish(), nil
	}

	if err := checkBoundsShape(s, bounds); err != nil {
		w.release()
		return nil, err
	}

	for i := range s.Dimensions {
		dt := s.Dimensions[i].Type
		if err := writeNative(w, dt, bounds[i][0]); err != nil {
			w.release()
			return nil, fmt.Errorf("%w: dimension %q min: %v", errs.ErrDomainSizeMismatch, s.Dimensions[i].Name, err)
		}
		if err := writeNative(w, dt, bounds[i][1]); err != nil {
			w.release()
			return nil, fmt.Errorf("%w: dimension %q max: %v", errs.ErrDomainSizeMismatch, s.Dimensions[i].Name, err)
		}
	}

	return w.finish(), nil
}

// DecodeDomain writes bounds into the caller-supplied storage and returns
// the emptiness flag. The whole payload is parsed before any storage is
// written, so a failed decode leaves bounds untouched.
func (binaryCodec) DecodeDomain(cfg Config, env section.Envelope, meta []byte, p format.Perspective, s *schema.ArraySchema, bounds schema.DomainBounds) (bool, error) {
	r := newMetaReader(env, meta)
	if err := expectKind(r, kindDomain); err != nil {
		return false, err
	}

	isEmpty, err := r.readBool()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
	}
	if isEmpty {
		return true, nil
	}

	if err := checkBoundsShape(s, bounds); err != nil {
		return false, err
	}

	// Parse everything into scratch first; only then touch caller storage.
	decoded := make([][2][]byte, len(s.Dimensions))
	for i := range s.Dimensions {
		dt := s.Dimensions[i].Type
		if decoded[i][0], err = readNative(r, dt); err != nil {
			return false, fmt.Errorf("%w: dimension %q min: %v", errs.ErrMalformedInput, s.Dimensions[i].Name, err)
		}
		if decoded[i][1], err = readNative(r, dt); err != nil {
			return false, fmt.Errorf("%w: dimension %q max: %v", errs.ErrMalformedInput, s.Dimensions[i].Name, err)
		}
	}

	for i := range decoded {
		if s.Dimensions[i].Type.IsFixed() {
			copy(bounds[i][0], decoded[i][0])
			copy(bounds[i][1], decoded[i][1])
		} else {
			bounds[i][0] = decoded[i][0]
			bounds[i][1] = decoded[i][1]
		}
	}

	return false, nil
}

// checkBoundsShape validates caller bounds storage against the schema: one
// entry per dimension, native width for fixed dimensions.
func checkBoundsShape(s *schema.ArraySchema, bounds schema.DomainBounds) error {
	if len(bounds) != len(s.Dimensions) {
		return &errs.DomainSizeMismatchError{
			Expected: domainStorageSize(s, len(s.Dimensions)),
			Got:      domainStorageSize(s, len(bounds)),
		}
	}

	for i := range s.Dimensions {
		size := s.Dimensions[i].Type.Size()
		if size == 0 {
			continue
		}
		if len(bounds[i][0]) != size || len(bounds[i][1]) != size {
			return &errs.DomainSizeMismatchError{
				Expected: uint64(2 * size),
				Got:      uint64(len(bounds[i][0]) + len(bounds[i][1])),
			}
		}
	}

	return nil
}

// domainStorageSize computes the schema-implied byte size of bounds storage
// covering the first n dimensions, counting fixed widths only.
func domainStorageSize(s *schema.ArraySchema, n int) uint64 {
	var total uint64
	for i := 0; i < n && i < len(s.Dimensions); i++ {
		total += uint64(2 * s.Dimensions[i].Type.Size())
	}

	return total
}
