// Package schema defines the array schema model read by the schema serializer
// and populated by schema deserialization: datatypes, dimensions, attributes,
// filter pipelines, and the schema-declared field order that fixes the
// deterministic segment layout of serialized queries.
package schema

import (
	"fmt"
	"math"

	"github.com/arraywire/arraywire/errs"
)

// CurrentVersion is the schema format version written by this library.
const CurrentVersion uint32 = 1

// VarNum marks a variable number of values per cell.
const VarNum uint32 = math.MaxUint32

type (
	// Datatype identifies the native type of a dimension or attribute cell.
	Datatype uint8
	// ArrayType distinguishes dense from sparse arrays.
	ArrayType uint8
	// Order is a cell or tile ordering.
	Order uint8
	// FilterType identifies a filter in an attribute's filter pipeline.
	FilterType uint8
)

const (
	TypeInt8        Datatype = 0x1
	TypeInt16       Datatype = 0x2
	TypeInt32       Datatype = 0x3
	TypeInt64       Datatype = 0x4
	TypeUint8       Datatype = 0x5
	TypeUint16      Datatype = 0x6
	TypeUint32      Datatype = 0x7
	TypeUint64      Datatype = 0x8
	TypeFloat32     Datatype = 0x9
	TypeFloat64     Datatype = 0xA
	TypeStringASCII Datatype = 0xB

	ArrayDense  ArrayType = 0x1
	ArraySparse ArrayType = 0x2

	OrderRowMajor Order = 0x1
	OrderColMajor Order = 0x2

	FilterNone        FilterType = 0x1
	FilterGzip        FilterType = 0x2
	FilterZstd        FilterType = 0x3
	FilterLZ4         FilterType = 0x4
	FilterRLE         FilterType = 0x5
	FilterBitShuffle  FilterType = 0x6
	FilterByteShuffle FilterType = 0x7
)

// Size returns the fixed byte width of one value of the datatype, or 0 for
// variable-length types.
func (d Datatype) Size() int {
	switch d {
	case TypeInt8, TypeUint8:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64:
		return 8
	default:
		return 0
	}
}

// IsValid reports whether d is a known datatype.
func (d Datatype) IsValid() bool {
	return d >= TypeInt8 && d <= TypeStringASCII
}

// IsFixed reports whether the datatype has a fixed byte width.
func (d Datatype) IsFixed() bool {
	return d.IsValid() && d != TypeStringASCII
}

func (d Datatype) String() string {
	switch d {
	case TypeInt8:
		return "Int8"
	case TypeInt16:
		return "Int16"
	case TypeInt32:
		return "Int32"
	case TypeInt64:
		return "Int64"
	case TypeUint8:
		return "Uint8"
	case TypeUint16:
		return "Uint16"
	case TypeUint32:
		return "Uint32"
	case TypeUint64:
		return "Uint64"
	case TypeFloat32:
		return "Float32"
	case TypeFloat64:
		return "Float64"
	case TypeStringASCII:
		return "StringASCII"
	default:
		return "Unknown"
	}
}

// IsValid reports whether a is a known array type.
func (a ArrayType) IsValid() bool {
	return a == ArrayDense || a == ArraySparse
}

func (a ArrayType) String() string {
	switch a {
	case ArrayDense:
		return "Dense"
	case ArraySparse:
		return "Sparse"
	default:
		return "Unknown"
	}
}

// IsValid reports whether o is a known order.
func (o Order) IsValid() bool {
	return o == OrderRowMajor || o == OrderColMajor
}

func (o Order) String() string {
	switch o {
	case OrderRowMajor:
		return "RowMajor"
	case OrderColMajor:
		return "ColMajor"
	default:
		return "Unknown"
	}
}

// IsValid reports whether f is a known filter type.
func (f FilterType) IsValid() bool {
	return f >= FilterNone && f <= FilterByteShuffle
}

// Filter is one stage of an attribute's filter pipeline. Option carries the
// filter's tuning parameter (e.g. a compression level); it is internal and
// redacted when a schema is serialized from the server perspective.
type Filter struct {
	Type FilterType
	// Option is the filter parameter value. HasOption distinguishes a real
	// zero value from a redacted one.
	Option    int32
	HasOption bool
}

// FilterPipeline is an ordered list of filters applied to attribute cells.
type FilterPipeline []Filter

// Dimension describes one axis of the array domain. Domain bounds and tile
// extent are stored in the dimension's native encoding: Type.Size() bytes for
// fixed-width types, arbitrary-length bytes for StringASCII.
type Dimension struct {
	Name       string
	Type       Datatype
	Domain     [2][]byte
	TileExtent []byte // nil means no tile extent
}

// Validate checks the dimension against its declared datatype.
func (d *Dimension) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: dimension with empty name", errs.ErrInvalidSchema)
	}
	if !d.Type.IsValid() {
		return fmt.Errorf("%w: dimension %q has invalid datatype", errs.ErrInvalidSchema, d.Name)
	}

	if d.Type.IsFixed() {
		size := d.Type.Size()
		if len(d.Domain[0]) != size || len(d.Domain[1]) != size {
			return fmt.Errorf("%w: dimension %q domain bounds must be %d bytes each",
				errs.ErrInvalidSchema, d.Name, size)
		}
		if d.TileExtent != nil && len(d.TileExtent) != size {
			return fmt.Errorf("%w: dimension %q tile extent must be %d bytes",
				errs.ErrInvalidSchema, d.Name, size)
		}
	}

	return nil
}

// Attribute describes one value stored per array cell.
type Attribute struct {
	Name string
	Type Datatype
	// CellValNum is the number of values per cell; VarNum marks var-length.
	CellValNum uint32
	Nullable   bool
	Filters    FilterPipeline
}

// Validate checks the attribute definition.
func (a *Attribute) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: attribute with empty name", errs.ErrInvalidSchema)
	}
	if !a.Type.IsValid() {
		return fmt.Errorf("%w: attribute %q has invalid datatype", errs.ErrInvalidSchema, a.Name)
	}
	if a.CellValNum == 0 {
		return fmt.Errorf("%w: attribute %q has zero cell val num", errs.ErrInvalidSchema, a.Name)
	}
	for _, f := range a.Filters {
		if !f.Type.IsValid() {
			return fmt.Errorf("%w: attribute %q has invalid filter type", errs.ErrInvalidSchema, a.Name)
		}
	}

	return nil
}

// ArraySchema describes the structure of an array: its domain dimensions,
// attributes, orders and format version.
type ArraySchema struct {
	Version    uint32
	ArrayType  ArrayType
	CellOrder  Order
	TileOrder  Order
	Dimensions []Dimension
	Attributes []Attribute
}

// New creates an ArraySchema of the given type with the current format
// version and row-major orders.
func New(arrayType ArrayType) *ArraySchema {
	return &ArraySchema{
		Version:   CurrentVersion,
		ArrayType: arrayType,
		CellOrder: OrderRowMajor,
		TileOrder: OrderRowMajor,
	}
}

// AddDimension appends a dimension to the domain.
func (s *ArraySchema) AddDimension(d Dimension) {
	s.Dimensions = append(s.Dimensions, d)
}

// AddAttribute appends an attribute.
func (s *ArraySchema) AddAttribute(a Attribute) {
	s.Attributes = append(s.Attributes, a)
}

// Validate checks structural consistency: valid enums, at least one dimension
// and one attribute, no duplicate field names.
func (s *ArraySchema) Validate() error {
	if !s.ArrayType.IsValid() {
		return fmt.Errorf("%w: invalid array type", errs.ErrInvalidSchema)
	}
	if !s.CellOrder.IsValid() || !s.TileOrder.IsValid() {
		return fmt.Errorf("%w: invalid cell or tile order", errs.ErrInvalidSchema)
	}
	if len(s.Dimensions) == 0 {
		return fmt.Errorf("%w: no dimensions", errs.ErrInvalidSchema)
	}
	if len(s.Attributes) == 0 {
		return fmt.Errorf("%w: no attributes", errs.ErrInvalidSchema)
	}

	seen := make(map[string]struct{}, len(s.Dimensions)+len(s.Attributes))
	for i := range s.Dimensions {
		if err := s.Dimensions[i].Validate(); err != nil {
			return err
		}
		if _, dup := seen[s.Dimensions[i].Name]; dup {
			return fmt.Errorf("%w: duplicate field name %q", errs.ErrInvalidSchema, s.Dimensions[i].Name)
		}
		seen[s.Dimensions[i].Name] = struct{}{}
	}
	for i := range s.Attributes {
		if err := s.Attributes[i].Validate(); err != nil {
			return err
		}
		if _, dup := seen[s.Attributes[i].Name]; dup {
			return fmt.Errorf("%w: duplicate field name %q", errs.ErrInvalidSchema, s.Attributes[i].Name)
		}
		seen[s.Attributes[i].Name] = struct{}{}
	}

	return nil
}

// FieldOrder returns the schema-declared field order: dimensions first, then
// attributes, each in declaration order. Query serialization emits data
// segments in this order on every call, so decoders can align segments to
// fields positionally.
func (s *ArraySchema) FieldOrder() []string {
	order := make([]string, 0, len(s.Dimensions)+len(s.Attributes))
	for i := range s.Dimensions {
		order = append(order, s.Dimensions[i].Name)
	}
	for i := range s.Attributes {
		order = append(order, s.Attributes[i].Name)
	}

	return order
}

// Dimension returns the dimension with the given name, or nil.
func (s *ArraySchema) Dimension(name string) *Dimension {
	for i := range s.Dimensions {
		if s.Dimensions[i].Name == name {
			return &s.Dimensions[i]
		}
	}

	return nil
}

// Attribute returns the attribute with the given name, or nil.
func (s *ArraySchema) Attribute(name string) *Attribute {
	for i := range s.Attributes {
		if s.Attributes[i].Name == name {
			return &s.Attributes[i]
		}
	}

	return nil
}

// HasField reports whether name is a dimension or attribute of the schema.
func (s *ArraySchema) HasField(name string) bool {
	return s.Dimension(name) != nil || s.Attribute(name) != nil
}

// DomainBounds is caller-supplied storage for a non-empty domain: one
// (min, max) pair per dimension, in schema dimension order. Fixed-width
// dimensions require entries of exactly Type.Size() bytes; StringASCII
// entries may be any length.
type DomainBounds [][2][]byte

// NewDomainBounds allocates bounds storage sized by the schema: the outer
// slice has one entry per dimension and fixed-width dimensions get
// pre-allocated min/max slices of the native width.
func NewDomainBounds(s *ArraySchema) DomainBounds {
	bounds := make(DomainBounds, len(s.Dimensions))
	for i := range s.Dimensions {
		if size := s.Dimensions[i].Type.Size(); size > 0 {
			bounds[i][0] = make([]byte, size)
			bounds[i][1] = make([]byte, size)
		}
	}

	return bounds
}
