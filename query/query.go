// Package query defines the query execution state exchanged between client
// and server: per-field data/offsets/validity buffers, layout, subarray
// ranges and condition.
//
// Queries are serialized by walking this structure; deserialization populates
// a pre-existing Query in place and, for the binary format, aliases field
// data regions directly into the source bytes. The source buffer must
// therefore outlive the query it was deserialized into.
package query

import (
	"fmt"

	"github.com/arraywire/arraywire/buffer"
	"github.com/arraywire/arraywire/errs"
	"github.com/arraywire/arraywire/schema"
)

type (
	// Type distinguishes read from write queries.
	Type uint8
	// Layout is the cell layout of query results or written data.
	Layout uint8
	// Status is the execution status of a query.
	Status uint8
)

const (
	TypeRead  Type = 0x1
	TypeWrite Type = 0x2

	LayoutRowMajor    Layout = 0x1
	LayoutColMajor    Layout = 0x2
	LayoutGlobalOrder Layout = 0x3
	LayoutUnordered   Layout = 0x4

	StatusUninitialized Status = 0x1
	StatusInProgress    Status = 0x2
	StatusIncomplete    Status = 0x3
	StatusCompleted     Status = 0x4
	StatusFailed        Status = 0x5
)

// IsValid reports whether t is a known query type.
func (t Type) IsValid() bool {
	return t == TypeRead || t == TypeWrite
}

func (t Type) String() string {
	switch t {
	case TypeRead:
		return "Read"
	case TypeWrite:
		return "Write"
	default:
		return "Unknown"
	}
}

// IsValid reports whether l is a known layout.
func (l Layout) IsValid() bool {
	return l >= LayoutRowMajor && l <= LayoutUnordered
}

func (l Layout) String() string {
	switch l {
	case LayoutRowMajor:
		return "RowMajor"
	case LayoutColMajor:
		return "ColMajor"
	case LayoutGlobalOrder:
		return "GlobalOrder"
	case LayoutUnordered:
		return "Unordered"
	default:
		return "Unknown"
	}
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s >= StatusUninitialized && s <= StatusFailed
}

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "Uninitialized"
	case StatusInProgress:
		return "InProgress"
	case StatusIncomplete:
		return "Incomplete"
	case StatusCompleted:
		return "Completed"
	case StatusFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Range is one per-dimension range of a subarray, with bounds in the
// dimension's native encoding.
type Range struct {
	Start []byte
	End   []byte
}

// Subarray holds the query's ranges, one slice of ranges per dimension in
// schema dimension order.
type Subarray struct {
	Ranges [][]Range
}

// Condition is an opaque filter expression applied server-side to query
// results.
type Condition struct {
	Expression string
}

// FieldBuffer holds the buffers of one query field (dimension or attribute):
// a data buffer, an optional var-length offsets buffer and an optional
// validity bitmap buffer. Capacities record the caller's allocation sizes so
// a request can tell the server how much result space it has; result sizes
// are filled on server replies and may be smaller than the capacity.
type FieldBuffer struct {
	Data     *buffer.Buffer
	Offsets  *buffer.Buffer
	Validity *buffer.Buffer

	// Result sizes in bytes, set when a server reply is deserialized.
	ResultDataSize     uint64
	ResultOffsetsSize  uint64
	ResultValiditySize uint64
}

// DataCapacity returns the allocated byte capacity of the data buffer.
func (fb *FieldBuffer) DataCapacity() uint64 {
	if fb.Data == nil {
		return 0
	}

	return uint64(fb.Data.Cap())
}

// OffsetsCapacity returns the allocated byte capacity of the offsets buffer.
func (fb *FieldBuffer) OffsetsCapacity() uint64 {
	if fb.Offsets == nil {
		return 0
	}

	return uint64(fb.Offsets.Cap())
}

// ValidityCapacity returns the allocated byte capacity of the validity buffer.
func (fb *FieldBuffer) ValidityCapacity() uint64 {
	if fb.Validity == nil {
		return 0
	}

	return uint64(fb.Validity.Cap())
}

// Query is the in-memory execution state serialized across the wire. Its
// identity (array, session) is established by the caller; serialization only
// reads it and deserialization populates it in place.
type Query struct {
	Type      Type
	Layout    Layout
	Status    Status
	Subarray  Subarray
	Condition *Condition

	schema *schema.ArraySchema
	fields map[string]*FieldBuffer

	// SourceGeneration snapshots the source buffer's generation counter at
	// deserialize time. Comparing it against the source's current generation
	// detects mutation of aliased memory while the query is live.
	SourceGeneration uint64
}

// New creates a query against the given schema. The schema fixes the
// deterministic field order of serialized buffers.
func New(s *schema.ArraySchema, queryType Type) (*Query, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil schema", errs.ErrInvalidQuery)
	}
	if !queryType.IsValid() {
		return nil, fmt.Errorf("%w: invalid query type", errs.ErrInvalidQuery)
	}

	return &Query{
		Type:   queryType,
		Layout: LayoutRowMajor,
		Status: StatusUninitialized,
		schema: s,
		fields: make(map[string]*FieldBuffer),
	}, nil
}

// Schema returns the schema the query was created against.
func (q *Query) Schema() *schema.ArraySchema {
	return q.schema
}

// SetDataBuffer registers the data buffer for a schema field.
func (q *Query) SetDataBuffer(name string, b *buffer.Buffer) error {
	fb, err := q.field(name)
	if err != nil {
		return err
	}
	fb.Data = b

	return nil
}

// SetOffsetsBuffer registers the var-length offsets buffer for a schema field.
func (q *Query) SetOffsetsBuffer(name string, b *buffer.Buffer) error {
	fb, err := q.field(name)
	if err != nil {
		return err
	}
	fb.Offsets = b

	return nil
}

// SetValidityBuffer registers the validity bitmap buffer for a nullable
// schema field.
func (q *Query) SetValidityBuffer(name string, b *buffer.Buffer) error {
	fb, err := q.field(name)
	if err != nil {
		return err
	}
	fb.Validity = b

	return nil
}

func (q *Query) field(name string) (*FieldBuffer, error) {
	if !q.schema.HasField(name) {
		return nil, fmt.Errorf("%w: field %q is not part of the schema", errs.ErrInvalidQuery, name)
	}

	fb, ok := q.fields[name]
	if !ok {
		fb = &FieldBuffer{}
		q.fields[name] = fb
	}

	return fb, nil
}

// Field returns the buffers registered for name, or nil.
func (q *Query) Field(name string) *FieldBuffer {
	return q.fields[name]
}

// AttachField installs a complete FieldBuffer for name, used by
// deserialization when the target query has no buffers for a carried field.
func (q *Query) AttachField(name string, fb *FieldBuffer) error {
	if !q.schema.HasField(name) {
		return fmt.Errorf("%w: field %q is not part of the schema", errs.ErrInvalidQuery, name)
	}
	q.fields[name] = fb

	return nil
}

// FieldOrder returns the registered fields in schema-declared order. The
// order is identical on every call for an unmutated query, which makes the
// serialized segment layout deterministic.
func (q *Query) FieldOrder() []string {
	order := make([]string, 0, len(q.fields))
	for _, name := range q.schema.FieldOrder() {
		if _, ok := q.fields[name]; ok {
			order = append(order, name)
		}
	}

	return order
}

// NumFields returns the number of fields with registered buffers.
func (q *Query) NumFields() int {
	return len(q.fields)
}

// Validate checks the query is serializable: valid layout and at least one
// registered field buffer.
func (q *Query) Validate() error {
	if !q.Layout.IsValid() {
		return fmt.Errorf("%w: invalid layout", errs.ErrInvalidQuery)
	}
	if !q.Type.IsValid() {
		return fmt.Errorf("%w: invalid query type", errs.ErrInvalidQuery)
	}
	if len(q.fields) == 0 {
		return fmt.Errorf("%w: no field buffers set", errs.ErrInvalidQuery)
	}
	if len(q.Subarray.Ranges) > 0 && len(q.Subarray.Ranges) != len(q.schema.Dimensions) {
		return fmt.Errorf("%w: subarray has %d dimension(s), schema has %d",
			errs.ErrInvalidQuery, len(q.Subarray.Ranges), len(q.schema.Dimensions))
	}
	for name, fb := range q.fields {
		if fb.Data == nil {
			return fmt.Errorf("%w: field %q has no data buffer", errs.ErrInvalidQuery, name)
		}
	}

	return nil
}
