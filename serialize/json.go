package serialize

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/arraywire/arraywire/buffer"
	"github.com/arraywire/arraywire/errs"
	"github.com/arraywire/arraywire/format"
	"github.com/arraywire/arraywire/query"
	"github.com/arraywire/arraywire/schema"
	"github.com/arraywire/arraywire/section"
)

// jsonCodec implements the human-readable format. The metadata payload is a
// JSON document; byte regions (domain bounds, field buffers) are carried
// base64-encoded inside it, so this format is inherently copying — the
// zero-copy guarantees of the binary format do not apply. The binary
// envelope still prefixes the document, so format rejection and checksum
// validation work uniformly across formats.
type jsonCodec struct{}

var _ Codec = jsonCodec{}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (jsonCodec) Format() format.SerializationFormat {
	return format.FormatJSON
}

const (
	jsonKindSchema = "schema"
	jsonKindQuery  = "query"
	jsonKindDomain = "nonempty-domain"
)

type jsonFilter struct {
	Type   uint8  `json:"type"`
	Option *int32 `json:"option,omitempty"`
}

type jsonDimension struct {
	Name       string `json:"name"`
	Type       uint8  `json:"type"`
	DomainMin  []byte `json:"domain_min"`
	DomainMax  []byte `json:"domain_max"`
	TileExtent []byte `json:"tile_extent,omitempty"`
}

type jsonAttribute struct {
	Name       string       `json:"name"`
	Type       uint8        `json:"type"`
	CellValNum uint32       `json:"cell_val_num"`
	Nullable   bool         `json:"nullable"`
	Filters    []jsonFilter `json:"filters,omitempty"`
}

type jsonSchema struct {
	Kind       string          `json:"kind"`
	Version    uint32          `json:"version"`
	ArrayType  uint8           `json:"array_type"`
	CellOrder  uint8           `json:"cell_order"`
	TileOrder  uint8           `json:"tile_order"`
	Dimensions []jsonDimension `json:"dimensions"`
	Attributes []jsonAttribute `json:"attributes"`
}

func (jsonCodec) EncodeSchema(cfg Config, s *schema.ArraySchema, p format.Perspective) ([]byte, error) {
	tbl := tableFor(kindSchema, p)

	doc := jsonSchema{
		Kind:      jsonKindSchema,
		Version:   s.Version,
		ArrayType: uint8(s.ArrayType),
		CellOrder: uint8(s.CellOrder),
		TileOrder: uint8(s.TileOrder),
	}
	for i := range s.Dimensions {
		d := &s.Dimensions[i]
		doc.Dimensions = append(doc.Dimensions, jsonDimension{
			Name:       d.Name,
			Type:       uint8(d.Type),
			DomainMin:  d.Domain[0],
			DomainMax:  d.Domain[1],
			TileExtent: d.TileExtent,
		})
	}
	for i := range s.Attributes {
		a := &s.Attributes[i]
		ja := jsonAttribute{
			Name:       a.Name,
			Type:       uint8(a.Type),
			CellValNum: a.CellValNum,
			Nullable:   a.Nullable,
		}
		for _, flt := range a.Filters {
			jf := jsonFilter{Type: uint8(flt.Type)}
			if flt.HasOption && tbl.filterOptions {
				opt := flt.Option
				jf.Option = &opt
			}
			ja.Filters = append(ja.Filters, jf)
		}
		doc.Attributes = append(doc.Attributes, ja)
	}

	return json.Marshal(doc)
}

func (jsonCodec) DecodeSchema(cfg Config, env section.Envelope, meta []byte, p format.Perspective) (*schema.ArraySchema, error) {
	var doc jsonSchema
	if err := json.Unmarshal(meta, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSchemaDecode, err)
	}
	if doc.Kind != jsonKindSchema {
		return nil, fmt.Errorf("%w: payload kind is %q, expected %q", errs.ErrMalformedInput, doc.Kind, jsonKindSchema)
	}

	s := &schema.ArraySchema{
		Version:   doc.Version,
		ArrayType: schema.ArrayType(doc.ArrayType),
		CellOrder: schema.Order(doc.CellOrder),
		TileOrder: schema.Order(doc.TileOrder),
	}
	for _, jd := range doc.Dimensions {
		s.Dimensions = append(s.Dimensions, schema.Dimension{
			Name:       jd.Name,
			Type:       schema.Datatype(jd.Type),
			Domain:     [2][]byte{jd.DomainMin, jd.DomainMax},
			TileExtent: jd.TileExtent,
		})
	}
	for _, ja := range doc.Attributes {
		a := schema.Attribute{
			Name:       ja.Name,
			Type:       schema.Datatype(ja.Type),
			CellValNum: ja.CellValNum,
			Nullable:   ja.Nullable,
		}
		for _, jf := range ja.Filters {
			flt := schema.Filter{Type: schema.FilterType(jf.Type)}
			if jf.Option != nil {
				flt.HasOption = true
				flt.Option = *jf.Option
			}
			a.Filters = append(a.Filters, flt)
		}
		s.Attributes = append(s.Attributes, a)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrSchemaDecode, err)
	}

	return s, nil
}

type jsonRange struct {
	Start []byte `json:"start"`
	End   []byte `json:"end"`
}

type jsonResultSizes struct {
	Data     uint64 `json:"data"`
	Offsets  uint64 `json:"offsets"`
	Validity uint64 `json:"validity"`
}

type jsonField struct {
	Name        string `json:"name"`
	HasOffsets  bool   `json:"has_offsets,omitempty"`
	HasValidity bool   `json:"has_validity,omitempty"`

	DataCapacity     uint64 `json:"data_capacity"`
	OffsetsCapacity  uint64 `json:"offsets_capacity,omitempty"`
	ValidityCapacity uint64 `json:"validity_capacity,omitempty"`

	Data     []byte `json:"data,omitempty"`
	Offsets  []byte `json:"offsets,omitempty"`
	Validity []byte `json:"validity,omitempty"`

	ResultSizes *jsonResultSizes `json:"result_sizes,omitempty"`
}

type jsonQuery struct {
	Kind      string        `json:"kind"`
	Type      uint8         `json:"type"`
	Layout    uint8         `json:"layout"`
	Status    uint8         `json:"status"`
	Subarray  [][]jsonRange `json:"subarray,omitempty"`
	Condition *string       `json:"condition,omitempty"`
	Fields    []jsonField   `json:"fields"`
}

func (jsonCodec) EncodeQuery(cfg Config, q *query.Query, p format.Perspective) ([]byte, []*buffer.Buffer, error) {
	tbl := tableFor(kindQuery, p)

	doc := jsonQuery{
		Kind:   jsonKindQuery,
		Type:   uint8(q.Type),
		Layout: uint8(q.Layout),
		Status: uint8(q.Status),
	}
	for _, ranges := range q.Subarray.Ranges {
		jranges := make([]jsonRange, 0, len(ranges))
		for _, rng := range ranges {
			jranges = append(jranges, jsonRange{Start: rng.Start, End: rng.End})
		}
		doc.Subarray = append(doc.Subarray, jranges)
	}
	if q.Condition != nil {
		expr := q.Condition.Expression
		doc.Condition = &expr
	}

	for _, name := range q.FieldOrder() {
		fb := q.Field(name)
		jf := jsonField{
			Name:         name,
			HasOffsets:   fb.Offsets != nil,
			HasValidity:  fb.Validity != nil,
			DataCapacity: fb.DataCapacity(),
			Data:         fb.Data.Bytes(),
		}
		if fb.Offsets != nil {
			jf.OffsetsCapacity = fb.OffsetsCapacity()
			jf.Offsets = fb.Offsets.Bytes()
		}
		if fb.Validity != nil {
			jf.ValidityCapacity = fb.ValidityCapacity()
			jf.Validity = fb.Validity.Bytes()
		}
		if tbl.resultSizes {
			jf.ResultSizes = &jsonResultSizes{
				Data:     fb.ResultDataSize,
				Offsets:  fb.ResultOffsetsSize,
				Validity: fb.ResultValiditySize,
			}
		}
		doc.Fields = append(doc.Fields, jf)
	}

	meta, err := json.Marshal(doc)
	if err != nil {
		return nil, nil, err
	}

	// All buffer content travels inside the document; no trailing segments.
	return meta, nil, nil
}

func (jsonCodec) DecodeQuery(cfg Config, env section.Envelope, meta []byte, segments []byte, srcGen uint64, p format.Perspective, target *query.Query) error {
	var doc jsonQuery
	if err := json.Unmarshal(meta, &doc); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
	}
	if doc.Kind != jsonKindQuery {
		return fmt.Errorf("%w: payload kind is %q, expected %q", errs.ErrMalformedInput, doc.Kind, jsonKindQuery)
	}

	target.Type = query.Type(doc.Type)
	target.Layout = query.Layout(doc.Layout)
	target.Status = query.Status(doc.Status)
	if !target.Type.IsValid() || !target.Layout.IsValid() || !target.Status.IsValid() {
		return fmt.Errorf("%w: invalid query enums", errs.ErrMalformedInput)
	}

	target.Subarray = query.Subarray{}
	for _, jranges := range doc.Subarray {
		ranges := make([]query.Range, 0, len(jranges))
		for _, jr := range jranges {
			ranges = append(ranges, query.Range{Start: jr.Start, End: jr.End})
		}
		target.Subarray.Ranges = append(target.Subarray.Ranges, ranges)
	}
	target.Condition = nil
	if doc.Condition != nil {
		target.Condition = &query.Condition{Expression: *doc.Condition}
	}

	for i, jf := range doc.Fields {
		if err := populateFieldJSON(target, jf, p); err != nil {
			if _, recoverable := errAsBufferTooSmall(err); recoverable {
				return err
			}

			return &errs.FieldDecodeError{Field: jf.Name, Completed: i, Err: err}
		}
	}

	target.SourceGeneration = srcGen

	return nil
}

// populateFieldJSON copies decoded field content into the target query's
// buffers, applying the same capacity and population rules as the binary
// codec but without aliasing.
func populateFieldJSON(target *query.Query, jf jsonField, p format.Perspective) error {
	fb := target.Field(jf.Name)
	if fb == nil {
		if p == format.PerspectiveClient {
			return fmt.Errorf("field %q not set on target query", jf.Name)
		}

		nfb := &query.FieldBuffer{Data: copiedBuffer(jf.Data, jf.DataCapacity)}
		if jf.HasOffsets {
			nfb.Offsets = copiedBuffer(jf.Offsets, jf.OffsetsCapacity)
		}
		if jf.HasValidity {
			nfb.Validity = copiedBuffer(jf.Validity, jf.ValidityCapacity)
		}
		applyResultSizes(nfb, jf.ResultSizes)

		return target.AttachField(jf.Name, nfb)
	}

	if fb.Data == nil {
		return fmt.Errorf("field %q has no data buffer on target query", jf.Name)
	}

	if uint64(fb.Data.Cap()) < uint64(len(jf.Data)) {
		return &errs.BufferTooSmallError{
			Field: jf.Name, Kind: "data",
			Required: uint64(len(jf.Data)), Capacity: uint64(fb.Data.Cap()),
		}
	}
	if jf.HasOffsets && fb.Offsets != nil && uint64(fb.Offsets.Cap()) < uint64(len(jf.Offsets)) {
		return &errs.BufferTooSmallError{
			Field: jf.Name, Kind: "offsets",
			Required: uint64(len(jf.Offsets)), Capacity: uint64(fb.Offsets.Cap()),
		}
	}
	if jf.HasValidity && fb.Validity != nil && uint64(fb.Validity.Cap()) < uint64(len(jf.Validity)) {
		return &errs.BufferTooSmallError{
			Field: jf.Name, Kind: "validity",
			Required: uint64(len(jf.Validity)), Capacity: uint64(fb.Validity.Cap()),
		}
	}

	if err := refill(fb.Data, jf.Data); err != nil {
		return err
	}
	if jf.HasOffsets {
		if fb.Offsets == nil {
			fb.Offsets = copiedBuffer(jf.Offsets, jf.OffsetsCapacity)
		} else if err := refill(fb.Offsets, jf.Offsets); err != nil {
			return err
		}
	}
	if jf.HasValidity {
		if fb.Validity == nil {
			fb.Validity = copiedBuffer(jf.Validity, jf.ValidityCapacity)
		} else if err := refill(fb.Validity, jf.Validity); err != nil {
			return err
		}
	}
	applyResultSizes(fb, jf.ResultSizes)

	return nil
}

func refill(b *buffer.Buffer, content []byte) error {
	b.Reset()
	return b.Append(content)
}

func copiedBuffer(content []byte, capacity uint64) *buffer.Buffer {
	size := int(capacity) //nolint:gosec
	if len(content) > size {
		size = len(content)
	}
	b := buffer.NewBuffer(size)
	_ = b.Append(content)

	return b
}

func applyResultSizes(fb *query.FieldBuffer, rs *jsonResultSizes) {
	if rs == nil {
		return
	}
	fb.ResultDataSize = rs.Data
	fb.ResultOffsetsSize = rs.Offsets
	fb.ResultValiditySize = rs.Validity
}

type jsonDomain struct {
	Kind    string      `json:"kind"`
	IsEmpty bool        `json:"is_empty"`
	Bounds  []jsonRange `json:"bounds,omitempty"`
}

func (jsonCodec) EncodeDomain(cfg Config, s *schema.ArraySchema, bounds schema.DomainBounds, isEmpty bool, p format.Perspective) ([]byte, error) {
	doc := jsonDomain{Kind: jsonKindDomain, IsEmpty: isEmpty}

	if !isEmpty {
		if err := checkBoundsShape(s, bounds); err != nil {
			return nil, err
		}
		for i := range bounds {
			doc.Bounds = append(doc.Bounds, jsonRange{Start: bounds[i][0], End: bounds[i][1]})
		}
	}

	return json.Marshal(doc)
}

func (jsonCodec) DecodeDomain(cfg Config, env section.Envelope, meta []byte, p format.Perspective, s *schema.ArraySchema, bounds schema.DomainBounds) (bool, error) {
	var doc jsonDomain
	if err := json.Unmarshal(meta, &doc); err != nil {
		return false, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
	}
	if doc.Kind != jsonKindDomain {
		return false, fmt.Errorf("%w: payload kind is %q, expected %q", errs.ErrMalformedInput, doc.Kind, jsonKindDomain)
	}
	if doc.IsEmpty {
		return true, nil
	}

	if err := checkBoundsShape(s, bounds); err != nil {
		return false, err
	}
	if len(doc.Bounds) != len(s.Dimensions) {
		return false, fmt.Errorf("%w: payload carries %d dimension(s), schema has %d",
			errs.ErrMalformedInput, len(doc.Bounds), len(s.Dimensions))
	}
	for i := range doc.Bounds {
		size := s.Dimensions[i].Type.Size()
		if size > 0 && (len(doc.Bounds[i].Start) != size || len(doc.Bounds[i].End) != size) {
			return false, fmt.Errorf("%w: dimension %q bounds are not %d bytes",
				errs.ErrMalformedInput, s.Dimensions[i].Name, size)
		}
	}

	for i := range doc.Bounds {
		if s.Dimensions[i].Type.IsFixed() {
			copy(bounds[i][0], doc.Bounds[i].Start)
			copy(bounds[i][1], doc.Bounds[i].End)
		} else {
			bounds[i][0] = doc.Bounds[i].Start
			bounds[i][1] = doc.Bounds[i].End
		}
	}

	return false, nil
}
