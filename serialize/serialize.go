// Package serialize implements the encode/decode boundary of the array
// engine: schema, query and non-empty domain payloads in either the compact
// binary format or the human-readable JSON format, from either the client or
// the server perspective.
//
// Every serialized payload starts with a fixed-size self-describing envelope
// (see the section package). The metadata that follows may optionally be
// compressed; query data segments are never compressed and, in the binary
// format, are neither copied on encode (each buffer becomes its own segment
// of the returned BufferList) nor on decode (target buffers are rebound to
// alias regions of the source bytes).
//
// Zero-copy contract: the source buffer passed to DeserializeQuery must
// outlive the target query, and must not be mutated while the query is in
// use. This is a caller obligation the serializer cannot enforce; the
// query's SourceGeneration field together with Buffer.Generation offers a
// debug-time check.
package serialize

import (
	"fmt"

	"github.com/arraywire/arraywire/buffer"
	"github.com/arraywire/arraywire/compress"
	"github.com/arraywire/arraywire/errs"
	"github.com/arraywire/arraywire/format"
	"github.com/arraywire/arraywire/internal/hash"
	"github.com/arraywire/arraywire/internal/options"
	"github.com/arraywire/arraywire/query"
	"github.com/arraywire/arraywire/schema"
	"github.com/arraywire/arraywire/section"
)

// Config carries the per-serializer settings threaded through every codec
// call.
type Config struct {
	// Compression applied to the metadata payload. Data segments are never
	// compressed.
	Compression format.CompressionType
	// BigEndian selects big-endian byte order for binary metadata. Little
	// endian is the default and the native order on common platforms.
	BigEndian bool
}

// Codec is the pluggable encoding strategy behind one serialization format.
// The set of codecs is closed: one per format tag, resolved through the
// package registry.
type Codec interface {
	Format() format.SerializationFormat

	EncodeSchema(cfg Config, s *schema.ArraySchema, p format.Perspective) ([]byte, error)
	DecodeSchema(cfg Config, env section.Envelope, meta []byte, p format.Perspective) (*schema.ArraySchema, error)

	// EncodeQuery returns the metadata payload plus the ordered zero-copy
	// data segments to append after it.
	EncodeQuery(cfg Config, q *query.Query, p format.Perspective) ([]byte, []*buffer.Buffer, error)
	// DecodeQuery populates target in place. segments holds the bytes
	// following the metadata payload; srcGen is the source buffer's
	// generation counter at decode time.
	DecodeQuery(cfg Config, env section.Envelope, meta []byte, segments []byte, srcGen uint64, p format.Perspective, target *query.Query) error

	EncodeDomain(cfg Config, s *schema.ArraySchema, bounds schema.DomainBounds, isEmpty bool, p format.Perspective) ([]byte, error)
	DecodeDomain(cfg Config, env section.Envelope, meta []byte, p format.Perspective, s *schema.ArraySchema, bounds schema.DomainBounds) (bool, error)
}

var codecs = map[format.SerializationFormat]Codec{
	format.FormatBinary: binaryCodec{},
	format.FormatJSON:   jsonCodec{},
}

func lookupCodec(f format.SerializationFormat) (Codec, error) {
	if c, ok := codecs[f]; ok {
		return c, nil
	}

	return nil, fmt.Errorf("%w: 0x%02X", errs.ErrUnsupportedFormat, uint8(f))
}

// Serializer performs encode and decode operations with a fixed
// configuration. It holds no mutable state across calls and is safe for
// concurrent use, provided each call operates on distinct object instances.
type Serializer struct {
	cfg Config
}

// Option configures a Serializer.
type Option = options.Option[*Serializer]

// WithCompression selects the compression applied to metadata payloads.
func WithCompression(c format.CompressionType) Option {
	return options.New(func(s *Serializer) error {
		if !c.IsValid() {
			return fmt.Errorf("invalid compression type: %d", c)
		}
		s.cfg.Compression = c

		return nil
	})
}

// WithBigEndian selects big-endian byte order for binary metadata.
func WithBigEndian() Option {
	return options.NoError(func(s *Serializer) {
		s.cfg.BigEndian = true
	})
}

// New creates a Serializer with the given options. Defaults: no compression,
// little-endian.
func New(opts ...Option) (*Serializer, error) {
	s := &Serializer{
		cfg: Config{Compression: format.CompressionNone},
	}
	if err := options.Apply(s, opts...); err != nil {
		return nil, err
	}

	return s, nil
}

// SerializeSchema encodes an array schema into a single buffer.
func (s *Serializer) SerializeSchema(sch *schema.ArraySchema, f format.SerializationFormat, p format.Perspective) (*buffer.Buffer, error) {
	codec, err := lookupCodec(f)
	if err != nil {
		return nil, err
	}
	if err := checkPerspective(p); err != nil {
		return nil, err
	}
	if err := sch.Validate(); err != nil {
		return nil, err
	}

	meta, err := codec.EncodeSchema(s.cfg, sch, p)
	if err != nil {
		return nil, err
	}

	return s.seal(f, p, meta)
}

// DeserializeSchema decodes a buffer into a newly allocated array schema.
func (s *Serializer) DeserializeSchema(src *buffer.Buffer, f format.SerializationFormat, p format.Perspective) (*schema.ArraySchema, error) {
	codec, err := lookupCodec(f)
	if err != nil {
		return nil, err
	}
	if err := checkPerspective(p); err != nil {
		return nil, err
	}

	env, meta, _, err := s.open(src, f)
	if err != nil {
		return nil, err
	}

	return codec.DecodeSchema(s.cfg, env, meta, p)
}

// SerializeQuery encodes a query into a buffer list: one envelope+metadata
// segment followed by each field buffer as its own zero-copy segment, in
// schema-declared field order.
//
// The returned segments alias the query's buffers; the caller must not
// mutate them until the list has been consumed.
func (s *Serializer) SerializeQuery(q *query.Query, f format.SerializationFormat, p format.Perspective) (*buffer.BufferList, error) {
	codec, err := lookupCodec(f)
	if err != nil {
		return nil, err
	}
	if err := checkPerspective(p); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}

	meta, segments, err := codec.EncodeQuery(s.cfg, q, p)
	if err != nil {
		return nil, err
	}

	head, err := s.seal(f, p, meta)
	if err != nil {
		return nil, err
	}

	list := buffer.NewBufferList()
	list.Append(head)
	for _, seg := range segments {
		list.Append(seg)
	}

	return list, nil
}

// DeserializeQuery populates a pre-existing query from a contiguous source
// buffer.
//
// Precondition: src must outlive target, and must not be mutated while
// target is in use — decoded field buffers alias src rather than holding
// private copies. If a target buffer is too small for a carried field, the
// call fails with a BufferTooSmallError reporting the required size; the
// caller may reallocate and retry. Fields decoded before a failure keep
// their contents.
func (s *Serializer) DeserializeQuery(src *buffer.Buffer, f format.SerializationFormat, p format.Perspective, target *query.Query) error {
	codec, err := lookupCodec(f)
	if err != nil {
		return err
	}
	if err := checkPerspective(p); err != nil {
		return err
	}
	if target == nil {
		return fmt.Errorf("%w: nil target query", errs.ErrInvalidQuery)
	}

	env, meta, segments, err := s.open(src, f)
	if err != nil {
		return err
	}

	return codec.DecodeQuery(s.cfg, env, meta, segments, src.Generation(), p, target)
}

// SerializeNonEmptyDomain encodes per-dimension (min, max) bounds plus an
// emptiness flag. When isEmpty is true the bounds content is ignored.
func (s *Serializer) SerializeNonEmptyDomain(sch *schema.ArraySchema, bounds schema.DomainBounds, isEmpty bool, f format.SerializationFormat, p format.Perspective) (*buffer.Buffer, error) {
	codec, err := lookupCodec(f)
	if err != nil {
		return nil, err
	}
	if err := checkPerspective(p); err != nil {
		return nil, err
	}

	meta, err := codec.EncodeDomain(s.cfg, sch, bounds, isEmpty, p)
	if err != nil {
		return nil, err
	}

	return s.seal(f, p, meta)
}

// DeserializeNonEmptyDomain decodes bounds into caller-supplied storage,
// returning the emptiness flag. bounds must be pre-sized from the schema
// (one entry per dimension, native width for fixed dimensions); a size
// disagreement fails with a DomainSizeMismatchError. When the decoded flag
// is true, bounds is left untouched.
func (s *Serializer) DeserializeNonEmptyDomain(sch *schema.ArraySchema, src *buffer.Buffer, f format.SerializationFormat, p format.Perspective, bounds schema.DomainBounds) (bool, error) {
	codec, err := lookupCodec(f)
	if err != nil {
		return false, err
	}
	if err := checkPerspective(p); err != nil {
		return false, err
	}

	env, meta, _, err := s.open(src, f)
	if err != nil {
		return false, err
	}

	return codec.DecodeDomain(s.cfg, env, meta, p, sch, bounds)
}

func checkPerspective(p format.Perspective) error {
	if !p.IsValid() {
		return fmt.Errorf("invalid perspective: %d", p)
	}

	return nil
}

// seal compresses the metadata payload per the configuration, prefixes the
// self-describing envelope and returns the combined owned buffer.
func (s *Serializer) seal(f format.SerializationFormat, p format.Perspective, meta []byte) (*buffer.Buffer, error) {
	codec, err := compress.GetCodec(s.cfg.Compression)
	if err != nil {
		return nil, err
	}
	stored, err := codec.Compress(meta)
	if err != nil {
		return nil, err
	}

	env := section.NewEnvelope(f, p)
	env.Compression = s.cfg.Compression
	if s.cfg.BigEndian {
		env.WithBigEndian()
	}
	env.MetaLen = uint32(len(stored)) //nolint:gosec
	env.Checksum = hash.Checksum(stored)

	out := buffer.NewBuffer(section.EnvelopeSize + len(stored))
	if err := out.Append(env.Bytes()); err != nil {
		return nil, err
	}
	if err := out.Append(stored); err != nil {
		return nil, err
	}

	return out, nil
}

// open parses and validates the envelope, verifies the metadata checksum,
// checks the format tag against the requested format and returns the
// decompressed metadata plus the trailing segment bytes. The returned
// segment slice aliases src.
func (s *Serializer) open(src *buffer.Buffer, f format.SerializationFormat) (section.Envelope, []byte, []byte, error) {
	if src == nil {
		return section.Envelope{}, nil, nil, fmt.Errorf("%w: nil source buffer", errs.ErrMalformedInput)
	}

	data := src.Bytes()
	env, err := section.ParseEnvelope(data)
	if err != nil {
		return section.Envelope{}, nil, nil, err
	}

	if env.Format != f {
		return section.Envelope{}, nil, nil, fmt.Errorf("%w: payload format is %s, requested %s",
			errs.ErrMalformedInput, env.Format, f)
	}

	end := section.EnvelopeSize + int(env.MetaLen)
	if end > len(data) {
		return section.Envelope{}, nil, nil, fmt.Errorf("%w: metadata length %d exceeds payload",
			errs.ErrMalformedInput, env.MetaLen)
	}

	stored := data[section.EnvelopeSize:end]
	if hash.Checksum(stored) != env.Checksum {
		return section.Envelope{}, nil, nil, fmt.Errorf("%w: metadata checksum mismatch", errs.ErrMalformedInput)
	}

	codec, err := compress.GetCodec(env.Compression)
	if err != nil {
		return section.Envelope{}, nil, nil, fmt.Errorf("%w: %v", errs.ErrMalformedInput, err)
	}
	meta, err := codec.Decompress(stored)
	if err != nil {
		return section.Envelope{}, nil, nil, fmt.Errorf("%w: metadata decompression failed: %v",
			errs.ErrMalformedInput, err)
	}

	return env, meta, data[end:], nil
}
