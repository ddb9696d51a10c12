// Package arraywire implements the serialization boundary of a distributed
// array-database engine: it converts array schemas, query execution state and
// non-empty-domain bounds into transmissible byte encodings and reconstructs
// them on the receiving side, so a client process and a server process can
// exchange structured binary-heavy objects without a generic RPC framework.
//
// # Core Features
//
//   - Self-describing fixed-size envelope (magic, endianness, perspective,
//     format and compression tags, xxHash64 metadata checksum)
//   - Compact binary format with zero-copy query buffer handling, plus a
//     human-readable JSON format
//   - Client/server perspective asymmetry (request vs. reply wire shapes,
//     server-side redaction of internal filter parameters)
//   - Optional metadata compression (None, Zstd, S2, LZ4)
//   - Recoverable buffer-too-small reporting with exact required sizes
//
// # Basic Usage
//
// Serializing a schema on the client and decoding it on the server:
//
//	import "github.com/arraywire/arraywire"
//
//	ctx := arraywire.NewContext()
//	buf, err := arraywire.SerializeSchema(ctx, sch,
//	    arraywire.FormatBinary, arraywire.PerspectiveClient)
//	if err != nil {
//	    msg, _ := ctx.LastErrorMessage()
//	    log.Fatal(msg)
//	}
//
//	// ...transport buf.Bytes() to the server...
//
//	decoded, err := arraywire.DeserializeSchema(ctx, buf,
//	    arraywire.FormatBinary, arraywire.PerspectiveServer)
//
// Query round trips are zero-copy in the binary format: SerializeQuery
// returns a BufferList whose data segments alias the query's own buffers,
// and DeserializeQuery rebinds the target query's buffers to regions of the
// source bytes. The source buffer must outlive the deserialized query; see
// the serialize package for the full contract.
//
// # Package Structure
//
// This package provides the boundary functions layered over a Context that
// records the last failure for status-style callers. For fine-grained
// control (custom compression, big-endian encoding) construct a
// serialize.Serializer directly.
package arraywire

import (
	"github.com/arraywire/arraywire/buffer"
	"github.com/arraywire/arraywire/format"
	"github.com/arraywire/arraywire/query"
	"github.com/arraywire/arraywire/schema"
	"github.com/arraywire/arraywire/serialize"
)

// Re-exported format tags and perspectives, so common calls need only the
// root package.
const (
	FormatBinary = format.FormatBinary
	FormatJSON   = format.FormatJSON

	PerspectiveClient = format.PerspectiveClient
	PerspectiveServer = format.PerspectiveServer

	CompressionNone = format.CompressionNone
	CompressionZstd = format.CompressionZstd
	CompressionS2   = format.CompressionS2
	CompressionLZ4  = format.CompressionLZ4
)

var defaultSerializer = mustSerializer()

func mustSerializer() *serialize.Serializer {
	s, err := serialize.New()
	if err != nil {
		panic(err)
	}

	return s
}

// SerializeSchema encodes an array schema into a single buffer. The failure,
// if any, is recorded on ctx and returned.
func SerializeSchema(ctx *Context, s *schema.ArraySchema, f format.SerializationFormat, p format.Perspective) (*buffer.Buffer, error) {
	buf, err := defaultSerializer.SerializeSchema(s, f, p)
	if err != nil {
		return nil, ctx.saveError(err)
	}
	ctx.saveError(nil)

	return buf, nil
}

// DeserializeSchema decodes a buffer into a newly allocated array schema.
func DeserializeSchema(ctx *Context, src *buffer.Buffer, f format.SerializationFormat, p format.Perspective) (*schema.ArraySchema, error) {
	s, err := defaultSerializer.DeserializeSchema(src, f, p)
	if err != nil {
		return nil, ctx.saveError(err)
	}
	ctx.saveError(nil)

	return s, nil
}

// SerializeQuery encodes a query into a buffer list: an envelope+metadata
// segment followed by each field buffer as its own zero-copy segment. The
// segments alias the query's buffers; do not mutate them until the list has
// been consumed.
func SerializeQuery(ctx *Context, q *query.Query, f format.SerializationFormat, p format.Perspective) (*buffer.BufferList, error) {
	list, err := defaultSerializer.SerializeQuery(q, f, p)
	if err != nil {
		return nil, ctx.saveError(err)
	}
	ctx.saveError(nil)

	return list, nil
}

// DeserializeQuery populates a pre-existing query from src.
//
// Precondition: src must outlive target and must not be mutated while target
// is in use; in the binary format the decoded field buffers alias src. A
// too-small target buffer yields a BufferTooSmallError carrying the required
// size; the caller may grow the buffer and retry.
func DeserializeQuery(ctx *Context, src *buffer.Buffer, f format.SerializationFormat, p format.Perspective, target *query.Query) error {
	if err := defaultSerializer.DeserializeQuery(src, f, p, target); err != nil {
		return ctx.saveError(err)
	}
	ctx.saveError(nil)

	return nil
}

// SerializeNonEmptyDomain encodes the array's per-dimension (min, max)
// bounds plus the emptiness flag. When isEmpty is true the bounds content is
// ignored.
func SerializeNonEmptyDomain(ctx *Context, a *Array, bounds schema.DomainBounds, isEmpty bool, f format.SerializationFormat, p format.Perspective) (*buffer.Buffer, error) {
	buf, err := defaultSerializer.SerializeNonEmptyDomain(a.Schema(), bounds, isEmpty, f, p)
	if err != nil {
		return nil, ctx.saveError(err)
	}
	ctx.saveError(nil)

	return buf, nil
}

// DeserializeNonEmptyDomain decodes bounds into caller-supplied storage and
// returns the emptiness flag. bounds must be pre-sized from the array's
// schema (see Array.NewDomainBounds); when the decoded flag is true, bounds
// is left untouched.
func DeserializeNonEmptyDomain(ctx *Context, a *Array, src *buffer.Buffer, f format.SerializationFormat, p format.Perspective, bounds schema.DomainBounds) (bool, error) {
	isEmpty, err := defaultSerializer.DeserializeNonEmptyDomain(a.Schema(), src, f, p, bounds)
	if err != nil {
		return false, ctx.saveError(err)
	}
	ctx.saveError(nil)

	return isEmpty, nil
}
