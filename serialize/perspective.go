package serialize

import "github.com/arraywire/arraywire/format"

// objectKind tags the object type of a metadata payload. The kind byte is
// the first byte of every metadata payload so a decoder rejects a payload of
// the wrong kind before parsing fields.
type objectKind uint8

const (
	kindSchema objectKind = 0x1
	kindQuery  objectKind = 0x2
	kindDomain objectKind = 0x3
)

func (k objectKind) String() string {
	switch k {
	case kindSchema:
		return "schema"
	case kindQuery:
		return "query"
	case kindDomain:
		return "nonempty-domain"
	default:
		return "unknown"
	}
}

// fieldTable controls which optional fields an encoder emits for a given
// (object kind, perspective) pair. Decoders consult the table with the
// perspective recorded in the envelope, so both sides agree on the wire
// shape regardless of which side is reading.
type fieldTable struct {
	// filterOptions: include attribute filter option values. The server is
	// not authorized to echo internal filter parameters back verbatim, so
	// server-perspective schema encoding redacts them.
	filterOptions bool
	// resultSizes: include final per-field result sizes. Only replies
	// (server-perspective query encoding) carry them; the server may return
	// fewer cells than the request's buffer capacity allowed.
	resultSizes bool
}

var fieldTables = map[objectKind]map[format.Perspective]fieldTable{
	kindSchema: {
		format.PerspectiveClient: {filterOptions: true},
		format.PerspectiveServer: {filterOptions: false},
	},
	kindQuery: {
		format.PerspectiveClient: {resultSizes: false},
		format.PerspectiveServer: {resultSizes: true},
	},
	kindDomain: {
		format.PerspectiveClient: {},
		format.PerspectiveServer: {},
	},
}

func tableFor(k objectKind, p format.Perspective) fieldTable {
	return fieldTables[k][p]
}
