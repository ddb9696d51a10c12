package compress

// ZstdCompressor compresses metadata payloads with Zstandard. It offers the
// best ratio of the built-in codecs and suits archival or bandwidth-limited
// exchanges where the metadata section is large (many attributes or ranges).
//
// The implementation is selected at build time: the pure-Go
// klauspost/compress encoder by default, the cgo gozstd bindings under the
// cgozstd build tag.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
