package hash

import "github.com/cespare/xxhash/v2"

// Checksum computes the xxHash64 digest of a metadata payload. It is embedded
// in the wire envelope so a decoder can reject corruption before parsing.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}
