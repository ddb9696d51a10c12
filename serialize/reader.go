package serialize

import (
	"fmt"

	"github.com/arraywire/arraywire/endian"
	"github.com/arraywire/arraywire/section"
)

// metaReader is a bounds-checked cursor over a binary metadata payload.
// Every read fails cleanly at the payload end instead of reading past it;
// callers wrap the error into the taxonomy kind appropriate to what they
// were decoding.
type metaReader struct {
	data   []byte
	pos    int
	engine endian.EndianEngine
}

func newMetaReader(env section.Envelope, meta []byte) *metaReader {
	return &metaReader{
		data:   meta,
		engine: env.Engine(),
	}
}

func (r *metaReader) need(n int) error {
	if r.pos+n > len(r.data) {
		return fmt.Errorf("truncated metadata: need %d byte(s) at offset %d, have %d",
			n, r.pos, len(r.data)-r.pos)
	}

	return nil
}

func (r *metaReader) readByte() (byte, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++

	return v, nil
}

func (r *metaReader) readBool() (bool, error) {
	v, err := r.readByte()
	if err != nil {
		return false, err
	}
	if v > 1 {
		return false, fmt.Errorf("invalid boolean value %d at offset %d", v, r.pos-1)
	}

	return v == 1, nil
}

func (r *metaReader) readUint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := r.engine.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4

	return v, nil
}

func (r *metaReader) readUint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := r.engine.Uint64(r.data[r.pos : r.pos+8])
	r.pos += 8

	return v, nil
}

func (r *metaReader) readInt32() (int32, error) {
	v, err := r.readUint32()
	return int32(v), err //nolint:gosec
}

// readRaw returns the next n bytes without copying; the result aliases the
// payload.
func (r *metaReader) readRaw(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	v := r.data[r.pos : r.pos+n]
	r.pos += n

	return v, nil
}

func (r *metaReader) readString() (string, error) {
	n, err := r.readUint32()
	if err != nil {
		return "", err
	}
	b, err := r.readRaw(int(n))
	if err != nil {
		return "", err
	}

	return string(b), nil
}

// readBytes32 reads a uint32 length prefix and that many bytes, aliasing the
// payload.
func (r *metaReader) readBytes32() ([]byte, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}

	return r.readRaw(int(n))
}
