package serialize

import (
	"github.com/arraywire/arraywire/endian"
	"github.com/arraywire/arraywire/internal/pool"
)

// metaWriter builds a binary metadata payload on a pooled scratch buffer.
type metaWriter struct {
	buf    *pool.ByteBuffer
	engine endian.EndianEngine
}

func newMetaWriter(cfg Config) *metaWriter {
	engine := endian.GetLittleEndianEngine()
	if cfg.BigEndian {
		engine = endian.GetBigEndianEngine()
	}

	return &metaWriter{
		buf:    pool.GetMetaBuffer(),
		engine: engine,
	}
}

// finish copies the payload out and returns the scratch buffer to the pool.
// The writer must not be used afterwards.
func (w *metaWriter) finish() []byte {
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.Bytes())
	pool.PutMetaBuffer(w.buf)
	w.buf = nil

	return out
}

// release returns the scratch buffer without copying, for error paths.
func (w *metaWriter) release() {
	if w.buf != nil {
		pool.PutMetaBuffer(w.buf)
		w.buf = nil
	}
}

func (w *metaWriter) writeByte(v byte) {
	w.buf.MustWriteByte(v)
}

func (w *metaWriter) writeBool(v bool) {
	if v {
		w.buf.MustWriteByte(1)
	} else {
		w.buf.MustWriteByte(0)
	}
}

func (w *metaWriter) writeUint32(v uint32) {
	w.buf.B = w.engine.AppendUint32(w.buf.B, v)
}

func (w *metaWriter) writeUint64(v uint64) {
	w.buf.B = w.engine.AppendUint64(w.buf.B, v)
}

func (w *metaWriter) writeInt32(v int32) {
	w.writeUint32(uint32(v))
}

func (w *metaWriter) writeRaw(p []byte) {
	w.buf.MustWrite(p)
}

// writeString writes a uint32 length prefix followed by the string bytes.
func (w *metaWriter) writeString(s string) {
	w.writeUint32(uint32(len(s))) //nolint:gosec
	w.buf.MustWrite([]byte(s))
}

// writeBytes32 writes a uint32 length prefix followed by the raw bytes.
func (w *metaWriter) writeBytes32(p []byte) {
	w.writeUint32(uint32(len(p))) //nolint:gosec
	w.buf.MustWrite(p)
}
