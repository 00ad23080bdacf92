package wire

import "encoding/binary"

// Builder accumulates a little-endian payload for an outgoing request body.
// It mirrors the original source's packet builder: write_u8/write_u16/...
// plus fixed-length, null-padded ASCII strings.
type Builder struct {
	buf []byte
}

// NewBuilder allocates a Builder with capacity hinted by size.
func NewBuilder(size int) *Builder { return &Builder{buf: make([]byte, 0, size)} }

func (b *Builder) WriteU8(v uint8)   { b.buf = append(b.buf, v) }
func (b *Builder) WriteBool(v bool) {
	if v {
		b.WriteU8(1)
	} else {
		b.WriteU8(0)
	}
}

func (b *Builder) WriteU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *Builder) WriteU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// WriteRaw appends bytes verbatim.
func (b *Builder) WriteRaw(p []byte) { b.buf = append(b.buf, p...) }

// Pad appends n zero bytes.
func (b *Builder) Pad(n int) {
	for i := 0; i < n; i++ {
		b.buf = append(b.buf, 0)
	}
}

// WriteStr writes s into a fixed-length slot, null-terminated and
// zero-padded to slotLen. Per the wire invariant, the null is included in
// the slot for strings shorter than slotLen; s must fit (len(s) < slotLen).
func (b *Builder) WriteStr(s string, slotLen int) {
	raw := []byte(s)
	if len(raw) >= slotLen {
		raw = raw[:slotLen]
		b.buf = append(b.buf, raw...)
		return
	}
	b.buf = append(b.buf, raw...)
	b.Pad(slotLen - len(raw))
}

// Bytes returns the accumulated payload.
func (b *Builder) Bytes() []byte { return b.buf }
func (b *Builder) Len() int      { return len(b.buf) }

// Reader consumes a little-endian response payload. It mirrors
// core/src/buffer.rs's ReceivingBuffer.
type Reader struct {
	buf []byte
	pos int
}

func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

func (r *Reader) ReadU8() uint8 {
	v := r.buf[r.pos]
	r.pos++
	return v
}

func (r *Reader) ReadU16() uint16 {
	v := binary.LittleEndian.Uint16(r.buf[r.pos : r.pos+2])
	r.pos += 2
	return v
}

func (r *Reader) ReadU32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v
}

// ReadRaw copies len(dst) bytes into dst and advances the cursor.
func (r *Reader) ReadRaw(dst []byte) {
	copy(dst, r.buf[r.pos:r.pos+len(dst)])
	r.pos += len(dst)
}

// ReadStr reads a null-terminated string from within the next targetLen
// bytes (or to the end of the buffer, whichever is shorter), stopping at the
// first null byte or the slot boundary, whichever comes first, then
// advancing the cursor past the full slot.
func (r *Reader) ReadStr(targetLen int) string {
	end := r.pos + targetLen
	if end > len(r.buf) {
		end = len(r.buf)
	}
	slot := r.buf[r.pos:end]
	n := len(slot)
	for i, c := range slot {
		if c == 0 {
			n = i
			break
		}
	}
	s := string(slot[:n])
	r.pos += targetLen
	return s
}

// Skip advances the cursor by n bytes without reading them.
func (r *Reader) Skip(n int) { r.pos += n }

// Remaining returns the unconsumed tail of the buffer.
func (r *Reader) Remaining() []byte { return r.buf[r.pos:] }
