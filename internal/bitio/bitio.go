// Package bitio reads and writes integer fields at bit granularity.
//
// Bit order is LSB-first: bit 0 of the first byte of the stream is the
// first bit written or read. Fields are at most 32 bits wide.
package bitio

import (
	"io"
)

// Writer writes fields up to 32 bits wide to an underlying io.Writer.
// Full bytes are flushed as they accumulate. The first write error
// sticks and is reported by Err and Close. Close flushes the final
// partial byte, zero-padded on the high side.
type Writer struct {
	err   error
	w     io.Writer
	bits  uint64
	nbits int
	pos   int64 // total bits accepted so far
}

// NewWriter returns a Writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteBits appends the low n bits of v, LSB first. n must be in [0,32].
func (w *Writer) WriteBits(v uint32, n int) {
	if w.err != nil {
		return
	}
	if n < 0 || n > 32 {
		panic("bitio: WriteBits width out of range")
	}
	if n < 32 {
		v &= (1 << n) - 1
	}
	w.bits |= uint64(v) << w.nbits
	w.nbits += n
	w.pos += int64(n)
	for w.nbits >= 8 {
		w.writeByte(byte(w.bits))
		w.bits >>= 8
		w.nbits -= 8
	}
}

// WriteInt appends v as an n-bit two's-complement field. Values outside
// the representable range are truncated to the low n bits, matching the
// sign extension performed by Reader.ReadInt.
func (w *Writer) WriteInt(v int32, n int) {
	w.WriteBits(uint32(v), n)
}

// BitPos reports the number of bits written so far, including any bits
// still buffered in the partial byte.
func (w *Writer) BitPos() int64 { return w.pos }

// Err returns the first underlying write error, if any.
func (w *Writer) Err() error { return w.err }

// Close flushes the final byte, zero-padded. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if w.nbits > 0 {
		w.writeByte(byte(w.bits))
		w.bits = 0
		w.nbits = 0
	}
	return w.err
}

func (w *Writer) writeByte(b byte) {
	if w.err != nil {
		return
	}
	var buf [1]byte
	buf[0] = b
	_, w.err = w.w.Write(buf[:])
}

// Reader reads fields up to 32 bits wide from an io.ReadSeeker.
// A failed read returns ok=false and leaves the position undefined;
// callers must not continue reading after a false return.
type Reader struct {
	r     io.ReadSeeker
	buf   []byte
	bufAt int // next unread byte within buf
	bits  uint64
	nbits int
}

const readerBufSize = 4096

// NewReader returns a Reader positioned at bit 0 of r.
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{r: r, buf: make([]byte, 0, readerBufSize)}
}

// ReadBits reads the next n bits as an unsigned integer, LSB first.
// n must be in [0,32].
func (r *Reader) ReadBits(n int) (uint32, bool) {
	if n < 0 || n > 32 {
		panic("bitio: ReadBits width out of range")
	}
	for r.nbits < n {
		b, ok := r.nextByte()
		if !ok {
			return 0, false
		}
		r.bits |= uint64(b) << r.nbits
		r.nbits += 8
	}
	var v uint32
	if n == 32 {
		v = uint32(r.bits)
	} else {
		v = uint32(r.bits) & ((1 << n) - 1)
	}
	r.bits >>= n
	r.nbits -= n
	return v, true
}

// ReadInt reads an n-bit two's-complement field, sign-extending bit n-1.
func (r *Reader) ReadInt(n int) (int32, bool) {
	v, ok := r.ReadBits(n)
	if !ok {
		return 0, false
	}
	if n > 0 && n < 32 && v&(1<<(n-1)) != 0 {
		v |= ^uint32(0) << n
	}
	return int32(v), true
}

// Seek repositions the reader at an absolute bit offset, discarding any
// buffered partial byte.
func (r *Reader) Seek(bitPos int64) bool {
	byteOff := bitPos >> 3
	if _, err := r.r.Seek(byteOff, io.SeekStart); err != nil {
		return false
	}
	r.buf = r.buf[:0]
	r.bufAt = 0
	r.bits = 0
	r.nbits = 0
	if rem := int(bitPos & 7); rem > 0 {
		if _, ok := r.ReadBits(rem); !ok {
			return false
		}
	}
	return true
}

func (r *Reader) nextByte() (byte, bool) {
	if r.bufAt >= len(r.buf) {
		r.buf = r.buf[:cap(r.buf)]
		n, err := r.r.Read(r.buf)
		if n == 0 {
			r.buf = r.buf[:0]
			r.bufAt = 0
			_ = err
			return 0, false
		}
		r.buf = r.buf[:n]
		r.bufAt = 0
	}
	b := r.buf[r.bufAt]
	r.bufAt++
	return b, true
}
