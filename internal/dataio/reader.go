package dataio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000/internal/bitio"
	"github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000/internal/huffman"
)

// Reader decodes records from a chunked data file by position.
//
// Sequential access is the fast path: asking for record prev+1 decodes
// forward from the remembered stream position without seeking. Random
// access seeks the chunk head via the position index and decodes
// through the in-chunk offset.
type Reader struct {
	schema    Schema
	chunkSize int
	br        *bitio.Reader
	coders    []*huffman.Coder
	offsets   []int64
	count     int

	prev   Record
	nextID int // record the stream is positioned to decode next; -1 if unknown
}

// ParseIndex decodes a position-index file body into chunk bit offsets
// and the record count.
func ParseIndex(idx []byte, chunkSize int) ([]int64, int, error) {
	if len(idx) < 4 || (len(idx)-4)%8 != 0 {
		return nil, 0, fmt.Errorf("dataio: position index has bad size %d", len(idx))
	}
	nChunks := (len(idx) - 4) / 8
	offsets := make([]int64, nChunks)
	for i := 0; i < nChunks; i++ {
		offsets[i] = int64(binary.LittleEndian.Uint64(idx[i*8:]))
	}
	count := int(binary.LittleEndian.Uint32(idx[nChunks*8:]))
	want := (count + chunkSize - 1) / chunkSize
	if want != nChunks {
		return nil, 0, fmt.Errorf("dataio: position index has %d chunks for %d records (chunk size %d)", nChunks, count, chunkSize)
	}
	return offsets, count, nil
}

// NewReader builds a Reader over a data stream and its parsed position
// index.
func NewReader(data io.ReadSeeker, idx []byte, schema Schema, chunkSize int, coders []*huffman.Coder) (*Reader, error) {
	offsets, count, err := ParseIndex(idx, chunkSize)
	if err != nil {
		return nil, err
	}
	return &Reader{
		schema:    schema,
		chunkSize: chunkSize,
		br:        bitio.NewReader(data),
		coders:    coders,
		offsets:   offsets,
		count:     count,
		nextID:    -1,
	}, nil
}

// Count reports the number of records in the stream.
func (r *Reader) Count() int { return r.count }

// Record decodes the record at id. A false return means the record is
// absent or the stream is corrupt; the reader's position is then
// undefined and the next access will re-seek.
func (r *Reader) Record(id int) (Record, bool) {
	if id < 0 || id >= r.count {
		return nil, false
	}
	if id == r.nextID {
		// Sequential fast path, including stepping onto the next
		// chunk's key record: the stream is already positioned there.
		if rec, ok := r.decodeNext(); ok {
			return rec, true
		}
		r.nextID = -1
		return nil, false
	}
	chunk := id / r.chunkSize
	if !r.br.Seek(r.offsets[chunk]) {
		r.nextID = -1
		return nil, false
	}
	r.prev = nil
	r.nextID = chunk * r.chunkSize
	for {
		rec, ok := r.decodeNext()
		if !ok {
			r.nextID = -1
			return nil, false
		}
		if r.nextID-1 == id {
			return rec, true
		}
	}
}

// decodeNext decodes the record at nextID using prev as context.
func (r *Reader) decodeNext() (Record, bool) {
	key := r.nextID%r.chunkSize == 0
	rec := make(Record, len(r.schema))
	for i, f := range r.schema {
		v, ok := r.decodeField(i, f, key)
		if !ok {
			return nil, false
		}
		rec[i] = v
	}
	r.prev = rec
	r.nextID++
	return rec, true
}

func (r *Reader) decodeField(i int, f Field, key bool) (Value, bool) {
	vr := vecReader{coder: r.coders[i], br: r.br}
	head, ok := vr.next()
	if !ok {
		return Value{}, false
	}
	switch f.Kind {
	case KindInt:
		if key {
			return Value{Int: head}, true
		}
		return Value{Int: r.prev[i].Int + head}, true
	case KindString:
		var prevStr string
		if !key {
			prevStr = r.prev[i].Str
			head += int32(len(prevStr))
		}
		n := int(head)
		if n < 0 || n > maxStringLen {
			return Value{}, false
		}
		buf := make([]byte, n)
		for j := 0; j < n; j++ {
			d, ok := vr.next()
			if !ok {
				return Value{}, false
			}
			c := d + charBase
			if !key && j < len(prevStr) {
				c = d + int32(prevStr[j])
			}
			if c < 0 || c > 255 {
				return Value{}, false
			}
			buf[j] = byte(c)
		}
		if vr.pendingZeros > 0 {
			// A zero run must never extend past its field vector.
			return Value{}, false
		}
		return Value{Str: string(buf)}, true
	}
	return Value{}, false
}

// maxStringLen bounds decoded string lengths so a corrupt stream cannot
// drive a huge allocation.
const maxStringLen = 4096

// vecReader yields field-vector elements, unrolling zero-run and escape
// tokens.
type vecReader struct {
	coder        *huffman.Coder
	br           *bitio.Reader
	pendingZeros int
}

func (v *vecReader) next() (int32, bool) {
	if v.pendingZeros > 0 {
		v.pendingZeros--
		return 0, true
	}
	sym, ok := v.coder.ReadCode(v.br)
	if !ok {
		return 0, false
	}
	switch {
	case sym >= escBase:
		n := sym - escBase
		if n < 1 || n > 32 {
			return 0, false
		}
		raw, ok := v.br.ReadBits(n)
		if !ok {
			return 0, false
		}
		return unzigzag(raw), true
	case sym >= runBase:
		run := sym - runBase
		if run < 1 {
			return 0, false
		}
		v.pendingZeros = run - 1
		return 0, true
	default:
		return int32(sym), true
	}
}
