package dataio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000/internal/bitio"
	"github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000/internal/huffman"
)

// Encoding is two-pass: a FreqCollector sees every record first and
// accumulates per-field token frequencies, the resulting coders drive a
// Writer over the same records in the same order.

// FreqCollector accumulates per-field Huffman frequency tables for a
// record stream.
type FreqCollector struct {
	schema    Schema
	chunkSize int
	freqs     []map[int]int
	prev      Record
	count     int
}

// NewFreqCollector returns a collector for the given schema and chunk
// size.
func NewFreqCollector(schema Schema, chunkSize int) *FreqCollector {
	fc := &FreqCollector{
		schema:    schema,
		chunkSize: chunkSize,
		freqs:     make([]map[int]int, len(schema)),
	}
	for i := range fc.freqs {
		fc.freqs[i] = make(map[int]int)
	}
	return fc
}

// Add accounts for one record. Records must arrive in storage order.
func (fc *FreqCollector) Add(rec Record) {
	key := fc.count%fc.chunkSize == 0
	for i, f := range fc.schema {
		var vec []int32
		if key {
			vec = flatten(nil, f, rec[i])
		} else {
			vec = diff(nil, f, fc.prev[i], rec[i])
		}
		for _, t := range tokenize(nil, vec) {
			fc.freqs[i][t.sym]++
		}
	}
	fc.prev = append(Record(nil), rec...)
	fc.count++
}

// Freqs returns the accumulated per-field tables, parallel to the
// schema.
func (fc *FreqCollector) Freqs() []map[int]int {
	return fc.freqs
}

// Coders builds the per-field coders for the accumulated tables.
func Coders(freqs []map[int]int) []*huffman.Coder {
	coders := make([]*huffman.Coder, len(freqs))
	for i, f := range freqs {
		coders[i] = huffman.NewCoder(f)
	}
	return coders
}

// Writer encodes a record stream into a data file and builds its
// position index.
type Writer struct {
	schema    Schema
	chunkSize int
	bw        *bitio.Writer
	coders    []*huffman.Coder
	prev      Record
	count     int
	offsets   []int64
}

// NewWriter returns a Writer emitting coded records to w using the
// given per-field coders.
func NewWriter(w io.Writer, schema Schema, chunkSize int, coders []*huffman.Coder) *Writer {
	return &Writer{
		schema:    schema,
		chunkSize: chunkSize,
		bw:        bitio.NewWriter(w),
		coders:    coders,
	}
}

// WriteRecord appends one record. Records must arrive in the same order
// the frequency pass saw them.
func (w *Writer) WriteRecord(rec Record) error {
	if len(rec) != len(w.schema) {
		return fmt.Errorf("dataio: record has %d fields, schema has %d", len(rec), len(w.schema))
	}
	key := w.count%w.chunkSize == 0
	if key {
		w.offsets = append(w.offsets, w.bw.BitPos())
	}
	for i, f := range w.schema {
		var vec []int32
		if key {
			vec = flatten(nil, f, rec[i])
		} else {
			vec = diff(nil, f, w.prev[i], rec[i])
		}
		for _, t := range tokenize(nil, vec) {
			if !w.coders[i].WriteCode(w.bw, t.sym) {
				return fmt.Errorf("dataio: field %s: symbol %d not in frequency table", f.Name, t.sym)
			}
			if t.extraBits > 0 {
				w.bw.WriteBits(t.extra, t.extraBits)
			}
		}
	}
	w.prev = append(Record(nil), rec...)
	w.count++
	return w.bw.Err()
}

// Count reports the number of records written.
func (w *Writer) Count() int { return w.count }

// Close flushes the data stream. The caller then writes the position
// index with WriteIndex.
func (w *Writer) Close() error {
	return w.bw.Close()
}

// WriteIndex writes the position index: one little-endian uint64 bit
// offset per chunk, then the record count as uint32.
func (w *Writer) WriteIndex(out io.Writer) error {
	buf := make([]byte, 8)
	for _, off := range w.offsets {
		binary.LittleEndian.PutUint64(buf, uint64(off))
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}
	binary.LittleEndian.PutUint32(buf[:4], uint32(w.count))
	_, err := out.Write(buf[:4])
	return err
}
