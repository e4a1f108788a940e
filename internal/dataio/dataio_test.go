package dataio

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var testSchema = Schema{
	{Name: "id_ref", Kind: KindInt},
	{Name: "low", Kind: KindString},
	{Name: "high", Kind: KindString},
	{Name: "count", Kind: KindInt},
}

// encode runs the two-pass pipeline over records and returns the data
// stream and position index.
func encode(t *testing.T, schema Schema, chunkSize int, recs []Record) ([]byte, []byte) {
	t.Helper()
	fc := NewFreqCollector(schema, chunkSize)
	for _, r := range recs {
		fc.Add(r)
	}
	coders := Coders(fc.Freqs())

	var data, idx bytes.Buffer
	w := NewWriter(&data, schema, chunkSize, coders)
	for i, r := range recs {
		if err := w.WriteRecord(r); err != nil {
			t.Fatalf("WriteRecord(%d): %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := w.WriteIndex(&idx); err != nil {
		t.Fatalf("WriteIndex: %v", err)
	}
	// Decoding needs coders built the way the query engine builds them:
	// from the (round-tripped) frequency tables. Freqs are shared here;
	// determinism is covered by the huffman package tests.
	return data.Bytes(), idx.Bytes()
}

func newTestReader(t *testing.T, schema Schema, chunkSize int, recs []Record, data, idx []byte) *Reader {
	t.Helper()
	fc := NewFreqCollector(schema, chunkSize)
	for _, r := range recs {
		fc.Add(r)
	}
	r, err := NewReader(bytes.NewReader(data), idx, schema, chunkSize, Coders(fc.Freqs()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func makeRecords(n int) []Record {
	recs := make([]Record, n)
	for i := range recs {
		recs[i] = Record{
			IntVal(int32(1000 + i/3)), // slowly changing reference id
			StrVal(fmt.Sprintf("%d", 100+2*i)),
			StrVal(fmt.Sprintf("%d", 198+2*i)),
			IntVal(int32(i % 5)),
		}
	}
	return recs
}

func TestSequentialRoundTrip(t *testing.T) {
	const chunkSize = 10
	recs := makeRecords(37) // deliberately not a multiple of chunkSize
	data, idx := encode(t, testSchema, chunkSize, recs)
	r := newTestReader(t, testSchema, chunkSize, recs, data, idx)

	if r.Count() != len(recs) {
		t.Fatalf("Count = %d, want %d", r.Count(), len(recs))
	}
	for i, want := range recs {
		got, ok := r.Record(i)
		if !ok {
			t.Fatalf("Record(%d) failed", i)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("Record(%d) mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestRandomAccessAtChunkBoundaries(t *testing.T) {
	const chunkSize = 10
	recs := makeRecords(35)
	data, idx := encode(t, testSchema, chunkSize, recs)
	r := newTestReader(t, testSchema, chunkSize, recs, data, idx)

	// Sample around every chunk boundary, out of order.
	for _, i := range []int{chunkSize - 1, chunkSize, chunkSize + 1, 0, 2*chunkSize - 1, 2 * chunkSize, 34, 1, 2*chunkSize + 1} {
		got, ok := r.Record(i)
		if !ok {
			t.Fatalf("Record(%d) failed", i)
		}
		if diff := cmp.Diff(recs[i], got); diff != "" {
			t.Fatalf("Record(%d) mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestVaryingStringLengths(t *testing.T) {
	const chunkSize = 4
	recs := []Record{
		{IntVal(1), StrVal(""), StrVal("100A"), IntVal(0)},
		{IntVal(1), StrVal("7"), StrVal(""), IntVal(0)},
		{IntVal(2), StrVal("1234567"), StrVal("99"), IntVal(-5)},
		{IntVal(2), StrVal("123"), StrVal("99B"), IntVal(5)},
		{IntVal(3), StrVal("W MAIN"), StrVal("W MAIN"), IntVal(1)},
		{IntVal(3), StrVal("W MAIN ST"), StrVal("E"), IntVal(1)},
	}
	data, idx := encode(t, testSchema, chunkSize, recs)
	r := newTestReader(t, testSchema, chunkSize, recs, data, idx)

	for i := len(recs) - 1; i >= 0; i-- {
		got, ok := r.Record(i)
		if !ok {
			t.Fatalf("Record(%d) failed", i)
		}
		if diff := cmp.Diff(recs[i], got); diff != "" {
			t.Fatalf("Record(%d) mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestWideIntegers(t *testing.T) {
	schema := Schema{{Name: "lat", Kind: KindInt}, {Name: "lon", Kind: KindInt}}
	recs := []Record{
		{IntVal(3978000), IntVal(-8965000)},
		{IntVal(3978150), IntVal(-8965020)},
		{IntVal(3978300), IntVal(-8965040)},
		{IntVal(-2147480000), IntVal(2147480000)},
	}
	data, idx := encode(t, schema, 40, recs)
	r := newTestReader(t, schema, 40, recs, data, idx)
	for i := range recs {
		got, ok := r.Record(i)
		if !ok {
			t.Fatalf("Record(%d) failed", i)
		}
		if diff := cmp.Diff(recs[i], got); diff != "" {
			t.Fatalf("Record(%d) mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestOutOfRangeRecord(t *testing.T) {
	recs := makeRecords(5)
	data, idx := encode(t, testSchema, 10, recs)
	r := newTestReader(t, testSchema, 10, recs, data, idx)
	if _, ok := r.Record(5); ok {
		t.Fatal("Record(5) succeeded past end")
	}
	if _, ok := r.Record(-1); ok {
		t.Fatal("Record(-1) succeeded")
	}
}

func TestParseIndexRejectsBadSizes(t *testing.T) {
	if _, _, err := ParseIndex([]byte{1, 2, 3}, 10); err == nil {
		t.Fatal("short index accepted")
	}
	// Plausible length but chunk count inconsistent with the trailer.
	bad := make([]byte, 8+4)
	bad[8] = 200 // 200 records cannot fit one chunk of 10
	if _, _, err := ParseIndex(bad, 10); err == nil {
		t.Fatal("inconsistent index accepted")
	}
}

func TestZigzag(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 2, -2, 1 << 30, -(1 << 30), -2147483648, 2147483647} {
		if got := unzigzag(zigzag(v)); got != v {
			t.Fatalf("unzigzag(zigzag(%d)) = %d", v, got)
		}
	}
}
