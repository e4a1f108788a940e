// Package dataio implements the chunked record codec used by the
// reference database files.
//
// A record stream is partitioned into fixed-size chunks. The first
// record of each chunk (the key record) is coded with absolute field
// values; later records code the difference from the record before
// them. Each field flattens to an integer vector, the vector passes a
// zero-run-length pass, and the surviving tokens are Huffman coded
// against a per-field frequency table. A position index file stores one
// absolute bit offset per chunk plus a trailing record count, so any
// record is reachable by seeking its chunk head and decoding forward.
package dataio

// Kind selects how a field flattens into the token stream.
type Kind uint8

const (
	// KindInt codes a 32-bit integer: absolute in key records,
	// arithmetic delta in non-key records.
	KindInt Kind = iota
	// KindString codes a string as a length element followed by one
	// element per character, rebased by ' ' so padding becomes zero
	// runs. Non-key records code per-character differences against the
	// previous value, zero-extended when the new string is longer.
	KindString
)

// Field describes one record field.
type Field struct {
	Name string
	Kind Kind
}

// Schema is the ordered field list for one entity type.
type Schema []Field

// Value holds one field value; which member is live follows the
// schema's Kind.
type Value struct {
	Int int32
	Str string
}

// Record is one entity record, parallel to its Schema.
type Record []Value

// IntVal and StrVal are small helpers for building records.
func IntVal(v int32) Value  { return Value{Int: v} }
func StrVal(s string) Value { return Value{Str: s} }

// Token-space layout. Vector elements in [-litLimit, litLimit) are
// coded inline; a token at or above runBase denotes a run of
// (token - runBase) zeros; tokens at or above escBase carry the bit
// width of an out-of-line zigzag value.
const (
	runBase  = 0x1000
	escBase  = 0x2000
	maxRun   = runBase - 1
	litLimit = 1024
	charBase = ' ' // string characters are rebased by space
)

// zigzag maps signed to unsigned so small magnitudes stay small.
// Grounding: the usual interleaved mapping used by delta codecs.
func zigzag(v int32) uint32 {
	return uint32((v << 1) ^ (v >> 31))
}

func unzigzag(u uint32) int32 {
	return int32(u>>1) ^ -int32(u&1)
}

// flatten appends the vector form of one field value.
func flatten(dst []int32, f Field, v Value) []int32 {
	switch f.Kind {
	case KindInt:
		return append(dst, v.Int)
	case KindString:
		dst = append(dst, int32(len(v.Str)))
		for i := 0; i < len(v.Str); i++ {
			dst = append(dst, int32(v.Str[i])-charBase)
		}
		return dst
	}
	panic("dataio: unknown field kind")
}

// diff appends the delta vector of a field value against its
// predecessor. The previous string is treated as zero-extended (in
// rebased space) when the new value is longer.
func diff(dst []int32, f Field, prev, cur Value) []int32 {
	switch f.Kind {
	case KindInt:
		return append(dst, cur.Int-prev.Int)
	case KindString:
		dst = append(dst, int32(len(cur.Str))-int32(len(prev.Str)))
		for i := 0; i < len(cur.Str); i++ {
			c := int32(cur.Str[i]) - charBase
			if i < len(prev.Str) {
				c -= int32(prev.Str[i]) - charBase
			}
			dst = append(dst, c)
		}
		return dst
	}
	panic("dataio: unknown field kind")
}

// token is one coded unit: a Huffman symbol plus optional out-of-line
// raw bits for escaped wide values.
type token struct {
	sym       int
	extra     uint32
	extraBits int
}

// tokenize runs the RLE pass over a field vector and expands wide
// literals into escape tokens.
func tokenize(dst []token, vec []int32) []token {
	for i := 0; i < len(vec); {
		if vec[i] == 0 {
			run := 1
			for i+run < len(vec) && vec[i+run] == 0 {
				run++
			}
			if run >= 2 {
				for run > 0 {
					n := run
					if n > maxRun {
						n = maxRun
					}
					dst = append(dst, token{sym: runBase + n})
					run -= n
				}
				i = nextNonZero(vec, i)
				continue
			}
		}
		v := vec[i]
		if v >= -litLimit && v < litLimit {
			dst = append(dst, token{sym: int(v)})
		} else {
			z := zigzag(v)
			n := bitWidth(z)
			dst = append(dst, token{sym: escBase + n, extra: z, extraBits: n})
		}
		i++
	}
	return dst
}

func nextNonZero(vec []int32, i int) int {
	for i < len(vec) && vec[i] == 0 {
		i++
	}
	return i
}

func bitWidth(v uint32) int {
	n := 1
	for v>>uint(n) != 0 {
		n++
	}
	return n
}
