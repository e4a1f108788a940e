package bitio

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		widths []int
		values []uint32
	}{
		{"byte aligned", []int{8, 8, 8}, []uint32{0xAB, 0x00, 0xFF}},
		{"unaligned", []int{3, 5, 7, 1, 16}, []uint32{5, 29, 101, 1, 0xBEEF}},
		{"full words", []int{32, 32}, []uint32{0xDEADBEEF, 0x12345678}},
		{"single bits", []int{1, 1, 1, 1, 1, 1, 1, 1, 1}, []uint32{1, 0, 1, 1, 0, 0, 1, 0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			for i, v := range tt.values {
				w.WriteBits(v, tt.widths[i])
			}
			require.NoError(t, w.Close())

			r := NewReader(bytes.NewReader(buf.Bytes()))
			for i, want := range tt.values {
				got, ok := r.ReadBits(tt.widths[i])
				require.True(t, ok, "read %d", i)
				assert.Equal(t, want, got, "value %d", i)
			}
		})
	}
}

func TestFirstBitIsBitZeroOfFirstByte(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteBits(1, 1)
	require.NoError(t, w.Close())
	require.Equal(t, []byte{0x01}, buf.Bytes())
}

func TestZeroPadOnClose(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.WriteBits(0x7, 3)
	require.NoError(t, w.Close())
	require.Equal(t, []byte{0x07}, buf.Bytes())
}

func TestSignExtension(t *testing.T) {
	tests := []struct {
		v int32
		n int
	}{
		{-1, 4},
		{-8, 4},
		{7, 4},
		{-100, 12},
		{-1, 32},
		{1 << 20, 24},
		{-(1 << 20), 24},
	}
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, tt := range tests {
		w.WriteInt(tt.v, tt.n)
	}
	require.NoError(t, w.Close())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	for _, tt := range tests {
		got, ok := r.ReadInt(tt.n)
		require.True(t, ok)
		assert.Equal(t, tt.v, got, "width %d", tt.n)
	}
}

func TestSeekToBitBoundary(t *testing.T) {
	// Write 100 3-bit fields, then re-read a few by absolute bit offset.
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < 100; i++ {
		w.WriteBits(uint32(i%8), 3)
	}
	require.NoError(t, w.Close())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	for _, i := range []int{0, 1, 7, 8, 42, 99, 3, 0} {
		require.True(t, r.Seek(int64(i*3)))
		got, ok := r.ReadBits(3)
		require.True(t, ok)
		assert.Equal(t, uint32(i%8), got, "field %d", i)
	}
}

func TestReadPastEnd(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte{0xFF}))
	_, ok := r.ReadBits(8)
	require.True(t, ok)
	_, ok = r.ReadBits(1)
	require.False(t, ok)
}

func TestBitPos(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.Equal(t, int64(0), w.BitPos())
	w.WriteBits(0, 5)
	w.WriteBits(0, 9)
	require.Equal(t, int64(14), w.BitPos())
}
