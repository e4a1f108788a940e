// Package huffman builds prefix codes from symbol frequency tables and
// codes symbols through a bitio stream.
//
// Codes are deterministic: two coders built from equal tables, even in
// different processes, assign identical bit patterns. This is required
// because the encoder runs in the offline database builder and the
// decoder in the query engine.
package huffman

import (
	"container/heap"

	"github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000/internal/bitio"
)

type node struct {
	sym    int // valid for leaves
	count  int
	minSym int // smallest symbol in the subtree, for tie-breaking
	left   *node
	right  *node
}

func (n *node) leaf() bool { return n.left == nil }

type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].count != h[j].count {
		return h[i].count < h[j].count
	}
	return h[i].minSym < h[j].minSym
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)   { *h = append(*h, x.(*node)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

type code struct {
	bits uint32 // bit 0 is the first branch taken from the root
	n    int
}

// Coder holds one prefix code over integer symbols.
type Coder struct {
	root  *node
	codes map[int]code
}

// NewCoder builds a coder from a symbol frequency table using the
// greedy two-lowest-merge construction. Ties break on lower count, then
// lower symbol value. An empty table is seeded with a single zero-count
// symbol 0 so the tree is never empty.
func NewCoder(freq map[int]int) *Coder {
	h := make(nodeHeap, 0, len(freq))
	for sym, count := range freq {
		h = append(h, &node{sym: sym, count: count, minSym: sym})
	}
	if len(h) == 0 {
		h = append(h, &node{sym: 0, count: 0, minSym: 0})
	}
	heap.Init(&h)
	for len(h) > 1 {
		a := heap.Pop(&h).(*node)
		b := heap.Pop(&h).(*node)
		m := &node{count: a.count + b.count, minSym: a.minSym, left: a, right: b}
		if b.minSym < m.minSym {
			m.minSym = b.minSym
		}
		heap.Push(&h, m)
	}
	c := &Coder{root: h[0], codes: make(map[int]code)}
	c.assign(c.root, 0, 0)
	return c
}

func (c *Coder) assign(n *node, bits uint32, depth int) {
	if n.leaf() {
		if depth == 0 {
			// Lone-symbol tree: spend one bit so encode and decode
			// still advance the stream.
			depth = 1
		}
		c.codes[n.sym] = code{bits: bits, n: depth}
		return
	}
	c.assign(n.left, bits, depth+1)
	c.assign(n.right, bits|1<<depth, depth+1)
}

// WriteCode encodes one symbol. It returns false if the symbol was not
// present in the frequency table.
func (c *Coder) WriteCode(w *bitio.Writer, sym int) bool {
	cd, ok := c.codes[sym]
	if !ok {
		return false
	}
	w.WriteBits(cd.bits, cd.n)
	return true
}

// ReadCode decodes one symbol, reading bits until a leaf is reached.
func (c *Coder) ReadCode(r *bitio.Reader) (int, bool) {
	d := c.StartDecode()
	for {
		b, ok := r.ReadBits(1)
		if !ok {
			return 0, false
		}
		if sym, done := d.Step(b); done {
			return sym, true
		}
	}
}

// Decoder is an incremental bit-by-bit decode in progress.
type Decoder struct {
	at *node
}

// StartDecode begins an incremental decode at the root.
func (c *Coder) StartDecode() Decoder {
	return Decoder{at: c.root}
}

// Step consumes one bit. When the walk reaches a leaf it returns the
// symbol and done=true; the Decoder is then exhausted.
func (d *Decoder) Step(bit uint32) (int, bool) {
	if d.at.leaf() {
		// Lone-symbol tree: the single bit read carries no information.
		return d.at.sym, true
	}
	if bit == 0 {
		d.at = d.at.left
	} else {
		d.at = d.at.right
	}
	if d.at.leaf() {
		return d.at.sym, true
	}
	return 0, false
}

// CodeLen reports the bit length of a symbol's code, or 0 if absent.
func (c *Coder) CodeLen(sym int) int {
	return c.codes[sym].n
}
