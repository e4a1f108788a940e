package huffman

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Frequency tables live on disk as human-readable text: one
//
//	"<symbol>" <count>
//
// line per entry, symbols printed as decimal integers, sorted by symbol
// so the files diff cleanly between database builds.

// WriteFreqTable writes a frequency table in the text format.
func WriteFreqTable(w io.Writer, freq map[int]int) error {
	syms := make([]int, 0, len(freq))
	for s := range freq {
		syms = append(syms, s)
	}
	sort.Ints(syms)
	bw := bufio.NewWriter(w)
	for _, s := range syms {
		if _, err := fmt.Fprintf(bw, "%q %d\n", strconv.Itoa(s), freq[s]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadFreqTable parses a frequency table written by WriteFreqTable.
func ReadFreqTable(r io.Reader) (map[int]int, error) {
	freq := make(map[int]int)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		tok, rest, err := splitQuoted(line)
		if err != nil {
			return nil, fmt.Errorf("frequency table line %d: %w", lineNo, err)
		}
		sym, err := strconv.Atoi(tok)
		if err != nil {
			return nil, fmt.Errorf("frequency table line %d: bad symbol %q: %w", lineNo, tok, err)
		}
		count, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return nil, fmt.Errorf("frequency table line %d: bad count: %w", lineNo, err)
		}
		freq[sym] = count
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return freq, nil
}

// splitQuoted splits a leading double-quoted token from the remainder
// of the line.
func splitQuoted(line string) (string, string, error) {
	if len(line) < 2 || line[0] != '"' {
		return "", "", fmt.Errorf("missing quoted token")
	}
	end := strings.IndexByte(line[1:], '"')
	if end < 0 {
		return "", "", fmt.Errorf("unterminated quoted token")
	}
	return line[1 : 1+end], line[2+end:], nil
}
