package geocoder

import (
	"math"
	"strings"
)

// Address-number templates. An address string such as "123-A" splits
// into at most four segments, each a maximal run of one character
// class; a low/high pair of templates describes a street segment's
// address range and supports interpolation and fuzzy scoring of a
// candidate number against it.

type segClass uint8

const (
	classDigit segClass = iota
	classAlpha
	classOther
)

type addrSegment struct {
	class segClass
	text  string
}

// AddressTemplate is the decomposed form of one address-number string.
type AddressTemplate struct {
	segs []addrSegment
}

// maxAddrSegments bounds the decomposition; trailing text beyond the
// fourth segment is folded into it.
const maxAddrSegments = 4

// NewAddressTemplate decomposes an address-number string.
func NewAddressTemplate(addr string) AddressTemplate {
	addr = strings.ToUpper(strings.TrimSpace(addr))
	var t AddressTemplate
	for i := 0; i < len(addr); {
		cl := classOf(addr[i])
		j := i + 1
		for j < len(addr) && classOf(addr[j]) == cl {
			j++
		}
		if len(t.segs) == maxAddrSegments {
			last := &t.segs[maxAddrSegments-1]
			last.text += addr[i:j]
			last.class = classOther
			i = j
			continue
		}
		t.segs = append(t.segs, addrSegment{class: cl, text: addr[i:j]})
		i = j
	}
	return t
}

func classOf(c byte) segClass {
	switch {
	case c >= '0' && c <= '9':
		return classDigit
	case c >= 'A' && c <= 'Z':
		return classAlpha
	default:
		return classOther
	}
}

// Empty reports whether the template has no segments.
func (t AddressTemplate) Empty() bool { return len(t.segs) == 0 }

// String reassembles the original (normalized) address string.
func (t AddressTemplate) String() string {
	var b strings.Builder
	for _, s := range t.segs {
		b.WriteString(s.text)
	}
	return b.String()
}

// segValue maps a segment to a comparable magnitude: digits by value,
// letters base-26, anything else base-128 over the raw bytes.
func segValue(s addrSegment) float64 {
	v := 0.0
	switch s.class {
	case classDigit:
		for i := 0; i < len(s.text); i++ {
			v = v*10 + float64(s.text[i]-'0')
		}
	case classAlpha:
		for i := 0; i < len(s.text); i++ {
			v = v*26 + float64(s.text[i]-'A'+1)
		}
	default:
		for i := 0; i < len(s.text); i++ {
			v = v*128 + float64(s.text[i])
		}
	}
	return v
}

// AddressRangeTemplate pairs the low and high address templates of a
// street segment.
type AddressRangeTemplate struct {
	low   AddressTemplate
	high  AddressTemplate
	fixed []bool
}

// NewAddressRangeTemplate builds a range template, reconciling a
// one-segment count difference (as in 100 vs 100A) by padding the
// shorter side with a blank segment of the longer side's class.
func NewAddressRangeTemplate(low, high string) AddressRangeTemplate {
	lo := NewAddressTemplate(low)
	hi := NewAddressTemplate(high)
	switch {
	case len(lo.segs) == len(hi.segs)-1:
		lo.segs = append(lo.segs, addrSegment{class: hi.segs[len(hi.segs)-1].class})
	case len(hi.segs) == len(lo.segs)-1:
		hi.segs = append(hi.segs, addrSegment{class: lo.segs[len(lo.segs)-1].class})
	}
	rt := AddressRangeTemplate{low: lo, high: hi}
	if len(lo.segs) == len(hi.segs) {
		rt.fixed = make([]bool, len(lo.segs))
		for i := range lo.segs {
			// A sole segment is never fixed; interpolation across it
			// would otherwise degenerate.
			rt.fixed[i] = len(lo.segs) > 1 && lo.segs[i].text == hi.segs[i].text
		}
	}
	return rt
}

// alignCandidate reconciles a candidate template with the range: same
// segment count passes through, one segment short is padded with a
// blank when the range's trailing segment is non-numeric.
func (rt AddressRangeTemplate) alignCandidate(cand AddressTemplate) (AddressTemplate, bool, bool) {
	if len(rt.low.segs) != len(rt.high.segs) || len(rt.low.segs) == 0 {
		return cand, false, false
	}
	if len(cand.segs) == len(rt.low.segs) {
		return cand, true, false
	}
	if len(cand.segs) == len(rt.low.segs)-1 && rt.low.segs[len(rt.low.segs)-1].class != classDigit {
		// Missing trailing non-numeric segment: align with a blank.
		cand.segs = append(append([]addrSegment(nil), cand.segs...),
			addrSegment{class: rt.low.segs[len(rt.low.segs)-1].class})
		return cand, true, true
	}
	return cand, false, false
}

// Interpolate locates a candidate address within the range as a 0..1
// fraction. Fixed segments must match exactly or the candidate is
// rejected (ok=false). Fractions outside [0,1] indicate extrapolation
// and clear inRange.
func (rt AddressRangeTemplate) Interpolate(addr string) (frac float64, inRange bool, ok bool) {
	cand, aligned, _ := rt.alignCandidate(NewAddressTemplate(addr))
	if !aligned {
		return 0, false, false
	}
	frac = 0
	inRange = true
	weight := 1.0
	sawRange := false
	for i := range rt.low.segs {
		lv := segValue(rt.low.segs[i])
		hv := segValue(rt.high.segs[i])
		cv := segValue(cand.segs[i])
		if rt.fixed[i] {
			if cand.segs[i].text != rt.low.segs[i].text {
				return 0, false, false
			}
			continue
		}
		lo, hi := lv, hv
		descending := lo > hi
		if descending {
			lo, hi = hi, lo
		}
		span := hi - lo
		if span == 0 {
			if cv != lo {
				inRange = false
			}
			continue
		}
		f := (cv - lo) / span
		if descending {
			f = 1 - f
		}
		if f < 0 || f > 1 {
			inRange = false
		}
		frac += weight * f
		weight /= span + 1
		sawRange = true
	}
	if !sawRange {
		// Degenerate range: any exact-equal candidate sits at the low
		// end.
		return 0, inRange, true
	}
	if inRange {
		// Subordinate segments refine the position inside the primary
		// span; their weighted shares must not push an in-range
		// candidate past the endpoints.
		frac = math.Min(math.Max(frac, 0), 1)
	}
	return frac, inRange, true
}

// Score rates a candidate address against the range on 0..1. Even/odd
// parity of numeric segments is enforced softly: a determined-parity
// range disagreeing with the candidate costs a fixed penalty and
// reports evenOddMatch=false.
func (rt AddressRangeTemplate) Score(addr string) (score float64, evenOddMatch bool) {
	score, evenOddMatch = rt.scoreOnce(NewAddressTemplate(addr))
	// "123-A" and "123A" style formatting differences: retry with the
	// hyphen segment collapsed, slightly discounted.
	cand := NewAddressTemplate(addr)
	if len(cand.segs) == 3 && cand.segs[1].class == classOther {
		collapsed := NewAddressTemplate(cand.segs[0].text + cand.segs[2].text)
		if s2, eo2 := rt.scoreOnce(collapsed); s2*0.97 > score {
			score, evenOddMatch = s2*0.97, eo2
		}
	}
	return score, evenOddMatch
}

const (
	evenOddPenalty        = 0.10
	parityUnknownPenalty  = 0.01
	missingTrailingCredit = 0.7
	minScoreRangeSpan     = 50.0
)

func (rt AddressRangeTemplate) scoreOnce(candIn AddressTemplate) (float64, bool) {
	cand, aligned, padded := rt.alignCandidate(candIn)
	if !aligned {
		return 0, true
	}
	total := 0.0
	n := 0
	evenOdd := true
	penalty := 0.0
	for i := range rt.low.segs {
		lv := segValue(rt.low.segs[i])
		hv := segValue(rt.high.segs[i])
		cv := segValue(cand.segs[i])
		lo, hi := math.Min(lv, hv), math.Max(lv, hv)
		n++
		if padded && i == len(rt.low.segs)-1 && cand.segs[i].text == "" {
			// Candidate lacks the trailing non-numeric segment the
			// range has; lightly penalized, not rejected.
			total += missingTrailingCredit
			continue
		}
		if rt.fixed[i] {
			if cand.segs[i].text == rt.low.segs[i].text {
				total += 1.0
			}
			continue
		}
		if cv >= lo && cv <= hi {
			total += 1.0
		} else {
			dist := math.Min(math.Abs(cv-lo), math.Abs(cv-hi))
			span := math.Max(hi-lo, minScoreRangeSpan)
			total += math.Max(0, 1.0-dist/span)
		}
		if rt.low.segs[i].class == classDigit && rt.high.segs[i].class == classDigit &&
			cand.segs[i].class == classDigit {
			lp := int64(lv) % 2
			hp := int64(hv) % 2
			cp := int64(cv) % 2
			if lp == hp {
				if cp != lp {
					penalty += evenOddPenalty
					evenOdd = false
				}
			} else {
				penalty += parityUnknownPenalty
			}
		}
	}
	if n == 0 {
		return 0, true
	}
	s := total/float64(n) - penalty
	if s < 0 {
		s = 0
	}
	return s, evenOdd
}

// RangeSize is a monotone composite magnitude of the range, used only
// to prefer the narrower of two otherwise equally scored ranges.
func (rt AddressRangeTemplate) RangeSize() float64 {
	size := 0.0
	for i := range rt.low.segs {
		if i >= len(rt.high.segs) {
			break
		}
		span := math.Abs(segValue(rt.high.segs[i]) - segValue(rt.low.segs[i]))
		size = size*100000 + span
	}
	return size
}
