package geocoder

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// Candidate scoring. Every function here returns a 0..1 quality plus
// the match-modification flags it determined; the engine combines the
// component scores into the final 0-1000 value. All constants are
// tunables, not contracts.

// Match-modification flags reported on a Result.
type MatchFlags uint32

const (
	MatchCitySupplied MatchFlags = 1 << iota
	MatchStateSupplied
	MatchPostcodeSupplied
	MatchCityChanged
	MatchStateChanged
	MatchPostcodeChanged
	MatchPredirChanged
	MatchSuffixChanged
	MatchPostdirChanged
	MatchUnitPresent
	MatchAddrOutOfRange
	MatchEvenOddMismatch
)

// Geocode-method flags reported on a Result.
type GeoFlags uint32

const (
	GeoStreetAddress GeoFlags = 1 << iota
	GeoExtrapolated
	GeoIntersection
	GeoZip5Centroid
	GeoZip7Centroid
	GeoZip9Centroid
	GeoPostcode3Centroid
	GeoPostcode6Centroid
)

// Last-line component weights. When a component is legitimately absent
// from the typed line its weight is redistributed over the present
// ones.
const (
	lastLinePostcodeWeight = 0.45
	lastLineCityWeight     = 0.35
	lastLineStateWeight    = 0.20
)

// Street-name component weights on top of the base name similarity.
const (
	streetNameWeight    = 0.70
	streetPredirWeight  = 0.10
	streetSuffixWeight  = 0.10
	streetPostdirWeight = 0.05
	streetPrefixWeight  = 0.05

	// A predir typed as a postdir (or vice versa) is a formatting slip,
	// not a different street.
	reversedDirCredit = 0.8
)

// Last-line change penalties (applied when the owning city row differs
// from the last-line winner).
const (
	ownerChangePenaltyNoPostcode = 0.15
	ownerChangePenaltyOtherFA    = 0.10
	ownerChangePenaltySameFA     = 0.03
)

// segmentExtMismatchPenalty discounts a segment whose ZIP extension
// disagrees with a typed ZIP+4.
const segmentExtMismatchPenalty = 0.05

// editScore rates string similarity on 0..1 via edit distance over the
// longer length. Two empty strings are a perfect match.
func editScore(a, b string) float64 {
	a = strings.ToUpper(strings.TrimSpace(a))
	b = strings.ToUpper(strings.TrimSpace(b))
	if a == b {
		return 1.0
	}
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	if n == 0 {
		return 1.0
	}
	d := levenshtein.ComputeDistance(a, b)
	s := 1.0 - float64(d)/float64(n)
	if s < 0 {
		return 0
	}
	return s
}

// exactBonus is 1 for an exact match, a partial credit when only one
// side is set, 0 on disagreement.
func exactBonus(typed, ref string) float64 {
	switch {
	case typed == ref:
		return 1.0
	case typed == "" || ref == "":
		// One side silent: not a contradiction, not a confirmation.
		return 0.5
	default:
		return 0
	}
}

// ScoreLastLine rates one last-line reading against one city row.
// A postcode match may stand in for a missing city and vice versa; a
// reading with neither city nor postcode scores zero.
func ScoreLastLine(cand LastLineCandidate, csp CityStatePostcode, candStateFips int, stateKnown bool) (float64, MatchFlags) {
	var flags MatchFlags
	total, weight := 0.0, 0.0

	if cand.Postcode != "" {
		flags |= MatchPostcodeSupplied
		s := editScore(cand.Postcode, csp.Postcode)
		if s < 1.0 {
			flags |= MatchPostcodeChanged
		}
		total += lastLinePostcodeWeight * s
		weight += lastLinePostcodeWeight
	}
	if cand.City != "" {
		flags |= MatchCitySupplied
		s := editScore(cand.City, csp.City)
		if s < 1.0 {
			flags |= MatchCityChanged
		}
		total += lastLineCityWeight * s
		weight += lastLineCityWeight
	}
	if cand.StateAbbr != "" {
		flags |= MatchStateSupplied
		s := 0.0
		if stateKnown && candStateFips == csp.StateFips {
			s = 1.0
		} else {
			flags |= MatchStateChanged
		}
		total += lastLineStateWeight * s
		weight += lastLineStateWeight
	}

	if flags&(MatchCitySupplied|MatchPostcodeSupplied) == 0 {
		return 0, flags
	}
	return total / weight, flags
}

// ScoreStreetName rates one first-line reading against one street name,
// using the candidate's primary street fields.
func ScoreStreetName(cand FirstLineCandidate, sn StreetName) (float64, MatchFlags) {
	return scoreStreetFields(cand.Predir, cand.Name, cand.Suffix, cand.Postdir, cand.Prefix, sn)
}

// ScoreSecondStreetName rates the second street of an intersection
// reading.
func ScoreSecondStreetName(cand FirstLineCandidate, sn StreetName) (float64, MatchFlags) {
	return scoreStreetFields(cand.Predir2, cand.Name2, cand.Suffix2, cand.Postdir2, "", sn)
}

func scoreStreetFields(predir, name, suffix, postdir, prefix string, sn StreetName) (float64, MatchFlags) {
	var flags MatchFlags
	base := editScore(name, sn.Name)
	total := streetNameWeight * base

	pd := exactBonus(predir, sn.Predir)
	od := exactBonus(postdir, sn.Postdir)
	if pd < 1.0 && od < 1.0 && predir != "" && predir == sn.Postdir && postdir == sn.Predir {
		// Reversed pair: both slots get the discounted credit.
		pd, od = reversedDirCredit, reversedDirCredit
	}
	if pd < 1.0 && predir != sn.Predir {
		flags |= MatchPredirChanged
	}
	if od < 1.0 && postdir != sn.Postdir {
		flags |= MatchPostdirChanged
	}
	sf := exactBonus(suffix, sn.Suffix)
	if sf < 1.0 && suffix != sn.Suffix {
		flags |= MatchSuffixChanged
	}

	total += streetPredirWeight * pd
	total += streetPostdirWeight * od
	total += streetSuffixWeight * sf
	total += streetPrefixWeight * exactBonus(prefix, sn.Prefix)
	return total, flags
}

// ScoreStreetSegment rates a typed house number against one segment's
// address range.
func ScoreStreetSegment(number string, pcExt string, seg StreetSegment) (float64, MatchFlags) {
	var flags MatchFlags
	rt := NewAddressRangeTemplate(seg.AddrLow, seg.AddrHigh)
	s, evenOdd := rt.Score(number)
	if !evenOdd {
		flags |= MatchEvenOddMismatch
	}
	if _, inRange, ok := rt.Interpolate(number); ok && !inRange {
		flags |= MatchAddrOutOfRange
	}
	if pcExt != "" && seg.PostcodeExt != "" && pcExt != seg.PostcodeExt {
		s -= segmentExtMismatchPenalty
		if s < 0 {
			s = 0
		}
	}
	return s, flags
}

// ScoreStreetIntersection rates an intersection reading against a
// resolved intersection: street-name similarity only, both legs
// weighted equally.
func ScoreStreetIntersection(cand FirstLineCandidate, si StreetIntersection) (float64, MatchFlags) {
	s1, f1 := ScoreStreetName(cand, si.Street1)
	s2, f2 := ScoreSecondStreetName(cand, si.Street2)
	return (s1 + s2) / 2, f1 | f2
}

// PenalizeLastLineChange discounts a candidate whose owning city row is
// not the last-line winner. The discount is steepest when the caller
// typed no postcode at all, and mild when only the city differs within
// one finance area.
func PenalizeLastLineChange(score float64, hadPostcode, sameFA bool) float64 {
	switch {
	case !hadPostcode:
		score -= ownerChangePenaltyNoPostcode
	case !sameFA:
		score -= ownerChangePenaltyOtherFA
	default:
		score -= ownerChangePenaltySameFA
	}
	if score < 0 {
		return 0
	}
	return score
}

// ownerAffinity ranks how closely a street's structural owner agrees
// with the last-line winner. Higher is closer: same row, then same
// postcode or alias group, then same city, then alias-related cities,
// then same finance area, then nothing in common. The intersection
// search uses it to pick the more specific of two surrounding city
// rows, and the engine uses rank 0 to decide the change penalty tier.
func (g *Geocoder) ownerAffinity(owner, lastLine CityStatePostcode) int {
	switch {
	case owner.ID == lastLine.ID:
		return 5
	case owner.Postcode == lastLine.Postcode || g.samePostcodeGroup(owner.Postcode, lastLine.Postcode):
		return 4
	case owner.City == lastLine.City && owner.StateFips == lastLine.StateFips:
		return 3
	case g.citiesAliased(owner, lastLine):
		return 2
	case owner.FinanceArea == lastLine.FinanceArea:
		return 1
	}
	return 0
}

// samePostcodeGroup reports whether two postcodes share an alias group.
func (g *Geocoder) samePostcodeGroup(a, b string) bool {
	if a == "" || b == "" || a == b {
		return a != "" && a == b
	}
	it := g.q.PostcodeAliasesByPostcode(a)
	for {
		r, ok := it.Next()
		if !ok {
			return false
		}
		inner := g.q.PostcodeAliasesByGroup(r.Group)
		for {
			m, ok := inner.Next()
			if !ok {
				break
			}
			if m.Postcode == b {
				return true
			}
		}
	}
}

// citiesAliased reports whether one row's city is a replacement alias
// of the other's within the same state.
func (g *Geocoder) citiesAliased(a, b CityStatePostcode) bool {
	if a.StateFips != b.StateFips {
		return false
	}
	for _, al := range g.q.CityAliasesFor(a.City, a.StateFips) {
		if al.To == b.City {
			return true
		}
	}
	for _, al := range g.q.CityAliasesFor(b.City, b.StateFips) {
		if al.To == a.City {
			return true
		}
	}
	return false
}
