package geocoder

import (
	"fmt"
	"sort"

	geohash "github.com/TomiHiltunen/geohash-golang"
)

// GlobalStatus classifies the outcome of one CodeAddress call.
type GlobalStatus int

const (
	GlobalFailure GlobalStatus = iota
	GlobalSingle
	GlobalMultiple
)

func (s GlobalStatus) String() string {
	switch s {
	case GlobalSingle:
		return "single"
	case GlobalMultiple:
		return "multiple"
	}
	return "failure"
}

// Result is one geocoded candidate, returned by Next in descending
// score order. Lat/Lon are computed lazily; Geocoded reports whether
// the computation succeeded.
type Result struct {
	Number         string
	Prefix         string
	Predir         string
	Street         string
	Suffix         string
	Postdir        string
	UnitDesignator string
	UnitNumber     string

	// Second street of an intersection match.
	Predir2  string
	Street2  string
	Suffix2  string
	Postdir2 string

	City        string
	StateFips   int
	StateAbbr   string
	CountryISO  string
	CountyFips  int
	CensusTract string
	CensusBlock string
	Postcode    string
	PostcodeExt string

	Lat      float64
	Lon      float64
	Geocoded bool

	Score      int // 0-1000
	MatchFlags MatchFlags
	GeoFlags   GeoFlags
}

const (
	candStreet = iota
	candIntersection
	candCentroid
)

// candidate is one scored match before lazy geocoding.
type candidate struct {
	res  Result
	kind int

	streetID  int
	street2ID int
	seg       StreetSegment
	seg2      StreetSegment
	frac      float64
	hasFrac   bool

	centroid PostcodeCentroid

	done  bool
	geoOK bool
}

// Combined-score component weights per candidate kind.
const (
	streetLLWeight   = 0.35
	streetNameShare  = 0.40
	streetSegShare   = 0.25
	crossLLWeight    = 0.40
	crossNameShare   = 0.60
	minLastLineScore = 0.25
	minNameScore     = 0.40
)

// Geocoder is the address-matching engine over an open Query. Like the
// Query it owns, it is confined to a single goroutine.
type Geocoder struct {
	q      *Query
	cfg    *Config
	parser Parser

	results []*candidate
	cursor  int
}

// NewGeocoder opens the database directory and builds an engine over
// it.
func NewGeocoder(dir string, opts ...Option) (*Geocoder, error) {
	q, err := OpenQuery(dir, opts...)
	if err != nil {
		return nil, err
	}
	return &Geocoder{q: q, cfg: q.cfg, parser: StdParser{}}, nil
}

// SetParser replaces the default address tokenizer.
func (g *Geocoder) SetParser(p Parser) {
	if p != nil {
		g.parser = p
	}
}

// Query exposes the underlying read engine, mainly for tooling.
func (g *Geocoder) Query() *Query { return g.q }

// Close releases the underlying Query. Idempotent.
func (g *Geocoder) Close() error {
	g.results = nil
	return g.q.Close()
}

// lastLineMatch is the winning (reading, city row) pair of
// chooseBestLastLine.
type lastLineMatch struct {
	cand  LastLineCandidate
	csp   CityStatePostcode
	score float64
	flags MatchFlags
}

// CodeAddress matches one address against the reference database and
// stages the surviving candidates for Next. The last line must parse;
// everything downstream hangs off it.
func (g *Geocoder) CodeAddress(line1, line2 string) GlobalStatus {
	g.results = nil
	g.cursor = 0

	lastCands := g.parser.ParseLastLine(line2)
	if len(lastCands) == 0 {
		return GlobalFailure
	}
	firstCands := g.parser.ParseFirstLine(line1)

	best, haveLL := g.chooseBestLastLine(lastCands)

	if haveLL {
		fas := g.financeAreas(best)
		for _, fc := range firstCands {
			if fc.Intersection {
				g.searchIntersections(fc, best)
			} else {
				g.searchStreets(fc, best, fas)
			}
		}
	}

	if len(g.results) == 0 {
		g.centroidFallback(lastCands, best, haveLL)
	}
	if len(g.results) == 0 {
		return GlobalFailure
	}

	g.dedupe()
	sort.SliceStable(g.results, func(i, j int) bool {
		if g.results[i].res.Score != g.results[j].res.Score {
			return g.results[i].res.Score > g.results[j].res.Score
		}
		return g.results[i].streetID < g.results[j].streetID
	})
	return g.classify()
}

// Next lazily geocodes and returns the next staged candidate.
func (g *Geocoder) Next() (Result, bool) {
	for g.cursor < len(g.results) {
		c := g.results[g.cursor]
		g.cursor++
		g.code(c)
		return c.res, true
	}
	return Result{}, false
}

// chooseBestLastLine scores every last-line reading against every city
// row reachable by postcode (with alias expansion) or, failing that, by
// state + city soundex with a city-replacement retry.
func (g *Geocoder) chooseBestLastLine(cands []LastLineCandidate) (lastLineMatch, bool) {
	var best lastLineMatch
	have := false

	consider := func(cand LastLineCandidate, csp CityStatePostcode, stateFips int, stateKnown bool) {
		s, flags := ScoreLastLine(cand, csp, stateFips, stateKnown)
		if s < minLastLineScore {
			return
		}
		if !have || s > best.score {
			best = lastLineMatch{cand: cand, csp: csp, score: s, flags: flags}
			have = true
		}
	}

	for _, cand := range cands {
		stateFips, stateKnown := g.resolveState(cand.StateAbbr)

		matched := false
		for _, pc := range g.expandPostcode(cand.Postcode) {
			it := g.q.CityStatePostcodesByPostcode(pc)
			for {
				csp, ok := it.Next()
				if !ok {
					break
				}
				matched = true
				consider(cand, csp, stateFips, stateKnown)
			}
		}

		if !matched && cand.City != "" && stateKnown {
			cities := []string{cand.City}
			for _, al := range g.q.CityAliasesFor(cand.City, stateFips) {
				cities = append(cities, al.To)
			}
			for _, city := range cities {
				it := g.q.CityStatePostcodesBySoundex(stateFips, Soundex(city))
				for {
					row, ok := it.Next()
					if !ok {
						break
					}
					csp, ok := g.q.CityStatePostcodeByIDCached(row.CSPID)
					if !ok {
						continue
					}
					c2 := cand
					if city != cand.City {
						// Score against the replacement name; report the
						// change on the flags.
						c2.City = city
					}
					consider(c2, csp, stateFips, stateKnown)
				}
			}
		}
	}
	return best, have
}

func (g *Geocoder) resolveState(abbr string) (int, bool) {
	if abbr == "" {
		return 0, false
	}
	if fips, ok := g.q.StateFromAbbr(CountryUS, abbr); ok {
		return fips, true
	}
	if fips, ok := g.q.StateFromAbbr(CountryCA, abbr); ok {
		return fips, true
	}
	return 0, false
}

// expandPostcode returns the typed postcode plus every member of its
// alias groups.
func (g *Geocoder) expandPostcode(pc string) []string {
	if pc == "" {
		return nil
	}
	out := []string{pc}
	seen := map[string]bool{pc: true}
	it := g.q.PostcodeAliasesByPostcode(pc)
	for {
		r, ok := it.Next()
		if !ok {
			break
		}
		inner := g.q.PostcodeAliasesByGroup(r.Group)
		for {
			m, ok := inner.Next()
			if !ok {
				break
			}
			if !seen[m.Postcode] {
				seen[m.Postcode] = true
				out = append(out, m.Postcode)
			}
		}
	}
	return out
}

// financeAreas collects the winner's finance area plus those of every
// alias-postcode sibling row.
func (g *Geocoder) financeAreas(best lastLineMatch) []string {
	out := []string{best.csp.FinanceArea}
	seen := map[string]bool{best.csp.FinanceArea: true}
	for _, pc := range g.expandPostcode(best.cand.Postcode) {
		it := g.q.CityStatePostcodesByPostcode(pc)
		for {
			csp, ok := it.Next()
			if !ok {
				break
			}
			if !seen[csp.FinanceArea] {
				seen[csp.FinanceArea] = true
				out = append(out, csp.FinanceArea)
			}
		}
	}
	return out
}

// searchStreets scores one street-address reading across the candidate
// finance areas: soundex hits, then the best segment per street.
func (g *Geocoder) searchStreets(fc FirstLineCandidate, best lastLineMatch, fas []string) {
	if fc.Name == "" || fc.Number == "" {
		return
	}
	sx := StreetSoundex(fc.Name)
	before := len(g.results)
	for _, fa := range fas {
		it := g.q.StreetNamesBySoundex(fa, sx)
		for {
			row, ok := it.Next()
			if !ok {
				break
			}
			sn, ok := g.q.StreetNameByIDCached(row.StreetID)
			if !ok {
				continue
			}
			g.scoreStreetCandidate(fc, best, sn)
		}
	}
	if len(g.results) > before {
		return
	}

	// Soundex missed everything for this reading; the winning city
	// row's own street list still ranks by edit distance.
	it := g.q.StreetNamesForCSP(best.csp)
	for {
		sn, ok := it.Next()
		if !ok {
			break
		}
		g.scoreStreetCandidate(fc, best, sn)
	}
}

func (g *Geocoder) scoreStreetCandidate(fc FirstLineCandidate, best lastLineMatch, sn StreetName) {
	nameScore, nameFlags := ScoreStreetName(fc, sn)
	if nameScore < minNameScore {
		return
	}

	// Best segment by score, then the narrower range.
	var (
		bestSeg  StreetSegment
		segScore = -1.0
		segFlags MatchFlags
		segSize  float64
		haveSeg  bool
		bestFrac float64
		haveFrac bool
		extrapol bool
	)
	for i := 0; i < sn.SegmentCount; i++ {
		seg, ok := g.q.StreetSegmentByIDCached(sn.FirstSegment + i)
		if !ok {
			continue
		}
		s, flags := ScoreStreetSegment(fc.Number, best.cand.PostcodeExt, seg)
		rt := NewAddressRangeTemplate(seg.AddrLow, seg.AddrHigh)
		size := rt.RangeSize()
		if s > segScore || (s == segScore && haveSeg && size < segSize) {
			bestSeg, segScore, segFlags, segSize, haveSeg = seg, s, flags, size, true
			bestFrac, haveFrac, extrapol = 0, false, false
			if frac, inRange, ok := rt.Interpolate(fc.Number); ok {
				bestFrac, haveFrac = frac, true
				extrapol = !inRange
			}
		}
	}
	if !haveSeg {
		return
	}

	owner, ok := g.q.CityStatePostcodeByIDCached(sn.CSPID)
	if !ok {
		return
	}
	llScore := best.score
	llFlags := best.flags
	if owner.ID != best.csp.ID {
		sameFA := owner.FinanceArea == best.csp.FinanceArea
		llScore = PenalizeLastLineChange(llScore, best.cand.Postcode != "", sameFA)
		if owner.City != best.csp.City {
			llFlags |= MatchCityChanged
		}
		if owner.Postcode != best.csp.Postcode {
			llFlags |= MatchPostcodeChanged
		}
	}

	score := int((streetLLWeight*llScore + streetNameShare*nameScore + streetSegShare*segScore) * 1000)
	if score < g.cfg.MatchThreshold {
		return
	}

	flags := llFlags | nameFlags | segFlags
	if fc.UnitDesignator != "" {
		flags |= MatchUnitPresent
	}
	geoFlags := GeoStreetAddress
	if extrapol {
		geoFlags |= GeoExtrapolated
	}

	g.results = append(g.results, &candidate{
		kind:     candStreet,
		streetID: sn.ID,
		seg:      bestSeg,
		frac:     bestFrac,
		hasFrac:  haveFrac,
		res: g.baseResult(g.reportedOwner(owner, best.csp), Result{
			Number:         fc.Number,
			Prefix:         sn.Prefix,
			Predir:         sn.Predir,
			Street:         sn.Name,
			Suffix:         sn.Suffix,
			Postdir:        sn.Postdir,
			UnitDesignator: fc.UnitDesignator,
			UnitNumber:     fc.UnitNumber,
			CountyFips:     bestSeg.CountyFips,
			CensusTract:    bestSeg.CensusTract,
			CensusBlock:    bestSeg.CensusBlock,
			PostcodeExt:    bestSeg.PostcodeExt,
			Score:          score,
			MatchFlags:     flags,
			GeoFlags:       geoFlags,
		}),
	})
}

// searchIntersections scores an intersection reading against both
// street orders of the soundex pair.
func (g *Geocoder) searchIntersections(fc FirstLineCandidate, best lastLineMatch) {
	sx1 := StreetSoundex(fc.Name)
	sx2 := StreetSoundex(fc.Name2)
	state := best.csp.StateFips

	seen := map[[2]int]bool{}
	scan := func(a, b string, swapped bool) {
		it := g.q.IntersectionsBySoundex(state, a, b)
		for {
			row, ok := it.Next()
			if !ok {
				break
			}
			si, ok := g.q.ResolveIntersection(row)
			if !ok {
				continue
			}
			key := [2]int{si.Street1.ID, si.Street2.ID}
			if seen[key] {
				continue
			}
			seen[key] = true
			cand := fc
			if swapped {
				cand.Predir, cand.Predir2 = cand.Predir2, cand.Predir
				cand.Name, cand.Name2 = cand.Name2, cand.Name
				cand.Suffix, cand.Suffix2 = cand.Suffix2, cand.Suffix
				cand.Postdir, cand.Postdir2 = cand.Postdir2, cand.Postdir
			}
			g.scoreIntersectionCandidate(cand, best, si)
		}
	}
	scan(sx1, sx2, false)
	if sx1 != sx2 {
		scan(sx2, sx1, true)
	}
}

func (g *Geocoder) scoreIntersectionCandidate(fc FirstLineCandidate, best lastLineMatch, si StreetIntersection) {
	nameScore, nameFlags := ScoreStreetIntersection(fc, si)
	if nameScore < minNameScore {
		return
	}

	// The more specific of the two surrounding city rows wins.
	owner := si.CSP1
	if g.ownerAffinity(si.CSP2, best.csp) > g.ownerAffinity(si.CSP1, best.csp) {
		owner = si.CSP2
	}
	llScore := best.score
	llFlags := best.flags
	if owner.ID != best.csp.ID {
		sameFA := owner.FinanceArea == best.csp.FinanceArea
		llScore = PenalizeLastLineChange(llScore, best.cand.Postcode != "", sameFA)
	}

	score := int((crossLLWeight*llScore + crossNameShare*nameScore) * 1000)
	if score < g.cfg.MatchThreshold {
		return
	}

	g.results = append(g.results, &candidate{
		kind:      candIntersection,
		streetID:  si.Street1.ID,
		street2ID: si.Street2.ID,
		seg:       si.Segment1,
		seg2:      si.Segment2,
		res: g.baseResult(g.reportedOwner(owner, best.csp), Result{
			Predir:      si.Street1.Predir,
			Street:      si.Street1.Name,
			Suffix:      si.Street1.Suffix,
			Postdir:     si.Street1.Postdir,
			Predir2:     si.Street2.Predir,
			Street2:     si.Street2.Name,
			Suffix2:     si.Street2.Suffix,
			Postdir2:    si.Street2.Postdir,
			CountyFips:  si.Segment1.CountyFips,
			CensusTract: si.Segment1.CensusTract,
			CensusBlock: si.Segment1.CensusBlock,
			Score:       score,
			MatchFlags:  llFlags | nameFlags,
			GeoFlags:    GeoIntersection,
		}),
	})
}

// centroidFallback stages a postcode-centroid result: the typed
// postcode with extension first, then the bare postcode.
func (g *Geocoder) centroidFallback(cands []LastLineCandidate, best lastLineMatch, haveLL bool) {
	tried := map[string]bool{}
	try := func(pc string, flags GeoFlags, cand LastLineCandidate) bool {
		if pc == "" || tried[pc] {
			return false
		}
		tried[pc] = true
		cent, ok := g.q.PostcodeCentroidByPostcode(pc)
		if !ok {
			return false
		}

		score := 0.85
		llFlags := MatchPostcodeSupplied
		owner := CityStatePostcode{Postcode: cand.Postcode}
		if haveLL {
			score = best.score
			llFlags = best.flags
			owner = best.csp
		}
		g.results = append(g.results, &candidate{
			kind:     candCentroid,
			centroid: cent,
			res: g.baseResult(owner, Result{
				Postcode:    cand.Postcode,
				PostcodeExt: cand.PostcodeExt,
				Score:       int(score * 1000),
				MatchFlags:  llFlags,
				GeoFlags:    flags,
			}),
		})
		return true
	}

	for _, cand := range cands {
		if cand.Postcode == "" {
			continue
		}
		if cand.PostcodeExt != "" && try(cand.Postcode+cand.PostcodeExt, GeoZip9Centroid, cand) {
			return
		}
		if len(cand.PostcodeExt) == 4 && try(cand.Postcode+cand.PostcodeExt[:2], GeoZip7Centroid, cand) {
			return
		}
		if try(cand.Postcode, centroidFlag(cand.Postcode), cand) {
			return
		}
		// Canadian forward sortation area.
		if len(cand.Postcode) == 6 && try(cand.Postcode[:3], GeoPostcode3Centroid, cand) {
			return
		}
	}
}

func centroidFlag(pc string) GeoFlags {
	switch len(pc) {
	case 3:
		return GeoPostcode3Centroid
	case 6:
		return GeoPostcode6Centroid
	}
	return GeoZip5Centroid
}

// reportedOwner picks the city row written into the result when the
// street owner and the winning last line disagree. The default is
// per country: the owner for US rows, the typed last line for Canada.
func (g *Geocoder) reportedOwner(owner, lastLine CityStatePostcode) CityStatePostcode {
	if owner.ID == lastLine.ID {
		return owner
	}
	switch g.cfg.OwnerPolicy {
	case StreetOwnerWins:
		return owner
	case LastLineWins:
		return lastLine
	}
	if owner.Country == CountryCA {
		return lastLine
	}
	return owner
}

// baseResult fills the location fields shared by every candidate kind
// from the owning city row.
func (g *Geocoder) baseResult(owner CityStatePostcode, r Result) Result {
	r.City = owner.City
	r.StateFips = owner.StateFips
	if abbr, ok := g.q.StateAbbr(owner.Country, owner.StateFips); ok {
		r.StateAbbr = abbr
	}
	r.CountryISO = countryISO(owner.Country)
	if r.Postcode == "" {
		r.Postcode = owner.Postcode
	}
	return r
}

// dedupe collapses duplicate candidates: best per street-name pair,
// then best per resolved segment, then best per intersection point.
func (g *Geocoder) dedupe() {
	bestBy := func(key func(*candidate) (string, bool)) {
		seen := map[string]*candidate{}
		var out []*candidate
		for _, c := range g.results {
			k, ok := key(c)
			if !ok {
				out = append(out, c)
				continue
			}
			if prev, dup := seen[k]; dup {
				if c.res.Score > prev.res.Score {
					*prev = *c
				}
				continue
			}
			seen[k] = c
			out = append(out, c)
		}
		g.results = out
	}

	bestBy(func(c *candidate) (string, bool) {
		if c.kind == candCentroid {
			return "", false
		}
		return fmt.Sprintf("n|%d|%d", c.streetID, c.street2ID), true
	})
	bestBy(func(c *candidate) (string, bool) {
		if c.kind != candStreet {
			return "", false
		}
		return fmt.Sprintf("s|%d", c.seg.ID), true
	})
	bestBy(func(c *candidate) (string, bool) {
		if c.kind != candIntersection {
			return "", false
		}
		g.code(c)
		if !c.geoOK {
			return "", false
		}
		return "g|" + geohash.EncodeWithPrecision(c.res.Lat, c.res.Lon, 9), true
	})
}

// classify picks the GlobalStatus from the sorted result list. A tie
// within the multiple-match threshold counts only when the two
// candidates are genuinely distinct: not city/street aliases of each
// other, and not coincident in space.
func (g *Geocoder) classify() GlobalStatus {
	if len(g.results) == 0 {
		return GlobalFailure
	}
	if len(g.results) == 1 {
		return GlobalSingle
	}
	a, b := g.results[0], g.results[1]
	if a.res.Score-b.res.Score > g.cfg.MultipleMatchThreshold {
		return GlobalSingle
	}
	if g.sameStreetAliases(a, b) {
		return GlobalSingle
	}
	g.code(a)
	g.code(b)
	if a.geoOK && b.geoOK && coincident(a.res.Lat, a.res.Lon, b.res.Lat, b.res.Lon) {
		return GlobalSingle
	}
	return GlobalMultiple
}

// sameStreetAliases reports whether two candidates describe the same
// street under alias city rows.
func (g *Geocoder) sameStreetAliases(a, b *candidate) bool {
	if a.kind != candStreet || b.kind != candStreet {
		return false
	}
	if a.res.Street != b.res.Street || a.res.Predir != b.res.Predir || a.res.Suffix != b.res.Suffix {
		return false
	}
	if a.res.City == b.res.City && a.res.StateFips == b.res.StateFips {
		return true
	}
	ownerA := CityStatePostcode{City: a.res.City, StateFips: a.res.StateFips, Postcode: a.res.Postcode}
	ownerB := CityStatePostcode{City: b.res.City, StateFips: b.res.StateFips, Postcode: b.res.Postcode}
	return g.citiesAliased(ownerA, ownerB) || g.samePostcodeGroup(a.res.Postcode, b.res.Postcode)
}
