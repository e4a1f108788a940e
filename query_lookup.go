package geocoder

import (
	"fmt"
	"sort"
)

// Binary-search range iterators. Each Lookup method finds the first
// record whose sort key equals the query key and returns an iterator
// that yields records, in storage order, while equality holds. The
// iterators are finite and not restartable; call the Lookup again to
// rescan.

// Iter yields successive records of one lookup.
type Iter[T any] struct {
	next  int
	count int
	fetch func(id int) (T, bool)
	match func(T) bool
}

// Next returns the next matching record, or false when the run of
// equal-keyed records (or the file) is exhausted.
func (it *Iter[T]) Next() (T, bool) {
	var zero T
	if it == nil || it.next >= it.count {
		return zero, false
	}
	v, ok := it.fetch(it.next)
	if !ok || !it.match(v) {
		it.next = it.count
		return zero, false
	}
	it.next++
	return v, true
}

// Collect drains the iterator into a slice.
func (it *Iter[T]) Collect() []T {
	var out []T
	for {
		v, ok := it.Next()
		if !ok {
			return out
		}
		out = append(out, v)
	}
}

// lowerBound finds the first index in [0,count) whose key is >= key.
// Keys are composite strings; a decode failure poisons the search and
// yields an empty range.
func lowerBound(count int, key string, keyAt func(id int) (string, bool)) (int, bool) {
	failed := false
	i := sort.Search(count, func(i int) bool {
		k, ok := keyAt(i)
		if !ok {
			failed = true
			return true
		}
		return k >= key
	})
	if failed {
		return 0, false
	}
	return i, true
}

// Composite sort keys. The builder sorts each index file with the same
// key functions, which is the precondition for every search below.

func stateSoundexKey(state int, sx string) string {
	return fmt.Sprintf("%03d|%s", state, sx)
}

func faSoundexKey(fa, sx string) string {
	return fmt.Sprintf("%-6s|%s", fa, sx)
}

func intersectionKey(state int, sx1, sx2 string) string {
	return fmt.Sprintf("%03d|%s|%s", state, sx1, sx2)
}

// CityStatePostcodesByPostcode iterates the rows with the given
// postcode. The csp file's primary sort is by postcode.
func (q *Query) CityStatePostcodesByPostcode(postcode string) *Iter[CityStatePostcode] {
	keyAt := func(id int) (string, bool) {
		r, ok := q.CityStatePostcodeByIDCached(id)
		return r.Postcode, ok
	}
	start, ok := lowerBound(q.csp.count, postcode, keyAt)
	if !ok {
		return nil
	}
	return &Iter[CityStatePostcode]{
		next:  start,
		count: q.csp.count,
		fetch: q.CityStatePostcodeByIDCached,
		match: func(r CityStatePostcode) bool { return r.Postcode == postcode },
	}
}

// CityStatePostcodesBySoundex iterates the CSP rows whose city soundex
// matches in the given state, resolving through the secondary index.
func (q *Query) CityStatePostcodesBySoundex(stateFips int, soundex string) *Iter[CSPSoundex] {
	key := stateSoundexKey(stateFips, soundex)
	keyAt := func(id int) (string, bool) {
		r, ok := q.cspSoundexByID(id)
		return stateSoundexKey(r.StateFips, r.Soundex), ok
	}
	start, ok := lowerBound(q.cspSdx.count, key, keyAt)
	if !ok {
		return nil
	}
	return &Iter[CSPSoundex]{
		next:  start,
		count: q.cspSdx.count,
		fetch: q.cspSoundexByID,
		match: func(r CSPSoundex) bool { return stateSoundexKey(r.StateFips, r.Soundex) == key },
	}
}

// CityStatePostcodesByFinanceArea iterates the finance-area index rows
// for one finance area.
func (q *Query) CityStatePostcodesByFinanceArea(fa string) *Iter[CSPFinanceArea] {
	keyAt := func(id int) (string, bool) {
		r, ok := q.cspFaByID(id)
		return r.FinanceArea, ok
	}
	start, ok := lowerBound(q.cspFa.count, fa, keyAt)
	if !ok {
		return nil
	}
	return &Iter[CSPFinanceArea]{
		next:  start,
		count: q.cspFa.count,
		fetch: q.cspFaByID,
		match: func(r CSPFinanceArea) bool { return r.FinanceArea == fa },
	}
}

// PostcodeAliasesByPostcode iterates alias rows for one postcode.
func (q *Query) PostcodeAliasesByPostcode(postcode string) *Iter[PostcodeAlias] {
	keyAt := func(id int) (string, bool) {
		r, ok := q.postcodeAliasByID(id)
		return r.Postcode, ok
	}
	start, ok := lowerBound(q.pcAlias.count, postcode, keyAt)
	if !ok {
		return nil
	}
	return &Iter[PostcodeAlias]{
		next:  start,
		count: q.pcAlias.count,
		fetch: q.postcodeAliasByID,
		match: func(r PostcodeAlias) bool { return r.Postcode == postcode },
	}
}

// PostcodeAliasesByGroup iterates the group-sorted alias file for one
// group, yielding every postcode in the group.
func (q *Query) PostcodeAliasesByGroup(group string) *Iter[PostcodeAlias] {
	keyAt := func(id int) (string, bool) {
		r, ok := q.postcodeGroupByID(id)
		return r.Group, ok
	}
	start, ok := lowerBound(q.pcGroup.count, group, keyAt)
	if !ok {
		return nil
	}
	return &Iter[PostcodeAlias]{
		next:  start,
		count: q.pcGroup.count,
		fetch: q.postcodeGroupByID,
		match: func(r PostcodeAlias) bool { return r.Group == group },
	}
}

// PostcodeCentroidByPostcode finds the centroid row for a postcode.
func (q *Query) PostcodeCentroidByPostcode(postcode string) (PostcodeCentroid, bool) {
	keyAt := func(id int) (string, bool) {
		r, ok := q.centroidByID(id)
		return r.Postcode, ok
	}
	start, ok := lowerBound(q.centroid.count, postcode, keyAt)
	if !ok || start >= q.centroid.count {
		return PostcodeCentroid{}, false
	}
	r, ok := q.centroidByID(start)
	if !ok || r.Postcode != postcode {
		return PostcodeCentroid{}, false
	}
	return r, true
}

// StreetNamesBySoundex iterates the street-name soundex rows for one
// (finance area, soundex) key.
func (q *Query) StreetNamesBySoundex(fa, soundex string) *Iter[StreetNameSoundex] {
	key := faSoundexKey(fa, soundex)
	keyAt := func(id int) (string, bool) {
		r, ok := q.StreetNameSoundexByID(id)
		return faSoundexKey(r.FinanceArea, r.Soundex), ok
	}
	start, ok := lowerBound(q.sns.count, key, keyAt)
	if !ok {
		return nil
	}
	return &Iter[StreetNameSoundex]{
		next:  start,
		count: q.sns.count,
		fetch: q.StreetNameSoundexByID,
		match: func(r StreetNameSoundex) bool { return faSoundexKey(r.FinanceArea, r.Soundex) == key },
	}
}

// IntersectionsBySoundex iterates intersection index rows for one
// (state, soundex pair) key. Callers search both street orders.
func (q *Query) IntersectionsBySoundex(stateFips int, sx1, sx2 string) *Iter[IntersectionSoundex] {
	key := intersectionKey(stateFips, sx1, sx2)
	keyAt := func(id int) (string, bool) {
		r, ok := q.IntersectionSoundexByIDCached(id)
		return intersectionKey(r.StateFips, r.Soundex1, r.Soundex2), ok
	}
	start, ok := lowerBound(q.crossings.rdr.Count(), key, keyAt)
	if !ok {
		return nil
	}
	return &Iter[IntersectionSoundex]{
		next:  start,
		count: q.crossings.rdr.Count(),
		fetch: q.IntersectionSoundexByIDCached,
		match: func(r IntersectionSoundex) bool {
			return intersectionKey(r.StateFips, r.Soundex1, r.Soundex2) == key
		},
	}
}

// StreetIntersection is a fully resolved intersection: both streets,
// their owning rows, and the two concrete segments.
type StreetIntersection struct {
	Street1  StreetName
	Street2  StreetName
	CSP1     CityStatePostcode
	CSP2     CityStatePostcode
	Segment1 StreetSegment
	Segment2 StreetSegment
}

// ResolveIntersection joins an index row out to both streets' records.
// It fails if any leg fails.
func (q *Query) ResolveIntersection(x IntersectionSoundex) (StreetIntersection, bool) {
	var si StreetIntersection
	var ok bool
	if si.Street1, ok = q.StreetNameByIDCached(x.Street1); !ok {
		return si, false
	}
	if si.Street2, ok = q.StreetNameByIDCached(x.Street2); !ok {
		return si, false
	}
	if si.CSP1, ok = q.CityStatePostcodeByIDCached(si.Street1.CSPID); !ok {
		return si, false
	}
	if si.CSP2, ok = q.CityStatePostcodeByIDCached(si.Street2.CSPID); !ok {
		return si, false
	}
	if si.Segment1, ok = q.StreetSegmentByIDCached(si.Street1.FirstSegment + x.SegOffset1); !ok {
		return si, false
	}
	if si.Segment2, ok = q.StreetSegmentByIDCached(si.Street2.FirstSegment + x.SegOffset2); !ok {
		return si, false
	}
	return si, true
}

// StreetNamesForCSP iterates a CityStatePostcode's owned street names
// in ID order.
func (q *Query) StreetNamesForCSP(csp CityStatePostcode) *Iter[StreetName] {
	end := csp.FirstStreetName + csp.StreetNameCount
	return &Iter[StreetName]{
		next:  csp.FirstStreetName,
		count: end,
		fetch: q.StreetNameByIDCached,
		match: func(StreetName) bool { return true },
	}
}
