package geocoder

import (
	"os"
	"path/filepath"

	check "gopkg.in/check.v1"
)

func writeFile(c *check.C, dir, name, contents string) {
	c.Assert(os.WriteFile(filepath.Join(dir, name), []byte(contents), 0644), check.IsNil)
}

func (s *GeocoderSuite) openQuery(c *check.C, opts ...Option) *Query {
	q, err := OpenQuery(s.dir, opts...)
	c.Assert(err, check.IsNil)
	c.Assert(q, check.Not(check.IsNil))
	return q
}

func (s *GeocoderSuite) TestBuildOpenRoundTrip(c *check.C) {
	q := s.openQuery(c)
	defer q.Close()

	db := testDatabase()
	c.Assert(q.CityStatePostcodeCount(), check.Equals, len(db.CSPs))
	c.Assert(q.StreetNameCount(), check.Equals, len(db.StreetNames))
	c.Assert(q.StreetSegmentCount(), check.Equals, len(db.Segments))
	c.Assert(q.CoordinateCount(), check.Equals, len(db.Coords))

	for i, want := range db.CSPs {
		got, ok := q.CityStatePostcodeByID(i)
		c.Assert(ok, check.Equals, true)
		c.Assert(got, check.DeepEquals, want)
	}
	for i, want := range db.StreetNames {
		got, ok := q.StreetNameByID(i)
		c.Assert(ok, check.Equals, true)
		c.Assert(got, check.DeepEquals, want)
	}
	for i, want := range db.Segments {
		got, ok := q.StreetSegmentByID(i)
		c.Assert(ok, check.Equals, true)
		c.Assert(got, check.DeepEquals, want)
	}
	for i, want := range db.Coords {
		got, ok := q.CoordinateByID(i)
		c.Assert(ok, check.Equals, true)
		c.Assert(got, check.DeepEquals, want)
	}

	_, ok := q.StreetNameByID(len(db.StreetNames))
	c.Assert(ok, check.Equals, false)
	_, ok = q.CityStatePostcodeByID(-1)
	c.Assert(ok, check.Equals, false)
}

func (s *GeocoderSuite) TestPostcodeLookupMatchesLinearScan(c *check.C) {
	q := s.openQuery(c)
	defer q.Close()

	scan := func(pc string) []CityStatePostcode {
		var out []CityStatePostcode
		for i := 0; i < q.CityStatePostcodeCount(); i++ {
			r, ok := q.CityStatePostcodeByID(i)
			c.Assert(ok, check.Equals, true)
			if r.Postcode == pc {
				out = append(out, r)
			}
		}
		return out
	}

	for _, pc := range []string{"45501", "62701", "62702", "00000", "99999"} {
		got := q.CityStatePostcodesByPostcode(pc).Collect()
		want := scan(pc)
		c.Assert(len(got), check.Equals, len(want))
		for i := range want {
			c.Assert(got[i], check.DeepEquals, want[i])
		}
	}
}

func (s *GeocoderSuite) TestCentroidLookup(c *check.C) {
	q := s.openQuery(c)
	defer q.Close()

	for _, tc := range []struct {
		pc  string
		lat float64
	}{
		{"62701", 39.799},
		{"6270156", 39.795},
		{"627011234", 39.791},
	} {
		cent, ok := q.PostcodeCentroidByPostcode(tc.pc)
		c.Assert(ok, check.Equals, true)
		c.Assert(cent.Postcode, check.Equals, tc.pc)
		c.Assert(cent.Lat, check.Equals, tc.lat)
	}
	_, ok := q.PostcodeCentroidByPostcode("99999")
	c.Assert(ok, check.Equals, false)
}

func (s *GeocoderSuite) TestSoundexLookups(c *check.C) {
	q := s.openQuery(c)
	defer q.Close()

	// SPRINGFIELD appears in both states; the other IL row is GRANDVIEW.
	il := q.CityStatePostcodesBySoundex(17, Soundex("SPRINGFIELD")).Collect()
	c.Assert(len(il), check.Equals, 1)
	c.Assert(il[0].StateFips, check.Equals, 17)
	ilCSP, ok := q.CityStatePostcodeByID(il[0].CSPID)
	c.Assert(ok, check.Equals, true)
	c.Assert(ilCSP.City, check.Equals, "SPRINGFIELD")
	gv := q.CityStatePostcodesBySoundex(17, Soundex("GRANDVIEW")).Collect()
	c.Assert(len(gv), check.Equals, 1)
	gvCSP, ok := q.CityStatePostcodeByID(gv[0].CSPID)
	c.Assert(ok, check.Equals, true)
	c.Assert(gvCSP.Postcode, check.Equals, "62702")
	oh := q.CityStatePostcodesBySoundex(39, Soundex("SPRINGFIELD")).Collect()
	c.Assert(len(oh), check.Equals, 1)
	c.Assert(q.CityStatePostcodesBySoundex(17, Soundex("PEORIA")).Collect(), check.HasLen, 0)

	// Street soundex: two MAINs in the SPR finance area, in ID order.
	rows := q.StreetNamesBySoundex("SPR", StreetSoundex("MAIN")).Collect()
	c.Assert(len(rows), check.Equals, 2)
	c.Assert(rows[0].StreetID < rows[1].StreetID, check.Equals, true)
	for _, row := range rows {
		sn, ok := q.StreetNameByID(row.StreetID)
		c.Assert(ok, check.Equals, true)
		c.Assert(sn.Name, check.Equals, "MAIN")
	}
	c.Assert(q.StreetNamesBySoundex("OHS", StreetSoundex("MAIN")).Collect(), check.HasLen, 1)
	c.Assert(q.StreetNamesBySoundex("SPR", StreetSoundex("WALNUT")).Collect(), check.HasLen, 0)
}

func (s *GeocoderSuite) TestIntersectionIndex(c *check.C) {
	q := s.openQuery(c)
	defer q.Close()

	rows := q.IntersectionsBySoundex(17, StreetSoundex("MAIN"), StreetSoundex("OAK")).Collect()
	c.Assert(len(rows), check.Equals, 1)
	si, ok := q.ResolveIntersection(rows[0])
	c.Assert(ok, check.Equals, true)
	c.Assert(si.Street1.Name, check.Equals, "MAIN")
	c.Assert(si.Street2.Name, check.Equals, "OAK")
	c.Assert(si.CSP1.Postcode, check.Equals, "62701")

	// The reverse order is stored as its own row.
	rev := q.IntersectionsBySoundex(17, StreetSoundex("OAK"), StreetSoundex("MAIN")).Collect()
	c.Assert(len(rev), check.Equals, 1)
	c.Assert(rev[0].Street1, check.Equals, rows[0].Street2)

	c.Assert(q.IntersectionsBySoundex(17, StreetSoundex("MAIN"), StreetSoundex("ELM")).Collect(), check.HasLen, 0)
}

func (s *GeocoderSuite) TestCachedAccessorsTransparent(c *check.C) {
	q := s.openQuery(c, WithMemUse(MemUseSmall))
	defer q.Close()

	n := q.StreetSegmentCount()
	for i := 0; i < 200; i++ {
		id := (i * 7) % (n + 2) // includes out-of-range ids
		want, wantOK := q.StreetSegmentByID(id)
		got, gotOK := q.StreetSegmentByIDCached(id)
		c.Assert(gotOK, check.Equals, wantOK)
		if wantOK {
			c.Assert(got, check.DeepEquals, want)
		}
	}
	for i := 0; i < 200; i++ {
		id := (i * 13) % (q.CityStatePostcodeCount() + 2)
		want, wantOK := q.CityStatePostcodeByID(id)
		got, gotOK := q.CityStatePostcodeByIDCached(id)
		c.Assert(gotOK, check.Equals, wantOK)
		if wantOK {
			c.Assert(got, check.DeepEquals, want)
		}
	}
}

func (s *GeocoderSuite) TestCoordinatesForSegment(c *check.C) {
	q := s.openQuery(c)
	defer q.Close()

	seg, ok := q.StreetSegmentByID(1)
	c.Assert(ok, check.Equals, true)
	pts, ok := q.CoordinatesForSegment(seg)
	c.Assert(ok, check.Equals, true)
	c.Assert(pts, check.DeepEquals, []Coordinate{{39.78, -89.65}, {39.80, -89.65}})
}

func (s *GeocoderSuite) TestStateTable(c *check.C) {
	q := s.openQuery(c)
	defer q.Close()

	fips, ok := q.StateFromAbbr(CountryUS, "IL")
	c.Assert(ok, check.Equals, true)
	c.Assert(fips, check.Equals, 17)
	abbr, ok := q.StateAbbr(CountryUS, 39)
	c.Assert(ok, check.Equals, true)
	c.Assert(abbr, check.Equals, "OH")
	_, ok = q.StateFromAbbr(CountryUS, "ZZ")
	c.Assert(ok, check.Equals, false)
}

func (s *GeocoderSuite) TestOpenRejectsBadVersion(c *check.C) {
	dir := c.MkDir()
	db := testDatabase()
	c.Assert(db.Build(dir), check.IsNil)
	writeFile(c, dir, fileVersion, "gcdb0\n")

	var msgs []string
	_, err := OpenQuery(dir, WithErrorSink(func(m string) { msgs = append(msgs, m) }))
	c.Assert(err, check.Not(check.IsNil))
	c.Assert(len(msgs) > 0, check.Equals, true)
}

func (s *GeocoderSuite) TestOpenRejectsTruncatedFixedFile(c *check.C) {
	dir := c.MkDir()
	c.Assert(testDatabase().Build(dir), check.IsNil)
	writeFile(c, dir, fileCSP, "short")

	_, err := OpenQuery(dir)
	c.Assert(err, check.Not(check.IsNil))
}
