package geocoder

import (
	check "gopkg.in/check.v1"
)

type ParserSuite struct {
	p StdParser
}

var _ = check.Suite(&ParserSuite{})

func (s *ParserSuite) TestLastLineCityStateZip(c *check.C) {
	cands := s.p.ParseLastLine("Springfield, IL 62701")
	c.Assert(len(cands) >= 1, check.Equals, true)
	c.Assert(cands[0].City, check.Equals, "SPRINGFIELD")
	c.Assert(cands[0].StateAbbr, check.Equals, "IL")
	c.Assert(cands[0].Postcode, check.Equals, "62701")
	c.Assert(cands[0].PostcodeExt, check.Equals, "")
}

func (s *ParserSuite) TestLastLineZipPlusFour(c *check.C) {
	cands := s.p.ParseLastLine("SPRINGFIELD IL 62701-1234")
	c.Assert(len(cands) >= 1, check.Equals, true)
	c.Assert(cands[0].Postcode, check.Equals, "62701")
	c.Assert(cands[0].PostcodeExt, check.Equals, "1234")
}

func (s *ParserSuite) TestLastLineMultiWordCity(c *check.C) {
	cands := s.p.ParseLastLine("SAN LUIS OBISPO CA 93401")
	c.Assert(len(cands) >= 1, check.Equals, true)
	c.Assert(cands[0].City, check.Equals, "SAN LUIS OBISPO")
	c.Assert(cands[0].StateAbbr, check.Equals, "CA")
}

func (s *ParserSuite) TestLastLineAmbiguousStateToken(c *check.C) {
	// "OR" could be the state or part of the city; both readings come
	// back, the abbreviation reading first.
	cands := s.p.ParseLastLine("PORTLAND OR")
	c.Assert(len(cands), check.Equals, 2)
	c.Assert(cands[0].StateAbbr, check.Equals, "OR")
	c.Assert(cands[0].City, check.Equals, "PORTLAND")
	c.Assert(cands[1].StateAbbr, check.Equals, "")
	c.Assert(cands[1].City, check.Equals, "PORTLAND OR")
}

func (s *ParserSuite) TestLastLinePostcodeOnly(c *check.C) {
	cands := s.p.ParseLastLine("62701")
	c.Assert(len(cands), check.Equals, 1)
	c.Assert(cands[0].City, check.Equals, "")
	c.Assert(cands[0].Postcode, check.Equals, "62701")
}

func (s *ParserSuite) TestLastLineCanadianPostcode(c *check.C) {
	cands := s.p.ParseLastLine("TORONTO ON M5V 2T6")
	c.Assert(len(cands) >= 1, check.Equals, true)
	c.Assert(cands[0].Postcode, check.Equals, "M5V2T6")
	c.Assert(cands[0].StateAbbr, check.Equals, "ON")
}

func (s *ParserSuite) TestLastLineEmpty(c *check.C) {
	c.Assert(s.p.ParseLastLine(""), check.HasLen, 0)
	c.Assert(s.p.ParseLastLine("   "), check.HasLen, 0)
}

func (s *ParserSuite) TestFirstLineBasic(c *check.C) {
	cands := s.p.ParseFirstLine("150 Main St")
	c.Assert(len(cands) >= 1, check.Equals, true)
	c.Assert(cands[0].Number, check.Equals, "150")
	c.Assert(cands[0].Name, check.Equals, "MAIN")
	c.Assert(cands[0].Suffix, check.Equals, "ST")
	c.Assert(cands[0].Intersection, check.Equals, false)
}

func (s *ParserSuite) TestFirstLinePredir(c *check.C) {
	cands := s.p.ParseFirstLine("150 N MAIN ST")
	c.Assert(len(cands) >= 2, check.Equals, true)
	c.Assert(cands[0].Predir, check.Equals, "N")
	c.Assert(cands[0].Name, check.Equals, "MAIN")
	// The direction token as part of the name is a later reading.
	found := false
	for _, cand := range cands {
		if cand.Predir == "" && cand.Name == "N MAIN" {
			found = true
		}
	}
	c.Assert(found, check.Equals, true)
}

func (s *ParserSuite) TestFirstLineUnit(c *check.C) {
	cands := s.p.ParseFirstLine("150 MAIN ST APT 4")
	c.Assert(len(cands) >= 1, check.Equals, true)
	c.Assert(cands[0].UnitDesignator, check.Equals, "APT")
	c.Assert(cands[0].UnitNumber, check.Equals, "4")
	c.Assert(cands[0].Name, check.Equals, "MAIN")

	cands = s.p.ParseFirstLine("150 MAIN ST #12")
	c.Assert(len(cands) >= 1, check.Equals, true)
	c.Assert(cands[0].UnitDesignator, check.Equals, "#")
	c.Assert(cands[0].UnitNumber, check.Equals, "12")
}

func (s *ParserSuite) TestFirstLineIntersection(c *check.C) {
	for _, line := range []string{"MAIN ST & OAK AVE", "MAIN ST AND OAK AVE", "MAIN ST AT OAK AVE", "MAIN ST @ OAK AVE"} {
		cands := s.p.ParseFirstLine(line)
		c.Assert(len(cands) >= 1, check.Equals, true)
		c.Assert(cands[0].Intersection, check.Equals, true)
		c.Assert(cands[0].Name, check.Equals, "MAIN")
		c.Assert(cands[0].Suffix, check.Equals, "ST")
		c.Assert(cands[0].Name2, check.Equals, "OAK")
		c.Assert(cands[0].Suffix2, check.Equals, "AVE")
	}
}

func (s *ParserSuite) TestFirstLineEmpty(c *check.C) {
	c.Assert(s.p.ParseFirstLine(""), check.HasLen, 0)
}
