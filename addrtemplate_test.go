package geocoder

import (
	check "gopkg.in/check.v1"
)

type TemplateSuite struct{}

var _ = check.Suite(&TemplateSuite{})

func (s *TemplateSuite) TestInterpolate(c *check.C) {
	rt := NewAddressRangeTemplate("100", "200")

	frac, inRange, ok := rt.Interpolate("100")
	c.Assert(ok, check.Equals, true)
	c.Assert(inRange, check.Equals, true)
	c.Assert(frac, check.Equals, 0.0)

	frac, inRange, ok = rt.Interpolate("150")
	c.Assert(ok, check.Equals, true)
	c.Assert(inRange, check.Equals, true)
	c.Assert(frac, check.Equals, 0.5)

	frac, inRange, ok = rt.Interpolate("200")
	c.Assert(ok, check.Equals, true)
	c.Assert(inRange, check.Equals, true)
	c.Assert(frac, check.Equals, 1.0)

	// Overshoot extrapolates proportionally and clears inRange.
	frac, inRange, ok = rt.Interpolate("250")
	c.Assert(ok, check.Equals, true)
	c.Assert(inRange, check.Equals, false)
	c.Assert(frac, check.Equals, 1.5)
}

func (s *TemplateSuite) TestInterpolateDescendingRange(c *check.C) {
	rt := NewAddressRangeTemplate("200", "100")
	frac, inRange, ok := rt.Interpolate("175")
	c.Assert(ok, check.Equals, true)
	c.Assert(inRange, check.Equals, true)
	c.Assert(frac, check.Equals, 0.25)
}

func (s *TemplateSuite) TestInterpolateAlphaSuffix(c *check.C) {
	rt := NewAddressRangeTemplate("100A", "100F")
	frac, inRange, ok := rt.Interpolate("100C")
	c.Assert(ok, check.Equals, true)
	c.Assert(inRange, check.Equals, true)
	c.Assert(frac, check.Equals, 0.4)

	// The fixed numeric part must match exactly.
	_, _, ok = rt.Interpolate("101C")
	c.Assert(ok, check.Equals, false)
}

func (s *TemplateSuite) TestInterpolateTwoRangedSegmentsClamps(c *check.C) {
	// Both the number and the letter vary; the letter's weighted share
	// must not push an in-range candidate past 1.0.
	rt := NewAddressRangeTemplate("100A", "200F")

	frac, inRange, ok := rt.Interpolate("200F")
	c.Assert(ok, check.Equals, true)
	c.Assert(inRange, check.Equals, true)
	c.Assert(frac, check.Equals, 1.0)

	frac, inRange, ok = rt.Interpolate("100A")
	c.Assert(ok, check.Equals, true)
	c.Assert(inRange, check.Equals, true)
	c.Assert(frac, check.Equals, 0.0)

	// Out-of-range candidates still extrapolate unclamped.
	frac, inRange, ok = rt.Interpolate("250A")
	c.Assert(ok, check.Equals, true)
	c.Assert(inRange, check.Equals, false)
	c.Assert(frac, check.Equals, 1.5)
}

func (s *TemplateSuite) TestScoreInRange(c *check.C) {
	rt := NewAddressRangeTemplate("100", "200")
	score, evenOdd := rt.Score("150")
	c.Assert(score, check.Equals, 1.0)
	c.Assert(evenOdd, check.Equals, true)
}

func (s *TemplateSuite) TestScoreEvenOddMismatch(c *check.C) {
	rt := NewAddressRangeTemplate("101", "199")
	score, evenOdd := rt.Score("150")
	c.Assert(evenOdd, check.Equals, false)
	c.Assert(score, check.Equals, 1.0-evenOddPenalty)

	score, evenOdd = rt.Score("151")
	c.Assert(evenOdd, check.Equals, true)
	c.Assert(score, check.Equals, 1.0)
}

func (s *TemplateSuite) TestScoreNearMiss(c *check.C) {
	rt := NewAddressRangeTemplate("100", "200")
	score, _ := rt.Score("210")
	c.Assert(score < 1.0, check.Equals, true)
	c.Assert(score > 0.8, check.Equals, true)

	far, _ := rt.Score("900")
	c.Assert(far < score, check.Equals, true)
}

func (s *TemplateSuite) TestScoreMissingTrailingSegment(c *check.C) {
	rt := NewAddressRangeTemplate("100A", "200F")
	score, _ := rt.Score("150")
	c.Assert(score > 0, check.Equals, true)
	c.Assert(score < 1.0, check.Equals, true)
}

func (s *TemplateSuite) TestScoreHyphenCollapse(c *check.C) {
	rt := NewAddressRangeTemplate("123A", "123F")
	plain, _ := rt.Score("123C")
	hyph, _ := rt.Score("123-C")
	c.Assert(plain, check.Equals, 1.0)
	c.Assert(hyph, check.Equals, 0.97)
}

func (s *TemplateSuite) TestRangeSizePrefersNarrower(c *check.C) {
	wide := NewAddressRangeTemplate("100", "900")
	narrow := NewAddressRangeTemplate("100", "200")
	c.Assert(narrow.RangeSize() < wide.RangeSize(), check.Equals, true)
}

func (s *TemplateSuite) TestTemplateDecomposition(c *check.C) {
	t := NewAddressTemplate("123A-7")
	c.Assert(len(t.segs), check.Equals, 4)
	c.Assert(t.String(), check.Equals, "123A-7")

	c.Assert(NewAddressTemplate("").Empty(), check.Equals, true)
	c.Assert(NewAddressTemplate(" 45 ").String(), check.Equals, "45")
}
