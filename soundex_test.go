package geocoder

import (
	check "gopkg.in/check.v1"
)

type SoundexSuite struct{}

var _ = check.Suite(&SoundexSuite{})

func (s *SoundexSuite) TestSoundex(c *check.C) {
	cases := []struct{ in, want string }{
		{"ROBERT", "R163"},
		{"RUPERT", "R163"},
		{"ASHCRAFT", "A261"},
		{"TYMCZAK", "T522"},
		{"PFISTER", "P236"},
		{"SPRINGFIELD", "S165"},
		{"MAIN", "M500"},
		{"OAK", "O200"},
		{"LEE", "L000"},
		{"lowercase", "L622"},
		{"", "Z000"},
		{"123", "Z000"},
	}
	for _, tc := range cases {
		c.Check(Soundex(tc.in), check.Equals, tc.want, check.Commentf("Soundex(%q)", tc.in))
	}
}

func (s *SoundexSuite) TestStreetSoundexNumbered(c *check.C) {
	cases := []struct{ in, want string }{
		{"42ND", "0042"},
		{"5TH", "0005"},
		{"123RD", "0123"},
		{"MAIN", "M500"},
		{"", "Z000"},
	}
	for _, tc := range cases {
		c.Check(StreetSoundex(tc.in), check.Equals, tc.want, check.Commentf("StreetSoundex(%q)", tc.in))
	}
}
