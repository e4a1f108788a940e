package geocoder

import (
	"regexp"
	"strings"
	"sync"
)

// The engine consumes structured parse candidates; how a raw address
// line becomes candidates is pluggable. StdParser below is the default
// tokenizer, producing every plausible permutation of an ambiguous
// line and letting the scoring engine pick.

// FirstLineCandidate is one structured reading of a street-address
// line.
type FirstLineCandidate struct {
	Number  string
	Predir  string
	Prefix  string
	Name    string
	Suffix  string
	Postdir string

	UnitDesignator string
	UnitNumber     string

	// Intersection readings carry a second street.
	Intersection bool
	Predir2      string
	Name2        string
	Suffix2      string
	Postdir2     string
}

// LastLineCandidate is one structured reading of a city/state/postcode
// line.
type LastLineCandidate struct {
	City        string
	StateAbbr   string
	Postcode    string
	PostcodeExt string
}

// Parser turns raw address lines into candidate permutations.
type Parser interface {
	ParseFirstLine(line string) []FirstLineCandidate
	ParseLastLine(line string) []LastLineCandidate
}

// StdParser is the built-in tokenizer. It is deliberately permissive:
// ambiguous tokens ("N" as a direction or part of the name) yield
// multiple candidates rather than one guess.
type StdParser struct{}

var suffixAliases = map[string]string{
	"ST": "ST", "STREET": "ST", "STR": "ST",
	"AVE": "AVE", "AV": "AVE", "AVENUE": "AVE",
	"BLVD": "BLVD", "BOULEVARD": "BLVD",
	"RD": "RD", "ROAD": "RD",
	"DR": "DR", "DRIVE": "DR",
	"LN": "LN", "LANE": "LN",
	"CT": "CT", "COURT": "CT",
	"PL": "PL", "PLACE": "PL",
	"CIR": "CIR", "CIRCLE": "CIR",
	"WAY": "WAY",
	"TER": "TER", "TERRACE": "TER",
	"TRL": "TRL", "TRAIL": "TRL",
	"PKWY": "PKWY", "PARKWAY": "PKWY",
	"HWY": "HWY", "HIGHWAY": "HWY",
	"SQ": "SQ", "SQUARE": "SQ",
	"RTE": "RTE", "ROUTE": "RTE",
}

var directionAliases = map[string]string{
	"N": "N", "NORTH": "N",
	"S": "S", "SOUTH": "S",
	"E": "E", "EAST": "E",
	"W": "W", "WEST": "W",
	"NE": "NE", "NORTHEAST": "NE",
	"NW": "NW", "NORTHWEST": "NW",
	"SE": "SE", "SOUTHEAST": "SE",
	"SW": "SW", "SOUTHWEST": "SW",
}

var unitDesignators = map[string]bool{
	"APT": true, "UNIT": true, "STE": true, "SUITE": true,
	"RM": true, "ROOM": true, "FL": true, "FLOOR": true, "#": true,
}

// intersectionSplit matches the separators between two streets of an
// intersection line.
var intersectionSplit = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`\s+(?:&|AND|AT)\s+|\s*\@\s*`)
})

// zipRegex matches a trailing US ZIP or ZIP+4.
var zipRegex = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^(\d{5})(?:[- ](\d{4}))?$`)
})

// caPostcodeRegex matches a Canadian postcode with optional space.
var caPostcodeRegex = sync.OnceValue(func() *regexp.Regexp {
	return regexp.MustCompile(`^([A-Z]\d[A-Z])\s?(\d[A-Z]\d)?$`)
})

func normalizeLine(line string) []string {
	line = strings.ToUpper(strings.TrimSpace(line))
	line = strings.ReplaceAll(line, ",", " ")
	line = strings.ReplaceAll(line, ".", "")
	return strings.Fields(line)
}

// ParseLastLine splits "CITY, ST 62701" readings. Multi-word cities and
// a state token that could belong to the city name both produce extra
// candidates.
func (StdParser) ParseLastLine(line string) []LastLineCandidate {
	toks := normalizeLine(line)
	if len(toks) == 0 {
		return nil
	}

	var postcode, ext string
	// Peel a trailing postcode; ZIP+4 may arrive as one or two tokens.
	if m := zipRegex().FindStringSubmatch(toks[len(toks)-1]); m != nil {
		postcode, ext = m[1], m[2]
		toks = toks[:len(toks)-1]
	} else if len(toks) >= 2 {
		if m := caPostcodeRegex().FindStringSubmatch(toks[len(toks)-2] + " " + toks[len(toks)-1]); m != nil && m[2] != "" {
			postcode = m[1] + m[2]
			toks = toks[:len(toks)-2]
		}
	}
	if postcode == "" && len(toks) > 0 {
		if m := caPostcodeRegex().FindStringSubmatch(toks[len(toks)-1]); m != nil {
			postcode = m[1] + m[2]
			toks = toks[:len(toks)-1]
		}
	}

	var out []LastLineCandidate
	if len(toks) == 0 {
		if postcode != "" {
			out = append(out, LastLineCandidate{Postcode: postcode, PostcodeExt: ext})
		}
		return out
	}

	last := toks[len(toks)-1]
	if len(last) == 2 && isAlphaToken(last) {
		// "SPRINGFIELD IL": state abbreviation reading first, then the
		// reading where the token is part of the city name.
		out = append(out, LastLineCandidate{
			City:      strings.Join(toks[:len(toks)-1], " "),
			StateAbbr: last,
			Postcode:  postcode, PostcodeExt: ext,
		})
	}
	out = append(out, LastLineCandidate{
		City:     strings.Join(toks, " "),
		Postcode: postcode, PostcodeExt: ext,
	})
	return out
}

// ParseFirstLine produces every plausible reading of a street-address
// line, including intersection readings when an intersection separator
// is present.
func (p StdParser) ParseFirstLine(line string) []FirstLineCandidate {
	line = strings.ToUpper(strings.TrimSpace(line))
	if line == "" {
		return nil
	}
	if parts := intersectionSplit().Split(line, 2); len(parts) == 2 {
		return p.parseIntersection(parts[0], parts[1])
	}
	return p.parseStreetAddress(line)
}

func (p StdParser) parseIntersection(a, b string) []FirstLineCandidate {
	as := parseStreetOnly(a)
	bs := parseStreetOnly(b)
	var out []FirstLineCandidate
	for _, s1 := range as {
		for _, s2 := range bs {
			out = append(out, FirstLineCandidate{
				Intersection: true,
				Predir:       s1.Predir,
				Name:         s1.Name,
				Suffix:       s1.Suffix,
				Postdir:      s1.Postdir,
				Predir2:      s2.Predir,
				Name2:        s2.Name,
				Suffix2:      s2.Suffix,
				Postdir2:     s2.Postdir,
			})
		}
	}
	return out
}

// streetPart is one reading of a bare street name phrase.
type streetPart struct {
	Predir  string
	Name    string
	Suffix  string
	Postdir string
}

// parseStreetOnly reads a street phrase with no house number.
func parseStreetOnly(s string) []streetPart {
	toks := normalizeLine(s)
	if len(toks) == 0 {
		return nil
	}
	var out []streetPart
	for _, r := range streetReadings(toks) {
		out = append(out, r)
	}
	return out
}

// streetReadings enumerates predir/name/suffix/postdir splits of a
// token run. The first returned reading is the most conventional one.
func streetReadings(toks []string) []streetPart {
	var out []streetPart
	emit := func(r streetPart) {
		if r.Name == "" {
			return
		}
		for _, prev := range out {
			if prev == r {
				return
			}
		}
		out = append(out, r)
	}

	build := func(toks []string, predir string) {
		if len(toks) == 0 {
			return
		}
		// Trailing postdir.
		postdir := ""
		if len(toks) >= 2 {
			if d, ok := directionAliases[toks[len(toks)-1]]; ok {
				postdir = d
				toks = toks[:len(toks)-1]
			}
		}
		// Trailing suffix.
		if len(toks) >= 2 {
			if sfx, ok := suffixAliases[toks[len(toks)-1]]; ok {
				emit(streetPart{Predir: predir, Name: strings.Join(toks[:len(toks)-1], " "), Suffix: sfx, Postdir: postdir})
			}
		}
		emit(streetPart{Predir: predir, Name: strings.Join(toks, " "), Postdir: postdir})
	}

	if d, ok := directionAliases[toks[0]]; ok && len(toks) > 1 {
		build(toks[1:], d) // "N MAIN ST": N as predirectional
	}
	build(toks, "") // the direction token as part of the name
	return out
}

func (p StdParser) parseStreetAddress(line string) []FirstLineCandidate {
	toks := normalizeLine(line)
	if len(toks) == 0 {
		return nil
	}

	number := ""
	if hasDigit(toks[0]) && len(toks) > 1 {
		number = toks[0]
		toks = toks[1:]
	}

	// Peel a trailing unit: "APT 4", "# 12", "SUITE 300".
	unitDes, unitNum := "", ""
	if len(toks) >= 3 && unitDesignators[toks[len(toks)-2]] {
		unitDes, unitNum = toks[len(toks)-2], toks[len(toks)-1]
		toks = toks[:len(toks)-2]
	} else if len(toks) >= 2 && strings.HasPrefix(toks[len(toks)-1], "#") && len(toks[len(toks)-1]) > 1 {
		unitDes, unitNum = "#", toks[len(toks)-1][1:]
		toks = toks[:len(toks)-1]
	}

	var out []FirstLineCandidate
	for _, r := range streetReadings(toks) {
		out = append(out, FirstLineCandidate{
			Number:         number,
			Predir:         r.Predir,
			Name:           r.Name,
			Suffix:         r.Suffix,
			Postdir:        r.Postdir,
			UnitDesignator: unitDes,
			UnitNumber:     unitNum,
		})
	}
	return out
}

func hasDigit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			return true
		}
	}
	return false
}

func isAlphaToken(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return len(s) > 0
}
