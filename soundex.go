package geocoder

import "strings"

// Soundex variants used to index city and street names. The codes are
// always exactly four characters so they pack into fixed-width index
// records.

var soundexCodes = [26]byte{
	// A  B    C    D    E  F    G    H  I  J    K    L    M
	0, '1', '2', '3', 0, '1', '2', 0, 0, '2', '2', '4', '5',
	// N   O  P    Q    R    S    T    U  V    W  X    Y  Z
	'5', 0, '1', '2', '6', '2', '3', 0, '1', 0, '2', 0, '2',
}

// Soundex returns the classic four-character phonetic code for a name:
// first letter, then up to three digit classes, zero padded. Names with
// no leading letter code as "Z000".
func Soundex(name string) string {
	name = strings.ToUpper(name)
	var out [4]byte
	n := 0
	var lastCode byte
	for i := 0; i < len(name) && n < 4; i++ {
		c := name[i]
		if c < 'A' || c > 'Z' {
			lastCode = 0
			continue
		}
		code := soundexCodes[c-'A']
		if n == 0 {
			out[0] = c
			n = 1
			lastCode = code
			continue
		}
		// H and W do not break a run of same-coded letters.
		if c == 'H' || c == 'W' {
			continue
		}
		if code == 0 {
			lastCode = 0
			continue
		}
		if code == lastCode {
			continue
		}
		out[n] = code
		n++
		lastCode = code
	}
	if n == 0 {
		return "Z000"
	}
	for ; n < 4; n++ {
		out[n] = '0'
	}
	return string(out[:])
}

// StreetSoundex is the digit-aware variant used for street names:
// numbered streets ("42ND", "5TH") hash by their digits rather than by
// the phonetics of the ordinal spelling, so "5TH" and "FIFTH AVE" data
// entered numerically collide the way the index expects.
func StreetSoundex(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Z000"
	}
	if name[0] >= '0' && name[0] <= '9' {
		digits := make([]byte, 0, 3)
		for i := 0; i < len(name) && len(digits) < 3; i++ {
			if name[i] >= '0' && name[i] <= '9' {
				digits = append(digits, name[i])
			} else {
				break
			}
		}
		out := [4]byte{'0', '0', '0', '0'}
		copy(out[4-len(digits):], digits)
		return string(out[:])
	}
	return Soundex(name)
}
