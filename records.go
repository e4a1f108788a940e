package geocoder

import (
	"encoding/binary"
	"math"

	"github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000/internal/dataio"
)

// Reference database entities. All entities are immutable once built;
// IDs are dense, zero-based, and equal to the record's position in its
// file.

// CountryCode identifies the country a record belongs to.
type CountryCode uint8

const (
	CountryUS CountryCode = 0
	CountryCA CountryCode = 1
)

// CityStatePostcode is one city/state/postcode row. It owns the
// contiguous StreetName ID range [FirstStreetName,
// FirstStreetName+StreetNameCount).
type CityStatePostcode struct {
	ID              int
	Country         CountryCode
	StateFips       int
	Postcode        string
	City            string
	FinanceArea     string
	FirstStreetName int
	StreetNameCount int
}

// CSPSoundex is the secondary index row mapping (state, city soundex)
// to a CityStatePostcode.
type CSPSoundex struct {
	StateFips int
	Soundex   string
	CSPID     int
}

// CSPFinanceArea is the secondary index row mapping a finance area to a
// CityStatePostcode.
type CSPFinanceArea struct {
	FinanceArea string
	CSPID       int
}

// PostcodeAlias groups equivalent ("vanity") postcodes. The same rows
// are stored twice, sorted by postcode and sorted by group.
type PostcodeAlias struct {
	Postcode string
	Group    string
}

// PostcodeCentroid is the fallback geocode for a postcode.
type PostcodeCentroid struct {
	Postcode string
	Lat      float64
	Lon      float64
}

// StreetName is one named street within a CityStatePostcode. It owns
// the contiguous StreetSegment ID range [FirstSegment,
// FirstSegment+SegmentCount).
type StreetName struct {
	ID           int
	CSPID        int
	Prefix       string
	Predir       string
	Name         string
	Suffix       string
	Postdir      string
	FirstSegment int
	SegmentCount int
}

// StreetNameSoundex is the bit-packed secondary index row mapping
// (finance area, street soundex) to a StreetName.
type StreetNameSoundex struct {
	FinanceArea string
	Soundex     string
	StreetID    int
}

// StreetSegment is one address-range segment of a street, owning the
// ordered polyline [FirstCoord, FirstCoord+CoordCount).
type StreetSegment struct {
	ID          int
	AddrLow     string
	AddrHigh    string
	RightSide   bool
	CountyFips  int
	CensusTract string
	CensusBlock string
	PostcodeExt string
	FirstCoord  int
	CoordCount  int
}

// Coordinate is one polyline vertex.
type Coordinate struct {
	Lat float64
	Lon float64
}

// IntersectionSoundex is the secondary index row for a street
// intersection: two street soundexes and the two streets' identities,
// with each segment given as an offset within its street's range.
type IntersectionSoundex struct {
	StateFips  int
	Soundex1   string
	Soundex2   string
	Street1    int
	SegOffset1 int
	Street2    int
	SegOffset2 int
}

// coordScale converts between degrees and the stored scaled integers.
const coordScale = 100000

// scaleCoord rounds a degree value to its stored integer form.
func scaleCoord(deg float64) int32 {
	return int32(math.Round(deg * coordScale))
}

// On-disk file names within a database directory.
const (
	fileVersion           = "version.txt"
	fileStateFips         = "state_fips.csv"
	fileCityAlias         = "city_alias.csv"
	fileCSP               = "csp.dat"
	fileCSPSoundex        = "csp_soundex.dat"
	fileCSPFinanceArea    = "csp_fa.dat"
	filePostcodeAlias     = "postcode_alias.dat"
	filePostcodeGroup     = "postcode_group.dat"
	filePostcodeCentroid  = "postcode_centroid.dat"
	fileStreetName        = "street_name.dat"
	fileStreetNameIdx     = "street_name.idx"
	fileStreetNameSoundex = "street_name_soundex.dat"
	fileStreetSegment     = "street_segment.dat"
	fileStreetSegmentIdx  = "street_segment.idx"
	fileCoordinate        = "coordinate.dat"
	fileCoordinateIdx     = "coordinate.idx"
	fileIntersection      = "intersection_soundex.dat"
	fileIntersectionIdx   = "intersection_soundex.idx"
	freqDir               = "freq"
)

// DBVersion is the version stamp a database directory must carry.
const DBVersion = "gcdb1"

// Fixed-length record sizes.
const (
	cspRecordLen      = 50
	cspSoundexLen     = 9
	cspFaLen          = 10
	postcodeAliasLen  = 12
	centroidRecordLen = 17
)

// Bit-packed street-name-soundex record: 6 finance-area chars and 4
// soundex chars at 7 bits each, then a 24-bit street ID.
const (
	soundexCharBits       = 7
	streetSoundexIDBits   = 24
	streetNameSoundexBits = 6*soundexCharBits + 4*soundexCharBits + streetSoundexIDBits
)

// Chunk sizes per chunked entity.
const (
	streetNameChunk   = 20
	segmentChunk      = 20
	coordChunk        = 40
	intersectionChunk = 10
)

// padRight space-pads s into a fixed-width byte field, truncating when
// over-length.
func padRight(dst []byte, s string) {
	n := copy(dst, s)
	for ; n < len(dst); n++ {
		dst[n] = ' '
	}
}

// trimPad recovers a string from a space-padded field.
func trimPad(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

// Fixed-length record codecs. The writer side lives in the database
// builder; the reader side backs the query engine's positional
// accessors.

func encodeCSP(r CityStatePostcode) []byte {
	buf := make([]byte, cspRecordLen)
	buf[0] = byte(r.Country)
	buf[1] = byte(r.StateFips)
	padRight(buf[2:8], r.Postcode)
	padRight(buf[8:36], r.City)
	padRight(buf[36:42], r.FinanceArea)
	binary.LittleEndian.PutUint32(buf[42:46], uint32(r.FirstStreetName))
	binary.LittleEndian.PutUint32(buf[46:50], uint32(r.StreetNameCount))
	return buf
}

func decodeCSP(id int, buf []byte) CityStatePostcode {
	return CityStatePostcode{
		ID:              id,
		Country:         CountryCode(buf[0]),
		StateFips:       int(buf[1]),
		Postcode:        trimPad(buf[2:8]),
		City:            trimPad(buf[8:36]),
		FinanceArea:     trimPad(buf[36:42]),
		FirstStreetName: int(binary.LittleEndian.Uint32(buf[42:46])),
		StreetNameCount: int(binary.LittleEndian.Uint32(buf[46:50])),
	}
}

func encodeCSPSoundex(r CSPSoundex) []byte {
	buf := make([]byte, cspSoundexLen)
	buf[0] = byte(r.StateFips)
	padRight(buf[1:5], r.Soundex)
	binary.LittleEndian.PutUint32(buf[5:9], uint32(r.CSPID))
	return buf
}

func decodeCSPSoundex(buf []byte) CSPSoundex {
	return CSPSoundex{
		StateFips: int(buf[0]),
		Soundex:   trimPad(buf[1:5]),
		CSPID:     int(binary.LittleEndian.Uint32(buf[5:9])),
	}
}

func encodeCSPFa(r CSPFinanceArea) []byte {
	buf := make([]byte, cspFaLen)
	padRight(buf[0:6], r.FinanceArea)
	binary.LittleEndian.PutUint32(buf[6:10], uint32(r.CSPID))
	return buf
}

func decodeCSPFa(buf []byte) CSPFinanceArea {
	return CSPFinanceArea{
		FinanceArea: trimPad(buf[0:6]),
		CSPID:       int(binary.LittleEndian.Uint32(buf[6:10])),
	}
}

func encodePostcodeAlias(r PostcodeAlias) []byte {
	buf := make([]byte, postcodeAliasLen)
	padRight(buf[0:6], r.Postcode)
	padRight(buf[6:12], r.Group)
	return buf
}

func decodePostcodeAlias(buf []byte) PostcodeAlias {
	return PostcodeAlias{Postcode: trimPad(buf[0:6]), Group: trimPad(buf[6:12])}
}

func encodeCentroid(r PostcodeCentroid) []byte {
	buf := make([]byte, centroidRecordLen)
	padRight(buf[0:9], r.Postcode)
	binary.LittleEndian.PutUint32(buf[9:13], uint32(scaleCoord(r.Lat)))
	binary.LittleEndian.PutUint32(buf[13:17], uint32(scaleCoord(r.Lon)))
	return buf
}

func decodeCentroid(buf []byte) PostcodeCentroid {
	return PostcodeCentroid{
		Postcode: trimPad(buf[0:9]),
		Lat:      float64(int32(binary.LittleEndian.Uint32(buf[9:13]))) / coordScale,
		Lon:      float64(int32(binary.LittleEndian.Uint32(buf[13:17]))) / coordScale,
	}
}

// Chunked entity schemas.

var streetNameSchema = dataio.Schema{
	{Name: "csp", Kind: dataio.KindInt},
	{Name: "prefix", Kind: dataio.KindString},
	{Name: "predir", Kind: dataio.KindString},
	{Name: "name", Kind: dataio.KindString},
	{Name: "suffix", Kind: dataio.KindString},
	{Name: "postdir", Kind: dataio.KindString},
	{Name: "first_segment", Kind: dataio.KindInt},
	{Name: "segment_count", Kind: dataio.KindInt},
}

var segmentSchema = dataio.Schema{
	{Name: "addr_low", Kind: dataio.KindString},
	{Name: "addr_high", Kind: dataio.KindString},
	{Name: "side", Kind: dataio.KindInt},
	{Name: "county", Kind: dataio.KindInt},
	{Name: "tract", Kind: dataio.KindString},
	{Name: "block", Kind: dataio.KindString},
	{Name: "postcode_ext", Kind: dataio.KindString},
	{Name: "first_coord", Kind: dataio.KindInt},
	{Name: "coord_count", Kind: dataio.KindInt},
}

var coordSchema = dataio.Schema{
	{Name: "lat", Kind: dataio.KindInt},
	{Name: "lon", Kind: dataio.KindInt},
}

var intersectionSchema = dataio.Schema{
	{Name: "state", Kind: dataio.KindInt},
	{Name: "soundex1", Kind: dataio.KindString},
	{Name: "soundex2", Kind: dataio.KindString},
	{Name: "street1", Kind: dataio.KindInt},
	{Name: "seg_offset1", Kind: dataio.KindInt},
	{Name: "street2", Kind: dataio.KindInt},
	{Name: "seg_offset2", Kind: dataio.KindInt},
}

func streetNameToRecord(s StreetName) dataio.Record {
	return dataio.Record{
		dataio.IntVal(int32(s.CSPID)),
		dataio.StrVal(s.Prefix),
		dataio.StrVal(s.Predir),
		dataio.StrVal(s.Name),
		dataio.StrVal(s.Suffix),
		dataio.StrVal(s.Postdir),
		dataio.IntVal(int32(s.FirstSegment)),
		dataio.IntVal(int32(s.SegmentCount)),
	}
}

func streetNameFromRecord(id int, r dataio.Record) StreetName {
	return StreetName{
		ID:           id,
		CSPID:        int(r[0].Int),
		Prefix:       r[1].Str,
		Predir:       r[2].Str,
		Name:         r[3].Str,
		Suffix:       r[4].Str,
		Postdir:      r[5].Str,
		FirstSegment: int(r[6].Int),
		SegmentCount: int(r[7].Int),
	}
}

func segmentToRecord(s StreetSegment) dataio.Record {
	side := int32(0)
	if s.RightSide {
		side = 1
	}
	return dataio.Record{
		dataio.StrVal(s.AddrLow),
		dataio.StrVal(s.AddrHigh),
		dataio.IntVal(side),
		dataio.IntVal(int32(s.CountyFips)),
		dataio.StrVal(s.CensusTract),
		dataio.StrVal(s.CensusBlock),
		dataio.StrVal(s.PostcodeExt),
		dataio.IntVal(int32(s.FirstCoord)),
		dataio.IntVal(int32(s.CoordCount)),
	}
}

func segmentFromRecord(id int, r dataio.Record) StreetSegment {
	return StreetSegment{
		ID:          id,
		AddrLow:     r[0].Str,
		AddrHigh:    r[1].Str,
		RightSide:   r[2].Int != 0,
		CountyFips:  int(r[3].Int),
		CensusTract: r[4].Str,
		CensusBlock: r[5].Str,
		PostcodeExt: r[6].Str,
		FirstCoord:  int(r[7].Int),
		CoordCount:  int(r[8].Int),
	}
}

func coordToRecord(c Coordinate) dataio.Record {
	return dataio.Record{
		dataio.IntVal(scaleCoord(c.Lat)),
		dataio.IntVal(scaleCoord(c.Lon)),
	}
}

func coordFromRecord(r dataio.Record) Coordinate {
	return Coordinate{
		Lat: float64(r[0].Int) / coordScale,
		Lon: float64(r[1].Int) / coordScale,
	}
}

func intersectionToRecord(x IntersectionSoundex) dataio.Record {
	return dataio.Record{
		dataio.IntVal(int32(x.StateFips)),
		dataio.StrVal(x.Soundex1),
		dataio.StrVal(x.Soundex2),
		dataio.IntVal(int32(x.Street1)),
		dataio.IntVal(int32(x.SegOffset1)),
		dataio.IntVal(int32(x.Street2)),
		dataio.IntVal(int32(x.SegOffset2)),
	}
}

func intersectionFromRecord(r dataio.Record) IntersectionSoundex {
	return IntersectionSoundex{
		StateFips:  int(r[0].Int),
		Soundex1:   r[1].Str,
		Soundex2:   r[2].Str,
		Street1:    int(r[3].Int),
		SegOffset1: int(r[4].Int),
		Street2:    int(r[5].Int),
		SegOffset2: int(r[6].Int),
	}
}
