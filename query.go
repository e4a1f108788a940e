package geocoder

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000/internal/bitio"
	"github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000/internal/dataio"
	"github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000/internal/huffman"
	"github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000/internal/setcache"
)

// Query is the read side of a reference database directory. It owns
// open file handles, Huffman coders, and record caches, all acquired in
// OpenQuery and released in Close.
//
// A Query is not safe for concurrent use; confine each instance to one
// goroutine or serialize calls. Independent instances may share the
// same underlying files.
type Query struct {
	cfg  *Config
	dir  string
	open bool

	states      *stateTable
	cityAliases map[string][]CityAlias

	csp       *fixedFile
	cspSdx    *fixedFile
	cspFa     *fixedFile
	pcAlias   *fixedFile
	pcGroup   *fixedFile
	centroid  *fixedFile
	sns       *packedFile
	streets   *chunkedFile
	segments  *chunkedFile
	coords    *chunkedFile
	crossings *chunkedFile

	cspCache      *setcache.Cache[int, CityStatePostcode]
	streetCache   *setcache.Cache[int, StreetName]
	segmentCache  *setcache.Cache[int, StreetSegment]
	crossingCache *setcache.Cache[int, IntersectionSoundex]
}

// fixedFile is an open fixed-length-record data file.
type fixedFile struct {
	f      *os.File
	recLen int
	count  int
}

func (ff *fixedFile) record(id int, buf []byte) bool {
	if id < 0 || id >= ff.count {
		return false
	}
	_, err := ff.f.ReadAt(buf[:ff.recLen], int64(id)*int64(ff.recLen))
	return err == nil
}

// packedFile is an open bit-packed fixed-width-record file.
type packedFile struct {
	f       *os.File
	br      *bitio.Reader
	recBits int
	count   int
}

// chunkedFile is an open chunked data file with its position index and
// per-field coders.
type chunkedFile struct {
	f   *os.File
	rdr *dataio.Reader
}

// OpenQuery opens every data and index file of a database directory,
// loads the Huffman tables and lookup CSVs, and allocates the record
// caches. Any inconsistency — missing file, wrong size, bad position
// index, version mismatch — fails the whole open and leaves nothing
// held.
func OpenQuery(dir string, opts ...Option) (*Query, error) {
	cfg := defaultGeocoderConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	q := &Query{cfg: cfg, dir: dir}
	if err := q.openAll(); err != nil {
		cfg.ErrorSink(err.Error())
		q.Close()
		return nil, err
	}
	q.open = true
	return q, nil
}

func (q *Query) openAll() error {
	ver, err := os.ReadFile(filepath.Join(q.dir, fileVersion))
	if err != nil {
		return fmt.Errorf("reading version stamp: %w", err)
	}
	if got := strings.TrimSpace(string(ver)); got != DBVersion {
		return fmt.Errorf("database version %q, engine requires %q", got, DBVersion)
	}

	if q.states, err = loadStateTable(filepath.Join(q.dir, fileStateFips)); err != nil {
		return err
	}
	if q.cityAliases, err = loadCityAliases(filepath.Join(q.dir, fileCityAlias)); err != nil {
		return err
	}

	fixed := []struct {
		name   string
		recLen int
		dst    **fixedFile
	}{
		{fileCSP, cspRecordLen, &q.csp},
		{fileCSPSoundex, cspSoundexLen, &q.cspSdx},
		{fileCSPFinanceArea, cspFaLen, &q.cspFa},
		{filePostcodeAlias, postcodeAliasLen, &q.pcAlias},
		{filePostcodeGroup, postcodeAliasLen, &q.pcGroup},
		{filePostcodeCentroid, centroidRecordLen, &q.centroid},
	}
	for _, spec := range fixed {
		ff, err := openFixed(filepath.Join(q.dir, spec.name), spec.recLen)
		if err != nil {
			return err
		}
		*spec.dst = ff
	}

	if q.sns, err = openPacked(filepath.Join(q.dir, fileStreetNameSoundex), streetNameSoundexBits); err != nil {
		return err
	}

	chunked := []struct {
		data, idx string
		schema    dataio.Schema
		chunk     int
		dst       **chunkedFile
	}{
		{fileStreetName, fileStreetNameIdx, streetNameSchema, streetNameChunk, &q.streets},
		{fileStreetSegment, fileStreetSegmentIdx, segmentSchema, segmentChunk, &q.segments},
		{fileCoordinate, fileCoordinateIdx, coordSchema, coordChunk, &q.coords},
		{fileIntersection, fileIntersectionIdx, intersectionSchema, intersectionChunk, &q.crossings},
	}
	for _, spec := range chunked {
		cf, err := q.openChunked(spec.data, spec.idx, spec.schema, spec.chunk)
		if err != nil {
			return err
		}
		*spec.dst = cf
	}

	scale := q.cfg.MemUse.cacheScale()
	size := func(base int) int { return int(float64(base) * scale) }
	q.cspCache = setcache.New[int, CityStatePostcode](size(2000), 4)
	q.streetCache = setcache.New[int, StreetName](size(6000), 4)
	q.segmentCache = setcache.New[int, StreetSegment](size(6000), 4)
	q.crossingCache = setcache.New[int, IntersectionSoundex](size(2000), 4)
	return nil
}

func openFixed(path string, recLen int) (*fixedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	if st.Size()%int64(recLen) != 0 {
		f.Close()
		return nil, fmt.Errorf("%s: size %d is not a multiple of record length %d",
			filepath.Base(path), st.Size(), recLen)
	}
	return &fixedFile{f: f, recLen: recLen, count: int(st.Size() / int64(recLen))}, nil
}

func openPacked(path string, recBits int) (*packedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", filepath.Base(path), err)
	}
	// The file is zero-padded to a whole byte; count is the largest
	// whole record fitting in the bit length.
	count := int(st.Size() * 8 / int64(recBits))
	return &packedFile{f: f, br: bitio.NewReader(f), recBits: recBits, count: count}, nil
}

// openChunked opens a chunked data file, its position index, and its
// per-field frequency tables. Table loads run in parallel; the decoded
// engine is still strictly single-threaded afterwards.
func (q *Query) openChunked(dataName, idxName string, schema dataio.Schema, chunkSize int) (*chunkedFile, error) {
	idx, err := os.ReadFile(filepath.Join(q.dir, idxName))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", idxName, err)
	}

	coders := make([]*huffman.Coder, len(schema))
	var g errgroup.Group
	for i, field := range schema {
		g.Go(func() error {
			path := filepath.Join(q.dir, freqDir, freqFileName(dataName, field.Name))
			fi, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("opening frequency table: %w", err)
			}
			defer fi.Close()
			freq, err := huffman.ReadFreqTable(fi)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			coders[i] = huffman.NewCoder(freq)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(q.dir, dataName))
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", dataName, err)
	}
	rdr, err := dataio.NewReader(f, idx, schema, chunkSize, coders)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", idxName, err)
	}
	return &chunkedFile{f: f, rdr: rdr}, nil
}

// freqFileName derives the frequency-table file name for one field of
// one data file: street_name.dat + "name" -> street_name.name.freq.
func freqFileName(dataName, fieldName string) string {
	base := strings.TrimSuffix(dataName, filepath.Ext(dataName))
	return base + "." + fieldName + ".freq"
}

// Close releases every open file. It is idempotent.
func (q *Query) Close() error {
	var firstErr error
	closeFile := func(f *os.File) {
		if f == nil {
			return
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, ff := range []*fixedFile{q.csp, q.cspSdx, q.cspFa, q.pcAlias, q.pcGroup, q.centroid} {
		if ff != nil {
			closeFile(ff.f)
		}
	}
	if q.sns != nil {
		closeFile(q.sns.f)
	}
	for _, cf := range []*chunkedFile{q.streets, q.segments, q.coords, q.crossings} {
		if cf != nil {
			closeFile(cf.f)
		}
	}
	q.csp, q.cspSdx, q.cspFa, q.pcAlias, q.pcGroup, q.centroid = nil, nil, nil, nil, nil, nil
	q.sns = nil
	q.streets, q.segments, q.coords, q.crossings = nil, nil, nil, nil
	q.open = false
	return firstErr
}

// Record counts, exposed for tooling and tests.

func (q *Query) CityStatePostcodeCount() int { return q.csp.count }
func (q *Query) StreetNameCount() int        { return q.streets.rdr.Count() }
func (q *Query) StreetSegmentCount() int     { return q.segments.rdr.Count() }
func (q *Query) CoordinateCount() int        { return q.coords.rdr.Count() }
func (q *Query) IntersectionCount() int      { return q.crossings.rdr.Count() }

// Positional accessors. A false return means "record absent or
// corrupt"; retrying the same position reproduces the failure.

// CityStatePostcodeByID decodes one row directly from the file.
func (q *Query) CityStatePostcodeByID(id int) (CityStatePostcode, bool) {
	var buf [cspRecordLen]byte
	if !q.csp.record(id, buf[:]) {
		return CityStatePostcode{}, false
	}
	return decodeCSP(id, buf[:]), true
}

// CityStatePostcodeByIDCached consults the set-associative cache first.
func (q *Query) CityStatePostcodeByIDCached(id int) (CityStatePostcode, bool) {
	if v, ok := q.cspCache.Fetch(id); ok {
		return v, true
	}
	v, ok := q.CityStatePostcodeByID(id)
	if ok {
		q.cspCache.Insert(id, v)
	}
	return v, ok
}

func (q *Query) cspSoundexByID(id int) (CSPSoundex, bool) {
	var buf [cspSoundexLen]byte
	if !q.cspSdx.record(id, buf[:]) {
		return CSPSoundex{}, false
	}
	return decodeCSPSoundex(buf[:]), true
}

func (q *Query) cspFaByID(id int) (CSPFinanceArea, bool) {
	var buf [cspFaLen]byte
	if !q.cspFa.record(id, buf[:]) {
		return CSPFinanceArea{}, false
	}
	return decodeCSPFa(buf[:]), true
}

func (q *Query) postcodeAliasByID(id int) (PostcodeAlias, bool) {
	var buf [postcodeAliasLen]byte
	if !q.pcAlias.record(id, buf[:]) {
		return PostcodeAlias{}, false
	}
	return decodePostcodeAlias(buf[:]), true
}

func (q *Query) postcodeGroupByID(id int) (PostcodeAlias, bool) {
	var buf [postcodeAliasLen]byte
	if !q.pcGroup.record(id, buf[:]) {
		return PostcodeAlias{}, false
	}
	return decodePostcodeAlias(buf[:]), true
}

func (q *Query) centroidByID(id int) (PostcodeCentroid, bool) {
	var buf [centroidRecordLen]byte
	if !q.centroid.record(id, buf[:]) {
		return PostcodeCentroid{}, false
	}
	return decodeCentroid(buf[:]), true
}

// StreetNameByID decodes one chunked street-name record.
func (q *Query) StreetNameByID(id int) (StreetName, bool) {
	rec, ok := q.streets.rdr.Record(id)
	if !ok {
		return StreetName{}, false
	}
	return streetNameFromRecord(id, rec), true
}

// StreetNameByIDCached consults the cache first.
func (q *Query) StreetNameByIDCached(id int) (StreetName, bool) {
	if v, ok := q.streetCache.Fetch(id); ok {
		return v, true
	}
	v, ok := q.StreetNameByID(id)
	if ok {
		q.streetCache.Insert(id, v)
	}
	return v, ok
}

// StreetSegmentByID decodes one chunked segment record.
func (q *Query) StreetSegmentByID(id int) (StreetSegment, bool) {
	rec, ok := q.segments.rdr.Record(id)
	if !ok {
		return StreetSegment{}, false
	}
	return segmentFromRecord(id, rec), true
}

// StreetSegmentByIDCached consults the cache first.
func (q *Query) StreetSegmentByIDCached(id int) (StreetSegment, bool) {
	if v, ok := q.segmentCache.Fetch(id); ok {
		return v, true
	}
	v, ok := q.StreetSegmentByID(id)
	if ok {
		q.segmentCache.Insert(id, v)
	}
	return v, ok
}

// CoordinateByID decodes one polyline vertex.
func (q *Query) CoordinateByID(id int) (Coordinate, bool) {
	rec, ok := q.coords.rdr.Record(id)
	if !ok {
		return Coordinate{}, false
	}
	return coordFromRecord(rec), true
}

// CoordinatesForSegment decodes a segment's whole polyline in storage
// order, riding the sequential decode fast path.
func (q *Query) CoordinatesForSegment(seg StreetSegment) ([]Coordinate, bool) {
	out := make([]Coordinate, 0, seg.CoordCount)
	for i := 0; i < seg.CoordCount; i++ {
		c, ok := q.CoordinateByID(seg.FirstCoord + i)
		if !ok {
			return nil, false
		}
		out = append(out, c)
	}
	return out, true
}

// IntersectionSoundexByID decodes one chunked intersection index row.
func (q *Query) IntersectionSoundexByID(id int) (IntersectionSoundex, bool) {
	rec, ok := q.crossings.rdr.Record(id)
	if !ok {
		return IntersectionSoundex{}, false
	}
	return intersectionFromRecord(rec), true
}

// IntersectionSoundexByIDCached consults the cache first.
func (q *Query) IntersectionSoundexByIDCached(id int) (IntersectionSoundex, bool) {
	if v, ok := q.crossingCache.Fetch(id); ok {
		return v, true
	}
	v, ok := q.IntersectionSoundexByID(id)
	if ok {
		q.crossingCache.Insert(id, v)
	}
	return v, ok
}

// StreetNameSoundexByID unpacks one bit-packed index row.
func (q *Query) StreetNameSoundexByID(id int) (StreetNameSoundex, bool) {
	if id < 0 || id >= q.sns.count {
		return StreetNameSoundex{}, false
	}
	if !q.sns.br.Seek(int64(id) * int64(q.sns.recBits)) {
		return StreetNameSoundex{}, false
	}
	readChars := func(n int) (string, bool) {
		b := make([]byte, n)
		for i := 0; i < n; i++ {
			v, ok := q.sns.br.ReadBits(soundexCharBits)
			if !ok {
				return "", false
			}
			b[i] = byte(v)
		}
		return strings.TrimRight(string(b), " "), true
	}
	fa, ok := readChars(6)
	if !ok {
		return StreetNameSoundex{}, false
	}
	sx, ok := readChars(4)
	if !ok {
		return StreetNameSoundex{}, false
	}
	sid, ok := q.sns.br.ReadBits(streetSoundexIDBits)
	if !ok {
		return StreetNameSoundex{}, false
	}
	return StreetNameSoundex{FinanceArea: fa, Soundex: sx, StreetID: int(sid)}, true
}

// StateFromAbbr converts a state abbreviation to its numeric code.
func (q *Query) StateFromAbbr(country CountryCode, abbr string) (int, bool) {
	s, ok := q.states.byAbbr[stateKeyAbbr(country, abbr)]
	if !ok {
		return 0, false
	}
	return s.Fips, true
}

// StateAbbr converts a numeric state code back to its abbreviation.
func (q *Query) StateAbbr(country CountryCode, fips int) (string, bool) {
	s, ok := q.states.byFips[stateKeyFips(country, fips)]
	if !ok {
		return "", false
	}
	return s.Abbr, true
}

// CityAliasesFor returns the replacement aliases for a typed city name
// in a state.
func (q *Query) CityAliasesFor(city string, stateFips int) []CityAlias {
	var out []CityAlias
	for _, a := range q.cityAliases[strings.ToUpper(city)] {
		if a.StateFips == stateFips || a.StateFips == 0 {
			out = append(out, a)
		}
	}
	return out
}
