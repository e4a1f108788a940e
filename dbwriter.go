package geocoder

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000/internal/bitio"
	"github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000/internal/dataio"
	"github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000/internal/huffman"
)

// Builder assembles a complete reference database directory from
// in-memory records. It is the offline write side of every codec the
// query engine reads; entity IDs are positional, so the slices must
// already be in ID order and every declared range must be internally
// consistent.
type Builder struct {
	CSPs            []CityStatePostcode
	StreetNames     []StreetName
	Segments        []StreetSegment
	Coords          []Coordinate
	PostcodeAliases []PostcodeAlias
	Centroids       []PostcodeCentroid
	CityAliases     []CityAlias

	// States overrides the compiled-in state table when non-nil.
	States []StateInfo
}

// Build writes every data, index, and lookup file of a database
// directory.
func (b *Builder) Build(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, freqDir), 0755); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}
	if err := b.validate(); err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, fileVersion), []byte(DBVersion+"\n"), 0644); err != nil {
		return err
	}
	if err := b.writeStateTable(dir); err != nil {
		return err
	}
	if err := b.writeCityAliases(dir); err != nil {
		return err
	}
	if err := b.writeFixedFiles(dir); err != nil {
		return err
	}
	if err := b.writeStreetNameSoundex(dir); err != nil {
		return err
	}

	streetRecs := make([]dataio.Record, len(b.StreetNames))
	for i, s := range b.StreetNames {
		streetRecs[i] = streetNameToRecord(s)
	}
	if err := writeChunked(dir, fileStreetName, fileStreetNameIdx, streetNameSchema, streetNameChunk, streetRecs); err != nil {
		return err
	}

	segRecs := make([]dataio.Record, len(b.Segments))
	for i, s := range b.Segments {
		segRecs[i] = segmentToRecord(s)
	}
	if err := writeChunked(dir, fileStreetSegment, fileStreetSegmentIdx, segmentSchema, segmentChunk, segRecs); err != nil {
		return err
	}

	coordRecs := make([]dataio.Record, len(b.Coords))
	for i, c := range b.Coords {
		coordRecs[i] = coordToRecord(c)
	}
	if err := writeChunked(dir, fileCoordinate, fileCoordinateIdx, coordSchema, coordChunk, coordRecs); err != nil {
		return err
	}

	crossings := b.deriveIntersections()
	crossRecs := make([]dataio.Record, len(crossings))
	for i, x := range crossings {
		crossRecs[i] = intersectionToRecord(x)
	}
	return writeChunked(dir, fileIntersection, fileIntersectionIdx, intersectionSchema, intersectionChunk, crossRecs)
}

func (b *Builder) validate() error {
	for i, s := range b.StreetNames {
		if s.CSPID < 0 || s.CSPID >= len(b.CSPs) {
			return fmt.Errorf("street name %d references missing city row %d", i, s.CSPID)
		}
		if s.FirstSegment < 0 || s.FirstSegment+s.SegmentCount > len(b.Segments) {
			return fmt.Errorf("street name %d segment range out of bounds", i)
		}
		owner := b.CSPs[s.CSPID]
		if i < owner.FirstStreetName || i >= owner.FirstStreetName+owner.StreetNameCount {
			return fmt.Errorf("street name %d outside its owner's declared range", i)
		}
	}
	for i, s := range b.Segments {
		if s.FirstCoord < 0 || s.FirstCoord+s.CoordCount > len(b.Coords) {
			return fmt.Errorf("segment %d coordinate range out of bounds", i)
		}
	}
	return nil
}

func (b *Builder) writeStateTable(dir string) error {
	rows := b.States
	if rows == nil {
		rows = defaultStateTable
	}
	f, err := os.Create(filepath.Join(dir, fileStateFips))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	for _, r := range rows {
		if err := w.Write([]string{countryISO(r.Country), r.Abbr, strconv.Itoa(r.Fips)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (b *Builder) writeCityAliases(dir string) error {
	f, err := os.Create(filepath.Join(dir, fileCityAlias))
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	for _, a := range b.CityAliases {
		if err := w.Write([]string{strconv.Itoa(a.StateFips), a.From, a.To}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (b *Builder) writeFixedFiles(dir string) error {
	csps := append([]CityStatePostcode(nil), b.CSPs...)
	// The csp file's positional IDs are fixed by the caller; the file
	// must nevertheless be postcode-sorted for the binary search, so
	// ID order and postcode order must agree.
	for i := 1; i < len(csps); i++ {
		if csps[i-1].Postcode > csps[i].Postcode {
			return fmt.Errorf("city rows must be supplied in postcode order (row %d)", i)
		}
	}
	var cspBytes []byte
	for _, r := range csps {
		cspBytes = append(cspBytes, encodeCSP(r)...)
	}
	if err := os.WriteFile(filepath.Join(dir, fileCSP), cspBytes, 0644); err != nil {
		return err
	}

	sdx := make([]CSPSoundex, len(b.CSPs))
	for i, r := range b.CSPs {
		sdx[i] = CSPSoundex{StateFips: r.StateFips, Soundex: Soundex(r.City), CSPID: r.ID}
	}
	sort.SliceStable(sdx, func(i, j int) bool {
		return stateSoundexKey(sdx[i].StateFips, sdx[i].Soundex) < stateSoundexKey(sdx[j].StateFips, sdx[j].Soundex)
	})
	var sdxBytes []byte
	for _, r := range sdx {
		sdxBytes = append(sdxBytes, encodeCSPSoundex(r)...)
	}
	if err := os.WriteFile(filepath.Join(dir, fileCSPSoundex), sdxBytes, 0644); err != nil {
		return err
	}

	fa := make([]CSPFinanceArea, len(b.CSPs))
	for i, r := range b.CSPs {
		fa[i] = CSPFinanceArea{FinanceArea: r.FinanceArea, CSPID: r.ID}
	}
	sort.SliceStable(fa, func(i, j int) bool { return fa[i].FinanceArea < fa[j].FinanceArea })
	var faBytes []byte
	for _, r := range fa {
		faBytes = append(faBytes, encodeCSPFa(r)...)
	}
	if err := os.WriteFile(filepath.Join(dir, fileCSPFinanceArea), faBytes, 0644); err != nil {
		return err
	}

	byPostcode := append([]PostcodeAlias(nil), b.PostcodeAliases...)
	sort.SliceStable(byPostcode, func(i, j int) bool { return byPostcode[i].Postcode < byPostcode[j].Postcode })
	var aliasBytes []byte
	for _, r := range byPostcode {
		aliasBytes = append(aliasBytes, encodePostcodeAlias(r)...)
	}
	if err := os.WriteFile(filepath.Join(dir, filePostcodeAlias), aliasBytes, 0644); err != nil {
		return err
	}

	byGroup := append([]PostcodeAlias(nil), b.PostcodeAliases...)
	sort.SliceStable(byGroup, func(i, j int) bool { return byGroup[i].Group < byGroup[j].Group })
	var groupBytes []byte
	for _, r := range byGroup {
		groupBytes = append(groupBytes, encodePostcodeAlias(r)...)
	}
	if err := os.WriteFile(filepath.Join(dir, filePostcodeGroup), groupBytes, 0644); err != nil {
		return err
	}

	cent := append([]PostcodeCentroid(nil), b.Centroids...)
	sort.SliceStable(cent, func(i, j int) bool { return cent[i].Postcode < cent[j].Postcode })
	var centBytes []byte
	for _, r := range cent {
		centBytes = append(centBytes, encodeCentroid(r)...)
	}
	return os.WriteFile(filepath.Join(dir, filePostcodeCentroid), centBytes, 0644)
}

// writeStreetNameSoundex derives and writes the bit-packed street
// soundex index, sorted by (finance area, soundex).
func (b *Builder) writeStreetNameSoundex(dir string) error {
	rows := make([]StreetNameSoundex, 0, len(b.StreetNames))
	for i, s := range b.StreetNames {
		rows = append(rows, StreetNameSoundex{
			FinanceArea: b.CSPs[s.CSPID].FinanceArea,
			Soundex:     StreetSoundex(s.Name),
			StreetID:    i,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return faSoundexKey(rows[i].FinanceArea, rows[i].Soundex) < faSoundexKey(rows[j].FinanceArea, rows[j].Soundex)
	})

	f, err := os.Create(filepath.Join(dir, fileStreetNameSoundex))
	if err != nil {
		return err
	}
	defer f.Close()
	bw := bitio.NewWriter(f)
	writeChars := func(s string, n int) {
		for i := 0; i < n; i++ {
			c := byte(' ')
			if i < len(s) {
				c = s[i]
			}
			bw.WriteBits(uint32(c), soundexCharBits)
		}
	}
	for _, r := range rows {
		writeChars(r.FinanceArea, 6)
		writeChars(r.Soundex, 4)
		bw.WriteBits(uint32(r.StreetID), streetSoundexIDBits)
	}
	return bw.Close()
}

// deriveIntersections finds segment pairs of different streets sharing
// a polyline endpoint and emits an index row for each street order.
func (b *Builder) deriveIntersections() []IntersectionSoundex {
	type endpointRef struct {
		street int
		seg    int
	}
	endpoints := make(map[[2]int32][]endpointRef)
	addEndpoint := func(c Coordinate, ref endpointRef) {
		k := [2]int32{scaleCoord(c.Lat), scaleCoord(c.Lon)}
		endpoints[k] = append(endpoints[k], ref)
	}
	for si, s := range b.StreetNames {
		for off := 0; off < s.SegmentCount; off++ {
			seg := b.Segments[s.FirstSegment+off]
			if seg.CoordCount == 0 {
				continue
			}
			addEndpoint(b.Coords[seg.FirstCoord], endpointRef{street: si, seg: off})
			addEndpoint(b.Coords[seg.FirstCoord+seg.CoordCount-1], endpointRef{street: si, seg: off})
		}
	}

	seen := make(map[[4]int]bool)
	var rows []IntersectionSoundex
	for _, refs := range endpoints {
		for i := 0; i < len(refs); i++ {
			for j := 0; j < len(refs); j++ {
				a, c := refs[i], refs[j]
				if i == j || a.street == c.street {
					continue
				}
				pk := [4]int{a.street, a.seg, c.street, c.seg}
				if seen[pk] {
					continue
				}
				seen[pk] = true
				rows = append(rows, IntersectionSoundex{
					StateFips:  b.CSPs[b.StreetNames[a.street].CSPID].StateFips,
					Soundex1:   StreetSoundex(b.StreetNames[a.street].Name),
					Soundex2:   StreetSoundex(b.StreetNames[c.street].Name),
					Street1:    a.street,
					SegOffset1: a.seg,
					Street2:    c.street,
					SegOffset2: c.seg,
				})
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return intersectionKey(rows[i].StateFips, rows[i].Soundex1, rows[i].Soundex2) <
			intersectionKey(rows[j].StateFips, rows[j].Soundex1, rows[j].Soundex2)
	})
	return rows
}

// writeChunked runs the two-pass encode for one chunked entity: a
// frequency pass feeding the per-field tables, then the coded data and
// position index.
func writeChunked(dir, dataName, idxName string, schema dataio.Schema, chunkSize int, recs []dataio.Record) error {
	fc := dataio.NewFreqCollector(schema, chunkSize)
	for _, r := range recs {
		fc.Add(r)
	}
	freqs := fc.Freqs()
	for i, field := range schema {
		path := filepath.Join(dir, freqDir, freqFileName(dataName, field.Name))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		err = huffman.WriteFreqTable(f, freqs[i])
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
		}
	}

	data, err := os.Create(filepath.Join(dir, dataName))
	if err != nil {
		return err
	}
	defer data.Close()
	w := dataio.NewWriter(data, schema, chunkSize, dataio.Coders(freqs))
	for i, r := range recs {
		if err := w.WriteRecord(r); err != nil {
			return fmt.Errorf("%s record %d: %w", dataName, i, err)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	idx, err := os.Create(filepath.Join(dir, idxName))
	if err != nil {
		return err
	}
	defer idx.Close()
	return w.WriteIndex(idx)
}
