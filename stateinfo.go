package geocoder

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// State abbreviation <-> numeric state code conversion. The table is
// keyed by country plus abbreviation so "ON" (Ontario) and a US code
// can never collide. US entries carry FIPS codes, Canadian entries SGC
// codes.

// StateInfo is one row of the state lookup table.
type StateInfo struct {
	Country CountryCode
	Abbr    string
	Fips    int
}

// defaultStateTable is compiled in; a database directory may override
// it with its own state_fips.csv.
var defaultStateTable = []StateInfo{
	{CountryUS, "AL", 1}, {CountryUS, "AK", 2}, {CountryUS, "AZ", 4},
	{CountryUS, "AR", 5}, {CountryUS, "CA", 6}, {CountryUS, "CO", 8},
	{CountryUS, "CT", 9}, {CountryUS, "DE", 10}, {CountryUS, "DC", 11},
	{CountryUS, "FL", 12}, {CountryUS, "GA", 13}, {CountryUS, "HI", 15},
	{CountryUS, "ID", 16}, {CountryUS, "IL", 17}, {CountryUS, "IN", 18},
	{CountryUS, "IA", 19}, {CountryUS, "KS", 20}, {CountryUS, "KY", 21},
	{CountryUS, "LA", 22}, {CountryUS, "ME", 23}, {CountryUS, "MD", 24},
	{CountryUS, "MA", 25}, {CountryUS, "MI", 26}, {CountryUS, "MN", 27},
	{CountryUS, "MS", 28}, {CountryUS, "MO", 29}, {CountryUS, "MT", 30},
	{CountryUS, "NE", 31}, {CountryUS, "NV", 32}, {CountryUS, "NH", 33},
	{CountryUS, "NJ", 34}, {CountryUS, "NM", 35}, {CountryUS, "NY", 36},
	{CountryUS, "NC", 37}, {CountryUS, "ND", 38}, {CountryUS, "OH", 39},
	{CountryUS, "OK", 40}, {CountryUS, "OR", 41}, {CountryUS, "PA", 42},
	{CountryUS, "RI", 44}, {CountryUS, "SC", 45}, {CountryUS, "SD", 46},
	{CountryUS, "TN", 47}, {CountryUS, "TX", 48}, {CountryUS, "UT", 49},
	{CountryUS, "VT", 50}, {CountryUS, "VA", 51}, {CountryUS, "WA", 53},
	{CountryUS, "WV", 54}, {CountryUS, "WI", 55}, {CountryUS, "WY", 56},
	{CountryUS, "PR", 72}, {CountryUS, "VI", 78}, {CountryUS, "GU", 66},
	{CountryCA, "NL", 10}, {CountryCA, "PE", 11}, {CountryCA, "NS", 12},
	{CountryCA, "NB", 13}, {CountryCA, "QC", 24}, {CountryCA, "ON", 35},
	{CountryCA, "MB", 46}, {CountryCA, "SK", 47}, {CountryCA, "AB", 48},
	{CountryCA, "BC", 59}, {CountryCA, "YT", 60}, {CountryCA, "NT", 61},
	{CountryCA, "NU", 62},
}

// stateTable resolves abbreviations and codes in both directions.
type stateTable struct {
	byAbbr map[string]StateInfo // key: country byte + abbr
	byFips map[string]StateInfo // key: country byte + code
}

func stateKeyAbbr(country CountryCode, abbr string) string {
	return string('0'+byte(country)) + strings.ToUpper(abbr)
}

func stateKeyFips(country CountryCode, fips int) string {
	return string('0'+byte(country)) + strconv.Itoa(fips)
}

func newStateTable(rows []StateInfo) *stateTable {
	t := &stateTable{
		byAbbr: make(map[string]StateInfo, len(rows)),
		byFips: make(map[string]StateInfo, len(rows)),
	}
	for _, r := range rows {
		t.byAbbr[stateKeyAbbr(r.Country, r.Abbr)] = r
		t.byFips[stateKeyFips(r.Country, r.Fips)] = r
	}
	return t
}

// loadStateTable reads a state_fips.csv (country,abbr,fips rows). A
// missing file falls back to the compiled-in table.
func loadStateTable(path string) (*stateTable, error) {
	fi, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return newStateTable(defaultStateTable), nil
		}
		return nil, fmt.Errorf("opening state table: %w", err)
	}
	defer fi.Close()

	rd := csv.NewReader(fi)
	rd.FieldsPerRecord = 3
	var rows []StateInfo
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading state table: %w", err)
		}
		country, err := parseCountry(rec[0])
		if err != nil {
			return nil, fmt.Errorf("state table: %w", err)
		}
		fips, err := strconv.Atoi(strings.TrimSpace(rec[2]))
		if err != nil {
			return nil, fmt.Errorf("state table: bad code %q: %w", rec[2], err)
		}
		rows = append(rows, StateInfo{Country: country, Abbr: strings.ToUpper(strings.TrimSpace(rec[1])), Fips: fips})
	}
	if len(rows) == 0 {
		rows = defaultStateTable
	}
	return newStateTable(rows), nil
}

func parseCountry(s string) (CountryCode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "US":
		return CountryUS, nil
	case "CA":
		return CountryCA, nil
	}
	return 0, fmt.Errorf("unknown country %q", s)
}

func countryISO(c CountryCode) string {
	if c == CountryCA {
		return "CA"
	}
	return "US"
}

// CityAlias is one city-replacement row: a misspelled or vanity city
// name and the reference name it should be retried as.
type CityAlias struct {
	StateFips int
	From      string
	To        string
}

// loadCityAliases reads city_alias.csv (state,from,to rows). A missing
// file is an empty table.
func loadCityAliases(path string) (map[string][]CityAlias, error) {
	fi, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]CityAlias{}, nil
		}
		return nil, fmt.Errorf("opening city aliases: %w", err)
	}
	defer fi.Close()

	rd := csv.NewReader(fi)
	rd.FieldsPerRecord = 3
	aliases := make(map[string][]CityAlias)
	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading city aliases: %w", err)
		}
		state, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("city aliases: bad state %q: %w", rec[0], err)
		}
		a := CityAlias{
			StateFips: state,
			From:      strings.ToUpper(strings.TrimSpace(rec[1])),
			To:        strings.ToUpper(strings.TrimSpace(rec[2])),
		}
		aliases[a.From] = append(aliases[a.From], a)
	}
	return aliases, nil
}
