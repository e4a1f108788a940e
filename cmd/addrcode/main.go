// Command addrcode geocodes a single address against a reference
// database directory.
//
// Usage:
//
//	addrcode -db ./gcdb "150 MAIN ST" "SPRINGFIELD, IL 62701"
package main

import (
	"flag"
	"fmt"
	"os"

	geocoder "github.com/h4ck3rm1k3/AutoToolsGeocoder-sub000"
)

func main() {
	db := flag.String("db", "", "reference database directory")
	flag.Parse()

	if *db == "" || flag.NArg() != 2 {
		fmt.Fprintln(os.Stderr, "usage: addrcode -db DIR FIRST-LINE LAST-LINE")
		os.Exit(2)
	}

	g, err := geocoder.NewGeocoder(*db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer g.Close()

	status := g.CodeAddress(flag.Arg(0), flag.Arg(1))
	fmt.Printf("status: %s\n", status)
	for {
		r, ok := g.Next()
		if !ok {
			break
		}
		fmt.Printf("score=%d %s %s %s %s, %s %s %s", r.Score, r.Number, r.Predir, r.Street, r.Suffix, r.City, r.StateAbbr, r.Postcode)
		if r.Geocoded {
			fmt.Printf("  (%f, %f)", r.Lat, r.Lon)
		}
		fmt.Println()
	}
	if status == geocoder.GlobalFailure {
		os.Exit(1)
	}
}
