// Package geoip resolves peer IP addresses to coordinates for the
// network map. The table is a flat CSV of ip,latitude,longitude rows
// loaded once at startup; lookups afterwards are read-only.
package geoip

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Location is a resolved coordinate pair.
type Location struct {
	Lat float64
	Lon float64
}

// Table is an in-memory IP to location index. A nil *Table is valid
// and misses every lookup, so callers without a configured table can
// hold a nil pointer.
type Table struct {
	byIP map[string]Location
}

// Load reads a CSV table of ip,lat,lon rows from a file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open geoip table: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads ip,lat,lon rows from r. Rows whose coordinates do not
// parse (including a header row) are skipped rather than failing the
// whole load.
func Parse(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	t := &Table{byIP: make(map[string]Location)}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read geoip table: %w", err)
		}
		if len(rec) < 3 {
			continue
		}
		lat, latErr := strconv.ParseFloat(rec[1], 64)
		lon, lonErr := strconv.ParseFloat(rec[2], 64)
		if latErr != nil || lonErr != nil {
			continue
		}
		t.byIP[rec[0]] = Location{Lat: lat, Lon: lon}
	}
	return t, nil
}

// Lookup resolves an IP to coordinates.
func (t *Table) Lookup(ip string) (Location, bool) {
	if t == nil {
		return Location{}, false
	}
	loc, ok := t.byIP[ip]
	return loc, ok
}

// Len returns the number of loaded entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byIP)
}
