package geoip

import (
	"strings"
	"testing"
)

func TestParseSkipsHeaderAndBadRows(t *testing.T) {
	const data = `ip,lat,lon
1.2.3.4,52.52,13.40
short
5.6.7.8,not-a-number,1.0
9.9.9.9,-33.87,151.21
`
	tbl, err := Parse(strings.NewReader(data))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if tbl.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", tbl.Len())
	}
	loc, ok := tbl.Lookup("1.2.3.4")
	if !ok || loc.Lat != 52.52 || loc.Lon != 13.40 {
		t.Fatalf("unexpected lookup result: %+v ok=%v", loc, ok)
	}
	if _, ok := tbl.Lookup("8.8.8.8"); ok {
		t.Fatal("expected miss for unknown ip")
	}
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	if _, ok := tbl.Lookup("1.2.3.4"); ok {
		t.Fatal("nil table should miss every lookup")
	}
	if tbl.Len() != 0 {
		t.Fatal("nil table should report zero entries")
	}
}
