package address

import (
	"testing"

	"permitleads_backend/platform/config"
)

func newDefaultParser() *Parser {
	return NewParser(RulesFromJurisdiction(config.DefaultJurisdiction()))
}

func TestParseTiers(t *testing.T) {
	p := newDefaultParser()

	cases := []struct {
		name string
		raw  string
		want Address
	}{
		{
			name: "structured with commas",
			raw:  "123 Main St, Springfield, NJ 07081",
			want: Address{Street: "123 Main St", City: "Springfield", State: "NJ", Zip: "07081"},
		},
		{
			name: "structured lowercase state and zip plus four",
			raw:  "45 Oak Ave, Newark nj 07102-1234",
			want: Address{Street: "45 Oak Ave", City: "Newark", State: "NJ", Zip: "07102"},
		},
		{
			name: "structured surrounding whitespace",
			raw:  "   7 Bay Rd, Cape May, NJ 08204  ",
			want: Address{Street: "7 Bay Rd", City: "Cape May", State: "NJ", Zip: "08204"},
		},
		{
			name: "comma split when street has no number",
			raw:  "Lot 7 Rear Parcel, Hamilton, PA 19104",
			want: Address{Street: "Lot 7 Rear Parcel", City: "Hamilton", State: "PA", Zip: "19104"},
		},
		{
			name: "comma split keeps state outside configured set",
			raw:  "12 Elm St, Hartford, CT 06103",
			want: Address{Street: "12 Elm St", City: "Hartford", State: "CT", Zip: "06103"},
		},
		{
			name: "comma split defaults missing zip",
			raw:  "9 Pine Rd, Trenton, NJ",
			want: Address{Street: "9 Pine Rd", City: "Trenton", State: "NJ", Zip: "00000"},
		},
		{
			name: "comma split defaults empty third segment",
			raw:  "9 Pine Rd, Trenton,",
			want: Address{Street: "9 Pine Rd", City: "Trenton", State: "NJ", Zip: "00000"},
		},
		{
			name: "degenerate two segments",
			raw:  "Route 9 Parcel, Lakewood",
			want: Address{Street: "Route 9 Parcel", City: "Lakewood", State: "NJ", Zip: "00000"},
		},
		{
			name: "degenerate single segment",
			raw:  "Block 12 Lot 4",
			want: Address{Street: "Block 12 Lot 4", City: "Unknown", State: "NJ", Zip: "00000"},
		},
		{
			name: "empty input",
			raw:  "",
			want: Address{Street: "", City: "Unknown", State: "NJ", Zip: "00000"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Parse(tc.raw)
			if got != tc.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestParseNeverPanicsOnGarbage(t *testing.T) {
	p := newDefaultParser()
	for _, raw := range []string{",,,,", "   ", "!!!", "123", "1234567 Long Number St, Town, NJ 07000", ",x"} {
		got := p.Parse(raw)
		if got.State == "" || got.Zip == "" {
			t.Fatalf("Parse(%q) left state or zip empty: %+v", raw, got)
		}
	}
}

func TestParseUsesConfiguredJurisdiction(t *testing.T) {
	p := NewParser(Rules{
		States:       []string{"CT"},
		DefaultState: "CT",
		DefaultZip:   "06000",
		UnknownCity:  "Unincorporated",
	})

	got := p.Parse("12 Elm St, Hartford, ct 06103")
	want := Address{Street: "12 Elm St", City: "Hartford", State: "CT", Zip: "06103"}
	if got != want {
		t.Fatalf("structured parse = %+v, want %+v", got, want)
	}

	got = p.Parse("Block 3")
	want = Address{Street: "Block 3", City: "Unincorporated", State: "CT", Zip: "06000"}
	if got != want {
		t.Fatalf("fallback parse = %+v, want %+v", got, want)
	}
}

func TestGeocodeQuery(t *testing.T) {
	rules := newDefaultParser().Rules()

	q, ok := rules.GeocodeQuery(Address{Street: "123 Main St", City: "Springfield", State: "NJ", Zip: "07081"})
	if !ok || q != "123 Main St, Springfield, NJ 07081" {
		t.Fatalf("unexpected query %q (ok=%v)", q, ok)
	}

	q, ok = rules.GeocodeQuery(Address{Street: "9 Pine Rd", City: "Trenton", State: "NJ", Zip: "00000"})
	if !ok || q != "9 Pine Rd, Trenton, NJ" {
		t.Fatalf("placeholder zip should be dropped, got %q", q)
	}

	if _, ok := rules.GeocodeQuery(Address{Street: "Block 12 Lot 4", City: "Unknown", State: "NJ", Zip: "00000"}); ok {
		t.Fatalf("placeholder city must not be geocoded")
	}
}
