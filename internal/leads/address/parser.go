// Package address turns free-text property addresses into structured parts and
// derives the canonical deduplication key from them.
package address

import (
	"regexp"
	"strings"

	"permitleads_backend/platform/config"
)

// Address is a parsed property address. The parser always fills every field.
type Address struct {
	Street string
	City   string
	State  string
	Zip    string
}

// Rules are the jurisdiction-specific inputs of the parser.
type Rules struct {
	States       []string
	DefaultState string
	DefaultZip   string
	UnknownCity  string
}

// RulesFromJurisdiction extracts the parser rules from the loaded jurisdiction.
func RulesFromJurisdiction(j config.Jurisdiction) Rules {
	return Rules{
		States:       j.States,
		DefaultState: j.DefaultState,
		DefaultZip:   j.DefaultZip,
		UnknownCity:  j.UnknownCity,
	}
}

// Parser applies three tiers in order: a strict "number street, city, ST zip"
// pattern, a comma split, and a degenerate fallback. It never fails.
type Parser struct {
	rules      Rules
	structured *regexp.Regexp
}

// NewParser compiles the structured pattern for the configured states.
func NewParser(rules Rules) *Parser {
	states := make([]string, 0, len(rules.States))
	for _, s := range rules.States {
		states = append(states, regexp.QuoteMeta(strings.ToUpper(s)))
	}
	pattern := `(?i)^(\d{1,6})\s+([A-Za-z0-9.\- ]+),?\s*([A-Za-z.\- ]+),?\s*(` +
		strings.Join(states, "|") + `)\s+(\d{5})(?:-\d{4})?`

	return &Parser{
		rules:      rules,
		structured: regexp.MustCompile(pattern),
	}
}

// Parse splits raw into street, city, state and zip.
func (p *Parser) Parse(raw string) Address {
	raw = strings.TrimSpace(raw)

	if addr, ok := p.parseStructured(raw); ok {
		return addr
	}

	parts := splitCommas(raw)
	if len(parts) >= 3 {
		return p.parseSegments(parts)
	}

	return p.fallback(raw, parts)
}

func (p *Parser) parseStructured(raw string) (Address, bool) {
	m := p.structured.FindStringSubmatch(raw)
	if m == nil {
		return Address{}, false
	}
	return Address{
		Street: strings.TrimSpace(m[1] + " " + strings.TrimSpace(m[2])),
		City:   strings.TrimSpace(m[3]),
		State:  strings.ToUpper(m[4]),
		Zip:    m[5],
	}, true
}

func (p *Parser) parseSegments(parts []string) Address {
	addr := Address{
		Street: parts[0],
		City:   parts[1],
		State:  p.rules.DefaultState,
		Zip:    p.rules.DefaultZip,
	}
	stateZip := strings.Fields(parts[2])
	if len(stateZip) > 0 {
		addr.State = stateZip[0]
	}
	if len(stateZip) > 1 {
		addr.Zip = stateZip[1]
	}
	return addr
}

func (p *Parser) fallback(raw string, parts []string) Address {
	addr := Address{
		Street: raw,
		City:   p.rules.UnknownCity,
		State:  p.rules.DefaultState,
		Zip:    p.rules.DefaultZip,
	}
	if len(parts) > 0 && parts[0] != "" {
		addr.Street = parts[0]
	}
	if len(parts) > 1 && parts[1] != "" {
		addr.City = parts[1]
	}
	return addr
}

func splitCommas(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Rules returns the jurisdiction rules the parser was built with.
func (p *Parser) Rules() Rules {
	return p.rules
}

// GeocodeQuery renders a as a single-line geocoder query. The placeholder zip
// is left out. ok is false when street or city is missing or a placeholder,
// since a lookup could only match the wrong place.
func (r Rules) GeocodeQuery(a Address) (query string, ok bool) {
	street := strings.TrimSpace(a.Street)
	city := strings.TrimSpace(a.City)
	if street == "" || city == "" || strings.EqualFold(city, r.UnknownCity) {
		return "", false
	}

	parts := []string{street, city}
	region := strings.TrimSpace(a.State)
	if zip := strings.TrimSpace(a.Zip); zip != "" && zip != r.DefaultZip {
		region = strings.TrimSpace(region + " " + zip)
	}
	if region != "" {
		parts = append(parts, region)
	}
	return strings.Join(parts, ", "), true
}
