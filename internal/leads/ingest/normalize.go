// Package ingest turns raw crawler and workflow records into stored leads:
// address resolution, canonical keying, merge with the stored record,
// best-effort geocoding and scoring.
package ingest

import (
	"strings"
	"time"

	"permitleads_backend/internal/leads/address"
	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/scoring"
	"permitleads_backend/platform/config"
)

// Normalizer is the pure core of ingestion. It holds no state besides its
// collaborators' configuration and is safe for concurrent use.
type Normalizer struct {
	parser       *address.Parser
	scorer       *scoring.Service
	defaultState string
}

// NewNormalizer wires the parser and scorer. defaultState fills structured
// records that omit a state.
func NewNormalizer(parser *address.Parser, scorer *scoring.Service, defaultState string) *Normalizer {
	return &Normalizer{parser: parser, scorer: scorer, defaultState: defaultState}
}

// NewJurisdictionNormalizer builds the parser and scorer from j with the wall clock.
func NewJurisdictionNormalizer(j config.Jurisdiction) *Normalizer {
	parser := address.NewParser(address.RulesFromJurisdiction(j))
	return NewNormalizer(parser, scoring.New(j.Scoring, time.Now), j.DefaultState)
}

// Scorer exposes the scoring service so operator edits rescore with the same profile.
func (n *Normalizer) Scorer() *scoring.Service {
	return n.scorer
}

// Resolve returns the structured address for raw: the caller's own fields when
// street, city and zip are all present, the parser's result otherwise.
func (n *Normalizer) Resolve(raw domain.RawLeadInput) address.Address {
	if raw.HasStructuredAddress() {
		state := n.defaultState
		if raw.State != nil && strings.TrimSpace(*raw.State) != "" {
			state = strings.ToUpper(strings.TrimSpace(*raw.State))
		}
		return address.Address{
			Street: strings.TrimSpace(*raw.Street),
			City:   strings.TrimSpace(*raw.City),
			State:  state,
			Zip:    strings.TrimSpace(*raw.Zip),
		}
	}
	return n.parser.Parse(raw.RawAddress)
}

// Now reads the scorer's clock so every record in a batch is stamped consistently.
func (n *Normalizer) Now() time.Time {
	return n.scorer.Now()
}

// GeocodeQuery is the enrichment lookup for raw. ok is false when the resolved
// address is too vague to geocode.
func (n *Normalizer) GeocodeQuery(raw domain.RawLeadInput) (string, bool) {
	return n.parser.Rules().GeocodeQuery(n.Resolve(raw))
}

// StoredGeocodeQuery is GeocodeQuery for a lead already in storage.
func (n *Normalizer) StoredGeocodeQuery(lead domain.Lead) (string, bool) {
	return n.parser.Rules().GeocodeQuery(address.Address{
		Street: lead.Street,
		City:   lead.City,
		State:  lead.State,
		Zip:    lead.Zip,
	})
}

// UnknownCity is the placeholder city the parser falls back to.
func (n *Normalizer) UnknownCity() string {
	return n.parser.Rules().UnknownCity
}

// Key is the canonical key raw will be stored under.
func (n *Normalizer) Key(raw domain.RawLeadInput) string {
	return n.Resolve(raw).Key()
}

// Normalize builds the lead to store for raw.
//
// With existing == nil a new lead is created: first and last seen are now and
// tags start empty. Otherwise every field raw supplies overwrites the stored
// value, fields it omits keep their stored value, notes and tags change only
// when supplied, first seen is kept and last seen moves to now.
// enrichment fills coordinates the record itself did not carry.
// The canonical key and the score are always recomputed.
func (n *Normalizer) Normalize(raw domain.RawLeadInput, existing *domain.Lead, enrichment *domain.Coordinates, now time.Time) domain.Lead {
	addr := n.Resolve(raw)

	var lead domain.Lead
	if existing != nil {
		lead = *existing
		lead.Tags = append([]string(nil), existing.Tags...)
	} else {
		lead = domain.Lead{
			FirstSeen: now,
			Tags:      []string{},
		}
	}

	lead.Source = strings.TrimSpace(raw.Source)
	lead.Kind = raw.Kind
	if lead.Kind == "" {
		lead.Kind = domain.KindPermit
	}
	if raw.RawAddress != "" || lead.RawAddress == "" {
		lead.RawAddress = raw.RawAddress
	}

	lead.Street = addr.Street
	lead.City = addr.City
	lead.State = addr.State
	lead.Zip = addr.Zip
	lead.CanonicalKey = addr.Key()

	overwrite(&lead.PermitNumber, raw.PermitNumber)
	overwrite(&lead.PermitType, raw.PermitType)
	overwrite(&lead.Status, raw.Status)
	overwrite(&lead.IssueDate, raw.IssueDate)
	overwrite(&lead.ContractorName, raw.ContractorName)
	overwrite(&lead.OwnerName, raw.OwnerName)
	overwrite(&lead.ParcelID, raw.ParcelID)
	overwrite(&lead.County, raw.County)
	overwrite(&lead.Town, raw.Town)
	overwrite(&lead.EstValue, raw.EstValue)
	overwrite(&lead.LotAcres, raw.LotAcres)
	overwrite(&lead.YearBuilt, raw.YearBuilt)

	if raw.Lat != nil && raw.Lon != nil {
		lead.Lat, lead.Lon = raw.Lat, raw.Lon
	} else if enrichment != nil {
		lat, lon := enrichment.Lat, enrichment.Lon
		lead.Lat, lead.Lon = &lat, &lon
	}

	overwrite(&lead.Notes, raw.Notes)
	if raw.Tags != nil {
		lead.Tags = NormalizeTags(raw.Tags)
	}

	lead.LastSeen = now
	lead.Score = n.scorer.Evaluate(SignalsOf(lead), now).Score
	lead.ScoreUpdatedAt = now

	return lead
}

// SignalsOf extracts the scoring inputs from a lead.
func SignalsOf(lead domain.Lead) scoring.Signals {
	return scoring.Signals{
		LotAcres:  lead.LotAcres,
		IssueDate: lead.IssueDate,
		EstValue:  lead.EstValue,
		YearBuilt: lead.YearBuilt,
		Status:    lead.Status,
	}
}

func overwrite[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}

// NormalizeTags trims, drops empties and removes duplicates while keeping order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
