// Package domain holds the lead record shapes shared by ingestion, storage and the API.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind classifies where a lead came from.
type Kind string

const (
	KindPermit   Kind = "permit"
	KindBuilder  Kind = "builder"
	KindAssessor Kind = "assessor"
	KindManual   Kind = "manual"
)

// ParseKind maps free text to a Kind, defaulting to permit.
func ParseKind(value string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case "", KindPermit:
		return KindPermit, true
	case KindBuilder:
		return KindBuilder, true
	case KindAssessor:
		return KindAssessor, true
	case KindManual:
		return KindManual, true
	default:
		return KindPermit, false
	}
}

// Coordinates is a geocoding result.
type Coordinates struct {
	Lat float64
	Lon float64
}

// RawLeadInput is one record as delivered by a crawler or workflow tool.
// Pointer fields are nil when the caller did not supply them. Tags follow the
// same rule: nil means "not supplied", an empty slice means "clear".
type RawLeadInput struct {
	Source     string
	Kind       Kind
	RawAddress string

	PermitNumber   *string
	PermitType     *string
	Status         *string
	IssueDate      *time.Time
	ContractorName *string
	OwnerName      *string
	ParcelID       *string
	County         *string
	Town           *string
	EstValue       *float64
	LotAcres       *float64
	YearBuilt      *int

	// Pre-structured address; used as-is when Street, City and Zip are all present.
	Street *string
	City   *string
	State  *string
	Zip    *string

	Lat *float64
	Lon *float64

	Notes *string
	Tags  []string
}

// HasStructuredAddress reports whether the caller already split the address.
func (r RawLeadInput) HasStructuredAddress() bool {
	return nonBlank(r.Street) && nonBlank(r.City) && nonBlank(r.Zip)
}

// Lead is the stored, deduplicated record.
type Lead struct {
	ID         uuid.UUID
	Source     string
	Kind       Kind
	RawAddress string

	Street       string
	City         string
	State        string
	Zip          string
	CanonicalKey string

	PermitNumber   *string
	PermitType     *string
	Status         *string
	IssueDate      *time.Time
	ContractorName *string
	OwnerName      *string
	ParcelID       *string
	County         *string
	Town           *string
	EstValue       *float64
	LotAcres       *float64
	YearBuilt      *int
	Lat            *float64
	Lon            *float64

	Score          int
	ScoreUpdatedAt time.Time

	Notes *string
	Tags  []string

	FirstSeen time.Time
	LastSeen  time.Time
}

// HasCoordinates reports whether both lat and lon are known.
func (l Lead) HasCoordinates() bool {
	return l.Lat != nil && l.Lon != nil
}

// Source is a crawl target in the registry.
type Source struct {
	ID         uuid.UUID
	Name       string
	Slug       string
	URL        string
	Type       string
	County     *string
	Town       *string
	Active     bool
	LastRun    *time.Time
	LastStatus *string
	CreatedAt  time.Time
}

// SourceTypes lists the accepted registry types.
var SourceTypes = []string{"permit", "assessor", "builder", "other"}

func nonBlank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
