package transport

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

// Request DTOs
type ListLeadsRequest struct {
	Search   string `form:"search" validate:"max=200"`
	MinScore *int   `form:"minScore" validate:"omitempty,min=0,max=10"`
	DateFrom string `form:"dateFrom" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"dateTo" validate:"omitempty,datetime=2006-01-02"`
	County   string `form:"county" validate:"max=100"`
	Town     string `form:"town" validate:"max=100"`
	Source   string `form:"source" validate:"max=200"`
	Status   string `form:"status" validate:"max=50"`
	Limit    int    `form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset   int    `form:"offset" validate:"omitempty,min=0"`
}

// PatchLeadRequest carries operator edits. Absent fields are left untouched.
type PatchLeadRequest struct {
	Notes  *string         `json:"notes,omitempty" validate:"omitempty,max=4000"`
	Tags   OptionalStrings `json:"tags,omitempty" validate:"-"`
	Status *string         `json:"status,omitempty" validate:"omitempty,max=50"`
}

// Empty reports whether the request changes nothing.
func (r PatchLeadRequest) Empty() bool {
	return r.Notes == nil && !r.Tags.Set && r.Status == nil
}

// Response DTOs
type LeadResponse struct {
	ID             uuid.UUID `json:"id"`
	Source         string    `json:"source"`
	Kind           string    `json:"kind"`
	RawAddress     string    `json:"rawAddress"`
	Street         string    `json:"street"`
	City           string    `json:"city"`
	State          string    `json:"state"`
	Zip            string    `json:"zip"`
	CanonicalKey   string    `json:"canonicalKey"`
	PermitNumber   *string   `json:"permitNumber,omitempty"`
	PermitType     *string   `json:"permitType,omitempty"`
	Status         *string   `json:"status,omitempty"`
	IssueDate      *string   `json:"issueDate,omitempty"`
	ContractorName *string   `json:"contractorName,omitempty"`
	OwnerName      *string   `json:"ownerName,omitempty"`
	ParcelID       *string   `json:"parcelId,omitempty"`
	County         *string   `json:"county,omitempty"`
	Town           *string   `json:"town,omitempty"`
	EstValue       *float64  `json:"estValue,omitempty"`
	LotAcres       *float64  `json:"lotAcres,omitempty"`
	YearBuilt      *int      `json:"yearBuilt,omitempty"`
	Lat            *float64  `json:"lat,omitempty"`
	Lon            *float64  `json:"lon,omitempty"`
	Score          int       `json:"score"`
	ScoreUpdatedAt time.Time `json:"scoreUpdatedAt"`
	Notes          *string   `json:"notes,omitempty"`
	Tags           []string  `json:"tags"`
	FirstSeen      time.Time `json:"firstSeen"`
	LastSeen       time.Time `json:"lastSeen"`
}

type LeadListResponse struct {
	Data   []LeadResponse `json:"data"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
