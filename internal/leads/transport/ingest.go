package transport

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"permitleads_backend/internal/leads/domain"
)

// LeadRecord is one ingestion item as posted by the crawler pipeline, n8n or
// the webhook. Every ingestion route decodes into it.
type LeadRecord struct {
	Source         string   `json:"source" validate:"notblank,max=200"`
	Kind           string   `json:"kind,omitempty" validate:"omitempty,oneof=permit builder assessor manual"`
	RawAddress     string   `json:"rawAddress" validate:"required,min=3,max=500"`
	PermitNumber   *string  `json:"permitNumber,omitempty" validate:"omitempty,max=100"`
	PermitType     *string  `json:"permitType,omitempty" validate:"omitempty,max=200"`
	Status         *string  `json:"status,omitempty" validate:"omitempty,max=50"`
	IssueDate      *string  `json:"issueDate,omitempty"`
	ContractorName *string  `json:"contractorName,omitempty" validate:"omitempty,max=200"`
	OwnerName      *string  `json:"ownerName,omitempty" validate:"omitempty,max=200"`
	ParcelID       *string  `json:"parcelId,omitempty" validate:"omitempty,max=100"`
	County         *string  `json:"county,omitempty" validate:"omitempty,max=100"`
	Town           *string  `json:"town,omitempty" validate:"omitempty,max=100"`
	EstValue       *float64 `json:"estValue,omitempty" validate:"omitempty,gte=0"`
	LotAcres       *float64 `json:"lotAcres,omitempty" validate:"omitempty,gte=0"`
	YearBuilt      *int     `json:"yearBuilt,omitempty" validate:"omitempty,gte=1600,lte=2200"`
	Street         *string  `json:"street,omitempty" validate:"omitempty,max=200"`
	City           *string  `json:"city,omitempty" validate:"omitempty,max=100"`
	State          *string  `json:"state,omitempty" validate:"omitempty,max=20"`
	Zip            *string  `json:"zip,omitempty" validate:"omitempty,max=10"`
	Lat            *float64 `json:"lat,omitempty" validate:"omitempty,latitude"`
	Lon            *float64 `json:"lon,omitempty" validate:"omitempty,longitude"`
	Notes          *string  `json:"notes,omitempty" validate:"omitempty,max=4000"`
	Tags           []string `json:"tags,omitempty" validate:"omitempty,max=50,dive,max=50"`
}

var ErrStructuredAddressRequired = errors.New("street, city and zip are required")

// RequireStructured rejects records that do not carry a pre-split address.
func (r LeadRecord) RequireStructured() error {
	for _, part := range []*string{r.Street, r.City, r.Zip} {
		if part == nil || strings.TrimSpace(*part) == "" {
			return ErrStructuredAddressRequired
		}
	}
	return nil
}

// ToRawInput converts the wire record to the ingestion input. Blank optional
// strings count as not supplied and unparseable issue dates are dropped.
func (r LeadRecord) ToRawInput() domain.RawLeadInput {
	kind, _ := domain.ParseKind(r.Kind)
	return domain.RawLeadInput{
		Source:         strings.TrimSpace(r.Source),
		Kind:           kind,
		RawAddress:     strings.TrimSpace(r.RawAddress),
		PermitNumber:   optionalString(r.PermitNumber),
		PermitType:     optionalString(r.PermitType),
		Status:         optionalString(r.Status),
		IssueDate:      ParseIssueDate(r.IssueDate),
		ContractorName: optionalString(r.ContractorName),
		OwnerName:      optionalString(r.OwnerName),
		ParcelID:       optionalString(r.ParcelID),
		County:         optionalString(r.County),
		Town:           optionalString(r.Town),
		EstValue:       r.EstValue,
		LotAcres:       r.LotAcres,
		YearBuilt:      r.YearBuilt,
		Street:         optionalString(r.Street),
		City:           optionalString(r.City),
		State:          optionalString(r.State),
		Zip:            optionalString(r.Zip),
		Lat:            r.Lat,
		Lon:            r.Lon,
		Notes:          optionalString(r.Notes),
		Tags:           r.Tags,
	}
}

var issueDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseIssueDate accepts the date formats permit portals publish. Anything
// else yields nil rather than an error. Only the calendar day is kept, since
// issue_date is stored as a DATE and later rescoring reads it back from there.
func ParseIssueDate(value *string) *time.Time {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	for _, layout := range issueDateLayouts {
		if parsed, err := time.Parse(layout, trimmed); err == nil {
			day := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
			return &day
		}
	}
	return nil
}

// WebhookBatchRequest is the n8n batch envelope.
type WebhookBatchRequest struct {
	Leads []LeadRecord `json:"leads"`
}

type IngestResult struct {
	Index        int       `json:"index"`
	ID           uuid.UUID `json:"id"`
	CanonicalKey string    `json:"canonicalKey"`
	Action       string    `json:"action"`
}

type IngestFailure struct {
	Index      int    `json:"index"`
	Source     string `json:"source"`
	RawAddress string `json:"rawAddress"`
	Error      string `json:"error"`
}

type IngestResponse struct {
	Success  bool            `json:"success"`
	BatchID  uuid.UUID       `json:"batchId"`
	Count    int             `json:"count"`
	Results  []IngestResult  `json:"results"`
	Failures []IngestFailure `json:"failures"`
}

type WebhookLeadResponse struct {
	Success bool      `json:"success"`
	Action  string    `json:"action"`
	ID      uuid.UUID `json:"id"`
}

type IngestHealthResponse struct {
	OK    bool            `json:"ok"`
	DB    HealthComponent `json:"db"`
	Admin bool            `json:"admin"`
}

type HealthComponent struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}
