package management

import (
	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/transport"
)

// ToLeadResponse renders issue dates as plain calendar dates.
func ToLeadResponse(lead domain.Lead) transport.LeadResponse {
	var issueDate *string
	if lead.IssueDate != nil {
		formatted := lead.IssueDate.Format("2006-01-02")
		issueDate = &formatted
	}
	tags := lead.Tags
	if tags == nil {
		tags = []string{}
	}

	return transport.LeadResponse{
		ID:             lead.ID,
		Source:         lead.Source,
		Kind:           string(lead.Kind),
		RawAddress:     lead.RawAddress,
		Street:         lead.Street,
		City:           lead.City,
		State:          lead.State,
		Zip:            lead.Zip,
		CanonicalKey:   lead.CanonicalKey,
		PermitNumber:   lead.PermitNumber,
		PermitType:     lead.PermitType,
		Status:         lead.Status,
		IssueDate:      issueDate,
		ContractorName: lead.ContractorName,
		OwnerName:      lead.OwnerName,
		ParcelID:       lead.ParcelID,
		County:         lead.County,
		Town:           lead.Town,
		EstValue:       lead.EstValue,
		LotAcres:       lead.LotAcres,
		YearBuilt:      lead.YearBuilt,
		Lat:            lead.Lat,
		Lon:            lead.Lon,
		Score:          lead.Score,
		ScoreUpdatedAt: lead.ScoreUpdatedAt,
		Notes:          lead.Notes,
		Tags:           tags,
		FirstSeen:      lead.FirstSeen,
		LastSeen:       lead.LastSeen,
	}
}
