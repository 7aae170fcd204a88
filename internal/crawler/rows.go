package crawler

import (
	"errors"
	"strconv"
	"strings"

	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/transport"
)

// ErrMissingAddress rejects rows whose rawAddress is absent or shorter than
// three characters.
var ErrMissingAddress = errors.New("rawAddress must be at least 3 characters")

// ToRawInput maps an extracted row to an ingestion record for src. Rows
// without a usable address return ErrMissingAddress together with whatever
// source and address were found, so the failure can still be reported.
func ToRawInput(src domain.Source, row Row) (domain.RawLeadInput, error) {
	rawAddress := text(row, "rawAddress")
	if rawAddress == nil || len(*rawAddress) < 3 {
		input := domain.RawLeadInput{Source: src.Slug}
		if rawAddress != nil {
			input.RawAddress = *rawAddress
		}
		return input, ErrMissingAddress
	}

	kind, _ := domain.ParseKind(src.Type)
	input := domain.RawLeadInput{
		Source:         src.Slug,
		Kind:           kind,
		RawAddress:     *rawAddress,
		PermitNumber:   text(row, "permitNumber"),
		PermitType:     text(row, "permitType"),
		Status:         text(row, "status"),
		IssueDate:      transport.ParseIssueDate(text(row, "issueDate")),
		ContractorName: text(row, "contractorName"),
		OwnerName:      text(row, "ownerName"),
		ParcelID:       text(row, "parcelId"),
		County:         src.County,
		Town:           src.Town,
		EstValue:       number(row, "estValue"),
		LotAcres:       number(row, "lotAcres"),
	}
	if year := number(row, "yearBuilt"); year != nil {
		y := int(*year)
		input.YearBuilt = &y
	}
	return input, nil
}

// text returns the trimmed string value of key, nil when absent or blank.
func text(row Row, key string) *string {
	var s string
	switch v := row[key].(type) {
	case string:
		s = strings.TrimSpace(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return nil
	}
	if s == "" {
		return nil
	}
	return &s
}

// number accepts JSON numbers and numeric strings such as "$1,250,000".
func number(row Row, key string) *float64 {
	switch v := row[key].(type) {
	case float64:
		return &v
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(v)
		if cleaned == "" {
			return nil
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
