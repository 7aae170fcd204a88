package transport

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestToRawInputTreatsBlankStringsAsAbsent(t *testing.T) {
	input := LeadRecord{
		Source:     "n8n",
		RawAddress: "12 Main St, Princeton, NJ 08540",
		Notes:      strPtr("   "),
		PermitType: strPtr("\t"),
	}.ToRawInput()

	if input.Notes != nil {
		t.Fatalf("blank notes must not count as supplied, got %q", *input.Notes)
	}
	if input.PermitType != nil {
		t.Fatalf("blank permit type must not count as supplied, got %q", *input.PermitType)
	}
}

func TestToRawInputTrimsNotes(t *testing.T) {
	input := LeadRecord{Source: "n8n", RawAddress: "12 Main St", Notes: strPtr("  call back Tuesday ")}.ToRawInput()
	if input.Notes == nil || *input.Notes != "call back Tuesday" {
		t.Fatalf("unexpected notes %v", input.Notes)
	}
}

func TestParseIssueDateKeepsCalendarDay(t *testing.T) {
	want := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	for _, value := range []string{
		"2024-03-15",
		"03/15/2024",
		"2024-03-15T18:45:00",
		"2024-03-15T22:30:00-05:00",
		"March 15, 2024",
	} {
		got := ParseIssueDate(strPtr(value))
		if got == nil || !got.Equal(want) {
			t.Fatalf("ParseIssueDate(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestParseIssueDateDropsUnparseable(t *testing.T) {
	for _, value := range []string{"", "  ", "soon", "2024-13-40"} {
		if got := ParseIssueDate(strPtr(value)); got != nil {
			t.Fatalf("ParseIssueDate(%q) = %v, want nil", value, got)
		}
	}
	if ParseIssueDate(nil) != nil {
		t.Fatalf("expected nil for absent date")
	}
}
