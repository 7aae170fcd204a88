package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func runLeadctl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--jurisdiction", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	out, err := runLeadctl(t, "parse", "12 Main St, Princeton, NJ 08540")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	var got parseOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("parse output is not JSON: %v (%s)", err, out)
	}
	if got.Street != "12 Main St" || got.City != "Princeton" || got.State != "NJ" || got.Zip != "08540" {
		t.Fatalf("unexpected parse %+v", got)
	}
	if got.CanonicalKey != "12mainst_princeton_08540" {
		t.Fatalf("unexpected key %q", got.CanonicalKey)
	}
	if got.GeocodeQuery != "12 Main St, Princeton, NJ 08540" {
		t.Fatalf("unexpected geocode query %q", got.GeocodeQuery)
	}
}

func TestKeyCommand(t *testing.T) {
	out, err := runLeadctl(t, "key", "7 Elm Rd.", "Hopewell", "08525")
	if err != nil {
		t.Fatalf("key failed: %v", err)
	}
	if strings.TrimSpace(out) != "7elmrd_hopewell_08525" {
		t.Fatalf("unexpected key %q", out)
	}

	if _, err := runLeadctl(t, "key", "only-two", "args"); err == nil {
		t.Fatalf("expected argument error")
	}
}

func TestScoreCommand(t *testing.T) {
	out, err := runLeadctl(t, "score",
		"--lot-acres", "0.25",
		"--issue-date", "2024-03-01",
		"--est-value", "750000",
		"--status", " final ",
		"--at", "2024-03-20",
	)
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}

	var got struct {
		Score   int
		Factors map[string]int
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("score output is not JSON: %v (%s)", err, out)
	}
	if got.Score != 6 || len(got.Factors) != 4 {
		t.Fatalf("unexpected score %+v", got)
	}

	// the same permit a year later is no longer recent
	out, err = runLeadctl(t, "score", "--issue-date", "2024-03-01", "--at", "2025-03-20T00:00:00Z")
	if err != nil {
		t.Fatalf("score failed: %v", err)
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil || got.Score != 0 {
		t.Fatalf("expected stale permit to score 0, got %s (%v)", out, err)
	}
}

func TestScoreCommandRejectsBadDates(t *testing.T) {
	if _, err := runLeadctl(t, "score", "--issue-date", "03/01/2024"); err == nil {
		t.Fatalf("expected error for bad issue date")
	}
	if _, err := runLeadctl(t, "score", "--at", "tomorrow"); err == nil {
		t.Fatalf("expected error for bad --at")
	}
}
