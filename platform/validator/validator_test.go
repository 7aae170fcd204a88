package validator

import (
	"strings"
	"testing"
)

type sample struct {
	Source     string `json:"source" validate:"required,notblank"`
	RawAddress string `json:"rawAddress" validate:"required,min=3"`
}

func TestNotBlankRejectsWhitespace(t *testing.T) {
	v := New()
	err := v.Struct(sample{Source: "   ", RawAddress: "12 Main St"})
	if err == nil {
		t.Fatalf("expected whitespace source to fail")
	}
	if msg := Describe(err); !strings.Contains(msg, "source: notblank") {
		t.Fatalf("expected json field name in message, got %q", msg)
	}
}

func TestDescribeIncludesParam(t *testing.T) {
	v := New()
	err := v.Struct(sample{Source: "town", RawAddress: "ab"})
	if err == nil {
		t.Fatalf("expected short address to fail")
	}
	if msg := Describe(err); msg != "rawAddress: min=3" {
		t.Fatalf("unexpected message %q", msg)
	}
}
