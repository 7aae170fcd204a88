package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Jurisdiction describes the region the pipeline is deployed for: which states the
// address parser recognises, the placeholders it falls back to, and the scoring thresholds.
type Jurisdiction struct {
	States       []string       `yaml:"states"`
	DefaultState string         `yaml:"default_state"`
	DefaultZip   string         `yaml:"default_zip"`
	UnknownCity  string         `yaml:"unknown_city"`
	Scoring      ScoringProfile `yaml:"scoring"`
}

// ScoringProfile holds the lead scoring thresholds and weights.
type ScoringProfile struct {
	MinLotAcres       float64  `yaml:"min_lot_acres"`
	LotPoints         int      `yaml:"lot_points"`
	RecentIssueDays   int      `yaml:"recent_issue_days"`
	RecentPoints      int      `yaml:"recent_points"`
	MinEstimatedValue float64  `yaml:"min_estimated_value"`
	NewBuildYears     int      `yaml:"new_build_years"`
	ValuePoints       int      `yaml:"value_points"`
	FinalStatuses     []string `yaml:"final_statuses"`
	StatusPoints      int      `yaml:"status_points"`
	MaxScore          int      `yaml:"max_score"`
}

// DefaultJurisdiction returns the New Jersey tri-state setup the pipeline was built for.
func DefaultJurisdiction() Jurisdiction {
	return Jurisdiction{
		States:       []string{"NJ", "NY", "PA"},
		DefaultState: "NJ",
		DefaultZip:   "00000",
		UnknownCity:  "Unknown",
		Scoring: ScoringProfile{
			MinLotAcres:       0.09,
			LotPoints:         2,
			RecentIssueDays:   180,
			RecentPoints:      2,
			MinEstimatedValue: 500000,
			NewBuildYears:     1,
			ValuePoints:       1,
			FinalStatuses:     []string{"FINAL", "CO", "ISSUED"},
			StatusPoints:      1,
			MaxScore:          10,
		},
	}
}

// LoadJurisdiction reads a YAML jurisdiction file. Keys missing from the file keep
// their default value; a missing file yields the defaults unchanged.
func LoadJurisdiction(path string) (Jurisdiction, error) {
	j := DefaultJurisdiction()
	if strings.TrimSpace(path) == "" {
		return j, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return j, nil
	}
	if err != nil {
		return Jurisdiction{}, fmt.Errorf("read jurisdiction file: %w", err)
	}

	return ParseJurisdiction(data)
}

// ParseJurisdiction decodes YAML on top of the defaults and validates the result.
func ParseJurisdiction(data []byte) (Jurisdiction, error) {
	j := DefaultJurisdiction()
	if err := yaml.Unmarshal(data, &j); err != nil {
		return Jurisdiction{}, fmt.Errorf("parse jurisdiction file: %w", err)
	}

	j.DefaultState = strings.ToUpper(strings.TrimSpace(j.DefaultState))
	states := make([]string, 0, len(j.States))
	for _, s := range j.States {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			states = append(states, s)
		}
	}
	j.States = states

	if err := j.Validate(); err != nil {
		return Jurisdiction{}, err
	}
	return j, nil
}

// Validate reports configuration that would make parsing or scoring meaningless.
func (j Jurisdiction) Validate() error {
	if len(j.States) == 0 {
		return fmt.Errorf("jurisdiction: at least one state is required")
	}
	for _, s := range j.States {
		if len(s) != 2 {
			return fmt.Errorf("jurisdiction: state %q must be a two-letter code", s)
		}
	}
	if j.DefaultState == "" || j.DefaultZip == "" || j.UnknownCity == "" {
		return fmt.Errorf("jurisdiction: default_state, default_zip and unknown_city are required")
	}
	if j.Scoring.MaxScore <= 0 {
		return fmt.Errorf("jurisdiction: scoring.max_score must be positive")
	}
	if j.Scoring.RecentIssueDays < 0 || j.Scoring.NewBuildYears < 0 {
		return fmt.Errorf("jurisdiction: scoring windows must not be negative")
	}
	return nil
}
