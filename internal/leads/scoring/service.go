package scoring

import (
	"strings"
	"time"

	"permitleads_backend/platform/config"
)

const (
	// scoreVersion tracks the scoring model for debugging and analysis.
	// Bump this when changing scoring logic.
	scoreVersion = "permit-2026-v1"

	minScore = 0
)

// Factor keys reported in Result.Factors.
const (
	FactorLotSize      = "lot_size"
	FactorRecentIssue  = "recent_issue"
	FactorValueOrBuild = "value_or_new_build"
	FactorFinalStatus  = "final_status"
)

// Signals are the lead fields that influence the score. Nil means unknown and
// never contributes points.
type Signals struct {
	LotAcres  *float64
	IssueDate *time.Time
	EstValue  *float64
	YearBuilt *int
	Status    *string
}

// Result holds scoring output and factor details.
type Result struct {
	Score       int
	Factors     map[string]int
	Version     string
	EvaluatedAt time.Time
}

// Service computes lead scores.
type Service struct {
	profile config.ScoringProfile
	now     func() time.Time
}

// New creates a scoring service. now is the clock used by Score; pass nil for time.Now.
func New(profile config.ScoringProfile, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{profile: profile, now: now}
}

// Score evaluates signals at the service clock's current instant.
func (s *Service) Score(sig Signals) Result {
	return s.Evaluate(sig, s.now())
}

// Now exposes the service clock so callers stamp records with the same instant.
func (s *Service) Now() time.Time {
	return s.now()
}

// Evaluate is the pure scoring function: the same signals and instant always
// produce the same result.
func (s *Service) Evaluate(sig Signals, now time.Time) Result {
	factors := make(map[string]int, 4)
	total := 0

	total += addFactor(factors, FactorLotSize, s.scoreLotSize(sig.LotAcres))
	total += addFactor(factors, FactorRecentIssue, s.scoreRecentIssue(sig.IssueDate, now))
	total += addFactor(factors, FactorValueOrBuild, s.scoreValueOrBuild(sig.EstValue, sig.YearBuilt, now))
	total += addFactor(factors, FactorFinalStatus, s.scoreStatus(sig.Status))

	return Result{
		Score:       clampScore(total, s.profile.MaxScore),
		Factors:     factors,
		Version:     scoreVersion,
		EvaluatedAt: now,
	}
}

// scoreLotSize rewards parcels large enough for an addition or rebuild.
func (s *Service) scoreLotSize(acres *float64) int {
	if acres == nil || *acres < s.profile.MinLotAcres {
		return 0
	}
	return s.profile.LotPoints
}

// scoreRecentIssue rewards permits issued inside the recency window before now.
// Dates after now are treated as bad data and earn nothing.
func (s *Service) scoreRecentIssue(issued *time.Time, now time.Time) int {
	if issued == nil || issued.IsZero() {
		return 0
	}
	age := now.Sub(*issued)
	window := time.Duration(s.profile.RecentIssueDays) * 24 * time.Hour
	if age < 0 || age > window {
		return 0
	}
	return s.profile.RecentPoints
}

// scoreValueOrBuild awards a single point for either a high valuation or a
// freshly built structure. The two never stack.
func (s *Service) scoreValueOrBuild(estValue *float64, yearBuilt *int, now time.Time) int {
	if estValue != nil && *estValue >= s.profile.MinEstimatedValue {
		return s.profile.ValuePoints
	}
	if yearBuilt != nil && *yearBuilt >= now.Year()-s.profile.NewBuildYears {
		return s.profile.ValuePoints
	}
	return 0
}

func (s *Service) scoreStatus(status *string) int {
	if status == nil {
		return 0
	}
	normalized := strings.TrimSpace(*status)
	for _, final := range s.profile.FinalStatuses {
		if strings.EqualFold(normalized, final) {
			return s.profile.StatusPoints
		}
	}
	return 0
}

func addFactor(factors map[string]int, key string, value int) int {
	if value == 0 {
		return 0
	}
	factors[key] = value
	return value
}

func clampScore(value, maxScore int) int {
	if value < minScore {
		return minScore
	}
	if value > maxScore {
		return maxScore
	}
	return value
}
