package scoring

import (
	"errors"
	"math"
	"time"

	"github.com/writeitgreat/proposal-eval/internal/models"
)

// ErrWeightSchemeCorrupt indicates the weights attached to a result set do not
// sum to 1.0. This is an internal-consistency defect, never normalized away.
var ErrWeightSchemeCorrupt = errors.New("WEIGHT_SCHEME_CORRUPT: category weights do not sum to 1.0")

// Aggregate combines per-category results into a weighted overall score and a
// tier. Pure and deterministic: no clock besides the computed timestamp, no
// external calls.
func Aggregate(results []models.CategoryResult) (*models.AggregateResult, error) {
	if len(results) == 0 {
		return nil, ErrWeightSchemeCorrupt
	}

	weightSum := 0.0
	for _, r := range results {
		weightSum += r.Weight
	}
	if math.Abs(weightSum-1.0) > WeightTolerance {
		return nil, ErrWeightSchemeCorrupt
	}

	total := 0.0
	for _, r := range results {
		total += r.Score * r.Weight
	}
	overall := math.Round(total*10) / 10

	return &models.AggregateResult{
		OverallScore: overall,
		Tier:         Tier(overall),
		Categories:   results,
		ComputedAt:   time.Now().UTC(),
	}, nil
}

// Tier maps an overall score onto the A-D partition. Boundaries are inclusive
// lower bounds: 85.0 is A, 70.0 is B, 50.0 is C.
func Tier(score float64) string {
	switch {
	case score >= 85:
		return "A"
	case score >= 70:
		return "B"
	case score >= 50:
		return "C"
	default:
		return "D"
	}
}

// TierDescription is the report copy for a tier.
func TierDescription(tier string) string {
	switch tier {
	case "A":
		return "Exceptional - Ready for top-tier publishers"
	case "B":
		return "Strong - Minor improvements recommended"
	case "C":
		return "Promising - Significant work needed"
	case "D":
		return "Needs Development - Major revisions required"
	}
	return "Unknown"
}
