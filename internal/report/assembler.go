package report

import (
	"fmt"
	"math"
	"time"

	"github.com/writeitgreat/proposal-eval/internal/models"
	"github.com/writeitgreat/proposal-eval/internal/scoring"
)

// Assemble projects an aggregate result and submission metadata into the
// ordered record the external renderer consumes. Pure; an error here means an
// internal inconsistency between the submission and its result.
func Assemble(sub *models.Submission, agg *models.AggregateResult) (*models.ReportRecord, error) {
	if agg == nil || len(agg.Categories) == 0 {
		return nil, fmt.Errorf("aggregate result for %s has no categories", sub.ID)
	}

	categories := make([]models.ReportCategory, 0, len(agg.Categories))
	for _, c := range agg.Categories {
		categories = append(categories, models.ReportCategory{
			Name:           c.Name,
			Score:          c.Score,
			Weight:         c.Weight,
			WeightedPoints: math.Round(c.Score*c.Weight*10) / 10,
			Rationale:      c.Rationale,
		})
	}

	return &models.ReportRecord{
		SubmissionID:    sub.ID,
		AuthorName:      sub.AuthorName,
		AuthorEmail:     sub.AuthorEmail,
		BookTitle:       sub.BookTitle,
		SubmissionType:  sub.SubmissionType,
		OverallScore:    agg.OverallScore,
		Tier:            agg.Tier,
		TierDescription: scoring.TierDescription(agg.Tier),
		Categories:      categories,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}
