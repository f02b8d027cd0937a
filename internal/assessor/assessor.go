package assessor

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/writeitgreat/proposal-eval/internal/judge"
	"github.com/writeitgreat/proposal-eval/internal/models"
	"github.com/writeitgreat/proposal-eval/internal/scoring"
	"github.com/writeitgreat/proposal-eval/internal/utils"
)

// Metadata is the author/book context passed through to judgment calls.
type Metadata struct {
	AuthorName string
	BookTitle  string
}

type Assessor struct {
	judge   judge.Client
	schemes *scoring.Schemes
	logger  *utils.Logger
}

func New(judgeClient judge.Client, schemes *scoring.Schemes, logger *utils.Logger) *Assessor {
	return &Assessor{judge: judgeClient, schemes: schemes, logger: logger}
}

// Assess scores every category required by the submission type. Per-category
// judgment calls run concurrently; the first failure cancels the calls still
// in flight and fails the whole set; a submission is never partially scored.
// On success, results come back in the scheme's canonical category order.
func (a *Assessor) Assess(ctx context.Context, text string, meta Metadata, submissionType models.SubmissionType) ([]models.CategoryResult, *judge.Failure) {
	scheme, err := a.schemes.For(submissionType)
	if err != nil {
		return nil, &judge.Failure{Reason: judge.ReasonInvalidResponseShape, Err: err}
	}

	results := make([]models.CategoryResult, len(scheme.Categories))

	g, gctx := errgroup.WithContext(ctx)
	for i, category := range scheme.Categories {
		g.Go(func() error {
			res, failure := a.judge.Score(gctx, judge.Request{
				CategoryKey:      category.Key,
				CategoryName:     category.Name,
				CategoryGuidance: category.Guidance,
				AuthorName:       meta.AuthorName,
				BookTitle:        meta.BookTitle,
				Text:             text,
			})
			if failure != nil {
				a.logger.Warn("Category judgment failed",
					"category", category.Key,
					"reason", failure.Reason,
					"error", failure.Err)
				return failure
			}
			results[i] = models.CategoryResult{
				Category:  category.Key,
				Name:      category.Name,
				Score:     res.Score,
				Weight:    category.Weight,
				Rationale: res.Rationale,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if failure, ok := err.(*judge.Failure); ok {
			return nil, failure
		}
		return nil, &judge.Failure{Reason: judge.ReasonServiceUnavailable, Err: err}
	}

	return results, nil
}
