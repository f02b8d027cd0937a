package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/writeitgreat/proposal-eval/internal/assessor"
	"github.com/writeitgreat/proposal-eval/internal/config"
	"github.com/writeitgreat/proposal-eval/internal/extractor"
	"github.com/writeitgreat/proposal-eval/internal/judge"
	"github.com/writeitgreat/proposal-eval/internal/models"
	"github.com/writeitgreat/proposal-eval/internal/notify"
	"github.com/writeitgreat/proposal-eval/internal/report"
	"github.com/writeitgreat/proposal-eval/internal/repository"
	"github.com/writeitgreat/proposal-eval/internal/scoring"
	"github.com/writeitgreat/proposal-eval/internal/storage"
	"github.com/writeitgreat/proposal-eval/internal/utils"
)

// ReasonRetryBudgetExhausted marks a submission whose assessment retries ran
// past the wall-clock budget protecting the status-polling contract.
const ReasonRetryBudgetExhausted = "RETRY_BUDGET_EXHAUSTED"

const reasonWeightSchemeCorrupt = "WEIGHT_SCHEME_CORRUPT"

// Pipeline is the submission lifecycle manager. It sequences extraction,
// assessment, aggregation, and report assembly, committing every state
// transition to the durable store before the next stage begins.
type Pipeline struct {
	repo      repository.Repository
	storage   storage.Storage
	extractor *extractor.Extractor
	assessor  *assessor.Assessor
	team      notify.TeamNotifier
	reports   notify.ReportSink
	logger    *utils.Logger

	maxAttempts int
	backoffBase time.Duration
	retryBudget time.Duration
}

func New(
	repo repository.Repository,
	store storage.Storage,
	ext *extractor.Extractor,
	assess *assessor.Assessor,
	team notify.TeamNotifier,
	reports notify.ReportSink,
	cfg *config.Config,
	logger *utils.Logger,
) *Pipeline {
	return &Pipeline{
		repo:        repo,
		storage:     store,
		extractor:   ext,
		assessor:    assess,
		team:        team,
		reports:     reports,
		logger:      logger,
		maxAttempts: cfg.AssessMaxAttempts,
		backoffBase: cfg.AssessBackoffBase,
		retryBudget: cfg.AssessRetryBudget,
	}
}

// Run drives a submission from its last committed state to a terminal one.
// Safe to call on a freshly created submission, after a process restart, or
// after an operator retry: it dispatches on whatever state the store holds.
// A repository.ErrStaleState return means another worker holds the submission.
func (p *Pipeline) Run(ctx context.Context, id string) error {
	// Extracted text lives only for the duration of this run. When resuming
	// mid-pipeline the extraction stage output is recomputed from the stored
	// document.
	var text string

	for {
		sub, err := p.repo.GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to load submission %s: %w", id, err)
		}
		if sub == nil {
			return fmt.Errorf("submission %s not found", id)
		}

		switch sub.State {
		case models.StateReceived:
			if err := p.repo.Transition(ctx, id, models.StateReceived, models.StateExtracting); err != nil {
				return err
			}

		case models.StateExtracting:
			text, err = p.runExtraction(ctx, sub)
			if err != nil {
				return err
			}

		case models.StateAssessing:
			if text == "" {
				// Resumed run: the text was never persisted, re-derive it.
				text, err = p.reextract(ctx, sub)
				if err != nil {
					return err
				}
				if text == "" {
					continue // extraction failed, row is now FAILED
				}
			}
			if err := p.runAssessment(ctx, sub, text); err != nil {
				return err
			}

		case models.StateAggregating:
			if err := p.runAggregation(ctx, sub); err != nil {
				return err
			}

		case models.StateReporting:
			if err := p.runReporting(ctx, sub); err != nil {
				return err
			}

		case models.StateComplete, models.StateFailed:
			return nil

		default:
			return fmt.Errorf("submission %s in unknown state %q", id, sub.State)
		}
	}
}

// Start launches a pipeline run for a submission in the background. The run
// is detached from the caller's context: a client that stops polling never
// cancels work already in progress.
func (p *Pipeline) Start(id string) {
	go func() {
		if err := p.Run(context.Background(), id); err != nil && !errors.Is(err, repository.ErrStaleState) {
			p.logger.Error("Pipeline run failed", "submission_id", id, "error", err)
		}
	}()
}

// BeginRetry commits the operator-triggered FAILED → failed-stage rollback,
// then resumes the run in the background. Returns repository.ErrStaleState if
// the submission is not currently FAILED.
func (p *Pipeline) BeginRetry(ctx context.Context, id string) error {
	sub, err := p.repo.Retry(ctx, id)
	if err != nil {
		return err
	}

	p.logger.Info("Operator retry", "submission_id", id, "resumed_state", sub.State)
	p.Start(sub.ID)
	return nil
}

// ResumeAll re-drives every submission left in a non-terminal state, e.g.
// after a process restart.
func (p *Pipeline) ResumeAll(ctx context.Context) error {
	subs, err := p.repo.ListInFlight(ctx)
	if err != nil {
		return err
	}

	for _, sub := range subs {
		p.logger.Info("Resuming submission", "submission_id", sub.ID, "state", sub.State)
		go func(id string) {
			if err := p.Run(context.WithoutCancel(ctx), id); err != nil && !errors.Is(err, repository.ErrStaleState) {
				p.logger.Error("Resumed pipeline run failed", "submission_id", id, "error", err)
			}
		}(sub.ID)
	}

	return nil
}

func (p *Pipeline) runExtraction(ctx context.Context, sub *models.Submission) (string, error) {
	data, err := p.storage.Download(ctx, sub.DocumentKey)
	if err != nil {
		p.logger.Error("Failed to fetch document", "submission_id", sub.ID, "error", err)
		return "", p.repo.Fail(ctx, sub.ID, models.StateExtracting, string(extractor.ReasonUnknown))
	}

	extracted, failure := p.extractor.Extract(data, sub.DeclaredFormat)
	if failure != nil {
		// Extraction failures are not auto-retried: identical bytes produce
		// the identical failure. The author has to re-upload.
		p.logger.Warn("Extraction failed",
			"submission_id", sub.ID,
			"reason", failure.Reason,
			"error", failure.Err)
		return "", p.repo.Fail(ctx, sub.ID, models.StateExtracting, string(failure.Reason))
	}

	if err := p.repo.RecordExtraction(ctx, sub.ID, extracted.CharCount); err != nil {
		return "", err
	}

	p.logger.Info("Extraction complete", "submission_id", sub.ID, "text_chars", extracted.CharCount)

	if err := p.repo.Transition(ctx, sub.ID, models.StateExtracting, models.StateAssessing); err != nil {
		return "", err
	}

	return extracted.Text, nil
}

// reextract recomputes the plain text for a run resumed at ASSESSING. An
// extraction failure here fails the submission at its current stage.
func (p *Pipeline) reextract(ctx context.Context, sub *models.Submission) (string, error) {
	data, err := p.storage.Download(ctx, sub.DocumentKey)
	if err != nil {
		return "", p.repo.Fail(ctx, sub.ID, sub.State, string(extractor.ReasonUnknown))
	}

	extracted, failure := p.extractor.Extract(data, sub.DeclaredFormat)
	if failure != nil {
		return "", p.repo.Fail(ctx, sub.ID, sub.State, string(failure.Reason))
	}

	return extracted.Text, nil
}

func (p *Pipeline) runAssessment(ctx context.Context, sub *models.Submission, text string) error {
	meta := assessor.Metadata{AuthorName: sub.AuthorName, BookTitle: sub.BookTitle}
	start := time.Now()

	var lastFailure *judge.Failure
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := p.backoffDelay(attempt)
			if time.Since(start)+delay > p.retryBudget {
				p.logger.Warn("Assessment retry budget exhausted",
					"submission_id", sub.ID,
					"attempts", attempt,
					"elapsed", time.Since(start))
				return p.repo.Fail(ctx, sub.ID, models.StateAssessing, ReasonRetryBudgetExhausted)
			}

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}

			if err := p.repo.RecordRetryCount(ctx, sub.ID, attempt); err != nil {
				return err
			}
		}

		results, failure := p.assessor.Assess(ctx, text, meta, sub.SubmissionType)
		if failure == nil {
			if err := p.repo.SaveCategoryResults(ctx, sub.ID, results); err != nil {
				return err
			}
			p.logger.Info("Assessment complete",
				"submission_id", sub.ID,
				"categories", len(results),
				"attempts", attempt+1)
			return p.repo.Transition(ctx, sub.ID, models.StateAssessing, models.StateAggregating)
		}

		lastFailure = failure
		p.logger.Warn("Assessment attempt failed",
			"submission_id", sub.ID,
			"attempt", attempt+1,
			"reason", failure.Reason)
	}

	return p.repo.Fail(ctx, sub.ID, models.StateAssessing, string(lastFailure.Reason))
}

func (p *Pipeline) runAggregation(ctx context.Context, sub *models.Submission) error {
	results, err := p.repo.GetCategoryResults(ctx, sub.ID)
	if err != nil {
		return err
	}

	agg, err := scoring.Aggregate(results)
	if err != nil {
		if errors.Is(err, scoring.ErrWeightSchemeCorrupt) {
			// A weight mismatch is a configuration defect, never silently
			// normalized. Surfaced to operators distinctly from user-facing
			// failures.
			p.logger.Error("Weight scheme integrity violation",
				"submission_id", sub.ID,
				"submission_type", sub.SubmissionType,
				"integrity_alert", true)
			return p.repo.Fail(ctx, sub.ID, models.StateAggregating, reasonWeightSchemeCorrupt)
		}
		return err
	}

	if err := p.repo.SaveAggregate(ctx, sub.ID, agg); err != nil {
		return err
	}

	p.logger.Info("Aggregation complete",
		"submission_id", sub.ID,
		"overall_score", agg.OverallScore,
		"tier", agg.Tier)

	return p.repo.Transition(ctx, sub.ID, models.StateAggregating, models.StateReporting)
}

func (p *Pipeline) runReporting(ctx context.Context, sub *models.Submission) error {
	agg, err := p.repo.GetAggregate(ctx, sub.ID)
	if err != nil {
		return err
	}

	// Assembly is a pure transform, so a failure implies a defect. One retry,
	// then fail.
	rec, err := report.Assemble(sub, agg)
	if err != nil {
		p.logger.Warn("Report assembly failed, retrying once", "submission_id", sub.ID, "error", err)
		rec, err = report.Assemble(sub, agg)
		if err != nil {
			p.logger.Error("Report assembly failed", "submission_id", sub.ID, "error", err)
			return p.repo.Fail(ctx, sub.ID, models.StateReporting, "REPORT_ASSEMBLY_FAILED")
		}
	}

	if err := p.repo.SaveReport(ctx, sub.ID, rec); err != nil {
		return err
	}

	if err := p.repo.Transition(ctx, sub.ID, models.StateReporting, models.StateComplete); err != nil {
		return err
	}

	p.emitTerminalEvents(ctx, sub, rec)
	return nil
}

func (p *Pipeline) emitTerminalEvents(ctx context.Context, sub *models.Submission, rec *models.ReportRecord) {
	if err := p.reports.ReportReady(ctx, models.ReportReadyEvent{
		SubmissionID: sub.ID,
		Report:       rec,
	}); err != nil {
		p.logger.Error("Failed to emit report-ready event", "submission_id", sub.ID, "error", err)
	}

	// Notification is best-effort: a failure here never moves the submission
	// out of COMPLETE.
	if err := p.team.NotifyTeam(ctx, models.NotifyTeamEvent{
		SubmissionID: sub.ID,
		AuthorName:   sub.AuthorName,
		AuthorEmail:  sub.AuthorEmail,
		BookTitle:    sub.BookTitle,
		OverallScore: rec.OverallScore,
		Tier:         rec.Tier,
	}); err != nil {
		p.logger.Error("Failed to notify team", "submission_id", sub.ID, "error", err)
	}
}

func (p *Pipeline) backoffDelay(attempt int) time.Duration {
	d := p.backoffBase << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	return d + jitter
}
