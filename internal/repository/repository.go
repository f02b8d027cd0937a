package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/writeitgreat/proposal-eval/internal/models"
)

// ErrStaleState is returned when a compare-and-set transition finds the row in
// a different state than expected, meaning another worker got there first.
var ErrStaleState = errors.New("submission state changed concurrently")

type Repository interface {
	Create(ctx context.Context, sub *models.Submission) error
	GetByID(ctx context.Context, id string) (*models.Submission, error)

	// Transition commits state `from` → `to` if and only if the row is still
	// in `from`. Returns ErrStaleState otherwise.
	Transition(ctx context.Context, id string, from, to models.State) error

	// Fail moves `from` → FAILED, recording the stage that failed and a
	// machine-readable reason code.
	Fail(ctx context.Context, id string, from models.State, reason string) error

	// Retry moves FAILED back to the recorded failed stage, clearing the
	// error. Operator-triggered only.
	Retry(ctx context.Context, id string) (*models.Submission, error)

	RecordExtraction(ctx context.Context, id string, charCount int) error
	RecordRetryCount(ctx context.Context, id string, count int) error
	SaveCategoryResults(ctx context.Context, id string, results []models.CategoryResult) error
	GetCategoryResults(ctx context.Context, id string) ([]models.CategoryResult, error)
	SaveAggregate(ctx context.Context, id string, agg *models.AggregateResult) error
	SaveReport(ctx context.Context, id string, rec *models.ReportRecord) error
	GetAggregate(ctx context.Context, id string) (*models.AggregateResult, error)
	GetReport(ctx context.Context, id string) (*models.ReportRecord, error)

	// ListInFlight returns submissions in non-terminal states, for resuming
	// after a restart.
	ListInFlight(ctx context.Context) ([]*models.Submission, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, sub *models.Submission) error {
	query := `
		INSERT INTO submissions (id, author_name, author_email, book_title, submission_type,
		                         declared_format, document_key, state, text_chars, retry_count,
		                         created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		sub.ID,
		sub.AuthorName,
		sub.AuthorEmail,
		sub.BookTitle,
		sub.SubmissionType,
		sub.DeclaredFormat,
		sub.DocumentKey,
		sub.State,
		sub.TextChars,
		sub.RetryCount,
		sub.CreatedAt,
		sub.UpdatedAt,
	)

	return err
}

func (r *repository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	var sub models.Submission

	query := `
		SELECT id, author_name, author_email, book_title, submission_type, declared_format,
		       document_key, state, failed_state, last_error, text_chars, retry_count,
		       created_at, updated_at, completed_at
		FROM submissions
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &sub, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *repository) Transition(ctx context.Context, id string, from, to models.State) error {
	query := `
		UPDATE submissions
		SET state = $3, updated_at = $4, completed_at = CASE WHEN $3 = 'COMPLETE' THEN $4 ELSE completed_at END
		WHERE id = $1 AND state = $2
	`

	res, err := r.db.ExecContext(ctx, query, id, from, to, time.Now())
	if err != nil {
		return err
	}

	return requireRow(res)
}

func (r *repository) Fail(ctx context.Context, id string, from models.State, reason string) error {
	query := `
		UPDATE submissions
		SET state = $3, failed_state = $2, last_error = $4, updated_at = $5
		WHERE id = $1 AND state = $2
	`

	res, err := r.db.ExecContext(ctx, query, id, from, models.StateFailed, reason, time.Now())
	if err != nil {
		return err
	}

	return requireRow(res)
}

func (r *repository) Retry(ctx context.Context, id string) (*models.Submission, error) {
	query := `
		UPDATE submissions
		SET state = failed_state, failed_state = NULL, last_error = NULL, updated_at = $2
		WHERE id = $1 AND state = $3 AND failed_state IS NOT NULL
	`

	res, err := r.db.ExecContext(ctx, query, id, time.Now(), models.StateFailed)
	if err != nil {
		return nil, err
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

func (r *repository) RecordExtraction(ctx context.Context, id string, charCount int) error {
	query := `UPDATE submissions SET text_chars = $2, updated_at = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, charCount, time.Now())
	return err
}

func (r *repository) RecordRetryCount(ctx context.Context, id string, count int) error {
	query := `UPDATE submissions SET retry_count = $2, updated_at = $3 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, count, time.Now())
	return err
}

func (r *repository) SaveCategoryResults(ctx context.Context, id string, results []models.CategoryResult) error {
	return r.saveJSON(ctx, id, "category_results", results)
}

func (r *repository) GetCategoryResults(ctx context.Context, id string) ([]models.CategoryResult, error) {
	var results []models.CategoryResult
	if err := r.loadJSON(ctx, id, "category_results", &results); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *repository) SaveAggregate(ctx context.Context, id string, agg *models.AggregateResult) error {
	return r.saveJSON(ctx, id, "aggregate_result", agg)
}

func (r *repository) SaveReport(ctx context.Context, id string, rec *models.ReportRecord) error {
	return r.saveJSON(ctx, id, "report", rec)
}

func (r *repository) GetAggregate(ctx context.Context, id string) (*models.AggregateResult, error) {
	var agg models.AggregateResult
	if err := r.loadJSON(ctx, id, "aggregate_result", &agg); err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *repository) GetReport(ctx context.Context, id string) (*models.ReportRecord, error) {
	var rec models.ReportRecord
	if err := r.loadJSON(ctx, id, "report", &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repository) ListInFlight(ctx context.Context) ([]*models.Submission, error) {
	query := `
		SELECT id, author_name, author_email, book_title, submission_type, declared_format,
		       document_key, state, failed_state, last_error, text_chars, retry_count,
		       created_at, updated_at, completed_at
		FROM submissions
		WHERE state NOT IN ($1, $2)
		ORDER BY created_at
	`

	var subs []*models.Submission
	if err := r.db.SelectContext(ctx, &subs, query, models.StateComplete, models.StateFailed); err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) saveJSON(ctx context.Context, id, column string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	query := `UPDATE submissions SET ` + column + ` = $2, updated_at = $3 WHERE id = $1`
	_, err = r.db.ExecContext(ctx, query, id, string(data), time.Now())
	return err
}

func (r *repository) loadJSON(ctx context.Context, id, column string, v any) error {
	var raw sql.NullString

	query := `SELECT ` + column + ` FROM submissions WHERE id = $1`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&raw); err != nil {
		return err
	}
	if !raw.Valid || raw.String == "" {
		return sql.ErrNoRows
	}

	return json.Unmarshal([]byte(raw.String), v)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleState
	}
	return nil
}
