package models

import (
	"time"
)

type SubmissionType string

const (
	TypeFull          SubmissionType = "FULL"
	TypeMarketingOnly SubmissionType = "MARKETING_ONLY"
	TypeNoMarketing   SubmissionType = "NO_MARKETING"
)

func (t SubmissionType) Valid() bool {
	switch t {
	case TypeFull, TypeMarketingOnly, TypeNoMarketing:
		return true
	}
	return false
}

type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "PDF"
	FormatDOCX DocumentFormat = "DOCX"
)

func (f DocumentFormat) Valid() bool {
	return f == FormatPDF || f == FormatDOCX
}

// State is one stage of the submission lifecycle, durably recorded. COMPLETE
// and FAILED are terminal; FAILED is re-enterable only via operator retry.
type State string

const (
	StateReceived    State = "RECEIVED"
	StateExtracting  State = "EXTRACTING"
	StateAssessing   State = "ASSESSING"
	StateAggregating State = "AGGREGATING"
	StateReporting   State = "REPORTING"
	StateComplete    State = "COMPLETE"
	StateFailed      State = "FAILED"
)

func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

type Submission struct {
	ID             string         `json:"id" db:"id"`
	AuthorName     string         `json:"author_name" db:"author_name"`
	AuthorEmail    string         `json:"author_email" db:"author_email"`
	BookTitle      string         `json:"book_title" db:"book_title"`
	SubmissionType SubmissionType `json:"submission_type" db:"submission_type"`
	DeclaredFormat DocumentFormat `json:"declared_format" db:"declared_format"`
	DocumentKey    string         `json:"document_key" db:"document_key"`
	State          State          `json:"state" db:"state"`
	FailedState    *State         `json:"failed_state,omitempty" db:"failed_state"`
	LastError      *string        `json:"last_error,omitempty" db:"last_error"`
	TextChars      int            `json:"text_chars" db:"text_chars"`
	RetryCount     int            `json:"retry_count" db:"retry_count"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

// ExtractedText is the derived plain text of a submission. The text itself is
// not retained past assessment; CharCount is persisted for audit.
type ExtractedText struct {
	Text      string
	CharCount int
}

type CategoryResult struct {
	Category  string  `json:"category"`
	Name      string  `json:"name"`
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight"`
	Rationale string  `json:"rationale"`
}

type AggregateResult struct {
	OverallScore float64          `json:"overall_score"`
	Tier         string           `json:"tier"`
	Categories   []CategoryResult `json:"categories"`
	ComputedAt   time.Time        `json:"computed_at"`
}

// ReportRecord is the ordered, renderer-ready projection of an evaluation.
// Category ordering is the canonical order for the submission type.
type ReportRecord struct {
	SubmissionID    string           `json:"submission_id"`
	AuthorName      string           `json:"author_name"`
	AuthorEmail     string           `json:"author_email"`
	BookTitle       string           `json:"book_title"`
	SubmissionType  SubmissionType   `json:"submission_type"`
	OverallScore    float64          `json:"overall_score"`
	Tier            string           `json:"tier"`
	TierDescription string           `json:"tier_description"`
	Categories      []ReportCategory `json:"categories"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

type ReportCategory struct {
	Name           string  `json:"name"`
	Score          float64 `json:"score"`
	Weight         float64 `json:"weight"`
	WeightedPoints float64 `json:"weighted_points"`
	Rationale      string  `json:"rationale"`
}

type SubmissionAccepted struct {
	SubmissionID string `json:"submission_id"`
}

type StatusQueryResult struct {
	SubmissionID string `json:"submission_id"`
	Status       string `json:"status"`
	Ready        bool   `json:"ready"`
	Reason       string `json:"reason,omitempty"`
}

// StatusFor maps a submission's last committed state onto the polling
// contract. Pure: polling twice with no intervening progress returns
// identical results.
func StatusFor(sub *Submission) StatusQueryResult {
	result := StatusQueryResult{
		SubmissionID: sub.ID,
		Ready:        sub.State == StateComplete,
	}
	switch sub.State {
	case StateComplete:
		result.Status = "complete"
	case StateFailed:
		result.Status = "failed"
		if sub.LastError != nil {
			result.Reason = *sub.LastError
		}
	default:
		result.Status = "processing"
	}
	return result
}

type ReportReadyEvent struct {
	SubmissionID string        `json:"submission_id"`
	Report       *ReportRecord `json:"report"`
}

type NotifyTeamEvent struct {
	SubmissionID string  `json:"submission_id"`
	AuthorName   string  `json:"author_name"`
	AuthorEmail  string  `json:"author_email"`
	BookTitle    string  `json:"book_title"`
	OverallScore float64 `json:"overall_score"`
	Tier         string  `json:"tier"`
}
