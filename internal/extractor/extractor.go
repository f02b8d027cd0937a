package extractor

import (
	"fmt"
	"unicode/utf8"

	"github.com/writeitgreat/proposal-eval/internal/models"
)

// FailureReason classifies an extraction failure. None of these are retriable
// with the same bytes; recovery requires the author to re-upload.
type FailureReason string

const (
	ReasonUnsupportedFormat  FailureReason = "UNSUPPORTED_FORMAT"
	ReasonCorruptOrEncrypted FailureReason = "CORRUPT_OR_ENCRYPTED"
	ReasonInsufficientText   FailureReason = "INSUFFICIENT_TEXT"
	ReasonUnknown            FailureReason = "UNKNOWN_EXTRACTION_ERROR"
)

type Failure struct {
	Reason FailureReason
	Err    error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %v", f.Reason, f.Err)
	}
	return string(f.Reason)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

type Extractor struct {
	minChars int
}

func New(minChars int) *Extractor {
	return &Extractor{minChars: minChars}
}

// Extract turns raw document bytes of a declared format into plain text. Text
// below the minimum character threshold is reported as INSUFFICIENT_TEXT even
// though decoding succeeded: downstream stages must never see text that cannot
// support meaningful assessment.
func (e *Extractor) Extract(data []byte, format models.DocumentFormat) (*models.ExtractedText, *Failure) {
	if len(data) == 0 {
		return nil, &Failure{Reason: ReasonCorruptOrEncrypted, Err: fmt.Errorf("empty document")}
	}

	var text string
	var failure *Failure

	switch format {
	case models.FormatPDF:
		text, failure = extractPDF(data)
	case models.FormatDOCX:
		text, failure = extractDOCX(data)
	default:
		return nil, &Failure{Reason: ReasonUnsupportedFormat, Err: fmt.Errorf("declared format %q", format)}
	}

	if failure != nil {
		return nil, failure
	}

	chars := utf8.RuneCountInString(text)
	if chars < e.minChars {
		return nil, &Failure{
			Reason: ReasonInsufficientText,
			Err:    fmt.Errorf("extracted %d characters, minimum is %d", chars, e.minChars),
		}
	}

	return &models.ExtractedText{Text: text, CharCount: chars}, nil
}
