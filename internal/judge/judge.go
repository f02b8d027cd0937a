package judge

import (
	"context"
	"fmt"
)

// FailureReason classifies a judgment call failure. All three are retriable at
// the stage level; INVALID_RESPONSE_SHAPE that persists through retries is a
// contract violation by the upstream service.
type FailureReason string

const (
	ReasonServiceUnavailable   FailureReason = "EXTERNAL_SERVICE_UNAVAILABLE"
	ReasonInvalidResponseShape FailureReason = "INVALID_RESPONSE_SHAPE"
	ReasonRateLimited          FailureReason = "RATE_LIMITED_UPSTREAM"
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

// Request is one category-scoped judgment call.
type Request struct {
	CategoryKey      string
	CategoryName     string
	CategoryGuidance string
	AuthorName       string
	BookTitle        string
	Text             string
}

type Result struct {
	Score     float64
	Rationale string
}

// Client is the external judgment capability, invoked once per scoring
// category. Treated as non-deterministic and occasionally unavailable.
type Client interface {
	Score(ctx context.Context, req Request) (*Result, *Failure)
}
