package assessor

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/writeitgreat/proposal-eval/internal/judge"
	"github.com/writeitgreat/proposal-eval/internal/models"
	"github.com/writeitgreat/proposal-eval/internal/scoring"
	"github.com/writeitgreat/proposal-eval/internal/utils"
)

type scriptedJudge struct {
	mu       sync.Mutex
	scores   map[string]float64
	failures map[string]*judge.Failure
	calls    []string
}

func (j *scriptedJudge) Score(_ context.Context, req judge.Request) (*judge.Result, *judge.Failure) {
	j.mu.Lock()
	j.calls = append(j.calls, req.CategoryKey)
	j.mu.Unlock()

	if failure, ok := j.failures[req.CategoryKey]; ok {
		return nil, failure
	}
	score, ok := j.scores[req.CategoryKey]
	if !ok {
		score = 75
	}
	return &judge.Result{Score: score, Rationale: fmt.Sprintf("assessment of %s", req.CategoryKey)}, nil
}

func newTestAssessor(t *testing.T, j judge.Client) *Assessor {
	t.Helper()
	schemes, err := scoring.LoadSchemes()
	if err != nil {
		t.Fatalf("LoadSchemes returned error: %v", err)
	}
	return New(j, schemes, utils.NewLogger("error"))
}

func TestAssessCanonicalOrder(t *testing.T) {
	j := &scriptedJudge{scores: map[string]float64{"marketing": 88}}
	a := newTestAssessor(t, j)

	results, failure := a.Assess(context.Background(), "proposal text",
		Metadata{AuthorName: "Jo Field", BookTitle: "Hive Mind"}, models.TypeFull)
	if failure != nil {
		t.Fatalf("Assess returned failure: %v", failure)
	}

	wantOrder := []string{"marketing", "overview", "credentials", "comps", "writing", "outline", "completeness"}
	if len(results) != len(wantOrder) {
		t.Fatalf("got %d results, want %d", len(results), len(wantOrder))
	}
	for i, want := range wantOrder {
		if results[i].Category != want {
			t.Errorf("result %d is %s, want %s", i, results[i].Category, want)
		}
	}
	if results[0].Score != 88 || results[0].Weight != 0.30 {
		t.Errorf("marketing result = %v/%v, want 88/0.30", results[0].Score, results[0].Weight)
	}
}

func TestAssessMarketingOnlySingleCall(t *testing.T) {
	j := &scriptedJudge{scores: map[string]float64{"marketing": 90}}
	a := newTestAssessor(t, j)

	results, failure := a.Assess(context.Background(), "marketing section text",
		Metadata{}, models.TypeMarketingOnly)
	if failure != nil {
		t.Fatalf("Assess returned failure: %v", failure)
	}

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if len(j.calls) != 1 {
		t.Errorf("judge called %d times, want 1", len(j.calls))
	}
	if results[0].Weight != 1.0 {
		t.Errorf("marketing weight = %v, want 1.0", results[0].Weight)
	}
}

func TestAssessSingleFailureFailsSet(t *testing.T) {
	j := &scriptedJudge{
		failures: map[string]*judge.Failure{
			"comps": {Reason: judge.ReasonServiceUnavailable},
		},
	}
	a := newTestAssessor(t, j)

	results, failure := a.Assess(context.Background(), "proposal text", Metadata{}, models.TypeFull)
	if failure == nil {
		t.Fatalf("Assess should fail when any category fails")
	}
	if failure.Reason != judge.ReasonServiceUnavailable {
		t.Errorf("reason = %s, want %s", failure.Reason, judge.ReasonServiceUnavailable)
	}
	if results != nil {
		t.Errorf("partial results returned alongside failure")
	}
}

func TestAssessInvalidShapePropagates(t *testing.T) {
	j := &scriptedJudge{
		failures: map[string]*judge.Failure{
			"writing": {Reason: judge.ReasonInvalidResponseShape},
		},
	}
	a := newTestAssessor(t, j)

	_, failure := a.Assess(context.Background(), "proposal text", Metadata{}, models.TypeFull)
	if failure == nil || failure.Reason != judge.ReasonInvalidResponseShape {
		t.Errorf("got %v, want %s", failure, judge.ReasonInvalidResponseShape)
	}
}
