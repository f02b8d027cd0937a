package report

import (
	"testing"
	"time"

	"github.com/writeitgreat/proposal-eval/internal/models"
)

func sampleSubmission() *models.Submission {
	return &models.Submission{
		ID:             "WIG-20260831-AB12C",
		AuthorName:     "Jo Field",
		AuthorEmail:    "jo@example.com",
		BookTitle:      "Hive Mind",
		SubmissionType: models.TypeFull,
	}
}

func TestAssembleOrderingAndProjection(t *testing.T) {
	agg := &models.AggregateResult{
		OverallScore: 80.0,
		Tier:         "B",
		Categories: []models.CategoryResult{
			{Category: "marketing", Name: "Marketing & Platform", Score: 80, Weight: 0.30, Rationale: "good reach"},
			{Category: "overview", Name: "Overview & Concept", Score: 80, Weight: 0.20, Rationale: "clear hook"},
		},
		ComputedAt: time.Now().UTC(),
	}

	rec, err := Assemble(sampleSubmission(), agg)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}

	if rec.SubmissionID != "WIG-20260831-AB12C" || rec.BookTitle != "Hive Mind" {
		t.Errorf("metadata not carried over: %+v", rec)
	}
	if rec.OverallScore != 80.0 || rec.Tier != "B" {
		t.Errorf("score/tier = %v/%s, want 80.0/B", rec.OverallScore, rec.Tier)
	}
	if rec.TierDescription != "Strong - Minor improvements recommended" {
		t.Errorf("tier description = %q", rec.TierDescription)
	}

	if len(rec.Categories) != 2 {
		t.Fatalf("got %d categories, want 2", len(rec.Categories))
	}
	if rec.Categories[0].Name != "Marketing & Platform" || rec.Categories[1].Name != "Overview & Concept" {
		t.Errorf("category order not preserved: %s, %s", rec.Categories[0].Name, rec.Categories[1].Name)
	}
	if rec.Categories[0].WeightedPoints != 24.0 {
		t.Errorf("weighted points = %v, want 24.0", rec.Categories[0].WeightedPoints)
	}
	if rec.Categories[0].Rationale != "good reach" {
		t.Errorf("rationale not carried over")
	}
}

func TestAssembleRejectsEmptyAggregate(t *testing.T) {
	if _, err := Assemble(sampleSubmission(), nil); err == nil {
		t.Errorf("Assemble(nil aggregate) should return an error")
	}
	if _, err := Assemble(sampleSubmission(), &models.AggregateResult{}); err == nil {
		t.Errorf("Assemble(empty aggregate) should return an error")
	}
}
