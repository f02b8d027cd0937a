package scoring

import (
	"math"
	"testing"

	"github.com/writeitgreat/proposal-eval/internal/models"
)

func TestSchemeWeightSums(t *testing.T) {
	schemes, err := LoadSchemes()
	if err != nil {
		t.Fatalf("LoadSchemes returned error: %v", err)
	}

	for _, submissionType := range []models.SubmissionType{
		models.TypeFull,
		models.TypeMarketingOnly,
		models.TypeNoMarketing,
	} {
		scheme, err := schemes.For(submissionType)
		if err != nil {
			t.Fatalf("For(%s) returned error: %v", submissionType, err)
		}

		sum := 0.0
		for _, c := range scheme.Categories {
			sum += c.Weight
		}
		if math.Abs(sum-1.0) > 1e-6 {
			t.Errorf("scheme %s: weights sum to %v, want 1.0", submissionType, sum)
		}
	}
}

func TestSchemeCategorySets(t *testing.T) {
	schemes, err := LoadSchemes()
	if err != nil {
		t.Fatalf("LoadSchemes returned error: %v", err)
	}

	full, _ := schemes.For(models.TypeFull)
	if len(full.Categories) != 7 {
		t.Errorf("FULL scheme has %d categories, want 7", len(full.Categories))
	}
	if full.Categories[0].Key != "marketing" || full.Categories[0].Weight != 0.30 {
		t.Errorf("FULL scheme leads with %s at %v, want marketing at 0.30",
			full.Categories[0].Key, full.Categories[0].Weight)
	}

	marketingOnly, _ := schemes.For(models.TypeMarketingOnly)
	if len(marketingOnly.Categories) != 1 {
		t.Fatalf("MARKETING_ONLY scheme has %d categories, want 1", len(marketingOnly.Categories))
	}
	if marketingOnly.Categories[0].Key != "marketing" || marketingOnly.Categories[0].Weight != 1.0 {
		t.Errorf("MARKETING_ONLY scheme got %s at %v, want marketing at 1.0",
			marketingOnly.Categories[0].Key, marketingOnly.Categories[0].Weight)
	}

	noMarketing, _ := schemes.For(models.TypeNoMarketing)
	if len(noMarketing.Categories) != 6 {
		t.Errorf("NO_MARKETING scheme has %d categories, want 6", len(noMarketing.Categories))
	}
	for _, c := range noMarketing.Categories {
		if c.Key == "marketing" {
			t.Errorf("NO_MARKETING scheme still contains the marketing category")
		}
	}
}

func TestSchemeOrderingStable(t *testing.T) {
	first, err := LoadSchemes()
	if err != nil {
		t.Fatalf("LoadSchemes returned error: %v", err)
	}
	second, err := LoadSchemes()
	if err != nil {
		t.Fatalf("LoadSchemes returned error: %v", err)
	}

	a, _ := first.For(models.TypeFull)
	b, _ := second.For(models.TypeFull)
	for i := range a.Categories {
		if a.Categories[i].Key != b.Categories[i].Key {
			t.Errorf("category order differs at %d: %s vs %s", i, a.Categories[i].Key, b.Categories[i].Key)
		}
	}
}

func TestSchemeForUnknownType(t *testing.T) {
	schemes, err := LoadSchemes()
	if err != nil {
		t.Fatalf("LoadSchemes returned error: %v", err)
	}

	if _, err := schemes.For(models.SubmissionType("PARTIAL")); err == nil {
		t.Errorf("For(PARTIAL) should return an error")
	}
}
