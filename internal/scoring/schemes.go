package scoring

import (
	_ "embed"
	"fmt"
	"math"

	"github.com/writeitgreat/proposal-eval/internal/models"
	"gopkg.in/yaml.v3"
)

// WeightTolerance is the allowed deviation from 1.0 for a scheme's weight sum.
const WeightTolerance = 1e-6

const marketingCategory = "marketing"

//go:embed schemes.yaml
var schemesYAML []byte

type Category struct {
	Key      string  `yaml:"key"`
	Name     string  `yaml:"name"`
	Weight   float64 `yaml:"weight"`
	Guidance string  `yaml:"guidance"`
}

type schemeFile struct {
	Categories []Category `yaml:"categories"`
}

// Scheme is the weighting scheme for one submission type: the ordered category
// set and the per-category weights, summing to 1.0.
type Scheme struct {
	Type       models.SubmissionType
	Categories []Category
}

type Schemes struct {
	byType map[models.SubmissionType]*Scheme
}

// LoadSchemes parses the embedded weight table and derives the three schemes.
// FULL uses the table as-is. MARKETING_ONLY keeps only the marketing category
// at weight 1.0. NO_MARKETING drops marketing and renormalizes the remaining
// weights so they still sum to 1.0.
func LoadSchemes() (*Schemes, error) {
	var file schemeFile
	if err := yaml.Unmarshal(schemesYAML, &file); err != nil {
		return nil, fmt.Errorf("failed to parse scheme table: %w", err)
	}
	if len(file.Categories) == 0 {
		return nil, fmt.Errorf("scheme table has no categories")
	}

	var marketingWeight float64
	hasMarketing := false
	for _, c := range file.Categories {
		if c.Key == marketingCategory {
			marketingWeight = c.Weight
			hasMarketing = true
		}
	}
	if !hasMarketing {
		return nil, fmt.Errorf("scheme table missing %q category", marketingCategory)
	}

	full := &Scheme{Type: models.TypeFull, Categories: file.Categories}

	marketingOnly := &Scheme{Type: models.TypeMarketingOnly}
	for _, c := range file.Categories {
		if c.Key == marketingCategory {
			c.Weight = 1.0
			marketingOnly.Categories = append(marketingOnly.Categories, c)
		}
	}

	noMarketing := &Scheme{Type: models.TypeNoMarketing}
	for _, c := range file.Categories {
		if c.Key == marketingCategory {
			continue
		}
		c.Weight = c.Weight / (1.0 - marketingWeight)
		noMarketing.Categories = append(noMarketing.Categories, c)
	}

	schemes := &Schemes{byType: map[models.SubmissionType]*Scheme{
		models.TypeFull:          full,
		models.TypeMarketingOnly: marketingOnly,
		models.TypeNoMarketing:   noMarketing,
	}}

	for _, s := range schemes.byType {
		if err := s.validate(); err != nil {
			return nil, err
		}
	}

	return schemes, nil
}

func (s *Scheme) validate() error {
	sum := 0.0
	for _, c := range s.Categories {
		if c.Weight < 0 {
			return fmt.Errorf("scheme %s: category %s has negative weight", s.Type, c.Key)
		}
		sum += c.Weight
	}
	if math.Abs(sum-1.0) > WeightTolerance {
		return fmt.Errorf("scheme %s: weights sum to %v, expected 1.0", s.Type, sum)
	}
	return nil
}

// For returns the scheme for a submission type.
func (s *Schemes) For(t models.SubmissionType) (*Scheme, error) {
	scheme, ok := s.byType[t]
	if !ok {
		return nil, fmt.Errorf("no weighting scheme for submission type %q", t)
	}
	return scheme, nil
}
