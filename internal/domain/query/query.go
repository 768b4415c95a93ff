package query

import (
	"fmt"
	"math"
	"strings"
)

// Query validation limits.
const (
	MinLength = 1
	MaxLength = 500

	// WeightSumTolerance is the allowed deviation of the weight sum from 1.0.
	WeightSumTolerance = 0.01
)

// Default relative-importance weights used when the caller supplies none.
const (
	DefaultSkillWeight      = 0.4
	DefaultExperienceWeight = 0.4
	DefaultCultureWeight    = 0.2
)

// Weights holds the relative importance of the three scoring factors.
type Weights struct {
	Skill      float64
	Experience float64
	Culture    float64
}

// DefaultWeights returns the weights applied when a request omits them.
func DefaultWeights() Weights {
	return Weights{
		Skill:      DefaultSkillWeight,
		Experience: DefaultExperienceWeight,
		Culture:    DefaultCultureWeight,
	}
}

// Validate checks each weight is in [0,1] and the sum is 1 within tolerance.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"w_skill":      w.Skill,
		"w_experience": w.Experience,
		"w_culture":    w.Culture,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %v", name, v)
		}
	}
	if sum := w.Skill + w.Experience + w.Culture; math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("weights must sum to 1 (±%v), got %v", WeightSumTolerance, sum)
	}
	return nil
}

// Query is a validated search request (immutable value object).
type Query struct {
	raw     string
	weights Weights
}

// ValidationError aggregates field-level query validation issues.
type ValidationError struct {
	issues []string
}

func (e *ValidationError) Error() string {
	return "invalid query: " + strings.Join(e.issues, "; ")
}

// Issues returns the field-level validation messages.
func (e *ValidationError) Issues() []string { return e.issues }

// New validates and creates a Query. A zero Weights value means "not provided"
// and falls back to DefaultWeights.
func New(raw string, weights *Weights) (Query, error) {
	var issues []string

	trimmed := strings.TrimSpace(raw)
	if len(trimmed) < MinLength {
		issues = append(issues, "query is required")
	}
	if len(raw) > MaxLength {
		issues = append(issues, fmt.Sprintf("query too long (max %d chars)", MaxLength))
	}

	w := DefaultWeights()
	if weights != nil {
		if err := weights.Validate(); err != nil {
			issues = append(issues, err.Error())
		} else {
			w = *weights
		}
	}

	if len(issues) > 0 {
		return Query{}, &ValidationError{issues: issues}
	}

	return Query{raw: raw, weights: w}, nil
}

// Raw returns the original query text.
func (q *Query) Raw() string { return q.raw }

// Weights returns the scoring weights.
func (q *Query) Weights() Weights { return q.weights }

// Normalized returns the lowercased, whitespace-collapsed query text.
// It is the textual half of the cache key, so two requests differing only
// in case or spacing share a cache entry.
func (q *Query) Normalized() string {
	return strings.Join(strings.Fields(strings.ToLower(q.raw)), " ")
}
