package scoring

import (
	"math"
	"strings"
	"testing"

	"github.com/hireloop/candex/internal/domain/candidate"
	"github.com/hireloop/candex/internal/domain/query"
)

func enriched(skills []string, exps []candidate.Experience, resume string) candidate.Enriched {
	return candidate.Enriched{
		Record: candidate.Record{
			ID:          "c1",
			Name:        "Test Candidate",
			Skills:      skills,
			Experiences: exps,
			Resume:      resume,
		},
		Similarity: 0.9,
	}
}

func TestScoreReactDeveloper(t *testing.T) {
	iq := query.NewInterpreted([]string{"react", "developer"}, []string{"React"}, "")
	w := query.Weights{Skill: 0.5, Experience: 0.3, Culture: 0.2}

	c := enriched(
		[]string{"React", "TypeScript"},
		[]candidate.Experience{{Title: "Senior React Developer", Company: "Acme"}},
		"",
	)

	scored := Score(c, iq, w)

	if scored.Scores.SkillMatch != 0.9 {
		t.Errorf("skill match = %v, want 0.9", scored.Scores.SkillMatch)
	}
	if scored.Scores.ExperienceRelevance != 0.7 {
		t.Errorf("experience relevance = %v, want 0.7", scored.Scores.ExperienceRelevance)
	}
	if scored.Scores.CulturalFit != 0.1 {
		t.Errorf("cultural fit = %v, want 0.1 with no free text", scored.Scores.CulturalFit)
	}

	want := math.Round((0.5*0.9+0.3*0.7+0.2*0.1)*1000) / 1000
	if scored.MatchScore != want {
		t.Errorf("match score = %v, want %v", scored.MatchScore, want)
	}
}

func TestMatchScoreIsWeightedSum(t *testing.T) {
	iq := query.NewInterpreted([]string{"go"}, []string{"go", "redis", "sql"}, "")

	weights := []query.Weights{
		{Skill: 0.4, Experience: 0.4, Culture: 0.2},
		{Skill: 1, Experience: 0, Culture: 0},
		{Skill: 0.33, Experience: 0.33, Culture: 0.34},
	}
	c := enriched(
		[]string{"go", "redis"},
		[]candidate.Experience{{Title: "Engineer", Description: "built go services"}},
		strings.Repeat("x", 500),
	)

	for _, w := range weights {
		scored := Score(c, iq, w)
		want := math.Round((w.Skill*scored.Scores.SkillMatch+
			w.Experience*scored.Scores.ExperienceRelevance+
			w.Culture*scored.Scores.CulturalFit)*1000) / 1000
		if scored.MatchScore != want {
			t.Errorf("weights %+v: match score = %v, want %v", w, scored.MatchScore, want)
		}
	}
}

func TestSubScoreBounds(t *testing.T) {
	iq := query.NewInterpreted(
		[]string{"go", "engineer"},
		[]string{"go"},
		"",
	)
	w := query.DefaultWeights()

	cases := []candidate.Enriched{
		enriched(nil, nil, ""),
		enriched([]string{"go"}, nil, ""),
		enriched([]string{"go", "redis", "sql"}, []candidate.Experience{
			{Title: "Go Engineer", Description: "go everywhere"},
		}, strings.Repeat("resume ", 1000)),
	}

	for _, c := range cases {
		s := Score(c, iq, w).Scores
		if s.SkillMatch < 0 || s.SkillMatch > 0.9 {
			t.Errorf("skill match %v out of [0, 0.9]", s.SkillMatch)
		}
		if s.ExperienceRelevance < 0 || s.ExperienceRelevance > 0.8 {
			t.Errorf("experience relevance %v out of [0, 0.8]", s.ExperienceRelevance)
		}
		if s.CulturalFit < 0 || s.CulturalFit > 1 {
			t.Errorf("cultural fit %v out of [0, 1]", s.CulturalFit)
		}
	}
}

func TestSkillMatchProportional(t *testing.T) {
	iq := query.NewInterpreted(nil, []string{"go", "redis", "sql", "kafka"}, "")
	w := query.DefaultWeights()

	// 2 of 4 query skills matched, case-insensitive.
	c := enriched([]string{"GO", "Redis", "python"}, nil, "")
	s := Score(c, iq, w).Scores
	if s.SkillMatch != 0.5 {
		t.Errorf("skill match = %v, want 0.5 (0.1 + 0.8*2/4)", s.SkillMatch)
	}

	// No candidate skills keeps the floor.
	s = Score(enriched(nil, nil, ""), iq, w).Scores
	if s.SkillMatch != 0.1 {
		t.Errorf("skill match = %v, want floor 0.1", s.SkillMatch)
	}
}

func TestExperienceDescriptionOnlyMatch(t *testing.T) {
	iq := query.NewInterpreted([]string{"kubernetes"}, nil, "")
	w := query.DefaultWeights()

	c := enriched(nil, []candidate.Experience{
		{Title: "Platform Engineer", Description: "ran kubernetes clusters"},
	}, "")
	s := Score(c, iq, w).Scores
	if s.ExperienceRelevance != 0.5 {
		t.Errorf("experience relevance = %v, want 0.5 for description-only match", s.ExperienceRelevance)
	}
}

func TestCulturalFitBounded(t *testing.T) {
	iq := query.NewInterpreted([]string{"go"}, nil, "")
	w := query.DefaultWeights()

	short := Score(enriched(nil, nil, "brief resume"), iq, w).Scores.CulturalFit
	if short < 0.4 || short > 0.6 {
		t.Errorf("cultural fit = %v, want within [0.4, 0.6]", short)
	}

	long := Score(enriched(nil, nil, strings.Repeat("x", 10000)), iq, w).Scores.CulturalFit
	if long != 0.6 {
		t.Errorf("cultural fit = %v, want saturated 0.6", long)
	}
	if short > long {
		t.Errorf("cultural fit not monotonic: short %v > long %v", short, long)
	}
}

func TestReasoningThresholds(t *testing.T) {
	iq := query.NewInterpreted([]string{"react"}, []string{"react"}, "")
	w := query.DefaultWeights()

	strong := Score(enriched(
		[]string{"react"},
		[]candidate.Experience{{Title: "React Developer", Description: strings.Repeat("react apps ", 300)}},
		"",
	), iq, w)
	for _, want := range []string{"strong skill alignment", "highly relevant work experience", "cultural fit"} {
		if !strings.Contains(strong.Reasoning, want) {
			t.Errorf("reasoning %q missing %q", strong.Reasoning, want)
		}
	}

	generic := Score(enriched(nil, nil, ""), iq, w)
	if generic.Reasoning != "Candidate matched the search query." {
		t.Errorf("unexpected generic reasoning: %q", generic.Reasoning)
	}
}

func TestScoringIsDeterministic(t *testing.T) {
	iq := query.NewInterpreted([]string{"go"}, []string{"go"}, "Berlin")
	w := query.DefaultWeights()
	c := enriched([]string{"go"}, []candidate.Experience{{Title: "Go Engineer"}}, "some resume text")

	first := Score(c, iq, w)
	second := Score(c, iq, w)
	if first.MatchScore != second.MatchScore || first.Reasoning != second.Reasoning {
		t.Errorf("scoring not deterministic: %+v vs %+v", first, second)
	}
	if first.PercentileRank != 0 {
		t.Errorf("percentile rank = %v, want 0 placeholder", first.PercentileRank)
	}
}
