// Package scoring computes per-candidate relevance scores. The engine is a
// pure function of an enriched candidate and the interpreted query; it holds
// no state and performs no I/O.
package scoring

import (
	"math"
	"strings"

	"github.com/hireloop/candex/internal/domain/candidate"
	"github.com/hireloop/candex/internal/domain/query"
)

const (
	skillBase = 0.1
	skillSpan = 0.8
	skillCap  = 0.9

	experienceBase        = 0.1
	experienceTitle       = 0.7
	experienceDescription = 0.5
	experienceCap         = 0.8

	culturalFitNone = 0.1
	culturalFitBase = 0.4
	culturalFitSpan = 0.2

	// culturalFitTextRef is the free-text length at which the cultural fit
	// signal saturates at its upper bound.
	culturalFitTextRef = 2000
)

// Score computes the three sub-scores, the weighted composite, and the
// templated reasoning for one candidate. PercentileRank is left at zero
// for the caller to fill in across the full result set.
func Score(c candidate.Enriched, iq query.Interpreted, w query.Weights) candidate.Scored {
	scores := candidate.Scores{
		SkillMatch:          round3(skillMatch(c.Skills, iq.Skills())),
		ExperienceRelevance: round3(experienceRelevance(c.Experiences, iq.Keywords())),
		CulturalFit:         round3(culturalFit(c)),
	}

	composite := w.Skill*scores.SkillMatch +
		w.Experience*scores.ExperienceRelevance +
		w.Culture*scores.CulturalFit

	return candidate.Scored{
		Enriched:   c,
		Scores:     scores,
		MatchScore: round3(composite),
		Reasoning:  reasoning(scores),
	}
}

// skillMatch rewards proportional overlap with the query's skills rather
// than raw counts. Every candidate keeps a non-zero floor so exact-zero
// ties cannot occur.
func skillMatch(candidateSkills, querySkills []string) float64 {
	if len(candidateSkills) == 0 || len(querySkills) == 0 {
		return skillBase
	}

	have := make(map[string]struct{}, len(candidateSkills))
	for _, s := range candidateSkills {
		have[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}

	matched := 0
	for _, s := range querySkills {
		if _, ok := have[strings.ToLower(strings.TrimSpace(s))]; ok {
			matched++
		}
	}

	score := skillBase + skillSpan*(float64(matched)/float64(len(querySkills)))
	return math.Min(score, skillCap)
}

// experienceRelevance weights title matches above description matches:
// role titles are a stronger relevance signal than free text.
func experienceRelevance(experiences []candidate.Experience, keywords []string) float64 {
	score := experienceBase
	for _, kw := range keywords {
		needle := strings.ToLower(kw)
		if needle == "" {
			continue
		}
		for _, e := range experiences {
			if strings.Contains(strings.ToLower(e.Title), needle) {
				return experienceTitle
			}
			if strings.Contains(strings.ToLower(e.Description), needle) && score < experienceDescription {
				score = experienceDescription
			}
		}
	}
	return math.Min(score, experienceCap)
}

// culturalFit is a weak, bounded placeholder signal derived from the amount
// of free text available. It stays within [0.4, 0.6] so it can never
// dominate the weighted composite.
func culturalFit(c candidate.Enriched) float64 {
	length := len(strings.TrimSpace(c.Resume))
	for _, e := range c.Experiences {
		length += len(strings.TrimSpace(e.Description))
	}
	if length == 0 {
		return culturalFitNone
	}
	return culturalFitBase + culturalFitSpan*math.Min(1, float64(length)/culturalFitTextRef)
}

// reasoning builds the deterministic one-sentence explanation from
// threshold crossings on the sub-scores.
func reasoning(s candidate.Scores) string {
	var parts []string

	switch {
	case s.SkillMatch > 0.65:
		parts = append(parts, "strong skill alignment with the role requirements")
	case s.SkillMatch > 0.3:
		parts = append(parts, "moderate skill overlap with the role requirements")
	}

	switch {
	case s.ExperienceRelevance > 0.65:
		parts = append(parts, "highly relevant work experience")
	case s.ExperienceRelevance > 0.3:
		parts = append(parts, "some relevant work experience")
	}

	if s.CulturalFit > 0.5 {
		parts = append(parts, "good indicators of cultural fit")
	}

	if len(parts) == 0 {
		return "Candidate matched the search query."
	}
	return "Candidate shows " + strings.Join(parts, ", ") + "."
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
