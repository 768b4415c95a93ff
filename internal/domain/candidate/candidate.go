// Package candidate holds the candidate aggregate in its three pipeline
// stages: the relational Record, the vector-index Match, and the merged
// Enriched/Scored forms handed to scoring and the response.
package candidate

// Experience is a single work-history entry.
type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

// Education is a single education entry.
type Education struct {
	Degree      string `json:"degree,omitempty"`
	Institution string `json:"institution,omitempty"`
	Year        string `json:"year,omitempty"`
}

// Record is the full candidate row from the relational store. The pipeline
// holds a read-only, request-scoped copy; the store owns the data.
type Record struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Title          string       `json:"title,omitempty"`
	Email          string       `json:"email,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	Skills         []string     `json:"skills,omitempty"`
	Experiences    []Experience `json:"experiences,omitempty"`
	Educations     []Education  `json:"educations,omitempty"`
	Certifications []string     `json:"certifications,omitempty"`
	Resume         string       `json:"resume,omitempty"`
	SourceURL      string       `json:"source_url,omitempty"`
}

// Match is a candidate id plus similarity score from the vector index.
// Ephemeral: discarded after the merge into Enriched.
type Match struct {
	CandidateID string
	Similarity  float64
}

// Enriched is a Record merged with its vector-index similarity. It exists
// only when the matched id was also found in the relational store; orphan
// matches are dropped upstream and counted as data-consistency drops.
type Enriched struct {
	Record
	Similarity float64 `json:"similarity_score"`
}

// Scores holds the three per-factor sub-scores, each in [0,1].
type Scores struct {
	SkillMatch          float64 `json:"skill_match"`
	ExperienceRelevance float64 `json:"experience_relevance"`
	CulturalFit         float64 `json:"cultural_fit"`
}

// Scored is an Enriched candidate with its per-factor scores, weighted
// composite, and templated reasoning. PercentileRank is a placeholder the
// caller overwrites across the full result set.
type Scored struct {
	Enriched
	Scores         Scores  `json:"scores"`
	MatchScore     float64 `json:"match_score"`
	Reasoning      string  `json:"reasoning"`
	PercentileRank float64 `json:"percentile_rank"`
}
