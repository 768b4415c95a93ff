package query

import "strings"

// Interpreted is the structured interpretation of a free-text query,
// produced once per request by the interpretation service and never
// mutated afterwards.
type Interpreted struct {
	keywords []string
	skills   []string
	location string
}

// NewInterpreted creates an Interpreted query. Blank entries are dropped.
func NewInterpreted(keywords, skills []string, location string) Interpreted {
	return Interpreted{
		keywords: compact(keywords),
		skills:   compact(skills),
		location: strings.TrimSpace(location),
	}
}

// Keywords returns the extracted search keywords.
func (i *Interpreted) Keywords() []string { return i.keywords }

// Skills returns the extracted skill names.
func (i *Interpreted) Skills() []string { return i.skills }

// Location returns the extracted location, if any.
func (i *Interpreted) Location() string { return i.location }

// EmbeddingText returns the text handed to the embedding service: the joined
// keywords, or fallback when no keywords were extracted.
func (i *Interpreted) EmbeddingText(fallback string) string {
	if len(i.keywords) == 0 {
		return fallback
	}
	return strings.Join(i.keywords, " ")
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
