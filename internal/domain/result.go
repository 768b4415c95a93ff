package domain

import (
	"github.com/hireloop/candex/internal/domain/candidate"
	"github.com/hireloop/candex/internal/domain/query"
)

// ParsedQuery is the serializable form of an interpreted query, carried in
// responses and cache entries.
type ParsedQuery struct {
	Keywords []string `json:"keywords"`
	Skills   []string `json:"skills,omitempty"`
	Location string   `json:"location,omitempty"`
}

// NewParsedQuery converts an Interpreted query into its serializable form.
func NewParsedQuery(iq query.Interpreted) *ParsedQuery {
	return &ParsedQuery{
		Keywords: iq.Keywords(),
		Skills:   iq.Skills(),
		Location: iq.Location(),
	}
}

// SearchResult is the payload of one completed pipeline run; it is both the
// response body and the cached value.
type SearchResult struct {
	Candidates []candidate.Scored `json:"candidates"`
	Parsed     *ParsedQuery       `json:"parsed_query,omitempty"`
	Message    string             `json:"message,omitempty"`
}
