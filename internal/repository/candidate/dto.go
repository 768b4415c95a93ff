package candidate

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	domcand "github.com/hireloop/candex/internal/domain/candidate"
)

// row is the storage shape of a candidate. List-valued columns hold JSON
// whose shape has drifted across ingestion sources; the decode helpers below
// resolve the known variants into the one canonical Record shape, so the
// scoring engine never sees the mess.
type row struct {
	ID             string `db:"id"`
	Name           string `db:"name"`
	Title          string `db:"title"`
	Email          string `db:"email"`
	Phone          string `db:"phone"`
	Skills         []byte `db:"skills"`
	Experiences    []byte `db:"experiences"`
	Educations     []byte `db:"educations"`
	Certifications []byte `db:"certifications"`
	Resume         string `db:"resume"`
	SourceURL      string `db:"source_url"`
}

func (r *row) toRecord(logger *zap.Logger) domcand.Record {
	return domcand.Record{
		ID:             r.ID,
		Name:           r.Name,
		Title:          r.Title,
		Email:          r.Email,
		Phone:          r.Phone,
		Skills:         decodeStringList(r.Skills, "skills", r.ID, logger),
		Experiences:    decodeExperiences(r.Experiences, r.ID, logger),
		Educations:     decodeEducations(r.Educations, r.ID, logger),
		Certifications: decodeStringList(r.Certifications, "certifications", r.ID, logger),
		Resume:         r.Resume,
		SourceURL:      r.SourceURL,
	}
}

// namedItem covers object-shaped list entries ({"name": ...} or {"skill": ...}).
type namedItem struct {
	Name  string `json:"name"`
	Skill string `json:"skill"`
}

// decodeStringList resolves the string-list variants:
// ["a","b"], [{"name":"a"}], or a plain "a, b" string.
func decodeStringList(raw []byte, field, id string, logger *zap.Logger) []string {
	if len(raw) == 0 {
		return nil
	}

	var plain []string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return compact(plain)
	}

	var objects []namedItem
	if err := json.Unmarshal(raw, &objects); err == nil {
		out := make([]string, 0, len(objects))
		for _, o := range objects {
			if o.Name != "" {
				out = append(out, o.Name)
			} else if o.Skill != "" {
				out = append(out, o.Skill)
			}
		}
		return out
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return compact(strings.Split(single, ","))
	}

	logger.Warn("unrecognized list shape in candidate record",
		zap.String("candidate_id", id),
		zap.String("field", field),
	)
	return nil
}

// decodeExperiences resolves the work-history variants: an array of
// Experience objects, an array of title strings, or a {"items": [...]}
// wrapper object.
func decodeExperiences(raw []byte, id string, logger *zap.Logger) []domcand.Experience {
	if len(raw) == 0 {
		return nil
	}

	var objects []domcand.Experience
	if err := json.Unmarshal(raw, &objects); err == nil {
		return objects
	}

	var titles []string
	if err := json.Unmarshal(raw, &titles); err == nil {
		out := make([]domcand.Experience, 0, len(titles))
		for _, t := range compact(titles) {
			out = append(out, domcand.Experience{Title: t})
		}
		return out
	}

	var wrapper struct {
		Items []domcand.Experience `json:"items"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.Items != nil {
		return wrapper.Items
	}

	logger.Warn("unrecognized experience shape in candidate record",
		zap.String("candidate_id", id),
	)
	return nil
}

// decodeEducations resolves the education variants: an array of Education
// objects or an array of degree strings.
func decodeEducations(raw []byte, id string, logger *zap.Logger) []domcand.Education {
	if len(raw) == 0 {
		return nil
	}

	var objects []domcand.Education
	if err := json.Unmarshal(raw, &objects); err == nil {
		return objects
	}

	var degrees []string
	if err := json.Unmarshal(raw, &degrees); err == nil {
		out := make([]domcand.Education, 0, len(degrees))
		for _, d := range compact(degrees) {
			out = append(out, domcand.Education{Degree: d})
		}
		return out
	}

	logger.Warn("unrecognized education shape in candidate record",
		zap.String("candidate_id", id),
	)
	return nil
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
