package reconcile

import (
	"fmt"
	"sort"
	"time"

	"github.com/docufill/intake/pkg/fields"
)

// Field is one reconciled value in a profile. Unless Edited is set, the
// value is traceable to the source documents that contributed it.
type Field struct {
	Value             string   `yaml:"value" json:"value"`
	Confidence        float64  `yaml:"confidence" json:"confidence"`
	SourceDocumentIDs []string `yaml:"sourceDocumentIds" json:"sourceDocumentIds"`
	Edited            bool     `yaml:"edited" json:"edited"`
}

// Profile is the canonical reconciled profile for one person cluster.
type Profile struct {
	ClusterID string              `yaml:"personClusterId" json:"personClusterId"`
	Fields    map[fields.ID]Field `yaml:"fields" json:"fields"`
}

// FieldIDs returns the profile's field IDs in sorted order.
func (p *Profile) FieldIDs() []fields.ID {
	ids := make([]fields.ID, 0, len(p.Fields))
	for id := range p.Fields {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Value returns the reconciled raw value for a field, or "" if absent.
func (p *Profile) Value(id fields.ID) string {
	return p.Fields[id].Value
}

// CheckInvariants verifies the provenance invariant: every non-edited field
// must cite at least one source document. A violation is a programming
// error in the engine, not a user-facing condition.
func (p *Profile) CheckInvariants() error {
	for _, id := range p.FieldIDs() {
		f := p.Fields[id]
		if !f.Edited && len(f.SourceDocumentIDs) == 0 {
			return fmt.Errorf("field %s has no provenance and is not edited", id)
		}
	}
	return nil
}

// Candidate is one distinct value competing for a field, with the documents
// that observed it and its composite score.
type Candidate struct {
	Value             string   `yaml:"value" json:"value"`
	Confidence        float64  `yaml:"confidence" json:"confidence"`
	SourceDocumentIDs []string `yaml:"sourceDocumentIds" json:"sourceDocumentIds"`
	Score             float64  `yaml:"score" json:"score"`

	observations int
	newest       time.Time
}

// field converts a winning candidate into a reconciled field.
func (c Candidate) field() Field {
	return Field{
		Value:             c.Value,
		Confidence:        c.Confidence,
		SourceDocumentIDs: append([]string(nil), c.SourceDocumentIDs...),
	}
}

func (c Candidate) minSource() string {
	if len(c.SourceDocumentIDs) == 0 {
		return ""
	}
	return c.SourceDocumentIDs[0] // kept sorted
}

// Conflict is a field whose observations disagree enough to require human
// resolution. It stays addressable after resolution so that resolving again
// simply replaces the prior resolution.
type Conflict struct {
	Field         fields.ID   `yaml:"fieldName" json:"fieldName"`
	Candidates    []Candidate `yaml:"candidateValues" json:"candidateValues"`
	Resolved      bool        `yaml:"resolved" json:"resolved"`
	SelectedIndex int         `yaml:"selectedIndex" json:"selectedIndex"` // -1 when unresolved or custom
	CustomValue   *string     `yaml:"customValue,omitempty" json:"customValue,omitempty"`
}

// LowConfidenceField flags a reconciled field whose winning confidence fell
// below the mode's threshold. Advisory only: surfaced for optional review,
// never blocking.
type LowConfidenceField struct {
	Field      fields.ID `yaml:"fieldName" json:"fieldName"`
	Confidence float64   `yaml:"confidence" json:"confidence"`
}
