// Package observation implements the field observation store: an immutable
// record of every extracted field value, its confidence, and the document it
// came from. All downstream engines read from it; nothing ever mutates or
// removes an observation once recorded.
package observation

import (
	"time"

	"github.com/docufill/intake/pkg/fields"
)

// Observation is one document's extracted value for one canonical field.
// Immutable once created; many observations may share a field across
// documents.
type Observation struct {
	Field        fields.ID `yaml:"field" json:"field"`
	Value        string    `yaml:"value" json:"value"`
	Confidence   float64   `yaml:"confidence" json:"confidence"`
	DocumentID   string    `yaml:"documentId" json:"documentId"`
	DocumentType string    `yaml:"documentType" json:"documentType"`
	ExtractedAt  time.Time `yaml:"extractedAt" json:"extractedAt"`
}

// Before orders observations deterministically: by extraction time, then
// document ID, then field, then value. Used everywhere an observation slice
// is exposed so repeated runs see identical input order.
func (o Observation) Before(other Observation) bool {
	if !o.ExtractedAt.Equal(other.ExtractedAt) {
		return o.ExtractedAt.Before(other.ExtractedAt)
	}
	if o.DocumentID != other.DocumentID {
		return o.DocumentID < other.DocumentID
	}
	if o.Field != other.Field {
		return o.Field < other.Field
	}
	return o.Value < other.Value
}
