package observation

import (
	"fmt"
	"sort"

	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/fields"
)

// Store is the append-only observation store for one intake session.
// Adds are validated as a whole batch before anything is recorded, so a
// malformed batch never leaves partial state behind.
type Store struct {
	observations []Observation
	docTypes     map[string]string
}

// NewStore creates an empty observation store.
func NewStore() *Store {
	return &Store{
		docTypes: make(map[string]string),
	}
}

// Add validates and records a batch of observations. On the first invalid
// observation it returns a ValidationError and records nothing from the
// batch.
func (s *Store) Add(obs ...Observation) error {
	for i, o := range obs {
		if err := validate(o); err != nil {
			return errors.WrapValidation(o.Field.String(), fmt.Errorf("observation %d: %w", i, err))
		}
	}

	for _, o := range obs {
		s.observations = append(s.observations, o)
		if existing, ok := s.docTypes[o.DocumentID]; !ok || existing == "" {
			s.docTypes[o.DocumentID] = o.DocumentType
		}
	}
	return nil
}

func validate(o Observation) error {
	if !fields.Known(o.Field) {
		return errors.NewUnknownFieldError(o.Field.String())
	}
	if o.Confidence < 0 || o.Confidence > 1 {
		return errors.NewValidationError("confidence", o.Confidence, "must be between 0 and 1")
	}
	if o.DocumentID == "" {
		return errors.NewValidationError("documentId", "", "must not be empty")
	}
	return nil
}

// Len returns the number of recorded observations.
func (s *Store) Len() int {
	return len(s.observations)
}

// Documents returns the IDs of all documents with at least one observation,
// sorted.
func (s *Store) Documents() []string {
	ids := make([]string, 0, len(s.docTypes))
	for id := range s.docTypes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DocumentType returns the recorded type of a document, or "" if unknown.
func (s *Store) DocumentType(id string) string {
	return s.docTypes[id]
}

// HasDocument reports whether any observation references the document.
func (s *Store) HasDocument(id string) bool {
	_, ok := s.docTypes[id]
	return ok
}

// All returns a sorted copy of every observation.
func (s *Store) All() []Observation {
	return sorted(append([]Observation(nil), s.observations...))
}

// ForDocuments returns a sorted copy of the observations belonging to the
// given documents.
func (s *Store) ForDocuments(docIDs ...string) []Observation {
	want := make(map[string]bool, len(docIDs))
	for _, id := range docIDs {
		want[id] = true
	}

	var out []Observation
	for _, o := range s.observations {
		if want[o.DocumentID] {
			out = append(out, o)
		}
	}
	return sorted(out)
}

// ByField groups the observations of the given documents by canonical field,
// each group in deterministic order.
func (s *Store) ByField(docIDs ...string) map[fields.ID][]Observation {
	grouped := make(map[fields.ID][]Observation)
	for _, o := range s.ForDocuments(docIDs...) {
		grouped[o.Field] = append(grouped[o.Field], o)
	}
	return grouped
}

// Snapshot returns the best-confidence raw value per field for one document.
// Clustering works from these per-document snapshots.
func (s *Store) Snapshot(docID string) map[fields.ID]string {
	best := make(map[fields.ID]Observation)
	for _, o := range s.ForDocuments(docID) {
		if o.Value == "" {
			continue
		}
		if cur, ok := best[o.Field]; !ok || o.Confidence > cur.Confidence {
			best[o.Field] = o
		}
	}

	snapshot := make(map[fields.ID]string, len(best))
	for id, o := range best {
		snapshot[id] = o.Value
	}
	return snapshot
}

func sorted(obs []Observation) []Observation {
	sort.Slice(obs, func(i, j int) bool { return obs[i].Before(obs[j]) })
	return obs
}
