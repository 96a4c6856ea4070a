package mapper

import (
	"sort"

	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/fields"
	"github.com/docufill/intake/pkg/reconcile"
)

// MappingSet holds the current mapping of one target form, one Mapping per
// schema field. Auto-computed mappings may be recomputed at any time;
// manually assigned ones survive every recomputation.
type MappingSet struct {
	engine   *Engine
	form     TargetForm
	mappings map[string]*Mapping
}

// Form returns the target form the set was computed for.
func (s *MappingSet) Form() TargetForm {
	return s.form
}

// Mappings returns the mappings in schema field order.
func (s *MappingSet) Mappings() []Mapping {
	out := make([]Mapping, 0, len(s.form.Fields))
	for _, f := range s.form.Fields {
		if m, ok := s.mappings[f.ID]; ok {
			out = append(out, *m)
		}
	}
	return out
}

// Mapping returns the mapping for one form field.
func (s *MappingSet) Mapping(formFieldID string) (Mapping, error) {
	m, ok := s.mappings[formFieldID]
	if !ok {
		return Mapping{}, errors.NewNotFoundError("form field", formFieldID)
	}
	return *m, nil
}

// Set manually assigns a form field to a canonical field, or to unmapped
// when canonical is empty. The assignment is marked as a manual override
// and becomes immune to recomputation.
func (s *MappingSet) Set(formFieldID string, canonical fields.ID) error {
	m, ok := s.mappings[formFieldID]
	if !ok {
		return errors.NewNotFoundError("form field", formFieldID)
	}
	if canonical != "" && !fields.Known(canonical) {
		return errors.NewUnknownFieldError(canonical.String())
	}

	// A canonical field fills at most one form field: steal it from any
	// non-overridden mapping that currently holds it.
	if canonical != "" {
		for _, other := range s.mappings {
			if other.FormFieldID != formFieldID && other.Canonical == canonical && !other.ManualOverride {
				other.Canonical = ""
				other.Similarity = 0
			}
		}
	}

	*m = Mapping{
		FormFieldID:    formFieldID,
		Canonical:      canonical,
		ManualOverride: true,
	}
	return nil
}

// Clear manually unmaps a form field. The cleared state is itself an
// override, so recomputation does not restore the mapping.
func (s *MappingSet) Clear(formFieldID string) error {
	return s.Set(formFieldID, "")
}

// Reset recomputes one form field's mapping from the schema, unless the
// field was manually overridden, in which case the override stands.
func (s *MappingSet) Reset(formFieldID string) error {
	m, ok := s.mappings[formFieldID]
	if !ok {
		return errors.NewNotFoundError("form field", formFieldID)
	}
	if m.ManualOverride {
		return nil
	}

	skip := make(map[string]bool, len(s.mappings))
	for id := range s.mappings {
		if id != formFieldID {
			skip[id] = true
		}
	}
	s.engine.autoMap(s, skip)
	return nil
}

// Remap recomputes every non-overridden mapping. Run after profile edits
// or threshold changes; manual assignments are never overwritten.
func (s *MappingSet) Remap() {
	skip := make(map[string]bool, len(s.mappings))
	for id, m := range s.mappings {
		if m.ManualOverride {
			skip[id] = true
		}
	}
	s.engine.autoMap(s, skip)
}

// Fill returns the form values a profile produces under the current
// mapping: form field ID to reconciled raw value, mapped fields with
// non-empty values only.
func (s *MappingSet) Fill(profile *reconcile.Profile) map[string]string {
	values := make(map[string]string)
	for _, f := range s.form.Fields {
		m := s.mappings[f.ID]
		if m == nil || !m.Mapped() {
			continue
		}
		if v := profile.Value(m.Canonical); v != "" {
			values[f.ID] = v
		}
	}
	return values
}

// MissingField is one required form field that cannot be filled yet.
type MissingField struct {
	FormFieldID string `yaml:"formFieldId" json:"formFieldId"`
	Label       string `yaml:"label" json:"label"`
	Reason      string `yaml:"reason" json:"reason"`
}

// Reasons a required form field may be unfillable.
const (
	ReasonUnmapped     = "unmapped"
	ReasonNoValue      = "no reconciled value"
	ReasonInvalidValue = "value does not match expected type"
)

// FillReport lists the required form fields that remain unmapped or whose
// canonical value is missing or malformed. A non-empty report is
// information for the caller, not an error: the caller decides whether to
// block submission.
func (s *MappingSet) FillReport(profile *reconcile.Profile) []MissingField {
	var missing []MissingField
	for _, f := range s.form.Fields {
		if !f.Required {
			continue
		}

		m := s.mappings[f.ID]
		switch {
		case m == nil || !m.Mapped():
			missing = append(missing, MissingField{f.ID, f.Label, ReasonUnmapped})
		case profile.Value(m.Canonical) == "":
			missing = append(missing, MissingField{f.ID, f.Label, ReasonNoValue})
		case !fields.ValidForKind(f.Kind(), profile.Value(m.Canonical)):
			missing = append(missing, MissingField{f.ID, f.Label, ReasonInvalidValue})
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].FormFieldID < missing[j].FormFieldID })
	return missing
}
