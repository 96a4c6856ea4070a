// Package mapper implements the form field mapper: given a target form's
// field schema it proposes, for every form field, the canonical profile
// field that should fill it.
//
// Matching runs in two passes per form field: an exact alias match on the
// field's identifier and label, then a type-constrained fuzzy ranking over
// the canonical vocabulary. Everything the mapper proposes is advisory; the
// user may reassign any form field at any time, and a manual assignment is
// never overwritten by recomputation.
package mapper

import (
	"github.com/docufill/intake/internal/config"
	"github.com/docufill/intake/internal/textutil"
	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/fields"
	"github.com/docufill/intake/pkg/logging"
)

// FormField is one field of a target form's schema, read-only to the
// engine. ExpectedType uses the kind vocabulary ("text", "date", ...);
// unrecognized types are treated as text.
type FormField struct {
	ID       string `yaml:"formFieldId" json:"formFieldId"`
	Label    string `yaml:"label" json:"label"`
	Type     string `yaml:"expectedType" json:"expectedType"`
	Required bool   `yaml:"required,omitempty" json:"required,omitempty"`
}

// Kind returns the field's expected semantic kind.
func (f FormField) Kind() fields.Kind {
	return fields.ParseKind(f.Type)
}

// TargetForm is an external collaborator's form schema.
type TargetForm struct {
	ID     string      `yaml:"formId" json:"formId"`
	Fields []FormField `yaml:"fields" json:"fields"`
}

// Mapping assigns one form field to a canonical profile field. Canonical is
// empty when the form field is unmapped. Once ManualOverride is set the
// mapping is immune to recomputation.
type Mapping struct {
	FormFieldID    string    `yaml:"formFieldId" json:"formFieldId"`
	Canonical      fields.ID `yaml:"canonicalFieldId,omitempty" json:"canonicalFieldId,omitempty"`
	ManualOverride bool      `yaml:"manualOverride" json:"manualOverride"`
	Similarity     float64   `yaml:"similarity,omitempty" json:"similarity,omitempty"`
}

// Mapped reports whether the form field resolved to a canonical field.
func (m Mapping) Mapped() bool {
	return m.Canonical != ""
}

// Engine proposes mappings for form schemas. Pure over its inputs: the same
// schema always yields the same mapping set.
type Engine struct {
	tunables config.MapperTunables
	aliases  map[string]fields.ID
}

// Option configures an Engine.
type Option func(*Engine) error

// WithTunables sets the similarity floor.
func WithTunables(t config.MapperTunables) Option {
	return func(e *Engine) error {
		if t.SimilarityFloor <= 0 || t.SimilarityFloor > 1 {
			return errors.NewConfigError("mapper", "similarity floor must be in (0, 1]", nil)
		}
		e.tunables = t
		return nil
	}
}

// New creates an Engine with options applied over the defaults.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		tunables: config.Defaults().Mapper,
		aliases:  buildAliasIndex(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// buildAliasIndex maps every normalized alias, display name, and canonical
// ID to its field, for the exact-match pass.
func buildAliasIndex() map[string]fields.ID {
	idx := make(map[string]fields.ID)
	for _, spec := range fields.All() {
		idx[textutil.NormalizeLabel(spec.ID.String())] = spec.ID
		idx[textutil.NormalizeLabel(spec.Display)] = spec.ID
		for _, alias := range spec.Aliases {
			idx[textutil.NormalizeLabel(alias)] = spec.ID
		}
	}
	return idx
}

// Map computes the auto-mapping for a target form. Every schema field gets
// a Mapping, possibly unmapped.
func (e *Engine) Map(form TargetForm) (*MappingSet, error) {
	if len(form.Fields) == 0 {
		return nil, errors.NewValidationError("fields", form.Fields, "form schema has no fields")
	}
	seen := make(map[string]bool, len(form.Fields))
	for _, f := range form.Fields {
		if f.ID == "" {
			return nil, errors.NewValidationError("formFieldId", "", "must not be empty")
		}
		if seen[f.ID] {
			return nil, errors.NewValidationError("formFieldId", f.ID, "duplicate form field")
		}
		seen[f.ID] = true
	}

	set := &MappingSet{
		engine:   e,
		form:     form,
		mappings: make(map[string]*Mapping, len(form.Fields)),
	}
	e.autoMap(set, nil)
	return set, nil
}

// candidate is one proposed assignment during auto-mapping.
type candidate struct {
	formIndex  int
	canonical  fields.ID
	similarity float64
}

// autoMap assigns canonical fields to the form fields not in skip. Each
// canonical field is claimed by at most one form field; when two form
// fields want the same canonical, the higher similarity wins and the loser
// falls back to its next best candidate.
func (e *Engine) autoMap(set *MappingSet, skip map[string]bool) {
	taken := make(map[fields.ID]bool)
	for id, m := range set.mappings {
		if skip[id] && m.Canonical != "" {
			taken[m.Canonical] = true
		}
	}

	var pending []int
	for i, f := range set.form.Fields {
		if !skip[f.ID] {
			pending = append(pending, i)
		}
	}

	for len(pending) > 0 {
		best := candidate{formIndex: -1, similarity: -1}
		for _, i := range pending {
			c, ok := e.bestCandidate(set.form.Fields[i], taken)
			if !ok {
				continue
			}
			c.formIndex = i
			if c.similarity > best.similarity ||
				(c.similarity == best.similarity && c.formIndex < best.formIndex) {
				best = c
			}
		}

		if best.formIndex < 0 {
			// Nothing left to claim: the rest stay unmapped.
			for _, i := range pending {
				f := set.form.Fields[i]
				set.mappings[f.ID] = &Mapping{FormFieldID: f.ID}
			}
			return
		}

		f := set.form.Fields[best.formIndex]
		set.mappings[f.ID] = &Mapping{
			FormFieldID: f.ID,
			Canonical:   best.canonical,
			Similarity:  best.similarity,
		}
		taken[best.canonical] = true
		pending = removeIndex(pending, best.formIndex)

		logging.Debug().
			Str("form_field", f.ID).
			Str("canonical", best.canonical.String()).
			Float64("similarity", best.similarity).
			Msg("mapped form field")
	}
}

// bestCandidate finds the best unclaimed canonical field for one form
// field: an exact alias match on its ID or label, else the top
// kind-compatible fuzzy match at or above the floor.
func (e *Engine) bestCandidate(f FormField, taken map[fields.ID]bool) (candidate, bool) {
	for _, key := range []string{f.ID, f.Label} {
		if key == "" {
			continue
		}
		if canonical, ok := e.aliases[textutil.NormalizeLabel(key)]; ok && !taken[canonical] {
			return candidate{canonical: canonical, similarity: 1}, true
		}
	}

	best := candidate{similarity: -1}
	for _, spec := range fields.All() {
		if taken[spec.ID] || !fields.Compatible(spec.Kind, f.Kind()) {
			continue
		}

		sim := labelSimilarity(f, spec)
		if sim > best.similarity {
			best = candidate{canonical: spec.ID, similarity: sim}
		}
	}

	if best.similarity < e.tunables.SimilarityFloor {
		return candidate{}, false
	}
	return best, true
}

// labelSimilarity is the best blended similarity between the form field's
// ID/label and any of the canonical field's names.
func labelSimilarity(f FormField, spec fields.Spec) float64 {
	names := append([]string{spec.ID.String(), spec.Display}, spec.Aliases...)

	best := 0.0
	for _, key := range []string{f.ID, f.Label} {
		if key == "" {
			continue
		}
		for _, name := range names {
			if sim := textutil.Similarity(key, name); sim > best {
				best = sim
			}
		}
	}
	return best
}

func removeIndex(indices []int, target int) []int {
	for i, v := range indices {
		if v == target {
			return append(indices[:i], indices[i+1:]...)
		}
	}
	return indices
}
