package reconcile

import (
	"sort"

	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/fields"
)

// Result is the outcome of reconciling one person cluster: the profile,
// the conflicts awaiting resolution, and the low-confidence review flags.
// Its mutating operations (ResolveConflict, UpdateField) are idempotent and
// total: they either replace exactly one field's state or reject with a
// validation error.
type Result struct {
	Profile       *Profile
	LowConfidence []LowConfidenceField

	conflicts map[fields.ID]*Conflict
	threshold float64
	mode      Mode
}

// Mode returns the review mode the result was produced under.
func (r *Result) Mode() Mode {
	return r.mode
}

// Threshold returns the low-confidence threshold that was applied.
func (r *Result) Threshold() float64 {
	return r.threshold
}

// PendingConflicts returns the unresolved conflicts sorted by field.
func (r *Result) PendingConflicts() []*Conflict {
	var pending []*Conflict
	for _, c := range r.conflicts {
		if !c.Resolved {
			pending = append(pending, c)
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].Field < pending[j].Field })
	return pending
}

// Conflict returns the conflict for a field, resolved or not.
func (r *Result) Conflict(id fields.ID) (*Conflict, bool) {
	c, ok := r.conflicts[id]
	return c, ok
}

// ResolveConflict folds a conflict into the profile by selecting one of its
// candidates, or, when customValue is non-nil, by accepting a user-supplied
// value with no document provenance. Resolving an already-resolved conflict
// replaces the prior resolution.
func (r *Result) ResolveConflict(id fields.ID, selectedIndex int, customValue *string) error {
	conflict, ok := r.conflicts[id]
	if !ok {
		return errors.NewNotFoundError("conflict", id.String())
	}

	if customValue != nil {
		r.Profile.Fields[id] = Field{
			Value:      *customValue,
			Confidence: 1,
			Edited:     true,
		}
		conflict.Resolved = true
		conflict.SelectedIndex = -1
		conflict.CustomValue = customValue
		r.dropLowConfidence(id)
		return nil
	}

	if selectedIndex < 0 || selectedIndex >= len(conflict.Candidates) {
		return errors.NewValidationError("selectedIndex", selectedIndex, "candidate index out of range")
	}

	r.Profile.Fields[id] = conflict.Candidates[selectedIndex].field()
	conflict.Resolved = true
	conflict.SelectedIndex = selectedIndex
	conflict.CustomValue = nil
	r.dropLowConfidence(id)
	return nil
}

// UpdateField replaces a field's value with a user edit. Always permitted,
// always sets Edited, and does not require the field to have been a
// conflict. The escape hatch for any value.
func (r *Result) UpdateField(id fields.ID, value string) error {
	if !fields.Known(id) {
		return errors.NewUnknownFieldError(id.String())
	}

	r.Profile.Fields[id] = Field{
		Value:      value,
		Confidence: 1,
		Edited:     true,
	}

	// A pending conflict on the field is settled by the edit.
	if conflict, ok := r.conflicts[id]; ok {
		conflict.Resolved = true
		conflict.SelectedIndex = -1
		v := value
		conflict.CustomValue = &v
	}
	r.dropLowConfidence(id)
	return nil
}

// setReconciled records an auto-resolved field and flags it for review when
// its winning confidence is below the mode threshold.
func (r *Result) setReconciled(id fields.ID, f Field) {
	r.Profile.Fields[id] = f
	if f.Confidence < r.threshold {
		r.LowConfidence = append(r.LowConfidence, LowConfidenceField{
			Field:      id,
			Confidence: f.Confidence,
		})
	}
}

func (r *Result) addConflict(c *Conflict) {
	r.conflicts[c.Field] = c
}

func (r *Result) dropLowConfidence(id fields.ID) {
	for i, lc := range r.LowConfidence {
		if lc.Field == id {
			r.LowConfidence = append(r.LowConfidence[:i], r.LowConfidence[i+1:]...)
			return
		}
	}
}
