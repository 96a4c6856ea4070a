package intake

import (
	"github.com/docufill/intake/pkg/cluster"
	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/fields"
	"github.com/docufill/intake/pkg/mapper"
	"github.com/docufill/intake/pkg/reconcile"
)

// The review surface: everything the presentation layer reads and writes
// between ingestion and form filling.

// Clusters returns the current person clusters.
func (s *Session) Clusters() []cluster.Cluster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.grouping == nil {
		return nil
	}
	return s.grouping.Clusters()
}

// SuggestedMerges returns the advisory merge suggestions from the last
// partition.
func (s *Session) SuggestedMerges() []cluster.SuggestedMerge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]cluster.SuggestedMerge(nil), s.suggestions...)
}

// Profile returns a copy of a cluster's reconciled profile.
func (s *Session) Profile(clusterID string) (*reconcile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[clusterID]
	if !ok {
		return nil, errors.NewNotFoundError("cluster", clusterID)
	}

	copied := &reconcile.Profile{
		ClusterID: result.Profile.ClusterID,
		Fields:    make(map[fields.ID]reconcile.Field, len(result.Profile.Fields)),
	}
	for id, f := range result.Profile.Fields {
		f.SourceDocumentIDs = append([]string(nil), f.SourceDocumentIDs...)
		copied.Fields[id] = f
	}
	return copied, nil
}

// PendingConflicts returns a cluster's unresolved conflicts.
func (s *Session) PendingConflicts(clusterID string) ([]*reconcile.Conflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[clusterID]
	if !ok {
		return nil, errors.NewNotFoundError("cluster", clusterID)
	}
	return result.PendingConflicts(), nil
}

// LowConfidence returns a cluster's low-confidence review flags.
func (s *Session) LowConfidence(clusterID string) ([]reconcile.LowConfidenceField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[clusterID]
	if !ok {
		return nil, errors.NewNotFoundError("cluster", clusterID)
	}
	return append([]reconcile.LowConfidenceField(nil), result.LowConfidence...), nil
}

// ResolveConflict resolves one of a cluster's conflicts by candidate index,
// or by custom value when customValue is non-nil.
func (s *Session) ResolveConflict(clusterID string, fieldID fields.ID, selectedIndex int, customValue *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, ok := s.results[clusterID]
	if !ok {
		return errors.NewNotFoundError("cluster", clusterID)
	}
	return result.ResolveConflict(fieldID, selectedIndex, customValue)
}

// UpdateProfileField replaces a field's value in a cluster's profile with a
// user edit.
func (s *Session) UpdateProfileField(clusterID string, fieldID fields.ID, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, ok := s.results[clusterID]
	if !ok {
		return errors.NewNotFoundError("cluster", clusterID)
	}
	if err := result.UpdateField(fieldID, value); err != nil {
		return err
	}

	// Mappings are label-driven, but recompute the non-overridden ones so a
	// profile edit is reflected wherever the mapping depended on it.
	for _, set := range s.mappings {
		set.Remap()
	}
	return nil
}

// MoveDocument moves a document to another cluster and re-reconciles.
func (s *Session) MoveDocument(docID, toClusterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.grouping == nil {
		return errors.NewNotFoundError("document", docID)
	}
	if err := s.grouping.Move(docID, toClusterID); err != nil {
		return err
	}
	return s.reconcileAll()
}

// MergeClusters folds cluster b into cluster a and re-reconciles.
func (s *Session) MergeClusters(a, b string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.grouping == nil {
		return errors.NewNotFoundError("cluster", a)
	}
	if err := s.grouping.Merge(a, b); err != nil {
		return err
	}
	return s.reconcileAll()
}

// SplitCluster extracts documents into a new cluster and re-reconciles.
func (s *Session) SplitCluster(docIDs []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.grouping == nil {
		return "", errors.NewValidationError("documentIds", docIDs, "nothing ingested yet")
	}
	newID, err := s.grouping.Split(docIDs)
	if err != nil {
		return "", err
	}
	return newID, s.reconcileAll()
}

// FreezeClusters ends the grouping phase. After freezing, every grouping
// mutation and further ingestion is rejected; reconciliation results and
// the review surface stay available.
func (s *Session) FreezeClusters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.grouping != nil {
		s.grouping.Freeze()
	}
}

// Mappings returns the current mapping set of a form in schema order.
func (s *Session) Mappings(formID string) ([]mapper.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.mappings[formID]
	if !ok {
		return nil, errors.NewNotFoundError("form", formID)
	}
	return set.Mappings(), nil
}

// SetFieldMapping manually assigns a form field to a canonical field, or to
// unmapped when canonical is empty.
func (s *Session) SetFieldMapping(formID, formFieldID string, canonical fields.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.mappings[formID]
	if !ok {
		return errors.NewNotFoundError("form", formID)
	}
	return set.Set(formFieldID, canonical)
}

// ResetFieldMapping recomputes one form field's mapping unless it was
// manually overridden.
func (s *Session) ResetFieldMapping(formID, formFieldID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.mappings[formID]
	if !ok {
		return errors.NewNotFoundError("form", formID)
	}
	return set.Reset(formFieldID)
}

// FillForm produces the form values of a cluster's profile under a form's
// current mapping, along with the required fields that remain unfillable.
func (s *Session) FillForm(formID, clusterID string) (map[string]string, []mapper.MissingField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.mappings[formID]
	if !ok {
		return nil, nil, errors.NewNotFoundError("form", formID)
	}
	result, ok := s.results[clusterID]
	if !ok {
		return nil, nil, errors.NewNotFoundError("cluster", clusterID)
	}

	return set.Fill(result.Profile), set.FillReport(result.Profile), nil
}
