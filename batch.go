package intake

import (
	"github.com/docufill/intake/pkg/cluster"
	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/fields"
	"github.com/docufill/intake/pkg/observation"
	"github.com/docufill/intake/pkg/reconcile"
)

// BatchResult is the contract shape returned after ingesting a batch of
// extracted observations: per-cluster profile data and review flags, plus
// the detected person grouping.
type BatchResult struct {
	ProfileData         map[string]map[fields.ID]string           `yaml:"profileData" json:"profileData"`
	FieldSources        map[string]map[fields.ID][]string         `yaml:"fieldSources" json:"fieldSources"`
	LowConfidenceFields map[string][]reconcile.LowConfidenceField `yaml:"lowConfidenceFields" json:"lowConfidenceFields"`
	Conflicts           map[string][]*reconcile.Conflict          `yaml:"conflicts" json:"conflicts"`
	DetectedPeople      []cluster.Cluster                         `yaml:"detectedPeople" json:"detectedPeople"`
	SuggestedMerges     []cluster.SuggestedMerge                  `yaml:"suggestedMerges" json:"suggestedMerges"`
}

// Ingest records a batch of extracted observations, partitions the
// session's documents into person clusters, and reconciles every cluster.
// Calling it again with more observations re-partitions and re-reconciles;
// once the grouping is frozen further batches are rejected.
func (s *Session) Ingest(batch []observation.Observation) (*BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.grouping != nil && s.grouping.Frozen() {
		return nil, errors.NewFrozenError("ingest batch")
	}
	if len(batch) == 0 {
		return nil, errors.NewValidationError("batch", batch, "batch is empty")
	}

	if err := s.store.Add(batch...); err != nil {
		return nil, err
	}

	docs := make([]cluster.Document, 0, len(s.store.Documents()))
	for _, docID := range s.store.Documents() {
		docs = append(docs, cluster.Document{
			ID:     docID,
			Type:   s.store.DocumentType(docID),
			Fields: s.store.Snapshot(docID),
		})
	}

	grouping, suggestions, err := s.clusterer.Partition(docs)
	if err != nil {
		return nil, err
	}
	s.grouping = grouping
	s.suggestions = suggestions

	if err := s.reconcileAll(); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("observations", len(batch)).
		Int("documents", len(docs)).
		Int("people", len(grouping.Clusters())).
		Msg("ingested batch")

	return s.batchResult(), nil
}

// reconcileAll recomputes the reconciliation result of every cluster in the
// current grouping. Caller holds the write lock.
func (s *Session) reconcileAll() error {
	results := make(map[string]*reconcile.Result, len(s.grouping.Clusters()))
	for _, c := range s.grouping.Clusters() {
		result, err := s.reconciler.Reconcile(c.ID, s.store, c.DocumentIDs)
		if err != nil {
			return err
		}
		results[c.ID] = result
	}
	s.results = results
	return nil
}

// batchResult assembles the contract shape from the current session state.
// Caller holds at least the read lock.
func (s *Session) batchResult() *BatchResult {
	out := &BatchResult{
		ProfileData:         make(map[string]map[fields.ID]string, len(s.results)),
		FieldSources:        make(map[string]map[fields.ID][]string, len(s.results)),
		LowConfidenceFields: make(map[string][]reconcile.LowConfidenceField, len(s.results)),
		Conflicts:           make(map[string][]*reconcile.Conflict, len(s.results)),
		DetectedPeople:      s.grouping.Clusters(),
		SuggestedMerges:     append([]cluster.SuggestedMerge(nil), s.suggestions...),
	}

	for clusterID, result := range s.results {
		values := make(map[fields.ID]string, len(result.Profile.Fields))
		sources := make(map[fields.ID][]string, len(result.Profile.Fields))
		for _, id := range result.Profile.FieldIDs() {
			f := result.Profile.Fields[id]
			values[id] = f.Value
			sources[id] = append([]string(nil), f.SourceDocumentIDs...)
		}
		out.ProfileData[clusterID] = values
		out.FieldSources[clusterID] = sources
		out.LowConfidenceFields[clusterID] = append([]reconcile.LowConfidenceField(nil), result.LowConfidence...)
		out.Conflicts[clusterID] = result.PendingConflicts()
	}
	return out
}
