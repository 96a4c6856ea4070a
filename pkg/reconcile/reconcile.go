// Package reconcile implements the field reconciliation engine: it collapses
// the observations belonging to one person cluster into one canonical value
// per field, detects conflicts that need human resolution, and flags
// low-confidence values for optional review.
//
// The engine never raises a hard error for missing or disagreeing data.
// Uncertainty is data, surfaced as Conflicts and LowConfidenceFields; the
// only hard error is malformed input, which fails fast with a validation
// error.
package reconcile

import (
	"sort"

	"github.com/docufill/intake/internal/config"
	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/fields"
	"github.com/docufill/intake/pkg/logging"
	"github.com/docufill/intake/pkg/observation"
)

// Mode selects how aggressively reconciled fields are surfaced for review.
type Mode string

const (
	// ModeAssisted surfaces more fields for review.
	ModeAssisted Mode = "assisted"

	// ModeExpress auto-skips review when the winning confidence is safe.
	ModeExpress Mode = "express"
)

// Threshold returns the mode's low-confidence threshold.
func (m Mode) Threshold(t config.ReconcileTunables) float64 {
	if m == ModeExpress {
		return t.ExpressThreshold
	}
	return t.AssistedThreshold
}

// Engine reconciles observations into profiles. It is a pure function over
// its inputs: re-running on the same observation set reproduces the same
// result.
type Engine struct {
	tunables config.ReconcileTunables
	mode     Mode
}

// Option configures an Engine.
type Option func(*Engine) error

// WithMode sets the review mode.
func WithMode(mode Mode) Option {
	return func(e *Engine) error {
		if mode != ModeAssisted && mode != ModeExpress {
			return errors.NewValidationError("mode", string(mode), "must be assisted or express")
		}
		e.mode = mode
		return nil
	}
}

// WithTunables sets the scoring weights and thresholds.
func WithTunables(t config.ReconcileTunables) Option {
	return func(e *Engine) error {
		sum := t.ConfidenceWeight + t.RecencyWeight + t.CorroborationWeight
		if sum <= 0 {
			return errors.NewConfigError("reconcile", "score weights must sum to a positive value", nil)
		}
		e.tunables = t
		return nil
	}
}

// New creates an Engine with options applied over the defaults.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		tunables: config.Defaults().Reconcile,
		mode:     ModeAssisted,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Mode returns the engine's review mode.
func (e *Engine) Mode() Mode {
	return e.mode
}

// Reconcile collapses the observations of the given cluster documents into a
// profile, pending conflicts, and low-confidence flags. Every document ID
// must be present in the store; an unknown document fails the operation with
// a validation error before any work happens.
func (e *Engine) Reconcile(clusterID string, store *observation.Store, docIDs []string) (*Result, error) {
	if len(docIDs) == 0 {
		return nil, errors.NewValidationError("documentIds", docIDs, "cluster has no documents")
	}
	for _, id := range docIDs {
		if !store.HasDocument(id) {
			return nil, errors.NewValidationError("documentId", id, "document not present in cluster's observation set")
		}
	}

	result := &Result{
		Profile: &Profile{
			ClusterID: clusterID,
			Fields:    make(map[fields.ID]Field),
		},
		conflicts: make(map[fields.ID]*Conflict),
		threshold: e.mode.Threshold(e.tunables),
		mode:      e.mode,
	}

	grouped := store.ByField(docIDs...)
	for _, fieldID := range sortedFieldIDs(grouped) {
		e.reconcileField(result, fieldID, grouped[fieldID])
	}

	logging.Debug().
		Str("cluster", clusterID).
		Int("fields", len(result.Profile.Fields)).
		Int("conflicts", len(result.PendingConflicts())).
		Int("low_confidence", len(result.LowConfidence)).
		Msg("reconciled cluster")

	return result, nil
}

// reconcileField applies the per-field algorithm: collapse agreement, score
// disagreement, and decide between auto-resolution and a conflict.
func (e *Engine) reconcileField(result *Result, fieldID fields.ID, obs []observation.Observation) {
	candidates := buildCandidates(fieldID, obs)
	if len(candidates) == 0 {
		// No non-null values: the field is absent from the profile, which
		// is not an error.
		return
	}

	if len(candidates) == 1 {
		result.setReconciled(fieldID, candidates[0].field())
		return
	}

	scoreCandidates(candidates, e.tunables)
	sortCandidates(candidates)

	top, runnerUp := candidates[0], candidates[1]
	gap := top.Score - runnerUp.Score

	if fields.SafetyCritical(fieldID) || gap < e.tunables.SeparationMargin {
		result.addConflict(&Conflict{
			Field:         fieldID,
			Candidates:    candidates,
			SelectedIndex: -1,
		})
		return
	}

	result.setReconciled(fieldID, top.field())
}

// buildCandidates partitions a field's observations into distinct values
// using the field's semantic equivalence. Null values never participate.
func buildCandidates(fieldID fields.ID, obs []observation.Observation) []Candidate {
	byNorm := make(map[string]*Candidate)
	var order []string

	for _, o := range obs {
		if o.Value == "" {
			continue
		}
		norm := fields.Normalize(fieldID, o.Value)

		c, ok := byNorm[norm]
		if !ok {
			c = &Candidate{Value: o.Value, Confidence: o.Confidence, newest: o.ExtractedAt}
			byNorm[norm] = c
			order = append(order, norm)
		}

		c.observations++
		c.SourceDocumentIDs = appendUnique(c.SourceDocumentIDs, o.DocumentID)

		// Corroborating sources never lower confidence; keep the maximum,
		// and let the highest-confidence observation pick the display form.
		if o.Confidence > c.Confidence ||
			(o.Confidence == c.Confidence && o.ExtractedAt.After(c.newest)) {
			c.Value = o.Value
			c.Confidence = maxFloat(c.Confidence, o.Confidence)
		}
		if o.ExtractedAt.After(c.newest) {
			c.newest = o.ExtractedAt
		}
	}

	sort.Strings(order)
	candidates := make([]Candidate, 0, len(order))
	for _, norm := range order {
		c := byNorm[norm]
		sort.Strings(c.SourceDocumentIDs)
		candidates = append(candidates, *c)
	}
	return candidates
}

// scoreCandidates computes the composite score for each candidate: a
// weighted combination of confidence, recency, and corroboration count,
// each normalized within the field's candidate set.
func scoreCandidates(candidates []Candidate, t config.ReconcileTunables) {
	var (
		oldest, newest = candidates[0].newest, candidates[0].newest
		maxCount       int
	)
	for _, c := range candidates {
		if c.newest.Before(oldest) {
			oldest = c.newest
		}
		if c.newest.After(newest) {
			newest = c.newest
		}
		if c.observations > maxCount {
			maxCount = c.observations
		}
	}

	span := newest.Sub(oldest)
	weightSum := t.ConfidenceWeight + t.RecencyWeight + t.CorroborationWeight

	for i := range candidates {
		c := &candidates[i]

		recency := 1.0
		if span > 0 {
			recency = float64(c.newest.Sub(oldest)) / float64(span)
		}
		corroboration := float64(c.observations) / float64(maxCount)

		c.Score = (t.ConfidenceWeight*c.Confidence +
			t.RecencyWeight*recency +
			t.CorroborationWeight*corroboration) / weightSum
	}
}

// sortCandidates orders candidates deterministically: composite score, then
// recency, then lexicographically smallest contributing document ID.
func sortCandidates(candidates []Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.newest.Equal(b.newest) {
			return a.newest.After(b.newest)
		}
		return a.minSource() < b.minSource()
	})
}

func sortedFieldIDs(grouped map[fields.ID][]observation.Observation) []fields.ID {
	ids := make([]fields.ID, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
