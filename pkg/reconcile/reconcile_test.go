package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docufill/intake/internal/config"
	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/fields"
	"github.com/docufill/intake/pkg/observation"
	"github.com/docufill/intake/pkg/reconcile"
)

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func obs(field fields.ID, value string, conf float64, docID string, at time.Time) observation.Observation {
	return observation.Observation{
		Field:        field,
		Value:        value,
		Confidence:   conf,
		DocumentID:   docID,
		DocumentType: "passport",
		ExtractedAt:  at,
	}
}

func newStore(t *testing.T, observations ...observation.Observation) *observation.Store {
	t.Helper()
	store := observation.NewStore()
	require.NoError(t, store.Add(observations...))
	return store
}

func newEngine(t *testing.T, opts ...reconcile.Option) *reconcile.Engine {
	t.Helper()
	engine, err := reconcile.New(opts...)
	require.NoError(t, err)
	return engine
}

// Scenario A: two documents agree on firstName. The collapsed field takes
// the maximum confidence and the union of sources, with no conflict.
func TestAgreementCollapses(t *testing.T) {
	store := newStore(t,
		obs(fields.FirstName, "Jane", 0.9, "doc-a", t0),
		obs(fields.FirstName, "Jane", 0.95, "doc-b", t0.Add(time.Minute)),
	)

	result, err := newEngine(t).Reconcile("cluster-1", store, []string{"doc-a", "doc-b"})
	require.NoError(t, err)

	f := result.Profile.Fields[fields.FirstName]
	assert.Equal(t, "Jane", f.Value)
	assert.Equal(t, 0.95, f.Confidence)
	assert.Equal(t, []string{"doc-a", "doc-b"}, f.SourceDocumentIDs)
	assert.False(t, f.Edited)
	assert.Empty(t, result.PendingConflicts())
}

// Agreement is judged by semantic equivalence, not string equality.
func TestAgreementAcrossDateFormats(t *testing.T) {
	store := newStore(t,
		obs(fields.DateOfBirth, "1990-01-01", 0.9, "doc-a", t0),
		obs(fields.DateOfBirth, "01/01/1990", 0.8, "doc-b", t0),
	)

	result, err := newEngine(t).Reconcile("cluster-1", store, []string{"doc-a", "doc-b"})
	require.NoError(t, err)

	assert.Empty(t, result.PendingConflicts())
	f := result.Profile.Fields[fields.DateOfBirth]
	assert.Equal(t, 0.9, f.Confidence)
	assert.Len(t, f.SourceDocumentIDs, 2)
}

// Scenario B: disagreeing dates of birth always conflict, regardless of the
// score gap, because DOB is safety-critical.
func TestSafetyCriticalDisagreementAlwaysConflicts(t *testing.T) {
	store := newStore(t,
		obs(fields.DateOfBirth, "1990-01-01", 0.95, "doc-a", t0.Add(time.Hour)),
		obs(fields.DateOfBirth, "1991-01-01", 0.2, "doc-b", t0),
	)

	result, err := newEngine(t).Reconcile("cluster-1", store, []string{"doc-a", "doc-b"})
	require.NoError(t, err)

	pending := result.PendingConflicts()
	require.Len(t, pending, 1)
	conflict := pending[0]
	assert.Equal(t, fields.DateOfBirth, conflict.Field)
	assert.Len(t, conflict.Candidates, 2)
	assert.False(t, conflict.Resolved)
	assert.Equal(t, -1, conflict.SelectedIndex)

	// The conflicted field must not be in the profile until resolved.
	_, inProfile := result.Profile.Fields[fields.DateOfBirth]
	assert.False(t, inProfile)
}

func TestClearWinnerAutoResolves(t *testing.T) {
	store := newStore(t,
		obs(fields.FullName, "Jane Doe", 0.95, "doc-a", t0.Add(time.Hour)),
		obs(fields.FullName, "Jane Doe", 0.9, "doc-b", t0.Add(time.Hour)),
		obs(fields.FullName, "Jan Doe", 0.5, "doc-c", t0),
	)

	result, err := newEngine(t).Reconcile("cluster-1", store, []string{"doc-a", "doc-b", "doc-c"})
	require.NoError(t, err)

	assert.Empty(t, result.PendingConflicts())
	f := result.Profile.Fields[fields.FullName]
	assert.Equal(t, "Jane Doe", f.Value)
	assert.Equal(t, []string{"doc-a", "doc-b"}, f.SourceDocumentIDs)
}

func TestNarrowMarginBecomesConflict(t *testing.T) {
	store := newStore(t,
		obs(fields.Employer, "Acme", 0.8, "doc-a", t0),
		obs(fields.Employer, "Acme Corp", 0.8, "doc-b", t0),
	)

	result, err := newEngine(t).Reconcile("cluster-1", store, []string{"doc-a", "doc-b"})
	require.NoError(t, err)

	pending := result.PendingConflicts()
	require.Len(t, pending, 1)
	assert.Equal(t, fields.Employer, pending[0].Field)

	// Candidates arrive ranked by composite score.
	require.Len(t, pending[0].Candidates, 2)
	assert.GreaterOrEqual(t, pending[0].Candidates[0].Score, pending[0].Candidates[1].Score)
}

func TestLowConfidenceFlagDependsOnMode(t *testing.T) {
	store := newStore(t,
		obs(fields.Occupation, "Engineer", 0.7, "doc-a", t0),
	)

	assisted, err := newEngine(t, reconcile.WithMode(reconcile.ModeAssisted)).
		Reconcile("cluster-1", store, []string{"doc-a"})
	require.NoError(t, err)
	require.Len(t, assisted.LowConfidence, 1)
	assert.Equal(t, fields.Occupation, assisted.LowConfidence[0].Field)
	assert.Equal(t, 0.7, assisted.LowConfidence[0].Confidence)

	express, err := newEngine(t, reconcile.WithMode(reconcile.ModeExpress)).
		Reconcile("cluster-1", store, []string{"doc-a"})
	require.NoError(t, err)
	assert.Empty(t, express.LowConfidence)
}

func TestMissingFieldIsNotAnError(t *testing.T) {
	store := newStore(t,
		obs(fields.FirstName, "Jane", 0.9, "doc-a", t0),
	)

	result, err := newEngine(t).Reconcile("cluster-1", store, []string{"doc-a"})
	require.NoError(t, err)

	_, present := result.Profile.Fields[fields.PassportNumber]
	assert.False(t, present)
}

func TestNullValuesDoNotParticipate(t *testing.T) {
	store := newStore(t,
		obs(fields.PassportNumber, "X123", 0.9, "doc-a", t0),
		obs(fields.PassportNumber, "", 0.9, "doc-b", t0),
	)

	result, err := newEngine(t).Reconcile("cluster-1", store, []string{"doc-a", "doc-b"})
	require.NoError(t, err)

	assert.Empty(t, result.PendingConflicts())
	f := result.Profile.Fields[fields.PassportNumber]
	assert.Equal(t, "X123", f.Value)
	assert.Equal(t, []string{"doc-a"}, f.SourceDocumentIDs)
}

func TestUnknownDocumentFailsFast(t *testing.T) {
	store := newStore(t,
		obs(fields.FirstName, "Jane", 0.9, "doc-a", t0),
	)

	_, err := newEngine(t).Reconcile("cluster-1", store, []string{"doc-a", "doc-zzz"})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestEmptyClusterFailsFast(t *testing.T) {
	_, err := newEngine(t).Reconcile("cluster-1", observation.NewStore(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}

func TestDeterminism(t *testing.T) {
	store := newStore(t,
		obs(fields.FirstName, "Jane", 0.9, "doc-a", t0),
		obs(fields.FirstName, "Jayne", 0.88, "doc-b", t0.Add(time.Minute)),
		obs(fields.DateOfBirth, "1990-01-01", 0.9, "doc-a", t0),
		obs(fields.DateOfBirth, "1991-01-01", 0.9, "doc-b", t0),
		obs(fields.Employer, "Acme", 0.6, "doc-a", t0),
	)
	docs := []string{"doc-a", "doc-b"}

	first, err := newEngine(t).Reconcile("cluster-1", store, docs)
	require.NoError(t, err)
	second, err := newEngine(t).Reconcile("cluster-1", store, docs)
	require.NoError(t, err)

	assert.Equal(t, first.Profile, second.Profile)
	assert.Equal(t, first.PendingConflicts(), second.PendingConflicts())
	assert.Equal(t, first.LowConfidence, second.LowConfidence)
}

func TestProvenanceInvariant(t *testing.T) {
	store := newStore(t,
		obs(fields.FirstName, "Jane", 0.9, "doc-a", t0),
		obs(fields.LastName, "Doe", 0.6, "doc-b", t0),
		obs(fields.Email, "jane@example.com", 0.99, "doc-a", t0),
	)

	result, err := newEngine(t).Reconcile("cluster-1", store, []string{"doc-a", "doc-b"})
	require.NoError(t, err)
	require.NoError(t, result.Profile.CheckInvariants())

	for _, id := range result.Profile.FieldIDs() {
		f := result.Profile.Fields[id]
		assert.NotEmpty(t, f.SourceDocumentIDs, "field %s", id)
	}
}

func TestWithTunablesRejectsZeroWeights(t *testing.T) {
	bad := config.ReconcileTunables{}
	_, err := reconcile.New(reconcile.WithTunables(bad))
	assert.Error(t, err)
}

func TestWithModeRejectsUnknownMode(t *testing.T) {
	_, err := reconcile.New(reconcile.WithMode("turbo"))
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
}
