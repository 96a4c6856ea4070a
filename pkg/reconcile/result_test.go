package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/fields"
	"github.com/docufill/intake/pkg/reconcile"
)

// conflictedResult reconciles a cluster with one guaranteed DOB conflict.
func conflictedResult(t *testing.T) *reconcile.Result {
	t.Helper()
	store := newStore(t,
		obs(fields.DateOfBirth, "1990-01-01", 0.9, "doc-a", t0),
		obs(fields.DateOfBirth, "1991-01-01", 0.8, "doc-b", t0.Add(time.Minute)),
		obs(fields.FirstName, "Jane", 0.9, "doc-a", t0),
	)
	result, err := newEngine(t).Reconcile("cluster-1", store, []string{"doc-a", "doc-b"})
	require.NoError(t, err)
	require.Len(t, result.PendingConflicts(), 1)
	return result
}

func TestResolveConflictBySelection(t *testing.T) {
	result := conflictedResult(t)

	require.NoError(t, result.ResolveConflict(fields.DateOfBirth, 0, nil))

	assert.Empty(t, result.PendingConflicts())
	conflict, ok := result.Conflict(fields.DateOfBirth)
	require.True(t, ok)
	assert.True(t, conflict.Resolved)
	assert.Equal(t, 0, conflict.SelectedIndex)

	f := result.Profile.Fields[fields.DateOfBirth]
	assert.Equal(t, conflict.Candidates[0].Value, f.Value)
	assert.Equal(t, conflict.Candidates[0].SourceDocumentIDs, f.SourceDocumentIDs)
	assert.False(t, f.Edited)
	require.NoError(t, result.Profile.CheckInvariants())
}

func TestResolveConflictIsIdempotent(t *testing.T) {
	result := conflictedResult(t)

	require.NoError(t, result.ResolveConflict(fields.DateOfBirth, 1, nil))
	before := result.Profile.Fields[fields.DateOfBirth]

	require.NoError(t, result.ResolveConflict(fields.DateOfBirth, 1, nil))
	assert.Equal(t, before, result.Profile.Fields[fields.DateOfBirth])
	assert.Empty(t, result.PendingConflicts())
}

func TestResolveConflictReplacesPriorResolution(t *testing.T) {
	result := conflictedResult(t)

	require.NoError(t, result.ResolveConflict(fields.DateOfBirth, 0, nil))
	require.NoError(t, result.ResolveConflict(fields.DateOfBirth, 1, nil))

	conflict, _ := result.Conflict(fields.DateOfBirth)
	assert.Equal(t, 1, conflict.SelectedIndex)
	assert.Equal(t, conflict.Candidates[1].Value, result.Profile.Fields[fields.DateOfBirth].Value)
}

func TestResolveConflictWithCustomValue(t *testing.T) {
	result := conflictedResult(t)

	custom := "1990-06-15"
	require.NoError(t, result.ResolveConflict(fields.DateOfBirth, 0, &custom))

	f := result.Profile.Fields[fields.DateOfBirth]
	assert.Equal(t, custom, f.Value)
	assert.True(t, f.Edited)
	assert.Empty(t, f.SourceDocumentIDs)
	assert.Equal(t, 1.0, f.Confidence)

	conflict, _ := result.Conflict(fields.DateOfBirth)
	assert.True(t, conflict.Resolved)
	assert.Equal(t, -1, conflict.SelectedIndex)
	require.NotNil(t, conflict.CustomValue)
	assert.Equal(t, custom, *conflict.CustomValue)

	// Edited fields are exempt from the provenance invariant.
	require.NoError(t, result.Profile.CheckInvariants())
}

func TestResolveConflictRejectsBadIndex(t *testing.T) {
	result := conflictedResult(t)

	err := result.ResolveConflict(fields.DateOfBirth, 5, nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))

	err = result.ResolveConflict(fields.DateOfBirth, -1, nil)
	assert.Error(t, err)
}

func TestResolveConflictUnknownConflict(t *testing.T) {
	result := conflictedResult(t)

	err := result.ResolveConflict(fields.FirstName, 0, nil)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateFieldOverridesAnything(t *testing.T) {
	result := conflictedResult(t)

	// Editing a non-conflicted, already-reconciled field.
	require.NoError(t, result.UpdateField(fields.FirstName, "Janet"))
	f := result.Profile.Fields[fields.FirstName]
	assert.Equal(t, "Janet", f.Value)
	assert.True(t, f.Edited)
	assert.Equal(t, 1.0, f.Confidence)

	// Editing a field with no value at all.
	require.NoError(t, result.UpdateField(fields.Email, "jane@example.com"))
	assert.True(t, result.Profile.Fields[fields.Email].Edited)

	require.NoError(t, result.Profile.CheckInvariants())
}

func TestUpdateFieldSettlesPendingConflict(t *testing.T) {
	result := conflictedResult(t)

	require.NoError(t, result.UpdateField(fields.DateOfBirth, "1992-02-02"))

	assert.Empty(t, result.PendingConflicts())
	conflict, _ := result.Conflict(fields.DateOfBirth)
	assert.True(t, conflict.Resolved)
	require.NotNil(t, conflict.CustomValue)
	assert.Equal(t, "1992-02-02", *conflict.CustomValue)
}

func TestUpdateFieldRejectsUnknownField(t *testing.T) {
	result := conflictedResult(t)

	err := result.UpdateField(fields.ID("favoriteColor"), "blue")
	require.Error(t, err)
	assert.True(t, errors.IsUnknownField(err))
}

func TestResolutionClearsLowConfidenceFlag(t *testing.T) {
	store := newStore(t,
		obs(fields.Occupation, "Engineer", 0.5, "doc-a", t0),
	)
	result, err := newEngine(t).Reconcile("cluster-1", store, []string{"doc-a"})
	require.NoError(t, err)
	require.Len(t, result.LowConfidence, 1)

	require.NoError(t, result.UpdateField(fields.Occupation, "Engineer"))
	assert.Empty(t, result.LowConfidence)
}
