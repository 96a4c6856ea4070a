package cluster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docufill/intake/internal/config"
	"github.com/docufill/intake/pkg/cluster"
	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/fields"
)

func doc(id string, docType string, fieldValues map[fields.ID]string) cluster.Document {
	return cluster.Document{ID: id, Type: docType, Fields: fieldValues}
}

func newEngine(t *testing.T, opts ...cluster.Option) *cluster.Engine {
	t.Helper()
	engine, err := cluster.New(opts...)
	require.NoError(t, err)
	return engine
}

func TestSingleDocumentSingleCluster(t *testing.T) {
	grouping, suggestions, err := newEngine(t).Partition([]cluster.Document{
		doc("doc-a", "passport", map[fields.ID]string{fields.FullName: "Jane Doe"}),
	})
	require.NoError(t, err)

	clusters := grouping.Clusters()
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"doc-a"}, clusters[0].DocumentIDs)
	assert.Equal(t, "Jane Doe", clusters[0].DisplayName)
	assert.Empty(t, suggestions)
}

// An exact identity-number match, and a full-name match for a document
// without identity numbers, each merge automatically.
func TestStrongSignalsAutoMerge(t *testing.T) {
	docs := []cluster.Document{
		doc("doc-a", "passport", map[fields.ID]string{
			fields.FullName:       "Jane Doe",
			fields.PassportNumber: "X123",
		}),
		doc("doc-b", "bank_statement", map[fields.ID]string{
			fields.PassportNumber: "x-123", // identifier normalization
		}),
		doc("doc-c", "utility_bill", map[fields.ID]string{
			fields.FullName: "JANE DOE",
		}),
	}

	grouping, suggestions, err := newEngine(t).Partition(docs)
	require.NoError(t, err)

	clusters := grouping.Clusters()
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"doc-a", "doc-b", "doc-c"}, clusters[0].DocumentIDs)
	assert.Empty(t, suggestions)
}

// Scenario: three documents share a passport number; a fourth has no
// identity number but shares the full name. All four group together
// automatically.
func TestIdentityNumberPlusNameChains(t *testing.T) {
	docs := []cluster.Document{
		doc("doc-a", "passport", map[fields.ID]string{
			fields.FullName: "Jane Doe", fields.PassportNumber: "X123",
		}),
		doc("doc-b", "visa", map[fields.ID]string{fields.PassportNumber: "X123"}),
		doc("doc-c", "permit", map[fields.ID]string{fields.PassportNumber: "X123"}),
		doc("doc-d", "utility_bill", map[fields.ID]string{
			fields.FullName: "Jane Doe", fields.DateOfBirth: "1990-01-01",
		}),
	}

	grouping, _, err := newEngine(t).Partition(docs)
	require.NoError(t, err)

	clusters := grouping.Clusters()
	require.Len(t, clusters, 1)
	assert.Len(t, clusters[0].DocumentIDs, 4)
}

// A fuzzy name match without an identity number is never auto-merged; it
// becomes a suggestion naming the matching fields.
func TestFuzzyNameSuggestsNotMerges(t *testing.T) {
	docs := []cluster.Document{
		doc("doc-a", "passport", map[fields.ID]string{fields.FullName: "John Smith"}),
		doc("doc-b", "utility_bill", map[fields.ID]string{fields.FullName: "Jon Smith"}),
	}

	grouping, suggestions, err := newEngine(t).Partition(docs)
	require.NoError(t, err)

	require.Len(t, grouping.Clusters(), 2)
	require.Len(t, suggestions, 1)

	s := suggestions[0]
	assert.ElementsMatch(t,
		[]string{grouping.ClusterOf("doc-a"), grouping.ClusterOf("doc-b")},
		[]string{s.ClusterA, s.ClusterB})
	assert.Contains(t, s.MatchingFields, fields.FullName)
	assert.Greater(t, s.Similarity, 0.5)
	assert.Less(t, s.Similarity, 1.0)
}

// Reordered name tokens are not an exact normalized match, but they must
// still earn a merge suggestion.
func TestReorderedNameSuggestsMerge(t *testing.T) {
	docs := []cluster.Document{
		doc("doc-a", "passport", map[fields.ID]string{fields.FullName: "Jane Doe"}),
		doc("doc-b", "bank_statement", map[fields.ID]string{fields.FullName: "Doe, Jane"}),
	}

	grouping, suggestions, err := newEngine(t).Partition(docs)
	require.NoError(t, err)

	require.Len(t, grouping.Clusters(), 2)
	require.Len(t, suggestions, 1)
	assert.Contains(t, suggestions[0].MatchingFields, fields.FullName)
	assert.GreaterOrEqual(t, suggestions[0].Similarity, 0.82)
}

func TestUnrelatedDocumentsStayApart(t *testing.T) {
	docs := []cluster.Document{
		doc("doc-a", "passport", map[fields.ID]string{
			fields.FullName: "Jane Doe", fields.DateOfBirth: "1990-01-01",
		}),
		doc("doc-b", "passport", map[fields.ID]string{
			fields.FullName: "Arthur Pendleton", fields.DateOfBirth: "1955-07-30",
		}),
	}

	grouping, suggestions, err := newEngine(t).Partition(docs)
	require.NoError(t, err)

	assert.Len(t, grouping.Clusters(), 2)
	assert.Empty(t, suggestions)
}

func TestPartitionIsDeterministic(t *testing.T) {
	forward := []cluster.Document{
		doc("doc-a", "passport", map[fields.ID]string{fields.FullName: "Jane Doe"}),
		doc("doc-b", "visa", map[fields.ID]string{fields.FullName: "Jane Doe"}),
		doc("doc-c", "passport", map[fields.ID]string{fields.FullName: "John Smith"}),
	}
	reversed := []cluster.Document{forward[2], forward[1], forward[0]}

	g1, s1, err := newEngine(t).Partition(forward)
	require.NoError(t, err)
	g2, s2, err := newEngine(t).Partition(reversed)
	require.NoError(t, err)

	assert.Equal(t, g1.Clusters(), g2.Clusters())
	assert.Equal(t, s1, s2)
}

func TestClusterIDsAreStable(t *testing.T) {
	assert.Equal(t,
		cluster.DeriveID([]string{"doc-a", "doc-b"}),
		cluster.DeriveID([]string{"doc-a", "doc-b"}))
	assert.NotEqual(t,
		cluster.DeriveID([]string{"doc-a"}),
		cluster.DeriveID([]string{"doc-b"}))
}

func TestPartitionValidatesBatch(t *testing.T) {
	engine := newEngine(t)

	_, _, err := engine.Partition(nil)
	assert.True(t, errors.IsValidationError(err))

	_, _, err = engine.Partition([]cluster.Document{doc("", "passport", nil)})
	assert.True(t, errors.IsValidationError(err))

	_, _, err = engine.Partition([]cluster.Document{
		doc("doc-a", "passport", nil),
		doc("doc-a", "visa", nil),
	})
	assert.True(t, errors.IsValidationError(err))
}

func TestWithTunablesRejectsBadFloor(t *testing.T) {
	_, err := cluster.New(cluster.WithTunables(config.ClusterTunables{NameMatchFloor: 0}))
	assert.Error(t, err)
}
