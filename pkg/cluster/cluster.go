// Package cluster implements the person clustering engine: it partitions a
// batch of uploaded documents into per-person groups and emits similarity
// scored merge suggestions for human confirmation.
//
// Identity grouping errors are costly, so the engine is deliberately
// conservative: documents are auto-merged only on unambiguous signals (an
// equivalent normalized full name or an exact identity-number match), and
// every weaker overlap becomes a SuggestedMerge that names the matching
// fields and waits for explicit confirmation.
package cluster

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/docufill/intake/internal/config"
	"github.com/docufill/intake/internal/textutil"
	"github.com/docufill/intake/pkg/errors"
	"github.com/docufill/intake/pkg/fields"
	"github.com/docufill/intake/pkg/logging"
)

// Document is the clustering engine's view of one uploaded document: its ID,
// detected type, and the best-confidence field snapshot extracted so far.
// Fields may be partial; similarity only considers fields both documents of
// a pair have.
type Document struct {
	ID     string               `yaml:"documentId" json:"documentId"`
	Type   string               `yaml:"documentType" json:"documentType"`
	Fields map[fields.ID]string `yaml:"fields" json:"fields"`
}

// Cluster is one group of documents believed to belong to the same person.
type Cluster struct {
	ID          string   `yaml:"id" json:"id"`
	DocumentIDs []string `yaml:"documentIds" json:"documentIds"`
	DisplayName string   `yaml:"displayName,omitempty" json:"displayName,omitempty"`
}

// SuggestedMerge is an advisory pairing of two clusters with partial
// identity overlap. Never auto-applied.
type SuggestedMerge struct {
	ClusterA       string      `yaml:"clusterIdA" json:"clusterIdA"`
	ClusterB       string      `yaml:"clusterIdB" json:"clusterIdB"`
	Similarity     float64     `yaml:"similarityScore" json:"similarityScore"`
	MatchingFields []fields.ID `yaml:"matchingFields" json:"matchingFields"`
}

// Engine partitions document batches. Like the other engines it is a pure
// function over its inputs: the same batch always produces the same
// partition, the same cluster IDs, and the same suggestions.
type Engine struct {
	tunables config.ClusterTunables
}

// Option configures an Engine.
type Option func(*Engine) error

// WithTunables sets the similarity floors.
func WithTunables(t config.ClusterTunables) Option {
	return func(e *Engine) error {
		if t.NameMatchFloor <= 0 || t.NameMatchFloor > 1 {
			return errors.NewConfigError("cluster", "name match floor must be in (0, 1]", nil)
		}
		e.tunables = t
		return nil
	}
}

// New creates an Engine with options applied over the defaults.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{tunables: config.Defaults().Cluster}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Partition groups a batch of documents into person clusters and returns the
// grouping along with merge suggestions for partially overlapping clusters.
// Every document must carry a non-empty ID.
func (e *Engine) Partition(docs []Document) (*Grouping, []SuggestedMerge, error) {
	if len(docs) == 0 {
		return nil, nil, errors.NewValidationError("documents", docs, "batch is empty")
	}
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if d.ID == "" {
			return nil, nil, errors.NewValidationError("documentId", "", "must not be empty")
		}
		if seen[d.ID] {
			return nil, nil, errors.NewValidationError("documentId", d.ID, "duplicate document in batch")
		}
		seen[d.ID] = true
	}

	// Finest partition first, then union pairs with an unambiguous identity
	// signal. Documents are sorted so union order never depends on input
	// order.
	docs = append([]Document(nil), docs...)
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	uf := newUnionFind(len(docs))
	for i := 0; i < len(docs); i++ {
		for j := i + 1; j < len(docs); j++ {
			if unambiguousMatch(docs[i], docs[j]) {
				uf.union(i, j)
			}
		}
	}

	grouping := buildGrouping(docs, uf)
	suggestions := e.suggestMerges(docs, uf, grouping)

	logging.Debug().
		Int("documents", len(docs)).
		Int("clusters", len(grouping.Clusters())).
		Int("suggestions", len(suggestions)).
		Msg("partitioned batch")

	return grouping, suggestions, nil
}

// unambiguousMatch reports whether two documents carry a strong identity
// signal: an equivalent normalized full name or an exact identity-number
// match on any identity field.
func unambiguousMatch(a, b Document) bool {
	if av, bv := a.Fields[fields.FullName], b.Fields[fields.FullName]; av != "" && bv != "" {
		if fields.Equivalent(fields.FullName, av, bv) {
			return true
		}
	}
	for _, id := range fields.IdentityNumbers() {
		if av, bv := a.Fields[id], b.Fields[id]; av != "" && bv != "" {
			if fields.Equivalent(id, av, bv) {
				return true
			}
		}
	}
	return false
}

// pairSimilarity scores the identity overlap of two documents over the
// strong identity fields both have. Names compare fuzzily; dates and
// identity numbers are all-or-nothing. The returned matching fields are the
// ones that agreed.
func (e *Engine) pairSimilarity(a, b Document) (float64, []fields.ID) {
	var (
		total    float64
		shared   int
		matching []fields.ID
	)

	for _, id := range fields.StrongIdentity() {
		av, bv := a.Fields[id], b.Fields[id]
		if av == "" || bv == "" {
			continue
		}
		shared++

		var score float64
		if fields.KindOf(id) == fields.KindName {
			score = textutil.Similarity(av, bv)
			if score >= e.tunables.NameMatchFloor {
				matching = append(matching, id)
			}
		} else if fields.Equivalent(id, av, bv) {
			score = 1
			matching = append(matching, id)
		}
		total += score
	}

	if shared == 0 {
		return 0, nil
	}
	return total / float64(shared), matching
}

// suggestMerges emits a SuggestedMerge for every pair of distinct clusters
// with partial identity overlap at or above the suggest floor. The pair's
// score is the best document-pair score across the two clusters, and the
// matching fields are the union of the pairs' matching fields.
func (e *Engine) suggestMerges(docs []Document, uf *unionFind, grouping *Grouping) []SuggestedMerge {
	type pairKey struct{ a, b string }
	best := make(map[pairKey]*SuggestedMerge)

	for i := 0; i < len(docs); i++ {
		for j := i + 1; j < len(docs); j++ {
			if uf.find(i) == uf.find(j) {
				continue
			}
			score, matching := e.pairSimilarity(docs[i], docs[j])
			if score < e.tunables.SuggestFloor || len(matching) == 0 {
				continue
			}

			a := grouping.ClusterOf(docs[i].ID)
			b := grouping.ClusterOf(docs[j].ID)
			if b < a {
				a, b = b, a
			}

			key := pairKey{a, b}
			s, ok := best[key]
			if !ok {
				s = &SuggestedMerge{ClusterA: a, ClusterB: b}
				best[key] = s
			}
			if score > s.Similarity {
				s.Similarity = score
			}
			s.MatchingFields = mergeFieldIDs(s.MatchingFields, matching)
		}
	}

	suggestions := make([]SuggestedMerge, 0, len(best))
	for _, s := range best {
		suggestions = append(suggestions, *s)
	}
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Similarity != suggestions[j].Similarity {
			return suggestions[i].Similarity > suggestions[j].Similarity
		}
		if suggestions[i].ClusterA != suggestions[j].ClusterA {
			return suggestions[i].ClusterA < suggestions[j].ClusterA
		}
		return suggestions[i].ClusterB < suggestions[j].ClusterB
	})
	return suggestions
}

func buildGrouping(docs []Document, uf *unionFind) *Grouping {
	members := make(map[int][]Document)
	for i := range docs {
		root := uf.find(i)
		members[root] = append(members[root], docs[i])
	}

	g := newGrouping()
	for _, group := range members {
		ids := make([]string, 0, len(group))
		for _, d := range group {
			ids = append(ids, d.ID)
		}
		sort.Strings(ids)

		c := &Cluster{
			ID:          DeriveID(ids),
			DocumentIDs: ids,
			DisplayName: displayName(group),
		}
		g.add(c)
	}
	return g
}

// displayName picks the group's full name snapshot from the lowest-ID
// document that has one, falling back to first+last name.
func displayName(group []Document) string {
	sort.Slice(group, func(i, j int) bool { return group[i].ID < group[j].ID })
	for _, d := range group {
		if name := d.Fields[fields.FullName]; name != "" {
			return name
		}
	}
	for _, d := range group {
		first, last := d.Fields[fields.FirstName], d.Fields[fields.LastName]
		if first != "" || last != "" {
			return strings.TrimSpace(first + " " + last)
		}
	}
	return ""
}

// clusterNamespace scopes the derived cluster UUIDs.
var clusterNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://docufill.github.io/intake/cluster"))

// DeriveID computes a cluster's ID from its sorted member document IDs.
// Deterministic so that re-running a partition on the same batch reproduces
// identical cluster IDs.
func DeriveID(sortedDocIDs []string) string {
	return uuid.NewSHA1(clusterNamespace, []byte(strings.Join(sortedDocIDs, "\x00"))).String()
}

func mergeFieldIDs(existing, extra []fields.ID) []fields.ID {
	have := make(map[fields.ID]bool, len(existing))
	for _, id := range existing {
		have[id] = true
	}
	for _, id := range extra {
		if !have[id] {
			existing = append(existing, id)
			have[id] = true
		}
	}
	sort.Slice(existing, func(i, j int) bool { return existing[i] < existing[j] })
	return existing
}

// unionFind is a plain disjoint-set over document indices.
type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(i int) int {
	for u.parent[i] != i {
		u.parent[i] = u.parent[u.parent[i]]
		i = u.parent[i]
	}
	return i
}

func (u *unionFind) union(i, j int) {
	ri, rj := u.find(i), u.find(j)
	if ri != rj {
		if rj < ri {
			ri, rj = rj, ri
		}
		u.parent[rj] = ri
	}
}
