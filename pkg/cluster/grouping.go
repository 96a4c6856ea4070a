package cluster

import (
	"sort"

	"github.com/docufill/intake/pkg/errors"
)

// Grouping is the mutable set of person clusters for one batch. Documents
// may move between clusters through Move, Merge, and Split until the
// grouping is frozen; after Freeze every mutation is rejected and the
// clusters are handed independently to reconciliation.
//
// A document belongs to exactly one cluster at a time, and a cluster that
// loses its last document disappears.
type Grouping struct {
	clusters map[string]*Cluster
	byDoc    map[string]string
	frozen   bool
}

func newGrouping() *Grouping {
	return &Grouping{
		clusters: make(map[string]*Cluster),
		byDoc:    make(map[string]string),
	}
}

func (g *Grouping) add(c *Cluster) {
	g.clusters[c.ID] = c
	for _, docID := range c.DocumentIDs {
		g.byDoc[docID] = c.ID
	}
}

// Frozen reports whether the grouping has been frozen.
func (g *Grouping) Frozen() bool {
	return g.frozen
}

// Freeze makes the grouping immutable. Idempotent.
func (g *Grouping) Freeze() {
	g.frozen = true
}

// Clusters returns copies of all clusters sorted by ID.
func (g *Grouping) Clusters() []Cluster {
	out := make([]Cluster, 0, len(g.clusters))
	for _, c := range g.clusters {
		out = append(out, snapshot(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Cluster returns a copy of one cluster.
func (g *Grouping) Cluster(id string) (Cluster, error) {
	c, ok := g.clusters[id]
	if !ok {
		return Cluster{}, errors.NewNotFoundError("cluster", id)
	}
	return snapshot(c), nil
}

// ClusterOf returns the ID of the cluster a document belongs to, or "".
func (g *Grouping) ClusterOf(docID string) string {
	return g.byDoc[docID]
}

// Move places a document into another cluster. The source cluster is
// removed if the move empties it.
func (g *Grouping) Move(docID, toClusterID string) error {
	if g.frozen {
		return errors.NewFrozenError("move document")
	}
	fromID, ok := g.byDoc[docID]
	if !ok {
		return errors.NewNotFoundError("document", docID)
	}
	to, ok := g.clusters[toClusterID]
	if !ok {
		return errors.NewNotFoundError("cluster", toClusterID)
	}
	if fromID == toClusterID {
		return nil
	}

	g.removeDoc(fromID, docID)
	to.DocumentIDs = insertSorted(to.DocumentIDs, docID)
	g.byDoc[docID] = toClusterID
	return nil
}

// Merge folds cluster b into cluster a. Cluster a keeps its ID and display
// name; b disappears.
func (g *Grouping) Merge(a, b string) error {
	if g.frozen {
		return errors.NewFrozenError("merge clusters")
	}
	ca, ok := g.clusters[a]
	if !ok {
		return errors.NewNotFoundError("cluster", a)
	}
	cb, ok := g.clusters[b]
	if !ok {
		return errors.NewNotFoundError("cluster", b)
	}
	if a == b {
		return nil
	}

	for _, docID := range cb.DocumentIDs {
		ca.DocumentIDs = insertSorted(ca.DocumentIDs, docID)
		g.byDoc[docID] = a
	}
	if ca.DisplayName == "" {
		ca.DisplayName = cb.DisplayName
	}
	delete(g.clusters, b)
	return nil
}

// Split extracts the given documents from their shared cluster into a new
// cluster and returns the new cluster's ID. The documents must all belong
// to the same cluster and must not be the whole of it.
func (g *Grouping) Split(docIDs []string) (string, error) {
	if g.frozen {
		return "", errors.NewFrozenError("split cluster")
	}
	if len(docIDs) == 0 {
		return "", errors.NewValidationError("documentIds", docIDs, "nothing to split")
	}

	fromID := g.byDoc[docIDs[0]]
	for _, docID := range docIDs {
		id, ok := g.byDoc[docID]
		if !ok {
			return "", errors.NewNotFoundError("document", docID)
		}
		if id != fromID {
			return "", errors.NewValidationError("documentIds", docIDs, "documents span multiple clusters")
		}
	}
	from := g.clusters[fromID]
	if len(docIDs) >= len(from.DocumentIDs) {
		return "", errors.NewValidationError("documentIds", docIDs, "cannot split off an entire cluster")
	}

	ids := append([]string(nil), docIDs...)
	sort.Strings(ids)

	split := &Cluster{ID: DeriveID(ids), DocumentIDs: ids}
	for _, docID := range ids {
		g.removeDoc(fromID, docID)
	}
	g.add(split)
	return split.ID, nil
}

// Rename sets a cluster's display name.
func (g *Grouping) Rename(id, displayName string) error {
	if g.frozen {
		return errors.NewFrozenError("rename cluster")
	}
	c, ok := g.clusters[id]
	if !ok {
		return errors.NewNotFoundError("cluster", id)
	}
	c.DisplayName = displayName
	return nil
}

func (g *Grouping) removeDoc(clusterID, docID string) {
	c := g.clusters[clusterID]
	for i, id := range c.DocumentIDs {
		if id == docID {
			c.DocumentIDs = append(c.DocumentIDs[:i], c.DocumentIDs[i+1:]...)
			break
		}
	}
	delete(g.byDoc, docID)
	if len(c.DocumentIDs) == 0 {
		delete(g.clusters, clusterID)
	}
}

func snapshot(c *Cluster) Cluster {
	return Cluster{
		ID:          c.ID,
		DocumentIDs: append([]string(nil), c.DocumentIDs...),
		DisplayName: c.DisplayName,
	}
}

func insertSorted(ids []string, id string) []string {
	i := sort.SearchStrings(ids, id)
	if i < len(ids) && ids[i] == id {
		return ids
	}
	ids = append(ids, "")
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}
