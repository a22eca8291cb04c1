package stores

import "github.com/evalgo/preloadd/internal/domain"

// MarkovGraph owns the Markov edge map, keyed by the canonical EdgeKey.
type MarkovGraph struct {
	edges map[EdgeKey]*domain.MarkovEdge
}

// NewMarkovGraph returns an empty graph.
func NewMarkovGraph() *MarkovGraph {
	return &MarkovGraph{edges: make(map[EdgeKey]*domain.MarkovEdge)}
}

// EnsureEdge inserts a new edge for (a, b) in state at time now if one does
// not already exist. Returns true iff a new edge was created. a == b is
// rejected by the caller (Stores.EnsureMarkovEdge), never reaches here.
func (g *MarkovGraph) EnsureEdge(a, b domain.ExeID, now uint64, state domain.MarkovState) bool {
	key := NewEdgeKey(a, b)
	if _, exists := g.edges[key]; exists {
		return false
	}
	g.edges[key] = domain.NewMarkovEdge(state, now)
	return true
}

// Get returns the edge for key, if any.
func (g *MarkovGraph) Get(key EdgeKey) (*domain.MarkovEdge, bool) {
	e, ok := g.edges[key]
	return e, ok
}

// Iter calls fn for every edge. fn must not mutate the graph.
func (g *MarkovGraph) Iter(fn func(key EdgeKey, edge *domain.MarkovEdge)) {
	for k, e := range g.edges {
		fn(k, e)
	}
}

// PruneInactive drops every edge with at least one endpoint outside active.
func (g *MarkovGraph) PruneInactive(active map[domain.ExeID]struct{}) (pruned int) {
	for key := range g.edges {
		if _, okA := active[key.A]; !okA {
			delete(g.edges, key)
			pruned++
			continue
		}
		if _, okB := active[key.B]; !okB {
			delete(g.edges, key)
			pruned++
		}
	}
	return pruned
}

// Len reports the number of tracked edges.
func (g *MarkovGraph) Len() int { return len(g.edges) }
