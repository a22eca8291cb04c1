// Package stores owns every entity and relation in the model: exes, maps,
// their incidence, the Markov edge graph, and the active set. Exactly one
// task — the engine — ever mutates a Stores; there is no internal locking,
// unlike an arena shared across goroutines that would need a mutex.
package stores

import "github.com/evalgo/preloadd/internal/domain"

// EdgeKey canonicalizes an unordered exe pair as (min, max) so there is at
// most one Markov edge per pair regardless of discovery order.
type EdgeKey struct {
	A domain.ExeID
	B domain.ExeID
}

// NewEdgeKey builds the canonical key for the pair (a, b).
func NewEdgeKey(a, b domain.ExeID) EdgeKey {
	if a < b {
		return EdgeKey{A: a, B: b}
	}
	return EdgeKey{A: b, B: a}
}
