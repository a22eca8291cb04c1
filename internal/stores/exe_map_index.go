package stores

import "github.com/evalgo/preloadd/internal/domain"

// ExeMapIndex is the symmetric exe<->map incidence relation: an exe is
// associated with every distinct map region ever observed in its address
// space, until pruned.
type ExeMapIndex struct {
	exeToMaps map[domain.ExeID]map[domain.MapID]struct{}
	mapToExes map[domain.MapID]map[domain.ExeID]struct{}
}

// NewExeMapIndex returns an empty incidence index.
func NewExeMapIndex() *ExeMapIndex {
	return &ExeMapIndex{
		exeToMaps: make(map[domain.ExeID]map[domain.MapID]struct{}),
		mapToExes: make(map[domain.MapID]map[domain.ExeID]struct{}),
	}
}

// Attach idempotently records that exeID's address space includes mapID.
func (idx *ExeMapIndex) Attach(exeID domain.ExeID, mapID domain.MapID) {
	if idx.exeToMaps[exeID] == nil {
		idx.exeToMaps[exeID] = make(map[domain.MapID]struct{})
	}
	idx.exeToMaps[exeID][mapID] = struct{}{}

	if idx.mapToExes[mapID] == nil {
		idx.mapToExes[mapID] = make(map[domain.ExeID]struct{})
	}
	idx.mapToExes[mapID][exeID] = struct{}{}
}

// MapsForExe returns every map attached to exeID.
func (idx *ExeMapIndex) MapsForExe(exeID domain.ExeID) []domain.MapID {
	set := idx.exeToMaps[exeID]
	out := make([]domain.MapID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// ExesForMap returns every exe whose address space includes mapID.
func (idx *ExeMapIndex) ExesForMap(mapID domain.MapID) []domain.ExeID {
	set := idx.mapToExes[mapID]
	out := make([]domain.ExeID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// RemoveExe drops exeID from the index entirely, cleaning up any map whose
// incidence set becomes empty as a result.
func (idx *ExeMapIndex) RemoveExe(exeID domain.ExeID) {
	maps, ok := idx.exeToMaps[exeID]
	if !ok {
		return
	}
	delete(idx.exeToMaps, exeID)
	for mapID := range maps {
		if exes, ok := idx.mapToExes[mapID]; ok {
			delete(exes, exeID)
			if len(exes) == 0 {
				delete(idx.mapToExes, mapID)
			}
		}
	}
}
