package snapshot

import (
	"testing"

	"github.com/evalgo/preloadd/internal/domain"
	"github.com/evalgo/preloadd/internal/stores"
	"github.com/stretchr/testify/assert"
)

func TestTimeToLeaveRoundTrip(t *testing.T) {
	v := [4]float32{1.5, -2.25, 0, 3.625}
	buf := EncodeTimeToLeave(v)
	got, err := DecodeTimeToLeave(buf)
	assert.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestTransitionProbRoundTrip(t *testing.T) {
	var v [4][4]float32
	v[0][1] = 0.75
	v[3][2] = 1.0
	buf := EncodeTransitionProb(v)
	got, err := DecodeTransitionProb(buf)
	assert.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestDecodeTimeToLeaveRejectsWrongLength(t *testing.T) {
	_, err := DecodeTimeToLeave([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestSnapshotRoundTripViaStores(t *testing.T) {
	s := stores.New()
	a := s.EnsureExe("/bin/a")
	b := s.EnsureExe("/bin/b")
	exeA, _ := s.Exe(a)
	exeA.TotalRunningTime = 40
	lastSeen := uint64(10)
	exeA.LastSeenTime = &lastSeen

	mapID := s.EnsureMap(domain.MapSegment{Path: "/lib/libc.so", Offset: 0, Length: 4096, UpdateTime: 5})
	s.AttachMap(a, mapID)
	s.EnsureMarkovEdge(a, b, 0, domain.Both)
	edge, _ := s.Markov.Get(stores.NewEdgeKey(a, b))
	edge.TimeToLeave[domain.Both.Index()] = 3.625
	s.Active.Update([]domain.ExeID{a, b}, 10)

	snap := FromStores(s, "test", 0)
	assert.Equal(t, 2, len(snap.State.Exes))
	assert.Equal(t, 1, len(snap.State.Maps))
	assert.Equal(t, 1, len(snap.State.MarkovEdges))

	restored, err := ToStores(snap, 10, 1000)
	assert.NoError(t, err)
	assert.Equal(t, 2, restored.NumExes())
	assert.Equal(t, 1, restored.NumMaps())

	idA, ok := restored.ExeIDByKey("/bin/a")
	assert.True(t, ok)
	restoredExeA, _ := restored.Exe(idA)
	assert.Equal(t, uint64(40), restoredExeA.TotalRunningTime)
}

func TestToStoresRejectsMismatchedSchema(t *testing.T) {
	snap := Snapshot{Meta: Meta{SchemaVersion: 999}}
	_, err := ToStores(snap, 0, 1000)
	assert.ErrorIs(t, err, domain.ErrSnapshotSchema)
}

func TestToStoresFailsFastOnDanglingExeMap(t *testing.T) {
	snap := Snapshot{
		Meta: Meta{SchemaVersion: SchemaVersion},
		State: State{
			ExeMaps: []ExeMapRecord{{ExePath: "/missing"}},
		},
	}
	_, err := ToStores(snap, 0, 1000)
	assert.ErrorIs(t, err, domain.ErrExeMissing)
}
