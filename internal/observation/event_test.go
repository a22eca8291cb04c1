package observation

import (
	"testing"

	"github.com/evalgo/preloadd/internal/domain"
)

func TestObservationFindMemStat(t *testing.T) {
	obs := Observation{
		ObsBegin{Time: 1, ScanID: 1},
		MemStat{Mem: domain.MemStat{TotalKB: 100}},
		ObsEnd{Time: 1, ScanID: 1},
	}
	ms, ok := obs.FindMemStat()
	if !ok || ms.TotalKB != 100 {
		t.Fatalf("got %+v, %v", ms, ok)
	}
}

func TestObservationFindMemStatAbsent(t *testing.T) {
	obs := Observation{ObsBegin{Time: 1, ScanID: 1}, ObsEnd{Time: 1, ScanID: 1}}
	if _, ok := obs.FindMemStat(); ok {
		t.Fatal("expected no MemStat")
	}
}

func TestMinSizePolicyAdmitsAboveFloor(t *testing.T) {
	p := NewMinSizePolicy(4096, nil)
	if !p.AdmitMap(domain.MapSegment{Length: 4096}) {
		t.Fatal("expected admit at floor")
	}
	if p.AdmitMap(domain.MapSegment{Length: 100}) {
		t.Fatal("expected reject below floor")
	}
}
