package observation

import (
	"fmt"

	"github.com/evalgo/preloadd/internal/domain"
	"github.com/prometheus/procfs"
	"github.com/shirou/gopsutil/v4/mem"
)

// Scanner produces one Observation per call to Scan. Implementations must
// not block past the point they can reasonably be expected to return; the
// engine treats a scan as one of the few suspension points in its loop.
type Scanner interface {
	Scan(now uint64, scanID uint64) (Observation, error)
}

// ProcFSScanner walks /proc via github.com/prometheus/procfs and reports
// host memory via github.com/shirou/gopsutil/v4/mem. A per-pid failure (the
// process having exited mid-scan, most commonly) becomes a ScanWarning
// rather than aborting the scan.
type ProcFSScanner struct {
	fs     procfs.FS
	Policy AdmissionPolicy
}

// NewProcFSScanner opens the default /proc mount.
func NewProcFSScanner(policy AdmissionPolicy) (*ProcFSScanner, error) {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return nil, fmt.Errorf("observation: open procfs: %w", err)
	}
	return &ProcFSScanner{fs: fs, Policy: policy}, nil
}

func (s *ProcFSScanner) Scan(now uint64, scanID uint64) (Observation, error) {
	var obs Observation
	obs = append(obs, ObsBegin{Time: now, ScanID: scanID})

	if ms, ok := s.hostMemStat(); ok {
		obs = append(obs, MemStat{Mem: ms})
	}

	procs, err := s.fs.AllProcs()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrScanFailed, err)
	}

	var warnings []ScanWarning
	seen := make(map[string]struct{})
	for _, p := range procs {
		exePath, err := p.Executable()
		if err != nil || exePath == "" {
			warnings = append(warnings, ScanWarning{PID: uint32(p.PID), Reason: "no executable path"})
			continue
		}
		clean, ok := sanitizePath(exePath)
		if !ok {
			continue
		}
		if !s.Policy.AdmitExe(clean) {
			continue
		}
		if _, dup := seen[clean]; dup {
			continue
		}
		seen[clean] = struct{}{}
		obs = append(obs, ExeSeen{Path: clean, PID: uint32(p.PID)})

		maps, err := p.ProcMaps()
		if err != nil {
			warnings = append(warnings, ScanWarning{PID: uint32(p.PID), Reason: "read maps: " + err.Error()})
			continue
		}
		for _, m := range maps {
			if m.Pathname == "" {
				continue
			}
			mpath, ok := sanitizePath(m.Pathname)
			if !ok {
				continue
			}
			length := uint64(m.EndAddr - m.StartAddr)
			seg := domain.MapSegment{
				Path:       mpath,
				Offset:     uint64(m.Offset),
				Length:     length,
				UpdateTime: now,
			}
			// Every MapSeen reaches the fold step regardless of its own size;
			// admission is decided on the aggregate mapped bytes for the exe,
			// not per region (see updater.admitByBytes).
			obs = append(obs, MapSeen{ExePath: clean, Map: seg})
		}
	}

	obs = append(obs, ObsEnd{Time: now, ScanID: scanID, Warnings: warnings})
	return obs, nil
}

func (s *ProcFSScanner) hostMemStat() (domain.MemStat, bool) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return domain.MemStat{}, false
	}
	var pageIn, pageOut uint64
	if st, err := s.fs.Stat(); err == nil {
		if len(st.PageIn) > 0 {
			pageIn = st.PageIn[0]
		}
		if len(st.PageOut) > 0 {
			pageOut = st.PageOut[0]
		}
	}
	return domain.MemStat{
		TotalKB:  vm.Total / 1024,
		FreeKB:   vm.Free / 1024,
		CachedKB: vm.Cached / 1024,
		PageIn:   pageIn,
		PageOut:  pageOut,
	}, true
}
