package domain

// MemStat carries the host memory statistics observed during a single scan,
// in kilobytes, plus page-in/page-out counters used only for logging.
type MemStat struct {
	TotalKB  uint64
	FreeKB   uint64
	CachedKB uint64
	PageIn   uint64
	PageOut  uint64
}
