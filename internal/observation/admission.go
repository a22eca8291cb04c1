package observation

import "github.com/evalgo/preloadd/internal/domain"

// AdmissionPolicy decides, independent of path sanitization, whether a
// newly-seen exe and an individual mapped region are worth tracking.
// AdmitExe gates a not-yet-known exe path by prefix rules only; whether the
// exe is worth creating at all is decided on its *aggregate* mapped bytes
// via AdmitTotalBytes, matching admit(path, total_mapped_bytes) — never on
// any single region in isolation. AdmitMap remains for callers (tests) that
// reason about one already-admitted region at a time.
type AdmissionPolicy interface {
	AdmitMap(seg domain.MapSegment) bool
	AdmitExe(path string) bool
	AdmitTotalBytes(total uint64) bool
}

// MinSizePolicy admits every exe by prefix and admits a total mapped-bytes
// figure at or above MinBytes, configured via model.minsize.
type MinSizePolicy struct {
	MinBytes   uint64
	PrefixRules []PrefixRule
}

// NewMinSizePolicy returns a policy with the given floor and prefix rules.
func NewMinSizePolicy(minBytes uint64, rules []PrefixRule) *MinSizePolicy {
	return &MinSizePolicy{MinBytes: minBytes, PrefixRules: rules}
}

func (p *MinSizePolicy) AdmitMap(seg domain.MapSegment) bool {
	return seg.Length >= p.MinBytes
}

func (p *MinSizePolicy) AdmitExe(path string) bool {
	return acceptPath(path, p.PrefixRules)
}

func (p *MinSizePolicy) AdmitTotalBytes(total uint64) bool {
	return total >= p.MinBytes
}
