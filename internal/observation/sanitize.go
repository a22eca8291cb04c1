package observation

import "strings"

// prelinkMarker is the separator prelink inserts into the path of a binary
// it has rewritten in place; everything from the marker onward is a
// prelink-internal suffix and must be dropped before the path is used as an
// ExeKey.
const prelinkMarker = ".#prelink#."

// sanitizePath normalizes a raw /proc path for use as a tracking key. It
// strips any prelink suffix, rejects paths the kernel has already marked
// "(deleted)", and requires an absolute path. Returns ok=false when the
// path should not be tracked at all.
func sanitizePath(raw string) (path string, ok bool) {
	if raw == "" {
		return "", false
	}
	if strings.Contains(raw, "(deleted)") {
		return "", false
	}
	if idx := strings.Index(raw, prelinkMarker); idx >= 0 {
		raw = raw[:idx]
	}
	if !strings.HasPrefix(raw, "/") {
		return "", false
	}
	return raw, true
}

// PrefixRule is one entry of an ordered prefix admission list. Later rules
// override earlier ones for any path they also match; the most specific
// match wins by virtue of being listed last among matching rules.
type PrefixRule struct {
	Prefix string
	Accept bool
}

// acceptPath applies rules in order, cumulatively, and defaults to accept
// when no rule matches. This mirrors the reference sanitizer: a path is
// rejected only if the last matching rule says so.
func acceptPath(path string, rules []PrefixRule) bool {
	accept := true
	for _, r := range rules {
		if strings.HasPrefix(path, r.Prefix) {
			accept = r.Accept
		}
	}
	return accept
}
