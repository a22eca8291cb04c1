package observation

import "testing"

func TestSanitizePathStripsPrelinkSuffix(t *testing.T) {
	got, ok := sanitizePath("/usr/bin/foo.#prelink#.12345")
	if !ok || got != "/usr/bin/foo" {
		t.Fatalf("got %q, %v", got, ok)
	}
}

func TestSanitizePathRejectsDeleted(t *testing.T) {
	if _, ok := sanitizePath("/usr/bin/foo (deleted)"); ok {
		t.Fatal("expected rejection of deleted path")
	}
}

func TestSanitizePathRejectsRelative(t *testing.T) {
	if _, ok := sanitizePath("bin/foo"); ok {
		t.Fatal("expected rejection of relative path")
	}
}

func TestSanitizePathRejectsEmpty(t *testing.T) {
	if _, ok := sanitizePath(""); ok {
		t.Fatal("expected rejection of empty path")
	}
}

func TestAcceptPathDefaultsToAccept(t *testing.T) {
	if !acceptPath("/usr/bin/foo", nil) {
		t.Fatal("expected default accept with no rules")
	}
}

func TestAcceptPathLastMatchWins(t *testing.T) {
	rules := []PrefixRule{
		{Prefix: "/usr", Accept: false},
		{Prefix: "/usr/bin", Accept: true},
	}
	if !acceptPath("/usr/bin/foo", rules) {
		t.Fatal("expected most specific later rule to win")
	}
	if acceptPath("/usr/lib/foo", rules) {
		t.Fatal("expected /usr rule to reject non-bin path")
	}
}

func TestAcceptPathCumulativeAcrossWholeList(t *testing.T) {
	rules := []PrefixRule{
		{Prefix: "/", Accept: true},
		{Prefix: "/tmp", Accept: false},
		{Prefix: "/tmp/keep", Accept: true},
	}
	if acceptPath("/tmp/other", rules) {
		t.Fatal("expected /tmp rule to reject")
	}
	if !acceptPath("/tmp/keep/me", rules) {
		t.Fatal("expected /tmp/keep to re-accept")
	}
}
