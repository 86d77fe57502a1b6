package version

import "testing"

func TestVersionDefault(t *testing.T) {
	if Version == "" {
		t.Fatalf("Version should have a default value")
	}
	if got := String(false); got != "molten "+Version && GitCommit == "" && BuildDate == "" {
		t.Fatalf("String = %q", got)
	}
}

func TestVersionOverrides(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	Version = "1.2.3"
	GitCommit = "abc123"
	BuildDate = "2026-01-15T10:30:00Z"
	want := "molten 1.2.3 commit abc123 built 2026-01-15T10:30:00Z"
	if got := String(false); got != want {
		t.Fatalf("String = %q, want %q", got, want)
	}
}
