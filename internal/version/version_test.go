package version

import (
	"strings"
	"testing"
)

func TestBannerPlain(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version = "1.2.3-rc.1"
	GitCommit = "1234567890abcdef1234"
	BuildDate = "2024-01-15"
	if got, want := Banner(false), "sdslmix 1.2.3-rc.1 (1234567890ab) built 2024-01-15"; got != want {
		t.Fatalf("Banner = %q, want %q", got, want)
	}

	GitCommit, BuildDate = "", ""
	if got := Banner(false); got != "sdslmix 1.2.3-rc.1" {
		t.Fatalf("Banner without metadata = %q", got)
	}
}

func TestBannerColored(t *testing.T) {
	orig := Version
	t.Cleanup(func() { Version = orig })

	Version = "0.1.0-dev"
	got := Banner(true)
	if !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-dev") {
		t.Fatalf("colored banner %q", got)
	}
	Version = "nightly"
	if got := Banner(true); got != "sdslmix nightly" {
		t.Fatalf("non-semver banner %q", got)
	}
}

func TestCurrent(t *testing.T) {
	info := Current()
	if info.Version != Version || info.Go == "" {
		t.Fatalf("Current = %+v", info)
	}
}
