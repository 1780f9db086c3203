package version

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func withNoColor(t *testing.T, noColor bool) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = noColor
	t.Cleanup(func() { color.NoColor = prev })
}

func TestColored(t *testing.T) {
	withNoColor(t, true)
	tests := []struct {
		in, want string
	}{
		{"0.1.0-dev", "0.1.0-dev"},
		{"1.2.3", "1.2.3"},
		{"1.2.3-rc.1+build.123", "1.2.3-rc.1+build.123"},
		{"nightly", "nightly"},
	}
	for _, tt := range tests {
		if got := Colored(tt.in); got != tt.want {
			t.Errorf("Colored(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColoredEmitsEscapes(t *testing.T) {
	withNoColor(t, false)
	got := Colored("1.2.3")
	if !strings.Contains(got, "\x1b[") || !strings.Contains(got, "1") {
		t.Fatalf("expected ANSI escapes, got %q", got)
	}
}

func TestGetUsesOverrides(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version = "1.2.3"
	GitCommit = "1234567890abcdef1234567890abcdef12345678"
	BuildDate = "2024-01-15T10:30:00Z"

	info := Get()
	if info.Version != "1.2.3" || info.GitCommit != GitCommit || info.BuildDate != BuildDate {
		t.Fatalf("info = %+v", info)
	}
	if info.GoVersion == "" || !strings.Contains(info.Platform, "/") {
		t.Fatalf("runtime fields missing: %+v", info)
	}

	withNoColor(t, true)
	text := info.Text()
	for _, want := range []string{"borrowck 1.2.3\n", "commit:   1234567890ab\n", "built:    2024-01-15T10:30:00Z\n"} {
		if !strings.Contains(text, want) {
			t.Errorf("text lacks %q:\n%s", want, text)
		}
	}
}

func TestInfoJSON(t *testing.T) {
	data, err := Info{Version: "0.1.0-dev", GoVersion: "go1.25.1", Platform: "linux/amd64"}.JSON()
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if m["version"] != "0.1.0-dev" {
		t.Errorf("version = %v", m["version"])
	}
	if _, ok := m["git_commit"]; ok {
		t.Error("empty commit must be omitted")
	}
}
