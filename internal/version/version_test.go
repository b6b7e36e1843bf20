package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestLine(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = saved }()

	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	defer func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate }()

	tests := []struct {
		version, commit, date string
		want                  string
	}{
		{"0.1.0-dev", "", "", "ember 0.1.0-dev"},
		{"1.2.3", "abc123", "", "ember 1.2.3 (abc123)"},
		{"1.2.3-rc.1", "abc123", "2026-01-15", "ember 1.2.3-rc.1 (abc123) built 2026-01-15"},
		{"nightly", "", "", "ember nightly"},
	}
	for _, tt := range tests {
		Version, GitCommit, BuildDate = tt.version, tt.commit, tt.date
		if got := Line(); got != tt.want {
			t.Errorf("Line() = %q, want %q", got, tt.want)
		}
	}
}
