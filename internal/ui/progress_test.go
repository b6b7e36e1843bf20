package ui

import (
	"strings"
	"testing"

	"ember/internal/driver"
)

func TestProgressModelTracksEvents(t *testing.T) {
	events := make(chan driver.CheckEvent)
	m := NewProgressModel("checking", []string{"a.em", "b.em"}, events).(*progressModel)

	m.Update(eventMsg{File: "a.em", Status: driver.CheckDone})
	m.Update(eventMsg{File: "b.em", Status: driver.CheckCompiling})
	m.Update(eventMsg{File: "unknown.em", Status: driver.CheckFailed})
	if got := m.percent(); got != 0.75 {
		t.Fatalf("percent = %v, want 0.75", got)
	}

	m.Update(eventMsg{File: "b.em", Status: driver.CheckFailed})
	m.Update(doneMsg{})
	view := m.View()
	for _, want := range []string{"done: checking (1 ok, 1 failed)", "a.em", "error"} {
		if !strings.Contains(view, want) {
			t.Errorf("view lacks %q:\n%s", want, view)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short.em", 20, "short.em"},
		{"a/very/long/path/to/file.em", 10, "a/very/..."},
		{"界界界界", 5, "界..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
