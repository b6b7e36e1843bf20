package diagfmt_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"ember/internal/diag"
	"ember/internal/diagfmt"
	"ember/internal/source"
)

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("var x = \"unterminated string\n")
	fileID := fs.Add("/home/user/project/src/test.em", content, 0)

	bag := diag.NewBag(10)
	bag.Add(diag.NewError(diag.LexUnterminatedString, source.Span{File: fileID, Start: 8, End: 28}, "unterminated string literal"))

	tests := []struct {
		name     string
		mode     diagfmt.PathMode
		contains string
	}{
		{"absolute", diagfmt.PathModeAbsolute, "/home/user/project/src/test.em:1:9"},
		{"basename", diagfmt.PathModeBasename, "test.em:1:9"},
		{"auto", diagfmt.PathModeAuto, "test.em:1:9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			diagfmt.Pretty(&buf, bag, fs, diagfmt.PrettyOpts{PathMode: tt.mode})
			output := buf.String()
			for _, want := range []string{tt.contains, "ERROR", "LEX1002", "unterminated string literal"} {
				if !strings.Contains(output, want) {
					t.Errorf("output lacks %q:\n%s", want, output)
				}
			}
		})
	}
}

func TestPrettyCaretUsesDisplayWidth(t *testing.T) {
	fs := source.NewFileSet()
	// "界" is two columns wide
	content := []byte("var s = \"界\" + ;\n")
	fileID := fs.AddVirtual("wide.em", content)
	start := uint32(strings.Index(string(content), ";"))

	bag := diag.NewBag(0)
	bag.Add(diag.NewError(diag.SynExpectExpression, source.Span{File: fileID, Start: start, End: start + 1}, "expected expression"))

	var buf bytes.Buffer
	diagfmt.Pretty(&buf, bag, fs, diagfmt.PrettyOpts{})
	lines := strings.Split(buf.String(), "\n")
	if len(lines) < 3 {
		t.Fatalf("output:\n%s", buf.String())
	}
	caret := lines[2]
	// gutter " 1 | " then 15 display columns before ';'
	want := "   | " + strings.Repeat(" ", 15) + "^"
	if caret != want {
		t.Fatalf("caret line = %q, want %q", caret, want)
	}
}

func TestPrettyNotesAndFixes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("var a = 42 // missing semicolon")
	fileID := fs.AddVirtual("example.em", content)

	insert := source.Span{File: fileID, Start: 10, End: 10}
	d := diag.NewError(diag.SynExpectSemicolon, insert, "expected ';'").
		WithNote(source.Span{File: fileID, Start: 4, End: 5}, "declared here").
		WithFix("insert ';'", insert, ";")
	bag := diag.NewBag(2)
	bag.Add(d)

	var buf bytes.Buffer
	diagfmt.Pretty(&buf, bag, fs, diagfmt.PrettyOpts{ShowNotes: true, ShowFixes: true, ShowPreview: true})
	output := buf.String()
	for _, want := range []string{
		"note: example.em:1:5: declared here",
		"fix #1: insert ';' apply=\";\"",
		"preview:",
		"- var a = 42 // missing semicolon",
		"+ var a = 42; // missing semicolon",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output lacks %q:\n%s", want, output)
		}
	}
}

func TestPrettyColorIsExplicit(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("c.em", []byte("@"))
	bag := diag.NewBag(0)
	bag.Add(diag.NewError(diag.LexUnknownChar, source.Span{File: fileID, Start: 0, End: 1}, "unknown character"))

	var on, off bytes.Buffer
	diagfmt.Pretty(&on, bag, fs, diagfmt.PrettyOpts{Color: true})
	diagfmt.Pretty(&off, bag, fs, diagfmt.PrettyOpts{Color: false})
	if !strings.Contains(on.String(), "\x1b[") {
		t.Errorf("colour requested but no escape codes:\n%q", on.String())
	}
	if strings.Contains(off.String(), "\x1b[") {
		t.Errorf("colour disabled but escape codes present:\n%q", off.String())
	}
}

func TestShortAndJSON(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("s.em", []byte("var a\n"))
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.SynExpectSemicolon, source.Span{File: fileID, Start: 5, End: 5}, "expected ';'"))
	bag.Add(diag.NewError(diag.SynExpectSemicolon, source.Span{File: fileID, Start: 5, End: 5}, "dropped"))

	var short bytes.Buffer
	diagfmt.Short(&short, bag, fs, diagfmt.PathModeAuto)
	if got, want := short.String(), "s.em:1:6: error[SYN2002]: expected ';'\n"; got != want {
		t.Fatalf("short = %q, want %q", got, want)
	}

	var buf bytes.Buffer
	if err := diagfmt.JSON(&buf, bag, fs, diagfmt.JSONOpts{IncludePositions: true}); err != nil {
		t.Fatal(err)
	}
	var out diagfmt.DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if out.Count != 1 || out.Dropped != 1 || out.Diagnostics[0].Location.StartCol != 6 {
		t.Fatalf("json = %+v", out)
	}
}
