package driver_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"ember/internal/driver"
	"ember/internal/trace"
)

type harness struct {
	d      *driver.Driver
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newHarness(stdin string) *harness {
	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	h.d = driver.New(driver.Options{
		Stdout: h.stdout,
		Stderr: h.stderr,
		Stdin:  strings.NewReader(stdin),
	})
	return h
}

func writeScript(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestRunFileExitCodes(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name       string
		src        string
		code       int
		wantOut    string
		wantStderr []string
	}{
		{
			name:    "success",
			src:     `var greeting = "hi"; print(greeting + "!");`,
			code:    driver.ExitOK,
			wantOut: "hi!\n",
		},
		{
			name:       "compile error",
			src:        "var = 1;\n",
			code:       driver.ExitCompile,
			wantStderr: []string{"SYN", "bad.em:1:"},
		},
		{
			name:       "runtime error",
			src:        "print(1);\nprint(1 / 0);\n",
			code:       driver.ExitRuntime,
			wantOut:    "1\n",
			wantStderr: []string{"VM1002", "bad.em:2", "print(1 / 0);"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness("")
			path := writeScript(t, dir, "bad.em", tt.src)
			if code := h.d.RunFile(path); code != tt.code {
				t.Fatalf("exit = %d, want %d\nstderr:\n%s", code, tt.code, h.stderr.String())
			}
			if got := h.stdout.String(); got != tt.wantOut {
				t.Fatalf("stdout = %q, want %q", got, tt.wantOut)
			}
			for _, want := range tt.wantStderr {
				if !strings.Contains(h.stderr.String(), want) {
					t.Errorf("stderr lacks %q:\n%s", want, h.stderr.String())
				}
			}
		})
	}
}

func TestRunFileMissing(t *testing.T) {
	h := newHarness("")
	if code := h.d.RunFile(filepath.Join(t.TempDir(), "nope.em")); code != driver.ExitIO {
		t.Fatalf("exit = %d, want %d", code, driver.ExitIO)
	}
}

func TestRunFileReadsStdin(t *testing.T) {
	h := newHarness("Ada\n")
	path := writeScript(t, t.TempDir(), "hello.em", `print("hello, " + input());`)
	if code := h.d.RunFile(path); code != driver.ExitOK {
		t.Fatalf("exit = %d\n%s", code, h.stderr.String())
	}
	if got := h.stdout.String(); got != "hello, Ada\n" {
		t.Fatalf("stdout = %q", got)
	}
}

func TestREPLKeepsStateAcrossErrors(t *testing.T) {
	input := strings.Join([]string{
		`var a = 1;`,
		`var b = ;`,
		`print(1 / 0);`,
		`var b = 2; print(a + b);`,
		``,
		`print("not reached");`,
	}, "\n")
	h := newHarness("")
	var out bytes.Buffer
	if code := h.d.REPL(strings.NewReader(input), &out); code != driver.ExitOK {
		t.Fatalf("exit = %d", code)
	}
	if got := out.String(); got != "3\n" {
		t.Fatalf("output = %q\nstderr:\n%s", got, h.stderr.String())
	}
	for _, want := range []string{"<repl>:2:", "VM1002", "<repl>:3"} {
		if !strings.Contains(h.stderr.String(), want) {
			t.Errorf("stderr lacks %q:\n%s", want, h.stderr.String())
		}
	}
}

func TestREPLInputSharesReader(t *testing.T) {
	h := newHarness("")
	var out bytes.Buffer
	code := h.d.REPL(strings.NewReader("var s = input();\nanswer\nprint(s);\n"), &out)
	if code != driver.ExitOK {
		t.Fatalf("exit = %d", code)
	}
	if got := out.String(); got != "answer\n" {
		t.Fatalf("output = %q\nstderr:\n%s", got, h.stderr.String())
	}
}

func TestREPLRuntimeErrorQuotesDefiningLine(t *testing.T) {
	input := "func f(x) { return x / 0; }\nf(1);\n"
	h := newHarness("")
	var out bytes.Buffer
	h.d.REPL(strings.NewReader(input), &out)
	stderr := h.stderr.String()
	if !strings.Contains(stderr, "func f(x) { return x / 0; }") {
		t.Fatalf("stderr does not quote the function body:\n%s", stderr)
	}
}

func TestBuildAndRunImage(t *testing.T) {
	dir := t.TempDir()
	src := `class Box { var v = 0; func init(v) { this.v = v; } }
func twice(f) { return func(x) { return f(f(x)); }; }
var inc = twice(func(n) { return n + 1; });
print(inc(Box(40).v));
print("done");`
	path := writeScript(t, dir, "prog.em", src)
	image := driver.ImagePath(path)
	if filepath.Ext(image) != driver.ImageExt {
		t.Fatalf("image path = %q", image)
	}

	h := newHarness("")
	if code := h.d.Build(path, image); code != driver.ExitOK {
		t.Fatalf("build exit = %d\n%s", code, h.stderr.String())
	}
	run := newHarness("")
	if code := run.d.RunFile(image); code != driver.ExitOK {
		t.Fatalf("run exit = %d\n%s", code, run.stderr.String())
	}
	if got := run.stdout.String(); got != "42\ndone\n" {
		t.Fatalf("stdout = %q", got)
	}

	var listing bytes.Buffer
	if code := run.d.Disasm(image, &listing); code != driver.ExitOK {
		t.Fatalf("disasm exit = %d\n%s", code, run.stderr.String())
	}
	if !strings.Contains(listing.String(), "== prog.emc") || !strings.Contains(listing.String(), "HALT") {
		t.Fatalf("listing:\n%s", listing.String())
	}
}

func TestRunCorruptImage(t *testing.T) {
	path := writeScript(t, t.TempDir(), "junk.emc", "not msgpack at all")
	h := newHarness("")
	if code := h.d.RunFile(path); code != driver.ExitIO {
		t.Fatalf("exit = %d, want %d", code, driver.ExitIO)
	}
	if code := h.d.Disasm(path, io.Discard); code != driver.ExitIO {
		t.Fatalf("disasm exit = %d, want %d", code, driver.ExitIO)
	}
}

func TestREPLWhitespaceLineDoesNotEnd(t *testing.T) {
	h := newHarness("")
	var out bytes.Buffer
	code := h.d.REPL(strings.NewReader("var a = 4;\n   \nprint(a);\n\nprint(0);\n"), &out)
	if code != driver.ExitOK {
		t.Fatalf("exit = %d\n%s", code, h.stderr.String())
	}
	if got := out.String(); got != "4\n" {
		t.Fatalf("output = %q\nstderr:\n%s", got, h.stderr.String())
	}
}

func TestCheckParallel(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.em", `var a = 1; print(a);`)
	writeScript(t, dir, "b.em", "var b = ;\n")
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o700); err != nil {
		t.Fatal(err)
	}
	writeScript(t, sub, "c.em", `func f() { return 1; }`)
	writeScript(t, sub, "notes.txt", `ignored`)

	paths, err := driver.ExpandPaths([]string{dir, filepath.Join(dir, "missing.em")})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 4 {
		t.Fatalf("paths = %v", paths)
	}

	var mu sync.Mutex
	final := map[string]driver.CheckStatus{}
	h := newHarness("")
	sum, err := h.d.Check(context.Background(), paths, 2, func(ev driver.CheckEvent) {
		mu.Lock()
		final[filepath.Base(ev.File)] = ev.Status
		mu.Unlock()
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]driver.CheckStatus{
		"a.em":       driver.CheckDone,
		"b.em":       driver.CheckFailed,
		"c.em":       driver.CheckDone,
		"missing.em": driver.CheckFailed,
	}
	for name, status := range want {
		if final[name] != status {
			t.Errorf("%s: status %v, want %v", name, final[name], status)
		}
	}
	if code := h.d.ReportCheck(sum); code != driver.ExitIO {
		t.Fatalf("exit = %d, want %d", code, driver.ExitIO)
	}
	if !strings.Contains(h.stderr.String(), "b.em:1:") || !strings.Contains(h.stderr.String(), "cannot read") {
		t.Fatalf("stderr:\n%s", h.stderr.String())
	}
	if h.stdout.Len() != 0 {
		t.Fatalf("check must not run programs, got %q", h.stdout.String())
	}
}

func TestTracerSeesPhases(t *testing.T) {
	ring := trace.NewRingTracer(256, trace.LevelPhase)
	var stdout, stderr bytes.Buffer
	d := driver.New(driver.Options{Stdout: &stdout, Stderr: &stderr, Tracer: ring})
	path := writeScript(t, t.TempDir(), "p.em", `var i = 0; while (i < 3) i += 1; print(i);`)
	if code := d.RunFile(path); code != driver.ExitOK {
		t.Fatalf("exit = %d\n%s", code, stderr.String())
	}
	seen := map[string]bool{}
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanBegin {
			seen[ev.Name] = true
		}
	}
	for _, name := range []string{"run", "compile", "relax", "execute"} {
		if !seen[name] {
			t.Errorf("no %q span in %v", name, seen)
		}
	}
	report := d.Timer().Report()
	if len(report.Phases) != 2 || report.Phases[0].Name != "compile" || report.Phases[1].Name != "execute" {
		t.Fatalf("phases = %+v", report.Phases)
	}
}

func TestTokenize(t *testing.T) {
	path := writeScript(t, t.TempDir(), "t.em", "var x = @;\n")
	res, err := driver.Tokenize(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tokens) < 5 {
		t.Fatalf("tokens = %v", res.Tokens)
	}
	if !res.Bag.HasErrors() {
		t.Fatal("expected a lexical error for '@'")
	}
}
