package diagfmt

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"ember/internal/diag"
	"ember/internal/source"
)

type palette struct {
	sev    map[diag.Severity]*color.Color
	note   *color.Color
	gutter *color.Color
	fix    *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		sev: map[diag.Severity]*color.Color{
			diag.SevError:   color.New(color.FgRed, color.Bold),
			diag.SevWarning: color.New(color.FgYellow, color.Bold),
			diag.SevInfo:    color.New(color.FgCyan, color.Bold),
		},
		note:   color.New(color.FgBlue, color.Bold),
		gutter: color.New(color.FgBlue),
		fix:    color.New(color.FgGreen),
	}
	all := []*color.Color{p.note, p.gutter, p.fix}
	for _, c := range p.sev {
		all = append(all, c)
	}
	for _, c := range all {
		// explicit, so color.NoColor (non-tty stdout) does not override --color=on
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<line>:<col>: <SEV> <CODE>: <Message>
// затем контекст строки с подчёркиванием ^~~~ по Span, затем Notes и Fixes.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	pal := newPalette(opts.Color)
	for _, d := range bag.Items() {
		writeDiagnostic(w, d, fs, opts, pal)
	}
	if n := bag.Dropped(); n > 0 {
		fmt.Fprintf(w, "... %d more diagnostics not shown\n", n)
	}
}

func location(fs *source.FileSet, sp source.Span, mode PathMode) (string, *source.File, source.LineCol) {
	f := fileOf(fs, sp.File)
	if f == nil {
		return "<unknown>", nil, source.LineCol{}
	}
	pos := f.Position(sp.Start)
	return fmt.Sprintf("%s:%d:%d", displayPath(f, mode), pos.Line, pos.Col), f, pos
}

func writeDiagnostic(w io.Writer, d diag.Diagnostic, fs *source.FileSet, opts PrettyOpts, pal palette) {
	sevColor := pal.sev[d.Severity]
	if sevColor == nil {
		sevColor = pal.sev[diag.SevError]
	}
	loc, file, pos := location(fs, d.Primary, opts.PathMode)
	fmt.Fprintf(w, "%s: %s %s: %s\n", loc, sevColor.Sprint(strings.ToUpper(d.Severity.String())), d.Code.ID(), d.Message)
	if file != nil {
		writeSnippet(w, file, d.Primary, pos, opts.Context, sevColor, pal)
	}

	if opts.ShowNotes {
		for _, n := range d.Notes {
			nloc, _, _ := location(fs, n.Span, opts.PathMode)
			fmt.Fprintf(w, "  %s %s: %s\n", pal.note.Sprint("note:"), nloc, n.Msg)
		}
	}
	if opts.ShowFixes {
		for i, fix := range d.Fixes {
			fmt.Fprintf(w, "  %s %s apply=%s\n", pal.fix.Sprintf("fix #%d:", i+1), fix.Title, strconv.Quote(fix.NewText))
			if !opts.ShowPreview {
				continue
			}
			preview, err := buildFixPreview(fs, fix)
			if err != nil {
				continue
			}
			fmt.Fprintln(w, "    preview:")
			for _, line := range preview.before {
				fmt.Fprintf(w, "      - %s\n", line)
			}
			for _, line := range preview.after {
				fmt.Fprintf(w, "      + %s\n", line)
			}
		}
	}
}

// writeSnippet prints the primary line, context lines above it, and a caret
// underline sized by display width so wide runes line up.
func writeSnippet(w io.Writer, f *source.File, sp source.Span, pos source.LineCol, context int8, sevColor *color.Color, pal palette) {
	text := f.Line(pos.Line)
	first := pos.Line
	for i := int8(0); i < context && first > f.FirstLine; i++ {
		first--
	}
	gw := len(strconv.FormatUint(uint64(pos.Line), 10))
	for n := first; n <= pos.Line; n++ {
		fmt.Fprintf(w, " %s %s\n", pal.gutter.Sprintf("%*d |", gw, n), f.Line(n))
	}

	col := min(int(pos.Col)-1, len(text))
	prefix := text[:col]
	end := f.Position(sp.End)
	seg := text[col:]
	if end.Line == pos.Line {
		seg = text[col:min(max(int(end.Col)-1, col), len(text))]
	}
	width := max(runewidth.StringWidth(seg), 1)

	var pad strings.Builder
	for _, r := range prefix {
		if r == '\t' {
			pad.WriteByte('\t')
			continue
		}
		pad.WriteString(strings.Repeat(" ", runewidth.RuneWidth(r)))
	}
	underline := "^" + strings.Repeat("~", width-1)
	fmt.Fprintf(w, " %s %s%s\n", pal.gutter.Sprint(strings.Repeat(" ", gw)+" |"), pad.String(), sevColor.Sprint(underline))
}

// Short prints one line per diagnostic: path:line:col: severity[CODE]: message.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, mode PathMode) {
	for _, d := range bag.Items() {
		loc, _, _ := location(fs, d.Primary, mode)
		fmt.Fprintf(w, "%s: %s[%s]: %s\n", loc, d.Severity, d.Code.ID(), d.Message)
	}
}

func fileOf(fs *source.FileSet, id source.FileID) *source.File {
	if fs == nil || int(id) >= fs.Len() {
		return nil
	}
	return fs.Get(id)
}
