// Package driver wires the front end, the code generator and the VM into the
// operations exposed by the ember CLI: running files and images, the REPL,
// parallel checking, building images and disassembly.
package driver

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"ember/internal/compiler"
	"ember/internal/diag"
	"ember/internal/diagfmt"
	"ember/internal/object"
	"ember/internal/observ"
	"ember/internal/source"
	"ember/internal/trace"
	"ember/internal/vm"
)

// Exit codes follow sysexits.h.
const (
	ExitOK      = 0
	ExitCompile = 65 // EX_DATAERR
	ExitRuntime = 70 // EX_SOFTWARE
	ExitIO      = 74 // EX_IOERR
)

// ImageExt is the extension of compiled images.
const ImageExt = ".emc"

// Options configure a Driver. Zero values are usable.
type Options struct {
	MaxDiagnostics int
	VM             vm.Options
	GC             object.Config
	Tracer         trace.Tracer
	Timer          *observ.Timer
	Color          bool
	PathMode       diagfmt.PathMode
	// Prompt is printed before every REPL line; empty for piped input.
	Prompt string

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

// Driver runs ember programs with one set of options.
type Driver struct {
	opts  Options
	timer *observ.Timer
}

// New creates a driver. Missing streams default to the process ones.
func New(opts Options) *Driver {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	timer := opts.Timer
	if timer == nil {
		timer = observ.NewTimer()
	}
	return &Driver{opts: opts, timer: timer}
}

// SetPrompt changes the REPL prompt.
func (d *Driver) SetPrompt(p string) { d.opts.Prompt = p }

// Timer returns the phase timer fed by every operation.
func (d *Driver) Timer() *observ.Timer { return d.timer }

// session is one heap, one chunk and one VM sharing a global table.
type session struct {
	fs      *source.FileSet
	heap    *object.Heap
	comp    *compiler.Session
	machine *vm.VM
}

func (d *Driver) newSession(stdin io.Reader) (*session, error) {
	heap := object.NewHeap(d.opts.GC)
	comp := compiler.NewSession(heap)
	vopts := d.opts.VM
	vopts.Stdout = d.opts.Stdout
	vopts.Stdin = stdin
	vopts.Tracer = d.opts.Tracer
	vopts.GlobalName = globalNamer(comp)
	s := &session{
		fs:      source.NewFileSet(),
		heap:    heap,
		comp:    comp,
		machine: vm.New(heap, comp.Chunk, vopts),
	}
	if err := s.machine.InstallNatives(comp.Globals); err != nil {
		return nil, err
	}
	return s, nil
}

func globalNamer(comp *compiler.Session) func(int) string {
	return func(slot int) string {
		names := comp.Globals.Names()
		if slot >= 0 && slot < len(names) {
			return names[slot]
		}
		return ""
	}
}

// compile lexes and compiles file into s. Diagnostics are printed to stderr.
func (d *Driver) compile(s *session, file *source.File, parent *trace.Span) (int, bool) {
	bag := diag.NewBag(d.opts.MaxDiagnostics)
	var entry int
	err := d.timer.Measure("compile", func() error {
		var err error
		entry, err = s.comp.Compile(file, compiler.Options{
			Reporter: diag.BagReporter{Bag: bag},
			Tracer:   d.opts.Tracer,
			Span:     parent,
		})
		return err
	})
	if err != nil {
		if bag.Len() == 0 {
			bag.Add(diag.NewError(diag.UnknownCode, source.Span{File: file.ID}, err.Error()))
		}
		d.printDiagnostics(bag, s.fs)
		return 0, false
	}
	return entry, true
}

// execute runs entry and reports a runtime error, quoting the line from the
// file fileFor returns.
func (d *Driver) execute(s *session, entry int, fileFor func(line int) *source.File) bool {
	err := d.timer.Measure("execute", func() error { return s.machine.Run(entry) })
	if err == nil {
		return true
	}
	var rerr *vm.Error
	if !errors.As(err, &rerr) {
		d.errorf("%v\n", err)
		return false
	}
	head, rest, _ := strings.Cut(rerr.FormatWithSource(fileFor(rerr.Line)), "\n")
	red := color.New(color.FgRed, color.Bold)
	if d.opts.Color {
		red.EnableColor()
	} else {
		red.DisableColor()
	}
	d.errorf("%s\n%s", red.Sprint(head), rest)
	return false
}

func (d *Driver) printDiagnostics(bag *diag.Bag, fs *source.FileSet) {
	bag.Sort()
	diagfmt.Pretty(d.opts.Stderr, bag, fs, diagfmt.PrettyOpts{
		Color:     d.opts.Color,
		Context:   1,
		PathMode:  d.opts.PathMode,
		ShowNotes: true,
		ShowFixes: true,
	})
}

func (d *Driver) errorf(format string, args ...any) {
	writef(d.opts.Stderr, format, args...)
}
