package driver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"ember/internal/bytecode"
	"ember/internal/codegen"
	"ember/internal/object"
	"ember/internal/source"
	"ember/internal/trace"
	"ember/internal/vm"
)

// RunFile compiles and executes the script at path, or loads it directly when
// it is a compiled image. It returns a process exit code.
func (d *Driver) RunFile(path string) int {
	span := trace.Begin(d.opts.Tracer, trace.ScopeDriver, "run", nil).Set("path", path)
	code := d.runFile(path, span)
	span.End(fmt.Sprintf("exit %d", code))
	return code
}

func (d *Driver) runFile(path string, span *trace.Span) int {
	d.timer.WithTracer(d.opts.Tracer, span)
	if filepath.Ext(path) == ImageExt {
		return d.runImage(path)
	}
	s, err := d.newSession(d.opts.Stdin)
	if err != nil {
		d.errorf("ember: %v\n", err)
		return ExitIO
	}
	defer s.heap.FreeAll()

	id, err := s.fs.Load(path)
	if err != nil {
		d.errorf("ember: cannot read %s: %v\n", path, err)
		return ExitIO
	}
	file := s.fs.Get(id)
	entry, ok := d.compile(s, file, span)
	if !ok {
		return ExitCompile
	}
	if !d.execute(s, entry, func(int) *source.File { return file }) {
		return ExitRuntime
	}
	return ExitOK
}

// runImage executes a program produced by Build. Globals beyond the natives
// are unnamed in error messages.
func (d *Driver) runImage(path string) int {
	f, err := os.Open(path)
	if err != nil {
		d.errorf("ember: cannot read %s: %v\n", path, err)
		return ExitIO
	}
	defer f.Close()

	heap := object.NewHeap(d.opts.GC)
	defer heap.FreeAll()
	chunk := bytecode.NewChunk()
	globals := codegen.NewGlobals(heap, chunk)
	vopts := d.opts.VM
	vopts.Stdout = d.opts.Stdout
	vopts.Stdin = d.opts.Stdin
	vopts.Tracer = d.opts.Tracer
	vopts.GlobalName = func(slot int) string {
		if names := globals.Names(); slot < len(names) {
			return names[slot]
		}
		return ""
	}
	machine := vm.New(heap, chunk, vopts)
	if err := machine.InstallNatives(globals); err != nil {
		d.errorf("ember: %v\n", err)
		return ExitIO
	}

	var entry int
	err = d.timer.Measure("load", func() error {
		img, err := bytecode.DecodeImage(f)
		if err != nil {
			return err
		}
		entry, err = img.Materialize(chunk, heap, vm.NativeNames())
		return err
	})
	if err != nil {
		// нечитаемый образ считается ошибкой ввода, как и отсутствующий файл
		d.errorf("ember: %s: %v\n", path, err)
		return ExitIO
	}
	s := &session{heap: heap, machine: machine}
	if !d.execute(s, entry, func(int) *source.File { return nil }) {
		return ExitRuntime
	}
	return ExitOK
}

func writef(w io.Writer, format string, args ...any) {
	// вывод диагностики не должен ронять запуск
	_, _ = fmt.Fprintf(w, format, args...)
}
