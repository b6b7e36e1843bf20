package driver

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ember/internal/bytecode"
	"ember/internal/trace"
	"ember/internal/vm"
)

// ImagePath derives the default image name for a script.
func ImagePath(script string) string {
	return strings.TrimSuffix(script, filepath.Ext(script)) + ImageExt
}

// Build compiles the script at path into a .emc image at out.
func (d *Driver) Build(path, out string) int {
	span := trace.Begin(d.opts.Tracer, trace.ScopeDriver, "build", nil).Set("path", path)
	defer span.End(out)
	d.timer.WithTracer(d.opts.Tracer, span)

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
	entry, ok := d.compile(s, s.fs.Get(id), span)
	if !ok {
		return ExitCompile
	}

	var buf bytes.Buffer
	err = d.timer.Measure("encode", func() error {
		return bytecode.EncodeImage(&buf, s.comp.Chunk, s.heap, entry, vm.NativeNames())
	})
	if err != nil {
		d.errorf("ember: %s: %v\n", path, err)
		return ExitCompile
	}
	if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
		d.errorf("ember: cannot write %s: %v\n", out, err)
		return ExitIO
	}
	return ExitOK
}

// Disasm compiles the script (or decodes the image) at path and writes its
// listing to w.
func (d *Driver) Disasm(path string, w io.Writer) int {
	s, err := d.newSession(d.opts.Stdin)
	if err != nil {
		d.errorf("ember: %v\n", err)
		return ExitIO
	}
	defer s.heap.FreeAll()

	if filepath.Ext(path) == ImageExt {
		f, err := os.Open(path)
		if err != nil {
			d.errorf("ember: cannot read %s: %v\n", path, err)
			return ExitIO
		}
		defer f.Close()
		img, err := bytecode.DecodeImage(f)
		if err == nil {
			_, err = img.Materialize(s.comp.Chunk, s.heap, vm.NativeNames())
		}
		if err != nil {
			d.errorf("ember: %s: %v\n", path, err)
			return ExitIO
		}
	} else {
		id, err := s.fs.Load(path)
		if err != nil {
			d.errorf("ember: cannot read %s: %v\n", path, err)
			return ExitIO
		}
		if _, ok := d.compile(s, s.fs.Get(id), nil); !ok {
			return ExitCompile
		}
	}

	c := s.comp.Chunk
	writef(w, "== %s (%d bytes, %d constants, %d globals) ==\n", filepath.Base(path), c.Len(), len(c.Constants), len(c.Globals))
	if err := bytecode.Disassemble(w, c, s.heap, 0, c.Len()); err != nil {
		d.errorf("ember: %v\n", fmt.Errorf("disassemble %s: %w", path, err))
		return ExitCompile
	}
	return ExitOK
}
