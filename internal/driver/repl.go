package driver

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"ember/internal/source"
	"ember/internal/trace"
)

const replPath = "<repl>"

// REPL reads one unit per line from in and runs it against a persistent session.
// Program output goes to out. An empty line or end of input terminates. Compile
// and runtime errors are reported and the session continues; a line that fails
// to compile leaves no globals behind.
func (d *Driver) REPL(in io.Reader, out io.Writer) int {
	reader := bufio.NewReader(in)
	saved := d.opts.Stdout
	d.opts.Stdout = out
	// input() shares the reader so buffered lines are not lost
	s, err := d.newSession(reader)
	d.opts.Stdout = saved
	if err != nil {
		d.errorf("ember: %v\n", err)
		return ExitIO
	}
	defer s.heap.FreeAll()

	span := trace.Begin(d.opts.Tracer, trace.ScopeDriver, "repl", nil)
	defer span.End("")
	d.timer.WithTracer(d.opts.Tracer, span)

	var files []*source.File
	fileFor := func(line int) *source.File {
		for i := len(files) - 1; i >= 0; i-- {
			f := files[i]
			if line >= int(f.FirstLine) && line < int(f.FirstLine)+f.LineCount() {
				return f
			}
		}
		return nil
	}

	next := uint32(1)
	for {
		if d.opts.Prompt != "" {
			writef(out, "%s", d.opts.Prompt)
		}
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			d.errorf("ember: %v\n", err)
			return ExitIO
		}
		text := strings.TrimRight(line, "\r\n")
		if text == "" {
			return ExitOK
		}

		id := s.fs.AddAt(replPath, []byte(text), source.FileVirtual, next)
		file := s.fs.Get(id)
		files = append(files, file)
		next++

		if entry, ok := d.compile(s, file, span); ok {
			d.execute(s, entry, fileFor)
		}
		if errors.Is(err, io.EOF) {
			return ExitOK
		}
	}
}
