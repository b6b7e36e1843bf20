package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"ember/internal/compiler"
	"ember/internal/diag"
	"ember/internal/object"
	"ember/internal/observ"
	"ember/internal/source"
	"ember/internal/trace"
	"ember/internal/vm"
)

// SourceExt is the extension of ember scripts.
const SourceExt = ".em"

// CheckStatus is the state of one file during Check.
type CheckStatus uint8

const (
	CheckQueued CheckStatus = iota
	CheckCompiling
	CheckDone
	CheckFailed
)

func (s CheckStatus) String() string {
	switch s {
	case CheckQueued:
		return "queued"
	case CheckCompiling:
		return "compiling"
	case CheckDone:
		return "done"
	case CheckFailed:
		return "error"
	}
	return "unknown"
}

// CheckEvent reports a status change of File.
type CheckEvent struct {
	File   string
	Status CheckStatus
}

// ProgressFunc receives check events; it is called from several goroutines.
type ProgressFunc func(CheckEvent)

// CheckResult содержит результат проверки одного файла
type CheckResult struct {
	Path    string
	FileID  source.FileID
	Bag     *diag.Bag
	Timing  observ.Report
	LoadErr error
}

// CheckSummary holds the results of Check in input order.
type CheckSummary struct {
	FileSet *source.FileSet
	Results []CheckResult
}

// ExpandPaths replaces directories by the sorted *.em files below them.
func ExpandPaths(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			// missing files surface as load errors in Check
			out = append(out, p)
			continue
		}
		var files []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, SourceExt) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		// Сортируем для детерминированного порядка
		sort.Strings(files)
		out = append(out, files...)
	}
	return out, nil
}

// Check compiles every file in paths in parallel without running it. Each file
// gets its own heap and chunk, so nothing is shared between workers. jobs <= 0
// means GOMAXPROCS.
func (d *Driver) Check(ctx context.Context, paths []string, jobs int, progress ProgressFunc) (*CheckSummary, error) {
	if progress == nil {
		progress = func(CheckEvent) {}
	}
	span := trace.Begin(d.opts.Tracer, trace.ScopeDriver, "check", trace.SpanFrom(ctx))
	defer span.End(fmt.Sprintf("%d files", len(paths)))

	// Создаём FileSet и предзагружаем все файлы
	fileSet := source.NewFileSet()
	summary := &CheckSummary{FileSet: fileSet, Results: make([]CheckResult, len(paths))}
	for i, path := range paths {
		summary.Results[i] = CheckResult{Path: path, Bag: diag.NewBag(d.opts.MaxDiagnostics)}
		id, err := fileSet.Load(path)
		if err != nil {
			summary.Results[i].LoadErr = err
			continue
		}
		summary.Results[i].FileID = id
		progress(CheckEvent{File: path, Status: CheckQueued})
	}
	if len(paths) == 0 {
		return summary, nil
	}

	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(paths)))

	for i := range summary.Results {
		// индекс i уникален для каждой горутины, мьютекс не нужен
		res := &summary.Results[i]
		if res.LoadErr != nil {
			progress(CheckEvent{File: res.Path, Status: CheckFailed})
			continue
		}
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			progress(CheckEvent{File: res.Path, Status: CheckCompiling})
			d.checkOne(res, fileSet.Get(res.FileID), span)
			status := CheckDone
			if res.Bag.HasErrors() {
				status = CheckFailed
			}
			progress(CheckEvent{File: res.Path, Status: status})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	return summary, nil
}

func (d *Driver) checkOne(res *CheckResult, file *source.File, parent *trace.Span) {
	span := trace.Begin(d.opts.Tracer, trace.ScopePhase, "check-file", parent).Set("path", res.Path)
	defer span.End("")

	heap := object.NewHeap(d.opts.GC)
	defer heap.FreeAll()
	comp := compiler.NewSession(heap)
	// natives are bound so that redefining them is diagnosed as in a real run
	binder := vm.New(heap, comp.Chunk, vm.Options{StackMax: 1, FramesMax: 1})
	if err := binder.InstallNatives(comp.Globals); err != nil {
		res.Bag.Add(diag.NewError(diag.UnknownCode, source.Span{File: file.ID}, err.Error()))
		return
	}

	timer := observ.NewTimer()
	_ = timer.Measure("compile", func() error {
		_, err := comp.Compile(file, compiler.Options{
			Reporter: diag.BagReporter{Bag: res.Bag},
			Tracer:   d.opts.Tracer,
			Span:     span,
		})
		if err != nil && res.Bag.Len() == 0 {
			res.Bag.Add(diag.NewError(diag.UnknownCode, source.Span{File: file.ID}, err.Error()))
		}
		return err
	})
	res.Timing = timer.Report()
}

// ReportCheck prints the diagnostics of every file in order and returns the
// exit code for the whole run.
func (d *Driver) ReportCheck(sum *CheckSummary) int {
	code := ExitOK
	for _, res := range sum.Results {
		if res.LoadErr != nil {
			d.errorf("ember: cannot read %s: %v\n", res.Path, res.LoadErr)
			code = ExitIO
			continue
		}
		if res.Bag.Len() > 0 {
			d.printDiagnostics(res.Bag, sum.FileSet)
		}
		if res.Bag.HasErrors() && code == ExitOK {
			code = ExitCompile
		}
	}
	return code
}
