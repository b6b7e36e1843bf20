package diag

import "ember/internal/source"

// Reporter: минимальный контракт получения диагностик от фаз.
type Reporter interface {
	Report(d Diagnostic)
}

// ReportFunc adapts a function to Reporter.
type ReportFunc func(Diagnostic)

func (f ReportFunc) Report(d Diagnostic) { f(d) }

// BagReporter: адаптер, который пишет в *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag != nil {
		r.Bag.Add(d)
	}
}

// ReportError is a shortcut for an error without notes.
func ReportError(r Reporter, code Code, primary source.Span, msg string) {
	if r != nil {
		r.Report(NewError(code, primary, msg))
	}
}

type dedupKey struct {
	code  Code
	file  source.FileID
	start uint32
	msg   string
}

// DedupReporter drops repeats of the same code and message at the same position.
// Error recovery tends to produce them when one bad token is seen twice.
type DedupReporter struct {
	next Reporter
	seen map[dedupKey]struct{}
}

func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{next: next, seen: make(map[dedupKey]struct{})}
}

func (r *DedupReporter) Report(d Diagnostic) {
	key := dedupKey{code: d.Code, file: d.Primary.File, start: d.Primary.Start, msg: d.Message}
	if _, ok := r.seen[key]; ok {
		return
	}
	r.seen[key] = struct{}{}
	if r.next != nil {
		r.next.Report(d)
	}
}
