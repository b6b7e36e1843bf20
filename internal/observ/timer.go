// Package observ measures driver phases (compile, relax, execute) for --timings.
package observ

import (
	"fmt"
	"io"
	"strings"
	"time"

	"ember/internal/trace"
)

// Phase is one measured step of a driver run.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string

	span *trace.Span
}

// Timer records phases in the order they begin. Each phase is mirrored as a
// phase-scope trace span when a tracer is attached.
type Timer struct {
	phases []Phase
	tracer trace.Tracer
	parent *trace.Span
}

// NewTimer creates an empty timer without tracing.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// WithTracer attaches t; spans nest under parent, which may be nil.
func (t *Timer) WithTracer(tr trace.Tracer, parent *trace.Span) *Timer {
	t.tracer = tr
	t.parent = parent
	return t
}

// Begin starts a phase and returns its index for End.
func (t *Timer) Begin(name string) int {
	p := Phase{Name: name, Start: time.Now()}
	if t.tracer != nil {
		p.span = trace.Begin(t.tracer, trace.ScopePhase, name, t.parent)
	}
	t.phases = append(t.phases, p)
	return len(t.phases) - 1
}

// End finishes the phase idx. Unknown indexes are ignored.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
	if p.span != nil {
		p.span.End(note)
	}
}

// Measure runs fn as one phase.
func (t *Timer) Measure(name string, fn func() error) error {
	idx := t.Begin(name)
	err := fn()
	note := ""
	if err != nil {
		note = "failed"
	}
	t.End(idx, note)
	return err
}

// Phases returns the recorded phases.
func (t *Timer) Phases() []Phase { return t.phases }

// Summary renders a table like:
//
//	timings:
//	  compile                 0.31 ms
//	  execute                 1.20 ms  // 412 instructions
//	  total                   1.51 ms
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-20s %7.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-20s %7.2f ms\n", "total", report.TotalMS)
	return sb.String()
}

// WriteSummary writes Summary to w.
func (t *Timer) WriteSummary(w io.Writer) error {
	_, err := io.WriteString(w, t.Summary())
	return err
}

// PhaseReport - сжатое описание фазы для JSON-вывода.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report - агрегат по всем фазам.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report собирает фазы и суммарную длительность в миллисекундах.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		report.Phases[i] = PhaseReport{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
