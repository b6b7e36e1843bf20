package diag

import (
	"ember/internal/source"
)

// Severity orders diagnostics; only SevError makes a unit fail to compile.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{SevInfo: "info", SevWarning: "warning", SevError: "error"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "unknown"
}

type Note struct {
	Span source.Span
	Msg  string
}

// Fix is a suggested text edit shown as help under the diagnostic.
type Fix struct {
	Title   string
	Span    source.Span
	NewText string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
	Fixes    []Fix
}

func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

func (d Diagnostic) WithFix(title string, sp source.Span, newText string) Diagnostic {
	d.Fixes = append(d.Fixes, Fix{Title: title, Span: sp, NewText: newText})
	return d
}
