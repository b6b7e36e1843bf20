package diag_test

import (
	"testing"

	"ember/internal/diag"
	"ember/internal/source"
)

func TestBagLimitKeepsErrorFlag(t *testing.T) {
	b := diag.NewBag(1)
	if !b.Add(diag.New(diag.SevWarning, diag.UnknownCode, source.Span{}, "w")) {
		t.Fatal("first diagnostic rejected")
	}
	if b.Add(diag.NewError(diag.SynUnexpectedToken, source.Span{}, "e")) {
		t.Fatal("limit ignored")
	}
	if !b.HasErrors() || b.Dropped() != 1 || b.Len() != 1 {
		t.Fatalf("errors=%v dropped=%d len=%d", b.HasErrors(), b.Dropped(), b.Len())
	}
}

func TestBagSortOrder(t *testing.T) {
	b := diag.NewBag(0)
	b.Add(diag.NewError(diag.SynExpectSemicolon, source.Span{File: 1, Start: 0}, "c"))
	b.Add(diag.NewError(diag.SynUnexpectedToken, source.Span{File: 0, Start: 9}, "b"))
	b.Add(diag.NewError(diag.LexBadNumber, source.Span{File: 0, Start: 2}, "a"))
	b.Sort()
	var got string
	for _, d := range b.Items() {
		got += d.Message
	}
	if got != "abc" {
		t.Fatalf("order = %q", got)
	}
}

func TestDedupReporter(t *testing.T) {
	b := diag.NewBag(0)
	r := diag.NewDedupReporter(diag.BagReporter{Bag: b})
	sp := source.Span{Start: 3, End: 4}
	diag.ReportError(r, diag.LexUnknownChar, sp, "unknown character")
	diag.ReportError(r, diag.LexUnknownChar, sp, "unknown character")
	diag.ReportError(r, diag.LexUnknownChar, source.Span{Start: 5, End: 6}, "unknown character")
	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2", b.Len())
	}
}

func TestCodeID(t *testing.T) {
	tests := map[diag.Code]string{
		diag.LexBadNumber:       "LEX1004",
		diag.SynExpectSemicolon: "SYN2002",
		diag.SemConstAssign:     "SEM3002",
		diag.IOLoadFileError:    "IO4001",
		diag.UnknownCode:        "E0000",
	}
	for code, want := range tests {
		if got := code.ID(); got != want {
			t.Errorf("%d.ID() = %q, want %q", code, got, want)
		}
	}
}
