package diagfmt

import (
	"fmt"
	"sort"
	"strings"

	"fortio.org/safecast"

	"ember/internal/diag"
	"ember/internal/source"
)

type fixPreview struct {
	before []string
	after  []string
}

// buildFixPreview applies fix to the whole lines it touches.
func buildFixPreview(fs *source.FileSet, fix diag.Fix) (fixPreview, error) {
	file := fileOf(fs, fix.Span.File)
	if file == nil {
		return fixPreview{}, fmt.Errorf("file %d not found in FileSet", fix.Span.File)
	}
	contentLen, err := safecast.Conv[uint32](len(file.Content))
	if err != nil {
		return fixPreview{}, fmt.Errorf("len file content overflow: %w", err)
	}
	if fix.Span.End > contentLen || fix.Span.Start > fix.Span.End {
		return fixPreview{}, fmt.Errorf("fix span %v outside file", fix.Span)
	}

	blockStart := lineStartOf(file, fix.Span.Start)
	blockEnd := lineEndOf(file, fix.Span.End, contentLen)
	original := string(file.Content[blockStart:blockEnd])
	relStart := int(fix.Span.Start - blockStart)
	relEnd := int(fix.Span.End - blockStart)
	after := original[:relStart] + fix.NewText + original[relEnd:]

	return fixPreview{
		before: splitPreviewLines(original),
		after:  splitPreviewLines(after),
	}, nil
}

func splitPreviewLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(text, "\n"), "\n")
}

// lineStartOf returns the offset of the first byte of the line containing off.
func lineStartOf(f *source.File, off uint32) uint32 {
	i := sort.Search(len(f.LineStart), func(i int) bool { return f.LineStart[i] > off }) - 1
	if i < 0 {
		return 0
	}
	return f.LineStart[i]
}

// lineEndOf returns the offset just past the newline ending the line containing off.
func lineEndOf(f *source.File, off, contentLen uint32) uint32 {
	i := sort.Search(len(f.LineStart), func(i int) bool { return f.LineStart[i] > off })
	if i < len(f.LineStart) {
		return f.LineStart[i]
	}
	return contentLen
}
