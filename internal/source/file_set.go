// Package source keeps script text in memory and maps byte offsets to lines.
package source

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"fortio.org/safecast"
)

// FileFlags records how a file's bytes were obtained.
type FileFlags uint8

const (
	// FileVirtual marks text that did not come from disk (REPL input, tests).
	FileVirtual FileFlags = 1 << iota
	FileHadBOM
	FileNormalizedCRLF
)

// File is one source text. Content is normalized to LF line endings without a BOM.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	// LineStart[i] is the offset of the first byte of line i+1.
	LineStart []uint32
	Flags     FileFlags
	// FirstLine is the line number of the first line; REPL input counts on from
	// the previous entry.
	FirstLine uint32
}

// FileSet owns every file seen by one driver run. It is safe for concurrent use;
// the check command loads files from several goroutines.
type FileSet struct {
	mu    sync.RWMutex
	files []*File
}

// NewFileSet creates an empty set.
func NewFileSet() *FileSet {
	return &FileSet{}
}

// Add stores already-normalized content and returns its id.
func (fs *FileSet) Add(path string, content []byte, flags FileFlags) FileID {
	return fs.AddAt(path, content, flags, 1)
}

// AddAt is Add with an explicit number for the first line.
func (fs *FileSet) AddAt(path string, content []byte, flags FileFlags, firstLine uint32) FileID {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	n, err := safecast.Conv[uint32](len(fs.files))
	if err != nil {
		panic(fmt.Errorf("too many files: %w", err))
	}
	if firstLine == 0 {
		firstLine = 1
	}
	f := &File{
		ID:        FileID(n),
		Path:      filepath.ToSlash(filepath.Clean(path)),
		Content:   content,
		LineStart: lineStarts(content),
		Flags:     flags,
		FirstLine: firstLine,
	}
	fs.files = append(fs.files, f)
	return f.ID
}

// Load reads path from disk and normalizes BOM and CRLF.
func (fs *FileSet) Load(path string) (FileID, error) {
	// #nosec G304 -- path comes from the command line
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	content, flags := Normalize(content)
	return fs.Add(path, content, flags), nil
}

// AddVirtual adds in-memory text.
func (fs *FileSet) AddVirtual(name string, content []byte) FileID {
	content, flags := Normalize(content)
	return fs.Add(name, content, flags|FileVirtual)
}

// Get returns the file with id. It panics on an unknown id.
func (fs *FileSet) Get(id FileID) *File {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.files[id]
}

// Len returns the number of files.
func (fs *FileSet) Len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.files)
}

// Resolve converts span to line/column pairs.
func (fs *FileSet) Resolve(sp Span) (start, end LineCol) {
	f := fs.Get(sp.File)
	return f.Position(sp.Start), f.Position(sp.End)
}

// Position maps a byte offset to a line and column. Columns count bytes.
func (f *File) Position(off uint32) LineCol {
	i := sort.Search(len(f.LineStart), func(i int) bool { return f.LineStart[i] > off }) - 1
	if i < 0 {
		i = 0
	}
	line, err := safecast.Conv[uint32](i)
	if err != nil {
		panic(err)
	}
	return LineCol{Line: f.FirstLine + line, Col: off - f.LineStart[i] + 1}
}

// LineCount returns the number of lines in the file.
func (f *File) LineCount() int { return len(f.LineStart) }

// Line returns the text of line n (numbered like Position) without its newline.
func (f *File) Line(n uint32) string {
	if n < f.FirstLine {
		return ""
	}
	i := int(n - f.FirstLine)
	if i >= len(f.LineStart) {
		return ""
	}
	start := f.LineStart[i]
	end := uint32(len(f.Content))
	if i+1 < len(f.LineStart) {
		end = f.LineStart[i+1] - 1
	}
	return string(f.Content[start:end])
}

// Normalize strips a UTF-8 BOM and rewrites CRLF to LF.
func Normalize(content []byte) ([]byte, FileFlags) {
	var flags FileFlags
	if rest, ok := bytes.CutPrefix(content, []byte{0xEF, 0xBB, 0xBF}); ok {
		content = rest
		flags |= FileHadBOM
	}
	if bytes.Contains(content, []byte("\r\n")) {
		content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
		flags |= FileNormalizedCRLF
	}
	return content, flags
}

func lineStarts(content []byte) []uint32 {
	out := make([]uint32, 1, 1+bytes.Count(content, []byte{'\n'}))
	for i, b := range content {
		if b == '\n' {
			out = append(out, uint32(i+1))
		}
	}
	return out
}
