package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const maxSeedBytes = 64 << 10 // 64 KiB, ограничение для тестового корпуса

var languageSeeds = []string{
	``,
	`print(1 + 2 * 3);`,
	`var s = "a${1 + 1}b"; print(s);`,
	`const k = 0х1F + 0б101 + 0о7; print(k >>> 1);`,
	`func f(n) { if (n < 2) return n; return f(n - 1) + f(n - 2); } print(f(10));`,
	`func mk() { var x = 0; return func() { x += 1; return x; }; }`,
	`class P { private var s = 1; const k = 2; func init(a) { this.a = a; } func get() { return this.s; } }`,
	`for (var i = 0; i < 3; i += 1) { if (i == 1) continue; print(i); }`,
	`var a = array(2); a[0] = int("42"); print(str(a[0]) + "!");`,
	`while (false) { break; }`,
	`"unterminated`,
	`/* open comment`,
	`var = ;`,
}

func addCorpusSeeds(f *testing.F) {
	for _, s := range languageSeeds {
		f.Add([]byte(s))
	}
	addTestdataSeeds(f)
}

func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	// проходим по дереву testdata, добавляем все *.em файлы
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() || filepath.Ext(path) != ".em" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

func clampSeed(src []byte) []byte {
	if len(src) > maxSeedBytes {
		return append([]byte(nil), src[:maxSeedBytes]...)
	}
	return src
}
