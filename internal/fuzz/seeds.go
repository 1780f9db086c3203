package fuzztests

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/txtar"
)

const maxFuzzInput = 1 << 16 // 64 KiB

const (
	maxSeedBytes = 64 << 10 // 64 KiB, ограничение для тестового корпуса
)

var inlineSeeds = []string{
	"",
	"fn main() {}\n",
	"fn main() { let v = vec![1]; let w = v; v.len(); }\n",
	"fn main() { let mut v = vec![1, 2]; let r = &v[0]; v.push(3); println!(\"{}\", *r); }\n",
	"fn main() { let mut x = 1; while x < 10 { let r = &mut x; *r += 1; } }\n",
	"fn f(a: &mut Vec<i32>) -> &i32 { &a[0] }\n",
	"fn main() { let x = 1; if x > 0 { return; } else { loop { break; } } }\n",
}

func addCorpusSeeds(f *testing.F) {
	for _, seed := range inlineSeeds {
		f.Add([]byte(seed))
	}
	addGoldenSeeds(f)
}

// addGoldenSeeds adds every program from the driver golden archives.
func addGoldenSeeds(f *testing.F) {
	paths, err := filepath.Glob(filepath.Join("..", "driver", "testdata", "*.txtar"))
	if err != nil {
		return
	}
	for _, path := range paths {
		// #nosec G304 -- path comes from repository testdata glob
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		for _, file := range txtar.Parse(data).Files {
			if filepath.Ext(file.Name) == ".rsl" {
				f.Add(clampSeed(file.Data))
			}
		}
	}
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}

func clampInput(input []byte) []byte {
	if len(input) > maxFuzzInput {
		return append([]byte(nil), input[:maxFuzzInput]...)
	}
	return append([]byte(nil), input...)
}
