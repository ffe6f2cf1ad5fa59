//go:build mage

// Package main contains Mage build targets for integrity-engine developer tooling.
package main

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// projectDirs lists the working directories the CLI expects.
var projectDirs = []string{
	"corpus",
	"graph/index",
	"graph/cache",
	"output",
}

// Init creates the working directory structure.
func Init() error {
	for _, dir := range projectDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Project directories initialized.")
	return nil
}

const (
	binDir  = "bin"
	binName = "integrity-engine"
	cmdPkg  = "./cmd/integrity-engine"

	// buildTags enables FTS5 in go-sqlite3.
	buildTags = "sqlite_fts5"
)

// Build compiles the CLI binary into bin/, stamping the version from
// VERSION when set.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	args := []string{"build", "-tags", buildTags, "-o", out}
	if v := os.Getenv("VERSION"); v != "" {
		args = append(args, "-ldflags", "-X main.version="+v)
	}
	if err := sh.RunV("go", append(args, cmdPkg)...); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Test runs the full test suite with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "-tags", buildTags, "./...")
}

// Index builds the CLI and indexes corpus/ into the graph/ store, writing
// the report to output/report.txt and metrics to output/integrity.prom.
func Index() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "index", "corpus",
		"--persist",
		"--store-dir", "graph",
		"--cache-dir", "graph/cache",
		"--out", "output/report.txt",
		"--metrics-file", "output/integrity.prom",
	)
}

// goLines counts non-blank Go lines in one package directory.
type goLines struct {
	prod, test int
}

// Stats prints non-blank Go lines per package, split into production and
// test code, followed by totals.
func Stats() error {
	perDir := map[string]*goLines{}
	err := filepath.WalkDir(".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != "." && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") || d.Name() == binDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		n, err := countLines(path)
		if err != nil {
			return err
		}
		dir := filepath.Dir(path)
		if perDir[dir] == nil {
			perDir[dir] = &goLines{}
		}
		if strings.HasSuffix(path, "_test.go") {
			perDir[dir].test += n
		} else {
			perDir[dir].prod += n
		}
		return nil
	})
	if err != nil {
		return err
	}

	dirs := make([]string, 0, len(perDir))
	for d := range perDir {
		dirs = append(dirs, d)
	}
	sort.Strings(dirs)

	var total goLines
	fmt.Printf("%-32s  %8s  %8s\n", "Package", "Prod", "Test")
	for _, d := range dirs {
		l := perDir[d]
		fmt.Printf("%-32s  %8d  %8d\n", d, l.prod, l.test)
		total.prod += l.prod
		total.test += l.test
	}
	fmt.Printf("%-32s  %8d  %8d\n", "total", total.prod, total.test)
	return nil
}

// countLines returns the number of non-blank lines in path.
func countLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n, sc.Err()
}
