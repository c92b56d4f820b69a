package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"
)

func testConfig(root string) Config {
	return Config{
		Root:       root,
		OutputPath: filepath.Join(root, OutputFileName),
		TextPolicy: TextPolicyPermissive,
		LogLevel:   "debug",
	}
}

func readOutput(t *testing.T, root string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, OutputFileName))
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	return string(data)
}

func TestRunEndToEnd(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeFile(t, root, "a.txt", "hello")
	writeFile(t, root, "sub/b.bin", "\x00\x01\x02\x03")
	writeFile(t, root, "sub/c.txt", "world")
	writeFile(t, root, ".git/info/exclude", "sub/b.bin\n")

	if err := run(testConfig(root), zaptest.NewLogger(t)); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := strings.Join([]string{
		"<codebase>",
		"<project_structure>",
		".",
		"├── a.txt",
		"└── sub",
		"    └── c.txt",
		"1 directories, 2 files",
		"</project_structure>",
		"",
		`<file src="a.txt">`,
		"hello",
		"</file>",
		"",
		`<file src="sub/c.txt">`,
		"world",
		"</file>",
		"",
		"</codebase>",
		"",
	}, "\n")
	if got := readOutput(t, root); got != want {
		t.Fatalf("output =\n%s\nwant\n%s", got, want)
	}
}

func TestRunIsReproducible(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeFile(t, root, "README.md", "# Title\n\nSome <b>bold</b> & text.\n")
	writeFile(t, root, "cmd/tool/main.go", "package main\n\nfunc main() {}\n")
	writeFile(t, root, "assets/logo.png", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	writeFile(t, root, "empty", "")

	logger := zaptest.NewLogger(t)
	if err := run(testConfig(root), logger); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first := readOutput(t, root)

	// The second run sees the first artifact on disk and must leave it out.
	if err := run(testConfig(root), logger); err != nil {
		t.Fatalf("second run: %v", err)
	}
	second := readOutput(t, root)

	if first != second {
		t.Fatalf("runs differ:\n%s\n---\n%s", first, second)
	}
	if strings.Contains(first, OutputFileName) {
		t.Fatalf("artifact lists itself:\n%s", first)
	}
	if !strings.Contains(first, "3 directories, 4 files\n") {
		t.Fatalf("unexpected counts:\n%s", first)
	}
	if !strings.Contains(first, "<file src=\"empty\">\n\n</file>\n") {
		t.Fatalf("empty file block missing:\n%s", first)
	}
	if strings.Contains(first, "logo.png\">") {
		t.Fatalf("binary file got a block:\n%s", first)
	}
}

func TestRunFailsWhenOutputCannotBeCreated(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeFile(t, root, "a.txt", "a")

	cfg := testConfig(root)
	cfg.OutputPath = filepath.Join(root, "missing-dir", OutputFileName)
	if err := run(cfg, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected setup failure")
	}
}

func TestRootCommandRejectsArguments(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"somewhere"})
	cmd.SetOut(&strings.Builder{})
	cmd.SetErr(&strings.Builder{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for positional arguments")
	}
}
