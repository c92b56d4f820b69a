package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"go.uber.org/zap/zaptest"
)

func TestIgnoreRulesNilMatchesNothing(t *testing.T) {
	var rules *ignoreRules
	if rules.Match("anything", false) {
		t.Fatal("nil rules matched")
	}
}

func TestIgnoreRulesWithoutRepository(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\n!keep.log\n/dist\n")
	writeFile(t, root, "pkg/.gitignore", "generated.go\n")
	writeFile(t, root, ".git/info/exclude", "local-notes.md\n")

	rules := loadIgnoreRules(root, zaptest.NewLogger(t))

	tests := []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{"debug.log", false, true},
		{"nested/trace.log", false, true},
		{"keep.log", false, false},
		{"dist", true, true},
		{"pkg/dist", true, false},
		{"pkg/generated.go", false, true},
		{"generated.go", false, false},
		{"local-notes.md", false, true},
		{"main.go", false, false},
	}
	for _, tt := range tests {
		if got := rules.Match(tt.rel, tt.isDir); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestIgnoreRulesDotIgnoreFiles(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeFile(t, root, ".ignore", "*.tmp\n")
	writeFile(t, root, "sub/.ignore", "local.txt\n")

	rules := loadIgnoreRules(root, zaptest.NewLogger(t))

	tests := []struct {
		rel  string
		want bool
	}{
		{"scratch.tmp", true},
		{"sub/local.txt", true},
		{"local.txt", false},
		{"sub/other.txt", false},
	}
	for _, tt := range tests {
		if got := rules.Match(tt.rel, false); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}

func TestIgnoreRulesGlobalExcludesFile(t *testing.T) {
	isolateHome(t)
	writeFile(t, os.Getenv("XDG_CONFIG_HOME"), "git/ignore", ".DS_Store\n*.swp\n")
	root := t.TempDir()

	rules := loadIgnoreRules(root, zaptest.NewLogger(t))
	if !rules.Match(".DS_Store", false) || !rules.Match("src/main.go.swp", false) {
		t.Fatal("global excludes not applied")
	}
	if rules.Match("main.go", false) {
		t.Fatal("main.go should not be ignored")
	}
}

func TestIgnoreRulesNestedInRepository(t *testing.T) {
	isolateHome(t)
	top := t.TempDir()
	if _, err := git.PlainInit(top, false); err != nil {
		t.Fatalf("git init: %v", err)
	}
	writeFile(t, top, ".git/info/exclude", "/service/secrets.yaml\n")
	writeFile(t, top, "service/.gitignore", "*.out\n")
	writeFile(t, top, "service/config.yaml", "a: 1\n")

	root := filepath.Join(top, "service")
	rules := loadIgnoreRules(root, zaptest.NewLogger(t))

	if len(rules.prefix) != 1 || rules.prefix[0] != "service" {
		t.Fatalf("prefix = %v, want [service]", rules.prefix)
	}
	if !rules.Match("secrets.yaml", false) {
		t.Error("repository exclude not applied to nested root")
	}
	if !rules.Match("bin/app.out", false) {
		t.Error(".gitignore in nested root not applied")
	}
	if rules.Match("config.yaml", false) {
		t.Error("config.yaml should not be ignored")
	}
}

func TestIgnoreRulesSurviveUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	isolateHome(t)
	root := t.TempDir()
	writeFile(t, root, "aaa/inner.txt", "x")
	writeFile(t, root, "zzz/.gitignore", "secret.txt\n")
	writeFile(t, root, "zzz/deeper/.ignore", "*.key\n")
	locked := filepath.Join(root, "aaa")
	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	rules := loadIgnoreRules(root, zaptest.NewLogger(t))
	if !rules.Match("zzz/secret.txt", false) {
		t.Error(".gitignore after an unreadable directory was not applied")
	}
	if !rules.Match("zzz/deeper/id.key", false) {
		t.Error(".ignore after an unreadable directory was not applied")
	}
}

func TestIgnoreFileTakesPrecedence(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "*.log\nvendor/\n")
	writeFile(t, root, ".ignore", "!keep.log\n*.tmp\n")
	writeFile(t, root, "sub/.ignore", "!wanted.tmp\n")

	rules := loadIgnoreRules(root, zaptest.NewLogger(t))

	tests := []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{"debug.log", false, true},
		{"keep.log", false, false},
		{"sub/keep.log", false, false},
		{"scratch.tmp", false, true},
		{"sub/wanted.tmp", false, false},
		{"sub/other.tmp", false, true},
		{"vendor", true, true},
	}
	for _, tt := range tests {
		if got := rules.Match(tt.rel, tt.isDir); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.rel, got, tt.want)
		}
	}
}
