package main

import (
	"bytes"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	dotignore "github.com/monochromegane/go-gitignore"
	"go.uber.org/zap"
)

const (
	gitDirName     = ".git"
	gitIgnoreName  = ".gitignore"
	dotIgnoreName  = ".ignore"
	infoExcludeRel = ".git/info/exclude"
)

// dotIgnoreFile is one parsed .ignore file. accept holds its negated patterns
// so an explicit re-include can override git rules.
type dotIgnoreFile struct {
	matcher dotignore.IgnoreMatcher
	accept  []gitignore.Pattern
}

func (f *dotIgnoreFile) accepts(parts []string, isDir bool) bool {
	for _, p := range f.accept {
		if p.Match(parts, isDir) == gitignore.Include {
			return true
		}
	}
	return false
}

// ignoreRules evaluates the layered ignore sources for entries under a scan
// root. A nil *ignoreRules matches nothing.
type ignoreRules struct {
	root string
	// prefix is the scan root relative to the enclosing repository's
	// worktree, so patterns from the repository top line up with our paths.
	prefix []string
	// patterns are all git-syntax rules in increasing priority.
	patterns []gitignore.Pattern
	git      gitignore.Matcher
	// dotIgnore holds .ignore files keyed by their directory relative to
	// root ("." for the root itself).
	dotIgnore map[string]*dotIgnoreFile
}

// loadIgnoreRules collects system, global, repository-exclude, .gitignore and
// .ignore rules for root. It never fails: a source that cannot be read is
// logged and left out.
func loadIgnoreRules(root string, logger *zap.Logger) *ignoreRules {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	rules := &ignoreRules{root: root, dotIgnore: map[string]*dotIgnoreFile{}}

	top, prefix := locateRepository(root, logger)
	rules.prefix = prefix

	rootFS := osfs.New("/")
	if ps, err := gitignore.LoadSystemPatterns(rootFS); err != nil {
		logger.Warn("Could not load system git excludes", zap.Error(err))
	} else {
		rules.addPatterns(ps)
	}
	global, err := gitignore.LoadGlobalPatterns(rootFS)
	if err != nil {
		logger.Warn("Could not load global git excludes", zap.Error(err))
	}
	if len(global) == 0 {
		global = loadDefaultGlobalPatterns(logger)
	}
	rules.addPatterns(global)

	if len(prefix) > 0 {
		rules.addPatterns(readPatternFile(filepath.Join(top, filepath.FromSlash(infoExcludeRel)), nil, logger))
	}
	rules.addPatterns(readPatternFile(filepath.Join(root, filepath.FromSlash(infoExcludeRel)), rules.pathParts("."), logger))

	rules.loadDirectoryFiles(logger)
	logger.Debug("Loaded ignore rules",
		zap.Int("patterns", len(rules.patterns)), zap.Int("ignoreFiles", len(rules.dotIgnore)))
	return rules
}

// locateRepository finds the worktree enclosing root. Without a repository
// the scan root is its own top and the prefix is empty.
func locateRepository(root string, logger *zap.Logger) (string, []string) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return root, nil
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	repo, err := git.PlainOpenWithOptions(absRoot, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		logger.Debug("No git repository found, using ignore files only", zap.String("root", root))
		return absRoot, nil
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return absRoot, nil
	}
	top := worktree.Filesystem.Root()
	if resolved, err := filepath.EvalSymlinks(top); err == nil {
		top = resolved
	}
	rel, err := filepath.Rel(top, absRoot)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return absRoot, nil
	}
	logger.Debug("Scan root is inside a git repository", zap.String("repository", top), zap.String("prefix", rel))
	return top, strings.Split(filepath.ToSlash(rel), "/")
}

// loadDefaultGlobalPatterns reads git's default global excludes file, used
// when no core.excludesfile is configured.
func loadDefaultGlobalPatterns(logger *zap.Logger) []gitignore.Pattern {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		configHome = filepath.Join(home, ".config")
	}
	return readPatternFile(filepath.Join(configHome, "git", "ignore"), nil, logger)
}

// readPatternFile parses a gitignore-syntax file. A missing file yields no
// patterns.
func readPatternFile(file string, domain []string, logger *zap.Logger) []gitignore.Pattern {
	data, err := os.ReadFile(file)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Could not read ignore file", zap.String("path", file), zap.Error(err))
		}
		return nil
	}
	return parsePatterns(data, domain, false)
}

// parsePatterns parses gitignore-syntax lines. With negatedOnly set, only
// "!" lines are kept.
func parsePatterns(data []byte, domain []string, negatedOnly bool) []gitignore.Pattern {
	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		if negatedOnly && !strings.HasPrefix(line, "!") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, domain))
	}
	return patterns
}

func (r *ignoreRules) addPatterns(ps []gitignore.Pattern) {
	if len(ps) == 0 {
		return
	}
	r.patterns = append(r.patterns, ps...)
	r.git = gitignore.NewMatcher(r.patterns)
}

// loadDirectoryFiles walks the root once, reading each directory's .gitignore
// and .ignore before any of its children are visited. Ignored directories are
// not entered. A directory that cannot be read is skipped and the walk goes
// on, so its siblings still contribute their rules.
func (r *ignoreRules) loadDirectoryFiles(logger *zap.Logger) {
	err := filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("Skipping directory while loading ignore files", zap.String("path", p), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(r.root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel != "." && (d.Name() == gitDirName || r.Match(rel, true)) {
			return filepath.SkipDir
		}
		r.loadDirectory(p, rel, logger)
		return nil
	})
	if err != nil {
		logger.Warn("Could not scan for ignore files", zap.String("root", r.root), zap.Error(err))
	}
}

// loadDirectory reads the ignore files of one directory.
func (r *ignoreRules) loadDirectory(dir, rel string, logger *zap.Logger) {
	domain := r.pathParts(rel)
	r.addPatterns(readPatternFile(filepath.Join(dir, gitIgnoreName), domain, logger))

	file := filepath.Join(dir, dotIgnoreName)
	data, err := os.ReadFile(file)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("Could not read ignore file", zap.String("path", file), zap.Error(err))
		}
		return
	}
	r.dotIgnore[rel] = &dotIgnoreFile{
		matcher: dotignore.NewGitIgnoreFromReader(dir, bytes.NewReader(data)),
		accept:  parsePatterns(data, domain, true),
	}
	logger.Debug("Loaded ignore file", zap.String("path", path.Join(rel, dotIgnoreName)))
}

// Match reports whether the slash-separated path rel, relative to the scan
// root, is excluded. The nearest .ignore file that has an opinion decides
// first; git rules apply otherwise.
func (r *ignoreRules) Match(rel string, isDir bool) bool {
	if r == nil {
		return false
	}
	parts := r.pathParts(rel)
	if len(r.dotIgnore) > 0 {
		full := filepath.Join(r.root, filepath.FromSlash(rel))
		for dir := path.Dir(rel); ; dir = path.Dir(dir) {
			if f, ok := r.dotIgnore[dir]; ok {
				if f.accepts(parts, isDir) {
					return false
				}
				if f.matcher.Match(full, isDir) {
					return true
				}
			}
			if dir == "." {
				break
			}
		}
	}
	return r.git != nil && r.git.Match(parts, isDir)
}

// pathParts returns rel as path elements relative to the repository top.
func (r *ignoreRules) pathParts(rel string) []string {
	if rel == "." {
		return slices.Clone(r.prefix)
	}
	return slices.Concat(r.prefix, strings.Split(rel, "/"))
}
