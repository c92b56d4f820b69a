package main

import (
	"io/fs"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
)

// pathFilter decides which entries the walk may see. It is built once per run
// and holds no mutable state.
type pathFilter struct {
	root string
	// outputResolved is the artifact's absolute, symlink-free path, or ""
	// when it could not be resolved (usually because it does not exist yet).
	outputResolved string
	// outputRel is the artifact path relative to root, slash-separated.
	outputRel string
	rules     *ignoreRules
}

func newPathFilter(root, outputPath string, rules *ignoreRules) *pathFilter {
	filter := &pathFilter{root: root, rules: rules}
	filter.outputResolved = resolvePath(outputPath)
	if rel, err := filepath.Rel(root, outputPath); err == nil {
		filter.outputRel = filepath.ToSlash(rel)
	} else {
		filter.outputRel = filepath.ToSlash(filepath.Clean(outputPath))
	}
	return filter
}

// resolvePath returns the absolute path of p with symlinks evaluated, or ""
// if that is not possible.
func resolvePath(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		return ""
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return ""
	}
	return resolved
}

// shouldVisit reports whether the entry at rel (slash-separated, relative to
// root) is part of the scan.
func (f *pathFilter) shouldVisit(rel string, d fs.DirEntry) bool {
	if d.Name() == gitDirName {
		return false
	}
	if !d.IsDir() && f.isOutput(rel) {
		return false
	}
	return !f.rules.Match(rel, d.IsDir())
}

func (f *pathFilter) isOutput(rel string) bool {
	if f.outputResolved != "" {
		if resolved := resolvePath(filepath.Join(f.root, filepath.FromSlash(rel))); resolved != "" {
			return resolved == f.outputResolved
		}
	}
	return rel == f.outputRel
}

// walkDirectory returns every entry under root that passes the filter, as
// slash-separated paths relative to root, sorted bytewise. Rejected
// directories are not descended into. Unreadable entries are logged and
// skipped.
func walkDirectory(root string, filter *pathFilter, logger *zap.Logger) []string {
	var paths []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("Failed to process entry", zap.String("path", path), zap.Error(err))
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			logger.Warn("Failed to relativize entry", zap.String("path", path), zap.Error(relErr))
			return nil
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if !filter.shouldVisit(rel, d) {
			logger.Debug("Excluded", zap.String("path", rel))
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		logger.Warn("Walk ended early", zap.String("root", root), zap.Error(err))
	}

	slices.Sort(paths)
	return paths
}
