package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// rootLabel is the label printed for the scan root.
const rootLabel = "."

var errInvalidUTF8 = errors.New("stream did not contain valid UTF-8")

var xmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escapeXML replaces &, < and > with entity references in a single pass.
// Escaping already escaped text escapes it again.
func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// buildTree reconstructs the hierarchy described by paths under root and
// counts how many of them are directories and regular files on disk right
// now. The input order does not matter.
func buildTree(root string, paths []string) (*TreeNode, DocumentCounts) {
	var counts DocumentCounts
	children := make(map[string][]string)

	for _, p := range paths {
		children[parentOf(p)] = append(children[parentOf(p)], p)

		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(p)))
		if err != nil {
			continue
		}
		if info.IsDir() {
			counts.Directories++
		} else if info.Mode().IsRegular() {
			counts.Files++
		}
	}
	for _, group := range children {
		slices.Sort(group)
	}

	tree := buildNode("", children)
	tree.Label = rootLabel
	return tree, counts
}

// parentOf returns the parent of a slash-separated relative path; top-level
// entries have the empty parent.
func parentOf(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}

func buildNode(p string, children map[string][]string) *TreeNode {
	node := &TreeNode{Label: path.Base(p)}
	for _, child := range children[p] {
		node.Children = append(node.Children, buildNode(child, children))
	}
	return node
}

// documentWriter remembers the first write error and turns later writes into
// no-ops, so callers can check once per block.
type documentWriter struct {
	w   *bufio.Writer
	err error
}

func (d *documentWriter) writeString(s string) {
	if d.err != nil {
		return
	}
	_, d.err = d.w.WriteString(s)
}

func (d *documentWriter) printf(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format, args...)
}

// writeTree prints root and its descendants in pre-order with box-drawing
// branch markers.
func writeTree(d *documentWriter, root *TreeNode) {
	d.writeString(root.Label)
	d.writeString("\n")
	writeNodes(d, root.Children, "")
}

func writeNodes(d *documentWriter, nodes []*TreeNode, prefix string) {
	for i, node := range nodes {
		connector := "├── "
		newPrefix := prefix + "│   "
		if i == len(nodes)-1 {
			connector = "└── "
			newPrefix = prefix + "    "
		}

		d.writeString(prefix)
		d.writeString(connector)
		d.writeString(node.Label)
		d.writeString("\n")

		writeNodes(d, node.Children, newPrefix)
	}
}

// serializer renders the document for one run.
type serializer struct {
	root   string
	policy TextPolicy
	logger *zap.Logger
}

// Serialize streams the structure section for tree and counts, then a file
// block for every text file in paths, to w. Only write errors are returned;
// per-file problems are logged and the file is skipped or annotated.
func (s *serializer) Serialize(w io.Writer, tree *TreeNode, counts DocumentCounts, paths []string) (ContentStats, error) {
	var stats ContentStats
	d := &documentWriter{w: bufio.NewWriter(w)}

	d.writeString("<codebase>\n")

	s.logger.Info("Generating tree structure")
	d.writeString("<project_structure>\n")
	writeTree(d, tree)
	d.printf("%d directories, %d files\n", counts.Directories, counts.Files)
	d.writeString("</project_structure>\n\n")
	if d.err != nil {
		return stats, d.err
	}

	s.logger.Info("Processing files")
	for _, rel := range paths {
		full := filepath.Join(s.root, filepath.FromSlash(rel))
		info, err := os.Stat(full)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		classified := classifyFile(s.root, rel, s.policy)
		switch classified.Class {
		case ClassBinary:
			s.logger.Info("Skipping file (likely binary or image file)", zap.String("path", rel))
			stats.Binary++
			continue
		case ClassUnreadable:
			s.logger.Warn("Could not determine file type, skipping", zap.String("path", rel), zap.Error(classified.Err))
			stats.Unreadable++
			continue
		}

		s.logger.Info("Adding file", zap.String("path", rel))
		d.printf("<file src=\"%s\">\n", escapeXML(rel))
		content, err := readText(full)
		if err != nil {
			s.logger.Warn("Could not read file as UTF-8 text, skipping content", zap.String("path", rel), zap.Error(err))
			d.printf("<!-- Error reading file: %s -->\n", escapeXML(err.Error()))
			stats.DecodeFailed++
		} else {
			d.writeString(escapeXML(content))
			d.writeString("\n")
		}
		d.writeString("</file>\n\n")
		if d.err != nil {
			return stats, d.err
		}
		stats.Included = append(stats.Included, rel)
	}

	d.writeString("</codebase>\n")
	if d.err != nil {
		return stats, d.err
	}
	return stats, d.w.Flush()
}

// readText reads the whole file and requires it to be valid UTF-8.
func readText(p string) (string, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", errInvalidUTF8
	}
	return string(data), nil
}
