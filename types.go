package main

// OutputFileName is the artifact written into the scanned directory.
const OutputFileName = "codebase.md"

// TextPolicy decides what happens to files whose prefix is neither clearly
// text nor clearly binary.
type TextPolicy string

const (
	// TextPolicyPermissive includes ambiguous files.
	TextPolicyPermissive TextPolicy = "permissive"
	// TextPolicyStrict skips ambiguous files as binary.
	TextPolicyStrict TextPolicy = "strict"
)

// Classification is the verdict the content classifier gives a file.
type Classification int

const (
	ClassText Classification = iota
	ClassBinary
	ClassUnreadable
)

func (c Classification) String() string {
	switch c {
	case ClassText:
		return "text"
	case ClassBinary:
		return "binary"
	default:
		return "unreadable"
	}
}

// ClassifiedFile pairs a relative path with its classification.
// Err is set only for ClassUnreadable.
type ClassifiedFile struct {
	Path  string
	Class Classification
	Err   error
}

// TreeNode is one path segment of the reconstructed hierarchy.
type TreeNode struct {
	Label    string
	Children []*TreeNode
}

// DocumentCounts holds the directory and file totals printed under the tree.
type DocumentCounts struct {
	Directories int
	Files       int
}

// ContentStats summarizes the content section of a run.
type ContentStats struct {
	Included     []string // Relative paths that got a file block
	Binary       int
	Unreadable   int
	DecodeFailed int
}
