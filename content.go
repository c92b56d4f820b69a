package main

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// sampleSize is the prefix length read to classify a file.
const sampleSize = 1024

// contentType is what the inspector makes of a byte prefix.
type contentType int

const (
	contentTextual contentType = iota
	// contentPlausibleText has no binary markers but is not valid UTF-8
	// either, e.g. Latin-1 text.
	contentPlausibleText
	contentBinary
)

var byteOrderMarks = []struct {
	bom []byte
	t   contentType
}{
	// UTF-32 first; its LE mark starts with the UTF-16 LE mark.
	{[]byte{0xFF, 0xFE, 0x00, 0x00}, contentTextual},
	{[]byte{0x00, 0x00, 0xFE, 0xFF}, contentTextual},
	{[]byte{0xEF, 0xBB, 0xBF}, contentTextual},
	{[]byte{0xFF, 0xFE}, contentTextual},
	{[]byte{0xFE, 0xFF}, contentTextual},
}

var binaryMagic = [][]byte{
	[]byte("%PDF-"),
}

// inspectContent classifies a byte prefix. truncated reports whether the
// prefix was cut at sampleSize, in which case a multi-byte rune split at the
// end does not count against it.
func inspectContent(sample []byte, truncated bool) contentType {
	for _, m := range byteOrderMarks {
		if bytes.HasPrefix(sample, m.bom) {
			return m.t
		}
	}
	for _, magic := range binaryMagic {
		if bytes.HasPrefix(sample, magic) {
			return contentBinary
		}
	}
	if bytes.IndexByte(sample, 0x00) >= 0 {
		return contentBinary
	}
	if validUTF8Prefix(sample, truncated) {
		return contentTextual
	}
	return contentPlausibleText
}

func validUTF8Prefix(sample []byte, truncated bool) bool {
	if utf8.Valid(sample) {
		return true
	}
	if !truncated {
		return false
	}
	for cut := 1; cut < utf8.UTFMax && cut < len(sample); cut++ {
		tail := sample[len(sample)-cut:]
		if !utf8.FullRune(tail) && utf8.Valid(sample[:len(sample)-cut]) {
			return true
		}
	}
	return false
}

// classifyFile reads at most sampleSize bytes of rel under root and decides
// whether its content belongs in the document.
func classifyFile(root, rel string, policy TextPolicy) ClassifiedFile {
	result := ClassifiedFile{Path: rel, Class: ClassBinary}

	file, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		result.Class, result.Err = ClassUnreadable, err
		return result
	}
	defer file.Close()

	buffer := make([]byte, sampleSize)
	n, err := io.ReadFull(file, buffer)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		result.Class, result.Err = ClassUnreadable, err
		return result
	}
	if n == 0 {
		result.Class = ClassText
		return result
	}

	switch inspectContent(buffer[:n], n == sampleSize) {
	case contentTextual:
		result.Class = ClassText
	case contentPlausibleText:
		if policy != TextPolicyStrict {
			result.Class = ClassText
		}
	}
	return result
}
