// Package document turns raw files into plain text and overlapping token
// chunks ready for embedding.
package document

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFileType is returned when no parser is registered for the
// file's extension.
var ErrUnsupportedFileType = errors.New("unsupported file type")

// Parser extracts plain text from one file format.
type Parser interface {
	Parse(raw []byte) (string, error)
}

var parsers = map[string]Parser{}

func RegisterParser(ext string, p Parser) {
	key := normalizeExt(ext)
	if key == "" || p == nil {
		return
	}
	parsers[key] = p
}

// ParserFor resolves the parser for a file name by extension.
func ParserFor(fileName string) (Parser, string, error) {
	ext := normalizeExt(filepath.Ext(fileName))
	p := parsers[ext]
	if p == nil {
		return nil, ext, fmt.Errorf("%w: %q (supported: %s)",
			ErrUnsupportedFileType, ext, strings.Join(SupportedExtensions(), ", "))
	}
	return p, ext, nil
}

// SupportedExtensions lists the registered file extensions.
func SupportedExtensions() []string {
	out := make([]string, 0, len(parsers))
	for ext := range parsers {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}
