package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// Importer converts a foreign document format into an org tree.
type Importer interface {
	Import(r io.Reader, filename string) (*orgtree.Document, error)
}

// SupportedExtensions lists file extensions this service can import.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate importer for a filename.
func ForFile(reg *orgtree.Registry, filename string) (Importer, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextImporter{Registry: reg}, nil
	case ".md", ".markdown":
		return &MarkdownImporter{Registry: reg}, nil
	case ".csv":
		return &CSVImporter{Registry: reg}, nil
	case ".html", ".htm":
		return &HTMLImporter{Registry: reg}, nil
	case ".pdf":
		return &PDFImporter{Registry: reg}, nil
	case ".docx":
		return &DOCXImporter{Registry: reg}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func baseTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
