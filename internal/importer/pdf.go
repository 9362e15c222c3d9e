package importer

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// PDFImporter handles PDF files. It tries the Go library first, then
// falls back to pdftotext if available. Each page becomes a headline so
// page boundaries survive into the outline.
type PDFImporter struct {
	Registry          *orgtree.Registry
	FallbackPdftotext bool
}

func (p *PDFImporter) Import(r io.Reader, filename string) (*orgtree.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "orgbridge-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, err := extractPDFText(tmpPath)
	if err != nil && p.FallbackPdftotext {
		text, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	b, err := NewBuilder(p.Registry, filename)
	if err != nil {
		return nil, err
	}
	b.SetTitle(baseTitle(filename))

	pages := splitPages(text)
	multi := countNonEmpty(pages) > 1
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		if multi {
			b.Heading(1, fmt.Sprintf("Page %d", i+1))
			b.HeadingProperty("PAGE", i+1)
		}
		for _, para := range splitParagraphs(page) {
			b.Paragraph(para)
		}
	}

	return b.Document(), nil
}

func extractPDFText(path string) (string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f") // Form feed as page separator.
		}
		buf.WriteString(text)
	}
	return buf.String(), nil
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitPages(text string) []string {
	return strings.Split(text, "\f")
}

func countNonEmpty(pages []string) int {
	n := 0
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			n++
		}
	}
	return n
}

// splitParagraphs breaks page text on blank lines.
func splitParagraphs(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "\n\n") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
