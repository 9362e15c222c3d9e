package importer

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// TextImporter handles plain text files. Paragraphs are split on blank
// lines and land in the document's root section.
type TextImporter struct {
	Registry *orgtree.Registry
}

func (p *TextImporter) Import(r io.Reader, filename string) (*orgtree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	b, err := NewBuilder(p.Registry, filename)
	if err != nil {
		return nil, err
	}
	b.SetTitle(baseTitle(filename))

	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			b.Paragraph(current.String())
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return b.Document(), nil
}
