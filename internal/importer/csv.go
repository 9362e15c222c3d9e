package importer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/dgallion1/orgbridge/internal/orgtree"
)

// CSVImporter handles CSV files. The whole file becomes one org table
// with the first row as its header.
type CSVImporter struct {
	Registry *orgtree.Registry
}

func (p *CSVImporter) Import(r io.Reader, filename string) (*orgtree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	b, err := NewBuilder(p.Registry, filename)
	if err != nil {
		return nil, err
	}
	b.SetTitle(baseTitle(filename))

	if len(records) == 0 {
		return b.Document(), nil
	}

	// First row is headers.
	b.Table(records[0], records[1:])
	return b.Document(), nil
}
