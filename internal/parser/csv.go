package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/readpace/internal/blocks"
)

// CSVParser handles CSV files. Every record, header included, becomes one
// paragraph with its cells joined the way HTML table rows are.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, _ Options) ([]blocks.Block, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var b blocks.Builder
	for _, row := range records {
		var cells []string
		for _, cell := range row {
			if c := blocks.Normalize(cell); c != "" {
				cells = append(cells, c)
			}
		}
		b.AddParagraph(strings.Join(cells, " | "))
	}
	return b.Blocks(), nil
}
