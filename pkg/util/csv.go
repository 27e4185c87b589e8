package util

import (
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// ReadCSV reads a header row and the records after it. Ragged rows are kept and
// malformed rows are skipped. Header names are lower-cased and trimmed.
func ReadCSV(r io.Reader) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, nil, err
	}
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return header, rows, nil
		}
		if err != nil {
			continue
		}
		rows = append(rows, rec)
	}
}
