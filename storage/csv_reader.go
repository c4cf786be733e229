package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"airbnb-explorer/apperrors"
	"airbnb-explorer/models"
)

// CSVReader reads the listings CSV. Columns are matched by header name, so
// their order does not matter and unknown columns are ignored.
type CSVReader struct{}

// NewCSVReader creates a CSVReader.
func NewCSVReader() *CSVReader {
	return &CSVReader{}
}

// ReadRaw reads all rows. A missing header or required column fails the whole
// read with a ParseError; a row whose field count differs from the header is
// reported in problems and skipped.
func (c *CSVReader) ReadRaw(r io.Reader) ([]*models.RawListing, []error, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, &apperrors.ParseError{Row: 1, Err: errors.New("empty source: no header row")}
		}
		return nil, nil, &apperrors.ParseError{Row: 1, Err: fmt.Errorf("read header: %w", err)}
	}

	positions := make(map[int]models.Column, len(header))
	present := make(map[models.Column]bool, len(header))
	for i, name := range header {
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		if col, ok := models.ParseColumn(strings.ToLower(name)); ok {
			positions[i] = col
			present[col] = true
		}
	}
	for _, col := range models.RequiredColumns() {
		if !present[col] {
			return nil, nil, &apperrors.ParseError{
				Row:    1,
				Column: string(col),
				Err:    errors.New("required column missing from header"),
			}
		}
	}

	var (
		rows     []*models.RawListing
		problems []error
	)
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				problems = append(problems, &apperrors.ParseError{Row: pe.StartLine, Err: pe.Err})
				continue
			}
			return nil, nil, apperrors.Wrap(err, apperrors.KindSourceUnavailable, "read csv")
		}
		line, _ := cr.FieldPos(0)
		if len(record) != len(header) {
			problems = append(problems, &apperrors.ParseError{
				Row: line,
				Err: fmt.Errorf("got %d fields, header has %d", len(record), len(header)),
			})
			continue
		}

		raw := &models.RawListing{Row: line}
		for i, value := range record {
			if col, ok := positions[i]; ok {
				raw.Set(col, value)
			}
		}
		rows = append(rows, raw)
	}

	return rows, problems, nil
}
