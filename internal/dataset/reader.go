// Package dataset reads delimited text into header and rows.
package dataset

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// Options control how delimited text is parsed
type Options struct {
	// Delimiter defaults to ','.
	Delimiter rune
	// MaxRows stops reading after this many data rows. Zero reads everything.
	MaxRows int
	// LazyQuotes tolerates stray quotes inside unquoted fields.
	LazyQuotes bool
}

// DefaultOptions returns comma separated, header-in-first-row settings
func DefaultOptions() Options {
	return Options{Delimiter: ','}
}

// Scanner yields rows lazily after the header has been read
type Scanner struct {
	r       *csv.Reader
	opt     Options
	header  []string
	row     models.Row
	err     error
	rows    int
	ragged  int
	legacy  bool
	stopped bool
}

// NewScanner reads the header from r and prepares to stream rows.
// Zero bytes or an unreadable header yield a parse error.
func NewScanner(r io.Reader, opt Options) (*Scanner, error) {
	if opt.Delimiter == 0 {
		opt.Delimiter = ','
	}

	decoded, legacy, err := decodeReader(r)
	if err != nil {
		return nil, errors.Parse("Failed to read dataset", err)
	}

	cr := csv.NewReader(decoded)
	cr.Comma = opt.Delimiter
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = opt.LazyQuotes

	raw, err := cr.Read()
	if err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil, errors.Parse("Dataset has no header row", nil)
		}
		return nil, errors.Parse("Failed to read header row", err)
	}

	return &Scanner{
		r:      cr,
		opt:    opt,
		header: normalizeHeader(raw),
		legacy: legacy,
	}, nil
}

// Header returns the column names
func (s *Scanner) Header() []string {
	return s.header
}

// Next advances to the next non-empty row
func (s *Scanner) Next() bool {
	if s.err != nil || s.stopped {
		return false
	}
	if s.opt.MaxRows > 0 && s.rows >= s.opt.MaxRows {
		s.stopped = true
		return false
	}

	for {
		rec, err := s.r.Read()
		if err != nil {
			if !stderrors.Is(err, io.EOF) {
				s.err = errors.Parse(fmt.Sprintf("Malformed row after data row %d", s.rows), err)
				var pe *csv.ParseError
				if stderrors.As(err, &pe) {
					s.err = errors.Parse(fmt.Sprintf("Malformed row at line %d", pe.Line), err)
				}
			}
			s.stopped = true
			return false
		}
		if len(s.header) > 1 && blankRecord(rec) {
			continue
		}

		row := make(models.Row, len(s.header))
		copy(row, rec)
		if len(rec) != len(s.header) {
			s.ragged++
		}
		s.row = row
		s.rows++
		return true
	}
}

// Row returns the current row, aligned with the header
func (s *Scanner) Row() models.Row {
	return s.row
}

// Err returns the first error encountered while scanning
func (s *Scanner) Err() error {
	return s.err
}

// RaggedRows returns how many rows had a field count different from the header
func (s *Scanner) RaggedRows() int {
	return s.ragged
}

// Legacy reports whether the input was decoded from Windows-1252
func (s *Scanner) Legacy() bool {
	return s.legacy
}

// Read materializes a dataset from r. A header with no rows is returned as
// an empty dataset without error.
func Read(r io.Reader, opt Options) (*models.Dataset, error) {
	sc, err := NewScanner(r, opt)
	if err != nil {
		return nil, err
	}

	ds := &models.Dataset{Header: sc.Header()}
	for sc.Next() {
		ds.Rows = append(ds.Rows, sc.Row())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	ds.RaggedRows = sc.RaggedRows()
	return ds, nil
}

// ReadString is a convenience wrapper around Read for in-memory text
func ReadString(s string) (*models.Dataset, error) {
	return Read(strings.NewReader(s), DefaultOptions())
}

func blankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// normalizeHeader trims names, fills blanks and disambiguates duplicates.
func normalizeHeader(raw []string) []string {
	header := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		candidate := name
		for n := 1; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s.%d", name, n)
		}
		used[candidate] = true
		header[i] = candidate
	}
	return header
}
