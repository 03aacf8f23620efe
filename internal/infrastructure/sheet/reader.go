// Package sheet reads tabular exports (Excel workbooks and CSV files) row by
// row, keyed by header name.
package sheet

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Row is one data row with its values keyed by header
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the value for a column by header name
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// GetOrDefault returns the value for a column, or def if missing or empty
func (r *Row) GetOrDefault(header, def string) string {
	if val, ok := r.Data[header]; ok && val != "" {
		return val
	}
	return def
}

// IsEmpty returns true if the row has no non-empty values
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// Reader streams rows of a file. Next returns io.EOF after the last row.
type Reader interface {
	Headers() []string
	Next() (*Row, error)
	Close() error
}

// Check reports why filename cannot be imported, or nil. Only OOXML
// workbooks are readable, so BIFF .xls files get their own error.
func Check(filename string) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm", ".csv":
		return nil
	case ".xls":
		return ErrLegacyWorkbook
	}
	return ErrUnsupportedFormat
}

// Open opens path with the reader matching its extension
func Open(path string) (Reader, error) {
	if err := Check(path); err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return OpenCSV(path)
	}
	return OpenWorkbook(path)
}

// ReadBatch reads up to n non-empty rows. It returns io.EOF only when no row was read.
func ReadBatch(r Reader, n int) ([]*Row, error) {
	rows := make([]*Row, 0, n)
	for len(rows) < n {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, io.EOF
	}
	return rows, nil
}

func buildRow(line int, headers, record []string) *Row {
	row := &Row{LineNumber: line, Data: make(map[string]string, len(headers))}
	for i, h := range headers {
		if h == "" {
			continue
		}
		if i < len(record) {
			row.Data[h] = trimSpaces(record[i])
		} else {
			row.Data[h] = ""
		}
	}
	return row
}

func normalizeHeaders(record []string) []string {
	headers := make([]string, len(record))
	for i, h := range record {
		headers[i] = trimSpaces(strings.TrimPrefix(h, "\ufeff"))
	}
	return headers
}

// trimSpaces trims whitespace, including the tabs export tools prepend to long numbers
func trimSpaces(s string) string {
	start, end := 0, len(s)
	for start < end {
		r, size := utf8.DecodeRuneInString(s[start:])
		if !isWhitespace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(s[:end])
		if !isWhitespace(r) {
			break
		}
		end -= size
	}
	return s[start:end]
}

func isWhitespace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', '\u3000':
		return true
	}
	return false
}
