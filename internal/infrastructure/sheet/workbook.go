package sheet

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WorkbookReader streams the first worksheet of an Excel workbook
type WorkbookReader struct {
	file    *excelize.File
	rows    *excelize.Rows
	headers []string
	line    int
}

// OpenWorkbook opens an Excel file
func OpenWorkbook(path string) (*WorkbookReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return newWorkbookReader(f)
}

// NewWorkbookReader reads a workbook from r
func NewWorkbookReader(r io.Reader) (*WorkbookReader, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return newWorkbookReader(f)
}

func newWorkbookReader(f *excelize.File) (*WorkbookReader, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		_ = f.Close()
		return nil, ErrNoSheet
	}
	rows, err := f.Rows(sheets[0])
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	w := &WorkbookReader{file: f, rows: rows}
	if !rows.Next() {
		_ = w.Close()
		if err := rows.Error(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, ErrEmptyFile
	}
	record, err := rows.Columns()
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("read header: %w", err)
	}
	w.headers = normalizeHeaders(record)
	if len(w.headers) == 0 {
		_ = w.Close()
		return nil, ErrMissingHeader
	}
	w.line = 1
	return w, nil
}

// Headers returns the header row
func (w *WorkbookReader) Headers() []string {
	return w.headers
}

// Next reads the next row
func (w *WorkbookReader) Next() (*Row, error) {
	if !w.rows.Next() {
		if err := w.rows.Error(); err != nil {
			return nil, fmt.Errorf("error reading row %d: %w", w.line+1, err)
		}
		return nil, io.EOF
	}
	w.line++
	record, err := w.rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", w.line, err)
	}
	return buildRow(w.line, w.headers, record), nil
}

// Close releases the workbook
func (w *WorkbookReader) Close() error {
	if w.rows != nil {
		_ = w.rows.Close()
	}
	return w.file.Close()
}
