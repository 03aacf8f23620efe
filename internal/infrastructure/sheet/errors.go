package sheet

import (
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"
)

var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrMissingHeader     = errors.New("file missing header row")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrLegacyWorkbook    = errors.New("legacy .xls workbooks are not supported, save the file as .xlsx")
	ErrNoSheet           = errors.New("workbook has no worksheet")
)

// RowError rejects one row without stopping the import. Row is the 1-based
// line in the file, so the header is row 1.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e RowError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return fmt.Sprintf("row %d, column '%s': %s", e.Row, e.Column, e.Message)
}

func (e RowError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("row", e.Row)
	if e.Column != "" {
		enc.AddString("column", e.Column)
	}
	enc.AddString("message", e.Message)
	if e.Value != "" {
		enc.AddString("value", e.Value)
	}
	return nil
}

const defaultSampleSize = 100

// RowErrors counts every rejected row of a file and keeps the first few.
type RowErrors struct {
	sample []RowError
	limit  int
	total  int
}

// NewRowErrors keeps at most limit rows; zero or less means 100.
func NewRowErrors(limit int) *RowErrors {
	if limit <= 0 {
		limit = defaultSampleSize
	}
	return &RowErrors{limit: limit}
}

func (r *RowErrors) Add(e RowError) {
	r.total++
	if len(r.sample) < r.limit {
		r.sample = append(r.sample, e)
	}
}

// Total counts every added row, kept or not.
func (r *RowErrors) Total() int { return r.total }

// Sample returns the kept rows in file order.
func (r *RowErrors) Sample() []RowError { return r.sample }

// Truncated reports whether rows were dropped from the sample.
func (r *RowErrors) Truncated() bool { return r.total > len(r.sample) }

// Err joins the sampled rows, or returns nil when nothing was rejected.
func (r *RowErrors) Err() error {
	if r == nil || r.total == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.sample)+1)
	for _, e := range r.sample {
		errs = append(errs, e)
	}
	if r.Truncated() {
		errs = append(errs, fmt.Errorf("%d more row(s) rejected", r.total-len(r.sample)))
	}
	return errors.Join(errs...)
}

// MarshalLogArray lets the sample be logged with zap.Array.
func (r *RowErrors) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, e := range r.sample {
		if err := enc.AppendObject(e); err != nil {
			return err
		}
	}
	return nil
}
