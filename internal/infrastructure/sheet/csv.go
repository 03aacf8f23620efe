package sheet

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// CSVReader reads CSV exports. UTF-8 (with or without BOM) and GB18030 are accepted.
type CSVReader struct {
	delimiter  rune
	lazyQuotes bool
	headers    []string
	line       int
	reader     *csv.Reader
	closer     io.Closer
}

// CSVOption is a functional option for CSVReader configuration
type CSVOption func(*CSVReader)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) CSVOption {
	return func(p *CSVReader) {
		p.delimiter = d
	}
}

// WithLazyQuotes toggles lazy quote handling (default on)
func WithLazyQuotes(lazy bool) CSVOption {
	return func(p *CSVReader) {
		p.lazyQuotes = lazy
	}
}

// OpenCSV opens a CSV file
func OpenCSV(path string, opts ...CSVOption) (*CSVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	r, err := NewCSVReader(f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// NewCSVReader reads the header row of r and returns a reader positioned at the first data row
func NewCSVReader(r io.Reader, opts ...CSVOption) (*CSVReader, error) {
	p := &CSVReader{delimiter: ',', lazyQuotes: true}
	for _, opt := range opts {
		opt(p)
	}

	buf := bufio.NewReader(r)
	head, err := buf.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(head) == 0 {
		return nil, ErrEmptyFile
	}

	var src io.Reader = buf
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = buf.Discard(3)
	} else if !utf8.Valid(completeRunes(head)) {
		src = transform.NewReader(buf, simplifiedchinese.GB18030.NewDecoder())
	}

	p.reader = csv.NewReader(src)
	p.reader.Comma = p.delimiter
	p.reader.LazyQuotes = p.lazyQuotes
	p.reader.FieldsPerRecord = -1

	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	p.headers = normalizeHeaders(record)
	p.line = 1
	return p, nil
}

// completeRunes drops a multi-byte sequence cut off at the end of a peeked buffer
func completeRunes(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			break
		}
	}
	return b
}

// Headers returns the parsed header names
func (p *CSVReader) Headers() []string {
	return p.headers
}

// Next reads the next row
func (p *CSVReader) Next() (*Row, error) {
	record, err := p.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	p.line++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.line, err)
	}
	return buildRow(p.line, p.headers, record), nil
}

// Close releases the underlying file, if any
func (p *CSVReader) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}
