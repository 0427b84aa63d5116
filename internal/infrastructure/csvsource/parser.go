package csvsource

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/procure/reconciler/internal/application/ingest"
)

var (
	// ErrEmptyFile indicates the file has no content
	ErrEmptyFile = errors.New("file is empty")
	// ErrInvalidEncoding indicates the file is not valid UTF-8
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
	// ErrMissingHeader indicates the file has no header row
	ErrMissingHeader = errors.New("missing header row")
)

// Parse reads one CSV stream into a tabular document. It strips a UTF-8 BOM,
// rejects non-UTF-8 content, trims whitespace around cells and skips fully
// empty rows. Rows shorter than the header are padded with empty cells.
func Parse(name string, r io.Reader) (ingest.Document, error) {
	bufReader := bufio.NewReader(r)

	head, err := bufReader.Peek(3)
	if err != nil && err != io.EOF {
		return ingest.Document{}, fmt.Errorf("failed to read file: %w", err)
	}
	if len(head) == 0 {
		return ingest.Document{}, ErrEmptyFile
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = bufReader.Discard(3)
	}

	if err := validateUTF8(bufReader); err != nil {
		return ingest.Document{}, err
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return ingest.Document{}, ErrMissingHeader
	}
	if err != nil {
		return ingest.Document{}, fmt.Errorf("failed to read header: %w", err)
	}

	doc := ingest.Document{Name: name, Columns: make([]string, len(header))}
	for i, h := range header {
		doc.Columns[i] = strings.TrimSpace(h)
	}

	for lineNumber := 2; ; lineNumber++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ingest.Document{}, fmt.Errorf("error reading row %d: %w", lineNumber, err)
		}

		row := make(ingest.Row, len(doc.Columns))
		empty := true
		for i, column := range doc.Columns {
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			if value != "" {
				empty = false
			}
			row[column] = value
		}
		if !empty {
			doc.Rows = append(doc.Rows, row)
		}
	}

	return doc, nil
}

func validateUTF8(r *bufio.Reader) error {
	const checkSize = 4096
	content, err := r.Peek(checkSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}
	if len(content) == checkSize {
		// The window may end mid-rune; cut back to the last complete rune so a
		// straddling multibyte character is not mistaken for bad encoding.
		for i := 0; i < utf8.UTFMax && len(content) > 0; i++ {
			r, size := utf8.DecodeLastRune(content)
			if r != utf8.RuneError || size > 1 {
				break
			}
			content = content[:len(content)-1]
		}
	}
	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}
	return nil
}
