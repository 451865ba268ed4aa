// Package sheets maps spreadsheet uploads (XLSX or CSV) onto catalog and
// contact records, and exports the catalog back to XLSX.
package sheets

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoRows is returned for a file with a header row and nothing else.
var ErrNoRows = errors.New("spreadsheet has no data rows")

var zipMagic = []byte("PK\x03\x04")

// Row is one data row keyed by its header cell.
type Row map[string]string

// First returns the first non-empty value among keys.
func (r Row) First(keys ...string) string {
	for _, k := range keys {
		if v := r[k]; v != "" {
			return v
		}
	}
	return ""
}

// ReadRows reads the first sheet of an XLSX workbook, or a CSV file, into
// header-keyed rows. The format is chosen by content, then by file name.
func ReadRows(data []byte, filename string) ([]Row, error) {
	var (
		records [][]string
		err     error
	)
	if bytes.HasPrefix(data, zipMagic) || strings.EqualFold(filepath.Ext(filename), ".xlsx") {
		records, err = readXLSX(data)
	} else {
		records, err = readCSV(data)
	}
	if err != nil {
		return nil, err
	}
	return toRows(records)
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoRows
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// toRows uses the first record as the header. Blank rows are skipped; short
// rows leave the missing columns empty.
func toRows(records [][]string) ([]Row, error) {
	if len(records) < 2 {
		return nil, ErrNoRows
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := Row{}
		blank := true
		for i, cell := range rec {
			if i >= len(header) || header[i] == "" {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell != "" {
				blank = false
			}
			row[header[i]] = cell
		}
		if !blank {
			rows = append(rows, row)
		}
	}
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	return rows, nil
}
