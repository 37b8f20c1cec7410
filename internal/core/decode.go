package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// Format is an accepted import file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// DetectFormat maps a file name's extension (case-insensitive) to a Format.
func DetectFormat(fileName string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	switch Format(ext) {
	case FormatCSV, FormatXLSX, FormatXLS:
		return Format(ext), nil
	}
	if ext == "" {
		return "", fmt.Errorf("%w: %q has no extension, use csv, xlsx or xls", ErrUnsupportedFormat, fileName)
	}
	return "", fmt.Errorf("%w: .%s, use csv, xlsx or xls", ErrUnsupportedFormat, ext)
}

// rowFunc receives each decoded data row with its 1-based line in the source.
type rowFunc func(line int, row RawRow) error

// decodeRows decodes r as format and calls fn for every non-blank data row.
// Errors returned by fn stop decoding and are returned as is; decoder errors
// are wrapped in a DecodeError.
func decodeRows(format Format, r io.Reader, maxBytes int64, fn rowFunc) error {
	switch format {
	case FormatCSV:
		return decodeCSV(r, maxBytes, fn)
	case FormatXLSX:
		return decodeXLSX(r, maxBytes, fn)
	case FormatXLS:
		return decodeXLS(r, maxBytes, fn)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// callbackError marks an error that came from the row callback rather than
// the decoder, so it is not reported as a decode failure.
type callbackError struct{ err error }

func (e callbackError) Error() string { return e.err.Error() }

func emit(fn rowFunc, line int, row RawRow) error {
	if err := fn(line, row); err != nil {
		return callbackError{err}
	}
	return nil
}

func decodeErr(format Format, err error) error {
	var cb callbackError
	if errors.As(err, &cb) {
		return cb.err
	}
	if errors.Is(err, ErrFileTooLarge) {
		return err
	}
	return &DecodeError{Format: string(format), Err: err}
}

// decodeCSV streams r record by record. The first record is the header.
func decodeCSV(r io.Reader, maxBytes int64, fn rowFunc) error {
	cr := csv.NewReader(textSource(r, maxBytes))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	var header rowHeader
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return decodeErr(FormatCSV, err)
		}
		line, _ := cr.FieldPos(0)
		if header == nil {
			if isBlankRow(rec) {
				continue
			}
			header = newRowHeader(rec)
			continue
		}
		row, ok := header.row(rec)
		if !ok {
			continue
		}
		if err := emit(fn, line, row); err != nil {
			return decodeErr(FormatCSV, err)
		}
	}
	if header == nil {
		return &DecodeError{Format: string(FormatCSV), Err: errors.New("missing header row")}
	}
	return nil
}

// decodeXLSX reads the whole workbook and walks its first sheet.
func decodeXLSX(r io.Reader, maxBytes int64, fn rowFunc) error {
	data, err := readAllLimited(r, maxBytes)
	if err != nil {
		return err
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return decodeErr(FormatXLSX, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return decodeErr(FormatXLSX, errors.New("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return decodeErr(FormatXLSX, err)
	}
	if err := walkSheet(rows, fn); err != nil {
		return decodeErr(FormatXLSX, err)
	}
	return nil
}

// decodeXLS reads a legacy BIFF workbook and walks its first sheet.
func decodeXLS(r io.Reader, maxBytes int64, fn rowFunc) (err error) {
	data, err := readAllLimited(r, maxBytes)
	if err != nil {
		return err
	}

	// The BIFF reader panics on some truncated files.
	defer func() {
		if p := recover(); p != nil {
			err = decodeErr(FormatXLS, fmt.Errorf("corrupt workbook: %v", p))
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return decodeErr(FormatXLS, err)
	}
	if wb.NumSheets() == 0 {
		return decodeErr(FormatXLS, errors.New("workbook has no sheets"))
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return decodeErr(FormatXLS, errors.New("first sheet is unreadable"))
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol()+1)
		for c := 0; c <= row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	if err := walkSheet(rows, fn); err != nil {
		return decodeErr(FormatXLS, err)
	}
	return nil
}

// walkSheet treats the first non-blank row as the header.
func walkSheet(rows [][]string, fn rowFunc) error {
	var header rowHeader
	for i, cells := range rows {
		if header == nil {
			if !isBlankRow(cells) {
				header = newRowHeader(cells)
			}
			continue
		}
		row, ok := header.row(cells)
		if !ok {
			continue
		}
		if err := emit(fn, i+1, row); err != nil {
			return err
		}
	}
	if header == nil {
		return errors.New("sheet is empty")
	}
	return nil
}

// rowHeader holds cleaned header cells; "" marks a column to ignore.
type rowHeader []string

func newRowHeader(cells []string) rowHeader {
	h := make(rowHeader, len(cells))
	seen := make(map[string]bool, len(cells))
	for i, c := range cells {
		key := cleanCell(c)
		if key == "" || seen[key] {
			// Only the first of duplicate headers is mapped.
			continue
		}
		seen[key] = true
		h[i] = key
	}
	return h
}

// row maps cells onto the header. It reports false for a blank row.
func (h rowHeader) row(cells []string) (RawRow, bool) {
	if isBlankRow(cells) {
		return nil, false
	}
	row := make(RawRow, len(h))
	for i, key := range h {
		if key == "" || i >= len(cells) {
			continue
		}
		row[key] = cells[i]
	}
	return row, true
}

// cleanCell strips whitespace, Excel's ="..." text guard, and surrounding quotes.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return strings.TrimSpace(strings.Trim(s, `"'`))
}

func isBlankRow(cells []string) bool {
	for _, v := range cells {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
