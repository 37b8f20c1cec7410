package core

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportFormat is a downloadable lead file format.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportXLSX ExportFormat = "xlsx"
)

// ParseExportFormat accepts "csv" or "xlsx"; "" means csv.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch s {
	case "", "csv":
		return ExportCSV, nil
	case "xlsx":
		return ExportXLSX, nil
	}
	return "", fmt.Errorf("%w: export as %q, use csv or xlsx", ErrUnsupportedFormat, s)
}

// ContentType is the MIME type of the format.
func (f ExportFormat) ContentType() string {
	if f == ExportXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// csvColumns is the fixed delimited export column order.
var csvColumns = []string{"name", "email", "phone", "company", "stage", "source", "notes", "created_at"}

// sheetColumns are the lead's own field names, used as the spreadsheet header.
var sheetColumns = []string{"id", "name", "email", "phone", "company", "notes", "stage", "source", "created_at", "updated_at", "owner_id"}

const exportSheet = "Leads"

// Export writes leads to w in format.
func Export(w io.Writer, format ExportFormat, leads []Lead) error {
	switch format {
	case ExportCSV:
		return ExportCSVTo(w, leads)
	case ExportXLSX:
		return ExportXLSXTo(w, leads)
	}
	return fmt.Errorf("%w: export as %q", ErrUnsupportedFormat, format)
}

// ExportCSVTo writes leads as delimited text. Absent optional values are
// empty fields; quoting follows RFC 4180.
func ExportCSVTo(w io.Writer, leads []Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	rec := make([]string, len(csvColumns))
	for _, l := range leads {
		rec[0] = l.Name
		rec[1] = l.Email
		rec[2] = l.Phone
		rec[3] = deref(l.Company)
		rec[4] = string(l.Stage)
		rec[5] = deref(l.Source)
		rec[6] = deref(l.Notes)
		rec[7] = formatTime(l.CreatedAt)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportXLSXTo writes leads as a one-sheet workbook.
func ExportXLSXTo(w io.Writer, leads []Lead) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return fmt.Errorf("open sheet: %w", err)
	}

	header := make([]any, len(sheetColumns))
	for i, c := range sheetColumns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, l := range leads {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			l.ID, l.Name, l.Email, l.Phone, deref(l.Company), deref(l.Notes),
			string(l.Stage), deref(l.Source), formatTime(l.CreatedAt), formatTime(l.UpdatedAt), l.OwnerID,
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	_, err = f.WriteTo(w)
	return err
}

// ExportFileName is the download name, stamped with now's date.
func ExportFileName(format ExportFormat, now time.Time) string {
	return fmt.Sprintf("leads_%s.%s", now.Format("2006-01-02"), format)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
