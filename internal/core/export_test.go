package core

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func exportFixture() []Lead {
	created := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	return []Lead{
		{
			ID: "l-1", Name: "Ana", Email: "a@x.com", Phone: "(11) 98765-4321",
			Company: strp("Acme, Inc."), Notes: strp(`said "call me"`), Source: strp("site"),
			Stage: StageQualified, CreatedAt: created, UpdatedAt: created.Add(time.Hour), OwnerID: "op-1",
		},
		{
			ID: "l-2", Name: "Bia", Email: "b@x.com",
			Notes: strp("line one\nline two"),
			Stage: StageNew, CreatedAt: created, UpdatedAt: created, OwnerID: "op-1",
		},
	}
}

func TestExportCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSVTo(&buf, exportFixture()))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "name,email,phone,company,stage,source,notes,created_at\n"))
	assert.Contains(t, out, `"Acme, Inc."`, "delimiter inside a value must be quoted")
	assert.Contains(t, out, `"said ""call me"""`, "quotes must be doubled")

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	want := [][]string{
		{"name", "email", "phone", "company", "stage", "source", "notes", "created_at"},
		{"Ana", "a@x.com", "(11) 98765-4321", "Acme, Inc.", "qualified", "site", `said "call me"`, "2024-03-15T14:30:00Z"},
		{"Bia", "b@x.com", "", "", "new", "", "line one\nline two", "2024-03-15T14:30:00Z"},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestExportCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSVTo(&buf, nil))
	assert.Equal(t, "name,email,phone,company,stage,source,notes,created_at\n", buf.String())
}

func TestExportXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportXLSXTo(&buf, exportFixture()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Leads"}, f.GetSheetList())
	rows, err := f.GetRows("Leads")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, sheetColumns, rows[0])
	assert.Equal(t, "l-1", rows[1][0])
	assert.Equal(t, "Acme, Inc.", rows[1][4])
	assert.Equal(t, "qualified", rows[1][6])
	assert.Equal(t, "2024-03-15T15:30:00Z", rows[1][9])
	assert.Equal(t, "op-1", rows[1][10])
}

func TestExport_UnknownFormat(t *testing.T) {
	err := Export(&bytes.Buffer{}, ExportFormat("pdf"), nil)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = ParseExportFormat("pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	f, err := ParseExportFormat("")
	require.NoError(t, err)
	assert.Equal(t, ExportCSV, f)
}

func TestExportFileName(t *testing.T) {
	now := time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "leads_2024-03-05.csv", ExportFileName(ExportCSV, now))
	assert.Equal(t, "leads_2024-03-05.xlsx", ExportFileName(ExportXLSX, now))
}
