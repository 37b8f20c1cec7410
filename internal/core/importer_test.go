package core_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/leadpipe/internal/core"
)

var op = core.Operator("op-1")

func TestImport_CSV(t *testing.T) {
	store := newCountingStore()
	events := &recordingPublisher{}
	im := core.NewImporter(store, core.WithImportEvents(events))

	input := "Nome,Email,Telefone,Status,Empresa\n" +
		"Ana,a@x.com,11987654321,Proposta,Acme\n" +
		",b@x.com,,,\n" +
		"Caio,c@x.com,,pending,\n" +
		"Duda,d@x.com,,,\n"

	res, err := im.Import(context.Background(), op, "leads.CSV", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, core.FormatCSV, res.Format)
	assert.Equal(t, 4, res.TotalRows)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, []core.RejectedRow{
		{Line: 3, Reason: "name is required"},
		{Line: 4, Reason: `unknown stage "pending"`},
	}, res.Rejected)

	inserts, _, _ := store.counts()
	assert.Equal(t, 1, inserts, "the whole batch must be written with one call")

	leads, err := store.QueryLeads(context.Background(), core.LeadQuery{OwnerID: "op-1", OrderBy: core.OrderCreatedAsc})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	byName := map[string]core.Lead{leads[0].Name: leads[0], leads[1].Name: leads[1]}
	assert.Equal(t, core.StageProposal, byName["Ana"].Stage)
	assert.Equal(t, "(11) 98765-4321", byName["Ana"].Phone)
	require.NotNil(t, byName["Ana"].Company)
	assert.Equal(t, "Acme", *byName["Ana"].Company)
	assert.Equal(t, core.StageNew, byName["Duda"].Stage)
	assert.Equal(t, "op-1", byName["Duda"].OwnerID)

	evs := events.all()
	require.Len(t, evs, 1)
	assert.Equal(t, core.EventImportCompleted, evs[0].Type)
	assert.Equal(t, 2, evs[0].Count)
}

func TestImport_HeaderOnlyIsEmptyBatch(t *testing.T) {
	store := new(mockStore)
	im := core.NewImporter(store)

	_, err := im.Import(context.Background(), op, "leads.csv", strings.NewReader("name,email\n"))
	assert.ErrorIs(t, err, core.ErrEmptyBatch)
	store.AssertNotCalled(t, "InsertLeads", mock.Anything, mock.Anything)
}

func TestImport_AllRowsRejectedIsEmptyBatch(t *testing.T) {
	store := newCountingStore()
	im := core.NewImporter(store)

	_, err := im.Import(context.Background(), op, "leads.csv", strings.NewReader("Nome,Email\n,a@x.com\nBia,\n"))
	assert.ErrorIs(t, err, core.ErrEmptyBatch)

	inserts, _, _ := store.counts()
	assert.Equal(t, 0, inserts)
	assert.Equal(t, 0, store.Len())
}

func TestImport_UnsupportedFormatBeforeDecode(t *testing.T) {
	store := new(mockStore)
	im := core.NewImporter(store)

	r := &trackingReader{}
	_, err := im.Import(context.Background(), op, "leads.txt", r)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)
	assert.False(t, r.read, "an unsupported file must not be read")
	store.AssertNotCalled(t, "InsertLeads", mock.Anything, mock.Anything)
}

func TestImport_NotAuthenticated(t *testing.T) {
	store := new(mockStore)
	im := core.NewImporter(store)

	r := &trackingReader{}
	_, err := im.Import(context.Background(), core.OperatorContext{}, "leads.csv", r)
	assert.ErrorIs(t, err, core.ErrNotAuthenticated)
	assert.False(t, r.read)
}

func TestImport_DecodeFailure(t *testing.T) {
	store := new(mockStore)
	im := core.NewImporter(store)

	_, err := im.Import(context.Background(), op, "leads.xlsx", strings.NewReader("not a workbook"))
	var de *core.DecodeError
	require.ErrorAs(t, err, &de)
	assert.ErrorIs(t, err, core.ErrDecodeFailure)
	store.AssertNotCalled(t, "InsertLeads", mock.Anything, mock.Anything)
}

func TestImport_StoreFailure(t *testing.T) {
	store := new(mockStore)
	store.On("InsertLeads", mock.Anything, mock.Anything).Return(nil, errors.New("tx aborted")).Once()
	im := core.NewImporter(store)

	_, err := im.Import(context.Background(), op, "leads.csv", strings.NewReader("name,email\nAna,a@x.com\n"))
	var se *core.StoreError
	require.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, core.ErrStoreFailure)
	store.AssertNumberOfCalls(t, "InsertLeads", 1)
}

func TestImport_InsertNotCancelledWithRequest(t *testing.T) {
	store := new(mockStore)
	var insertCtxErr error
	store.On("InsertLeads", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			insertCtxErr = args.Get(0).(context.Context).Err()
		}).
		Return([]core.Lead{{ID: "l-1"}}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	im := core.NewImporter(store)
	// Cancel as soon as the file has been read but before the insert.
	r := &cancelAtEOF{Reader: strings.NewReader("name,email\nAna,a@x.com\n"), cancel: cancel}

	res, err := im.Import(ctx, op, "leads.csv", r)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.NoError(t, insertCtxErr, "the insert must not observe the request's cancellation")
}

func TestImport_XLSXRoundTrip(t *testing.T) {
	source := newCountingStore()
	ctx := context.Background()
	_, err := source.InsertLeads(ctx, []core.LeadCandidate{
		{Name: "Ana", Email: "a@x.com", Phone: "(11) 98765-4321", Company: strp("Acme"), Stage: "won", OwnerID: "op-1"},
		{Name: "Bia", Email: "b@x.com", Stage: "new", Notes: strp("follow up"), OwnerID: "op-1"},
	})
	require.NoError(t, err)
	leads, err := source.QueryLeads(ctx, core.LeadQuery{OwnerID: "op-1"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, core.ExportXLSXTo(&buf, leads))

	target := newCountingStore()
	res, err := core.NewImporter(target).Import(ctx, op, "leads.xlsx", &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)

	got, err := target.QueryLeads(ctx, core.LeadQuery{OwnerID: "op-1"})
	require.NoError(t, err)
	assert.ElementsMatch(t, summarize(leads), summarize(got))
}

func TestImport_CSVRoundTrip(t *testing.T) {
	ctx := context.Background()
	leads := []core.Lead{
		{Name: "Ana, Jr.", Email: "a@x.com", Phone: "(11) 98765-4321", Company: strp(`The "Best" Co`), Stage: core.StageQualified, Notes: strp("two\nlines")},
		{Name: "Bia", Email: "b@x.com", Stage: core.StageLost},
	}
	var buf bytes.Buffer
	require.NoError(t, core.ExportCSVTo(&buf, leads))

	target := newCountingStore()
	_, err := core.NewImporter(target).Import(ctx, op, "export.csv", &buf)
	require.NoError(t, err)

	got, err := target.QueryLeads(ctx, core.LeadQuery{OwnerID: "op-1"})
	require.NoError(t, err)
	assert.ElementsMatch(t, summarize(leads), summarize(got))
}

func TestImport_XLSFileIsDecodedAsSpreadsheet(t *testing.T) {
	// A workbook saved with an .xls name but xlsx content is not BIFF; the
	// legacy reader must report a decode failure instead of panicking.
	f := excelize.NewFile()
	defer f.Close()
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := core.NewImporter(newCountingStore()).Import(context.Background(), op, "leads.xls", &buf)
	assert.ErrorIs(t, err, core.ErrDecodeFailure)
}

type leadSummary struct {
	Name, Email, Phone, Company, Stage, Notes string
}

func summarize(leads []core.Lead) []leadSummary {
	out := make([]leadSummary, len(leads))
	for i, l := range leads {
		out[i] = leadSummary{Name: l.Name, Email: l.Email, Phone: l.Phone, Company: deref(l.Company), Stage: string(l.Stage), Notes: deref(l.Notes)}
	}
	return out
}

func strp(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type trackingReader struct{ read bool }

func (r *trackingReader) Read(p []byte) (int, error) {
	r.read = true
	return 0, errors.New("unexpected read")
}

type cancelAtEOF struct {
	*strings.Reader
	cancel context.CancelFunc
}

func (r *cancelAtEOF) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if err != nil {
		r.cancel()
	}
	return n, err
}
