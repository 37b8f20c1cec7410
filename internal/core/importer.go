package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/JonMunkholm/leadpipe/internal/logging"
)

// RejectedRow reports one source row that did not become a lead.
type RejectedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a successful import.
type ImportResult struct {
	FileName  string        `json:"file_name"`
	Format    Format        `json:"format"`
	TotalRows int           `json:"total_rows"`
	Inserted  int           `json:"inserted"`
	Rejected  []RejectedRow `json:"rejected"`
	Duration  time.Duration `json:"duration"`
	Leads     []Lead        `json:"-"`
}

// ImportObserver is told about finished imports. Metrics implement it.
type ImportObserver interface {
	ImportFinished(format Format, result *ImportResult, err error)
}

// Importer turns an uploaded file into one batch insert.
type Importer struct {
	store       Store
	events      EventPublisher
	observer    ImportObserver
	maxFileSize int64
	now         func() time.Time
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithMaxFileSize bounds how many bytes an upload may have. 0 disables the bound.
func WithMaxFileSize(n int64) ImporterOption {
	return func(im *Importer) { im.maxFileSize = n }
}

// WithImportEvents publishes an import.completed event after each insert.
func WithImportEvents(p EventPublisher) ImporterOption {
	return func(im *Importer) { im.events = p }
}

// WithImportObserver reports every import outcome to o.
func WithImportObserver(o ImportObserver) ImporterOption {
	return func(im *Importer) { im.observer = o }
}

// NewImporter creates an Importer writing to store.
func NewImporter(store Store, opts ...ImporterOption) *Importer {
	im := &Importer{
		store:  store,
		events: NopPublisher{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import decodes r according to fileName's extension, normalizes every row
// and inserts the accepted candidates with a single InsertLeads call.
//
// Failures leave the store untouched: an unauthenticated operator or an
// unsupported extension fail before anything is read, and a file without a
// single acceptable row fails with ErrEmptyBatch without an insert. Once the
// insert is issued it runs to completion even if ctx is cancelled.
func (im *Importer) Import(ctx context.Context, op OperatorContext, fileName string, r io.Reader) (result *ImportResult, err error) {
	start := im.now()
	var format Format
	if im.observer != nil {
		defer func() { im.observer.ImportFinished(format, result, err) }()
	}

	if err := op.require(); err != nil {
		return nil, err
	}
	format, err = DetectFormat(fileName)
	if err != nil {
		return nil, err
	}

	logger := logging.WithFields(ctx, "file", fileName, "format", format)
	logger.Info("import started")

	res := &ImportResult{FileName: fileName, Format: format}
	var batch []LeadCandidate

	err = decodeRows(format, r, im.maxFileSize, func(line int, row RawRow) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.TotalRows++
		c, ok := Normalize(row, op)
		if !ok {
			res.Rejected = append(res.Rejected, RejectedRow{Line: line, Reason: rejectReason(row)})
			return nil
		}
		stage, err := ParseStage(c.Stage)
		if err != nil {
			res.Rejected = append(res.Rejected, RejectedRow{Line: line, Reason: fmt.Sprintf("unknown stage %q", c.Stage)})
			return nil
		}
		c.Stage = string(stage)
		c.Phone = FormatPhone(c.Phone)
		batch = append(batch, c)
		return nil
	})
	if err != nil {
		logger.Warn("import decode failed", slog.Any("error", err))
		return nil, err
	}

	if len(batch) == 0 {
		logger.Info("import has no valid rows", "rows", res.TotalRows, "rejected", len(res.Rejected))
		return nil, fmt.Errorf("%w in %s (%d rows read)", ErrEmptyBatch, fileName, res.TotalRows)
	}

	leads, err := im.store.InsertLeads(context.WithoutCancel(ctx), batch)
	if err != nil {
		logger.Error("import insert failed", "rows", len(batch), slog.Any("error", err))
		return nil, storeErr("insert leads", err)
	}

	res.Inserted = len(leads)
	res.Leads = leads
	res.Duration = im.now().Sub(start)

	logger.Info("import completed",
		"rows", res.TotalRows,
		"inserted", res.Inserted,
		"rejected", len(res.Rejected),
		"duration", res.Duration,
	)

	ev := Event{Type: EventImportCompleted, OwnerID: op.OwnerID, Count: res.Inserted, At: im.now()}
	if err := im.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		logger.Warn("publish import event failed", slog.Any("error", err))
	}
	return res, nil
}
