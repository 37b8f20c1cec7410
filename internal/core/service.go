package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/leadpipe/internal/logging"
)

// DefaultImportTimeout bounds the decode phase of an import.
const DefaultImportTimeout = 2 * time.Minute

// Service is the entry point used by the web handlers and the CLI. Every
// method takes the operator explicitly and scopes its store calls by it.
type Service struct {
	store    Store
	importer *Importer
	limiter  *ImportLimiter
	events   EventPublisher
	observer TransitionObserver

	importTimeout time.Duration
	now           func() time.Time

	mu     sync.Mutex
	boards map[string]*Board
}

// ServiceConfig holds the tunables of a Service.
type ServiceConfig struct {
	MaxFileSize   int64
	MaxConcurrent int
	MaxWait       time.Duration
	ImportTimeout time.Duration
}

// Observer receives import and transition outcomes.
type Observer interface {
	ImportObserver
	TransitionObserver
}

// NewService wires a Service around store. events and observer may be nil.
func NewService(store Store, cfg ServiceConfig, events EventPublisher, observer Observer) *Service {
	if events == nil {
		events = NopPublisher{}
	}
	opts := []ImporterOption{WithMaxFileSize(cfg.MaxFileSize), WithImportEvents(events)}
	var tobs TransitionObserver
	if observer != nil {
		opts = append(opts, WithImportObserver(observer))
		tobs = observer
	}
	timeout := cfg.ImportTimeout
	if timeout <= 0 {
		timeout = DefaultImportTimeout
	}
	return &Service{
		store:         store,
		importer:      NewImporter(store, opts...),
		limiter:       NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		events:        events,
		observer:      tobs,
		importTimeout: timeout,
		now:           time.Now,
		boards:        make(map[string]*Board),
	}
}

// Limiter exposes the import limiter for health reporting and shutdown.
func (s *Service) Limiter() *ImportLimiter { return s.limiter }

// ListLeads returns op's leads, newest first, narrowed by f.
func (s *Service) ListLeads(ctx context.Context, op OperatorContext, f LeadFilter) ([]Lead, error) {
	if err := op.require(); err != nil {
		return nil, err
	}
	leads, err := s.store.QueryLeads(ctx, LeadQuery{OwnerID: op.OwnerID, Stage: f.Stage, OrderBy: OrderCreatedDesc})
	if err != nil {
		return nil, storeErr("query leads", err)
	}
	return FilterLeads(leads, f), nil
}

// GetLead returns one of op's leads.
func (s *Service) GetLead(ctx context.Context, op OperatorContext, id string) (Lead, error) {
	if err := op.require(); err != nil {
		return Lead{}, err
	}
	l, err := s.store.GetLead(ctx, op.OwnerID, id)
	if err != nil {
		return Lead{}, storeErr("get lead", err)
	}
	return l, nil
}

// CreateLead validates in and inserts it as a new lead owned by op.
func (s *Service) CreateLead(ctx context.Context, op OperatorContext, in LeadInput) (Lead, error) {
	if err := op.require(); err != nil {
		return Lead{}, err
	}
	c, err := in.candidate(op)
	if err != nil {
		return Lead{}, err
	}
	l, err := s.store.InsertLead(ctx, c)
	if err != nil {
		return Lead{}, storeErr("insert lead", err)
	}
	logging.WithFields(ctx, "lead_id", l.ID).Info("lead created")
	s.refreshBoard(ctx, op)
	return l, nil
}

// UpdateLead applies a field edit. The store bumps updated_at.
func (s *Service) UpdateLead(ctx context.Context, op OperatorContext, id string, u LeadUpdate) (Lead, error) {
	if err := op.require(); err != nil {
		return Lead{}, err
	}
	p, err := u.patch()
	if err != nil {
		return Lead{}, err
	}
	l, err := s.store.UpdateLead(ctx, op.OwnerID, id, p)
	if err != nil {
		return Lead{}, storeErr("update lead", err)
	}
	s.refreshBoard(ctx, op)
	return l, nil
}

// DeleteLead removes a lead together with its interactions.
func (s *Service) DeleteLead(ctx context.Context, op OperatorContext, id string) error {
	if err := op.require(); err != nil {
		return err
	}
	if err := s.store.DeleteLead(ctx, op.OwnerID, id); err != nil {
		return storeErr("delete lead", err)
	}
	logging.WithFields(ctx, "lead_id", id).Info("lead deleted")
	s.refreshBoard(ctx, op)
	return nil
}

// ListInteractions returns the interactions of one of op's leads, newest first.
func (s *Service) ListInteractions(ctx context.Context, op OperatorContext, leadID string) ([]Interaction, error) {
	if err := op.require(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetLead(ctx, op.OwnerID, leadID); err != nil {
		return nil, storeErr("get lead", err)
	}
	out, err := s.store.QueryInteractions(ctx, op.OwnerID, leadID)
	if err != nil {
		return nil, storeErr("query interactions", err)
	}
	return out, nil
}

// AddInteraction logs a contact event on one of op's leads.
func (s *Service) AddInteraction(ctx context.Context, op OperatorContext, leadID string, in InteractionInput) (Interaction, error) {
	if err := op.require(); err != nil {
		return Interaction{}, err
	}
	it, err := in.interaction(op, leadID, s.now())
	if err != nil {
		return Interaction{}, err
	}
	if _, err := s.store.GetLead(ctx, op.OwnerID, leadID); err != nil {
		return Interaction{}, storeErr("get lead", err)
	}
	saved, err := s.store.InsertInteraction(ctx, it)
	if err != nil {
		return Interaction{}, storeErr("insert interaction", err)
	}
	return saved, nil
}

// Import runs one import for op once a limiter slot is free. On success
// op's board, if loaded, is re-read.
func (s *Service) Import(ctx context.Context, op OperatorContext, fileName string, r io.Reader) (*ImportResult, error) {
	if err := op.require(); err != nil {
		return nil, err
	}
	if _, err := DetectFormat(fileName); err != nil {
		return nil, err
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.importTimeout)
	defer cancel()

	res, err := s.importer.Import(ctx, op, fileName, r)
	if err != nil {
		return nil, err
	}
	s.refreshBoard(context.WithoutCancel(ctx), op)
	return res, nil
}

// Export serializes op's leads as held by the board view. The board is
// loaded first if it never was; an already loaded view is not re-read.
func (s *Service) Export(ctx context.Context, op OperatorContext, format ExportFormat, w io.Writer) error {
	b, err := s.Board(ctx, op)
	if err != nil {
		return err
	}
	if err := Export(w, format, b.Leads()); err != nil {
		return fmt.Errorf("export %s: %w", format, err)
	}
	return nil
}

// Board returns op's board, loading it on first use.
func (s *Service) Board(ctx context.Context, op OperatorContext) (*Board, error) {
	if err := op.require(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	b, ok := s.boards[op.OwnerID]
	if !ok {
		opts := []BoardOption{WithBoardEvents(s.events)}
		if s.observer != nil {
			opts = append(opts, WithTransitionObserver(s.observer))
		}
		b = NewBoard(s.store, op, opts...)
		s.boards[op.OwnerID] = b
	}
	s.mu.Unlock()

	if !b.Loaded() {
		if err := b.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// refreshBoard re-reads op's board after a write made outside of it.
func (s *Service) refreshBoard(ctx context.Context, op OperatorContext) {
	s.mu.Lock()
	b, ok := s.boards[op.OwnerID]
	s.mu.Unlock()
	if !ok {
		return
	}
	if err := b.Refresh(ctx); err != nil {
		logging.FromContext(ctx).Warn("board refresh failed", slog.Any("error", err))
	}
}
