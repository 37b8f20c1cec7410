package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/leadpipe/internal/logging"
)

// Outcome is the result of a drag end.
type Outcome string

const (
	OutcomeNoOp   Outcome = "noop"
	OutcomeMoved  Outcome = "moved"
	OutcomeFailed Outcome = "failed"
)

// TransitionObserver is told about every resolved drag end.
type TransitionObserver interface {
	TransitionFinished(from, to Stage, outcome Outcome)
}

// Column is one board column: a stage and the leads currently in it.
type Column struct {
	Stage Stage  `json:"stage"`
	Label string `json:"label"`
	Leads []Lead `json:"leads"`
}

// Board is one operator's pipeline view and the drag gesture played on it.
//
// The view only ever holds the result of the last Refresh. A drag end that
// changes a stage persists it with one UpdateLead call and then refreshes;
// the view is never edited speculatively, so a failed update needs no
// rollback.
//
// Any stage may be dropped onto any other stage.
type Board struct {
	store    Store
	op       OperatorContext
	events   EventPublisher
	observer TransitionObserver

	mu       sync.Mutex
	leads    []Lead
	loadedAt time.Time
	dragging string // id of the dragged lead, "" when idle
	pending  string // id whose stage change is being persisted
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithBoardEvents publishes stage.changed after each persisted move.
func WithBoardEvents(p EventPublisher) BoardOption {
	return func(b *Board) { b.events = p }
}

// WithTransitionObserver reports each drag end outcome to o.
func WithTransitionObserver(o TransitionObserver) BoardOption {
	return func(b *Board) { b.observer = o }
}

// NewBoard creates an empty, idle board for op. Call Refresh to load it.
func NewBoard(store Store, op OperatorContext, opts ...BoardOption) *Board {
	b := &Board{store: store, op: op, events: NopPublisher{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Operator returns the board's owner.
func (b *Board) Operator() OperatorContext { return b.op }

// Refresh replaces the view with the operator's leads, newest first.
func (b *Board) Refresh(ctx context.Context) error {
	if err := b.op.require(); err != nil {
		return err
	}
	leads, err := b.store.QueryLeads(ctx, LeadQuery{OwnerID: b.op.OwnerID, OrderBy: OrderCreatedDesc})
	if err != nil {
		return storeErr("query leads", err)
	}

	b.mu.Lock()
	b.leads = leads
	b.loadedAt = time.Now()
	b.mu.Unlock()
	return nil
}

// Loaded reports whether Refresh has succeeded at least once.
func (b *Board) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.loadedAt.IsZero()
}

// DragStart marks leadID as the subject of the gesture. Nothing is written.
func (b *Board) DragStart(leadID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dragging != "" || b.pending != "" {
		return ErrDragInProgress
	}
	if _, ok := b.find(leadID); !ok {
		return ErrLeadNotOnBoard
	}
	b.dragging = leadID
	return nil
}

// DragCancel abandons the gesture without side effects.
func (b *Board) DragCancel() {
	b.mu.Lock()
	b.dragging = ""
	b.mu.Unlock()
}

// Dragging returns the id of the dragged lead, if any.
func (b *Board) Dragging() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dragging, b.dragging != ""
}

// DragEnd resolves the gesture onto target. The board is idle again when it
// returns.
//
// An empty target or the lead's current stage is a no-op: no store call and
// no refresh. A target that is not a stage fails with ErrUnknownStage, also
// without a store call. Anything else issues exactly one UpdateLead; on
// success the board is refreshed, on failure the error is logged and
// returned with OutcomeFailed.
func (b *Board) DragEnd(ctx context.Context, target string) (Outcome, error) {
	b.mu.Lock()
	leadID := b.dragging
	b.dragging = ""
	if leadID == "" {
		b.mu.Unlock()
		return OutcomeNoOp, ErrNoActiveDrag
	}
	lead, ok := b.find(leadID)
	if !ok {
		b.mu.Unlock()
		return OutcomeNoOp, ErrLeadNotOnBoard
	}
	if target == "" || Stage(target) == lead.Stage {
		b.mu.Unlock()
		b.observe(lead.Stage, lead.Stage, OutcomeNoOp)
		return OutcomeNoOp, nil
	}
	to, err := ParseStage(target)
	if err != nil {
		b.mu.Unlock()
		return OutcomeNoOp, err
	}
	if to == lead.Stage {
		b.mu.Unlock()
		b.observe(lead.Stage, to, OutcomeNoOp)
		return OutcomeNoOp, nil
	}
	b.pending = leadID
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.pending = ""
		b.mu.Unlock()
	}()

	logger := logging.WithFields(ctx, "lead_id", leadID, "from", lead.Stage, "to", to)

	if _, err := b.store.UpdateLead(ctx, b.op.OwnerID, leadID, LeadPatch{Stage: &to}); err != nil {
		logger.Error("stage change failed", slog.Any("error", err))
		b.observe(lead.Stage, to, OutcomeFailed)
		return OutcomeFailed, storeErr("update lead stage", err)
	}
	logger.Info("stage changed")
	b.observe(lead.Stage, to, OutcomeMoved)

	if err := b.Refresh(ctx); err != nil {
		logger.Warn("board refresh after stage change failed", slog.Any("error", err))
	}

	ev := Event{Type: EventStageChanged, OwnerID: b.op.OwnerID, LeadID: leadID, FromStage: lead.Stage, Stage: to, At: time.Now()}
	if err := b.events.Publish(context.WithoutCancel(ctx), ev); err != nil {
		logger.Warn("publish stage event failed", slog.Any("error", err))
	}
	return OutcomeMoved, nil
}

// Leads returns a copy of the current view.
func (b *Board) Leads() []Lead {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Lead, len(b.leads))
	copy(out, b.leads)
	return out
}

// Lead returns the lead with id from the current view.
func (b *Board) Lead(id string) (Lead, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.find(id)
}

// Columns groups the view by stage in board order. Every stage has a
// column, empty or not.
func (b *Board) Columns() []Column {
	b.mu.Lock()
	defer b.mu.Unlock()

	cols := make([]Column, len(stageOrder))
	idx := make(map[Stage]int, len(stageOrder))
	for i, st := range stageOrder {
		cols[i] = Column{Stage: st, Label: st.Label(), Leads: []Lead{}}
		idx[st] = i
	}
	for _, l := range b.leads {
		if i, ok := idx[l.Stage]; ok {
			cols[i].Leads = append(cols[i].Leads, l)
		}
	}
	return cols
}

// find must be called with mu held.
func (b *Board) find(id string) (Lead, bool) {
	for _, l := range b.leads {
		if l.ID == id {
			return l, true
		}
	}
	return Lead{}, false
}

func (b *Board) observe(from, to Stage, o Outcome) {
	if b.observer != nil {
		b.observer.TransitionFinished(from, to, o)
	}
}
