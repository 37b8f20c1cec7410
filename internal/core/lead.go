package core

import (
	"fmt"
	"strings"
	"time"
)

// Stage is a pipeline position. A lead always holds exactly one.
type Stage string

const (
	StageNew       Stage = "new"
	StageContacted Stage = "contacted"
	StageQualified Stage = "qualified"
	StageProposal  Stage = "proposal"
	StageWon       Stage = "won"
	StageLost      Stage = "lost"
)

// stageOrder is the left-to-right column order of the board.
var stageOrder = []Stage{StageNew, StageContacted, StageQualified, StageProposal, StageWon, StageLost}

// stageSynonyms maps accepted spellings to stages. Spreadsheets exported by
// the previous Portuguese UI carry the old status names.
var stageSynonyms = map[string]Stage{
	"new":         StageNew,
	"novo":        StageNew,
	"contacted":   StageContacted,
	"contato":     StageContacted,
	"qualified":   StageQualified,
	"qualificado": StageQualified,
	"proposal":    StageProposal,
	"proposta":    StageProposal,
	"won":         StageWon,
	"fechado":     StageWon,
	"lost":        StageLost,
	"perdido":     StageLost,
}

var stageLabels = map[Stage]string{
	StageNew:       "New",
	StageContacted: "Contacted",
	StageQualified: "Qualified",
	StageProposal:  "Proposal",
	StageWon:       "Won",
	StageLost:      "Lost",
}

// Stages returns all stages in board order.
func Stages() []Stage {
	out := make([]Stage, len(stageOrder))
	copy(out, stageOrder)
	return out
}

// ParseStage resolves s (case-insensitive, English or legacy Portuguese) to a Stage.
func ParseStage(s string) (Stage, error) {
	if st, ok := stageSynonyms[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
}

// Valid reports whether s is one of the six canonical stages.
func (s Stage) Valid() bool {
	_, ok := stageLabels[s]
	return ok
}

// Label is the column title shown on the board.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}

// InteractionKind classifies a logged contact event.
type InteractionKind string

const (
	KindEmail   InteractionKind = "email"
	KindCall    InteractionKind = "call"
	KindMeeting InteractionKind = "meeting"
	KindNote    InteractionKind = "note"
	KindOther   InteractionKind = "other"
)

var kindSynonyms = map[string]InteractionKind{
	"email":      KindEmail,
	"call":       KindCall,
	"telefone":   KindCall,
	"meeting":    KindMeeting,
	"reuniao":    KindMeeting,
	"note":       KindNote,
	"observacao": KindNote,
	"other":      KindOther,
	"outro":      KindOther,
}

// ParseInteractionKind resolves s to an InteractionKind.
func ParseInteractionKind(s string) (InteractionKind, error) {
	if k, ok := kindSynonyms[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownInteractionKind, s)
}

// Lead is a prospect record. Optional fields are nil when absent, never "".
type Lead struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Company   *string   `json:"company"`
	Source    *string   `json:"source"`
	Notes     *string   `json:"notes"`
	Stage     Stage     `json:"stage"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	OwnerID   string    `json:"owner_id"`
}

// Interaction is an immutable contact log entry attached to one lead.
type Interaction struct {
	ID          string          `json:"id"`
	LeadID      string          `json:"lead_id"`
	Kind        InteractionKind `json:"kind"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurred_at"`
	CreatedAt   time.Time       `json:"created_at"`
	OwnerID     string          `json:"owner_id"`
}

// LeadCandidate is a lead that has not been persisted yet: the output of
// normalization or of a create form. Stage stays a raw string until the
// caller canonicalizes it.
type LeadCandidate struct {
	Name    string
	Email   string
	Phone   string
	Company *string
	Notes   *string
	Stage   string
	Source  *string
	OwnerID string
}

// LeadPatch is a partial update. Nil fields are left unchanged; for the
// nullable fields a pointer to "" clears the value.
type LeadPatch struct {
	Name    *string
	Email   *string
	Phone   *string
	Company *string
	Source  *string
	Notes   *string
	Stage   *Stage
}

// Empty reports whether the patch changes nothing.
func (p LeadPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Phone == nil && p.Company == nil &&
		p.Source == nil && p.Notes == nil && p.Stage == nil
}

// Apply returns l with the patch applied. Timestamps are the store's job.
func (p LeadPatch) Apply(l Lead) Lead {
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Email != nil {
		l.Email = *p.Email
	}
	if p.Phone != nil {
		l.Phone = *p.Phone
	}
	if p.Company != nil {
		l.Company = optional(*p.Company)
	}
	if p.Source != nil {
		l.Source = optional(*p.Source)
	}
	if p.Notes != nil {
		l.Notes = optional(*p.Notes)
	}
	if p.Stage != nil {
		l.Stage = *p.Stage
	}
	return l
}

// optional maps "" to nil so absent values have a single representation.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// deref returns the pointed-to string or "".
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
