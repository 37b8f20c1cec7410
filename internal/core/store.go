package core

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Store when the id is unknown or belongs to
// another operator.
var ErrNotFound = errors.New("record not found")

// LeadOrder selects the ordering of a lead query.
type LeadOrder int

const (
	// OrderCreatedDesc lists newest leads first (the board's order).
	OrderCreatedDesc LeadOrder = iota
	OrderCreatedAsc
	OrderUpdatedDesc
)

// LeadQuery is the predicate of a lead read. OwnerID is mandatory.
type LeadQuery struct {
	OwnerID string
	Stage   Stage // optional; empty matches all stages
	OrderBy LeadOrder
}

// Store is the record store collaborator. It is the only component with write
// authority over leads and interactions; each call is atomic on its own.
//
// Implementations must scope every read and write by owner id, set
// updated_at on every mutating write without letting it decrease, and
// cascade lead deletion to the lead's interactions.
type Store interface {
	QueryLeads(ctx context.Context, q LeadQuery) ([]Lead, error)
	GetLead(ctx context.Context, ownerID, id string) (Lead, error)

	// InsertLeads writes the whole batch or nothing.
	InsertLeads(ctx context.Context, batch []LeadCandidate) ([]Lead, error)
	InsertLead(ctx context.Context, c LeadCandidate) (Lead, error)
	UpdateLead(ctx context.Context, ownerID, id string, patch LeadPatch) (Lead, error)
	DeleteLead(ctx context.Context, ownerID, id string) error

	QueryInteractions(ctx context.Context, ownerID, leadID string) ([]Interaction, error)
	InsertInteraction(ctx context.Context, in Interaction) (Interaction, error)
}
