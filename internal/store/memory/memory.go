// Package memory is an in-process Record Store. The CLI uses it for dry-run
// imports and the tests use it as the store collaborator.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/leadpipe/internal/core"
)

// Store keeps leads and interactions in maps guarded by one mutex, so every
// call is atomic.
type Store struct {
	mu           sync.RWMutex
	leads        map[string]core.Lead
	interactions map[string]core.Interaction
	now          func() time.Time

	// FailWrites, when set, is returned by every mutating call.
	FailWrites error
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		leads:        make(map[string]core.Lead),
		interactions: make(map[string]core.Interaction),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ core.Store = (*Store)(nil)

func (s *Store) QueryLeads(ctx context.Context, q core.LeadQuery) ([]core.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.OwnerID == "" {
		return nil, fmt.Errorf("query leads: owner id is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Lead, 0)
	for _, l := range s.leads {
		if l.OwnerID != q.OwnerID {
			continue
		}
		if q.Stage != "" && l.Stage != q.Stage {
			continue
		}
		out = append(out, l)
	}
	sortLeads(out, q.OrderBy)
	return out, nil
}

func sortLeads(leads []core.Lead, order core.LeadOrder) {
	sort.SliceStable(leads, func(i, j int) bool {
		a, b := leads[i], leads[j]
		switch order {
		case core.OrderCreatedAsc:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		case core.OrderUpdatedDesc:
			if !a.UpdatedAt.Equal(b.UpdatedAt) {
				return a.UpdatedAt.After(b.UpdatedAt)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}

func (s *Store) GetLead(ctx context.Context, ownerID, id string) (core.Lead, error) {
	if err := ctx.Err(); err != nil {
		return core.Lead{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.leads[id]
	if !ok || l.OwnerID != ownerID {
		return core.Lead{}, core.ErrNotFound
	}
	return l, nil
}

// InsertLeads validates the whole batch before writing any of it.
func (s *Store) InsertLeads(ctx context.Context, batch []core.LeadCandidate) ([]core.Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites != nil {
		return nil, s.FailWrites
	}
	now := s.now()
	out := make([]core.Lead, 0, len(batch))
	for i, c := range batch {
		l, err := fromCandidate(c, now)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, l)
	}
	for _, l := range out {
		s.leads[l.ID] = l
	}
	return out, nil
}

func (s *Store) InsertLead(ctx context.Context, c core.LeadCandidate) (core.Lead, error) {
	leads, err := s.InsertLeads(ctx, []core.LeadCandidate{c})
	if err != nil {
		return core.Lead{}, err
	}
	return leads[0], nil
}

func fromCandidate(c core.LeadCandidate, now time.Time) (core.Lead, error) {
	if c.OwnerID == "" {
		return core.Lead{}, fmt.Errorf("owner id is required")
	}
	if c.Name == "" || c.Email == "" {
		return core.Lead{}, fmt.Errorf("name and email are required")
	}
	stage := core.Stage(c.Stage)
	if stage == "" {
		stage = core.StageNew
	}
	if !stage.Valid() {
		return core.Lead{}, fmt.Errorf("violates check constraint: stage %q", c.Stage)
	}
	return core.Lead{
		ID:        uuid.NewString(),
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Source:    c.Source,
		Notes:     c.Notes,
		Stage:     stage,
		CreatedAt: now,
		UpdatedAt: now,
		OwnerID:   c.OwnerID,
	}, nil
}

// UpdateLead applies patch and moves updated_at forward, never backward.
func (s *Store) UpdateLead(ctx context.Context, ownerID, id string, patch core.LeadPatch) (core.Lead, error) {
	if err := ctx.Err(); err != nil {
		return core.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites != nil {
		return core.Lead{}, s.FailWrites
	}
	l, ok := s.leads[id]
	if !ok || l.OwnerID != ownerID {
		return core.Lead{}, core.ErrNotFound
	}
	if patch.Stage != nil && !patch.Stage.Valid() {
		return core.Lead{}, fmt.Errorf("violates check constraint: stage %q", *patch.Stage)
	}
	l = patch.Apply(l)
	if now := s.now(); now.After(l.UpdatedAt) {
		l.UpdatedAt = now
	}
	s.leads[id] = l
	return l, nil
}

// DeleteLead removes the lead and its interactions.
func (s *Store) DeleteLead(ctx context.Context, ownerID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites != nil {
		return s.FailWrites
	}
	l, ok := s.leads[id]
	if !ok || l.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.leads, id)
	for iid, it := range s.interactions {
		if it.LeadID == id {
			delete(s.interactions, iid)
		}
	}
	return nil
}

// QueryInteractions lists a lead's interactions, newest first.
func (s *Store) QueryInteractions(ctx context.Context, ownerID, leadID string) ([]core.Interaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]core.Interaction, 0)
	for _, it := range s.interactions {
		if it.LeadID == leadID && it.OwnerID == ownerID {
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) InsertInteraction(ctx context.Context, in core.Interaction) (core.Interaction, error) {
	if err := ctx.Err(); err != nil {
		return core.Interaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailWrites != nil {
		return core.Interaction{}, s.FailWrites
	}
	l, ok := s.leads[in.LeadID]
	if !ok || l.OwnerID != in.OwnerID {
		return core.Interaction{}, fmt.Errorf("insert interaction: violates foreign key on lead %q", in.LeadID)
	}
	in.ID = uuid.NewString()
	in.CreatedAt = s.now()
	if in.OccurredAt.IsZero() {
		in.OccurredAt = in.CreatedAt
	}
	s.interactions[in.ID] = in
	return in, nil
}

// Len returns the number of stored leads across all owners.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.leads)
}
