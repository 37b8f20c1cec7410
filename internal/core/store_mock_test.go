package core_test

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/JonMunkholm/leadpipe/internal/core"
	"github.com/JonMunkholm/leadpipe/internal/store/memory"
)

// mockStore is a testify mock of the record store.
type mockStore struct {
	mock.Mock
}

var _ core.Store = (*mockStore)(nil)

func (m *mockStore) QueryLeads(ctx context.Context, q core.LeadQuery) ([]core.Lead, error) {
	args := m.Called(ctx, q)
	leads, _ := args.Get(0).([]core.Lead)
	return leads, args.Error(1)
}

func (m *mockStore) GetLead(ctx context.Context, ownerID, id string) (core.Lead, error) {
	args := m.Called(ctx, ownerID, id)
	return args.Get(0).(core.Lead), args.Error(1)
}

func (m *mockStore) InsertLeads(ctx context.Context, batch []core.LeadCandidate) ([]core.Lead, error) {
	args := m.Called(ctx, batch)
	leads, _ := args.Get(0).([]core.Lead)
	return leads, args.Error(1)
}

func (m *mockStore) InsertLead(ctx context.Context, c core.LeadCandidate) (core.Lead, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(core.Lead), args.Error(1)
}

func (m *mockStore) UpdateLead(ctx context.Context, ownerID, id string, patch core.LeadPatch) (core.Lead, error) {
	args := m.Called(ctx, ownerID, id, patch)
	return args.Get(0).(core.Lead), args.Error(1)
}

func (m *mockStore) DeleteLead(ctx context.Context, ownerID, id string) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

func (m *mockStore) QueryInteractions(ctx context.Context, ownerID, leadID string) ([]core.Interaction, error) {
	args := m.Called(ctx, ownerID, leadID)
	its, _ := args.Get(0).([]core.Interaction)
	return its, args.Error(1)
}

func (m *mockStore) InsertInteraction(ctx context.Context, in core.Interaction) (core.Interaction, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(core.Interaction), args.Error(1)
}

// countingStore is a memory store that counts the calls the core makes.
type countingStore struct {
	*memory.Store

	mu      sync.Mutex
	inserts int
	updates int
	queries int
	patches []core.LeadPatch
}

func newCountingStore() *countingStore {
	return &countingStore{Store: memory.New()}
}

func (s *countingStore) InsertLeads(ctx context.Context, batch []core.LeadCandidate) ([]core.Lead, error) {
	s.mu.Lock()
	s.inserts++
	s.mu.Unlock()
	return s.Store.InsertLeads(ctx, batch)
}

func (s *countingStore) UpdateLead(ctx context.Context, ownerID, id string, patch core.LeadPatch) (core.Lead, error) {
	s.mu.Lock()
	s.updates++
	s.patches = append(s.patches, patch)
	s.mu.Unlock()
	return s.Store.UpdateLead(ctx, ownerID, id, patch)
}

func (s *countingStore) QueryLeads(ctx context.Context, q core.LeadQuery) ([]core.Lead, error) {
	s.mu.Lock()
	s.queries++
	s.mu.Unlock()
	return s.Store.QueryLeads(ctx, q)
}

func (s *countingStore) counts() (inserts, updates, queries int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inserts, s.updates, s.queries
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []core.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev core.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) all() []core.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.Event(nil), p.events...)
}
