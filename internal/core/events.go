package core

import (
	"context"
	"time"
)

// EventType names a notification published after a successful write.
type EventType string

const (
	EventImportCompleted EventType = "import.completed"
	EventStageChanged    EventType = "stage.changed"
)

// Event tells listeners that the operator's lead set changed and should be
// re-read. It carries no lead data beyond ids.
type Event struct {
	Type      EventType `json:"type"`
	OwnerID   string    `json:"owner_id"`
	LeadID    string    `json:"lead_id,omitempty"`
	FromStage Stage     `json:"from_stage,omitempty"`
	Stage     Stage     `json:"stage,omitempty"`
	Count     int       `json:"count,omitempty"`
	At        time.Time `json:"at"`
}

// EventPublisher delivers events. Publishing failures never undo the write
// that produced the event.
type EventPublisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
