package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/leadpipe/internal/config"
	"github.com/JonMunkholm/leadpipe/internal/core"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
	hasDeadline   bool
}

type fakeChannel struct {
	published []published
	err       error
	closed    bool
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	_, ok := ctx.Deadline()
	c.published = append(c.published, published{exchange, key, msg, ok})
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(ch, "leadpipe.events")
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	ev := core.Event{Type: core.EventStageChanged, OwnerID: "op-1", LeadID: "l-1", FromStage: core.StageNew, Stage: core.StageWon, At: at}
	require.NoError(t, p.Publish(context.Background(), ev))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, "leadpipe.events", got.exchange)
	assert.Equal(t, "stage.changed", got.key)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.NotEmpty(t, got.msg.MessageId)
	assert.Equal(t, at, got.msg.Timestamp)
	assert.True(t, got.hasDeadline, "publishes are bounded by a timeout")

	var decoded core.Event
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, ev, decoded)
}

func TestAMQPPublisher_UniqueMessageIDs(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(ch, "x")
	for i := 0; i < 2; i++ {
		require.NoError(t, p.Publish(context.Background(), core.Event{Type: core.EventImportCompleted, Count: 3}))
	}
	assert.NotEqual(t, ch.published[0].msg.MessageId, ch.published[1].msg.MessageId)
}

func TestAMQPPublisher_Error(t *testing.T) {
	ch := &fakeChannel{err: amqp.ErrClosed}
	p := newAMQPPublisher(ch, "x")

	err := p.Publish(context.Background(), core.Event{Type: core.EventImportCompleted})
	assert.True(t, errors.Is(err, amqp.ErrClosed))

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, p.Publish(context.Background(), core.Event{Type: core.EventImportCompleted, OwnerID: "op-1", Count: 7}))
	assert.Contains(t, buf.String(), "event import.completed")
	assert.Contains(t, buf.String(), "count=7")
	assert.Contains(t, buf.String(), "owner_id=op-1")
}

func TestFromConfig_WithoutBrokerLogs(t *testing.T) {
	pub, closeFn, err := FromConfig(config.EventsConfig{}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	require.NoError(t, err)
	assert.IsType(t, LogPublisher{}, pub)
	assert.NoError(t, closeFn())
}
