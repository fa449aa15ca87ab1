package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage_CarriesEnvelope(t *testing.T) {
	event := NewScoringEvent(EventModuleGraded, ModuleGradedEvent{
		SessionID: 3,
		Module:    models.ModuleWriting,
		Band:      6.5,
		State:     models.StatePartiallyGraded,
	})

	msg, err := NewMessage(event)
	require.NoError(t, err)

	assert.Equal(t, event.ID, msg.UUID)
	assert.Equal(t, "session.module_graded", msg.Metadata.Get("event_type"))
	assert.Equal(t, "ielts-exam-service", msg.Metadata.Get("source"))
	assert.Equal(t, "1.0", msg.Metadata.Get("version"))
	assert.Equal(t, "session-3", msg.Metadata.Get(partitionKeyHeader))

	key, err := partitionKey("ielts.scoring", msg)
	require.NoError(t, err)
	assert.Equal(t, "session-3", key)

	var decoded struct {
		Type EventType      `json:"type"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, EventModuleGraded, decoded.Type)
	assert.Equal(t, "writing", decoded.Data["module"])
	assert.Equal(t, 6.5, decoded.Data["band"])
}

func TestNewScoringEvent_UniqueIDs(t *testing.T) {
	a := NewScoringEvent(EventSessionSubmitted, nil)
	b := NewScoringEvent(EventSessionSubmitted, nil)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())

	msg, err := NewMessage(a)
	require.NoError(t, err)
	assert.Empty(t, msg.Metadata.Get(partitionKeyHeader))
}

func TestMockEventPublisher(t *testing.T) {
	pub := NewMockEventPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	require.NoError(t, pub.PublishScoringEvent(ctx, NewScoringEvent(EventSessionSubmitted, nil)))
	require.NoError(t, pub.PublishScoringEvent(ctx, NewScoringEvent(EventModuleGraded, nil)))
	require.NoError(t, pub.PublishScoringEvent(ctx, NewScoringEvent(EventModuleGraded, nil)))

	assert.Len(t, pub.GetPublishedEvents(), 3)
	assert.Len(t, pub.EventsOfType(EventModuleGraded), 2)
	assert.Empty(t, pub.EventsOfType(EventSessionFinalized))

	pub.ClearEvents()
	assert.Empty(t, pub.GetPublishedEvents())
	assert.NoError(t, pub.Close())
}
