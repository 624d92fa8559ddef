package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_InsertionOrderAndBroadcast(t *testing.T) {
	bus := NewBus()
	bus.Publish(Message{Sender: "qa_gatekeeper", Receiver: "orchestrator", Type: MsgGatePass, Stage: "niche"})
	bus.Publish(Message{Sender: "reviewer_agent", Receiver: Broadcast, Type: MsgReview, Stage: "rank"})
	bus.Publish(Message{Sender: "security_agent", Receiver: "orchestrator", Type: MsgError, Stage: "research"})

	got := bus.GetFor("orchestrator")
	require.Len(t, got, 3)
	assert.Equal(t, "qa_gatekeeper", got[0].Sender)
	assert.Equal(t, "reviewer_agent", got[1].Sender)
	assert.Equal(t, "security_agent", got[2].Sender)

	// Broadcast reaches any reader.
	other := bus.GetFor("script_producer")
	require.Len(t, other, 1)
	assert.Equal(t, MsgReview, other[0].Type)
}

func TestBus_Filter(t *testing.T) {
	bus := NewBus()
	bus.Publish(Message{Sender: "a", Receiver: "x", Type: MsgInfo, Stage: "niche"})
	bus.Publish(Message{Sender: "b", Receiver: "x", Type: MsgError, Stage: "rank"})
	bus.Publish(Message{Sender: "c", Receiver: "y", Type: MsgError, Stage: "rank"})

	got := bus.Filter("x", MsgError, "rank")
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Sender)

	assert.Len(t, bus.Filter("", MsgError, ""), 2)
	assert.Len(t, bus.All(), 3)
}

func TestBus_PublishStampsTimestamp(t *testing.T) {
	bus := NewBus()
	bus.Publish(Message{Sender: "a", Receiver: "x"})
	assert.False(t, bus.All()[0].Timestamp.IsZero())
}
