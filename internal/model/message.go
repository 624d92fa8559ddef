package model

import (
	"sync"
	"time"
)

// MsgType classifies messages on the run bus.
type MsgType string

const (
	MsgInfo     MsgType = "info"
	MsgReview   MsgType = "review"
	MsgQuestion MsgType = "question"
	MsgDecision MsgType = "decision"
	MsgError    MsgType = "error"
	MsgGatePass MsgType = "gate_pass"
	MsgGateFail MsgType = "gate_fail"
)

// Broadcast is the wildcard receiver.
const Broadcast = "*"

// Message is a single entry on the orchestrator bus.
type Message struct {
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Type      MsgType   `json:"msg_type"`
	Stage     string    `json:"stage"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus is an append-only in-memory message list for a single run.
// Messages are returned in insertion order.
type Bus struct {
	mu       sync.Mutex
	messages []Message
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Publish appends a message, stamping the timestamp if unset.
func (b *Bus) Publish(msg Message) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}
	b.mu.Lock()
	b.messages = append(b.messages, msg)
	b.mu.Unlock()
}

// GetFor returns all messages addressed to receiver or broadcast,
// in insertion order.
func (b *Bus) GetFor(receiver string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.messages {
		if m.Receiver == receiver || m.Receiver == Broadcast {
			out = append(out, m)
		}
	}
	return out
}

// Filter returns messages matching the given receiver, type, and stage.
// Empty arguments match everything.
func (b *Bus) Filter(receiver string, msgType MsgType, stage string) []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []Message
	for _, m := range b.messages {
		if receiver != "" && m.Receiver != receiver && m.Receiver != Broadcast {
			continue
		}
		if msgType != "" && m.Type != msgType {
			continue
		}
		if stage != "" && m.Stage != stage {
			continue
		}
		out = append(out, m)
	}
	return out
}

// All returns a copy of every message on the bus.
func (b *Bus) All() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}
