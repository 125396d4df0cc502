package events

import (
	"context"
	"sync"
)

// Message is one published event as seen by MemoryPublisher.
type Message struct {
	Topic string
	Key   string
	Event any
}

// MemoryPublisher records events in process. Used when no brokers are configured.
type MemoryPublisher struct {
	mu       sync.Mutex
	messages []Message
	limit    int
}

// NewMemoryPublisher keeps at most limit messages (oldest dropped); limit <= 0 keeps all.
func NewMemoryPublisher(limit int) *MemoryPublisher {
	return &MemoryPublisher{limit: limit}
}

func (p *MemoryPublisher) Publish(_ context.Context, topic, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, Message{Topic: topic, Key: key, Event: event})
	if p.limit > 0 && len(p.messages) > p.limit {
		p.messages = p.messages[len(p.messages)-p.limit:]
	}
	return nil
}

// Messages returns a copy of what was published.
func (p *MemoryPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

func (p *MemoryPublisher) Close() error { return nil }
