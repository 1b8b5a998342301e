package events

import (
	"context"
	"encoding/json"
	"sync"
)

type PublishedEvent struct {
	Topic   string
	Payload json.RawMessage
}

// MemoryPublisher records published events; it is used where no bus runs.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent
	Err    error
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, topic string, event any) error {
	if p.Err != nil {
		return p.Err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.events = append(p.events, PublishedEvent{Topic: topic, Payload: payload})
	p.mu.Unlock()
	return nil
}

func (p *MemoryPublisher) Events(topic string) []PublishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []PublishedEvent
	for _, e := range p.events {
		if topic == "" || e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}
