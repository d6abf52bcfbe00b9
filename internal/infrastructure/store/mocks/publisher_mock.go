package mocks

import (
	"context"
	"sync"
)

// PublishedEvent records one Publish call.
type PublishedEvent struct {
	Key   string
	Event any
}

// MockPublisher captures published events for assertions.
type MockPublisher struct {
	mu        sync.Mutex
	Published []PublishedEvent
	Err       error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) Publish(ctx context.Context, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Published = append(p.Published, PublishedEvent{Key: key, Event: event})
	return nil
}
