package mocks

import (
	"context"
	"sync"

	"github.com/example/clothing-shop/internal/event"
)

// MockProducer records published events for tests.
type MockProducer struct {
	mu sync.Mutex

	// For tracking calls in tests
	PublishCalls    []event.Event
	PublishErr      error
	PublishCallback func(ctx context.Context, e event.Event) error

	published chan event.Event
}

// NewMockProducer creates a MockProducer. Every publish attempt is also
// delivered on Published so tests can wait for async publishes.
func NewMockProducer() *MockProducer {
	return &MockProducer{published: make(chan event.Event, 64)}
}

func (m *MockProducer) PublishEvent(ctx context.Context, e event.Event) error {
	m.mu.Lock()
	m.PublishCalls = append(m.PublishCalls, e)
	callback, err := m.PublishCallback, m.PublishErr
	m.mu.Unlock()

	select {
	case m.published <- e:
	default:
	}

	if callback != nil {
		return callback(ctx, e)
	}
	return err
}

// Published delivers each publish attempt.
func (m *MockProducer) Published() <-chan event.Event {
	return m.published
}

// Calls returns a copy of the recorded events.
func (m *MockProducer) Calls() []event.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]event.Event(nil), m.PublishCalls...)
}
