package llm

import (
	"context"
	"sync"

	"chat-relay/internal/domain"
)

// MockSource reproduce una secuencia fija de eventos para tests sin proveedor real.
// Con Hold en true, al agotar Events bloquea hasta Close en vez de terminar.
type MockSource struct {
	Events []Event
	Hold   bool

	mu         sync.Mutex
	pos        int
	closeCalls int
	closed     chan struct{}
	once       sync.Once
}

func (m *MockSource) init() {
	m.once.Do(func() { m.closed = make(chan struct{}) })
}

func (m *MockSource) Next() (Event, bool) {
	m.init()
	m.mu.Lock()
	if m.closeCalls > 0 {
		m.mu.Unlock()
		return Event{}, false
	}
	if m.pos < len(m.Events) {
		ev := m.Events[m.pos]
		m.pos++
		m.mu.Unlock()
		return ev, true
	}
	m.mu.Unlock()
	if m.Hold {
		<-m.closed
	}
	return Event{}, false
}

func (m *MockSource) Close() error {
	m.init()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	if m.closeCalls == 1 {
		close(m.closed)
	}
	return nil
}

// Consumed devuelve cuantos eventos se leyeron.
func (m *MockSource) Consumed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos
}

// CloseCalls devuelve cuantas veces se llamo Close.
func (m *MockSource) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

// MockOpener devuelve siempre Source, o Err si esta seteado.
type MockOpener struct {
	Source  EventSource
	Err     error
	LastReq domain.ChatCompletionRequest
}

func (m *MockOpener) Stream(_ context.Context, req domain.ChatCompletionRequest) (EventSource, error) {
	m.LastReq = req
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Source, nil
}

// Frame es un atajo para construir un EventFrame.
func Frame(id, event, data string) Event {
	return Event{Kind: EventFrame, Frame: domain.RelayEvent{ID: id, Event: event, Data: data}}
}
