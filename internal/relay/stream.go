// Package relay adapta el stream upstream del proveedor al stream SSE de salida.
package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"chat-relay/internal/domain"
	"chat-relay/internal/llm"
)

type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream reenvia frames upstream uno a uno, en orden. Una goroutine lee del upstream y
// entrega por un canal sin buffer, asi nunca hay mas de un item en vuelo y si el consumidor
// no lee, no se sigue leyendo del upstream.
type Stream struct {
	source llm.EventSource
	logger *zap.Logger

	events chan domain.RelayEvent
	done   chan struct{}
	state  atomic.Int32

	closeOnce   sync.Once
	releaseOnce sync.Once
}

// Open abre la conexion upstream y arranca el relay. Solo falla si la request no se puede
// construir; los errores de red posteriores terminan el stream sin propagarse.
func Open(ctx context.Context, opener llm.StreamOpener, req domain.ChatCompletionRequest, logger *zap.Logger) (*Stream, error) {
	source, err := opener.Stream(ctx, req)
	if err != nil {
		if errors.Is(err, llm.ErrConnect) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", llm.ErrConnect, err)
	}
	s := newStream(source, logger)
	s.state.Store(int32(StateStreaming))
	go s.pump()
	return s, nil
}

func newStream(source llm.EventSource, logger *zap.Logger) *Stream {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stream{
		source: source,
		logger: logger,
		events: make(chan domain.RelayEvent),
		done:   make(chan struct{}),
	}
}

func (s *Stream) pump() {
	defer close(s.events)
	defer s.release()

	for {
		ev, ok := s.source.Next()
		if !ok {
			return
		}
		switch ev.Kind {
		case llm.EventOpened:
			s.logger.Debug("upstream stream opened")
		case llm.EventFrame:
			select {
			case s.events <- ev.Frame:
			case <-s.done:
				return
			}
		case llm.EventFailed:
			if !llm.IsBenignClosure(ev.Err) && !s.stopped() {
				s.logger.Warn("upstream stream failed", zap.Error(ev.Err))
			}
			return
		}
	}
}

// Next bloquea hasta el proximo frame. Devuelve false al terminar el stream, de forma
// estable en llamadas sucesivas. Cancelar ctx cierra el stream.
func (s *Stream) Next(ctx context.Context) (domain.RelayEvent, bool) {
	if s.stopped() {
		return domain.RelayEvent{}, false
	}
	select {
	case ev, ok := <-s.events:
		if !ok {
			return domain.RelayEvent{}, false
		}
		return ev, true
	case <-ctx.Done():
		s.Close()
		return domain.RelayEvent{}, false
	}
}

// Events expone el canal de frames para consumidores basados en select. Se cierra al
// terminar el stream.
func (s *Stream) Events() <-chan domain.RelayEvent {
	return s.events
}

// Close corta el upstream si el consumidor se va. Es idempotente.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.release()
	})
}

func (s *Stream) State() State {
	return State(s.state.Load())
}

func (s *Stream) release() {
	s.releaseOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		if err := s.source.Close(); err != nil {
			s.logger.Debug("close upstream", zap.Error(err))
		}
	})
}

func (s *Stream) stopped() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
