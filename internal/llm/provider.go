package llm

import (
	"context"
	"errors"

	"chat-relay/internal/domain"
)

// EventKind distingue los items que produce un EventSource.
type EventKind int

const (
	// EventOpened indica que la conexion quedo establecida; no trae payload.
	EventOpened EventKind = iota
	// EventFrame trae un frame SSE decodificado.
	EventFrame
	// EventFailed es terminal; Err describe la causa.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventOpened:
		return "opened"
	case EventFrame:
		return "frame"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event es un item del stream upstream.
type Event struct {
	Kind  EventKind
	Frame domain.RelayEvent
	Err   error
}

var (
	// ErrConnect indica que la request upstream no se pudo construir (error de configuracion).
	ErrConnect = errors.New("upstream request could not be built")
	// ErrStreamEnded marca un cierre deliberado del upstream sin diagnostico.
	ErrStreamEnded = errors.New("upstream stream ended")
)

// IsBenignClosure informa si err es una senal de fin que no merece log.
func IsBenignClosure(err error) bool {
	return err == nil || errors.Is(err, ErrStreamEnded) || errors.Is(err, context.Canceled)
}

// EventSource es una secuencia perezosa, no reiniciable, de eventos upstream.
// Next devuelve false cuando la secuencia se agoto. Close es idempotente.
type EventSource interface {
	Next() (Event, bool)
	Close() error
}

// StreamOpener abre un EventSource por cada request de chat.
type StreamOpener interface {
	Stream(ctx context.Context, req domain.ChatCompletionRequest) (EventSource, error)
}
