package llm

import (
	"io"
	"iter"
	"sync"

	sse "github.com/tmaxmax/go-sse"

	"chat-relay/internal/domain"
)

const maxSSEEventSize = 1 << 20

// frameDecoder adapta el iterador de go-sse a una lectura de a un frame por vez.
// next y stop no pueden correr a la vez; Close espera a que termine la lectura en curso,
// por eso quien cierra desde otra goroutine debe cerrar antes el reader.
type frameDecoder struct {
	mu   sync.Mutex
	next func() (sse.Event, error, bool)
	stop func()
}

func newFrameDecoder(r io.Reader) *frameDecoder {
	events := iter.Seq2[sse.Event, error](sse.Read(r, &sse.ReadConfig{MaxEventSize: maxSSEEventSize}))
	next, stop := iter.Pull2(events)
	return &frameDecoder{next: next, stop: stop}
}

// Next bloquea hasta completar un frame y devuelve io.EOF al terminar el cuerpo.
// El id recibido persiste en los frames siguientes que no traen uno propio.
func (d *frameDecoder) Next() (domain.RelayEvent, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	ev, err, ok := d.next()
	if !ok {
		return domain.RelayEvent{}, io.EOF
	}
	if err != nil {
		d.stop()
		return domain.RelayEvent{}, err
	}
	return domain.RelayEvent{
		ID:    ev.LastEventID,
		Event: ev.Type,
		Data:  ev.Data,
	}, nil
}

// Close libera el iterador; es seguro llamarlo mas de una vez.
func (d *frameDecoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stop()
}
