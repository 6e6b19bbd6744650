package http

import (
	"io"
	"net/http"
	"strings"

	"chat-relay/internal/domain"
)

var (
	sseFieldReplacer  = strings.NewReplacer("\r", "", "\n", "")
	sseDataNormalizer = strings.NewReplacer("\r\n", "\n", "\r", "\n")
)

func setSSEHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// writeSSEEvent serializa un frame. Cada linea de data va con su propio prefijo y un
// espacio, asi el cliente recupera el payload exacto.
func writeSSEEvent(w io.Writer, ev domain.RelayEvent) error {
	var b strings.Builder
	if ev.ID != "" {
		b.WriteString("id: ")
		b.WriteString(sseFieldReplacer.Replace(ev.ID))
		b.WriteByte('\n')
	}
	if ev.Event != "" {
		b.WriteString("event: ")
		b.WriteString(sseFieldReplacer.Replace(ev.Event))
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(sseDataNormalizer.Replace(ev.Data), "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

// writeSSEKeepAlive escribe un comentario vacio; los clientes SSE lo ignoran.
func writeSSEKeepAlive(w io.Writer) error {
	_, err := io.WriteString(w, ":\n\n")
	return err
}
