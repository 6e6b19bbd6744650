package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"chat-relay/internal/domain"
)

const (
	chatCompletionsPath = "/v1/chat/completions"
	maxErrorBodySize    = 4096
)

// HTTPClient abre streams de chat completions contra una API compatible con OpenAI.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient construye el cliente. timeout 0 significa sin limite, que es lo esperado
// para streams de larga duracion.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Stream arma la request y devuelve un EventSource perezoso: la conexion se abre en el
// primer Next. Falla con ErrConnect si la request no se puede construir.
func (c *HTTPClient) Stream(ctx context.Context, req domain.ChatCompletionRequest) (EventSource, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %v", ErrConnect, err)
	}

	endpoint := c.baseURL + chatCompletionsPath
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid url %q", ErrConnect, endpoint)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(streamCtx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	c.logger.Debug("chat completion request", zap.String("model", req.Model), zap.Int("messages", len(req.Messages)))

	return &httpEventSource{
		client: c.client,
		req:    httpReq,
		cancel: cancel,
	}, nil
}

type sourceState int

const (
	sourcePending sourceState = iota
	sourceOpen
	sourceDone
)

// httpEventSource no es seguro para Next concurrentes; Close si puede llamarse desde
// otra goroutine para cortar una lectura bloqueada.
type httpEventSource struct {
	client *http.Client
	req    *http.Request
	cancel context.CancelFunc

	state   sourceState
	decoder *frameDecoder

	mu        sync.Mutex
	body      io.ReadCloser
	closed    atomic.Bool
	closeOnce sync.Once
}

func (s *httpEventSource) Next() (Event, bool) {
	if s.closed.Load() {
		return Event{}, false
	}
	switch s.state {
	case sourcePending:
		return s.open()
	case sourceOpen:
		frame, err := s.decoder.Next()
		if err == nil {
			return Event{Kind: EventFrame, Frame: frame}, true
		}
		s.state = sourceDone
		s.decoder.Close()
		if s.closed.Load() {
			return Event{}, false
		}
		if errors.Is(err, io.EOF) {
			return Event{Kind: EventFailed, Err: ErrStreamEnded}, true
		}
		return Event{Kind: EventFailed, Err: fmt.Errorf("read stream: %w", err)}, true
	default:
		return Event{}, false
	}
}

func (s *httpEventSource) open() (Event, bool) {
	s.state = sourceDone
	resp, err := s.client.Do(s.req)
	if err != nil {
		if s.closed.Load() {
			return Event{}, false
		}
		return Event{Kind: EventFailed, Err: fmt.Errorf("do request: %w", err)}, true
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		resp.Body.Close()
		return Event{Kind: EventFailed, Err: fmt.Errorf("upstream status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))}, true
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "text/event-stream" {
		resp.Body.Close()
		return Event{Kind: EventFailed, Err: fmt.Errorf("upstream content type %q is not text/event-stream", resp.Header.Get("Content-Type"))}, true
	}

	s.mu.Lock()
	if s.closed.Load() {
		s.mu.Unlock()
		resp.Body.Close()
		return Event{}, false
	}
	s.body = resp.Body
	s.decoder = newFrameDecoder(resp.Body)
	s.mu.Unlock()

	s.state = sourceOpen
	return Event{Kind: EventOpened}, true
}

func (s *httpEventSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		body := s.body
		decoder := s.decoder
		s.mu.Unlock()

		s.cancel()
		if body != nil {
			err = body.Close()
		}
		if decoder != nil {
			decoder.Close()
		}
	})
	return err
}
