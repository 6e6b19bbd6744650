package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-relay/internal/domain"
	"chat-relay/internal/llm"
	"chat-relay/internal/relay"
)

// ChatHandler reenvia conversaciones al proveedor y devuelve su respuesta como SSE.
type ChatHandler struct {
	logger      *zap.Logger
	opener      llm.StreamOpener
	model       string
	temperature float32
	keepAlive   time.Duration
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, opener llm.StreamOpener, model string, temperature float32, keepAlive time.Duration) *ChatHandler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &ChatHandler{
		logger:      logger,
		opener:      opener,
		model:       model,
		temperature: temperature,
		keepAlive:   keepAlive,
	}
}

// Chat maneja POST /chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var msg domain.ChatMessage
	if err := c.ShouldBindJSON(&msg); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		writeError(c, http.StatusBadRequest, CodeInvalidCredentials, msgInvalidRequest)
		return
	}
	if strings.TrimSpace(msg.Role) == "" {
		msg.Role = domain.RoleUser
	}

	logger := h.logger.With(zap.String("username", claims.Username))
	logger.Info("chat request", zap.String("role", msg.Role), zap.Int("content_len", len(msg.Content)))

	req := domain.NewChatCompletionRequest(h.model, h.temperature, msg)
	ctx := c.Request.Context()
	stream, err := relay.Open(ctx, h.opener, req, logger)
	if err != nil {
		logger.Error("open upstream stream", zap.Error(err))
		writeError(c, http.StatusInternalServerError, CodeInternal, msgInternal)
		return
	}
	defer stream.Close()

	w := c.Writer
	setSSEHeaders(w.Header())
	w.WriteHeader(http.StatusOK)
	w.WriteHeaderNow()
	w.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	events := stream.Events()
	for {
		select {
		case <-ctx.Done():
			logger.Debug("client disconnected")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, ev); err != nil {
				logger.Debug("write event", zap.Error(err))
				return
			}
			w.Flush()
			ticker.Reset(h.keepAlive)
		case <-ticker.C:
			if err := writeSSEKeepAlive(w); err != nil {
				return
			}
			w.Flush()
		}
	}
}
