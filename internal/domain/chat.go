package domain

// Roles aceptados por la API de chat completions.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionRequest es el cuerpo enviado al proveedor.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float32       `json:"temperature"`
}

// NewChatCompletionRequest arma una request en modo streaming.
func NewChatCompletionRequest(model string, temperature float32, messages ...ChatMessage) ChatCompletionRequest {
	return ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Stream:      true,
		Temperature: temperature,
	}
}

// RelayEvent es un frame SSE, tal como llega del proveedor y tal como se reenvia.
type RelayEvent struct {
	ID    string `json:"id,omitempty"`
	Event string `json:"event,omitempty"`
	Data  string `json:"data"`
}
