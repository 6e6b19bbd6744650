package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"chat-relay/internal/domain"
	"chat-relay/internal/llm"
	"chat-relay/internal/relay"
)

// cliConfig es el subconjunto de config que usa el CLI; no necesita base de datos ni JWT.
type cliConfig struct {
	APIBaseURL      string        `env:"API_BASE_URL,required,notEmpty"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY,required,notEmpty"`
	ChatModel       string        `env:"CHAT_MODEL" envDefault:"gpt-3.5-turbo"`
	ChatTemperature float32       `env:"CHAT_TEMPERATURE" envDefault:"0.5"`
	Timeout         time.Duration `env:"CLI_UPSTREAM_TIMEOUT" envDefault:"24h"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	var cfg cliConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	client := llm.NewHTTPClient(cfg.APIBaseURL, cfg.OpenAIAPIKey, cfg.Timeout, logger)
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Print("\n> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		prompt := strings.TrimSpace(line)
		if prompt == "" {
			continue
		}
		if prompt == "/exit" {
			return
		}

		req := domain.NewChatCompletionRequest(cfg.ChatModel, cfg.ChatTemperature, domain.ChatMessage{Role: domain.RoleUser, Content: prompt})
		if err := streamPrompt(ctx, client, req, logger); err != nil {
			log.Fatal(err)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func streamPrompt(ctx context.Context, client llm.StreamOpener, req domain.ChatCompletionRequest, logger *zap.Logger) error {
	stream, err := relay.Open(ctx, client, req, logger)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		ev, ok := stream.Next(ctx)
		if !ok {
			return nil
		}
		if content, ok := deltaContent(ev.Data); ok {
			fmt.Print(content)
			continue
		}
		fmt.Printf("\n[%s] %s\n", orDefault(ev.Event, "message"), ev.Data)
	}
}
