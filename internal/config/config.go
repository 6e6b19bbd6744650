package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config centraliza la configuración del servicio. Se carga una sola vez al arrancar.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"3000"`
	DatabaseURL string `env:"DATABASE_URL,required"`

	APIBaseURL      string        `env:"API_BASE_URL,required"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY,required"`
	ChatModel       string        `env:"CHAT_MODEL" envDefault:"gpt-3.5-turbo"`
	ChatTemperature float32       `env:"CHAT_TEMPERATURE" envDefault:"0.5"`
	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"0s"`
	SSEKeepAlive    time.Duration `env:"SSE_KEEPALIVE" envDefault:"15s"`

	JWTSecret       string `env:"JWT_SECRET,required"`
	TokenExpiryUnix int64  `env:"TOKEN_EXPIRY_UNIX" envDefault:"2000000000"`

	RedisAddr       string        `env:"REDIS_ADDR"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisDB         int           `env:"REDIS_DB" envDefault:"0"`
	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m"`
}

// LoadConfig carga la configuración desde variables de entorno.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// env marca required solo cuando la variable no existe; una variable vacia tambien es invalida.
func (c *Config) validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return errors.New("API_BASE_URL is empty")
	}
	if strings.TrimSpace(c.OpenAIAPIKey) == "" {
		return errors.New("OPENAI_API_KEY is empty")
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is empty")
	}
	if c.SSEKeepAlive <= 0 {
		c.SSEKeepAlive = 15 * time.Second
	}
	return nil
}
