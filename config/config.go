package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the process configuration, read from the environment.
//
// The TTL, sweep and keep-alive values are tunable; correctness does not
// depend on them. The keep-alive exists to defeat idle-connection reapers in
// intermediary infrastructure, not as a liveness protocol.
type Config struct {
	Port               string        `envconfig:"PORT" default:"3000"`
	CORSAllowedOrigins string        `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	SessionTTL         time.Duration `envconfig:"SESSION_TTL" default:"2h"`
	SweepInterval      time.Duration `envconfig:"SWEEP_INTERVAL" default:"5m"`
	KeepAliveInterval  time.Duration `envconfig:"KEEPALIVE_INTERVAL" default:"30s"`

	LLMBaseURL string `envconfig:"LLM_BASE_URL" default:"https://api.openai.com/v1"`
	LLMAPIKey  string `envconfig:"LLM_API_KEY"`
	LLMModel   string `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	MaxRounds  int    `envconfig:"MAX_ROUNDS" default:"4"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
