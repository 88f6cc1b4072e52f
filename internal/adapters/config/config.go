package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"plutus/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	AI            AIConfig
	Agent         AgentConfig
	MarketData    MarketDataConfig
	Redis         RedisConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"plutus"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type ServerConfig struct {
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"15s"`
}

type AIConfig struct {
	// OpenAI backs both chat completions and image generation.
	OpenAIKey      string        `envconfig:"OPENAI_API_KEY" required:"true"`
	ChatModel      string        `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4o"`
	ImageModel     string        `envconfig:"OPENAI_IMAGE_MODEL" default:"dall-e-3"`
	Temperature    float64       `envconfig:"OPENAI_TEMPERATURE" default:"0.1"`
	MaxTokens      int           `envconfig:"OPENAI_MAX_TOKENS" default:"4096"`
	RequestTimeout time.Duration `envconfig:"OPENAI_REQUEST_TIMEOUT" default:"60s"`
	ReqPerMinute   float64       `envconfig:"OPENAI_REQ_PER_MINUTE" default:"500"`
}

type AgentConfig struct {
	MaxToolRounds int           `envconfig:"AGENT_MAX_TOOL_ROUNDS" default:"5"`
	TurnTimeout   time.Duration `envconfig:"AGENT_TURN_TIMEOUT" default:"90s"`
	ImageTaskTTL  time.Duration `envconfig:"AGENT_IMAGE_TASK_TTL" default:"1h"`
}

type MarketDataConfig struct {
	// CoinMarketCap is the primary crypto quote source and is required.
	CoinMarketCapKey string `envconfig:"COINMARKETCAP_API_KEY" required:"true"`

	// Optional providers: when a key is absent the matching tools are
	// simply not registered.
	AlphaVantageKey string `envconfig:"ALPHAVANTAGE_API_KEY"`
	FinnhubKey      string `envconfig:"FINNHUB_API_KEY"`

	RequestTimeout time.Duration `envconfig:"MARKET_DATA_REQUEST_TIMEOUT" default:"15s"`
	ReqPerMinute   float64       `envconfig:"MARKET_DATA_REQ_PER_MINUTE" default:"30"`
}

type RedisConfig struct {
	// Redis is optional: without it the image task store is in-memory.
	Enabled  bool   `envconfig:"REDIS_ENABLED" default:"false"`
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
