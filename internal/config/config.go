package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type Config struct {
	Port      string    `yaml:"port" env:"PORT" env-default:"8080"`
	LogLevel  string    `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Store     Store     `yaml:"store"`
	Providers Providers `yaml:"providers"`
	Optimize  Optimize  `yaml:"optimize"`
	HTTP      HTTP      `yaml:"http"`
}

type Store struct {
	Driver      string `yaml:"driver" env:"STORE_DRIVER" env-default:"mongo"`
	MongoURI    string `yaml:"mongo_uri" env:"MONGO_URI"`
	DBName      string `yaml:"db_name" env:"AUTH_DB_NAME" env-default:"voicepost"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`
}

type Providers struct {
	APIKey      string        `yaml:"api_key" env:"OPENAI_API_KEY"`
	BaseURL     string        `yaml:"base_url" env:"OPENAI_BASE_URL" env-default:"https://api.openai.com/v1"`
	STTModel    string        `yaml:"stt_model" env:"STT_MODEL" env-default:"whisper-1"`
	STTLanguage string        `yaml:"stt_language" env:"STT_LANGUAGE"`
	LLMModel    string        `yaml:"llm_model" env:"LLM_MODEL" env-default:"gpt-4o"`
	RateLimit   float64       `yaml:"rate_limit" env:"LLM_RATE_LIMIT" env-default:"0"`
	Timeout     time.Duration `yaml:"timeout" env:"PROVIDER_TIMEOUT" env-default:"45s"`
}

type Optimize struct {
	MaxAttempts int           `yaml:"max_attempts" env:"OPTIMIZE_MAX_ATTEMPTS" env-default:"3"`
	RetryDelay  time.Duration `yaml:"retry_delay" env:"OPTIMIZE_RETRY_DELAY" env-default:"1s"`
}

type HTTP struct {
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" env-default:"60s"`
	AllowedOrigins []string      `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-separator:"," env-default:"*"`
}

// Load reads CONFIG_PATH (yaml) when set, then the environment.
func Load() (*Config, error) {
	var cfg Config

	var err error
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	return cfg
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is not set")
		}
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is not set")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Optimize.MaxAttempts < 1 {
		return fmt.Errorf("OPTIMIZE_MAX_ATTEMPTS must be positive, got %d", c.Optimize.MaxAttempts)
	}
	if c.Optimize.RetryDelay < 0 {
		return fmt.Errorf("OPTIMIZE_RETRY_DELAY must not be negative")
	}
	if c.Providers.RateLimit < 0 {
		return fmt.Errorf("LLM_RATE_LIMIT must not be negative")
	}
	return nil
}
