package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverDynamoDB = "dynamodb"

	DialogueModeRules      = "rules"
	DialogueModeGenerative = "generative"
)

type Config struct {
	Log      Log      `yaml:"log"`
	HTTP     HTTP     `yaml:"http"`
	Store    Store    `yaml:"store"`
	LLM      LLM      `yaml:"llm"`
	Dialogue Dialogue `yaml:"dialogue"`
	MCP      MCP      `yaml:"mcp"`
}

type Log struct {
	// Minimum level of console logs
	Level string `yaml:"level" example:"debug" validate:"required,oneof=debug info warn error"`
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

type HTTP struct {
	// Listen address of the chat API
	Listen string `yaml:"listen" example:":8080" validate:"required"`
	// Comma separated list of allowed CORS origins
	AllowOrigins string `yaml:"allow_origins" example:"*"`
}

type Store struct {
	// Record store driver
	Driver string `yaml:"driver" example:"dynamodb" validate:"required,oneof=memory dynamodb"`
	// JSON lines file with venues loaded into the memory store on start
	SeedFile string `yaml:"seed_file" example:"data/venues.jsonl"`
	// DynamoDB settings, used by the dynamodb driver
	DynamoDB DynamoDB `yaml:"dynamodb"`
}

type DynamoDB struct {
	// AWS region
	Region string `yaml:"region" example:"us-east-1"`
	// Endpoint override, e.g. for dynamodb-local
	Endpoint string `yaml:"endpoint" example:"http://localhost:8000"`
	// Chat sessions table
	SessionsTable string `yaml:"sessions_table" example:"ChatSessions"`
	// Chat messages table
	MessagesTable string `yaml:"messages_table" example:"ChatMessages"`
	// Venues table
	VenuesTable string `yaml:"venues_table" example:"Spots"`
}

type LLM struct {
	// OpenAI-compatible base url
	BaseURL string `yaml:"base_url" example:"https://openrouter.ai/api/v1" validate:"omitempty,url"`
	// API token, generative features are disabled when empty
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX"`
	// Model name
	Model string `yaml:"model" example:"anthropic/claude-3-haiku"`
	// Maximum tokens per completion
	MaxTokens int `yaml:"max_tokens" example:"1500" validate:"gte=0"`
	// Sampling temperature
	Temperature float64 `yaml:"temperature" example:"0.7" validate:"gte=0,lte=2"`
	// Consecutive failures before the circuit breaker opens
	FailureThreshold uint32 `yaml:"failure_threshold" example:"3"`
	// How long the circuit breaker stays open
	CooldownPeriod time.Duration `yaml:"cooldown_period" example:"1m"`
}

type Dialogue struct {
	// Preference gathering mode
	Mode string `yaml:"mode" example:"rules" validate:"required,oneof=rules generative"`
}

type MCP struct {
	// Expose extraction and recommendation as MCP tools under /mcp
	Enabled bool `yaml:"enabled" example:"false"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var result Config

	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	result.applyDefaults()

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "debug"
	}

	if c.HTTP.Listen == "" {
		c.HTTP.Listen = ":8080"
	}
	if c.HTTP.AllowOrigins == "" {
		c.HTTP.AllowOrigins = "*"
	}

	if c.Store.Driver == "" {
		c.Store.Driver = StoreDriverMemory
	}
	if c.Store.DynamoDB.Region == "" {
		c.Store.DynamoDB.Region = "us-east-1"
	}
	if c.Store.DynamoDB.SessionsTable == "" {
		c.Store.DynamoDB.SessionsTable = "ChatSessions"
	}
	if c.Store.DynamoDB.MessagesTable == "" {
		c.Store.DynamoDB.MessagesTable = "ChatMessages"
	}
	if c.Store.DynamoDB.VenuesTable == "" {
		c.Store.DynamoDB.VenuesTable = "Spots"
	}

	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1500
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.FailureThreshold == 0 {
		c.LLM.FailureThreshold = 3
	}
	if c.LLM.CooldownPeriod == 0 {
		c.LLM.CooldownPeriod = time.Minute
	}

	if c.Dialogue.Mode == "" {
		c.Dialogue.Mode = DialogueModeRules
	}
}
