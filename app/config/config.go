package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Log    Log    `yaml:"log"`
	Server Server `yaml:"server"`
	Chat   Chat   `yaml:"chat"`
	OpenAI OpenAI `yaml:"openai"`
}

type Server struct {
	// Address to serve the widget API on
	Address string `yaml:"address" example:":8080" validate:"required"`
}

type Chat struct {
	// Assistant message seeded into every fresh conversation
	Greeting string `yaml:"greeting" example:"Hello! How can I help you today?" validate:"required"`
	// Maximum accepted length of a submission, in characters (after trimming)
	MaxInputLength int `yaml:"max_input_length" example:"2048" validate:"gt=0"`
	// Lower bound of the simulated reply latency
	MinReplyDelayMs int `yaml:"min_reply_delay_ms" example:"1000" validate:"gte=0"`
	// Upper bound of the simulated reply latency
	MaxReplyDelayMs int `yaml:"max_reply_delay_ms" example:"2200" validate:"gte=0"`
	// Reply used when the generator fails, so the conversation never stays pending
	FallbackReply string `yaml:"fallback_reply" example:"Sorry, something went wrong on my end." validate:"required"`
}

type OpenAI struct {
	// OpenAI base url, leave empty to use the built-in rule table
	BaseURL string `yaml:"base_url" example:"https://openrouter.ai/api/v1"`
	// OpenAI token
	Token string `yaml:"token" example:"sk-proj-abc123456789DEF789ghi012JKL345mno678PQR901stu234VWX"`
	// OpenAI model
	Model string `yaml:"model" example:"deepseek/deepseek-chat-v3-0324:free"`
}

type Log struct {
	// Telegram logging config
	Telegram TelegramLog `yaml:"telegram"`
}

type TelegramLog struct {
	// Chat bot token, obtain it via BotFather
	Token string `yaml:"token" example:"1234567890:ABCdefGHIjklMNopQRstUVwxyZ-123456789"`
	// Chat ID to send messages to
	ChatID string `yaml:"chat_id" example:"1001234567890"`
}

// Default returns a config usable without a config.yaml, with the
// stock greeting and latency bounds.
func Default() *Config {
	return &Config{
		Server: Server{
			Address: ":8080",
		},
		Chat: Chat{
			Greeting:        "Hello! How can I help you today?",
			MaxInputLength:  2048,
			MinReplyDelayMs: 1000,
			MaxReplyDelayMs: 2200,
			FallbackReply:   "Sorry, something went wrong on my end.",
		},
	}
}

func Load() (*Config, error) {
	var result Config

	data, err := os.ReadFile("config.yaml")
	if err != nil {
		return nil, oops.Errorf("failed to read config file: %w", err)
	}

	if err = yaml.Unmarshal(data, &result); err != nil {
		return nil, oops.Errorf("failed to parse YAML config: %w", err)
	}

	defaults := Default()

	if result.Server.Address == "" {
		result.Server.Address = defaults.Server.Address
	}
	if result.Chat.Greeting == "" {
		result.Chat.Greeting = defaults.Chat.Greeting
	}
	if result.Chat.MaxInputLength == 0 {
		result.Chat.MaxInputLength = defaults.Chat.MaxInputLength
	}
	if result.Chat.MinReplyDelayMs == 0 {
		result.Chat.MinReplyDelayMs = defaults.Chat.MinReplyDelayMs
	}
	if result.Chat.MaxReplyDelayMs == 0 {
		result.Chat.MaxReplyDelayMs = defaults.Chat.MaxReplyDelayMs
	}
	if result.Chat.FallbackReply == "" {
		result.Chat.FallbackReply = defaults.Chat.FallbackReply
	}

	if result.Chat.MaxReplyDelayMs < result.Chat.MinReplyDelayMs {
		return nil, oops.Errorf("max_reply_delay_ms (%d) is less than min_reply_delay_ms (%d)",
			result.Chat.MaxReplyDelayMs, result.Chat.MinReplyDelayMs)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(result); err != nil {
		return nil, oops.Errorf("failed to validate config: %w", err)
	}

	return &result, nil
}
