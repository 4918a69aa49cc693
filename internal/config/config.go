package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is resolved once at startup and handed to every component.
type Config struct {
	Port string

	DatabaseDriver string
	DatabaseURL    string
	SeedDemo       bool

	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string
	TTSModel      string
	TTSVoice      string

	StreamTimeout         time.Duration
	MaxTurnMessages       int
	TTSMaxChars           int
	ConversationListLimit int

	AllowedOrigins []string

	LogLevel  string
	LogFormat string
}

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is not set")

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("database_driver", "postgres")
	v.SetDefault("seed_demo", false)
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("openai_tts_model", "tts-1")
	v.SetDefault("openai_tts_voice", "alloy")
	v.SetDefault("chat_stream_timeout", "30s")
	v.SetDefault("chat_max_messages", 100)
	v.SetDefault("tts_max_chars", 4096)
	v.SetDefault("conversation_list_limit", 20)
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	cfg := Config{
		Port:                  v.GetString("port"),
		DatabaseDriver:        v.GetString("database_driver"),
		DatabaseURL:           strings.TrimSpace(v.GetString("database_url")),
		SeedDemo:              v.GetBool("seed_demo"),
		OpenAIAPIKey:          strings.TrimSpace(v.GetString("openai_api_key")),
		OpenAIBaseURL:         strings.TrimRight(strings.TrimSpace(v.GetString("openai_base_url")), "/"),
		OpenAIModel:           v.GetString("openai_model"),
		TTSModel:              v.GetString("openai_tts_model"),
		TTSVoice:              v.GetString("openai_tts_voice"),
		StreamTimeout:         v.GetDuration("chat_stream_timeout"),
		MaxTurnMessages:       v.GetInt("chat_max_messages"),
		TTSMaxChars:           v.GetInt("tts_max_chars"),
		ConversationListLimit: v.GetInt("conversation_list_limit"),
		AllowedOrigins:        splitList(v.GetString("cors_allowed_origins")),
		LogLevel:              v.GetString("log_level"),
		LogFormat:             v.GetString("log_format"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, ErrMissingDatabaseURL
	}
	if cfg.StreamTimeout <= 0 {
		cfg.StreamTimeout = 30 * time.Second
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
