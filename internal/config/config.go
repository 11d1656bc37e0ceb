package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries every setting the service needs. It is loaded once at
// startup and passed explicitly into the components that use it; nothing
// reads ambient globals after Load returns.
type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Redis (queue broker + result backend + durable task-id set)
	RedisURL string

	// Text generation
	LLMProvider string // "openai" or "gemini"
	OpenAIKey   string
	GeminiKey   string
	Temperature float32

	// Image search
	PexelsKey string

	// Story / video generation
	OutputDir     string  // root directory for per-task working directories
	Language      string  // story output language: "english" or "vietnamese"
	VoiceRate     float64 // narration speed multiplier
	MaxStoryWords int

	// Cleanup policy for a task's working directory. Both default to false:
	// outputs are retained after success and after exhausted failure.
	CleanupOnSuccess bool
	CleanupOnFailure bool

	// Telegram notifications (optional; empty token disables)
	TelegramBotToken string
	TelegramChatID   string

	// Worker
	MaxConcurrentJobs int
}

// fileConfig mirrors the optional config.yaml layout. Environment variables
// always win over file values.
type fileConfig struct {
	App struct {
		OutputFolder string `yaml:"output_folder"`
	} `yaml:"app"`
	Video struct {
		Language  string  `yaml:"language"`
		VoiceRate float64 `yaml:"voice_rate"`
	} `yaml:"video"`
	LLM struct {
		Provider    string  `yaml:"provider"`
		Temperature float32 `yaml:"temperature"`
	} `yaml:"llm"`
	Story struct {
		MaxWords int `yaml:"max_words"`
	} `yaml:"story"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
}

// Load reads .env (if present), the optional config.yaml, and the
// environment, then validates required fields.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	fc := loadFileConfig(getEnv("CONFIG_FILE", "config.yaml"))

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		LLMProvider:        getEnv("LLM_PROVIDER", withDefault(fc.LLM.Provider, "openai")),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		GeminiKey:          getEnv("GEMINI_API_KEY", ""),
		Temperature:        fc.LLM.Temperature,
		PexelsKey:          getEnv("PEXELS_API_KEY", ""),
		OutputDir:          getEnv("OUTPUT_DIR", withDefault(fc.App.OutputFolder, "output")),
		Language:           strings.ToLower(strings.TrimSpace(getEnv("LANGUAGE", withDefault(fc.Video.Language, "english")))),
		VoiceRate:          getEnvFloat("VOICE_RATE", withDefaultFloat(fc.Video.VoiceRate, 1.0)),
		MaxStoryWords:      getEnvInt("MAX_STORY_WORDS", withDefaultInt(fc.Story.MaxWords, 200)),
		CleanupOnSuccess:   getEnvBool("CLEANUP_ON_SUCCESS", false),
		CleanupOnFailure:   getEnvBool("CLEANUP_ON_FAILURE", false),
		TelegramBotToken:   getEnv("TELEGRAM_BOT_TOKEN", fc.Telegram.BotToken),
		TelegramChatID:     getEnv("TELEGRAM_CHAT_ID", fc.Telegram.ChatID),
		MaxConcurrentJobs:  getEnvInt("MAX_CONCURRENT_JOBS", 1),
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 1.0
	}

	// Validate required fields
	switch cfg.LLMProvider {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case "gemini":
		if cfg.GeminiKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q (want openai or gemini)", cfg.LLMProvider)
	}

	if cfg.WorkerEnabled && cfg.PexelsKey == "" {
		return nil, fmt.Errorf("PEXELS_API_KEY is required when the worker is enabled")
	}

	if cfg.Language != "english" && cfg.Language != "vietnamese" {
		return nil, fmt.Errorf("unsupported language %q (want english or vietnamese)", cfg.Language)
	}

	return cfg, nil
}

// Reload re-reads the configuration sources in place. This is the only
// supported way to pick up config changes at runtime.
func (c *Config) Reload() error {
	nc, err := Load()
	if err != nil {
		return fmt.Errorf("config reload failed: %w", err)
	}
	*c = *nc
	return nil
}

func loadFileConfig(path string) fileConfig {
	var fc fileConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return fc // file is optional
	}

	// A malformed file is ignored rather than fatal; env vars still apply.
	_ = yaml.Unmarshal(data, &fc)
	return fc
}

func withDefault(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

func withDefaultInt(value, defaultValue int) int {
	if value != 0 {
		return value
	}
	return defaultValue
}

func withDefaultFloat(value, defaultValue float64) float64 {
	if value != 0 {
		return value
	}
	return defaultValue
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}
