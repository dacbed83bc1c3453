package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"
)

type Config struct {
	Server ServerConfig
	Upload UploadConfig
	OCR    OCRConfig
	LLM    LLMConfig
	Log    LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	RateLimitRPS   float64 // 0 disables the limiter
	RateLimitBurst int
}

type UploadConfig struct {
	Dir         string
	MaxBytes    int64
	MaxPDFPages int // 0 = no limit
}

type OCRConfig struct {
	Command string   // interpreter or binary, e.g. "python3"
	Args    []string // words placed before <path> <type>, e.g. the script path
	Timeout time.Duration
}

type LLMConfig struct {
	Provider    string // "openai" (any OpenAI-compatible endpoint), "anthropic" or "ollama"
	APIKey      string
	BaseURL     string // defaults to Groq for the openai provider only
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	OllamaURL   string
}

type LogConfig struct {
	Level string
}

const (
	defaultMaxUploadBytes = 10 << 20
	defaultBaseURL        = "https://api.groq.com/openai/v1"
	defaultModel          = "llama3-70b-8192"
)

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 5000)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	rps, err := getEnvFloat("RATE_LIMIT_RPS", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := getEnvInt("RATE_LIMIT_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	maxBytes, err := getEnvInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}

	maxPages, err := getEnvInt("MAX_PDF_PAGES", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_PDF_PAGES: %w", err)
	}

	ocrArgs, err := shlex.Split(getEnv("OCR_ARGS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid OCR_ARGS: %w", err)
	}

	ocrTimeout, err := getEnvDuration("OCR_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid OCR_TIMEOUT: %w", err)
	}

	temperature, err := getEnvFloat("LLM_TEMPERATURE", 0.5)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TEMPERATURE: %w", err)
	}

	maxTokens, err := getEnvInt("LLM_MAX_TOKENS", 1024)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_MAX_TOKENS: %w", err)
	}

	llmTimeout, err := getEnvDuration("LLM_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid LLM_TIMEOUT: %w", err)
	}

	provider := strings.ToLower(getEnv("LLM_PROVIDER", "openai"))
	baseURL := ""
	if provider == "openai" {
		baseURL = defaultBaseURL
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
			RateLimitRPS:   rps,
			RateLimitBurst: burst,
		},
		Upload: UploadConfig{
			Dir:         getEnv("UPLOAD_DIR", filepath.Join(os.TempDir(), "docextract-uploads")),
			MaxBytes:    maxBytes,
			MaxPDFPages: maxPages,
		},
		OCR: OCRConfig{
			Command: getEnv("OCR_COMMAND", "python3"),
			Args:    ocrArgs,
			Timeout: ocrTimeout,
		},
		LLM: LLMConfig{
			Provider:    provider,
			APIKey:      getEnv("LLM_API_KEY", ""),
			BaseURL:     getEnv("LLM_BASE_URL", baseURL),
			Model:       getEnv("LLM_MODEL", defaultModel),
			Temperature: temperature,
			MaxTokens:   maxTokens,
			Timeout:     llmTimeout,
			OllamaURL:   getEnv("OLLAMA_URL", "http://localhost:11434"),
		},
		Log: LogConfig{
			Level: strings.ToLower(getEnv("LOG_LEVEL", "info")),
		},
	}

	return cfg, nil
}

// SlogLevel maps LOG_LEVEL to a slog level; unknown values mean info.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// WriteTimeout bounds a whole upload response: both stage timeouts plus
// slack for staging and encoding. It is 0 (unbounded) when either stage
// timeout is disabled.
func (c *Config) WriteTimeout() time.Duration {
	if c.OCR.Timeout <= 0 || c.LLM.Timeout <= 0 {
		return 0
	}
	return c.OCR.Timeout + c.LLM.Timeout + 30*time.Second
}

func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("SERVER_PORT out of range: %d", c.Server.Port))
	}
	if c.OCR.Command == "" {
		problems = append(problems, "OCR_COMMAND is required")
	}
	if c.Upload.MaxBytes <= 0 {
		problems = append(problems, "MAX_UPLOAD_BYTES must be positive")
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
		if c.LLM.APIKey == "" {
			problems = append(problems, "LLM_API_KEY is required for provider "+c.LLM.Provider)
		}
	case "ollama":
	default:
		problems = append(problems, fmt.Sprintf("unknown LLM_PROVIDER %q", c.LLM.Provider))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
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
