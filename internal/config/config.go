package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Load reads the .env file specified by SIGNALREALM_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("SIGNALREALM_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// PromptsDir returns the template directory override.
// Empty means the templates compiled into the binary.
func PromptsDir() string {
	return os.Getenv("PROMPTS_DIR")
}

// LLMTimeout bounds a single model call.
// Defaults to 120s if not set.
func LLMTimeout() time.Duration {
	secs, err := strconv.Atoi(os.Getenv("LLM_TIMEOUT_SECONDS"))
	if err != nil || secs <= 0 {
		return 120 * time.Second
	}
	return time.Duration(secs) * time.Second
}

// LLMRateLimitRPS returns the per-account model call rate.
// Defaults to 1 if not set.
func LLMRateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("LLM_RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 1
	}
	return rps
}

func LLMRateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("LLM_RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 2
	}
	return burst
}

func AnthropicBaseURL() string {
	return os.Getenv("ANTHROPIC_BASE_URL")
}

func OpenAIBaseURL() string {
	return os.Getenv("OPENAI_BASE_URL")
}

func GeminiBaseURL() string {
	return os.Getenv("GEMINI_BASE_URL")
}

func CerebrasBaseURL() string {
	return os.Getenv("CEREBRAS_BASE_URL")
}

// LLMMockEnabled registers the canned "mock" provider. Development only.
func LLMMockEnabled() bool {
	enabled, err := strconv.ParseBool(os.Getenv("LLM_ENABLE_MOCK"))
	return err == nil && enabled
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// NewLogger builds a production zap logger at LogLevel().
func NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(LogLevel())
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", LogLevel(), err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}
