// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/okdokhae/okdok/internal/evaluation"
	"github.com/okdokhae/okdok/internal/llm"
	"github.com/okdokhae/okdok/internal/logging"
	"github.com/okdokhae/okdok/internal/model"
)

// Config is everything the engine and its surfaces need.
type Config struct {
	// DBPath is the SQLite file. Empty means the XDG default.
	DBPath string

	// Locale selects cue-independent text: question templates, feedback
	// and hints.
	Locale string `validate:"oneof=en ko"`

	// ThresholdProfile is "canonical" or "lenient".
	ThresholdProfile string `validate:"oneof=canonical lenient"`

	// KeyNodes is how many key nodes the analyzer selects.
	KeyNodes int `validate:"min=1,max=12"`

	// EscalateAfter is the failure count on one stage that escalates.
	EscalateAfter int `validate:"min=1"`

	// Seed drives question template choice.
	Seed uint64

	// RedisAddr enables the cross-process session lock when set.
	RedisAddr string `validate:"omitempty,hostname_port"`
	LockTTL   time.Duration

	Log   logging.Config
	Model model.Config
	LLM   llm.Config `validate:"-"`
}

// Load reads .env if present, then OKDOK_* variables over the defaults,
// and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:           getEnv("OKDOK_DB_PATH", ""),
		Locale:           getEnv("OKDOK_LOCALE", "en"),
		ThresholdProfile: getEnv("OKDOK_THRESHOLD_PROFILE", "canonical"),
		KeyNodes:         getEnvAsInt("OKDOK_KEY_NODES", 3),
		EscalateAfter:    getEnvAsInt("OKDOK_ESCALATE_AFTER", 2),
		Seed:             uint64(getEnvAsInt("OKDOK_SEED", 1)),
		RedisAddr:        getEnv("OKDOK_REDIS_ADDR", ""),
		LockTTL:          getEnvAsDuration("OKDOK_LOCK_TTL", 30*time.Second),
	}

	cfg.Log = logging.DefaultConfig()
	cfg.Log.Level = getEnv("OKDOK_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = getEnv("OKDOK_LOG_FILE", "")
	cfg.Log.Production = getEnv("OKDOK_ENV", "development") == "production"

	cfg.Model = model.DefaultConfig()
	cfg.Model.Embedder = getEnv("OKDOK_EMBEDDER", cfg.Model.Embedder)
	cfg.Model.NLI = getEnv("OKDOK_NLI", cfg.Model.NLI)
	cfg.Model.RemoteAddr = getEnv("OKDOK_MODEL_ADDR", "")
	cfg.Model.CacheTTL = getEnvAsDuration("OKDOK_EMBED_CACHE_TTL", cfg.Model.CacheTTL)
	cfg.Model.HashDimensions = getEnvAsInt("OKDOK_HASH_DIMENSIONS", cfg.Model.HashDimensions)

	cfg.LLM = llm.ConfigFromEnv()
	if os.Getenv("OKDOK_LLM_PROVIDER") == "" {
		if discovered, ok := llm.DiscoverConfig(); ok {
			cfg.LLM = discovered
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks field constraints, and the LLM credentials when a
// component is configured to call a provider.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Model.Embedder == "remote" || c.Model.NLI == "remote" {
		if c.Model.RemoteAddr == "" {
			return fmt.Errorf("invalid configuration: OKDOK_MODEL_ADDR is required for the remote model backend")
		}
	}
	if c.NeedsLLM() {
		if err := c.LLM.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
	}
	return nil
}

// NeedsLLM reports whether a configured backend calls an LLM provider.
func (c *Config) NeedsLLM() bool {
	return c.Model.NLI == "llm"
}

// Thresholds returns the evaluator profile selected by ThresholdProfile.
func (c *Config) Thresholds() evaluation.Thresholds {
	if c.ThresholdProfile == "lenient" {
		return evaluation.LenientThresholds()
	}
	return evaluation.DefaultThresholds()
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}
