// Package config resolves the process-wide settings exactly once at
// startup. The resulting Settings value is immutable and handed to
// constructors; nothing in the pipeline reads the environment at call
// time.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"springforge/internal/llm"
)

const (
	DefaultProvider    = "openai"
	DefaultModel       = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.0-flash"

	DefaultBasePackage   = "com.example.transpiled"
	DefaultWorkDirPrefix = "springforge-"

	DefaultTemperature    = 0.1
	DefaultMaxTokens      = 4096
	DefaultMaxPromptFiles = 1000

	DefaultRetryAttempts = 3
	DefaultParallelism   = 4
)

var (
	DefaultRetryBaseDelay = 2 * time.Second
	DefaultMavenTimeout   = 5 * time.Minute
)

// Settings carries every knob the pipeline needs.
type Settings struct {
	Provider        string
	BaseURL         string
	APIKey          string
	Model           string
	Temperature     float64
	MaxOutputTokens int

	BasePackage    string
	WorkDirPrefix  string
	MaxPromptFiles int

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RequestsPerSec float64
	Burst          int

	Parallelism  int
	MavenBin     string
	MavenTimeout time.Duration
}

// Load resolves Settings from .env plus the process environment.
func Load() (Settings, error) {
	_ = godotenv.Load()

	s := Settings{
		Provider:        strings.ToLower(firstNonEmpty(os.Getenv("LLM_PROVIDER"), DefaultProvider)),
		BaseURL:         strings.TrimSpace(os.Getenv("LLM_BASE_URL")),
		Model:           strings.TrimSpace(os.Getenv("LLM_MODEL")),
		Temperature:     envFloat("LLM_TEMPERATURE", DefaultTemperature),
		MaxOutputTokens: envInt("LLM_MAX_TOKENS", DefaultMaxTokens),
		BasePackage:     firstNonEmpty(os.Getenv("BASE_PACKAGE"), DefaultBasePackage),
		WorkDirPrefix:   firstNonEmpty(os.Getenv("WORK_DIR_PREFIX"), DefaultWorkDirPrefix),
		MaxPromptFiles:  envInt("MAX_PROMPT_FILES", DefaultMaxPromptFiles),
		RetryAttempts:   envInt("LLM_RETRY_ATTEMPTS", DefaultRetryAttempts),
		RetryBaseDelay:  envDuration("LLM_RETRY_BASE_DELAY", DefaultRetryBaseDelay),
		RequestsPerSec:  envFloat("LLM_RPS", 0),
		Burst:           envInt("LLM_BURST", 0),
		Parallelism:     envInt("TRANSLATE_PARALLELISM", DefaultParallelism),
		MavenBin:        firstNonEmpty(os.Getenv("MAVEN_BIN"), "mvn"),
		MavenTimeout:    envDuration("MAVEN_TIMEOUT", DefaultMavenTimeout),
	}
	s.APIKey = resolveAPIKey(s.Provider)
	if s.Model == "" {
		s.Model = defaultModelFor(s.Provider)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate rejects values the pipeline cannot run with. Called by Load;
// exported so merged CLI settings can be re-checked.
func (s Settings) Validate() error {
	switch s.Provider {
	case "openai", "gemini", "fake":
	default:
		return fmt.Errorf("config: unknown LLM provider %q", s.Provider)
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("config: temperature %v out of range [0, 2]", s.Temperature)
	}
	if s.MaxOutputTokens <= 0 {
		return fmt.Errorf("config: max output tokens must be positive")
	}
	if s.RetryAttempts < 1 {
		return fmt.Errorf("config: retry attempts must be at least 1")
	}
	if s.Parallelism < 1 {
		return fmt.Errorf("config: parallelism must be at least 1")
	}
	if !validBasePackage(s.BasePackage) {
		return fmt.Errorf("config: invalid base package %q", s.BasePackage)
	}
	return nil
}

// WithProvider rebinds the provider on resolved settings, picking up
// that provider's API key and default model the way Load does. The
// model survives only when the environment pinned it explicitly.
func (s Settings) WithProvider(provider string) Settings {
	s.Provider = strings.ToLower(strings.TrimSpace(provider))
	s.APIKey = resolveAPIKey(s.Provider)
	if strings.TrimSpace(os.Getenv("LLM_MODEL")) == "" {
		s.Model = defaultModelFor(s.Provider)
	}
	return s
}

// LLMOptions maps the provider knobs onto a client configuration.
func (s Settings) LLMOptions() llm.Options {
	return llm.Options{
		Provider:        s.Provider,
		BaseURL:         s.BaseURL,
		APIKey:          s.APIKey,
		Model:           s.Model,
		Temperature:     s.Temperature,
		MaxOutputTokens: s.MaxOutputTokens,
		RetryAttempts:   s.RetryAttempts,
		RetryBaseDelay:  s.RetryBaseDelay,
		RequestsPerSec:  s.RequestsPerSec,
		Burst:           s.Burst,
	}
}

// validBasePackage accepts dotted lowercase Java package names.
func validBasePackage(pkg string) bool {
	if pkg == "" {
		return false
	}
	for _, seg := range strings.Split(pkg, ".") {
		if seg == "" {
			return false
		}
		for i, r := range seg {
			switch {
			case r >= 'a' && r <= 'z':
			case r == '_':
			case r >= '0' && r <= '9':
				if i == 0 {
					return false
				}
			default:
				return false
			}
		}
	}
	return true
}

func resolveAPIKey(provider string) string {
	generic := strings.TrimSpace(os.Getenv("LLM_API_KEY"))
	switch provider {
	case "gemini":
		return firstNonEmpty(generic, os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
	case "openai":
		return firstNonEmpty(generic, os.Getenv("OPENAI_API_KEY"), os.Getenv("GROQ_API_KEY"))
	default:
		return generic
	}
}

func defaultModelFor(provider string) string {
	if provider == "gemini" {
		return DefaultGeminiModel
	}
	return DefaultModel
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
