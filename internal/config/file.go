package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the project-local config file the CLI picks up when present.
const FileName = "springforge.yaml"

// fileSettings mirrors the yaml shape; zero values mean "not set".
type fileSettings struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`

	BasePackage string `yaml:"base_package"`
	Parallelism int    `yaml:"parallelism"`

	RetryAttempts  int     `yaml:"retry_attempts"`
	RetryBaseDelay string  `yaml:"retry_base_delay"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`

	MavenBin     string `yaml:"maven_bin"`
	MavenTimeout string `yaml:"maven_timeout"`
}

// LoadWithFile resolves env settings first, then lets the yaml file at
// path fill anything the environment left unset. A missing file is not
// an error; a malformed one is.
func LoadWithFile(path string) (Settings, error) {
	s, err := Load()
	if err != nil {
		return Settings{}, err
	}
	if path == "" {
		path = FileName
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return Settings{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var f fileSettings
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Settings{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	s = mergeFile(s, f)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// mergeFile applies file values only where the environment did not
// already decide (env wins over file, file wins over defaults).
func mergeFile(s Settings, f fileSettings) Settings {
	if os.Getenv("LLM_PROVIDER") == "" && f.Provider != "" {
		s.Provider = f.Provider
		s.APIKey = resolveAPIKey(f.Provider)
		if os.Getenv("LLM_MODEL") == "" && f.Model == "" {
			s.Model = defaultModelFor(f.Provider)
		}
	}
	if os.Getenv("LLM_BASE_URL") == "" && f.BaseURL != "" {
		s.BaseURL = f.BaseURL
	}
	if os.Getenv("LLM_MODEL") == "" && f.Model != "" {
		s.Model = f.Model
	}
	if os.Getenv("LLM_TEMPERATURE") == "" && f.Temperature != 0 {
		s.Temperature = f.Temperature
	}
	if os.Getenv("LLM_MAX_TOKENS") == "" && f.MaxTokens != 0 {
		s.MaxOutputTokens = f.MaxTokens
	}
	if os.Getenv("BASE_PACKAGE") == "" && f.BasePackage != "" {
		s.BasePackage = f.BasePackage
	}
	if os.Getenv("TRANSLATE_PARALLELISM") == "" && f.Parallelism != 0 {
		s.Parallelism = f.Parallelism
	}
	if os.Getenv("LLM_RETRY_ATTEMPTS") == "" && f.RetryAttempts != 0 {
		s.RetryAttempts = f.RetryAttempts
	}
	if os.Getenv("LLM_RETRY_BASE_DELAY") == "" && f.RetryBaseDelay != "" {
		if d, err := time.ParseDuration(f.RetryBaseDelay); err == nil {
			s.RetryBaseDelay = d
		}
	}
	if os.Getenv("LLM_RPS") == "" && f.RequestsPerSec != 0 {
		s.RequestsPerSec = f.RequestsPerSec
	}
	if os.Getenv("MAVEN_BIN") == "" && f.MavenBin != "" {
		s.MavenBin = f.MavenBin
	}
	if os.Getenv("MAVEN_TIMEOUT") == "" && f.MavenTimeout != "" {
		if d, err := time.ParseDuration(f.MavenTimeout); err == nil {
			s.MavenTimeout = d
		}
	}
	return s
}
