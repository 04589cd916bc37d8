// Package config resolves gateway process settings: listen port,
// session store location and the artifact store credentials, layered
// on top of the shared pipeline settings.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	pipeline "springforge/internal/config"
)

type Config struct {
	Port     string
	Env      string
	DataDir  string
	Pipeline pipeline.Settings
	Artifact ArtifactConfig
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Load reads .env plus the environment. GATEWAY_PORT (or PORT) picks
// the listen address, APP_ENV selects local defaults for the artifact
// store, and the shared pipeline settings resolve as in the CLI.
func Load() (*Config, error) {
	_ = godotenv.Load()

	settings, err := pipeline.Load()
	if err != nil {
		return nil, err
	}

	port := firstNonEmpty(strings.TrimSpace(os.Getenv("GATEWAY_PORT")), strings.TrimSpace(os.Getenv("PORT")), ":8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port:     port,
		Env:      env,
		DataDir:  firstNonEmpty(strings.TrimSpace(os.Getenv("DATA_DIR")), "tmp"),
		Pipeline: settings,
		Artifact: loadArtifactConfig(env),
	}, nil
}

func loadArtifactConfig(env string) ArtifactConfig {
	endpoint := resolveArtifactEndpoint(env)
	return ArtifactConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("ARTIFACT_S3_BUCKET")), "springforge-artifacts"),
		UseSSL:    resolveArtifactUseSSL(env),
	}
}

// resolveArtifactEndpoint prefers the local MinIO endpoint when running
// in the local compose environment; elsewhere the endpoint must be set
// explicitly or the gateway falls back to the in-memory store.
func resolveArtifactEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return strings.TrimSpace(os.Getenv("ARTIFACT_MINIO_ENDPOINT"))
	}
	return strings.TrimSpace(os.Getenv("ARTIFACT_S3_ENDPOINT"))
}

func resolveArtifactUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("ARTIFACT_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
