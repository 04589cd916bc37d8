package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearGatewayEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GATEWAY_PORT", "PORT", "APP_ENV", "DATA_DIR",
		"ARTIFACT_MINIO_ENDPOINT", "ARTIFACT_S3_ENDPOINT",
		"ARTIFACT_S3_REGION", "ARTIFACT_S3_ACCESS_KEY", "ARTIFACT_S3_SECRET_KEY",
		"ARTIFACT_S3_BUCKET", "ARTIFACT_S3_USE_SSL",
		"MINIO_ROOT_USER", "MINIO_ROOT_PASSWORD",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("LLM_PROVIDER", "fake")
}

func TestLoadDefaults(t *testing.T) {
	clearGatewayEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "tmp", cfg.DataDir)
	assert.Equal(t, "fake", cfg.Pipeline.Provider)
	assert.False(t, cfg.Artifact.Enabled)
}

func TestLoadNormalizesPort(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("GATEWAY_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Port)
}

func TestLoadFallsBackToPort(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("PORT", ":7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Port)
}

func TestLoadLocalArtifactStore(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("APP_ENV", "local")
	t.Setenv("ARTIFACT_MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_ROOT_USER", "minioadmin")
	t.Setenv("MINIO_ROOT_PASSWORD", "minioadmin")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Artifact.Enabled)
	assert.Equal(t, "localhost:9000", cfg.Artifact.Endpoint)
	assert.Equal(t, "minioadmin", cfg.Artifact.AccessKey)
	assert.Equal(t, "springforge-artifacts", cfg.Artifact.Bucket)
	assert.False(t, cfg.Artifact.UseSSL)
}

func TestLoadRemoteArtifactStore(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("ARTIFACT_S3_ENDPOINT", "s3.eu-west-1.amazonaws.com")
	t.Setenv("ARTIFACT_S3_REGION", "eu-west-1")
	t.Setenv("ARTIFACT_S3_ACCESS_KEY", "AKIA123")
	t.Setenv("ARTIFACT_S3_SECRET_KEY", "secret")
	t.Setenv("ARTIFACT_S3_BUCKET", "releases")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Artifact.Enabled)
	assert.Equal(t, "eu-west-1", cfg.Artifact.Region)
	assert.Equal(t, "releases", cfg.Artifact.Bucket)
	assert.True(t, cfg.Artifact.UseSSL)

	// local MinIO endpoint is ignored outside the local env
	t.Setenv("ARTIFACT_S3_ENDPOINT", "")
	t.Setenv("ARTIFACT_MINIO_ENDPOINT", "localhost:9000")
	cfg, err = Load()
	require.NoError(t, err)
	assert.False(t, cfg.Artifact.Enabled)
}

func TestLoadUseSSLOverride(t *testing.T) {
	clearGatewayEnv(t)
	t.Setenv("APP_ENV", "staging")
	t.Setenv("ARTIFACT_S3_ENDPOINT", "minio.staging.internal:9000")
	t.Setenv("ARTIFACT_S3_USE_SSL", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Artifact.Enabled)
	assert.False(t, cfg.Artifact.UseSSL)
}
