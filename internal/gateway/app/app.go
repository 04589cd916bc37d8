// Package app wires the gateway process: config, stores, LLM client,
// conversion service, routes and the HTTP server.
package app

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"springforge/internal/artifact"
	"springforge/internal/gateway/config"
	"springforge/internal/gateway/handler"
	"springforge/internal/gateway/server"
	"springforge/internal/gateway/service/convert"
	"springforge/internal/llm"
	"springforge/internal/session"
)

type App struct {
	server *server.Server
	store  *session.Store
	client llm.Client
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	client, err := llm.New(context.Background(), cfg.Pipeline.LLMOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm client: %w", err)
	}

	store := session.NewStoreFromEnv(filepath.Join(cfg.DataDir, "sessions.json"))
	svc := convert.New(store, newArtifactStore(cfg), client, cfg.Pipeline)

	mux := server.NewMux(handler.NewSessionHandler(svc), handler.NewWatchHandler(svc))
	srv := server.New(cfg.Port, mux)

	return &App{
		server: srv,
		store:  store,
		client: client,
	}, nil
}

// newArtifactStore prefers S3 when an endpoint is configured and falls
// back to the in-memory store, which serves downloads for the lifetime
// of the process.
func newArtifactStore(cfg *config.Config) artifact.Store {
	if cfg.Artifact.Enabled {
		s3Store, err := artifact.NewS3Store(artifact.S3Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err == nil {
			log.Printf("artifact store: s3 bucket=%s endpoint=%s", cfg.Artifact.Bucket, cfg.Artifact.Endpoint)
			return s3Store
		}
		log.Printf("artifact store: s3 unavailable, falling back to memory: %v", err)
	}
	return artifact.NewMemoryStore()
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.store.Close(); err == nil {
		err = cerr
	}
	if cerr := a.client.Close(); err == nil {
		err = cerr
	}
	return err
}
