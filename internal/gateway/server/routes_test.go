package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"springforge/internal/artifact"
	"springforge/internal/config"
	"springforge/internal/gateway/handler"
	"springforge/internal/gateway/service/convert"
	"springforge/internal/llm"
	"springforge/internal/session"
)

func newTestMux(t *testing.T) http.Handler {
	t.Helper()
	store := session.NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	svc := convert.New(store, artifact.NewMemoryStore(), llm.NewFakeClient(), config.Settings{
		Provider:      "fake",
		BasePackage:   "com.example.transpiled",
		WorkDirPrefix: "springforge-test-",
		MavenBin:      "no-such-maven-binary",
	})
	return NewMux(handler.NewSessionHandler(svc), handler.NewWatchHandler(svc))
}

func TestMuxServesSessionCollection(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sessions")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMuxHandlesPreflight(t *testing.T) {
	mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestMuxUnknownRoute(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMuxWatchRequiresSessionID(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/watch/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
