package handler

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"springforge/internal/artifact"
	"springforge/internal/config"
	"springforge/internal/gateway/service/convert"
	"springforge/internal/llm"
	"springforge/internal/session"
)

func newConvertService(t *testing.T) *convert.Service {
	t.Helper()
	store := session.NewStore(filepath.Join(t.TempDir(), "sessions.json"))
	settings := config.Settings{
		Provider:        "fake",
		Temperature:     0.1,
		MaxOutputTokens: 1024,
		BasePackage:     "com.example.transpiled",
		WorkDirPrefix:   "springforge-test-",
		MaxPromptFiles:  100,
		RetryAttempts:   1,
		Parallelism:     2,
		MavenBin:        "no-such-maven-binary",
		MavenTimeout:    time.Minute,
	}
	return convert.New(store, artifact.NewMemoryStore(), llm.NewFakeClient(), settings)
}

func newTestMux(t *testing.T) (*convert.Service, http.Handler) {
	t.Helper()
	svc := newConvertService(t)
	mux := http.NewServeMux()
	sh := NewSessionHandler(svc)
	wh := NewWatchHandler(svc)
	mux.HandleFunc("/api/sessions", sh.HandleCollection)
	mux.HandleFunc("/api/sessions/", sh.HandleResource)
	mux.HandleFunc("/api/watch/", wh.HandleWatchSSE)
	return svc, mux
}

func writeRailsFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"Gemfile": "source \"https://rubygems.org\"\n" +
			"gem \"rails\"\n",
		"app/models/product.rb": "class Product < ApplicationRecord\n" +
			"end\n",
		"app/controllers/products_controller.rb": "class ProductsController < ApplicationController\n" +
			"end\n",
	}
	for rel, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return dir
}

func startSession(t *testing.T, mux http.Handler, source string) session.Session {
	t.Helper()
	body, err := json.Marshal(map[string]string{"source_url": source})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/sessions", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sess session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.ID)
	return sess
}

func waitForState(t *testing.T, svc *convert.Service, id string, want session.State) session.Session {
	t.Helper()
	var got session.Session
	require.Eventually(t, func() bool {
		sess, ok := svc.Get(id)
		if !ok {
			return false
		}
		got = sess
		return sess.State == want
	}, 10*time.Second, 10*time.Millisecond, "session never reached state %s", want)
	return got
}

func approveWhenReady(t *testing.T, svc *convert.Service, id string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return svc.Review(id, convert.Decision{Action: convert.ActionApprove}) == nil
	}, 10*time.Second, 10*time.Millisecond)
}

func TestCreateSessionFromJSON(t *testing.T) {
	svc, mux := newTestMux(t)
	sess := startSession(t, mux, writeRailsFixture(t))

	assert.Equal(t, session.StateInput, sess.State)
	waitForState(t, svc, sess.ID, session.StateReviewing)
}

func TestCreateSessionRejectsMissingSource(t *testing.T) {
	_, mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "source_url is required")
}

func TestCreateSessionRejectsBadJSON(t *testing.T) {
	_, mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", strings.NewReader(`{broken`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateSessionFromUpload(t *testing.T) {
	svc, mux := newTestMux(t)

	var zipBuf bytes.Buffer
	zw := zip.NewWriter(&zipBuf)
	for name, content := range map[string]string{
		"Gemfile": "source \"https://rubygems.org\"\n" +
			"gem \"rails\"\n",
		"app/models/product.rb": "class Product < ApplicationRecord\n" +
			"end\n",
	} {
		f, err := zw.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("archive", "shop.zip")
	require.NoError(t, err)
	_, err = fw.Write(zipBuf.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("base_package", "com.example.transpiled"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/sessions", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sess session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	assert.Equal(t, "shop", sess.AppName)
	waitForState(t, svc, sess.ID, session.StateReviewing)
}

func TestListSessions(t *testing.T) {
	_, mux := newTestMux(t)
	sess := startSession(t, mux, writeRailsFixture(t))

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Sessions []session.Session `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Sessions, 1)
	assert.Equal(t, sess.ID, out.Sessions[0].ID)
}

func TestGetSessionDetail(t *testing.T) {
	svc, mux := newTestMux(t)
	sess := startSession(t, mux, writeRailsFixture(t))
	waitForState(t, svc, sess.ID, session.StateReviewing)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, session.StateReviewing, got.State)
	assert.NotNil(t, got.Proposal)
}

func TestGetSessionNotFound(t *testing.T) {
	_, mux := newTestMux(t)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/sess-404", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReviewApproveRunsToCompletion(t *testing.T) {
	svc, mux := newTestMux(t)
	sess := startSession(t, mux, writeRailsFixture(t))
	waitForState(t, svc, sess.ID, session.StateReviewing)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/review", strings.NewReader(`{"action":"approve"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"accepted":true`)
	waitForState(t, svc, sess.ID, session.StateDone)
}

func TestReviewConflictWhenNotReviewing(t *testing.T) {
	svc, mux := newTestMux(t)
	sess := startSession(t, mux, writeRailsFixture(t))
	approveWhenReady(t, svc, sess.ID)
	waitForState(t, svc, sess.ID, session.StateDone)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/review", strings.NewReader(`{"action":"approve"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAbortEndpoints(t *testing.T) {
	svc, mux := newTestMux(t)
	sess := startSession(t, mux, writeRailsFixture(t))
	waitForState(t, svc, sess.ID, session.StateReviewing)

	req := httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/abort", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	waitForState(t, svc, sess.ID, session.StateError)

	// aborting a finished session conflicts
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/"+sess.ID+"/abort", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sessions/sess-404/abort", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadArchive(t *testing.T) {
	svc, mux := newTestMux(t)
	sess := startSession(t, mux, writeRailsFixture(t))

	// not ready while the run is still going
	waitForState(t, svc, sess.ID, session.StateReviewing)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/download", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	approveWhenReady(t, svc, sess.ID)
	waitForState(t, svc, sess.ID, session.StateDone)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/"+sess.ID+"/download", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".zip")

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)
	assert.NotEmpty(t, zr.File)
}

func TestWatchSSEStreamsUntilTerminal(t *testing.T) {
	svc, mux := newTestMux(t)
	sess := startSession(t, mux, writeRailsFixture(t))
	approveWhenReady(t, svc, sess.ID)
	waitForState(t, svc, sess.ID, session.StateDone)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/watch/"+sess.ID, nil))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "data: ")
	assert.Contains(t, body, `"phase":"done"`)
	assert.Contains(t, body, `"terminal":true`)
}

func TestWatchSSEUnknownSession(t *testing.T) {
	_, mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/watch/sess-404", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	_, mux := newTestMux(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/sess-1/review", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
