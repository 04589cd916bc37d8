// Package handler exposes the conversion pipeline over HTTP: a JSON
// session API, an SSE progress stream and a websocket review channel.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"springforge/internal/gateway/service/convert"
)

// uploadLimit caps zipped project uploads at 64 MiB.
const uploadLimit = 64 << 20

type SessionHandler struct {
	svc *convert.Service
}

func NewSessionHandler(svc *convert.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// HandleCollection serves /api/sessions: POST starts a conversion,
// GET lists known sessions.
func (h *SessionHandler) HandleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"sessions": h.svc.List()})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// HandleResource serves everything under /api/sessions/{id}.
func (h *SessionHandler) HandleResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/")
	parts := strings.Split(rest, "/")
	id := strings.TrimSpace(parts[0])
	if id == "" {
		http.Error(w, "session id required", http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 1:
		h.detail(w, r, id)
	case len(parts) == 2 && parts[1] == "review":
		h.review(w, r, id)
	case len(parts) == 2 && parts[1] == "abort":
		h.abort(w, r, id)
	case len(parts) == 2 && parts[1] == "download":
		h.download(w, r, id)
	case len(parts) == 3 && parts[1] == "review" && parts[2] == "ws":
		h.handleReviewWS(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	in, err := decodeStartInput(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, err := h.svc.Start(in)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// decodeStartInput accepts either a JSON body or a multipart form with
// a zipped project in the archive field.
func decodeStartInput(r *http.Request) (convert.StartInput, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(ct, "multipart/") {
		if err := r.ParseMultipartForm(uploadLimit); err != nil {
			return convert.StartInput{}, errors.New("invalid multipart form")
		}
		in := convert.StartInput{
			AppName:     strings.TrimSpace(r.FormValue("app_name")),
			BasePackage: strings.TrimSpace(r.FormValue("base_package")),
		}
		file, header, err := r.FormFile("archive")
		if err != nil {
			return convert.StartInput{}, errors.New("archive file is required")
		}
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, uploadLimit))
		if err != nil {
			return convert.StartInput{}, errors.New("reading archive failed")
		}
		in.Upload = data
		in.Source = header.Filename
		return in, nil
	}

	var body struct {
		SourceURL   string `json:"source_url"`
		AppName     string `json:"app_name"`
		BasePackage string `json:"base_package"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return convert.StartInput{}, errors.New("invalid json body")
	}
	if strings.TrimSpace(body.SourceURL) == "" {
		return convert.StartInput{}, errors.New("source_url is required")
	}
	return convert.StartInput{
		Source:      strings.TrimSpace(body.SourceURL),
		AppName:     strings.TrimSpace(body.AppName),
		BasePackage: strings.TrimSpace(body.BasePackage),
	}, nil
}

func (h *SessionHandler) detail(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := h.svc.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *SessionHandler) review(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var d convert.Decision
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if _, ok := h.svc.Get(id); !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err := h.svc.Review(id, d); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accepted": true, "action": strings.ToLower(strings.TrimSpace(d.Action))})
}

func (h *SessionHandler) abort(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := h.svc.Get(id); !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if err := h.svc.Abort(id); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"aborted": true})
}

func (h *SessionHandler) download(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sess, ok := h.svc.Get(id)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	data, url, err := h.svc.Archive(r.Context(), id)
	switch {
	case errors.Is(err, convert.ErrNoArchive):
		http.Error(w, "archive not ready", http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if url != "" {
		http.Redirect(w, r, url, http.StatusFound)
		return
	}
	name := strings.TrimSpace(sess.AppName)
	if name == "" {
		name = "project"
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.zip"`)
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
