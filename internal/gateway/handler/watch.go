package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"springforge/internal/gateway/service/convert"
)

type WatchHandler struct {
	svc *convert.Service
}

func NewWatchHandler(svc *convert.Service) *WatchHandler {
	return &WatchHandler{svc: svc}
}

// HandleWatchSSE streams progress events for a session as Server-Sent
// Events. The stream ends after the terminal event, or with an
// event: close frame when the run's channel is gone.
func (h *WatchHandler) HandleWatchSSE(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/watch/"), "/")
	if id == "" {
		http.Error(w, "session id required", http.StatusBadRequest)
		return
	}

	eventCh, ok := h.svc.Events(id)
	if !ok {
		http.Error(w, "session has no active run", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				fmt.Fprintf(w, "event: close\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			if event.Terminal {
				return
			}
		}
	}
}
