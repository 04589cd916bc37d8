package server

import (
	"net/http"

	"springforge/internal/gateway/handler"
	"springforge/internal/gateway/middleware"
)

func NewMux(
	sessionHandler *handler.SessionHandler,
	watchHandler *handler.WatchHandler,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/sessions", sessionHandler.HandleCollection)
	mux.HandleFunc("/api/sessions/", sessionHandler.HandleResource)
	mux.HandleFunc("/api/watch/", watchHandler.HandleWatchSSE)

	return middleware.CORS(mux)
}
