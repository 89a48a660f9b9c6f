package api

import (
	"net/http"
	"time"
)

// NewServer wraps the handler in an http.Server. Write timeout stays
// unset because the MJPEG endpoint holds its connection open
// indefinitely.
func NewServer(addr string, h *Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
