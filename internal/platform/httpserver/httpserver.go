package httpserver

import (
	"net/http"
	"time"
)

// Behavioral payloads and grant envelopes are small; anything approaching
// this limit is malformed or hostile.
const maxHeaderBytes = 64 << 10

// New builds the API server. Timeouts are deliberately tight: every endpoint
// either answers from a store or runs a bounded analysis pass.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    maxHeaderBytes,
	}
}
