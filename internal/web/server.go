// Package web provides an HTTP status and control server for the dut-control daemon.
package web

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/sweeney/dut-control/internal/command"
	"github.com/sweeney/dut-control/internal/control"
	"github.com/sweeney/dut-control/internal/status"
)

// maxCommandBytes bounds a POST /control body.
const maxCommandBytes = 256

// commandTimeout bounds how long a request waits for its command to apply.
const commandTimeout = 10 * time.Second

// Submitter applies commands on behalf of HTTP clients.
type Submitter interface {
	Submit(ctx context.Context, source string, cmd command.Command) error
}

// Server serves the status page over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	submitter  Submitter
}

// New creates a Server that reads state from the given tracker. When
// submitter is nil the control endpoint is not served.
func New(addr string, tracker *status.Tracker, submitter Submitter) *Server {
	s := &Server{tracker: tracker, submitter: submitter}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/index.html", s.handleIndex)
	mux.HandleFunc("/index.json", s.handleJSON)
	if submitter != nil {
		mux.HandleFunc("/control", s.handleControl)
	}

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap, s.submitter != nil)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

// handleControl applies the text command in the request body, e.g.
// "power on". It answers 204 on success.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	cmd, err := command.Parse(string(body))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), commandTimeout)
	defer cancel()

	err = s.submitter.Submit(ctx, "http", cmd)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, control.ErrNotConfigured):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, command.ErrQueueClosed):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Printf("http control %q: %v", cmd, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
