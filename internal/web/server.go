// Package web provides the HTTP surface of the heatcoil daemon: a status
// page, a JSON snapshot, and plain-text access to the TEMP and STATUS
// endpoints.
//
// The server holds a single STATUS handle for its whole lifetime instead of
// opening one per request: an endpoint close disengages the coil
// unconditionally, so request-scoped handles would shut the coil off right
// after every engage. The handle is closed on Shutdown, which gives the
// HTTP surface the same off-on-release behavior as any other client.
package web

import (
	"context"
	"io"
	"net"
	"net/http"

	"github.com/sweeney/heatcoil/internal/device"
	"github.com/sweeney/heatcoil/internal/status"
)

// Server serves the status page and endpoint access over HTTP.
type Server struct {
	httpServer   *http.Server
	tracker      *status.Tracker
	tempHandle   *device.Handle
	statusHandle *device.Handle
}

// New creates a Server reading state from tracker and driving the coil
// through mux.
func New(addr string, tracker *status.Tracker, mux *device.Mux) (*Server, error) {
	tempHandle, err := mux.Open(device.MinorTemp)
	if err != nil {
		return nil, err
	}
	statusHandle, err := mux.Open(device.MinorStatus)
	if err != nil {
		return nil, err
	}

	s := &Server{
		tracker:      tracker,
		tempHandle:   tempHandle,
		statusHandle: statusHandle,
	}

	m := http.NewServeMux()
	m.HandleFunc("/", s.handleIndex)
	m.HandleFunc("/index.html", s.handleIndex)
	m.HandleFunc("/index.json", s.handleJSON)
	m.HandleFunc("/temp", s.handleTemp)
	m.HandleFunc("/status", s.handleStatus)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: m,
	}
	return s, nil
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server, then closes its STATUS handle
// so the coil is disengaged once no HTTP client can drive it anymore.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	s.statusHandle.Close()
	return err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/index.html" {
		http.NotFound(w, r)
		return
	}
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleTemp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	buf := make([]byte, device.TempReadLen)
	n, err := s.tempHandle.Read(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(buf[:n])
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		// fall through to the readback below

	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, 64))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		if _, err := s.statusHandle.Write(body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	buf := make([]byte, device.StatusReadLen)
	n, err := s.statusHandle.Read(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(buf[:n])
}
