// Package sock exposes the control endpoints as unix domain sockets named
// heatcoil.temp and heatcoil.status. One accepted connection corresponds to
// one open handle, so a client that crashes or disconnects gets the same
// close semantics a device release would give it: the STATUS close
// unconditionally disengages the coil.
//
// The wire protocol is deliberately thin: the server sends one fresh
// fixed-width reply on connect and another after every received chunk.
// Received bytes are routed to the endpoint's write path unchanged.
package sock

import (
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/sweeney/heatcoil/internal/device"
)

// Server serves the two endpoint sockets out of a single directory.
type Server struct {
	dir string

	tempLn   net.Listener
	statusLn net.Listener

	mu     sync.Mutex
	conns  map[net.Conn]struct{}
	closed bool

	wg sync.WaitGroup
}

// New creates a Server that will bind its sockets under dir.
func New(dir string) *Server {
	return &Server{dir: dir, conns: make(map[net.Conn]struct{})}
}

// TempPath returns the path of the temperature socket.
func (s *Server) TempPath() string { return filepath.Join(s.dir, device.TempName) }

// StatusPath returns the path of the status socket.
func (s *Server) StatusPath() string { return filepath.Join(s.dir, device.StatusName) }

// Listen binds both sockets. It touches no hardware, so a registration
// failure here aborts startup before any pin is acquired. Stale socket
// files from a previous run are removed first.
func (s *Server) Listen() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}

	tempLn, err := listenUnix(s.TempPath())
	if err != nil {
		return fmt.Errorf("register %s: %w", device.TempName, err)
	}

	statusLn, err := listenUnix(s.StatusPath())
	if err != nil {
		tempLn.Close()
		os.Remove(s.TempPath())
		return fmt.Errorf("register %s: %w", device.StatusName, err)
	}

	s.tempLn = tempLn
	s.statusLn = statusLn
	return nil
}

func listenUnix(path string) (net.Listener, error) {
	os.Remove(path)
	return net.Listen("unix", path)
}

// Serve starts accepting connections and routing them through mux. Listen
// must have succeeded first.
func (s *Server) Serve(mux *device.Mux) {
	s.wg.Add(2)
	go s.acceptLoop(s.tempLn, mux, device.MinorTemp, device.TempReadLen)
	go s.acceptLoop(s.statusLn, mux, device.MinorStatus, device.StatusReadLen)
}

func (s *Server) acceptLoop(ln net.Listener, mux *device.Mux, minor, readLen int) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			// Listener closed during shutdown.
			return
		}
		if !s.track(conn) {
			conn.Close()
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConn(conn, mux, minor, readLen)
		}()
	}
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
}

// handleConn owns one open handle for the lifetime of the connection.
// The deferred handle close is what makes a dropped STATUS connection
// de-energize the coil.
func (s *Server) handleConn(conn net.Conn, mux *device.Mux, minor, readLen int) {
	defer conn.Close()

	h, err := mux.Open(minor)
	if err != nil {
		log.Printf("sock: open minor %d: %v", minor, err)
		return
	}
	defer h.Close()

	if err := s.reply(conn, h, readLen); err != nil {
		return
	}

	buf := make([]byte, 64)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if _, werr := h.Write(buf[:n]); werr != nil {
				if errors.Is(werr, device.ErrInvalidArgument) {
					continue
				}
				log.Printf("sock: endpoint write: %v", werr)
			}
			if rerr := s.reply(conn, h, readLen); rerr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// reply sends one fresh fixed-width endpoint read to the client.
func (s *Server) reply(conn net.Conn, h *device.Handle, readLen int) error {
	out := make([]byte, readLen)
	n, err := h.Read(out)
	if err != nil {
		return err
	}
	_, err = conn.Write(out[:n])
	return err
}

// Close stops accepting, drops every live connection (closing their handles
// and hence disengaging any STATUS client), waits for the handlers to
// finish, and removes the socket files.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]net.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var firstErr error
	if s.tempLn != nil {
		if err := s.tempLn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.statusLn != nil {
		if err := s.statusLn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for _, c := range conns {
		c.Close()
	}
	s.wg.Wait()

	os.Remove(s.TempPath())
	os.Remove(s.StatusPath())
	return firstErr
}
