// Package sockserv serves analysis requests over a Unix domain socket: one
// newline-terminated JSON request per connection, answered by either a single
// analyze report or a stream of lines.
package sockserv

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/etoilefixes/ubuntu-error-log-tool/internal/model"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/protocol"
)

const (
	// scannerInitBufSize is the initial buffer size for the request scanner (1 MB).
	scannerInitBufSize = 1024 * 1024
	// scannerMaxTokenSize is the maximum request line size (10 MB).
	scannerMaxTokenSize = 10 * 1024 * 1024

	// DefaultMaxClients is the admission ceiling for concurrent connections.
	DefaultMaxClients = 64
)

// Runner executes one validated request. Implemented by engine.Engine.
type Runner interface {
	Analyze(cfg model.Config) (*model.AnalyzeResponse, error)
	Stream(cfg model.Config, w io.Writer) error
}

// Server accepts connections on a Unix socket and dispatches each to an
// independent worker. The only state shared across workers is the atomic
// active-connection counter backing admission control.
type Server struct {
	socketPath string
	runner     Runner
	maxClients int64

	listener net.Listener
	wg       sync.WaitGroup
	quit     chan struct{}

	active   atomic.Int64
	served   atomic.Uint64
	rejected atomic.Uint64
}

// NewServer creates a socket server. maxClients <= 0 selects the default
// ceiling.
func NewServer(socketPath string, runner Runner, maxClients int) *Server {
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	return &Server{
		socketPath: socketPath,
		runner:     runner,
		maxClients: int64(maxClients),
		quit:       make(chan struct{}),
	}
}

// Start begins listening on the socket and accepting connections.
func (s *Server) Start() error {
	// Ensure the parent directory exists.
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("sockserv: mkdir: %w", err)
	}

	// Remove a stale socket file, but refuse to displace a live daemon.
	if _, err := os.Stat(s.socketPath); err == nil {
		conn, dialErr := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond)
		if dialErr != nil {
			os.Remove(s.socketPath)
		} else {
			conn.Close()
			return fmt.Errorf("sockserv: another daemon is already listening on %s", s.socketPath)
		}
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("sockserv: listen: %w", err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	log.Printf("sockserv: listening on %s (max clients %d)", s.socketPath, s.maxClients)
	return nil
}

// Stop closes the listener, waits for in-flight workers to drain, and removes
// the socket file.
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	os.Remove(s.socketPath)
}

// ActiveClients returns the number of connections currently being handled.
func (s *Server) ActiveClients() int64 { return s.active.Load() }

// Served returns how many requests completed (successfully or not).
func (s *Server) Served() uint64 { return s.served.Load() }

// Rejected returns how many connections the admission ceiling turned away.
func (s *Server) Rejected() uint64 { return s.rejected.Load() }

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				log.Printf("sockserv: accept error: %v", err)
				// Continue on transient errors (e.g., fd limit) instead of
				// killing the entire accept loop.
				continue
			}
		}

		// Admission control: a rejected connection gets a synchronous busy
		// error without its request ever being read. The ceiling is
		// approximate under racing accepts, never permanently exceeded.
		if s.active.Add(1) > s.maxClients {
			s.active.Add(-1)
			s.rejected.Add(1)
			busy := fmt.Sprintf("daemon busy: concurrent request limit %d reached", s.maxClients)
			_ = protocol.WriteError(conn, model.ModeAnalyze, busy)
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()
	// Release the admission slot on every exit path.
	defer s.active.Add(-1)
	defer s.served.Add(1)

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			log.Printf("sockserv: read request: %v", err)
		}
		return
	}
	if len(scanner.Bytes()) == 0 {
		return
	}

	cfg, err := protocol.DecodeRequest(scanner.Bytes())
	if err != nil {
		// Mode unknown at this point, so the analyze error shape applies.
		_ = protocol.WriteError(conn, model.ModeAnalyze, err.Error())
		log.Printf("sockserv: %v", err)
		return
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		_ = protocol.WriteError(conn, cfg.Mode, err.Error())
		log.Printf("sockserv: invalid request: %v", err)
		return
	}

	log.Printf("sockserv: request mode=%s since=%q priority=%s follow=%t",
		cfg.Mode, cfg.Since, cfg.Priority, cfg.Follow)

	switch cfg.Mode {
	case model.ModeAnalyze:
		resp, err := s.runner.Analyze(cfg)
		if err != nil {
			_ = protocol.WriteError(conn, cfg.Mode, err.Error())
			log.Printf("sockserv: analyze failed: %v", err)
			return
		}
		if err := protocol.WriteLine(conn, resp); err != nil {
			log.Printf("sockserv: send response: %v", err)
		}
	case model.ModeStream:
		// The connection is the stream writer, so accepted lines go out the
		// moment the tool produces them.
		if err := s.runner.Stream(cfg, conn); err != nil {
			_ = protocol.WriteError(conn, cfg.Mode, err.Error())
			log.Printf("sockserv: stream failed: %v", err)
		}
	}
}
