package server

import (
	"context"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"streamdb/internal/config"
	"streamdb/internal/core/models"
	"streamdb/internal/handlers"
	"streamdb/internal/streams"
	"streamdb/pkg/resp"
)

// Server is the TCP front end described in spec §4.6: it accepts
// connections, decodes each request with pkg/resp, dispatches it through
// a handlers.Registry, and writes back the reply. One goroutine serves
// one connection for its whole lifetime.
type Server struct {
	registry *handlers.Registry
	cfg      config.ServerConfig

	shutdown chan struct{}
	wg       sync.WaitGroup

	mu       sync.Mutex
	listener net.Listener
}

// NewServer wires a fresh streams.Registry into a handlers.Registry and
// returns a Server ready to Start.
func NewServer(cfg config.ServerConfig) *Server {
	registry := handlers.NewRegistry(streams.NewRegistry())

	return &Server{
		registry: registry,
		cfg:      cfg,
		shutdown: make(chan struct{}),
	}
}

// Start listens on address and serves connections until Shutdown is
// called. An Accept error outside shutdown is logged and the loop keeps
// accepting.
func (s *Server) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	log.Printf("listening on %s", address)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return nil
			default:
				log.Printf("accept error: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	if s.cfg.IdleTimeout > 0 {
		conn.SetDeadline(time.Now().Add(s.cfg.IdleTimeout))
	}

	reader := resp.NewReader(conn)
	writer := resp.NewWriter(conn)

	for {
		if s.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}

		value, err := reader.Read()
		if err != nil {
			return
		}

		if value.Type != "array" || len(value.Array) == 0 {
			continue
		}

		result := s.handleCommand(value)

		if s.cfg.WriteTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		}
		if err := writer.Write(result); err != nil {
			return
		}

		if s.cfg.IdleTimeout > 0 {
			conn.SetDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}
	}
}

func (s *Server) handleCommand(value models.Value) models.Value {
	cmd := strings.ToUpper(value.Array[0].Bulk)

	handler, exists := s.registry.GetHandler(cmd)
	if !exists {
		return models.Value{Type: "error", Str: "ERR unknown command '" + value.Array[0].Bulk + "'"}
	}

	return handler(value.Array[1:])
}

// Shutdown stops accepting new connections and waits for in-flight ones
// to finish, or for ctx to be done, whichever comes first.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.shutdown)

	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
