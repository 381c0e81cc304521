package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/nickyhof/stressdb"
	"github.com/nickyhof/stressdb/db"
	"github.com/nickyhof/stressdb/internal/config"
	"github.com/nickyhof/stressdb/internal/metrics"
	"go.uber.org/zap"
)

// Server is a TCP server answering lookup statements, one per line. Every
// connection has its own session.
type Server struct {
	listener   net.Listener
	instance   *stressdb.Instance
	engine     *db.Engine
	authConfig *config.AuthConfig
	logger     *zap.Logger
	tlsEnabled bool
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// NewServer creates a server without authentication.
func NewServer(instance *stressdb.Instance, logger *zap.Logger) *Server {
	return NewServerWithAuth(instance, nil, logger)
}

// NewServerWithAuth creates a server that requires AUTH JWT before any
// statement when authConfig is enabled.
func NewServerWithAuth(instance *stressdb.Instance, authConfig *config.AuthConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		instance:   instance,
		engine:     instance.Engine(),
		authConfig: authConfig,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (s *Server) authRequired() bool {
	return s.authConfig != nil && s.authConfig.Enabled
}

// Start begins listening for connections on the specified address.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.serve(listener)
	return nil
}

// StartTLS is Start with TLS using the given certificate and key files.
func (s *Server) StartTLS(addr, certFile, keyFile string) error {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	listener, err := tls.Listen("tcp", addr, &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	})
	if err != nil {
		return fmt.Errorf("failed to start TLS server: %w", err)
	}
	s.tlsEnabled = true
	s.serve(listener)
	return nil
}

func (s *Server) serve(listener net.Listener) {
	s.listener = listener
	s.logger.Info("lookup server listening",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsEnabled),
		zap.Bool("auth", s.authRequired()))
	go s.acceptLoop()
}

// Stop closes the listener and waits for open connections to finish.
func (s *Server) Stop() error {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
	return nil
}

// Addr returns the server's listening address.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) TLSEnabled() bool {
	return s.tlsEnabled
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
				s.logger.Warn("accept error", zap.Error(err))
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

	// Stop unblocks pending reads by closing the connection
	closed := make(chan struct{})
	defer close(closed)
	go func() {
		select {
		case <-s.ctx.Done():
			conn.Close()
		case <-closed:
		}
	}()

	session := db.NewSession("")
	state := &ConnectionState{}
	logger := s.logger.With(
		zap.String("remote", conn.RemoteAddr().String()),
		zap.Stringer("session", session.ID))

	metrics.SessionsActive.Inc()
	defer metrics.SessionsActive.Dec()
	logger.Info("client connected")

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF && s.ctx.Err() == nil {
				logger.Warn("read error", zap.Error(err))
			}
			return
		}

		statement := strings.TrimSpace(line)
		if statement == "" {
			continue
		}

		if strings.EqualFold(statement, "quit") || strings.EqualFold(statement, "exit") {
			logger.Info("client disconnected")
			return
		}

		response := s.handleLine(statement, session, state)

		data, err := EncodeResponse(response)
		if err != nil {
			logger.Error("failed to encode response", zap.Error(err))
			continue
		}
		if _, err := conn.Write(data); err != nil {
			logger.Warn("write error", zap.Error(err))
			return
		}
	}
}

func (s *Server) handleLine(line string, session *db.Session, state *ConnectionState) Response {
	if isAuthCommand(line) {
		return s.handleAuth(line, state)
	}

	if s.authRequired() {
		if state.expired(time.Now()) {
			state.authenticated = false
			state.identity = nil
			metrics.AuthFailuresTotal.WithLabelValues("expired").Inc()
			return errorResponse("auth", errors.New("token expired: send AUTH JWT <token>"))
		}
		if !state.IsAuthenticated() {
			metrics.AuthFailuresTotal.WithLabelValues("missing").Inc()
			return errorResponse("", errAuthRequired)
		}
	}

	return s.execute(line, session)
}

func (s *Server) execute(statement string, session *db.Session) Response {
	start := time.Now()
	result, err := s.engine.Execute(s.ctx, session, statement)
	if err != nil {
		metrics.RecordStatement("unknown", "error", time.Since(start))
		return errorResponse("", err)
	}

	switch r := result.(type) {
	case db.QueryResult:
		status := r.Status
		if status == "" {
			status = "ok"
		}
		metrics.RecordStatement(r.Statement, status, time.Since(start))
		return resultResponse(r.Type().String(), QueryResponse{
			Statement:   r.Statement,
			Status:      r.Status,
			Columns:     r.Columns,
			Data:        r.Data,
			RecordsRead: r.RecordsRead,
			TimeMs:      r.ExecutionTimeSec * 1000,
		})

	case db.SessionResult:
		metrics.RecordStatement(r.Statement, "ok", time.Since(start))
		return resultResponse(r.Type().String(), SessionResponse{
			Statement:  r.Statement,
			Variant:    r.Variant,
			Selection:  r.Selection,
			Candidates: r.Candidates,
			TimeMs:     r.ExecutionTimeSec * 1000,
		})

	default:
		return Response{Success: true, Type: "unknown"}
	}
}
