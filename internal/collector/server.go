// Package collector implements the debug log endpoint: a small HTTP
// server browsers on the app origin POST their console events to, plus
// the bounded in-memory buffer those events land in.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/valyala/fastjson"

	"github.com/bowiephone/bowietest/internal/config"
	"github.com/bowiephone/bowietest/internal/model"
	"github.com/bowiephone/bowietest/internal/response"
)

// ErrPortInUse reports that the collector's address is already bound by
// another process. The harness never retries or picks another port.
var ErrPortInUse = errors.New("collector port already in use")

const shutdownTimeout = 5 * time.Second

const (
	allowMethods = "GET, POST, DELETE, OPTIONS"
	allowHeaders = "Content-Type"
)

// State is the lifecycle state of the collector endpoint.
type State string

const (
	// StateRunning means the listener is bound and serving.
	StateRunning State = "RUNNING"
	// StateStopped is terminal; entering it emits the session summary.
	StateStopped State = "STOPPED"
)

// Server wires the buffer, the live stream hub and the HTTP routes
// together. Construct with New, then call Run.
type Server struct {
	Echo *echo.Echo

	addr      string
	buffer    *Buffer
	hub       *hub
	logger    zerolog.Logger
	sessionID uuid.UUID
	parsers   fastjson.ParserPool
	ingested  atomic.Uint64

	stateMu sync.Mutex
	state   State
}

// New builds the collector around an externally owned buffer, so tests
// and callers can inspect the buffer without going through HTTP.
func New(cfg *config.Config, buf *Buffer, logger zerolog.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		Echo:      e,
		addr:      cfg.CollectorAddr(),
		buffer:    buf,
		logger:    logger.With().Str("component", "collector").Logger(),
		sessionID: uuid.New(),
	}
	s.hub = newHub(s.logger)

	// No request-access logging: stdout belongs to the formatted debug
	// entries, stderr to operational events. That covers the panic path
	// too, so recovery logs through the zerolog logger rather than
	// echo's own.
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			s.logger.Error().Err(err).Bytes("stack", stack).Msg("handler panicked")
			return err
		},
	}))
	e.Use(s.corsHeaders)
	e.HTTPErrorHandler = s.httpError

	e.POST("/debug-log", s.handleDebugLog)
	e.GET("/logs", s.handleLogs)
	e.DELETE("/logs", s.handleClearLogs)
	e.GET("/logs/stream", s.handleStream)

	return s
}

// Run binds the listening address, serves until ctx is cancelled, and
// performs the STOPPED transition on the way out. It returns nil after
// a clean shutdown; a bind failure or server error is returned without
// retry.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w: %s", ErrPortInUse, s.addr)
		}
		return fmt.Errorf("bind %s: %w", s.addr, err)
	}
	s.Echo.Listener = ln
	s.setState(StateRunning)

	s.logger.Info().
		Str("session", s.sessionID.String()).
		Msgf("🚀 debug log collector running on http://%s", s.addr)
	s.logger.Info().Msg("📝 POST /debug-log to submit, GET /logs to inspect, Ctrl+C to stop")

	errCh := make(chan error, 1)
	go func() { errCh <- s.Echo.Start("") }()

	select {
	case <-ctx.Done():
		s.hub.close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.Echo.Shutdown(shutdownCtx); err != nil {
			s.logger.Error().Err(err).Msg("graceful shutdown failed, closing hard")
			_ = s.Echo.Close()
		}
		s.stop()
		return nil
	case err := <-errCh:
		return fmt.Errorf("collector server: %w", err)
	}
}

// State reports the current lifecycle state. It is empty until Run has
// bound the listener.
func (s *Server) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *Server) setState(st State) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// stop performs the RUNNING to STOPPED transition exactly once and
// emits the session summary.
func (s *Server) stop() {
	s.stateMu.Lock()
	if s.state != StateRunning {
		s.stateMu.Unlock()
		return
	}
	s.state = StateStopped
	s.stateMu.Unlock()

	s.logger.Info().
		Str("session", s.sessionID.String()).
		Uint64("collected", s.ingested.Load()).
		Int("buffered", s.buffer.Len()).
		Msg("📊 debug log collector stopped")
}

// corsHeaders grants every origin access and answers preflight requests
// for any path with an empty 200 before routing. The browser app runs
// on the app server's origin, never the collector's, so every real
// call here is cross-origin.
func (s *Server) corsHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set(echo.HeaderAccessControlAllowOrigin, "*")
		if c.Request().Method == http.MethodOptions {
			h.Set(echo.HeaderAccessControlAllowMethods, allowMethods)
			h.Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)
			return c.NoContent(http.StatusOK)
		}
		return next(c)
	}
}

// handleDebugLog ingests one JSON entry from the browser logger.
func (s *Server) handleDebugLog(c echo.Context) error {
	req := c.Request()
	if req.ContentLength <= 0 {
		return response.BadRequest(c, "Empty request body")
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}

	p := s.parsers.Get()
	defer s.parsers.Put(p)
	v, err := p.ParseBytes(body)
	if err != nil {
		return response.BadRequest(c, fmt.Sprintf("Invalid JSON: %v", err))
	}
	if t := v.Type(); t != fastjson.TypeObject {
		return response.BadRequest(c, fmt.Sprintf("Invalid JSON: expected object, got %s", t))
	}

	var entry model.Entry
	if err := json.Unmarshal(body, &entry); err != nil {
		return response.BadRequest(c, fmt.Sprintf("Invalid JSON: %v", err))
	}

	stored := s.buffer.Add(entry)
	s.ingested.Add(1)
	s.hub.broadcast(stored)

	h := c.Response().Header()
	h.Set(echo.HeaderAccessControlAllowMethods, allowMethods)
	h.Set(echo.HeaderAccessControlAllowHeaders, allowHeaders)
	return response.Logged(c)
}

// handleLogs returns every buffered entry, oldest first, pretty-printed
// so it reads well in a browser tab or curl.
func (s *Server) handleLogs(c echo.Context) error {
	return c.JSONPretty(http.StatusOK, s.buffer.Snapshot(), "  ")
}

// handleClearLogs empties the buffer between test scenarios.
func (s *Server) handleClearLogs(c echo.Context) error {
	dropped := s.buffer.Len()
	s.buffer.Clear()
	s.logger.Info().Int("dropped", dropped).Msg("debug log buffer cleared")
	return response.Cleared(c)
}

func (s *Server) handleStream(c echo.Context) error {
	return s.hub.serve(c.Response(), c.Request())
}

// httpError maps failures onto the collector's wire contract: unknown
// routes and method mismatches both surface as not-found, JSON-bodied
// for POST clients and bare otherwise; everything else keeps its status
// with the error text in the standard JSON error body.
func (s *Server) httpError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	message := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		message = fmt.Sprintf("%v", he.Message)
	}

	if code == http.StatusNotFound || code == http.StatusMethodNotAllowed {
		if c.Request().Method == http.MethodPost {
			_ = response.NotFound(c)
		} else {
			_ = c.NoContent(http.StatusNotFound)
		}
		return
	}
	if code >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.Request().URL.Path).Msg("request failed")
	}
	_ = response.Error(c, code, message)
}
