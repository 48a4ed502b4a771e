// Package httpapi serves the daemon's HTTP and WebSocket surface: REST
// routes for chats, messages and media, plus the event stream consumed
// by the BlackBerry 10 client.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/lautaromei/wpbb10/internal/hub"
	"github.com/lautaromei/wpbb10/internal/session"
)

type Server struct {
	echo      *echo.Echo
	manager   *session.Manager
	hub       *hub.Hub
	logger    *zap.Logger
	publicURL string
}

func New(manager *session.Manager, h *hub.Hub, logger *zap.Logger, publicURL string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:      e,
		manager:   manager,
		hub:       h,
		logger:    logger,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
	e.Use(s.requestLogger)
	s.routes()
	return s
}

// Start blocks serving on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the underlying mux for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/", s.handleRoot)
	e.GET("/ws", s.handleWS)

	api := e.Group("/api")
	api.GET("/status", s.handleStatus)
	api.GET("/qr", s.handleQR)
	api.GET("/tunnel", s.handleTunnel)
	api.GET("/chats", s.handleChats)
	api.GET("/chats/:id/messages", s.handleMessages)
	api.POST("/chats/:id/messages", s.handleSendText)
	api.POST("/chats/:id/media", s.handleSendMedia)
	api.POST("/chats/:id/messages/:msgId/react", s.handleReact)
	api.POST("/chats/:id/seen", s.handleSeen)
	api.GET("/contacts/:id/picture", s.handlePicture)
	api.GET("/media/:id", s.handleMedia)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		s.logger.Debug("http request",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Int("status", c.Response().Status),
			zap.Duration("took", time.Since(start)))
		return err
	}
}

// baseURL is what mediaUrl links are prefixed with: the configured
// public URL when set, the request's own origin otherwise.
func (s *Server) baseURL(c echo.Context) string {
	if s.publicURL != "" {
		return s.publicURL
	}
	return c.Scheme() + "://" + c.Request().Host
}

// param returns a path parameter with URL escaping undone. JIDs contain
// "@", which some clients escape and some send raw.
func param(c echo.Context, name string) string {
	raw := c.Param(name)
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}

func httpError(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotReady):
		code = http.StatusServiceUnavailable
	case errors.Is(err, session.ErrInvalidIdentifier):
		code = http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		code = http.StatusNotFound
	}
	return c.JSON(code, map[string]string{"error": err.Error()})
}
